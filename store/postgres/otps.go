package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
)

type otpRow struct {
	ID           int64         `db:"id"`
	Version      int64         `db:"version"`
	Purpose      string        `db:"purpose"`
	Identity     string        `db:"identity"`
	UserID       sql.NullInt64 `db:"user_id"`
	OTPHash      string        `db:"otp_hash"`
	CreatedAt    time.Time     `db:"created_at"`
	Used         bool          `db:"used"`
	AttemptCount int           `db:"attempt_count"`
	Locked       bool          `db:"locked"`
	LockedAt     sql.NullTime  `db:"locked_at"`
}

func toOTPRow(r *bankAuth.OTPRecord) otpRow {
	return otpRow{
		ID:           r.ID,
		Version:      r.Version,
		Purpose:      string(r.Purpose),
		Identity:     r.Identity,
		UserID:       sql.NullInt64{Int64: r.UserID, Valid: r.UserID != 0},
		OTPHash:      r.OTPHash,
		CreatedAt:    r.CreatedAt,
		Used:         r.Used,
		AttemptCount: r.AttemptCount,
		Locked:       r.Locked,
		LockedAt:     nullTime(r.LockedAt),
	}
}

func (r otpRow) toRecord() *bankAuth.OTPRecord {
	return &bankAuth.OTPRecord{
		ID:           r.ID,
		Version:      r.Version,
		Purpose:      bankAuth.Purpose(r.Purpose),
		Identity:     r.Identity,
		UserID:       r.UserID.Int64,
		OTPHash:      r.OTPHash,
		CreatedAt:    r.CreatedAt,
		Used:         r.Used,
		AttemptCount: r.AttemptCount,
		Locked:       r.Locked,
		LockedAt:     timePtr(r.LockedAt),
	}
}

func (s *Store) FindOTP(ctx context.Context, purpose bankAuth.Purpose, identity string) (*bankAuth.OTPRecord, error) {
	const q = `SELECT id, version, purpose, identity, user_id, otp_hash, created_at, used,
		attempt_count, locked, locked_at
	  FROM otp_records WHERE purpose = $1 AND identity = $2`
	var row otpRow
	if err := s.db.GetContext(ctx, &row, q, string(purpose), identity); err != nil {
		return nil, mapError(err)
	}
	return row.toRecord(), nil
}

// SaveOTP inserts when rec.ID is zero and otherwise performs a
// version-guarded update.
func (s *Store) SaveOTP(ctx context.Context, rec *bankAuth.OTPRecord) error {
	if rec.ID == 0 {
		return s.insertOTP(ctx, rec)
	}

	const q = `UPDATE otp_records SET
		version = version + 1,
		user_id = :user_id,
		otp_hash = :otp_hash,
		created_at = :created_at,
		used = :used,
		attempt_count = :attempt_count,
		locked = :locked,
		locked_at = :locked_at
	  WHERE id = :id AND version = :version`

	res, err := s.db.NamedExecContext(ctx, q, toOTPRow(rec))
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missOrConflict(ctx, "otp_records", rec.ID)
	}
	rec.Version++
	return nil
}

func (s *Store) insertOTP(ctx context.Context, rec *bankAuth.OTPRecord) error {
	const q = `INSERT INTO otp_records (version, purpose, identity, user_id, otp_hash, created_at,
		used, attempt_count, locked, locked_at)
	  VALUES (1, :purpose, :identity, :user_id, :otp_hash, :created_at,
		:used, :attempt_count, :locked, :locked_at)
	  RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, q, toOTPRow(rec))
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapError(err)
		}
		return errors.New("no id returned")
	}
	if err := rows.Scan(&rec.ID); err != nil {
		return err
	}
	rec.Version = 1
	return nil
}
