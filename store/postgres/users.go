package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/lib/pq"
)

type userRow struct {
	ID                       int64          `db:"id"`
	Version                  int64          `db:"version"`
	FirstName                string         `db:"first_name"`
	LastName                 string         `db:"last_name"`
	Email                    string         `db:"email"`
	MobileNumber             string         `db:"mobile_number"`
	PasswordHash             string         `db:"password_hash"`
	BirthDate                time.Time      `db:"birth_date"`
	Roles                    pq.StringArray `db:"roles"`
	Enabled                  bool           `db:"enabled"`
	Locked                   bool           `db:"locked"`
	LockedAt                 sql.NullTime   `db:"locked_at"`
	LockReason               string         `db:"lock_reason"`
	InvalidPasswordCounter   int            `db:"invalid_password_counter"`
	EligibleForPasswordReset bool           `db:"eligible_for_password_reset"`
	EligibleAt               sql.NullTime   `db:"eligible_at"`
	CreatedAt                time.Time      `db:"created_at"`
	UpdatedAt                time.Time      `db:"updated_at"`
}

const userColumns = `id, version, first_name, last_name, email, mobile_number, password_hash,
	birth_date, roles, enabled, locked, locked_at, lock_reason, invalid_password_counter,
	eligible_for_password_reset, eligible_at, created_at, updated_at`

func toUserRow(u *bankAuth.User) userRow {
	roles := make(pq.StringArray, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userRow{
		ID:                       u.ID,
		Version:                  u.Version,
		FirstName:                u.FirstName,
		LastName:                 u.LastName,
		Email:                    u.Email,
		MobileNumber:             u.MobileNumber,
		PasswordHash:             u.PasswordHash,
		BirthDate:                u.BirthDate,
		Roles:                    roles,
		Enabled:                  u.Enabled,
		Locked:                   u.Locked,
		LockedAt:                 nullTime(u.LockedAt),
		LockReason:               string(u.LockReason),
		InvalidPasswordCounter:   u.InvalidPasswordCounter,
		EligibleForPasswordReset: u.EligibleForPasswordReset,
		EligibleAt:               nullTime(u.EligibleAt),
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
}

func (r userRow) toUser() *bankAuth.User {
	roles := make([]bankAuth.Role, 0, len(r.Roles))
	for _, name := range r.Roles {
		roles = append(roles, bankAuth.Role(name))
	}
	return &bankAuth.User{
		ID:                       r.ID,
		Version:                  r.Version,
		FirstName:                r.FirstName,
		LastName:                 r.LastName,
		Email:                    r.Email,
		MobileNumber:             r.MobileNumber,
		PasswordHash:             r.PasswordHash,
		BirthDate:                r.BirthDate,
		Roles:                    roles,
		Enabled:                  r.Enabled,
		Locked:                   r.Locked,
		LockedAt:                 timePtr(r.LockedAt),
		LockReason:               bankAuth.LockReason(r.LockReason),
		InvalidPasswordCounter:   r.InvalidPasswordCounter,
		EligibleForPasswordReset: r.EligibleForPasswordReset,
		EligibleAt:               timePtr(r.EligibleAt),
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*bankAuth.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return nil, mapError(err)
	}
	return row.toUser(), nil
}

// FindByEmailOrMobile prefers a mobile number match.
func (s *Store) FindByEmailOrMobile(ctx context.Context, identifier string) (*bankAuth.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users
	  WHERE mobile_number = $1 OR email = $1
	  ORDER BY (mobile_number = $1) DESC
	  LIMIT 1`
	var row userRow
	if err := s.db.GetContext(ctx, &row, q, identifier); err != nil {
		return nil, mapError(err)
	}
	return row.toUser(), nil
}

func (s *Store) ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR ($2 <> '' AND mobile_number = $2))`,
		email, mobile)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (s *Store) CreateUser(ctx context.Context, u *bankAuth.User) error {
	const q = `INSERT INTO users (version, first_name, last_name, email, mobile_number, password_hash,
		birth_date, roles, enabled, locked, locked_at, lock_reason, invalid_password_counter,
		eligible_for_password_reset, eligible_at, created_at, updated_at)
	  VALUES (1, :first_name, :last_name, :email, :mobile_number, :password_hash,
		:birth_date, :roles, :enabled, :locked, :locked_at, :lock_reason, :invalid_password_counter,
		:eligible_for_password_reset, :eligible_at, :created_at, :updated_at)
	  RETURNING id`

	rows, err := s.db.NamedQueryContext(ctx, q, toUserRow(u))
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
	if err := rows.Scan(&u.ID); err != nil {
		return err
	}
	u.Version = 1
	return nil
}

// UpdateUser writes every mutable column when the stored version still
// matches u.Version, then advances u.Version.
func (s *Store) UpdateUser(ctx context.Context, u *bankAuth.User) error {
	const q = `UPDATE users SET
		version = version + 1,
		first_name = :first_name,
		last_name = :last_name,
		email = :email,
		mobile_number = :mobile_number,
		password_hash = :password_hash,
		birth_date = :birth_date,
		roles = :roles,
		enabled = :enabled,
		locked = :locked,
		locked_at = :locked_at,
		lock_reason = :lock_reason,
		invalid_password_counter = :invalid_password_counter,
		eligible_for_password_reset = :eligible_for_password_reset,
		eligible_at = :eligible_at,
		updated_at = :updated_at
	  WHERE id = :id AND version = :version`

	res, err := s.db.NamedExecContext(ctx, q, toUserRow(u))
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missOrConflict(ctx, "users", u.ID)
	}
	u.Version++
	return nil
}

func (s *Store) missOrConflict(ctx context.Context, table string, id int64) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return mapError(err)
	}
	if !exists {
		return bankAuth.ErrRecordNotFound
	}
	return bankAuth.ErrVersionConflict
}
