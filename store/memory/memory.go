// Package memory is an in-process durable store for development and tests.
//
// It enforces the same contract as store/postgres: unique email and mobile
// number, optimistic updates guarded by Version, and the bankAuth adapter
// sentinels. Values are copied in and out so callers never share state with
// the store.
package memory

import (
	"context"
	"sync"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
)

type otpKey struct {
	purpose  bankAuth.Purpose
	identity string
}

// Store implements bankAuth.UserRepository and bankAuth.OTPRepository.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*bankAuth.User
	byEmail map[string]int64
	byPhone map[string]int64
	otps    map[otpKey]*bankAuth.OTPRecord
}

func New() *Store {
	return &Store{
		users:   make(map[int64]*bankAuth.User),
		byEmail: make(map[string]int64),
		byPhone: make(map[string]int64),
		otps:    make(map[otpKey]*bankAuth.OTPRecord),
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*bankAuth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, bankAuth.ErrRecordNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) FindByEmailOrMobile(ctx context.Context, identifier string) (*bankAuth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byPhone[identifier]; ok {
		return copyUser(s.users[id]), nil
	}
	if id, ok := s.byEmail[identifier]; ok {
		return copyUser(s.users[id]), nil
	}
	return nil, bankAuth.ErrRecordNotFound
}

func (s *Store) ExistsByEmailOrMobile(ctx context.Context, email, mobile string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byEmail[email]; ok {
		return true, nil
	}
	if mobile == "" {
		return false, nil
	}
	_, ok := s.byPhone[mobile]
	return ok, nil
}

func (s *Store) CreateUser(ctx context.Context, u *bankAuth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return bankAuth.ErrDuplicate
	}
	if u.MobileNumber != "" {
		if _, ok := s.byPhone[u.MobileNumber]; ok {
			return bankAuth.ErrDuplicate
		}
	}

	s.nextID++
	u.ID = s.nextID
	u.Version = 1
	s.users[u.ID] = copyUser(u)
	s.byEmail[u.Email] = u.ID
	if u.MobileNumber != "" {
		s.byPhone[u.MobileNumber] = u.ID
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *bankAuth.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return bankAuth.ErrRecordNotFound
	}
	if current.Version != u.Version {
		return bankAuth.ErrVersionConflict
	}
	if current.Email != u.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return bankAuth.ErrDuplicate
		}
		delete(s.byEmail, current.Email)
		s.byEmail[u.Email] = u.ID
	}
	if current.MobileNumber != u.MobileNumber {
		if _, taken := s.byPhone[u.MobileNumber]; taken && u.MobileNumber != "" {
			return bankAuth.ErrDuplicate
		}
		delete(s.byPhone, current.MobileNumber)
		if u.MobileNumber != "" {
			s.byPhone[u.MobileNumber] = u.ID
		}
	}

	u.Version++
	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *Store) FindOTP(ctx context.Context, purpose bankAuth.Purpose, identity string) (*bankAuth.OTPRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.otps[otpKey{purpose, identity}]
	if !ok {
		return nil, bankAuth.ErrRecordNotFound
	}
	return copyOTP(rec), nil
}

func (s *Store) SaveOTP(ctx context.Context, rec *bankAuth.OTPRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := otpKey{rec.Purpose, rec.Identity}
	current, exists := s.otps[key]

	if rec.ID == 0 {
		if exists {
			return bankAuth.ErrDuplicate
		}
		s.nextID++
		rec.ID = s.nextID
		rec.Version = 1
		s.otps[key] = copyOTP(rec)
		return nil
	}

	if !exists || current.ID != rec.ID {
		return bankAuth.ErrRecordNotFound
	}
	if current.Version != rec.Version {
		return bankAuth.ErrVersionConflict
	}
	rec.Version++
	s.otps[key] = copyOTP(rec)
	return nil
}

func copyUser(u *bankAuth.User) *bankAuth.User {
	out := *u
	out.Roles = append([]bankAuth.Role(nil), u.Roles...)
	out.LockedAt = copyTime(u.LockedAt)
	out.EligibleAt = copyTime(u.EligibleAt)
	return &out
}

func copyOTP(r *bankAuth.OTPRecord) *bankAuth.OTPRecord {
	out := *r
	out.LockedAt = copyTime(r.LockedAt)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
