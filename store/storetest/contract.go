// Package storetest holds the repository contract shared by every durable
// store adapter's tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
)

// Repository is what an adapter must provide to run the contract.
type Repository interface {
	bankAuth.UserRepository
	bankAuth.OTPRepository
}

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) Repository

// Run exercises the adapter returned by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndFindUser", func(t *testing.T) { testCreateAndFindUser(t, newRepo(t)) })
	t.Run("DuplicateUser", func(t *testing.T) { testDuplicateUser(t, newRepo(t)) })
	t.Run("UserVersionConflict", func(t *testing.T) { testUserVersionConflict(t, newRepo(t)) })
	t.Run("OTPInsertAndUpdate", func(t *testing.T) { testOTPInsertAndUpdate(t, newRepo(t)) })
	t.Run("OTPVersionConflict", func(t *testing.T) { testOTPVersionConflict(t, newRepo(t)) })
	t.Run("OTPPurposeIsolation", func(t *testing.T) { testOTPPurposeIsolation(t, newRepo(t)) })
}

func sampleUser(email, mobile string) *bankAuth.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &bankAuth.User{
		FirstName:    "Asha",
		LastName:     "Rao",
		Email:        email,
		MobileNumber: mobile,
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuv",
		BirthDate:    time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Roles:        []bankAuth.Role{bankAuth.RoleCustomer},
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testCreateAndFindUser(t *testing.T, repo Repository) {
	ctx := context.Background()
	u := sampleUser("asha@gmail.com", "9876543210")
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 || u.Version != 1 {
		t.Fatalf("expected assigned id and version 1, got id=%d version=%d", u.ID, u.Version)
	}

	byEmail, err := repo.FindByEmail(ctx, "asha@gmail.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if byEmail.ID != u.ID || byEmail.FirstName != "Asha" || len(byEmail.Roles) != 1 || byEmail.Roles[0] != bankAuth.RoleCustomer {
		t.Fatalf("unexpected user: %+v", byEmail)
	}
	if !byEmail.BirthDate.Equal(u.BirthDate) {
		t.Fatalf("birth date mismatch: %v vs %v", byEmail.BirthDate, u.BirthDate)
	}

	byPhone, err := repo.FindByEmailOrMobile(ctx, "9876543210")
	if err != nil || byPhone.ID != u.ID {
		t.Fatalf("FindByEmailOrMobile(mobile): %+v err=%v", byPhone, err)
	}
	viaEmail, err := repo.FindByEmailOrMobile(ctx, "asha@gmail.com")
	if err != nil || viaEmail.ID != u.ID {
		t.Fatalf("FindByEmailOrMobile(email): %+v err=%v", viaEmail, err)
	}

	if _, err := repo.FindByEmail(ctx, "missing@gmail.com"); !errors.Is(err, bankAuth.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	exists, err := repo.ExistsByEmailOrMobile(ctx, "other@gmail.com", "9876543210")
	if err != nil || !exists {
		t.Fatalf("expected mobile match, exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByEmailOrMobile(ctx, "other@gmail.com", "1111111111")
	if err != nil || exists {
		t.Fatalf("expected no match, exists=%v err=%v", exists, err)
	}
}

func testDuplicateUser(t *testing.T, repo Repository) {
	ctx := context.Background()
	if err := repo.CreateUser(ctx, sampleUser("dup@gmail.com", "9000000001")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.CreateUser(ctx, sampleUser("dup@gmail.com", "9000000002")); !errors.Is(err, bankAuth.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for email, got %v", err)
	}
	if err := repo.CreateUser(ctx, sampleUser("other@gmail.com", "9000000001")); !errors.Is(err, bankAuth.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for mobile, got %v", err)
	}
}

func testUserVersionConflict(t *testing.T, repo Repository) {
	ctx := context.Background()
	u := sampleUser("race@gmail.com", "9000000003")
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	first, _ := repo.FindByEmail(ctx, u.Email)
	second, _ := repo.FindByEmail(ctx, u.Email)

	lockedAt := time.Now().UTC().Truncate(time.Millisecond)
	first.Locked = true
	first.LockedAt = &lockedAt
	first.LockReason = bankAuth.LockReasonPassword
	first.InvalidPasswordCounter = 4
	if err := repo.UpdateUser(ctx, first); err != nil {
		t.Fatalf("first UpdateUser: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version 2, got %d", first.Version)
	}

	second.InvalidPasswordCounter = 1
	if err := repo.UpdateUser(ctx, second); !errors.Is(err, bankAuth.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := repo.FindByEmail(ctx, u.Email)
	if !got.Locked || got.LockedAt == nil || !got.LockedAt.Equal(lockedAt) || got.LockReason != bankAuth.LockReasonPassword || got.InvalidPasswordCounter != 4 {
		t.Fatalf("winning update not persisted: %+v", got)
	}
}

func testOTPInsertAndUpdate(t *testing.T, repo Repository) {
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond)
	rec := &bankAuth.OTPRecord{
		Purpose:   bankAuth.PurposeSignup,
		Identity:  "otp@gmail.com",
		OTPHash:   "digest-1",
		CreatedAt: created,
	}
	if err := repo.SaveOTP(ctx, rec); err != nil {
		t.Fatalf("SaveOTP insert: %v", err)
	}
	if rec.ID == 0 || rec.Version != 1 {
		t.Fatalf("expected id and version 1, got %+v", rec)
	}

	got, err := repo.FindOTP(ctx, bankAuth.PurposeSignup, "otp@gmail.com")
	if err != nil {
		t.Fatalf("FindOTP: %v", err)
	}
	if got.OTPHash != "digest-1" || !got.CreatedAt.Equal(created) || got.Used || got.AttemptCount != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Used = true
	got.AttemptCount = 2
	if err := repo.SaveOTP(ctx, got); err != nil {
		t.Fatalf("SaveOTP update: %v", err)
	}
	again, _ := repo.FindOTP(ctx, bankAuth.PurposeSignup, "otp@gmail.com")
	if !again.Used || again.AttemptCount != 2 || again.Version != 2 {
		t.Fatalf("update not persisted: %+v", again)
	}

	if _, err := repo.FindOTP(ctx, bankAuth.PurposeSignup, "none@gmail.com"); !errors.Is(err, bankAuth.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func testOTPVersionConflict(t *testing.T, repo Repository) {
	ctx := context.Background()
	rec := &bankAuth.OTPRecord{
		Purpose:   bankAuth.PurposeSignup,
		Identity:  "otp-race@gmail.com",
		OTPHash:   "digest",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := repo.SaveOTP(ctx, rec); err != nil {
		t.Fatalf("SaveOTP: %v", err)
	}

	a, _ := repo.FindOTP(ctx, rec.Purpose, rec.Identity)
	b, _ := repo.FindOTP(ctx, rec.Purpose, rec.Identity)
	a.Used = true
	if err := repo.SaveOTP(ctx, a); err != nil {
		t.Fatalf("first SaveOTP: %v", err)
	}
	b.Used = true
	if err := repo.SaveOTP(ctx, b); !errors.Is(err, bankAuth.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func testOTPPurposeIsolation(t *testing.T, repo Repository) {
	ctx := context.Background()
	u := sampleUser("both@gmail.com", "9000000004")
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	signup := &bankAuth.OTPRecord{Purpose: bankAuth.PurposeSignup, Identity: u.Email, OTPHash: "s", CreatedAt: now}
	reset := &bankAuth.OTPRecord{Purpose: bankAuth.PurposeReset, Identity: u.Email, UserID: u.ID, OTPHash: "r", CreatedAt: now}
	if err := repo.SaveOTP(ctx, signup); err != nil {
		t.Fatalf("SaveOTP signup: %v", err)
	}
	if err := repo.SaveOTP(ctx, reset); err != nil {
		t.Fatalf("SaveOTP reset: %v", err)
	}

	gotSignup, _ := repo.FindOTP(ctx, bankAuth.PurposeSignup, u.Email)
	gotReset, _ := repo.FindOTP(ctx, bankAuth.PurposeReset, u.Email)
	if gotSignup.OTPHash != "s" || gotReset.OTPHash != "r" || gotReset.UserID != u.ID {
		t.Fatalf("purposes not isolated: signup=%+v reset=%+v", gotSignup, gotReset)
	}
}
