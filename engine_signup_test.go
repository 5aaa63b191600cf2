package bankAuth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
)

func TestSignupFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.engine.RequestSignupOTP(ctx, "  Asha.Rao@Gmail.com ")
	if err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	if resp.Message != "OTP sent successfully!!!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if got := h.mail.lastSubject("asha.rao@gmail.com"); got != "OTP for Signup User Request" {
		t.Fatalf("unexpected subject %q", got)
	}

	code := h.mail.code(t, "asha.rao@gmail.com")
	resp, err = h.engine.VerifySignupOTP(ctx, "asha.rao@gmail.com", code)
	if err != nil {
		t.Fatalf("VerifySignupOTP: %v", err)
	}
	if resp.Message != "User verified successfully!!!!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	resp, err = h.engine.CompleteSignup(ctx, signupRequest("asha.rao@gmail.com", "9876543210"))
	if err != nil {
		t.Fatalf("CompleteSignup: %v", err)
	}
	if resp.Message != "User Added Successfully!!" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	u, err := h.store.FindByEmail(ctx, "asha.rao@gmail.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if !u.Enabled || u.Locked || len(u.Roles) != 1 || u.Roles[0] != bankAuth.RoleCustomer {
		t.Fatalf("unexpected stored user %+v", u)
	}
	if u.PasswordHash == testPassword || u.PasswordHash == "" {
		t.Fatal("password must be stored as a digest")
	}

	_, err = h.engine.RequestSignupOTP(ctx, "asha.rao@gmail.com")
	expectKind(t, err, bankAuth.KindAlreadyExists, "User Already Exists!!!")

	_, err = h.engine.CompleteSignup(ctx, signupRequest("asha.rao@gmail.com", "9876543210"))
	expectKind(t, err, bankAuth.KindNotVerified, "Please verify user first!!!")

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[bankAuth.MetricSignupComplete] != 1 || snap.Counters[bankAuth.MetricOTPVerifySuccess] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestVerifySignupOTPExactlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	code := h.mail.code(t, "a@gmail.com")

	if _, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", code); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	_, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", code)
	expectKind(t, err, bankAuth.KindAlreadyUsed, "OTP already used please generate new OTP.")
	if !errors.Is(err, bankAuth.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed sentinel, got %v", err)
	}
}

func TestVerifySignupOTPUnknownIdentity(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.VerifySignupOTP(context.Background(), "nobody@gmail.com", "123456")
	expectKind(t, err, bankAuth.KindNotFound, "User does not exists")
}

func TestVerifySignupOTPExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	code := h.mail.code(t, "a@gmail.com")

	h.advance(301 * time.Second)
	_, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", code)
	expectKind(t, err, bankAuth.KindExpired, "OTP expired!!!")
}

func TestVerifySignupOTPFallsBackToDurableDigest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	code := h.mail.code(t, "a@gmail.com")

	// The ephemeral digest disappearing early must not strand a live code.
	for _, key := range h.mr.Keys() {
		h.mr.Del(key)
	}
	if _, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", code); err != nil {
		t.Fatalf("VerifySignupOTP: %v", err)
	}
}

func TestSignupOTPCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}

	_, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com")
	expectKind(t, err, bankAuth.KindCooldownActive, "Resend OTP after 60s")

	h.advance(20 * time.Second)
	_, err = h.engine.RequestSignupOTP(ctx, "a@gmail.com")
	expectKind(t, err, bankAuth.KindCooldownActive, "Resend OTP after 40s")

	h.advance(41 * time.Second)
	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	if n := h.mail.count("a@gmail.com"); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
	if v := h.engine.MetricsSnapshot().Counters[bankAuth.MetricOTPRequestCooldown]; v != 2 {
		t.Fatalf("expected 2 cooldown refusals, got %d", v)
	}
}

func TestSignupOTPRequestWindow(t *testing.T) {
	h := newHarness(t, withConfig(func(cfg *bankAuth.Config) {
		cfg.OTP.Cooldown = 0
	}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	_, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com")
	expectKind(t, err, bankAuth.KindRateLimited, "Maximum OTP Requests reached. Try after sometime")

	h.advance(5*time.Minute + time.Second)
	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("request after window: %v", err)
	}
}

func TestSignupOTPLockAndLazyUnlock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	code := h.mail.code(t, "a@gmail.com")
	bad := wrongCode(code)

	for i := 0; i < 3; i++ {
		_, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", bad)
		expectKind(t, err, bankAuth.KindInvalidOTP, "Invalid OTP")
	}
	_, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", bad)
	expectKind(t, err, bankAuth.KindLocked, "You have reached maximum limit, user is locked for 5 minutes")

	_, err = h.engine.VerifySignupOTP(ctx, "a@gmail.com", code)
	expectKind(t, err, bankAuth.KindLocked, "User is Locked please try after 5 minutes and 0 seconds.")

	h.advance(2*time.Minute + 30*time.Second)
	_, err = h.engine.RequestSignupOTP(ctx, "a@gmail.com")
	expectKind(t, err, bankAuth.KindLocked, "User is Locked please try after 2 minutes and 30 seconds.")

	h.advance(2*time.Minute + 30*time.Second)
	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("request after lock expiry: %v", err)
	}
	rec, err := h.store.FindOTP(ctx, bankAuth.PurposeSignup, "a@gmail.com")
	if err != nil {
		t.Fatalf("FindOTP: %v", err)
	}
	if rec.Locked || rec.LockedAt != nil || rec.AttemptCount != 0 {
		t.Fatalf("expected cleared lock, got %+v", rec)
	}
	if _, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", h.mail.code(t, "a@gmail.com")); err != nil {
		t.Fatalf("verify after unlock: %v", err)
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[bankAuth.MetricLockoutOTP] != 1 || snap.Counters[bankAuth.MetricLazyUnlock] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestCompleteSignupMarkerExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, "a@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	if _, err := h.engine.VerifySignupOTP(ctx, "a@gmail.com", h.mail.code(t, "a@gmail.com")); err != nil {
		t.Fatalf("VerifySignupOTP: %v", err)
	}

	h.advance(15*time.Minute + time.Second)
	_, err := h.engine.CompleteSignup(ctx, signupRequest("a@gmail.com", "9876543210"))
	expectKind(t, err, bankAuth.KindNotVerified, "Please verify user first!!!")
}

func TestCompleteSignupRejectsWeakPassword(t *testing.T) {
	h := newHarness(t)
	req := signupRequest("a@gmail.com", "9876543210")
	req.Password = "secret123"

	_, err := h.engine.CompleteSignup(context.Background(), req)
	expectKind(t, err, bankAuth.KindValidation, "")
}

func TestCompleteSignupDuplicateMobile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signupUser(t, "a@gmail.com", "9876543210")

	if _, err := h.engine.RequestSignupOTP(ctx, "b@gmail.com"); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	if _, err := h.engine.VerifySignupOTP(ctx, "b@gmail.com", h.mail.code(t, "b@gmail.com")); err != nil {
		t.Fatalf("VerifySignupOTP: %v", err)
	}
	_, err := h.engine.CompleteSignup(ctx, signupRequest("b@gmail.com", "9876543210"))
	expectKind(t, err, bankAuth.KindAlreadyExists, "User Already Exists")
}

func TestRequestSignupOTPFailsClosedWithoutRedis(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	_, err := h.engine.RequestSignupOTP(context.Background(), "a@gmail.com")
	expectKind(t, err, bankAuth.KindRateLimited, "")
	if h.mail.count("a@gmail.com") != 0 {
		t.Fatal("no code may be delivered while limits cannot be checked")
	}
	if v := h.engine.MetricsSnapshot().Counters[bankAuth.MetricRateLimitFailClosed]; v != 1 {
		t.Fatalf("expected fail-closed counter 1, got %d", v)
	}
}

func TestRequestSignupOTPRequiresIdentity(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.RequestSignupOTP(context.Background(), "   ")
	expectKind(t, err, bankAuth.KindValidation, "Email id is required")
}
