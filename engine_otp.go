package bankAuth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/bankAuth/internal"
	"github.com/MrEthical07/bankAuth/internal/limiters"
	"go.uber.org/zap"
)

const (
	msgOTPSent        = "OTP sent successfully!!!"
	msgRequestLimit   = "Maximum OTP Requests reached. Try after sometime"
	msgOTPExpired     = "OTP expired!!!"
	msgOTPUsed        = "OTP already used please generate new OTP."
	msgInvalidOTP     = "Invalid OTP"
	msgIdentityNeeded = "Email id is required"
)

// issueOTP runs the request window, the cooldown, and issuance for rec. The
// caller has already run the existence and lock checks. rec is persisted
// with the new digest before Redis is touched, so a lost durable write
// leaves the previously delivered code valid. The plaintext code is
// returned for delivery only.
func (e *Engine) issueOTP(ctx context.Context, rec *OTPRecord, now time.Time) (string, error) {
	purpose := string(rec.Purpose)
	identity := rec.Identity

	ectx, cancel := e.ephemeralCtx(ctx)
	_, err := e.requests.Hit(ectx, purpose, identity)
	cancel()
	if err != nil {
		if errors.Is(err, limiters.ErrRequestLimited) {
			e.otpMetricInc(MetricOTPRequestRateLimited, rec.Purpose)
			return "", newError(KindRateLimited, msgRequestLimit)
		}
		return "", e.failClosed("otp_request_window", err)
	}

	ectx, cancel = e.ephemeralCtx(ctx)
	last, ok, err := e.cooldowns.LastIssued(ectx, purpose, identity)
	cancel()
	if err != nil {
		return "", e.failClosed("otp_cooldown", err)
	}
	if !ok && rec.ID != 0 && !rec.CreatedAt.IsZero() {
		last, ok = rec.CreatedAt, true
	}
	if ok {
		if wait := limiters.Remaining(e.config.OTP.Cooldown, last, now); wait > 0 {
			e.otpMetricInc(MetricOTPRequestCooldown, rec.Purpose)
			return "", newError(KindCooldownActive, fmt.Sprintf("Resend OTP after %ds", int64(wait/time.Second)))
		}
	}

	code, err := internal.NewOTPCode()
	if err != nil {
		e.logger.Error("otp generation failed", zap.Error(err))
		return "", wrapError(KindStoreUnavailable, msgStoreUnavailable, err)
	}
	digest := internal.HashOTP(e.config.OTP.HMACSecret, identity, code)

	rec.OTPHash = digest
	rec.CreatedAt = now
	rec.Used = false
	rec.AttemptCount = 0
	if err := e.saveOTP(ctx, "otp_issue", rec); err != nil {
		return "", err
	}

	// The durable record is committed; from here the ephemeral copies are
	// best effort. A missing digest falls back to rec.OTPHash and a missing
	// cooldown marker falls back to rec.CreatedAt.
	ectx, cancel = e.ephemeralCtx(ctx)
	if err := e.secrets.Put(ectx, purpose, identity, digest, e.config.OTP.TTL); err != nil {
		e.logger.Warn("otp digest not cached", zap.String("purpose", purpose), zap.Error(err))
		if derr := e.secrets.Delete(ectx, purpose, identity); derr != nil {
			e.logger.Warn("stale otp digest not removed", zap.String("purpose", purpose), zap.Error(derr))
		}
	}
	if err := e.cooldowns.Mark(ectx, purpose, identity, now); err != nil {
		e.logger.Warn("otp cooldown not marked", zap.String("purpose", purpose), zap.Error(err))
	}
	cancel()

	e.otpMetricInc(MetricOTPRequest, rec.Purpose)
	return code, nil
}

// matchOTP runs the expiry and reuse checks and compares code against the
// issued digest. A false result with a nil error is a plain mismatch.
func (e *Engine) matchOTP(ctx context.Context, rec *OTPRecord, code string, now time.Time) (bool, error) {
	if now.Sub(rec.CreatedAt) > e.config.OTP.TTL {
		return false, newError(KindExpired, msgOTPExpired)
	}
	if rec.Used {
		return false, newError(KindAlreadyUsed, msgOTPUsed)
	}

	stored := rec.OTPHash
	ectx, cancel := e.ephemeralCtx(ctx)
	digest, ok, err := e.secrets.Get(ectx, string(rec.Purpose), rec.Identity)
	cancel()
	switch {
	case err != nil:
		e.logger.Warn("otp digest read failed, using durable copy", zap.String("purpose", string(rec.Purpose)), zap.Error(err))
	case ok:
		stored = digest
	}

	candidate := internal.HashOTP(e.config.OTP.HMACSecret, rec.Identity, code)
	return internal.EqualDigest(candidate, stored), nil
}

// attemptsExceeded records a failed verification on rec and reports whether
// the lock threshold was crossed.
func (e *Engine) attemptsExceeded(rec *OTPRecord) bool {
	rec.AttemptCount++
	e.otpMetricInc(MetricOTPVerifyFailure, rec.Purpose)
	return rec.AttemptCount > e.config.OTP.MaxVerifyAttempts
}

func (e *Engine) otpLockedMessage() string {
	return fmt.Sprintf("You have reached maximum limit, user is locked for %d minutes", int64(e.config.Lockout.OTPLockDuration/time.Minute))
}

func (e *Engine) notify(recipient, body, subject string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Send(recipient, body, subject)
}
