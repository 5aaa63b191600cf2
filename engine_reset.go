package bankAuth

import (
	"context"
	"fmt"
	"time"
)

const (
	resetSubject = "OTP for Forgot Password Request"

	msgUserMissing     = "User doesn't exists"
	msgOTPVerified     = "OTP verified!!!"
	msgResetNotAllowed = "Please generate OTP and verify it first"
	msgPasswordReset   = "Password reset successfully!!!"
)

func resetBody(u *User, code string) string {
	return fmt.Sprintf("Dear %s %s,\n\n\t Your OTP for forgot password request is: %s.\n\n Thanks & Regards,\n Axis Bank", u.FirstName, u.LastName, code)
}

// RequestResetOTP issues a password reset code to an existing account.
func (e *Engine) RequestResetOTP(ctx context.Context, identity string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return nil, newError(KindValidation, msgIdentityNeeded)
	}

	u, err := e.findUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, newError(KindNotFound, msgUserMissing)
	}

	now := e.now()
	rec, err := e.findOTP(ctx, PurposeReset, identity)
	if err != nil {
		return nil, err
	}
	if err := e.resetLockGate(ctx, u, rec, now); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &OTPRecord{Purpose: PurposeReset, Identity: identity, UserID: u.ID}
	}

	code, err := e.issueOTP(ctx, rec, now)
	if err != nil {
		return nil, err
	}
	e.notify(u.Email, resetBody(u, code), resetSubject)

	return &MessageResponse{Message: msgOTPSent}, nil
}

// VerifyResetOTP checks code and opens the reset eligibility window.
func (e *Engine) VerifyResetOTP(ctx context.Context, identity, code string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identity = NormalizeIdentity(identity)

	u, err := e.findUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, newError(KindNotFound, msgUserMissing)
	}
	rec, err := e.findOTP(ctx, PurposeReset, identity)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(KindNotFound, msgResetNotAllowed)
	}

	now := e.now()
	if err := e.resetLockGate(ctx, u, rec, now); err != nil {
		return nil, err
	}

	matched, err := e.matchOTP(ctx, rec, code, now)
	if err != nil {
		e.otpMetricInc(MetricOTPVerifyFailure, PurposeReset)
		return nil, err
	}

	if !matched {
		if e.attemptsExceeded(rec) {
			rec.AttemptCount = 0
			if err := e.saveOTP(ctx, "reset_lock", rec); err != nil {
				return nil, err
			}
			e.lockUser(u, LockReasonOTP, now)
			if err := e.saveUser(ctx, "reset_lock", u); err != nil {
				return nil, err
			}
			return nil, newError(KindLocked, e.otpLockedMessage())
		}
		if err := e.saveOTP(ctx, "reset_attempt", rec); err != nil {
			return nil, err
		}
		return nil, newError(KindInvalidOTP, msgInvalidOTP)
	}

	// The account row is written first. If it loses a race the code stays
	// unused and the caller can retry with it.
	at := now
	u.EligibleForPasswordReset = true
	u.EligibleAt = &at
	if err := e.saveUser(ctx, "reset_verify", u); err != nil {
		return nil, err
	}
	rec.Used = true
	if err := e.saveOTP(ctx, "reset_verify", rec); err != nil {
		return nil, err
	}

	e.otpMetricInc(MetricOTPVerifySuccess, PurposeReset)
	return &MessageResponse{Message: msgOTPVerified}, nil
}

// ResetPassword replaces the password of an account inside its eligibility
// window and clears any lock on it.
func (e *Engine) ResetPassword(ctx context.Context, identity, newPassword string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identity = NormalizeIdentity(identity)
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return nil, err
	}

	u, err := e.findUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, newError(KindNotFound, msgUserMissing)
	}

	now := e.now()
	if !u.EligibleForPasswordReset || u.EligibleAt == nil || now.After(u.EligibleAt.Add(e.config.Lockout.ResetEligibilityWindow)) {
		if u.EligibleForPasswordReset || u.EligibleAt != nil {
			u.EligibleForPasswordReset = false
			u.EligibleAt = nil
			if err := e.saveUser(ctx, "reset_expire", u); err != nil {
				return nil, err
			}
		}
		return nil, newError(KindNotVerified, msgResetNotAllowed)
	}

	digest, err := e.credentials.Hash(newPassword)
	if err != nil {
		return nil, wrapError(KindValidation, PasswordPolicyMessage, err)
	}

	clearUserLock(u)
	u.EligibleForPasswordReset = false
	u.EligibleAt = nil
	u.PasswordHash = digest
	if err := e.saveUser(ctx, "reset_password", u); err != nil {
		return nil, err
	}

	e.metricInc(MetricPasswordReset)
	return &MessageResponse{Message: msgPasswordReset}, nil
}

// resetLockGate runs the shared lock check for the reset flow and persists a
// lazy unlock, clearing the OTP attempt count with it.
func (e *Engine) resetLockGate(ctx context.Context, u *User, rec *OTPRecord, now time.Time) error {
	unlocked, err := e.checkUserLock(u, now)
	if err != nil {
		return err
	}
	if !unlocked {
		return nil
	}
	if err := e.saveUser(ctx, "reset_unlock", u); err != nil {
		return err
	}
	if rec != nil && rec.AttemptCount != 0 {
		rec.AttemptCount = 0
		if err := e.saveOTP(ctx, "reset_unlock", rec); err != nil {
			return err
		}
	}
	return nil
}
