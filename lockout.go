package bankAuth

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type lockStatus uint8

const (
	lockNone lockStatus = iota
	lockActive
	lockExpired
)

// inspectLock classifies a lock against now. A lock without a timestamp is
// treated as expired so a half-written row cannot lock an identity forever.
func inspectLock(locked bool, lockedAt *time.Time, duration time.Duration, now time.Time) (lockStatus, time.Duration) {
	if !locked {
		return lockNone, 0
	}
	if lockedAt == nil {
		return lockExpired, 0
	}
	until := lockedAt.Add(duration)
	if now.Before(until) {
		return lockActive, until.Sub(now)
	}
	return lockExpired, 0
}

func lockedMessage(remaining time.Duration) string {
	secs := int64(remaining / time.Second)
	return fmt.Sprintf("User is Locked please try after %d minutes and %d seconds.", secs/60, secs%60)
}

// lockDuration returns the duration recorded for the trigger that locked u.
func (e *Engine) lockDuration(reason LockReason) time.Duration {
	if reason == LockReasonPassword {
		return e.config.Lockout.LoginLockDuration
	}
	return e.config.Lockout.OTPLockDuration
}

/*
====================================
PENDING VERIFICATION (signup)
====================================
*/

// checkPendingLock fails with KindLocked while rec is inside its lock and
// reports whether rec was lazily unlocked (and therefore needs persisting).
func (e *Engine) checkPendingLock(rec *OTPRecord, now time.Time) (unlocked bool, err error) {
	if rec == nil {
		return false, nil
	}
	status, remaining := inspectLock(rec.Locked, rec.LockedAt, e.config.Lockout.OTPLockDuration, now)
	switch status {
	case lockActive:
		return false, newError(KindLocked, lockedMessage(remaining))
	case lockExpired:
		rec.Locked = false
		rec.LockedAt = nil
		rec.AttemptCount = 0
		e.metricInc(MetricLazyUnlock)
		return true, nil
	}
	return false, nil
}

func (e *Engine) lockPending(rec *OTPRecord, now time.Time) {
	at := now
	rec.Locked = true
	rec.LockedAt = &at
	rec.AttemptCount = 0
	e.otpMetricInc(MetricLockoutOTP, rec.Purpose)
	e.logger.Info("identity locked",
		zap.String("identity", rec.Identity),
		zap.String("purpose", string(rec.Purpose)),
		zap.String("reason", string(LockReasonOTP)),
	)
}

/*
====================================
ESTABLISHED ACCOUNT
====================================
*/

// checkUserLock is shared by login and the reset flow. On lazy unlock the
// account is re-enabled and its password counter cleared; the caller persists.
func (e *Engine) checkUserLock(u *User, now time.Time) (unlocked bool, err error) {
	status, remaining := inspectLock(u.Locked, u.LockedAt, e.lockDuration(u.LockReason), now)
	switch status {
	case lockActive:
		return false, newError(KindLocked, lockedMessage(remaining))
	case lockExpired:
		clearUserLock(u)
		e.metricInc(MetricLazyUnlock)
		return true, nil
	}
	return false, nil
}

func clearUserLock(u *User) {
	u.Enabled = true
	u.Locked = false
	u.LockedAt = nil
	u.LockReason = LockReasonNone
	u.InvalidPasswordCounter = 0
}

func (e *Engine) lockUser(u *User, reason LockReason, now time.Time) {
	at := now
	u.Enabled = false
	u.Locked = true
	u.LockedAt = &at
	u.LockReason = reason

	// Account-level OTP locks only come from the reset flow.
	if reason == LockReasonPassword {
		e.metricInc(MetricLockoutLogin)
	} else {
		e.otpMetricInc(MetricLockoutOTP, PurposeReset)
	}
	e.logger.Info("account locked",
		zap.Int64("user_id", u.ID),
		zap.String("identity", u.Email),
		zap.String("reason", string(reason)),
	)
}
