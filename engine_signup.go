package bankAuth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	signupSubject = "OTP for Signup User Request"

	msgSignupExists   = "User Already Exists!!!"
	msgPendingMissing = "User does not exists"
	msgUserVerified   = "User verified successfully!!!!"
	msgVerifyFirst    = "Please verify user first!!!"
	msgAccountExists  = "User Already Exists"
	msgUserAdded      = "User Added Successfully!!"
)

func signupBody(code string) string {
	return fmt.Sprintf("Dear User,\n\n\t Your OTP to register in Axis Bank application is: %s.\n\n Thanks & Regards,\n Axis Bank", code)
}

// RequestSignupOTP issues a signup code to an identity that has no account yet.
func (e *Engine) RequestSignupOTP(ctx context.Context, identity string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return nil, newError(KindValidation, msgIdentityNeeded)
	}

	exists, err := e.accountExists(ctx, identity)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(KindAlreadyExists, msgSignupExists)
	}

	now := e.now()
	rec, err := e.findOTP(ctx, PurposeSignup, identity)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &OTPRecord{Purpose: PurposeSignup, Identity: identity}
	} else {
		unlocked, err := e.checkPendingLock(rec, now)
		if err != nil {
			return nil, err
		}
		if unlocked {
			if err := e.saveOTP(ctx, "signup_unlock", rec); err != nil {
				return nil, err
			}
		}
	}

	code, err := e.issueOTP(ctx, rec, now)
	if err != nil {
		return nil, err
	}
	e.notify(identity, signupBody(code), signupSubject)

	return &MessageResponse{Message: msgOTPSent}, nil
}

// VerifySignupOTP checks code against the pending signup for identity and,
// on success, leaves a verified marker that CompleteSignup consumes.
func (e *Engine) VerifySignupOTP(ctx context.Context, identity, code string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identity = NormalizeIdentity(identity)

	rec, err := e.findOTP(ctx, PurposeSignup, identity)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(KindNotFound, msgPendingMissing)
	}

	now := e.now()
	unlocked, err := e.checkPendingLock(rec, now)
	if err != nil {
		return nil, err
	}
	if unlocked {
		if err := e.saveOTP(ctx, "signup_unlock", rec); err != nil {
			return nil, err
		}
	}

	matched, err := e.matchOTP(ctx, rec, code, now)
	if err != nil {
		e.otpMetricInc(MetricOTPVerifyFailure, PurposeSignup)
		return nil, err
	}

	if !matched {
		if e.attemptsExceeded(rec) {
			e.lockPending(rec, now)
			if err := e.saveOTP(ctx, "signup_lock", rec); err != nil {
				return nil, err
			}
			return nil, newError(KindLocked, e.otpLockedMessage())
		}
		if err := e.saveOTP(ctx, "signup_attempt", rec); err != nil {
			return nil, err
		}
		return nil, newError(KindInvalidOTP, msgInvalidOTP)
	}

	rec.Used = true
	if err := e.saveOTP(ctx, "signup_verify", rec); err != nil {
		return nil, err
	}

	ectx, cancel := e.ephemeralCtx(ctx)
	err = e.verified.Mark(ectx, string(PurposeSignup), identity)
	cancel()
	if err != nil {
		return nil, e.ephemeralError("signup_verified_marker", err)
	}

	e.otpMetricInc(MetricOTPVerifySuccess, PurposeSignup)
	return &MessageResponse{Message: msgUserVerified}, nil
}

// CompleteSignup creates the account for an identity holding a live verified
// marker. The marker is consumed on success.
func (e *Engine) CompleteSignup(ctx context.Context, req SignupRequest) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email := NormalizeIdentity(req.Email)
	if email == "" {
		return nil, newError(KindValidation, msgIdentityNeeded)
	}
	if err := CheckPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	ectx, cancel := e.ephemeralCtx(ctx)
	verified, err := e.verified.IsVerified(ectx, string(PurposeSignup), email)
	cancel()
	if err != nil {
		return nil, e.ephemeralError("signup_verified_marker", err)
	}
	if !verified {
		return nil, newError(KindNotVerified, msgVerifyFirst)
	}

	dctx, dcancel := e.durableCtx(ctx)
	exists, err := e.users.ExistsByEmailOrMobile(dctx, email, req.MobileNumber)
	dcancel()
	if err != nil {
		return nil, e.durableError("signup_exists", err)
	}
	if exists {
		return nil, newError(KindAlreadyExists, msgAccountExists)
	}

	digest, err := e.credentials.Hash(req.Password)
	if err != nil {
		return nil, wrapError(KindValidation, PasswordPolicyMessage, err)
	}

	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	now := e.now()
	u := &User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		MobileNumber: req.MobileNumber,
		PasswordHash: digest,
		BirthDate:    req.BirthDate,
		Roles:        []Role{role},
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dctx, dcancel = e.durableCtx(ctx)
	err = e.users.CreateUser(dctx, u)
	dcancel()
	if err != nil {
		return nil, e.durableError("signup_create", err)
	}

	ectx, cancel = e.ephemeralCtx(ctx)
	if _, err := e.verified.Consume(ectx, string(PurposeSignup), email); err != nil {
		e.logger.Warn("verified marker not consumed", zap.String("identity", email), zap.Error(err))
	}
	if err := e.existence.Evict(ectx, email); err != nil {
		e.logger.Warn("existence cache not evicted", zap.String("identity", email), zap.Error(err))
	}
	cancel()

	e.metricInc(MetricSignupComplete)
	return &MessageResponse{Message: msgUserAdded}, nil
}

// accountExists answers from the existence cache when it can and falls back
// to the durable store. Cache failures are logged and bypassed.
func (e *Engine) accountExists(ctx context.Context, identity string) (bool, error) {
	ectx, cancel := e.ephemeralCtx(ctx)
	exists, hit, err := e.existence.Lookup(ectx, identity)
	cancel()
	if err != nil {
		e.logger.Warn("existence cache lookup failed", zap.Error(err))
	} else if hit {
		return exists, nil
	}

	u, err := e.findUser(ctx, identity)
	if err != nil {
		return false, err
	}
	exists = u != nil

	ectx, cancel = e.ephemeralCtx(ctx)
	if err := e.existence.Store(ectx, identity, exists); err != nil {
		e.logger.Warn("existence cache store failed", zap.Error(err))
	}
	cancel()
	return exists, nil
}
