package bankAuth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/bankAuth/revocation"
	"go.uber.org/zap"
)

const (
	msgLoginIdentifier  = "Please enter mobileNumber or emailId"
	msgLoginPassword    = "Please enter password"
	msgLoginUnknown     = "User does not exists"
	msgAccountDisabled  = "User account is disabled"
	msgPasswordLock     = "Reached maximum incorrect password count, Please reset password"
	msgInvalidPassword  = "Invalid Password"
	msgMissingToken     = "Missing token in header"
	msgInvalidToken     = "Invalid Token"
	msgLogoutSuccessful = "Logout successfully!!!"
)

// Login authenticates by email or mobile number and returns a token pair.
//
// Consecutive wrong passwords beyond Lockout.MaxInvalidPasswords lock and
// disable the account for Lockout.LoginLockDuration.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		identifier = NormalizeIdentity(identifier)
	}
	if identifier == "" {
		return nil, newError(KindValidation, msgLoginIdentifier)
	}
	if password == "" {
		return nil, newError(KindValidation, msgLoginPassword)
	}

	dctx, cancel := e.durableCtx(ctx)
	u, err := e.users.FindByEmailOrMobile(dctx, identifier)
	cancel()
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.metricInc(MetricLoginFailure)
			return nil, newError(KindNotFound, msgLoginUnknown)
		}
		return nil, e.durableError("login_find", err)
	}

	now := e.now()
	unlocked, err := e.checkUserLock(u, now)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}
	if unlocked {
		if err := e.saveUser(ctx, "login_unlock", u); err != nil {
			return nil, err
		}
	}
	if !u.Enabled {
		e.metricInc(MetricLoginFailure)
		return nil, newError(KindForbidden, msgAccountDisabled)
	}

	ok, err := e.credentials.Verify(password, u.PasswordHash)
	if err != nil {
		e.logger.Error("stored password digest unreadable", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		u.InvalidPasswordCounter++
		if u.InvalidPasswordCounter > e.config.Lockout.MaxInvalidPasswords {
			e.lockUser(u, LockReasonPassword, now)
			if err := e.saveUser(ctx, "login_lock", u); err != nil {
				return nil, err
			}
			return nil, newError(KindLocked, msgPasswordLock)
		}
		if err := e.saveUser(ctx, "login_attempt", u); err != nil {
			return nil, err
		}
		return nil, newError(KindInvalidCredentials, msgInvalidPassword)
	}

	if u.InvalidPasswordCounter != 0 {
		u.InvalidPasswordCounter = 0
		if err := e.saveUser(ctx, "login_reset_counter", u); err != nil {
			return nil, err
		}
	}

	principal := NewPrincipal(u)
	access, expiresAt, err := e.tokens.CreateAccess(principal.Username(), principal.Authorities())
	if err != nil {
		e.logger.Error("access token signing failed", zap.Error(err))
		return nil, wrapError(KindStoreUnavailable, msgStoreUnavailable, err)
	}
	refresh, _, err := e.tokens.CreateRefresh(principal.Username(), principal.Authorities())
	if err != nil {
		e.logger.Error("refresh token signing failed", zap.Error(err))
		return nil, wrapError(KindStoreUnavailable, msgStoreUnavailable, err)
	}

	e.metricInc(MetricLoginSuccess)
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresAt.Unix(),
	}, nil
}

// Logout revokes token until its natural expiry.
func (e *Engine) Logout(ctx context.Context, token string) (*MessageResponse, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(KindUnauthorized, msgMissingToken)
	}

	ectx, cancel := e.ephemeralCtx(ctx)
	_, err := e.revocations.Revoke(ectx, token)
	cancel()
	if err != nil {
		if errors.Is(err, revocation.ErrUnauthorized) {
			return nil, wrapError(KindUnauthorized, msgInvalidToken, err)
		}
		return nil, e.ephemeralError("logout_revoke", err)
	}

	e.metricInc(MetricLogout)
	return &MessageResponse{Message: msgLogoutSuccessful}, nil
}

// Authenticate validates an access token and rejects revoked ones. A
// revocation store failure rejects the token.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, newError(KindUnauthorized, msgMissingToken)
	}

	start := time.Now()
	claims, err := e.tokens.ParseAccess(token)
	if e.metrics != nil {
		e.metrics.Observe(MetricTokenValidateLatency, time.Since(start))
	}
	if err != nil {
		return nil, wrapError(KindUnauthorized, msgInvalidToken, err)
	}

	ectx, cancel := e.ephemeralCtx(ctx)
	revoked, err := e.revocations.IsRevoked(ectx, token)
	cancel()
	if err != nil {
		e.logger.Warn("revocation check failed, rejecting token", zap.Error(err))
		return nil, wrapError(KindUnauthorized, msgInvalidToken, err)
	}
	if revoked {
		return nil, newError(KindUnauthorized, msgInvalidToken)
	}

	return &AuthResult{
		Subject:   claims.Subject,
		Roles:     append([]string(nil), claims.Roles...),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
