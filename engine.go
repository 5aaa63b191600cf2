package bankAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/bankAuth/internal/limiters"
	"github.com/MrEthical07/bankAuth/internal/stores"
	"github.com/MrEthical07/bankAuth/jwt"
	"github.com/MrEthical07/bankAuth/notify"
	"github.com/MrEthical07/bankAuth/revocation"
	"go.uber.org/zap"
)

const (
	msgStoreUnavailable = "Service temporarily unavailable. Please try again later."
	msgConflict         = "This record was updated by another request. Please refresh and try again."
)

// Engine defines a public type used by bankAuth APIs.
//
// Engine is built once by a Builder and is safe for concurrent use. It holds
// no per-identity state in process: every check re-reads the ephemeral or
// durable store.
type Engine struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	users       UserRepository
	otps        OTPRepository
	credentials CredentialVerifier
	notifier    Notifier
	dispatcher  *notify.Dispatcher

	requests  *limiters.RequestLimiter
	cooldowns *limiters.CooldownMarker
	secrets   *stores.OTPSecretStore
	verified  *stores.VerifiedMarker
	existence *stores.ExistenceCache

	tokens      *jwt.Manager
	revocations *revocation.Registry
	metrics     *Metrics
}

// Close drains the notification dispatcher if the engine owns one.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// NotificationsDropped returns how many notifications were dropped because
// the dispatcher buffer was full.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil || e.dispatcher == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			ByPurpose:  map[Purpose]map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Tokens exposes the token provider, e.g. for issuing tokens to service accounts.
func (e *Engine) Tokens() *jwt.Manager {
	if e == nil {
		return nil
	}
	return e.tokens
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) otpMetricInc(id MetricID, purpose Purpose) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.IncFor(id, purpose)
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.otps == nil || e.tokens == nil || e.revocations == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) ephemeralCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Stores.EphemeralTimeout)
}

func (e *Engine) durableCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Stores.DurableTimeout)
}

// durableError maps a repository error to the engine taxonomy. Absent rows
// are handled by callers before this is reached.
func (e *Engine) durableError(op string, err error) error {
	switch {
	case errors.Is(err, ErrVersionConflict):
		e.metricInc(MetricStoreConflict)
		e.logger.Info("optimistic update lost", zap.String("op", op))
		return wrapError(KindConflict, msgConflict, err)
	case errors.Is(err, ErrDuplicate):
		return wrapError(KindAlreadyExists, "User Already Exists", err)
	default:
		e.logger.Warn("durable store failure", zap.String("op", op), zap.Error(err))
		return wrapError(KindStoreUnavailable, msgStoreUnavailable, err)
	}
}

func (e *Engine) ephemeralError(op string, err error) error {
	e.logger.Warn("ephemeral store failure", zap.String("op", op), zap.Error(err))
	return wrapError(KindStoreUnavailable, msgStoreUnavailable, err)
}

// failClosed turns an ephemeral failure during a rate check into a rate
// limit so an unreachable store never disables throttling.
func (e *Engine) failClosed(op string, err error) error {
	e.metricInc(MetricRateLimitFailClosed)
	e.logger.Warn("rate check failed closed", zap.String("op", op), zap.Error(err))
	return wrapError(KindRateLimited, msgRequestLimit, err)
}

func (e *Engine) saveUser(ctx context.Context, op string, u *User) error {
	u.UpdatedAt = e.now()
	dctx, cancel := e.durableCtx(ctx)
	defer cancel()
	if err := e.users.UpdateUser(dctx, u); err != nil {
		return e.durableError(op, err)
	}
	return nil
}

func (e *Engine) saveOTP(ctx context.Context, op string, rec *OTPRecord) error {
	dctx, cancel := e.durableCtx(ctx)
	defer cancel()
	if err := e.otps.SaveOTP(dctx, rec); err != nil {
		// A duplicate OTP row means a concurrent first issuance won the
		// insert; the identity still has no account.
		if errors.Is(err, ErrDuplicate) {
			e.metricInc(MetricStoreConflict)
			e.logger.Info("otp insert lost", zap.String("op", op))
			return wrapError(KindConflict, msgConflict, err)
		}
		return e.durableError(op, err)
	}
	return nil
}

// findOTP returns (nil, nil) when no record exists.
func (e *Engine) findOTP(ctx context.Context, purpose Purpose, identity string) (*OTPRecord, error) {
	dctx, cancel := e.durableCtx(ctx)
	defer cancel()
	rec, err := e.otps.FindOTP(dctx, purpose, identity)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, e.durableError("find_otp", err)
	}
	return rec, nil
}

// findUser returns (nil, nil) when no account exists.
func (e *Engine) findUser(ctx context.Context, email string) (*User, error) {
	dctx, cancel := e.durableCtx(ctx)
	defer cancel()
	u, err := e.users.FindByEmail(dctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, e.durableError("find_user", err)
	}
	return u, nil
}
