package bankAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/bankAuth/internal/limiters"
	"github.com/MrEthical07/bankAuth/internal/stores"
	"github.com/MrEthical07/bankAuth/jwt"
	"github.com/MrEthical07/bankAuth/notify"
	"github.com/MrEthical07/bankAuth/password"
	"github.com/MrEthical07/bankAuth/revocation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder defines a public type used by bankAuth APIs.
//
// Builder instances are intended to be configured during initialization and
// used for exactly one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users       UserRepository
	otps        OTPRepository
	notifier    Notifier
	sender      notify.Sender
	credentials CredentialVerifier
	logger      *zap.Logger
	clock       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the ephemeral store. A cluster or ring client is accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserRepository sets the durable user store.
func (b *Builder) WithUserRepository(repo UserRepository) *Builder {
	b.users = repo
	return b
}

// WithOTPRepository sets the durable OTP audit store.
func (b *Builder) WithOTPRepository(repo OTPRepository) *Builder {
	b.otps = repo
	return b
}

// WithNotifier sets a caller-owned Notifier. It takes precedence over
// WithMailSender and is used as is; it must not block.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithMailSender sets the delivery backend placed behind the engine-owned
// notification dispatcher. Without one, messages are written to the logger.
func (b *Builder) WithMailSender(s notify.Sender) *Builder {
	b.sender = s
	return b
}

// WithCredentialVerifier overrides the verifier derived from Config.Password.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.credentials = v
	return b
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces time.Now for lock, expiry, eligibility and token times.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the token validation histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Build fails when a required dependency is missing, when Config.Validate
// fails, or when the key material cannot be parsed. A Builder can be used
// for a single Build call.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user repository required")
	}
	if b.otps == nil {
		return nil, errors.New("otp repository required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	// -------- CREDENTIALS --------
	credentials := b.credentials
	if credentials == nil {
		v, err := newCredentialVerifier(cfg.Password)
		if err != nil {
			return nil, err
		}
		credentials = v
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		PrivateKey: cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:  cloneBytes(cfg.JWT.PublicKey),
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cfg,
		logger:      logger,
		now:         now,
		users:       b.users,
		otps:        b.otps,
		credentials: credentials,
		tokens:      tokens,
		metrics:     NewMetrics(cfg.Metrics),
	}

	// -------- EPHEMERAL STORES --------
	prefix := cfg.Stores.KeyPrefix
	engine.requests = limiters.NewRequestLimiter(b.redis, limiters.WindowConfig{
		Prefix:      prefix,
		Window:      cfg.OTP.RequestWindow,
		MaxRequests: cfg.OTP.MaxRequestsPerWindow,
	})
	engine.cooldowns = limiters.NewCooldownMarker(b.redis, prefix, cfg.OTP.Cooldown)
	engine.secrets = stores.NewOTPSecretStore(b.redis, prefix)
	engine.verified = stores.NewVerifiedMarker(b.redis, prefix, cfg.OTP.VerifiedMarkerTTL)
	engine.existence = stores.NewExistenceCache(b.redis, prefix, cfg.Stores.ExistenceCacheTTL)
	engine.revocations = revocation.NewRegistry(b.redis, prefix, tokens)

	// -------- NOTIFICATIONS --------
	switch {
	case b.notifier != nil:
		engine.notifier = b.notifier
	case cfg.Notifier.Enabled:
		engine.dispatcher = notify.NewDispatcher(notify.Config{
			BufferSize:  cfg.Notifier.BufferSize,
			DropIfFull:  cfg.Notifier.DropIfFull,
			SendTimeout: cfg.Notifier.SendTimeout,
		}, b.sender, logger.Named("notify"))
		engine.notifier = engine.dispatcher
	}

	b.built = true

	return engine, nil
}

func newCredentialVerifier(cfg PasswordConfig) (CredentialVerifier, error) {
	var verifier password.Migrating

	// Both schemes verify whenever their parameters are valid, so switching
	// algorithms never strands existing digests.
	if bc, err := password.NewBcrypt(cfg.BcryptCost); err == nil {
		verifier.Bcrypt = bc
	} else if cfg.Algorithm == "bcrypt" {
		return nil, err
	}
	if a, err := password.NewArgon2(password.Config{
		Memory:      cfg.Argon2.Memory,
		Time:        cfg.Argon2.Time,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err == nil {
		verifier.Argon2 = a
	} else if cfg.Algorithm == "argon2id" {
		return nil, err
	}

	if cfg.Algorithm == "argon2id" {
		verifier.Primary = verifier.Argon2
	} else {
		verifier.Primary = verifier.Bcrypt
	}
	return verifier, nil
}
