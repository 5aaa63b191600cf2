package bankAuth

import (
	"errors"
	"time"
)

// Config defines a public type used by bankAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	OTP      OTPConfig      `yaml:"otp"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
	Stores   StoresConfig   `yaml:"stores"`
	Notifier NotifierConfig `yaml:"notifier"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls issuance and verification of one-time passcodes.
type OTPConfig struct {
	TTL                  time.Duration `yaml:"ttl"`
	Cooldown             time.Duration `yaml:"cooldown"`
	RequestWindow        time.Duration `yaml:"request_window"`
	MaxRequestsPerWindow int           `yaml:"max_requests_per_window"`
	MaxVerifyAttempts    int           `yaml:"max_verify_attempts"`
	VerifiedMarkerTTL    time.Duration `yaml:"verified_marker_ttl"`
	HMACSecret           []byte        `yaml:"-"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig parameterizes both lock triggers independently. The lock
// state itself is shared on the User aggregate.
type LockoutConfig struct {
	OTPLockDuration        time.Duration `yaml:"otp_lock_duration"`
	MaxInvalidPasswords    int           `yaml:"max_invalid_passwords"`
	LoginLockDuration      time.Duration `yaml:"login_lock_duration"`
	ResetEligibilityWindow time.Duration `yaml:"reset_eligibility_window"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds RS256 key material (PEM) and token lifetimes.
type JWTConfig struct {
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	Issuer     string        `yaml:"issuer"`
	Leeway     time.Duration `yaml:"leeway"`
	PrivateKey []byte        `yaml:"-"`
	PublicKey  []byte        `yaml:"-"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the credential verifier built by the Builder when
// none is supplied explicitly.
type PasswordConfig struct {
	Algorithm  string       `yaml:"algorithm"` // "bcrypt" (default) or "argon2id"
	BcryptCost int          `yaml:"bcrypt_cost"`
	Argon2     Argon2Config `yaml:"argon2"`
}

// Argon2Config mirrors password.Config.
type Argon2Config struct {
	Memory      uint32 `yaml:"memory_kb"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

/*
====================================
STORES CONFIG
====================================
*/

// StoresConfig bounds every store call and namespaces ephemeral keys.
type StoresConfig struct {
	EphemeralTimeout  time.Duration `yaml:"ephemeral_timeout"`
	DurableTimeout    time.Duration `yaml:"durable_timeout"`
	KeyPrefix         string        `yaml:"key_prefix"`
	ExistenceCacheTTL time.Duration `yaml:"existence_cache_ttl"`
}

/*
====================================
NOTIFIER CONFIG
====================================
*/

// NotifierConfig controls the asynchronous notification dispatcher.
type NotifierConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BufferSize  int           `yaml:"buffer_size"`
	DropIfFull  bool          `yaml:"drop_if_full"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables in-process counters and the token validation histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL:                  300 * time.Second,
			Cooldown:             60 * time.Second,
			RequestWindow:        5 * time.Minute,
			MaxRequestsPerWindow: 5,
			MaxVerifyAttempts:    3,
			VerifiedMarkerTTL:    15 * time.Minute,
		},
		Lockout: LockoutConfig{
			OTPLockDuration:        5 * time.Minute,
			MaxInvalidPasswords:    3,
			LoginLockDuration:      5 * time.Minute,
			ResetEligibilityWindow: 5 * time.Minute,
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			Issuer:     "bankauth",
		},
		Password: PasswordConfig{
			Algorithm:  "bcrypt",
			BcryptCost: 10,
			Argon2: Argon2Config{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
		},
		Stores: StoresConfig{
			EphemeralTimeout:  2 * time.Second,
			DurableTimeout:    5 * time.Second,
			ExistenceCacheTTL: 10 * time.Minute,
		},
		Notifier: NotifierConfig{
			Enabled:     true,
			BufferSize:  256,
			DropIfFull:  true,
			SendTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultConfig returns the reference configuration. HMACSecret and JWT key
// material are left empty and must be provisioned before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.OTP.HMACSecret = cloneBytes(cfg.OTP.HMACSecret)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.Cooldown < 0 {
		return errors.New("OTP Cooldown must be >= 0")
	}
	if c.OTP.Cooldown >= c.OTP.TTL {
		return errors.New("OTP Cooldown must be shorter than OTP TTL")
	}
	if c.OTP.RequestWindow <= 0 {
		return errors.New("OTP RequestWindow must be > 0")
	}
	if c.OTP.MaxRequestsPerWindow <= 0 {
		return errors.New("OTP MaxRequestsPerWindow must be > 0")
	}
	if c.OTP.MaxVerifyAttempts <= 0 {
		return errors.New("OTP MaxVerifyAttempts must be > 0")
	}
	if c.OTP.VerifiedMarkerTTL <= 0 {
		return errors.New("OTP VerifiedMarkerTTL must be > 0")
	}
	if len(c.OTP.HMACSecret) < 32 {
		return errors.New("OTP HMACSecret must be at least 32 bytes")
	}

	// Lockout
	if c.Lockout.OTPLockDuration <= 0 {
		return errors.New("Lockout OTPLockDuration must be > 0")
	}
	if c.Lockout.LoginLockDuration <= 0 {
		return errors.New("Lockout LoginLockDuration must be > 0")
	}
	if c.Lockout.MaxInvalidPasswords <= 0 {
		return errors.New("Lockout MaxInvalidPasswords must be > 0")
	}
	if c.Lockout.ResetEligibilityWindow <= 0 {
		return errors.New("Lockout ResetEligibilityWindow must be > 0")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT PrivateKey is required")
	}
	if len(c.JWT.PublicKey) == 0 {
		return errors.New("JWT PublicKey is required")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	case "argon2id":
		if c.Password.Argon2.Memory < 8*1024 {
			return errors.New("Password Argon2 Memory must be >= 8192 KB")
		}
		if c.Password.Argon2.Time < 1 || c.Password.Argon2.Parallelism < 1 {
			return errors.New("Password Argon2 Time and Parallelism must be >= 1")
		}
		if c.Password.Argon2.SaltLength < 16 || c.Password.Argon2.KeyLength < 16 {
			return errors.New("Password Argon2 SaltLength and KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Stores
	if c.Stores.EphemeralTimeout <= 0 {
		return errors.New("Stores EphemeralTimeout must be > 0")
	}
	if c.Stores.DurableTimeout <= 0 {
		return errors.New("Stores DurableTimeout must be > 0")
	}
	if c.Stores.ExistenceCacheTTL < 0 {
		return errors.New("Stores ExistenceCacheTTL must be >= 0")
	}

	// Notifier
	if c.Notifier.Enabled {
		if c.Notifier.BufferSize <= 0 {
			return errors.New("Notifier BufferSize must be > 0")
		}
		if c.Notifier.SendTimeout <= 0 {
			return errors.New("Notifier SendTimeout must be > 0")
		}
	}

	return nil
}
