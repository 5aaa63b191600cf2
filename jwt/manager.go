package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess marks tokens accepted by protected endpoints.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks the long-lived half of a login pair.
	TokenTypeRefresh = "refresh"
)

var (
	// ErrWrongTokenType is returned by ParseAccess for refresh tokens.
	ErrWrongTokenType = errors.New("unexpected token type")
	// ErrMissingSubject is returned when a token carries no subject.
	ErrMissingSubject = errors.New("token subject missing")
)

// Config defines a public type used by bankAuth APIs.
//
// PrivateKey accepts PKCS#1 or PKCS#8 PEM; PublicKey accepts PKIX PEM or a
// certificate. A Manager built without PrivateKey can verify but not sign.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
	Now        func() time.Time
}

// Manager signs and verifies tokens. It is immutable after NewManager and
// safe for concurrent use.
type Manager struct {
	config     Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

// Claims is the token payload. Roles are the holder's role names.
type Claims struct {
	Roles     []string `json:"roles"`
	TokenType string   `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and parses the key material.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = cfg.AccessTTL
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.PublicKey) == 0 {
		return nil, errors.New("rs256 requires public key")
	}

	m := &Manager{config: cfg, now: cfg.Now}
	if m.now == nil {
		m.now = time.Now
	}

	pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid rsa public key: %w", err)
	}
	m.publicKey = pub

	if len(cfg.PrivateKey) > 0 {
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid rsa private key: %w", err)
		}
		if priv.PublicKey.N.Cmp(pub.N) != 0 || priv.PublicKey.E != pub.E {
			return nil, errors.New("rsa private key does not match public key")
		}
		m.privateKey = priv
	}

	return m, nil
}

// CreateAccess signs an access token for subject and returns it with its expiry.
func (m *Manager) CreateAccess(subject string, roles []string) (string, time.Time, error) {
	return m.create(subject, roles, TokenTypeAccess, m.config.AccessTTL)
}

// CreateRefresh signs a refresh token. It differs from an access token only
// in lifetime and type.
func (m *Manager) CreateRefresh(subject string, roles []string) (string, time.Time, error) {
	return m.create(subject, roles, TokenTypeRefresh, m.config.RefreshTTL)
}

func (m *Manager) create(subject string, roles []string, tokenType string, ttl time.Duration) (string, time.Time, error) {
	if m.privateKey == nil {
		return "", time.Time{}, errors.New("manager has no signing key")
	}
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := m.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	claims := Claims{
		Roles:     append([]string(nil), roles...),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt.Time, nil
}

// Parse verifies signature, algorithm, expiry, and issuer and returns the claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// ParseAccess is Parse restricted to access tokens.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// Validate reports whether tokenStr is a well-formed, correctly signed,
// unexpired token. It never panics and fails closed on any error.
func (m *Manager) Validate(tokenStr string) (ok bool) {
	if m == nil || tokenStr == "" {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := m.Parse(tokenStr)
	return err == nil
}

// RemainingValidity returns expiry minus now, at millisecond precision. It is
// zero for tokens that do not validate.
func (m *Manager) RemainingValidity(tokenStr string) time.Duration {
	if m == nil {
		return 0
	}
	claims, err := m.Parse(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(m.now()).Truncate(time.Millisecond)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Leeway is the clock skew Parse tolerates past expiry.
func (m *Manager) Leeway() time.Duration {
	if m == nil {
		return 0
	}
	return m.config.Leeway
}
