package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	keyOnce             sync.Once
	testPriv, testPub   []byte
	otherPriv, otherPub []byte
)

func testKeys(t *testing.T) (priv, pub, altPriv, altPub []byte) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testPriv, testPub, err = GenerateKeyPair(2048)
		if err != nil {
			panic(err)
		}
		otherPriv, otherPub, err = GenerateKeyPair(2048)
		if err != nil {
			panic(err)
		}
	})
	return testPriv, testPub, otherPriv, otherPub
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	priv, pub, _, _ := testKeys(t)
	cfg := Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		PrivateKey: priv,
		PublicKey:  pub,
		Issuer:     "bankauth-test",
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestCreateAccessRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, exp, err := m.CreateAccess("a@gmail.com", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if !exp.Equal(clock.Now().Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
	if !m.Validate(token) {
		t.Fatal("expected freshly issued token to validate")
	}

	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "a@gmail.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "CUSTOMER" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}

	clock.Advance(15*time.Minute + time.Second)
	if m.Validate(token) {
		t.Fatal("expected token to be invalid after expiry")
	}
}

func TestTokensIssuedTogetherAreDistinct(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	first, _, err := m.CreateAccess("a@gmail.com", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	second, _, err := m.CreateAccess("a@gmail.com", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens within the same second")
	}

	claims, err := m.ParseAccess(first)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected jti claim")
	}
}

func TestRemainingValidity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	token, _, err := m.CreateAccess("a@gmail.com", nil)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	clock.Advance(5 * time.Minute)
	if got := m.RemainingValidity(token); got != 10*time.Minute {
		t.Fatalf("expected 10m remaining, got %v", got)
	}

	clock.Advance(11 * time.Minute)
	if got := m.RemainingValidity(token); got != 0 {
		t.Fatalf("expected 0 remaining after expiry, got %v", got)
	}
	if got := m.RemainingValidity("garbage"); got != 0 {
		t.Fatalf("expected 0 remaining for garbage, got %v", got)
	}
}

func TestRefreshTokenIsNotAccess(t *testing.T) {
	m := newTestManager(t, nil)

	refresh, exp, err := m.CreateRefresh("a@gmail.com", []string{"CUSTOMER"})
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if time.Until(exp) < 23*time.Hour {
		t.Fatalf("expected refresh expiry ~24h out, got %v", exp)
	}
	if !m.Validate(refresh) {
		t.Fatal("expected refresh token signature to validate")
	}
	if _, err := m.ParseAccess(refresh); err != ErrWrongTokenType {
		t.Fatalf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestValidateRejectsForeignKey(t *testing.T) {
	_, pub, altPriv, altPub := testKeys(t)

	foreign, err := NewManager(Config{AccessTTL: time.Minute, PrivateKey: altPriv, PublicKey: altPub, Issuer: "bankauth-test"})
	if err != nil {
		t.Fatalf("foreign manager: %v", err)
	}
	token, _, err := foreign.CreateAccess("a@gmail.com", nil)
	if err != nil {
		t.Fatalf("create access: %v", err)
	}

	verifier, err := NewManager(Config{AccessTTL: time.Minute, PublicKey: pub, Issuer: "bankauth-test"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	if verifier.Validate(token) {
		t.Fatal("expected token signed by another key to be rejected")
	}
	if _, _, err := verifier.CreateAccess("a@gmail.com", nil); err == nil {
		t.Fatal("expected verify-only manager to refuse signing")
	}
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	claims := Claims{
		TokenType: TokenTypeAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "a@gmail.com",
			Issuer:    "bankauth-test",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	hs, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	if m.Validate(hs) {
		t.Fatal("expected hs256 token to be rejected")
	}

	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519 key: %v", err)
	}
	ed, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(edPriv)
	if err != nil {
		t.Fatalf("sign eddsa: %v", err)
	}
	if m.Validate(ed) {
		t.Fatal("expected eddsa token to be rejected")
	}
}

func TestValidateFailsClosedOnMalformedInput(t *testing.T) {
	m := newTestManager(t, nil)
	for _, in := range []string{"", "a", "a.b", "a.b.c", "....", "eyJhbGciOiJSUzI1NiJ9.e30."} {
		if m.Validate(in) {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
	var nilManager *Manager
	if nilManager.Validate("a.b.c") {
		t.Fatal("expected nil manager to reject")
	}
}

func TestNewManagerRejectsMismatchedKeys(t *testing.T) {
	priv, _, _, altPub := testKeys(t)
	if _, err := NewManager(Config{AccessTTL: time.Minute, PrivateKey: priv, PublicKey: altPub}); err == nil {
		t.Fatal("expected mismatched key pair to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: 0, PublicKey: altPub}); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, PublicKey: []byte("not pem")}); err == nil {
		t.Fatal("expected invalid PEM to be rejected")
	}
}

func TestLeewayReported(t *testing.T) {
	priv, pub, _, _ := testKeys(t)
	m, err := NewManager(Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		PrivateKey: priv,
		PublicKey:  pub,
		Leeway:     30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if got := m.Leeway(); got != 30*time.Second {
		t.Fatalf("expected 30s leeway, got %v", got)
	}

	var nilManager *Manager
	if nilManager.Leeway() != 0 {
		t.Fatal("nil manager reports no leeway")
	}
}
