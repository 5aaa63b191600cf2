package bankAuth_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/MrEthical07/bankAuth/jwt"
	"github.com/MrEthical07/bankAuth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "Secret@123"

var (
	keysOnce        sync.Once
	keyPriv, keyPub []byte
	keyGenerateErr  error
)

var (
	codePattern     = regexp.MustCompile(`(\d{6})`)
	testHMACSecret  = []byte("0123456789abcdef0123456789abcdef")
	testClockOrigin = time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)
	testBirthDate   = time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)
)

func testKeys(t *testing.T) (priv, pub []byte) {
	t.Helper()
	keysOnce.Do(func() {
		keyPriv, keyPub, keyGenerateErr = jwt.GenerateKeyPair(2048)
	})
	if keyGenerateErr != nil {
		t.Fatalf("generate keys: %v", keyGenerateErr)
	}
	return keyPriv, keyPub
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mailbox is a synchronous Notifier that keeps every body per recipient.
type mailbox struct {
	mu   sync.Mutex
	msgs map[string][]string
	subj map[string][]string
}

func newMailbox() *mailbox {
	return &mailbox{msgs: map[string][]string{}, subj: map[string][]string{}}
}

func (m *mailbox) Send(recipient, body, subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[recipient] = append(m.msgs[recipient], body)
	m.subj[recipient] = append(m.subj[recipient], subject)
}

func (m *mailbox) count(recipient string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs[recipient])
}

func (m *mailbox) lastSubject(recipient string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subj[recipient]
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func (m *mailbox) code(t *testing.T, recipient string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := m.msgs[recipient]
	if len(bodies) == 0 {
		t.Fatalf("no message for %s", recipient)
	}
	match := codePattern.FindStringSubmatch(bodies[len(bodies)-1])
	if match == nil {
		t.Fatalf("no code in message for %s", recipient)
	}
	return match[1]
}

type harness struct {
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	store  *memory.Store
	mail   *mailbox
	clock  *testClock
	engine *bankAuth.Engine
}

type harnessOption func(*bankAuth.Builder, *bankAuth.Config)

func withConfig(mutate func(*bankAuth.Config)) harnessOption {
	return func(_ *bankAuth.Builder, cfg *bankAuth.Config) { mutate(cfg) }
}

func withUsers(repo bankAuth.UserRepository) harnessOption {
	return func(b *bankAuth.Builder, _ *bankAuth.Config) { b.WithUserRepository(repo) }
}

func withOTPs(repo bankAuth.OTPRepository) harnessOption {
	return func(b *bankAuth.Builder, _ *bankAuth.Config) { b.WithOTPRepository(repo) }
}

func testConfig(t *testing.T) bankAuth.Config {
	t.Helper()
	priv, pub := testKeys(t)
	cfg := bankAuth.DefaultConfig()
	cfg.OTP.HMACSecret = testHMACSecret
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Password.BcryptCost = 4
	cfg.Stores.KeyPrefix = "test:"
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	h := &harness{
		mr:    mr,
		rdb:   rdb,
		store: memory.New(),
		mail:  newMailbox(),
		clock: &testClock{now: testClockOrigin},
	}

	cfg := testConfig(t)
	b := bankAuth.New().
		WithRedis(rdb).
		WithUserRepository(h.store).
		WithOTPRepository(h.store).
		WithNotifier(h.mail).
		WithClock(h.clock.Now)
	for _, opt := range opts {
		opt(b, &cfg)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

// advance moves the engine clock and the Redis TTL clock together.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.mr.FastForward(d)
}

func (h *harness) signupUser(t *testing.T, email, mobile string) {
	t.Helper()
	ctx := context.Background()

	if _, err := h.engine.RequestSignupOTP(ctx, email); err != nil {
		t.Fatalf("RequestSignupOTP: %v", err)
	}
	if _, err := h.engine.VerifySignupOTP(ctx, email, h.mail.code(t, email)); err != nil {
		t.Fatalf("VerifySignupOTP: %v", err)
	}
	if _, err := h.engine.CompleteSignup(ctx, signupRequest(email, mobile)); err != nil {
		t.Fatalf("CompleteSignup: %v", err)
	}
}

func signupRequest(email, mobile string) bankAuth.SignupRequest {
	return bankAuth.SignupRequest{
		FirstName:    "Asha",
		LastName:     "Rao",
		Email:        email,
		MobileNumber: mobile,
		Password:     testPassword,
		BirthDate:    testBirthDate,
	}
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func expectKind(t *testing.T, err error, kind bankAuth.ErrorKind, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := bankAuth.KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
	if message != "" && bankAuth.MessageOf(err) != message {
		t.Fatalf("expected message %q, got %q", message, bankAuth.MessageOf(err))
	}
}

// conflictingUsers wraps a repository and fails UpdateUser with a version
// conflict while armed.
type conflictingUsers struct {
	bankAuth.UserRepository
	mu    sync.Mutex
	armed bool
}

func (c *conflictingUsers) arm() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
}

func (c *conflictingUsers) disarm() {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

func (c *conflictingUsers) UpdateUser(ctx context.Context, u *bankAuth.User) error {
	c.mu.Lock()
	armed := c.armed
	c.mu.Unlock()
	if armed {
		return bankAuth.ErrVersionConflict
	}
	return c.UserRepository.UpdateUser(ctx, u)
}

// conflictingOTPs fails SaveOTP with a version conflict while armed.
type conflictingOTPs struct {
	bankAuth.OTPRepository
	mu    sync.Mutex
	armed bool
}

func (c *conflictingOTPs) arm() {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
}

func (c *conflictingOTPs) disarm() {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

func (c *conflictingOTPs) SaveOTP(ctx context.Context, rec *bankAuth.OTPRecord) error {
	c.mu.Lock()
	armed := c.armed
	c.mu.Unlock()
	if armed {
		return bankAuth.ErrVersionConflict
	}
	return c.OTPRepository.SaveOTP(ctx, rec)
}

// staleOTPs reports "not found" from the next FindOTP after hideOnce even
// though the row exists, as a reader that lost a race with another
// request's first insert would see it.
type staleOTPs struct {
	bankAuth.OTPRepository
	mu   sync.Mutex
	hide bool
}

func (s *staleOTPs) hideOnce() {
	s.mu.Lock()
	s.hide = true
	s.mu.Unlock()
}

func (s *staleOTPs) FindOTP(ctx context.Context, purpose bankAuth.Purpose, identity string) (*bankAuth.OTPRecord, error) {
	s.mu.Lock()
	hide := s.hide
	s.hide = false
	s.mu.Unlock()
	if hide {
		return nil, bankAuth.ErrRecordNotFound
	}
	return s.OTPRepository.FindOTP(ctx, purpose, identity)
}

// gatedOTPs parks FindOTP callers after hold(n) until n of them have read,
// so concurrent verifications start from the same record version.
type gatedOTPs struct {
	bankAuth.OTPRepository
	mu      sync.Mutex
	pending int
	open    chan struct{}
}

func (g *gatedOTPs) hold(n int) {
	g.mu.Lock()
	g.pending = n
	g.open = make(chan struct{})
	g.mu.Unlock()
}

func (g *gatedOTPs) FindOTP(ctx context.Context, purpose bankAuth.Purpose, identity string) (*bankAuth.OTPRecord, error) {
	rec, err := g.OTPRepository.FindOTP(ctx, purpose, identity)

	g.mu.Lock()
	if g.pending == 0 {
		g.mu.Unlock()
		return rec, err
	}
	g.pending--
	open := g.open
	if g.pending == 0 {
		close(open)
	}
	g.mu.Unlock()

	select {
	case <-open:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return rec, err
}

var errBrokenStore = errors.New("connection reset by peer")

type brokenUsers struct {
	bankAuth.UserRepository
}

func (brokenUsers) FindByEmailOrMobile(context.Context, string) (*bankAuth.User, error) {
	return nil, errBrokenStore
}
