// Command bankauth-loadtest measures login and token authentication
// throughput of the engine against Redis (or an embedded miniredis) and the
// in-memory account store.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/MrEthical07/bankAuth/jwt"
	"github.com/MrEthical07/bankAuth/password"
	"github.com/MrEthical07/bankAuth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const seedPassword = "Loadtest@123"

func main() {
	var (
		users       = flag.Int("users", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		loginOps    = flag.Int("login-ops", 5000, "login operations")
		authOps     = flag.Int("auth-ops", 200000, "token authentication operations")
		bcryptCost  = flag.Int("bcrypt-cost", 4, "bcrypt cost for seeded passwords")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *loginOps <= 0 || *authOps <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, login-ops and auth-ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, identities, err := setup(ctx, client, *users, *bcryptCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	loginStats, tokens := runLoginPhase(ctx, engine, identities, *loginOps, *concurrency)
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no successful logins, skipping authentication phase")
		printStats("login", loginStats)
		os.Exit(1)
	}
	authStats := runAuthenticatePhase(ctx, engine, tokens, *authOps, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("authenticate", authStats)
}

func setup(ctx context.Context, client *redis.Client, users, bcryptCost int) (*bankAuth.Engine, []string, error) {
	priv, pub, err := jwt.GenerateKeyPair(2048)
	if err != nil {
		return nil, nil, err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, nil, err
	}

	cfg := bankAuth.DefaultConfig()
	cfg.OTP.HMACSecret = secret
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.Password.BcryptCost = bcryptCost
	cfg.Stores.KeyPrefix = "loadtest:"
	cfg.Metrics.EnableLatencyHistograms = true

	hasher, err := password.NewBcrypt(bcryptCost)
	if err != nil {
		return nil, nil, err
	}
	digest, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, nil, err
	}

	store := memory.New()
	identities := make([]string, users)
	fmt.Printf("seeding %d accounts...\n", users)
	startSeed := time.Now()
	for i := 0; i < users; i++ {
		email := fmt.Sprintf("user%d@gmail.com", i)
		u := &bankAuth.User{
			FirstName:    "Load",
			LastName:     fmt.Sprintf("User%d", i),
			Email:        email,
			MobileNumber: fmt.Sprintf("9%09d", i),
			PasswordHash: digest,
			BirthDate:    time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
			Roles:        []bankAuth.Role{bankAuth.RoleCustomer},
			Enabled:      true,
			CreatedAt:    startSeed,
			UpdatedAt:    startSeed,
		}
		if err := store.CreateUser(ctx, u); err != nil {
			return nil, nil, fmt.Errorf("seed %s: %w", email, err)
		}
		identities[i] = email
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	engine, err := bankAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserRepository(store).
		WithOTPRepository(store).
		WithCredentialVerifier(hasher).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, identities, nil
}

func runLoginPhase(ctx context.Context, engine *bankAuth.Engine, identities []string, ops, concurrency int) (phaseStats, []string) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		tokens    = make([]string, 0, len(identities))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				identity := identities[r.Intn(len(identities))]
				t0 := time.Now()
				res, err := engine.Login(ctx, identity, seedPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				if err == nil && len(tokens) < cap(tokens) {
					tokens = append(tokens, res.AccessToken)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), tokens
}

func runAuthenticatePhase(ctx context.Context, engine *bankAuth.Engine, tokens []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				token := tokens[r.Intn(len(tokens))]
				t0 := time.Now()
				_, err := engine.Authenticate(ctx, token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
