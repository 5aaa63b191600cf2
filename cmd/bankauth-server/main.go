// Command bankauth-server serves the bankAuth HTTP API.
//
// Configuration is read from the YAML file named by -config (or
// BANKAUTH_CONFIG) and overridden by the environment; a .env file in the
// working directory is loaded first. Without REDIS_ADDR an embedded
// miniredis is started, without DATABASE_URL accounts live in memory, and
// without JWT key paths an ephemeral key pair is generated. Those fallbacks
// are for local development only. Setting metrics.otel (or METRICS_OTEL)
// also pushes the engine metrics through OpenTelemetry to the log.
//
// Run:
//
//	go run ./cmd/bankauth-server -config config.yaml
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/MrEthical07/bankAuth/httpapi"
	"github.com/MrEthical07/bankAuth/internal/logging"
	"github.com/MrEthical07/bankAuth/jwt"
	"github.com/MrEthical07/bankAuth/metrics/export/prometheus"
	"github.com/MrEthical07/bankAuth/notify"
	"github.com/MrEthical07/bankAuth/store/memory"
	"github.com/MrEthical07/bankAuth/store/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("BANKAUTH_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- redis ----------
	if cfg.Redis.Addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		defer mr.Close()
		cfg.Redis.Addr = mr.Addr()
		logger.Warn("REDIS_ADDR not set, using embedded redis", zap.String("addr", mr.Addr()))
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// ---------- durable store ----------
	var (
		users bankAuth.UserRepository
		otps  bankAuth.OTPRepository
		db    *postgres.Store
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		users, otps = db, db
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		mem := memory.New()
		users, otps = mem, mem
	}

	// ---------- secrets ----------
	if err := loadKeys(&cfg, logger); err != nil {
		return err
	}
	if len(cfg.Auth.OTP.HMACSecret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate otp secret: %w", err)
		}
		cfg.Auth.OTP.HMACSecret = secret
		logger.Warn("OTP_HMAC_SECRET not set, using an ephemeral secret")
	}

	// ---------- notifier ----------
	var sender notify.Sender
	if cfg.SMTP.Host != "" {
		sender = notify.NewSMTPSender(cfg.SMTP)
	} else {
		logger.Warn("SMTP_HOST not set, OTP mail is logged instead of sent")
		sender = notify.NewLogSender(logger)
	}

	// ---------- engine ----------
	engine, err := bankAuth.New().
		WithConfig(cfg.Auth).
		WithRedis(rdb).
		WithUserRepository(users).
		WithOTPRepository(otps).
		WithMailSender(sender).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	// ---------- metrics ----------
	if cfg.Metrics.OTel {
		stopOTel, err := startOTel(engine, cfg.Metrics.Interval, logger)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := stopOTel(flushCtx); err != nil {
				logger.Warn("otel shutdown failed", zap.Error(err))
			}
		}()
	}

	// ---------- http ----------
	checks := map[string]httpapi.HealthCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if db != nil {
		checks["postgres"] = func(ctx context.Context) error { return db.DB().PingContext(ctx) }
	}
	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:       logger,
		Metrics:      prometheus.New(engine).Handler(),
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	return nil
}

// loadKeys reads the PEM files named in cfg.Keys, or generates a throwaway
// pair when neither is set.
func loadKeys(cfg *Config, logger *zap.Logger) error {
	if cfg.Keys.PrivateKeyPath == "" && cfg.Keys.PublicKeyPath == "" {
		priv, pub, err := jwt.GenerateKeyPair(2048)
		if err != nil {
			return fmt.Errorf("generate jwt keys: %w", err)
		}
		cfg.Auth.JWT.PrivateKey, cfg.Auth.JWT.PublicKey = priv, pub
		logger.Warn("JWT key paths not set, tokens are signed with an ephemeral key")
		return nil
	}

	priv, err := os.ReadFile(cfg.Keys.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("read jwt private key: %w", err)
	}
	pub, err := os.ReadFile(cfg.Keys.PublicKeyPath)
	if err != nil {
		return fmt.Errorf("read jwt public key: %w", err)
	}
	cfg.Auth.JWT.PrivateKey, cfg.Auth.JWT.PublicKey = priv, pub
	return nil
}
