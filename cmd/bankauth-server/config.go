package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/MrEthical07/bankAuth/internal/logging"
	"github.com/MrEthical07/bankAuth/notify"
	"github.com/MrEthical07/bankAuth/store/postgres"
	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// MetricsConfig selects exporters. Prometheus text is always served on
// /metrics; OTel additionally pushes the same series to the log on Interval.
type MetricsConfig struct {
	OTel     bool          `yaml:"otel"`
	Interval time.Duration `yaml:"otel_interval"`
}

type KeysConfig struct {
	PrivateKeyPath string `yaml:"private_key_path"`
	PublicKeyPath  string `yaml:"public_key_path"`
}

// Config is the server configuration file. Secrets are only read from the
// environment.
type Config struct {
	HTTP     HTTPConfig        `yaml:"http"`
	Log      logging.Config    `yaml:"log"`
	Redis    RedisConfig       `yaml:"redis"`
	Postgres postgres.Config   `yaml:"postgres"`
	SMTP     notify.SMTPConfig `yaml:"smtp"`
	Keys     KeysConfig        `yaml:"jwt_keys"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	Auth     bankAuth.Config   `yaml:"auth"`
}

func defaultServerConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log:     logging.ConfigFromEnv(),
		SMTP:    notify.SMTPConfig{Port: 587},
		Metrics: MetricsConfig{Interval: time.Minute},
		Auth:    bankAuth.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults and then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := defaultServerConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.Keys.PrivateKeyPath, "JWT_PRIVATE_KEY_PATH")
	setString(&cfg.Keys.PublicKeyPath, "JWT_PUBLIC_KEY_PATH")

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		cfg.SMTP.Port = port
	}
	if v := os.Getenv("METRICS_OTEL"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_OTEL: %w", err)
		}
		cfg.Metrics.OTel = on
	}
	if v := os.Getenv("OTP_HMAC_SECRET"); v != "" {
		cfg.Auth.OTP.HMACSecret = []byte(v)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
