package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"status_ttl"` // payment status cache TTL
}

// OperatorConfig holds one Mobile Money operator's credentials. The
// webhook secret is the HMAC key for callback signatures.
type OperatorConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	FeeBp         int64  `yaml:"fee_bp"` // transaction fee in basis points
}

type PaymentConfig struct {
	Operators map[string]OperatorConfig `yaml:"operators"` // keyed by MTN / MOOV
	Expiry    time.Duration             `yaml:"expiry"`    // pending payment window
}

type CommissionConfig struct {
	DefaultRateBp int64 `yaml:"default_rate_bp"`
	ReducedRateBp int64 `yaml:"reduced_rate_bp"`
}

type SchedulerConfig struct {
	ExpiryInterval     time.Duration `yaml:"expiry_interval"`
	ReconcileStaleAfter time.Duration `yaml:"reconcile_stale_after"`
	UsageResetInterval time.Duration `yaml:"usage_reset_interval"`
}

type SecurityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	QRSecret  string `yaml:"qr_secret"`
}

type WorkerConfig struct {
	Count int `yaml:"count"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Commission CommissionConfig `yaml:"commission"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Security   SecurityConfig   `yaml:"security"`
	Worker     WorkerConfig     `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Redis.StatusTTL <= 0 {
		cfg.Redis.StatusTTL = 5 * time.Second
	}
	if cfg.Payment.Expiry <= 0 {
		cfg.Payment.Expiry = 15 * time.Minute
	}
	if cfg.Commission.DefaultRateBp <= 0 {
		cfg.Commission.DefaultRateBp = 500 // 5%
	}
	if cfg.Commission.ReducedRateBp <= 0 {
		cfg.Commission.ReducedRateBp = 300 // 3%
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Minute
	}
	if cfg.Scheduler.ReconcileStaleAfter <= 0 {
		cfg.Scheduler.ReconcileStaleAfter = 10 * time.Minute
	}
	if cfg.Scheduler.UsageResetInterval <= 0 {
		cfg.Scheduler.UsageResetInterval = time.Hour
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 8
	}

	// minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if len(cfg.Payment.Operators) == 0 {
		return nil, errors.New("payment.operators must configure at least one operator")
	}
	for name, op := range cfg.Payment.Operators {
		if op.WebhookSecret == "" {
			return nil, fmt.Errorf("payment.operators.%s.webhook_secret is required", name)
		}
	}
	if cfg.Security.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required")
	}
	if cfg.Security.QRSecret == "" {
		return nil, errors.New("security.qr_secret is required")
	}
	return &cfg, nil
}
