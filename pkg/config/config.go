// Package config loads casebot's configuration from environment variables, an
// optional .env file, and an optional YAML file, in that precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port       int    `json:"port" yaml:"port" env:"PORT"`
	HealthPath string `json:"health_path" yaml:"health_path" env:"HEALTH_PATH"`
	MetricsPath string `json:"metrics_path" yaml:"metrics_path" env:"METRICS_PATH"`
	WebAppDir  string `json:"webapp_dir" yaml:"webapp_dir" env:"WEBAPP_DIR"`
}

// BotConfig controls how updates are ingested and authenticated.
type BotConfig struct {
	Token              string `json:"-" yaml:"-" env:"BOT_TOKEN"`
	Mode               string `json:"mode" yaml:"mode" env:"BOT_MODE"`
	WebhookSecretToken string `json:"-" yaml:"-" env:"WEBHOOK_SECRET_TOKEN"`
	WebhookPath        string `json:"webhook_path" yaml:"webhook_path" env:"WEBHOOK_PATH"`
	PublicBaseURL      string `json:"public_base_url" yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
}

// AdminConfig controls the operator-only surface.
type AdminConfig struct {
	Token string `json:"-" yaml:"-" env:"ADMIN_TOKEN"`
}

// RNGConfig controls the provably-fair draw service.
type RNGConfig struct {
	Storage     string `json:"storage" yaml:"storage" env:"RNG_STORAGE"`
	FairnessKey string `json:"-" yaml:"-" env:"FAIRNESS_KEY"`
}

// DatabaseConfig controls the relational persistence variant.
type DatabaseConfig struct {
	URL             string `json:"-" yaml:"-" env:"DATABASE_URL"`
	User            string `json:"-" yaml:"-" env:"DATABASE_USER"`
	Password        string `json:"-" yaml:"-" env:"DATABASE_PASSWORD"`
	MaxOpenConns    int    `json:"max_open_conns" yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// RedisConfig controls the optional distributed store backend.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" env:"REDIS_ADDR"`
	Password string `json:"-" yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" yaml:"db" env:"REDIS_DB"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
}

// QueueConfig tunes the update ingestion pipeline (C5).
type QueueConfig struct {
	Capacity   int `json:"capacity" yaml:"capacity" env:"QUEUE_CAPACITY"`
	Workers    int `json:"workers" yaml:"workers" env:"QUEUE_WORKERS"`
	DedupTTLHr int `json:"dedup_ttl_hours" yaml:"dedup_ttl_hours" env:"QUEUE_DEDUP_TTL_HOURS"`
}

// AntifraudConfig tunes the rate limiter and velocity scorer (C2/C3).
type AntifraudConfig struct {
	IPBucketCapacity       float64 `json:"ip_bucket_capacity" yaml:"ip_bucket_capacity" env:"AF_IP_BUCKET_CAPACITY"`
	IPBucketRefillPerSec   float64 `json:"ip_bucket_refill_per_sec" yaml:"ip_bucket_refill_per_sec" env:"AF_IP_BUCKET_REFILL_PER_SEC"`
	SubjectBucketCapacity  float64 `json:"subject_bucket_capacity" yaml:"subject_bucket_capacity" env:"AF_SUBJECT_BUCKET_CAPACITY"`
	SubjectBucketRefillSec float64 `json:"subject_bucket_refill_per_sec" yaml:"subject_bucket_refill_per_sec" env:"AF_SUBJECT_BUCKET_REFILL_PER_SEC"`
	ShortWindowSec         int     `json:"short_window_sec" yaml:"short_window_sec" env:"AF_SHORT_WINDOW_SEC"`
	LongWindowSec          int     `json:"long_window_sec" yaml:"long_window_sec" env:"AF_LONG_WINDOW_SEC"`
	SoftCapThreshold       int     `json:"soft_cap_threshold" yaml:"soft_cap_threshold" env:"AF_SOFT_CAP_THRESHOLD"`
	HardBlockThreshold     int     `json:"hard_block_threshold" yaml:"hard_block_threshold" env:"AF_HARD_BLOCK_THRESHOLD"`
	IPShortBurstMax        int64   `json:"ip_short_burst_max" yaml:"ip_short_burst_max" env:"AF_IP_SHORT_BURST_MAX"`
	IPLongBurstMax         int64   `json:"ip_long_burst_max" yaml:"ip_long_burst_max" env:"AF_IP_LONG_BURST_MAX"`
	DistinctPathsMax       int64   `json:"distinct_paths_max" yaml:"distinct_paths_max" env:"AF_DISTINCT_PATHS_MAX"`
	InvoiceBurstMax        int64   `json:"invoice_burst_max" yaml:"invoice_burst_max" env:"AF_INVOICE_BURST_MAX"`
	PrecheckoutBurstMax    int64   `json:"precheckout_burst_max" yaml:"precheckout_burst_max" env:"AF_PRECHECKOUT_BURST_MAX"`
	SuccessBurstMax        int64   `json:"success_burst_max" yaml:"success_burst_max" env:"AF_SUCCESS_BURST_MAX"`
	UAMismatchMaxDistinct  int64   `json:"ua_mismatch_max_distinct" yaml:"ua_mismatch_max_distinct" env:"AF_UA_MISMATCH_MAX_DISTINCT"`
	UAMismatchTTLSec       int     `json:"ua_mismatch_ttl_sec" yaml:"ua_mismatch_ttl_sec" env:"AF_UA_MISMATCH_TTL_SEC"`
	FlagScore              int     `json:"flag_score" yaml:"flag_score" env:"AF_FLAG_SCORE"`
	AutoBanTTLSec          int64   `json:"auto_ban_ttl_sec" yaml:"auto_ban_ttl_sec" env:"AF_AUTO_BAN_TTL_SEC"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Bot       BotConfig       `json:"bot" yaml:"bot"`
	Admin     AdminConfig     `json:"admin" yaml:"admin"`
	RNG       RNGConfig       `json:"rng" yaml:"rng"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Queue     QueueConfig     `json:"queue" yaml:"queue"`
	Antifraud AntifraudConfig `json:"antifraud" yaml:"antifraud"`
	CasesFile string          `json:"cases_file" yaml:"cases_file" env:"CASES_FILE"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			HealthPath:  "/health",
			MetricsPath: "/metrics",
			WebAppDir:   "webapp",
		},
		Bot: BotConfig{
			Mode:        "webhook",
			WebhookPath: "/telegram/webhook",
		},
		RNG: RNGConfig{
			Storage: "memory",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{
			DB: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Queue: QueueConfig{
			Capacity:   1024,
			Workers:    6,
			DedupTTLHr: 26,
		},
		Antifraud: AntifraudConfig{
			IPBucketCapacity:       30,
			IPBucketRefillPerSec:   1,
			SubjectBucketCapacity:  10,
			SubjectBucketRefillSec: 0.2,
			ShortWindowSec:         60,
			LongWindowSec:          600,
			SoftCapThreshold:       10,
			HardBlockThreshold:     20,
			IPShortBurstMax:        20,
			IPLongBurstMax:         100,
			DistinctPathsMax:       8,
			InvoiceBurstMax:        5,
			PrecheckoutBurstMax:    5,
			SuccessBurstMax:        3,
			UAMismatchMaxDistinct:  3,
			UAMismatchTTLSec:       3600,
			FlagScore:              10,
			AutoBanTTLSec:          900,
		},
		CasesFile: "configs/cases.yaml",
	}
}

// Load loads the optional .env file into the environment, then the optional
// YAML file, then environment variables (including those from .env), each
// overriding the values before it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/config.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when none of the tagged fields are present in the
		// environment; treat that as "no overrides" so local runs work without
		// exporting every variable.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// LoadFile reads configuration from a YAML file without consulting the
// environment; used by tests and the admin reload path.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	if c.Bot.Mode == "" {
		c.Bot.Mode = "webhook"
	}
	if c.RNG.Storage == "" {
		c.RNG.Storage = "memory"
	}
}

// DatabaseConnString returns the DSN to use for the relational store, or the
// empty string when no database is configured (in-memory mode).
func (c *Config) DatabaseConnString() string {
	return strings.TrimSpace(c.Database.URL)
}

// AdminEnabled reports whether the admin surface (C11) should be mounted.
func (c *Config) AdminEnabled() bool {
	return strings.TrimSpace(c.Admin.Token) != ""
}

// ParseBool mirrors the teacher's tolerant env-to-bool coercion used for CLI
// flags that mirror config fields.
func ParseBool(s string, fallback bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}
