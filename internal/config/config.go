// Package config collects the server's environment configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/server needs to wire the service
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	Database DatabaseConfig
	Redis    RedisConfig
	AWS      AWSConfig

	JWTSecret        string
	ElasticsearchURL string
	AIAnalysisURL    string
	CORSOrigins      []string

	RateLimitPerMinute int

	Tracing   TracingConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig selects and addresses the SQL backend
type DatabaseConfig struct {
	Driver   string // postgres | sqlite
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// AWSConfig addresses avatar storage and outgoing email
type AWSConfig struct {
	Region        string
	S3Bucket      string
	CDNURL        string
	SESFromEmail  string
	SESFromName   string
	PublicBaseURL string
}

type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

type SchedulerConfig struct {
	AnalysisEnabled  bool
	AnalysisHour     int
	VersesPerChapter int
	ReminderEnabled  bool
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8787"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", "server.log"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "macchain"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "macchain.db"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		AWS: AWSConfig{
			Region:        getEnv("AWS_REGION", "ap-northeast-2"),
			S3Bucket:      os.Getenv("S3_BUCKET"),
			CDNURL:        os.Getenv("CDN_URL"),
			SESFromEmail:  os.Getenv("SES_FROM_EMAIL"),
			SESFromName:   getEnv("SES_FROM_NAME", "MacChain"),
			PublicBaseURL: getEnv("BASE_URL", "http://localhost:3000"),
		},
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		AIAnalysisURL:      os.Getenv("AI_ANALYSIS_URL"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 120),
		Tracing: TracingConfig{
			Enabled:      getBool("OTEL_ENABLED", false),
			Endpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SamplingRate: getFloat("OTEL_SAMPLING_RATE", 1.0),
		},
		Scheduler: SchedulerConfig{
			AnalysisEnabled:  getBool("ANALYSIS_SCHEDULER_ENABLED", false),
			AnalysisHour:     getInt("ANALYSIS_SCHEDULER_HOUR", 2),
			VersesPerChapter: getInt("ANALYSIS_VERSES_PER_CHAPTER", 5),
			ReminderEnabled:  getBool("REMINDER_SCHEDULER_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Scheduler.AnalysisHour < 0 || c.Scheduler.AnalysisHour > 23 {
		return fmt.Errorf("ANALYSIS_SCHEDULER_HOUR must be 0-23, got %d", c.Scheduler.AnalysisHour)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// AnalysisRunAt returns the next scheduled analysis time after now
func (s SchedulerConfig) AnalysisRunAt(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.AnalysisHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
