package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2, cfg.Scheduler.AnalysisHour)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateDriver(t *testing.T) {
	cfg := &Config{JWTSecret: "x", Database: DatabaseConfig{Driver: "mysql"}}
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.DSN())
}

func TestAnalysisRunAt(t *testing.T) {
	s := SchedulerConfig{AnalysisHour: 2}
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), s.AnalysisRunAt(now))

	now = time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), s.AnalysisRunAt(now))
}
