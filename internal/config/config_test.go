package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindx-engine/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:8000/predict", m.GetPredictorConfig().URL)
	assert.Equal(t, 60*time.Second, m.GetPredictorConfig().Timeout)
	assert.True(t, cfg.Predictor.CircuitBreaker.Enabled)
	assert.Equal(t, 0.6, cfg.Predictor.CircuitBreaker.FailureRatio)
	assert.Equal(t, 30*time.Second, cfg.Cache.SummaryTTL)
	assert.Equal(t, "UTC", cfg.Dashboard.Timezone)
	assert.Equal(t, 5, cfg.Dashboard.RecentLimit)
	assert.Equal(t, "clindx", m.GetDatabaseConfig().Database)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CLINDX_SERVER_PORT", "9191")
	t.Setenv("CLINDX_PREDICTOR_URL", "http://ml:8000/predict")
	t.Setenv("CLINDX_PREDICTOR_TIMEOUT", "15s")
	t.Setenv("CLINDX_DASHBOARD_TIMEZONE", "Asia/Kolkata")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9191, m.GetServerConfig().Port)
	assert.Equal(t, "http://ml:8000/predict", m.GetPredictorConfig().URL)
	assert.Equal(t, 15*time.Second, m.GetPredictorConfig().Timeout)
	assert.Equal(t, "Asia/Kolkata", m.GetConfig().Dashboard.Timezone)
}

func TestManager_ConnectionStrings(t *testing.T) {
	m := &Manager{config: &domain.Config{
		Database: domain.DatabaseConfig{
			Host: "db", Port: 5433, Database: "clindx", Username: "doc", Password: "p@ss", SSLMode: "disable",
		},
		Cache: domain.CacheConfig{RedisURL: "redis://cache:6379"},
	}}

	assert.Equal(t, "host=db port=5433 user=doc password=p@ss dbname=clindx sslmode=disable", m.GetDatabaseConnectionString())
	assert.Equal(t, "postgres://doc:p%40ss@db:5433/clindx?sslmode=disable", m.GetDatabaseURL())
	assert.Equal(t, "redis://cache:6379", m.GetRedisConnectionString())
}

func validConfig() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Server:      domain.ServerConfig{Port: 8080},
		Database:    domain.DatabaseConfig{Host: "localhost", Database: "clindx", Username: "postgres"},
		Predictor: domain.PredictorConfig{
			URL:            "http://127.0.0.1:8000/predict",
			Timeout:        time.Minute,
			CircuitBreaker: domain.CircuitBreakerConfig{Enabled: true, FailureRatio: 0.6},
		},
		Cache:     domain.CacheConfig{Enabled: true, RedisURL: "redis://localhost:6379"},
		Logging:   domain.LoggingConfig{Level: "info"},
		Dashboard: domain.DashboardConfig{Timezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{"valid", func(*domain.Config) {}, ""},
		{"bad port", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"missing db host", func(c *domain.Config) { c.Database.Host = "" }, "database host is required"},
		{"relative predictor url", func(c *domain.Config) { c.Predictor.URL = "/predict" }, "invalid predictor URL"},
		{"predictor disabled", func(c *domain.Config) { c.Predictor.URL = "" }, ""},
		{"bad failure ratio", func(c *domain.Config) { c.Predictor.CircuitBreaker.FailureRatio = 1.5 }, "failure ratio"},
		{"cache without redis", func(c *domain.Config) { c.Cache.RedisURL = "" }, "Redis URL is required"},
		{"cache disabled", func(c *domain.Config) { c.Cache = domain.CacheConfig{} }, ""},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"bad timezone", func(c *domain.Config) { c.Dashboard.Timezone = "Mars/Base" }, "invalid dashboard timezone"},
		{"production without secret", func(c *domain.Config) { c.Environment = "production" }, "jwt_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
