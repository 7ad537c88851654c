package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultGRPCPort, cfg.Server.GRPCPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, LifecycleSourceFile, cfg.Lifecycle.Source)
	assert.Equal(t, DefaultOverdueSweepSpec, cfg.Scheduler.OverdueSweepSpec)
	assert.Equal(t, DefaultIdempotencyTTL, cfg.Idempotency.ResultTTL)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Database.Driver = DriverMemory
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"memory skips postgres checks", func(c *Config) {
			c.Database.Driver = DriverMemory
			c.Database.User = ""
		}, ""},
		{"postgres needs user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"redis addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"kafka brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
		{"lifecycle source", func(c *Config) { c.Lifecycle.Source = "etcd" }, "lifecycle.source"},
		{"postgres tables need postgres driver", func(c *Config) {
			c.Database.Driver = DriverMemory
			c.Lifecycle.Source = LifecycleSourcePostgres
		}, "requires database.driver postgres"},
		{"empty table", func(c *Config) {
			c.Lifecycle.Tables = map[string]EventTypeTableConfig{"service": {}}
		}, "declares no statuses"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Database.User = "scheduler"
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
