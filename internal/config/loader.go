package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for every setting.
const envPrefix = "CONTRACTNEST"

// newViper returns a Viper reading YAML with CONTRACTNEST_ env overrides, so
// "database.host" resolves to CONTRACTNEST_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges environment overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CONTRACTNEST_* environment variables and
// defaults only.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	for _, key := range envBoundKeys {
		_ = v.BindEnv(key)
	}
	return unmarshalAndFinalize(v)
}

// envBoundKeys lists keys that must be bound explicitly because AutomaticEnv
// only resolves keys viper already knows about.
var envBoundKeys = []string{
	"server.port", "server.grpc_port",
	"database.driver", "database.host", "database.port", "database.user",
	"database.password", "database.db_name", "database.ssl_mode", "database.auto_migrate",
	"redis.enabled", "redis.addr", "redis.password", "redis.db",
	"kafka.enabled", "kafka.brokers", "kafka.group_id",
	"lifecycle.source",
	"scheduler.overdue_sweep_spec",
	"log.level", "log.format",
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with every successfully
// parsed and validated revision. Invalid revisions are reported to onError
// (which may be nil) and never reach onChange, so the caller keeps running on
// the last good configuration.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error. main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
