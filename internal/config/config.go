package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Store     StoreConfig          `mapstructure:"store"`
	Resolver  ResolverConfig       `mapstructure:"resolver"`
	Auth      AuthConfig           `mapstructure:"auth"`
	RateLimit RateLimitConfig      `mapstructure:"rate_limit"`
	Broadcast BroadcastConfig      `mapstructure:"broadcast"`
	Log       LogConfig            `mapstructure:"log"`
	Visits    models.VisitSettings `mapstructure:"visits"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port                string `mapstructure:"port"`
	ShutdownTimeoutSecs int    `mapstructure:"shutdown_timeout_secs"`
}

// StoreConfig configures the SQLite database
type StoreConfig struct {
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ResolverConfig selects the nearest-place implementation: "sqlite" uses
// the s2 cell index in the main database, "postgis" a PostGIS mirror.
type ResolverConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitConfig limits ping ingestion per user
type RateLimitConfig struct {
	PingsPerSecond float64 `mapstructure:"pings_per_second"`
	Burst          int     `mapstructure:"burst"`
}

// BroadcastConfig configures the in-process notification hub
type BroadcastConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml and VISITS_* environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VISITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	d := models.DefaultVisitSettings()

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("store.path", "./data/visits.db")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("resolver.driver", "sqlite")
	v.SetDefault("resolver.database_url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("rate_limit.pings_per_second", 2.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("broadcast.buffer_size", 16)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("visits.accuracy_reject_meters", d.AccuracyRejectMeters)
	v.SetDefault("visits.min_radius_meters", d.MinRadiusMeters)
	v.SetDefault("visits.max_radius_meters", d.MaxRadiusMeters)
	v.SetDefault("visits.accuracy_multiplier", d.AccuracyMultiplier)
	v.SetDefault("visits.search_radius_meters", d.SearchRadiusMeters)
	v.SetDefault("visits.hit_window_minutes", d.HitWindowMinutes)
	v.SetDefault("visits.required_hits", d.RequiredHits)
	v.SetDefault("visits.candidate_stale_minutes", d.CandidateStaleMinutes)
	v.SetDefault("visits.open_visit_stale_minutes", d.OpenVisitStaleMinutes)
	v.SetDefault("visits.notification_cooldown_hours", d.NotificationCooldownHours)
	v.SetDefault("visits.notes_snapshot_max_length", d.NotesSnapshotMaxLength)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if err := c.Visits.Validate(); err != nil {
		return eris.Wrap(err, "config: visits")
	}
	switch c.Resolver.Driver {
	case "sqlite":
	case "postgis":
		if c.Resolver.DatabaseURL == "" {
			return eris.New("config: resolver.database_url is required for the postgis driver")
		}
	default:
		return eris.Errorf("config: unknown resolver driver %q", c.Resolver.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return eris.New("config: auth.jwt_secret is required")
	}
	return nil
}

// InitLogger initializes the global zap logger
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
