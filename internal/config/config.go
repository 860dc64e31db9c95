// Package config loads service configuration from an optional YAML file and
// STATIONKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/stationkit/stationkit/internal/database"
	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/request"
)

// EnvPrefix prefixes every environment override, e.g. STATIONKIT_SERVER_PORT.
const EnvPrefix = "STATIONKIT"

// Source kinds.
const (
	SourceMemory   = "memory"
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// Config holds all service configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Settings      SettingsConfig      `mapstructure:"settings"`
	Source        SourceConfig        `mapstructure:"source"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	PubSub        PubSubConfig        `mapstructure:"pubsub"`
	Interpolation InterpolationConfig `mapstructure:"interpolation"`
	Sync          SyncConfig          `mapstructure:"sync"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// SettingsConfig holds the request output defaults.
type SettingsConfig struct {
	Tidy     bool `mapstructure:"tidy"`
	Humanize bool `mapstructure:"humanize"`
	SIUnits  bool `mapstructure:"si_units"`
}

// SourceConfig selects where station lists come from.
type SourceConfig struct {
	Kind    string        `mapstructure:"kind"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
}

type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Subscription string `mapstructure:"subscription"`
}

type InterpolationConfig struct {
	PoolSize          int     `mapstructure:"pool_size"`
	MinStations       int     `mapstructure:"min_stations"`
	CriticalThreshold float64 `mapstructure:"critical_threshold"`
	MaxIterations     int     `mapstructure:"max_iterations"`
}

// SyncConfig lists the catalogs the worker refreshes, as
// "provider/resolution" pairs.
type SyncConfig struct {
	Catalogs []string `mapstructure:"catalogs"`
}

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("settings.tidy", true)
	v.SetDefault("settings.humanize", true)
	v.SetDefault("settings.si_units", true)
	v.SetDefault("source.kind", SourceMemory)
	v.SetDefault("source.base_url", "")
	v.SetDefault("source.timeout", 10*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "stationkit")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "stationkit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.subscription", "")
	v.SetDefault("interpolation.pool_size", 20)
	v.SetDefault("interpolation.min_stations", 3)
	v.SetDefault("interpolation.critical_threshold", 0.05)
	v.SetDefault("interpolation.max_iterations", 0)
	v.SetDefault("sync.catalogs", []string{"dwd_observation/daily", "dwd_observation/hourly"})
}

// Load reads stationkit.yaml from the working directory, ./config or
// $HOME/.stationkit when present, then applies environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("stationkit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.stationkit")
	return load(v)
}

// LoadFile reads the given YAML file, then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Source.Kind {
	case SourceMemory, SourcePostgres:
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("%w: source.base_url is required for the http source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: source.kind %q", ErrInvalidConfig, c.Source.Kind)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	if c.Interpolation.CriticalThreshold < 0 {
		return fmt.Errorf("%w: interpolation.critical_threshold must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Logger builds the service logger.
func (c *Config) Logger(service, version string) zerolog.Logger {
	return c.newLogger(os.Stdout, service, version)
}

func (c *Config) newLogger(w io.Writer, service, version string) zerolog.Logger {
	if strings.EqualFold(c.Log.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// RequestSettings returns the request output defaults.
func (c *Config) RequestSettings() request.Settings {
	return request.Settings{
		Tidy:     c.Settings.Tidy,
		Humanize: c.Settings.Humanize,
		SIUnits:  c.Settings.SIUnits,
	}
}

// DB returns the pool settings.
func (c *Config) DB() database.Config {
	return database.Config{
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		Name:            c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// InterpolationOptions returns the candidate selection settings. Zero values
// fall back to the selector defaults.
func (c *Config) InterpolationOptions(logger zerolog.Logger) interpolation.Config {
	return interpolation.Config{
		PoolSize:          c.Interpolation.PoolSize,
		MinStations:       c.Interpolation.MinStations,
		CriticalThreshold: c.Interpolation.CriticalThreshold,
		MaxIterations:     c.Interpolation.MaxIterations,
		Logger:            logger,
	}
}
