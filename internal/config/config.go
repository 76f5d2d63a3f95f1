package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Metrics  MetricsConfig
	Ingest   IngestConfig
	Server   ServerConfig
	Log      LogConfig
}

// AppConfig holds identity settings shown in the dashboard header.
type AppConfig struct {
	Name    string
	Version string
	Debug   bool
}

// DatabaseConfig selects the storage backend. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver       string
	Path         string
	URL          string
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// MetricsConfig holds calculation and caching settings.
type MetricsConfig struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheSize          int           `mapstructure:"cache_size"`
	DefaultWeeks       int           `mapstructure:"default_weeks"`
	MaxWeeks           int           `mapstructure:"max_weeks"`
	WeekOptions        []int         `mapstructure:"week_options"`
	SourceWeeks        int           `mapstructure:"source_weeks"`
	OnsiteInterviewers []string      `mapstructure:"onsite_interviewers"`
	Timezone           string
}

// IngestConfig holds CSV upload settings.
type IngestConfig struct {
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
	ChunkSize     int      `mapstructure:"chunk_size"`
	DateLayouts   []string `mapstructure:"date_layouts"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr              string
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

// LogConfig holds logger settings. Format is "text" or "json".
type LogConfig struct {
	Level  string
	Format string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDateLayouts are tried in order when parsing "Interview Date TZ".
// The first matches the ATS export (e.g. 03/14/24 09:30).
var DefaultDateLayouts = []string{
	"01/02/06 15:04",
	"1/2/06 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// Load reads configuration from .env, file and env. Env var overrides use prefix RECRUITMETRICS_.
// Callers run Validate once credentials from other sources have been applied.
func Load() (Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("RECRUITMETRICS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "recruitmetrics"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("RECRUITMETRICS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// hosted database URLs follow the conventional variable names
	if c.Database.URL == "" {
		c.Database.URL = firstEnv("DATABASE_URL", "SUPABASE_DB_URL")
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Recruitment Analytics")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", false)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "recruitmetrics", "recruitmetrics.db"))
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("metrics.cache_ttl", time.Hour)
	v.SetDefault("metrics.cache_size", 64)
	v.SetDefault("metrics.default_weeks", 4)
	v.SetDefault("metrics.max_weeks", 12)
	v.SetDefault("metrics.week_options", []int{4, 8, 12})
	v.SetDefault("metrics.source_weeks", 16)
	v.SetDefault("metrics.onsite_interviewers", []string{"Sam Nadler", "Jordan Metzner"})
	v.SetDefault("metrics.timezone", "UTC")

	v.SetDefault("ingest.max_upload_size", 5*1024*1024)
	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.date_layouts", DefaultDateLayouts)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.read_header_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks cross-field constraints after loading.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("database.url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Metrics.DefaultWeeks <= 0 || c.Metrics.MaxWeeks <= 0 {
		return errors.New("metrics weeks must be positive")
	}
	if c.Metrics.DefaultWeeks > c.Metrics.MaxWeeks {
		return fmt.Errorf("metrics.default_weeks (%d) exceeds metrics.max_weeks (%d)", c.Metrics.DefaultWeeks, c.Metrics.MaxWeeks)
	}
	for _, w := range c.Metrics.WeekOptions {
		if w <= 0 || w > c.Metrics.MaxWeeks {
			return fmt.Errorf("metrics.week_options entry %d outside 1..%d", w, c.Metrics.MaxWeeks)
		}
	}
	if c.Ingest.ChunkSize <= 0 {
		return errors.New("ingest.chunk_size must be positive")
	}
	if c.Ingest.MaxUploadSize <= 0 {
		return errors.New("ingest.max_upload_size must be positive")
	}
	if _, err := time.LoadLocation(c.Metrics.Timezone); err != nil {
		return fmt.Errorf("metrics.timezone: %w", err)
	}
	return nil
}

// Location returns the configured reporting timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Metrics.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path is where Save writes: RECRUITMETRICS_CONFIG, or config.toml in the
// per-user config directory.
func Path() string {
	if p := os.Getenv("RECRUITMETRICS_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "recruitmetrics", "config.toml")
}

// Save writes the provided config to disk, creating the config directory if needed.
// The database URL is left out; it belongs in the environment or the credential store.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("app.name", cfg.App.Name)
	v.Set("app.debug", cfg.App.Debug)
	v.Set("database.driver", cfg.Database.Driver)
	v.Set("database.path", cfg.Database.Path)
	v.Set("metrics.default_weeks", cfg.Metrics.DefaultWeeks)
	v.Set("metrics.max_weeks", cfg.Metrics.MaxWeeks)
	v.Set("metrics.onsite_interviewers", cfg.Metrics.OnsiteInterviewers)
	v.Set("metrics.timezone", cfg.Metrics.Timezone)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
