package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RECRUITMETRICS_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "Recruitment Analytics", cfg.App.Name)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, filepath.Join(home, ".local", "share", "recruitmetrics", "recruitmetrics.db"), cfg.Database.Path)
	require.Equal(t, time.Hour, cfg.Metrics.CacheTTL)
	require.Equal(t, 4, cfg.Metrics.DefaultWeeks)
	require.Equal(t, 12, cfg.Metrics.MaxWeeks)
	require.Equal(t, []int{4, 8, 12}, cfg.Metrics.WeekOptions)
	require.Equal(t, []string{"Sam Nadler", "Jordan Metzner"}, cfg.Metrics.OnsiteInterviewers)
	require.Equal(t, int64(5*1024*1024), cfg.Ingest.MaxUploadSize)
	require.Equal(t, 1000, cfg.Ingest.ChunkSize)
	require.Equal(t, DefaultDateLayouts, cfg.Ingest.DateLayouts)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	home := isolateEnv(t)

	path := filepath.Join(home, "custom.toml")
	contents := `
[metrics]
default_weeks = 8
onsite_interviewers = ["Alex Onsite"]
timezone = "America/New_York"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv("RECRUITMETRICS_CONFIG", path)
	t.Setenv("RECRUITMETRICS_SERVER_ADDR", ":9090")
	t.Setenv("RECRUITMETRICS_METRICS_CACHE_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8, cfg.Metrics.DefaultWeeks)
	require.Equal(t, []string{"Alex Onsite"}, cfg.Metrics.OnsiteInterviewers)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, 15*time.Minute, cfg.Metrics.CacheTTL)
	require.Equal(t, "America/New_York", cfg.Location().String())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("RECRUITMETRICS_CONFIG", filepath.Join(home, "nope.toml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDatabaseURLFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("RECRUITMETRICS_DATABASE_DRIVER", "postgres")
	t.Setenv("SUPABASE_DB_URL", "postgres://user:pw@db.example.supabase.co:5432/postgres")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, "postgres://user:pw@db.example.supabase.co:5432/postgres", cfg.Database.URL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	isolateEnv(t)
	base, err := Load()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.URL = "" }},
		{"zero weeks", func(c *Config) { c.Metrics.DefaultWeeks = 0 }},
		{"default above max", func(c *Config) { c.Metrics.DefaultWeeks = 20 }},
		{"week option above max", func(c *Config) { c.Metrics.WeekOptions = []int{4, 52} }},
		{"zero chunk", func(c *Config) { c.Ingest.ChunkSize = 0 }},
		{"bad timezone", func(c *Config) { c.Metrics.Timezone = "Mars/Olympus" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			c.Metrics.WeekOptions = append([]int(nil), base.Metrics.WeekOptions...)
			tc.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := isolateEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Metrics.DefaultWeeks = 8
	cfg.Log.Level = "warn"
	require.NoError(t, Save(cfg))
	require.FileExists(t, filepath.Join(home, ".config", "recruitmetrics", "config.toml"))

	reloaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8, reloaded.Metrics.DefaultWeeks)
	require.Equal(t, "warn", reloaded.Log.Level)
}
