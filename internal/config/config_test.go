package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = DriverCSV
	cfg.Storage.Path = "ledger"
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "tally.db", cfg.Storage.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "400", cfg.Reports.FraudThreshold)
	assert.Equal(t, 6, cfg.Reports.MonthlyDefault)
	assert.Equal(t, 24, cfg.Reports.MonthlyMax)
	assert.Equal(t, 15, cfg.Reports.TopMerchants)
	assert.Equal(t, 20, cfg.Reports.Biggest)
	assert.Equal(t, filepath.Join("logs", "import-log.csv"), cfg.Log.ImportLog)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: csv\n  path: ledger\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverCSV, cfg.Storage.Driver)
	assert.Equal(t, 15, cfg.Reports.TopMerchants)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("storage: [\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "driver: sqlite")
	assert.Contains(t, contents, `fraud_threshold: "400"`)
	assert.Contains(t, contents, "top_merchants: 15")
	assert.Contains(t, contents, "auto_commit: true")
	assert.NotContains(t, contents, "allowed_origins")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TALLY_STORAGE_DRIVER", "csv")
	t.Setenv("TALLY_STORAGE_PATH", "/srv/ledger")
	t.Setenv("TALLY_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("TALLY_LOG_LEVEL", "debug")
	t.Setenv("TALLY_FRAUD_THRESHOLD", "250.50")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "csv", cfg.Storage.Driver)
	assert.Equal(t, "/srv/ledger", cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	d, err := cfg.FraudThreshold()
	require.NoError(t, err)
	assert.Equal(t, "250.5", d.String())
}

func TestApplyEnv_UnsetKeepsValues(t *testing.T) {
	t.Setenv("TALLY_STORAGE_DRIVER", "")
	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"driver", func(c *Config) { c.Storage.Driver = "postgres" }, `storage.driver must be "sqlite" or "csv"`},
		{"path", func(c *Config) { c.Storage.Path = " " }, "storage.path is required"},
		{"threshold text", func(c *Config) { c.Reports.FraudThreshold = "lots" }, "reports.fraud_threshold"},
		{"threshold sign", func(c *Config) { c.Reports.FraudThreshold = "-1" }, "must be positive"},
		{"top merchants", func(c *Config) { c.Reports.TopMerchants = 0 }, "reports.top_merchants must be positive"},
		{"monthly window", func(c *Config) { c.Reports.MonthlyMax = 3 }, "below monthly_default"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", "tally.db"), Resolve("/proj", "tally.db"))
	assert.Equal(t, "/abs/tally.db", Resolve("/proj", "/abs/tally.db"))
	assert.Equal(t, "", Resolve("/proj", ""))
}
