package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the config file written by `tally init`.
const FileName = "tally.yaml"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverCSV    = "csv"
)

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Reports ReportsConfig `yaml:"reports"`
	Log     LogConfig     `yaml:"log"`
	Git     GitConfig     `yaml:"git"`
}

// StorageConfig selects where imported transactions are kept.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite or csv
	Path   string `yaml:"path"`   // database file or ledger directory
}

// ServerConfig controls `tally serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// ReportsConfig sizes the spending reports.
type ReportsConfig struct {
	FraudThreshold string `yaml:"fraud_threshold"` // decimal, kept as text to stay exact
	MonthlyDefault int    `yaml:"monthly_default"`
	MonthlyMax     int    `yaml:"monthly_max"`
	TopMerchants   int    `yaml:"top_merchants"`
	Biggest        int    `yaml:"biggest"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level     string `yaml:"level"`
	Pretty    bool   `yaml:"pretty"`
	ImportLog string `yaml:"import_log"`
}

// GitConfig controls git integration for the csv driver.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a tally.yaml file from disk. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "tally.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Reports: ReportsConfig{
			FraudThreshold: "400",
			MonthlyDefault: 6,
			MonthlyMax:     24,
			TopMerchants:   15,
			Biggest:        20,
		},
		Log: LogConfig{
			Level:     "info",
			Pretty:    true,
			ImportLog: filepath.Join("logs", "import-log.csv"),
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Tally",
			AuthorEmail: "tally@localhost",
		},
	}
}

// ApplyEnv overrides fields from TALLY_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TALLY_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("TALLY_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("TALLY_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("TALLY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TALLY_FRAUD_THRESHOLD"); v != "" {
		c.Reports.FraudThreshold = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite, DriverCSV:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverCSV, c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if t, err := c.FraudThreshold(); err != nil {
		errs = append(errs, err)
	} else if !t.IsPositive() {
		errs = append(errs, fmt.Errorf("reports.fraud_threshold must be positive, got %s", t))
	}
	for name, v := range map[string]int{
		"reports.monthly_default": c.Reports.MonthlyDefault,
		"reports.monthly_max":     c.Reports.MonthlyMax,
		"reports.top_merchants":   c.Reports.TopMerchants,
		"reports.biggest":         c.Reports.Biggest,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.Reports.MonthlyMax < c.Reports.MonthlyDefault {
		errs = append(errs, fmt.Errorf("reports.monthly_max (%d) is below monthly_default (%d)", c.Reports.MonthlyMax, c.Reports.MonthlyDefault))
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

// FraudThreshold parses reports.fraud_threshold.
func (c *Config) FraudThreshold() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Reports.FraudThreshold))
	if err != nil {
		return decimal.Zero, fmt.Errorf("reports.fraud_threshold %s: %w", strconv.Quote(c.Reports.FraudThreshold), err)
	}
	return d, nil
}

// Resolve makes p absolute relative to the project root. Absolute paths are
// returned unchanged.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
