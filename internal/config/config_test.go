package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/report"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PGURL", "DATABASE_URL", "PGIH_SCHEMA", "PGIH_TIMEOUT", "PGIH_REPORT_FORMAT",
		"PGIH_POOL_MAX_CONNS", "PGIH_EXCLUDE_TABLES", "PGIH_ONLY", "PGIH_LOG_LEVEL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PGURL", "postgres://db-1:5432/app")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Schema != "public" {
		t.Errorf("expected Schema=public, got %q", cfg.Schema)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected Timeout=%v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.BloatPercentageThreshold != 10 || cfg.RemainingPercentageThreshold != 10 {
		t.Errorf("unexpected thresholds: %d, %v", cfg.BloatPercentageThreshold, cfg.RemainingPercentageThreshold)
	}
	if cfg.Pool.MaxConns != 4 {
		t.Errorf("expected Pool.MaxConns=4, got %d", cfg.Pool.MaxConns)
	}
	if cfg.Report.Format != report.FormatConsole {
		t.Errorf("expected console format, got %q", cfg.Report.Format)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialInterval != 500*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.Retry)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db-9:5432/app")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.URL != "postgres://db-9:5432/app" {
		t.Errorf("expected DATABASE_URL fallback, got %q", cfg.URL)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pgindexhealth.yaml")
	yamlContent := `
url: "postgres://db-1:5432,db-2:5432/app"
schema: "audit"
timeout: "1m"
pool:
  max_conns: 8
exclusions:
  tables: ["events", "audit_log"]
  index_size_threshold: 1048576
report:
  format: "JSON"
  suppress: ["unused-indexes"]
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PGIH_SCHEMA", "billing")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Schema != "billing" {
		t.Errorf("expected Schema=billing (from env), got %q", cfg.Schema)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("expected Timeout=1m, got %v", cfg.Timeout)
	}
	if cfg.Pool.MaxConns != 8 {
		t.Errorf("expected Pool.MaxConns=8, got %d", cfg.Pool.MaxConns)
	}
	if len(cfg.Exclusions.Tables) != 2 || cfg.Exclusions.IndexSizeThreshold != 1<<20 {
		t.Errorf("unexpected exclusions: %+v", cfg.Exclusions)
	}
	if cfg.Report.Format != report.FormatJSON {
		t.Errorf("expected format normalized to json, got %q", cfg.Report.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	sc, err := cfg.SchemaContext()
	if err != nil {
		t.Fatalf("SchemaContext() failed: %v", err)
	}
	if sc.Schema != "billing" {
		t.Errorf("expected schema context for billing, got %q", sc.Schema)
	}
	if opts := cfg.PoolOptions(); opts.MaxConns != 8 {
		t.Errorf("expected pool options MaxConns=8, got %d", opts.MaxConns)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func validConfig() Config {
	return Config{
		URL:                          "postgres://db-1:5432/app",
		Schema:                       "public",
		BloatPercentageThreshold:     10,
		RemainingPercentageThreshold: 10,
		Timeout:                      DefaultTimeout,
		Pool:                         PoolConfig{MaxConns: 4},
		Report:                       ReportConfig{Format: report.FormatHTML},
		Retry:                        RetryConfig{MaxAttempts: 1},
		Log:                          LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: true},
		{name: "url without port", mutate: func(c *Config) { c.URL = "postgres://db-1/app" }, wantErr: true},
		{name: "blank schema", mutate: func(c *Config) { c.Schema = " " }, wantErr: true},
		{name: "timeout too small", mutate: func(c *Config) { c.Timeout = time.Second }, wantErr: true},
		{name: "timeout too large", mutate: func(c *Config) { c.Timeout = time.Hour }, wantErr: true},
		{name: "negative call timeout", mutate: func(c *Config) { c.CallTimeout = -time.Second }, wantErr: true},
		{name: "zero pool", mutate: func(c *Config) { c.Pool.MaxConns = 0 }, wantErr: true},
		{name: "min above max", mutate: func(c *Config) { c.Pool.MinConns = 5 }, wantErr: true},
		{name: "unknown format", mutate: func(c *Config) { c.Report.Format = "pdf" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "bad exclusion", mutate: func(c *Config) { c.Exclusions.TableSizeThreshold = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, herrors.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestValidate_AcceptsEveryReportFormat keeps config in step with the writers.
func TestValidate_AcceptsEveryReportFormat(t *testing.T) {
	for _, f := range report.Formats() {
		c := validConfig()
		c.Report.Format = f
		if err := c.Validate(); err != nil {
			t.Errorf("format %q rejected: %v", f, err)
		}
	}

	c := validConfig()
	c.Report.Format = "pdf"
	err := c.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, f := range report.Formats() {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q does not list %q", err, f)
		}
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.URL = ""
	c.Timeout = 0
	c.Report.Format = "pdf"

	var me *herrors.MultiError
	if !errors.As(c.Validate(), &me) {
		t.Fatal("expected MultiError")
	}
	if len(me.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(me.Errors), me.Errors)
	}
}
