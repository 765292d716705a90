package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// clearCredentialEnv blanks every variable the config overlay reads
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_TOKEN", "CLOUDFLARE_API_TOKEN",
		"ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID",
		"DATABASE_ID", "CLOUDFLARE_DATABASE_ID",
		"DATASET_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty config path uses default", func(t *testing.T) {
		clearCredentialEnv(t)
		// Move to a temporary directory where modelsync.yml doesn't exist
		tempDir := t.TempDir()
		originalWd, _ := os.Getwd()
		defer os.Chdir(originalWd)
		os.Chdir(tempDir)

		cfg := LoadConfig("")

		if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
			t.Errorf("LoadConfig(\"\") mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("non-existent file falls back to default", func(t *testing.T) {
		clearCredentialEnv(t)
		cfg := LoadConfig(filepath.Join(t.TempDir(), "non_existent_file.yml"))

		if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid YAML falls back to default", func(t *testing.T) {
		clearCredentialEnv(t)
		tempFile := filepath.Join(t.TempDir(), "invalid.yml")

		invalidYAML := `
invalid yaml structure:
  - unclosed bracket: [
  - missing closing bracket
  malformed:
    - key: value: extra colon
`
		if err := os.WriteFile(tempFile, []byte(invalidYAML), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		cfg := LoadConfig(tempFile)

		if diff := cmp.Diff(NewDefaultConfig(), cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("valid config file is loaded", func(t *testing.T) {
		clearCredentialEnv(t)
		tempFile := filepath.Join(t.TempDir(), "valid.yml")

		validYAML := `
source:
  url: "https://example.com/models.csv"
  timeout: "30s"
  delimiter: ";"
  header: "true"
  nullValues: ["NaN", "N/A"]
d1:
  baseUrl: "http://localhost:8787"
  apiToken: "file-token"
  accountId: "file-account"
  databaseId: "file-db"
  batchSize: 250
schema:
  table: "devices"
  ftsTable: "devices_fts"
  ftsSync: "bulk"
mirror:
  path: "state/devices.db"
state:
  previewPath: "out/update.sql"
log:
  file: "modelsync.log"
dryRun: true
`
		if err := os.WriteFile(tempFile, []byte(validYAML), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		cfg := LoadConfig(tempFile)

		expected := NewDefaultConfig()
		expected.Source = SourceConfig{
			URL:        "https://example.com/models.csv",
			Timeout:    "30s",
			Delimiter:  ";",
			Header:     HeaderAlways,
			NullValues: []string{"NaN", "N/A"},
		}
		expected.D1 = D1Config{
			BaseURL:    "http://localhost:8787",
			APIToken:   "file-token",
			AccountID:  "file-account",
			DatabaseID: "file-db",
			BatchSize:  250,
			Timeout:    "120s",
		}
		expected.Schema = SchemaConfig{Table: "devices", FTSTable: "devices_fts", FTSSync: FTSSyncBulk}
		expected.Mirror.Path = "state/devices.db"
		expected.State.PreviewPath = "out/update.sql"
		expected.Log.File = "modelsync.log"
		expected.DryRun = true

		if diff := cmp.Diff(expected, cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
		if !cfg.UploadEnabled() {
			t.Error("UploadEnabled() = false with credentials in the file")
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearCredentialEnv(t)
		tempFile := filepath.Join(t.TempDir(), "env.yml")
		if err := os.WriteFile(tempFile, []byte("d1:\n  apiToken: \"file-token\"\n"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		t.Setenv("API_TOKEN", "env-token")
		t.Setenv("CLOUDFLARE_ACCOUNT_ID", "env-account")
		t.Setenv("DATABASE_ID", "env-db")
		t.Setenv("DATASET_URL", "file:///tmp/models.csv")

		cfg := LoadConfig(tempFile)

		if cfg.D1.APIToken != "env-token" {
			t.Errorf("APIToken = %q, want %q", cfg.D1.APIToken, "env-token")
		}
		if cfg.D1.AccountID != "env-account" {
			t.Errorf("AccountID = %q, want %q", cfg.D1.AccountID, "env-account")
		}
		if cfg.D1.DatabaseID != "env-db" {
			t.Errorf("DatabaseID = %q, want %q", cfg.D1.DatabaseID, "env-db")
		}
		if cfg.Source.URL != "file:///tmp/models.csv" {
			t.Errorf("Source.URL = %q, want %q", cfg.Source.URL, "file:///tmp/models.csv")
		}
		if !cfg.UploadEnabled() {
			t.Error("UploadEnabled() = false with all credentials set")
		}
	})

	t.Run("short names win over prefixed aliases", func(t *testing.T) {
		clearCredentialEnv(t)
		t.Setenv("API_TOKEN", "short")
		t.Setenv("CLOUDFLARE_API_TOKEN", "prefixed")

		cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		if cfg.D1.APIToken != "short" {
			t.Errorf("APIToken = %q, want %q", cfg.D1.APIToken, "short")
		}
	})
}

func TestSetDefaultsIfNeeded(t *testing.T) {
	cfg := Config{
		Source: SourceConfig{URL: "https://example.com/models.csv"},
		D1:     D1Config{BatchSize: 100},
		Schema: SchemaConfig{Table: "devices"},
	}

	setDefaultsIfNeeded(&cfg)

	defaults := NewDefaultConfig()
	if cfg.Source.URL != "https://example.com/models.csv" {
		t.Errorf("Source.URL overwritten: %q", cfg.Source.URL)
	}
	if cfg.D1.BatchSize != 100 {
		t.Errorf("D1.BatchSize overwritten: %d", cfg.D1.BatchSize)
	}
	if cfg.Schema.Table != "devices" {
		t.Errorf("Schema.Table overwritten: %q", cfg.Schema.Table)
	}
	if cfg.Schema.FTSTable != defaults.Schema.FTSTable {
		t.Errorf("Schema.FTSTable = %q, want default %q", cfg.Schema.FTSTable, defaults.Schema.FTSTable)
	}
	if diff := cmp.Diff(defaults.State, cfg.State); diff != "" {
		t.Errorf("State defaults mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(defaults.Log, cfg.Log); diff != "" {
		t.Errorf("Log defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Source.Timeout != "60s" || cfg.D1.Timeout != "120s" {
		t.Errorf("timeouts = %q/%q, want 60s/120s", cfg.Source.Timeout, cfg.D1.Timeout)
	}
	if cfg.DryRun {
		t.Error("DryRun should default to false")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{name: "defaults are valid", modify: func(c *Config) {}},
		{name: "tab delimiter", modify: func(c *Config) { c.Source.Delimiter = "\t" }},
		{name: "missing url", modify: func(c *Config) { c.Source.URL = "" }, errContains: "source url is required"},
		{name: "bad source timeout", modify: func(c *Config) { c.Source.Timeout = "soon" }, errContains: "source timeout"},
		{name: "negative source timeout", modify: func(c *Config) { c.Source.Timeout = "-1s" }, errContains: "must be positive"},
		{name: "multi-character delimiter", modify: func(c *Config) { c.Source.Delimiter = ";;" }, errContains: "single character"},
		{name: "quote delimiter", modify: func(c *Config) { c.Source.Delimiter = `"` }, errContains: "not allowed"},
		{name: "unknown header policy", modify: func(c *Config) { c.Source.Header = "yes" }, errContains: "source header"},
		{name: "zero batch size", modify: func(c *Config) { c.D1.BatchSize = 0 }, errContains: "batchSize"},
		{name: "oversized batch", modify: func(c *Config) { c.D1.BatchSize = MaxBatchSize + 1 }, errContains: "batchSize"},
		{name: "bad d1 timeout", modify: func(c *Config) { c.D1.Timeout = "" }, errContains: "d1 timeout"},
		{
			name: "credentials without base url",
			modify: func(c *Config) {
				c.D1.APIToken, c.D1.AccountID, c.D1.DatabaseID = "t", "a", "d"
				c.D1.BaseURL = ""
			},
			errContains: "baseUrl",
		},
		{name: "invalid table name", modify: func(c *Config) { c.Schema.Table = "phone-models" }, errContains: "schema: invalid table name"},
		{name: "unknown fts sync", modify: func(c *Config) { c.Schema.FTSSync = "manual" }, errContains: "ftsSync"},
		{name: "missing state path", modify: func(c *Config) { c.State.FingerprintPath = "" }, errContains: "state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(&cfg)
			err := ValidateConfig(cfg)
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("ValidateConfig() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateConfig() expected error containing %q", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateConfig() error = %q, want it to contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Source.Delimiter = "\t"
	cfg.Source.NullValues = []string{"NaN"}

	expected := ParseOptions{Delimiter: '\t', Header: HeaderAuto, NullValues: []string{"NaN"}}
	if diff := cmp.Diff(expected, cfg.ParseOptions()); diff != "" {
		t.Errorf("ParseOptions() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultSchema(), cfg.SchemaSpec()); diff != "" {
		t.Errorf("SchemaSpec() mismatch (-want +got):\n%s", diff)
	}
	if cfg.SourceTimeout().Seconds() != 60 || cfg.D1Timeout().Seconds() != 120 {
		t.Errorf("timeouts = %v/%v, want 60s/120s", cfg.SourceTimeout(), cfg.D1Timeout())
	}
	if cfg.UploadEnabled() {
		t.Error("UploadEnabled() = true without credentials")
	}
	cfg.D1.APIToken, cfg.D1.AccountID = "t", "a"
	if cfg.UploadEnabled() {
		t.Error("UploadEnabled() = true with a missing database id")
	}
}
