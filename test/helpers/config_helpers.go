package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
)

// ConfigHelper provides utilities for creating test configurations
type ConfigHelper struct {
	t       *testing.T
	tempDir string
}

// NewConfigHelper creates a new config helper
func NewConfigHelper(t *testing.T) *ConfigHelper {
	t.Helper()

	return &ConfigHelper{
		t:       t,
		tempDir: t.TempDir(),
	}
}

// TestSourceConfig represents the dataset section of a test configuration
type TestSourceConfig struct {
	URL        string   `yaml:"url"`
	Timeout    string   `yaml:"timeout,omitempty"`
	Delimiter  string   `yaml:"delimiter,omitempty"`
	Header     string   `yaml:"header,omitempty"`
	NullValues []string `yaml:"nullValues,omitempty"`
}

// TestD1Config represents the remote database section of a test configuration
type TestD1Config struct {
	BaseURL    string `yaml:"baseUrl,omitempty"`
	APIToken   string `yaml:"apiToken,omitempty"`
	AccountID  string `yaml:"accountId,omitempty"`
	DatabaseID string `yaml:"databaseId,omitempty"`
	BatchSize  int    `yaml:"batchSize,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
}

// TestSchemaConfig represents the schema section of a test configuration
type TestSchemaConfig struct {
	Table    string `yaml:"table,omitempty"`
	FTSTable string `yaml:"ftsTable,omitempty"`
	FTSSync  string `yaml:"ftsSync,omitempty"`
}

// TestMirrorConfig represents the local mirror section of a test configuration
type TestMirrorConfig struct {
	Path string `yaml:"path,omitempty"`
}

// TestStateConfig represents the local state files of a test configuration
type TestStateConfig struct {
	PreviewPath     string `yaml:"previewPath"`
	FingerprintPath string `yaml:"fingerprintPath"`
	RunRecordPath   string `yaml:"runRecordPath"`
}

// TestConfig represents the complete test configuration
type TestConfig struct {
	Source TestSourceConfig `yaml:"source"`
	D1     TestD1Config     `yaml:"d1"`
	Schema TestSchemaConfig `yaml:"schema,omitempty"`
	Mirror TestMirrorConfig `yaml:"mirror,omitempty"`
	State  TestStateConfig  `yaml:"state"`
	DryRun bool             `yaml:"dryRun,omitempty"`
}

// CreateBasicConfig creates a configuration reading sourceURL, with every
// state file placed in the helper's temporary directory
func (ch *ConfigHelper) CreateBasicConfig(sourceURL string) *TestConfig {
	return &TestConfig{
		Source: TestSourceConfig{
			URL:     sourceURL,
			Timeout: "5s",
		},
		D1: TestD1Config{
			BatchSize: 400,
			Timeout:   "5s",
		},
		State: TestStateConfig{
			PreviewPath:     filepath.Join(ch.tempDir, "update.sql"),
			FingerprintPath: filepath.Join(ch.tempDir, "data_hash.txt"),
			RunRecordPath:   filepath.Join(ch.tempDir, "update_time.txt"),
		},
	}
}

// CreateD1Config creates a configuration uploading to the D1 API served at baseURL
func (ch *ConfigHelper) CreateD1Config(sourceURL, baseURL string) *TestConfig {
	config := ch.CreateBasicConfig(sourceURL)
	config.D1.BaseURL = baseURL
	config.D1.APIToken = "test-token"
	config.D1.AccountID = "test-account"
	config.D1.DatabaseID = "test-database"
	return config
}

// WithMirror enables the local SQLite mirror inside the temporary directory
func (ch *ConfigHelper) WithMirror(config *TestConfig, filename string) string {
	config.Mirror.Path = filepath.Join(ch.tempDir, filename)
	return config.Mirror.Path
}

// SaveConfigToFile saves a configuration to a YAML file
func (ch *ConfigHelper) SaveConfigToFile(config *TestConfig, filename string) string {
	ch.t.Helper()

	filePath := filepath.Join(ch.tempDir, filename)

	// Create directory if needed
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		ch.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		ch.t.Fatalf("Failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		ch.t.Fatalf("Failed to write config file %s: %v", filePath, err)
	}

	return filePath
}

// GetTempDir returns the temporary directory used for configs and state
func (ch *ConfigHelper) GetTempDir() string {
	return ch.tempDir
}
