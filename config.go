package main

import (
	"fmt"
	"log"
	"os"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

// DefaultConfigPath is read when no config path is given
const DefaultConfigPath = "modelsync.yml"

// DefaultDatasetURL is the published phone model CSV
const DefaultDatasetURL = "https://raw.githubusercontent.com/YuleBest/MobileModels-csv/refs/heads/main/models.csv"

// SourceConfig represents dataset retrieval and parsing settings
type SourceConfig struct {
	URL        string   `yaml:"url"`        // Dataset URL (http, https, file:// or local path)
	Timeout    string   `yaml:"timeout"`    // HTTP timeout, Go duration syntax (example: "60s")
	Delimiter  string   `yaml:"delimiter"`  // Single-character CSV delimiter
	Header     string   `yaml:"header"`     // "auto", "true" or "false"
	NullValues []string `yaml:"nullValues"` // Cell values treated as NULL besides the empty cell
}

// D1Config represents the remote database settings. Credentials usually come
// from the environment rather than the file.
type D1Config struct {
	BaseURL    string `yaml:"baseUrl"`    // API root, the query path is appended
	APIToken   string `yaml:"apiToken"`   // Bearer credential
	AccountID  string `yaml:"accountId"`  // Account identifier
	DatabaseID string `yaml:"databaseId"` // Database identifier
	BatchSize  int    `yaml:"batchSize"`  // Statements per request
	Timeout    string `yaml:"timeout"`    // Per-request timeout, Go duration syntax
}

// SchemaConfig represents the names of the rebuilt artifacts
type SchemaConfig struct {
	Table    string `yaml:"table"`    // Base table name
	FTSTable string `yaml:"ftsTable"` // Full-text table name
	FTSSync  string `yaml:"ftsSync"`  // "trigger" or "bulk"
}

// MirrorConfig represents the optional local SQLite copy
type MirrorConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables the mirror
}

// StateConfig represents the local files written by a run
type StateConfig struct {
	PreviewPath     string `yaml:"previewPath"`     // Generated SQL preview
	FingerprintPath string `yaml:"fingerprintPath"` // Digest of the last synced dataset
	RunRecordPath   string `yaml:"runRecordPath"`   // Time of the last successful sync
}

// LogConfig represents optional log file settings
type LogConfig struct {
	File       string `yaml:"file"`       // Log file path; empty logs to stderr only
	MaxSizeMB  int    `yaml:"maxSizeMB"`  // Rotate after this many megabytes
	MaxBackups int    `yaml:"maxBackups"` // Rotated files to keep
	MaxAgeDays int    `yaml:"maxAgeDays"` // Days to keep rotated files
}

// Config represents configuration information
type Config struct {
	Source SourceConfig `yaml:"source"`
	D1     D1Config     `yaml:"d1"`
	Schema SchemaConfig `yaml:"schema"`
	Mirror MirrorConfig `yaml:"mirror"`
	State  StateConfig  `yaml:"state"`
	Log    LogConfig    `yaml:"log"`
	DryRun bool         `yaml:"dryRun"` // Generate and report only, never upload
}

// NewDefaultConfig returns a Config struct with default values
func NewDefaultConfig() Config {
	schema := DefaultSchema()
	return Config{
		Source: SourceConfig{
			URL:       DefaultDatasetURL,
			Timeout:   "60s",
			Delimiter: ",",
			Header:    HeaderAuto,
		},
		D1: D1Config{
			BaseURL:   DefaultD1BaseURL,
			BatchSize: DefaultBatchSize,
			Timeout:   "120s",
		},
		Schema: SchemaConfig{
			Table:    schema.Table,
			FTSTable: schema.FTSTable,
			FTSSync:  schema.FTSSync,
		},
		State: StateConfig{
			PreviewPath:     "update.sql",
			FingerprintPath: "data_hash.txt",
			RunRecordPath:   "update_time.txt",
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// LoadConfig loads configuration from file specified by configPath and
// overlays credentials from the environment. Falls back to the default
// configuration if the file doesn't exist or contains errors.
func LoadConfig(configPath string) Config {
	cfg := loadConfigFile(configPath)
	applyEnv(&cfg, newEnv())
	return cfg
}

func loadConfigFile(configPath string) Config {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file '%s' not found. Using default configuration.", configPath)
		} else {
			log.Printf("Warning: Error reading config file %s: %v. Using default configuration.", configPath, err)
		}
		return NewDefaultConfig()
	}

	log.Printf("Using config file: %s", configPath)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("Warning: Could not parse config file %s: %v. Using default configuration.", configPath, err)
		return NewDefaultConfig()
	}

	setDefaultsIfNeeded(&cfg)
	return cfg
}

// newEnv binds the credential keys to their environment variables. The first
// variable that is set wins.
func newEnv() *viper.Viper {
	v := viper.New()
	_ = v.BindEnv("api_token", "API_TOKEN", "CLOUDFLARE_API_TOKEN")
	_ = v.BindEnv("account_id", "ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID")
	_ = v.BindEnv("database_id", "DATABASE_ID", "CLOUDFLARE_DATABASE_ID")
	_ = v.BindEnv("dataset_url", "DATASET_URL")
	return v
}

// applyEnv overrides file values with any environment value that is set
func applyEnv(cfg *Config, v *viper.Viper) {
	if s := v.GetString("api_token"); s != "" {
		cfg.D1.APIToken = s
	}
	if s := v.GetString("account_id"); s != "" {
		cfg.D1.AccountID = s
	}
	if s := v.GetString("database_id"); s != "" {
		cfg.D1.DatabaseID = s
	}
	if s := v.GetString("dataset_url"); s != "" {
		cfg.Source.URL = s
	}
}

// setDefaultsIfNeeded sets default values for fields that are not specified in the config file
func setDefaultsIfNeeded(cfg *Config) {
	defaultCfg := NewDefaultConfig()

	if cfg.Source.URL == "" {
		cfg.Source.URL = defaultCfg.Source.URL
	}
	if cfg.Source.Timeout == "" {
		cfg.Source.Timeout = defaultCfg.Source.Timeout
	}
	if cfg.Source.Delimiter == "" {
		cfg.Source.Delimiter = defaultCfg.Source.Delimiter
	}
	if cfg.Source.Header == "" {
		cfg.Source.Header = defaultCfg.Source.Header
	}

	if cfg.D1.BaseURL == "" {
		cfg.D1.BaseURL = defaultCfg.D1.BaseURL
	}
	if cfg.D1.BatchSize == 0 {
		cfg.D1.BatchSize = defaultCfg.D1.BatchSize
	}
	if cfg.D1.Timeout == "" {
		cfg.D1.Timeout = defaultCfg.D1.Timeout
	}

	if cfg.Schema.Table == "" {
		cfg.Schema.Table = defaultCfg.Schema.Table
	}
	if cfg.Schema.FTSTable == "" {
		cfg.Schema.FTSTable = defaultCfg.Schema.FTSTable
	}
	if cfg.Schema.FTSSync == "" {
		cfg.Schema.FTSSync = defaultCfg.Schema.FTSSync
	}

	if cfg.State.PreviewPath == "" {
		cfg.State.PreviewPath = defaultCfg.State.PreviewPath
	}
	if cfg.State.FingerprintPath == "" {
		cfg.State.FingerprintPath = defaultCfg.State.FingerprintPath
	}
	if cfg.State.RunRecordPath == "" {
		cfg.State.RunRecordPath = defaultCfg.State.RunRecordPath
	}

	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = defaultCfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = defaultCfg.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = defaultCfg.Log.MaxAgeDays
	}

	// Note: DryRun is a bool, so it will default to false if not specified in the config
}

// ValidateConfig checks if the configuration has all required values
func ValidateConfig(cfg Config) error {
	if cfg.Source.URL == "" {
		return fmt.Errorf("source url is required")
	}
	if _, err := parseTimeout(cfg.Source.Timeout); err != nil {
		return fmt.Errorf("source timeout: %w", err)
	}
	if utf8.RuneCountInString(cfg.Source.Delimiter) != 1 {
		return fmt.Errorf("source delimiter must be a single character, got '%s'", cfg.Source.Delimiter)
	}
	if r, _ := utf8.DecodeRuneInString(cfg.Source.Delimiter); r == '"' || r == '\r' || r == '\n' {
		return fmt.Errorf("source delimiter '%s' is not allowed", cfg.Source.Delimiter)
	}
	switch cfg.Source.Header {
	case HeaderAuto, HeaderAlways, HeaderNever:
	default:
		return fmt.Errorf("source header must be one of '%s', '%s' or '%s'", HeaderAuto, HeaderAlways, HeaderNever)
	}

	if cfg.D1.BatchSize < 1 || cfg.D1.BatchSize > MaxBatchSize {
		return fmt.Errorf("d1 batchSize must be between 1 and %d, got %d", MaxBatchSize, cfg.D1.BatchSize)
	}
	if _, err := parseTimeout(cfg.D1.Timeout); err != nil {
		return fmt.Errorf("d1 timeout: %w", err)
	}
	if cfg.UploadEnabled() && cfg.D1.BaseURL == "" {
		return fmt.Errorf("d1 baseUrl is required when credentials are set")
	}

	if err := cfg.SchemaSpec().Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if cfg.State.PreviewPath == "" || cfg.State.FingerprintPath == "" || cfg.State.RunRecordPath == "" {
		return fmt.Errorf("state previewPath, fingerprintPath and runRecordPath are required")
	}
	return nil
}

// UploadEnabled reports whether every credential needed for the remote
// upload is present. Without them a run only produces the local preview.
func (c Config) UploadEnabled() bool {
	return c.D1.APIToken != "" && c.D1.AccountID != "" && c.D1.DatabaseID != ""
}

// SchemaSpec returns the configured schema names
func (c Config) SchemaSpec() Schema {
	return Schema{
		Table:    c.Schema.Table,
		FTSTable: c.Schema.FTSTable,
		FTSSync:  c.Schema.FTSSync,
	}
}

// ParseOptions returns the dataset parsing options
func (c Config) ParseOptions() ParseOptions {
	delim, _ := utf8.DecodeRuneInString(c.Source.Delimiter)
	return ParseOptions{
		Delimiter:  delim,
		Header:     c.Source.Header,
		NullValues: c.Source.NullValues,
	}
}

// SourceTimeout returns the dataset request timeout
func (c Config) SourceTimeout() time.Duration {
	d, _ := parseTimeout(c.Source.Timeout)
	return d
}

// D1Timeout returns the per-request timeout for the query endpoint
func (c Config) D1Timeout() time.Duration {
	d, _ := parseTimeout(c.D1.Timeout)
	return d
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration '%s': %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got '%s'", s)
	}
	return d, nil
}
