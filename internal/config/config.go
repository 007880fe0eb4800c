// Package config loads the tracker configuration: built-in defaults, an
// optional YAML file named by TRACKER_CONFIG and TRACKER_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the optional YAML file.
const EnvConfigFile = "TRACKER_CONFIG"

// Config is the complete tracker configuration.
type Config struct {
	// SourceDir is the Mercurial clone of mozilla-central
	SourceDir string `yaml:"source_dir"`
	Python    string `yaml:"python"`
	Hg        string `yaml:"hg"`

	// DataFile is the JSONL history log
	DataFile string `yaml:"data_file"`

	Interval time.Duration `yaml:"interval"`

	// APIAddr is the status API listen address, disabled when empty
	APIAddr string `yaml:"api_addr"`

	Discovery DiscoveryConfig `yaml:"discovery"`
	Storage   StorageConfig   `yaml:"storage"`
	Publish   PublishConfig   `yaml:"publish"`
	Log       LogConfig       `yaml:"log"`
}

// DiscoveryConfig selects the release index rows.
type DiscoveryConfig struct {
	URL          string        `yaml:"url"`
	Marker       string        `yaml:"marker"`
	FirstBuildID string        `yaml:"first_build_id"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StorageConfig selects the history log backends.
type StorageConfig struct {
	Backend            string `yaml:"backend"`
	Secondary          string `yaml:"secondary"`
	SQLitePath         string `yaml:"sqlite_path"`
	ClickHouseAddr     string `yaml:"clickhouse_addr"`
	ClickHouseDatabase string `yaml:"clickhouse_database"`
	ClickHouseUser     string `yaml:"clickhouse_user"`
	ClickHousePassword string `yaml:"clickhouse_password"`
}

// PublishConfig selects where an updated log goes.
type PublishConfig struct {
	// Git commits and pushes the data file
	Git bool `yaml:"git"`

	// RepoDir is the git working tree, the data file's directory when empty
	RepoDir string `yaml:"repo_dir"`

	// OTLPEndpoint enables the OTLP gauge export
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPProtocol string `yaml:"otlp_protocol"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the layout of a deployment next to its clone.
func DefaultConfig() *Config {
	return &Config{
		SourceDir: "./mozilla-central",
		Python:    "python3",
		Hg:        "hg",
		DataFile:  "./data.json",
		Interval:  6 * time.Hour,
		APIAddr:   "127.0.0.1:8080",
		Discovery: DiscoveryConfig{
			URL:          "https://hg.mozilla.org/mozilla-central/firefoxreleases",
			Marker:       "nightlywin64",
			FirstBuildID: "20201005215809",
			Timeout:      60 * time.Second,
		},
		Storage: StorageConfig{
			Backend:            "jsonl",
			SQLitePath:         "./tracker.db",
			ClickHouseAddr:     "localhost:9000",
			ClickHouseDatabase: "default",
			ClickHouseUser:     "default",
		},
		Publish: PublishConfig{
			Git:          true,
			OTLPProtocol: "grpc",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration from defaults, the file named by
// TRACKER_CONFIG and the environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.SourceDir = getEnv("TRACKER_SOURCE_DIR", c.SourceDir)
	c.Python = getEnv("TRACKER_PYTHON", c.Python)
	c.Hg = getEnv("TRACKER_HG", c.Hg)
	c.DataFile = getEnv("TRACKER_DATA_FILE", c.DataFile)
	c.APIAddr = getEnv("TRACKER_API_ADDR", c.APIAddr)

	c.Discovery.URL = getEnv("TRACKER_RELEASES_URL", c.Discovery.URL)
	c.Discovery.Marker = getEnv("TRACKER_RELEASES_MARKER", c.Discovery.Marker)
	c.Discovery.FirstBuildID = getEnv("TRACKER_FIRST_BUILD_ID", c.Discovery.FirstBuildID)

	c.Storage.Backend = getEnv("TRACKER_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Secondary = getEnv("TRACKER_STORAGE_SECONDARY", c.Storage.Secondary)
	c.Storage.SQLitePath = getEnv("TRACKER_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.ClickHouseAddr = getEnv("TRACKER_CLICKHOUSE_ADDR", c.Storage.ClickHouseAddr)
	c.Storage.ClickHouseDatabase = getEnv("TRACKER_CLICKHOUSE_DATABASE", c.Storage.ClickHouseDatabase)
	c.Storage.ClickHouseUser = getEnv("TRACKER_CLICKHOUSE_USER", c.Storage.ClickHouseUser)
	c.Storage.ClickHousePassword = getEnv("TRACKER_CLICKHOUSE_PASSWORD", c.Storage.ClickHousePassword)

	c.Publish.RepoDir = getEnv("TRACKER_REPO_DIR", c.Publish.RepoDir)
	c.Publish.OTLPEndpoint = getEnv("TRACKER_OTLP_ENDPOINT", c.Publish.OTLPEndpoint)
	c.Publish.OTLPProtocol = getEnv("TRACKER_OTLP_PROTOCOL", c.Publish.OTLPProtocol)

	c.Log.Level = getEnv("TRACKER_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("TRACKER_LOG_FORMAT", c.Log.Format)

	var err error
	if c.Publish.Git, err = getEnvBool("TRACKER_GIT_PUBLISH", c.Publish.Git); err != nil {
		return err
	}
	if c.Publish.OTLPInsecure, err = getEnvBool("TRACKER_OTLP_INSECURE", c.Publish.OTLPInsecure); err != nil {
		return err
	}
	if c.Interval, err = getEnvDuration("TRACKER_INTERVAL", c.Interval); err != nil {
		return err
	}
	if c.Discovery.Timeout, err = getEnvDuration("TRACKER_RELEASES_TIMEOUT", c.Discovery.Timeout); err != nil {
		return err
	}
	return nil
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.SourceDir == "" {
		errs = append(errs, errors.New("source_dir is required"))
	}
	if c.DataFile == "" {
		errs = append(errs, errors.New("data_file is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LockFile is the scheduler lock next to the data file.
func (c *Config) LockFile() string {
	return c.DataFile + ".lock"
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
