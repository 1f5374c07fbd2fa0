// Package config provides configuration management for the feature pipeline
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/paveg/reprise/internal/logging"
)

// Config represents the global configuration for pipeline runs
type Config struct {
	Data     DataConfig     `json:"data" yaml:"data" toml:"data"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" toml:"pipeline"`
	Parallel ParallelConfig `json:"parallel" yaml:"parallel" toml:"parallel"`
	Logging  logging.Config `json:"logging" yaml:"logging" toml:"logging"`
}

// DataConfig locates the input CSV directory and the output directory
type DataConfig struct {
	// Dir holds the input tables (train.csv, test.csv, songs.csv,
	// members.csv, song_extra_info.csv)
	Dir string `json:"dir" yaml:"dir" toml:"dir"`
	// OutputDir receives the engineered tables
	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
}

// PipelineConfig controls stage behavior
type PipelineConfig struct {
	// CorrectedTestTransform runs the test-table transform against the
	// test table itself. When false, the historical behavior is kept:
	// the transform labeled "test" receives the already-transformed
	// train table and the test table passes through untouched.
	CorrectedTestTransform bool `json:"corrected_test_transform" yaml:"corrected_test_transform" toml:"corrected_test_transform"`
	// DryRun skips writing output tables
	DryRun bool `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
}

// ParallelConfig sizes the concurrent parts of the pipeline
type ParallelConfig struct {
	// LoadConcurrency bounds concurrent CSV loads (0 = sequential)
	LoadConcurrency int `json:"load_concurrency" yaml:"load_concurrency" toml:"load_concurrency"`
	// WorkerPoolSize sizes the aggregation worker pool (0 = CPU count)
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size" toml:"worker_pool_size"`
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default locations
const (
	DefaultDataDir   = "data"
	DefaultOutputDir = "output"
)

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Data: DataConfig{
			Dir:       DefaultDataDir,
			OutputDir: DefaultOutputDir,
		},
		// Pipeline defaults: historical test transform, outputs written
		Pipeline: PipelineConfig{},
		// Parallel defaults: auto-sized
		Parallel: ParallelConfig{},
		Logging:  logging.DefaultConfig(),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir must not be empty")
	}

	if c.Data.OutputDir == "" {
		return fmt.Errorf("data.output_dir must not be empty")
	}

	if c.Parallel.LoadConcurrency < 0 {
		return fmt.Errorf("parallel.load_concurrency must be non-negative, got %d", c.Parallel.LoadConcurrency)
	}

	if c.Parallel.WorkerPoolSize < 0 {
		return fmt.Errorf("parallel.worker_pool_size must be non-negative, got %d", c.Parallel.WorkerPoolSize)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not supported (json or console)", c.Logging.Format)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for
// zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Data.Dir == "" {
		c.Data.Dir = defaults.Data.Dir
	}
	if c.Data.OutputDir == "" {
		c.Data.OutputDir = defaults.Data.OutputDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}

	// Boolean fields keep their zero values: false selects the historical
	// pipeline behavior and writes outputs.

	return c
}

// Normalize resolves auto-sized values against the host and returns the
// resolved configuration with any advisory warnings
func (c Config) Normalize() (Config, []string) {
	var warnings []string
	resolved := c

	cpus := runtime.NumCPU()
	if c.Parallel.WorkerPoolSize == 0 {
		resolved.Parallel.WorkerPoolSize = cpus
	} else if c.Parallel.WorkerPoolSize > cpus*2 {
		warnings = append(warnings,
			fmt.Sprintf("worker pool size (%d) exceeds 2x CPU count (%d), may cause contention",
				c.Parallel.WorkerPoolSize, cpus))
	}

	return resolved, warnings
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromFile loads configuration from a file (supports JSON, YAML, TOML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	case ".toml":
		err = toml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from REPRISE_* environment variables
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv("REPRISE_DATA_DIR"); val != "" {
		config.Data.Dir = val
	}

	if val := os.Getenv("REPRISE_OUTPUT_DIR"); val != "" {
		config.Data.OutputDir = val
	}

	if val := os.Getenv("REPRISE_CORRECTED_TEST_TRANSFORM"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Pipeline.CorrectedTestTransform = parsed
		}
	}

	if val := os.Getenv("REPRISE_DRY_RUN"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Pipeline.DryRun = parsed
		}
	}

	if val := os.Getenv("REPRISE_LOAD_CONCURRENCY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Parallel.LoadConcurrency = parsed
		}
	}

	if val := os.Getenv("REPRISE_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Parallel.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("REPRISE_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}

	if val := os.Getenv("REPRISE_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	return config
}
