package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/reprise/internal/config"
)

func TestConfig_DefaultValues(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "output", cfg.Data.OutputDir)
	assert.False(t, cfg.Pipeline.CorrectedTestTransform) // historical behavior by default
	assert.False(t, cfg.Pipeline.DryRun)
	assert.Equal(t, 0, cfg.Parallel.LoadConcurrency) // 0 means sequential
	assert.Equal(t, 0, cfg.Parallel.WorkerPoolSize)  // 0 means auto-detect
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfig_Validation(t *testing.T) {
	valid := config.NewConfig()

	tests := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError string
	}{
		{
			name:          "valid config",
			mutate:        func(*config.Config) {},
			expectedError: "",
		},
		{
			name:          "empty data dir",
			mutate:        func(c *config.Config) { c.Data.Dir = "" },
			expectedError: "data.dir must not be empty",
		},
		{
			name:          "empty output dir",
			mutate:        func(c *config.Config) { c.Data.OutputDir = "" },
			expectedError: "data.output_dir must not be empty",
		},
		{
			name:          "negative load concurrency",
			mutate:        func(c *config.Config) { c.Parallel.LoadConcurrency = -1 },
			expectedError: "parallel.load_concurrency must be non-negative, got -1",
		},
		{
			name:          "negative worker pool size",
			mutate:        func(c *config.Config) { c.Parallel.WorkerPoolSize = -2 },
			expectedError: "parallel.worker_pool_size must be non-negative, got -2",
		},
		{
			name:          "unknown log level",
			mutate:        func(c *config.Config) { c.Logging.Level = "chatty" },
			expectedError: `logging.level "chatty" is not a known level`,
		},
		{
			name:          "unknown log format",
			mutate:        func(c *config.Config) { c.Logging.Format = "xml" },
			expectedError: `logging.format "xml" is not supported (json or console)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.expectedError, err.Error())
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	var empty config.Config
	filled := empty.WithDefaults()

	assert.Equal(t, "data", filled.Data.Dir)
	assert.Equal(t, "output", filled.Data.OutputDir)
	assert.Equal(t, "info", filled.Logging.Level)
	assert.Equal(t, "json", filled.Logging.Format)
	assert.False(t, filled.Pipeline.CorrectedTestTransform)

	custom := config.Config{}
	custom.Data.Dir = "/srv/kkbox"
	custom.Logging.Level = "debug"
	filled = custom.WithDefaults()

	assert.Equal(t, "/srv/kkbox", filled.Data.Dir)
	assert.Equal(t, "output", filled.Data.OutputDir)
	assert.Equal(t, "debug", filled.Logging.Level)
}

func TestConfig_Normalize(t *testing.T) {
	t.Run("auto-sizes the worker pool", func(t *testing.T) {
		cfg := config.NewConfig()
		resolved, warnings := cfg.Normalize()

		assert.Equal(t, runtime.NumCPU(), resolved.Parallel.WorkerPoolSize)
		assert.Empty(t, warnings)
	})

	t.Run("warns on oversubscription", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Parallel.WorkerPoolSize = runtime.NumCPU()*2 + 1

		resolved, warnings := cfg.Normalize()
		assert.Equal(t, cfg.Parallel.WorkerPoolSize, resolved.Parallel.WorkerPoolSize)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "exceeds 2x CPU count")
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("yaml", func(t *testing.T) {
		path := writeFile("config.yaml", `
data:
  dir: /srv/kkbox
pipeline:
  corrected_test_transform: true
parallel:
  worker_pool_size: 4
logging:
  level: debug
`)

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/kkbox", cfg.Data.Dir)
		assert.Equal(t, "output", cfg.Data.OutputDir) // default filled in
		assert.True(t, cfg.Pipeline.CorrectedTestTransform)
		assert.Equal(t, 4, cfg.Parallel.WorkerPoolSize)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile("config.json", `{
  "data": {"dir": "/srv/json", "output_dir": "out"},
  "pipeline": {"dry_run": true}
}`)

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/json", cfg.Data.Dir)
		assert.Equal(t, "out", cfg.Data.OutputDir)
		assert.True(t, cfg.Pipeline.DryRun)
	})

	t.Run("toml", func(t *testing.T) {
		path := writeFile("config.toml", `
[data]
dir = "/srv/toml"

[parallel]
load_concurrency = 2
`)

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "/srv/toml", cfg.Data.Dir)
		assert.Equal(t, 2, cfg.Parallel.LoadConcurrency)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile("config.ini", "dir=/nope")

		_, err := config.LoadFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config file format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFromFile(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile("broken.yaml", "data: [unclosed")

		_, err := config.LoadFromFile(path)
		assert.Error(t, err)
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REPRISE_DATA_DIR", "/env/data")
	t.Setenv("REPRISE_OUTPUT_DIR", "/env/out")
	t.Setenv("REPRISE_CORRECTED_TEST_TRANSFORM", "true")
	t.Setenv("REPRISE_DRY_RUN", "1")
	t.Setenv("REPRISE_LOAD_CONCURRENCY", "3")
	t.Setenv("REPRISE_WORKER_POOL_SIZE", "6")
	t.Setenv("REPRISE_LOG_LEVEL", "warn")
	t.Setenv("REPRISE_LOG_FORMAT", "console")

	cfg := config.LoadFromEnv()

	assert.Equal(t, "/env/data", cfg.Data.Dir)
	assert.Equal(t, "/env/out", cfg.Data.OutputDir)
	assert.True(t, cfg.Pipeline.CorrectedTestTransform)
	assert.True(t, cfg.Pipeline.DryRun)
	assert.Equal(t, 3, cfg.Parallel.LoadConcurrency)
	assert.Equal(t, 6, cfg.Parallel.WorkerPoolSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFromEnv_IgnoresUnparseable(t *testing.T) {
	t.Setenv("REPRISE_WORKER_POOL_SIZE", "many")
	t.Setenv("REPRISE_DRY_RUN", "sure")

	cfg := config.LoadFromEnv()

	assert.Equal(t, 0, cfg.Parallel.WorkerPoolSize)
	assert.False(t, cfg.Pipeline.DryRun)
}

func TestGlobalConfig(t *testing.T) {
	original := config.GetGlobalConfig()
	defer config.SetGlobalConfig(original)

	custom := config.NewConfig()
	custom.Data.Dir = "/global/data"
	config.SetGlobalConfig(custom)

	assert.Equal(t, "/global/data", config.GetGlobalConfig().Data.Dir)
}
