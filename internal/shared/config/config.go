package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DemosConfig contains all configuration for the demo runner.
type DemosConfig struct {
	Pool    PoolConfig    `mapstructure:"pool"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig configures the local task pool.
type PoolConfig struct {
	// Parallelism caps the number of concurrently running tasks.
	// Zero means one slot per logical CPU.
	Parallelism int `mapstructure:"parallelism"`
	// DefaultCPUs is the capacity weight a task acquires when submitted
	// without an explicit WithCPUs option.
	DefaultCPUs int `mapstructure:"default_cpus"`
}

// DatasetConfig configures dataset blocking and file ingestion.
type DatasetConfig struct {
	BlockSize       int `mapstructure:"block_size"`
	ReadParallelism int `mapstructure:"read_parallelism"`
}

// FetchConfig configures the image download demo.
type FetchConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EffectiveParallelism resolves the configured parallelism, falling back
// to the number of logical CPUs.
func (c PoolConfig) EffectiveParallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}

// Load loads the demo runner configuration from the given path.
// If configPath is empty, it looks for demos.yaml in the config/ directory.
// Environment variables with RAY_DEMOS_ prefix override config file values.
func Load(configPath string) (*DemosConfig, error) {
	v := viper.New()

	v.SetDefault("pool.parallelism", 0)
	v.SetDefault("pool.default_cpus", 1)
	v.SetDefault("dataset.block_size", 128)
	v.SetDefault("dataset.read_parallelism", 4)
	v.SetDefault("fetch.dir", filepath.Join(os.TempDir(), "ray-demos-images"))
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("demos")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RAY_DEMOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg DemosConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
