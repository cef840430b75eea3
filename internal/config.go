package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Worker and batch bounds. The defaults in LoadConfig stay inside these.
const (
	MinWorkers   = 1
	MaxWorkers   = 16
	MinBatchSize = 10
	MaxBatchSize = 500
)

type Config struct {
	ImageExt    []string `mapstructure:"image_extensions"`
	VideoExt    []string `mapstructure:"video_extensions"`
	MetadataExt []string `mapstructure:"metadata_extensions"`

	Workers            int     `mapstructure:"workers"`
	BatchSize          int     `mapstructure:"batch_size"`
	CacheSize          int     `mapstructure:"cache_size"`
	StreamingThreshold int     `mapstructure:"streaming_threshold"`
	TargetThroughput   float64 `mapstructure:"target_throughput"`
	MemoryPerWorkerMB  int     `mapstructure:"memory_per_worker_mb"`
	MemoryBudgetMB     int     `mapstructure:"memory_budget_mb"`

	DiskSpaceMargin float64 `mapstructure:"disk_space_margin"`
	SkipHEICExif    bool    `mapstructure:"skip_heic_exif"`
	NestByMonthDay  bool    `mapstructure:"nest_by_month_day"`
	UseExifTool     bool    `mapstructure:"use_exiftool"`

	MemoryOptimization    bool   `mapstructure:"memory_optimization"`
	PerformanceMonitoring bool   `mapstructure:"performance_monitoring"`
	LogLevel              string `mapstructure:"log_level"`
}

func LoadConfig() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find user config dir: %w", err)
	}

	viper.SetConfigName("photoexport")
	viper.SetConfigType("toml")
	viper.AddConfigPath(filepath.Join(configDir, "photoexport"))

	// Set defaults:
	viper.SetDefault("image_extensions", []string{".heic", ".jpg", ".jpeg", ".png", ".tiff", ".tif", ".raw", ".cr2", ".nef", ".arw"})
	viper.SetDefault("video_extensions", []string{".mov", ".mp4", ".avi", ".mkv", ".m4v"})
	viper.SetDefault("metadata_extensions", []string{".aae"})
	viper.SetDefault("workers", 0) // 0 = derive from machine resources
	viper.SetDefault("batch_size", 100)
	viper.SetDefault("cache_size", 10000)
	viper.SetDefault("streaming_threshold", 1000)
	viper.SetDefault("target_throughput", 50.0)
	viper.SetDefault("memory_per_worker_mb", 2048)
	viper.SetDefault("memory_budget_mb", 16384)
	viper.SetDefault("disk_space_margin", 1.1)
	viper.SetDefault("skip_heic_exif", true)
	viper.SetDefault("nest_by_month_day", false)
	viper.SetDefault("use_exiftool", false)
	viper.SetDefault("memory_optimization", true)
	viper.SetDefault("performance_monitoring", true)
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; that's OK, just use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the tunables that come from flags or the config file.
func (c *Config) Validate() error {
	if c.Workers != 0 && (c.Workers < MinWorkers || c.Workers > MaxWorkers) {
		return fmt.Errorf("workers must be between %d and %d, got %d", MinWorkers, MaxWorkers, c.Workers)
	}
	if c.BatchSize < MinBatchSize || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch size must be between %d and %d, got %d", MinBatchSize, MaxBatchSize, c.BatchSize)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if c.DiskSpaceMargin < 1.0 {
		return fmt.Errorf("disk space margin must be at least 1.0, got %.2f", c.DiskSpaceMargin)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	return nil
}
