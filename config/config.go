// Package config loads scour's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/core"
)

// Config holds all configuration for scour.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	AI       ai.Config      `yaml:"ai"`
	Batch    BatchConfig    `yaml:"batch"`
	Indexing IndexingConfig `yaml:"indexing"`
	Search   SearchConfig   `yaml:"search"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	InMemory     bool   `yaml:"in_memory"`
}

// BatchConfig holds settings for running cleaning tasks.
type BatchConfig struct {
	EmbedTimeout   time.Duration   `yaml:"embed_timeout"`
	IndexTaskTypes []core.TaskType `yaml:"index_task_types"`
	IndexModel     string          `yaml:"index_model"`
	Refine         bool            `yaml:"refine"`
}

// IndexingConfig holds chunking and embedding settings.
type IndexingConfig struct {
	ChunkSize   int           `yaml:"chunk_size"`
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit"`
	DefaultThreshold float32 `yaml:"default_threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: defaultDatabasePath(),
		},
		AI: *ai.DefaultConfig(),
		Batch: BatchConfig{
			EmbedTimeout:   30 * time.Second,
			IndexTaskTypes: []core.TaskType{core.TaskTypeTextCleanup},
		},
		Indexing: IndexingConfig{
			ChunkSize:   1000,
			Workers:     4,
			MaxAttempts: 1,
			RetryDelay:  500 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit:     10,
			DefaultThreshold: 0.5,
		},
	}
}

// Load reads the config file at path on top of Default. Relative database
// paths are resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks every section and normalizes the AI settings.
func (c *Config) Validate() error {
	var errs []error
	if !c.Storage.InMemory && c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("storage: database_path is required"))
	}
	if err := c.AI.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Batch.EmbedTimeout <= 0 {
		errs = append(errs, errors.New("batch: embed_timeout must be positive"))
	}
	for _, typ := range c.Batch.IndexTaskTypes {
		if err := core.ValidateTaskType(typ); err != nil {
			errs = append(errs, fmt.Errorf("batch: index_task_types: %w", err))
		}
	}
	if c.Batch.Refine && c.AI.RefineModel == "" {
		errs = append(errs, errors.New("batch: refine requires ai.refine_model"))
	}
	if c.Indexing.ChunkSize <= 0 {
		errs = append(errs, errors.New("indexing: chunk_size must be positive"))
	}
	if c.Indexing.Workers <= 0 {
		errs = append(errs, errors.New("indexing: workers must be positive"))
	}
	if c.Indexing.MaxAttempts <= 0 {
		errs = append(errs, errors.New("indexing: max_attempts must be positive"))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, errors.New("search: default_limit must be positive"))
	}
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		errs = append(errs, errors.New("search: default_threshold must be within [0, 1]"))
	}
	return errors.Join(errs...)
}

// IndexModel returns the model used for indexing cleaned output.
func (c *Config) IndexModel() string {
	if c.Batch.IndexModel != "" {
		return c.Batch.IndexModel
	}
	return c.AI.DefaultModel
}

// Indexes reports whether outputs of typ are indexed after cleaning.
func (c *Config) Indexes(typ core.TaskType) bool {
	return slices.Contains(c.Batch.IndexTaskTypes, typ)
}

func defaultDatabasePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".scour", "db")
	}
	return filepath.Join(".scour", "db")
}

// expandPath makes path absolute. "~/" is the home directory; other relative
// paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return path
	}
	return filepath.Join(configDir, path)
}
