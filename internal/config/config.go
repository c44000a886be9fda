package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for diagast
type Config struct {
	// OutputDir is where batch conversion writes .ast.json files
	OutputDir string `yaml:"output_dir" env:"DIAGAST_OUTPUT_DIR"`

	// Workers is the batch worker count; 0 means one per CPU
	Workers int `yaml:"workers" env:"DIAGAST_WORKERS"`

	// DefaultFormat forces a source format instead of extension/content
	// detection. Empty means auto-detect.
	DefaultFormat string `yaml:"default_format" env:"DIAGAST_DEFAULT_FORMAT"`

	// DefaultPage is the Draw.io page index used when --page is not given
	DefaultPage int `yaml:"default_page" env:"DIAGAST_DEFAULT_PAGE"`

	// Cache settings for the conversion cache
	CacheEnabled    bool   `yaml:"cache_enabled" env:"DIAGAST_CACHE_ENABLED"`
	CachePath       string `yaml:"cache_path" env:"DIAGAST_CACHE_PATH"`
	CacheMaxEntries int    `yaml:"cache_max_entries" env:"DIAGAST_CACHE_MAX_ENTRIES"`

	// RulesCategory overrides the category written into rules.md headers.
	// Empty means derive from the index directory name.
	RulesCategory string `yaml:"rules_category" env:"DIAGAST_RULES_CATEGORY"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"DIAGAST_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"DIAGAST_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:       "ast",
		Workers:         0,
		DefaultFormat:   "",
		DefaultPage:     0,
		CacheEnabled:    true,
		CachePath:       defaultCachePath(),
		CacheMaxEntries: 512,
		RulesCategory:   "",
		Verbose:         false,
		JSONLogs:        false,
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diagast/conversions.cache"
	}
	return filepath.Join(home, ".diagast", "conversions.cache")
}

// globalConfigFilePath returns the global config file path (~/.diagast/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".diagast/config.yaml"
	}
	return filepath.Join(home, ".diagast", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.diagast/config.yaml)
func projectConfigFilePath() string {
	return ".diagast/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.diagast/config.yaml)
// 3. Global config (~/.diagast/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// GlobalPath returns the path Save should use for the global config.
func GlobalPath() string {
	return globalConfigFilePath()
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DIAGAST_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("DIAGAST_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("DIAGAST_DEFAULT_FORMAT"); v != "" {
		cfg.DefaultFormat = v
	}
	if v := os.Getenv("DIAGAST_DEFAULT_PAGE"); v != "" {
		if i := parseInt(v); i >= 0 {
			cfg.DefaultPage = i
		}
	}
	if v := os.Getenv("DIAGAST_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("DIAGAST_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("DIAGAST_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxEntries = i
		}
	}
	if v := os.Getenv("DIAGAST_RULES_CATEGORY"); v != "" {
		cfg.RulesCategory = v
	}
	if v := os.Getenv("DIAGAST_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("DIAGAST_JSON_LOGS"); v != "" {
		cfg.JSONLogs = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.DefaultFormat {
	case "", "drawio", "svg", "plantuml":
	default:
		return fmt.Errorf("invalid default_format: %s (must be 'drawio', 'svg' or 'plantuml')", c.DefaultFormat)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if c.DefaultPage < 0 {
		return fmt.Errorf("default_page must be non-negative")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}

	return nil
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
