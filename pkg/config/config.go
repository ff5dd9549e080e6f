package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the catalog migration job
type Config struct {
	// Catalog API connection
	API APIConfig `yaml:"api" json:"api"`

	// URL rewrite rule
	Rewrite RewriteConfig `yaml:"rewrite" json:"rewrite"`

	// Batch loop settings
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Supervisor restart policy
	Supervisor SupervisorConfig `yaml:"supervisor" json:"supervisor"`

	// Liveness endpoint
	Health HealthConfig `yaml:"health" json:"health"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds catalog API connection settings
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	ConsumerKey    string        `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret" json:"consumer_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RewriteConfig describes the image URL rewrite rule and where to find the URLs
type RewriteConfig struct {
	HostMarker string `yaml:"host_marker" json:"host_marker"`
	OldPrefix  string `yaml:"old_prefix" json:"old_prefix"`
	NewPrefix  string `yaml:"new_prefix" json:"new_prefix"`
	OldExt     string `yaml:"old_ext" json:"old_ext"`
	NewExt     string `yaml:"new_ext" json:"new_ext"`
	MetaKey    string `yaml:"meta_key" json:"meta_key"`
}

// Pacing modes for the batch loop
const (
	PacingFixed       = "fixed"
	PacingTokenBucket = "token_bucket"
)

// BatchConfig holds the page range, page size and pacing delays
type BatchConfig struct {
	PerPage        int           `yaml:"per_page" json:"per_page"`
	StartPage      int           `yaml:"start_page" json:"start_page"`
	EndPage        int           `yaml:"end_page" json:"end_page"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
	ItemDelay      time.Duration `yaml:"item_delay" json:"item_delay"`
	PacingMode     string        `yaml:"pacing_mode" json:"pacing_mode"`
	Burst          int           `yaml:"burst" json:"burst"` // token bucket capacity
	CheckpointFile string        `yaml:"checkpoint_file" json:"checkpoint_file"`
	LogDir         string        `yaml:"log_dir" json:"log_dir"`
}

// SupervisorConfig holds the restart policy for the batch loop
type SupervisorConfig struct {
	RestartDelay time.Duration `yaml:"restart_delay" json:"restart_delay"`
	MaxRestarts  int           `yaml:"max_restarts" json:"max_restarts"` // 0 means unlimited
}

// HealthConfig holds the liveness endpoint settings
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			RequestTimeout: 30 * time.Second,
		},
		Rewrite: RewriteConfig{
			HostMarker: "static.recar.lt",
			OldPrefix:  "/images/",
			NewPrefix:  "/pictures/",
			OldExt:     ".jpg",
			NewExt:     ".webp",
			MetaKey:    "product_images_url",
		},
		Batch: BatchConfig{
			PerPage:        20,
			StartPage:      1,
			EndPage:        50,
			PageDelay:      800 * time.Millisecond,
			ItemDelay:      0,
			PacingMode:     PacingFixed,
			Burst:          5,
			CheckpointFile: "",
			LogDir:         ".",
		},
		Supervisor: SupervisorConfig{
			RestartDelay: 30 * time.Second,
			MaxRestarts:  0,
		},
		Health: HealthConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("CATMIGRATE_API_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if key := os.Getenv("CATMIGRATE_CONSUMER_KEY"); key != "" {
		c.API.ConsumerKey = key
	}
	if secret := os.Getenv("CATMIGRATE_CONSUMER_SECRET"); secret != "" {
		c.API.ConsumerSecret = secret
	}

	if perPage := os.Getenv("CATMIGRATE_PER_PAGE"); perPage != "" {
		var val int
		fmt.Sscanf(perPage, "%d", &val)
		if val > 0 {
			c.Batch.PerPage = val
		}
	}
	if startPage := os.Getenv("CATMIGRATE_START_PAGE"); startPage != "" {
		var val int
		fmt.Sscanf(startPage, "%d", &val)
		if val > 0 {
			c.Batch.StartPage = val
		}
	}
	if endPage := os.Getenv("CATMIGRATE_END_PAGE"); endPage != "" {
		var val int
		fmt.Sscanf(endPage, "%d", &val)
		if val > 0 {
			c.Batch.EndPage = val
		}
	}
	if pageDelay := os.Getenv("CATMIGRATE_PAGE_DELAY"); pageDelay != "" {
		if d, err := time.ParseDuration(pageDelay); err == nil && d >= 0 {
			c.Batch.PageDelay = d
		}
	}
	if itemDelay := os.Getenv("CATMIGRATE_ITEM_DELAY"); itemDelay != "" {
		if d, err := time.ParseDuration(itemDelay); err == nil && d >= 0 {
			c.Batch.ItemDelay = d
		}
	}
	if pacingMode := os.Getenv("CATMIGRATE_PACING_MODE"); pacingMode != "" {
		c.Batch.PacingMode = pacingMode
	}
	if burst := os.Getenv("CATMIGRATE_BURST"); burst != "" {
		var val int
		fmt.Sscanf(burst, "%d", &val)
		if val > 0 {
			c.Batch.Burst = val
		}
	}
	if checkpointFile := os.Getenv("CATMIGRATE_CHECKPOINT_FILE"); checkpointFile != "" {
		c.Batch.CheckpointFile = checkpointFile
	}
	if logDir := os.Getenv("CATMIGRATE_LOG_DIR"); logDir != "" {
		c.Batch.LogDir = logDir
	}

	if healthAddr := os.Getenv("CATMIGRATE_HEALTH_ADDR"); healthAddr != "" {
		c.Health.Addr = healthAddr
	}
	// Hosting platforms hand out the listen port via PORT
	if port := os.Getenv("PORT"); port != "" {
		c.Health.Addr = ":" + port
	}

	if logLevel := os.Getenv("CATMIGRATE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".catmigrate.yaml",
		".catmigrate.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "catmigrate", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "catmigrate", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".catmigrate.yaml"),
		filepath.Join(os.Getenv("HOME"), ".catmigrate.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, errors.New("API base URL must be an http(s) URL"))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Rewrite.MetaKey == "" {
		errs = append(errs, errors.New("rewrite meta key is required"))
	}
	if c.Rewrite.OldPrefix == "" || c.Rewrite.NewPrefix == "" {
		errs = append(errs, errors.New("rewrite old and new prefixes are required"))
	}

	if c.Batch.PerPage <= 0 {
		errs = append(errs, errors.New("per page must be positive"))
	}
	if c.Batch.PerPage > 100 {
		errs = append(errs, errors.New("per page should not exceed 100"))
	}
	if c.Batch.StartPage < 1 {
		errs = append(errs, errors.New("start page must be at least 1"))
	}
	if c.Batch.EndPage < c.Batch.StartPage {
		errs = append(errs, errors.New("end page must not be before start page"))
	}
	if c.Batch.PageDelay < 0 || c.Batch.ItemDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}
	switch c.Batch.PacingMode {
	case PacingFixed:
	case PacingTokenBucket:
		if c.Batch.Burst <= 0 {
			errs = append(errs, errors.New("burst must be positive for token bucket pacing"))
		}
	default:
		errs = append(errs, errors.New("pacing mode must be fixed or token_bucket"))
	}

	if c.Supervisor.RestartDelay <= 0 {
		errs = append(errs, errors.New("restart delay must be positive"))
	}
	if c.Supervisor.MaxRestarts < 0 {
		errs = append(errs, errors.New("max restarts cannot be negative"))
	}

	if c.Health.Enabled && c.Health.Addr == "" {
		errs = append(errs, errors.New("health listen address is required when health is enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if baseURL, ok := flags["api-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if key, ok := flags["consumer-key"].(string); ok && key != "" {
		c.API.ConsumerKey = key
	}
	if secret, ok := flags["consumer-secret"].(string); ok && secret != "" {
		c.API.ConsumerSecret = secret
	}
	if perPage, ok := flags["per-page"].(int); ok && perPage > 0 {
		c.Batch.PerPage = perPage
	}
	if startPage, ok := flags["start-page"].(int); ok && startPage > 0 {
		c.Batch.StartPage = startPage
	}
	if endPage, ok := flags["end-page"].(int); ok && endPage > 0 {
		c.Batch.EndPage = endPage
	}
	if pageDelay, ok := flags["page-delay"].(time.Duration); ok && pageDelay >= 0 {
		c.Batch.PageDelay = pageDelay
	}
	if itemDelay, ok := flags["item-delay"].(time.Duration); ok && itemDelay >= 0 {
		c.Batch.ItemDelay = itemDelay
	}
	if pacingMode, ok := flags["pacing-mode"].(string); ok && pacingMode != "" {
		c.Batch.PacingMode = pacingMode
	}
	if burst, ok := flags["burst"].(int); ok && burst > 0 {
		c.Batch.Burst = burst
	}
	if checkpointFile, ok := flags["checkpoint-file"].(string); ok && checkpointFile != "" {
		c.Batch.CheckpointFile = checkpointFile
	}
	if logDir, ok := flags["log-dir"].(string); ok && logDir != "" {
		c.Batch.LogDir = logDir
	}
	if healthAddr, ok := flags["health-addr"].(string); ok && healthAddr != "" {
		c.Health.Addr = healthAddr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources. It does not validate: callers
// run Validate themselves, after filling in credentials from the credential
// stores when flags and environment did not provide them.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".catmigrate.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	return config, nil
}
