package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-directory configuration file.
const ProjectConfigName = ".gujimcp.yaml"

// Config represents the complete GujiMCP configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Corpus    CorpusConfig    `yaml:"corpus" json:"corpus"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Snippets  SnippetsConfig  `yaml:"snippets" json:"snippets"`
	Themes    ThemesConfig    `yaml:"themes" json:"themes"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// CorpusConfig locates the corpus directory and controls reload-on-change.
type CorpusConfig struct {
	// Path is the corpus root. Relative paths resolve against the directory
	// the configuration was loaded for.
	Path string `yaml:"path" json:"path"`
	// Watch reloads the corpus when files under Path change.
	Watch *bool `yaml:"watch,omitempty" json:"watch,omitempty"`
	// WatchDebounce collapses bursts of file events (e.g. "500ms").
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// SearchConfig bounds search_ancient_texts arguments.
type SearchConfig struct {
	DefaultLimit     int `yaml:"default_limit" json:"default_limit"`
	MaxLimit         int `yaml:"max_limit" json:"max_limit"`
	MaxKeywordLength int `yaml:"max_keyword_length" json:"max_keyword_length"`
	// SnippetLength is the rune length of the excerpt attached to each result.
	SnippetLength int `yaml:"snippet_length" json:"snippet_length"`
}

// SnippetsConfig bounds extract_content_snippets and sizes its cache.
type SnippetsConfig struct {
	DefaultMax           int   `yaml:"default_max" json:"default_max"`
	MaxSnippets          int   `yaml:"max_snippets" json:"max_snippets"`
	DefaultContextLength int   `yaml:"default_context_length" json:"default_context_length"`
	MaxContextLength     int   `yaml:"max_context_length" json:"max_context_length"`
	CacheEnabled         *bool `yaml:"cache_enabled,omitempty" json:"cache_enabled,omitempty"`
	CacheSize            int   `yaml:"cache_size" json:"cache_size"`
}

// ThemesConfig bounds analyze_content_themes.
type ThemesConfig struct {
	DefaultMax int `yaml:"default_max" json:"default_max"`
	MaxThemes  int `yaml:"max_themes" json:"max_themes"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport     string `yaml:"transport" json:"transport"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
}

// TelemetryConfig configures query metrics.
type TelemetryConfig struct {
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	// DBPath persists daily aggregates to SQLite. Empty keeps metrics in memory.
	DBPath string `yaml:"db_path" json:"db_path"`
}

func boolPtr(b bool) *bool { return &b }

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path:          "corpus",
			Watch:         boolPtr(false),
			WatchDebounce: "500ms",
		},
		Search: SearchConfig{
			DefaultLimit:     20,
			MaxLimit:         100,
			MaxKeywordLength: 100,
			SnippetLength:    100,
		},
		Snippets: SnippetsConfig{
			DefaultMax:           20,
			MaxSnippets:          50,
			DefaultContextLength: 200,
			MaxContextLength:     1000,
			CacheEnabled:         boolPtr(true),
			CacheSize:            1000,
		},
		Themes: ThemesConfig{
			DefaultMax: 10,
			MaxThemes:  20,
		},
		Server: ServerConfig{
			Transport:     "stdio",
			LogLevel:      "info",
			MaxConcurrent: runtime.NumCPU() * 2,
		},
		Telemetry: TelemetryConfig{
			Enabled: boolPtr(true),
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/gujimcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/gujimcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gujimcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gujimcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "gujimcp", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// Load loads configuration for the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/gujimcp/config.yaml)
//  3. Project config (.gujimcp.yaml in dir)
//  4. Environment variables (GUJIMCP_*)
//
// A relative corpus path is resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !filepath.IsAbs(cfg.Corpus.Path) {
		cfg.Corpus.Path = filepath.Join(dir, cfg.Corpus.Path)
	}
	return cfg, nil
}

// loadFromFile loads .gujimcp.yaml or .gujimcp.yml from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigName, ".gujimcp.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		var parsed Config
		if err := parseYAML(path, &parsed); err != nil {
			return err
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

func parseYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Corpus
	if other.Corpus.Path != "" {
		c.Corpus.Path = other.Corpus.Path
	}
	if other.Corpus.Watch != nil {
		c.Corpus.Watch = other.Corpus.Watch
	}
	if other.Corpus.WatchDebounce != "" {
		c.Corpus.WatchDebounce = other.Corpus.WatchDebounce
	}

	// Search
	mergeInt(&c.Search.DefaultLimit, other.Search.DefaultLimit)
	mergeInt(&c.Search.MaxLimit, other.Search.MaxLimit)
	mergeInt(&c.Search.MaxKeywordLength, other.Search.MaxKeywordLength)
	mergeInt(&c.Search.SnippetLength, other.Search.SnippetLength)

	// Snippets
	mergeInt(&c.Snippets.DefaultMax, other.Snippets.DefaultMax)
	mergeInt(&c.Snippets.MaxSnippets, other.Snippets.MaxSnippets)
	mergeInt(&c.Snippets.DefaultContextLength, other.Snippets.DefaultContextLength)
	mergeInt(&c.Snippets.MaxContextLength, other.Snippets.MaxContextLength)
	mergeInt(&c.Snippets.CacheSize, other.Snippets.CacheSize)
	if other.Snippets.CacheEnabled != nil {
		c.Snippets.CacheEnabled = other.Snippets.CacheEnabled
	}

	// Themes
	mergeInt(&c.Themes.DefaultMax, other.Themes.DefaultMax)
	mergeInt(&c.Themes.MaxThemes, other.Themes.MaxThemes)

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	mergeInt(&c.Server.MaxConcurrent, other.Server.MaxConcurrent)

	// Telemetry
	if other.Telemetry.Enabled != nil {
		c.Telemetry.Enabled = other.Telemetry.Enabled
	}
	if other.Telemetry.DBPath != "" {
		c.Telemetry.DBPath = other.Telemetry.DBPath
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies GUJIMCP_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GUJIMCP_CORPUS_PATH"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("GUJIMCP_WATCH"); v != "" {
		c.Corpus.Watch = boolPtr(parseBool(v))
	}
	if v := os.Getenv("GUJIMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("GUJIMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("GUJIMCP_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.MaxConcurrent = n
		}
	}
	if v := os.Getenv("GUJIMCP_CACHE_ENABLED"); v != "" {
		c.Snippets.CacheEnabled = boolPtr(parseBool(v))
	}
	if v := os.Getenv("GUJIMCP_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Snippets.CacheSize = n
		}
	}
	if v := os.Getenv("GUJIMCP_TELEMETRY_DB"); v != "" {
		c.Telemetry.DBPath = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}

// WatchEnabled reports whether corpus watching is on.
func (c *Config) WatchEnabled() bool {
	return c.Corpus.Watch != nil && *c.Corpus.Watch
}

// CacheEnabled reports whether the snippet cache is on by default.
func (c *Config) CacheEnabled() bool {
	return c.Snippets.CacheEnabled == nil || *c.Snippets.CacheEnabled
}

// TelemetryEnabled reports whether query metrics are recorded.
func (c *Config) TelemetryEnabled() bool {
	return c.Telemetry.Enabled == nil || *c.Telemetry.Enabled
}

// Debounce returns the parsed watch debounce, falling back to 500ms.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.Corpus.WatchDebounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path must not be empty")
	}
	if c.Corpus.WatchDebounce != "" {
		if _, err := time.ParseDuration(c.Corpus.WatchDebounce); err != nil {
			return fmt.Errorf("corpus.watch_debounce: %w", err)
		}
	}

	if c.Search.MaxLimit < 1 {
		return fmt.Errorf("search.max_limit must be positive, got %d", c.Search.MaxLimit)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit must be between 1 and %d, got %d", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.MaxKeywordLength < 1 {
		return fmt.Errorf("search.max_keyword_length must be positive, got %d", c.Search.MaxKeywordLength)
	}
	if c.Search.SnippetLength < 1 {
		return fmt.Errorf("search.snippet_length must be positive, got %d", c.Search.SnippetLength)
	}

	if c.Snippets.MaxSnippets < 1 {
		return fmt.Errorf("snippets.max_snippets must be positive, got %d", c.Snippets.MaxSnippets)
	}
	if c.Snippets.DefaultMax < 1 || c.Snippets.DefaultMax > c.Snippets.MaxSnippets {
		return fmt.Errorf("snippets.default_max must be between 1 and %d, got %d", c.Snippets.MaxSnippets, c.Snippets.DefaultMax)
	}
	if c.Snippets.MaxContextLength < 1 {
		return fmt.Errorf("snippets.max_context_length must be positive, got %d", c.Snippets.MaxContextLength)
	}
	if c.Snippets.DefaultContextLength < 1 || c.Snippets.DefaultContextLength > c.Snippets.MaxContextLength {
		return fmt.Errorf("snippets.default_context_length must be between 1 and %d, got %d", c.Snippets.MaxContextLength, c.Snippets.DefaultContextLength)
	}
	if c.Snippets.CacheSize < 1 {
		return fmt.Errorf("snippets.cache_size must be positive, got %d", c.Snippets.CacheSize)
	}

	if c.Themes.MaxThemes < 1 {
		return fmt.Errorf("themes.max_themes must be positive, got %d", c.Themes.MaxThemes)
	}
	if c.Themes.DefaultMax < 1 || c.Themes.DefaultMax > c.Themes.MaxThemes {
		return fmt.Errorf("themes.default_max must be between 1 and %d, got %d", c.Themes.MaxThemes, c.Themes.DefaultMax)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("server.max_concurrent must be positive, got %d", c.Server.MaxConcurrent)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
