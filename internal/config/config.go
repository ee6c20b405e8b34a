package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
)

// Project config file names, .yaml taking precedence.
const (
	ProjectFile    = ".amansearch.yaml"
	ProjectFileAlt = ".amansearch.yml"
)

// Config represents the complete amansearch configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Lock     LockConfig     `yaml:"lock" json:"lock"`
}

// IndexConfig configures where indexes live.
type IndexConfig struct {
	// Root is the directory holding one subdirectory per index and the
	// catalog database. Defaults to ~/.amansearch/indexes
	Root string `yaml:"root" json:"root"`
}

// AnalysisConfig configures analyzer selection.
type AnalysisConfig struct {
	// TokenCacheSize bounds the per-analyzer token cache. 0 disables caching.
	TokenCacheSize int `yaml:"token_cache_size" json:"token_cache_size"`

	// Analyzers bind index name patterns to analyzers. Indexes matching no
	// rule use the standard analyzer.
	Analyzers []AnalyzerRule `yaml:"analyzers" json:"analyzers"`
}

// AnalyzerRule binds a glob over index names to an analyzer kind.
type AnalyzerRule struct {
	Pattern   string   `yaml:"pattern" json:"pattern"`
	Kind      string   `yaml:"kind" json:"kind"`
	StopWords []string `yaml:"stop_words,omitempty" json:"stop_words,omitempty"`
	Priority  int      `yaml:"priority" json:"priority"`
}

// LoggingConfig configures the rotating log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// LockConfig configures how long writers wait for an index held by
// another process.
type LockConfig struct {
	Retries      int    `yaml:"retries" json:"retries"`
	InitialDelay string `yaml:"initial_delay" json:"initial_delay"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Root: defaultIndexRoot(),
		},
		Analysis: AnalysisConfig{
			TokenCacheSize: analysis.DefaultTokenCacheSize,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Lock: LockConfig{
			Retries:      5,
			InitialDelay: "50ms",
		},
	}
}

func defaultIndexRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amansearch", "indexes")
	}
	return filepath.Join(home, ".amansearch", "indexes")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/amansearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amansearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amansearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amansearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "amansearch", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parsed.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/amansearch/config.yaml)
//  3. Project config (.amansearch.yaml in dir)
//  4. Environment variables (AMANSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, amerrors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, amerrors.ConfigError("failed to load project config", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges .amansearch.yaml or .amansearch.yml from dir.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectFile, ProjectFileAlt} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			var parsed Config
			if err := parsed.loadYAML(path); err != nil {
				return err
			}
			c.mergeWith(&parsed)
			return nil
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Root != "" {
		c.Index.Root = other.Index.Root
	}

	if other.Analysis.TokenCacheSize != 0 {
		c.Analysis.TokenCacheSize = other.Analysis.TokenCacheSize
	}
	// Later files add rules; priorities decide between them.
	c.Analysis.Analyzers = append(c.Analysis.Analyzers, other.Analysis.Analyzers...)

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	if other.Lock.Retries != 0 {
		c.Lock.Retries = other.Lock.Retries
	}
	if other.Lock.InitialDelay != "" {
		c.Lock.InitialDelay = other.Lock.InitialDelay
	}
}

// applyEnvOverrides applies AMANSEARCH_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANSEARCH_INDEX_ROOT"); v != "" {
		c.Index.Root = v
	}
	if v := os.Getenv("AMANSEARCH_TOKEN_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.TokenCacheSize = n
		}
	}
	if v := os.Getenv("AMANSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AMANSEARCH_LOCK_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Lock.Retries = n
		}
	}
	if v := os.Getenv("AMANSEARCH_LOCK_INITIAL_DELAY"); v != "" {
		c.Lock.InitialDelay = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return amerrors.New(amerrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(c.Index.Root) == "" {
		return invalid("index.root must not be empty")
	}
	if c.Analysis.TokenCacheSize < 0 {
		return invalid("analysis.token_cache_size must be non-negative, got %d", c.Analysis.TokenCacheSize)
	}
	for i, r := range c.Analysis.Analyzers {
		if strings.TrimSpace(r.Pattern) == "" {
			return invalid("analysis.analyzers[%d].pattern must not be empty", i)
		}
		if !analysis.IsKind(r.Kind) {
			return invalid("analysis.analyzers[%d].kind must be one of %s, got %q",
				i, strings.Join(analysis.Kinds(), ", "), r.Kind)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB <= 0 || c.Logging.MaxFiles <= 0 {
		return invalid("logging.max_size_mb and logging.max_files must be positive")
	}

	if c.Lock.Retries < 0 {
		return invalid("lock.retries must be non-negative, got %d", c.Lock.Retries)
	}
	if d, err := time.ParseDuration(c.Lock.InitialDelay); err != nil || d <= 0 {
		return invalid("lock.initial_delay must be a positive duration, got %q", c.Lock.InitialDelay)
	}
	return nil
}

// LogLevel returns the configured level as a slog.Level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LockRetry returns the backoff used when an index directory is locked.
func (c *Config) LockRetry() amerrors.RetryConfig {
	cfg := amerrors.DefaultRetryConfig()
	cfg.MaxRetries = c.Lock.Retries
	if d, err := time.ParseDuration(c.Lock.InitialDelay); err == nil && d > 0 {
		cfg.InitialDelay = d
		cfg.MaxDelay = max(cfg.MaxDelay, d)
	}
	return cfg
}

// Selector builds the analyzer selector described by the analysis section.
func (c *Config) Selector() (*analysis.Selector, error) {
	if len(c.Analysis.Analyzers) == 0 {
		return analysis.NewSelector(), nil
	}

	rules := make([]analysis.GlobRule, 0, len(c.Analysis.Analyzers))
	for _, r := range c.Analysis.Analyzers {
		a, err := analysis.New(r.Kind, r.StopWords)
		if err != nil {
			return nil, amerrors.ConfigError(fmt.Sprintf("analyzer for pattern %q", r.Pattern), err)
		}
		if c.Analysis.TokenCacheSize > 0 {
			a = analysis.NewCached(a, c.Analysis.TokenCacheSize)
		}
		rules = append(rules, analysis.GlobRule{Pattern: r.Pattern, Analyzer: a, Priority: r.Priority})
	}

	g, err := analysis.NewGlob(rules...)
	if err != nil {
		return nil, amerrors.ConfigError("invalid analyzer pattern", err)
	}
	return analysis.NewSelector(g), nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir looking for a project config file
// or a .git directory. It returns startDir (absolute) when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ProjectFile)) ||
			fileExists(filepath.Join(currentDir, ProjectFileAlt)) ||
			dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
