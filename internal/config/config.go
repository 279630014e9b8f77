package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/yousuf/stackmap/internal/stacktrace"
)

// Config represents the main configuration structure
type Config struct {
	// Directory traces are resolved against when a caller does not supply one
	WorkspaceRoot string `yaml:"workspace_root" toml:"workspace_root" json:"workspace_root"`
	// Runes of raw input echoed back for unparseable traces
	ExcerptLimit int `yaml:"excerpt_limit" toml:"excerpt_limit" json:"excerpt_limit"`
	// Ordered path prefix rewrites; replaces the built-in table when set
	Prefixes []PrefixRule `yaml:"prefixes" toml:"prefixes" json:"prefixes"`
	// Extra regular expressions marking frames as internal
	InternalPatterns []string `yaml:"internal_patterns" toml:"internal_patterns" json:"internal_patterns"`

	Server  ServerConfig  `yaml:"server" toml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// PrefixRule is the configuration form of stacktrace.PrefixRule
type PrefixRule struct {
	Prefix  string `yaml:"prefix" toml:"prefix" json:"prefix"`
	Replace string `yaml:"replace,omitempty" toml:"replace" json:"replace,omitempty"`
}

// ServerConfig controls the MCP server transport
type ServerConfig struct {
	Transport string `yaml:"transport" toml:"transport" json:"transport"` // "stdio" or "http"
	Addr      string `yaml:"addr" toml:"addr" json:"addr"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level" toml:"level" json:"level"` // debug, info, warn, error
	Development bool   `yaml:"development" toml:"development" json:"development"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	rules := stacktrace.DefaultPrefixRules()
	prefixes := make([]PrefixRule, 0, len(rules))
	for _, r := range rules {
		prefixes = append(prefixes, PrefixRule{Prefix: r.Prefix, Replace: r.Replace})
	}

	return &Config{
		WorkspaceRoot: ".",
		ExcerptLimit:  stacktrace.DefaultExcerptLimit,
		Prefixes:      prefixes,
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":3000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file. YAML and TOML are chosen by
// extension; a missing file yields the defaults. Environment overrides are
// applied last.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := decode(configPath, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".json":
		return json.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("STACKMAP_WORKSPACE"); root != "" {
		c.WorkspaceRoot = root
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if addr := os.Getenv("STACKMAP_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("STACKMAP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q (must be stdio or http)", c.Server.Transport)
	}

	if c.Server.Transport == "http" && c.Server.Addr == "" {
		return fmt.Errorf("addr is required for http transport")
	}

	if c.ExcerptLimit <= 0 {
		return fmt.Errorf("excerpt_limit must be positive, got %d", c.ExcerptLimit)
	}

	for i, rule := range c.Prefixes {
		if rule.Prefix == "" {
			return fmt.Errorf("prefix rule %d: prefix is required", i)
		}
		if rule.Replace != "" && !filepath.IsLocal(filepath.FromSlash(rule.Replace)) {
			return fmt.Errorf("prefix rule %q: replace %q must be a relative path inside the workspace", rule.Prefix, rule.Replace)
		}
	}

	if _, err := stacktrace.NewClassifier(c.InternalPatterns...); err != nil {
		return err
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

// PrefixRules converts the configured rules for the resolver
func (c *Config) PrefixRules() []stacktrace.PrefixRule {
	rules := make([]stacktrace.PrefixRule, 0, len(c.Prefixes))
	for _, r := range c.Prefixes {
		rules = append(rules, stacktrace.PrefixRule{Prefix: r.Prefix, Replace: r.Replace})
	}
	return rules
}

// NewAnalyzer builds a stack trace analyzer from the configuration
func (c *Config) NewAnalyzer(logger *zap.Logger) (*stacktrace.Analyzer, error) {
	classifier, err := stacktrace.NewClassifier(c.InternalPatterns...)
	if err != nil {
		return nil, err
	}

	return stacktrace.NewAnalyzer(
		stacktrace.WithClassifier(classifier),
		stacktrace.WithResolver(&stacktrace.Resolver{Rules: c.PrefixRules()}),
		stacktrace.WithExcerptLimit(c.ExcerptLimit),
		stacktrace.WithLogger(logger),
	), nil
}

// NewLogger builds the zap logger described by the logging section
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
