// Package config loads supdto settings from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for supdto
type Config struct {
	Log     LogConfig     `yaml:"log"`
	JSON    JSONConfig    `yaml:"json"`
	CType   CTypeConfig   `yaml:"ctype"`
	Archive ArchiveConfig `yaml:"archive"`
	Types   TypesConfig   `yaml:"types"`
}

// LogConfig controls slog output on stderr
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// JSONConfig controls JSON rendering
type JSONConfig struct {
	Pretty bool   `yaml:"pretty"`
	Indent string `yaml:"indent"`
}

// CTypeConfig controls the C memory layout
type CTypeConfig struct {
	StringSize int `yaml:"string_size"`
}

// ArchiveConfig locates the snapshot database
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// TypesConfig lists schema files preloaded into the type registry
type TypesConfig struct {
	JSON []string `yaml:"json"` // type JSON documents
	CUE  []string `yaml:"cue"`  // CUE files or package directories
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		JSON: JSONConfig{
			Pretty: false,
			Indent: "  ",
		},
		CType: CTypeConfig{
			StringSize: 64,
		},
		Archive: ArchiveConfig{
			Path: "supdto.db",
		},
		Types: TypesConfig{
			JSON: []string{},
			CUE:  []string{},
		},
	}
}

// LoadConfig loads configuration from a YAML file. Relative schema and
// archive paths are resolved against the file's directory.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".supdto.yml", ".supdto.yaml", "supdto.yml", "supdto.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if strings.Trim(c.JSON.Indent, " \t") != "" {
		return fmt.Errorf("json.indent may only contain spaces and tabs, got %q", c.JSON.Indent)
	}
	if c.CType.StringSize < 1 {
		return fmt.Errorf("ctype.string_size must be at least 1, got %d", c.CType.StringSize)
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("archive.path must not be empty")
	}
	for _, p := range append(append([]string{}, c.Types.JSON...), c.Types.CUE...) {
		if p == "" {
			return fmt.Errorf("types: empty path")
		}
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if filepath.IsAbs(p) || p == ":memory:" {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Archive.Path = resolve(c.Archive.Path)
	for i, p := range c.Types.JSON {
		c.Types.JSON[i] = resolve(p)
	}
	for i, p := range c.Types.CUE {
		c.Types.CUE[i] = resolve(p)
	}
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
