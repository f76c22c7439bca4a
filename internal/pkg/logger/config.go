package logger

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

var validLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// Config defines the logger configuration
type Config struct {
	Level            string     `mapstructure:"level"`   // debug, info, warn, error
	Format           string     `mapstructure:"format"`  // json, console
	Output           string     `mapstructure:"output"`  // console, file, both
	Service          string     `mapstructure:"service"` // attached as the "service" field
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enable_caller"`
	EnableStacktrace bool       `mapstructure:"enable_stacktrace"`
}

// FileConfig defines rotating file output
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		Service:          "doc-catalog",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/catalog.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

// Validate validates the logger configuration
func (c *Config) Validate() error {
	if !lo.Contains(validLevels, strings.ToLower(c.Level)) {
		return errors.New("invalid log level, must be one of: " + strings.Join(validLevels, ", "))
	}
	if c.Format != "json" && c.Format != "console" {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}
	if c.Output != "console" && c.Output != "file" && c.Output != "both" {
		return errors.New("invalid log output, must be 'console', 'file' or 'both'")
	}

	if c.Output == "console" {
		return nil
	}
	switch {
	case c.File.Filename == "":
		return errors.New("log file filename is required when output is 'file' or 'both'")
	case c.File.MaxSize <= 0:
		return errors.New("log file max_size must be greater than 0")
	case c.File.MaxAge <= 0:
		return errors.New("log file max_age must be greater than 0")
	case c.File.MaxBackups < 0:
		return errors.New("log file max_backups must be greater than or equal to 0")
	}
	return nil
}
