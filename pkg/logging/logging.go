// Package logging builds the zap loggers used by the scheduler and prefixes
// them with the module and service producing the messages.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logger configuration
type Config struct {
	// Level is the minimum severity: verbose, debug, info, notice, warning, error
	Level string

	// Development enables the development encoder and stack traces on warnings
	Development bool

	// Encoding is "console" or "json"
	Encoding string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:    "info",
		Encoding: "console",
	}
}

// ParseLevel maps a severity name onto a zap level. Verbose collapses to
// debug and notice to info since zap has no matching levels.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "debug":
		return zapcore.DebugLevel, nil
	case "info", "notice", "":
		return zapcore.InfoLevel, nil
	case "warning", "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New creates a logger from the configuration
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	if zcfg.Encoding == "console" {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return zcfg.Build()
}

// Prefixed returns a sugared logger tagged with the module and service
// producing the messages. A nil base yields a no-op logger.
func Prefixed(base *zap.Logger, module, service string) *zap.SugaredLogger {
	if base == nil {
		base = zap.NewNop()
	}

	logger := base
	if module != "" {
		logger = logger.Named(module)
	}
	if service != "" {
		logger = logger.With(zap.String("service", service))
	}
	return logger.Sugar()
}
