// Package logging builds the structured logger shared by every fpesa
// subcommand, translating the CLI's arithmetic -v/-q verbosity level into a
// zap configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MinLevel and MaxLevel bound the clamped verbosity accepted from the CLI,
// matching the Python logging module's level numbering the original bridge
// used (10=DEBUG .. 50=CRITICAL).
const (
	MinLevel = 10
	MaxLevel = 50
)

// ClampLevel sums the -v/-q occurrences against a base level and clamps the
// result to [MinLevel, MaxLevel].
func ClampLevel(base int, adjustments ...int) int {
	level := base
	for _, a := range adjustments {
		level += a
	}
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// zapLevel maps the Python-style level number onto a zapcore.Level. Anything
// at or below 10 is debug; the usual bridge default of 30 (WARNING) maps to
// zap's info so operational messages stay visible.
func zapLevel(level int) zapcore.Level {
	switch {
	case level <= 10:
		return zapcore.DebugLevel
	case level <= 30:
		return zapcore.InfoLevel
	case level <= 40:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// New builds the logger for one subcommand, named so every log line can be
// attributed to the process that emitted it (restmapper, liveupdate,
// messages_post, messages_get).
func New(subcommand string, level int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named(subcommand), nil
}
