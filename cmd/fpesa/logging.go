package main

import (
	"go.uber.org/zap"

	"github.com/BenediktSeidl/fpesa/internal/logging"
)

// newLogger builds the named, leveled logger shared by every subcommand.
func newLogger(name string, level int) (*zap.Logger, error) {
	return logging.New(name, level)
}
