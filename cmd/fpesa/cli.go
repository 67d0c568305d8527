package main

import (
	"flag"

	"github.com/BenediktSeidl/fpesa/internal/logging"
)

// baseLevel is the bridge's default verbosity, WARNING in the Python
// logging module's numbering the original CLI used.
const baseLevel = 30

// levelStep is how much each -v/-q occurrence moves the level: -v makes the
// process more verbose (lower numeric level), -q less verbose (higher).
const levelStep = 10

// countFlag implements flag.Value so -v/-q can be repeated on the command
// line and counted, matching the original CLI's "arithmetic sum" verbosity
// control.
type countFlag int

func (c *countFlag) String() string { return "" }

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

func (c *countFlag) IsBoolFlag() bool { return true }

// verbosityFlags registers -v and -q on fs and returns a function that
// resolves the final, clamped log level once fs has been parsed.
func verbosityFlags(fs *flag.FlagSet) func() int {
	var verbose, quiet countFlag
	fs.Var(&verbose, "v", "increase log verbosity (repeatable)")
	fs.Var(&quiet, "q", "decrease log verbosity (repeatable)")
	return func() int {
		adjustment := -int(verbose)*levelStep + int(quiet)*levelStep
		return logging.ClampLevel(baseLevel, adjustment)
	}
}
