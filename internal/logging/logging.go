// Package logging builds the hclog logger shared by piiscrub components.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options selects the root logger's behaviour.
type Options struct {
	// Name prefixes every line; defaults to "piiscrub"
	Name string

	// Level is an hclog level name (trace, debug, info, warn, error)
	Level string

	// JSON switches to JSON formatted output
	JSON bool

	// Output defaults to os.Stderr
	Output io.Writer
}

// New creates the root logger and installs it as the hclog default.
func New(opts Options) (hclog.Logger, error) {
	if opts.Name == "" {
		opts.Name = "piiscrub"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	level := hclog.Info
	if opts.Level != "" {
		level = hclog.LevelFromString(opts.Level)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("invalid log level '%s'", opts.Level)
		}
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     opts.Output,
		JSONFormat: opts.JSON,
	})
	hclog.SetDefault(logger)
	return logger, nil
}
