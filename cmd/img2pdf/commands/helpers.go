package commands

import (
	"github.com/feichai0017/image2pdf/config"
	"github.com/feichai0017/image2pdf/pkg/logger"
)

// newLogger builds the CLI logger: console on stderr, plus the rotated
// log file when one is configured.
func newLogger(cfg *config.Config) (logger.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}

	paths := []string{"stderr"}
	if cfg.Log.File != "" {
		paths = append(paths, cfg.Log.File)
	}

	return logger.NewLogger(
		logger.WithLevel(level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths(paths),
	)
}
