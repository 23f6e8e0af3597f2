package app

import (
	"log/slog"

	"github.com/qdlab/qd-analyzer/internal/analysis"
)

// Run analyzes the configured folder and returns the status message
func Run(config *Config, logger *slog.Logger) string {
	logger.Info("starting analysis",
		slog.String("mode", string(config.Mode)),
		slog.String("folder", config.Folder))

	opts := []analysis.Option{analysis.WithLogger(logger)}

	switch config.Mode {
	case ModeOSA:
		return analysis.RunOSA(config.Folder, opts...)
	default:
		return analysis.RunLIV(config.Folder, opts...)
	}
}
