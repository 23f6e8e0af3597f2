package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qdlab/qd-analyzer/internal/config"
)

const (
	ModeLIV Mode = "liv"
	ModeOSA Mode = "osa"
)

// Mode selects the analyzer to run
type Mode string

var validModes = map[Mode]struct{}{
	ModeLIV: {},
	ModeOSA: {},
}

type Config struct {
	Mode     Mode
	Folder   string
	LogLevel slog.Level
}

func NewConfigFromCLI(args []string) (*Config, error) {
	c := Config{LogLevel: slog.LevelWarn}

	fs := flag.NewFlagSet("qdanalyze", flag.ContinueOnError)

	var mode, configPath string
	var verbose bool
	fs.StringVar(&mode, "mode", "", "Analysis to run. [liv, osa]")
	fs.StringVar(&c.Folder, "dir", "", "Folder containing the measurement CSV files")
	fs.StringVar(&configPath, "c", "", "Path to the configuration file")
	fs.BoolVar(&verbose, "v", false, "Enable more verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	mode = strings.ToLower(mode)

	var err error
	if _, ok := validModes[Mode(mode)]; !ok {
		err = fmt.Errorf("invalid mode: '%s'", mode)
	} else if c.Folder == "" {
		err = errors.New("folder is required")
	}
	if err != nil {
		fs.Usage()
		return nil, err
	}
	c.Mode = Mode(mode)

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
		c.LogLevel = cfg.Settings.LogLevel
	}
	if verbose {
		c.LogLevel = slog.LevelDebug
	}

	return &c, nil
}
