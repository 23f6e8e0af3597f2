// Package config loads the YAML configuration shared by the command line
// tools.
//
// Example:
//
//	settings:
//	  logLevel: info
//	server:
//	  address: ":8501"
//	  maxUploadSize: "64 MiB"
//	  chart:
//	    width: 1200
//	    height: 600
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress       = ":8501"
	DefaultMaxUploadSize = "64 MiB"
	DefaultChartWidth    = 1200
	DefaultChartHeight   = 600

	minChartWidth  = 320
	minChartHeight = 240
)

// Error is returned when the configuration is invalid
type Error struct {
	msg string
}

func newError(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.msg
}

// Config represents the application configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Server   ServerConfig `yaml:"server"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel"`
}

// ServerConfig represents the upload server settings
type ServerConfig struct {
	Address       string      `yaml:"address"`
	MaxUploadSize string      `yaml:"maxUploadSize"` // Human-readable size, e.g. "64 MiB"
	Chart         ChartConfig `yaml:"chart"`
}

// ChartConfig represents the size of rendered summary charts in pixels
type ChartConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo},
		Server: ServerConfig{
			Address:       DefaultAddress,
			MaxUploadSize: DefaultMaxUploadSize,
			Chart: ChartConfig{
				Width:  DefaultChartWidth,
				Height: DefaultChartHeight,
			},
		},
	}
}

// Load reads the configuration file at path. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening configuration file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads the configuration from r and validates it
func Decode(r io.Reader) (*Config, error) {
	c := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return newError("config: server address is required")
	}
	if _, err := c.Server.UploadLimit(); err != nil {
		return err
	}
	if c.Server.Chart.Width < minChartWidth {
		return newError("config: chart width must be at least %d px: %d given", minChartWidth, c.Server.Chart.Width)
	}
	if c.Server.Chart.Height < minChartHeight {
		return newError("config: chart height must be at least %d px: %d given", minChartHeight, c.Server.Chart.Height)
	}
	return nil
}

// UploadLimit returns the maximum upload size in bytes
func (s *ServerConfig) UploadLimit() (int64, error) {
	n, err := humanize.ParseBytes(s.MaxUploadSize)
	if err != nil {
		return 0, newError("config: invalid max upload size %q: %s", s.MaxUploadSize, err)
	}
	if n == 0 {
		return 0, newError("config: max upload size must be positive")
	}
	if n > math.MaxInt64 {
		return 0, newError("config: max upload size %q is too large", s.MaxUploadSize)
	}
	return int64(n), nil
}
