package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/qdlab/qd-analyzer/cmd/qdmcp/app"
	"github.com/qdlab/qd-analyzer/internal/config"
)

func main() {
	// stdout carries the protocol
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	var configPath string
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.Parse()

	logLevel.Set(slog.LevelWarn)
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
			os.Exit(1)
		}
		logLevel.Set(cfg.Settings.LogLevel)
	}

	logger.Info("starting MCP server via stdio")
	if err := server.ServeStdio(app.NewServer(logger)); err != nil {
		logger.Error(fmt.Sprintf("server error: %s", err.Error()))
		os.Exit(1)
	}
}
