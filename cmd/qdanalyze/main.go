package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/qdlab/qd-analyzer/cmd/qdanalyze/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	config, err := app.NewConfigFromCLI(os.Args[1:])
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	logLevel.Set(config.LogLevel)

	fmt.Println(app.Run(config, logger))
}
