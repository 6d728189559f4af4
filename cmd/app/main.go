package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"weatherhub.app/app"
	"weatherhub.app/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	logger.New().SetDefault()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	setupGracefulShutdown(application)

	if err := application.Start(); err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}
}

func setupGracefulShutdown(application *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		slog.Info("received shutdown signal")
		if err := application.Shutdown(); err != nil {
			slog.Error("error during shutdown", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
}
