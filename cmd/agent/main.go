package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"errwatch/internal/agent"
	"errwatch/internal/banner"
	"errwatch/internal/config"
	"errwatch/internal/enrichment"
)

func main() {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

	banner.PrintAgent()

	logger.Info("Initializing errwatch agent...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithCaller().Fatal("Failed to load configuration", logger.Args("error", err))
	}

	logger = pterm.DefaultLogger.WithLevel(logLevelFromString(cfg.LogLevel))
	logger.Debug("Log level set", logger.Args("level", cfg.LogLevel))

	geoIP := enrichment.New(cfg.GeoIP, logger)
	if geoIP.IsEnabled() {
		logger.Info("GeoIP enrichment enabled")
	}

	transportURL := "ws://" + cfg.Transport.Host + ":" + strconv.Itoa(cfg.Transport.Port) + "/agent"
	a := agent.New(cfg.Agent, transportURL, geoIP, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received, stopping agent...")
		cancel()
	}()

	logger.Info("errwatch agent is running", logger.Args("transport", transportURL))
	a.Run(ctx)

	if err := geoIP.Close(); err != nil {
		logger.Warn("error closing GeoIP databases", logger.Args("error", err))
	}

	logger.Info("errwatch agent stopped gracefully")
}

func logLevelFromString(lvl string) pterm.LogLevel {
	switch strings.ToLower(lvl) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "info":
		return pterm.LogLevelInfo
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "fatal":
		return pterm.LogLevelFatal
	default:
		return pterm.LogLevelInfo
	}
}
