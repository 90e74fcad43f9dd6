package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"errwatch/internal/api"
	"errwatch/internal/banner"
	"errwatch/internal/config"
	"errwatch/internal/server"
	"errwatch/internal/store"
)

func main() {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

	banner.PrintServer()

	logger.Info("Initializing errwatch server...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithCaller().Fatal("Failed to load configuration", logger.Args("error", err))
	}

	logger = pterm.DefaultLogger.WithLevel(logLevelFromString(cfg.LogLevel))
	logger.Debug("Log level set", logger.Args("level", cfg.LogLevel))

	logger.Debug("Configuration loaded",
		logger.Args(
			"dashboard_port", cfg.Server.DashboardPort,
			"transport_port", cfg.Transport.Port,
			"store_max_errors", cfg.Store.MaxErrors,
		))

	memStore := store.New(cfg.Store.MaxErrors, cfg.Store.PatternTableSize, cfg.Store.TrendWindow, logger)

	bcast := server.NewBroadcast(memStore, logger)
	hub := server.NewHub(memStore, bcast, logger)

	handlers := api.NewHandlers(memStore, hub, logger)
	restServer := api.NewServer(api.Config{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.DashboardPort,
		Production: cfg.Server.Production,
	}, handlers, logger)

	transportMux := http.NewServeMux()
	transportMux.Handle("/agent", hub)
	transportServer := &http.Server{
		Addr:    cfg.Transport.Host + ":" + strconv.Itoa(cfg.Transport.Port),
		Handler: transportMux,
	}

	dashboardPushMux := http.NewServeMux()
	dashboardPushMux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		bcast.ServeHTTP(w, r, hub.AgentRecords())
	})
	dashboardPushServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.DashboardPort+1),
		Handler: dashboardPushMux,
	}

	go func() {
		logger.Info("agent transport listening", logger.Args("address", transportServer.Addr))
		if err := transportServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithCaller().Error("agent transport failed", logger.Args("error", err))
		}
	}()

	go func() {
		logger.Info("dashboard push transport listening", logger.Args("address", dashboardPushServer.Addr))
		if err := dashboardPushServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithCaller().Error("dashboard push transport failed", logger.Args("error", err))
		}
	}()

	go func() {
		if err := restServer.Run(); err != nil {
			logger.WithCaller().Error("REST server error", logger.Args("error", err))
		}
	}()

	logger.Info("errwatch server is running",
		logger.Args("rest", pterm.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.DashboardPort)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.WithCaller().Error("REST server shutdown error", logger.Args("error", err))
	}
	if err := transportServer.Shutdown(shutdownCtx); err != nil {
		logger.WithCaller().Error("agent transport shutdown error", logger.Args("error", err))
	}
	if err := dashboardPushServer.Shutdown(shutdownCtx); err != nil {
		logger.WithCaller().Error("dashboard push transport shutdown error", logger.Args("error", err))
	}

	logger.Info("errwatch server stopped gracefully")
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

