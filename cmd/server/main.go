package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/api"
	"github.com/redflag-advisory-server/internal/audit"
	"github.com/redflag-advisory-server/internal/config"
	"github.com/redflag-advisory-server/internal/domain"
	"github.com/redflag-advisory-server/internal/modelflag"
	"github.com/redflag-advisory-server/internal/rulestore"
	"github.com/redflag-advisory-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(&cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting red-flag advisory server")

	catalogue, report := rulestore.NewLoader(logger).Load(cfg.Rules.PrimaryPath, cfg.Rules.FallbackPath)

	var auditor service.MatchAuditor
	if cfg.Audit.Enabled {
		store, err := newAuditStore(&cfg.Audit)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open audit store")
		}
		defer store.Close()
		auditor = store
	}

	checker, err := service.NewChecker(
		service.NewMatcher(&cfg.Matcher, logger),
		service.NewResolver(logger),
		catalogue, report, auditor, cfg.Matcher.CacheSize, logger,
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create checker")
	}

	var provider modelflag.Provider
	if cfg.Model.Enabled {
		provider = modelflag.NewResilientProvider(modelflag.NewOpenAIProvider(&cfg.Model), logger)
	}

	server := api.NewServer(cfg, checker, provider, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func newLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func newAuditStore(cfg *domain.AuditConfig) (audit.Store, error) {
	if cfg.Driver == "postgres" {
		return audit.NewPostgresStoreFromURL(cfg.DSN)
	}
	return audit.NewSQLiteStore(cfg.DSN)
}
