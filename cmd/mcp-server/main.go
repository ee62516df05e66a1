package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/audit"
	"github.com/redflag-advisory-server/internal/config"
	"github.com/redflag-advisory-server/internal/mcp"
	"github.com/redflag-advisory-server/internal/modelflag"
	"github.com/redflag-advisory-server/internal/rulestore"
	"github.com/redflag-advisory-server/internal/service"
	"github.com/redflag-advisory-server/internal/setup"
)

func main() {
	installFlag := flag.Bool("setup", false, "register this binary with Claude Desktop and exit")
	flag.Parse()

	if *installFlag {
		binary, err := os.Executable()
		if err != nil {
			log.Fatalf("Failed to locate binary: %v", err)
		}
		if err := setup.Install(binary, nil); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		fmt.Println("Registered redflag-advisory with Claude Desktop. Restart Claude Desktop to pick it up.")
		return
	}

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	// Stdout carries the MCP protocol, logs must go to stderr.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	catalogue, report := rulestore.NewLoader(logger).Load(cfg.Rules.PrimaryPath, cfg.Rules.FallbackPath)

	var auditor service.MatchAuditor
	if cfg.Audit.Enabled {
		store, err := audit.NewSQLiteStore(cfg.Audit.DSN)
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

	server := mcp.NewServer(checker, provider, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}
	logger.Info("MCP server stopped")
}
