package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanseartic/jsonrpcd/config"
	"github.com/hanseartic/jsonrpcd/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variable names
const (
	EnvDatabaseURL = "JSONRPCD_DATABASE_URL"
	EnvConfigYAML  = "JSONRPCD_CONFIG_YAML"
)

func main() {
	logerConfig := zap.NewProductionConfig()
	logerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := logerConfig.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	configDB := flag.String("database-url", "", "PostgreSQL connection string for configuration")
	configYAML := flag.String("config-yaml", "", "Path to YAML configuration file")
	listenAddr := flag.String("listen", "", "Listen address override (e.g. :8080)")
	flag.Parse()

	if *configDB != "" && *configYAML != "" {
		logger.Fatal("Cannot specify both database-url and config-yaml")
	}

	dbURL := os.Getenv(EnvDatabaseURL)
	if *configDB != "" {
		dbURL = *configDB
	}
	yamlPath := os.Getenv(EnvConfigYAML)
	if *configYAML != "" {
		yamlPath = *configYAML
	}
	if yamlPath == "" && dbURL == "" {
		yamlPath = "config.yaml"
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cfg config.IConfig
	var yamlCfg *config.YamlConfig
	if dbURL != "" {
		logger.Info("Loading configuration from database")
		cfg, err = config.NewDatabaseConfig(dbURL, logger)
		if err != nil {
			logger.Fatal("Failed to create database config", zap.Error(err))
		}
	} else {
		logger.Info("Loading configuration from YAML file", zap.String("path", yamlPath))
		yamlCfg, err = config.NewYamlConfig(yamlPath, logger)
		if err != nil {
			logger.Fatal("Failed to create YAML config", zap.Error(err))
		}
		cfg = yamlCfg
	}
	defer cfg.Close()

	logger = rebuildWithConfiguredLevel(logger, logerConfig, cfg)

	if yamlCfg != nil {
		if err := config.WatchFile(ctx, yamlCfg, logger); err != nil {
			logger.Warn("Configuration file watching disabled", zap.Error(err))
		}
	}

	// Handle shutdown signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received shutdown signal, stopping server...")
		cancel()
	}()

	var serverOptions []server.ServerOption
	if *listenAddr != "" {
		serverOptions = append(serverOptions, server.WithListenAddr(*listenAddr))
	}

	errChan, err := server.Start(ctx, logger, cfg, serverOptions...)
	if err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	select {
	case startErr := <-errChan:
		if startErr != nil {
			logger.Fatal("Server encountered an error", zap.Error(startErr))
		} else {
			logger.Info("Server shutdown initiated cleanly")
		}
	case <-ctx.Done():
		logger.Info("Server context done")
	}

	logger.Info("Server stopped")
}

// rebuildWithConfiguredLevel swaps the logger for one honoring the
// configured log level, keeping the old one when the config is unusable.
func rebuildWithConfiguredLevel(logger *zap.Logger, logerConfig zap.Config, cfg config.IConfig) *zap.Logger {
	logLevel, err := cfg.LogLevel()
	if err != nil {
		logger.Warn("Failed to get log level from config, using default", zap.Error(err))
		return logger
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		logger.Warn("Invalid log level in config, using default", zap.String("level", logLevel), zap.Error(err))
		return logger
	}
	logerConfig.Level = zap.NewAtomicLevelAt(level)
	newLogger, err := logerConfig.Build()
	if err != nil {
		logger.Warn("Failed to create logger with new level, keeping default", zap.Error(err))
		return logger
	}
	logger.Info("Updating log level", zap.String("level", logLevel))
	return newLogger
}
