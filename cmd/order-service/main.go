package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/app"
	"github.com/vladislavdragonenkov/shop-orders/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func main() {
	// .env опционален: в контейнере переменные приходят из окружения.
	envFileErr := godotenv.Load()

	setupLogger(os.Getenv(envLogLevel))
	if envFileErr != nil && !errors.Is(envFileErr, os.ErrNotExist) {
		log.WithError(envFileErr).Warn("failed to load .env file")
	}

	lookup := envLookup(os.LookupEnv)
	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		fileValues, err := loadConfigFile(path)
		if err != nil {
			log.WithError(err).Fatal("failed to load config file")
		}
		lookup = layeredLookup(lookup, fileValues)
	}

	cfg, warnings := readConfigFromEnv(lookup)
	for _, w := range warnings {
		log.WithField("config", w.key).Warnf("invalid config value, using default: %s", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.GetVersion(),
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  cfg.KafkaBrokers != "",
	}).Info("starting order service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("order service exited with error")
	}

	log.Info("order service stopped")
}
