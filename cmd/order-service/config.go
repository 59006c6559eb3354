package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/shop-orders/internal/app"
)

const (
	envConfigFile = "OMS_CONFIG_FILE"
	envLogLevel   = "OMS_LOG_LEVEL"

	envGRPCAddr    = "OMS_GRPC_ADDR"
	envHTTPAddr    = "OMS_HTTP_ADDR"
	envMetricsAddr = "OMS_METRICS_ADDR"

	envStorageDriver       = "OMS_STORAGE_DRIVER"
	envPostgresDSN         = "OMS_POSTGRES_DSN"
	envPostgresAutoMigrate = "OMS_POSTGRES_AUTO_MIGRATE"
	envSeedDemoData        = "OMS_SEED_DEMO_DATA"

	envKafkaBrokers  = "KAFKA_BROKERS"
	envKafkaTopic    = "OMS_KAFKA_TOPIC"
	envKafkaDLQTopic = "OMS_KAFKA_DLQ_TOPIC"

	envOutboxPollInterval = "OMS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize    = "OMS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts  = "OMS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay   = "OMS_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending   = "OMS_OUTBOX_MAX_PENDING"

	envShutdownTimeout = "OMS_SHUTDOWN_TIMEOUT"
)

// envLookup повторяет сигнатуру os.LookupEnv, в тестах подменяется.
type envLookup func(string) (string, bool)

// configWarning описывает некорректное значение, вместо которого взят default.
type configWarning struct {
	key   string
	value string
	err   error
}

func (w configWarning) String() string {
	return fmt.Sprintf("%s=%q: %v", w.key, w.value, w.err)
}

// readConfigFromEnv строит app.Config поверх DefaultConfig.
// Невалидные значения не роняют запуск: остаётся default, возвращается предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []configWarning) {
	cfg := app.DefaultConfig()
	var warnings []configWarning

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, configWarning{key: key, value: v, err: err})
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int, validate func(int) bool, msg string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, validate, msg)
		if err != nil {
			warnings = append(warnings, configWarning{key: key, value: v, err: err})
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, validate func(time.Duration) bool, msg string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, validate, msg)
		if err != nil {
			warnings = append(warnings, configWarning{key: key, value: v, err: err})
			return
		}
		*dst = parsed
	}

	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)

	str(envStorageDriver, &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	boolean(envSeedDemoData, &cfg.SeedDemoData)

	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaDLQTopic, &cfg.KafkaDLQ)

	positiveInt := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(envOutboxBatchSize, &cfg.OutboxBatchSize, positiveInt, "must be > 0")
	integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positiveInt, "must be > 0")
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")
	integer(envOutboxMaxPending, &cfg.OutboxMaxPending, func(v int) bool { return v >= 0 }, "must be >= 0")
	duration(envShutdownTimeout, &cfg.ShutdownTimeout, positiveDuration, "must be > 0")

	return cfg, warnings
}

// loadConfigFile читает плоский YAML вида `OMS_GRPC_ADDR: ":50051"`.
// Ключи совпадают с переменными окружения.
func loadConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		values[strings.TrimSpace(key)] = fmt.Sprint(value)
	}
	return values, nil
}

// layeredLookup: окружение главнее файла. Пустая переменная окружения
// считается незаданной и не перекрывает значение из файла.
func layeredLookup(primary envLookup, fallback map[string]string) envLookup {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, errors.New("invalid boolean value")
	}
}

func parseInt(raw string, validate func(int) bool, validationMsg string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(value) {
		return 0, errors.New(validationMsg)
	}
	return value, nil
}

func parseDuration(raw string, validate func(time.Duration) bool, validationMsg string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if validate != nil && !validate(value) {
		return 0, errors.New(validationMsg)
	}
	return value, nil
}
