// Package app собирает сервис заказов: хранилище, gRPC, REST, ops-сервер и outbox-воркер.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	healthcheck "github.com/vladislavdragonenkov/shop-orders/internal/health"
	"github.com/vladislavdragonenkov/shop-orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/orders"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/outbox"
	"github.com/vladislavdragonenkov/shop-orders/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или падения одного из серверов.
// При отмене возвращает ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	if cfg.SeedDemoData {
		if err := deps.seed(ctx, defaultDemoData()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo catalog seeded")
	}

	orderService := orders.NewService(
		deps.uow,
		logger.WithField("layer", "service"),
		orders.WithMetrics(metrics.NewOrderMetrics()),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if cfg.OutboxMaxPending > 0 {
		healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.outboxRepo, cfg.OutboxMaxPending, 0))
	}

	grpcServer, grpcHealth := newGRPCServer(orderService, logger)
	apiServer := newAPIServer(cfg.HTTPAddr, orderService, metrics.NewHTTPMetrics(nil), logger)
	opsServer := newOpsServer(cfg.MetricsAddr, healthHandler)

	listeners, err := listenAll(cfg.GRPCAddr, cfg.HTTPAddr, cfg.MetricsAddr)
	if err != nil {
		return err
	}
	grpcLis, apiLis, opsLis := listeners[0], listeners[1], listeners[2]

	// Ошибка Kafka не фатальна: сервис работает, события ждут в outbox.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(producer, logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", grpcLis.Addr().String()).Info("grpc server listening")
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", apiLis.Addr().String()).Info("rest api listening")
		return serveHTTP(apiServer, apiLis, "rest api")
	})
	group.Go(func() error {
		logger.WithField("addr", opsLis.Addr().String()).Info("metrics and health checks listening")
		return serveHTTP(opsServer, opsLis, "ops server")
	})

	if producer != nil {
		worker := outbox.NewWorker(
			deps.outboxRepo,
			kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithMetrics(metrics.NewOutboxMetrics(nil)),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQ)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		group.Go(func() error {
			worker.Run(groupCtx)
			return nil
		})
	} else {
		logger.Info("kafka is not configured, outbox events stay pending")
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		stopGRPC(grpcServer, grpcHealth, cfg.ShutdownTimeout, logger)
		shutdownHTTP(apiServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(opsServer, cfg.ShutdownTimeout, logger)
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func serveHTTP(srv *http.Server, lis net.Listener, name string) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// listenAll открывает все порты до старта серверов, чтобы ошибка адреса
// вернулась из Run сразу.
func listenAll(addrs ...string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			for _, opened := range listeners {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		listeners = append(listeners, lis)
	}
	return listeners, nil
}
