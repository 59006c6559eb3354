package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/shop-orders/internal/health"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/shop-orders/internal/service/grpc"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/httpapi"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/orders"
	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

const readHeaderTimeout = 5 * time.Second

// newGRPCServer собирает gRPC-сервер с метриками и стандартным health-сервисом.
func newGRPCServer(svc *orders.Service, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	ordersv1.RegisterOrderServiceServer(server, grpcsvc.NewOrderService(svc, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ordersv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// newAPIServer поднимает REST API заказов.
func newAPIServer(addr string, svc *orders.Service, httpMetrics *metrics.HTTPMetrics, logger *log.Entry) *http.Server {
	router := mux.NewRouter()
	router.Use(httpMetrics.Middleware)
	httpapi.NewHandler(svc, logger.WithField("layer", "http")).RegisterRoutes(router)

	return &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: readHeaderTimeout}
}

// newOpsServer обслуживает /metrics и health-пробы.
func newOpsServer(addr string, healthHandler *healthcheck.Handler) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/healthz", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/livez", healthcheck.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthHandler.ReadinessHandler).Methods(http.MethodGet)

	return &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: readHeaderTimeout}
}

// stopGRPC пытается остановиться штатно и обрывает соединения по таймауту.
func stopGRPC(server *grpc.Server, healthServer *health.Server, timeout time.Duration, logger *log.Entry) {
	healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("grpc graceful stop timed out, forcing stop")
		server.Stop()
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).WithField("addr", srv.Addr).Warn("http shutdown with error")
	}
}
