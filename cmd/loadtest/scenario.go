package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

// statusCycle перечисляет статусы, по которым режим read-update гоняет заказ.
var statusCycle = []string{"PROCESSING", "SHIPPED", "DELIVERED", "PENDING"}

// target указывает заказ, на котором выполняется сценарий.
type target struct {
	orderID string
	userID  string
}

// discoverTargets собирает заказы, существующие до начала нагрузки.
// Сервис не умеет наполнять корзины, поэтому нагрузка идёт по готовым заказам.
func discoverTargets(ctx context.Context, client ordersv1.OrderServiceClient, timeout time.Duration, limit int) ([]target, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.ListAllOrders(callCtx, &ordersv1.ListAllOrdersRequest{})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	targets := make([]target, 0, len(resp.Orders))
	for _, order := range resp.Orders {
		if limit > 0 && len(targets) >= limit {
			break
		}
		targets = append(targets, target{orderID: order.ID, userID: order.UserID})
	}
	if len(targets) == 0 {
		return nil, errors.New("no orders to load: check out a few carts first (OMS_SEED_DEMO_DATA=true)")
	}
	return targets, nil
}

func runScenario(ctx context.Context, client ordersv1.OrderServiceClient, cfg config, index int, tgt target, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMetric, time.Since(scenarioStart), scenarioCode)
	}()

	got, err := callGetOrder(ctx, client, cfg.timeout, tgt.orderID, col)
	if err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	if got.Order.ID != tgt.orderID {
		scenarioCode = codes.Internal
		return fmt.Errorf("get order returned %q, want %q", got.Order.ID, tgt.orderID)
	}

	if err := callListUserOrders(ctx, client, cfg.timeout, tgt.userID, col); err != nil {
		scenarioCode = grpcCode(err)
		return err
	}

	if cfg.mode != modeReadUpdate {
		return nil
	}

	next := statusCycle[index%len(statusCycle)]
	if err := callUpdateStatus(ctx, client, cfg.timeout, tgt.orderID, next, col); err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	return nil
}

func callGetOrder(ctx context.Context, client ordersv1.OrderServiceClient, timeout time.Duration, orderID string, col *collector) (*ordersv1.OrderResponse, error) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.GetOrder(callCtx, &ordersv1.GetOrderRequest{OrderID: orderID})
	col.record("GetOrder", time.Since(start), grpcCode(err))
	return resp, err
}

func callListUserOrders(ctx context.Context, client ordersv1.OrderServiceClient, timeout time.Duration, userID string, col *collector) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := client.ListUserOrders(callCtx, &ordersv1.ListUserOrdersRequest{UserID: userID})
	col.record("ListUserOrders", time.Since(start), grpcCode(err))
	return err
}

func callUpdateStatus(ctx context.Context, client ordersv1.OrderServiceClient, timeout time.Duration, orderID, next string, col *collector) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := client.UpdateOrderStatus(callCtx, &ordersv1.UpdateOrderStatusRequest{OrderID: orderID, Status: next})
	col.record("UpdateOrderStatus", time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
