package grpcsvc

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/service/orders"
	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

// OrderService реализует gRPC API поверх сервиса заказов.
type OrderService struct {
	ordersv1.UnimplementedOrderServiceServer

	orders *orders.Service
	logger *log.Entry
}

// NewOrderService конструирует gRPC-адаптер.
func NewOrderService(svc *orders.Service, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.New().WithField("component", "grpc-order-service")
	}
	return &OrderService{orders: svc, logger: logger}
}

// Checkout оформляет заказ из корзины пользователя.
func (s *OrderService) Checkout(ctx context.Context, req *ordersv1.CheckoutRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	order, err := s.orders.Checkout(ctx, req.UserID)
	if err != nil {
		return nil, s.toStatus(err, "checkout")
	}
	return s.present(ctx, order, "checkout")
}

// GetOrder возвращает заказ по идентификатору.
func (s *OrderService) GetOrder(ctx context.Context, req *ordersv1.GetOrderRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err, "get_order")
	}
	return s.present(ctx, order, "get_order")
}

// ListUserOrders возвращает заказы пользователя.
func (s *OrderService) ListUserOrders(ctx context.Context, req *ordersv1.ListUserOrdersRequest) (*ordersv1.ListOrdersResponse, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	list, err := s.orders.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, s.toStatus(err, "list_user_orders")
	}
	return s.presentAll(ctx, list, "list_user_orders")
}

// ListAllOrders возвращает все заказы.
func (s *OrderService) ListAllOrders(ctx context.Context, _ *ordersv1.ListAllOrdersRequest) (*ordersv1.ListOrdersResponse, error) {
	list, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, s.toStatus(err, "list_all_orders")
	}
	return s.presentAll(ctx, list, "list_all_orders")
}

// UpdateOrder меняет статус и, при наличии items, позиции заказа.
func (s *OrderService) UpdateOrder(ctx context.Context, req *ordersv1.UpdateOrderRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	update, err := orders.FromWireUpdate(req.Status, req.Items)
	if err != nil {
		return nil, s.toStatus(err, "update_order")
	}
	order, err := s.orders.Update(ctx, req.OrderID, update)
	if err != nil {
		return nil, s.toStatus(err, "update_order")
	}
	return s.present(ctx, order, "update_order")
}

// UpdateOrderStatus меняет только статус заказа.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req *ordersv1.UpdateOrderStatusRequest) (*ordersv1.OrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := s.orders.UpdateStatus(ctx, req.OrderID, domain.OrderStatus(req.Status))
	if err != nil {
		return nil, s.toStatus(err, "update_order_status")
	}
	return s.present(ctx, order, "update_order_status")
}

// DeleteOrder удаляет заказ.
func (s *OrderService) DeleteOrder(ctx context.Context, req *ordersv1.DeleteOrderRequest) (*ordersv1.DeleteOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	if err := s.orders.Delete(ctx, req.OrderID); err != nil {
		return nil, s.toStatus(err, "delete_order")
	}
	return &ordersv1.DeleteOrderResponse{}, nil
}

func (s *OrderService) present(ctx context.Context, order domain.Order, operation string) (*ordersv1.OrderResponse, error) {
	view, err := s.orders.Present(ctx, order)
	if err != nil {
		return nil, s.toStatus(err, operation)
	}
	return &ordersv1.OrderResponse{Order: orders.ToWire(view)}, nil
}

func (s *OrderService) presentAll(ctx context.Context, list []domain.Order, operation string) (*ordersv1.ListOrdersResponse, error) {
	views, err := s.orders.PresentAll(ctx, list)
	if err != nil {
		return nil, s.toStatus(err, operation)
	}
	return &ordersv1.ListOrdersResponse{Orders: orders.ToWireList(views)}, nil
}

// toStatus переводит доменную ошибку в gRPC status. Детали внутренних ошибок наружу не отдаются.
func (s *OrderService) toStatus(err error, operation string) error {
	switch {
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case isMissingID(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsInvalidState(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case contextCode(err) != codes.OK:
		return status.Error(contextCode(err), err.Error())
	default:
		s.logger.WithError(err).WithField("operation", operation).Error("order request failed")
		return status.Error(codes.Internal, "internal error")
	}
}
