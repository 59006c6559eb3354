package orders

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// Checkout превращает корзину пользователя в заказ со статусом PENDING.
// Создание заказа, очистка корзины и событие order.created выполняются атомарно:
// при любой ошибке ничего не записывается и корзина остаётся прежней.
func (s *Service) Checkout(ctx context.Context, userID string) (domain.Order, error) {
	var created domain.Order
	err := s.observe(ctx, opCheckout, log.Fields{"user_id": userID}, func(ctx context.Context) error {
		if strings.TrimSpace(userID) == "" {
			return domain.ErrUserIDRequired
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			cart, err := repos.Carts.GetByUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("load cart: %w", err)
			}
			if len(cart.Items) == 0 {
				return domain.ErrEmptyCart
			}

			if _, err := repos.Users.Get(ctx, cart.UserID); err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("%w: user %s is missing", domain.ErrInvalidCartState, cart.UserID)
				}
				return fmt.Errorf("load user: %w", err)
			}

			products, err := repos.Products.GetMany(ctx, cart.ProductIDs())
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}

			order, err := s.buildOrder(cart, products)
			if err != nil {
				return err
			}

			if err := repos.Orders.Create(ctx, order); err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			if err := repos.Carts.Clear(ctx, cart.ID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			if err := s.enqueueEvent(ctx, repos, domain.EventOrderCreated, order); err != nil {
				return err
			}

			created = order
			return nil
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordCheckout(len(created.Items))
	s.metrics.RecordOutboxEvent(domain.EventOrderCreated)
	s.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"user_id":     created.UserID,
		"total_price": created.TotalPrice.StringFixed(2),
		"items":       len(created.Items),
	}).Info("order created from cart")
	return created, nil
}

// buildOrder переносит позиции корзины в заказ, фиксируя стоимость строк по текущим ценам.
func (s *Service) buildOrder(cart domain.Cart, products map[string]domain.Product) (domain.Order, error) {
	now := s.now()
	order := domain.Order{
		ID:        s.newID(),
		UserID:    cart.UserID,
		Status:    domain.OrderStatusPending,
		Items:     make([]domain.OrderItem, 0, len(cart.Items)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, ci := range cart.Items {
		if ci.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: cart item %s has quantity %d", domain.ErrInvalidCartState, ci.ID, ci.Quantity)
		}
		product, ok := products[ci.ProductID]
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: product %s is missing", domain.ErrInvalidCartState, ci.ProductID)
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:        s.newID(),
			OrderID:   order.ID,
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     domain.LinePrice(product.UnitPrice, ci.Quantity),
			CreatedAt: now,
		})
	}
	order.TotalPrice = order.ItemsTotal()
	if err := order.CheckInvariants(); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}
