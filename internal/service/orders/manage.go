package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// LineItemInput задаёт новую позицию заказа при обновлении.
type LineItemInput struct {
	ProductID string
	Quantity  int32
	// Явная стоимость строки. Если nil, берётся текущая цена товара × количество.
	Price *decimal.Decimal
}

// UpdateRequest описывает изменение заказа.
type UpdateRequest struct {
	Status domain.OrderStatus
	// Items == nil оставляет позиции как есть; непустой срез заменяет их целиком,
	// пустой (но не nil) срез отклоняется.
	Items []LineItemInput
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	var order domain.Order
	err := s.observe(ctx, opGet, log.Fields{"order_id": id}, func(ctx context.Context) error {
		if strings.TrimSpace(id) == "" {
			return domain.ErrOrderIDRequired
		}
		var err error
		order, err = s.uow.Repositories().Orders.Get(ctx, id)
		return err
	})
	return order, err
}

// ListByUser возвращает заказы пользователя, новые первыми. Пустой список не ошибка.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.observe(ctx, opListByUser, log.Fields{"user_id": userID}, func(ctx context.Context) error {
		var err error
		orders, err = s.uow.Repositories().Orders.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ListAll возвращает все заказы, новые первыми.
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.observe(ctx, opListAll, log.Fields{}, func(ctx context.Context) error {
		var err error
		orders, err = s.uow.Repositories().Orders.ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// Update заменяет статус и, если переданы, позиции заказа. Итог пересчитывается по новым позициям.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (domain.Order, error) {
	var updated domain.Order
	err := s.observe(ctx, opUpdate, log.Fields{"order_id": id, "status": req.Status}, func(ctx context.Context) error {
		if strings.TrimSpace(id) == "" {
			return domain.ErrOrderIDRequired
		}
		if strings.TrimSpace(string(req.Status)) == "" {
			return domain.ErrStatusRequired
		}
		if req.Items != nil {
			if err := validateLineItems(req.Items); err != nil {
				return err
			}
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			order, err := repos.Orders.Get(ctx, id)
			if err != nil {
				return err
			}

			if req.Items != nil {
				items, err := s.buildLineItems(ctx, repos, order.ID, req.Items)
				if err != nil {
					return err
				}
				order.ReplaceItems(items)
				if err := repos.Orders.ReplaceItems(ctx, order.ID, order.Items); err != nil {
					return fmt.Errorf("replace order items: %w", err)
				}
			}

			order.Status = req.Status
			order.UpdatedAt = s.now()
			if err := order.CheckInvariants(); err != nil {
				return err
			}
			if err := repos.Orders.Save(ctx, order); err != nil {
				return fmt.Errorf("save order: %w", err)
			}
			if err := s.enqueueEvent(ctx, repos, domain.EventOrderUpdated, order); err != nil {
				return err
			}

			updated = order
			return nil
		})
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.metrics.RecordOutboxEvent(domain.EventOrderUpdated)
	return updated, nil
}

// UpdateStatus меняет только статус заказа, позиции не трогаются.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	var updated domain.Order
	err := s.observe(ctx, opUpdateStatus, log.Fields{"order_id": id, "status": status}, func(ctx context.Context) error {
		if strings.TrimSpace(id) == "" {
			return domain.ErrOrderIDRequired
		}
		if strings.TrimSpace(string(status)) == "" {
			return domain.ErrStatusRequired
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			order, err := repos.Orders.Get(ctx, id)
			if err != nil {
				return err
			}
			order.Status = status
			order.UpdatedAt = s.now()
			if err := repos.Orders.Save(ctx, order); err != nil {
				return fmt.Errorf("save order: %w", err)
			}
			if err := s.enqueueEvent(ctx, repos, domain.EventOrderStatusChanged, order); err != nil {
				return err
			}
			updated = order
			return nil
		})
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.metrics.RecordOutboxEvent(domain.EventOrderStatusChanged)
	return updated, nil
}

// Delete удаляет заказ вместе с позициями.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.observe(ctx, opDelete, log.Fields{"order_id": id}, func(ctx context.Context) error {
		if strings.TrimSpace(id) == "" {
			return domain.ErrOrderIDRequired
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			order, err := repos.Orders.Get(ctx, id)
			if err != nil {
				return err
			}
			if err := repos.Orders.Delete(ctx, id); err != nil {
				return err
			}
			return s.enqueueEvent(ctx, repos, domain.EventOrderDeleted, order)
		})
	})
	if err != nil {
		return err
	}
	s.metrics.RecordOutboxEvent(domain.EventOrderDeleted)
	return nil
}

func validateLineItems(items []LineItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrInvalidLineItems)
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: item %d has no product_id", domain.ErrInvalidLineItems, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has quantity %d", domain.ErrInvalidLineItems, i, item.Quantity)
		}
		if item.Price == nil {
			continue
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: item %d has negative price", domain.ErrInvalidLineItems, i)
		}
		if !domain.HasMoneyScale(*item.Price) {
			return fmt.Errorf("%w: item %d price %s has more than %d decimal places", domain.ErrInvalidLineItems, i, item.Price, domain.MoneyPlaces)
		}
	}
	return nil
}

func (s *Service) buildLineItems(ctx context.Context, repos domain.Repositories, orderID string, inputs []LineItemInput) ([]domain.OrderItem, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
	}
	products, err := repos.Products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	now := s.now()
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		product, ok := products[in.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s does not exist", domain.ErrInvalidLineItems, in.ProductID)
		}
		price := domain.LinePrice(product.UnitPrice, in.Quantity)
		if in.Price != nil {
			price = *in.Price
		}
		items = append(items, domain.OrderItem{
			ID:        s.newID(),
			OrderID:   orderID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Price:     price,
			CreatedAt: now,
		})
	}
	return items, nil
}
