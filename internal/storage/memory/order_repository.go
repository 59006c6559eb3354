package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// orderRepository хранит заказы в памяти.
type orderRepository struct {
	b binding
}

func copyOrder(order domain.Order) domain.Order {
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	return order
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	return r.b.do(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		if err := checkProducts(st, order.Items); err != nil {
			return err
		}
		// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
		st.orders[order.ID] = copyOrder(order)
		return nil
	})
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	var order domain.Order
	err := r.b.do(func(st *state) error {
		stored, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = copyOrder(stored)
		return nil
	})
	return order, err
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (r *orderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return r.list(func(o domain.Order) bool { return o.UserID == userID })
}

// ListAll возвращает все заказы, новые первыми.
func (r *orderRepository) ListAll(_ context.Context) ([]domain.Order, error) {
	return r.list(func(domain.Order) bool { return true })
}

func (r *orderRepository) list(match func(domain.Order) bool) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	err := r.b.do(func(st *state) error {
		for _, order := range st.orders {
			if match(order) {
				result = append(result, copyOrder(order))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Save обновляет заголовок заказа, позиции остаются прежними.
func (r *orderRepository) Save(_ context.Context, order domain.Order) error {
	return r.b.do(func(st *state) error {
		current, ok := st.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		current.Status = order.Status
		current.TotalPrice = order.TotalPrice
		current.UpdatedAt = order.UpdatedAt
		st.orders[order.ID] = current
		return nil
	})
}

// ReplaceItems заменяет позиции заказа целиком.
func (r *orderRepository) ReplaceItems(_ context.Context, orderID string, items []domain.OrderItem) error {
	return r.b.do(func(st *state) error {
		current, ok := st.orders[orderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if err := checkProducts(st, items); err != nil {
			return err
		}
		current.Items = append([]domain.OrderItem(nil), items...)
		st.orders[orderID] = current
		return nil
	})
}

// Delete удаляет заказ вместе с позициями.
func (r *orderRepository) Delete(_ context.Context, id string) error {
	return r.b.do(func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return domain.ErrOrderNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

// checkProducts повторяет внешний ключ order_items.product_id из PostgreSQL-схемы.
func checkProducts(st *state, items []domain.OrderItem) error {
	for _, item := range items {
		if _, ok := st.products[item.ProductID]; !ok {
			return fmt.Errorf("order item references product %s: %w", item.ProductID, domain.ErrIntegrityViolation)
		}
	}
	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
