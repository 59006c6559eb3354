package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// OrderItemView — позиция заказа в ответе клиенту.
type OrderItemView struct {
	ID                 string
	ProductID          string
	ProductName        string
	ProductDescription string
	// Текущая цена товара за единицу.
	ProductPrice    decimal.Decimal
	ProductImageURL string
	Quantity        int32
	// Стоимость строки, зафиксированная при оформлении.
	Price decimal.Decimal
}

// OrderView — заказ, дополненный данными пользователя и каталога.
type OrderView struct {
	ID         string
	UserID     string
	Username   string
	Email      string
	TotalPrice decimal.Decimal
	Status     domain.OrderStatus
	Items      []OrderItemView
	CreatedAt  string
}

// Present собирает представление одного заказа.
func (s *Service) Present(ctx context.Context, order domain.Order) (OrderView, error) {
	views, err := s.PresentAll(ctx, []domain.Order{order})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

// PresentAll собирает представления заказов; справочные данные читаются пачкой.
// Ссылка на отсутствующего пользователя или товар считается нарушением целостности.
func (s *Service) PresentAll(ctx context.Context, orders []domain.Order) ([]OrderView, error) {
	views := make([]OrderView, 0, len(orders))
	err := s.observe(ctx, opPresent, log.Fields{"orders": len(orders)}, func(ctx context.Context) error {
		repos := s.uow.Repositories()

		var productIDs []string
		for _, order := range orders {
			for _, item := range order.Items {
				productIDs = append(productIDs, item.ProductID)
			}
		}
		products, err := repos.Products.GetMany(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		users := make(map[string]domain.User)
		for _, order := range orders {
			if _, ok := users[order.UserID]; ok {
				continue
			}
			user, err := repos.Users.Get(ctx, order.UserID)
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("%w: order %s references user %s", domain.ErrOrderUserMissing, order.ID, order.UserID)
				}
				return fmt.Errorf("load user: %w", err)
			}
			users[order.UserID] = user
		}

		for _, order := range orders {
			view, err := shapeOrder(order, users[order.UserID], products)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// shapeOrder собирает представление из заказа и справочных данных без обращения к хранилищу.
func shapeOrder(order domain.Order, user domain.User, products map[string]domain.Product) (OrderView, error) {
	view := OrderView{
		ID:         order.ID,
		UserID:     order.UserID,
		Username:   user.Username,
		Email:      user.Email,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		Items:      make([]OrderItemView, 0, len(order.Items)),
	}
	if !order.CreatedAt.IsZero() {
		view.CreatedAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}

	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return OrderView{}, fmt.Errorf("%w: order %s item %s references product %s",
				domain.ErrOrderProductMissing, order.ID, item.ID, item.ProductID)
		}
		view.Items = append(view.Items, OrderItemView{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			ProductPrice:       product.UnitPrice,
			ProductImageURL:    product.ImageURL,
			Quantity:           item.Quantity,
			Price:              item.Price,
		})
	}
	return view, nil
}
