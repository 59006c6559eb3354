package orders

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	ordersv1 "github.com/vladislavdragonenkov/shop-orders/proto/orders/v1"
)

// ToWire переводит представление заказа в сообщение API; деньги передаются строкой с двумя знаками.
func ToWire(view OrderView) ordersv1.Order {
	out := ordersv1.Order{
		ID:         view.ID,
		UserID:     view.UserID,
		Username:   view.Username,
		Email:      view.Email,
		TotalPrice: view.TotalPrice.StringFixed(2),
		Status:     string(view.Status),
		OrderItems: make([]ordersv1.OrderItem, 0, len(view.Items)),
		CreatedAt:  view.CreatedAt,
	}
	for _, item := range view.Items {
		out.OrderItems = append(out.OrderItems, ordersv1.OrderItem{
			OrderItemID:        item.ID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductDescription: item.ProductDescription,
			ProductPrice:       item.ProductPrice.StringFixed(2),
			ProductImageURL:    item.ProductImageURL,
			Quantity:           item.Quantity,
			Price:              item.Price.StringFixed(2),
		})
	}
	return out
}

// ToWireList переводит список представлений.
func ToWireList(views []OrderView) []ordersv1.Order {
	out := make([]ordersv1.Order, 0, len(views))
	for _, view := range views {
		out = append(out, ToWire(view))
	}
	return out
}

// FromWireUpdate строит UpdateRequest из сообщения API. Некорректная цена строки
// отклоняется как ErrInvalidLineItems.
func FromWireUpdate(status string, items []ordersv1.LineItem) (UpdateRequest, error) {
	req := UpdateRequest{Status: domain.OrderStatus(status)}
	if items == nil {
		return req, nil
	}

	req.Items = make([]LineItemInput, 0, len(items))
	for i, item := range items {
		in := LineItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Price != nil {
			price, err := decimal.NewFromString(*item.Price)
			if err != nil {
				return UpdateRequest{}, fmt.Errorf("%w: item %d price %q", domain.ErrInvalidLineItems, i, *item.Price)
			}
			in.Price = &price
		}
		req.Items = append(req.Items, in)
	}
	return req, nil
}
