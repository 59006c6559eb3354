package domain

import "github.com/shopspring/decimal"

// CartItem — выбранный пользователем товар и его количество.
type CartItem struct {
	ID        string
	ProductID string
	Quantity  int32
}

// Cart — корзина пользователя. Создаётся за пределами сервиса заказов,
// здесь только читается и очищается после оформления.
type Cart struct {
	ID     string
	UserID string
	Items  []CartItem
}

// ProductIDs возвращает идентификаторы товаров корзины без повторов.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Product — справочные данные товара, которыми владеет каталог.
type Product struct {
	ID          string
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageURL    string
}

// User — данные пользователя, нужные для представления заказа.
type User struct {
	ID       string
	Username string
	Email    string
}
