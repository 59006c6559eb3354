package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа. Хранится строкой как есть:
// сервис не проверяет допустимость переходов между статусами.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен из корзины и ждёт обработки.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing — заказ собирается.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered — заказ получен покупателем.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID string
	// Ссылка на родительский заказ: заказ владеет позициями, а не наоборот.
	OrderID   string
	ProductID string
	Quantity  int32
	// Стоимость строки (цена за единицу × количество) на момент оформления.
	// Последующие изменения цены товара на неё не влияют.
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Order агрегирует заголовок заказа и его позиции.
type Order struct {
	ID         string
	UserID     string
	Status     OrderStatus
	TotalPrice decimal.Decimal
	Items      []OrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MoneyPlaces — число знаков после запятой, с которым хранятся суммы.
const MoneyPlaces = 2

// LinePrice считает стоимость строки без потерь точности.
func LinePrice(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity))
}

// ItemsTotal возвращает сумму стоимостей всех позиций.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price)
	}
	return total
}

// ReplaceItems полностью заменяет позиции заказа и пересчитывает итог.
// Старые позиции отбрасываются, новые привязываются к заказу.
func (o *Order) ReplaceItems(items []OrderItem) {
	replaced := make([]OrderItem, len(items))
	for i, item := range items {
		item.OrderID = o.ID
		replaced[i] = item
	}
	o.Items = replaced
	o.TotalPrice = o.ItemsTotal()
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserIDRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalPrice.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}

	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQuantityInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if !HasMoneyScale(item.Price) {
			errs = append(errs, ErrItemPriceScale)
		}
	}
	if !o.ItemsTotal().Equal(o.TotalPrice) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// CheckInvariants сводит замечания ValidateInvariants в одну ошибку класса ErrIntegrityViolation.
func (o *Order) CheckInvariants() error {
	errs := o.ValidateInvariants()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: order %s: %w", ErrIntegrityViolation, o.ID, errors.Join(errs...))
}

// HasMoneyScale сообщает, представима ли сумма без округления в MoneyPlaces знаках.
func HasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyPlaces))
}
