package domain

import "errors"

// Классы ошибок. Конкретные ошибки ниже оборачивают один из них,
// поэтому транспорт может решать по классу через errors.Is.
var (
	// ErrNotFound — запрошенная запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState — запрос нельзя выполнить в текущем состоянии данных.
	ErrInvalidState = errors.New("invalid state")
	// ErrIntegrityViolation — хранимые данные противоречивы (битые ссылки).
	ErrIntegrityViolation = errors.New("data integrity violation")
)

var (
	// ErrCartNotFound возвращается, если у пользователя нет корзины.
	ErrCartNotFound = classified(ErrNotFound, "cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = classified(ErrNotFound, "order not found")
	// ErrUserNotFound возвращается для неизвестного пользователя.
	ErrUserNotFound = classified(ErrNotFound, "user not found")

	// ErrEmptyCart — корзина есть, но в ней нет позиций.
	ErrEmptyCart = classified(ErrInvalidState, "cart is empty")
	// ErrInvalidLineItems — новый набор позиций пуст или некорректен.
	ErrInvalidLineItems = classified(ErrInvalidState, "invalid line items")
	// ErrUserIDRequired — не передан идентификатор пользователя.
	ErrUserIDRequired = classified(ErrInvalidState, "user_id is required")
	// ErrOrderIDRequired — не передан идентификатор заказа.
	ErrOrderIDRequired = classified(ErrInvalidState, "order_id is required")
	// ErrStatusRequired — при обновлении передан пустой статус.
	ErrStatusRequired = classified(ErrInvalidState, "status is required")

	// ErrInvalidCartState — позиция корзины ссылается на отсутствующий товар,
	// содержит неположительное количество или владелец корзины отсутствует.
	ErrInvalidCartState = classified(ErrIntegrityViolation, "invalid cart state")
	// ErrOrderUserMissing — заказ ссылается на отсутствующего пользователя.
	ErrOrderUserMissing = classified(ErrIntegrityViolation, "order user is missing")
	// ErrOrderProductMissing — позиция заказа ссылается на отсутствующий товар.
	ErrOrderProductMissing = classified(ErrIntegrityViolation, "order item product is missing")
)

// Ошибки инвариантов заказа.
var (
	ErrItemsRequired       = errors.New("order must contain at least one item")
	ErrTotalNegative       = errors.New("total_price must be non-negative")
	ErrItemProductRequired = errors.New("item product_id is required")
	ErrItemQuantityInvalid = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid    = errors.New("item price must be non-negative")
	ErrItemPriceScale      = errors.New("item price must have at most two decimal places")
	ErrTotalMismatch       = errors.New("order total does not match items sum")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

type classifiedError struct {
	class error
	msg   string
}

func classified(class error, msg string) error {
	return &classifiedError{class: class, msg: msg}
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Unwrap() error { return e.class }

// IsNotFound сообщает, относится ли ошибка к классу «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState сообщает, относится ли ошибка к ожидаемым отказам по состоянию.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsIntegrityViolation сообщает о нарушении целостности хранимых данных.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrIntegrityViolation)
}
