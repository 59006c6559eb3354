package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми. Пустой результат не является ошибкой.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll возвращает все заказы, новые первыми.
	ListAll(ctx context.Context) ([]Order, error)
	// Save обновляет заголовок заказа (статус, итог, updated_at).
	Save(ctx context.Context, order Order) error
	// ReplaceItems удаляет прежние позиции заказа и сохраняет переданные.
	ReplaceItems(ctx context.Context, orderID string, items []OrderItem) error
	// Delete удаляет заказ вместе с позициями или возвращает ErrOrderNotFound.
	Delete(ctx context.Context, id string) error
}

// CartRepository даёт доступ к корзинам пользователей.
type CartRepository interface {
	// GetByUser возвращает корзину пользователя или ErrCartNotFound.
	GetByUser(ctx context.Context, userID string) (Cart, error)
	// Clear удаляет все позиции корзины, сама корзина остаётся.
	Clear(ctx context.Context, cartID string) error
}

// ProductRepository читает каталог товаров.
type ProductRepository interface {
	// GetMany возвращает найденные товары по идентификатору. Отсутствующие просто не попадают в map.
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
}

// UserRepository читает пользователей.
type UserRepository interface {
	// Get возвращает пользователя или ErrUserNotFound.
	Get(ctx context.Context, id string) (User, error)
}
