package memory

import (
	"context"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

type cartRepository struct {
	b binding
}

// GetByUser возвращает копию корзины пользователя или ErrCartNotFound.
func (r *cartRepository) GetByUser(_ context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	err := r.b.do(func(st *state) error {
		id, ok := st.cartByUser[userID]
		if !ok {
			return domain.ErrCartNotFound
		}
		cart = st.carts[id]
		cart.Items = append([]domain.CartItem(nil), cart.Items...)
		return nil
	})
	return cart, err
}

// Clear убирает позиции корзины, сама корзина остаётся.
func (r *cartRepository) Clear(_ context.Context, cartID string) error {
	return r.b.do(func(st *state) error {
		cart, ok := st.carts[cartID]
		if !ok {
			return domain.ErrCartNotFound
		}
		cart.Items = nil
		st.carts[cartID] = cart
		return nil
	})
}

type productRepository struct {
	b binding
}

func (r *productRepository) GetMany(_ context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	err := r.b.do(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				result[id] = p
			}
		}
		return nil
	})
	return result, err
}

type userRepository struct {
	b binding
}

func (r *userRepository) Get(_ context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.b.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		user = u
		return nil
	})
	return user, err
}

var (
	_ domain.CartRepository    = (*cartRepository)(nil)
	_ domain.ProductRepository = (*productRepository)(nil)
	_ domain.UserRepository    = (*userRepository)(nil)
)
