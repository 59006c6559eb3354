package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

type cartRepository struct {
	db dbtx
	// lock включает SELECT ... FOR UPDATE: параллельные оформления
	// одной корзины выполняются по очереди.
	lock bool
}

func (r *cartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT id, user_id FROM carts WHERE user_id = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}

	var cart domain.Cart
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position ASC, id ASC
	`, cart.ID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart items: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`, cartID).Scan(&exists); err != nil {
		return fmt.Errorf("check cart exists: %w", err)
	}
	if !exists {
		return domain.ErrCartNotFound
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

type productRepository struct {
	db dbtx
}

func (r *productRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, unit_price, image_url
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.UnitPrice, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

type userRepository struct {
	db dbtx
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u domain.User
	err := r.db.QueryRowContext(ctx, `SELECT id, username, email FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

var (
	_ domain.CartRepository    = (*cartRepository)(nil)
	_ domain.ProductRepository = (*productRepository)(nil)
	_ domain.UserRepository    = (*userRepository)(nil)
)
