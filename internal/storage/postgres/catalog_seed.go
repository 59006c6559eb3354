package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// UpsertUser создаёт или обновляет пользователя.
func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email)
		VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email
	`, user.ID, user.Username, user.Email); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

// UpsertProduct создаёт или обновляет товар каталога.
func (s *Store) UpsertProduct(ctx context.Context, product domain.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, unit_price, image_url)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    unit_price = EXCLUDED.unit_price,
		    image_url = EXCLUDED.image_url
	`, product.ID, product.Name, product.Description, product.UnitPrice, product.ImageURL); err != nil {
		return fmt.Errorf("upsert product %s: %w", product.ID, err)
	}
	return nil
}

// ReplaceCart сохраняет корзину пользователя целиком, заменяя прежние позиции.
func (s *Store) ReplaceCart(ctx context.Context, cart domain.Cart) (err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1 AND id <> $2`, cart.UserID, cart.ID); err != nil {
		return fmt.Errorf("drop previous cart: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1,$2)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id
	`, cart.ID, cart.UserID); err != nil {
		return fmt.Errorf("upsert cart %s: %w", cart.ID, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("reset cart items: %w", err)
	}
	for position, item := range cart.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, position)
			VALUES ($1,$2,$3,$4,$5)
		`, item.ID, cart.ID, item.ProductID, item.Quantity, position); err != nil {
			return fmt.Errorf("insert cart item %s: %w", item.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cart: %w", err)
	}
	return nil
}
