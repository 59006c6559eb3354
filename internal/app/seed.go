package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/postgres"
)

// demoData наполняет каталог для локального запуска (OMS_SEED_DEMO_DATA=true).
type demoData struct {
	users    []domain.User
	products []domain.Product
	carts    []domain.Cart
}

func defaultDemoData() demoData {
	return demoData{
		users: []domain.User{
			{ID: "42", Username: "alice", Email: "alice@example.com"},
			{ID: "43", Username: "bob", Email: "bob@example.com"},
		},
		products: []domain.Product{
			{ID: "A", Name: "Mug", Description: "Ceramic mug, 350 ml", UnitPrice: decimal.RequireFromString("10.00"), ImageURL: "https://img.example/mug.png"},
			{ID: "B", Name: "Tea", Description: "Loose leaf black tea", UnitPrice: decimal.RequireFromString("5.50"), ImageURL: "https://img.example/tea.png"},
			{ID: "C", Name: "Kettle", Description: "Electric kettle", UnitPrice: decimal.RequireFromString("39.90")},
		},
		carts: []domain.Cart{
			{ID: "cart-42", UserID: "42", Items: []domain.CartItem{
				{ID: "ci-42-1", ProductID: "A", Quantity: 2},
				{ID: "ci-42-2", ProductID: "B", Quantity: 1},
			}},
			{ID: "cart-43", UserID: "43", Items: []domain.CartItem{
				{ID: "ci-43-1", ProductID: "C", Quantity: 1},
			}},
		},
	}
}

func seedMemory(store *memory.Store, data demoData) {
	for _, u := range data.users {
		store.SeedUser(u)
	}
	for _, p := range data.products {
		store.SeedProduct(p)
	}
	for _, c := range data.carts {
		store.SeedCart(c)
	}
}

func seedPostgres(ctx context.Context, store *postgres.Store, data demoData) error {
	for _, u := range data.users {
		if err := store.UpsertUser(ctx, u); err != nil {
			return err
		}
	}
	for _, p := range data.products {
		if err := store.UpsertProduct(ctx, p); err != nil {
			return err
		}
	}
	for _, c := range data.carts {
		if err := store.ReplaceCart(ctx, c); err != nil {
			return err
		}
	}
	return nil
}
