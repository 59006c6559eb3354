package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// state — снимок всех in-memory таблиц. Значения в map считаются неизменяемыми:
// репозитории всегда записывают новую копию, поэтому для транзакции достаточно
// скопировать сами map.
type state struct {
	orders     map[string]domain.Order
	carts      map[string]domain.Cart
	cartByUser map[string]string
	products   map[string]domain.Product
	users      map[string]domain.User
	outbox     map[string]outboxRecord
	seq        int64
}

func newState() *state {
	return &state{
		orders:     make(map[string]domain.Order),
		carts:      make(map[string]domain.Cart),
		cartByUser: make(map[string]string),
		products:   make(map[string]domain.Product),
		users:      make(map[string]domain.User),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		orders:     make(map[string]domain.Order, len(s.orders)),
		carts:      make(map[string]domain.Cart, len(s.carts)),
		cartByUser: make(map[string]string, len(s.cartByUser)),
		products:   make(map[string]domain.Product, len(s.products)),
		users:      make(map[string]domain.User, len(s.users)),
		outbox:     make(map[string]outboxRecord, len(s.outbox)),
		seq:        s.seq,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartByUser {
		c.cartByUser[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return c
}

// Store — in-memory реализация UnitOfWork для локальной разработки и тестов.
// Транзакция работает над копией состояния и подменяет его только при успехе.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

// binding привязывает репозиторий либо к общему состоянию под мьютексом,
// либо к снимку открытой транзакции (мьютекс уже захвачен WithinTx).
type binding struct {
	store *Store
	tx    *state
}

func (b binding) do(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.st)
}

func (s *Store) repositories(tx *state) domain.Repositories {
	b := binding{store: s, tx: tx}
	return domain.Repositories{
		Orders:   &orderRepository{b: b},
		Carts:    &cartRepository{b: b},
		Products: &productRepository{b: b},
		Users:    &userRepository{b: b},
		Outbox:   &outboxRepository{b: b},
	}
}

// Repositories возвращает репозитории, работающие вне транзакции.
func (s *Store) Repositories() domain.Repositories {
	return s.repositories(nil)
}

// WithinTx выполняет fn над копией состояния; ошибка или паника оставляют хранилище нетронутым.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, s.repositories(snapshot)); err != nil {
		return err
	}
	s.st = snapshot
	return nil
}

// SeedUser добавляет или заменяет пользователя.
func (s *Store) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[user.ID] = user
}

// SeedProduct добавляет или заменяет товар каталога.
func (s *Store) SeedProduct(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[product.ID] = product
}

// SeedCart сохраняет корзину пользователя, заменяя прежнюю.
func (s *Store) SeedCart(cart domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.st.cartByUser[cart.UserID]; ok && prev != cart.ID {
		delete(s.st.carts, prev)
	}
	cart.Items = append([]domain.CartItem(nil), cart.Items...)
	s.st.carts[cart.ID] = cart
	s.st.cartByUser[cart.UserID] = cart.ID
}

// DeleteUser удаляет пользователя (используется в тестах целостности).
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.users, id)
}

// DeleteProduct удаляет товар из каталога.
func (s *Store) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.products, id)
}

var _ domain.UnitOfWork = (*Store)(nil)
