// Package memory is an in-process storage driver with the same transactional
// behaviour as the Postgres one: one writer at a time, and a failed unit of
// work leaves no trace.
package memory

import (
	"context"
	"sync"
	"time"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	order "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type state struct {
	products      []catalog.Product
	orders        map[int64]order.Order
	events        []outbox.Event
	leases        map[int64]time.Time
	nextProductID int64
	nextOrderID   int64
	nextEventID   int64
}

func (s state) clone() state {
	c := s
	c.products = append([]catalog.Product(nil), s.products...)
	c.orders = make(map[int64]order.Order, len(s.orders))
	for id, o := range s.orders {
		c.orders[id] = o
	}
	c.events = append([]outbox.Event(nil), s.events...)
	c.leases = make(map[int64]time.Time, len(s.leases))
	for id, t := range s.leases {
		c.leases[id] = t
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st: state{
			orders: map[int64]order.Order{},
			leases: map[int64]time.Time{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

// WithinTx runs fn holding the store lock. If fn fails or panics, the state
// it saw on entry is restored. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = saved
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the state, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(&s.st)
}

func (s *Store) Catalog() *CatalogRepository { return &CatalogRepository{s: s} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

func (s *Store) Outbox() *OutboxStore { return &OutboxStore{s: s} }
