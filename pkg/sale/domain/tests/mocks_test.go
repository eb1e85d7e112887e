package tests

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

type mockProductRepository struct {
	store map[uuid.UUID]*model.Product
	// decrementErr is returned by every TryDecrementQuantity call when set
	decrementErr error
	decrements   int
	// decremented lists product ids in the order TryDecrementQuantity saw them
	decremented []uuid.UUID
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockProductRepository) Create(_ context.Context, p *model.Product) error {
	clone := *p
	m.store[p.ID] = &clone
	return nil
}

func (m *mockProductRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if p, ok := m.store[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, model.ErrProductNotFound
}

func (m *mockProductRepository) ListSellable(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	for _, p := range m.store {
		if p.Purpose == model.PurposeSale {
			products = append(products, *p)
		}
	}
	return products, nil
}

func (m *mockProductRepository) List(_ context.Context) ([]model.Product, error) {
	var products []model.Product
	for _, p := range m.store {
		products = append(products, *p)
	}
	return products, nil
}

func (m *mockProductRepository) TryDecrementQuantity(_ context.Context, id uuid.UUID, amount int) (model.StockDecrement, error) {
	m.decrements++
	m.decremented = append(m.decremented, id)
	if m.decrementErr != nil {
		return model.StockDecrement{}, m.decrementErr
	}
	p, ok := m.store[id]
	if !ok {
		return model.StockDecrement{}, model.ErrProductNotFound
	}
	if !p.StockTracking {
		return model.StockDecrement{ProductID: id, Requested: amount, NewQuantity: p.Quantity}, nil
	}
	if p.Quantity < amount {
		return model.StockDecrement{}, model.ErrStockConflict
	}
	p.Quantity -= amount
	return model.StockDecrement{ProductID: id, Requested: amount, Tracked: true, NewQuantity: p.Quantity}, nil
}

func (m *mockProductRepository) UpdateDetails(_ context.Context, p *model.Product) error {
	existing, ok := m.store[p.ID]
	if !ok {
		return model.ErrProductNotFound
	}
	if existing.Version != p.Version-1 {
		return model.ErrOptimisticLock
	}
	clone := *p
	clone.Quantity = existing.Quantity
	m.store[p.ID] = &clone
	return nil
}

func (m *mockProductRepository) IncrementQuantity(_ context.Context, id uuid.UUID, amount int) (int, error) {
	p, ok := m.store[id]
	if !ok {
		return 0, model.ErrProductNotFound
	}
	if p.Quantity > model.MaxStockQuantity-amount {
		return 0, model.ErrInvalidStockQuantity
	}
	p.Quantity += amount
	return p.Quantity, nil
}

func (m *mockProductRepository) DecrementQuantity(_ context.Context, id uuid.UUID, amount int) (int, error) {
	p, ok := m.store[id]
	if !ok {
		return 0, model.ErrProductNotFound
	}
	if p.Quantity < amount {
		return 0, model.ErrStockConflict
	}
	p.Quantity -= amount
	return p.Quantity, nil
}

func (m *mockProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(m.store, id)
	return nil
}

type mockSaleLedger struct {
	sales     []*model.Sale
	appendErr error
	// beforeAppend runs ahead of the duplicate check, to simulate a racing till
	beforeAppend func()
}

func (m *mockSaleLedger) NextID() (uuid.UUID, error) { return uuid.New(), nil }

func (m *mockSaleLedger) Append(_ context.Context, sale *model.Sale) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	if m.beforeAppend != nil {
		m.beforeAppend()
	}
	for _, existing := range m.sales {
		if sale.IdempotencyKey != "" && existing.IdempotencyKey == sale.IdempotencyKey {
			return model.ErrDuplicateSale
		}
	}
	clone := *sale
	m.sales = append(m.sales, &clone)
	return nil
}

func (m *mockSaleLedger) Find(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	for _, s := range m.sales {
		if s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, model.ErrSaleNotFound
}

func (m *mockSaleLedger) FindByIdempotencyKey(_ context.Context, key string) (*model.Sale, error) {
	for _, s := range m.sales {
		if key != "" && s.IdempotencyKey == key {
			clone := *s
			return &clone, nil
		}
	}
	return nil, model.ErrSaleNotFound
}

func (m *mockSaleLedger) List(_ context.Context) ([]model.Sale, error) {
	sales := make([]model.Sale, 0, len(m.sales))
	for i := len(m.sales) - 1; i >= 0; i-- {
		sales = append(sales, *m.sales[i])
	}
	return sales, nil
}

// mockUnitOfWork hands out the same repositories on every call. It does
// not roll anything back, so tests check storage through call counters.
type mockUnitOfWork struct {
	catalog *mockProductRepository
	ledger  *mockSaleLedger
	calls   int
}

func (m *mockUnitOfWork) Execute(_ context.Context, fn func(provider model.RepositoryProvider) error) error {
	m.calls++
	return fn(m)
}

func (m *mockUnitOfWork) Catalog() model.Catalog       { return m.catalog }
func (m *mockUnitOfWork) SaleLedger() model.SaleLedger { return m.ledger }

type mockStoreConfigRepository struct {
	config *model.StoreConfig
	getErr error
}

func (m *mockStoreConfigRepository) Get(_ context.Context) (*model.StoreConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.config == nil {
		return nil, model.ErrStoreConfigNotFound
	}
	clone := *m.config
	return &clone, nil
}

func (m *mockStoreConfigRepository) Save(_ context.Context, config *model.StoreConfig) error {
	clone := *config
	m.config = &clone
	return nil
}

type mockEventDispatcher struct {
	events []domain.Event
	err    error
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.events = append(m.events, event)
	return m.err
}

func (m *mockEventDispatcher) Reset() {
	m.events = nil
}

var errStorageDown = errors.New("storage down")
