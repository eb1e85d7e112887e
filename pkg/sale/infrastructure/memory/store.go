package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"posservice/pkg/sale/domain/model"
)

// Store keeps the catalog, the sale ledger and the store configuration in
// process memory. Every operation, and every unit of work as a whole, runs
// under one mutex, so transactions are serializable.
//
// Repositories returned by Store must not be used from inside a unit of
// work: use the provider passed to the callback instead.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	products map[uuid.UUID]model.Product
	sales    []model.Sale
	config   *model.StoreConfig
}

func NewStore() *Store {
	return &Store{state: &state{products: make(map[uuid.UUID]model.Product)}}
}

func (s *Store) ProductRepository() model.ProductRepository {
	return &productRepository{access: lockedAccess{store: s}}
}

func (s *Store) SaleLedger() model.SaleLedger {
	return &saleLedger{access: lockedAccess{store: s}}
}

func (s *Store) StoreConfigRepository() model.StoreConfigRepository {
	return &storeConfigRepository{access: lockedAccess{store: s}}
}

func (s *Store) UnitOfWork() model.UnitOfWork {
	return &unitOfWork{store: s}
}

type access interface {
	do(fn func(st *state) error) error
}

type lockedAccess struct {
	store *Store
}

func (a lockedAccess) do(fn func(st *state) error) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

type txAccess struct {
	st *state
}

func (a txAccess) do(fn func(st *state) error) error {
	return fn(a.st)
}

type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Execute(ctx context.Context, fn func(provider model.RepositoryProvider) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	base := u.store.state
	n := len(base.sales)
	tx := &state{
		products: maps.Clone(base.products),
		// capped so appends inside the transaction never write into base
		sales:  base.sales[:n:n],
		config: base.config,
	}

	access := txAccess{st: tx}
	if err := fn(&provider{
		catalog: &productRepository{access: access},
		ledger:  &saleLedger{access: access},
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.state = tx
	return nil
}

type provider struct {
	catalog model.Catalog
	ledger  model.SaleLedger
}

func (p *provider) Catalog() model.Catalog       { return p.catalog }
func (p *provider) SaleLedger() model.SaleLedger { return p.ledger }

type productRepository struct {
	access access
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.access.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListSellable(_ context.Context) ([]model.Product, error) {
	return r.list(func(p model.Product) bool { return p.Purpose == model.PurposeSale })
}

func (r *productRepository) List(_ context.Context) ([]model.Product, error) {
	return r.list(func(model.Product) bool { return true })
}

func (r *productRepository) TryDecrementQuantity(_ context.Context, id uuid.UUID, amount int) (model.StockDecrement, error) {
	if amount <= 0 {
		return model.StockDecrement{}, model.ErrInvalidQuantity
	}

	var decrement model.StockDecrement
	err := r.access.do(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		decrement = model.StockDecrement{ProductID: id, Requested: amount, Tracked: product.StockTracking}
		if !product.StockTracking {
			decrement.NewQuantity = product.Quantity
			return nil
		}
		if product.Quantity < amount {
			return model.ErrStockConflict
		}
		product.Quantity -= amount
		st.products[id] = product
		decrement.NewQuantity = product.Quantity
		return nil
	})
	if err != nil {
		return model.StockDecrement{}, err
	}
	return decrement, nil
}

func (r *productRepository) Create(_ context.Context, product *model.Product) error {
	return r.access.do(func(st *state) error {
		if _, exists := st.products[product.ID]; exists {
			return errors.Errorf("product %s already exists", product.ID)
		}
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepository) UpdateDetails(_ context.Context, product *model.Product) error {
	return r.access.do(func(st *state) error {
		existing, ok := st.products[product.ID]
		if !ok {
			return model.ErrProductNotFound
		}
		if existing.Version != product.Version-1 {
			return model.ErrOptimisticLock
		}
		updated := *product
		updated.Quantity = existing.Quantity
		st.products[product.ID] = updated
		return nil
	})
}

func (r *productRepository) IncrementQuantity(_ context.Context, id uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidStockQuantity
	}

	var quantity int
	err := r.access.do(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		if product.Quantity > model.MaxStockQuantity-amount {
			return model.ErrInvalidStockQuantity
		}
		product.Quantity += amount
		st.products[id] = product
		quantity = product.Quantity
		return nil
	})
	return quantity, err
}

func (r *productRepository) DecrementQuantity(_ context.Context, id uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidStockQuantity
	}

	var quantity int
	err := r.access.do(func(st *state) error {
		product, ok := st.products[id]
		if !ok {
			return model.ErrProductNotFound
		}
		if product.Quantity < amount {
			return model.ErrStockConflict
		}
		product.Quantity -= amount
		st.products[id] = product
		quantity = product.Quantity
		return nil
	})
	return quantity, err
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.access.do(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return model.ErrProductNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *productRepository) list(keep func(p model.Product) bool) ([]model.Product, error) {
	var products []model.Product
	err := r.access.do(func(st *state) error {
		for _, p := range st.products {
			if keep(p) {
				products = append(products, p)
			}
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID.String() < products[j].ID.String()
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, err
}

type saleLedger struct {
	access access
}

func (l *saleLedger) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (l *saleLedger) Append(_ context.Context, sale *model.Sale) error {
	return l.access.do(func(st *state) error {
		for _, existing := range st.sales {
			if existing.ID == sale.ID {
				return errors.Errorf("sale %s already exists", sale.ID)
			}
			if sale.IdempotencyKey != "" && existing.IdempotencyKey == sale.IdempotencyKey {
				return model.ErrDuplicateSale
			}
		}
		st.sales = append(st.sales, cloneSale(*sale))
		return nil
	})
}

func (l *saleLedger) Find(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	return l.find(func(s model.Sale) bool { return s.ID == id })
}

func (l *saleLedger) FindByIdempotencyKey(_ context.Context, key string) (*model.Sale, error) {
	if key == "" {
		return nil, model.ErrSaleNotFound
	}
	return l.find(func(s model.Sale) bool { return s.IdempotencyKey == key })
}

func (l *saleLedger) List(_ context.Context) ([]model.Sale, error) {
	var sales []model.Sale
	err := l.access.do(func(st *state) error {
		sales = make([]model.Sale, 0, len(st.sales))
		for i := len(st.sales) - 1; i >= 0; i-- {
			sales = append(sales, cloneSale(st.sales[i]))
		}
		return nil
	})
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
	return sales, err
}

func (l *saleLedger) find(match func(s model.Sale) bool) (*model.Sale, error) {
	var sale model.Sale
	err := l.access.do(func(st *state) error {
		for _, s := range st.sales {
			if match(s) {
				sale = cloneSale(s)
				return nil
			}
		}
		return model.ErrSaleNotFound
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

type storeConfigRepository struct {
	access access
}

func (r *storeConfigRepository) Get(_ context.Context) (*model.StoreConfig, error) {
	var config model.StoreConfig
	err := r.access.do(func(st *state) error {
		if st.config == nil {
			return model.ErrStoreConfigNotFound
		}
		config = *st.config
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *storeConfigRepository) Save(_ context.Context, config *model.StoreConfig) error {
	return r.access.do(func(st *state) error {
		stored := *config
		st.config = &stored
		return nil
	})
}

func cloneSale(src model.Sale) model.Sale {
	dst := src
	dst.Items = append([]model.LineItem(nil), src.Items...)
	dst.StockWarnings = append([]model.StockWarning(nil), src.StockWarnings...)
	return dst
}
