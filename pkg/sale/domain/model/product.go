package model

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxStockQuantity is the largest quantity the stores can hold.
const MaxStockQuantity = math.MaxInt32

type Purpose string

const (
	PurposeSale  Purpose = "sale"
	PurposeStore Purpose = "store"
)

func (p Purpose) Valid() bool {
	return p == PurposeSale || p == PurposeStore
}

type Product struct {
	ID            uuid.UUID
	Name          string
	Category      string
	SellingPrice  decimal.Decimal
	CostPrice     decimal.Decimal
	Quantity      int
	StockTracking bool
	Purpose       Purpose
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DecrementOutcome string

const (
	DecrementApplied   DecrementOutcome = "decremented"
	DecrementUntracked DecrementOutcome = "untracked"
	DecrementConflict  DecrementOutcome = "conflict"
	DecrementNotFound  DecrementOutcome = "not_found"
)

// StockDecrement is the result of a successful conditional decrement.
// Tracked is false when the product has stock tracking disabled, in which
// case NewQuantity is the unchanged stored quantity.
type StockDecrement struct {
	ProductID   uuid.UUID
	Requested   int
	Tracked     bool
	NewQuantity int
}

func (d StockDecrement) Outcome() DecrementOutcome {
	if !d.Tracked {
		return DecrementUntracked
	}
	return DecrementApplied
}

// Catalog is the part of the product store the checkout path may touch.
// No method takes a full Product for writing.
type Catalog interface {
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	ListSellable(ctx context.Context) ([]Product, error)
	// TryDecrementQuantity subtracts amount from a stock-tracked product in
	// one atomic step against the backing store. It fails with
	// ErrProductNotFound or ErrStockConflict and leaves the product unchanged.
	TryDecrementQuantity(ctx context.Context, id uuid.UUID, amount int) (StockDecrement, error)
}

type ProductRepository interface {
	Catalog
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	// UpdateDetails writes every field except Quantity. The stored version
	// must equal product.Version-1, otherwise ErrOptimisticLock.
	UpdateDetails(ctx context.Context, product *Product) error
	// IncrementQuantity adds a positive amount and returns the new quantity.
	// It fails with ErrInvalidStockQuantity when the result would exceed
	// MaxStockQuantity.
	IncrementQuantity(ctx context.Context, id uuid.UUID, amount int) (int, error)
	// DecrementQuantity subtracts a positive amount whether or not stock is
	// tracked. It fails with ErrStockConflict when less than amount is stored.
	DecrementQuantity(ctx context.Context, id uuid.UUID, amount int) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Product, error)
}
