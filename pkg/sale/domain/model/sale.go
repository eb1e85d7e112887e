package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "Cash"

// MaxIdempotencyKeyLength is the width of the stored key column.
const MaxIdempotencyKeyLength = 255

// LineItem captures name and price at the moment the product entered the
// cart. Checkout never re-reads them from the catalog.
type LineItem struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

func (i LineItem) Amount() decimal.Decimal {
	return Multiply(i.Price, i.Quantity)
}

func (i LineItem) Validate() error {
	if i.ProductID == uuid.Nil {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(i.Name) == "" {
		return ErrInvalidItemName
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// StockWarning is attached to a committed sale for every line whose stock
// could not be decremented. It never blocks the sale.
type StockWarning struct {
	ProductID uuid.UUID
	Quantity  int
	Reason    DecrementOutcome
}

type Sale struct {
	ID              uuid.UUID
	IdempotencyKey  string
	Items           []LineItem
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	TaxPercentage   decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	FullyDiscounted bool
	PaymentMethod   string
	CashReceived    decimal.Decimal
	Balance         decimal.Decimal
	Currency        string
	StockWarnings   []StockWarning
	CreatedAt       time.Time
}

func (s *Sale) TotalItems() int {
	return len(s.Items)
}

// SaleLedger is append-only: there is no update or delete.
type SaleLedger interface {
	NextID() (uuid.UUID, error)
	// Append fails with ErrDuplicateSale when the idempotency key is taken.
	Append(ctx context.Context, sale *Sale) error
	Find(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Sale, error)
	// List returns sales newest first, ties broken by reverse insertion order.
	List(ctx context.Context) ([]Sale, error)
}
