package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SaleCompleted struct {
	SaleID          uuid.UUID
	Total           decimal.Decimal
	Currency        string
	ItemCount       int
	FullyDiscounted bool
	WarningCount    int
}

func (e SaleCompleted) Type() string { return "SaleCompleted" }

type StockDecrementRejected struct {
	SaleID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Reason    DecrementOutcome
}

func (e StockDecrementRejected) Type() string { return "StockDecrementRejected" }

type ProductCreated struct {
	ProductID uuid.UUID
	Name      string
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductDetailsChanged struct {
	ProductID       uuid.UUID
	OldSellingPrice decimal.Decimal
	NewSellingPrice decimal.Decimal
}

func (e ProductDetailsChanged) Type() string { return "ProductDetailsChanged" }

type ProductStockReceived struct {
	ProductID   uuid.UUID
	Amount      int
	NewQuantity int
}

func (e ProductStockReceived) Type() string { return "ProductStockReceived" }

// ProductStockAdjusted records a manual correction such as a write-off.
type ProductStockAdjusted struct {
	ProductID   uuid.UUID
	Delta       int
	NewQuantity int
}

func (e ProductStockAdjusted) Type() string { return "ProductStockAdjusted" }

type ProductDeleted struct {
	ProductID uuid.UUID
}

func (e ProductDeleted) Type() string { return "ProductDeleted" }

type StoreConfigUpdated struct {
	Currency      string
	TaxPercentage decimal.Decimal
}

func (e StoreConfigUpdated) Type() string { return "StoreConfigUpdated" }
