package model

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

var ErrStoreConfigNotFound = errors.New("store configuration not found")

type StoreConfig struct {
	StoreName     string
	BranchName    string
	Address       string
	ContactNumber string
	TaxNumber     string
	Currency      string
	TaxPercentage decimal.Decimal
	UpdatedAt     time.Time
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Currency:      DefaultCurrency,
		TaxPercentage: decimal.Zero,
	}
}

// StoreConfigRepository holds at most one configuration.
type StoreConfigRepository interface {
	Get(ctx context.Context) (*StoreConfig, error)
	Save(ctx context.Context, config *StoreConfig) error
}
