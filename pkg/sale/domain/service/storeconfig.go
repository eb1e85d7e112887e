package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

var maxTaxPercentage = decimal.NewFromInt(100)

// StoreConfigChanges follows the catalog convention: empty strings and
// a nil tax keep the stored value.
type StoreConfigChanges struct {
	StoreName     string
	BranchName    string
	Address       string
	ContactNumber string
	TaxNumber     string
	Currency      string
	TaxPercentage *decimal.Decimal
}

type StoreConfigService interface {
	GetConfig(ctx context.Context) (model.StoreConfig, error)
	UpdateConfig(ctx context.Context, changes StoreConfigChanges) (model.StoreConfig, error)
}

func NewStoreConfigService(repo model.StoreConfigRepository, dispatcher domain.EventDispatcher) StoreConfigService {
	return &storeConfigService{repo: repo, dispatcher: dispatcher}
}

type storeConfigService struct {
	repo       model.StoreConfigRepository
	dispatcher domain.EventDispatcher
}

func (s *storeConfigService) GetConfig(ctx context.Context) (model.StoreConfig, error) {
	config, err := s.repo.Get(ctx)
	if errors.Is(err, model.ErrStoreConfigNotFound) {
		return model.DefaultStoreConfig(), nil
	}
	if err != nil {
		return model.StoreConfig{}, err
	}
	return *config, nil
}

func (s *storeConfigService) UpdateConfig(ctx context.Context, changes StoreConfigChanges) (model.StoreConfig, error) {
	config, err := s.GetConfig(ctx)
	if err != nil {
		return model.StoreConfig{}, err
	}

	override(&config.StoreName, changes.StoreName)
	override(&config.BranchName, changes.BranchName)
	override(&config.Address, changes.Address)
	override(&config.ContactNumber, changes.ContactNumber)
	override(&config.TaxNumber, changes.TaxNumber)
	override(&config.Currency, changes.Currency)
	if changes.TaxPercentage != nil {
		config.TaxPercentage = *changes.TaxPercentage
	}

	if config.StoreName == "" || config.BranchName == "" || config.Address == "" || config.ContactNumber == "" {
		return model.StoreConfig{}, model.ErrStoreFieldRequired
	}
	if config.TaxPercentage.IsNegative() || config.TaxPercentage.GreaterThan(maxTaxPercentage) {
		return model.StoreConfig{}, model.ErrInvalidTaxPercentage
	}

	config.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := s.repo.Save(ctx, &config); err != nil {
		return model.StoreConfig{}, err
	}

	_ = s.dispatcher.Dispatch(model.StoreConfigUpdated{
		Currency:      config.Currency,
		TaxPercentage: config.TaxPercentage,
	})
	return config, nil
}

func override(field *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*field = value
	}
}
