package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
	domainservice "posservice/pkg/sale/domain/service"
)

type SaleItemInput struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

type CreateSaleInput struct {
	Items          []SaleItemInput
	Discount       decimal.Decimal
	CashReceived   decimal.Decimal
	PaymentMethod  string
	IdempotencyKey string
}

type SalesService interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*domainservice.CheckoutResult, error)
	ListSales(ctx context.Context) ([]model.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*model.Sale, error)
}

func NewSalesService(
	checkout domainservice.CheckoutService,
	storeConfig domainservice.StoreConfigService,
	ledger model.SaleLedger,
	dispatcher domain.EventDispatcher,
	logger logrus.FieldLogger,
) SalesService {
	return &salesService{
		checkout:    checkout,
		storeConfig: storeConfig,
		ledger:      ledger,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

type salesService struct {
	checkout    domainservice.CheckoutService
	storeConfig domainservice.StoreConfigService
	ledger      model.SaleLedger
	dispatcher  domain.EventDispatcher
	logger      logrus.FieldLogger
}

func (s *salesService) CreateSale(ctx context.Context, input CreateSaleInput) (*domainservice.CheckoutResult, error) {
	items, err := normalizeItems(input.Items)
	if err != nil {
		return nil, err
	}

	config, err := s.storeConfig.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.checkout.Checkout(ctx, domainservice.CheckoutRequest{
		Items:          items,
		Discount:       input.Discount,
		CashReceived:   input.CashReceived,
		PaymentMethod:  input.PaymentMethod,
		IdempotencyKey: input.IdempotencyKey,
		Config:         config,
	})
	if err != nil {
		s.logger.WithError(err).Warn("checkout rejected")
		return nil, err
	}

	if result.Replayed {
		s.logger.WithField("sale_id", result.Sale.ID).Info("checkout replayed by idempotency key")
		return result, nil
	}

	s.dispatchEvents(saleEvents(result.Sale))
	return result, nil
}

func (s *salesService) ListSales(ctx context.Context) ([]model.Sale, error) {
	return s.ledger.List(ctx)
}

func (s *salesService) GetSale(ctx context.Context, saleID uuid.UUID) (*model.Sale, error) {
	return s.ledger.Find(ctx, saleID)
}

func (s *salesService) dispatchEvents(events []domain.Event) {
	for _, event := range events {
		if err := s.dispatcher.Dispatch(event); err != nil {
			s.logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}

// normalizeItems validates raw lines and merges repeated products the
// same way the till cart does.
func normalizeItems(inputs []SaleItemInput) ([]model.LineItem, error) {
	cart := model.NewCart()
	for _, input := range inputs {
		item := model.LineItem{
			ProductID: input.ProductID,
			Name:      input.Name,
			Price:     input.Price,
			Quantity:  input.Quantity,
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		cart.AddLine(item)
	}
	return cart.Snapshot(), nil
}

func saleEvents(sale *model.Sale) []domain.Event {
	events := make([]domain.Event, 0, len(sale.StockWarnings)+1)
	for _, warning := range sale.StockWarnings {
		events = append(events, model.StockDecrementRejected{
			SaleID:    sale.ID,
			ProductID: warning.ProductID,
			Quantity:  warning.Quantity,
			Reason:    warning.Reason,
		})
	}
	events = append(events, model.SaleCompleted{
		SaleID:          sale.ID,
		Total:           sale.Total,
		Currency:        sale.Currency,
		ItemCount:       sale.TotalItems(),
		FullyDiscounted: sale.FullyDiscounted,
		WarningCount:    len(sale.StockWarnings),
	})
	return events
}
