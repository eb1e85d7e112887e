package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"posservice/pkg/sale/domain/model"
)

// NegativeTotalPolicy decides what happens when the discount drives the
// total below zero.
type NegativeTotalPolicy int

const (
	ClampNegativeTotal NegativeTotalPolicy = iota
	RejectNegativeTotal
)

func ParseNegativeTotalPolicy(value string) (NegativeTotalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "clamp":
		return ClampNegativeTotal, nil
	case "reject":
		return RejectNegativeTotal, nil
	default:
		return 0, fmt.Errorf("unknown negative total policy %q", value)
	}
}

type Totals struct {
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	FullyDiscounted bool
}

// ComputeTotals rounds the subtotal, the tax and the total once each. Line
// amounts are summed unrounded.
func ComputeTotals(items []model.LineItem, taxPercentage, discount decimal.Decimal, policy NegativeTotalPolicy) (Totals, error) {
	amounts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.Amount())
	}

	subtotal := model.RoundToCurrencyUnit(model.Sum(amounts...))
	tax := model.RoundToCurrencyUnit(model.ApplyPercentage(subtotal, taxPercentage))
	total := model.RoundToCurrencyUnit(subtotal.Add(tax).Sub(discount))

	totals := Totals{Subtotal: subtotal, Tax: tax, Total: total}
	if total.IsNegative() {
		if policy == RejectNegativeTotal {
			return Totals{}, model.ErrDiscountExceedsTotal
		}
		totals.Total = decimal.Zero
	}
	totals.FullyDiscounted = !totals.Total.IsPositive() && discount.IsPositive()
	return totals, nil
}

type CheckoutRequest struct {
	Items          []model.LineItem
	Discount       decimal.Decimal
	CashReceived   decimal.Decimal
	PaymentMethod  string
	IdempotencyKey string
	Config         model.StoreConfig
}

type CheckoutResult struct {
	Sale *model.Sale
	// Replayed is set when the idempotency key matched an earlier sale.
	Replayed bool
}

type CheckoutService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

func NewCheckoutService(uow model.UnitOfWork, policy NegativeTotalPolicy, logger logrus.FieldLogger) CheckoutService {
	return &checkoutService{uow: uow, policy: policy, logger: logger}
}

type checkoutService struct {
	uow    model.UnitOfWork
	policy NegativeTotalPolicy
	logger logrus.FieldLogger
}

func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	totals, err := ComputeTotals(req.Items, req.Config.TaxPercentage, req.Discount, s.policy)
	if err != nil {
		return nil, err
	}
	if req.CashReceived.LessThan(totals.Total) {
		return nil, model.ErrInsufficientPayment
	}

	var result *CheckoutResult
	err = s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		ledger := provider.SaleLedger()
		if req.IdempotencyKey != "" {
			existing, err := ledger.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if err == nil {
				result = &CheckoutResult{Sale: existing, Replayed: true}
				return nil
			}
			if !errors.Is(err, model.ErrSaleNotFound) {
				return err
			}
		}

		sale, err := s.newSale(ledger, req, totals)
		if err != nil {
			return err
		}

		warnings := make([]*model.StockWarning, len(sale.Items))
		for _, i := range decrementOrder(sale.Items) {
			warning, err := s.decrementStock(ctx, provider.Catalog(), sale, sale.Items[i])
			if err != nil {
				return err
			}
			warnings[i] = warning
		}
		for _, warning := range warnings {
			if warning != nil {
				sale.StockWarnings = append(sale.StockWarnings, *warning)
			}
		}

		if err := ledger.Append(ctx, sale); err != nil {
			return err
		}
		result = &CheckoutResult{Sale: sale}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSale) && req.IdempotencyKey != "" {
			if replay, lookupErr := s.findByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil {
				return replay, nil
			}
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	return result, nil
}

func (s *checkoutService) newSale(ledger model.SaleLedger, req CheckoutRequest, totals Totals) (*model.Sale, error) {
	saleID, err := ledger.NextID()
	if err != nil {
		return nil, err
	}

	items := make([]model.LineItem, len(req.Items))
	copy(items, req.Items)

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = model.DefaultPaymentMethod
	}
	currency := req.Config.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	return &model.Sale{
		ID:              saleID,
		IdempotencyKey:  req.IdempotencyKey,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		TaxPercentage:   req.Config.TaxPercentage,
		Discount:        req.Discount,
		Total:           totals.Total,
		FullyDiscounted: totals.FullyDiscounted,
		PaymentMethod:   paymentMethod,
		CashReceived:    req.CashReceived,
		Balance:         req.CashReceived.Sub(totals.Total),
		Currency:        currency,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

// decrementStock returns a warning for lines the catalog could not
// decrement and an error only for storage failures.
func (s *checkoutService) decrementStock(ctx context.Context, catalog model.Catalog, sale *model.Sale, item model.LineItem) (*model.StockWarning, error) {
	entry := s.logger.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	decrement, err := catalog.TryDecrementQuantity(ctx, item.ProductID, item.Quantity)
	switch {
	case err == nil:
		entry.WithFields(logrus.Fields{
			"outcome":      decrement.Outcome(),
			"new_quantity": decrement.NewQuantity,
		}).Info("stock decrement")
		return nil, nil
	case errors.Is(err, model.ErrStockConflict):
		entry.WithField("outcome", model.DecrementConflict).Warn("stock decrement")
		return &model.StockWarning{ProductID: item.ProductID, Quantity: item.Quantity, Reason: model.DecrementConflict}, nil
	case errors.Is(err, model.ErrProductNotFound):
		entry.WithField("outcome", model.DecrementNotFound).Warn("stock decrement")
		return &model.StockWarning{ProductID: item.ProductID, Quantity: item.Quantity, Reason: model.DecrementNotFound}, nil
	default:
		entry.WithError(err).Error("stock decrement failed")
		return nil, err
	}
}

// decrementOrder returns item indexes sorted by product id. Concurrent
// checkouts then lock product rows in the same order and cannot deadlock.
func decrementOrder(items []model.LineItem) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(items[order[a]].ProductID[:], items[order[b]].ProductID[:]) < 0
	})
	return order
}

func (s *checkoutService) findByIdempotencyKey(ctx context.Context, key string) (*CheckoutResult, error) {
	var result *CheckoutResult
	err := s.uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		sale, err := provider.SaleLedger().FindByIdempotencyKey(ctx, key)
		if err != nil {
			return err
		}
		result = &CheckoutResult{Sale: sale, Replayed: true}
		return nil
	})
	return result, err
}

func validateCheckout(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return model.ErrEmptyCart
	}
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	if req.Discount.IsNegative() {
		return model.ErrNegativeDiscount
	}
	if req.CashReceived.IsNegative() {
		return model.ErrNegativeCashReceived
	}
	if len(req.IdempotencyKey) > model.MaxIdempotencyKeyLength {
		return model.ErrIdempotencyKeyTooLong
	}
	return nil
}
