package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

type NewProduct struct {
	Name          string
	Category      string
	SellingPrice  decimal.Decimal
	CostPrice     decimal.Decimal
	Quantity      int
	StockTracking *bool
	Purpose       model.Purpose
}

// ProductChanges leaves a field untouched when it is nil. Quantity is not
// part of it: stock only moves through ReceiveStock, AdjustStock and checkout.
type ProductChanges struct {
	Name          *string
	Category      *string
	SellingPrice  *decimal.Decimal
	CostPrice     *decimal.Decimal
	StockTracking *bool
	Purpose       *model.Purpose
}

type ProductService interface {
	CreateProduct(ctx context.Context, input NewProduct) (*model.Product, error)
	UpdateProductDetails(ctx context.Context, productID uuid.UUID, changes ProductChanges) (*model.Product, error)
	ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	// AdjustStock applies a signed correction. A negative delta larger than
	// the stored quantity fails with ErrStockConflict.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListSellableProducts(ctx context.Context) ([]model.Product, error)
}

func NewProductService(repo model.ProductRepository, dispatcher domain.EventDispatcher) ProductService {
	return &productService{repo: repo, dispatcher: dispatcher}
}

type productService struct {
	repo       model.ProductRepository
	dispatcher domain.EventDispatcher
}

func (s *productService) CreateProduct(ctx context.Context, input NewProduct) (*model.Product, error) {
	stockTracking := true
	if input.StockTracking != nil {
		stockTracking = *input.StockTracking
	}
	purpose := input.Purpose
	if purpose == "" {
		purpose = model.PurposeSale
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	product := &model.Product{
		Name:          strings.TrimSpace(input.Name),
		Category:      strings.TrimSpace(input.Category),
		SellingPrice:  input.SellingPrice,
		CostPrice:     input.CostPrice,
		Quantity:      input.Quantity,
		StockTracking: stockTracking,
		Purpose:       purpose,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if product.Quantity < 0 || product.Quantity > model.MaxStockQuantity {
		return nil, model.ErrInvalidStockQuantity
	}

	productID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	product.ID = productID

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductCreated{ProductID: productID, Name: product.Name})
	return product, nil
}

func (s *productService) UpdateProductDetails(ctx context.Context, productID uuid.UUID, changes ProductChanges) (*model.Product, error) {
	product, err := s.repo.Find(ctx, productID)
	if err != nil {
		return nil, err
	}

	oldPrice := product.SellingPrice
	if changes.Name != nil {
		product.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.Category != nil {
		product.Category = strings.TrimSpace(*changes.Category)
	}
	if changes.SellingPrice != nil {
		product.SellingPrice = *changes.SellingPrice
	}
	if changes.CostPrice != nil {
		product.CostPrice = *changes.CostPrice
	}
	if changes.StockTracking != nil {
		product.StockTracking = *changes.StockTracking
	}
	if changes.Purpose != nil {
		product.Purpose = *changes.Purpose
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	product.Version++
	product.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := s.repo.UpdateDetails(ctx, product); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductDetailsChanged{
		ProductID:       productID,
		OldSellingPrice: oldPrice,
		NewSellingPrice: product.SellingPrice,
	})
	return product, nil
}

func (s *productService) ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 || quantity > model.MaxStockQuantity {
		return 0, model.ErrInvalidStockQuantity
	}

	newQuantity, err := s.repo.IncrementQuantity(ctx, productID, quantity)
	if err != nil {
		return 0, err
	}

	_ = s.dispatcher.Dispatch(model.ProductStockReceived{
		ProductID:   productID,
		Amount:      quantity,
		NewQuantity: newQuantity,
	})
	return newQuantity, nil
}

func (s *productService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int, error) {
	if delta == 0 {
		return 0, model.ErrInvalidStockAdjustment
	}
	if delta > model.MaxStockQuantity || delta < -model.MaxStockQuantity {
		return 0, model.ErrInvalidStockQuantity
	}

	var (
		newQuantity int
		err         error
	)
	if delta > 0 {
		newQuantity, err = s.repo.IncrementQuantity(ctx, productID, delta)
	} else {
		newQuantity, err = s.repo.DecrementQuantity(ctx, productID, -delta)
	}
	if err != nil {
		return 0, err
	}

	_ = s.dispatcher.Dispatch(model.ProductStockAdjusted{
		ProductID:   productID,
		Delta:       delta,
		NewQuantity: newQuantity,
	})
	return newQuantity, nil
}

func (s *productService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductDeleted{ProductID: productID})
	return nil
}

func (s *productService) GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	return s.repo.Find(ctx, productID)
}

func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.List(ctx)
}

func (s *productService) ListSellableProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListSellable(ctx)
}

func validateProduct(product *model.Product) error {
	if product.Name == "" {
		return model.ErrProductNameRequired
	}
	if product.Category == "" {
		return model.ErrProductCategoryRequired
	}
	if product.SellingPrice.IsNegative() || product.CostPrice.IsNegative() {
		return model.ErrInvalidPrice
	}
	if !product.Purpose.Valid() {
		return model.ErrInvalidPurpose
	}
	return nil
}
