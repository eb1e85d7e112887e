package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"posservice/pkg/sale/domain/model"
)

type saleItemRequest struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type createSaleRequest struct {
	Items         []saleItemRequest `json:"items"`
	Discount      decimal.Decimal   `json:"discount"`
	CashReceived  decimal.Decimal   `json:"cashReceived"`
	PaymentMethod string            `json:"paymentMethod"`
}

type saleItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int       `json:"quantity"`
	Amount    string    `json:"amount"`
}

type stockWarningResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

type saleResponse struct {
	ID              uuid.UUID              `json:"id"`
	Items           []saleItemResponse     `json:"items"`
	TotalItems      int                    `json:"totalItems"`
	Subtotal        string                 `json:"subtotal"`
	Tax             string                 `json:"tax"`
	TaxPercentage   string                 `json:"taxPercentage"`
	Discount        string                 `json:"discount"`
	Total           string                 `json:"total"`
	FullyDiscounted bool                   `json:"fullyDiscounted"`
	PaymentMethod   string                 `json:"paymentMethod"`
	CashReceived    string                 `json:"cashReceived"`
	Balance         string                 `json:"balance"`
	Currency        string                 `json:"currency"`
	StockWarnings   []stockWarningResponse `json:"stockWarnings"`
	Replayed        bool                   `json:"replayed,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(model.CurrencyUnitPlaces)
}

func newSaleResponse(sale *model.Sale, replayed bool) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     amount(item.Price),
			Quantity:  item.Quantity,
			Amount:    amount(item.Amount()),
		})
	}
	warnings := make([]stockWarningResponse, 0, len(sale.StockWarnings))
	for _, w := range sale.StockWarnings {
		warnings = append(warnings, stockWarningResponse{ProductID: w.ProductID, Quantity: w.Quantity, Reason: string(w.Reason)})
	}

	return saleResponse{
		ID:              sale.ID,
		Items:           items,
		TotalItems:      sale.TotalItems(),
		Subtotal:        amount(sale.Subtotal),
		Tax:             amount(sale.Tax),
		TaxPercentage:   sale.TaxPercentage.String(),
		Discount:        amount(sale.Discount),
		Total:           amount(sale.Total),
		FullyDiscounted: sale.FullyDiscounted,
		PaymentMethod:   sale.PaymentMethod,
		CashReceived:    amount(sale.CashReceived),
		Balance:         amount(sale.Balance),
		Currency:        sale.Currency,
		StockWarnings:   warnings,
		Replayed:        replayed,
		CreatedAt:       sale.CreatedAt,
	}
}

type createProductRequest struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	Quantity      int             `json:"quantity"`
	StockTracking *bool           `json:"stockTracking"`
	Purpose       string          `json:"purpose"`
}

type updateProductRequest struct {
	Name          *string          `json:"name"`
	Category      *string          `json:"category"`
	SellingPrice  *decimal.Decimal `json:"sellingPrice"`
	CostPrice     *decimal.Decimal `json:"costPrice"`
	StockTracking *bool            `json:"stockTracking"`
	Purpose       *string          `json:"purpose"`
}

type receiveStockRequest struct {
	Quantity int `json:"quantity"`
}

// adjustStockRequest carries a signed correction: negative for write-offs.
type adjustStockRequest struct {
	Delta int `json:"delta"`
}

type stockResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type productResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	SellingPrice  string    `json:"sellingPrice"`
	CostPrice     string    `json:"costPrice"`
	Quantity      int       `json:"quantity"`
	StockTracking bool      `json:"stockTracking"`
	Purpose       string    `json:"purpose"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		SellingPrice:  amount(p.SellingPrice),
		CostPrice:     amount(p.CostPrice),
		Quantity:      p.Quantity,
		StockTracking: p.StockTracking,
		Purpose:       string(p.Purpose),
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type storeConfigRequest struct {
	StoreName     string           `json:"storeName"`
	BranchName    string           `json:"branchName"`
	Address       string           `json:"address"`
	ContactNumber string           `json:"contactNumber"`
	TaxNumber     string           `json:"taxNumber"`
	Currency      string           `json:"currency"`
	TaxPercentage *decimal.Decimal `json:"taxPercentage"`
}

type storeConfigResponse struct {
	StoreName     string    `json:"storeName"`
	BranchName    string    `json:"branchName"`
	Address       string    `json:"address"`
	ContactNumber string    `json:"contactNumber"`
	TaxNumber     string    `json:"taxNumber"`
	Currency      string    `json:"currency"`
	TaxPercentage string    `json:"taxPercentage"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

func newStoreConfigResponse(c model.StoreConfig) storeConfigResponse {
	return storeConfigResponse{
		StoreName:     c.StoreName,
		BranchName:    c.BranchName,
		Address:       c.Address,
		ContactNumber: c.ContactNumber,
		TaxNumber:     c.TaxNumber,
		Currency:      c.Currency,
		TaxPercentage: c.TaxPercentage.String(),
		UpdatedAt:     c.UpdatedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
