package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	appservice "posservice/pkg/sale/application/service"
	"posservice/pkg/sale/domain/model"
	domainservice "posservice/pkg/sale/domain/service"
)

const idempotencyKeyHeader = "Idempotency-Key"

var errMalformedRequest = fmt.Errorf("%w: malformed request", model.ErrValidation)

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	sales    appservice.SalesService
	products domainservice.ProductService
	store    domainservice.StoreConfigService
	health   HealthCheck
	logger   logrus.FieldLogger
}

func NewHandler(
	sales appservice.SalesService,
	products domainservice.ProductService,
	store domainservice.StoreConfigService,
	health HealthCheck,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		sales:    sales,
		products: products,
		store:    store,
		health:   health,
		logger:   logger,
	}
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get(idempotencyKeyHeader)
	if len(idempotencyKey) > model.MaxIdempotencyKeyLength {
		h.writeError(w, model.ErrIdempotencyKeyTooLong)
		return
	}
	var req createSaleRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := appservice.CreateSaleInput{
		Discount:       req.Discount,
		CashReceived:   req.CashReceived,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: idempotencyKey,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, appservice.SaleItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.sales.CreateSale(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	h.writeJSON(w, status, newSaleResponse(result.Sale, result.Replayed))
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.ListSales(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := make([]saleResponse, 0, len(sales))
	for i := range sales {
		response = append(response, newSaleResponse(&sales[i], false))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	sale, err := h.sales.GetSale(r.Context(), saleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newSaleResponse(sale, false))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []model.Product
		err      error
	)
	switch purpose := r.URL.Query().Get("purpose"); purpose {
	case "":
		products, err = h.products.ListProducts(r.Context())
	case string(model.PurposeSale):
		products, err = h.products.ListSellableProducts(r.Context())
	default:
		err = model.ErrInvalidPurpose
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := make([]productResponse, 0, len(products))
	for i := range products {
		response = append(response, newProductResponse(&products[i]))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.products.CreateProduct(r.Context(), domainservice.NewProduct{
		Name:          req.Name,
		Category:      req.Category,
		SellingPrice:  req.SellingPrice,
		CostPrice:     req.CostPrice,
		Quantity:      req.Quantity,
		StockTracking: req.StockTracking,
		Purpose:       model.Purpose(req.Purpose),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	changes := domainservice.ProductChanges{
		Name:          req.Name,
		Category:      req.Category,
		SellingPrice:  req.SellingPrice,
		CostPrice:     req.CostPrice,
		StockTracking: req.StockTracking,
	}
	if req.Purpose != nil {
		purpose := model.Purpose(*req.Purpose)
		changes.Purpose = &purpose
	}

	product, err := h.products.UpdateProductDetails(r.Context(), productID, changes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req receiveStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	quantity, err := h.products.ReceiveStock(r.Context(), productID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, Quantity: quantity})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req adjustStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	quantity, err := h.products.AdjustStock(r.Context(), productID, req.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stockResponse{ProductID: productID, Quantity: quantity})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(r.Context(), productID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getStoreConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.store.GetConfig(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newStoreConfigResponse(config))
}

func (h *Handler) updateStoreConfig(w http.ResponseWriter, r *http.Request) {
	var req storeConfigRequest
	if !h.decode(w, r, &req) {
		return
	}

	config, err := h.store.UpdateConfig(r.Context(), domainservice.StoreConfigChanges{
		StoreName:     req.StoreName,
		BranchName:    req.BranchName,
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		TaxNumber:     req.TaxNumber,
		Currency:      req.Currency,
		TaxPercentage: req.TaxPercentage,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newStoreConfigResponse(config))
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.WithError(err).Error("health check failed")
			h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid id", model.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WithError(err).Debug("failed to decode request")
		h.writeError(w, errMalformedRequest)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("write response")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrProductNotFound), errors.Is(err, model.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrOptimisticLock), errors.Is(err, model.ErrStockConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
