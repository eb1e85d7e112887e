package transport

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appservice "posservice/pkg/sale/application/service"
	domainservice "posservice/pkg/sale/domain/service"
	"posservice/pkg/sale/infrastructure/event"
	"posservice/pkg/sale/infrastructure/memory"
)

func setup(t *testing.T) http.Handler {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memory.NewStore()
	dispatcher := event.NewLogDispatcher(logger)

	storeConfig := domainservice.NewStoreConfigService(store.StoreConfigRepository(), dispatcher)
	products := domainservice.NewProductService(store.ProductRepository(), dispatcher)
	checkout := domainservice.NewCheckoutService(store.UnitOfWork(), domainservice.ClampNegativeTotal, logger)
	sales := appservice.NewSalesService(checkout, storeConfig, store.SaleLedger(), dispatcher, logger)

	return Router(NewHandler(sales, products, storeConfig, nil, logger), nil, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func createProduct(t *testing.T, router http.Handler, name string, price string, quantity int) productResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":         name,
		"category":     "Food",
		"sellingPrice": price,
		"costPrice":    "1",
		"quantity":     quantity,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product productResponse
	decodeBody(t, rec, &product)
	return product
}

func TestCreateSale(t *testing.T) {
	t.Run("Computes totals and decrements stock", func(t *testing.T) {
		router := setup(t)
		rec := do(t, router, http.MethodPut, "/api/v1/store", map[string]interface{}{
			"storeName":     "Corner",
			"branchName":    "Main",
			"address":       "1 High St",
			"contactNumber": "555-0100",
			"taxPercentage": "10",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		product := createProduct(t, router, "Rice", "500", 5)

		rec = do(t, router, http.MethodPost, "/api/v1/sales", map[string]interface{}{
			"items": []map[string]interface{}{
				{"productId": product.ID, "name": "Rice", "price": "500", "quantity": 2},
			},
			"cashReceived": "1200",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var sale saleResponse
		decodeBody(t, rec, &sale)
		assert.Equal(t, "1000.00", sale.Subtotal)
		assert.Equal(t, "100.00", sale.Tax)
		assert.Equal(t, "1100.00", sale.Total)
		assert.Equal(t, "100.00", sale.Balance)
		assert.Equal(t, "Cash", sale.PaymentMethod)
		assert.Equal(t, "USD", sale.Currency)
		assert.Empty(t, sale.StockWarnings)

		rec = do(t, router, http.MethodGet, "/api/v1/products/"+product.ID.String(), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var stored productResponse
		decodeBody(t, rec, &stored)
		assert.Equal(t, 3, stored.Quantity)

		rec = do(t, router, http.MethodGet, "/api/v1/sales/"+sale.ID.String(), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Insufficient payment", func(t *testing.T) {
		router := setup(t)
		product := createProduct(t, router, "Bread", "250", 5)

		rec := do(t, router, http.MethodPost, "/api/v1/sales", map[string]interface{}{
			"items":        []map[string]interface{}{{"productId": product.ID, "name": "Bread", "price": "250", "quantity": 3}},
			"discount":     "50",
			"cashReceived": "690",
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body errorResponse
		decodeBody(t, rec, &body)
		assert.NotEmpty(t, body.Error)

		rec = do(t, router, http.MethodGet, "/api/v1/sales", nil, nil)
		var sales []saleResponse
		decodeBody(t, rec, &sales)
		assert.Empty(t, sales)
	})

	t.Run("Empty cart", func(t *testing.T) {
		router := setup(t)
		rec := do(t, router, http.MethodPost, "/api/v1/sales", map[string]interface{}{"items": []interface{}{}, "cashReceived": "10"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Malformed body", func(t *testing.T) {
		router := setup(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Replays by idempotency key", func(t *testing.T) {
		router := setup(t)
		product := createProduct(t, router, "Milk", "120", 10)
		body := map[string]interface{}{
			"items":        []map[string]interface{}{{"productId": product.ID, "name": "Milk", "price": "120", "quantity": 1}},
			"cashReceived": "200",
		}
		headers := map[string]string{idempotencyKeyHeader: "till-1-42"}

		first := do(t, router, http.MethodPost, "/api/v1/sales", body, headers)
		require.Equal(t, http.StatusCreated, first.Code)
		second := do(t, router, http.MethodPost, "/api/v1/sales", body, headers)
		require.Equal(t, http.StatusOK, second.Code)

		var a, b saleResponse
		decodeBody(t, first, &a)
		decodeBody(t, second, &b)
		assert.Equal(t, a.ID, b.ID)
		assert.True(t, b.Replayed)

		rec := do(t, router, http.MethodGet, "/api/v1/products/"+product.ID.String(), nil, nil)
		var stored productResponse
		decodeBody(t, rec, &stored)
		assert.Equal(t, 9, stored.Quantity)
	})

	t.Run("Rejects an oversized idempotency key", func(t *testing.T) {
		router := setup(t)
		product := createProduct(t, router, "Milk", "120", 10)
		body := map[string]interface{}{
			"items":        []map[string]interface{}{{"productId": product.ID, "name": "Milk", "price": "120", "quantity": 1}},
			"cashReceived": "200",
		}

		rec := do(t, router, http.MethodPost, "/api/v1/sales", body, map[string]string{idempotencyKeyHeader: strings.Repeat("k", 256)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, router, http.MethodGet, "/api/v1/sales", nil, nil)
		var sales []saleResponse
		decodeBody(t, rec, &sales)
		assert.Empty(t, sales)
	})

	t.Run("Unknown product becomes a warning", func(t *testing.T) {
		router := setup(t)
		rec := do(t, router, http.MethodPost, "/api/v1/sales", map[string]interface{}{
			"items":        []map[string]interface{}{{"productId": uuid.New(), "name": "Ghost", "price": "5", "quantity": 1}},
			"cashReceived": "5",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var sale saleResponse
		decodeBody(t, rec, &sale)
		require.Len(t, sale.StockWarnings, 1)
		assert.Equal(t, "not_found", sale.StockWarnings[0].Reason)
	})
}

func TestSaleLookup(t *testing.T) {
	router := setup(t)

	rec := do(t, router, http.MethodGet, "/api/v1/sales/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/sales/not-an-id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductEndpoints(t *testing.T) {
	router := setup(t)
	product := createProduct(t, router, "Soap", "30", 2)

	rec := do(t, router, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":     "Mop",
		"category": "Cleaning",
		"purpose":  "store",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("List sellable only", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/v1/products?purpose=sale", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var products []productResponse
		decodeBody(t, rec, &products)
		require.Len(t, products, 1)
		assert.Equal(t, product.ID, products[0].ID)

		rec = do(t, router, http.MethodGet, "/api/v1/products", nil, nil)
		decodeBody(t, rec, &products)
		assert.Len(t, products, 2)
	})

	t.Run("Update details keeps quantity", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/api/v1/products/"+product.ID.String(), map[string]interface{}{"sellingPrice": "35"}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated productResponse
		decodeBody(t, rec, &updated)
		assert.Equal(t, "35.00", updated.SellingPrice)
		assert.Equal(t, 2, updated.Quantity)
		assert.Equal(t, product.Version+1, updated.Version)
	})

	t.Run("Receive stock", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/stock", map[string]int{"quantity": 5}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var stock stockResponse
		decodeBody(t, rec, &stock)
		assert.Equal(t, 7, stock.Quantity)

		rec = do(t, router, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/stock", map[string]int{"quantity": 0}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, router, http.MethodPost, "/api/v1/products/"+product.ID.String()+"/stock", map[string]int{"quantity": math.MaxInt}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Adjust stock", func(t *testing.T) {
		path := "/api/v1/products/" + product.ID.String() + "/stock"
		rec := do(t, router, http.MethodPatch, path, map[string]int{"delta": -5}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var stock stockResponse
		decodeBody(t, rec, &stock)
		assert.Equal(t, 2, stock.Quantity)

		rec = do(t, router, http.MethodPatch, path, map[string]int{"delta": -3}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = do(t, router, http.MethodPatch, path, map[string]int{"delta": 0}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, router, http.MethodPatch, path, map[string]int{"delta": 4}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &stock)
		assert.Equal(t, 6, stock.Quantity)
	})

	t.Run("Validation", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/products", map[string]interface{}{"category": "Food"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, router, http.MethodGet, "/api/v1/products?purpose=other", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := do(t, router, http.MethodDelete, "/api/v1/products/"+product.ID.String(), nil, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, router, http.MethodGet, "/api/v1/products/"+product.ID.String(), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStoreConfigEndpoints(t *testing.T) {
	router := setup(t)

	rec := do(t, router, http.MethodGet, "/api/v1/store", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var config storeConfigResponse
	decodeBody(t, rec, &config)
	assert.Equal(t, "USD", config.Currency)
	assert.Equal(t, "0", config.TaxPercentage)

	rec = do(t, router, http.MethodPut, "/api/v1/store", map[string]interface{}{
		"storeName":     "Corner",
		"branchName":    "Main",
		"address":       "1 High St",
		"contactNumber": "555-0100",
		"taxPercentage": "150",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/v1/store", map[string]interface{}{"storeName": "Corner"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := setup(t)
	rec := do(t, router, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
