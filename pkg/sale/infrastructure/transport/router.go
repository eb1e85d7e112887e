package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"posservice/pkg/sale/infrastructure/metrics"
)

func Router(h *Handler, serverMetrics *metrics.ServerMetrics, metricsHandler http.Handler) http.Handler {
	r := mux.NewRouter()
	if serverMetrics != nil {
		r.Use(serverMetrics.Middleware)
	}

	r.HandleFunc("/api/health", h.healthCheck).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/sales", h.createSale).Methods(http.MethodPost)
	s.HandleFunc("/sales", h.listSales).Methods(http.MethodGet)
	s.HandleFunc("/sales/{id}", h.getSale).Methods(http.MethodGet)

	s.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}", h.updateProduct).Methods(http.MethodPut)
	s.HandleFunc("/products/{id}", h.deleteProduct).Methods(http.MethodDelete)
	s.HandleFunc("/products/{id}/stock", h.receiveStock).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}/stock", h.adjustStock).Methods(http.MethodPatch)

	s.HandleFunc("/store", h.getStoreConfig).Methods(http.MethodGet)
	s.HandleFunc("/store", h.updateStoreConfig).Methods(http.MethodPut)

	return logMiddleware(h.logger, r)
}

func logMiddleware(logger logrus.FieldLogger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
