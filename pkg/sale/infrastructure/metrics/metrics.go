package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

const namespace = "posservice"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(registerer prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	registerer.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware labels requests by route template so that ids in the path do
// not blow up cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		handler := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				handler = template
			}
		}
		m.Requests.WithLabelValues(handler, strconv.Itoa(recorder.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type SalesMetrics struct {
	SalesCompleted  prometheus.Counter
	StockRejections *prometheus.CounterVec
	Revenue         *prometheus.CounterVec
}

func NewSalesMetrics(registerer prometheus.Registerer) *SalesMetrics {
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_completed_total",
		Help:      "Total number of committed sales.",
	})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_decrement_rejected_total",
		Help:      "Sale lines whose stock could not be decremented.",
	}, []string{"reason"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_revenue_total",
		Help:      "Sum of committed sale totals.",
	}, []string{"currency"})

	registerer.MustRegister(completed, rejections, revenue)
	return &SalesMetrics{SalesCompleted: completed, StockRejections: rejections, Revenue: revenue}
}

// Dispatcher returns an event dispatcher that feeds the sales counters.
func (m *SalesMetrics) Dispatcher() domain.EventDispatcher {
	return salesDispatcher{metrics: m}
}

type salesDispatcher struct {
	metrics *SalesMetrics
}

func (d salesDispatcher) Dispatch(event domain.Event) error {
	switch e := event.(type) {
	case model.SaleCompleted:
		d.metrics.SalesCompleted.Inc()
		d.metrics.Revenue.WithLabelValues(e.Currency).Add(e.Total.InexactFloat64())
	case model.StockDecrementRejected:
		d.metrics.StockRejections.WithLabelValues(string(e.Reason)).Inc()
	}
	return nil
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
