package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Total number of orders placed from the storefront",
	}, []string{"page"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Total number of checkouts that did not produce an order",
	}, []string{"reason"})

	OrderValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_value_euros",
		Help:    "Total amount of placed orders",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500},
	})

	CartRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_rejections_total",
		Help: "Total number of rejected cart mutations",
	}, []string{"reason"})

	TrackingLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_tracking_lookups_total",
		Help: "Total number of order lookups",
	}, []string{"result"})

	StorageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_storage_errors_total",
		Help: "Total number of storage read, parse and write failures",
	}, []string{"op"})

	DocumentReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_document_reloads_total",
		Help: "Total number of catalog reloads triggered by change notifications",
	})

	ActiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Number of client storefronts held in memory",
	}, []string{"page"})

	StorefrontEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_evictions_total",
		Help: "Total number of idle client storefronts dropped from memory",
	}, []string{"page"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
