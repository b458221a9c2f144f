package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the transfer service.
type Metrics struct {
	TransfersTotal   *prometheus.CounterVec
	TransferFailures *prometheus.CounterVec
	TransferDuration prometheus.Histogram
	TransferAmount   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransfersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gotransfer_transfers_total",
				Help: "Total number of transfer attempts by outcome",
			},
			[]string{"status"},
		),
		TransferFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gotransfer_transfer_failures_total",
				Help: "Total number of failed transfers by reason",
			},
			[]string{"reason"},
		),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gotransfer_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gotransfer_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
	}
}
