// Package metrics exposes prometheus counters for the booking operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsTotal counts booking attempts by outcome.
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_bookings_total",
		Help: "Booking attempts by outcome.",
	}, []string{"outcome"})

	// CancellationsTotal counts cancellation attempts by outcome.
	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_cancellations_total",
		Help: "Cancellation attempts by outcome.",
	}, []string{"outcome"})

	// IngestedRowsTotal counts CSV rows by entity and result.
	IngestedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookdesk_ingested_rows_total",
		Help: "CSV rows processed by entity and result.",
	}, []string{"entity", "result"})
)
