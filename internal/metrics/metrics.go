package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costumier",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costumier",
			Name:      "bookings_created_total",
			Help:      "Bookings created by channel.",
		},
		[]string{"channel"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costumier",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the size was taken.",
		},
	)

	bookingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costumier",
			Name:      "booking_create_seconds",
			Help:      "Booking creation latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingConflicts, bookingDuration)
	})
}

// IncHTTP increments the request counter for an endpoint and status code.
func IncHTTP(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

// IncBookingCreated counts a successful booking by channel.
func IncBookingCreated(channel string) {
	bookingsCreated.WithLabelValues(channel).Inc()
}

// IncBookingConflict counts an availability rejection.
func IncBookingConflict() {
	bookingConflicts.Inc()
}

// ObserveBookingCreate records how long a create took.
func ObserveBookingCreate(seconds float64) {
	bookingDuration.Observe(seconds)
}
