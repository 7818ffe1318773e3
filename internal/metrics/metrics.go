package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inngo_reservation_attempts_total",
			Help: "Reservation create attempts by outcome",
		},
		[]string{"outcome"},
	)
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inngo_reservation_transitions_total",
			Help: "Applied reservation status transitions",
		},
		[]string{"from", "to"},
	)
	SeatBookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inngo_seat_bookings_total",
			Help: "Seat pool booking attempts by outcome",
		},
		[]string{"outcome"},
	)
	CounterDrift = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inngo_counter_drift_total",
			Help: "Cached availability counters corrected by reconciliation",
		},
		[]string{"category"},
	)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inngo_notifications_total",
			Help: "Outbound notifications by event type and result",
		},
		[]string{"type", "result"},
	)
	AvailableRooms = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inngo_category_available_rooms",
			Help: "Rooms free right now per category, as last reconciled",
		},
		[]string{"category"},
	)
)

// Outcome labels shared by the attempt counters.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Outcome labels err by its domain kind.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrNotFound):
		return OutcomeInvalid
	}
	return OutcomeError
}

// Middleware records count and latency per route template. Unmatched paths
// are folded into one label to keep cardinality bounded.
func Middleware(c *gin.Context) {
	if c.Request.URL.Path == "/metrics" {
		c.Next()
		return
	}
	start := time.Now()
	c.Next()
	duration := time.Since(start).Seconds()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	status := strconv.Itoa(c.Writer.Status())
	RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
}
