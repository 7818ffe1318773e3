package httpgin

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/auth"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/metrics"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/service"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/kirinyoku/inn-go/internal/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter mounts the public and admin API. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	tokens *auth.Manager,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		tracing.Middleware(),
		metrics.Middleware,
		LoggingMiddleware(logger),
		CORS(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
	})

	// Public API
	r.POST("/rooms/availability", handleSearchAvailability(svcs))
	r.GET("/categories/:id", handleGetCategory(svcs))
	r.POST("/categories/:id/check", handleCheckCategory(svcs))

	r.POST("/reservations", handleCreateReservation(svcs, idem))
	r.GET("/reservations/:id", handleGetReservation(svcs))

	r.GET("/seats", handleListSeats(svcs))
	r.POST("/registrations", handleRegister(svcs))
	r.POST("/registrations/verify", handleVerifyPayment(svcs))
	r.GET("/registrations/:id", handleGetRegistration(svcs))
	r.GET("/track/:ref", handleTrackRegistration(svcs))

	// Admin API
	admin := r.Group("/admin", AuthMiddleware(tokens), RequireRole(auth.RoleAdmin))
	{
		admin.GET("/reservations", handleListReservations(svcs))
		admin.GET("/reservations/stats", handleBookingStats(svcs))
		admin.GET("/reservations/:id/history", handleReservationHistory(svcs))
		admin.PUT("/reservations/:id/status", handleSetReservationStatus(svcs))
		admin.PUT("/reservations/:id/payment", handleSetPaymentStatus(svcs))

		admin.POST("/categories", handleCreateCategory(svcs))
		admin.GET("/categories/stats", handleCategoryStats(svcs))
		admin.GET("/categories/:id/rooms", handleListRooms(svcs))
		admin.PUT("/categories/:id/status", handleSetCategoryStatus(svcs))
		admin.PUT("/categories/:id/total-rooms", handleSetTotalRooms(svcs))
		admin.DELETE("/categories/:id", RequireRole(auth.RoleSuperAdmin), handleDeleteCategory(svcs))

		admin.POST("/rooms", handleCreateRoom(svcs))
		admin.GET("/rooms/stats", handleRoomStats(svcs))
		admin.PUT("/rooms/:id/status", handleSetRoomStatus(svcs))
		admin.DELETE("/rooms/:id", handleDeleteRoom(svcs))

		admin.PUT("/seat-pools", handleUpsertSeatPool(svcs))
		admin.GET("/registrations", handleListRegistrations(svcs))
		admin.GET("/registrations/stats", handleRegistrationStats(svcs))
		admin.POST("/registrations/:id/approve", handleApproveRegistration(svcs))
		admin.POST("/registrations/:id/reject", handleRejectRegistration(svcs))
		admin.POST("/registrations/:id/cancel", handleCancelRegistration(svcs))

		admin.POST("/reconcile", handleReconcile(svcs))
	}

	return r
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondErr maps an error kind to its status. Internal errors are attached
// to the context for the request log and answered with a generic message.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		ve *domain.ValidationError
		rl reservation.RateLimitedError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Reason, Field: ve.Field})
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: publicMessage(err)})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// publicMessage drops the "pkg.Type.Method:" prefixes that wrapping adds,
// leaving the message of the service error itself.
func publicMessage(err error) string {
	msg := err.Error()
	for {
		head, rest, ok := strings.Cut(msg, ":")
		if !ok || !strings.Contains(head, ".") || strings.ContainsAny(head, " \t") {
			return strings.TrimSpace(msg)
		}
		msg = rest
	}
}
