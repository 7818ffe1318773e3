package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/availability"
	"github.com/kirinyoku/inn-go/internal/domain"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/service"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/kirinyoku/inn-go/internal/service/seating"
)

const idemLockTTL = 60 * time.Second

// @Summary  Search available categories for a stay
// @Tags     rooms
// @Param    req  body  AvailabilityRequest  true  "stay and filters"
// @Success  200  {array}   availability.CategoryAvailability
// @Failure  400  {object}  ErrorResponse
// @Router   /rooms/availability [post]
func handleSearchAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AvailabilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in, out, err := parseStay(req.CheckIn, req.CheckOut)
		if err != nil {
			respondErr(c, err)
			return
		}

		res, err := svcs.Reservation.Search(c.Request.Context(), availability.Query{
			CheckIn:   in,
			CheckOut:  out,
			Guests:    req.Guests,
			Type:      domain.CategoryType(strings.ToLower(req.Type)),
			PriceMin:  req.PriceMin,
			PriceMax:  req.PriceMax,
			Amenities: req.Amenities,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Get category
// @Tags     categories
// @Param    id   path  string  true  "Category ID (uuid)"
// @Success  200  {object}  domain.Category
// @Failure  404  {object}  ErrorResponse
// @Router   /categories/{id} [get]
func handleGetCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		cat, err := svcs.Query.GetCategory(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeCachedJSON(c, cat, "60")
	}
}

// @Summary  Check one category for a stay
// @Tags     categories
// @Param    id   path  string                true  "Category ID (uuid)"
// @Param    req  body  CheckCategoryRequest  true  "stay"
// @Success  200  {object}  reservation.CheckResult
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /categories/{id}/check [post]
func handleCheckCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req CheckCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in, out, err := parseStay(req.CheckIn, req.CheckOut)
		if err != nil {
			respondErr(c, err)
			return
		}

		res, err := svcs.Reservation.CheckCategory(c.Request.Context(), id, in, out, req.Guests)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Create reservation (idempotent)
// @Tags     reservations
// @Param    req              body    CreateReservationRequest  true   "stay and guest"
// @Param    Idempotency-Key  header  string                    false  "replay key"
// @Success  201  {object}  domain.Reservation
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "not available / idempotency key in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /reservations [post]
func handleCreateReservation(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in, out, err := parseStay(req.CheckIn, req.CheckOut)
		if err != nil {
			respondErr(c, err)
			return
		}

		// binding already checked the uuid form
		categoryID, _ := uuid.Parse(req.CategoryID)
		roomID, _ := uuid.Parse(req.RoomID)

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReservation(c.ClientIP(), idemKey)

			if res, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, res)
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if res, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					replay(c, idemKey, res)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rv, err := svcs.Reservation.Create(ctx, reservation.CreateRequest{
			CategoryID: categoryID,
			RoomID:     roomID,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			GuestPhone: req.GuestPhone,
			Guests:     req.Guests,
			CheckIn:    in,
			CheckOut:   out,
			Notes:      req.Notes,
			Deferred:   req.PayLater,
		}, "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			b, _ := json.Marshal(rv)
			_ = idem.SaveResult(ctx, idemStorageKey, http.StatusCreated, b)
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, rv)
	}
}

func replay(c *gin.Context, idemKey string, res *redisrepo.IdempotentResponse) {
	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(res.Status, "application/json; charset=utf-8", res.Body)
}

// @Summary  Get reservation
// @Tags     reservations
// @Param    id   path  string  true  "Reservation ID (uuid)"
// @Success  200  {object}  domain.Reservation
// @Failure  404  {object}  ErrorResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		rv, err := svcs.Reservation.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, rv)
	}
}

// @Summary  List seat pools with free seats
// @Tags     seats
// @Success  200  {array}  aggregate.SeatStats
// @Router   /seats [get]
func handleListSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		seats, err := svcs.Query.Seats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		writeCachedJSON(c, seats, "15")
	}
}

// @Summary  Register for a seat
// @Tags     registrations
// @Param    req  body  RegisterRequest  true  "attendee"
// @Success  201  {object}  domain.Registration
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "sold out / already registered"
// @Router   /registrations [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		reg, err := svcs.Seating.Register(c.Request.Context(), seating.RegisterRequest{
			FullName: req.FullName,
			Email:    req.Email,
			Country:  req.Country,
			Phone:    req.Phone,
			Category: req.Category,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, reg)
	}
}

// @Summary  Verify a registration payment
// @Tags     registrations
// @Param    req  body  VerifyPaymentRequest  true  "gateway callback"
// @Success  200  {object}  domain.Registration
// @Failure  400  {object}  ErrorResponse  "bad signature / not pending"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "sold out"
// @Router   /registrations/verify [post]
func handleVerifyPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		reg, err := svcs.Seating.VerifyPayment(c.Request.Context(), seating.VerifyRequest{
			OrderRef:   req.OrderRef,
			PaymentRef: req.PaymentRef,
			Signature:  req.Signature,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, reg)
	}
}

// @Summary  Get registration
// @Tags     registrations
// @Param    id   path  string  true  "Registration ID (uuid)"
// @Success  200  {object}  domain.Registration
// @Failure  404  {object}  ErrorResponse
// @Router   /registrations/{id} [get]
func handleGetRegistration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		reg, err := svcs.Seating.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, reg)
	}
}

// @Summary  Track a registration by order ref
// @Tags     registrations
// @Param    ref  path  string  true  "order ref"
// @Success  200  {object}  seating.Tracking
// @Failure  404  {object}  ErrorResponse
// @Router   /track/{ref} [get]
func handleTrackRegistration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Seating.Track(c.Request.Context(), c.Param("ref"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, t)
	}
}
