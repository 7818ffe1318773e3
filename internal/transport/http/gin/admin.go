package httpgin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/service"
	"github.com/kirinyoku/inn-go/internal/service/admin"
)

// @Summary   List reservations
// @Tags      admin
// @Security  BearerAuth
// @Param     search  query  string  false  "guest name, email or phone"
// @Param     status  query  string  false  "reservation status"
// @Param     page    query  int     false  "1-based page"
// @Param     limit   query  int     false  "page size (max 100)"
// @Success   200  {object}  reservation.Page
// @Router    /admin/reservations [get]
func handleListReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svcs.Reservation.List(
			c.Request.Context(),
			c.Query("search"),
			domain.ReservationStatus(c.Query("status")),
			parseIntDefault(c.Query("page"), 1),
			parseIntDefault(c.Query("limit"), 10),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// @Summary   Reservation totals by status
// @Tags      admin
// @Security  BearerAuth
// @Success   200  {object}  aggregate.BookingStats
// @Router    /admin/reservations/stats [get]
func handleBookingStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Query.BookingStats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// @Summary   Reservation status history
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string  true  "Reservation ID (uuid)"
// @Success   200  {array}   domain.StatusChange
// @Failure   404  {object}  ErrorResponse
// @Router    /admin/reservations/{id}/history [get]
func handleReservationHistory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		h, err := svcs.Reservation.History(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, h)
	}
}

// @Summary   Change reservation status
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                       true  "Reservation ID (uuid)"
// @Param     req  body  SetReservationStatusRequest  true  "target status"
// @Success   200  {object}  domain.Reservation
// @Failure   400  {object}  ErrorResponse  "illegal transition"
// @Failure   409  {object}  ErrorResponse  "room taken meanwhile"
// @Router    /admin/reservations/{id}/status [put]
func handleSetReservationStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetReservationStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rv, err := svcs.Reservation.Transition(c.Request.Context(), id, domain.ReservationStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, rv)
	}
}

// @Summary   Set reservation payment status
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                   true  "Reservation ID (uuid)"
// @Param     req  body  SetPaymentStatusRequest  true  "payment status"
// @Success   200  {object}  domain.Reservation
// @Router    /admin/reservations/{id}/payment [put]
func handleSetPaymentStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetPaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rv, err := svcs.Reservation.SetPaymentStatus(c.Request.Context(), id, domain.PaymentStatus(req.PaymentStatus))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, rv)
	}
}

// @Summary   Create category with its rooms
// @Tags      admin
// @Security  BearerAuth
// @Param     req  body  CreateCategoryRequest  true  "category"
// @Success   201  {object}  domain.Category
// @Failure   409  {object}  ErrorResponse  "name taken"
// @Router    /admin/categories [post]
func handleCreateCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		cat, err := svcs.Admin.CreateCategory(c.Request.Context(), admin.CategoryInput{
			Name:        req.Name,
			Description: req.Description,
			Images:      req.Images,
			BasePrice:   req.BasePrice,
			Discount:    req.Discount,
			Beds:        req.Beds,
			MaxGuests:   req.MaxGuests,
			Type:        domain.CategoryType(strings.ToLower(req.Type)),
			Amenities:   req.Amenities,
			TotalRooms:  req.TotalRooms,
			CreatedBy:   c.GetString(ctxSubject),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, cat)
	}
}

// @Summary   Occupancy per category
// @Tags      admin
// @Security  BearerAuth
// @Success   200  {object}  query.CategoryStats
// @Router    /admin/categories/stats [get]
func handleCategoryStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Query.CategoryStats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// @Summary   List rooms of a category
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string  true  "Category ID (uuid)"
// @Success   200  {array}   domain.Room
// @Failure   404  {object}  ErrorResponse
// @Router    /admin/categories/{id}/rooms [get]
func handleListRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		rooms, err := svcs.Admin.ListRooms(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, rooms)
	}
}

// @Summary   Open or close a category for booking
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                    true  "Category ID (uuid)"
// @Param     req  body  SetCategoryStatusRequest  true  "available or maintenance"
// @Success   200  {object}  StatusResponse
// @Router    /admin/categories/{id}/status [put]
func handleSetCategoryStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetCategoryStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Admin.SetCategoryStatus(c.Request.Context(), id, domain.CategoryStatus(req.Status)); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, StatusResponse{Status: req.Status})
	}
}

// @Summary   Grow or shrink a category
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                true  "Category ID (uuid)"
// @Param     req  body  SetTotalRoomsRequest  true  "new room count"
// @Success   200  {object}  domain.Category
// @Failure   409  {object}  ErrorResponse  "not enough free rooms to remove"
// @Router    /admin/categories/{id}/total-rooms [put]
func handleSetTotalRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetTotalRoomsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		cat, err := svcs.Admin.SetTotalRooms(c.Request.Context(), id, *req.TotalRooms)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, cat)
	}
}

// @Summary   Delete category
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string  true  "Category ID (uuid)"
// @Success   204
// @Failure   409  {object}  ErrorResponse  "active reservations"
// @Router    /admin/categories/{id} [delete]
func handleDeleteCategory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Admin.DeleteCategory(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary   Add a room to a category
// @Tags      admin
// @Security  BearerAuth
// @Param     req  body  CreateRoomRequest  true  "room"
// @Success   201  {object}  domain.Room
// @Failure   409  {object}  ErrorResponse  "number taken"
// @Router    /admin/rooms [post]
func handleCreateRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		categoryID, _ := uuid.Parse(req.CategoryID)

		room, err := svcs.Admin.CreateRoom(c.Request.Context(), categoryID, req.Number, req.Floor)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, room)
	}
}

// @Summary   Room totals by status
// @Tags      admin
// @Security  BearerAuth
// @Success   200  {object}  aggregate.RoomStats
// @Router    /admin/rooms/stats [get]
func handleRoomStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Query.RoomStats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// @Summary   Set room status
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                true  "Room ID (uuid)"
// @Param     req  body  SetRoomStatusRequest  true  "room status"
// @Success   200  {object}  domain.Room
// @Router    /admin/rooms/{id}/status [put]
func handleSetRoomStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req SetRoomStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		room, err := svcs.Admin.SetRoomStatus(c.Request.Context(), id, domain.RoomStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, room)
	}
}

// @Summary   Delete room
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string  true  "Room ID (uuid)"
// @Success   204
// @Failure   409  {object}  ErrorResponse  "room is held by a reservation"
// @Router    /admin/rooms/{id} [delete]
func handleDeleteRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if err := svcs.Admin.DeleteRoom(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary   Create or resize a seat pool
// @Tags      admin
// @Security  BearerAuth
// @Param     req  body  UpsertSeatPoolRequest  true  "pool"
// @Success   200  {object}  domain.SeatPool
// @Failure   409  {object}  ErrorResponse  "fewer seats than booked"
// @Router    /admin/seat-pools [put]
func handleUpsertSeatPool(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertSeatPoolRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		pool, err := svcs.Seating.UpsertPool(c.Request.Context(), domain.SeatPool{
			Category:   strings.ToLower(strings.TrimSpace(req.Category)),
			TotalSeats: req.TotalSeats,
			Price:      req.Price,
			Currency:   domain.Currency(req.Currency),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, pool)
	}
}

// @Summary   Cancel a registration
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string  true  "Registration ID (uuid)"
// @Success   200  {object}  domain.Registration
// @Router    /admin/registrations/{id}/cancel [post]
func handleCancelRegistration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		reg, err := svcs.Seating.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, reg)
	}
}

// @Summary   List registrations
// @Tags      admin
// @Security  BearerAuth
// @Param     status  query  string  false  "pending, completed, failed, cancelled, rejected or all"
// @Param     page    query  int     false  "1-based page"
// @Param     limit   query  int     false  "page size (max 100)"
// @Success   200  {object}  seating.Page
// @Failure   400  {object}  ErrorResponse
// @Router    /admin/registrations [get]
func handleListRegistrations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svcs.Seating.List(
			c.Request.Context(),
			domain.RegistrationStatus(c.Query("status")),
			parseIntDefault(c.Query("page"), 1),
			parseIntDefault(c.Query("limit"), 10),
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// @Summary   Registration totals by status
// @Tags      admin
// @Security  BearerAuth
// @Success   200  {object}  aggregate.RegistrationStats
// @Router    /admin/registrations/stats [get]
func handleRegistrationStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svcs.Seating.Stats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// @Summary   Approve a manually checked payment
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                     true   "Registration ID (uuid)"
// @Param     req  body  ReviewRegistrationRequest  false  "operator notes"
// @Success   200  {object}  domain.Registration
// @Failure   400  {object}  ErrorResponse
// @Failure   404  {object}  ErrorResponse
// @Failure   409  {object}  ErrorResponse  "sold out"
// @Router    /admin/registrations/{id}/approve [post]
func handleApproveRegistration(svcs *service.Services) gin.HandlerFunc {
	return reviewRegistration(svcs.Seating.Approve)
}

// @Summary   Reject a registration
// @Tags      admin
// @Security  BearerAuth
// @Param     id   path  string                     true   "Registration ID (uuid)"
// @Param     req  body  ReviewRegistrationRequest  false  "operator notes"
// @Success   200  {object}  domain.Registration
// @Failure   400  {object}  ErrorResponse
// @Failure   404  {object}  ErrorResponse
// @Router    /admin/registrations/{id}/reject [post]
func handleRejectRegistration(svcs *service.Services) gin.HandlerFunc {
	return reviewRegistration(svcs.Seating.Reject)
}

func reviewRegistration(
	apply func(ctx context.Context, id uuid.UUID, notes string) (*domain.Registration, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		// the body is optional
		var req ReviewRegistrationRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}

		reg, err := apply(c.Request.Context(), id, req.Notes)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, reg)
	}
}

// @Summary   Rebuild cached counters from the reservation ledger
// @Tags      admin
// @Security  BearerAuth
// @Success   200  {object}  reservation.ReconcileReport
// @Router    /admin/reconcile [post]
func handleReconcile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svcs.Reservation.Reconcile(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}
