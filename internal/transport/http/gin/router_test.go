package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/inn-go/internal/auth"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/kirinyoku/inn-go/internal/payment"
	"github.com/kirinyoku/inn-go/internal/repository/memory"
	"github.com/kirinyoku/inn-go/internal/service"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	t        *testing.T
	router   *gin.Engine
	svcs     *service.Services
	tokens   *auth.Manager
	verifier *payment.HMACVerifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := payment.NewHMACVerifier("pay-secret")

	svcs := service.NewServices(service.Deps{
		Store:    memory.NewStore(),
		Verifier: verifier,
		Logger:   logger,
	}, service.Config{
		Reservation: reservation.Config{Now: func() time.Time { return clock }},
	})
	require.NoError(t, svcs.Seating.Seed(context.Background()))

	tokens := auth.NewManager("jwt-secret", time.Hour)

	return &testAPI{
		t:        t,
		router:   NewRouter(svcs, nil, tokens, logger),
		svcs:     svcs,
		tokens:   tokens,
		verifier: verifier,
	}
}

func (a *testAPI) token(role string) string {
	a.t.Helper()
	tok, _, err := a.tokens.Issue("ops@example.com", role)
	require.NoError(a.t, err)
	return tok
}

func (a *testAPI) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) admin(method, path string, body any) *httptest.ResponseRecorder {
	return a.do(method, path, body, "Authorization", "Bearer "+a.token(auth.RoleAdmin))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) createCategory(rooms int) domain.Category {
	a.t.Helper()
	w := a.admin(http.MethodPost, "/admin/categories", CreateCategoryRequest{
		Name:       "Garden Single",
		BasePrice:  100,
		Beds:       1,
		MaxGuests:  1,
		Type:       "single",
		Amenities:  []string{"wifi"},
		TotalRooms: rooms,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Category](a.t, w)
}

func stay(categoryID string) CreateReservationRequest {
	return CreateReservationRequest{
		CategoryID: categoryID,
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
		GuestPhone: "+44 20 7946 0000",
		Guests:     1,
		CheckIn:    "2024-06-01",
		CheckOut:   "2024-06-03",
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAdmin_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/admin/reservations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/admin/reservations", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(http.MethodGet, "/admin/reservations", nil, "Authorization", "Bearer "+api.token("guest"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.admin(http.MethodGet, "/admin/reservations", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteCategory_SuperAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(1)

	w := api.admin(http.MethodDelete, "/admin/categories/"+cat.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodDelete, "/admin/categories/"+cat.ID.String(), nil,
		"Authorization", "Bearer "+api.token(auth.RoleSuperAdmin))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(http.MethodGet, "/categories/"+cat.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReservation_ConflictOnOverlap(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(1)

	w := api.do(http.MethodPost, "/reservations", stay(cat.ID.String()))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rv := decode[domain.Reservation](t, w)
	assert.Equal(t, domain.StatusConfirmed, rv.Status)
	assert.Equal(t, 200.0, rv.TotalPrice)

	other := stay(cat.ID.String())
	other.GuestName = "Grace Hopper"
	other.GuestEmail = "grace@example.com"
	other.CheckIn, other.CheckOut = "2024-06-02", "2024-06-04"

	w = api.do(http.MethodPost, "/reservations", other)
	assert.Equal(t, http.StatusConflict, w.Code)

	er := decode[ErrorResponse](t, w)
	assert.Contains(t, er.Error, "not available")
	assert.NotContains(t, er.Error, "Ada")
	assert.NotContains(t, er.Error, "service.")

	w = api.do(http.MethodGet, "/reservations/"+rv.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateReservation_InvalidRequest(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(1)

	req := stay(cat.ID.String())
	req.CheckOut = "2024-06-01"
	w := api.do(http.MethodPost, "/reservations", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, w).Field)

	req = stay(cat.ID.String())
	req.CheckIn = "first of june"
	w = api.do(http.MethodPost, "/reservations", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "check_in", decode[ErrorResponse](t, w).Field)

	req = stay(cat.ID.String())
	req.GuestEmail = "Mallory <mallory@example.com>"
	w = api.do(http.MethodPost, "/reservations", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/reservations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/categories/"+cat.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[domain.Category](t, w).AvailableRooms)
}

func TestReservationLifecycle_ViaAdmin(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(1)

	w := api.do(http.MethodPost, "/reservations", stay(cat.ID.String()))
	require.Equal(t, http.StatusCreated, w.Code)
	rv := decode[domain.Reservation](t, w)

	path := "/admin/reservations/" + rv.ID.String()

	w = api.admin(http.MethodPut, path+"/status", SetReservationStatusRequest{Status: "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "confirmed cannot go back to pending")

	w = api.admin(http.MethodPut, path+"/status", SetReservationStatusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusCancelled, decode[domain.Reservation](t, w).Status)

	w = api.admin(http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.StatusChange](t, w), 2)

	w = api.do(http.MethodGet, "/categories/"+cat.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[domain.Category](t, w).AvailableRooms)

	w = api.admin(http.MethodPost, "/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[reservation.ReconcileReport](t, w).Counters)
}

func TestGetCategory_ETag(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(2)

	w := api.do(http.MethodGet, "/categories/"+cat.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = api.do(http.MethodGet, "/categories/"+cat.ID.String(), nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestSearchAvailability(t *testing.T) {
	api := newTestAPI(t)
	cat := api.createCategory(2)

	w := api.do(http.MethodPost, "/reservations", stay(cat.ID.String()))
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodPost, "/rooms/availability", AvailabilityRequest{
		CheckIn:  "2024-06-01",
		CheckOut: "2024-06-02",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res []struct {
		Count int `json:"available_rooms_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, 1, res[0].Count)
}

func TestRegistration_VerifyFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/registrations", RegisterRequest{
		FullName: "Ravi Kumar",
		Email:    "ravi@example.com",
		Country:  "India",
		Phone:    "+91 98765 43210",
		Category: "student",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[domain.Registration](t, w)
	assert.Equal(t, domain.RegistrationPending, reg.Status)

	w = api.do(http.MethodPost, "/registrations/verify", VerifyPaymentRequest{
		OrderRef:   reg.OrderRef,
		PaymentRef: "pay_1",
		Signature:  "forged",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/registrations/"+reg.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RegistrationFailed, decode[domain.Registration](t, w).Status)
}

func TestRegistration_Completed(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/registrations", RegisterRequest{
		FullName: "Mei Chen",
		Email:    "mei@example.com",
		Country:  "Singapore",
		Phone:    "+65 6123 4567",
		Category: "foreigner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[domain.Registration](t, w)

	w = api.do(http.MethodPost, "/registrations/verify", VerifyPaymentRequest{
		OrderRef:   reg.OrderRef,
		PaymentRef: "pay_2",
		Signature:  api.verifier.Sign(reg.OrderRef, "pay_2"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.RegistrationCompleted, decode[domain.Registration](t, w).Status)

	w = api.do(http.MethodGet, "/seats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var seats []struct {
		Category  string `json:"category"`
		Available int    `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seats))
	for _, s := range seats {
		if s.Category == "foreigner" {
			assert.Equal(t, 59, s.Available)
		}
	}
}

func TestRegistration_AdminReview(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/registrations", RegisterRequest{
		FullName: "Ana Silva",
		Email:    "ana@example.com",
		Country:  "Brazil",
		Phone:    "+55 11 91234 5678",
		Category: "foreigner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[domain.Registration](t, w)
	path := "/admin/registrations/" + reg.ID.String()

	w = api.do(http.MethodPost, path+"/approve", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.admin(http.MethodPost, path+"/approve", ReviewRegistrationRequest{Notes: "transfer received"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[domain.Registration](t, w)
	assert.Equal(t, domain.RegistrationCompleted, approved.Status)
	assert.Equal(t, "transfer received", approved.AdminNotes)

	w = api.admin(http.MethodPost, path+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.admin(http.MethodGet, "/admin/registrations?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	w = api.admin(http.MethodGet, "/admin/registrations/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Completed int64              `json:"completed"`
		Revenue   map[string]float64 `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.Completed)
	assert.InDelta(t, 500.0, stats.Revenue["USD"], 0.001)

	w = api.admin(http.MethodPost, path+"/reject", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.RegistrationRejected, decode[domain.Registration](t, w).Status)

	w = api.do(http.MethodGet, "/track/"+reg.OrderRef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tracked struct {
		Email      string `json:"email"`
		Status     string `json:"status"`
		AdminNotes string `json:"admin_notes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tracked))
	assert.Equal(t, "ana***@example.com", tracked.Email)
	assert.Equal(t, "rejected", tracked.Status)
	assert.Empty(t, tracked.AdminNotes)

	w = api.do(http.MethodGet, "/seats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var seats []struct {
		Category  string `json:"category"`
		Available int    `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seats))
	for _, s := range seats {
		if s.Category == "foreigner" {
			assert.Equal(t, 60, s.Available)
		}
	}
}

func TestRegister_RejectsDisplayNameEmail(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/registrations", RegisterRequest{
		FullName: "Mallory",
		Email:    "Mallory <mallory@example.com>",
		Country:  "US",
		Phone:    "1",
		Category: "indian",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicMessage(t *testing.T) {
	err := reservation.ErrRoomUnavailable
	wrapped := wrap(wrap(err, "service.reservation.Create"), "uow.Do")

	assert.Equal(t, err.Error(), publicMessage(wrapped))
	assert.Equal(t, "category not found", publicMessage(reservation.ErrCategoryNotFound))
}

func wrap(err error, op string) error {
	return &opError{op: op, err: err}
}

type opError struct {
	op  string
	err error
}

func (e *opError) Error() string { return e.op + ":" + e.err.Error() }
func (e *opError) Unwrap() error { return e.err }
