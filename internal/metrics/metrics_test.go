package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/inn-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeConflict, Outcome(fmt.Errorf("op:%w", domain.ErrConflict)))
	assert.Equal(t, OutcomeInvalid, Outcome(domain.Invalid("guests", "must be at least 1")))
	assert.Equal(t, OutcomeInvalid, Outcome(domain.ErrNotFound))
	assert.Equal(t, OutcomeError, Outcome(errors.New("connection reset")))
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware)
	r.GET("/categories/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/categories/:id", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/abc", nil))

	after := testutil.ToFloat64(RequestTotal.WithLabelValues(http.MethodGet, "/categories/:id", "204"))
	assert.Equal(t, before+1, after)
}
