package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/testutil"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	return NewEcho(testutil.Config(), nil, testutil.Open(t), zap.NewNop())
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEcho(t)

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	}
}

func TestErrorHandlerUsesEnvelope(t *testing.T) {
	e := newTestEcho(t)
	e.GET("/boom", func(echo.Context) error {
		return errorbank.InvalidState("order is finalized")
	})
	e.GET("/panic", func(echo.Context) error {
		panic(errors.New("unexpected"))
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"kind":"invalid_state","message":"order is finalized"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
