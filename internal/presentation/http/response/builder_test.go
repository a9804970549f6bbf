package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorventas/deposito/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, rec), rec
}

func TestBuildValidationError(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, New(c).WithError(errorbank.Validation(4, "category name is empty")).Build())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind    string         `json:"kind"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "validation_error", body.Error.Kind)
	assert.EqualValues(t, 4, body.Error.Details["line"])
}

func TestBuildAttachment(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, New(c).WithAttachment("categories.csv", "text/csv; charset=utf-8", []byte("ID;NOMBRE\n")).Build())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="categories.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "ID;NOMBRE\n", rec.Body.String())
}

func TestAttachmentErrorsRenderAsJSON(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, New(c).WithAttachment("x.csv", "text/csv", nil).WithError(errorbank.PermissionDenied("admin only")).Build())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
