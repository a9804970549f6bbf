package transfer

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/cache"
	"github.com/gestorventas/deposito/internal/config"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	service "github.com/gestorventas/deposito/internal/service/transfer"
	"github.com/gestorventas/deposito/internal/testutil"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
)

func newEcho(t *testing.T, maxBytes int64) *echo.Echo {
	t.Helper()
	conns := testutil.DB(t)
	cfg := testutil.Config()
	cfg.Transfer = config.Transfer{MaxUploadBytes: maxBytes}

	svc, err := service.NewService(service.Params{
		Connections: conns,
		Orders:      orderrepo.NewRepository(conns),
		Catalog:     catalogrepo.NewRepository(conns),
		Clients:     clientrepo.NewRepository(conns),
		Cache:       cache.NewNoop(),
		Config:      cfg,
		Logger:      zap.NewNop(),
		Publisher:   &testutil.Publisher{},
	})
	require.NoError(t, err)

	e := echo.New()
	Register(e, NewHandler(svc, cfg))
	return e
}

func adminRequest(method, path string, body *bytes.Buffer, contentType string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(identity.HeaderRole, identity.RoleAdmin)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	return req
}

func multipartBody(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "categorias.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImportThenExportCategories(t *testing.T) {
	e := newEcho(t, 1<<20)

	body, contentType := multipartBody(t, "ID;NOMBRE\n1;bebidas\n2;limpieza\n")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodPost, "/config/import/categories", body, contentType))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			Kind    string `json:"kind"`
			Records int    `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "categories", env.Data.Kind)
	assert.Equal(t, 2, env.Data.Records)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodGet, "/config/export/categories", nil, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="categories.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBFID;NOMBRE"))
	assert.Contains(t, rec.Body.String(), "BEBIDAS")
	assert.Contains(t, rec.Body.String(), "LIMPIEZA")
}

func TestImportRawBodyReportsLine(t *testing.T) {
	e := newEcho(t, 1<<20)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodPost, "/config/import/categories",
		bytes.NewBufferString("ID;NOMBRE\n1;bebidas\n2;\n"), "text/csv"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var env struct {
		Error struct {
			Kind    string         `json:"kind"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Error.Kind)
	assert.EqualValues(t, 3, env.Error.Details["line"])
}

func TestImportGuards(t *testing.T) {
	e := newEcho(t, 16)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodPost, "/config/import/categories",
		bytes.NewBufferString("ID;NOMBRE\n1;bebidas\n2;limpieza\n3;frutas\n"), "text/csv"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "oversize upload")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodPost, "/config/import/invoices", nil, "text/csv"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown dataset")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodPost, "/config/import/orders",
		bytes.NewBufferString("ID\n"), "text/csv"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "orders are export only")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, adminRequest(http.MethodGet, "/config/export/orders", nil, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "orders.csv")

	req := httptest.NewRequest(http.MethodDelete, "/config/data", nil)
	req.Header.Set(identity.HeaderSellerID, "7")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "sellers cannot purge")
}
