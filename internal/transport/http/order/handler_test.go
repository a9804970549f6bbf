package order

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/cache"
	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/entity"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	paramsrepo "github.com/gestorventas/deposito/internal/repository/params"
	service "github.com/gestorventas/deposito/internal/service/order"
	paramsvc "github.com/gestorventas/deposito/internal/service/params"
	"github.com/gestorventas/deposito/internal/testutil"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
)

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type server struct {
	e       *echo.Echo
	seller  *entity.Seller
	client  *entity.Client
	product *entity.Product
}

func newServer(t *testing.T) *server {
	t.Helper()
	conns := testutil.DB(t)
	cfg := testutil.Config()

	settings := paramsvc.NewService(paramsvc.Params{
		Repository: paramsrepo.NewRepository(conns),
		Cache:      cache.NewNoop(),
		Config:     cfg,
		Logger:     zap.NewNop(),
	})
	svc, err := service.NewService(service.Params{
		Connections: conns,
		Orders:      orderrepo.NewRepository(conns),
		Clients:     clientrepo.NewRepository(conns),
		Catalog:     catalogrepo.NewRepository(conns),
		Settings:    settings,
		Cache:       cache.NewNoop(),
		Config:      cfg,
		Logger:      zap.NewNop(),
		Publisher:   &testutil.Publisher{},
	})
	require.NoError(t, err)

	e := echo.New()
	Register(e, NewHandler(svc))

	seller := testutil.Seller(t, conns, "ana@deposito.test", false)
	client := testutil.Client(t, conns, "Bar Central", "B12345678", seller.ID)
	category := testutil.Category(t, conns, "bebidas")
	return &server{
		e:       e,
		seller:  seller,
		client:  client,
		product: testutil.Product(t, conns, "Agua 1L", "0.80", category.ID),
	}
}

func (s *server) do(t *testing.T, method, path, body string, sellerID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(identity.HeaderSellerID, strconv.FormatInt(sellerID, 10))
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestOrderLineFlowOverHTTP(t *testing.T) {
	s := newServer(t)
	base := fmt.Sprintf("/clients/%d/orders", s.client.ID)

	rec := s.do(t, http.MethodPost, base, "", s.seller.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[dto.OrderResponse](t, rec).Data
	assert.Equal(t, 21, order.TaxPercent)
	assert.Equal(t, "0.00", order.GrossTotal)

	lines := fmt.Sprintf("%s/%d/lines", base, order.ID)
	rec = s.do(t, http.MethodPost, lines, fmt.Sprintf(`{"product_id":%d,"quantity":3,"price":"10.00"}`, s.product.ID), s.seller.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := decode[dto.LineResponse](t, rec).Data
	assert.Equal(t, "30.00", line.Subtotal)

	rec = s.do(t, http.MethodPatch, fmt.Sprintf("/lines/%d", line.ID), `{"quantity":4,"price":"10.0025"}`, s.seller.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, fmt.Sprintf("%s/%d", base, order.ID), "", s.seller.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	order = decode[dto.OrderResponse](t, rec).Data
	assert.Equal(t, "40.01", order.GrossTotal)
	assert.Equal(t, "8.40", order.TaxAmount)
	assert.Equal(t, "48.41", order.Total)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/lines/%d/stock", line.ID), `{"final_stock":6}`, s.seller.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decode[any](t, rec).Error.Kind)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/finalize", base, order.ID), "", s.seller.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, lines, fmt.Sprintf(`{"product_id":%d,"quantity":1}`, s.product.ID), s.seller.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", decode[any](t, rec).Error.Kind)
}

func TestOrdersAreSellerScoped(t *testing.T) {
	s := newServer(t)
	base := fmt.Sprintf("/clients/%d/orders", s.client.ID)

	rec := s.do(t, http.MethodPost, base, "", s.seller.ID+100)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", decode[any](t, rec).Error.Kind)

	req := httptest.NewRequest(http.MethodGet, base, nil)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "callers without identity are refused")

	rec = s.do(t, http.MethodGet, "/clients/abc/orders", "", s.seller.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsOverHTTP(t *testing.T) {
	s := newServer(t)
	base := fmt.Sprintf("/clients/%d/orders", s.client.ID)

	rec := s.do(t, http.MethodPost, base, "", s.seller.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[dto.OrderResponse](t, rec).Data
	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%d/lines", base, order.ID),
		fmt.Sprintf(`{"product_id":%d,"quantity":3,"price":"10.00"}`, s.product.ID), s.seller.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	stats := fmt.Sprintf("/clients/%d/stats", s.client.ID)
	rec = s.do(t, http.MethodGet, stats, "", s.seller.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	years := decode[[]dto.YearTotalResponse](t, rec).Data
	require.Len(t, years, 1)
	assert.Equal(t, time.Now().Year(), years[0].Year)
	assert.Equal(t, "30.00", years[0].Total)

	rec = s.do(t, http.MethodGet, stats, "", s.seller.ID+100)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission_denied", decode[any](t, rec).Error.Kind)

	rec = s.do(t, http.MethodGet, "/stats", "", s.seller.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[dto.SummaryResponse](t, rec).Data
	assert.Equal(t, 1, summary.OpenOrders)
	assert.Equal(t, 0, summary.FinalizedOrders)
	require.Len(t, summary.Years, 1)
	assert.Equal(t, "30.00", summary.Years[0].Total)

	rec = s.do(t, http.MethodGet, "/stats", "", s.seller.ID+100)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary = decode[dto.SummaryResponse](t, rec).Data
	assert.Zero(t, summary.OpenOrders)
	assert.Empty(t, summary.Years)
}
