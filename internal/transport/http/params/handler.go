package params

import (
	"github.com/labstack/echo/v4"

	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	service "github.com/gestorventas/deposito/internal/service/params"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Handler exposes the global parameters.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a params Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/config/params", identity.Middleware())
	g.GET("", h.get)
	g.PUT("", h.update, identity.RequireAdmin)
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	v, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(v)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	var payload struct {
		TaxPercent      *int `json:"tax_percent"`
		DiscountPercent *int `json:"discount_percent"`
		MaxGroup        *int `json:"max_group"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}

	v, err := h.svc.Update(c.Request().Context(), payload.TaxPercent, payload.DiscountPercent, payload.MaxGroup)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(v)).Build()
}

func toDTO(v service.Values) dto.ParamsResponse {
	return dto.ParamsResponse{
		TaxPercent:      v.TaxPercent,
		DiscountPercent: v.DiscountPercent,
		MaxGroup:        v.MaxGroup,
	}
}
