package client

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	service "github.com/gestorventas/deposito/internal/service/client"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Handler exposes client endpoints scoped to the acting seller.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a client Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/clients", identity.Middleware())
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:clientID", h.get)
	g.PUT("/:clientID", h.update)
	g.DELETE("/:clientID", h.delete)
}

type clientPayload struct {
	Name     string `json:"name"`
	CIF      string `json:"cif"`
	SellerID int64  `json:"seller_id"`
}

func (p clientPayload) input() service.Input {
	return service.Input{Name: p.Name, CIF: p.CIF, SellerID: p.SellerID}
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	clients, err := h.svc.ListClients(c.Request().Context(), identity.FromContext(c).Scope())
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.ClientResponse, 0, len(clients))
	for _, cl := range clients {
		out = append(out, toDTO(cl))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}
	client, err := h.svc.AddClient(c.Request().Context(), identity.FromContext(c).Scope(), payload.input())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(client)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}
	client, err := h.svc.GetClient(c.Request().Context(), identity.FromContext(c).Scope(), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(client)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}
	client, err := h.svc.UpdateClient(c.Request().Context(), identity.FromContext(c).Scope(), id, payload.input())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(client)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	id, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}
	if err := h.svc.DeleteClient(c.Request().Context(), identity.FromContext(c).Scope(), id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": id}).Build()
}

func toDTO(c *entity.Client) dto.ClientResponse {
	return dto.ClientResponse{ID: c.ID, Name: c.Name, CIF: c.CIF, SellerID: c.SellerID}
}
