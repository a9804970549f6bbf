package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/money"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	service "github.com/gestorventas/deposito/internal/service/order"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/gestorventas/deposito/transport/http/order")

// Handler exposes order and order line endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	orders := e.Group("/clients/:clientID/orders", identity.Middleware())
	orders.GET("", h.list)
	orders.POST("", h.create)
	orders.GET("/:orderID", h.get)
	orders.POST("/:orderID/finalize", h.finalize)
	orders.DELETE("/:orderID", h.delete)
	orders.GET("/:orderID/lines", h.listLines)
	orders.POST("/:orderID/lines", h.addLine)
	orders.DELETE("/:orderID/lines/:lineID", h.deleteLine)

	lines := e.Group("/lines", identity.Middleware())
	lines.GET("/:lineID", h.getLine)
	lines.PATCH("/:lineID", h.updateLine)
	lines.PUT("/:lineID/stock", h.setFinalStock)

	e.GET("/clients/:clientID/stats", h.clientStats, identity.Middleware())
	e.GET("/stats", h.summary, identity.Middleware())
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)
	clientID, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int64("client.id", clientID)))
	defer span.End()

	order, err := h.svc.CreateOrder(ctx, identity.FromContext(c).Scope(), clientID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toOrderDTO(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	clientID, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}

	orders, err := h.svc.ListOrders(c.Request().Context(), identity.FromContext(c).Scope(), clientID)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.get", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order, err := h.svc.GetOrder(ctx, identity.FromContext(c).Scope(), clientID, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toOrderDTO(order)).Build()
}

func (h *Handler) finalize(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	order, err := h.svc.FinalizeOrder(c.Request().Context(), identity.FromContext(c).Scope(), clientID, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toOrderDTO(order)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	if err := h.svc.DeleteOrder(c.Request().Context(), identity.FromContext(c).Scope(), clientID, orderID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": orderID}).Build()
}

func (h *Handler) listLines(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	lines, err := h.svc.ListLines(c.Request().Context(), identity.FromContext(c).Scope(), clientID, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}
	out := make([]dto.LineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, toLineDTO(l))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) addLine(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		ProductID int64            `json:"product_id"`
		Quantity  int              `json:"quantity"`
		Price     *decimal.Decimal `json:"price"`
		Group     *int             `json:"group"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.addLine", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", payload.ProductID),
	))
	defer span.End()

	line, err := h.svc.AddLine(ctx, service.AddLineInput{
		ActingSeller: identity.FromContext(c).Scope(),
		ClientID:     clientID,
		OrderID:      orderID,
		ProductID:    payload.ProductID,
		Quantity:     payload.Quantity,
		Price:        payload.Price,
		GroupTag:     payload.Group,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toLineDTO(line)).Build()
}

func (h *Handler) deleteLine(c echo.Context) error {
	b := response.New(c)
	clientID, orderID, err := orderPath(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	lineID, err := response.PathID(c, "lineID")
	if err != nil {
		return b.WithError(err).Build()
	}

	if err := h.svc.DeleteLine(c.Request().Context(), identity.FromContext(c).Scope(), clientID, orderID, lineID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]int64{"deleted": lineID}).Build()
}

func (h *Handler) getLine(c echo.Context) error {
	b := response.New(c)
	lineID, err := response.PathID(c, "lineID")
	if err != nil {
		return b.WithError(err).Build()
	}

	line, err := h.svc.GetLine(c.Request().Context(), identity.FromContext(c).Scope(), lineID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toLineDTO(line)).Build()
}

func (h *Handler) updateLine(c echo.Context) error {
	b := response.New(c)
	lineID, err := response.PathID(c, "lineID")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Quantity *int             `json:"quantity"`
		Price    *decimal.Decimal `json:"price"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	line, err := h.svc.UpdateLine(ctx, lineID, payload.Quantity, payload.Price, identity.FromContext(c).Scope())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toLineDTO(line)).Build()
}

func (h *Handler) setFinalStock(c echo.Context) error {
	b := response.New(c)
	lineID, err := response.PathID(c, "lineID")
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		FinalStock *int `json:"final_stock"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.InvalidArgument("invalid payload", errorbank.WithCause(err))).Build()
	}

	line, err := h.svc.SetFinalStock(c.Request().Context(), lineID, payload.FinalStock, identity.FromContext(c).Scope())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toLineDTO(line)).Build()
}

func orderPath(c echo.Context) (clientID, orderID int64, err error) {
	if clientID, err = response.PathID(c, "clientID"); err != nil {
		return 0, 0, err
	}
	if orderID, err = response.PathID(c, "orderID"); err != nil {
		return 0, 0, err
	}
	return clientID, orderID, nil
}

func toOrderDTO(order *entity.Order) dto.OrderResponse {
	totals := order.Totals()
	return dto.OrderResponse{
		ID:              order.ID,
		Date:            order.Date,
		ClientID:        order.ClientID,
		Finalized:       order.Finalized,
		DiscountPercent: order.DiscountPercent,
		TaxPercent:      order.TaxPercent,
		GrossTotal:      money.Format(totals.Gross),
		Base:            money.Format(totals.Base),
		TaxAmount:       money.Format(totals.Tax),
		Total:           money.Format(totals.Total),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func toLineDTO(line *entity.OrderLine) dto.LineResponse {
	return dto.LineResponse{
		ID:         line.ID,
		OrderID:    line.OrderID,
		ProductID:  line.ProductID,
		Quantity:   line.Quantity,
		Price:      line.Price.String(),
		Subtotal:   money.Format(line.Subtotal()),
		GroupTag:   line.GroupTag,
		FinalStock: line.FinalStock,
	}
}
