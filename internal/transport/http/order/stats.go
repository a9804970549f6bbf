package order

import (
	"github.com/labstack/echo/v4"

	"github.com/gestorventas/deposito/internal/dto"
	"github.com/gestorventas/deposito/internal/money"
	"github.com/gestorventas/deposito/internal/presentation/http/response"
	repo "github.com/gestorventas/deposito/internal/repository/order"
	"github.com/gestorventas/deposito/internal/transport/http/identity"
)

func (h *Handler) clientStats(c echo.Context) error {
	b := response.New(c)
	clientID, err := response.PathID(c, "clientID")
	if err != nil {
		return b.WithError(err).Build()
	}
	totals, err := h.svc.ClientStats(c.Request().Context(), identity.FromContext(c).Scope(), clientID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toYearDTOs(totals)).Build()
}

func (h *Handler) summary(c echo.Context) error {
	b := response.New(c)
	summary, err := h.svc.SellerSummary(c.Request().Context(), identity.FromContext(c).Scope())
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SummaryResponse{
		OpenOrders:      summary.Open,
		FinalizedOrders: summary.Finalized,
		Years:           toYearDTOs(summary.Years),
	}).Build()
}

func toYearDTOs(totals []repo.YearTotal) []dto.YearTotalResponse {
	out := make([]dto.YearTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, dto.YearTotalResponse{Year: t.Year, Total: money.Format(t.Total)})
	}
	return out
}
