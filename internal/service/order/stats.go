package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestorventas/deposito/internal/money"
	repo "github.com/gestorventas/deposito/internal/repository/order"
)

// Summary is a seller's order activity: open and finalized order counts plus
// the gross amount ordered per year. Administrative callers get the figures
// for every seller.
type Summary struct {
	Open      int
	Finalized int
	Years     []repo.YearTotal
}

// ClientStats returns the gross amount a client ordered per calendar year.
func (s *Service) ClientStats(ctx context.Context, actingSeller *int64, clientID int64) ([]repo.YearTotal, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ClientStats", trace.WithAttributes(attribute.Int64("client.id", clientID)))
	defer span.End()

	if err := requireClient(ctx, s.clients, actingSeller, clientID); err != nil {
		return nil, err
	}
	totals, err := s.orders.YearlyTotals(ctx, repo.StatsFilter{ClientID: &clientID})
	if err != nil {
		return nil, internal(span, "failed to compute client statistics", err)
	}
	return roundTotals(totals), nil
}

// SellerSummary returns the acting seller's order activity.
func (s *Service) SellerSummary(ctx context.Context, actingSeller *int64) (Summary, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SellerSummary")
	defer span.End()

	filter := repo.StatsFilter{SellerID: actingSeller}
	counts, err := s.orders.CountByState(ctx, filter)
	if err != nil {
		return Summary{}, internal(span, "failed to count orders", err)
	}
	totals, err := s.orders.YearlyTotals(ctx, filter)
	if err != nil {
		return Summary{}, internal(span, "failed to compute seller statistics", err)
	}
	return Summary{
		Open:      counts.Open,
		Finalized: counts.Finalized,
		Years:     roundTotals(totals),
	}, nil
}

func roundTotals(totals []repo.YearTotal) []repo.YearTotal {
	for i := range totals {
		totals[i].Total = money.Round(totals[i].Total)
	}
	return totals
}
