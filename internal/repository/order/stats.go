package order

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gestorventas/deposito/internal/entity"
)

// YearTotal is the gross amount ordered in one calendar year.
type YearTotal struct {
	Year  int             `bun:"year"`
	Total decimal.Decimal `bun:"total"`
}

// StatsFilter narrows statistics to one seller's clients and/or one client.
// The zero value covers every order.
type StatsFilter struct {
	SellerID *int64
	ClientID *int64
}

// OrderCounts splits a seller's orders by state.
type OrderCounts struct {
	Open      int
	Finalized int
}

// YearlyTotals sums order gross totals per calendar year, oldest first. A
// gross total is the sum of its lines' rounded subtotals, so this equals the
// per-year sum of line subtotals.
func (r *Repository) YearlyTotals(ctx context.Context, filter StatsFilter) ([]YearTotal, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.YearlyTotals")
	defer span.End()

	year := yearExpr(r.reader)
	q := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr(year + " AS year").
		ColumnExpr("SUM(o.gross_total) AS total")
	q = applyStatsFilter(q, filter)

	var totals []YearTotal
	err := q.GroupExpr(year).OrderExpr(year+" ASC").Scan(ctx, &totals)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("years", len(totals)))
	return totals, nil
}

// CountByState counts open and finalized orders matching filter.
func (r *Repository) CountByState(ctx context.Context, filter StatsFilter) (OrderCounts, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CountByState")
	defer span.End()

	var counts OrderCounts
	for _, state := range []struct {
		finalized bool
		dst       *int
	}{
		{false, &counts.Open},
		{true, &counts.Finalized},
	} {
		q := r.reader.NewSelect().Model((*entity.Order)(nil)).Where("o.finalized = ?", state.finalized)
		n, err := applyStatsFilter(q, filter).Count(ctx)
		if err != nil {
			fail(span, err, "count failed")
			return OrderCounts{}, err
		}
		*state.dst = n
	}
	return counts, nil
}

func applyStatsFilter(q *bun.SelectQuery, filter StatsFilter) *bun.SelectQuery {
	if filter.SellerID != nil {
		q = q.Join("JOIN clients AS c ON c.id = o.client_id").Where("c.seller_id = ?", *filter.SellerID)
	}
	if filter.ClientID != nil {
		q = q.Where("o.client_id = ?", *filter.ClientID)
	}
	return q
}

func yearExpr(db bun.IDB) string {
	switch db.Dialect().Name() {
	case dialect.SQLite:
		return "CAST(strftime('%Y', o.date) AS INTEGER)"
	case dialect.MySQL:
		return "YEAR(o.date)"
	default:
		return "CAST(EXTRACT(YEAR FROM o.date) AS INTEGER)"
	}
}
