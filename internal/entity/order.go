package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/gestorventas/deposito/internal/money"
)

// Order is a client's purchase aggregate. GrossTotal is the running sum of
// its lines' rounded subtotals and is only ever adjusted incrementally.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              int64           `bun:",pk,autoincrement"`
	Date            time.Time       `bun:"date,notnull"`
	ClientID        int64           `bun:"client_id,notnull"`
	Client          *Client         `bun:"rel:belongs-to,join:client_id=id"`
	Finalized       bool            `bun:"finalized,notnull"`
	DiscountPercent int             `bun:"discount_percent,notnull"`
	TaxPercent      int             `bun:"tax_percent,notnull"`
	GrossTotal      decimal.Decimal `bun:"gross_total,type:decimal(14,2),notnull"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero"`
}

// Totals derives the discounted base, tax and final amount.
func (o *Order) Totals() money.Totals {
	return money.Breakdown(o.GrossTotal, o.DiscountPercent, o.TaxPercent)
}

// OrderLine is one product entry within an order.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:line"`

	ID         int64           `bun:",pk,autoincrement"`
	OrderID    int64           `bun:"order_id,notnull"`
	ProductID  int64           `bun:"product_id,notnull"`
	Quantity   int             `bun:"quantity,notnull"`
	Price      decimal.Decimal `bun:"price,type:decimal(14,4),notnull"`
	GroupTag   *int            `bun:"group_tag"`
	FinalStock *int            `bun:"final_stock"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero"`
}

// Subtotal is round(price × quantity).
func (l *OrderLine) Subtotal() decimal.Decimal {
	return money.Subtotal(l.Price, l.Quantity)
}
