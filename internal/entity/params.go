package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// GlobalParamsID is the primary key of the single parameters row.
const GlobalParamsID int64 = 1

// GlobalParams holds the tax, discount and group bound stamped on new orders
// and lines. Nil fields fall back to configured defaults.
type GlobalParams struct {
	bun.BaseModel `bun:"table:global_params"`

	ID              int64     `bun:",pk"`
	TaxPercent      *int      `bun:"tax_percent"`
	DiscountPercent *int      `bun:"discount_percent"`
	MaxGroup        *int      `bun:"max_group"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero"`
}
