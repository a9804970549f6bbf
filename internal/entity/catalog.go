package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Category groups products. Name is stored trimmed and upper-cased.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull,unique"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// Product is a catalog entry. Inactive products are soft-deleted.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:product"`

	ID          int64           `bun:",pk,autoincrement"`
	Description string          `bun:"description,notnull"`
	Price       decimal.Decimal `bun:"price,type:decimal(12,2),notnull"`
	CategoryID  int64           `bun:"category_id,notnull"`
	Category    *Category       `bun:"rel:belongs-to,join:category_id=id"`
	Active      bool            `bun:"active,notnull"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero"`
}

// NormalizeCategoryName is the canonical stored form of a category name.
func NormalizeCategoryName(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
