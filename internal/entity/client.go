package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Seller owns a set of clients. Admin sellers act without ownership checks.
type Seller struct {
	bun.BaseModel `bun:"table:sellers,alias:seller"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull,unique"`
	Admin     bool      `bun:"admin,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// Client is a customer owned by exactly one seller.
type Client struct {
	bun.BaseModel `bun:"table:clients,alias:client"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	CIF       string    `bun:"cif,notnull,unique"`
	SellerID  int64     `bun:"seller_id,notnull"`
	Seller    *Seller   `bun:"rel:belongs-to,join:seller_id=id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
