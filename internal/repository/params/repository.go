package params

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/internal/entity"
)

// ErrNotFound is returned when the parameters row has never been written.
var ErrNotFound = errors.New("global parameters not found")

// Repository reads and writes the single global parameters row.
type Repository struct {
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{writer: conns.Writer, reader: conns.Reader}
}

// WithTx returns a repository whose reads and writes go through tx.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{writer: tx, reader: tx}
}

// Get loads the parameters row.
func (r *Repository) Get(ctx context.Context) (*entity.GlobalParams, error) {
	p := new(entity.GlobalParams)
	err := r.reader.NewSelect().Model(p).Where("id = ?", entity.GlobalParamsID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Save inserts or overwrites the parameters row.
func (r *Repository) Save(ctx context.Context, p *entity.GlobalParams) error {
	p.ID = entity.GlobalParamsID
	p.UpdatedAt = time.Now().UTC()

	exists, err := r.writer.NewSelect().Model((*entity.GlobalParams)(nil)).Where("id = ?", p.ID).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		_, err = r.writer.NewInsert().Model(p).Exec(ctx)
		return err
	}
	_, err = r.writer.NewUpdate().Model(p).
		Column("tax_percent", "discount_percent", "max_group", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}
