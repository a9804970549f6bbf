package client

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/internal/entity"
)

var repoTracer = otel.Tracer("github.com/gestorventas/deposito/repository/client")

var (
	// ErrNotFound is returned when a client is missing.
	ErrNotFound = errors.New("client not found")
	// ErrSellerNotFound is returned when a seller is missing.
	ErrSellerNotFound = errors.New("seller not found")
)

// Repository encapsulates read/write access for clients and sellers.
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

// GetClient fetches a client by primary key.
func (r *Repository) GetClient(ctx context.Context, id int64) (*entity.Client, error) {
	ctx, span := repoTracer.Start(ctx, "ClientRepository.GetClient", trace.WithAttributes(attribute.Int64("client.id", id)))
	defer span.End()

	c := new(entity.Client)
	err := r.reader.NewSelect().Model(c).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return c, nil
}

// CreateClient persists a new client.
func (r *Repository) CreateClient(ctx context.Context, c *entity.Client) error {
	ctx, span := repoTracer.Start(ctx, "ClientRepository.CreateClient", trace.WithAttributes(attribute.Int64("seller.id", c.SellerID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(c).Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// UpdateClient writes name, CIF and owning seller.
func (r *Repository) UpdateClient(ctx context.Context, c *entity.Client) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := r.writer.NewUpdate().Model(c).
		Column("name", "cif", "seller_id", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteClient removes a client.
func (r *Repository) DeleteClient(ctx context.Context, id int64) error {
	_, err := r.writer.NewDelete().Model((*entity.Client)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// ListClients returns clients, restricted to one seller when sellerID is set.
func (r *Repository) ListClients(ctx context.Context, sellerID *int64) ([]*entity.Client, error) {
	var clients []*entity.Client
	q := r.reader.NewSelect().Model(&clients).OrderExpr("client.id ASC")
	if sellerID != nil {
		q = q.Where("client.seller_id = ?", *sellerID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return clients, nil
}

// ListClientsWithSeller returns every client with its seller loaded.
func (r *Repository) ListClientsWithSeller(ctx context.Context) ([]*entity.Client, error) {
	ctx, span := repoTracer.Start(ctx, "ClientRepository.ListClientsWithSeller")
	defer span.End()

	var clients []*entity.Client
	err := r.reader.NewSelect().Model(&clients).
		Relation("Seller").
		OrderExpr("client.id ASC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return clients, nil
}

// ExistsCIF reports whether another client already uses cif.
func (r *Repository) ExistsCIF(ctx context.Context, cif string, excludeID int64) (bool, error) {
	return r.reader.NewSelect().Model((*entity.Client)(nil)).
		Where("cif = ?", cif).
		Where("id <> ?", excludeID).
		Exists(ctx)
}

// CountClients counts every stored client.
func (r *Repository) CountClients(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Client)(nil)).Count(ctx)
}

// ReplaceClients deletes every client and inserts the given set.
func (r *Repository) ReplaceClients(ctx context.Context, clients []*entity.Client) error {
	ctx, span := repoTracer.Start(ctx, "ClientRepository.ReplaceClients", trace.WithAttributes(attribute.Int("rows", len(clients))))
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.Client)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		fail(span, err, "delete failed")
		return err
	}
	if len(clients) == 0 {
		return nil
	}
	if _, err := r.writer.NewInsert().Model(&clients).Exec(ctx); err != nil {
		fail(span, err, "insert failed")
		return err
	}
	return nil
}

// GetSeller fetches a seller by primary key.
func (r *Repository) GetSeller(ctx context.Context, id int64) (*entity.Seller, error) {
	s := new(entity.Seller)
	err := r.reader.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SellerByEmail looks a seller up by login email.
func (r *Repository) SellerByEmail(ctx context.Context, email string) (*entity.Seller, error) {
	ctx, span := repoTracer.Start(ctx, "ClientRepository.SellerByEmail")
	defer span.End()

	s := new(entity.Seller)
	err := r.reader.NewSelect().Model(s).Where("email = ?", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSellerNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return s, nil
}

// CreateSeller persists a seller. Seller management lives upstream; this
// exists for seeding.
func (r *Repository) CreateSeller(ctx context.Context, s *entity.Seller) error {
	_, err := r.writer.NewInsert().Model(s).Exec(ctx)
	return err
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
