package order

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

var repoTracer = otel.Tracer("github.com/gestorventas/deposito/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrLineNotFound is returned when an order line is missing.
	ErrLineNotFound = errors.New("order line not found")
)

// Repository encapsulates read/write access for orders and their lines.
type Repository struct {
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// WithTx returns a repository whose reads and writes go through tx.
func (r *Repository) WithTx(tx bun.Tx) *Repository {
	return &Repository{writer: tx, reader: tx}
}

// CreateOrder persists a new order using the write connection.
func (r *Repository) CreateOrder(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOrder", trace.WithAttributes(attribute.Int64("client.id", order.ClientID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// GetOrder fetches an order by primary key using the read replica when available.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return order, nil
}

// GetOrderForUpdate reads an order through the writer and, where the dialect
// allows it, locks the row until the surrounding transaction ends.
func (r *Repository) GetOrderForUpdate(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetOrderForUpdate", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	q := r.writer.NewSelect().Model(order).Where("id = ?", id)
	if database.SupportsRowLocks(r.writer) {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return order, nil
}

// UpdateOrder writes the mutable order columns.
func (r *Repository) UpdateOrder(ctx context.Context, order *entity.Order) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateOrder", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	order.UpdatedAt = time.Now().UTC()
	_, err := r.writer.NewUpdate().Model(order).
		Column("finalized", "gross_total", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		fail(span, err, "update failed")
	}
	return err
}

// DeleteOrder removes an order and every line attached to it.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("order_id = ?", id).Exec(ctx); err != nil {
		fail(span, err, "delete lines failed")
		return err
	}
	if _, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		fail(span, err, "delete failed")
		return err
	}
	return nil
}

// ListOrdersByClient returns the client's orders, newest first.
func (r *Repository) ListOrdersByClient(ctx context.Context, clientID int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListOrdersByClient", trace.WithAttributes(attribute.Int64("client.id", clientID)))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Where("client_id = ?", clientID).
		OrderExpr("id DESC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListOrdersWithClient returns every order with its client and the client's
// seller, oldest first.
func (r *Repository) ListOrdersWithClient(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListOrdersWithClient")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Client").
		Relation("Client.Seller").
		OrderExpr("o.id ASC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return orders, nil
}

// CountOrders counts orders, optionally restricted to one client.
func (r *Repository) CountOrders(ctx context.Context, clientID *int64) (int, error) {
	q := r.reader.NewSelect().Model((*entity.Order)(nil))
	if clientID != nil {
		q = q.Where("client_id = ?", *clientID)
	}
	return q.Count(ctx)
}

// CreateLine persists a new order line.
func (r *Repository) CreateLine(ctx context.Context, line *entity.OrderLine) error {
	if line == nil {
		return errors.New("nil order line")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateLine", trace.WithAttributes(attribute.Int64("order.id", line.OrderID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(line).Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// GetLine fetches an order line by primary key.
func (r *Repository) GetLine(ctx context.Context, id int64) (*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetLine", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	line := new(entity.OrderLine)
	err := r.reader.NewSelect().Model(line).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrLineNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return line, nil
}

// UpdateLine writes quantity, price and final stock of a line.
func (r *Repository) UpdateLine(ctx context.Context, line *entity.OrderLine) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateLine", trace.WithAttributes(attribute.Int64("line.id", line.ID)))
	defer span.End()

	line.UpdatedAt = time.Now().UTC()
	_, err := r.writer.NewUpdate().Model(line).
		Column("quantity", "price", "final_stock", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		fail(span, err, "update failed")
	}
	return err
}

// DeleteLine removes a single order line.
func (r *Repository) DeleteLine(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteLine", trace.WithAttributes(attribute.Int64("line.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		fail(span, err, "delete failed")
	}
	return err
}

// ListLines returns the lines of an order in insertion order.
func (r *Repository) ListLines(ctx context.Context, orderID int64) ([]*entity.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListLines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var lines []*entity.OrderLine
	err := r.reader.NewSelect().Model(&lines).
		Where("order_id = ?", orderID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return lines, nil
}

// OrderIDs returns the identifiers of every stored order.
func (r *Repository) OrderIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.reader.NewSelect().Model((*entity.Order)(nil)).
		Column("id").
		OrderExpr("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountLines counts every stored order line.
func (r *Repository) CountLines(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.OrderLine)(nil)).Count(ctx)
}

// DeleteAll removes every order line and order.
func (r *Repository) DeleteAll(ctx context.Context) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteAll")
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.OrderLine)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		fail(span, err, "delete lines failed")
		return err
	}
	if _, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		fail(span, err, "delete orders failed")
		return err
	}
	return nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
