package catalog

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

var repoTracer = otel.Tracer("github.com/gestorventas/deposito/repository/catalog")

var (
	// ErrCategoryNotFound is returned when a category is missing.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound is returned when a product is missing.
	ErrProductNotFound = errors.New("product not found")
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID    *int64
	IncludeHidden bool
}

// Repository encapsulates read/write access for categories and products.
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

// GetCategory fetches a category by primary key.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*entity.Category, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	category := new(entity.Category)
	err := r.reader.NewSelect().Model(category).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return category, nil
}

// CategoryByName looks a category up by its normalised name.
func (r *Repository) CategoryByName(ctx context.Context, name string) (*entity.Category, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.CategoryByName", trace.WithAttributes(attribute.String("category.name", name)))
	defer span.End()

	category := new(entity.Category)
	err := r.reader.NewSelect().Model(category).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return category, nil
}

// CreateCategory persists a new category.
func (r *Repository) CreateCategory(ctx context.Context, category *entity.Category) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.CreateCategory", trace.WithAttributes(attribute.String("category.name", category.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(category).Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// UpdateCategory writes name and active flag.
func (r *Repository) UpdateCategory(ctx context.Context, category *entity.Category) error {
	_, err := r.writer.NewUpdate().Model(category).Column("name", "active").WherePK().Exec(ctx)
	return err
}

// ListCategories returns categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context, activeOnly bool) ([]*entity.Category, error) {
	var categories []*entity.Category
	q := r.reader.NewSelect().Model(&categories).OrderExpr("name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetProduct fetches a product with its category.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).
		Relation("Category").
		Where("product.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return product, nil
}

// CreateProduct persists a new product.
func (r *Repository) CreateProduct(ctx context.Context, product *entity.Product) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.CreateProduct")
	defer span.End()

	_, err := r.writer.NewInsert().Model(product).Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
	}
	return err
}

// UpdateProduct writes the mutable product columns.
func (r *Repository) UpdateProduct(ctx context.Context, product *entity.Product) error {
	product.UpdatedAt = time.Now().UTC()
	_, err := r.writer.NewUpdate().Model(product).
		Column("description", "price", "category_id", "active", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// ListProducts returns products with their category, ordered by id.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ListProducts")
	defer span.End()

	var products []*entity.Product
	q := r.reader.NewSelect().Model(&products).Relation("Category").OrderExpr("product.id ASC")
	if !filter.IncludeHidden {
		q = q.Where("product.active = ?", true)
	}
	if filter.CategoryID != nil {
		q = q.Where("product.category_id = ?", *filter.CategoryID)
	}
	if err := q.Scan(ctx); err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return products, nil
}

// CountProducts counts every stored product, active or not.
func (r *Repository) CountProducts(ctx context.Context) (int, error) {
	return r.reader.NewSelect().Model((*entity.Product)(nil)).Count(ctx)
}

// ReplaceCategories deletes every category and inserts the given set.
func (r *Repository) ReplaceCategories(ctx context.Context, categories []*entity.Category) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ReplaceCategories", trace.WithAttributes(attribute.Int("rows", len(categories))))
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.Category)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		fail(span, err, "delete failed")
		return err
	}
	if len(categories) == 0 {
		return nil
	}
	if _, err := r.writer.NewInsert().Model(&categories).Exec(ctx); err != nil {
		fail(span, err, "insert failed")
		return err
	}
	return nil
}

// ReplaceProducts deletes every product and inserts the given set.
func (r *Repository) ReplaceProducts(ctx context.Context, products []*entity.Product) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ReplaceProducts", trace.WithAttributes(attribute.Int("rows", len(products))))
	defer span.End()

	if _, err := r.writer.NewDelete().Model((*entity.Product)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		fail(span, err, "delete failed")
		return err
	}
	if len(products) == 0 {
		return nil
	}
	if _, err := r.writer.NewInsert().Model(&products).Exec(ctx); err != nil {
		fail(span, err, "insert failed")
		return err
	}
	return nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
