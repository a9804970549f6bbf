package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/money"
	repo "github.com/gestorventas/deposito/internal/repository/catalog"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/gestorventas/deposito/service/catalog")

// Service manages categories and products.
type Service struct {
	repo   *repo.Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, logger: p.Logger}
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Description string
	Price       decimal.Decimal
	CategoryID  int64
}

// AddCategory creates a category. Names are unique after normalisation.
func (s *Service) AddCategory(ctx context.Context, name string) (*entity.Category, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.AddCategory")
	defer span.End()

	name = entity.NormalizeCategoryName(name)
	if name == "" {
		return nil, errorbank.InvalidArgument("category name is required")
	}

	existing, err := s.repo.CategoryByName(ctx, name)
	switch {
	case err == nil && existing.Active:
		return nil, errorbank.Conflict("category already exists", errorbank.WithDetail("name", name))
	case err == nil:
		existing.Active = true
		if err := s.repo.UpdateCategory(ctx, existing); err != nil {
			return nil, internal(span, "failed to reactivate category", err)
		}
		return existing, nil
	case !errors.Is(err, repo.ErrCategoryNotFound):
		return nil, internal(span, "failed to load category", err)
	}

	category := &entity.Category{Name: name, Active: true, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, internal(span, "failed to create category", err)
	}
	s.logger.Info("category created", zap.Int64("id", category.ID), zap.String("name", name))
	return category, nil
}

// ListCategories returns active categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.ListCategories")
	defer span.End()

	categories, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return nil, internal(span, "failed to list categories", err)
	}
	return categories, nil
}

// DeleteCategory hides a category. Its products stay but can no longer be
// added to orders.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.DeleteCategory", trace.WithAttributes(attribute.Int64("category.id", id)))
	defer span.End()

	category, err := s.repo.GetCategory(ctx, id)
	if errors.Is(err, repo.ErrCategoryNotFound) {
		return errorbank.NotFound("category not found")
	}
	if err != nil {
		return internal(span, "failed to load category", err)
	}
	if !category.Active {
		return nil
	}
	category.Active = false
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return internal(span, "failed to delete category", err)
	}
	return nil
}

// AddProduct creates an active product in an active category.
func (s *Service) AddProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.AddProduct")
	defer span.End()

	category, err := s.validateProduct(ctx, &in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &entity.Product{
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  category.ID,
		Category:    category,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, internal(span, "failed to create product", err)
	}
	return product, nil
}

// GetProduct returns a product, hidden or not.
func (s *Service) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, repo.ErrProductNotFound) {
		return nil, errorbank.NotFound("product not found")
	}
	if err != nil {
		return nil, internal(span, "failed to load product", err)
	}
	return product, nil
}

// ListProducts returns active products, optionally of one category.
func (s *Service) ListProducts(ctx context.Context, categoryID *int64) ([]*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.ListProducts")
	defer span.End()

	products, err := s.repo.ListProducts(ctx, repo.ProductFilter{CategoryID: categoryID})
	if err != nil {
		return nil, internal(span, "failed to list products", err)
	}
	return products, nil
}

// UpdateProduct overwrites description, base price and category. Existing
// order lines keep the price they were created with.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.UpdateProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	category, err := s.validateProduct(ctx, &in)
	if err != nil {
		return nil, err
	}

	product.Description = in.Description
	product.Price = in.Price
	product.CategoryID = category.ID
	product.Category = category
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, internal(span, "failed to update product", err)
	}
	return product, nil
}

// DeleteProduct hides a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.DeleteProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.Active {
		return nil
	}
	product.Active = false
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return internal(span, "failed to delete product", err)
	}
	return nil
}

func (s *Service) validateProduct(ctx context.Context, in *ProductInput) (*entity.Category, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, errorbank.InvalidArgument("description is required")
	}
	if in.Price.IsNegative() {
		return nil, errorbank.InvalidArgument("price must not be negative")
	}
	in.Price = money.Round(in.Price)

	category, err := s.repo.GetCategory(ctx, in.CategoryID)
	if errors.Is(err, repo.ErrCategoryNotFound) {
		return nil, errorbank.NotFound("category not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load category", errorbank.WithCause(err))
	}
	if !category.Active {
		return nil, errorbank.InvalidState("category is not active")
	}
	return category, nil
}

func internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
