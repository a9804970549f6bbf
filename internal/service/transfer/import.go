package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/money"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// Minimum column counts per dataset. The first column is the exported id and
// is not read back.
const (
	categoryColumns = 2
	productColumns  = 4
	clientColumns   = 4
)

// ImportCategories replaces every category with the rows of src.
func (s *Service) ImportCategories(ctx context.Context, src io.Reader) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ImportCategories")
	defer span.End()

	records, err := readRecords(src, categoryColumns)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	seen := make(map[string]int, len(records))
	categories := make([]*entity.Category, 0, len(records))
	for _, rec := range records {
		name := entity.NormalizeCategoryName(rec.field(1))
		if name == "" {
			return 0, errorbank.Validation(rec.line, "category name is empty")
		}
		if first, dup := seen[name]; dup {
			return 0, errorbank.Validation(rec.line, fmt.Sprintf("category %q repeats line %d", name, first))
		}
		seen[name] = rec.line
		categories = append(categories, &entity.Category{Name: name, Active: true, CreatedAt: now})
	}

	err = s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		products, err := scope.catalog.CountProducts(ctx)
		if err != nil {
			return internal(span, "failed to count products", err)
		}
		if products > 0 {
			return errorbank.InvalidState("categories are still referenced by products",
				errorbank.WithDetail("products", products))
		}
		if err := scope.catalog.ReplaceCategories(ctx, categories); err != nil {
			return internal(span, "failed to replace categories", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.committed(ctx, KindCategories, len(categories))
	return len(categories), nil
}

// ImportProducts replaces every product with the rows of src. Referenced
// categories must exist and be active.
func (s *Service) ImportProducts(ctx context.Context, src io.Reader) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ImportProducts")
	defer span.End()

	records, err := readRecords(src, productColumns)
	if err != nil {
		return 0, err
	}

	var products []*entity.Product
	err = s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		products, err = validateProducts(ctx, scope.catalog, records)
		if err != nil {
			return err
		}

		lines, err := scope.orders.CountLines(ctx)
		if err != nil {
			return internal(span, "failed to count order lines", err)
		}
		if lines > 0 {
			return errorbank.InvalidState("products are still referenced by order lines",
				errorbank.WithDetail("lines", lines))
		}
		if err := scope.catalog.ReplaceProducts(ctx, products); err != nil {
			return internal(span, "failed to replace products", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("records", len(products)))
	s.committed(ctx, KindProducts, len(products))
	return len(products), nil
}

func validateProducts(ctx context.Context, catalog *catalogrepo.Repository, records []record) ([]*entity.Product, error) {
	now := time.Now().UTC()
	categories := make(map[string]*entity.Category)
	seen := make(map[string]int, len(records))
	products := make([]*entity.Product, 0, len(records))

	for _, rec := range records {
		description := rec.field(1)
		if description == "" {
			return nil, errorbank.Validation(rec.line, "product description is empty")
		}
		key := strings.ToUpper(description)
		if first, dup := seen[key]; dup {
			return nil, errorbank.Validation(rec.line, fmt.Sprintf("product %q repeats line %d", description, first))
		}
		seen[key] = rec.line

		price, err := money.Parse(rec.field(2))
		if err != nil {
			return nil, errorbank.Validation(rec.line, err.Error())
		}
		if price.IsNegative() {
			return nil, errorbank.Validation(rec.line, "price must not be negative")
		}

		name := entity.NormalizeCategoryName(rec.field(3))
		if name == "" {
			return nil, errorbank.Validation(rec.line, "category is empty")
		}
		category, ok := categories[name]
		if !ok {
			category, err = catalog.CategoryByName(ctx, name)
			if errors.Is(err, catalogrepo.ErrCategoryNotFound) {
				return nil, errorbank.Validation(rec.line, fmt.Sprintf("category %q does not exist", name))
			}
			if err != nil {
				return nil, errorbank.Internal("failed to load category", errorbank.WithCause(err))
			}
			categories[name] = category
		}
		if !category.Active {
			return nil, errorbank.Validation(rec.line, fmt.Sprintf("category %q is not active", name))
		}

		products = append(products, &entity.Product{
			Description: description,
			Price:       money.Round(price),
			CategoryID:  category.ID,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return products, nil
}

// ImportClients replaces every client with the rows of src. Owning sellers
// are resolved by email.
func (s *Service) ImportClients(ctx context.Context, src io.Reader) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "TransferService.ImportClients")
	defer span.End()

	records, err := readRecords(src, clientColumns)
	if err != nil {
		return 0, err
	}

	var clients []*entity.Client
	err = s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		clients, err = validateClients(ctx, scope.clients, records)
		if err != nil {
			return err
		}

		orders, err := scope.orders.CountOrders(ctx, nil)
		if err != nil {
			return internal(span, "failed to count orders", err)
		}
		if orders > 0 {
			return errorbank.InvalidState("clients are still referenced by orders",
				errorbank.WithDetail("orders", orders))
		}
		if err := scope.clients.ReplaceClients(ctx, clients); err != nil {
			return internal(span, "failed to replace clients", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.committed(ctx, KindClients, len(clients))
	return len(clients), nil
}

func validateClients(ctx context.Context, repo *clientrepo.Repository, records []record) ([]*entity.Client, error) {
	now := time.Now().UTC()
	sellers := make(map[string]*entity.Seller)
	seen := make(map[string]int, len(records))
	clients := make([]*entity.Client, 0, len(records))

	for _, rec := range records {
		name := rec.field(1)
		if name == "" {
			return nil, errorbank.Validation(rec.line, "client name is empty")
		}
		cif := strings.ToUpper(rec.field(2))
		if cif == "" {
			return nil, errorbank.Validation(rec.line, "CIF is empty")
		}
		if first, dup := seen[cif]; dup {
			return nil, errorbank.Validation(rec.line, fmt.Sprintf("CIF %q repeats line %d", cif, first))
		}
		seen[cif] = rec.line

		email := rec.field(3)
		if email == "" {
			return nil, errorbank.Validation(rec.line, "seller email is empty")
		}
		seller, ok := sellers[email]
		if !ok {
			var err error
			seller, err = repo.SellerByEmail(ctx, email)
			if errors.Is(err, clientrepo.ErrSellerNotFound) {
				return nil, errorbank.Validation(rec.line, fmt.Sprintf("seller %q does not exist", email))
			}
			if err != nil {
				return nil, errorbank.Internal("failed to load seller", errorbank.WithCause(err))
			}
			sellers[email] = seller
		}

		clients = append(clients, &entity.Client{
			Name:      name,
			CIF:       cif,
			SellerID:  seller.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return clients, nil
}
