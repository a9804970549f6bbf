package seeder

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/entity"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	paramsrepo "github.com/gestorventas/deposito/internal/repository/params"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups. Every step is
// idempotent: rows are looked up by their natural key before inserting.
type Seeder struct {
	catalog  *catalogrepo.Repository
	clients  *clientrepo.Repository
	params   *paramsrepo.Repository
	defaults config.Ledger
	logger   *zap.Logger
}

// Params defines dependencies for constructing Seeder.
type Params struct {
	fx.In

	Catalog *catalogrepo.Repository
	Clients *clientrepo.Repository
	Params  *paramsrepo.Repository
	Config  config.Config
	Logger  *zap.Logger
}

// New constructs a Seeder backed by the repositories.
func New(p Params) *Seeder {
	return &Seeder{
		catalog:  p.Catalog,
		clients:  p.Clients,
		params:   p.Params,
		defaults: p.Config.Ledger,
		logger:   p.Logger,
	}
}

// All runs every seeder in dependency order.
func (s *Seeder) All(ctx context.Context) error {
	steps := []func(context.Context) error{s.GlobalParams, s.Sellers, s.Catalog}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GlobalParams stores the configured ledger defaults when no row exists.
func (s *Seeder) GlobalParams(ctx context.Context) error {
	if _, err := s.params.Get(ctx); err == nil {
		return nil
	} else if !errors.Is(err, paramsrepo.ErrNotFound) {
		return err
	}

	tax, discount, maxGroup := s.defaults.DefaultTaxPercent, s.defaults.DefaultDiscountPercent, s.defaults.DefaultMaxGroup
	if err := s.params.Save(ctx, &entity.GlobalParams{
		TaxPercent:      &tax,
		DiscountPercent: &discount,
		MaxGroup:        &maxGroup,
	}); err != nil {
		return err
	}
	s.log("seeded global parameters", 1)
	return nil
}

// Sellers seeds one admin and one regular seller.
func (s *Seeder) Sellers(ctx context.Context) error {
	samples := []entity.Seller{
		{Name: "Administrador", Email: "admin@deposito.local", Admin: true},
		{Name: "Vendedor", Email: "vendedor@deposito.local"},
	}

	created := 0
	for _, sample := range samples {
		seller := sample
		_, err := s.clients.SellerByEmail(ctx, seller.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, clientrepo.ErrSellerNotFound) {
			return err
		}
		if err := s.clients.CreateSeller(ctx, &seller); err != nil {
			return err
		}
		created++
	}
	s.log("seeded sellers", created)
	return nil
}

// Catalog seeds a few categories with products.
func (s *Seeder) Catalog(ctx context.Context) error {
	samples := map[string][]struct {
		description string
		price       string
	}{
		"BEBIDAS": {
			{"Agua mineral 1,5L", "0.80"},
			{"Zumo de naranja 1L", "1.95"},
		},
		"LIMPIEZA": {
			{"Detergente 3L", "6.40"},
		},
	}

	created := 0
	for name, products := range samples {
		category, err := s.catalog.CategoryByName(ctx, name)
		if errors.Is(err, catalogrepo.ErrCategoryNotFound) {
			category = &entity.Category{Name: name, Active: true}
			if err := s.catalog.CreateCategory(ctx, category); err != nil {
				return err
			}
			for _, p := range products {
				product := &entity.Product{
					Description: p.description,
					Price:       decimal.RequireFromString(p.price),
					CategoryID:  category.ID,
					Active:      true,
				}
				if err := s.catalog.CreateProduct(ctx, product); err != nil {
					return err
				}
				created++
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	s.log("seeded products", created)
	return nil
}

func (s *Seeder) log(msg string, count int) {
	if s.logger != nil {
		s.logger.Info(msg, zap.Int("count", count))
	}
}
