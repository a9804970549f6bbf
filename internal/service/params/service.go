package params

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gestorventas/deposito/internal/cache"
	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/entity"
	repo "github.com/gestorventas/deposito/internal/repository/params"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/gestorventas/deposito/service/params")

// Values are the effective global parameters after defaults are applied.
type Values struct {
	TaxPercent      int `json:"tax_percent"`
	DiscountPercent int `json:"discount_percent"`
	MaxGroup        int `json:"max_group"`
}

// Service exposes the global tax, discount and group bound.
type Service struct {
	repo     *repo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	defaults config.Ledger
	logger   *zap.Logger
	loads    singleflight.Group
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		defaults: p.Config.Ledger,
		logger:   p.Logger,
	}
}

// Get returns the current parameters, falling back to configured defaults for
// any value never set.
func (s *Service) Get(ctx context.Context) (Values, error) {
	ctx, span := serviceTracer.Start(ctx, "ParamsService.Get")
	defer span.End()

	if v, err := s.getFromCache(ctx); err == nil {
		return v, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("params cache read failed", zap.Error(err))
	}

	// Concurrent misses share one load.
	v, err, _ := s.loads.Do(cache.ParamsKey, func() (any, error) {
		stored, err := s.repo.Get(ctx)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		v := s.resolve(stored)
		s.storeInCache(ctx, v)
		return v, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return Values{}, errorbank.Internal("failed to load global parameters", errorbank.WithCause(err))
	}
	return v.(Values), nil
}

// Update overwrites the supplied values. Nil arguments keep the current value.
func (s *Service) Update(ctx context.Context, taxPercent, discountPercent, maxGroup *int) (Values, error) {
	ctx, span := serviceTracer.Start(ctx, "ParamsService.Update")
	defer span.End()

	if taxPercent != nil && *taxPercent < 0 {
		return Values{}, errorbank.InvalidArgument("tax percent must not be negative")
	}
	if discountPercent != nil && (*discountPercent < 0 || *discountPercent > 100) {
		return Values{}, errorbank.InvalidArgument("discount percent must be between 0 and 100")
	}
	if maxGroup != nil && *maxGroup < 0 {
		return Values{}, errorbank.InvalidArgument("max group must not be negative")
	}

	stored, err := s.repo.Get(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		stored = &entity.GlobalParams{}
	} else if err != nil {
		span.RecordError(err)
		return Values{}, errorbank.Internal("failed to load global parameters", errorbank.WithCause(err))
	}

	if taxPercent != nil {
		stored.TaxPercent = taxPercent
	}
	if discountPercent != nil {
		stored.DiscountPercent = discountPercent
	}
	if maxGroup != nil {
		stored.MaxGroup = maxGroup
	}

	if err := s.repo.Save(ctx, stored); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return Values{}, errorbank.Internal("failed to save global parameters", errorbank.WithCause(err))
	}

	s.loads.Forget(cache.ParamsKey)
	if err := s.cache.Delete(ctx, cache.ParamsKey); err != nil {
		s.logger.Warn("params cache invalidation failed", zap.Error(err))
	}

	v := s.resolve(stored)
	s.logger.Info("global parameters updated",
		zap.Int("tax_percent", v.TaxPercent),
		zap.Int("discount_percent", v.DiscountPercent),
		zap.Int("max_group", v.MaxGroup),
	)
	return v, nil
}

func (s *Service) resolve(stored *entity.GlobalParams) Values {
	v := Values{
		TaxPercent:      s.defaults.DefaultTaxPercent,
		DiscountPercent: s.defaults.DefaultDiscountPercent,
		MaxGroup:        s.defaults.DefaultMaxGroup,
	}
	if stored == nil {
		return v
	}
	if stored.TaxPercent != nil {
		v.TaxPercent = *stored.TaxPercent
	}
	if stored.DiscountPercent != nil {
		v.DiscountPercent = *stored.DiscountPercent
	}
	if stored.MaxGroup != nil {
		v.MaxGroup = *stored.MaxGroup
	}
	return v
}

func (s *Service) getFromCache(ctx context.Context) (Values, error) {
	if s.cache == nil {
		return Values{}, cache.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, cache.ParamsKey)
	if err != nil {
		return Values{}, err
	}
	var v Values
	if err := json.Unmarshal(raw, &v); err != nil {
		return Values{}, err
	}
	return v, nil
}

func (s *Service) storeInCache(ctx context.Context, v Values) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ParamsKey, raw, s.cacheTTL); err != nil {
		s.logger.Warn("params cache write failed", zap.Error(err))
	}
}
