package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/cache"
	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/messaging"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	repo "github.com/gestorventas/deposito/internal/repository/order"
	paramsvc "github.com/gestorventas/deposito/internal/service/params"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/gestorventas/deposito/service/order")
	serviceMeter  = otel.Meter("github.com/gestorventas/deposito/service/order")
)

// Service is the order ledger: it owns orders, their lines and the running
// gross total kept on every order.
type Service struct {
	conns     *database.Connections
	orders    *repo.Repository
	clients   *clientrepo.Repository
	catalog   *catalogrepo.Repository
	params    *paramsvc.Service
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	mutations metric.Int64Counter
	// invalidations counts committed mutations. GetOrder skips the cache
	// fill when it moved during the database read.
	invalidations atomic.Uint64
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Orders      *repo.Repository
	Clients     *clientrepo.Repository
	Catalog     *catalogrepo.Repository
	Settings    *paramsvc.Service
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	mutations, err := serviceMeter.Int64Counter("ledger.mutations",
		metric.WithDescription("Committed order and line mutations"))
	if err != nil {
		return nil, fmt.Errorf("create ledger counter: %w", err)
	}
	return &Service{
		conns:     p.Connections,
		orders:    p.Orders,
		clients:   p.Clients,
		catalog:   p.Catalog,
		params:    p.Settings,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.OrderTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		mutations: mutations,
	}, nil
}

// txScope holds repositories bound to one transaction.
type txScope struct {
	orders  *repo.Repository
	clients *clientrepo.Repository
	catalog *catalogrepo.Repository
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, scope txScope) error) error {
	return s.conns.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, txScope{
			orders:  s.orders.WithTx(tx),
			clients: s.clients.WithTx(tx),
			catalog: s.catalog.WithTx(tx),
		})
	})
}

// CreateOrder opens an empty order for a client, stamping the current tax and
// discount percentages.
func (s *Service) CreateOrder(ctx context.Context, actingSeller *int64, clientID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.Int64("client.id", clientID)))
	defer span.End()

	settings, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Date:            now.Truncate(24 * time.Hour),
		ClientID:        clientID,
		DiscountPercent: settings.DiscountPercent,
		TaxPercent:      settings.TaxPercent,
		GrossTotal:      decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		if err := requireClient(ctx, scope.clients, actingSeller, clientID); err != nil {
			return err
		}
		if err := scope.orders.CreateOrder(ctx, order); err != nil {
			return internal(span, "failed to create order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, OpOrderCreated, order, 0)
	return order, nil
}

// GetOrder retrieves an order of the given client, consulting cache when
// available.
func (s *Service) GetOrder(ctx context.Context, actingSeller *int64, clientID, orderID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if err := authorize(ctx, s.clients, actingSeller, clientID); err != nil {
		return nil, err
	}

	order, err := s.getFromCache(ctx, orderID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("orders cache read failed", zap.Int64("id", orderID), zap.Error(err))
		}
		seen := s.invalidations.Load()
		order, err = s.orders.GetOrder(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		if err != nil {
			return nil, internal(span, "failed to load order", err)
		}
		if s.invalidations.Load() == seen {
			if err := s.storeInCache(ctx, order); err != nil {
				s.logger.Warn("orders cache write failed", zap.Int64("id", orderID), zap.Error(err))
			}
		}
	}

	if order.ClientID != clientID {
		return nil, errorbank.NotFound("order does not belong to client")
	}
	return order, nil
}

// ListOrders returns the client's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, actingSeller *int64, clientID int64) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(attribute.Int64("client.id", clientID)))
	defer span.End()

	if err := requireClient(ctx, s.clients, actingSeller, clientID); err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrdersByClient(ctx, clientID)
	if err != nil {
		return nil, internal(span, "failed to list orders", err)
	}
	return orders, nil
}

// FinalizeOrder moves an order into its terminal state.
func (s *Service) FinalizeOrder(ctx context.Context, actingSeller *int64, clientID, orderID int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.FinalizeOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var order *entity.Order
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		if err := authorize(ctx, scope.clients, actingSeller, clientID); err != nil {
			return err
		}
		var err error
		order, err = lockOrder(ctx, scope.orders, orderID, clientID)
		if err != nil {
			return err
		}
		if order.Finalized {
			return errorbank.InvalidState("order is already finalized")
		}
		order.Finalized = true
		if err := scope.orders.UpdateOrder(ctx, order); err != nil {
			return internal(span, "failed to finalize order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, OpOrderFinalized, order, 0)
	return order, nil
}

// DeleteOrder removes an order together with its lines.
func (s *Service) DeleteOrder(ctx context.Context, actingSeller *int64, clientID, orderID int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.DeleteOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var order *entity.Order
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		if err := authorize(ctx, scope.clients, actingSeller, clientID); err != nil {
			return err
		}
		var err error
		order, err = lockOrder(ctx, scope.orders, orderID, clientID)
		if err != nil {
			return err
		}
		if err := scope.orders.DeleteOrder(ctx, orderID); err != nil {
			return internal(span, "failed to delete order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.committed(ctx, OpOrderDeleted, order, 0)
	return nil
}

// GetLine returns a single line, scoped to the acting seller's clients.
func (s *Service) GetLine(ctx context.Context, actingSeller *int64, lineID int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	line, err := s.orders.GetLine(ctx, lineID)
	if errors.Is(err, repo.ErrLineNotFound) {
		return nil, errorbank.NotFound("order line not found")
	}
	if err != nil {
		return nil, internal(span, "failed to load order line", err)
	}
	if actingSeller != nil {
		order, err := s.orders.GetOrder(ctx, line.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		if err != nil {
			return nil, internal(span, "failed to load order", err)
		}
		if err := authorize(ctx, s.clients, actingSeller, order.ClientID); err != nil {
			return nil, err
		}
	}
	return line, nil
}

// ListLines returns the lines of one of the client's orders.
func (s *Service) ListLines(ctx context.Context, actingSeller *int64, clientID, orderID int64) ([]*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListLines", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if _, err := s.GetOrder(ctx, actingSeller, clientID, orderID); err != nil {
		return nil, err
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, internal(span, "failed to list order lines", err)
	}
	return lines, nil
}

// authorize fails with PermissionDenied unless the acting seller owns the
// client. A nil seller is an administrative caller.
func authorize(ctx context.Context, clients *clientrepo.Repository, actingSeller *int64, clientID int64) error {
	if actingSeller == nil {
		return nil
	}
	client, err := clients.GetClient(ctx, clientID)
	if errors.Is(err, clientrepo.ErrNotFound) {
		return errorbank.PermissionDenied("client does not belong to seller")
	}
	if err != nil {
		return errorbank.Internal("failed to load client", errorbank.WithCause(err))
	}
	if client.SellerID != *actingSeller {
		return errorbank.PermissionDenied("client does not belong to seller")
	}
	return nil
}

// requireClient is authorize plus an existence check for admin callers.
func requireClient(ctx context.Context, clients *clientrepo.Repository, actingSeller *int64, clientID int64) error {
	if actingSeller != nil {
		return authorize(ctx, clients, actingSeller, clientID)
	}
	_, err := clients.GetClient(ctx, clientID)
	if errors.Is(err, clientrepo.ErrNotFound) {
		return errorbank.NotFound("client not found")
	}
	if err != nil {
		return errorbank.Internal("failed to load client", errorbank.WithCause(err))
	}
	return nil
}

// lockOrder loads the order row for update and checks it belongs to clientID.
func lockOrder(ctx context.Context, orders *repo.Repository, orderID, clientID int64) (*entity.Order, error) {
	order, err := orders.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	if order.ClientID != clientID {
		return nil, errorbank.NotFound("order does not belong to client")
	}
	return order, nil
}

func internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errorbank.Internal(msg, errorbank.WithCause(err))
}

// committed runs the post-commit side effects of a mutation: cache
// invalidation, the mutation counter and the ledger event.
func (s *Service) committed(ctx context.Context, op string, order *entity.Order, lineID int64) {
	s.invalidations.Add(1)
	if err := s.cache.Delete(ctx, cache.OrderKey(order.ID)); err != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", order.ID), zap.Error(err))
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.publish(ctx, newLedgerEvent(op, order, lineID))
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, cache.OrderKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cache.OrderKey(order.ID), bytes, s.cacheTTL)
}
