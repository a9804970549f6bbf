// Package transfer replaces whole catalog and client datasets from
// semicolon-delimited files and exports them back in the same format.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
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
	"github.com/gestorventas/deposito/internal/messaging"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	clientrepo "github.com/gestorventas/deposito/internal/repository/client"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/gestorventas/deposito/service/transfer")
	serviceMeter  = otel.Meter("github.com/gestorventas/deposito/service/transfer")
)

// Kind names an exchangeable dataset.
type Kind string

const (
	KindCategories Kind = "categories"
	KindProducts   Kind = "products"
	KindClients    Kind = "clients"
	// KindOrders is export only.
	KindOrders Kind = "orders"
)

// ParseKind resolves a dataset name as used in routes and CLI arguments.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindCategories, KindProducts, KindClients, KindOrders:
		return k, nil
	default:
		return "", errorbank.InvalidArgument(fmt.Sprintf("unknown dataset %q", raw),
			errorbank.WithDetail("allowed", []string{string(KindCategories), string(KindProducts), string(KindClients), string(KindOrders)}))
	}
}

// Service is the bulk import/export engine.
type Service struct {
	conns     *database.Connections
	orders    *orderrepo.Repository
	catalog   *catalogrepo.Repository
	clients   *clientrepo.Repository
	cache     cache.Store
	logger    *zap.Logger
	publisher messaging.Client
	enabled   bool
	imported  metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Orders      *orderrepo.Repository
	Catalog     *catalogrepo.Repository
	Clients     *clientrepo.Repository
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	imported, err := serviceMeter.Int64Counter("transfer.imported_records",
		metric.WithDescription("Records written by dataset imports"))
	if err != nil {
		return nil, fmt.Errorf("create import counter: %w", err)
	}
	return &Service{
		conns:     p.Connections,
		orders:    p.Orders,
		catalog:   p.Catalog,
		clients:   p.Clients,
		cache:     p.Cache,
		logger:    p.Logger,
		publisher: p.Publisher,
		enabled:   p.Config.Messaging.Enabled,
		imported:  imported,
	}, nil
}

// txScope holds repositories bound to one transaction.
type txScope struct {
	orders  *orderrepo.Repository
	catalog *catalogrepo.Repository
	clients *clientrepo.Repository
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, scope txScope) error) error {
	return s.conns.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, txScope{
			orders:  s.orders.WithTx(tx),
			catalog: s.catalog.WithTx(tx),
			clients: s.clients.WithTx(tx),
		})
	})
}

// Import replaces the dataset of the given kind and returns the number of
// records written.
func (s *Service) Import(ctx context.Context, kind Kind, src io.Reader) (int, error) {
	switch kind {
	case KindCategories:
		return s.ImportCategories(ctx, src)
	case KindProducts:
		return s.ImportProducts(ctx, src)
	case KindClients:
		return s.ImportClients(ctx, src)
	case KindOrders:
		return 0, errorbank.InvalidArgument("orders can only be exported; they are created through the ledger")
	default:
		return 0, errorbank.InvalidArgument(fmt.Sprintf("unknown dataset %q", kind))
	}
}

// Export writes the dataset of the given kind to dst.
func (s *Service) Export(ctx context.Context, kind Kind, dst io.Writer) error {
	switch kind {
	case KindCategories:
		return s.ExportCategories(ctx, dst)
	case KindProducts:
		return s.ExportProducts(ctx, dst)
	case KindClients:
		return s.ExportClients(ctx, dst)
	case KindOrders:
		return s.ExportOrders(ctx, dst)
	default:
		return errorbank.InvalidArgument(fmt.Sprintf("unknown dataset %q", kind))
	}
}

// Purge deletes every order, line, product, category and client in one
// transaction. Sellers and global parameters are kept.
func (s *Service) Purge(ctx context.Context) error {
	ctx, span := serviceTracer.Start(ctx, "TransferService.Purge")
	defer span.End()

	var orderIDs []int64
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		if orderIDs, err = scope.orders.OrderIDs(ctx); err != nil {
			return internal(span, "failed to list orders", err)
		}
		if err := scope.orders.DeleteAll(ctx); err != nil {
			return internal(span, "failed to delete orders", err)
		}
		if err := scope.catalog.ReplaceProducts(ctx, nil); err != nil {
			return internal(span, "failed to delete products", err)
		}
		if err := scope.catalog.ReplaceCategories(ctx, nil); err != nil {
			return internal(span, "failed to delete categories", err)
		}
		if err := scope.clients.ReplaceClients(ctx, nil); err != nil {
			return internal(span, "failed to delete clients", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(orderIDs) > 0 {
		keys := make([]string, 0, len(orderIDs))
		for _, id := range orderIDs {
			keys = append(keys, cache.OrderKey(id))
		}
		if err := s.cache.Delete(ctx, keys...); err != nil {
			s.logger.Warn("orders cache invalidation failed", zap.Int("orders", len(keys)), zap.Error(err))
		}
	}

	s.logger.Info("all business data purged", zap.Int("orders", len(orderIDs)))
	s.publish(ctx, DatasetEvent{Op: OpDataPurged})
	return nil
}

// committed runs the post-commit side effects of an import.
func (s *Service) committed(ctx context.Context, kind Kind, count int) {
	s.imported.Add(ctx, int64(count), metric.WithAttributes(attribute.String("kind", string(kind))))
	s.logger.Info("dataset replaced", zap.String("kind", string(kind)), zap.Int("records", count))
	s.publish(ctx, DatasetEvent{Op: OpDatasetReplaced, Kind: kind, Records: count})
}

// Dataset event operations.
const (
	OpDatasetReplaced = "dataset.replaced"
	OpDataPurged      = "dataset.purged"
)

// DatasetEvent is emitted after a dataset import or purge commits.
type DatasetEvent struct {
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Kind       Kind      `json:"kind,omitempty"`
	Records    int       `json:"records"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (s *Service) publish(ctx context.Context, event DatasetEvent) {
	if !s.enabled || s.publisher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.OccurredAt = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal dataset event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte("dataset-"+string(event.Kind)), payload, messaging.Header{Key: "op", Value: event.Op}); err != nil {
		s.logger.Error("publish dataset event", zap.String("op", event.Op), zap.Error(err))
	}
}

func internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
