package order

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/messaging"
	"github.com/gestorventas/deposito/internal/money"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	ordersvc "github.com/gestorventas/deposito/internal/service/order"
	"github.com/gestorventas/deposito/internal/worker"
)

var (
	workerTracer = otel.Tracer("github.com/gestorventas/deposito/worker/order")
	workerMeter  = otel.Meter("github.com/gestorventas/deposito/worker/order")
)

// driftTolerance is the smallest gross total difference reported as drift.
var driftTolerance = decimal.New(1, -2)

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		NewAuditor,
		fx.Annotate(
			NewLedgerAuditHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Auditor recomputes an order's gross total from its lines and compares it
// with the stored running total. It never writes.
type Auditor struct {
	orders *orderrepo.Repository
	logger *zap.Logger
	drifts metric.Int64Counter
}

// Finding is the outcome of auditing one order.
type Finding struct {
	OrderID    int64
	Stored     decimal.Decimal
	Recomputed decimal.Decimal
	Lines      int
}

// Drifted reports whether the stored total is off by at least a cent.
func (f Finding) Drifted() bool {
	return f.Stored.Sub(f.Recomputed).Abs().GreaterThanOrEqual(driftTolerance)
}

// NewAuditor constructs an Auditor over the order repository.
func NewAuditor(orders *orderrepo.Repository, logger *zap.Logger) (*Auditor, error) {
	drifts, err := workerMeter.Int64Counter("ledger.audit.drifts",
		metric.WithDescription("Orders whose stored gross total differs from their lines"))
	if err != nil {
		return nil, err
	}
	return &Auditor{orders: orders, logger: logger, drifts: drifts}, nil
}

// Audit loads the order and its lines. A missing order yields
// orderrepo.ErrNotFound.
func (a *Auditor) Audit(ctx context.Context, orderID int64) (Finding, error) {
	order, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Finding{}, err
	}
	lines, err := a.orders.ListLines(ctx, orderID)
	if err != nil {
		return Finding{}, err
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Subtotal())
	}

	f := Finding{
		OrderID:    order.ID,
		Stored:     order.GrossTotal,
		Recomputed: money.Round(sum),
		Lines:      len(lines),
	}
	if f.Drifted() {
		a.drifts.Add(ctx, 1)
		a.logger.Warn("order gross total drift detected",
			zap.Int64("order_id", f.OrderID),
			zap.String("stored", money.Format(f.Stored)),
			zap.String("recomputed", money.Format(f.Recomputed)),
			zap.Int("lines", f.Lines),
		)
	}
	return f, nil
}

// NewLedgerAuditHandler audits the order named by each ledger event.
// Messages without an order (dataset events) are acknowledged untouched.
func NewLedgerAuditHandler(auditor *Auditor, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.ledger.audit", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.LedgerEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode ledger event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		if event.OrderID == 0 {
			return nil
		}
		span.SetAttributes(attribute.Int64("order.id", event.OrderID), attribute.String("ledger.op", event.Op))

		finding, err := auditor.Audit(ctx, event.OrderID)
		if errors.Is(err, orderrepo.ErrNotFound) {
			logger.Debug("audited order no longer exists", zap.Int64("order_id", event.OrderID), zap.String("op", event.Op))
			return nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "audit failed")
			return err
		}

		logger.Debug("ledger event audited",
			zap.String("op", event.Op),
			zap.Int64("order_id", event.OrderID),
			zap.Bool("drifted", finding.Drifted()),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
