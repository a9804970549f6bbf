package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/messaging"
)

var engineMeter = otel.Meter("github.com/gestorventas/deposito/worker")

// HandlerRegistration binds message topics to handlers.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine orchestrates background message consumption. Several handlers may
// share a topic; each message is offered to all of them in registration
// order.
type Engine struct {
	client        messaging.Client
	logger        *zap.Logger
	cfg           config.Config
	registrations map[string][]messaging.Handler
	processed     metric.Int64Counter
	cancel        context.CancelFunc
	wg            *sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) (*Engine, error) {
	reg := make(map[string][]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		reg[r.Topic] = append(reg[r.Topic], r.Handler)
	}

	processed, err := engineMeter.Int64Counter("worker.messages",
		metric.WithDescription("Messages handled by the worker engine"))
	if err != nil {
		return nil, fmt.Errorf("create worker counter: %w", err)
	}

	return &Engine{
		client:        p.Client,
		logger:        p.Logger,
		cfg:           p.Config,
		registrations: reg,
		processed:     processed,
	}, nil
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(ctx context.Context) error {
	if !e.cfg.Messaging.Enabled || !e.cfg.Messaging.Workers.Enabled {
		e.logger.Info("worker engine disabled")

		return nil
	}
	if len(e.registrations) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")

		return nil
	}

	concurrency := e.cfg.Messaging.Workers.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg = &sync.WaitGroup{}

	for i := 0; i < concurrency; i++ {
		workerID := i
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.consumeLoop(runCtx, workerID)
		}()
	}

	e.logger.Info("worker engine started", zap.Int("workers", concurrency))

	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	done := make(chan struct{})
	go func() {
		if e.wg != nil {
			e.wg.Wait()
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")

		return nil
	}
}

func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.dispatch(msgCtx, workerID, msg)
		})

		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// dispatch runs every handler registered for the message topic. The first
// handler error stops the chain and is returned to the consumer.
func (e *Engine) dispatch(ctx context.Context, workerID int, msg messaging.Message) error {
	handlers, ok := e.registrations[msg.Topic]
	if !ok {
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))

		return nil
	}

	e.logger.Debug("processing message",
		zap.String("topic", msg.Topic),
		zap.ByteString("key", msg.Key),
		zap.Int("worker", workerID),
	)

	outcome := "ok"
	defer func() {
		e.processed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("topic", msg.Topic),
			attribute.String("outcome", outcome),
		))
	}()

	for _, handler := range handlers {
		if err := handler(ctx, msg); err != nil {
			outcome = "error"
			e.logger.Warn("message handler failed",
				zap.String("topic", msg.Topic),
				zap.ByteString("key", msg.Key),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}
