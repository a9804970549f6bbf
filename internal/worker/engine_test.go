package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/messaging"
)

// feedClient delivers a fixed batch then blocks until cancelled.
type feedClient struct {
	batch []messaging.Message
}

func (f *feedClient) Publish(context.Context, []byte, []byte, ...messaging.Header) error {
	return nil
}

func (f *feedClient) Consume(ctx context.Context, handler messaging.Handler) error {
	for _, msg := range f.batch {
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *feedClient) Topic() string { return "deposito.ledger" }

func enabledConfig() config.Config {
	return config.Config{Messaging: config.Messaging{
		Enabled: true,
		Workers: config.Worker{Enabled: true, Concurrency: 1},
	}}
}

func TestEngineDispatchesToEveryHandler(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	record := func(name string, err error) messaging.Handler {
		return func(_ context.Context, msg messaging.Message) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+string(msg.Value))
			return err
		}
	}

	client := &feedClient{batch: []messaging.Message{
		{Topic: "deposito.ledger", Value: []byte("1")},
		{Topic: "other", Value: []byte("2")},
	}}
	engine, err := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "deposito.ledger", Handler: record("audit", nil)},
			{Topic: "deposito.ledger", Handler: record("trail", nil)},
			{Topic: "", Handler: record("ignored", nil)},
		},
	})
	require.NoError(t, err)

	require.NoError(t, engine.start(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, engine.stop(context.Background()))

	assert.Equal(t, []string{"audit:1", "trail:1"}, seen)
}

func TestEngineStopsChainOnHandlerError(t *testing.T) {
	calls := 0
	engine, err := NewEngine(Params{
		Client: &feedClient{},
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "t", Handler: func(context.Context, messaging.Message) error { calls++; return errors.New("boom") }},
			{Topic: "t", Handler: func(context.Context, messaging.Message) error { calls++; return nil }},
		},
	})
	require.NoError(t, err)

	err = engine.dispatch(context.Background(), 0, messaging.Message{Topic: "t"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
}

func TestEngineDisabled(t *testing.T) {
	engine, err := NewEngine(Params{Client: &feedClient{}, Logger: zap.NewNop(), Config: config.Config{}})
	require.NoError(t, err)

	require.NoError(t, engine.start(context.Background()))
	assert.Nil(t, engine.cancel)
	require.NoError(t, engine.stop(context.Background()))
}
