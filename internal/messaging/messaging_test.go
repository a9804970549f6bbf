package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
)

func TestNewClientDisabledIsNoop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	client, err := NewClient(lc, config.Config{Messaging: config.Messaging{
		Enabled: false,
		Kafka:   config.Kafka{Topic: "deposito.ledger"},
	}}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "deposito.ledger", client.Topic())
	assert.NoError(t, client.Publish(context.Background(), []byte("k"), []byte("v"), Header{Key: "op", Value: "line.added"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, client.Consume(ctx, nil), context.DeadlineExceeded)
}

func TestNewClientRejectsUnknownDriver(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	_, err := NewClient(lc, config.Config{Messaging: config.Messaging{Enabled: true, Driver: "nats"}}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported messaging driver")
}

func TestFromKafkaCopiesHeaders(t *testing.T) {
	key := []byte("order-7")
	msg := fromKafka(kafka.Message{
		Topic:   "deposito.ledger",
		Key:     key,
		Value:   []byte(`{"order_id":7}`),
		Offset:  42,
		Headers: []kafka.Header{{Key: "op", Value: []byte("line.added")}},
	})

	key[0] = 'X'
	assert.Equal(t, "order-7", string(msg.Key))
	assert.Equal(t, int64(42), msg.Offset)
	assert.Equal(t, map[string]string{"op": "line.added"}, msg.Headers)

	assert.Nil(t, fromKafka(kafka.Message{}).Headers)
}
