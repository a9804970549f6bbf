package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/messaging"
	"github.com/gestorventas/deposito/internal/money"
)

// Ledger event operations.
const (
	OpOrderCreated   = "order.created"
	OpOrderFinalized = "order.finalized"
	OpOrderDeleted   = "order.deleted"
	OpLineAdded      = "line.added"
	OpLineUpdated    = "line.updated"
	OpLineDeleted    = "line.deleted"
	OpFinalStockSet  = "line.final_stock"
)

// LedgerEvent is emitted after every committed order or line mutation.
type LedgerEvent struct {
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	OrderID    int64     `json:"order_id"`
	ClientID   int64     `json:"client_id"`
	LineID     int64     `json:"line_id,omitempty"`
	GrossTotal string    `json:"gross_total"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newLedgerEvent(op string, order *entity.Order, lineID int64) LedgerEvent {
	return LedgerEvent{
		ID:         uuid.NewString(),
		Op:         op,
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		LineID:     lineID,
		GrossTotal: money.Format(order.GrossTotal),
		OccurredAt: time.Now().UTC(),
	}
}

func (s *Service) publish(ctx context.Context, event LedgerEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal ledger event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", event.OrderID)), payload, messaging.Header{Key: "op", Value: event.Op}); err != nil {
		s.logger.Error("publish ledger event",
			zap.String("op", event.Op),
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
