package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gestorventas/deposito/internal/entity"
	"github.com/gestorventas/deposito/internal/money"
	catalogrepo "github.com/gestorventas/deposito/internal/repository/catalog"
	repo "github.com/gestorventas/deposito/internal/repository/order"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// AddLineInput carries the arguments of AddLine. ActingSeller is nil for
// administrative callers; Price and GroupTag are optional.
type AddLineInput struct {
	ActingSeller *int64
	ClientID     int64
	OrderID      int64
	ProductID    int64
	Quantity     int
	Price        *decimal.Decimal
	GroupTag     *int
}

// AddLine attaches a new line to an open order and adds its rounded subtotal
// to the order's gross total.
func (s *Service) AddLine(ctx context.Context, in AddLineInput) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.AddLine", trace.WithAttributes(
		attribute.Int64("order.id", in.OrderID),
		attribute.Int64("product.id", in.ProductID),
	))
	defer span.End()

	settings, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}

	var (
		order *entity.Order
		line  *entity.OrderLine
	)
	err = s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		if err := authorize(ctx, scope.clients, in.ActingSeller, in.ClientID); err != nil {
			return err
		}
		var err error
		order, err = lockOrder(ctx, scope.orders, in.OrderID, in.ClientID)
		if err != nil {
			return err
		}
		if order.Finalized {
			return errorbank.InvalidState("order is finalized")
		}

		product, err := scope.catalog.GetProduct(ctx, in.ProductID)
		if errors.Is(err, catalogrepo.ErrProductNotFound) {
			return errorbank.NotFound("product not found")
		}
		if err != nil {
			return internal(span, "failed to load product", err)
		}
		if !product.Active || (product.Category != nil && !product.Category.Active) {
			return errorbank.InvalidState("product is not active")
		}

		if in.Quantity <= 0 {
			return errorbank.InvalidArgument("quantity must be positive")
		}
		price := product.Price
		if in.Price != nil {
			if in.Price.IsNegative() {
				return errorbank.InvalidArgument("price must not be negative")
			}
			price = *in.Price
		}
		price = money.LinePrice(price)
		if in.GroupTag != nil && (*in.GroupTag < 0 || *in.GroupTag > settings.MaxGroup) {
			return errorbank.InvalidArgument("group is out of range",
				errorbank.WithDetail("max_group", settings.MaxGroup))
		}

		now := time.Now().UTC()
		line = &entity.OrderLine{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  in.Quantity,
			Price:     price,
			GroupTag:  in.GroupTag,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := scope.orders.CreateLine(ctx, line); err != nil {
			return internal(span, "failed to create order line", err)
		}

		order.GrossTotal = money.Round(order.GrossTotal.Add(line.Subtotal()))
		if err := scope.orders.UpdateOrder(ctx, order); err != nil {
			return internal(span, "failed to update order total", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, OpLineAdded, order, line.ID)
	return line, nil
}

// UpdateLine changes quantity and/or price of a line, replacing its old
// subtotal with the new one in the order's gross total.
func (s *Service) UpdateLine(ctx context.Context, lineID int64, quantity *int, price *decimal.Decimal, actingSeller *int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateLine", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	var (
		order *entity.Order
		line  *entity.OrderLine
	)
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		order, line, err = lockLine(ctx, scope.orders, lineID)
		if err != nil {
			return err
		}
		if order.Finalized {
			return errorbank.InvalidState("order is finalized")
		}
		if err := authorize(ctx, scope.clients, actingSeller, order.ClientID); err != nil {
			return err
		}
		if quantity != nil && *quantity <= 0 {
			return errorbank.InvalidArgument("quantity must be positive")
		}
		if price != nil && price.IsNegative() {
			return errorbank.InvalidArgument("price must not be negative")
		}

		oldSubtotal := line.Subtotal()
		if quantity != nil {
			line.Quantity = *quantity
		}
		if price != nil {
			line.Price = money.LinePrice(*price)
		}
		newSubtotal := line.Subtotal()

		if err := scope.orders.UpdateLine(ctx, line); err != nil {
			return internal(span, "failed to update order line", err)
		}
		order.GrossTotal = money.Round(order.GrossTotal.Sub(oldSubtotal).Add(newSubtotal))
		if err := scope.orders.UpdateOrder(ctx, order); err != nil {
			return internal(span, "failed to update order total", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, OpLineUpdated, order, line.ID)
	return line, nil
}

// DeleteLine removes a line from an open order. The total is adjusted before
// the line row is deleted.
func (s *Service) DeleteLine(ctx context.Context, actingSeller *int64, clientID, orderID, lineID int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.DeleteLine", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("line.id", lineID),
	))
	defer span.End()

	var order *entity.Order
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		order, err = lockOrder(ctx, scope.orders, orderID, clientID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, scope.clients, actingSeller, clientID); err != nil {
			return err
		}
		if order.Finalized {
			return errorbank.InvalidState("order is finalized")
		}

		line, err := scope.orders.GetLine(ctx, lineID)
		if errors.Is(err, repo.ErrLineNotFound) {
			return errorbank.NotFound("order line not found")
		}
		if err != nil {
			return internal(span, "failed to load order line", err)
		}
		if line.OrderID != order.ID {
			return errorbank.NotFound("order line does not belong to order")
		}

		order.GrossTotal = money.Round(order.GrossTotal.Sub(line.Subtotal()))
		if err := scope.orders.UpdateOrder(ctx, order); err != nil {
			return internal(span, "failed to update order total", err)
		}
		if err := scope.orders.DeleteLine(ctx, line.ID); err != nil {
			return internal(span, "failed to delete order line", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.committed(ctx, OpLineDeleted, order, lineID)
	return nil
}

// SetFinalStock records the reconciled stock count of a line. The gross
// total is not affected.
func (s *Service) SetFinalStock(ctx context.Context, lineID int64, finalStock *int, actingSeller *int64) (*entity.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.SetFinalStock", trace.WithAttributes(attribute.Int64("line.id", lineID)))
	defer span.End()

	var (
		order *entity.Order
		line  *entity.OrderLine
	)
	err := s.inTx(ctx, func(ctx context.Context, scope txScope) error {
		var err error
		order, line, err = lockLine(ctx, scope.orders, lineID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, scope.clients, actingSeller, order.ClientID); err != nil {
			return err
		}
		if order.Finalized {
			return errorbank.InvalidState("order is finalized")
		}
		if finalStock == nil {
			return errorbank.InvalidArgument("final stock is required")
		}
		if *finalStock < 0 || *finalStock > line.Quantity {
			return errorbank.InvalidArgument("final stock must be between 0 and the line quantity",
				errorbank.WithDetail("quantity", line.Quantity))
		}

		value := *finalStock
		line.FinalStock = &value
		if err := scope.orders.UpdateLine(ctx, line); err != nil {
			return internal(span, "failed to update order line", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, OpFinalStockSet, order, line.ID)
	return line, nil
}

// lockLine resolves a line and its order, locking the order row and reading
// the line again under that lock.
func lockLine(ctx context.Context, orders *repo.Repository, lineID int64) (*entity.Order, *entity.OrderLine, error) {
	line, err := orders.GetLine(ctx, lineID)
	if errors.Is(err, repo.ErrLineNotFound) {
		return nil, nil, errorbank.NotFound("order line not found")
	}
	if err != nil {
		return nil, nil, errorbank.Internal("failed to load order line", errorbank.WithCause(err))
	}

	order, err := orders.GetOrderForUpdate(ctx, line.OrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		return nil, nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	line, err = orders.GetLine(ctx, lineID)
	if errors.Is(err, repo.ErrLineNotFound) {
		return nil, nil, errorbank.NotFound("order line not found")
	}
	if err != nil {
		return nil, nil, errorbank.Internal("failed to load order line", errorbank.WithCause(err))
	}
	return order, line, nil
}
