package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/entity"
	repo "github.com/gestorventas/deposito/internal/repository/client"
	orderrepo "github.com/gestorventas/deposito/internal/repository/order"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/gestorventas/deposito/service/client")

// Service manages clients on behalf of their sellers.
type Service struct {
	repo   *repo.Repository
	orders *orderrepo.Repository
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Orders     *orderrepo.Repository
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, orders: p.Orders, logger: p.Logger}
}

// Input carries the writable client fields. SellerID is only honoured for
// administrative callers; sellers always own the clients they create.
type Input struct {
	Name     string
	CIF      string
	SellerID int64
}

// AddClient registers a client.
func (s *Service) AddClient(ctx context.Context, actingSeller *int64, in Input) (*entity.Client, error) {
	ctx, span := serviceTracer.Start(ctx, "ClientService.AddClient")
	defer span.End()

	if actingSeller != nil {
		in.SellerID = *actingSeller
	}
	if err := s.validate(ctx, &in, 0); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	client := &entity.Client{
		Name:      in.Name,
		CIF:       in.CIF,
		SellerID:  in.SellerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateClient(ctx, client); err != nil {
		return nil, internal(span, "failed to create client", err)
	}
	s.logger.Info("client created", zap.Int64("id", client.ID), zap.Int64("seller_id", client.SellerID))
	return client, nil
}

// GetClient returns a client visible to the acting seller.
func (s *Service) GetClient(ctx context.Context, actingSeller *int64, id int64) (*entity.Client, error) {
	ctx, span := serviceTracer.Start(ctx, "ClientService.GetClient", trace.WithAttributes(attribute.Int64("client.id", id)))
	defer span.End()

	client, err := s.repo.GetClient(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("client not found")
	}
	if err != nil {
		return nil, internal(span, "failed to load client", err)
	}
	if actingSeller != nil && client.SellerID != *actingSeller {
		return nil, errorbank.PermissionDenied("client does not belong to seller")
	}
	return client, nil
}

// ListClients returns the acting seller's clients, or every client for
// administrative callers.
func (s *Service) ListClients(ctx context.Context, actingSeller *int64) ([]*entity.Client, error) {
	ctx, span := serviceTracer.Start(ctx, "ClientService.ListClients")
	defer span.End()

	clients, err := s.repo.ListClients(ctx, actingSeller)
	if err != nil {
		return nil, internal(span, "failed to list clients", err)
	}
	return clients, nil
}

// UpdateClient overwrites name and CIF, and the owning seller when the caller
// is an administrator.
func (s *Service) UpdateClient(ctx context.Context, actingSeller *int64, id int64, in Input) (*entity.Client, error) {
	ctx, span := serviceTracer.Start(ctx, "ClientService.UpdateClient", trace.WithAttributes(attribute.Int64("client.id", id)))
	defer span.End()

	client, err := s.GetClient(ctx, actingSeller, id)
	if err != nil {
		return nil, err
	}
	if actingSeller != nil || in.SellerID == 0 {
		in.SellerID = client.SellerID
	}
	if err := s.validate(ctx, &in, client.ID); err != nil {
		return nil, err
	}

	client.Name = in.Name
	client.CIF = in.CIF
	client.SellerID = in.SellerID
	if err := s.repo.UpdateClient(ctx, client); err != nil {
		return nil, internal(span, "failed to update client", err)
	}
	return client, nil
}

// DeleteClient removes a client without orders.
func (s *Service) DeleteClient(ctx context.Context, actingSeller *int64, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "ClientService.DeleteClient", trace.WithAttributes(attribute.Int64("client.id", id)))
	defer span.End()

	if _, err := s.GetClient(ctx, actingSeller, id); err != nil {
		return err
	}
	orders, err := s.orders.CountOrders(ctx, &id)
	if err != nil {
		return internal(span, "failed to count orders", err)
	}
	if orders > 0 {
		return errorbank.InvalidState("client still has orders", errorbank.WithDetail("orders", orders))
	}
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return internal(span, "failed to delete client", err)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, in *Input, selfID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	in.CIF = strings.ToUpper(strings.TrimSpace(in.CIF))
	if in.Name == "" {
		return errorbank.InvalidArgument("name is required")
	}
	if in.CIF == "" {
		return errorbank.InvalidArgument("CIF is required")
	}

	if _, err := s.repo.GetSeller(ctx, in.SellerID); err != nil {
		if errors.Is(err, repo.ErrSellerNotFound) {
			return errorbank.NotFound("seller not found")
		}
		return errorbank.Internal("failed to load seller", errorbank.WithCause(err))
	}

	taken, err := s.repo.ExistsCIF(ctx, in.CIF, selfID)
	if err != nil {
		return errorbank.Internal("failed to check CIF", errorbank.WithCause(err))
	}
	if taken {
		return errorbank.Conflict("CIF already registered", errorbank.WithDetail("cif", in.CIF))
	}
	return nil
}

func internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
