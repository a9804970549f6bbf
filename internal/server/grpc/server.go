package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/pkg/errorbank"
)

// LedgerService is the health service name reported for the order ledger.
const LedgerService = "deposito.ledger"

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, NewHealth),
	fx.Invoke(Run),
)

// NewHealth builds the standard gRPC health server. Every service starts
// NOT_SERVING until the database answers.
func NewHealth() *health.Server {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// NewServer builds a gRPC server with logging and error-mapping interceptors
// and registers the health service.
func NewServer(logger *zap.Logger, h *health.Server) *grpc.Server {
	unary := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)
		if err != nil {
			logger.Warn("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Debug("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration))
		}
		return resp, toStatus(err)
	}

	stream := func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		duration := time.Since(start)
		if err != nil {
			logger.Warn("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Debug("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration))
		}
		return toStatus(err)
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	healthpb.RegisterHealthServer(server, h)
	return server
}

// toStatus converts application errors into gRPC statuses. Errors that
// already carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var appErr *errorbank.AppError
	if errors.As(err, &appErr) {
		return status.Error(appErr.GRPCCode(), appErr.Message())
	}
	return err
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, h *health.Server, conns *database.Connections, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	var listener net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln

			if err := conns.Writer.PingContext(ctx); err != nil {
				logger.Warn("database not reachable; health stays NOT_SERVING", zap.Error(err))
			} else {
				h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
				h.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_SERVING)
			}

			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			h.Shutdown()
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				if listener != nil {
					_ = listener.Close()
				}
				return nil
			}
		},
	})
}
