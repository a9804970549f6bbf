package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/cache"
	"github.com/gestorventas/deposito/internal/config"
	"github.com/gestorventas/deposito/internal/database"
	"github.com/gestorventas/deposito/internal/logger"
	"github.com/gestorventas/deposito/internal/messaging"
	"github.com/gestorventas/deposito/internal/observability"
	repositorycatalog "github.com/gestorventas/deposito/internal/repository/catalog"
	repositoryclient "github.com/gestorventas/deposito/internal/repository/client"
	repositoryorder "github.com/gestorventas/deposito/internal/repository/order"
	repositoryparams "github.com/gestorventas/deposito/internal/repository/params"
	grpcserver "github.com/gestorventas/deposito/internal/server/grpc"
	httpserver "github.com/gestorventas/deposito/internal/server/http"
	servicecatalog "github.com/gestorventas/deposito/internal/service/catalog"
	serviceclient "github.com/gestorventas/deposito/internal/service/client"
	serviceorder "github.com/gestorventas/deposito/internal/service/order"
	serviceparams "github.com/gestorventas/deposito/internal/service/params"
	servicetransfer "github.com/gestorventas/deposito/internal/service/transfer"
	transporthttp "github.com/gestorventas/deposito/internal/transport/http"
	"github.com/gestorventas/deposito/internal/worker"
	workerorder "github.com/gestorventas/deposito/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositorycatalog.Module,
	repositoryclient.Module,
	repositoryparams.Module,
	serviceparams.Module,
	serviceorder.Module,
	servicecatalog.Module,
	serviceclient.Module,
	servicetransfer.Module,
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
)

// HTTP wires the HTTP transport and the gRPC health endpoint on top of the
// core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)
