package http

import (
	"go.uber.org/fx"

	catalogtransport "github.com/gestorventas/deposito/internal/transport/http/catalog"
	clienttransport "github.com/gestorventas/deposito/internal/transport/http/client"
	ordertransport "github.com/gestorventas/deposito/internal/transport/http/order"
	paramstransport "github.com/gestorventas/deposito/internal/transport/http/params"
	transfertransport "github.com/gestorventas/deposito/internal/transport/http/transfer"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	clienttransport.Module,
	ordertransport.Module,
	catalogtransport.Module,
	paramstransport.Module,
	transfertransport.Module,
)
