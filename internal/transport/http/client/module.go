package client

import "go.uber.org/fx"

// Module wires HTTP client handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
