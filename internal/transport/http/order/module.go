package order

import "go.uber.org/fx"

// Module wires HTTP order and line handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
