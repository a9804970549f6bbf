package params

import "go.uber.org/fx"

// Module wires HTTP global parameter handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
