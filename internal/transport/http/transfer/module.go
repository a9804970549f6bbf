package transfer

import "go.uber.org/fx"

// Module wires HTTP dataset transfer handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
