package params

import "go.uber.org/fx"

// Module provides the params repository to Fx.
var Module = fx.Provide(NewRepository)
