package params

import "go.uber.org/fx"

// Module provides the global parameters service to Fx.
var Module = fx.Provide(NewService)
