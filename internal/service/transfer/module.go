package transfer

import "go.uber.org/fx"

// Module provides the bulk import/export service to Fx.
var Module = fx.Provide(NewService)
