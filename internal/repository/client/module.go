package client

import "go.uber.org/fx"

// Module provides the client repository to Fx.
var Module = fx.Provide(NewRepository)
