// Command api serves the ledger HTTP API and the gRPC health endpoint
// without the CLI wrapper.
package main

import (
	"go.uber.org/fx"

	"github.com/gestorventas/deposito/internal/app"
)

func main() {
	fx.New(app.HTTP).Run()
}
