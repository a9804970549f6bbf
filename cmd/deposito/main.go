package main

import (
	"os"

	"github.com/gestorventas/deposito/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
