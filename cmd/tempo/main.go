// Command tempo is the command-line interface to a temporal record store.
package main

import (
	"os"

	"github.com/roach88/tempo/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
