// main - entry-point to the marketplace commands through cobra
// individual commands are outlined in ./cmd/
package main

import (
	"github.com/sellora/marketplace/cmd"
	"github.com/sellora/marketplace/libs/logging"

	// pull in the checkout service commands
	_ "github.com/sellora/marketplace/cmd/checkout"
)

var (
	// variables will be overwritten at build time
	version   string
	commit    string
	buildTime string
)

func main() {
	defer func() {
		if logging.Writer != nil {
			logging.Writer.Close()
		}
	}()
	cmd.Execute(version, commit, buildTime)
}
