// Command tcslink keeps a running LEGO Star Wars: The Complete Saga session
// in step with a multiworld randomizer server.
package main

import (
	"os"

	"github.com/roach88/tcslink/internal/cli"
)

func main() {
	// Subcommands report their own errors through the output formatter.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
