// Command tagmgr loads tag manager units against a simulated page.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tagmgr/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
