// Command subcalc checks substitution calculus programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/subcalc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
