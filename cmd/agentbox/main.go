package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agentbox/agentbox/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Subcommands silence cobra's own printing and hand errors back
		// here; root-level errors (unknown flags) are already printed.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Error())
		}
		os.Exit(cli.GetExitCode(err))
	}
}
