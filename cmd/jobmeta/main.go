// jobmeta serves and manages per-job metadata attributes.
package main

import (
	"fmt"
	"os"

	"github.com/meridian-hpc/jobmeta/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
