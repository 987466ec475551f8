package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-hpc/jobmeta/internal/eventlog"
	"github.com/meridian-hpc/jobmeta/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Eventlog bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate jobspec or event log files",
		Long: `Validate attribute documents without storing them.

Files are checked as jobspec documents against the jobspec schema, or
as event logs with --eventlog.

Example:
  jobmeta validate jobspec.json
  jobmeta validate --eventlog eventlog.txt`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Eventlog, "eventlog", false, "validate as event logs instead of jobspecs")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command, files []string) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	failed := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read file", err)
		}

		if opts.Eventlog {
			_, err = eventlog.Decode(string(data))
		} else {
			err = schema.ValidateJobspec(data)
		}

		if err != nil {
			failed++
			_ = formatter.Error("INVALID", fmt.Sprintf("%s: %v", file, err))
			continue
		}
		if err := formatter.Success(file + ": ok"); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d files invalid", failed, len(files)))
	}
	return nil
}
