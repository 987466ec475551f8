package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meridian-hpc/jobmeta/internal/config"
	"github.com/meridian-hpc/jobmeta/internal/eventlog"
	"github.com/meridian-hpc/jobmeta/internal/jobkey"
	"github.com/meridian-hpc/jobmeta/internal/lookup"
	"github.com/meridian-hpc/jobmeta/internal/schema"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	File  string
	Force bool
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <jobid> <key>",
		Short: "Store a job attribute",
		Long: `Store an attribute value for a job.

The value is read from --file, or from stdin when --file is omitted.
Jobspec documents are checked against the jobspec schema and event
logs are checked for well-formedness before storing; --force skips
these checks.

Example:
  jobmeta put 1234 jobspec --file jobspec.json
  cat eventlog.txt | jobmeta put 1234 eventlog`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read the value from this file instead of stdin")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "skip value validation")

	return cmd
}

func runPut(opts *PutOptions, cmd *cobra.Command, jobIDArg, key string) error {
	jobID, err := strconv.ParseUint(jobIDArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid job id %q", jobIDArg), err)
	}

	value, err := readValue(cmd, opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read value", err)
	}

	if !opts.Force {
		if err := validateValue(key, value); err != nil {
			return WrapExitError(ExitFailure, "invalid value", err)
		}
	}

	path, err := jobkey.Derive(jobID, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid key", err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	store, _, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer store.Close()

	if err := store.Put(cmd.Context(), path, value); err != nil {
		return WrapExitError(ExitCommandError, "failed to store value", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	return formatter.Success(fmt.Sprintf("stored %s (%d bytes)", path, len(value)))
}

func readValue(cmd *cobra.Command, file string) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}
	return io.ReadAll(cmd.InOrStdin())
}

// validateValue applies per-attribute well-formedness checks on the
// write path. Unknown attributes are stored as-is.
func validateValue(key string, value []byte) error {
	switch key {
	case lookup.KeyJobspec:
		return schema.ValidateJobspec(value)
	case lookup.KeyEventlog:
		_, err := eventlog.Decode(string(value))
		return err
	default:
		return nil
	}
}
