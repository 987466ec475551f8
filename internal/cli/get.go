package cli

import (
	"github.com/spf13/cobra"

	"github.com/meridian-hpc/jobmeta/internal/auth"
	"github.com/meridian-hpc/jobmeta/internal/config"
	"github.com/meridian-hpc/jobmeta/internal/lookup"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	JobID   uint64
	User    uint64
	UserSet bool
	Current bool
	Decode  bool
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get --id <jobid> <key>...",
		Short: "Look up job attributes",
		Long: `Look up one or more attributes of a job directly against the store.

Runs as the instance owner unless --user selects a guest identity, in
which case the same authorization rules apply as over HTTP.

Example:
  jobmeta get --id 1234 jobspec R
  jobmeta get --id 1234 --current --decode R
  jobmeta get --id 1234 --user 5000 eventlog`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.UserSet = cmd.Flags().Changed("user")
			return runGet(opts, cmd, args)
		},
	}

	cmd.Flags().Uint64Var(&opts.JobID, "id", 0, "job id (required)")
	cmd.Flags().Uint64Var(&opts.User, "user", 0, "look up as this user id instead of the owner")
	cmd.Flags().BoolVar(&opts.Current, "current", false, "apply event log updates to reconstructable attributes")
	cmd.Flags().BoolVar(&opts.Decode, "decode", false, "return JSON attributes as objects instead of strings")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runGet(opts *GetOptions, cmd *cobra.Command, keys []string) error {
	logger := newLogger(opts.Verbose)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	store, _, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer store.Close()

	svc := lookup.New(store, cfg.Auth.OwnerID, lookup.WithLogger(logger))

	var flags lookup.Flag
	if opts.Decode {
		flags |= lookup.FlagJSONDecode
	}
	if opts.Current {
		flags |= lookup.FlagCurrent
	}

	creds := auth.Credentials{UserID: cfg.Auth.OwnerID}
	if opts.UserSet {
		creds = auth.Credentials{UserID: opts.User}
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	payload, err := svc.Lookup(cmd.Context(), lookup.Request{
		ID:    opts.JobID,
		Keys:  keys,
		Flags: flags,
	}, creds)
	if err != nil {
		code := lookup.CodeOf(err)
		_ = formatter.Error(string(code), err.Error())
		return NewExitError(ExitFailure, "lookup failed")
	}

	if err := formatter.SuccessRaw(payload); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
