package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// InitResult reports a freshly opened ledger.
type InitResult struct {
	Database  string `json:"database"`
	ProgramID string `json:"program_id"`
	Accounts  int    `json:"accounts"`
	Seq       int64  `json:"seq"`
}

func (r InitResult) String() string {
	return fmt.Sprintf("Ledger ready: %s\n  Program: %s\n  Accounts: %d\n  Seq: %d",
		r.Database, r.ProgramID, r.Accounts, r.Seq)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or open a ledger database",
		Long: `Create the ledger database if it does not exist and apply the schema.

Running init on an existing ledger is safe and reports its contents.

Examples:
  sumstate init
  sumstate --db ./ledger.db init`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	accounts, err := l.store.ListAccounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list accounts", err)
	}
	seq, err := l.store.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sequence", err)
	}

	return opts.formatter(cmd).Success(InitResult{
		Database:  opts.database(),
		ProgramID: l.programID.String(),
		Accounts:  len(accounts),
		Seq:       seq,
	})
}
