package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/genesis"
)

// GenesisResult lists the accounts a genesis file created.
type GenesisResult struct {
	File     string        `json:"file"`
	Accounts []AccountView `json:"accounts"`
}

func (r GenesisResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Created %d account(s) from %s", len(r.Accounts), r.File)
	for _, a := range r.Accounts {
		fmt.Fprintf(&b, "\n  %s %s %s", a.Label(), a.Key, a.State())
	}
	return b.String()
}

// NewGenesisCommand creates the genesis command.
func NewGenesisCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis <file.cue>",
		Short: "Create accounts from a CUE genesis file",
		Long: `Validate a CUE genesis file and create every account it declares.

All accounts are created in one transaction: if any account conflicts
with an existing one, none are created.

Example file:
  accounts: [
    {name: "counter", record: {a: 0, b: 0}},
    {name: "raw", owner: "system", data: "0100000002000000"},
  ]

Examples:
  sumstate genesis ./ledger.cue
  sumstate genesis ./ledger.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenesis(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runGenesis(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("genesis file not found: %s", path))
	}

	accounts, err := genesis.Load(path)
	if err != nil {
		if opts.Format == "json" {
			var field any
			var gerr *genesis.Error
			if errors.As(err, &gerr) {
				field = gerr.Field
			}
			_ = opts.formatter(cmd).Error("INVALID_GENESIS", err.Error(), field)
		}
		return WrapExitError(ExitCommandError, "invalid genesis file", err)
	}

	l, err := openLedger(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	created, err := genesis.Apply(ctx, l.store, l.programID, accounts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create accounts", err)
	}

	result := GenesisResult{File: path, Accounts: make([]AccountView, 0, len(created))}
	for _, a := range created {
		result.Accounts = append(result.Accounts, newAccountView(a))
	}
	return opts.formatter(cmd).Success(result)
}
