package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/genesis"
	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/store"
)

// AccountCreateOptions holds flags for account create.
type AccountCreateOptions struct {
	*RootOptions
	Key        string
	Owner      string
	Lamports   uint64
	Executable bool
	A          uint32
	B          uint32
	Total      uint32
	Data       string
}

// AccountList is the output of account list.
type AccountList struct {
	Accounts []AccountView `json:"accounts"`
}

func (l AccountList) String() string {
	if len(l.Accounts) == 0 {
		return "No accounts."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d account(s)", len(l.Accounts))
	for _, a := range l.Accounts {
		fmt.Fprintf(&b, "\n  %-20s %-44s seq=%-4d %s", a.Label(), a.Key, a.Seq, a.State())
	}
	return b.String()
}

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create and inspect accounts",
	}

	cmd.AddCommand(newAccountCreateCommand(rootOpts))
	cmd.AddCommand(newAccountShowCommand(rootOpts))
	cmd.AddCommand(newAccountListCommand(rootOpts))

	return cmd
}

func newAccountCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create one account",
		Long: `Create one account holding a record or raw data.

The key is derived from the program ID and the name unless --key is given.
The owner is "program" (default), "system", or a base58 key. Without
--total the stored total is a+b.

Examples:
  sumstate account create counter
  sumstate account create preloaded --a 1 --b 2
  sumstate account create foreign --owner system
  sumstate account create short --data 0102`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "account key as base58 (default derived from name)")
	cmd.Flags().StringVar(&opts.Owner, "owner", genesis.OwnerProgram, "owner: program, system, or base58 key")
	cmd.Flags().Uint64Var(&opts.Lamports, "lamports", 0, "lamport balance")
	cmd.Flags().BoolVar(&opts.Executable, "executable", false, "mark the account executable")
	cmd.Flags().Uint32Var(&opts.A, "a", 0, "initial a")
	cmd.Flags().Uint32Var(&opts.B, "b", 0, "initial b")
	cmd.Flags().Uint32Var(&opts.Total, "total", 0, "initial total (default a+b)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "raw initial data as hex, instead of a record")

	return cmd
}

func runAccountCreate(opts *AccountCreateOptions, name string, cmd *cobra.Command) error {
	ctx := context.Background()
	flags := cmd.Flags()

	entry := genesis.Account{
		Name:       name,
		Key:        opts.Key,
		Owner:      opts.Owner,
		Lamports:   opts.Lamports,
		Executable: opts.Executable,
	}
	if opts.Data != "" {
		if flags.Changed("a") || flags.Changed("b") || flags.Changed("total") {
			return NewExitError(ExitCommandError, "--data cannot be combined with --a, --b or --total")
		}
		entry.Data = opts.Data
	} else {
		r := record.Record{A: opts.A, B: opts.B}.Recompute()
		if flags.Changed("total") {
			r.Total = opts.Total
		}
		entry.Record = &r
	}

	l, err := openLedger(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	created, err := genesis.Apply(ctx, l.store, l.programID, []genesis.Account{entry})
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to create account %q", name), err)
	}
	return opts.formatter(cmd).Success(newAccountView(created[0]))
}

func newAccountShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|key>",
		Short: "Show one account",
		Long: `Show one account by name or base58 key, with its write history
when --verbose is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountShow(rootOpts, args[0], cmd)
		},
	}
}

func runAccountShow(opts *RootOptions, ref string, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	acct, err := resolveAccount(ctx, l.store, ref)
	if err != nil {
		return err
	}

	f := opts.formatter(cmd)
	if err := f.Success(newAccountView(acct)); err != nil {
		return err
	}

	if opts.Verbose && opts.Format != "json" {
		history, err := l.store.AccountHistory(ctx, acct.Key)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "  History: %d write(s)\n", len(history))
		for _, h := range history {
			fmt.Fprintf(w, "    seq=%d %s -> %s\n", h.Seq, describeData(h.Before), describeData(h.After))
		}
	}
	return nil
}

func newAccountListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all accounts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountList(rootOpts, cmd)
		},
	}
}

func runAccountList(opts *RootOptions, cmd *cobra.Command) error {
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

	list := AccountList{Accounts: make([]AccountView, 0, len(accounts))}
	for _, a := range accounts {
		list.Accounts = append(list.Accounts, newAccountView(a))
	}
	return opts.formatter(cmd).Success(list)
}

// resolveAccount looks up ref by key or name.
func resolveAccount(ctx context.Context, st *store.Store, ref string) (store.Account, error) {
	acct, err := st.ResolveAccount(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return store.Account{}, NewExitError(ExitCommandError, fmt.Sprintf("account not found: %s", ref))
	}
	if err != nil {
		return store.Account{}, WrapExitError(ExitCommandError, "failed to read account", err)
	}
	return acct, nil
}

// describeData renders account bytes as a record when they decode.
func describeData(data []byte) string {
	if r, err := record.Decode(data); err == nil {
		return r.String()
	}
	return fmt.Sprintf("0x%x", data)
}
