package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/runtime"
	"github.com/roach88/sumstate/internal/store"
)

// VerifyAccountResult holds the verification result for one account.
type VerifyAccountResult struct {
	Account    string `json:"account"`
	Key        string `json:"key"`
	Writes     int    `json:"writes"`
	Seq        int64  `json:"seq"`
	Consistent bool   `json:"consistent"`
	Error      string `json:"error,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Accounts      []VerifyAccountResult `json:"accounts"`
	TotalAccounts int                   `json:"total_accounts"`
	AllConsistent bool                  `json:"all_consistent"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [account]",
		Short: "Check account data against the write history",
		Long: `Replay the recorded writes of each account and check that they chain
into its current data.

Each committed write records the account image before and after. A
ledger is consistent when every write starts from the previous write's
result and the last result is the account's current data.

Exit codes:
  0 - All accounts consistent
  1 - History mismatch detected
  2 - Command error (database not found, unknown account, etc.)

Examples:
  sumstate verify
  sumstate verify counter
  sumstate verify --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runVerify(rootOpts, ref, cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, ref string, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	var accounts []store.Account
	if ref != "" {
		acct, err := resolveAccount(ctx, l.store, ref)
		if err != nil {
			return err
		}
		accounts = []store.Account{acct}
	} else {
		accounts, err = l.store.ListAccounts(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list accounts", err)
		}
	}

	result := VerifyResult{
		Accounts:      make([]VerifyAccountResult, 0, len(accounts)),
		TotalAccounts: len(accounts),
		AllConsistent: true,
	}

	for _, acct := range accounts {
		r, err := verifyAccount(ctx, l, acct)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify %s", acct.Key), err)
		}
		result.Accounts = append(result.Accounts, r)
		if !r.Consistent {
			result.AllConsistent = false
		}
	}

	if opts.Format == "json" {
		return outputVerifyJSON(opts, cmd, result)
	}
	return outputVerifyText(cmd, result, opts.Verbose)
}

// verifyAccount checks one account. Only history mismatches are reported in
// the result; other failures are returned.
func verifyAccount(ctx context.Context, l *ledger, acct store.Account) (VerifyAccountResult, error) {
	history, err := l.store.AccountHistory(ctx, acct.Key)
	if err != nil {
		return VerifyAccountResult{}, err
	}

	r := VerifyAccountResult{
		Account:    newAccountView(acct).Label(),
		Key:        acct.Key.String(),
		Writes:     len(history),
		Seq:        acct.Seq,
		Consistent: true,
	}

	var re *runtime.RuntimeError
	err = l.runtime.Verify(ctx, acct.Key)
	switch {
	case err == nil:
	case errors.As(err, &re) && re.Code == runtime.ErrCodeHistoryMismatch:
		r.Consistent = false
		r.Error = re.Message
	default:
		return VerifyAccountResult{}, err
	}
	return r, nil
}

// outputVerifyJSON outputs the verify result as JSON.
func outputVerifyJSON(opts *RootOptions, cmd *cobra.Command, result VerifyResult) error {
	f := opts.formatter(cmd)
	if result.AllConsistent {
		return f.Success(result)
	}

	if err := f.Failure(string(runtime.ErrCodeHistoryMismatch), "history verification failed", result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "history verification failed")
}

// outputVerifyText outputs the verify result as text.
func outputVerifyText(cmd *cobra.Command, result VerifyResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Verify Summary: %d account(s)\n", result.TotalAccounts)
	fmt.Fprintln(w)

	for _, a := range result.Accounts {
		status := "✓"
		if !a.Consistent {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", status, a.Account)
		if verbose {
			fmt.Fprintf(w, "  Key: %s\n", a.Key)
			fmt.Fprintf(w, "  Seq: %d\n", a.Seq)
		}
		fmt.Fprintf(w, "  Writes: %d\n", a.Writes)
		if !a.Consistent {
			fmt.Fprintf(w, "  Mismatch: %s\n", a.Error)
		}
	}
	fmt.Fprintln(w)

	if result.AllConsistent {
		fmt.Fprintln(w, "✓ All accounts consistent")
		return nil
	}

	fmt.Fprintln(w, "✗ History verification failed")
	return NewExitError(ExitFailure, "history verification failed")
}
