package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/runtime"
	"github.com/roach88/sumstate/internal/store"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	A          uint32
	B          uint32
	Total      uint32
	PayloadHex string
	Readonly   bool
	Batch      string
}

// InvokeResult reports one invocation.
type InvokeResult struct {
	TransitionID string         `json:"transition_id"`
	Batch        string         `json:"batch"`
	Seq          int64          `json:"seq"`
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	Accounts     []string       `json:"accounts"`
	Payload      string         `json:"payload"` // hex
	Record       *record.Record `json:"record,omitempty"`
}

func (r InvokeResult) String() string {
	var b strings.Builder
	mark := "✓"
	if r.Status != "OK" {
		mark = "✗"
	}
	fmt.Fprintf(&b, "%s %s seq=%d batch=%s\n", mark, r.Status, r.Seq, r.Batch)
	if r.Message != "" && r.Message != r.Status {
		fmt.Fprintf(&b, "  %s\n", r.Message)
	}
	fmt.Fprintf(&b, "  Transition: %s\n", r.TransitionID)
	fmt.Fprintf(&b, "  Accounts: %s\n", strings.Join(r.Accounts, ", "))
	fmt.Fprintf(&b, "  Payload: %s", r.Payload)
	if r.Record != nil {
		fmt.Fprintf(&b, "\n  State: %s", r.Record)
	}
	return b.String()
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <account>...",
		Short: "Invoke the program on accounts",
		Long: `Invoke the program with a {a, b, total} payload.

The first account is the target; any further accounts are passed through
in order. Accounts are named by name or base58 key. The payload total is
ignored by the program; the stored total is always a+b.

Exit codes:
  0 - Transition committed
  1 - Transition rejected by the program (logged, nothing written)
  2 - Command error (unknown account, bad flags, etc.)

Examples:
  sumstate invoke counter --a 1 --b 2
  sumstate invoke counter --payload-hex 010000000200000000000000
  sumstate invoke counter --a 1 --b 2 --readonly
  sumstate invoke counter --a 1 --b 2 --batch deploy-7 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeProgram(opts, args, cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.A, "a", 0, "payload a")
	cmd.Flags().Uint32Var(&opts.B, "b", 0, "payload b")
	cmd.Flags().Uint32Var(&opts.Total, "total", 0, "payload total (ignored by the program)")
	cmd.Flags().StringVar(&opts.PayloadHex, "payload-hex", "", "raw payload as hex, instead of --a/--b/--total")
	cmd.Flags().BoolVar(&opts.Readonly, "readonly", false, "pass accounts read-only")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "batch token (default generated)")

	return cmd
}

func invokeProgram(opts *InvokeOptions, refs []string, cmd *cobra.Command) error {
	ctx := context.Background()

	payload, err := opts.payload(cmd)
	if err != nil {
		return err
	}

	l, err := openLedger(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	ix := runtime.Instruction{
		ProgramID: l.programID,
		Data:      payload,
		Batch:     opts.Batch,
	}
	keys, err := resolveKeys(ctx, l.store, refs)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)
	for i, key := range keys {
		f.VerboseLog("account %d: %s -> %s", i, refs[i], key)
		ix.Accounts = append(ix.Accounts, runtime.AccountMeta{Pubkey: key, IsWritable: !opts.Readonly})
	}

	receipt, err := l.runtime.Invoke(ctx, ix)
	if err != nil {
		var re *runtime.RuntimeError
		if opts.Format == "json" && errors.As(err, &re) {
			_ = opts.formatter(cmd).Error(string(re.Code), re.Message, nil)
		}
		return WrapExitError(ExitCommandError, "invoke failed", err)
	}

	result := InvokeResult{
		TransitionID: receipt.TransitionID,
		Batch:        receipt.Batch,
		Seq:          receipt.Seq,
		Status:       string(receipt.Status.Code),
		Message:      receipt.Status.Message(),
		Accounts:     refs,
		Payload:      hex.EncodeToString(payload),
	}
	if result.Accounts == nil {
		result.Accounts = []string{}
	}
	if len(keys) > 0 {
		if acct, err := l.store.GetAccount(ctx, keys[0]); err == nil {
			if r, err := record.Decode(acct.Data); err == nil {
				result.Record = &r
			}
		}
	}

	if !receipt.Status.OK() {
		if err := f.Failure(result.Status, result.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("transition rejected: %s", result.Status))
	}
	return f.Success(result)
}

// payload builds the instruction data from the flags.
func (o *InvokeOptions) payload(cmd *cobra.Command) ([]byte, error) {
	flags := cmd.Flags()
	if flags.Changed("payload-hex") {
		if flags.Changed("a") || flags.Changed("b") || flags.Changed("total") {
			return nil, NewExitError(ExitCommandError, "--payload-hex cannot be combined with --a, --b or --total")
		}
		data, err := hex.DecodeString(o.PayloadHex)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --payload-hex", err)
		}
		return data, nil
	}
	return record.Encode(record.Record{A: o.A, B: o.B, Total: o.Total}), nil
}

// resolveKeys maps account refs to keys. A base58 key that is not stored
// passes through so the runtime reports it.
func resolveKeys(ctx context.Context, st *store.Store, refs []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(refs))
	for _, ref := range refs {
		acct, err := st.ResolveAccount(ctx, ref)
		switch {
		case err == nil:
			keys = append(keys, acct.Key)
		case errors.Is(err, store.ErrNotFound):
			key, perr := solana.PublicKeyFromBase58(ref)
			if perr != nil {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("account not found: %s", ref))
			}
			keys = append(keys, key)
		default:
			return nil, WrapExitError(ExitCommandError, "failed to read account", err)
		}
	}
	return keys, nil
}
