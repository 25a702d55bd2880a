package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Account string // optional - transitions targeting this account
	Batch   string // optional - one batch, with a summary
	Status  string // optional - e.g. OK, WRONG_OWNER
	Limit   int
	Batches bool // summarize batches instead of listing transitions
}

// LogEntry is one transition in the log.
type LogEntry struct {
	Seq          int64      `json:"seq"`
	TransitionID string     `json:"transition_id"`
	Batch        string     `json:"batch"`
	Status       string     `json:"status"`
	Message      string     `json:"message,omitempty"`
	Accounts     []string   `json:"accounts"`
	Payload      string     `json:"payload"` // hex
	Writes       []LogWrite `json:"writes,omitempty"`
}

// LogWrite is one account image change of a committed transition.
type LogWrite struct {
	Account string `json:"account"`
	Before  string `json:"before"` // hex
	After   string `json:"after"`  // hex
}

// BatchSummary summarizes one batch.
type BatchSummary struct {
	Batch      string `json:"batch"`
	FirstSeq   int64  `json:"first_seq"`
	LastSeq    int64  `json:"last_seq"`
	Committed  int    `json:"committed"`
	Rejected   int    `json:"rejected"`
	LastStatus string `json:"last_status"`
}

// LogResult holds the log output.
type LogResult struct {
	Transitions []LogEntry     `json:"transitions"`
	Batches     []BatchSummary `json:"batches,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the transition log",
		Long: `Show logged transitions in sequence order.

Every invocation is logged, including rejected ones. Committed
transitions carry the before and after image of each account they
changed (shown with --verbose).

Examples:
  sumstate log
  sumstate log --account counter
  sumstate log --status WRONG_OWNER
  sumstate log --batch deploy-7
  sumstate log --batches --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "only transitions targeting this account (name or key)")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "only transitions in this batch")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only transitions with this status")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of transitions (0 = all)")
	cmd.Flags().BoolVar(&opts.Batches, "batches", false, "summarize batches")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	l, err := openLedger(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	names, err := accountNames(ctx, l.store)
	if err != nil {
		return err
	}

	result := LogResult{Transitions: []LogEntry{}}

	if opts.Batches {
		summaries, err := batchSummaries(ctx, l.store, opts.Batch)
		if err != nil {
			return err
		}
		result.Batches = summaries
		if opts.Format == "json" {
			return opts.formatter(cmd).Success(result)
		}
		return outputBatchesText(cmd, summaries)
	}

	filter := store.TransitionFilter{
		Batch:  opts.Batch,
		Status: opts.Status,
		Limit:  opts.Limit,
	}
	if opts.Account != "" {
		acct, err := resolveAccount(ctx, l.store, opts.Account)
		if err != nil {
			return err
		}
		filter.Account = acct.Key
	}

	transitions, err := l.store.ReadTransitions(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transitions", err)
	}

	for _, t := range transitions {
		entry := LogEntry{
			Seq:          t.Seq,
			TransitionID: t.ID,
			Batch:        t.Batch,
			Status:       t.Status,
			Message:      t.Message,
			Accounts:     labelKeys(t.Accounts, names),
			Payload:      hex.EncodeToString(t.Payload),
		}

		writes, err := l.store.ReadWrites(ctx, t.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read writes", err)
		}
		for _, w := range writes {
			entry.Writes = append(entry.Writes, LogWrite{
				Account: labelKey(w.Key, names),
				Before:  hex.EncodeToString(w.Before),
				After:   hex.EncodeToString(w.After),
			})
		}
		result.Transitions = append(result.Transitions, entry)
	}

	if opts.Batch != "" {
		summaries, err := batchSummaries(ctx, l.store, opts.Batch)
		if err != nil {
			return err
		}
		result.Batches = summaries
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	return outputLogText(cmd, result, opts.Verbose)
}

// batchSummaries summarizes one batch, or every batch when batch is empty.
func batchSummaries(ctx context.Context, st *store.Store, batch string) ([]BatchSummary, error) {
	batches := []string{batch}
	if batch == "" {
		var err error
		batches, err = st.ListBatches(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list batches", err)
		}
	}

	summaries := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		state, err := st.GetBatchState(ctx, b)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read batch", err)
		}
		summaries = append(summaries, BatchSummary{
			Batch:      state.Batch,
			FirstSeq:   state.FirstSeq,
			LastSeq:    state.LastSeq,
			Committed:  state.Committed,
			Rejected:   state.Rejected,
			LastStatus: state.LastStatus,
		})
	}
	return summaries, nil
}

// accountNames maps stored keys to their names.
func accountNames(ctx context.Context, st *store.Store) (map[solana.PublicKey]string, error) {
	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list accounts", err)
	}
	names := make(map[solana.PublicKey]string, len(accounts))
	for _, a := range accounts {
		if a.Name != "" {
			names[a.Key] = a.Name
		}
	}
	return names, nil
}

func labelKey(key solana.PublicKey, names map[solana.PublicKey]string) string {
	if name, ok := names[key]; ok {
		return name
	}
	return key.String()
}

func labelKeys(keys []solana.PublicKey, names map[solana.PublicKey]string) []string {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = labelKey(k, names)
	}
	return labels
}

// outputLogText outputs the log as text.
func outputLogText(cmd *cobra.Command, result LogResult, verbose bool) error {
	w := cmd.OutOrStdout()

	for _, b := range result.Batches {
		fmt.Fprintf(w, "Batch: %s (%d committed, %d rejected, seq %d..%d)\n",
			b.Batch, b.Committed, b.Rejected, b.FirstSeq, b.LastSeq)
	}

	if len(result.Transitions) == 0 {
		fmt.Fprintln(w, "No transitions found.")
		return nil
	}

	for _, e := range result.Transitions {
		mark := "✓"
		if e.Status != "OK" {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %5d  %-22s [%s] payload=%s batch=%s\n",
			mark, e.Seq, e.Status, strings.Join(e.Accounts, ", "), e.Payload, e.Batch)

		if verbose {
			if e.Message != "" {
				fmt.Fprintf(w, "    %s\n", e.Message)
			}
			for _, wr := range e.Writes {
				before, _ := hex.DecodeString(wr.Before)
				after, _ := hex.DecodeString(wr.After)
				fmt.Fprintf(w, "    %s: %s -> %s\n", wr.Account, describeData(before), describeData(after))
			}
		}
	}
	return nil
}

// outputBatchesText outputs batch summaries as text.
func outputBatchesText(cmd *cobra.Command, summaries []BatchSummary) error {
	w := cmd.OutOrStdout()

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No batches found.")
		return nil
	}

	fmt.Fprintf(w, "%d batch(es)\n", len(summaries))
	for _, b := range summaries {
		fmt.Fprintf(w, "  %-36s seq %d..%d  %d committed, %d rejected, last %s\n",
			b.Batch, b.FirstSeq, b.LastSeq, b.Committed, b.Rejected, b.LastStatus)
	}
	return nil
}
