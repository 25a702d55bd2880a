package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/sumstate/internal/program"
	"github.com/roach88/sumstate/internal/runtime"
	"github.com/roach88/sumstate/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Database  string
	ProgramID string // base58; empty means DefaultProgramID
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// DefaultDatabase is the ledger path used when --db is not given.
const DefaultDatabase = "sumstate.db"

// programSeed derives the default program ID from the system program.
const programSeed = "sumstate/program"

// DefaultProgramID returns the program ID used when --program-id is not given.
func DefaultProgramID() solana.PublicKey {
	key, err := solana.CreateWithSeed(solana.SystemProgramID, programSeed, solana.SystemProgramID)
	if err != nil {
		panic(fmt.Sprintf("derive default program id: %v", err))
	}
	return key
}

// NewRootCommand creates the root command for the sumstate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sumstate",
		Short: "sumstate - a single-program account ledger",
		Long: `A ledger of fixed-layout accounts driven by one program.

Each invocation decodes {a, b, total} from the payload, checks that the
program owns the target account, and overwrites the account with
{a, b, a+b}. Every invocation is logged, committed or rejected.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.programKey(); err != nil {
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", DefaultDatabase, "path to SQLite ledger")
	cmd.PersistentFlags().StringVar(&opts.ProgramID, "program-id", "", "program ID as base58 (default derived)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewGenesisCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// programKey parses --program-id.
func (o *RootOptions) programKey() (solana.PublicKey, error) {
	if o.ProgramID == "" {
		return DefaultProgramID(), nil
	}
	key, err := solana.PublicKeyFromBase58(o.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --program-id %q: %w", o.ProgramID, err)
	}
	return key, nil
}

// database returns the ledger path.
func (o *RootOptions) database() string {
	if o.Database == "" {
		return DefaultDatabase
	}
	return o.Database
}

// logger returns a text logger on w. Warnings only unless --verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// ledger is an open store with the program registered on a runtime.
type ledger struct {
	store     *store.Store
	runtime   *runtime.Runtime
	programID solana.PublicKey
}

// openLedger opens the store and builds a runtime around it.
// The caller must Close the returned ledger.
func openLedger(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*ledger, error) {
	programID, err := opts.programKey()
	if err != nil {
		return nil, NewExitError(ExitCommandError, err.Error())
	}

	st, err := store.Open(opts.database())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	logger := opts.logger(cmd.ErrOrStderr())
	rt, err := runtime.New(ctx, st,
		runtime.WithLogger(logger),
		runtime.WithProgram(programID, program.New(program.WithLogger(logger))),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start runtime", err)
	}

	return &ledger{store: st, runtime: rt, programID: programID}, nil
}

func (l *ledger) Close() error {
	return l.store.Close()
}
