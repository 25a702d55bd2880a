package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/account"
	"github.com/roach88/sumstate/internal/program"
	"github.com/roach88/sumstate/internal/store"
)

// Program is an on-ledger program the runtime can invoke.
// program.Handler satisfies it.
type Program interface {
	Process(authority solana.PublicKey, accounts []account.Handle, payload []byte) program.ExitStatus
}

// AccountMeta names one account of an instruction and whether the program
// may write it.
type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsWritable bool
}

// Instruction is one request to run a program.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
	// Batch correlates related invocations. Empty means generate one.
	Batch string
}

// Keys returns the account keys in instruction order.
func (ix Instruction) Keys() []solana.PublicKey {
	keys := make([]solana.PublicKey, len(ix.Accounts))
	for i, m := range ix.Accounts {
		keys[i] = m.Pubkey
	}
	return keys
}

// Receipt is the outcome of one invocation.
type Receipt struct {
	TransitionID string
	Batch        string
	Seq          int64
	Status       program.ExitStatus
	// Writes holds the committed account images. Empty unless Status is OK
	// and some writable account changed.
	Writes []store.AccountWrite
}

// Runtime invokes registered programs against stored accounts.
type Runtime struct {
	mu       sync.Mutex
	store    *store.Store
	clock    SeqClock
	batches  BatchGenerator
	programs map[solana.PublicKey]Program
	logger   *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the seq clock. Default: a Clock resumed from the highest
// seq in the store.
func WithClock(clock SeqClock) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithBatchGenerator sets the batch token source. Default: UUIDv7Generator.
func WithBatchGenerator(gen BatchGenerator) Option {
	return func(r *Runtime) {
		r.batches = gen
	}
}

// WithProgram registers p under id at construction time.
func WithProgram(id solana.PublicKey, p Program) Option {
	return func(r *Runtime) {
		r.programs[id] = p
	}
}

// New creates a Runtime over st.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		store:    st,
		batches:  UUIDv7Generator{},
		programs: make(map[solana.PublicKey]Program),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.clock == nil {
		seq, err := st.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("runtime: resume clock: %w", err)
		}
		r.clock = NewClockAt(seq)
	}
	return r, nil
}

// Register adds a program under id.
func (r *Runtime) Register(id solana.PublicKey, p Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id.IsZero() {
		return fmt.Errorf("register: program id is required")
	}
	if _, ok := r.programs[id]; ok {
		return &RuntimeError{
			Code:    ErrCodeDuplicateProgram,
			Message: "program already registered",
			Key:     id,
		}
	}
	r.programs[id] = p
	return nil
}

// Invoke runs one instruction. See the package doc for the commit rules.
func (r *Runtime) Invoke(ctx context.Context, ix Instruction) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prog, ok := r.programs[ix.ProgramID]
	if !ok {
		return Receipt{}, &RuntimeError{
			Code:    ErrCodeUnknownProgram,
			Message: "no program registered",
			Key:     ix.ProgramID,
		}
	}

	handles, loaded, err := r.loadAccounts(ctx, ix.Accounts)
	if err != nil {
		return Receipt{}, err
	}

	batch := ix.Batch
	if batch == "" {
		batch = r.batches.Generate()
	}
	seq := r.clock.Next()
	keys := ix.Keys()

	id, err := TransitionID(batch, ix.ProgramID, keys, ix.Data, seq)
	if err != nil {
		return Receipt{}, fmt.Errorf("invoke: %w", err)
	}

	status := prog.Process(ix.ProgramID, handles, ix.Data)

	var writes []store.AccountWrite
	if status.OK() {
		writes, err = collectWrites(loaded)
		if err != nil {
			return Receipt{}, fmt.Errorf("invoke: %w", err)
		}
	}

	t := store.Transition{
		ID:        id,
		Batch:     batch,
		Seq:       seq,
		ProgramID: ix.ProgramID,
		Accounts:  keys,
		Payload:   ix.Data,
		Status:    string(status.Code),
		Message:   status.Message(),
	}
	if err := r.store.ApplyTransition(ctx, t, writes); err != nil {
		return Receipt{}, fmt.Errorf("invoke: %w", err)
	}

	r.logger.Info("transition",
		"seq", seq,
		"batch", batch,
		"program", ix.ProgramID,
		"status", status.Code,
		"writes", len(writes),
	)
	if !status.OK() {
		r.logger.Debug("transition rejected", "seq", seq, "error", status.Message())
	}

	return Receipt{
		TransitionID: id,
		Batch:        batch,
		Seq:          seq,
		Status:       status,
		Writes:       writes,
	}, nil
}

// loadedAccount pairs a handle with the bytes it was loaded with.
type loadedAccount struct {
	info   *account.Info
	before []byte
}

// loadAccounts builds one handle per meta. A key listed more than once
// shares a single Info, writable if any of its metas is.
func (r *Runtime) loadAccounts(ctx context.Context, metas []AccountMeta) ([]account.Handle, []*loadedAccount, error) {
	writable := make(map[solana.PublicKey]bool, len(metas))
	for _, m := range metas {
		writable[m.Pubkey] = writable[m.Pubkey] || m.IsWritable
	}

	byKey := make(map[solana.PublicKey]*loadedAccount, len(metas))
	var order []*loadedAccount
	handles := make([]account.Handle, 0, len(metas))

	for _, m := range metas {
		la, ok := byKey[m.Pubkey]
		if !ok {
			acct, err := r.store.GetAccount(ctx, m.Pubkey)
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil, &RuntimeError{
					Code:    ErrCodeUnknownAccount,
					Message: "account not found",
					Key:     m.Pubkey,
				}
			}
			if err != nil {
				return nil, nil, fmt.Errorf("invoke: %w", err)
			}

			info := account.NewInfo(acct.Key, acct.Owner, bytes.Clone(acct.Data), writable[m.Pubkey]).
				WithLamports(acct.Lamports).
				WithExecutable(acct.Executable)
			la = &loadedAccount{info: info, before: acct.Data}
			byKey[m.Pubkey] = la
			order = append(order, la)
		}
		handles = append(handles, la.info)
	}
	return handles, order, nil
}

// collectWrites returns the images of writable accounts whose data changed.
func collectWrites(loaded []*loadedAccount) ([]store.AccountWrite, error) {
	var writes []store.AccountWrite
	for _, la := range loaded {
		if !la.info.IsWritable() {
			continue
		}
		after, err := la.info.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", la.info.Key(), err)
		}
		if bytes.Equal(la.before, after) {
			continue
		}
		writes = append(writes, store.AccountWrite{
			Key:    la.info.Key(),
			Before: la.before,
			After:  after,
		})
	}
	return writes, nil
}
