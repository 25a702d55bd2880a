package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/genesis"
	"github.com/roach88/sumstate/internal/program"
	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/runtime"
	"github.com/roach88/sumstate/internal/store"
	"github.com/roach88/sumstate/internal/testutil"
)

// Harness executes one scenario against a fresh ledger.
type Harness struct {
	store     *store.Store
	runtime   *runtime.Runtime
	programID solana.PublicKey
	keys      map[string]solana.PublicKey
	initial   map[string][]byte
	logger    *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger for the harness and the runtime it drives.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock and numbered batch tokens, so identical scenarios produce identical
// traces. Steps run through the real runtime and handler.
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		programID: testutil.Key(labelOr(scenario.Program, OwnerProgram)),
		keys:      make(map[string]solana.PublicKey),
		initial:   make(map[string][]byte),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.runtime, err = runtime.New(ctx, st,
		runtime.WithClock(testutil.NewDeterministicClock()),
		runtime.WithBatchGenerator(testutil.NewFixedBatchGenerator(scenario.Batch)),
		runtime.WithLogger(h.logger),
		runtime.WithProgram(h.programID, program.New(program.WithLogger(h.logger))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	if err := h.createAccounts(ctx, scenario.Accounts); err != nil {
		return nil, fmt.Errorf("failed to create accounts: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, a := range scenario.Accounts {
		acct, err := st.GetAccount(ctx, h.keys[a.Name])
		if err != nil {
			return nil, fmt.Errorf("read final state: %w", err)
		}
		result.State[a.Name] = hex.EncodeToString(acct.Data)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Runtime: h.runtime,
		Keys:    h.keys,
		Initial: h.initial,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// createAccounts creates the declared accounts in one transaction.
func (h *Harness) createAccounts(ctx context.Context, specs []AccountSpec) error {
	accounts := make([]store.Account, 0, len(specs))
	for _, spec := range specs {
		owner := h.ownerKey(spec.Owner)
		key, err := genesis.DeriveKey(h.programID, spec.Name, owner)
		if err != nil {
			return fmt.Errorf("account %q: %w", spec.Name, err)
		}

		data := record.Encode(record.Record{})
		switch {
		case spec.Record != nil:
			data = record.Encode(*spec.Record)
		case spec.Data != nil:
			if data, err = hex.DecodeString(*spec.Data); err != nil {
				return fmt.Errorf("account %q: data: %w", spec.Name, err)
			}
		}

		h.keys[spec.Name] = key
		h.initial[spec.Name] = data
		accounts = append(accounts, store.Account{
			Key:   key,
			Name:  spec.Name,
			Owner: owner,
			Data:  data,
		})
	}
	return h.store.CreateAccounts(ctx, accounts)
}

// ownerKey maps an owner label to a key.
func (h *Harness) ownerKey(owner string) solana.PublicKey {
	switch owner {
	case "", OwnerProgram:
		return h.programID
	case OwnerSystem:
		return solana.SystemProgramID
	default:
		return testutil.Key(owner)
	}
}

// accountKey returns the key for a step account name. Undeclared names get
// a stable key that is not in the store.
func (h *Harness) accountKey(name string) solana.PublicKey {
	if key, ok := h.keys[name]; ok {
		return key
	}
	return testutil.Key("undeclared/" + name)
}

// executeStep invokes one step and checks its expectation.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	payload, err := step.payload()
	if err != nil {
		return err
	}

	ix := runtime.Instruction{
		ProgramID: h.programID,
		Data:      payload,
	}
	for _, name := range step.Accounts {
		ix.Accounts = append(ix.Accounts, runtime.AccountMeta{
			Pubkey:     h.accountKey(name),
			IsWritable: !step.Readonly,
		})
	}

	event := TraceEvent{
		Accounts: append([]string{}, step.Accounts...),
		Payload:  hex.EncodeToString(payload),
	}
	if len(step.Accounts) > 0 {
		event.Before = h.readRecord(ctx, step.Accounts[0])
	}

	receipt, err := h.runtime.Invoke(ctx, ix)
	var re *runtime.RuntimeError
	switch {
	case errors.As(err, &re):
		event.Status = string(re.Code)
	case err != nil:
		return err
	default:
		event.Seq = receipt.Seq
		event.Batch = receipt.Batch
		event.Status = string(receipt.Status.Code)
	}

	if len(step.Accounts) > 0 {
		event.After = h.readRecord(ctx, step.Accounts[0])
	}
	result.AddTrace(event)

	h.logger.Info("step completed",
		"step", i,
		"seq", event.Seq,
		"status", event.Status,
	)

	want := Expect{Status: string(program.StatusOK)}
	if step.Expect != nil {
		want = *step.Expect
	}
	if event.Status != want.Status {
		result.AddError(fmt.Sprintf("step %d: status %s, expected %s", i, event.Status, want.Status))
	}
	if want.Record != nil {
		switch {
		case event.After == nil:
			result.AddError(fmt.Sprintf("step %d: expected record %s, account data does not decode", i, want.Record))
		case *event.After != *want.Record:
			result.AddError(fmt.Sprintf("step %d: record %s, expected %s", i, event.After, want.Record))
		}
	}
	return nil
}

// readRecord decodes the stored record of a named account, or nil.
func (h *Harness) readRecord(ctx context.Context, name string) *record.Record {
	key, ok := h.keys[name]
	if !ok {
		return nil
	}
	acct, err := h.store.GetAccount(ctx, key)
	if err != nil {
		return nil
	}
	r, err := record.Decode(acct.Data)
	if err != nil {
		return nil
	}
	return &r
}

func (s Step) payload() ([]byte, error) {
	if s.Payload != nil {
		return record.Encode(*s.Payload), nil
	}
	if s.PayloadHex != nil {
		data, err := hex.DecodeString(*s.PayloadHex)
		if err != nil {
			return nil, fmt.Errorf("payload_hex: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("payload or payload_hex is required")
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
