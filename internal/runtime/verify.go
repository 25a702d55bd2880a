package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/store"
)

// Verify replays the recorded writes of one account and checks that they
// chain: each write starts from the previous write's result, and the last
// result is the account's current data at the last write's seq.
// An account with no writes trivially verifies.
func (r *Runtime) Verify(ctx context.Context, key solana.PublicKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verify(ctx, key)
}

// VerifyAll runs Verify over every stored account and returns the first
// mismatch.
func (r *Runtime) VerifyAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	for _, acct := range accounts {
		if err := r.verify(ctx, acct.Key); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) verify(ctx context.Context, key solana.PublicKey) error {
	acct, err := r.store.GetAccount(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return &RuntimeError{Code: ErrCodeUnknownAccount, Message: "account not found", Key: key}
	}
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	history, err := r.store.AccountHistory(ctx, key)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(history) == 0 {
		if acct.Seq != 0 {
			return mismatch(key, "account seq %d has no recorded write", acct.Seq)
		}
		return nil
	}

	current := history[0].Before
	for _, h := range history {
		if !bytes.Equal(h.Before, current) {
			return mismatch(key, "write at seq %d does not start from the previous result", h.Seq)
		}
		current = h.After
	}

	last := history[len(history)-1]
	if !bytes.Equal(acct.Data, current) {
		return mismatch(key, "current data differs from write at seq %d", last.Seq)
	}
	if acct.Seq != last.Seq {
		return mismatch(key, "account seq %d, last write at seq %d", acct.Seq, last.Seq)
	}
	return nil
}

func mismatch(key solana.PublicKey, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHistoryMismatch,
		Message: fmt.Sprintf(format, args...),
		Key:     key,
	}
}
