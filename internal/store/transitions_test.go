package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransition(id string, seq int64, programID solana.PublicKey, accounts ...solana.PublicKey) Transition {
	return Transition{
		ID:        id,
		Batch:     "batch-1",
		Seq:       seq,
		ProgramID: programID,
		Accounts:  accounts,
		Payload:   make([]byte, 12),
		Status:    "OK",
	}
}

func TestApplyTransition_CommitsWritesAndLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	acct := createTestAccount("counter", programID)
	require.NoError(t, s.CreateAccount(ctx, acct))

	after := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	tr := createTestTransition("t1", 1, programID, acct.Key)
	require.NoError(t, s.ApplyTransition(ctx, tr, []AccountWrite{
		{Key: acct.Key, Before: acct.Data, After: after},
	}))

	got, err := s.GetAccount(ctx, acct.Key)
	require.NoError(t, err)
	assert.Equal(t, after, got.Data)
	assert.Equal(t, int64(1), got.Seq)

	log, err := s.ReadTransitions(ctx, TransitionFilter{})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "t1", log[0].ID)
	assert.Equal(t, programID, log[0].ProgramID)
	assert.Equal(t, []solana.PublicKey{acct.Key}, log[0].Accounts)
	assert.Equal(t, "OK", log[0].Status)

	writes, err := s.ReadWrites(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, writes, 1)
	assert.Equal(t, acct.Data, writes[0].Before)
	assert.Equal(t, after, writes[0].After)

	seq, err := s.MaxSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func TestApplyTransition_RejectedLoggedWithoutWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	acct := createTestAccount("counter", solana.NewWallet().PublicKey())
	require.NoError(t, s.CreateAccount(ctx, acct))

	tr := createTestTransition("t1", 1, programID, acct.Key)
	tr.Status = "WRONG_OWNER"
	tr.Message = "owner mismatch"
	require.NoError(t, s.ApplyTransition(ctx, tr, nil))

	got, err := s.GetAccount(ctx, acct.Key)
	require.NoError(t, err)
	assert.Equal(t, acct.Data, got.Data)
	assert.Equal(t, int64(0), got.Seq)

	log, err := s.ReadTransitions(ctx, TransitionFilter{Status: "WRONG_OWNER"})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "owner mismatch", log[0].Message)
}

func TestApplyTransition_AtomicOnUnknownAccount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	acct := createTestAccount("known", programID)
	require.NoError(t, s.CreateAccount(ctx, acct))
	missing := solana.NewWallet().PublicKey()

	tr := createTestTransition("t1", 1, programID, acct.Key, missing)
	err := s.ApplyTransition(ctx, tr, []AccountWrite{
		{Key: acct.Key, Before: acct.Data, After: []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}},
		{Key: missing, Before: []byte{}, After: []byte{1}},
	})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetAccount(ctx, acct.Key)
	require.NoError(t, err)
	assert.Equal(t, acct.Data, got.Data, "first write must be rolled back")

	log, err := s.ReadTransitions(ctx, TransitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, log, "log row must be rolled back")
}

func TestApplyTransition_DuplicateSeqRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	require.NoError(t, s.ApplyTransition(ctx, createTestTransition("t1", 1, programID), nil))
	assert.Error(t, s.ApplyTransition(ctx, createTestTransition("t2", 1, programID), nil))
}

func TestReadTransitions_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	a := createTestAccount("a", programID)
	b := createTestAccount("b", programID)
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, b))

	for i := 1; i <= 6; i++ {
		first := a.Key
		if i%2 == 0 {
			first = b.Key
		}
		tr := createTestTransition(fmt.Sprintf("t%d", i), int64(i), programID, first)
		if i > 3 {
			tr.Batch = "batch-2"
		}
		if i == 5 {
			tr.Status = "DECODE_PAYLOAD"
		}
		require.NoError(t, s.ApplyTransition(ctx, tr, nil))
	}

	all, err := s.ReadTransitions(ctx, TransitionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, tr := range all {
		assert.Equal(t, int64(i+1), tr.Seq, "seq order")
	}

	batch, err := s.ReadTransitions(ctx, TransitionFilter{Batch: "batch-2"})
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	byAccount, err := s.ReadTransitions(ctx, TransitionFilter{Account: b.Key})
	require.NoError(t, err)
	require.Len(t, byAccount, 3)
	assert.Equal(t, "t2", byAccount[0].ID)

	failed, err := s.ReadTransitions(ctx, TransitionFilter{Status: "DECODE_PAYLOAD"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "t5", failed[0].ID)

	limited, err := s.ReadTransitions(ctx, TransitionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestReadTransitions_EmptyAccountList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tr := createTestTransition("t1", 1, solana.NewWallet().PublicKey())
	tr.Status = "MISSING_ACCOUNT"
	require.NoError(t, s.ApplyTransition(ctx, tr, nil))

	log, err := s.ReadTransitions(ctx, TransitionFilter{})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Empty(t, log[0].Accounts)
}

func TestAccountHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	programID := solana.NewWallet().PublicKey()

	acct := createTestAccount("counter", programID)
	other := createTestAccount("other", programID)
	require.NoError(t, s.CreateAccount(ctx, acct))
	require.NoError(t, s.CreateAccount(ctx, other))

	first := []byte{1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0}
	second := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}

	require.NoError(t, s.ApplyTransition(ctx, createTestTransition("t1", 1, programID, acct.Key),
		[]AccountWrite{{Key: acct.Key, Before: acct.Data, After: first}}))
	require.NoError(t, s.ApplyTransition(ctx, createTestTransition("t2", 2, programID, other.Key),
		[]AccountWrite{{Key: other.Key, Before: other.Data, After: second}}))
	require.NoError(t, s.ApplyTransition(ctx, createTestTransition("t3", 3, programID, acct.Key),
		[]AccountWrite{{Key: acct.Key, Before: first, After: second}}))

	history, err := s.AccountHistory(ctx, acct.Key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].Seq)
	assert.Equal(t, "t1", history[0].TransitionID)
	assert.Equal(t, first, history[0].After)
	assert.Equal(t, int64(3), history[1].Seq)
	assert.Equal(t, first, history[1].Before)
	assert.Equal(t, second, history[1].After)

	empty, err := s.AccountHistory(ctx, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
