package program

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sumstate/internal/account"
	"github.com/roach88/sumstate/internal/record"
)

var (
	testProgramID = solana.NewWallet().PublicKey()
	testOtherID   = solana.NewWallet().PublicKey()
)

func newRecordAccount(t *testing.T, owner solana.PublicKey, r record.Record, writable bool) *account.Info {
	t.Helper()
	return account.NewInfo(solana.NewWallet().PublicKey(), owner, record.Encode(r), writable)
}

func snapshot(t *testing.T, info *account.Info) []byte {
	t.Helper()
	data, err := info.Snapshot()
	require.NoError(t, err)
	return data
}

func storedRecord(t *testing.T, info *account.Info) record.Record {
	t.Helper()
	r, err := record.Decode(snapshot(t, info))
	require.NoError(t, err)
	return r
}

func TestHandle_Scenario(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{}, true)
	accounts := account.Handles(acct)

	// total in the payload is ignored
	err := h.Handle(testProgramID, accounts, record.Encode(record.Record{A: 1, B: 0, Total: 0}))
	require.NoError(t, err)
	assert.Equal(t, record.Record{A: 1, B: 0, Total: 1}, storedRecord(t, acct))

	err = h.Handle(testProgramID, accounts, record.Encode(record.Record{A: 1, B: 2, Total: 0}))
	require.NoError(t, err)
	assert.Equal(t, record.Record{A: 1, B: 2, Total: 3}, storedRecord(t, acct))
}

func TestHandle_TotalRecomputedNotAccumulated(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{A: 100, B: 200, Total: 300}, true)

	err := h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: 2, B: 3}))
	require.NoError(t, err)
	assert.Equal(t, record.Record{A: 2, B: 3, Total: 5}, storedRecord(t, acct))
}

func TestHandle_Idempotent(t *testing.T) {
	h := New()
	payload := record.Encode(record.Record{A: 17, B: 25, Total: 9999})

	once := newRecordAccount(t, testProgramID, record.Record{A: 3, B: 4, Total: 7}, true)
	twice := newRecordAccount(t, testProgramID, record.Record{A: 3, B: 4, Total: 7}, true)

	require.NoError(t, h.Handle(testProgramID, account.Handles(once), payload))
	require.NoError(t, h.Handle(testProgramID, account.Handles(twice), payload))
	require.NoError(t, h.Handle(testProgramID, account.Handles(twice), payload))

	assert.Equal(t, snapshot(t, once), snapshot(t, twice))
}

func TestHandle_DerivedFieldWraps(t *testing.T) {
	tests := []struct {
		name string
		a, b uint32
		want uint32
	}{
		{"zero", 0, 0, 0},
		{"max plus zero", math.MaxUint32, 0, math.MaxUint32},
		{"max plus one", math.MaxUint32, 1, 0},
		{"max plus max", math.MaxUint32, math.MaxUint32, math.MaxUint32 - 1},
		{"half plus half", 1 << 31, 1 << 31, 0},
	}

	h := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := newRecordAccount(t, testProgramID, record.Record{}, true)
			err := h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: tt.a, B: tt.b}))
			require.NoError(t, err)
			assert.Equal(t, record.Record{A: tt.a, B: tt.b, Total: tt.want}, storedRecord(t, acct))
		})
	}
}

func TestHandle_DerivedFieldRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{}, true)

	for i := 0; i < 500; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		require.NoError(t, h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: a, B: b, Total: rng.Uint32()})))

		got := storedRecord(t, acct)
		require.Equal(t, a, got.A)
		require.Equal(t, b, got.B)
		require.Equal(t, uint32((uint64(a)+uint64(b))%(1<<32)), got.Total)
	}
}

func TestHandle_OnlyFirstAccountTouched(t *testing.T) {
	h := New()
	first := newRecordAccount(t, testProgramID, record.Record{}, true)
	second := newRecordAccount(t, testProgramID, record.Record{A: 5, B: 5, Total: 10}, true)
	before := snapshot(t, second)

	err := h.Handle(testProgramID, account.Handles(first, second), record.Encode(record.Record{A: 1, B: 1}))
	require.NoError(t, err)

	assert.Equal(t, record.Record{A: 1, B: 1, Total: 2}, storedRecord(t, first))
	assert.Equal(t, before, snapshot(t, second))
}

func TestHandle_Rejections(t *testing.T) {
	valid := record.Encode(record.Record{A: 1, B: 2})

	tests := []struct {
		name     string
		accounts func(t *testing.T) []*account.Info
		payload  []byte
		wantCode ErrorCode
		sentinel error
	}{
		{
			name:     "no accounts",
			accounts: func(t *testing.T) []*account.Info { return nil },
			payload:  valid,
			wantCode: ErrCodeMissingAccount,
			sentinel: ErrMissingAccount,
		},
		{
			name: "short payload",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{newRecordAccount(t, testProgramID, record.Record{}, true)}
			},
			payload:  valid[:8],
			wantCode: ErrCodeDecodePayload,
			sentinel: ErrDecodePayload,
		},
		{
			name: "empty payload",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{newRecordAccount(t, testProgramID, record.Record{}, true)}
			},
			payload:  nil,
			wantCode: ErrCodeDecodePayload,
			sentinel: ErrDecodePayload,
		},
		{
			name: "long payload",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{newRecordAccount(t, testProgramID, record.Record{}, true)}
			},
			payload:  append(append([]byte{}, valid...), 0),
			wantCode: ErrCodeDecodePayload,
			sentinel: ErrDecodePayload,
		},
		{
			name: "wrong owner",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{newRecordAccount(t, testOtherID, record.Record{A: 9, B: 9, Total: 18}, true)}
			},
			payload:  valid,
			wantCode: ErrCodeWrongOwner,
			sentinel: ErrWrongOwner,
		},
		{
			name: "uninitialized account",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{account.NewInfo(solana.NewWallet().PublicKey(), testProgramID, make([]byte, 4), true)}
			},
			payload:  valid,
			wantCode: ErrCodeDecodeAccountState,
			sentinel: ErrDecodeAccountState,
		},
		{
			name: "oversized account",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{account.NewInfo(solana.NewWallet().PublicKey(), testProgramID, make([]byte, 16), true)}
			},
			payload:  valid,
			wantCode: ErrCodeDecodeAccountState,
			sentinel: ErrDecodeAccountState,
		},
		{
			name: "read-only account",
			accounts: func(t *testing.T) []*account.Info {
				return []*account.Info{newRecordAccount(t, testProgramID, record.Record{A: 4, B: 4, Total: 8}, false)}
			},
			payload:  valid,
			wantCode: ErrCodeAccountNotWritable,
			sentinel: ErrAccountNotWritable,
		},
	}

	h := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			infos := tt.accounts(t)
			before := make([][]byte, len(infos))
			for i, info := range infos {
				before[i] = snapshot(t, info)
			}

			err := h.Handle(testProgramID, account.Handles(infos...), tt.payload)
			require.Error(t, err)

			var te *TransitionError
			require.True(t, errors.As(err, &te), "expected *TransitionError, got %T", err)
			assert.Equal(t, tt.wantCode, te.Code)
			assert.ErrorIs(t, err, tt.sentinel)

			for i, info := range infos {
				assert.Equal(t, before[i], snapshot(t, info), "account %d must be unchanged", i)
			}
		})
	}
}

func TestHandle_WrongOwnerChecksBeforeState(t *testing.T) {
	h := New()
	// Malformed state owned by someone else: ownership wins.
	acct := account.NewInfo(solana.NewWallet().PublicKey(), testOtherID, []byte{1}, true)

	err := h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{}))
	assert.ErrorIs(t, err, ErrWrongOwner)
	assert.Equal(t, []byte{1}, snapshot(t, acct))
}

func TestHandle_PayloadCheckedBeforeOwner(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testOtherID, record.Record{}, true)

	err := h.Handle(testProgramID, account.Handles(acct), []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrDecodePayload)
}

func TestHandle_AuthorizationGateRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := New()

	for i := 0; i < 50; i++ {
		owner := solana.NewWallet().PublicKey()
		initial := record.Record{A: rng.Uint32(), B: rng.Uint32(), Total: rng.Uint32()}
		acct := newRecordAccount(t, owner, initial, true)
		before := snapshot(t, acct)

		err := h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: rng.Uint32(), B: rng.Uint32()}))
		require.ErrorIs(t, err, ErrWrongOwner)
		require.True(t, bytes.Equal(before, snapshot(t, acct)))
	}
}

func TestHandle_BorrowedAccount(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{}, true)

	_, release, err := acct.Borrow()
	require.NoError(t, err)

	err = h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: 1}))
	assert.ErrorIs(t, err, ErrAccountBorrowed)

	release()
	assert.Equal(t, record.Record{}, storedRecord(t, acct))
}

func TestHandle_ReleasesBorrows(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{}, true)

	require.NoError(t, h.Handle(testProgramID, account.Handles(acct), record.Encode(record.Record{A: 1})))
	require.Error(t, h.Handle(testOtherID, account.Handles(acct), record.Encode(record.Record{A: 2})))

	_, release, err := acct.BorrowMut()
	require.NoError(t, err, "handler must release every borrow")
	release()
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsDecodeError(newDecodePayloadError(nil)))
	assert.True(t, IsDecodeError(newDecodeAccountStateError(testProgramID, nil)))
	assert.False(t, IsDecodeError(newMissingAccountError()))

	assert.True(t, IsAuthorizationError(newWrongOwnerError(testProgramID, testOtherID, testProgramID)))
	assert.True(t, IsAuthorizationError(newBorrowError(testProgramID, ErrCodeAccountNotWritable, nil)))
	assert.False(t, IsAuthorizationError(newBorrowError(testProgramID, ErrCodeAccountBorrowed, nil)))

	assert.False(t, IsDecodeError(errors.New("other")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestTransitionError_Message(t *testing.T) {
	err := newWrongOwnerError(testProgramID, testOtherID, testProgramID)
	assert.Contains(t, err.Error(), "WRONG_OWNER")
	assert.Contains(t, err.Error(), testOtherID.String())

	assert.Equal(t, "MISSING_ACCOUNT", ErrMissingAccount.Error())
}

func TestProcess_ExitStatus(t *testing.T) {
	h := New()
	acct := newRecordAccount(t, testProgramID, record.Record{}, true)

	status := h.Process(testProgramID, account.Handles(acct), record.Encode(record.Record{A: 1, B: 1}))
	assert.True(t, status.OK())
	assert.Equal(t, StatusOK, status.Code)
	assert.Empty(t, status.Message())

	status = h.Process(testProgramID, nil, nil)
	assert.False(t, status.OK())
	assert.Equal(t, ErrCodeMissingAccount, status.Code)
	assert.ErrorIs(t, status.Err, ErrMissingAccount)

	assert.Equal(t, StatusInternal, StatusOf(errors.New("boom")).Code)
}
