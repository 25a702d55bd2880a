package program

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/account"
	"github.com/roach88/sumstate/internal/record"
)

// Handler performs the sum transition. It holds no per-invocation state and
// is safe to share; concurrent calls against the same account are the
// runtime's responsibility to serialize.
type Handler struct {
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for debug tracing of transitions.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Handler.
func New(opts ...Option) *Handler {
	h := &Handler{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs one transition against accounts[0] under authority.
// Only the first account is read or written; the rest are ignored.
// Returns a *TransitionError on rejection, in which case no account data
// has changed.
func (h *Handler) Handle(authority solana.PublicKey, accounts []account.Handle, payload []byte) error {
	if len(accounts) == 0 {
		return newMissingAccountError()
	}
	acct := accounts[0]

	incoming, err := record.Decode(payload)
	if err != nil {
		return newDecodePayloadError(err)
	}
	h.logger.Debug("incoming record", "record", incoming.String(), "sum", incoming.Sum())

	if !acct.Owner().Equals(authority) {
		h.logger.Debug("owner mismatch",
			"account", acct.Key(),
			"owner", acct.Owner(),
			"authority", authority,
		)
		return newWrongOwnerError(acct.Key(), acct.Owner(), authority)
	}

	current, err := readState(acct)
	if err != nil {
		return err
	}

	next := current
	next.A = incoming.A
	next.B = incoming.B
	next = next.Recompute()

	if err := writeState(acct, next); err != nil {
		return err
	}

	h.logger.Debug("record committed",
		"account", acct.Key(),
		"before", current.String(),
		"after", next.String(),
	)
	return nil
}

// Process is the runtime entrypoint. It reports the outcome of Handle as an
// ExitStatus.
func (h *Handler) Process(authority solana.PublicKey, accounts []account.Handle, payload []byte) ExitStatus {
	return StatusOf(h.Handle(authority, accounts, payload))
}

func readState(acct account.Handle) (record.Record, error) {
	data, release, err := acct.Borrow()
	if err != nil {
		return record.Record{}, newBorrowError(acct.Key(), ErrCodeAccountBorrowed, err)
	}
	defer release()

	current, err := record.Decode(data)
	if err != nil {
		return record.Record{}, newDecodeAccountStateError(acct.Key(), err)
	}
	return current, nil
}

func writeState(acct account.Handle, r record.Record) error {
	data, release, err := acct.BorrowMut()
	if err != nil {
		code := ErrCodeAccountBorrowed
		if errors.Is(err, account.ErrNotWritable) {
			code = ErrCodeAccountNotWritable
		}
		return newBorrowError(acct.Key(), code, err)
	}
	defer release()

	// The length was checked by readState, but another handle
	// implementation may resize between borrows.
	if err := record.EncodeInto(data, r); err != nil {
		return newDecodeAccountStateError(acct.Key(), err)
	}
	return nil
}
