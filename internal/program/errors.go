package program

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrorCode categorizes transition failures.
type ErrorCode string

const (
	// ErrCodeMissingAccount indicates the account list was empty.
	ErrCodeMissingAccount ErrorCode = "MISSING_ACCOUNT"

	// ErrCodeDecodePayload indicates the payload is not one 12-byte record.
	ErrCodeDecodePayload ErrorCode = "DECODE_PAYLOAD"

	// ErrCodeDecodeAccountState indicates the account data is not one 12-byte record.
	ErrCodeDecodeAccountState ErrorCode = "DECODE_ACCOUNT_STATE"

	// ErrCodeWrongOwner indicates the account is owned by a different authority.
	ErrCodeWrongOwner ErrorCode = "WRONG_OWNER"

	// ErrCodeAccountNotWritable indicates the account was passed read-only.
	ErrCodeAccountNotWritable ErrorCode = "ACCOUNT_NOT_WRITABLE"

	// ErrCodeAccountBorrowed indicates the account data was already borrowed.
	ErrCodeAccountBorrowed ErrorCode = "ACCOUNT_BORROWED"
)

// TransitionError is returned for every rejected transition.
// Rejections are scoped to one invocation; none are fatal to the host.
type TransitionError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Account is the account involved, zero for MISSING_ACCOUNT and DECODE_PAYLOAD.
	Account solana.PublicKey

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if !e.Account.IsZero() {
		msg = fmt.Sprintf("%s (account=%s)", msg, e.Account)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Is matches any TransitionError with the same code, so the sentinels below
// work with errors.Is.
func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*TransitionError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrMissingAccount     = &TransitionError{Code: ErrCodeMissingAccount}
	ErrDecodePayload      = &TransitionError{Code: ErrCodeDecodePayload}
	ErrDecodeAccountState = &TransitionError{Code: ErrCodeDecodeAccountState}
	ErrWrongOwner         = &TransitionError{Code: ErrCodeWrongOwner}
	ErrAccountNotWritable = &TransitionError{Code: ErrCodeAccountNotWritable}
	ErrAccountBorrowed    = &TransitionError{Code: ErrCodeAccountBorrowed}
)

// CodeOf returns the code of a TransitionError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsDecodeError reports whether err is a payload or account state decode failure.
func IsDecodeError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDecodePayload, ErrCodeDecodeAccountState:
		return true
	}
	return false
}

// IsAuthorizationError reports whether err refused the write on
// ownership or writability grounds.
func IsAuthorizationError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeWrongOwner, ErrCodeAccountNotWritable:
		return true
	}
	return false
}

func newMissingAccountError() *TransitionError {
	return &TransitionError{
		Code:    ErrCodeMissingAccount,
		Message: "instruction requires at least one account",
	}
}

func newDecodePayloadError(err error) *TransitionError {
	return &TransitionError{
		Code:    ErrCodeDecodePayload,
		Message: "instruction payload is not a valid record",
		Err:     err,
	}
}

func newDecodeAccountStateError(key solana.PublicKey, err error) *TransitionError {
	return &TransitionError{
		Code:    ErrCodeDecodeAccountState,
		Message: "account data is not a valid record",
		Account: key,
		Err:     err,
	}
}

func newWrongOwnerError(key, owner, authority solana.PublicKey) *TransitionError {
	return &TransitionError{
		Code:    ErrCodeWrongOwner,
		Message: fmt.Sprintf("account owned by %s, executing as %s", owner, authority),
		Account: key,
	}
}

func newBorrowError(key solana.PublicKey, code ErrorCode, err error) *TransitionError {
	msg := "account data already borrowed"
	if code == ErrCodeAccountNotWritable {
		msg = "account was not passed as writable"
	}
	return &TransitionError{
		Code:    code,
		Message: msg,
		Account: key,
		Err:     err,
	}
}
