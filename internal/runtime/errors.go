package runtime

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrorCode categorizes runtime failures.
type ErrorCode string

const (
	// ErrCodeUnknownProgram indicates no program is registered under the ID.
	ErrCodeUnknownProgram ErrorCode = "UNKNOWN_PROGRAM"

	// ErrCodeUnknownAccount indicates an instruction names an account the
	// store does not hold.
	ErrCodeUnknownAccount ErrorCode = "UNKNOWN_ACCOUNT"

	// ErrCodeDuplicateProgram indicates Register was called twice for one ID.
	ErrCodeDuplicateProgram ErrorCode = "DUPLICATE_PROGRAM"

	// ErrCodeHistoryMismatch indicates an account's write history does not
	// chain into its current data.
	ErrCodeHistoryMismatch ErrorCode = "HISTORY_MISMATCH"
)

// RuntimeError is a failure of the runtime itself, as opposed to a program
// rejecting an instruction.
type RuntimeError struct {
	Code    ErrorCode
	Message string
	Key     solana.PublicKey
}

func (e *RuntimeError) Error() string {
	if !e.Key.IsZero() {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownProgram reports whether err is an unknown program error.
func IsUnknownProgram(err error) bool {
	return hasCode(err, ErrCodeUnknownProgram)
}

// IsUnknownAccount reports whether err is an unknown account error.
func IsUnknownAccount(err error) bool {
	return hasCode(err, ErrCodeUnknownAccount)
}

// IsHistoryMismatch reports whether err is a history verification failure.
func IsHistoryMismatch(err error) bool {
	return hasCode(err, ErrCodeHistoryMismatch)
}

func hasCode(err error, code ErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
