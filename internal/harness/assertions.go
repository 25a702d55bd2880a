package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/runtime"
	"github.com/roach88/sumstate/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] seq=%d %v payload=%s -> %s\n",
			i+1, event.Seq, event.Accounts, event.Payload, event.Status)
	}

	return buf.String()
}

// AssertionContext provides ledger access for assertions.
type AssertionContext struct {
	Ctx     context.Context
	Store   *store.Store
	Runtime *runtime.Runtime
	Keys    map[string]solana.PublicKey
	Initial map[string][]byte
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalRecord:
			err = assertFinalRecord(actx, result.Trace, a)
		case AssertUnchanged:
			err = assertUnchanged(actx, result.Trace, a)
		case AssertStatusCount:
			err = assertStatusCount(result, a)
		case AssertHistoryConsistent:
			err = assertHistoryConsistent(actx, result.Trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertFinalRecord checks that an account's final data decodes to the
// expected record.
func assertFinalRecord(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	data, err := finalData(actx, a.Account)
	if err != nil {
		return err
	}

	got, err := record.Decode(data)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalRecord,
			Expected: fmt.Sprintf("%s holds %s", a.Account, a.Record),
			Actual:   fmt.Sprintf("data does not decode: %v", err),
			Trace:    trace,
		}
	}
	if got != *a.Record {
		return &AssertionError{
			Type:     AssertFinalRecord,
			Expected: fmt.Sprintf("%s holds %s", a.Account, a.Record),
			Actual:   got.String(),
			Trace:    trace,
		}
	}
	return nil
}

// assertUnchanged checks that an account's data is byte-identical to its
// initial data.
func assertUnchanged(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	data, err := finalData(actx, a.Account)
	if err != nil {
		return err
	}

	initial := actx.Initial[a.Account]
	if !bytes.Equal(data, initial) {
		return &AssertionError{
			Type:     AssertUnchanged,
			Expected: fmt.Sprintf("%s data %x", a.Account, initial),
			Actual:   fmt.Sprintf("%x", data),
			Trace:    trace,
		}
	}
	return nil
}

// assertStatusCount checks how many steps ended with a status.
func assertStatusCount(result *Result, a Assertion) error {
	if n := result.StatusCount(a.Status); n != a.Count {
		return &AssertionError{
			Type:     AssertStatusCount,
			Expected: fmt.Sprintf("%d steps with status %s", a.Count, a.Status),
			Actual:   fmt.Sprintf("%d", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertHistoryConsistent checks that every account's write history chains
// into its current data.
func assertHistoryConsistent(actx *AssertionContext, trace []TraceEvent) error {
	if err := actx.Runtime.VerifyAll(actx.Ctx); err != nil {
		return &AssertionError{
			Type:     AssertHistoryConsistent,
			Expected: "write history chains into current data",
			Actual:   err.Error(),
			Trace:    trace,
		}
	}
	return nil
}

func finalData(actx *AssertionContext, name string) ([]byte, error) {
	key, ok := actx.Keys[name]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", name)
	}
	acct, err := actx.Store.GetAccount(actx.Ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return acct.Data, nil
}
