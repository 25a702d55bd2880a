package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populateLog runs two committed and one rejected invocation across two
// batches.
func populateLog(t *testing.T) string {
	t.Helper()
	db := seedLedger(t)
	mustRun(t, db, "invoke", "counter", "--a", "1", "--b", "2", "--batch", "first")
	_, err := cliRun(t, db, "invoke", "foreign", "--a", "1", "--b", "2", "--batch", "first")
	require.Error(t, err)
	mustRun(t, db, "invoke", "counter", "--a", "3", "--b", "4", "--batch", "second")
	return db
}

func TestLog_Empty(t *testing.T) {
	out := mustRun(t, testDB(t), "log")
	assert.Contains(t, out, "No transitions found.")

	var result LogResult
	decodeResponse(t, mustRun(t, testDB(t), "--format", "json", "log"), &result)
	assert.Empty(t, result.Transitions)
	assert.NotNil(t, result.Transitions)
}

func TestLog_AllTransitions(t *testing.T) {
	db := populateLog(t)

	var result LogResult
	decodeResponse(t, mustRun(t, db, "--format", "json", "log"), &result)
	require.Len(t, result.Transitions, 3)

	first := result.Transitions[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "OK", first.Status)
	assert.Equal(t, []string{"counter"}, first.Accounts)
	require.Len(t, first.Writes, 1)
	assert.Equal(t, LogWrite{
		Account: "counter",
		Before:  "000000000000000000000000",
		After:   "010000000200000003000000",
	}, first.Writes[0])

	rejected := result.Transitions[1]
	assert.Equal(t, "WRONG_OWNER", rejected.Status)
	assert.NotEmpty(t, rejected.Message)
	assert.Empty(t, rejected.Writes)

	assert.Equal(t, "second", result.Transitions[2].Batch)
}

func TestLog_Filters(t *testing.T) {
	db := populateLog(t)

	tests := []struct {
		name     string
		args     []string
		wantSeqs []int64
	}{
		{"status", []string{"--status", "WRONG_OWNER"}, []int64{2}},
		{"account", []string{"--account", "counter"}, []int64{1, 3}},
		{"batch", []string{"--batch", "first"}, []int64{1, 2}},
		{"limit", []string{"--limit", "1"}, []int64{1}},
		{"combined", []string{"--account", "counter", "--batch", "second"}, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result LogResult
			decodeResponse(t, mustRun(t, db, append([]string{"--format", "json", "log"}, tt.args...)...), &result)

			seqs := make([]int64, 0, len(result.Transitions))
			for _, e := range result.Transitions {
				seqs = append(seqs, e.Seq)
			}
			assert.Equal(t, tt.wantSeqs, seqs)
		})
	}
}

func TestLog_BatchSummary(t *testing.T) {
	db := populateLog(t)

	var result LogResult
	decodeResponse(t, mustRun(t, db, "--format", "json", "log", "--batch", "first"), &result)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, BatchSummary{
		Batch:      "first",
		FirstSeq:   1,
		LastSeq:    2,
		Committed:  1,
		Rejected:   1,
		LastStatus: "WRONG_OWNER",
	}, result.Batches[0])

	text := mustRun(t, db, "log", "--batch", "first")
	assert.Contains(t, text, "Batch: first (1 committed, 1 rejected, seq 1..2)")
}

func TestLog_Batches(t *testing.T) {
	db := populateLog(t)

	var result LogResult
	decodeResponse(t, mustRun(t, db, "--format", "json", "log", "--batches"), &result)
	require.Len(t, result.Batches, 2)
	assert.Equal(t, "first", result.Batches[0].Batch)
	assert.Equal(t, "second", result.Batches[1].Batch)
	assert.Empty(t, result.Transitions)

	text := mustRun(t, db, "log", "--batches")
	assert.Contains(t, text, "2 batch(es)")
}

func TestLog_TextVerbose(t *testing.T) {
	db := populateLog(t)

	out := mustRun(t, db, "--verbose", "log")
	assert.Contains(t, out, "✓     1  OK")
	assert.Contains(t, out, "✗     2  WRONG_OWNER")
	assert.Contains(t, out, "counter: {a:0, b:0, total:0} -> {a:1, b:2, total:3}")
	assert.Contains(t, out, "counter: {a:1, b:2, total:3} -> {a:3, b:4, total:7}")
}

func TestLog_UnknownAccount(t *testing.T) {
	_, err := cliRun(t, testDB(t), "log", "--account", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
