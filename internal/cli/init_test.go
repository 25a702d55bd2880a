package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesDatabase(t *testing.T) {
	db := testDB(t)

	out := mustRun(t, db, "init")
	assert.Contains(t, out, "Ledger ready: "+db)
	assert.Contains(t, out, DefaultProgramID().String())

	_, err := os.Stat(db)
	assert.NoError(t, err)
}

func TestInit_ReportsExistingLedger(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "account", "create", "counter")
	mustRun(t, db, "invoke", "counter", "--a", "1", "--b", "2")

	var result InitResult
	out := mustRun(t, db, "--format", "json", "init")
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, result.Accounts)
	assert.Equal(t, int64(1), result.Seq)
}

func TestInit_CustomProgramID(t *testing.T) {
	const programID = "11111111111111111111111111111112"

	var result InitResult
	out := mustRun(t, testDB(t), "--program-id", programID, "--format", "json", "init")
	decodeResponse(t, out, &result)
	assert.Equal(t, programID, result.ProgramID)
}

func TestInit_UnopenableDatabase(t *testing.T) {
	_, err := cliRun(t, "/nonexistent/dir/ledger.db", "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
