package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sumstate/internal/record"
)

var ledgerFixture = filepath.Join("..", "genesis", "testdata", "ledger.cue")

func TestGenesis_CreatesAccounts(t *testing.T) {
	db := testDB(t)

	out := mustRun(t, db, "genesis", ledgerFixture)
	assert.Contains(t, out, "Created 3 account(s)")

	var list AccountList
	decodeResponse(t, mustRun(t, db, "--format", "json", "account", "list"), &list)
	require.Len(t, list.Accounts, 3)

	byName := make(map[string]AccountView)
	for _, a := range list.Accounts {
		byName[a.Name] = a
	}
	assert.Equal(t, &record.Record{A: 1, B: 2, Total: 3}, byName["preloaded"].Record)
	assert.Equal(t, uint64(1000000), byName["preloaded"].Lamports)
	assert.Equal(t, "0100000002000000", byName["raw"].Data)
	assert.Nil(t, byName["raw"].Record)

	mustRun(t, db, "invoke", "counter", "--a", "2", "--b", "3")
	_, err := cliRun(t, db, "invoke", "raw", "--a", "2", "--b", "3")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGenesis_AllOrNothing(t *testing.T) {
	db := testDB(t)
	mustRun(t, db, "account", "create", "preloaded")

	_, err := cliRun(t, db, "genesis", ledgerFixture)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var list AccountList
	decodeResponse(t, mustRun(t, db, "--format", "json", "account", "list"), &list)
	assert.Len(t, list.Accounts, 1)
}

func TestGenesis_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`accounts: [{name: "x", record: {a: -1, b: 0}}]`), 0644))

	out, err := cliRun(t, testDB(t), "--format", "json", "genesis", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid genesis file")

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_GENESIS", resp.Error.Code)
}

func TestGenesis_MissingFile(t *testing.T) {
	_, err := cliRun(t, testDB(t), "genesis", "/nonexistent/ledger.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "genesis file not found")
}
