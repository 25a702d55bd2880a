package store

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestAccount returns an account with a random key and 12 zero bytes.
func createTestAccount(name string, owner solana.PublicKey) Account {
	return Account{
		Key:   solana.NewWallet().PublicKey(),
		Name:  name,
		Owner: owner,
		Data:  make([]byte, 12),
	}
}
