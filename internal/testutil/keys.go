package testutil

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// Key derives a stable public key from a label, so tests and golden files
// can name accounts without random keys.
func Key(label string) solana.PublicKey {
	sum := sha256.Sum256([]byte("sumstate/testutil/key\x00" + label))
	return solana.PublicKeyFromBytes(sum[:])
}
