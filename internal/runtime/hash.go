package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DomainTransition is the hash domain for transition IDs.
// The version suffix leaves room to change the preimage later.
const DomainTransition = "sumstate/transition/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// transitionPreimage fixes the field order of the hashed JSON.
type transitionPreimage struct {
	Batch     string             `json:"batch"`
	ProgramID solana.PublicKey   `json:"program_id"`
	Accounts  []solana.PublicKey `json:"accounts"`
	Payload   []byte             `json:"payload"`
	Seq       int64              `json:"seq"`
}

// TransitionID computes the content-addressed ID of a transition.
// The same inputs always give the same ID, so a replayed log keeps its IDs.
// The outcome is not part of the ID: it records what was asked, not what
// happened.
func TransitionID(batch string, programID solana.PublicKey, accounts []solana.PublicKey, payload []byte, seq int64) (string, error) {
	if accounts == nil {
		accounts = []solana.PublicKey{}
	}
	if payload == nil {
		payload = []byte{}
	}
	data, err := json.Marshal(transitionPreimage{
		Batch:     batch,
		ProgramID: programID,
		Accounts:  accounts,
		Payload:   payload,
		Seq:       seq,
	})
	if err != nil {
		return "", fmt.Errorf("TransitionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTransition, data), nil
}

// MustTransitionID is like TransitionID but panics on error.
// Use only in tests.
func MustTransitionID(batch string, programID solana.PublicKey, accounts []solana.PublicKey, payload []byte, seq int64) string {
	id, err := TransitionID(batch, programID, accounts, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
