package genesis

import (
	"context"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/gagliardetto/solana-go"

	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// Owner aliases accepted in place of a base58 key.
const (
	OwnerProgram = "program"
	OwnerSystem  = "system"
)

// Account is one decoded genesis entry.
type Account struct {
	Name       string         `json:"name"`
	Key        string         `json:"key,omitempty"`
	Owner      string         `json:"owner"`
	Lamports   uint64         `json:"lamports"`
	Executable bool           `json:"executable"`
	Record     *record.Record `json:"record,omitempty"`
	Data       string         `json:"data,omitempty"`
}

type file struct {
	Accounts []Account `json:"accounts"`
}

// Error is a genesis file problem, with the CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and parses a genesis file.
func Load(path string) ([]Account, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles src, validates it against the schema, and decodes the
// accounts. name is used in error positions.
func Parse(name string, src []byte) ([]Account, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("genesis schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}

	seen := make(map[string]bool, len(f.Accounts))
	for i, acct := range f.Accounts {
		if acct.Record != nil && acct.Data != "" {
			return nil, &Error{
				Field:   fmt.Sprintf("accounts[%d]", i),
				Message: "record and data are mutually exclusive",
				Pos:     unified.LookupPath(cue.MakePath(cue.Str("accounts"), cue.Index(i))).Pos(),
			}
		}
		n := store.NormalizeName(acct.Name)
		if seen[n] {
			return nil, &Error{
				Field:   fmt.Sprintf("accounts[%d].name", i),
				Message: fmt.Sprintf("duplicate account name %q", n),
			}
		}
		seen[n] = true
	}
	if f.Accounts == nil {
		f.Accounts = []Account{}
	}
	return f.Accounts, nil
}

// Resolve turns genesis entries into store accounts under programID.
func Resolve(programID solana.PublicKey, accounts []Account) ([]store.Account, error) {
	out := make([]store.Account, 0, len(accounts))
	for _, a := range accounts {
		owner, err := ResolveOwner(programID, a.Owner)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Name, err)
		}

		var key solana.PublicKey
		if a.Key != "" {
			key, err = solana.PublicKeyFromBase58(a.Key)
			if err != nil {
				return nil, fmt.Errorf("account %q: key: %w", a.Name, err)
			}
		} else {
			key, err = DeriveKey(programID, a.Name, owner)
			if err != nil {
				return nil, fmt.Errorf("account %q: %w", a.Name, err)
			}
		}

		data, err := a.bytes()
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Name, err)
		}

		out = append(out, store.Account{
			Key:        key,
			Name:       a.Name,
			Owner:      owner,
			Lamports:   a.Lamports,
			Executable: a.Executable,
			Data:       data,
		})
	}
	return out, nil
}

// Apply resolves accounts and creates them in one transaction.
func Apply(ctx context.Context, st *store.Store, programID solana.PublicKey, accounts []Account) ([]store.Account, error) {
	resolved, err := Resolve(programID, accounts)
	if err != nil {
		return nil, err
	}
	if err := st.CreateAccounts(ctx, resolved); err != nil {
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	return resolved, nil
}

// ResolveOwner maps an owner alias or base58 key to a public key.
// An empty owner means the program.
func ResolveOwner(programID solana.PublicKey, owner string) (solana.PublicKey, error) {
	switch owner {
	case "", OwnerProgram:
		return programID, nil
	case OwnerSystem:
		return solana.SystemProgramID, nil
	}
	key, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("owner %q: %w", owner, err)
	}
	return key, nil
}

// DeriveKey derives an account address from the program ID and name.
// Names longer than solana.MaxSeedLength bytes cannot be derived.
func DeriveKey(programID solana.PublicKey, name string, owner solana.PublicKey) (solana.PublicKey, error) {
	key, err := solana.CreateWithSeed(programID, store.NormalizeName(name), owner)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// bytes returns the initial account data: the encoded record, the hex data,
// or a zero record when neither is given.
func (a Account) bytes() ([]byte, error) {
	switch {
	case a.Record != nil:
		return record.Encode(*a.Record), nil
	case a.Data != "":
		data, err := hex.DecodeString(a.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return data, nil
	default:
		return record.Encode(record.Record{}), nil
	}
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
