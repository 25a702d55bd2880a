package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Transition is one logged invocation.
type Transition struct {
	ID        string
	Batch     string
	Seq       int64
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Payload   []byte
	Status    string
	Message   string
}

// AccountWrite is the before/after image of one account buffer.
type AccountWrite struct {
	Key    solana.PublicKey
	Before []byte
	After  []byte
}

// TransitionFilter narrows ReadTransitions. Zero fields match everything.
type TransitionFilter struct {
	Batch   string
	Account solana.PublicKey // matches transitions whose first account is this key
	Status  string
	Limit   int
}

// ApplyTransition appends t to the log and applies every write, in one SQL
// transaction. Writes stamp the account row with t.Seq.
//
// Either everything lands or nothing does.
func (s *Store) ApplyTransition(ctx context.Context, t Transition, writes []AccountWrite) error {
	accountsJSON, err := marshalKeys(t.Accounts)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}

	payload := t.Payload
	if payload == nil {
		payload = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply transition: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transitions (id, batch, seq, program_id, accounts, payload, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.Batch,
		t.Seq,
		t.ProgramID.String(),
		accountsJSON,
		payload,
		t.Status,
		t.Message,
	)
	if err != nil {
		return fmt.Errorf("apply transition: insert: %w", err)
	}

	for _, w := range writes {
		if w.Before == nil {
			w.Before = []byte{}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts SET data = ?, seq = ? WHERE key = ?
		`, w.After, t.Seq, w.Key.String())
		if err != nil {
			return fmt.Errorf("apply transition: update %s: %w", w.Key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply transition: rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("apply transition: account %s: %w", w.Key, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO account_writes (transition_id, account_key, before, after)
			VALUES (?, ?, ?, ?)
		`, t.ID, w.Key.String(), w.Before, w.After)
		if err != nil {
			return fmt.Errorf("apply transition: write image %s: %w", w.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply transition: commit: %w", err)
	}
	return nil
}

// ReadTransitions returns logged transitions in seq order.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadTransitions(ctx context.Context, f TransitionFilter) ([]Transition, error) {
	var (
		where []string
		args  []any
	)
	if f.Batch != "" {
		where = append(where, "batch = ?")
		args = append(args, f.Batch)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if !f.Account.IsZero() {
		where = append(where, "json_extract(accounts, '$[0]') = ?")
		args = append(args, f.Account.String())
	}

	query := `SELECT id, batch, seq, program_id, accounts, payload, status, message FROM transitions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := []Transition{}
	for rows.Next() {
		var (
			t            Transition
			programID    string
			accountsJSON string
		)
		if err := rows.Scan(&t.ID, &t.Batch, &t.Seq, &programID, &accountsJSON, &t.Payload, &t.Status, &t.Message); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if t.ProgramID, err = solana.PublicKeyFromBase58(programID); err != nil {
			return nil, fmt.Errorf("parse program id %q: %w", programID, err)
		}
		if t.Accounts, err = unmarshalKeys(accountsJSON); err != nil {
			return nil, fmt.Errorf("transition %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// ReadWrites returns the account images recorded for a transition,
// ordered by account key.
func (s *Store) ReadWrites(ctx context.Context, transitionID string) ([]AccountWrite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_key, before, after FROM account_writes
		WHERE transition_id = ?
		ORDER BY account_key COLLATE BINARY ASC
	`, transitionID)
	if err != nil {
		return nil, fmt.Errorf("query writes: %w", err)
	}
	defer rows.Close()

	out := []AccountWrite{}
	for rows.Next() {
		var (
			w   AccountWrite
			key string
		)
		if err := rows.Scan(&key, &w.Before, &w.After); err != nil {
			return nil, fmt.Errorf("scan write: %w", err)
		}
		if w.Key, err = solana.PublicKeyFromBase58(key); err != nil {
			return nil, fmt.Errorf("parse key %q: %w", key, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate writes: %w", err)
	}
	return out, nil
}

// marshalKeys stores account keys as a JSON array of base58 strings.
func marshalKeys(keys []solana.PublicKey) (string, error) {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	data, err := json.Marshal(strs)
	if err != nil {
		return "", fmt.Errorf("marshal accounts: %w", err)
	}
	return string(data), nil
}

func unmarshalKeys(data string) ([]solana.PublicKey, error) {
	var strs []string
	if err := json.Unmarshal([]byte(data), &strs); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	keys := make([]solana.PublicKey, len(strs))
	for i, s := range strs {
		k, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("parse account %q: %w", s, err)
		}
		keys[i] = k
	}
	return keys, nil
}

// HistoryEntry is one committed write to an account, with the seq of the
// transition that made it.
type HistoryEntry struct {
	Seq          int64
	TransitionID string
	Before       []byte
	After        []byte
}

// AccountHistory returns every recorded write to key in seq order.
func (s *Store) AccountHistory(ctx context.Context, key solana.PublicKey) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.seq, t.id, w.before, w.after
		FROM account_writes w
		JOIN transitions t ON t.id = w.transition_id
		WHERE w.account_key = ?
		ORDER BY t.seq ASC
	`, key.String())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.Seq, &h.TransitionID, &h.Before, &h.After); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
