package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/text/unicode/norm"
)

// Account is a stored account row.
type Account struct {
	Key        solana.PublicKey
	Name       string // optional human label, NFC-normalized
	Owner      solana.PublicKey
	Lamports   uint64
	Executable bool
	Data       []byte
	Seq        int64 // seq of the last committed write, 0 for genesis
}

// NormalizeName returns the canonical form of an account name.
// Visually identical names in different Unicode forms map to one account.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateAccount inserts a new account. Fails if the key or name is taken.
func (s *Store) CreateAccount(ctx context.Context, acct Account) error {
	return insertAccount(ctx, s.db, acct)
}

// CreateAccounts inserts accounts in one SQL transaction: either all are
// created or none are.
func (s *Store) CreateAccounts(ctx context.Context, accounts []Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create accounts: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, acct := range accounts {
		if err := insertAccount(ctx, tx, acct); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create accounts: commit: %w", err)
	}
	return nil
}

func insertAccount(ctx context.Context, db execer, acct Account) error {
	if acct.Key.IsZero() {
		return fmt.Errorf("create account: key is required")
	}

	var name sql.NullString
	if n := NormalizeName(acct.Name); n != "" {
		name = sql.NullString{String: n, Valid: true}
	}

	data := acct.Data
	if data == nil {
		data = []byte{}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (key, name, owner, lamports, executable, data, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		acct.Key.String(),
		name,
		acct.Owner.String(),
		int64(acct.Lamports),
		acct.Executable,
		data,
		acct.Seq,
	)
	if err != nil {
		return fmt.Errorf("create account %s: %w", acct.Key, err)
	}
	return nil
}

// GetAccount returns the account with the given key, or ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, key solana.PublicKey) (Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, name, owner, lamports, executable, data, seq
		FROM accounts WHERE key = ?
	`, key.String())

	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %s: %w", key, err)
	}
	return acct, nil
}

// GetAccountByName returns the account with the given name, or ErrNotFound.
func (s *Store) GetAccountByName(ctx context.Context, name string) (Account, error) {
	n := NormalizeName(name)
	row := s.db.QueryRowContext(ctx, `
		SELECT key, name, owner, lamports, executable, data, seq
		FROM accounts WHERE name = ?
	`, n)

	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %q: %w", n, ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %q: %w", n, err)
	}
	return acct, nil
}

// ResolveAccount looks up ref as a base58 key first, then as a name.
func (s *Store) ResolveAccount(ctx context.Context, ref string) (Account, error) {
	if key, err := solana.PublicKeyFromBase58(ref); err == nil {
		acct, err := s.GetAccount(ctx, key)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return acct, err
		}
	}
	return s.GetAccountByName(ctx, ref)
}

// ListAccounts returns all accounts ordered by name, then key.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, owner, lamports, executable, data, seq
		FROM accounts
		ORDER BY name IS NULL, name COLLATE BINARY ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		acct     Account
		key      string
		name     sql.NullString
		owner    string
		lamports int64
	)
	if err := row.Scan(&key, &name, &owner, &lamports, &acct.Executable, &acct.Data, &acct.Seq); err != nil {
		return Account{}, err
	}

	var err error
	if acct.Key, err = solana.PublicKeyFromBase58(key); err != nil {
		return Account{}, fmt.Errorf("parse key %q: %w", key, err)
	}
	if acct.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return Account{}, fmt.Errorf("parse owner %q: %w", owner, err)
	}
	acct.Name = name.String
	acct.Lamports = uint64(lamports)
	if acct.Data == nil {
		acct.Data = []byte{}
	}
	return acct, nil
}
