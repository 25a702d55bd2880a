// Package account models the account handles a runtime supplies to a program.
//
// An account is a byte buffer owned by exactly one authority. Programs never
// own the buffer: they borrow it for the duration of one invocation through
// Borrow (shared, read-only) or BorrowMut (exclusive, writable), and must
// call the returned release func before returning.
package account

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotWritable is returned by BorrowMut on a read-only handle.
	ErrNotWritable = errors.New("account is not writable")

	// ErrBorrowConflict is returned when a borrow would alias a live
	// exclusive borrow, or an exclusive borrow would alias any borrow.
	ErrBorrowConflict = errors.New("account data already borrowed")
)

// Handle is the capability surface a program sees for one account.
type Handle interface {
	// Key is the account address.
	Key() solana.PublicKey

	// Owner is the authority allowed to mutate the account data.
	Owner() solana.PublicKey

	// IsWritable reports whether the invocation may mutate the data.
	IsWritable() bool

	// Len is the current data length.
	Len() int

	// Borrow returns a read view of the data. The view is only valid until
	// release is called and must not be modified.
	Borrow() (data []byte, release func(), err error)

	// BorrowMut returns the data for in-place overwrite. Only one exclusive
	// borrow may be live, and no shared borrows may coexist with it.
	BorrowMut() (data []byte, release func(), err error)
}

// Info is the in-memory Handle implementation used by the runtime.
type Info struct {
	key        solana.PublicKey
	owner      solana.PublicKey
	lamports   uint64
	executable bool
	writable   bool

	mu      sync.Mutex
	data    []byte
	readers int
	writer  bool
}

// NewInfo creates a handle over data. The handle takes ownership of data;
// callers that need the original bytes must copy them first.
func NewInfo(key, owner solana.PublicKey, data []byte, writable bool) *Info {
	return &Info{
		key:      key,
		owner:    owner,
		data:     data,
		writable: writable,
	}
}

// WithLamports sets the balance metadata. Returns the receiver for chaining.
func (a *Info) WithLamports(lamports uint64) *Info {
	a.lamports = lamports
	return a
}

// WithExecutable sets the executable flag. Returns the receiver for chaining.
func (a *Info) WithExecutable(executable bool) *Info {
	a.executable = executable
	return a
}

func (a *Info) Key() solana.PublicKey   { return a.key }
func (a *Info) Owner() solana.PublicKey { return a.owner }
func (a *Info) IsWritable() bool        { return a.writable }
func (a *Info) Lamports() uint64        { return a.lamports }
func (a *Info) Executable() bool        { return a.executable }

func (a *Info) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data)
}

// Borrow implements Handle.
func (a *Info) Borrow() ([]byte, func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.writer {
		return nil, nil, fmt.Errorf("borrow %s: %w", a.key, ErrBorrowConflict)
	}
	a.readers++

	var once sync.Once
	release := func() {
		once.Do(func() {
			a.mu.Lock()
			a.readers--
			a.mu.Unlock()
		})
	}
	return a.data, release, nil
}

// BorrowMut implements Handle.
func (a *Info) BorrowMut() ([]byte, func(), error) {
	if !a.writable {
		return nil, nil, fmt.Errorf("borrow %s mutably: %w", a.key, ErrNotWritable)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.writer || a.readers > 0 {
		return nil, nil, fmt.Errorf("borrow %s mutably: %w", a.key, ErrBorrowConflict)
	}
	a.writer = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			a.mu.Lock()
			a.writer = false
			a.mu.Unlock()
		})
	}
	return a.data, release, nil
}

// Snapshot returns a copy of the current data.
// Fails if an exclusive borrow is live.
func (a *Info) Snapshot() ([]byte, error) {
	data, release, err := a.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Handles converts infos to the slice type programs accept.
func Handles(infos ...*Info) []Handle {
	out := make([]Handle, len(infos))
	for i, info := range infos {
		out[i] = info
	}
	return out
}
