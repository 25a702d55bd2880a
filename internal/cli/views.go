package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/roach88/sumstate/internal/record"
	"github.com/roach88/sumstate/internal/store"
)

// AccountView is the printable form of a stored account.
type AccountView struct {
	Key        string         `json:"key"`
	Name       string         `json:"name,omitempty"`
	Owner      string         `json:"owner"`
	Lamports   uint64         `json:"lamports"`
	Executable bool           `json:"executable"`
	Seq        int64          `json:"seq"`
	Data       string         `json:"data"` // hex
	Record     *record.Record `json:"record,omitempty"`
}

// newAccountView builds a view. Record is set when the data decodes.
func newAccountView(a store.Account) AccountView {
	v := AccountView{
		Key:        a.Key.String(),
		Name:       a.Name,
		Owner:      a.Owner.String(),
		Lamports:   a.Lamports,
		Executable: a.Executable,
		Seq:        a.Seq,
		Data:       hex.EncodeToString(a.Data),
	}
	if r, err := record.Decode(a.Data); err == nil {
		v.Record = &r
	}
	return v
}

// Label returns the name, or the key for unnamed accounts.
func (v AccountView) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Key
}

// State renders the data as a record, or raw hex when it does not decode.
func (v AccountView) State() string {
	if v.Record != nil {
		return v.Record.String()
	}
	return "0x" + v.Data
}

func (v AccountView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n", v.Label())
	fmt.Fprintf(&b, "  Key: %s\n", v.Key)
	fmt.Fprintf(&b, "  Owner: %s\n", v.Owner)
	fmt.Fprintf(&b, "  Lamports: %d\n", v.Lamports)
	if v.Executable {
		fmt.Fprintf(&b, "  Executable: true\n")
	}
	fmt.Fprintf(&b, "  Seq: %d\n", v.Seq)
	fmt.Fprintf(&b, "  State: %s", v.State())
	return b.String()
}
