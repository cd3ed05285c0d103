package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// MaxWords is the capacity of a WordTable.
const MaxWords = 0xFFFF

var ErrWordTableFull = errors.New("word table is full")

// WordEntry binds a user word to its entry address in the image.
type WordEntry struct {
	Name    string
	Address uint16
}

// WordTable maps user-defined word names to entry addresses. Each name has
// at most one active address; redefinition overwrites it in place.
type WordTable struct {
	index   map[string]int
	entries []WordEntry // definition order
}

func NewWordTable() *WordTable {
	return &WordTable{index: make(map[string]int)}
}

// Lookup returns the address currently bound to name.
func (w *WordTable) Lookup(name string) (uint16, bool) {
	i, ok := w.index[name]
	if !ok {
		return 0, false
	}
	return w.entries[i].Address, true
}

// Define binds name to addr. If name already exists its address is
// overwritten and redefined is true.
func (w *WordTable) Define(name string, addr uint16) (redefined bool, err error) {
	if i, ok := w.index[name]; ok {
		w.entries[i].Address = addr
		return true, nil
	}
	if len(w.entries) >= MaxWords {
		return false, ErrWordTableFull
	}
	w.index[name] = len(w.entries)
	w.entries = append(w.entries, WordEntry{Name: name, Address: addr})
	return false, nil
}

func (w *WordTable) Len() int {
	return len(w.entries)
}

// Entries returns the table in first-definition order.
func (w *WordTable) Entries() []WordEntry {
	return append([]WordEntry(nil), w.entries...)
}

// String returns a deterministically ordered dump of the table.
func (w *WordTable) String() string {
	if len(w.entries) == 0 {
		return "Words: (empty)\n"
	}
	var sb strings.Builder
	sb.WriteString("Words:\n")
	for _, e := range w.entries {
		fmt.Fprintf(&sb, "  %-32s  0x%04X\n", e.Name, e.Address)
	}
	return sb.String()
}
