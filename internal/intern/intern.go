// Package intern provides a process-wide pool of interned identifiers and
// string literals (C1). Equality between two handles reduces to pointer
// comparison; recovering the text requires the pool.
//
// This plays the role that cuelang.org/go/internal/core/adt's Feature type
// plays for CUE labels: a small interned handle that's cheap to compare and
// copy, with the backing text held once in a shared table.
package intern

// Symbol is a handle to an interned string. The zero Symbol is invalid.
type Symbol struct {
	entry *entry
}

type entry struct {
	text string
}

// Valid reports whether the symbol was produced by a Pool.
func (s Symbol) Valid() bool { return s.entry != nil }

// Equal compares two symbols by identity, not text.
func (s Symbol) Equal(other Symbol) bool { return s.entry == other.entry }

// String returns the interned text, or "<invalid symbol>" for a zero
// Symbol.
func (s Symbol) String() string {
	if s.entry == nil {
		return "<invalid symbol>"
	}
	return s.entry.text
}

// Pool interns identifiers and literal strings. A Pool is not safe for
// concurrent use; resolution is single-threaded (spec.md §5).
type Pool struct {
	table map[string]*entry
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{table: make(map[string]*entry)}
}

// Intern returns the Symbol for text, allocating a new entry on first sight.
func (p *Pool) Intern(text string) Symbol {
	if e, ok := p.table[text]; ok {
		return Symbol{entry: e}
	}
	e := &entry{text: text}
	p.table[text] = e
	return Symbol{entry: e}
}

// IsUpper reports whether text begins with an uppercase letter, the
// identifier-convention boundary between lower names (values, functions,
// namespaces, enum constructors) and upper names (types, templates,
// typeclasses) described in spec.md §6.
func IsUpper(text string) bool {
	if text == "" {
		return false
	}
	c := text[0]
	return c >= 'A' && c <= 'Z'
}

// IsDiscard reports whether an identifier's leading underscore suppresses
// unused-binding warnings (spec.md §4.3, §6).
func IsDiscard(text string) bool {
	return len(text) > 0 && text[0] == '_'
}
