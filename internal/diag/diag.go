// Package diag implements the resolver's diagnostics builder (spec.md §6,
// §7): an append-only sink of errors, warnings and notes, each carrying one
// or more source-span-tagged text sections plus a headline and optional
// help note.
//
// The shape follows cuelang.org/go/cue/errors: a Message that defers
// formatting (so diagnostics could in principle be localised later), and a
// Builder accumulator with Sort and String. There is no Error interface,
// List type or RemoveMultiples.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kieli-lang/resolvecore/internal/token"
)

// Severity distinguishes fatal diagnostics from advisory ones.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Message defers formatting, mirroring cue/errors.Message: the arguments are
// kept around instead of baked into a string immediately, so a renderer can
// reformat or localise later.
type Message struct {
	format string
	args   []interface{}
}

// NewMessagef builds a deferred message.
func NewMessagef(format string, args ...interface{}) Message {
	return Message{format: format, args: args}
}

func (m Message) String() string {
	if len(m.args) == 0 {
		return m.format
	}
	return fmt.Sprintf(m.format, m.args...)
}

// Section is one colour-tagged span + note pair attached to a diagnostic —
// spec.md §7's "Text_section" entries (e.g. the return-type note and the
// body note of a unification failure).
type Section struct {
	Span token.Span
	Note Message
}

// Diagnostic is a single resolver diagnostic: a headline, zero or more
// source sections elaborating it, and an optional closing help note.
type Diagnostic struct {
	Severity Severity
	Headline Message
	Sections []Section
	Help     *Message
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Severity, d.Headline)
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "\n  at %s: %s", s.Span, s.Note)
	}
	if d.Help != nil {
		fmt.Fprintf(&b, "\n  help: %s", *d.Help)
	}
	return b.String()
}

// Builder accumulates diagnostics for one compilation unit. It never
// panics or aborts by itself, and the resolver does not unwind on an error
// either: other definitions keep resolving after one fails (spec.md §7).
type Builder struct {
	diagnostics  []Diagnostic
	suppress     map[Severity]bool
	errorCount   int
	warningCount int
}

// NewBuilder creates an empty diagnostics builder. Pass severities to
// suppress (e.g. SeverityNote in quiet mode).
func NewBuilder(suppress ...Severity) *Builder {
	b := &Builder{suppress: make(map[Severity]bool)}
	for _, s := range suppress {
		b.suppress[s] = true
	}
	return b
}

func (b *Builder) add(d Diagnostic) {
	if b.suppress[d.Severity] {
		return
	}
	switch d.Severity {
	case SeverityError:
		b.errorCount++
	case SeverityWarning:
		b.warningCount++
	}
	b.diagnostics = append(b.diagnostics, d)
}

// Error emits a fatal diagnostic.
func (b *Builder) Error(headline Message, sections ...Section) {
	b.add(Diagnostic{Severity: SeverityError, Headline: headline, Sections: sections})
}

// ErrorHelp emits a fatal diagnostic with a closing help note.
func (b *Builder) ErrorHelp(headline Message, help Message, sections ...Section) {
	b.add(Diagnostic{Severity: SeverityError, Headline: headline, Sections: sections, Help: &help})
}

// Warning emits a non-fatal diagnostic (e.g. unused binding, pure
// side-effect expression).
func (b *Builder) Warning(headline Message, sections ...Section) {
	b.add(Diagnostic{Severity: SeverityWarning, Headline: headline, Sections: sections})
}

// Note emits an informational diagnostic.
func (b *Builder) Note(headline Message, sections ...Section) {
	b.add(Diagnostic{Severity: SeverityNote, Headline: headline, Sections: sections})
}

// HasErrors reports whether any (non-suppressed) error was emitted.
func (b *Builder) HasErrors() bool { return b.errorCount > 0 }

// ErrorCount returns the number of emitted (non-suppressed) errors.
func (b *Builder) ErrorCount() int { return b.errorCount }

// Diagnostics returns all accumulated diagnostics in emission order.
func (b *Builder) Diagnostics() []Diagnostic {
	return b.diagnostics
}

// Sort orders diagnostics by their first section's span, falling back to
// emission order — mirroring cue/errors.List.Sort.
func (b *Builder) Sort() {
	sort.SliceStable(b.diagnostics, func(i, j int) bool {
		si, sj := b.diagnostics[i], b.diagnostics[j]
		pi, pj := firstPos(si), firstPos(sj)
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return pi.Column < pj.Column
	})
}

func firstPos(d Diagnostic) token.Pos {
	if len(d.Sections) == 0 {
		return token.Pos{}
	}
	return d.Sections[0].Span.Start
}

// String renders every diagnostic, one per paragraph.
func (b *Builder) String() string {
	parts := make([]string, len(b.diagnostics))
	for i, d := range b.diagnostics {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}
