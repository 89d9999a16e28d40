// Package unify implements the constraint solver's unification engine (C6,
// spec.md §4.4): Hindley-Milner-style unification over adt.Type and
// adt.Mutability, extended with general/integral type-variable kinds, a
// mutability coercion rule, an occurs check, and journal-backed
// destructive/speculative modes.
//
// The packaging — an explicit undo log of (cell, prior value) pairs
// replayed on failure — is grounded on the teacher's own approach to
// tentative graph mutation during evaluation
// (cuelang.org/go/internal/core/adt's closedness bookkeeping in
// closed.go/closed2.go journals "close context" changes for rollback
// across disjunction branches in the same spirit); the concrete algorithm
// (syntactic unification with general/integral variables, not a lattice
// meet) is grounded on
// original_source/src/phase/resolve/unification.cpp.
package unify

import "github.com/kieli-lang/resolvecore/internal/core/adt"

// journalEntry is one undoable mutation recorded during an in-progress
// unification attempt.
type journalEntry struct {
	typeState     *adt.TypeVarState
	typePrev      adt.TypeVariant
	typeWasSolved bool

	mutState     *adt.MutabilityVarState
	mutPrev      adt.MutabilityVariant
	mutWasSolved bool
}

func (e journalEntry) undo() {
	if e.typeState != nil {
		e.typeState.Solved = e.typeWasSolved
		e.typeState.Solution = e.typePrev
	}
	if e.mutState != nil {
		e.mutState.Solved = e.mutWasSolved
		e.mutState.Solution = e.mutPrev
	}
}

// Engine owns the journal for one in-progress unification attempt plus the
// counters used to mint fresh variables.
//
// A single Engine is shared across an entire compilation unit (spec.md
// §3.7): nested unify calls made while resolving one constraint reuse the
// same journal, only the outermost call commits or rolls it back.
type Engine struct {
	counters *adt.Counters
	tracer   adt.Tracer
	journal  []journalEntry
	depth    int

	// Solutions gathered during any attempt made with
	// GatherVariableSolutions set, keyed by variable tag. The method
	// resolver's speculative matches do not set that option and do not
	// read these.
	Solutions TypeMutSolutions
}

// TypeMutSolutions mirrors Unification_variable_solutions (spec.md §3.7):
// separate maps for type and mutability variable tags.
type TypeMutSolutions struct {
	Types        map[uint64]adt.TypeVariant
	Mutabilities map[uint64]adt.MutabilityVariant
}

// NewEngine creates a unification engine sharing counters with the rest of
// the resolver.
func NewEngine(counters *adt.Counters) *Engine {
	return &Engine{
		counters: counters,
		tracer:   adt.NoopTracer{},
		Solutions: TypeMutSolutions{
			Types:        map[uint64]adt.TypeVariant{},
			Mutabilities: map[uint64]adt.MutabilityVariant{},
		},
	}
}

func (e *Engine) recordType(state *adt.TypeVarState, solution adt.TypeVariant) {
	e.journal = append(e.journal, journalEntry{
		typeState: state, typePrev: state.Solution, typeWasSolved: state.Solved,
	})
	state.Solved = true
	state.Solution = solution
}

func (e *Engine) recordMutability(state *adt.MutabilityVarState, solution adt.MutabilityVariant) {
	e.journal = append(e.journal, journalEntry{
		mutState: state, mutPrev: state.Solution, mutWasSolved: state.Solved,
	})
	state.Solved = true
	state.Solution = solution
}

// SetTracer redirects the engine's unification trace events to t.
func (e *Engine) SetTracer(t adt.Tracer) { e.tracer = t }

// mark returns the current journal length, for a later rollback/commit point.
func (e *Engine) mark() int { return len(e.journal) }

func (e *Engine) rollbackTo(mark int) {
	for i := len(e.journal) - 1; i >= mark; i-- {
		e.journal[i].undo()
	}
	e.journal = e.journal[:mark]
}

func (e *Engine) commitFrom(mark int) {
	// Nothing to do: destructive writes already happened in place. The
	// journal is not trimmed here; nested calls never reach commit or
	// rollback at all, since finish in unify.go acts only when the depth
	// counter that UnifyTypes/UnifyMutabilities maintain is back at zero.
	_ = mark
}
