// Package constraint implements the constraint dispatcher (C7, spec.md
// §4.5): the five constraint kinds emitted by elaboration, and the
// deferred-queue drain loop that re-solves constraints once more of a
// definition (or namespace phase) has been resolved.
//
// The deferred-queue idiom is grounded on the teacher's own scheduler
// (cuelang.org/go/internal/core/adt/sched.go), which holds tasks that
// cannot run yet and re-attempts them once their dependencies are met —
// the closest analogue in the pack to "a constraint that waits, then gets
// retried". The constraint kinds themselves and the exact solve/defer
// decision are grounded on
// original_source/src/phase/resolve/constraint.cpp.
package constraint

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/unify"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// Explanation is one side's annotation on an equality constraint: the span
// it came from plus a human note (spec.md §4.5's "explanatory notes on
// each side").
type Explanation struct {
	Span token.Span
	Note diag.Message
}

// TypeEquality is `T1 ~ T2` with explanatory notes on each side.
type TypeEquality struct {
	Constrainer, Constrained         adt.Type
	ConstrainerNote, ConstrainedNote Explanation
	Deferred                         bool
}

// MutabilityEquality is `M1 ~ M2`.
type MutabilityEquality struct {
	Constrainer, Constrained         adt.Mutability
	ConstrainerNote, ConstrainedNote Explanation
	AllowCoercion                    bool
	Deferred                         bool
}

// Instance is `T : Class` — a placeholder constraint. Typeclass instance
// resolution is an explicit open question (spec.md §9); Solve always
// records it as pending and never succeeds or fails outright.
type Instance struct {
	Type        adt.Type
	Typeclass   *adt.TypeclassInfo
	Explanation Explanation
}

// StructField is `(S.name) : F`.
type StructField struct {
	StructType  adt.Type
	FieldType   adt.Type
	FieldName   intern.Symbol
	Explanation Explanation
}

// TupleField is `(T.i) : F`.
type TupleField struct {
	TupleType   adt.Type
	FieldType   adt.Type
	Index       int
	Explanation Explanation
}

// Dispatcher owns the unification engine, the diagnostics builder, and the
// deferred-constraint queues for one compilation unit.
type Dispatcher struct {
	engine      *unify.Engine
	diagnostics *diag.Builder
	tracer      adt.Tracer

	deferredTypes        []TypeEquality
	deferredMutabilities []MutabilityEquality

	unsolvedTypeVars []*adt.TypeVarState
	pendingInstances []Instance
}

func NewDispatcher(engine *unify.Engine, diagnostics *diag.Builder) *Dispatcher {
	return &Dispatcher{engine: engine, diagnostics: diagnostics, tracer: adt.NoopTracer{}}
}

func (d *Dispatcher) Engine() *unify.Engine { return d.engine }

// SetTracer redirects the dispatcher's drain-loop trace events to t.
func (d *Dispatcher) SetTracer(t adt.Tracer) { d.tracer = t }

// UnsolvedTypeVariables returns every unification variable the dispatcher
// has seen that was still unsolved the last time it was touched — the
// post-pass generalisation/error-reporting list (spec.md §3.7).
func (d *Dispatcher) UnsolvedTypeVariables() []*adt.TypeVarState {
	return d.unsolvedTypeVars
}

func (d *Dispatcher) trackUnsolved(t adt.Type) {
	if v, ok := t.FlattenedValue().(*adt.UnificationVariable); ok && !v.State.Solved {
		d.unsolvedTypeVars = append(d.unsolvedTypeVars, v.State)
	}
}

// SolveTypeEquality dispatches a Type_equality constraint: if both sides
// flatten to unsolved variables of the same kind and the constraint has
// not already been deferred once, it is queued; otherwise it is forwarded
// to the unification engine destructively, reporting a diagnostic on
// failure (spec.md §4.4, §4.5).
func (d *Dispatcher) SolveTypeEquality(c TypeEquality) {
	if !c.Deferred && bothUnsolvedSameKind(c.Constrainer, c.Constrained) {
		c.Deferred = true
		d.deferredTypes = append(d.deferredTypes, c)
		return
	}
	ok := d.engine.UnifyTypes(c.Constrainer, c.Constrained, unify.Options{
		Destructive:             true,
		GatherVariableSolutions: true,
		OnUnificationFailure: func(left, right adt.Type) {
			d.reportTypeFailure(c)
		},
		OnOccursFailure: func(variable, solution adt.Type) {
			d.reportOccursFailure(c, variable, solution)
		},
	})
	_ = ok
	d.trackUnsolved(c.Constrainer)
	d.trackUnsolved(c.Constrained)
}

func bothUnsolvedSameKind(a, b adt.Type) bool {
	av, aok := a.FlattenedValue().(*adt.UnificationVariable)
	bv, bok := b.FlattenedValue().(*adt.UnificationVariable)
	return aok && bok && av.State.Kind == bv.State.Kind && av.State.Tag != bv.State.Tag
}

func (d *Dispatcher) reportTypeFailure(c TypeEquality) {
	d.diagnostics.Error(
		diag.NewMessagef("could not unify types"),
		diag.Section{Span: c.ConstrainerNote.Span, Note: c.ConstrainerNote.Note},
		diag.Section{Span: c.ConstrainedNote.Span, Note: c.ConstrainedNote.Note},
	)
}

func (d *Dispatcher) reportOccursFailure(c TypeEquality, variable, solution adt.Type) {
	d.diagnostics.Error(
		diag.NewMessagef("recursive type: a type variable cannot unify with a type that contains itself"),
		diag.Section{Span: c.ConstrainerNote.Span, Note: c.ConstrainerNote.Note},
		diag.Section{Span: c.ConstrainedNote.Span, Note: c.ConstrainedNote.Note},
	)
}

// SolveMutabilityEquality dispatches a Mutability_equality constraint,
// deferring only when both sides are bare, unsolved variables.
func (d *Dispatcher) SolveMutabilityEquality(c MutabilityEquality) {
	if !c.Deferred && bothUnsolvedMutVars(c.Constrainer, c.Constrained) {
		c.Deferred = true
		d.deferredMutabilities = append(d.deferredMutabilities, c)
		return
	}
	d.engine.UnifyMutabilities(c.Constrainer, c.Constrained, unify.Options{
		Destructive:             true,
		GatherVariableSolutions: true,
		AllowCoercion:           c.AllowCoercion,
		OnMutabilityFailure: func(constrainer, constrained adt.Mutability) {
			d.reportMutabilityFailure(c)
		},
	})
}

func bothUnsolvedMutVars(a, b adt.Mutability) bool {
	_, aok := a.FlattenedValue().(*adt.MutabilityUnificationVariable)
	_, bok := b.FlattenedValue().(*adt.MutabilityUnificationVariable)
	return aok && bok
}

func (d *Dispatcher) reportMutabilityFailure(c MutabilityEquality) {
	d.diagnostics.Error(
		diag.NewMessagef("cannot acquire a mutable view of an immutable value"),
		diag.Section{Span: c.ConstrainerNote.Span, Note: c.ConstrainerNote.Note},
		diag.Section{Span: c.ConstrainedNote.Span, Note: c.ConstrainedNote.Note},
	)
}

// SolveStructField flattens S; if it is a Structure, looks up the field in
// the resolved struct and emits a Type_equality S.field.type ~ F.
// Otherwise reports "no such field" or "not a struct" (spec.md §4.5).
func (d *Dispatcher) SolveStructField(c StructField) {
	flat := c.StructType.FlattenedValue()
	st, ok := flat.(*adt.StructureType)
	if !ok {
		d.diagnostics.Error(
			diag.NewMessagef("field access on a non-struct type"),
			diag.Section{Span: c.Explanation.Span, Note: c.Explanation.Note},
		)
		return
	}
	for _, f := range st.Info.Fields {
		if f.Name.Equal(c.FieldName) {
			d.SolveTypeEquality(TypeEquality{
				Constrainer:     f.Type,
				Constrained:     c.FieldType,
				ConstrainerNote: Explanation{Span: st.Info.Span, Note: diag.NewMessagef("field %q declared here", c.FieldName.String())},
				ConstrainedNote: c.Explanation,
			})
			return
		}
	}
	d.diagnostics.Error(
		diag.NewMessagef("struct %q has no field %q", st.Info.Name.String(), c.FieldName.String()),
		diag.Section{Span: c.Explanation.Span, Note: c.Explanation.Note},
	)
}

// SolveTupleField flattens T; requires a tuple, checks index bounds, and
// emits a Type_equality (spec.md §4.5).
func (d *Dispatcher) SolveTupleField(c TupleField) {
	flat := c.TupleType.FlattenedValue()
	tt, ok := flat.(*adt.TupleType)
	if !ok {
		d.diagnostics.Error(
			diag.NewMessagef("tuple field access on a non-tuple type"),
			diag.Section{Span: c.Explanation.Span, Note: c.Explanation.Note},
		)
		return
	}
	if c.Index < 0 || c.Index >= len(tt.Elements) {
		d.diagnostics.Error(
			diag.NewMessagef("tuple field index %d out of bounds (tuple has %d elements)", c.Index, len(tt.Elements)),
			diag.Section{Span: c.Explanation.Span, Note: c.Explanation.Note},
		)
		return
	}
	d.SolveTypeEquality(TypeEquality{
		Constrainer:     tt.Elements[c.Index],
		Constrained:     c.FieldType,
		ConstrainerNote: Explanation{Note: diag.NewMessagef("tuple element %d", c.Index)},
		ConstrainedNote: c.Explanation,
	})
}

// SolveInstance records the obligation. Typeclass instance resolution is
// not implemented (spec.md §9); the constraint is retained so a future
// implementer has somewhere to plug in a solver, and so that its presence
// is visible through PendingInstances rather than silently dropped. No
// diagnostic is emitted for it.
func (d *Dispatcher) SolveInstance(c Instance) {
	d.pendingInstances = append(d.pendingInstances, c)
}

// PendingInstances returns every Instance constraint seen so far. Exposed
// for tests and for a future solver; the current resolver never consumes
// this list itself.
func (d *Dispatcher) PendingInstances() []Instance { return d.pendingInstances }

// Drain clears the deferred-constraint queues, re-applying Solve to each.
// Mutability constraints still unresolved (both sides unsolved variables)
// at this point default to immut (spec.md §9) rather than looping forever.
func (d *Dispatcher) Drain() {
	types := d.deferredTypes
	d.deferredTypes = nil
	d.tracer.Tracef("constraint: draining %d deferred type constraint(s), %d deferred mutability constraint(s)", len(types), len(d.deferredMutabilities))
	for _, c := range types {
		d.SolveTypeEquality(c)
	}

	muts := d.deferredMutabilities
	d.deferredMutabilities = nil
	for _, c := range muts {
		if bothUnsolvedMutVars(c.Constrainer, c.Constrained) {
			if v, ok := c.Constrainer.FlattenedValue().(*adt.MutabilityUnificationVariable); ok {
				d.engine.DefaultUnsolvedMutability(v)
			}
			if v, ok := c.Constrained.FlattenedValue().(*adt.MutabilityUnificationVariable); ok {
				d.engine.DefaultUnsolvedMutability(v)
			}
		}
		d.SolveMutabilityEquality(c)
	}

	// Walk the unsolved-variable list chasing any solutions that arrived
	// after the variable was queued (spec.md §4.5's final step).
	live := d.unsolvedTypeVars[:0]
	for _, v := range d.unsolvedTypeVars {
		if !v.Solved {
			live = append(live, v)
		}
	}
	d.unsolvedTypeVars = live
}
