package unify

import "github.com/kieli-lang/resolvecore/internal/core/adt"

// UnifyMutabilities implements the mutability unification rules of
// spec.md §4.4: a decision table keyed on concrete/parameterised/variable
// pairs. The only coercion rule: if AllowCoercion and constrainer is
// Concrete{immut} and constrained is Concrete{mut}, accept — reading a mut
// value as immut is always safe; the reverse is never allowed regardless
// of coercion.
func (e *Engine) UnifyMutabilities(constrainer, constrained adt.Mutability, opts Options) bool {
	e.depth++
	mark := e.mark()
	ok := e.unifyMutability(constrainer, constrained, opts)
	e.depth--
	e.finish(mark, ok, opts.Destructive)
	if !ok && opts.OnMutabilityFailure != nil {
		opts.OnMutabilityFailure(constrainer, constrained)
	}
	return ok
}

func (e *Engine) unifyMutability(constrainer, constrained adt.Mutability, opts Options) bool {
	left := constrainer.FlattenedValue()
	right := constrained.FlattenedValue()

	lv, lIsVar := left.(*adt.MutabilityUnificationVariable)
	rv, rIsVar := right.(*adt.MutabilityUnificationVariable)

	switch {
	case lIsVar && rIsVar:
		if lv.State.Tag == rv.State.Tag {
			return true
		}
		// Neither side deferred by the time two bare mutability variables
		// reach the engine: link them, same as general type variables.
		// The constraint dispatcher defaults an un-resolved pair to immut
		// only if this constraint was itself deferred and drained without
		// further information (spec.md §9).
		return e.solveMutabilityVariable(lv, right, opts)
	case lIsVar:
		return e.solveMutabilityVariable(lv, right, opts)
	case rIsVar:
		return e.solveMutabilityVariable(rv, left, opts)
	}

	lc, lIsConcrete := left.(*adt.ConcreteMutability)
	rc, rIsConcrete := right.(*adt.ConcreteMutability)
	if lIsConcrete && rIsConcrete {
		if lc.IsMutable == rc.IsMutable {
			return true
		}
		// constrainer immut, constrained mut, coercion allowed: reading a
		// mut value through an immut view is safe.
		if opts.AllowCoercion && !lc.IsMutable && rc.IsMutable {
			return true
		}
		return false
	}

	lp, lIsParam := left.(*adt.ParameterizedMutability)
	rp, rIsParam := right.(*adt.ParameterizedMutability)
	if lIsParam && rIsParam {
		return lp.Tag == rp.Tag
	}

	// Concrete vs Parameterized (either order): an uninstantiated
	// parameter can never be known equal to a concrete qualifier.
	return false
}

func (e *Engine) solveMutabilityVariable(v *adt.MutabilityUnificationVariable, solution adt.MutabilityVariant, opts Options) bool {
	if opts.GatherVariableSolutions {
		e.Solutions.Mutabilities[v.State.Tag] = solution
	}
	e.recordMutability(v.State, solution)
	return true
}

// DefaultUnsolvedMutability solves an unsolved mutability variable to
// Concrete{immut}. Used by the constraint dispatcher's drain loop when a
// deferred Mutability_equality constraint still has unsolved variables
// on both sides once every other definition has had a chance to
// pin it down (spec.md §9: "Mutability-variable solutions default to immut
// when both sides are unsolved variables at drain time").
func (e *Engine) DefaultUnsolvedMutability(v *adt.MutabilityUnificationVariable) {
	if v.State.Solved {
		return
	}
	e.recordMutability(v.State, &adt.ConcreteMutability{IsMutable: false})
}
