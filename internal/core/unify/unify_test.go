package unify_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/unify"
)

func i32() adt.Type {
	return adt.Type{Variant: &adt.IntegerType{Width: adt.Width32, Signed: true}}
}

func boolT() adt.Type {
	return adt.Type{Variant: &adt.BooleanType{}}
}

func freshGeneral(c *adt.Counters) adt.Type {
	return adt.Type{Variant: &adt.UnificationVariable{State: &adt.TypeVarState{
		Tag: c.FreshUnificationTag(), Kind: adt.VariableGeneral,
	}}}
}

func destructiveOpts() unify.Options {
	return unify.Options{Destructive: true, GatherVariableSolutions: true}
}

func TestUnificationSymmetry(t *testing.T) {
	c := adt.NewCounters()
	e1 := unify.NewEngine(c)
	ok1 := e1.UnifyTypes(i32(), boolT(), destructiveOpts())

	e2 := unify.NewEngine(c)
	ok2 := e2.UnifyTypes(boolT(), i32(), destructiveOpts())

	qt.Assert(t, qt.Equals(ok1, ok2))
	qt.Assert(t, qt.IsFalse(ok1))

	e3 := unify.NewEngine(c)
	qt.Assert(t, qt.IsTrue(e3.UnifyTypes(i32(), i32(), destructiveOpts())))
}

func TestOccursCheck(t *testing.T) {
	c := adt.NewCounters()
	e := unify.NewEngine(c)
	alpha := freshGeneral(c)
	selfReferential := adt.Type{Variant: &adt.TupleType{Elements: []adt.Type{alpha}}}

	ok := e.UnifyTypes(alpha, selfReferential, destructiveOpts())
	qt.Assert(t, qt.IsFalse(ok))

	// Unifying a variable with itself is fine (T = alpha, not alpha containing alpha).
	e2 := unify.NewEngine(c)
	alpha2 := freshGeneral(c)
	qt.Assert(t, qt.IsTrue(e2.UnifyTypes(alpha2, alpha2, destructiveOpts())))
}

func concreteMut(mut bool) adt.Mutability {
	return adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: mut}}
}

func TestCoercionAsymmetry(t *testing.T) {
	c := adt.NewCounters()

	// immut required from mut source, coercion enabled: fine.
	e1 := unify.NewEngine(c)
	ok1 := e1.UnifyMutabilities(concreteMut(false), concreteMut(true), unify.Options{Destructive: true, AllowCoercion: true})
	qt.Assert(t, qt.IsTrue(ok1))

	// mut required from immut source, coercion enabled: still an error.
	e2 := unify.NewEngine(c)
	ok2 := e2.UnifyMutabilities(concreteMut(true), concreteMut(false), unify.Options{Destructive: true, AllowCoercion: true})
	qt.Assert(t, qt.IsFalse(ok2))

	// Without coercion, immut-from-mut also fails.
	e3 := unify.NewEngine(c)
	ok3 := e3.UnifyMutabilities(concreteMut(false), concreteMut(true), unify.Options{Destructive: true, AllowCoercion: false})
	qt.Assert(t, qt.IsFalse(ok3))
}

func TestSpeculativeUnificationIsPure(t *testing.T) {
	c := adt.NewCounters()
	e := unify.NewEngine(c)
	alpha := freshGeneral(c)
	alphaState := alpha.Variant.(*adt.UnificationVariable).State

	ok := e.UnifyTypes(alpha, boolT(), unify.Options{Destructive: false, GatherVariableSolutions: true})
	qt.Assert(t, qt.IsTrue(ok))
	// Non-destructive: the cell must be exactly as it was before the call.
	qt.Assert(t, qt.IsFalse(alphaState.Solved))
	// But the solution is still observable via the gather map.
	_, gathered := e.Solutions.Types[alphaState.Tag]
	qt.Assert(t, qt.IsTrue(gathered))

	// A failed non-destructive unify must also leave everything untouched.
	e2 := unify.NewEngine(c)
	failOk := e2.UnifyTypes(i32(), boolT(), unify.Options{Destructive: false})
	qt.Assert(t, qt.IsFalse(failOk))
}

func TestIntegralVariableOnlyAdmitsIntegers(t *testing.T) {
	c := adt.NewCounters()
	integral := adt.Type{Variant: &adt.UnificationVariable{State: &adt.TypeVarState{
		Tag: c.FreshUnificationTag(), Kind: adt.VariableIntegral,
	}}}

	e := unify.NewEngine(c)
	qt.Assert(t, qt.IsFalse(e.UnifyTypes(integral, boolT(), destructiveOpts())))

	e2 := unify.NewEngine(c)
	qt.Assert(t, qt.IsTrue(e2.UnifyTypes(integral, i32(), destructiveOpts())))
}

func TestGeneralVsIntegralPreservesIntegralConstraint(t *testing.T) {
	c := adt.NewCounters()
	general := adt.Type{Variant: &adt.UnificationVariable{State: &adt.TypeVarState{
		Tag: c.FreshUnificationTag(), Kind: adt.VariableGeneral,
	}}}
	integral := adt.Type{Variant: &adt.UnificationVariable{State: &adt.TypeVarState{
		Tag: c.FreshUnificationTag(), Kind: adt.VariableIntegral,
	}}}

	e := unify.NewEngine(c)
	qt.Assert(t, qt.IsTrue(e.UnifyTypes(general, integral, destructiveOpts())))
	// general must now flatten through to the (still unsolved) integral var.
	qt.Assert(t, qt.Equals(general.FlattenedValue(), integral.Variant))

	// Once the integral var solves to i32, general should flatten to i32 too.
	e2 := unify.NewEngine(c)
	qt.Assert(t, qt.IsTrue(e2.UnifyTypes(integral, i32(), destructiveOpts())))
	_, isInt := general.FlattenedValue().(*adt.IntegerType)
	qt.Assert(t, qt.IsTrue(isInt))
}
