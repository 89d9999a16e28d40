package unify

import "github.com/kieli-lang/resolvecore/internal/core/adt"

// Options mirrors Type_unification_arguments / Mutability_unification_arguments
// (spec.md §4.4).
type Options struct {
	// AllowCoercion permits a Concrete{immut} constrainer to accept a
	// Concrete{mut} constrained side (reading a mut value as immut); the
	// reverse is never permitted — see UnifyMutabilities doc.
	AllowCoercion bool
	// Destructive: on success, commit writes in place. On failure (or when
	// false), every write made during this attempt is rolled back.
	Destructive bool
	// GatherVariableSolutions: record solutions into the Engine's
	// Solutions maps even when the attempt is non-destructive. The
	// constraint dispatcher sets it; C11's speculative matches do not.
	GatherVariableSolutions bool

	OnUnificationFailure func(left, right adt.Type)
	OnOccursFailure      func(variable, solution adt.Type)
	OnMutabilityFailure  func(constrainer, constrained adt.Mutability)
}

// UnifyTypes attempts to unify constrainer and constrained, returning
// whether it succeeded. It is the sole entry point into the engine for
// type constraints; recursive sub-unifications performed while solving
// structural constraints (tuple fields, function parameters, ...) reuse
// the same journal via unifyType.
func (e *Engine) UnifyTypes(constrainer, constrained adt.Type, opts Options) bool {
	mode := "speculative"
	if opts.Destructive {
		mode = "destructive"
	}
	e.tracer.Tracef("unify: %s attempt at depth %d", mode, e.depth)
	e.depth++
	mark := e.mark()
	ok := e.unifyType(constrainer, constrained, opts)
	e.depth--
	e.finish(mark, ok, opts.Destructive)
	if !ok && opts.OnUnificationFailure != nil {
		opts.OnUnificationFailure(constrainer, constrained)
	}
	e.tracer.Tracef("unify: %s attempt at depth %d finished, ok=%v", mode, e.depth, ok)
	return ok
}

func (e *Engine) finish(mark int, ok bool, destructive bool) {
	if e.depth > 0 {
		// Nested call: let the outermost UnifyTypes/UnifyMutabilities own
		// the commit/rollback decision.
		return
	}
	if ok && destructive {
		e.commitFrom(mark)
		return
	}
	// Either the attempt failed, or it succeeded but was only speculative:
	// both cases roll back so the engine is pure from the caller's point
	// of view (spec.md §8 "speculative unification is pure").
	e.rollbackTo(mark)
}

func (e *Engine) unifyType(constrainer, constrained adt.Type, opts Options) bool {
	left := constrainer.FlattenedValue()
	right := constrained.FlattenedValue()

	if lv, ok := left.(*adt.UnificationVariable); ok {
		return e.unifyTypeVariable(lv, constrainer, right, constrained, opts)
	}
	if rv, ok := right.(*adt.UnificationVariable); ok {
		return e.unifyTypeVariable(rv, constrained, left, constrainer, opts)
	}

	switch lt := left.(type) {
	case *adt.IntegerType:
		rt, ok := right.(*adt.IntegerType)
		return ok && lt.Width == rt.Width && lt.Signed == rt.Signed
	case *adt.FloatingType:
		_, ok := right.(*adt.FloatingType)
		return ok
	case *adt.CharacterType:
		_, ok := right.(*adt.CharacterType)
		return ok
	case *adt.BooleanType:
		_, ok := right.(*adt.BooleanType)
		return ok
	case *adt.StringType:
		_, ok := right.(*adt.StringType)
		return ok
	case *adt.TupleType:
		rt, ok := right.(*adt.TupleType)
		if !ok || len(lt.Elements) != len(rt.Elements) {
			return false
		}
		for i := range lt.Elements {
			if !e.unifyType(lt.Elements[i], rt.Elements[i], opts) {
				return false
			}
		}
		return true
	case *adt.SliceType:
		rt, ok := right.(*adt.SliceType)
		return ok && e.unifyType(lt.Element, rt.Element, opts)
	case *adt.ArrayType:
		rt, ok := right.(*adt.ArrayType)
		return ok && e.unifyType(lt.Element, rt.Element, opts)
	case *adt.PointerType:
		rt, ok := right.(*adt.PointerType)
		if !ok {
			return false
		}
		return e.unifyType(lt.Referent, rt.Referent, opts) &&
			e.UnifyMutabilities(lt.Mutability, rt.Mutability, opts)
	case *adt.ReferenceType:
		rt, ok := right.(*adt.ReferenceType)
		if !ok {
			return false
		}
		return e.unifyType(lt.Referent, rt.Referent, opts) &&
			e.UnifyMutabilities(lt.Mutability, rt.Mutability, opts)
	case *adt.FunctionType:
		rt, ok := right.(*adt.FunctionType)
		if !ok || len(lt.Parameters) != len(rt.Parameters) {
			return false
		}
		for i := range lt.Parameters {
			if !e.unifyType(lt.Parameters[i], rt.Parameters[i], opts) {
				return false
			}
		}
		return e.unifyType(lt.Return, rt.Return, opts)
	case *adt.StructureType:
		rt, ok := right.(*adt.StructureType)
		if !ok || lt.Info != rt.Info {
			return false
		}
		return e.unifyTemplateArgs(lt.IsApplication, lt.Instantiation, rt.IsApplication, rt.Instantiation, opts)
	case *adt.EnumerationType:
		rt, ok := right.(*adt.EnumerationType)
		if !ok || lt.Info != rt.Info {
			return false
		}
		return e.unifyTemplateArgs(lt.IsApplication, lt.Instantiation, rt.IsApplication, rt.Instantiation, opts)
	case *adt.SelfPlaceholderType:
		_, ok := right.(*adt.SelfPlaceholderType)
		return ok
	case *adt.TemplateParameterRefType:
		rt, ok := right.(*adt.TemplateParameterRefType)
		return ok && lt.Tag == rt.Tag
	default:
		return false
	}
}

func (e *Engine) unifyTemplateArgs(lApp bool, lInst *adt.TemplateInstantiationInfo, rApp bool, rInst *adt.TemplateInstantiationInfo, opts Options) bool {
	if lApp != rApp {
		return false
	}
	if !lApp {
		return true
	}
	if len(lInst.TypeArguments) != len(rInst.TypeArguments) {
		return false
	}
	for tag, lt := range lInst.TypeArguments {
		rt, ok := rInst.TypeArguments[tag]
		if !ok || !e.unifyType(lt, rt, opts) {
			return false
		}
	}
	for tag, lm := range lInst.MutabilityArguments {
		rm, ok := rInst.MutabilityArguments[tag]
		if !ok || !e.UnifyMutabilities(lm, rm, opts) {
			return false
		}
	}
	for tag, lvExpr := range lInst.ValueArguments {
		rvExpr, ok := rInst.ValueArguments[tag]
		if !ok || !structurallyEqualValueArg(lvExpr, rvExpr) {
			return false
		}
	}
	return true
}

// structurallyEqualValueArg equates two value-typed template arguments
// structurally; full constant evaluation is a non-goal (spec.md §1, §4.4).
func structurallyEqualValueArg(a, b *adt.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	al, aok := a.Value.(*adt.IntegerLiteral)
	bl, bok := b.Value.(*adt.IntegerLiteral)
	if aok && bok {
		return al.Text == bl.Text
	}
	return a == b
}

func (e *Engine) unifyTypeVariable(v *adt.UnificationVariable, varType adt.Type, other adt.TypeVariant, otherFull adt.Type, opts Options) bool {
	if ov, ok := other.(*adt.UnificationVariable); ok {
		return e.unifyTwoTypeVariables(v, ov, opts)
	}

	if v.State.Kind == adt.VariableIntegral {
		if _, ok := other.(*adt.IntegerType); !ok {
			return false
		}
		return e.solveTypeVariable(v, other, opts)
	}

	// General variable vs anything: occurs check, then solve.
	if occursInType(v.State.Tag, other) {
		if opts.OnOccursFailure != nil {
			opts.OnOccursFailure(varType, otherFull)
		}
		return false
	}
	return e.solveTypeVariable(v, other, opts)
}

func (e *Engine) unifyTwoTypeVariables(a, b *adt.UnificationVariable, opts Options) bool {
	if a.State.Tag == b.State.Tag {
		return true
	}
	// General vs integral: solve the general one to the integral one,
	// preserving the integral constraint through the solved chain
	// (spec.md §4.4).
	if a.State.Kind == adt.VariableGeneral && b.State.Kind == adt.VariableIntegral {
		return e.solveTypeVariable(a, b, opts)
	}
	if a.State.Kind == adt.VariableIntegral && b.State.Kind == adt.VariableGeneral {
		return e.solveTypeVariable(b, a, opts)
	}
	// Two variables of the same kind: solve each to the other. Deferral of
	// this case is a caller-level decision (the constraint dispatcher
	// defers a whole Type_equality constraint before ever reaching the
	// engine, per spec.md §4.5); by the time two bare variables reach
	// here, the engine always links them, tolerating the resulting cycle
	// via flatten's visited-tag stop.
	return e.solveTypeVariable(a, b, opts)
}

// solveTypeVariable writes v's cell to solution, journaling the write so a
// non-destructive attempt can undo it afterwards. When
// GatherVariableSolutions is set, the solution is also copied into
// e.Solutions before any later rollback, so a caller can still inspect
// what the attempt solved each variable to.
func (e *Engine) solveTypeVariable(v *adt.UnificationVariable, solution adt.TypeVariant, opts Options) bool {
	if opts.GatherVariableSolutions {
		e.Solutions.Types[v.State.Tag] = solution
	}
	e.recordType(v.State, solution)
	return true
}
