package unify

import "github.com/kieli-lang/resolvecore/internal/core/adt"

// occursInType walks t (already flattened by the caller) and reports
// whether the general unification variable identified by tag appears
// syntactically in any component: field types, parameter types, template
// arguments, an array length expression's type, and so on (spec.md §4.4).
func occursInType(tag uint64, t adt.TypeVariant) bool {
	switch v := t.(type) {
	case *adt.UnificationVariable:
		if v.State.Tag == tag {
			return true
		}
		if v.State.Solved {
			return occursInType(tag, v.State.Solution)
		}
		return false
	case *adt.TupleType:
		for _, elem := range v.Elements {
			if occursInType(tag, elem.FlattenedValue()) {
				return true
			}
		}
		return false
	case *adt.ArrayType:
		if occursInType(tag, v.Element.FlattenedValue()) {
			return true
		}
		if v.Length != nil {
			return occursInType(tag, v.Length.Type.FlattenedValue())
		}
		return false
	case *adt.SliceType:
		return occursInType(tag, v.Element.FlattenedValue())
	case *adt.PointerType:
		return occursInType(tag, v.Referent.FlattenedValue())
	case *adt.ReferenceType:
		return occursInType(tag, v.Referent.FlattenedValue())
	case *adt.FunctionType:
		for _, p := range v.Parameters {
			if occursInType(tag, p.FlattenedValue()) {
				return true
			}
		}
		return occursInType(tag, v.Return.FlattenedValue())
	case *adt.StructureType:
		return occursInInstantiation(tag, v.IsApplication, v.Instantiation)
	case *adt.EnumerationType:
		return occursInInstantiation(tag, v.IsApplication, v.Instantiation)
	default:
		return false
	}
}

func occursInInstantiation(tag uint64, isApplication bool, inst *adt.TemplateInstantiationInfo) bool {
	if !isApplication || inst == nil {
		return false
	}
	for _, argType := range inst.TypeArguments {
		if occursInType(tag, argType.FlattenedValue()) {
			return true
		}
	}
	return false
}
