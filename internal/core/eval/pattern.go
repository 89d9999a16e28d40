package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/surface"
)

// ElaboratePattern produces a typed pattern against an expected type,
// binding any introduced variables into scope (spec.md §4.6's "pattern
// binding"). IsExhaustiveByItself is computed per spec.md §3.4; callers
// resolving a `let` binding or a top-level function parameter must check it.
func (c *Context) ElaboratePattern(ns *adt.Namespace, scope *adt.Scope, p surface.Pattern, expected adt.Type) adt.Pattern {
	switch pat := p.(type) {
	case *surface.WildcardPattern:
		return adt.Pattern{Value: &adt.WildcardPattern{}, Type: expected, IsExhaustiveByItself: true}

	case *surface.LiteralPattern:
		lit := c.ElaborateValueExpr(ns, scope, pat.Literal)
		c.equate(lit.Type, expected, "pattern literal must match the matched value's type")
		return adt.Pattern{Value: &adt.LiteralPattern{Literal: lit}, Type: expected}

	case *surface.NamePattern:
		tag := c.counters.FreshLocalVariableTag()
		name := c.pool.Intern(pat.Name.Text)
		mut := c.ElaborateMutabilityExpr(scope, pat.Mutability)
		scope.BindVariable(c.diagnostics, name, &adt.VariableBinding{
			Tag: tag, Type: expected, Mutability: mut, Span: pat.Name.Span,
		})
		return adt.Pattern{
			Value:                &adt.NamePattern{Tag: tag, Name: name, Mutability: mut},
			Type:                 expected,
			IsExhaustiveByItself: true,
		}

	case *surface.TuplePattern:
		elemTypes := c.tupleElementTypes(expected, len(pat.Elements), pat.Span())
		elems := make([]adt.Pattern, len(pat.Elements))
		exhaustive := true
		for i, sub := range pat.Elements {
			elems[i] = c.ElaboratePattern(ns, scope, sub, elemTypes[i])
			exhaustive = exhaustive && elems[i].IsExhaustiveByItself
		}
		return adt.Pattern{
			Value:                &adt.TuplePattern{Elements: elems},
			Type:                 adt.Type{Variant: &adt.TupleType{Elements: elemTypes}, Span: pat.Span()},
			IsExhaustiveByItself: exhaustive,
		}

	case *surface.SlicePattern:
		elemType := c.sliceElementType(expected, pat.Span())
		elems := make([]adt.Pattern, len(pat.Elements))
		exhaustive := pat.Rest != nil
		for i, sub := range pat.Elements {
			elems[i] = c.ElaboratePattern(ns, scope, sub, elemType)
			exhaustive = exhaustive && elems[i].IsExhaustiveByItself
		}
		var rest *adt.Pattern
		if pat.Rest != nil {
			r := c.ElaboratePattern(ns, scope, *pat.Rest, adt.Type{Variant: &adt.SliceType{Element: elemType}, Span: pat.Span()})
			rest = &r
			exhaustive = exhaustive && r.IsExhaustiveByItself
		}
		return adt.Pattern{
			Value:                &adt.SlicePattern{Elements: elems, Rest: rest},
			Type:                 adt.Type{Variant: &adt.SliceType{Element: elemType}, Span: pat.Span()},
			IsExhaustiveByItself: exhaustive,
		}

	case *surface.ConstructorPattern:
		ctor, ok := c.lookupConstructor(ns, pat.Path)
		if !ok {
			c.diagnostics.Error(
				diag.NewMessagef("%q does not name an enum constructor", pat.Path.Last().Text),
				diag.Section{Span: pat.Span(), Note: diag.NewMessagef("used here")},
			)
			return adt.Pattern{Value: &adt.WildcardPattern{}, Type: c.poison()}
		}
		enumType := adt.Type{Variant: &adt.EnumerationType{Info: ctor.Enum}, Span: pat.Span()}
		c.equate(enumType, expected, "pattern constructor must match the matched value's enum type")
		var payload *adt.Pattern
		exhaustive := len(ctor.Enum.Constructors) == 1
		if ctor.Payload != nil && pat.Payload != nil {
			p := c.ElaboratePattern(ns, scope, pat.Payload, *ctor.Payload)
			payload = &p
			exhaustive = exhaustive && p.IsExhaustiveByItself
		} else if pat.Payload != nil {
			exhaustive = false
		}
		return adt.Pattern{
			Value:                &adt.ConstructorPattern{Constructor: ctor, Payload: payload},
			Type:                 enumType,
			IsExhaustiveByItself: exhaustive,
		}

	case *surface.AsPattern:
		inner := c.ElaboratePattern(ns, scope, pat.Inner, expected)
		tag := c.counters.FreshLocalVariableTag()
		alias := c.pool.Intern(pat.Alias.Text)
		scope.BindVariable(c.diagnostics, alias, &adt.VariableBinding{
			Tag: tag, Type: expected, Span: pat.Alias.Span,
		})
		return adt.Pattern{
			Value:                &adt.AsPattern{Inner: inner, Alias: alias, Tag: tag},
			Type:                 expected,
			IsExhaustiveByItself: inner.IsExhaustiveByItself,
		}

	case *surface.GuardedPattern:
		inner := c.ElaboratePattern(ns, scope, pat.Inner, expected)
		guard := c.ElaborateValueExpr(ns, scope, pat.Guard)
		c.equate(guard.Type, boolType(), "pattern guard must be a boolean expression")
		return adt.Pattern{
			Value:                &adt.GuardedPattern{Inner: inner, Guard: guard},
			Type:                 expected,
			IsExhaustiveByItself: false,
		}

	default:
		return adt.Pattern{Value: &adt.WildcardPattern{}, Type: c.poison()}
	}
}

// tupleElementTypes returns n element types to match a tuple pattern
// against: the expected type's own elements if it already flattens to a
// tuple of the right arity, otherwise n fresh general variables unified
// against expected (handles the common case of an unannotated `let`).
func (c *Context) tupleElementTypes(expected adt.Type, n int, span interface{ String() string }) []adt.Type {
	if tt, ok := expected.FlattenedValue().(*adt.TupleType); ok && len(tt.Elements) == n {
		return tt.Elements
	}
	fresh := make([]adt.Type, n)
	for i := range fresh {
		fresh[i] = c.freshGeneral()
	}
	c.equate(adt.Type{Variant: &adt.TupleType{Elements: fresh}}, expected, "tuple pattern arity must match the matched value's type")
	return fresh
}

func (c *Context) sliceElementType(expected adt.Type, span interface{ String() string }) adt.Type {
	switch v := expected.FlattenedValue().(type) {
	case *adt.SliceType:
		return v.Element
	case *adt.ArrayType:
		return v.Element
	default:
		elem := c.freshGeneral()
		c.equate(adt.Type{Variant: &adt.SliceType{Element: elem}}, expected, "slice pattern requires a slice or array value")
		return elem
	}
}

// lookupConstructor resolves an enum-constructor path: either a bare name
// (looked up in the surrounding namespace chain, for enums whose
// constructors were imported/opened into scope) or `Enum::Variant`, which
// resolves Enum as a type first and then looks the variant up in its
// associated namespace (spec_full's `associated_namespace_if`).
func (c *Context) lookupConstructor(ns *adt.Namespace, path surface.Path) (*adt.ConstructorInfo, bool) {
	if len(path.Segments) >= 2 {
		head := path.Segments[:len(path.Segments)-1]
		last := path.Last()
		entry, ok := c.lookupUpperPath(ns, surface.Path{Segments: head})
		if ok && entry.Enum != nil {
			c.ResolveEnumSignature(entry.Enum, nil)
			assoc, _ := adt.AssociatedNamespaceIf(adt.Type{Variant: &adt.EnumerationType{Info: entry.Enum}})
			if assoc != nil {
				if le, ok := assoc.LookupLower(c.pool.Intern(last.Text), false); ok && le.Constructor != nil {
					return le.Constructor, true
				}
			}
		}
	}
	le, ok := c.lookupLowerPath(ns, path)
	if !ok || le.Constructor == nil {
		return nil, false
	}
	return le.Constructor, true
}
