package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/surface"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// ElaborateTypeExpr turns a surface type expression into a resolved
// adt.Type, looking up names through ns (walking to ancestors only for an
// unqualified final segment) and scope (for local type aliases and
// in-scope template type parameters) — spec.md §4.6, §4.7.
func (c *Context) ElaborateTypeExpr(ns *adt.Namespace, scope *adt.Scope, t surface.TypeExpr) adt.Type {
	switch te := t.(type) {
	case *surface.NamedType:
		return c.elaborateNamedType(ns, scope, te)
	case *surface.TupleType:
		elems := make([]adt.Type, len(te.Elements))
		for i, e := range te.Elements {
			elems[i] = c.ElaborateTypeExpr(ns, scope, e)
		}
		return adt.Type{Variant: &adt.TupleType{Elements: elems}, Span: te.Span()}
	case *surface.ArrayType:
		elem := c.ElaborateTypeExpr(ns, scope, te.Element)
		length := c.ElaborateValueExpr(ns, scope, te.Length)
		return adt.Type{Variant: &adt.ArrayType{Element: elem, Length: &length}, Span: te.Span()}
	case *surface.SliceType:
		elem := c.ElaborateTypeExpr(ns, scope, te.Element)
		return adt.Type{Variant: &adt.SliceType{Element: elem}, Span: te.Span()}
	case *surface.PointerType:
		referent := c.ElaborateTypeExpr(ns, scope, te.Referent)
		mut := c.ElaborateMutabilityExpr(scope, te.Mutability)
		return adt.Type{Variant: &adt.PointerType{Mutability: mut, Referent: referent}, Span: te.Span()}
	case *surface.ReferenceType:
		referent := c.ElaborateTypeExpr(ns, scope, te.Referent)
		mut := c.ElaborateMutabilityExpr(scope, te.Mutability)
		return adt.Type{Variant: &adt.ReferenceType{Mutability: mut, Referent: referent}, Span: te.Span()}
	case *surface.FunctionType:
		params := make([]adt.Type, len(te.Parameters))
		for i, p := range te.Parameters {
			params[i] = c.ElaborateTypeExpr(ns, scope, p)
		}
		ret := c.ElaborateTypeExpr(ns, scope, te.Return)
		return adt.Type{Variant: &adt.FunctionType{Parameters: params, Return: ret}, Span: te.Span()}
	case *surface.SelfType:
		if !c.inSelf {
			c.diagnostics.Error(
				diag.NewMessagef("Self is only valid inside an impl or inst block"),
				diag.Section{Span: te.Span(), Note: diag.NewMessagef("used here")},
			)
			return c.poison()
		}
		return adt.Type{Variant: &adt.SelfPlaceholderType{}, Span: te.Span()}
	case *surface.InferType:
		// Implicit types are only legal where the caller elaborates them
		// deliberately (function parameters, via elaborateParameterType);
		// anywhere else is syntactic residue (spec.md §7).
		c.diagnostics.Error(
			diag.NewMessagef("implicit types are not supported yet here"),
			diag.Section{Span: te.Span(), Note: diag.NewMessagef("written here")},
		)
		return c.freshGeneral()
	default:
		return c.poison()
	}
}

// elaborateParameterType is ElaborateTypeExpr with one extra allowance: an
// implicit `_` type, legal only in function-parameter position, becomes a
// fresh general unification variable instead of a "not supported yet" error
// (spec.md §7's "implicit parameter types outside function parameters").
func (c *Context) elaborateParameterType(ns *adt.Namespace, scope *adt.Scope, t surface.TypeExpr) adt.Type {
	if _, ok := t.(*surface.InferType); ok {
		return c.freshGeneral()
	}
	return c.ElaborateTypeExpr(ns, scope, t)
}

func (c *Context) elaborateNamedType(ns *adt.Namespace, scope *adt.Scope, te *surface.NamedType) adt.Type {
	if len(te.Path.Segments) == 1 {
		text := te.Path.Segments[0].Text
		if variant, ok := builtinTypeVariant(text); ok {
			return adt.Type{Variant: variant, Span: te.Span()}
		}
		name := c.pool.Intern(text)
		if alias, ok := scope.LookupTypeAlias(name); ok {
			return alias.Type
		}
	}
	entry, ok := c.lookupUpperPath(ns, te.Path)
	if !ok {
		c.diagnostics.Error(
			diag.NewMessagef("%q does not name a type", te.Path.Last().Text),
			diag.Section{Span: te.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poison()
	}
	switch {
	case entry.Struct != nil:
		c.ResolveStructSignature(entry.Struct, nil)
		return adt.Type{Variant: &adt.StructureType{Info: entry.Struct}, Span: te.Span()}
	case entry.StructTemplate != nil:
		inst := c.instantiator().Struct(entry.StructTemplate, te.Arguments, te.Span())
		if inst == nil {
			return c.poison()
		}
		return adt.Type{Variant: &adt.StructureType{Info: inst, IsApplication: true}, Span: te.Span()}
	case entry.Enum != nil:
		c.ResolveEnumSignature(entry.Enum, nil)
		return adt.Type{Variant: &adt.EnumerationType{Info: entry.Enum}, Span: te.Span()}
	case entry.EnumTemplate != nil:
		inst := c.instantiator().Enum(entry.EnumTemplate, te.Arguments, te.Span())
		if inst == nil {
			return c.poison()
		}
		return adt.Type{Variant: &adt.EnumerationType{Info: inst, IsApplication: true}, Span: te.Span()}
	case entry.Alias != nil:
		c.ResolveAliasSignature(entry.Alias, nil)
		return entry.Alias.Type
	case entry.AliasTemplate != nil:
		inst := c.instantiator().Alias(entry.AliasTemplate, te.Arguments, te.Span())
		if inst == nil {
			return c.poison()
		}
		return inst.Type
	default:
		c.diagnostics.Error(
			diag.NewMessagef("%q is a typeclass, not a type", te.Path.Last().Text),
			diag.Section{Span: te.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poison()
	}
}

// ElaborateMutabilityExpr resolves a mutability qualifier; a nil m means
// "unspecified", which the grammar treats as immutable (spec.md §3.3).
func (c *Context) ElaborateMutabilityExpr(scope *adt.Scope, m *surface.MutabilityExpr) adt.Mutability {
	if m == nil {
		return adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}}
	}
	if m.IsConcrete {
		return adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: m.IsMutable}, Span: m.Span}
	}
	name := c.pool.Intern(m.Parameter.Text)
	if p, ok := scope.LookupMutabilityParam(name); ok {
		return adt.Mutability{Variant: &adt.ParameterizedMutability{Identifier: name, Tag: p.Tag}, Span: m.Span}
	}
	c.diagnostics.Error(
		diag.NewMessagef("%q does not name an in-scope mutability parameter", m.Parameter.Text),
		diag.Section{Span: m.Span, Note: diag.NewMessagef("referenced here")},
	)
	return adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}, Span: m.Span}
}

// builtinTypeVariant recognises the lexer's reserved primitive-type
// keywords (original_source/src/lexer/lexer.cpp's i8_type..string_type
// tokens: spec.md §3.3's "signed/unsigned integers of widths {8, 16, 32,
// 64}, floating, character, boolean, string"). These names are reserved
// words upstream of this package, never ordinary identifiers, so they are
// checked ahead of (and never shadowed by) a scope's type aliases or the
// namespace tree.
func builtinTypeVariant(name string) (adt.TypeVariant, bool) {
	switch name {
	case "I8":
		return &adt.IntegerType{Width: adt.Width8, Signed: true}, true
	case "I16":
		return &adt.IntegerType{Width: adt.Width16, Signed: true}, true
	case "I32":
		return &adt.IntegerType{Width: adt.Width32, Signed: true}, true
	case "I64":
		return &adt.IntegerType{Width: adt.Width64, Signed: true}, true
	case "U8":
		return &adt.IntegerType{Width: adt.Width8, Signed: false}, true
	case "U16":
		return &adt.IntegerType{Width: adt.Width16, Signed: false}, true
	case "U32":
		return &adt.IntegerType{Width: adt.Width32, Signed: false}, true
	case "U64":
		return &adt.IntegerType{Width: adt.Width64, Signed: false}, true
	case "Float":
		return &adt.FloatingType{}, true
	case "Char":
		return &adt.CharacterType{}, true
	case "Bool":
		return &adt.BooleanType{}, true
	case "String":
		return &adt.StringType{}, true
	default:
		return nil, false
	}
}

func (c *Context) requireUnsafe(span token.Span, what string) {
	if c.unsafeDepth == 0 {
		c.diagnostics.Error(
			diag.NewMessagef("%s requires an unsafe context", what),
			diag.Section{Span: span, Note: diag.NewMessagef("used here")},
		)
	}
}
