package surface

import "github.com/kieli-lang/resolvecore/internal/token"

// TypeExpr is the sum type of surface-level type expressions.
type TypeExpr interface {
	typeExprNode()
	Span() token.Span
}

type typeExprBase struct{ span token.Span }

func (t typeExprBase) Span() token.Span { return t.span }

// NamedType is a (possibly qualified, possibly template-applied) type
// name: `I32`, `Option[T]`, `my::mod::Thing`.
type NamedType struct {
	typeExprBase
	Path      Path
	Arguments []TemplateArgumentAST // empty for non-template references
}

func (*NamedType) typeExprNode() {}

type TupleType struct {
	typeExprBase
	Elements []TypeExpr
}

func (*TupleType) typeExprNode() {}

type ArrayType struct {
	typeExprBase
	Element TypeExpr
	Length  Expr
}

func (*ArrayType) typeExprNode() {}

type SliceType struct {
	typeExprBase
	Element TypeExpr
}

func (*SliceType) typeExprNode() {}

type PointerType struct {
	typeExprBase
	Mutability *MutabilityExpr
	Referent   TypeExpr
}

func (*PointerType) typeExprNode() {}

type ReferenceType struct {
	typeExprBase
	Mutability *MutabilityExpr
	Referent   TypeExpr
}

func (*ReferenceType) typeExprNode() {}

type FunctionType struct {
	typeExprBase
	Parameters []TypeExpr
	Return     TypeExpr
}

func (*FunctionType) typeExprNode() {}

// SelfType is the `Self` placeholder type.
type SelfType struct{ typeExprBase }

func (*SelfType) typeExprNode() {}

// InferType is an omitted/implicit type (`_`), valid only in parameter and
// template-argument positions; elsewhere it is "not supported yet"
// (spec.md §7).
type InferType struct{ typeExprBase }

func (*InferType) typeExprNode() {}

// MutabilityExpr is the surface form of a mutability qualifier: a concrete
// `mut`/immutable marker, or a named mutability template parameter.
type MutabilityExpr struct {
	IsConcrete bool
	IsMutable  bool // meaningful when IsConcrete
	Parameter  Name // meaningful when !IsConcrete
	Span       token.Span
}
