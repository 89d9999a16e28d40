package adt

import (
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// TypeVariant is the tagged-union of type shapes described in spec.md §3.3.
// Each case is a distinct Go type implementing the marker method, the same
// sum-type-by-interface idiom the teacher uses for its own IR
// (cuelang.org/go/internal/core/adt.Expr and friends).
type TypeVariant interface {
	typeVariant()
}

// IntegerWidth is one of the four supported integer bit widths.
type IntegerWidth int

const (
	Width8  IntegerWidth = 8
	Width16 IntegerWidth = 16
	Width32 IntegerWidth = 32
	Width64 IntegerWidth = 64
)

// IntegerType is a signed or unsigned integer primitive of a fixed width.
type IntegerType struct {
	Width  IntegerWidth
	Signed bool
}

func (*IntegerType) typeVariant() {}

// FloatingType is the floating-point primitive.
type FloatingType struct{}

func (*FloatingType) typeVariant() {}

// CharacterType is the character primitive.
type CharacterType struct{}

func (*CharacterType) typeVariant() {}

// BooleanType is the boolean primitive.
type BooleanType struct{}

func (*BooleanType) typeVariant() {}

// StringType is the string primitive.
type StringType struct{}

func (*StringType) typeVariant() {}

// TupleType is `(T1, ..., Tn)`. The empty tuple is the unit type.
type TupleType struct {
	Elements []Type
}

func (*TupleType) typeVariant() {}

// ArrayType is `[T; N]`; N is a value-typed expression handle (an already
// elaborated expression, since full constant evaluation is a non-goal —
// spec.md §4.4).
type ArrayType struct {
	Element Type
	Length  *Expr
}

func (*ArrayType) typeVariant() {}

// SliceType is `[T]`.
type SliceType struct {
	Element Type
}

func (*SliceType) typeVariant() {}

// PointerType is `*mut? T`. Naming a pointer type needs no unsafe context;
// only dereferencing a pointer does.
type PointerType struct {
	Mutability Mutability
	Referent   Type
}

func (*PointerType) typeVariant() {}

// ReferenceType is `&mut? T`.
type ReferenceType struct {
	Mutability Mutability
	Referent   Type
}

func (*ReferenceType) typeVariant() {}

// FunctionType is `fn(T1, ..., Tn) -> R`.
type FunctionType struct {
	Parameters []Type
	Return     Type
}

func (*FunctionType) typeVariant() {}

// StructureType names a struct, possibly a template application.
type StructureType struct {
	Info          *StructInfo
	IsApplication bool
	Instantiation *TemplateInstantiationInfo
}

func (*StructureType) typeVariant() {}

// EnumerationType names an enum, possibly a template application.
type EnumerationType struct {
	Info          *EnumInfo
	IsApplication bool
	Instantiation *TemplateInstantiationInfo
}

func (*EnumerationType) typeVariant() {}

// SelfPlaceholderType stands for the enclosing impl/inst/typeclass's Self,
// valid only while a Self scope is active (spec.md §3.8).
type SelfPlaceholderType struct{}

func (*SelfPlaceholderType) typeVariant() {}

// TemplateParameterRefType refers to an in-scope template type parameter by
// its process-unique tag.
type TemplateParameterRefType struct {
	Identifier intern.Symbol
	Tag        uint64
}

func (*TemplateParameterRefType) typeVariant() {}

// UnificationVariableKind distinguishes general from integral type
// variables (spec.md §3.3).
type UnificationVariableKind int

const (
	VariableGeneral UnificationVariableKind = iota
	VariableIntegral
)

// TypeVarState is the shared mutable cell behind a unification variable
// (spec.md §3.3, §9 "Variable states as shared mutable cells"). Many type
// nodes may point at the same state; solving writes to the cell exactly
// once.
type TypeVarState struct {
	Tag              uint64
	Kind             UnificationVariableKind
	ClassConstraints []intern.Symbol
	Solved           bool
	Solution         TypeVariant
}

// UnificationVariable is a type node that refers to a TypeVarState.
type UnificationVariable struct {
	State *TypeVarState
}

func (*UnificationVariable) typeVariant() {}

// Type is the value object described in spec.md §3.3: a handle into the
// type-node arena plus a source span. Spans are never semantically
// load-bearing.
type Type struct {
	Variant TypeVariant
	Span    token.Span
}

// PureValue returns the raw variant without chasing solved variable chains.
func (t Type) PureValue() TypeVariant { return t.Variant }

// FlattenedValue chases a chain of solved unification-variable states and
// returns the canonical underlying variant. It mutates no externally
// observable state, though it may shorten the chain in place the way a
// classic union-find path-compression step would (idempotent, and never
// changes what the chain resolves to).
//
// Two variables solved to each other form a cycle that flattening must not
// loop on forever (spec.md §4.4's "solve each to the other" case); this
// walk stops at the first repeated tag.
func (t Type) FlattenedValue() TypeVariant {
	v := t.Variant
	visited := map[uint64]bool{}
	for {
		uv, ok := v.(*UnificationVariable)
		if !ok || !uv.State.Solved {
			return v
		}
		if visited[uv.State.Tag] {
			return v
		}
		visited[uv.State.Tag] = true
		v = uv.State.Solution
	}
}

// Flattened returns a Type wrapping the flattened variant, keeping the
// original span (spans are for diagnostics, not identity).
func (t Type) Flattened() Type {
	return Type{Variant: t.FlattenedValue(), Span: t.Span}
}

// MutabilityVariant is the tagged-union of mutability shapes (spec.md §3.3).
type MutabilityVariant interface {
	mutabilityVariant()
}

// ConcreteMutability is a fully known mutability.
type ConcreteMutability struct {
	IsMutable bool
}

func (*ConcreteMutability) mutabilityVariant() {}

// ParameterizedMutability refers to an in-scope mutability template
// parameter.
type ParameterizedMutability struct {
	Identifier intern.Symbol
	Tag        uint64
}

func (*ParameterizedMutability) mutabilityVariant() {}

// MutabilityVarState is the shared mutable cell behind a mutability
// unification variable.
type MutabilityVarState struct {
	Tag      uint64
	Solved   bool
	Solution MutabilityVariant
}

// MutabilityUnificationVariable is a mutability node referring to a
// MutabilityVarState.
type MutabilityUnificationVariable struct {
	State *MutabilityVarState
}

func (*MutabilityUnificationVariable) mutabilityVariant() {}

// Mutability is the value object for mutability qualifiers.
type Mutability struct {
	Variant MutabilityVariant
	Span    token.Span
}

func (m Mutability) PureValue() MutabilityVariant { return m.Variant }

// FlattenedValue mirrors Type.FlattenedValue for mutabilities.
func (m Mutability) FlattenedValue() MutabilityVariant {
	v := m.Variant
	visited := map[uint64]bool{}
	for {
		uv, ok := v.(*MutabilityUnificationVariable)
		if !ok || !uv.State.Solved {
			return v
		}
		if visited[uv.State.Tag] {
			return v
		}
		visited[uv.State.Tag] = true
		v = uv.State.Solution
	}
}

func (m Mutability) Flattened() Mutability {
	return Mutability{Variant: m.FlattenedValue(), Span: m.Span}
}
