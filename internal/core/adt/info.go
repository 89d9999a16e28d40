package adt

import (
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// ResolutionState tracks a definition's progress through the two-pass
// resolver (spec.md §3.5, §4.7). A definition whose state is OnStack is not
// yet queryable; re-entering it is a circular-dependency error.
type ResolutionState int

const (
	Unresolved ResolutionState = iota
	OnStack
	Resolved
)

func (s ResolutionState) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case OnStack:
		return "on-stack"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// TemplateParameter is the resolved form of surface.TemplateParameter: a
// fresh process-unique tag plus its kind and constraints.
type TemplateParameter struct {
	Kind             surface.TemplateParameterKind
	Name             intern.Symbol
	Tag              uint64
	ClassConstraints []intern.Symbol
	ValueType        Type // meaningful when Kind == TemplateParamValue
	Default          *surface.TemplateArgumentAST
	Implicit         bool
}

// TemplateInstantiationInfo records, on a monomorphised definition, the
// template it came from and the arguments used to instantiate it
// (spec.md §3.5, §4.8).
type TemplateInstantiationInfo struct {
	TypeArguments       map[uint64]Type
	MutabilityArguments map[uint64]Mutability
	ValueArguments      map[uint64]*Expr
}

// FunctionBodyState is the tagged union of a function's resolution
// progress: Unresolved (surface form only), PartiallyResolved (signature
// resolved, body surface form pending), Resolved (fully typed).
type FunctionBodyState int

const (
	BodyUnresolved FunctionBodyState = iota
	BodyPartiallyResolved
	BodyResolved
)

// FunctionSignature is a function's resolved, but not necessarily
// body-resolved, type.
type FunctionSignature struct {
	SelfParameter *SelfParameterInfo
	Parameters    []ParameterInfo
	Return        Type
}

// SelfParameterInfo is the resolved form of a method's self parameter.
type SelfParameterInfo struct {
	ByReference bool
	Mutability  Mutability
}

// ParameterInfo is one resolved function parameter: its pattern (already
// elaborated so its bound variable tags are known) and type.
type ParameterInfo struct {
	Pattern Pattern
	Type    Type
}

// FunctionInfo is the Info<Function> record (spec.md §3.5).
type FunctionInfo struct {
	Name  intern.Symbol
	Span  token.Span
	Home  *Namespace
	State ResolutionState

	BodyState FunctionBodyState
	Surface   *surface.FunctionDecl // present until BodyState == BodyResolved
	Signature FunctionSignature     // valid once BodyState >= BodyPartiallyResolved
	Body      Expr                  // valid once BodyState == BodyResolved

	TemplateInstantiationInfo *TemplateInstantiationInfo

	// Frame is populated by core/reify (C12) once the body is fully
	// resolved: the byte offset assigned to every local-variable tag bound
	// in the parameter list and body, for the code generator that consumes
	// this package's output (spec.md §4.10, out of scope here).
	Frame *FrameLayout
}

// FrameLayout is reification's per-function stack-frame layout: a byte
// offset for every local-variable tag (spec.md §4.10's "computation of
// concrete sizes/frame offsets for code generation").
type FrameLayout struct {
	Offsets map[uint64]uint64
	Size    uint64
	Align   uint64
}

// TypeLayout is a structural type's computed size and alignment, plus (for
// structs) each field's byte offset (spec.md §4.10).
type TypeLayout struct {
	Size         uint64
	Align        uint64
	FieldOffsets map[intern.Symbol]uint64 // struct only; nil otherwise
}

// FunctionTemplateInfo is the Info<Function-template> record. Parameters is
// the surface parameter list verbatim: instantiate.bind re-derives each
// parameter's resolved adt.TemplateParameter (with a fresh tag) per
// instantiation, since the same template minted once must still produce
// independent tags across distinct instantiations.
type FunctionTemplateInfo struct {
	Name       intern.Symbol
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.FunctionTemplateDecl

	Instantiations []*FunctionInfo
}

// StructInfo is the Info<Struct> record.
type StructInfo struct {
	Name    intern.Symbol
	Span    token.Span
	Home    *Namespace
	State   ResolutionState
	Fields  []FieldInfo
	Surface *surface.StructDecl

	TemplateInstantiationInfo *TemplateInstantiationInfo
	// Methods is the associated namespace populated incrementally as impl
	// blocks targeting this struct are resolved (spec.md §4.2, §5).
	Methods *Namespace

	// Layout is populated on demand by core/reify (C12); nil until first
	// sized.
	Layout *TypeLayout
}

type FieldInfo struct {
	Name intern.Symbol
	Type Type
}

type StructTemplateInfo struct {
	Name       intern.Symbol
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.StructTemplateDecl

	Instantiations []*StructInfo
}

// EnumInfo is the Info<Enum> record. Constructors are added to the
// associated namespace only once the enum itself is resolved, not at
// registration time (spec.md §4.2).
type EnumInfo struct {
	Name         intern.Symbol
	Span         token.Span
	Home         *Namespace
	State        ResolutionState
	Constructors []ConstructorInfo
	Surface      *surface.EnumDecl

	TemplateInstantiationInfo *TemplateInstantiationInfo
	Methods                   *Namespace

	// Layout is populated on demand by core/reify (C12); nil until first
	// sized. Per spec.md §4.10 the tag plus max-payload computation does not
	// finalise precise enum layout (carried from original_source as-is);
	// Layout.Size is tag size plus the largest constructor payload's size.
	Layout *TypeLayout
}

type ConstructorInfo struct {
	Name    intern.Symbol
	Payload *Type // nil if the constructor carries no payload
	Enum    *EnumInfo
}

type EnumTemplateInfo struct {
	Name       intern.Symbol
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.EnumTemplateDecl

	Instantiations []*EnumInfo
}

type AliasInfo struct {
	Name    intern.Symbol
	Span    token.Span
	Home    *Namespace
	State   ResolutionState
	Type    Type
	Surface *surface.AliasDecl

	TemplateInstantiationInfo *TemplateInstantiationInfo
}

type AliasTemplateInfo struct {
	Name       intern.Symbol
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.AliasTemplateDecl

	Instantiations []*AliasInfo
}

// TypeclassInfo declares a typeclass's required method signatures.
// Instance resolution against it is a documented open question
// (spec.md §9); the record exists so registration and the `Instance`
// constraint have somewhere to point.
type TypeclassInfo struct {
	Name    intern.Symbol
	Span    token.Span
	Home    *Namespace
	State   ResolutionState
	Methods []FunctionSignature
	Surface *surface.TypeclassDecl
}

type TypeclassTemplateInfo struct {
	Name       intern.Symbol
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.TypeclassTemplateDecl
}

// ImplementationInfo is a nameless inherent-methods block (spec.md §3.6,
// §4.9).
type ImplementationInfo struct {
	Span      token.Span
	Home      *Namespace
	State     ResolutionState
	SelfType  Type
	Functions map[intern.Symbol]*FunctionInfo
	Templates map[intern.Symbol]*FunctionTemplateInfo
	Surface   *surface.ImplementationDecl
}

type ImplementationTemplateInfo struct {
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.ImplementationTemplateDecl
}

// InstantiationInfo is a nameless typeclass-instance block. Resolution
// against the owning typeclass is a documented open question (spec.md §9).
type InstantiationInfo struct {
	Span      token.Span
	Home      *Namespace
	State     ResolutionState
	Typeclass *TypeclassInfo
	SelfType  Type
	Functions map[intern.Symbol]*FunctionInfo
	Surface   *surface.InstantiationDecl
}

type InstantiationTemplateInfo struct {
	Span       token.Span
	Home       *Namespace
	State      ResolutionState
	Parameters []surface.TemplateParameter
	Surface    *surface.InstantiationTemplateDecl
}

// NamelessEntities is the process-wide collection of impl/inst records,
// since neither is name-addressable (spec.md §3.6).
type NamelessEntities struct {
	Implementations         []*ImplementationInfo
	ImplementationTemplates []*ImplementationTemplateInfo
	Instantiations          []*InstantiationInfo
	InstantiationTemplates  []*InstantiationTemplateInfo
}
