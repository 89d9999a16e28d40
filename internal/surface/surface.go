// Package surface defines the shape of the desugared tree the resolver
// consumes (spec.md §6 "Input"). Lexing, parsing and desugaring are out of
// scope for this repository (spec.md §1); this package exists only so the
// resolution core has a concrete Go type to receive from that (absent)
// upstream, the same role cuelang.org/go/cue/ast plays for the teacher's
// own internal/core/compile package.
//
// Desugarings already applied by the time a tree reaches this package
// (spec.md §4.6): `if let` / `while let` lowered to `match`; `while cond {
// body}` lowered to `loop { if cond { body } else { break } }`; `discard e`
// lowered to `{ let _ = e; }`. `for` loops and lambda expressions are
// deliberately NOT desugared upstream; the elaborator rejects them on sight
// (spec.md §9).
package surface

import "github.com/kieli-lang/resolvecore/internal/token"

// Name is an identifier occurrence: text plus its source span. The
// resolver interns the text on first use.
type Name struct {
	Text string
	Span token.Span
}

// Module is an ordered list of top-level definitions.
type Module struct {
	Definitions []Definition
}

// Definition is the sum type of top-level (and nested-namespace) items.
type Definition interface {
	definitionNode()
}

type NamespaceDecl struct {
	Name        Name
	Definitions []Definition
	Span        token.Span
}

func (*NamespaceDecl) definitionNode() {}

// TemplateParameterKind distinguishes type / value / mutability template
// parameters (spec.md §1).
type TemplateParameterKind int

const (
	TemplateParamType TemplateParameterKind = iota
	TemplateParamValue
	TemplateParamMutability
)

// TemplateParameter is one formal parameter of a template definition.
type TemplateParameter struct {
	Kind             TemplateParameterKind
	Name             Name
	ClassConstraints []Name               // only meaningful for TemplateParamType
	ValueType        TypeExpr             // only meaningful for TemplateParamValue
	Default          *TemplateArgumentAST // nil if no default
	Implicit         bool                 // wildcard-eligible without an explicit argument
}

// TemplateArgumentAST is an explicit argument supplied at an instantiation
// site; which field is meaningful depends on the corresponding parameter's
// kind.
type TemplateArgumentAST struct {
	Type       TypeExpr        // TemplateParamType
	Value      Expr            // TemplateParamValue
	Mutability *MutabilityExpr // TemplateParamMutability
	Wildcard   bool            // `_`: caller leaves it to inference
	Span       token.Span
}

// Field is one struct member declaration.
type Field struct {
	Name Name
	Type TypeExpr
}

type StructDecl struct {
	Name   Name
	Fields []Field
	Span   token.Span
}

func (*StructDecl) definitionNode() {}

type StructTemplateDecl struct {
	Name       Name
	Parameters []TemplateParameter
	Fields     []Field
	Span       token.Span
}

func (*StructTemplateDecl) definitionNode() {}

// Constructor is one enum variant, with an optional payload type (a tuple
// type expression if more than one payload field).
type Constructor struct {
	Name    Name
	Payload TypeExpr // nil if the constructor carries no payload
}

type EnumDecl struct {
	Name         Name
	Constructors []Constructor
	Span         token.Span
}

func (*EnumDecl) definitionNode() {}

type EnumTemplateDecl struct {
	Name         Name
	Parameters   []TemplateParameter
	Constructors []Constructor
	Span         token.Span
}

func (*EnumTemplateDecl) definitionNode() {}

type AliasDecl struct {
	Name Name
	Type TypeExpr
	Span token.Span
}

func (*AliasDecl) definitionNode() {}

type AliasTemplateDecl struct {
	Name       Name
	Parameters []TemplateParameter
	Type       TypeExpr
	Span       token.Span
}

func (*AliasTemplateDecl) definitionNode() {}

// Parameter is one function parameter: a pattern (so destructuring
// parameters are representable) with a declared type. Named-argument call
// syntax is parsed but rejected during elaboration ("not supported yet",
// spec.md §7, §9); the AST still carries the slot so the rejection has
// somewhere to look.
type Parameter struct {
	Pattern  Pattern
	Type     TypeExpr
	HasLabel bool
	Label    Name
}

type FunctionDecl struct {
	Name       Name
	Parameters []Parameter
	SelfParam  *SelfParameter // non-nil for methods
	ReturnType TypeExpr       // nil if omitted: body's type becomes the signature
	Body       Expr
	Span       token.Span
}

func (*FunctionDecl) definitionNode() {}

// SelfParameter distinguishes `self`, `&self`, `&mut self`.
type SelfParameter struct {
	ByReference bool
	Mutability  *MutabilityExpr // nil when ByReference is false
	Span        token.Span
}

type FunctionTemplateDecl struct {
	Name       Name
	Parameters []TemplateParameter
	Function   FunctionDecl
	Span       token.Span
}

func (*FunctionTemplateDecl) definitionNode() {}

// TypeclassDecl declares a typeclass's method signatures (bodies are
// supplied separately by InstantiationDecl blocks).
type TypeclassDecl struct {
	Name    Name
	Methods []FunctionDecl
	Span    token.Span
}

func (*TypeclassDecl) definitionNode() {}

type TypeclassTemplateDecl struct {
	Name       Name
	Parameters []TemplateParameter
	Typeclass  TypeclassDecl
	Span       token.Span
}

func (*TypeclassTemplateDecl) definitionNode() {}

// ImplementationDecl is a nameless inherent-methods block: `impl SelfType { ... }`.
type ImplementationDecl struct {
	SelfType  TypeExpr
	Functions []FunctionDecl
	Templates []FunctionTemplateDecl
	Span      token.Span
}

func (*ImplementationDecl) definitionNode() {}

type ImplementationTemplateDecl struct {
	Parameters []TemplateParameter
	Impl       ImplementationDecl
	Span       token.Span
}

func (*ImplementationTemplateDecl) definitionNode() {}

// InstantiationDecl is a nameless typeclass-instance block: `inst Class for SelfType { ... }`.
type InstantiationDecl struct {
	Typeclass Name
	SelfType  TypeExpr
	Functions []FunctionDecl
	Span      token.Span
}

func (*InstantiationDecl) definitionNode() {}

type InstantiationTemplateDecl struct {
	Parameters []TemplateParameter
	Inst       InstantiationDecl
	Span       token.Span
}

func (*InstantiationTemplateDecl) definitionNode() {}
