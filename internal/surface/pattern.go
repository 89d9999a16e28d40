package surface

import "github.com/kieli-lang/resolvecore/internal/token"

// Pattern is the sum type of surface-level patterns.
type Pattern interface {
	patternNode()
	Span() token.Span
}

type patternBase struct{ span token.Span }

func (p patternBase) Span() token.Span { return p.span }

type WildcardPattern struct{ patternBase }

func (*WildcardPattern) patternNode() {}

type LiteralPattern struct {
	patternBase
	Literal Expr // one of the literal Expr kinds
}

func (*LiteralPattern) patternNode() {}

// NamePattern binds the matched value to a new local variable.
type NamePattern struct {
	patternBase
	Name       Name
	Mutability *MutabilityExpr // nil means immutable binding
}

func (*NamePattern) patternNode() {}

type TuplePattern struct {
	patternBase
	Elements []Pattern
}

func (*TuplePattern) patternNode() {}

type SlicePattern struct {
	patternBase
	Elements []Pattern
	Rest     *Pattern // nil if no `..rest` tail
}

func (*SlicePattern) patternNode() {}

// ConstructorPattern matches an enum constructor, with an optional payload
// sub-pattern.
type ConstructorPattern struct {
	patternBase
	Path    Path
	Payload Pattern // nil if the constructor carries no payload
}

func (*ConstructorPattern) patternNode() {}

// AsPattern is `pattern as name`.
type AsPattern struct {
	patternBase
	Inner Pattern
	Alias Name
}

func (*AsPattern) patternNode() {}

// GuardedPattern is `pattern if condition`.
type GuardedPattern struct {
	patternBase
	Inner Pattern
	Guard Expr
}

func (*GuardedPattern) patternNode() {}
