package adt

import "github.com/kieli-lang/resolvecore/internal/intern"

// PatternVariant is the sum type of typed pattern shapes (spec.md §3.4).
type PatternVariant interface {
	patternVariant()
}

// Pattern is a fully elaborated pattern node. IsExhaustiveByItself holds
// iff the pattern matches every value of its type; let-bound patterns and
// top-level function-parameter patterns must have this set (spec.md §3.4).
type Pattern struct {
	Value                PatternVariant
	Type                 Type
	IsExhaustiveByItself bool
}

type WildcardPattern struct{}

func (*WildcardPattern) patternVariant() {}

type LiteralPattern struct{ Literal Expr }

func (*LiteralPattern) patternVariant() {}

// NamePattern binds the matched value to a fresh local-variable tag; that
// tag is the identity reification later uses to compute frame offsets
// (spec.md §4.6).
type NamePattern struct {
	Tag        uint64
	Name       intern.Symbol
	Mutability Mutability
}

func (*NamePattern) patternVariant() {}

type TuplePattern struct{ Elements []Pattern }

func (*TuplePattern) patternVariant() {}

type SlicePattern struct {
	Elements []Pattern
	Rest     *Pattern
}

func (*SlicePattern) patternVariant() {}

type ConstructorPattern struct {
	Constructor *ConstructorInfo
	Payload     *Pattern
}

func (*ConstructorPattern) patternVariant() {}

type AsPattern struct {
	Inner Pattern
	Alias intern.Symbol
	Tag   uint64
}

func (*AsPattern) patternVariant() {}

type GuardedPattern struct {
	Inner Pattern
	Guard Expr
}

func (*GuardedPattern) patternVariant() {}
