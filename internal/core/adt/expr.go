package adt

import (
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// ExprVariant is the sum type of typed expression shapes (spec.md §3.4).
type ExprVariant interface {
	exprVariant()
}

// Expr is a fully elaborated expression node: its variant plus the
// metadata every node carries regardless of shape (spec.md §3.4).
type Expr struct {
	Value         ExprVariant
	Type          Type
	Span          token.Span
	Mutability    Mutability // place mutability: the l-value's mutability, not the type's
	IsAddressable bool
	IsPure        bool
}

// --- literals ---

type IntegerLiteral struct {
	Text   string
	Signed bool
}

func (*IntegerLiteral) exprVariant() {}

type FloatLiteral struct{ Text string }

func (*FloatLiteral) exprVariant() {}

type CharLiteral struct{ Value rune }

func (*CharLiteral) exprVariant() {}

type BoolLiteral struct{ Value bool }

func (*BoolLiteral) exprVariant() {}

type StringLiteral struct{ Value string }

func (*StringLiteral) exprVariant() {}

// --- structural ---

type TupleExpr struct{ Elements []Expr }

func (*TupleExpr) exprVariant() {}

type ArrayExpr struct{ Elements []Expr }

func (*ArrayExpr) exprVariant() {}

// BlockExpr: side-effect list plus an optional tail result (spec.md §4.6).
type BlockExpr struct {
	SideEffects []Expr
	Tail        *Expr
}

func (*BlockExpr) exprVariant() {}

// LoopExpr carries the variable-typed break result the elaborator's
// current_loop_info tracked while visiting the body (spec.md §4.6).
type LoopExpr struct {
	Body      Expr
	IsLowered bool
}

func (*LoopExpr) exprVariant() {}

type BreakExpr struct {
	Label  *intern.Symbol
	Result *Expr
}

func (*BreakExpr) exprVariant() {}

type ContinueExpr struct {
	Label *intern.Symbol
}

func (*ContinueExpr) exprVariant() {}

type ConditionalExpr struct {
	Condition Expr
	Then      Expr
	Else      *Expr
}

func (*ConditionalExpr) exprVariant() {}

type MatchArm struct {
	Pattern Pattern
	Body    Expr
}

type MatchExpr struct {
	Scrutinee Expr
	Arms      []MatchArm
}

func (*MatchExpr) exprVariant() {}

type LetExpr struct {
	Pattern Pattern
	Value   Expr
}

func (*LetExpr) exprVariant() {}

type LocalAliasExpr struct {
	Name intern.Symbol
	Type Type
}

func (*LocalAliasExpr) exprVariant() {}

type ReferenceExpr struct {
	Mutability Mutability
	Operand    Expr
}

func (*ReferenceExpr) exprVariant() {}

// DereferenceExpr distinguishes reference vs. unsafe-pointer dereference,
// since only the latter requires an active unsafe context (spec.md §4.6).
type DereferenceExpr struct {
	Operand  Expr
	IsUnsafe bool
}

func (*DereferenceExpr) exprVariant() {}

type AddressofExpr struct{ Operand Expr }

func (*AddressofExpr) exprVariant() {}

type MoveExpr struct{ Operand Expr }

func (*MoveExpr) exprVariant() {}

type SizeofExpr struct{ Of Type }

func (*SizeofExpr) exprVariant() {}

type InvocationExpr struct {
	Callee    Expr
	Arguments []Expr
}

func (*InvocationExpr) exprVariant() {}

// EnumConstructorReference names a constructor without invoking it (its
// payload type, if any, determines whether it is itself callable).
type EnumConstructorReference struct {
	Constructor *ConstructorInfo
}

func (*EnumConstructorReference) exprVariant() {}

type EnumConstructorInvocation struct {
	Constructor *ConstructorInfo
	Payload     *Expr
}

func (*EnumConstructorInvocation) exprVariant() {}

// FunctionReference names a function value; IsApplication records whether
// it came from an explicit/synthetic template instantiation, which matters
// for substitution during outer re-instantiation (spec.md §4.8).
type FunctionReference struct {
	Function      *FunctionInfo
	IsApplication bool
	Template      *FunctionTemplateInfo
	Arguments     *TemplateInstantiationInfo
}

func (*FunctionReference) exprVariant() {}

type LocalVariableReference struct {
	Tag uint64
}

func (*LocalVariableReference) exprVariant() {}

type StructInitField struct {
	Field intern.Symbol
	Value Expr
}

type StructInitExpr struct {
	Struct *StructInfo
	Fields []StructInitField
}

func (*StructInitExpr) exprVariant() {}

type StructFieldAccessExpr struct {
	Operand Expr
	Field   intern.Symbol
}

func (*StructFieldAccessExpr) exprVariant() {}

type TupleFieldAccessExpr struct {
	Operand Expr
	Index   int
}

func (*TupleFieldAccessExpr) exprVariant() {}

type SelfExpr struct{}

func (*SelfExpr) exprVariant() {}

type HoleExpr struct{}

func (*HoleExpr) exprVariant() {}
