package adt

import (
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// VariableBinding is a local variable's entry in the scope stack.
type VariableBinding struct {
	Tag        uint64
	Type       Type
	Mutability Mutability
	Span       token.Span
	mentioned  bool
}

// TypeAliasBinding is a local type-alias entry (from a `LocalAliasExpr`).
type TypeAliasBinding struct {
	Type Type
	Span token.Span
}

// MutabilityParamBinding is an in-scope mutability template parameter.
type MutabilityParamBinding struct {
	Tag  uint64
	Span token.Span
}

// Scope is one lexical block's bindings, chained to its parent (spec.md
// §4.3). Three parallel maps, as specified: variables, type aliases,
// mutability parameters.
type Scope struct {
	parent *Scope

	variables map[intern.Symbol]*VariableBinding
	varOrder  []intern.Symbol

	typeAliases map[intern.Symbol]*TypeAliasBinding
	mutParams   map[intern.Symbol]*MutabilityParamBinding
}

// NewRootScope creates a scope with no parent (function-body entry).
func NewRootScope() *Scope {
	return &Scope{
		variables:   make(map[intern.Symbol]*VariableBinding),
		typeAliases: make(map[intern.Symbol]*TypeAliasBinding),
		mutParams:   make(map[intern.Symbol]*MutabilityParamBinding),
	}
}

// Child opens a fresh scope chained to s, as every block does on entry
// (spec.md §4.3).
func (s *Scope) Child() *Scope {
	child := NewRootScope()
	child.parent = s
	return child
}

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// BindVariable introduces a new local-variable binding in this scope.
//
// If name shadows an un-mentioned binding already present in this exact
// scope, a warning is emitted (shadowing across scopes is silent); an
// identifier beginning with `_` is considered pre-mentioned and never
// warns either way (spec.md §4.3).
func (s *Scope) BindVariable(b *diag.Builder, name intern.Symbol, binding *VariableBinding) {
	if existing, ok := s.variables[name]; ok && !existing.mentioned && !intern.IsDiscard(name.String()) {
		b.Warning(
			diag.NewMessagef("binding %q shadows an unused binding", name.String()),
			diag.Section{Span: existing.Span, Note: diag.NewMessagef("previous binding here")},
			diag.Section{Span: binding.Span, Note: diag.NewMessagef("shadowed here")},
		)
	}
	if intern.IsDiscard(name.String()) {
		binding.mentioned = true
	}
	if _, existed := s.variables[name]; !existed {
		s.varOrder = append(s.varOrder, name)
	}
	s.variables[name] = binding
}

// BindTypeAlias introduces a local type-alias binding.
func (s *Scope) BindTypeAlias(name intern.Symbol, binding *TypeAliasBinding) {
	s.typeAliases[name] = binding
}

// BindMutabilityParam introduces an in-scope mutability template parameter.
func (s *Scope) BindMutabilityParam(name intern.Symbol, binding *MutabilityParamBinding) {
	s.mutParams[name] = binding
}

// LookupVariable walks the scope chain outward, marking the binding
// mentioned on success.
func (s *Scope) LookupVariable(name intern.Symbol) (*VariableBinding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.variables[name]; ok {
			v.mentioned = true
			return v, true
		}
	}
	return nil, false
}

// LookupTypeAlias walks the scope chain outward.
func (s *Scope) LookupTypeAlias(name intern.Symbol) (*TypeAliasBinding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.typeAliases[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupMutabilityParam walks the scope chain outward.
func (s *Scope) LookupMutabilityParam(name intern.Symbol) (*MutabilityParamBinding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.mutParams[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Close is called on lexical exit: any un-mentioned, non-underscore
// binding in this exact scope produces an `unused` warning (spec.md §4.3).
func (s *Scope) Close(b *diag.Builder) {
	for _, name := range s.varOrder {
		binding := s.variables[name]
		if binding.mentioned || intern.IsDiscard(name.String()) {
			continue
		}
		b.Warning(
			diag.NewMessagef("unused binding %q", name.String()),
			diag.Section{Span: binding.Span, Note: diag.NewMessagef("bound here but never used")},
		)
	}
}
