// Package eval is the resolution core's orchestrator (C9): the two-pass
// signature-then-body resolver and the full expression/pattern/type-expr
// elaborator (spec.md §4.6, §4.7). It owns the scope stack, the namespace
// tree it was handed by internal/core/compile, the unification engine, and
// the constraint dispatcher, tying them together the way the teacher's own
// internal/core/eval ties its Environment, Vertex graph and scheduler
// together.
package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/constraint"
	"github.com/kieli-lang/resolvecore/internal/core/instantiate"
	"github.com/kieli-lang/resolvecore/internal/core/method"
	"github.com/kieli-lang/resolvecore/internal/core/unify"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

// Ensure *Context satisfies the instantiator's view of the resolver without
// the two packages importing each other: instantiate.Elaborator is a narrow
// interface instantiate.New accepts, kept in that package to avoid a cycle.
var _ instantiate.Elaborator = (*Context)(nil)

// Context is the resolver's per-compilation-unit state.
type Context struct {
	pool        *intern.Pool
	diagnostics *diag.Builder
	counters    *adt.Counters
	engine      *unify.Engine
	dispatcher  *constraint.Dispatcher
	inst        *instantiate.Instantiator

	// Variable-state cells are arena-owned (C2): many type nodes alias one
	// cell, and the cell must stay at a stable address for the whole
	// compilation unit so journal rollback and flattening both see the same
	// identity (spec.md §3.3, §4.1).
	typeVarStates *adt.Arena[adt.TypeVarState]
	mutVarStates  *adt.Arena[adt.MutabilityVarState]

	root     *adt.Namespace
	nameless adt.NamelessEntities
	methods  *method.Resolver

	unsafeDepth int
	loops       []*loopInfo

	selfType       adt.Type
	selfMutability adt.Mutability
	inSelf         bool

	// funcScopes retains a function's parameter scope, and the self-context
	// active when its signature was resolved, between the signature and
	// body passes. A generic method's body is only resolved well after its
	// impl block finished processing (the two-pass driver resolves bodies
	// in a second sweep over the whole module), so Self has to be restored
	// per function rather than read off whatever impl happens to be active
	// when the body pass gets to it (spec.md §3.5, §5).
	funcScopes map[*adt.FunctionInfo]*funcResolutionState

	// selfContext records the enclosing impl/inst's Self type for a
	// function template, since instantiate.Function resolves the template
	// body on demand, possibly long after resolveImplementation returned.
	selfContext map[*adt.FunctionTemplateInfo]selfCtx
}

type funcResolutionState struct {
	scope          *adt.Scope
	selfType       adt.Type
	selfMutability adt.Mutability
	inSelf         bool
}

type selfCtx struct {
	typ adt.Type
	mut adt.Mutability
}

type loopInfo struct {
	label      *intern.Symbol
	resultType adt.Type
	hasBreak   bool
}

// NewContext creates a fresh resolver context over an already-compiled
// namespace tree's pool and diagnostics sink.
func NewContext(pool *intern.Pool, diagnostics *diag.Builder) *Context {
	counters := adt.NewCounters()
	engine := unify.NewEngine(counters)
	ctx := &Context{
		pool:          pool,
		diagnostics:   diagnostics,
		counters:      counters,
		engine:        engine,
		dispatcher:    constraint.NewDispatcher(engine, diagnostics),
		typeVarStates: adt.NewArena[adt.TypeVarState](256),
		mutVarStates:  adt.NewArena[adt.MutabilityVarState](64),
		funcScopes:    make(map[*adt.FunctionInfo]*funcResolutionState),
		selfContext:   make(map[*adt.FunctionTemplateInfo]selfCtx),
	}
	ctx.inst = instantiate.New(ctx)
	ctx.methods = method.New(engine)
	return ctx
}

// SetTracer redirects every component that can emit trace events —
// the unification engine, the constraint dispatcher, and the template
// instantiator — to t.
func (c *Context) SetTracer(t adt.Tracer) {
	c.engine.SetTracer(t)
	c.dispatcher.SetTracer(t)
	c.inst.SetTracer(t)
}

// SetRoot records the module's root namespace and nameless impl/inst
// entities, used by method resolution (C11) to walk NamelessEntities and by
// the CLI driver to dump the tree.
func (c *Context) SetRoot(root *adt.Namespace, nameless adt.NamelessEntities) {
	c.root = root
	c.nameless = nameless
}

func (c *Context) Root() *adt.Namespace { return c.root }

// instantiator returns the shared template instantiator (C10).
func (c *Context) instantiator() *instantiate.Instantiator { return c.inst }

func (c *Context) Pool() *intern.Pool                 { return c.pool }
func (c *Context) Diagnostics() *diag.Builder         { return c.diagnostics }
func (c *Context) Counters() *adt.Counters            { return c.counters }
func (c *Context) Engine() *unify.Engine              { return c.engine }
func (c *Context) Dispatcher() *constraint.Dispatcher { return c.dispatcher }

// FreshTemplateParameterTag mints a process-unique template-parameter tag
// (instantiate.Elaborator).
func (c *Context) FreshTemplateParameterTag() uint64 {
	return c.counters.FreshTemplateParameterTag()
}

// FreshGeneralType mints a fresh general unification variable whose state
// cell lives in the context's arena (instantiate.Elaborator).
func (c *Context) FreshGeneralType() adt.Type { return c.freshGeneral() }

// FreshMutabilityVariable mints a fresh mutability unification variable
// (instantiate.Elaborator).
func (c *Context) FreshMutabilityVariable() adt.Mutability {
	state := c.mutVarStates.AllocValue(adt.MutabilityVarState{Tag: c.counters.FreshUnificationTag()})
	return adt.Mutability{Variant: &adt.MutabilityUnificationVariable{State: state}}
}

// NewScope opens a child scope, or a root scope if parent is nil
// (instantiate.Elaborator).
func (c *Context) NewScope(parent *adt.Scope) *adt.Scope {
	if parent == nil {
		return adt.NewRootScope()
	}
	return parent.Child()
}

// poison stands in for a type that could not be elaborated because of an
// already-reported error, so elaboration can keep going instead of
// panicking on a nil Type.
func (c *Context) poison() adt.Type {
	return c.freshGeneral()
}

func (c *Context) poisonExpr() adt.Expr {
	return adt.Expr{Value: &adt.HoleExpr{}, Type: c.poison(), IsPure: true}
}

func (c *Context) freshGeneral() adt.Type {
	state := c.typeVarStates.AllocValue(adt.TypeVarState{
		Tag: c.counters.FreshUnificationTag(), Kind: adt.VariableGeneral,
	})
	return adt.Type{Variant: &adt.UnificationVariable{State: state}}
}

func (c *Context) freshIntegral() adt.Type {
	state := c.typeVarStates.AllocValue(adt.TypeVarState{
		Tag: c.counters.FreshUnificationTag(), Kind: adt.VariableIntegral,
	})
	return adt.Type{Variant: &adt.UnificationVariable{State: state}}
}

func unitType() adt.Type { return adt.Type{Variant: &adt.TupleType{}} }

func boolType() adt.Type { return adt.Type{Variant: &adt.BooleanType{}} }

// SelfContextFor reports the Self type captured for a method's function
// template when its enclosing impl/inst was resolved (instantiate.Elaborator).
func (c *Context) SelfContextFor(tmpl *adt.FunctionTemplateInfo) (adt.Type, adt.Mutability, bool) {
	sc, ok := c.selfContext[tmpl]
	if !ok {
		return adt.Type{}, adt.Mutability{}, false
	}
	return sc.typ, sc.mut, true
}

// EnterSelfContext pushes typ/mut as the active Self context, returning a
// closure that restores whatever was active before (instantiate.Elaborator).
func (c *Context) EnterSelfContext(typ adt.Type, mut adt.Mutability) func() {
	prevType, prevMut, prevInSelf := c.selfType, c.selfMutability, c.inSelf
	c.selfType, c.selfMutability, c.inSelf = typ, mut, true
	return func() {
		c.selfType, c.selfMutability, c.inSelf = prevType, prevMut, prevInSelf
	}
}

func (c *Context) equate(a, b adt.Type, why string) {
	c.dispatcher.SolveTypeEquality(constraint.TypeEquality{
		Constrainer:     a,
		Constrained:     b,
		ConstrainerNote: constraint.Explanation{Span: a.Span, Note: diag.NewMessagef(why)},
		ConstrainedNote: constraint.Explanation{Span: b.Span, Note: diag.NewMessagef(why)},
	})
}

// equateMutability emits a Mutability_equality constraint. allowCoercion
// permits widening a mutable place to an immutable reference but never the
// reverse (spec.md §4.4's mutability coercion rule).
func (c *Context) equateMutability(requested, place adt.Mutability, allowCoercion bool, why string) {
	c.dispatcher.SolveMutabilityEquality(constraint.MutabilityEquality{
		Constrainer:     requested,
		Constrained:     place,
		ConstrainerNote: constraint.Explanation{Span: requested.Span, Note: diag.NewMessagef(why)},
		ConstrainedNote: constraint.Explanation{Span: place.Span, Note: diag.NewMessagef(why)},
		AllowCoercion:   allowCoercion,
	})
}
