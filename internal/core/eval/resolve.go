package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// ResolveModule drives the two-pass resolver over a compiled namespace tree
// (C8/C9, spec.md §4.7): impl/inst blocks first register and signature-
// resolve their methods (their Self type has to be known before anything
// else can speculatively match against it), then every definition's
// signature resolves in registration order, then every still-pending
// function body resolves. Drain happens at the end of each definition as it
// resolves, not as a separate pass (spec.md §4.5).
func (c *Context) ResolveModule(root *adt.Namespace, nameless adt.NamelessEntities) {
	c.SetRoot(root, nameless)

	c.resolveImplementations(nameless)
	c.resolveInstantiations(nameless)

	var pending []*adt.FunctionInfo
	c.walkSignatures(root, &pending)

	for _, fi := range pending {
		c.ResolveFunctionBody(fi)
	}
	for _, impl := range nameless.Implementations {
		for _, fi := range impl.Functions {
			c.ResolveFunctionBody(fi)
		}
	}
	for _, inst := range nameless.Instantiations {
		for _, fi := range inst.Functions {
			c.ResolveFunctionBody(fi)
		}
	}
}

// walkSignatures visits every definition in ns, in registration order,
// resolving struct/enum/alias/function signatures and recursing into child
// namespaces. Bare templates are left Unresolved until something
// instantiates them (spec.md §4.8); generic impls, generic insts and
// typeclass templates are registered but their resolution is a documented
// open question (spec.md §9).
func (c *Context) walkSignatures(ns *adt.Namespace, pending *[]*adt.FunctionInfo) {
	for _, name := range ns.OrderedNames() {
		if le, ok := ns.LookupLower(name, false); ok {
			switch {
			case le.Function != nil:
				c.ResolveFunctionSignature(le.Function, nil)
				if le.Function.BodyState == adt.BodyPartiallyResolved {
					*pending = append(*pending, le.Function)
				}
			case le.Namespace != nil:
				c.walkSignatures(le.Namespace, pending)
			}
			continue
		}
		ue, ok := ns.LookupUpper(name, false)
		if !ok {
			continue
		}
		switch {
		case ue.Struct != nil:
			c.ResolveStructSignature(ue.Struct, nil)
		case ue.Enum != nil:
			c.ResolveEnumSignature(ue.Enum, nil)
		case ue.Alias != nil:
			c.ResolveAliasSignature(ue.Alias, nil)
		case ue.Typeclass != nil:
			c.resolveTypeclassSignature(ue.Typeclass)
		}
	}
}

// ResolveFunctionSignature resolves info's self parameter, parameters and
// (if explicit) return type. A nil return type means the body's own type
// becomes the signature's return type, so the body is resolved eagerly
// before this call returns rather than deferred to the second pass
// (spec.md §3.5, §4.7).
func (c *Context) ResolveFunctionSignature(info *adt.FunctionInfo, parentScope *adt.Scope) {
	if info.State == adt.OnStack {
		c.diagnostics.Error(
			diag.NewMessagef("%q's signature depends on itself", info.Name.String()),
			diag.Section{Span: info.Span, Note: diag.NewMessagef("declared here")},
		)
		return
	}
	if info.BodyState != adt.BodyUnresolved {
		return
	}
	info.State = adt.OnStack

	scope := c.NewScope(parentScope)
	ns := info.Home
	decl := info.Surface

	selfParam := c.resolveSelfParameter(scope, decl)

	params := make([]adt.ParameterInfo, len(decl.Parameters))
	for i, p := range decl.Parameters {
		if p.HasLabel {
			c.diagnostics.Error(
				diag.NewMessagef("named function arguments are not supported yet"),
				diag.Section{Span: p.Label.Span, Note: diag.NewMessagef("label declared here")},
			)
		}
		ty := c.elaborateParameterType(ns, scope, p.Type)
		pat := c.ElaboratePattern(ns, scope, p.Pattern, ty)
		if !pat.IsExhaustiveByItself {
			c.diagnostics.Error(
				diag.NewMessagef("function parameter pattern is not exhaustive"),
				diag.Section{Span: p.Pattern.Span(), Note: diag.NewMessagef("declared here")},
			)
		}
		params[i] = adt.ParameterInfo{Pattern: pat, Type: ty}
	}

	eager := decl.ReturnType == nil
	var ret adt.Type
	if !eager {
		ret = c.ElaborateTypeExpr(ns, scope, decl.ReturnType)
	}

	info.Signature = adt.FunctionSignature{SelfParameter: selfParam, Parameters: params, Return: ret}
	info.BodyState = adt.BodyPartiallyResolved
	c.funcScopes[info] = &funcResolutionState{
		scope: scope, selfType: c.selfType, selfMutability: c.selfMutability, inSelf: c.inSelf,
	}
	c.dispatcher.Drain()

	if eager {
		c.resolveFunctionBodyNow(info)
		return
	}
	info.State = adt.Resolved
}

// resolveSelfParameter binds `self` into scope if decl declares one,
// reporting an error if self is used outside an active Self context
// (spec.md §3.8, §4.6).
func (c *Context) resolveSelfParameter(scope *adt.Scope, decl *surface.FunctionDecl) *adt.SelfParameterInfo {
	if decl.SelfParam == nil {
		return nil
	}
	if !c.inSelf {
		c.diagnostics.Error(
			diag.NewMessagef("self parameter is only valid inside an impl or inst block"),
			diag.Section{Span: decl.SelfParam.Span, Note: diag.NewMessagef("declared here")},
		)
	}

	var selfType adt.Type
	var bindingMut adt.Mutability
	var info *adt.SelfParameterInfo
	if decl.SelfParam.ByReference {
		mut := c.ElaborateMutabilityExpr(scope, decl.SelfParam.Mutability)
		selfType = adt.Type{Variant: &adt.ReferenceType{Mutability: mut, Referent: c.selfType}, Span: decl.SelfParam.Span}
		bindingMut = mut
		info = &adt.SelfParameterInfo{ByReference: true, Mutability: mut}
	} else {
		selfType = c.selfType
		bindingMut = c.selfMutability
		info = &adt.SelfParameterInfo{ByReference: false, Mutability: c.selfMutability}
	}

	tag := c.counters.FreshLocalVariableTag()
	scope.BindVariable(c.diagnostics, c.pool.Intern("self"), &adt.VariableBinding{
		Tag: tag, Type: selfType, Mutability: bindingMut, Span: decl.SelfParam.Span,
	})
	return info
}

// ResolveFunctionBody resolves info's body against the scope and self
// context captured when its signature was resolved (spec.md §4.7's second
// pass). A no-op if the body is already resolved, or if the signature never
// completed because of an already-reported cycle.
func (c *Context) ResolveFunctionBody(info *adt.FunctionInfo) {
	if info.BodyState != adt.BodyPartiallyResolved {
		return
	}
	c.resolveFunctionBodyNow(info)
}

func (c *Context) resolveFunctionBodyNow(info *adt.FunctionInfo) {
	state, ok := c.funcScopes[info]
	if !ok {
		state = &funcResolutionState{scope: c.NewScope(nil)}
	}
	prevType, prevMut, prevInSelf := c.selfType, c.selfMutability, c.inSelf
	c.selfType, c.selfMutability, c.inSelf = state.selfType, state.selfMutability, state.inSelf

	ns := info.Home
	body := c.ElaborateValueExpr(ns, state.scope, info.Surface.Body)
	if info.Signature.Return.Variant == nil {
		info.Signature.Return = body.Type
	} else {
		c.equate(body.Type, info.Signature.Return, "function body must match its declared return type")
	}
	state.scope.Close(c.diagnostics)

	info.Body = body
	info.BodyState = adt.BodyResolved
	info.Surface = nil
	info.State = adt.Resolved
	delete(c.funcScopes, info)

	c.selfType, c.selfMutability, c.inSelf = prevType, prevMut, prevInSelf
	c.dispatcher.Drain()
}

// ResolveStructSignature resolves info's field types. A forward
// self-reference (info.State == OnStack) is not an error here: the struct's
// own stable *StructInfo pointer stands in as a placeholder, the same way a
// pointer into a C struct can name its own type before the struct is fully
// laid out. A field that is genuinely unindirected and self-referential
// (infinite size) is instead caught by core/reify's size computation
// (spec_full's supplemented "temporary placeholder type" design).
func (c *Context) ResolveStructSignature(info *adt.StructInfo, parentScope *adt.Scope) {
	if info.State != adt.Unresolved {
		return
	}
	info.State = adt.OnStack
	scope := c.NewScope(parentScope)
	ns := info.Home

	fields := make([]adt.FieldInfo, len(info.Surface.Fields))
	for i, f := range info.Surface.Fields {
		fields[i] = adt.FieldInfo{Name: c.pool.Intern(f.Name.Text), Type: c.ElaborateTypeExpr(ns, scope, f.Type)}
	}
	info.Fields = fields
	info.State = adt.Resolved
	c.dispatcher.Drain()
}

// ResolveEnumSignature resolves info's constructor payload types and
// registers the constructors into the enum's associated namespace (spec.md
// §4.2). Forward self-reference behaves the same as ResolveStructSignature.
func (c *Context) ResolveEnumSignature(info *adt.EnumInfo, parentScope *adt.Scope) {
	if info.State != adt.Unresolved {
		return
	}
	info.State = adt.OnStack
	scope := c.NewScope(parentScope)
	ns := info.Home

	ctors := make([]adt.ConstructorInfo, len(info.Surface.Constructors))
	for i, ctor := range info.Surface.Constructors {
		var payload *adt.Type
		if ctor.Payload != nil {
			t := c.ElaborateTypeExpr(ns, scope, ctor.Payload)
			payload = &t
		}
		ctors[i] = adt.ConstructorInfo{Name: c.pool.Intern(ctor.Name.Text), Payload: payload, Enum: info}
	}
	info.Constructors = ctors
	info.State = adt.Resolved

	assoc, _ := adt.AssociatedNamespaceIf(adt.Type{Variant: &adt.EnumerationType{Info: info}})
	assoc.AddConstructors(info)
	c.dispatcher.Drain()
}

// ResolveAliasSignature resolves info's aliased type. Unlike a struct or
// enum, an alias has no identity of its own to stand in as a placeholder
// during a forward reference — it literally is its type, substituted
// structurally wherever it is named — so a self-reference here is always a
// genuine cycle, not a recursive-but-finite shape (spec.md §8's "circular
// type alias" scenario).
func (c *Context) ResolveAliasSignature(info *adt.AliasInfo, parentScope *adt.Scope) {
	if info.State == adt.Resolved {
		return
	}
	if info.State == adt.OnStack {
		c.diagnostics.Error(
			diag.NewMessagef("circular type alias: %q refers to itself", info.Name.String()),
			diag.Section{Span: info.Span, Note: diag.NewMessagef("declared here")},
		)
		info.Type = c.poison()
		info.State = adt.Resolved
		return
	}
	info.State = adt.OnStack
	scope := c.NewScope(parentScope)
	info.Type = c.ElaborateTypeExpr(info.Home, scope, info.Surface.Type)
	info.State = adt.Resolved
	c.dispatcher.Drain()
}

// resolveTypeclassSignature marks a typeclass declaration resolved.
// Matching instance methods against the declared signatures is the
// documented `Instance`-constraint open question (spec.md §9); the
// typeclass record exists so that constraint has somewhere to point.
func (c *Context) resolveTypeclassSignature(info *adt.TypeclassInfo) {
	if info.State != adt.Unresolved {
		return
	}
	info.State = adt.Resolved
}

// resolveImplementations resolves every inherent impl block's Self type and
// registers + signature-resolves its methods into that type's associated
// namespace (spec.md §4.7, §4.9). Generic impls are registered by
// internal/core/compile but their resolution is left pending, per the same
// open question as typeclass instance resolution (spec.md §9).
func (c *Context) resolveImplementations(nameless adt.NamelessEntities) {
	for _, impl := range nameless.Implementations {
		c.resolveImplementation(impl)
	}
}

func (c *Context) resolveImplementation(impl *adt.ImplementationInfo) {
	if impl.State != adt.Unresolved {
		return
	}
	impl.State = adt.OnStack
	selfScope := c.NewScope(nil)
	impl.SelfType = c.ElaborateTypeExpr(impl.Home, selfScope, impl.Surface.SelfType)

	prevType, prevMut, prevInSelf := c.selfType, c.selfMutability, c.inSelf
	c.selfType = impl.SelfType
	c.selfMutability = adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}}
	c.inSelf = true

	assoc, hasAssoc := adt.AssociatedNamespaceIf(impl.SelfType)

	for i := range impl.Surface.Functions {
		decl := &impl.Surface.Functions[i]
		fi := &adt.FunctionInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: impl.Home,
			State: adt.Unresolved, Surface: decl,
		}
		impl.Functions[fi.Name] = fi
		if hasAssoc {
			c.registerMethod(assoc, fi.Name, adt.LowerEntry{Function: fi}, decl.Span)
		}
		c.ResolveFunctionSignature(fi, nil)
	}

	for i := range impl.Surface.Templates {
		decl := &impl.Surface.Templates[i]
		ti := &adt.FunctionTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: impl.Home,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		impl.Templates[ti.Name] = ti
		if hasAssoc {
			c.registerMethod(assoc, ti.Name, adt.LowerEntry{FunctionTemplate: ti}, decl.Span)
		}
		c.selfContext[ti] = selfCtx{typ: impl.SelfType, mut: c.selfMutability}
	}

	c.selfType, c.selfMutability, c.inSelf = prevType, prevMut, prevInSelf
	impl.State = adt.Resolved
	c.dispatcher.Drain()
}

// resolveInstantiations resolves every typeclass-instance block's Self type
// and registers its methods the same way an inherent impl does, so a direct
// `receiver.method()` call finds them; dispatching a typeclass-bound generic
// to the right instance is the separate, unimplemented `Instance`-constraint
// question (spec.md §4.9, §9).
func (c *Context) resolveInstantiations(nameless adt.NamelessEntities) {
	for _, inst := range nameless.Instantiations {
		c.resolveInstantiation(inst)
	}
}

func (c *Context) resolveInstantiation(inst *adt.InstantiationInfo) {
	if inst.State != adt.Unresolved {
		return
	}
	inst.State = adt.OnStack
	selfScope := c.NewScope(nil)
	inst.SelfType = c.ElaborateTypeExpr(inst.Home, selfScope, inst.Surface.SelfType)

	prevType, prevMut, prevInSelf := c.selfType, c.selfMutability, c.inSelf
	c.selfType = inst.SelfType
	c.selfMutability = adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}}
	c.inSelf = true

	assoc, hasAssoc := adt.AssociatedNamespaceIf(inst.SelfType)

	for i := range inst.Surface.Functions {
		decl := &inst.Surface.Functions[i]
		fi := &adt.FunctionInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: inst.Home,
			State: adt.Unresolved, Surface: decl,
		}
		inst.Functions[fi.Name] = fi
		if hasAssoc {
			c.registerMethod(assoc, fi.Name, adt.LowerEntry{Function: fi}, decl.Span)
		}
		c.ResolveFunctionSignature(fi, nil)
	}

	c.selfType, c.selfMutability, c.inSelf = prevType, prevMut, prevInSelf
	inst.State = adt.Resolved
	c.dispatcher.Drain()
}

func (c *Context) registerMethod(assoc *adt.Namespace, name intern.Symbol, entry adt.LowerEntry, span token.Span) {
	if err := assoc.InsertLower(name, entry); err != nil {
		c.diagnostics.Error(
			diag.NewMessagef("%q is already defined for this type", name.String()),
			diag.Section{Span: span, Note: diag.NewMessagef("redefined here")},
		)
	}
}
