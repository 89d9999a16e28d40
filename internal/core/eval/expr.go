package eval

import (
	"fmt"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/constraint"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// ElaborateValueExpr turns a surface value expression into a fully typed
// adt.Expr, emitting constraints to the dispatcher as it goes; the
// dispatcher solves each one immediately unless it defers it
// (spec.md §4.4, §4.6).
func (c *Context) ElaborateValueExpr(ns *adt.Namespace, scope *adt.Scope, e surface.Expr) adt.Expr {
	switch ex := e.(type) {
	case *surface.IntegerLiteral:
		return adt.Expr{Value: &adt.IntegerLiteral{Text: ex.Text, Signed: true}, Type: c.freshIntegral(), Span: ex.Span(), IsPure: true}

	case *surface.FloatLiteral:
		return adt.Expr{Value: &adt.FloatLiteral{Text: ex.Text}, Type: adt.Type{Variant: &adt.FloatingType{}, Span: ex.Span()}, Span: ex.Span(), IsPure: true}

	case *surface.CharLiteral:
		return adt.Expr{Value: &adt.CharLiteral{Value: ex.Value}, Type: adt.Type{Variant: &adt.CharacterType{}, Span: ex.Span()}, Span: ex.Span(), IsPure: true}

	case *surface.BoolLiteral:
		return adt.Expr{Value: &adt.BoolLiteral{Value: ex.Value}, Type: adt.Type{Variant: &adt.BooleanType{}, Span: ex.Span()}, Span: ex.Span(), IsPure: true}

	case *surface.StringLiteral:
		return adt.Expr{Value: &adt.StringLiteral{Value: ex.Value}, Type: adt.Type{Variant: &adt.StringType{}, Span: ex.Span()}, Span: ex.Span(), IsPure: true}

	case *surface.TupleExpr:
		elems := make([]adt.Expr, len(ex.Elements))
		types := make([]adt.Type, len(ex.Elements))
		pure := true
		for i, sub := range ex.Elements {
			elems[i] = c.ElaborateValueExpr(ns, scope, sub)
			types[i] = elems[i].Type
			pure = pure && elems[i].IsPure
		}
		return adt.Expr{Value: &adt.TupleExpr{Elements: elems}, Type: adt.Type{Variant: &adt.TupleType{Elements: types}, Span: ex.Span()}, Span: ex.Span(), IsPure: pure}

	case *surface.ArrayExpr:
		return c.elaborateArray(ns, scope, ex)

	case *surface.BlockExpr:
		return c.elaborateBlock(ns, scope, ex)

	case *surface.LoopExpr:
		return c.elaborateLoop(ns, scope, ex)

	case *surface.BreakExpr:
		return c.elaborateBreak(ns, scope, ex)

	case *surface.ContinueExpr:
		return adt.Expr{Value: &adt.ContinueExpr{Label: c.internLabel(ex.Label)}, Type: c.freshGeneral(), Span: ex.Span()}

	case *surface.IfExpr:
		return c.elaborateIf(ns, scope, ex)

	case *surface.MatchExpr:
		return c.elaborateMatch(ns, scope, ex)

	case *surface.LetExpr:
		return c.elaborateLet(ns, scope, ex)

	case *surface.LocalAliasExpr:
		ty := c.ElaborateTypeExpr(ns, scope, ex.Type)
		scope.BindTypeAlias(c.pool.Intern(ex.Name.Text), &adt.TypeAliasBinding{Type: ty, Span: ex.Span()})
		return adt.Expr{Value: &adt.LocalAliasExpr{Name: c.pool.Intern(ex.Name.Text), Type: ty}, Type: unitType(), Span: ex.Span(), IsPure: true}

	case *surface.ReferenceExpr:
		mut := c.ElaborateMutabilityExpr(scope, ex.Mutability)
		operand := c.ElaborateValueExpr(ns, scope, ex.Operand)
		c.requireAddressable(operand, "a reference can only be taken to an addressable place")
		if operand.IsAddressable {
			c.equateMutability(mut, operand.Mutability, true, "a reference's mutability must not exceed its operand's place mutability")
		}
		return adt.Expr{
			Value:  &adt.ReferenceExpr{Mutability: mut, Operand: operand},
			Type:   adt.Type{Variant: &adt.ReferenceType{Mutability: mut, Referent: operand.Type}, Span: ex.Span()},
			Span:   ex.Span(),
			IsPure: operand.IsPure,
		}

	case *surface.DereferenceExpr:
		return c.elaborateDereference(ns, scope, ex)

	case *surface.AddressofExpr:
		operand := c.ElaborateValueExpr(ns, scope, ex.Operand)
		c.requireAddressable(operand, "addressof requires an addressable place")
		return adt.Expr{
			Value:  &adt.AddressofExpr{Operand: operand},
			Type:   adt.Type{Variant: &adt.PointerType{Mutability: operand.Mutability, Referent: operand.Type}, Span: ex.Span()},
			Span:   ex.Span(),
			IsPure: operand.IsPure,
		}

	case *surface.MoveExpr:
		operand := c.ElaborateValueExpr(ns, scope, ex.Operand)
		c.requireAddressable(operand, "move requires an addressable place")
		return adt.Expr{Value: &adt.MoveExpr{Operand: operand}, Type: operand.Type, Span: ex.Span(), IsPure: operand.IsPure}

	case *surface.SizeofExpr:
		ty := c.ElaborateTypeExpr(ns, scope, ex.Type)
		return adt.Expr{Value: &adt.SizeofExpr{Of: ty}, Type: adt.Type{Variant: &adt.IntegerType{Width: adt.Width64, Signed: false}, Span: ex.Span()}, Span: ex.Span(), IsPure: true}

	case *surface.InvocationExpr:
		return c.elaborateInvocation(ns, scope, ex)

	case *surface.MethodCallExpr:
		return c.elaborateMethodCall(ns, scope, ex)

	case *surface.TemplateApplicationExpr:
		return c.elaborateTemplateApplication(ns, scope, ex)

	case *surface.VariableExpr:
		return c.elaborateVariable(ns, scope, ex)

	case *surface.StructInitExpr:
		return c.elaborateStructInit(ns, scope, ex)

	case *surface.FieldAccessExpr:
		return c.elaborateFieldAccess(ns, scope, ex)

	case *surface.SelfExpr:
		name := c.pool.Intern("self")
		binding, ok := scope.LookupVariable(name)
		if !ok {
			c.diagnostics.Error(
				diag.NewMessagef("self is not available here"),
				diag.Section{Span: ex.Span(), Note: diag.NewMessagef("used here")},
			)
			return c.poisonExpr()
		}
		return adt.Expr{Value: &adt.SelfExpr{}, Type: binding.Type, Span: ex.Span(), Mutability: binding.Mutability, IsAddressable: true, IsPure: true}

	case *surface.HoleExpr:
		return adt.Expr{Value: &adt.HoleExpr{}, Type: c.freshGeneral(), Span: ex.Span(), IsPure: true}

	case *surface.UnsafeExpr:
		c.unsafeDepth++
		body := c.ElaborateValueExpr(ns, scope, ex.Body)
		c.unsafeDepth--
		return body

	case *surface.ForExpr, *surface.LambdaExpr, *surface.RetExpr, *surface.CastExpr, *surface.BinaryExpr, *surface.MetaExpr:
		c.diagnostics.Error(
			diag.NewMessagef("this expression form is not supported yet"),
			diag.Section{Span: e.Span(), Note: diag.NewMessagef("used here")},
		)
		return c.poisonExpr()

	default:
		return c.poisonExpr()
	}
}

// rejectNamedArguments refuses `name: value` call-argument labels: the AST
// carries the slot but elaboration does not accept it (spec.md §9).
func (c *Context) rejectNamedArguments(names []*surface.Name) {
	for _, name := range names {
		if name == nil {
			continue
		}
		c.diagnostics.Error(
			diag.NewMessagef("named function arguments are not supported yet"),
			diag.Section{Span: name.Span, Note: diag.NewMessagef("argument named here")},
		)
	}
}

func (c *Context) requireAddressable(operand adt.Expr, why string) {
	if operand.IsAddressable {
		return
	}
	c.diagnostics.Error(
		diag.NewMessagef(why),
		diag.Section{Span: operand.Span, Note: diag.NewMessagef("this expression has no address")},
	)
}

func (c *Context) internLabel(name *surface.Name) *intern.Symbol {
	if name == nil {
		return nil
	}
	sym := c.pool.Intern(name.Text)
	return &sym
}

func (c *Context) elaborateArray(ns *adt.Namespace, scope *adt.Scope, ex *surface.ArrayExpr) adt.Expr {
	elems := make([]adt.Expr, len(ex.Elements))
	elemType := c.freshGeneral()
	for i, sub := range ex.Elements {
		elems[i] = c.ElaborateValueExpr(ns, scope, sub)
		c.equate(elems[i].Type, elemType, "every array element must share the array's element type")
	}
	length := adt.Expr{
		Value:  &adt.IntegerLiteral{Text: fmt.Sprintf("%d", len(ex.Elements)), Signed: false},
		Type:   adt.Type{Variant: &adt.IntegerType{Width: adt.Width64, Signed: false}},
		IsPure: true,
	}
	return adt.Expr{
		Value: &adt.ArrayExpr{Elements: elems},
		Type:  adt.Type{Variant: &adt.ArrayType{Element: elemType, Length: &length}, Span: ex.Span()},
		Span:  ex.Span(),
	}
}

func (c *Context) elaborateBlock(ns *adt.Namespace, scope *adt.Scope, ex *surface.BlockExpr) adt.Expr {
	inner := scope.Child()
	effects := make([]adt.Expr, len(ex.SideEffects))
	pure := true
	for i, s := range ex.SideEffects {
		effects[i] = c.ElaborateValueExpr(ns, inner, s)
		c.equate(effects[i].Type, unitType(), "a block's side-effect expression must evaluate to unit")
		if effects[i].IsPure {
			c.diagnostics.Warning(
				diag.NewMessagef("side-effect expression has no effect"),
				diag.Section{Span: effects[i].Span, Note: diag.NewMessagef("pure expression used as a statement here")},
			)
		}
		pure = pure && effects[i].IsPure
	}
	var tail *adt.Expr
	resultType := unitType()
	if ex.Tail != nil {
		t := c.ElaborateValueExpr(ns, inner, ex.Tail)
		tail = &t
		resultType = t.Type
		pure = pure && t.IsPure
	}
	inner.Close(c.diagnostics)
	return adt.Expr{Value: &adt.BlockExpr{SideEffects: effects, Tail: tail}, Type: resultType, Span: ex.Span(), IsPure: pure}
}

func (c *Context) elaborateLoop(ns *adt.Namespace, scope *adt.Scope, ex *surface.LoopExpr) adt.Expr {
	loop := &loopInfo{label: c.internLabel(ex.Label), resultType: c.freshGeneral()}
	c.loops = append(c.loops, loop)
	body := c.ElaborateValueExpr(ns, scope, ex.Body)
	c.loops = c.loops[:len(c.loops)-1]

	resultType := unitType()
	if loop.hasBreak {
		resultType = loop.resultType
	}
	if !ex.IsLowered {
		c.equate(body.Type, unitType(), "a bare loop body must evaluate to unit; use break to produce a value")
	}
	return adt.Expr{Value: &adt.LoopExpr{Body: body, IsLowered: ex.IsLowered}, Type: resultType, Span: ex.Span()}
}

func (c *Context) findLoop(label *surface.Name) *loopInfo {
	if label == nil {
		if len(c.loops) == 0 {
			return nil
		}
		return c.loops[len(c.loops)-1]
	}
	sym := c.pool.Intern(label.Text)
	for i := len(c.loops) - 1; i >= 0; i-- {
		if c.loops[i].label != nil && c.loops[i].label.Equal(sym) {
			return c.loops[i]
		}
	}
	return nil
}

func (c *Context) elaborateBreak(ns *adt.Namespace, scope *adt.Scope, ex *surface.BreakExpr) adt.Expr {
	loop := c.findLoop(ex.Label)
	if loop == nil {
		c.diagnostics.Error(
			diag.NewMessagef("break used outside of a loop"),
			diag.Section{Span: ex.Span(), Note: diag.NewMessagef("used here")},
		)
		return c.poisonExpr()
	}
	var result *adt.Expr
	resultType := unitType()
	if ex.Result != nil {
		r := c.ElaborateValueExpr(ns, scope, ex.Result)
		result = &r
		resultType = r.Type
	}
	loop.hasBreak = true
	c.equate(resultType, loop.resultType, "every break in a loop must produce the same type")
	return adt.Expr{Value: &adt.BreakExpr{Label: c.internLabel(ex.Label), Result: result}, Type: c.freshGeneral(), Span: ex.Span()}
}

func (c *Context) elaborateIf(ns *adt.Namespace, scope *adt.Scope, ex *surface.IfExpr) adt.Expr {
	cond := c.ElaborateValueExpr(ns, scope, ex.Condition)
	c.equate(cond.Type, boolType(), "an if condition must be a boolean expression")
	then := c.ElaborateValueExpr(ns, scope, ex.Then)
	if ex.Else == nil {
		c.equate(then.Type, unitType(), "an if with no else branch must evaluate to unit")
		return adt.Expr{Value: &adt.ConditionalExpr{Condition: cond, Then: then}, Type: unitType(), Span: ex.Span()}
	}
	els := c.ElaborateValueExpr(ns, scope, ex.Else)
	c.equate(then.Type, els.Type, "both branches of an if/else must produce the same type")
	return adt.Expr{Value: &adt.ConditionalExpr{Condition: cond, Then: then, Else: &els}, Type: then.Type, Span: ex.Span()}
}

func (c *Context) elaborateMatch(ns *adt.Namespace, scope *adt.Scope, ex *surface.MatchExpr) adt.Expr {
	if len(ex.Arms) == 0 {
		c.diagnostics.Error(
			diag.NewMessagef("a match expression must have at least one case"),
			diag.Section{Span: ex.Span(), Note: diag.NewMessagef("matched here")},
		)
		return c.poisonExpr()
	}
	scrutinee := c.ElaborateValueExpr(ns, scope, ex.Scrutinee)
	resultType := c.freshGeneral()
	arms := make([]adt.MatchArm, len(ex.Arms))
	for i, arm := range ex.Arms {
		inner := scope.Child()
		pat := c.ElaboratePattern(ns, inner, arm.Pattern, scrutinee.Type)
		if arm.Guard != nil {
			guard := c.ElaborateValueExpr(ns, inner, arm.Guard)
			c.equate(guard.Type, boolType(), "a match guard must be a boolean expression")
			pat = adt.Pattern{Value: &adt.GuardedPattern{Inner: pat, Guard: guard}, Type: pat.Type}
		}
		body := c.ElaborateValueExpr(ns, inner, arm.Body)
		c.equate(body.Type, resultType, "every match arm must produce the same type")
		inner.Close(c.diagnostics)
		arms[i] = adt.MatchArm{Pattern: pat, Body: body}
	}
	return adt.Expr{Value: &adt.MatchExpr{Scrutinee: scrutinee, Arms: arms}, Type: resultType, Span: ex.Span()}
}

func (c *Context) elaborateLet(ns *adt.Namespace, scope *adt.Scope, ex *surface.LetExpr) adt.Expr {
	value := c.ElaborateValueExpr(ns, scope, ex.Value)
	expected := value.Type
	if ex.Type != nil {
		expected = c.ElaborateTypeExpr(ns, scope, ex.Type)
		c.equate(value.Type, expected, "let binding's initialiser must match its declared type")
	}
	pat := c.ElaboratePattern(ns, scope, ex.Pattern, expected)
	if !pat.IsExhaustiveByItself {
		c.diagnostics.Error(
			diag.NewMessagef("let binding's pattern is not exhaustive"),
			diag.Section{Span: ex.Pattern.Span(), Note: diag.NewMessagef("declared here")},
		)
	}
	return adt.Expr{Value: &adt.LetExpr{Pattern: pat, Value: value}, Type: unitType(), Span: ex.Span(), IsPure: value.IsPure}
}

func (c *Context) elaborateDereference(ns *adt.Namespace, scope *adt.Scope, ex *surface.DereferenceExpr) adt.Expr {
	operand := c.ElaborateValueExpr(ns, scope, ex.Operand)
	switch v := operand.Type.FlattenedValue().(type) {
	case *adt.PointerType:
		c.requireUnsafe(ex.Span(), "pointer dereference")
		return adt.Expr{Value: &adt.DereferenceExpr{Operand: operand, IsUnsafe: true}, Type: v.Referent, Span: ex.Span(), Mutability: v.Mutability, IsAddressable: true}
	case *adt.ReferenceType:
		return adt.Expr{Value: &adt.DereferenceExpr{Operand: operand, IsUnsafe: false}, Type: v.Referent, Span: ex.Span(), Mutability: v.Mutability, IsAddressable: true}
	default:
		referent := c.freshGeneral()
		mut := adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}}
		c.equate(operand.Type, adt.Type{Variant: &adt.ReferenceType{Mutability: mut, Referent: referent}}, "dereference requires a reference or a pointer")
		return adt.Expr{Value: &adt.DereferenceExpr{Operand: operand}, Type: referent, Span: ex.Span(), Mutability: mut, IsAddressable: true}
	}
}

// elaborateVariable resolves a bare (possibly qualified) name: a local
// variable first, then a function, function template, or enum constructor
// bound in the namespace tree (spec.md §4.6's name resolution order).
func (c *Context) elaborateVariable(ns *adt.Namespace, scope *adt.Scope, ve *surface.VariableExpr) adt.Expr {
	if len(ve.Path.Segments) == 1 {
		name := c.pool.Intern(ve.Path.Segments[0].Text)
		if binding, ok := scope.LookupVariable(name); ok {
			return adt.Expr{
				Value: &adt.LocalVariableReference{Tag: binding.Tag}, Type: binding.Type, Span: ve.Span(),
				Mutability: binding.Mutability, IsAddressable: true, IsPure: true,
			}
		}
	}
	entry, ok := c.lookupLowerPath(ns, ve.Path)
	if !ok {
		c.diagnostics.Error(
			diag.NewMessagef("%q is not defined", ve.Path.Last().Text),
			diag.Section{Span: ve.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poisonExpr()
	}
	switch {
	case entry.Function != nil:
		c.ResolveFunctionSignature(entry.Function, nil)
		return adt.Expr{Value: &adt.FunctionReference{Function: entry.Function}, Type: c.functionType(entry.Function), Span: ve.Span(), IsPure: true}
	case entry.FunctionTemplate != nil:
		inst := c.instantiator().Function(entry.FunctionTemplate, nil, ve.Span())
		if inst == nil {
			return c.poisonExpr()
		}
		return adt.Expr{
			Value: &adt.FunctionReference{Function: inst, IsApplication: true, Template: entry.FunctionTemplate, Arguments: inst.TemplateInstantiationInfo},
			Type:  c.functionType(inst), Span: ve.Span(), IsPure: true,
		}
	case entry.Constructor != nil:
		return c.constructorReference(entry.Constructor, ve.Span())
	default:
		c.diagnostics.Error(
			diag.NewMessagef("%q does not name a value", ve.Path.Last().Text),
			diag.Section{Span: ve.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poisonExpr()
	}
}

func (c *Context) functionType(info *adt.FunctionInfo) adt.Type {
	params := make([]adt.Type, len(info.Signature.Parameters))
	for i, p := range info.Signature.Parameters {
		params[i] = p.Type
	}
	return adt.Type{Variant: &adt.FunctionType{Parameters: params, Return: info.Signature.Return}}
}

func (c *Context) enumType(info *adt.EnumInfo) adt.Type {
	return adt.Type{Variant: &adt.EnumerationType{Info: info}}
}

func (c *Context) constructorReference(ctor *adt.ConstructorInfo, span token.Span) adt.Expr {
	if ctor.Payload == nil {
		return adt.Expr{Value: &adt.EnumConstructorInvocation{Constructor: ctor}, Type: c.enumType(ctor.Enum), Span: span, IsPure: true}
	}
	return adt.Expr{
		Value:  &adt.EnumConstructorReference{Constructor: ctor},
		Type:   adt.Type{Variant: &adt.FunctionType{Parameters: []adt.Type{*ctor.Payload}, Return: c.enumType(ctor.Enum)}},
		Span:   span,
		IsPure: true,
	}
}

// elaborateInvocation handles every call shape: a direct call to a named
// function/template/constructor, an explicit template application called
// immediately, or an indirect call through an arbitrary function-typed
// expression (spec.md §4.6, §4.8).
func (c *Context) elaborateInvocation(ns *adt.Namespace, scope *adt.Scope, inv *surface.InvocationExpr) adt.Expr {
	c.rejectNamedArguments(inv.ArgumentNames)
	if ve, ok := inv.Callee.(*surface.VariableExpr); ok {
		if entry, found := c.resolveCalleeEntry(ns, scope, ve); found {
			return c.elaborateDirectCall(ns, scope, entry, inv.Arguments, inv.Span())
		}
	}
	callee := c.ElaborateValueExpr(ns, scope, inv.Callee)
	return c.elaborateIndirectCall(ns, scope, callee, inv.Arguments, inv.Span())
}

func (c *Context) resolveCalleeEntry(ns *adt.Namespace, scope *adt.Scope, ve *surface.VariableExpr) (adt.LowerEntry, bool) {
	if len(ve.Path.Segments) == 1 {
		name := c.pool.Intern(ve.Path.Segments[0].Text)
		if _, ok := scope.LookupVariable(name); ok {
			return adt.LowerEntry{}, false
		}
	}
	return c.lookupLowerPath(ns, ve.Path)
}

func (c *Context) elaborateDirectCall(ns *adt.Namespace, scope *adt.Scope, entry adt.LowerEntry, args []surface.Expr, span token.Span) adt.Expr {
	switch {
	case entry.Function != nil:
		c.ResolveFunctionSignature(entry.Function, nil)
		return c.buildCall(ns, scope, entry.Function, args, span)
	case entry.FunctionTemplate != nil:
		inst := c.instantiator().Function(entry.FunctionTemplate, nil, span)
		if inst == nil {
			return c.poisonExpr()
		}
		return c.buildCall(ns, scope, inst, args, span)
	case entry.Constructor != nil:
		return c.elaborateConstructorCall(ns, scope, entry.Constructor, args, span)
	default:
		c.diagnostics.Error(
			diag.NewMessagef("this is not callable"),
			diag.Section{Span: span, Note: diag.NewMessagef("called here")},
		)
		return c.poisonExpr()
	}
}

func (c *Context) buildCall(ns *adt.Namespace, scope *adt.Scope, fn *adt.FunctionInfo, args []surface.Expr, span token.Span) adt.Expr {
	if len(args) != len(fn.Signature.Parameters) {
		c.diagnostics.Error(
			diag.NewMessagef("%q expects %d argument(s), got %d", fn.Name.String(), len(fn.Signature.Parameters), len(args)),
			diag.Section{Span: span, Note: diag.NewMessagef("called here")},
		)
	}
	elaborated := make([]adt.Expr, len(args))
	for i, a := range args {
		elaborated[i] = c.ElaborateValueExpr(ns, scope, a)
		if i < len(fn.Signature.Parameters) {
			c.equate(elaborated[i].Type, fn.Signature.Parameters[i].Type, "argument type must match the parameter's declared type")
		}
	}
	return adt.Expr{
		Value: &adt.InvocationExpr{Callee: adt.Expr{Value: &adt.FunctionReference{Function: fn}, Type: c.functionType(fn)}, Arguments: elaborated},
		Type:  fn.Signature.Return,
		Span:  span,
	}
}

func (c *Context) elaborateIndirectCall(ns *adt.Namespace, scope *adt.Scope, callee adt.Expr, args []surface.Expr, span token.Span) adt.Expr {
	elaborated := make([]adt.Expr, len(args))
	argTypes := make([]adt.Type, len(args))
	for i, a := range args {
		elaborated[i] = c.ElaborateValueExpr(ns, scope, a)
		argTypes[i] = elaborated[i].Type
	}
	ret := c.freshGeneral()
	if ft, ok := callee.Type.FlattenedValue().(*adt.FunctionType); ok && len(ft.Parameters) == len(args) {
		for i := range args {
			c.equate(argTypes[i], ft.Parameters[i], "argument type must match the parameter's declared type")
		}
		c.equate(ft.Return, ret, "call result must match the callee's declared return type")
	} else {
		c.equate(callee.Type, adt.Type{Variant: &adt.FunctionType{Parameters: argTypes, Return: ret}}, "callee must be a function of matching arity")
	}
	return adt.Expr{Value: &adt.InvocationExpr{Callee: callee, Arguments: elaborated}, Type: ret, Span: span}
}

func (c *Context) elaborateConstructorCall(ns *adt.Namespace, scope *adt.Scope, ctor *adt.ConstructorInfo, args []surface.Expr, span token.Span) adt.Expr {
	if ctor.Payload == nil {
		if len(args) != 0 {
			c.diagnostics.Error(
				diag.NewMessagef("%q does not take a payload", ctor.Name.String()),
				diag.Section{Span: span, Note: diag.NewMessagef("called here")},
			)
		}
		return adt.Expr{Value: &adt.EnumConstructorInvocation{Constructor: ctor}, Type: c.enumType(ctor.Enum), Span: span}
	}
	if len(args) != 1 {
		c.diagnostics.Error(
			diag.NewMessagef("%q takes exactly one payload argument", ctor.Name.String()),
			diag.Section{Span: span, Note: diag.NewMessagef("called here")},
		)
		return adt.Expr{Value: &adt.EnumConstructorInvocation{Constructor: ctor}, Type: c.enumType(ctor.Enum), Span: span}
	}
	payload := c.ElaborateValueExpr(ns, scope, args[0])
	c.equate(payload.Type, *ctor.Payload, "enum constructor payload must match its declared type")
	return adt.Expr{Value: &adt.EnumConstructorInvocation{Constructor: ctor, Payload: &payload}, Type: c.enumType(ctor.Enum), Span: span}
}

// elaborateTemplateApplication resolves `name[args]` used as a bare value: a
// reference to a generic function, explicitly instantiated (spec.md §4.8).
func (c *Context) elaborateTemplateApplication(ns *adt.Namespace, scope *adt.Scope, te *surface.TemplateApplicationExpr) adt.Expr {
	entry, ok := c.lookupLowerPath(ns, te.Callee)
	if !ok || entry.FunctionTemplate == nil {
		c.diagnostics.Error(
			diag.NewMessagef("%q does not name a generic function", te.Callee.Last().Text),
			diag.Section{Span: te.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poisonExpr()
	}
	inst := c.instantiator().Function(entry.FunctionTemplate, te.Arguments, te.Span())
	if inst == nil {
		return c.poisonExpr()
	}
	return adt.Expr{
		Value: &adt.FunctionReference{Function: inst, IsApplication: true, Template: entry.FunctionTemplate, Arguments: inst.TemplateInstantiationInfo},
		Type:  c.functionType(inst), Span: te.Span(), IsPure: true,
	}
}

// elaborateMethodCall resolves `receiver.name(args)` through method
// resolution (C11): the receiver's type is speculatively matched against
// every impl/inst block's Self type, and the single match's self parameter
// determines whether the receiver is implicitly taken by reference
// (spec.md §4.9).
func (c *Context) elaborateMethodCall(ns *adt.Namespace, scope *adt.Scope, mc *surface.MethodCallExpr) adt.Expr {
	c.rejectNamedArguments(mc.ArgumentNames)
	receiver := c.ElaborateValueExpr(ns, scope, mc.Receiver)
	name := c.pool.Intern(mc.Method.Text)

	match, ambiguous := c.methods.Resolve(c.nameless, receiver.Type, name)
	if len(ambiguous) > 0 {
		c.diagnostics.Error(
			diag.NewMessagef("%q is ambiguous between %d candidate implementations", mc.Method.Text, len(ambiguous)),
			diag.Section{Span: mc.Span(), Note: diag.NewMessagef("called here")},
		)
		return c.poisonExpr()
	}
	if match == nil {
		c.diagnostics.Error(
			diag.NewMessagef("no method named %q on this type", mc.Method.Text),
			diag.Section{Span: mc.Span(), Note: diag.NewMessagef("called here")},
		)
		return c.poisonExpr()
	}

	fn := match.Function
	if match.Template != nil {
		fn = c.instantiator().Function(match.Template, mc.TemplateArgs, mc.Span())
		if fn == nil {
			return c.poisonExpr()
		}
	}

	receiverArg := receiver
	if sp := fn.Signature.SelfParameter; sp != nil && sp.ByReference {
		recvMut := receiver.Mutability
		if recvMut.Variant == nil {
			// A temporary receiver is an immutable place: &self borrows it
			// fine, &mut self fails the coercion check below.
			recvMut = adt.Mutability{Variant: &adt.ConcreteMutability{IsMutable: false}}
		}
		c.equateMutability(sp.Mutability, recvMut, true, "a &mut self method requires a mutable receiver")
		receiverArg = adt.Expr{
			Value: &adt.ReferenceExpr{Mutability: sp.Mutability, Operand: receiver},
			Type:  adt.Type{Variant: &adt.ReferenceType{Mutability: sp.Mutability, Referent: match.SelfType}},
			Span:  receiver.Span,
		}
	} else {
		c.equate(receiver.Type, match.SelfType, "method receiver must match Self")
	}

	if len(mc.Arguments) != len(fn.Signature.Parameters) {
		c.diagnostics.Error(
			diag.NewMessagef("%q expects %d argument(s), got %d", mc.Method.Text, len(fn.Signature.Parameters), len(mc.Arguments)),
			diag.Section{Span: mc.Span(), Note: diag.NewMessagef("called here")},
		)
	}
	args := make([]adt.Expr, 0, len(mc.Arguments)+1)
	args = append(args, receiverArg)
	for i, a := range mc.Arguments {
		arg := c.ElaborateValueExpr(ns, scope, a)
		if i < len(fn.Signature.Parameters) {
			c.equate(arg.Type, fn.Signature.Parameters[i].Type, "argument type must match the parameter's declared type")
		}
		args = append(args, arg)
	}

	return adt.Expr{
		Value: &adt.InvocationExpr{Callee: adt.Expr{Value: &adt.FunctionReference{Function: fn}, Type: c.functionType(fn)}, Arguments: args},
		Type:  fn.Signature.Return,
		Span:  mc.Span(),
	}
}

// elaborateStructInit resolves `Type { field: value, ... }`, equating each
// provided field's value type against the struct's declared field type and
// rejecting missing or unknown fields (spec.md §4.6).
func (c *Context) elaborateStructInit(ns *adt.Namespace, scope *adt.Scope, si *surface.StructInitExpr) adt.Expr {
	entry, ok := c.lookupUpperPath(ns, si.Type)
	if !ok || entry.Struct == nil {
		c.diagnostics.Error(
			diag.NewMessagef("%q does not name a struct", si.Type.Last().Text),
			diag.Section{Span: si.Span(), Note: diag.NewMessagef("referenced here")},
		)
		return c.poisonExpr()
	}
	c.ResolveStructSignature(entry.Struct, nil)
	structType := adt.Type{Variant: &adt.StructureType{Info: entry.Struct}, Span: si.Span()}

	seen := make(map[intern.Symbol]bool, len(si.Fields))
	fields := make([]adt.StructInitField, len(si.Fields))
	for i, f := range si.Fields {
		name := c.pool.Intern(f.Name.Text)
		value := c.ElaborateValueExpr(ns, scope, f.Value)
		c.dispatcher.SolveStructField(constraint.StructField{
			StructType: structType, FieldType: value.Type, FieldName: name,
			Explanation: constraint.Explanation{Span: f.Value.Span(), Note: diag.NewMessagef("field %q initialised here", f.Name.Text)},
		})
		if seen[name] {
			c.diagnostics.Error(
				diag.NewMessagef("field %q is initialised more than once", f.Name.Text),
				diag.Section{Span: f.Name.Span, Note: diag.NewMessagef("repeated here")},
			)
		}
		seen[name] = true
		fields[i] = adt.StructInitField{Field: name, Value: value}
	}
	for _, decl := range entry.Struct.Fields {
		if !seen[decl.Name] {
			c.diagnostics.Error(
				diag.NewMessagef("missing field %q in initialiser for %q", decl.Name.String(), entry.Struct.Name.String()),
				diag.Section{Span: si.Span(), Note: diag.NewMessagef("initialised here")},
			)
		}
	}
	return adt.Expr{Value: &adt.StructInitExpr{Struct: entry.Struct, Fields: fields}, Type: structType, Span: si.Span()}
}

func (c *Context) elaborateFieldAccess(ns *adt.Namespace, scope *adt.Scope, fa *surface.FieldAccessExpr) adt.Expr {
	operand := c.ElaborateValueExpr(ns, scope, fa.Operand)
	if fa.Index != nil {
		fieldType := c.freshGeneral()
		c.dispatcher.SolveTupleField(constraint.TupleField{
			TupleType: operand.Type, FieldType: fieldType, Index: *fa.Index,
			Explanation: constraint.Explanation{Span: fa.Span(), Note: diag.NewMessagef("tuple element %d accessed here", *fa.Index)},
		})
		return adt.Expr{
			Value: &adt.TupleFieldAccessExpr{Operand: operand, Index: *fa.Index}, Type: fieldType, Span: fa.Span(),
			Mutability: operand.Mutability, IsAddressable: operand.IsAddressable,
		}
	}
	name := c.pool.Intern(fa.Name.Text)
	fieldType := c.freshGeneral()
	c.dispatcher.SolveStructField(constraint.StructField{
		StructType: operand.Type, FieldType: fieldType, FieldName: name,
		Explanation: constraint.Explanation{Span: fa.Span(), Note: diag.NewMessagef("field %q accessed here", fa.Name.Text)},
	})
	return adt.Expr{
		Value: &adt.StructFieldAccessExpr{Operand: operand, Field: name}, Type: fieldType, Span: fa.Span(),
		Mutability: operand.Mutability, IsAddressable: operand.IsAddressable,
	}
}
