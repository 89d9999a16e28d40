// Package instantiate implements template instantiation / monomorphisation
// (C10, spec.md §4.8): given a template Info and a set of (possibly
// wildcard) arguments, it builds a substitution scope, synthesises a
// concrete non-template surface declaration by reusing the template's own
// surface nodes, and asks the resolver to elaborate it as if it had been
// written out by hand — memoising the result per template so repeated
// identical instantiations share one monomorphisation.
//
// The monomorphise-by-re-elaborating-under-a-substitution-scope strategy is
// grounded on how the teacher's own internal/core/adt represents a
// generic CUE struct's field constraints as closures re-evaluated per
// instantiation environment, rather than pre-expanding a generic AST.
package instantiate

import (
	"fmt"
	"strings"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
	"github.com/kieli-lang/resolvecore/internal/token"
)

// MaxRecursionDepth bounds recursive re-instantiation triggered by
// substitution (spec_full's supplemented "max template-instantiation
// recursion depth of 256").
const MaxRecursionDepth = 256

// Elaborator is the subset of *eval.Context this package needs. Defined
// here (not in eval) so eval can import instantiate without a cycle.
type Elaborator interface {
	Pool() *intern.Pool
	Diagnostics() *diag.Builder
	FreshTemplateParameterTag() uint64
	FreshGeneralType() adt.Type
	FreshMutabilityVariable() adt.Mutability
	NewScope(parent *adt.Scope) *adt.Scope

	ElaborateTypeExpr(ns *adt.Namespace, scope *adt.Scope, t surface.TypeExpr) adt.Type
	ElaborateMutabilityExpr(scope *adt.Scope, m *surface.MutabilityExpr) adt.Mutability
	ElaborateValueExpr(ns *adt.Namespace, scope *adt.Scope, e surface.Expr) adt.Expr

	ResolveFunctionSignature(info *adt.FunctionInfo, parentScope *adt.Scope)
	ResolveFunctionBody(info *adt.FunctionInfo)
	ResolveStructSignature(info *adt.StructInfo, parentScope *adt.Scope)
	ResolveEnumSignature(info *adt.EnumInfo, parentScope *adt.Scope)
	ResolveAliasSignature(info *adt.AliasInfo, parentScope *adt.Scope)

	// SelfContextFor reports the enclosing impl/inst's Self type for a
	// function template, if tmpl was declared as a method rather than a
	// bare top-level template.
	SelfContextFor(tmpl *adt.FunctionTemplateInfo) (adt.Type, adt.Mutability, bool)
	// EnterSelfContext pushes an active Self type/mutability and returns a
	// closure that restores whatever was active before.
	EnterSelfContext(typ adt.Type, mut adt.Mutability) func()
}

// Instantiator memoises monomorphisations per template, and guards against
// runaway recursive instantiation.
type Instantiator struct {
	e      Elaborator
	tracer adt.Tracer

	depth int

	funcMemo   map[*adt.FunctionTemplateInfo]map[string]*adt.FunctionInfo
	structMemo map[*adt.StructTemplateInfo]map[string]*adt.StructInfo
	enumMemo   map[*adt.EnumTemplateInfo]map[string]*adt.EnumInfo
	aliasMemo  map[*adt.AliasTemplateInfo]map[string]*adt.AliasInfo
}

func New(e Elaborator) *Instantiator {
	return &Instantiator{
		e:          e,
		tracer:     adt.NoopTracer{},
		funcMemo:   make(map[*adt.FunctionTemplateInfo]map[string]*adt.FunctionInfo),
		structMemo: make(map[*adt.StructTemplateInfo]map[string]*adt.StructInfo),
		enumMemo:   make(map[*adt.EnumTemplateInfo]map[string]*adt.EnumInfo),
		aliasMemo:  make(map[*adt.AliasTemplateInfo]map[string]*adt.AliasInfo),
	}
}

// SetTracer redirects instantiation re-entry trace events (memo hit/miss)
// to t.
func (in *Instantiator) SetTracer(t adt.Tracer) { in.tracer = t }

// boundArgs is the result of binding a template's formal parameters to
// instantiation arguments.
type boundArgs struct {
	resolved []adt.TemplateParameter
	types    map[uint64]adt.Type
	muts     map[uint64]adt.Mutability
	values   map[uint64]*adt.Expr
	key      string
}

func describeType(t adt.Type) string {
	switch v := t.FlattenedValue().(type) {
	case *adt.IntegerType:
		return fmt.Sprintf("i%d:%v", v.Width, v.Signed)
	case *adt.FloatingType:
		return "float"
	case *adt.CharacterType:
		return "char"
	case *adt.BooleanType:
		return "bool"
	case *adt.StringType:
		return "string"
	case *adt.TupleType:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = describeType(e)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case *adt.SliceType:
		return "[" + describeType(v.Element) + "]"
	case *adt.ArrayType:
		return "[" + describeType(v.Element) + ";N]"
	case *adt.PointerType:
		return "*" + describeMutability(v.Mutability) + describeType(v.Referent)
	case *adt.ReferenceType:
		return "&" + describeMutability(v.Mutability) + describeType(v.Referent)
	case *adt.FunctionType:
		parts := make([]string, len(v.Parameters))
		for i, p := range v.Parameters {
			parts[i] = describeType(p)
		}
		return "fn(" + strings.Join(parts, ",") + ")->" + describeType(v.Return)
	case *adt.StructureType:
		return fmt.Sprintf("struct#%p", v.Info)
	case *adt.EnumerationType:
		return fmt.Sprintf("enum#%p", v.Info)
	case *adt.SelfPlaceholderType:
		return "Self"
	case *adt.TemplateParameterRefType:
		return fmt.Sprintf("tparam#%d", v.Tag)
	default:
		// Unsolved variable or anything else: never memo-hit, each call is
		// distinct.
		return fmt.Sprintf("var#%p", t.Variant)
	}
}

func describeMutability(m adt.Mutability) string {
	switch v := m.FlattenedValue().(type) {
	case *adt.ConcreteMutability:
		if v.IsMutable {
			return "mut "
		}
		return ""
	default:
		return fmt.Sprintf("mutvar#%p ", m.Variant)
	}
}

// arity reports the [min, max] range of acceptable argument counts for
// params: min is the number of leading parameters that have neither a
// default nor are implicit (wildcard-eligible without an explicit
// argument), max is the total parameter count (spec.md §4.8's "min =
// number of parameters with no default that precede the first defaulted
// parameter ... require min<=n<=max").
func arity(params []surface.TemplateParameter) (min, max int) {
	max = len(params)
	for _, p := range params {
		if p.Default != nil || p.Implicit {
			break
		}
		min++
	}
	return min, max
}

func describeArity(min, max int) string {
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("between %d and %d", min, max)
}

// argumentKindMatches reports whether arg supplies the AST field that
// corresponds to kind; a mismatch (e.g. a value argument where a type
// parameter is expected) is a spec.md §7 "argument/parameter kind
// mismatch" error, not something to silently coerce.
func argumentKindMatches(kind surface.TemplateParameterKind, arg surface.TemplateArgumentAST) bool {
	switch kind {
	case surface.TemplateParamType:
		return arg.Type != nil
	case surface.TemplateParamMutability:
		return arg.Mutability != nil
	case surface.TemplateParamValue:
		return arg.Value != nil
	default:
		return false
	}
}

// bind walks params in order, binding each to the corresponding explicit
// argument (or its default, or a fresh wildcard variable), extending scope
// as it goes so a later parameter's declared type can refer to an earlier
// type parameter. span is the instantiation site, used to anchor the
// arity diagnostic. A nil args is the synthetic instantiation of a bare
// template reference: every parameter takes its default or a fresh
// wildcard variable, and no arity diagnostic is reported.
func (in *Instantiator) bind(ns *adt.Namespace, scope *adt.Scope, params []surface.TemplateParameter, args []surface.TemplateArgumentAST, span token.Span) boundArgs {
	result := boundArgs{
		resolved: make([]adt.TemplateParameter, len(params)),
		types:    make(map[uint64]adt.Type),
		muts:     make(map[uint64]adt.Mutability),
		values:   make(map[uint64]*adt.Expr),
	}

	if min, max := arity(params); args != nil && (len(args) < min || len(args) > max) {
		in.e.Diagnostics().Error(
			diag.NewMessagef("wrong number of template arguments: expected %s, got %d", describeArity(min, max), len(args)),
			diag.Section{Span: span, Note: diag.NewMessagef("instantiated here")},
		)
	}

	var keyParts []string
	for i, p := range params {
		tag := in.e.FreshTemplateParameterTag()
		name := in.e.Pool().Intern(p.Name.Text)
		var arg surface.TemplateArgumentAST
		switch {
		case i < len(args):
			arg = args[i]
			if !arg.Wildcard && !argumentKindMatches(p.Kind, arg) {
				in.e.Diagnostics().Error(
					diag.NewMessagef("argument %d does not match the kind of template parameter %q", i+1, p.Name.Text),
					diag.Section{Span: arg.Span, Note: diag.NewMessagef("argument provided here")},
				)
				arg = surface.TemplateArgumentAST{Wildcard: true}
			}
		case p.Default != nil:
			arg = *p.Default
		default:
			arg = surface.TemplateArgumentAST{Wildcard: true}
		}

		switch p.Kind {
		case surface.TemplateParamType:
			var ty adt.Type
			if arg.Wildcard {
				ty = in.e.FreshGeneralType()
			} else {
				ty = in.e.ElaborateTypeExpr(ns, scope, arg.Type)
			}
			result.types[tag] = ty
			scope.BindTypeAlias(name, &adt.TypeAliasBinding{Type: ty})
			result.resolved[i] = adt.TemplateParameter{Kind: p.Kind, Name: name, Tag: tag, Implicit: p.Implicit}
			keyParts = append(keyParts, describeType(ty))

		case surface.TemplateParamMutability:
			var mu adt.Mutability
			switch {
			case arg.Wildcard:
				mu = in.e.FreshMutabilityVariable()
			case arg.Mutability != nil:
				mu = in.e.ElaborateMutabilityExpr(scope, arg.Mutability)
			default:
				mu = in.e.FreshMutabilityVariable()
			}
			result.muts[tag] = mu
			scope.BindMutabilityParam(name, &adt.MutabilityParamBinding{Tag: tag})
			result.resolved[i] = adt.TemplateParameter{Kind: p.Kind, Name: name, Tag: tag}
			keyParts = append(keyParts, describeMutability(mu))

		case surface.TemplateParamValue:
			valueType := in.e.ElaborateTypeExpr(ns, scope, p.ValueType)
			var ve adt.Expr
			if arg.Wildcard {
				ve = adt.Expr{Value: &adt.HoleExpr{}, Type: valueType}
				keyParts = append(keyParts, fmt.Sprintf("valuevar#%d", tag))
			} else {
				ve = in.e.ElaborateValueExpr(ns, scope, arg.Value)
				keyParts = append(keyParts, fmt.Sprintf("value:%v", ve.Value))
			}
			result.values[tag] = &ve
			result.resolved[i] = adt.TemplateParameter{Kind: p.Kind, Name: name, Tag: tag, ValueType: valueType}
		}
	}
	result.key = strings.Join(keyParts, "|")
	return result
}

func (in *Instantiator) instInfo(b boundArgs) *adt.TemplateInstantiationInfo {
	return &adt.TemplateInstantiationInfo{TypeArguments: b.types, MutabilityArguments: b.muts, ValueArguments: b.values}
}

func (in *Instantiator) guardDepth(span token.Span) bool {
	if in.depth >= MaxRecursionDepth {
		in.e.Diagnostics().Error(
			diag.NewMessagef("template instantiation recursion limit (%d) exceeded", MaxRecursionDepth),
			diag.Section{Span: span, Note: diag.NewMessagef("while instantiating this template")},
		)
		return false
	}
	return true
}

// Function instantiates tmpl with args, memoising on the structural key of
// fully-resolved (non-wildcard) arguments.
func (in *Instantiator) Function(tmpl *adt.FunctionTemplateInfo, args []surface.TemplateArgumentAST, span token.Span) *adt.FunctionInfo {
	if !in.guardDepth(span) {
		return nil
	}
	in.depth++
	defer func() { in.depth-- }()

	scope := in.e.NewScope(nil)
	bound := in.bind(tmpl.Home, scope, tmpl.Parameters, args, span)

	if memo, ok := in.funcMemo[tmpl]; ok {
		if existing, ok := memo[bound.key]; ok {
			in.tracer.Tracef("instantiate: memo hit for function %q (key %q)", tmpl.Name.String(), bound.key)
			return existing
		}
	} else {
		in.funcMemo[tmpl] = make(map[string]*adt.FunctionInfo)
	}
	in.tracer.Tracef("instantiate: memo miss for function %q (key %q)", tmpl.Name.String(), bound.key)

	info := &adt.FunctionInfo{
		Name: tmpl.Name, Span: tmpl.Span, Home: tmpl.Home, State: adt.Unresolved,
		Surface:                   &tmpl.Surface.Function,
		TemplateInstantiationInfo: in.instInfo(bound),
	}
	if typ, mut, ok := in.e.SelfContextFor(tmpl); ok {
		restore := in.e.EnterSelfContext(typ, mut)
		defer restore()
	}
	in.e.ResolveFunctionSignature(info, scope)
	in.e.ResolveFunctionBody(info)
	tmpl.Instantiations = append(tmpl.Instantiations, info)
	in.funcMemo[tmpl][bound.key] = info
	return info
}

func (in *Instantiator) Struct(tmpl *adt.StructTemplateInfo, args []surface.TemplateArgumentAST, span token.Span) *adt.StructInfo {
	if !in.guardDepth(span) {
		return nil
	}
	in.depth++
	defer func() { in.depth-- }()

	scope := in.e.NewScope(nil)
	bound := in.bind(tmpl.Home, scope, tmpl.Parameters, args, span)

	if memo, ok := in.structMemo[tmpl]; ok {
		if existing, ok := memo[bound.key]; ok {
			in.tracer.Tracef("instantiate: memo hit for struct %q (key %q)", tmpl.Name.String(), bound.key)
			return existing
		}
	} else {
		in.structMemo[tmpl] = make(map[string]*adt.StructInfo)
	}
	in.tracer.Tracef("instantiate: memo miss for struct %q (key %q)", tmpl.Name.String(), bound.key)

	synthetic := &surface.StructDecl{Name: tmpl.Surface.Name, Fields: tmpl.Surface.Fields, Span: tmpl.Surface.Span}
	info := &adt.StructInfo{
		Name: tmpl.Name, Span: tmpl.Span, Home: tmpl.Home, State: adt.Unresolved,
		Surface:                   synthetic,
		TemplateInstantiationInfo: in.instInfo(bound),
	}
	in.e.ResolveStructSignature(info, scope)
	tmpl.Instantiations = append(tmpl.Instantiations, info)
	in.structMemo[tmpl][bound.key] = info
	return info
}

func (in *Instantiator) Enum(tmpl *adt.EnumTemplateInfo, args []surface.TemplateArgumentAST, span token.Span) *adt.EnumInfo {
	if !in.guardDepth(span) {
		return nil
	}
	in.depth++
	defer func() { in.depth-- }()

	scope := in.e.NewScope(nil)
	bound := in.bind(tmpl.Home, scope, tmpl.Parameters, args, span)

	if memo, ok := in.enumMemo[tmpl]; ok {
		if existing, ok := memo[bound.key]; ok {
			in.tracer.Tracef("instantiate: memo hit for enum %q (key %q)", tmpl.Name.String(), bound.key)
			return existing
		}
	} else {
		in.enumMemo[tmpl] = make(map[string]*adt.EnumInfo)
	}
	in.tracer.Tracef("instantiate: memo miss for enum %q (key %q)", tmpl.Name.String(), bound.key)

	synthetic := &surface.EnumDecl{Name: tmpl.Surface.Name, Constructors: tmpl.Surface.Constructors, Span: tmpl.Surface.Span}
	info := &adt.EnumInfo{
		Name: tmpl.Name, Span: tmpl.Span, Home: tmpl.Home, State: adt.Unresolved,
		Surface:                   synthetic,
		TemplateInstantiationInfo: in.instInfo(bound),
	}
	in.e.ResolveEnumSignature(info, scope)
	tmpl.Instantiations = append(tmpl.Instantiations, info)
	in.enumMemo[tmpl][bound.key] = info
	return info
}

func (in *Instantiator) Alias(tmpl *adt.AliasTemplateInfo, args []surface.TemplateArgumentAST, span token.Span) *adt.AliasInfo {
	if !in.guardDepth(span) {
		return nil
	}
	in.depth++
	defer func() { in.depth-- }()

	scope := in.e.NewScope(nil)
	bound := in.bind(tmpl.Home, scope, tmpl.Parameters, args, span)

	if memo, ok := in.aliasMemo[tmpl]; ok {
		if existing, ok := memo[bound.key]; ok {
			in.tracer.Tracef("instantiate: memo hit for alias %q (key %q)", tmpl.Name.String(), bound.key)
			return existing
		}
	} else {
		in.aliasMemo[tmpl] = make(map[string]*adt.AliasInfo)
	}
	in.tracer.Tracef("instantiate: memo miss for alias %q (key %q)", tmpl.Name.String(), bound.key)

	synthetic := &surface.AliasDecl{Name: tmpl.Surface.Name, Type: tmpl.Surface.Type, Span: tmpl.Surface.Span}
	info := &adt.AliasInfo{
		Name: tmpl.Name, Span: tmpl.Span, Home: tmpl.Home, State: adt.Unresolved,
		Surface:                   synthetic,
		TemplateInstantiationInfo: in.instInfo(bound),
	}
	in.e.ResolveAliasSignature(info, scope)
	tmpl.Instantiations = append(tmpl.Instantiations, info)
	in.aliasMemo[tmpl][bound.key] = info
	return info
}
