package main

import (
	"fmt"
	"strings"

	"github.com/kieli-lang/resolvecore/internal/surface"
)

// fixtureModule is the YAML shape a toy module is described in: a stand-in
// for the (out of scope) parser/desugarer's output, the same role the
// teacher's own txtar-based CUE fixtures play for cmd/cue's eval command.
// Only the subset of the surface grammar needed to exercise the resolution
// core end to end is represented here — no templates, impls, typeclasses or
// pattern destructuring; internal/core/eval's own tests cover those.
type fixtureModule struct {
	Structs   []fixtureStruct   `yaml:"structs"`
	Functions []fixtureFunction `yaml:"functions"`
}

type fixtureField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type fixtureStruct struct {
	Name   string         `yaml:"name"`
	Fields []fixtureField `yaml:"fields"`
}

type fixtureParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type fixtureFunction struct {
	Name       string         `yaml:"name"`
	Parameters []fixtureParam `yaml:"parameters"`
	Return     string         `yaml:"return"`
	Body       fixtureExpr    `yaml:"body"`
}

// fixtureExpr is a tagged union over YAML keys: exactly one field should be
// set per node. Unmarshalling leaves the rest nil/zero, and buildExpr
// dispatches on whichever one is present.
type fixtureExpr struct {
	Int        *string             `yaml:"int,omitempty"`
	Bool       *bool               `yaml:"bool,omitempty"`
	Var        *string             `yaml:"var,omitempty"`
	Block      *fixtureBlock       `yaml:"block,omitempty"`
	Let        *fixtureLet         `yaml:"let,omitempty"`
	If         *fixtureIf          `yaml:"if,omitempty"`
	Call       *fixtureCall        `yaml:"call,omitempty"`
	StructInit *fixtureStructInit  `yaml:"struct_init,omitempty"`
	Field      *fixtureFieldAccess `yaml:"field,omitempty"`
}

type fixtureBlock struct {
	Stmts []fixtureExpr `yaml:"stmts"`
	Tail  *fixtureExpr  `yaml:"tail"`
}

type fixtureLet struct {
	Name  string      `yaml:"name"`
	Type  string      `yaml:"type"`
	Value fixtureExpr `yaml:"value"`
}

type fixtureIf struct {
	Cond fixtureExpr  `yaml:"cond"`
	Then fixtureExpr  `yaml:"then"`
	Else *fixtureExpr `yaml:"else"`
}

type fixtureCall struct {
	Callee string        `yaml:"callee"`
	Args   []fixtureExpr `yaml:"args"`
}

type fixtureStructInitField struct {
	Name  string      `yaml:"name"`
	Value fixtureExpr `yaml:"value"`
}

type fixtureStructInit struct {
	Type   string                   `yaml:"type"`
	Fields []fixtureStructInitField `yaml:"fields"`
}

type fixtureFieldAccess struct {
	Of   fixtureExpr `yaml:"of"`
	Name string      `yaml:"name"`
}

func name(text string) surface.Name { return surface.Name{Text: text} }

func path(text string) surface.Path { return surface.Path{Segments: []surface.Name{name(text)}} }

// buildModule turns a parsed fixture into the surface.Module the compiler
// expects, synthesising zero spans throughout: there is no source text
// behind these nodes, so diagnostics about them point at 0:0 rather than a
// real file position.
func buildModule(fx fixtureModule) (*surface.Module, error) {
	mod := &surface.Module{}
	for _, s := range fx.Structs {
		decl, err := buildStruct(s)
		if err != nil {
			return nil, err
		}
		mod.Definitions = append(mod.Definitions, decl)
	}
	for _, f := range fx.Functions {
		decl, err := buildFunction(f)
		if err != nil {
			return nil, err
		}
		mod.Definitions = append(mod.Definitions, decl)
	}
	return mod, nil
}

func buildStruct(s fixtureStruct) (*surface.StructDecl, error) {
	decl := &surface.StructDecl{Name: name(s.Name)}
	for _, f := range s.Fields {
		ty, err := parseTypeExpr(f.Type)
		if err != nil {
			return nil, fmt.Errorf("struct %s field %s: %w", s.Name, f.Name, err)
		}
		decl.Fields = append(decl.Fields, surface.Field{Name: name(f.Name), Type: ty})
	}
	return decl, nil
}

func buildFunction(f fixtureFunction) (*surface.FunctionDecl, error) {
	decl := &surface.FunctionDecl{Name: name(f.Name)}
	for _, p := range f.Parameters {
		ty, err := parseTypeExpr(p.Type)
		if err != nil {
			return nil, fmt.Errorf("function %s parameter %s: %w", f.Name, p.Name, err)
		}
		decl.Parameters = append(decl.Parameters, surface.Parameter{
			Pattern: &surface.NamePattern{Name: name(p.Name)},
			Type:    ty,
		})
	}
	if f.Return != "" {
		ty, err := parseTypeExpr(f.Return)
		if err != nil {
			return nil, fmt.Errorf("function %s return type: %w", f.Name, err)
		}
		decl.ReturnType = ty
	}
	body, err := buildExpr(f.Body)
	if err != nil {
		return nil, fmt.Errorf("function %s body: %w", f.Name, err)
	}
	decl.Body = body
	return decl, nil
}

func buildExpr(e fixtureExpr) (surface.Expr, error) {
	switch {
	case e.Int != nil:
		return &surface.IntegerLiteral{Text: *e.Int}, nil
	case e.Bool != nil:
		return &surface.BoolLiteral{Value: *e.Bool}, nil
	case e.Var != nil:
		return &surface.VariableExpr{Path: path(*e.Var)}, nil
	case e.Block != nil:
		return buildBlock(*e.Block)
	case e.Let != nil:
		return buildLet(*e.Let)
	case e.If != nil:
		return buildIf(*e.If)
	case e.Call != nil:
		return buildCall(*e.Call)
	case e.StructInit != nil:
		return buildStructInit(*e.StructInit)
	case e.Field != nil:
		return buildField(*e.Field)
	default:
		return nil, fmt.Errorf("expression node has no recognised key set")
	}
}

func buildBlock(b fixtureBlock) (surface.Expr, error) {
	block := &surface.BlockExpr{}
	for _, s := range b.Stmts {
		stmt, err := buildExpr(s)
		if err != nil {
			return nil, err
		}
		block.SideEffects = append(block.SideEffects, stmt)
	}
	if b.Tail != nil {
		tail, err := buildExpr(*b.Tail)
		if err != nil {
			return nil, err
		}
		block.Tail = tail
	}
	return block, nil
}

func buildLet(l fixtureLet) (surface.Expr, error) {
	value, err := buildExpr(l.Value)
	if err != nil {
		return nil, err
	}
	let := &surface.LetExpr{
		Pattern: &surface.NamePattern{Name: name(l.Name)},
		Value:   value,
	}
	if l.Type != "" {
		ty, err := parseTypeExpr(l.Type)
		if err != nil {
			return nil, err
		}
		let.Type = ty
	}
	return let, nil
}

func buildIf(i fixtureIf) (surface.Expr, error) {
	cond, err := buildExpr(i.Cond)
	if err != nil {
		return nil, err
	}
	then, err := buildExpr(i.Then)
	if err != nil {
		return nil, err
	}
	ifExpr := &surface.IfExpr{Condition: cond, Then: then}
	if i.Else != nil {
		elseExpr, err := buildExpr(*i.Else)
		if err != nil {
			return nil, err
		}
		ifExpr.Else = elseExpr
	}
	return ifExpr, nil
}

func buildCall(c fixtureCall) (surface.Expr, error) {
	call := &surface.InvocationExpr{Callee: &surface.VariableExpr{Path: path(c.Callee)}}
	for _, a := range c.Args {
		arg, err := buildExpr(a)
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
	}
	return call, nil
}

func buildStructInit(s fixtureStructInit) (surface.Expr, error) {
	init := &surface.StructInitExpr{Type: path(s.Type)}
	for _, f := range s.Fields {
		value, err := buildExpr(f.Value)
		if err != nil {
			return nil, err
		}
		init.Fields = append(init.Fields, surface.StructInitField{Name: name(f.Name), Value: value})
	}
	return init, nil
}

func buildField(f fixtureFieldAccess) (surface.Expr, error) {
	of, err := buildExpr(f.Of)
	if err != nil {
		return nil, err
	}
	n := name(f.Name)
	return &surface.FieldAccessExpr{Operand: of, Name: &n}, nil
}

// parseTypeExpr recognises the builtin primitive keywords plus bare struct
// names, and the `&`/`&mut `/`*`/`*mut ` prefix forms — enough surface
// grammar for a toy fixture. Tuple, array and slice syntax are not
// recognised: any other text is taken as a bare type name.
func parseTypeExpr(s string) (surface.TypeExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type expression")
	}
	switch {
	case strings.HasPrefix(s, "&mut "):
		referent, err := parseTypeExpr(s[len("&mut "):])
		if err != nil {
			return nil, err
		}
		return &surface.ReferenceType{Mutability: &surface.MutabilityExpr{IsConcrete: true, IsMutable: true}, Referent: referent}, nil
	case strings.HasPrefix(s, "&"):
		referent, err := parseTypeExpr(s[1:])
		if err != nil {
			return nil, err
		}
		return &surface.ReferenceType{Referent: referent}, nil
	case strings.HasPrefix(s, "*mut "):
		referent, err := parseTypeExpr(s[len("*mut "):])
		if err != nil {
			return nil, err
		}
		return &surface.PointerType{Mutability: &surface.MutabilityExpr{IsConcrete: true, IsMutable: true}, Referent: referent}, nil
	case strings.HasPrefix(s, "*"):
		referent, err := parseTypeExpr(s[1:])
		if err != nil {
			return nil, err
		}
		return &surface.PointerType{Referent: referent}, nil
	default:
		return &surface.NamedType{Path: path(s)}, nil
	}
}
