package instantiate_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/compile"
	"github.com/kieli-lang/resolvecore/internal/core/eval"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
)

// resolve compiles and resolves mod end to end, exercising
// internal/core/instantiate only through the public driver, the same way a
// caller outside this module would ever reach it (spec.md §4.8).
func resolve(mod *surface.Module) (*adt.Namespace, *diag.Builder, *intern.Pool) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	c := compile.NewCompiler(pool, diagnostics)
	root := c.CompileModule(mod)
	nameless := c.Finish()

	ctx := eval.NewContext(pool, diagnostics)
	ctx.ResolveModule(root, nameless)
	return root, diagnostics, pool
}

func n(text string) surface.Name { return surface.Name{Text: text} }
func p(text string) surface.Path { return surface.Path{Segments: []surface.Name{n(text)}} }

func namedType(text string) surface.TypeExpr { return &surface.NamedType{Path: p(text)} }

func namedTypeWithArgs(text string, args ...surface.TemplateArgumentAST) surface.TypeExpr {
	return &surface.NamedType{Path: p(text), Arguments: args}
}

func typeArg(text string) surface.TemplateArgumentAST {
	return surface.TemplateArgumentAST{Type: namedType(text)}
}

func lookupFunction(t *testing.T, root *adt.Namespace, pool *intern.Pool, name string) *adt.FunctionInfo {
	t.Helper()
	entry, ok := root.LookupLower(pool.Intern(name), false)
	if !ok || entry.Function == nil {
		t.Fatalf("no function named %q in root namespace", name)
	}
	return entry.Function
}

func boxModule() *surface.Module {
	return &surface.Module{
		Definitions: []surface.Definition{
			&surface.StructTemplateDecl{
				Name:       n("Box"),
				Parameters: []surface.TemplateParameter{{Kind: surface.TemplateParamType, Name: n("T")}},
				Fields:     []surface.Field{{Name: n("value"), Type: namedType("T")}},
			},
			&surface.FunctionDecl{Name: n("a"), ReturnType: namedTypeWithArgs("Box", typeArg("I32")), Body: &surface.HoleExpr{}},
			&surface.FunctionDecl{Name: n("b"), ReturnType: namedTypeWithArgs("Box", typeArg("I32")), Body: &surface.HoleExpr{}},
			&surface.FunctionDecl{Name: n("c"), ReturnType: namedTypeWithArgs("Box", typeArg("Bool")), Body: &surface.HoleExpr{}},
		},
	}
}

func boxInfo(t *testing.T, root *adt.Namespace, pool *intern.Pool, fn string) *adt.StructInfo {
	t.Helper()
	info := lookupFunction(t, root, pool, fn)
	st, ok := info.Signature.Return.FlattenedValue().(*adt.StructureType)
	if !ok {
		t.Fatalf("function %q's return type did not resolve to a struct, got %T", fn, info.Signature.Return.FlattenedValue())
	}
	return st.Info
}

// fieldShape is a plain, pointer-free projection of a StructInfo's fields,
// suitable for cmp.Diff without risking a panic on the arena-backed handles
// (intern.Symbol, *Namespace) that make up the real Info graph.
type fieldShape struct {
	Name string
	Kind string
}

func shapeOf(info *adt.StructInfo) []fieldShape {
	shapes := make([]fieldShape, len(info.Fields))
	for i, f := range info.Fields {
		shapes[i] = fieldShape{Name: f.Name.String(), Kind: kindOf(f.Type)}
	}
	return shapes
}

func kindOf(ty adt.Type) string {
	switch ty.FlattenedValue().(type) {
	case *adt.IntegerType:
		return "int"
	case *adt.BooleanType:
		return "bool"
	default:
		return "other"
	}
}

// Two instantiation sites with structurally identical explicit arguments
// memoise to the same Info record (spec.md §8: "instantiate(T, [I32]) twice
// returns Info records with identical resolved bodies").
func TestStructInstantiationMemoisesOnIdenticalArguments(t *testing.T) {
	root, diagnostics, pool := resolve(boxModule())
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))

	boxA := boxInfo(t, root, pool, "a")
	boxB := boxInfo(t, root, pool, "b")

	// Memo hit: the same template instantiated with the same argument
	// resolves to one shared Info, not two independently-built copies.
	qt.Assert(t, qt.Equals(boxA, boxB))
	if diff := cmp.Diff(shapeOf(boxA), shapeOf(boxB)); diff != "" {
		t.Fatalf("memoised instantiations have different resolved bodies (-a +b):\n%s", diff)
	}
}

// A distinct argument produces a distinct Info with a structurally
// different resolved body, rather than aliasing the other instantiation.
func TestStructInstantiationWithDifferentArgumentIsDistinct(t *testing.T) {
	root, diagnostics, pool := resolve(boxModule())
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))

	boxA := boxInfo(t, root, pool, "a")
	boxC := boxInfo(t, root, pool, "c")

	qt.Assert(t, qt.IsTrue(boxA != boxC))
	if diff := cmp.Diff(shapeOf(boxA), shapeOf(boxC)); diff == "" {
		t.Fatalf("expected Box[I32] and Box[Bool] to resolve to different field shapes, got none")
	}
}

// Each instantiation is recorded against its template, so a later pass over
// the template (e.g. monomorphisation code generation, out of scope here)
// can enumerate every concrete shape that was ever demanded of it.
func TestStructTemplateRecordsEachDistinctInstantiation(t *testing.T) {
	root, diagnostics, pool := resolve(boxModule())
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))

	entry, ok := root.LookupUpper(pool.Intern("Box"), false)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsNotNil(entry.StructTemplate))
	qt.Assert(t, qt.Equals(len(entry.StructTemplate.Instantiations), 2))
}
