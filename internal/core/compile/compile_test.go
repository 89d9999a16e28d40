package compile_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/kieli-lang/resolvecore/internal/core/compile"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
)

func n(text string) surface.Name { return surface.Name{Text: text} }

// Registering two functions under the same name in one namespace is a
// duplicate-definition error (spec.md §4.2). The diagnostic points at the
// redefinition only; it does not show the original definition's span.
func TestDuplicateDefinitionIsReported(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	c := compile.NewCompiler(pool, diagnostics)

	mod := &surface.Module{
		Definitions: []surface.Definition{
			&surface.FunctionDecl{Name: n("f"), Body: &surface.TupleExpr{}},
			&surface.FunctionDecl{Name: n("f"), Body: &surface.TupleExpr{}},
		},
	}
	root := c.CompileModule(mod)
	c.Finish()

	qt.Assert(t, qt.IsTrue(diagnostics.HasErrors()))
	entry, ok := root.LookupLower(pool.Intern("f"), false)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsNotNil(entry.Function))
}

// A struct and a function may share a name, since one binds the lower
// table and the other the upper table (spec.md §3.6).
func TestLowerAndUpperNamesDoNotCollide(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	c := compile.NewCompiler(pool, diagnostics)

	mod := &surface.Module{
		Definitions: []surface.Definition{
			&surface.StructDecl{Name: n("Point")},
			&surface.FunctionDecl{Name: n("Point"), Body: &surface.TupleExpr{}},
		},
	}
	root := c.CompileModule(mod)
	c.Finish()

	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
	_, lowerOK := root.LookupLower(pool.Intern("Point"), false)
	_, upperOK := root.LookupUpper(pool.Intern("Point"), false)
	qt.Assert(t, qt.IsTrue(lowerOK))
	qt.Assert(t, qt.IsTrue(upperOK))
}

// A nested namespace declaration registers its own child Namespace under
// the parent's lower table, and its members are reachable only through
// that child (spec.md §3.6, §4.2).
func TestNestedNamespaceRegistersChild(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	c := compile.NewCompiler(pool, diagnostics)

	mod := &surface.Module{
		Definitions: []surface.Definition{
			&surface.NamespaceDecl{
				Name: n("util"),
				Definitions: []surface.Definition{
					&surface.FunctionDecl{Name: n("helper"), Body: &surface.TupleExpr{}},
				},
			},
		},
	}
	root := c.CompileModule(mod)
	c.Finish()

	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
	entry, ok := root.LookupLower(pool.Intern("util"), false)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsNotNil(entry.Namespace))

	_, helperAtRoot := root.LookupLower(pool.Intern("helper"), false)
	qt.Assert(t, qt.IsFalse(helperAtRoot))

	_, helperInChild := entry.Namespace.LookupLower(pool.Intern("helper"), false)
	qt.Assert(t, qt.IsTrue(helperInChild))
}

// Unnamed impl/inst blocks never occupy a name slot; they only ever show
// up in NamelessEntities (spec.md §3.6's "nameless-entity lists").
func TestImplementationBlockIsNameless(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	c := compile.NewCompiler(pool, diagnostics)

	mod := &surface.Module{
		Definitions: []surface.Definition{
			&surface.StructDecl{Name: n("S")},
			&surface.ImplementationDecl{
				SelfType: &surface.NamedType{Path: surface.Path{Segments: []surface.Name{n("S")}}},
				Functions: []surface.FunctionDecl{
					{Name: n("m"), SelfParam: &surface.SelfParameter{}, Body: &surface.TupleExpr{}},
				},
			},
		},
	}
	root := c.CompileModule(mod)
	nameless := c.Finish()

	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
	qt.Assert(t, qt.Equals(len(nameless.Implementations), 1))
	_, ok := root.LookupLower(pool.Intern("m"), false)
	qt.Assert(t, qt.IsFalse(ok))
}
