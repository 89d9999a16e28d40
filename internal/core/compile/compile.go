// Package compile builds the namespace tree out of a surface.Module: one
// pass over the desugared input that registers every definition's name
// (with duplicate detection) and produces the Unresolved Info stub each
// definition will be elaborated into during the two-pass resolver
// (internal/core/eval, C9). Nameless impl/inst blocks have no name to
// register, so they are instead collected into a process-wide
// NamelessEntities list (spec.md §3.6).
//
// This mirrors the first half of what the teacher's own
// internal/core/compile package does: walk an AST and build a scope
// structure (there, a "compiler" with a block stack over cue/ast;
// here, an adt.Namespace tree over surface.Module) before any value is
// evaluated.
package compile

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
)

// Compiler registers surface definitions into a namespace tree.
type Compiler struct {
	pool        *intern.Pool
	diagnostics *diag.Builder

	nameless adt.NamelessEntities

	pendingInstances         []pendingInstantiation
	pendingInstanceTemplates []pendingInstantiationTemplate
}

type pendingInstantiation struct {
	info      *adt.InstantiationInfo
	typeclass surface.Name
}

type pendingInstantiationTemplate struct {
	info      *adt.InstantiationTemplateInfo
	typeclass surface.Name
}

func NewCompiler(pool *intern.Pool, diagnostics *diag.Builder) *Compiler {
	return &Compiler{pool: pool, diagnostics: diagnostics}
}

// CompileModule registers every definition in mod, returning the root
// namespace; the collected nameless entities come from Finish. Call Finish afterwards to
// link InstantiationDecl blocks to their typeclass, which may be declared
// later in the same module (forward references are legal — spec.md §4.1).
func (c *Compiler) CompileModule(mod *surface.Module) *adt.Namespace {
	root := adt.NewNamespace(nil, nil)
	c.registerAll(root, mod.Definitions)
	return root
}

// Finish links every pending InstantiationDecl/InstantiationTemplateDecl to
// its named typeclass, reporting an error if the name is unbound or does
// not name a typeclass. Call once after CompileModule has registered the
// whole tree (and any sibling modules, if this compiler is reused across
// one multi-file unit).
func (c *Compiler) Finish() adt.NamelessEntities {
	for _, p := range c.pendingInstances {
		if tc := c.resolveTypeclass(p.info.Home, p.typeclass); tc != nil {
			p.info.Typeclass = tc
		}
	}
	for _, p := range c.pendingInstanceTemplates {
		// Template instances store their typeclass on the underlying
		// surface decl only; the resolver links it once the template body
		// is elaborated, since the Self type itself isn't known until then.
		_ = p
	}
	return c.nameless
}

func (c *Compiler) resolveTypeclass(ns *adt.Namespace, name surface.Name) *adt.TypeclassInfo {
	sym := c.pool.Intern(name.Text)
	entry, ok := ns.LookupUpper(sym, true)
	if !ok || entry.Typeclass == nil {
		c.diagnostics.Error(
			diag.NewMessagef("%q does not name a typeclass", name.Text),
			diag.Section{Span: name.Span, Note: diag.NewMessagef("referenced here")},
		)
		return nil
	}
	return entry.Typeclass
}

func (c *Compiler) registerAll(ns *adt.Namespace, defs []surface.Definition) {
	for _, d := range defs {
		c.register(ns, d)
	}
}

func (c *Compiler) insertLower(ns *adt.Namespace, name surface.Name, entry adt.LowerEntry) {
	sym := c.pool.Intern(name.Text)
	if err := ns.InsertLower(sym, entry); err != nil {
		c.reportDuplicate(name, err.(*adt.DuplicateError))
	}
}

func (c *Compiler) insertUpper(ns *adt.Namespace, name surface.Name, entry adt.UpperEntry) {
	sym := c.pool.Intern(name.Text)
	if err := ns.InsertUpper(sym, entry); err != nil {
		c.reportDuplicate(name, err.(*adt.DuplicateError))
	}
}

func (c *Compiler) reportDuplicate(name surface.Name, err *adt.DuplicateError) {
	c.diagnostics.Error(
		diag.NewMessagef("%q is already defined in this namespace", name.Text),
		diag.Section{Span: name.Span, Note: diag.NewMessagef("redefined here")},
	)
}

func (c *Compiler) register(ns *adt.Namespace, d surface.Definition) {
	switch decl := d.(type) {
	case *surface.NamespaceDecl:
		sym := c.pool.Intern(decl.Name.Text)
		child := adt.NewNamespace(&sym, ns)
		c.insertLower(ns, decl.Name, adt.LowerEntry{Namespace: child})
		c.registerAll(child, decl.Definitions)

	case *surface.FunctionDecl:
		info := &adt.FunctionInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl,
		}
		c.insertLower(ns, decl.Name, adt.LowerEntry{Function: info})

	case *surface.FunctionTemplateDecl:
		info := &adt.FunctionTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.insertLower(ns, decl.Name, adt.LowerEntry{FunctionTemplate: info})

	case *surface.StructDecl:
		info := &adt.StructInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{Struct: info})

	case *surface.StructTemplateDecl:
		info := &adt.StructTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{StructTemplate: info})

	case *surface.EnumDecl:
		info := &adt.EnumInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{Enum: info})

	case *surface.EnumTemplateDecl:
		info := &adt.EnumTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{EnumTemplate: info})

	case *surface.AliasDecl:
		info := &adt.AliasInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{Alias: info})

	case *surface.AliasTemplateDecl:
		info := &adt.AliasTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{AliasTemplate: info})

	case *surface.TypeclassDecl:
		info := &adt.TypeclassInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{Typeclass: info})

	case *surface.TypeclassTemplateDecl:
		info := &adt.TypeclassTemplateInfo{
			Name: c.pool.Intern(decl.Name.Text), Span: decl.Span, Home: ns,
			State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.insertUpper(ns, decl.Name, adt.UpperEntry{TypeclassTemplate: info})

	case *surface.ImplementationDecl:
		info := &adt.ImplementationInfo{
			Span: decl.Span, Home: ns, State: adt.Unresolved, Surface: decl,
			Functions: make(map[intern.Symbol]*adt.FunctionInfo),
			Templates: make(map[intern.Symbol]*adt.FunctionTemplateInfo),
		}
		c.nameless.Implementations = append(c.nameless.Implementations, info)

	case *surface.ImplementationTemplateDecl:
		info := &adt.ImplementationTemplateInfo{
			Span: decl.Span, Home: ns, State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.nameless.ImplementationTemplates = append(c.nameless.ImplementationTemplates, info)

	case *surface.InstantiationDecl:
		info := &adt.InstantiationInfo{
			Span: decl.Span, Home: ns, State: adt.Unresolved, Surface: decl,
			Functions: make(map[intern.Symbol]*adt.FunctionInfo),
		}
		c.nameless.Instantiations = append(c.nameless.Instantiations, info)
		c.pendingInstances = append(c.pendingInstances, pendingInstantiation{info: info, typeclass: decl.Typeclass})

	case *surface.InstantiationTemplateDecl:
		info := &adt.InstantiationTemplateInfo{
			Span: decl.Span, Home: ns, State: adt.Unresolved, Surface: decl, Parameters: decl.Parameters,
		}
		c.nameless.InstantiationTemplates = append(c.nameless.InstantiationTemplates, info)
		c.pendingInstanceTemplates = append(c.pendingInstanceTemplates, pendingInstantiationTemplate{info: info, typeclass: decl.Inst.Typeclass})
	}
}
