package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

// CollectModule assembles the resolver's §6 output: every resolved
// top-level (and nested-namespace) function, every monomorphised
// instantiation produced along the way, and the methods registered on
// struct/enum associated namespaces, alongside the namespace graph and
// nameless entities ResolveModule was driven with. Call after
// ResolveModule returns.
func (c *Context) CollectModule() *adt.Module {
	mod := &adt.Module{Root: c.root, Nameless: c.nameless}
	seen := make(map[*adt.FunctionInfo]bool)
	collectNamespace(c.root, &mod.Functions, seen)
	// Functions registered on a struct/enum's associated Methods namespace
	// (via registerMethod in resolve.go) are already reachable from the
	// walk above; the nameless Implementations/Instantiations loops below
	// only need to pick up impls/insts on a Self type with no associated
	// namespace of its own (anything but Structure/Enumeration), so `seen`
	// guards against visiting the same *FunctionInfo twice.
	for _, impl := range c.nameless.Implementations {
		collectFunctions(impl.Functions, &mod.Functions, seen)
		collectTemplates(impl.Templates, &mod.Functions, seen)
	}
	for _, inst := range c.nameless.Instantiations {
		collectFunctions(inst.Functions, &mod.Functions, seen)
	}
	return mod
}

func collectNamespace(ns *adt.Namespace, out *[]*adt.FunctionInfo, seen map[*adt.FunctionInfo]bool) {
	for _, name := range ns.OrderedNames() {
		if le, ok := ns.LookupLower(name, false); ok {
			switch {
			case le.Function != nil:
				addFunction(le.Function, out, seen)
			case le.FunctionTemplate != nil:
				for _, inst := range le.FunctionTemplate.Instantiations {
					addFunction(inst, out, seen)
				}
			case le.Namespace != nil:
				collectNamespace(le.Namespace, out, seen)
			}
			continue
		}
		if ue, ok := ns.LookupUpper(name, false); ok {
			switch {
			case ue.Struct != nil && ue.Struct.Methods != nil:
				collectNamespace(ue.Struct.Methods, out, seen)
			case ue.Enum != nil && ue.Enum.Methods != nil:
				collectNamespace(ue.Enum.Methods, out, seen)
			case ue.StructTemplate != nil:
				for _, inst := range ue.StructTemplate.Instantiations {
					if inst.Methods != nil {
						collectNamespace(inst.Methods, out, seen)
					}
				}
			case ue.EnumTemplate != nil:
				for _, inst := range ue.EnumTemplate.Instantiations {
					if inst.Methods != nil {
						collectNamespace(inst.Methods, out, seen)
					}
				}
			}
		}
	}
}

func addFunction(fn *adt.FunctionInfo, out *[]*adt.FunctionInfo, seen map[*adt.FunctionInfo]bool) {
	if fn == nil || seen[fn] {
		return
	}
	seen[fn] = true
	*out = append(*out, fn)
}

func collectFunctions(m map[intern.Symbol]*adt.FunctionInfo, out *[]*adt.FunctionInfo, seen map[*adt.FunctionInfo]bool) {
	for _, fn := range m {
		addFunction(fn, out, seen)
	}
}

func collectTemplates(m map[intern.Symbol]*adt.FunctionTemplateInfo, out *[]*adt.FunctionInfo, seen map[*adt.FunctionInfo]bool) {
	for _, tmpl := range m {
		for _, inst := range tmpl.Instantiations {
			addFunction(inst, out, seen)
		}
	}
}
