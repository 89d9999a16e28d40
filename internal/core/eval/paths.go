package eval

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
	"github.com/kieli-lang/resolvecore/internal/surface"
)

// resolvePath walks every segment but the last through a nested namespace
// (only NamespaceDecl produces a child Namespace), returning the namespace
// the final segment should be looked up in, its interned name, and whether
// that final lookup should walk ancestor namespaces (true only for an
// unqualified single-segment path).
func (c *Context) resolvePath(ns *adt.Namespace, path surface.Path) (*adt.Namespace, intern.Symbol, bool, bool) {
	segs := path.Segments
	if len(segs) == 0 {
		return nil, intern.Symbol{}, false, false
	}
	cur := ns
	for i := 0; i < len(segs)-1; i++ {
		sym := c.pool.Intern(segs[i].Text)
		entry, ok := cur.LookupLower(sym, i == 0)
		if !ok || entry.Namespace == nil {
			c.diagnostics.Error(
				diag.NewMessagef("%q is not a namespace", segs[i].Text),
				diag.Section{Span: segs[i].Span, Note: diag.NewMessagef("used as a path segment here")},
			)
			return nil, intern.Symbol{}, false, false
		}
		cur = entry.Namespace
	}
	last := segs[len(segs)-1]
	return cur, c.pool.Intern(last.Text), len(segs) == 1, true
}

func (c *Context) lookupUpperPath(ns *adt.Namespace, path surface.Path) (adt.UpperEntry, bool) {
	cur, name, walk, ok := c.resolvePath(ns, path)
	if !ok {
		return adt.UpperEntry{}, false
	}
	return cur.LookupUpper(name, walk)
}

func (c *Context) lookupLowerPath(ns *adt.Namespace, path surface.Path) (adt.LowerEntry, bool) {
	cur, name, walk, ok := c.resolvePath(ns, path)
	if !ok {
		return adt.LowerEntry{}, false
	}
	return cur.LookupLower(name, walk)
}
