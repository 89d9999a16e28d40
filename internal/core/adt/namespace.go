package adt

import "github.com/kieli-lang/resolvecore/internal/intern"

// LowerEntry is anything bound under a lower (lowercase-initial) name:
// values, functions, namespaces, enum constructors (spec.md §3.6, §6).
type LowerEntry struct {
	Function         *FunctionInfo
	FunctionTemplate *FunctionTemplateInfo
	Namespace        *Namespace
	Constructor      *ConstructorInfo
	// There is no slot for a top-level `let`-bound constant: the surface
	// grammar only produces functions/namespaces/constructors at module
	// scope.
}

func (e LowerEntry) IsZero() bool {
	return e.Function == nil && e.FunctionTemplate == nil && e.Namespace == nil && e.Constructor == nil
}

// UpperEntry is anything bound under an upper (uppercase-initial) name:
// types, type templates, typeclasses (spec.md §3.6, §6).
type UpperEntry struct {
	Struct            *StructInfo
	StructTemplate    *StructTemplateInfo
	Enum              *EnumInfo
	EnumTemplate      *EnumTemplateInfo
	Alias             *AliasInfo
	AliasTemplate     *AliasTemplateInfo
	Typeclass         *TypeclassInfo
	TypeclassTemplate *TypeclassTemplateInfo
}

func (e UpperEntry) IsZero() bool {
	return e.Struct == nil && e.StructTemplate == nil && e.Enum == nil &&
		e.EnumTemplate == nil && e.Alias == nil && e.AliasTemplate == nil &&
		e.Typeclass == nil && e.TypeclassTemplate == nil
}

// NamedDefinition pairs a definition's name with its span. Nothing in this
// module constructs one; duplicate-name diagnostics are built from
// DuplicateError instead.
type NamedDefinition struct {
	Name string
	Span interface{ String() string }
}

// Namespace is a node in the namespace tree: an ordered definition list
// plus the lower/upper name tables (spec.md §3.6).
type Namespace struct {
	Name   *intern.Symbol
	Parent *Namespace

	lower map[intern.Symbol]LowerEntry
	upper map[intern.Symbol]UpperEntry

	// order preserves registration order for signature-pass iteration
	// (spec.md §4.7's "strictly ordered by the namespace tree walk in
	// registration order").
	order []intern.Symbol

	Children []*Namespace
}

// NewNamespace creates a namespace, optionally nested under parent.
func NewNamespace(name *intern.Symbol, parent *Namespace) *Namespace {
	ns := &Namespace{
		Name:   name,
		Parent: parent,
		lower:  make(map[intern.Symbol]LowerEntry),
		upper:  make(map[intern.Symbol]UpperEntry),
	}
	if parent != nil {
		parent.Children = append(parent.Children, ns)
	}
	return ns
}

// LookupLower returns the lower-name entry for name, searching this
// namespace then (if walk is true) its ancestors.
func (ns *Namespace) LookupLower(name intern.Symbol, walk bool) (LowerEntry, bool) {
	for n := ns; n != nil; n = parentOrNil(n, walk) {
		if e, ok := n.lower[name]; ok {
			return e, true
		}
		if !walk {
			break
		}
	}
	return LowerEntry{}, false
}

// LookupUpper returns the upper-name entry for name, searching this
// namespace then (if walk is true) its ancestors.
func (ns *Namespace) LookupUpper(name intern.Symbol, walk bool) (UpperEntry, bool) {
	for n := ns; n != nil; n = parentOrNil(n, walk) {
		if e, ok := n.upper[name]; ok {
			return e, true
		}
		if !walk {
			break
		}
	}
	return UpperEntry{}, false
}

func parentOrNil(n *Namespace, walk bool) *Namespace {
	if !walk {
		return nil
	}
	return n.Parent
}

// DuplicateError is returned by Insert* when name is already bound in this
// namespace; it carries the entry already bound under the name. The
// compiler's duplicate diagnostic points at the redefinition only and does
// not show the original definition's span.
type DuplicateError struct {
	Name        intern.Symbol
	OriginalLow LowerEntry
	OriginalUp  UpperEntry
	WasLower    bool
}

func (e *DuplicateError) Error() string {
	return "duplicate definition: " + e.Name.String()
}

// InsertLower registers a lower-name binding, reporting a DuplicateError if
// the slot is already filled.
func (ns *Namespace) InsertLower(name intern.Symbol, entry LowerEntry) error {
	if existing, ok := ns.lower[name]; ok {
		return &DuplicateError{Name: name, OriginalLow: existing, WasLower: true}
	}
	ns.lower[name] = entry
	ns.order = append(ns.order, name)
	return nil
}

// InsertUpper registers an upper-name binding, reporting a DuplicateError if
// the slot is already filled.
func (ns *Namespace) InsertUpper(name intern.Symbol, entry UpperEntry) error {
	if existing, ok := ns.upper[name]; ok {
		return &DuplicateError{Name: name, OriginalUp: existing, WasLower: false}
	}
	ns.upper[name] = entry
	ns.order = append(ns.order, name)
	return nil
}

// AddConstructors populates the enum's associated namespace with its
// constructors. Called once the enum is resolved, not at registration time
// (spec.md §4.2).
func (ns *Namespace) AddConstructors(info *EnumInfo) {
	for i := range info.Constructors {
		ctor := &info.Constructors[i]
		_ = ns.InsertLower(ctor.Name, LowerEntry{Constructor: ctor})
	}
}

// OrderedNames returns the names registered in this namespace, in
// registration order, for signature-pass iteration.
func (ns *Namespace) OrderedNames() []intern.Symbol {
	return ns.order
}

// AssociatedNamespaceIf returns the namespace that holds a type's inherent
// methods, or (nil, false) if the type has none (e.g. a primitive or a
// reference). Grounded on the original source's
// Context::associated_namespace_if (spec_full "Supplemented features").
func AssociatedNamespaceIf(t Type) (*Namespace, bool) {
	switch v := t.FlattenedValue().(type) {
	case *StructureType:
		if v.Info.Methods == nil {
			v.Info.Methods = NewNamespace(nil, v.Info.Home)
		}
		return v.Info.Methods, true
	case *EnumerationType:
		if v.Info.Methods == nil {
			v.Info.Methods = NewNamespace(nil, v.Info.Home)
		}
		return v.Info.Methods, true
	default:
		return nil, false
	}
}
