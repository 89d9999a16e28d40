package adt

// Counters is the process-wide source of fresh unification-variable tags,
// template-parameter tags, and local-variable tags (spec.md §3.7). A
// single compilation unit owns exactly one Counters.
type Counters struct {
	nextUnificationTag uint64
	nextTemplateTag    uint64
	nextLocalTag       uint64
}

func NewCounters() *Counters { return &Counters{} }

func (c *Counters) FreshUnificationTag() uint64 {
	c.nextUnificationTag++
	return c.nextUnificationTag
}

func (c *Counters) FreshTemplateParameterTag() uint64 {
	c.nextTemplateTag++
	return c.nextTemplateTag
}

func (c *Counters) FreshLocalVariableTag() uint64 {
	c.nextLocalTag++
	return c.nextLocalTag
}

// Module is the resolver's output (spec.md §6): resolved top-level
// function infos, the populated namespace graph, and (via each template
// info's own Instantiations slice) the residual instantiation memo.
type Module struct {
	Root      *Namespace
	Functions []*FunctionInfo
	Nameless  NamelessEntities
}
