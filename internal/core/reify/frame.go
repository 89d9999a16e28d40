package reify

import "github.com/kieli-lang/resolvecore/internal/core/adt"

// computeFrame assigns a byte offset to every local-variable tag bound in
// info's parameter patterns and body, in the order each binding is
// encountered (spec.md §4.10's "computation of concrete sizes/frame
// offsets for code generation"). A binding whose type's layout could not
// be determined (already diagnosed by checkType/LayoutOf) is skipped
// rather than aborting the whole frame.
//
// A method's self parameter never receives a slot here: spec.md §3.4's
// SelfExpr carries no local-variable tag (it is resolved as a fixed "self"
// identity the way a receiver register/slot would be, not through the
// same tag-addressed scheme as an ordinary binding), so there is nothing
// for this pass to assign an offset to.
func (r *Reifier) computeFrame(info *adt.FunctionInfo) *adt.FrameLayout {
	offsets := map[uint64]uint64{}
	var cursor, align uint64 = 0, 1

	bind := func(tag uint64, t adt.Type) {
		layout, ok := r.LayoutOf(t)
		if !ok {
			return
		}
		cursor = alignUp(cursor, layout.Align)
		offsets[tag] = cursor
		cursor += layout.Size
		if layout.Align > align {
			align = layout.Align
		}
	}

	for _, p := range info.Signature.Parameters {
		r.bindPattern(p.Pattern, bind)
	}
	r.bindExpr(info.Body, bind)

	return &adt.FrameLayout{Offsets: offsets, Size: alignUp(cursor, align), Align: align}
}

type binder func(tag uint64, t adt.Type)

func (r *Reifier) bindPattern(p adt.Pattern, bind binder) {
	switch v := p.Value.(type) {
	case *adt.NamePattern:
		bind(v.Tag, p.Type)
	case *adt.TuplePattern:
		for _, e := range v.Elements {
			r.bindPattern(e, bind)
		}
	case *adt.SlicePattern:
		for _, e := range v.Elements {
			r.bindPattern(e, bind)
		}
		if v.Rest != nil {
			r.bindPattern(*v.Rest, bind)
		}
	case *adt.ConstructorPattern:
		if v.Payload != nil {
			r.bindPattern(*v.Payload, bind)
		}
	case *adt.AsPattern:
		bind(v.Tag, p.Type)
		r.bindPattern(v.Inner, bind)
	case *adt.GuardedPattern:
		r.bindPattern(v.Inner, bind)
	}
}

// bindExpr descends a resolved body looking for let-bindings, match arms
// and nested blocks, the only constructs that introduce new local-variable
// tags after the parameter list (spec.md §3.4, §4.6).
func (r *Reifier) bindExpr(e adt.Expr, bind binder) {
	switch v := e.Value.(type) {
	case *adt.BlockExpr:
		for _, s := range v.SideEffects {
			r.bindExpr(s, bind)
		}
		if v.Tail != nil {
			r.bindExpr(*v.Tail, bind)
		}
	case *adt.LoopExpr:
		r.bindExpr(v.Body, bind)
	case *adt.BreakExpr:
		if v.Result != nil {
			r.bindExpr(*v.Result, bind)
		}
	case *adt.ConditionalExpr:
		r.bindExpr(v.Condition, bind)
		r.bindExpr(v.Then, bind)
		if v.Else != nil {
			r.bindExpr(*v.Else, bind)
		}
	case *adt.MatchExpr:
		r.bindExpr(v.Scrutinee, bind)
		for _, arm := range v.Arms {
			r.bindPattern(arm.Pattern, bind)
			r.bindExpr(arm.Body, bind)
		}
	case *adt.LetExpr:
		r.bindExpr(v.Value, bind)
		r.bindPattern(v.Pattern, bind)
	case *adt.ReferenceExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.DereferenceExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.AddressofExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.MoveExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.InvocationExpr:
		r.bindExpr(v.Callee, bind)
		for _, a := range v.Arguments {
			r.bindExpr(a, bind)
		}
	case *adt.EnumConstructorInvocation:
		if v.Payload != nil {
			r.bindExpr(*v.Payload, bind)
		}
	case *adt.StructInitExpr:
		for _, f := range v.Fields {
			r.bindExpr(f.Value, bind)
		}
	case *adt.StructFieldAccessExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.TupleFieldAccessExpr:
		r.bindExpr(v.Operand, bind)
	case *adt.TupleExpr:
		for _, el := range v.Elements {
			r.bindExpr(el, bind)
		}
	case *adt.ArrayExpr:
		for _, el := range v.Elements {
			r.bindExpr(el, bind)
		}
	}
}
