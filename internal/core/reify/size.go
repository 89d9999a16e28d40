package reify

import (
	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

// wordSize is one machine word, the size of a pointer or reference
// (spec.md §4.10).
const wordSize = 8

// LayoutOf computes t's size and alignment, memoising struct/enum layouts
// on their Info record so repeated requests (e.g. one per field access
// site) don't re-walk the same struct. Returns false if t's size could not
// be determined. A genuinely infinite recursive type or a non-constant
// array length is reported here; an unsolved variable (or a Self or
// template-parameter placeholder) is reported by checkType, not here.
func (r *Reifier) LayoutOf(t adt.Type) (adt.TypeLayout, bool) {
	switch v := t.FlattenedValue().(type) {
	case *adt.IntegerType:
		size := uint64(v.Width) / 8
		return adt.TypeLayout{Size: size, Align: size}, true
	case *adt.FloatingType:
		return adt.TypeLayout{Size: 8, Align: 8}, true
	case *adt.CharacterType:
		return adt.TypeLayout{Size: 4, Align: 4}, true
	case *adt.BooleanType:
		return adt.TypeLayout{Size: 1, Align: 1}, true
	case *adt.StringType:
		// A string is a (pointer, length) fat pointer, two words.
		return adt.TypeLayout{Size: 2 * wordSize, Align: wordSize}, true
	case *adt.TupleType:
		return r.layoutTuple(v.Elements)
	case *adt.ArrayType:
		return r.layoutArray(v)
	case *adt.SliceType:
		// A slice is a (pointer, length) fat pointer, same as a string.
		return adt.TypeLayout{Size: 2 * wordSize, Align: wordSize}, true
	case *adt.PointerType:
		return adt.TypeLayout{Size: wordSize, Align: wordSize}, true
	case *adt.ReferenceType:
		return adt.TypeLayout{Size: wordSize, Align: wordSize}, true
	case *adt.FunctionType:
		return adt.TypeLayout{Size: wordSize, Align: wordSize}, true
	case *adt.StructureType:
		return r.layoutStruct(v.Info)
	case *adt.EnumerationType:
		return r.layoutEnum(v.Info)
	default:
		// Unification variable, Self placeholder, or template-parameter
		// reference: checkType has already (or will) report this; give
		// callers a harmless zero layout rather than a second diagnostic.
		return adt.TypeLayout{}, false
	}
}

func (r *Reifier) layoutTuple(elements []adt.Type) (adt.TypeLayout, bool) {
	var size, align uint64 = 0, 1
	ok := true
	for _, e := range elements {
		l, elemOk := r.LayoutOf(e)
		if !elemOk {
			ok = false
			continue
		}
		size = alignUp(size, l.Align) + l.Size
		if l.Align > align {
			align = l.Align
		}
	}
	return adt.TypeLayout{Size: alignUp(size, align), Align: align}, ok
}

func (r *Reifier) layoutArray(v *adt.ArrayType) (adt.TypeLayout, bool) {
	elemLayout, ok := r.LayoutOf(v.Element)
	if !ok {
		return adt.TypeLayout{}, false
	}
	n, constOk := constantArrayLength(v.Length)
	if !constOk {
		r.diagnostics.Error(
			diag.NewMessagef("array length is not a constant expression"),
			diag.Section{Span: v.Length.Span, Note: diag.NewMessagef("declared here")},
		)
		return adt.TypeLayout{}, false
	}
	return adt.TypeLayout{Size: elemLayout.Size * n, Align: elemLayout.Align}, true
}

// constantArrayLength extracts a literal array length. Full constant-
// expression evaluation is a non-goal (spec.md §1); only an integer-literal
// length is handled here, and any other elaborated length expression is
// reported as non-constant by the caller.
func constantArrayLength(e *adt.Expr) (uint64, bool) {
	lit, ok := e.Value.(*adt.IntegerLiteral)
	if !ok {
		return 0, false
	}
	var n uint64
	for _, c := range lit.Text {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}

func (r *Reifier) layoutStruct(info *adt.StructInfo) (adt.TypeLayout, bool) {
	if info.Layout != nil {
		return *info.Layout, true
	}
	if r.layoutStack[info] {
		r.diagnostics.Error(
			diag.NewMessagef("struct %q has no finite size: it contains itself without an intervening reference, pointer, or slice", info.Name.String()),
			diag.Section{Span: info.Span, Note: diag.NewMessagef("declared here")},
		)
		return adt.TypeLayout{}, false
	}
	r.layoutStack[info] = true
	defer delete(r.layoutStack, info)

	fieldOffsets := make(map[intern.Symbol]uint64, len(info.Fields))
	var size, align uint64 = 0, 1
	ok := true
	for _, f := range info.Fields {
		l, fieldOk := r.LayoutOf(f.Type)
		if !fieldOk {
			ok = false
			continue
		}
		size = alignUp(size, l.Align)
		fieldOffsets[f.Name] = size
		size += l.Size
		if l.Align > align {
			align = l.Align
		}
	}
	size = alignUp(size, align)
	layout := adt.TypeLayout{Size: size, Align: align, FieldOffsets: fieldOffsets}
	if ok {
		info.Layout = &layout
	}
	return layout, ok
}

func (r *Reifier) layoutEnum(info *adt.EnumInfo) (adt.TypeLayout, bool) {
	if info.Layout != nil {
		return *info.Layout, true
	}
	if r.layoutStack[info] {
		r.diagnostics.Error(
			diag.NewMessagef("enum %q has no finite size: it contains itself without an intervening reference, pointer, or slice", info.Name.String()),
			diag.Section{Span: info.Span, Note: diag.NewMessagef("declared here")},
		)
		return adt.TypeLayout{}, false
	}
	r.layoutStack[info] = true
	defer delete(r.layoutStack, info)

	// Tag width is not finalised by the design this follows (spec_full's
	// supplemented note on original_source leaving enum layout unfinished);
	// one word is a safe, simple choice that never collides with a
	// payload's own alignment requirement.
	var maxPayload, align uint64 = 0, wordSize
	ok := true
	for _, ctor := range info.Constructors {
		if ctor.Payload == nil {
			continue
		}
		l, payloadOk := r.LayoutOf(*ctor.Payload)
		if !payloadOk {
			ok = false
			continue
		}
		if l.Size > maxPayload {
			maxPayload = l.Size
		}
		if l.Align > align {
			align = l.Align
		}
	}
	size := alignUp(wordSize+maxPayload, align)
	layout := adt.TypeLayout{Size: size, Align: align}
	if ok {
		info.Layout = &layout
	}
	return layout, ok
}

func alignUp(offset, align uint64) uint64 {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
