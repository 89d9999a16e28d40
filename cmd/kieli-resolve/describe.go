package main

import (
	"fmt"
	"strings"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
)

// describeType renders a resolved type for human-readable output, the CLI's
// counterpart to internal/core/instantiate's unexported describeType (which
// exists only to build memo keys). An unsolved unification variable prints
// as `?N` so a dump makes reification's "unsolved type variable"
// diagnostics easy to cross-reference.
func describeType(t adt.Type) string {
	switch v := t.FlattenedValue().(type) {
	case *adt.IntegerType:
		prefix := "I"
		if !v.Signed {
			prefix = "U"
		}
		return fmt.Sprintf("%s%d", prefix, int(v.Width))
	case *adt.FloatingType:
		return "Float"
	case *adt.CharacterType:
		return "Char"
	case *adt.BooleanType:
		return "Bool"
	case *adt.StringType:
		return "String"
	case *adt.TupleType:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = describeType(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *adt.ArrayType:
		return "[" + describeType(v.Element) + "; N]"
	case *adt.SliceType:
		return "[" + describeType(v.Element) + "]"
	case *adt.PointerType:
		return "*" + describeMutability(v.Mutability) + describeType(v.Referent)
	case *adt.ReferenceType:
		return "&" + describeMutability(v.Mutability) + describeType(v.Referent)
	case *adt.FunctionType:
		parts := make([]string, len(v.Parameters))
		for i, p := range v.Parameters {
			parts[i] = describeType(p)
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + describeType(v.Return)
	case *adt.StructureType:
		return v.Info.Name.String()
	case *adt.EnumerationType:
		return v.Info.Name.String()
	case *adt.SelfPlaceholderType:
		return "Self"
	case *adt.TemplateParameterRefType:
		return fmt.Sprintf("T#%d", v.Tag)
	case *adt.UnificationVariable:
		return fmt.Sprintf("?%d", v.State.Tag)
	default:
		return "<poison>"
	}
}

func describeMutability(m adt.Mutability) string {
	if v, ok := m.FlattenedValue().(*adt.ConcreteMutability); ok && v.IsMutable {
		return "mut "
	}
	return ""
}

func describeStruct(info *adt.StructInfo) string {
	fields := make([]string, len(info.Fields))
	for i, f := range info.Fields {
		fields[i] = fmt.Sprintf("%s: %s", f.Name.String(), describeType(f.Type))
	}
	line := fmt.Sprintf("struct %s { %s }", info.Name.String(), strings.Join(fields, ", "))
	if info.Layout != nil {
		line += fmt.Sprintf("  [size: %d bytes, align %d]", info.Layout.Size, info.Layout.Align)
	}
	return line
}

func describeFunction(info *adt.FunctionInfo) string {
	params := make([]string, len(info.Signature.Parameters))
	for i, p := range info.Signature.Parameters {
		params[i] = describeType(p.Type)
	}
	line := fmt.Sprintf("fn %s(%s) -> %s", info.Name.String(), strings.Join(params, ", "), describeType(info.Signature.Return))
	if info.Frame != nil {
		line += fmt.Sprintf("  [frame: %d bytes, align %d]", info.Frame.Size, info.Frame.Align)
	}
	return line
}
