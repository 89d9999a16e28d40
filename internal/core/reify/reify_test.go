package reify_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/reify"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

func i32() adt.Type { return adt.Type{Variant: &adt.IntegerType{Width: adt.Width32, Signed: true}} }
func i8() adt.Type  { return adt.Type{Variant: &adt.IntegerType{Width: adt.Width8, Signed: true}} }
func u8() adt.Type  { return adt.Type{Variant: &adt.IntegerType{Width: adt.Width8, Signed: false}} }

func TestLayoutOfPrimitives(t *testing.T) {
	r := reify.New(diag.NewBuilder())

	l, ok := r.LayoutOf(i32())
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(4)))
	qt.Assert(t, qt.Equals(l.Align, uint64(4)))

	l, ok = r.LayoutOf(adt.Type{Variant: &adt.BooleanType{}})
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(1)))

	l, ok = r.LayoutOf(adt.Type{Variant: &adt.ReferenceType{Referent: i32()}})
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(8)))
	qt.Assert(t, qt.Equals(l.Align, uint64(8)))
}

func TestLayoutOfTuplePadsForAlignment(t *testing.T) {
	r := reify.New(diag.NewBuilder())

	// (I8, I32): I8 at offset 0, I32 needs 4-byte alignment so it lands at
	// offset 4, total padded size is 8.
	l, ok := r.LayoutOf(adt.Type{Variant: &adt.TupleType{Elements: []adt.Type{i8(), i32()}}})
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(8)))
	qt.Assert(t, qt.Equals(l.Align, uint64(4)))
}

func structInfo(pool *intern.Pool, fields ...adt.FieldInfo) *adt.StructInfo {
	return &adt.StructInfo{Name: pool.Intern("S"), Fields: fields}
}

func TestLayoutOfStructSumsAndMemoises(t *testing.T) {
	pool := intern.NewPool()
	r := reify.New(diag.NewBuilder())
	info := structInfo(pool, adt.FieldInfo{Name: pool.Intern("a"), Type: i8()}, adt.FieldInfo{Name: pool.Intern("b"), Type: i32()})

	l, ok := r.LayoutOf(adt.Type{Variant: &adt.StructureType{Info: info}})
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(8)))
	qt.Assert(t, qt.Equals(l.FieldOffsets[pool.Intern("a")], uint64(0)))
	qt.Assert(t, qt.Equals(l.FieldOffsets[pool.Intern("b")], uint64(4)))

	// Second call must hit the memo on info.Layout rather than recompute.
	qt.Assert(t, qt.IsNotNil(info.Layout))
	l2, ok2 := r.LayoutOf(adt.Type{Variant: &adt.StructureType{Info: info}})
	qt.Assert(t, qt.IsTrue(ok2))
	qt.Assert(t, qt.Equals(l2.Size, l.Size))
}

func TestLayoutOfStructDetectsInfiniteRecursion(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	info := &adt.StructInfo{Name: pool.Intern("Node")}
	// A struct containing itself by value, with no intervening
	// pointer/reference/slice, has no finite size.
	info.Fields = []adt.FieldInfo{{Name: pool.Intern("next"), Type: adt.Type{Variant: &adt.StructureType{Info: info}}}}

	_, ok := r.LayoutOf(adt.Type{Variant: &adt.StructureType{Info: info}})
	qt.Assert(t, qt.IsFalse(ok))
	qt.Assert(t, qt.IsTrue(diagnostics.HasErrors()))
}

func TestLayoutOfStructThroughPointerIsFinite(t *testing.T) {
	pool := intern.NewPool()
	r := reify.New(diag.NewBuilder())

	info := &adt.StructInfo{Name: pool.Intern("Node")}
	selfRef := adt.Type{Variant: &adt.PointerType{Referent: adt.Type{Variant: &adt.StructureType{Info: info}}}}
	info.Fields = []adt.FieldInfo{
		{Name: pool.Intern("value"), Type: i32()},
		{Name: pool.Intern("next"), Type: selfRef},
	}

	l, ok := r.LayoutOf(adt.Type{Variant: &adt.StructureType{Info: info}})
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(l.Size, uint64(16))) // 4-byte I32 at 0, padded to 8, then the 8-byte pointer at 8
}

func resolvedUnit() adt.Type { return adt.Type{Variant: &adt.TupleType{}} }

func TestReifyFunctionReportsUnsolvedVariable(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	unsolved := adt.Type{Variant: &adt.UnificationVariable{State: &adt.TypeVarState{Tag: 1, Kind: adt.VariableGeneral}}}
	info := &adt.FunctionInfo{
		Name:      pool.Intern("f"),
		BodyState: adt.BodyResolved,
		Signature: adt.FunctionSignature{Return: unsolved},
		Body:      adt.Expr{Value: &adt.TupleExpr{}, Type: unsolved},
	}

	r.ReifyFunction(info)
	qt.Assert(t, qt.IsTrue(diagnostics.HasErrors()))
}

func TestReifyFunctionSkipsUnresolvedBody(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	info := &adt.FunctionInfo{Name: pool.Intern("f"), BodyState: adt.BodyPartiallyResolved}
	r.ReifyFunction(info)
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
	qt.Assert(t, qt.IsNil(info.Frame))
}

func TestReifyFunctionRangeChecksIntegerLiteral(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	info := &adt.FunctionInfo{
		Name:      pool.Intern("f"),
		BodyState: adt.BodyResolved,
		Signature: adt.FunctionSignature{Return: i8()},
		Body:      adt.Expr{Value: &adt.IntegerLiteral{Text: "200", Signed: true}, Type: i8()},
	}

	r.ReifyFunction(info)
	qt.Assert(t, qt.IsTrue(diagnostics.HasErrors()))
}

func TestReifyFunctionAcceptsInRangeIntegerLiteral(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	info := &adt.FunctionInfo{
		Name:      pool.Intern("f"),
		BodyState: adt.BodyResolved,
		Signature: adt.FunctionSignature{Return: u8()},
		Body:      adt.Expr{Value: &adt.IntegerLiteral{Text: "200", Signed: false}, Type: u8()},
	}

	r.ReifyFunction(info)
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
}

func TestReifyFunctionComputesFrameOffsets(t *testing.T) {
	pool := intern.NewPool()
	diagnostics := diag.NewBuilder()
	r := reify.New(diagnostics)

	xTag, yTag := uint64(1), uint64(2)
	info := &adt.FunctionInfo{
		Name:      pool.Intern("f"),
		BodyState: adt.BodyResolved,
		Signature: adt.FunctionSignature{
			Parameters: []adt.ParameterInfo{
				{Pattern: adt.Pattern{Value: &adt.NamePattern{Tag: xTag, Name: pool.Intern("x")}, Type: i8()}, Type: i8()},
				{Pattern: adt.Pattern{Value: &adt.NamePattern{Tag: yTag, Name: pool.Intern("y")}, Type: i32()}, Type: i32()},
			},
			Return: resolvedUnit(),
		},
		Body: adt.Expr{Value: &adt.TupleExpr{}, Type: resolvedUnit()},
	}

	r.ReifyFunction(info)
	qt.Assert(t, qt.IsFalse(diagnostics.HasErrors()))
	qt.Assert(t, qt.IsNotNil(info.Frame))
	// x (I8) at offset 0; y (I32) needs 4-byte alignment, so it is pushed to
	// offset 4, and the frame's own size rounds up to its 4-byte alignment.
	qt.Assert(t, qt.Equals(info.Frame.Offsets[xTag], uint64(0)))
	qt.Assert(t, qt.Equals(info.Frame.Offsets[yTag], uint64(4)))
	qt.Assert(t, qt.Equals(info.Frame.Size, uint64(8)))
}
