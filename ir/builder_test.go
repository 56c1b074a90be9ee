package ir

import (
	"reflect"
	"testing"
)

func TestFunctionBuilder_Emits(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})

	b := NewFunctionBuilder("f")
	b.Result(f32, nil)
	x := b.Arg("x", f32, nil)
	two := b.Expr(Literal{Value: LiteralF32(2)})
	sum := b.Expr(ExprBinary{Op: BinaryAdd, Left: x, Right: two})
	prod := b.Expr(ExprBinary{Op: BinaryMultiply, Left: sum, Right: sum})
	zero := b.Expr(Literal{Value: LiteralF32(0)})
	less := b.Expr(ExprBinary{Op: BinaryLess, Left: prod, Right: zero})
	b.If(less, func() { b.Return(&zero) }, nil)
	b.Return(&prod)
	fn := b.Finish()

	want := Block{
		{Kind: StmtEmit{Range: Range{Start: 2, End: 4}}},
		{Kind: StmtEmit{Range: Range{Start: 5, End: 6}}},
		{Kind: StmtIf{
			Condition: less,
			Accept:    Block{{Kind: StmtReturn{Value: &zero}}},
		}},
		{Kind: StmtReturn{Value: &prod}},
	}
	if !reflect.DeepEqual(fn.Body, want) {
		t.Errorf("Body = %#v\nwant %#v", fn.Body, want)
	}

	if _, err := ResolveFunctionTypes(m, &fn); err != nil {
		t.Fatalf("ResolveFunctionTypes: %v", err)
	}
}

func TestFunctionBuilder_LoopBreakIf(t *testing.T) {
	m := &Module{}
	u32 := m.AddType(Type{Inner: ScalarU32})

	b := NewFunctionBuilder("count")
	counter := b.Local("i", u32, nil)
	b.Loop(func() {
		i := b.Expr(ExprLoad{Pointer: counter})
		one := b.Expr(Literal{Value: LiteralU32(1)})
		next := b.Expr(ExprBinary{Op: BinaryAdd, Left: i, Right: one})
		b.Stmt(StmtStore{Pointer: counter, Value: next})
	}, func() *ExpressionHandle {
		i := b.Expr(ExprLoad{Pointer: counter})
		limit := b.Expr(Literal{Value: LiteralU32(10)})
		done := b.Expr(ExprBinary{Op: BinaryGreaterEqual, Left: i, Right: limit})
		return &done
	})
	fn := b.Finish()
	m.AddFunction(fn)

	loop, ok := fn.Body[0].Kind.(StmtLoop)
	if !ok {
		t.Fatalf("first statement is %T, want StmtLoop", fn.Body[0].Kind)
	}
	if loop.BreakIf == nil {
		t.Fatal("loop has no break-if")
	}
	last := loop.Continuing[len(loop.Continuing)-1].Kind.(StmtEmit)
	if last.Range.End != *loop.BreakIf+1 {
		t.Errorf("break-if %d is not emitted at the end of continuing (%+v)", *loop.BreakIf, last.Range)
	}

	if _, err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
