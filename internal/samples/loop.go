package samples

import "github.com/gogpu/shadercross/ir"

// LoopCounter builds a compute shader whose results reveal how a target
// lowered its loops. With params.count = N it stores
//
//	iterations = N
//	continued  = N  (continuing runs after every iteration but the breaking one)
//	total      = sum of the even numbers below N, plus 300
//
// The second loop leaves through break-if after exactly three iterations.
func LoopCounter() *ir.Module {
	m := &ir.Module{}
	t := commonTypes(m)

	counters := m.AddType(ir.Type{Name: "Counters", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "iterations", Type: t.u32, Offset: 0},
			{Name: "total", Type: t.u32, Offset: 4},
			{Name: "continued", Type: t.u32, Offset: 8},
		},
		Span: 12,
	}})
	params := m.AddType(ir.Type{Name: "Params", Inner: ir.StructType{
		Members: []ir.StructMember{{Name: "count", Type: t.u32, Offset: 0}},
		Span:    16,
	}})
	zero := u32Const(m, t.u32, "", 0)

	gCounters := m.AddGlobalVariable(ir.GlobalVariable{Name: "counters", Space: ir.SpaceStorage, Type: counters, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}})
	gParams := m.AddGlobalVariable(ir.GlobalVariable{Name: "params", Space: ir.SpaceUniform, Type: params, Binding: &ir.ResourceBinding{Group: 0, Binding: 1}})

	b := ir.NewFunctionBuilder("count_loop")
	i := b.Local("i", t.u32, &zero)
	total := b.Local("total", t.u32, &zero)
	iterations := b.Local("iterations", t.u32, &zero)
	continued := b.Local("continued", t.u32, &zero)
	j := b.Local("j", t.u32, &zero)

	increment := func(p ir.ExpressionHandle, by uint32) {
		v := load(b, p)
		step := u32Lit(b, by)
		next := binary(b, ir.BinaryAdd, v, step)
		b.Stmt(ir.StmtStore{Pointer: p, Value: next})
	}

	b.Loop(func() {
		iv := load(b, i)
		pPtr := b.Expr(ir.ExprGlobalVariable{Variable: gParams})
		countPtr := member(b, pPtr, 0)
		count := load(b, countPtr)
		done := binary(b, ir.BinaryGreaterEqual, iv, count)
		b.If(done, func() { b.Stmt(ir.StmtBreak{}) }, nil)

		increment(iterations, 1)

		iv2 := load(b, i)
		two := u32Lit(b, 2)
		rem := binary(b, ir.BinaryModulo, iv2, two)
		oneU := u32Lit(b, 1)
		odd := binary(b, ir.BinaryEqual, rem, oneU)
		b.If(odd, func() { b.Stmt(ir.StmtContinue{}) }, nil)

		tv := load(b, total)
		iv3 := load(b, i)
		sum := binary(b, ir.BinaryAdd, tv, iv3)
		b.Stmt(ir.StmtStore{Pointer: total, Value: sum})
	}, func() *ir.ExpressionHandle {
		increment(continued, 1)
		increment(i, 1)
		return nil
	})

	b.Loop(func() {
		increment(total, 100)
	}, func() *ir.ExpressionHandle {
		increment(j, 1)
		jv := load(b, j)
		three := u32Lit(b, 3)
		done := binary(b, ir.BinaryGreaterEqual, jv, three)
		return &done
	})

	out := b.Expr(ir.ExprGlobalVariable{Variable: gCounters})
	for idx, local := range []ir.ExpressionHandle{iterations, total, continued} {
		field := member(b, out, uint32(idx)) //nolint:gosec // G115: three members
		value := load(b, local)
		b.Stmt(ir.StmtStore{Pointer: field, Value: value})
	}

	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "count_loop", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})
	return m
}
