package samples

import "github.com/gogpu/shadercross/ir"

// WorkgroupSize is the x dimension of the compute sample's workgroup.
const WorkgroupSize = 64

// Compute builds a compute shader that uses workgroup memory, a barrier,
// a switch with fall-through, a runtime-sized array and a storage image.
func Compute() *ir.Module {
	m := &ir.Module{}
	t := commonTypes(m)

	values := m.AddType(ir.Type{Inner: ir.ArrayType{Base: t.u32, Stride: 4}})
	data := m.AddType(ir.Type{Name: "Data", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "count", Type: t.u32, Offset: 0},
			{Name: "values", Type: values, Offset: 4},
		},
		Span: 8,
	}})
	tileType := m.AddType(ir.Type{Inner: ir.ArrayType{Base: t.u32, Size: ptr(uint32(WorkgroupSize)), Stride: 4}})
	image := m.AddType(ir.Type{Inner: ir.ImageType{
		Dim:    ir.Dim2D,
		Class:  ir.ImageClassStorage,
		Format: ir.FormatRgba8Unorm,
		Access: ir.StorageStore,
	}})
	zero := u32Const(m, t.u32, "", 0)

	gData := m.AddGlobalVariable(ir.GlobalVariable{Name: "data", Space: ir.SpaceStorage, Type: data, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}})
	gImage := m.AddGlobalVariable(ir.GlobalVariable{Name: "out_image", Space: ir.SpaceHandle, Type: image, Binding: &ir.ResourceBinding{Group: 0, Binding: 1}})
	gTile := m.AddGlobalVariable(ir.GlobalVariable{Name: "tile", Space: ir.SpaceWorkGroup, Type: tileType})

	b := ir.NewFunctionBuilder("cs_main")
	index := b.Arg("index", t.u32, ir.BuiltinBinding{Builtin: ir.BuiltinLocalInvocationIndex})
	gid := b.Arg("gid", t.vec3u, ir.BuiltinBinding{Builtin: ir.BuiltinGlobalInvocationID})
	value := b.Local("value", t.u32, &zero)
	total := b.Local("total", t.u32, &zero)
	k := b.Local("k", t.u32, &zero)

	dataPtr := b.Expr(ir.ExprGlobalVariable{Variable: gData})
	valuesPtr := member(b, dataPtr, 1)
	n := b.Expr(ir.ExprArrayLength{Array: valuesPtr})
	inRange := binary(b, ir.BinaryLess, index, n)
	b.If(inRange, func() {
		elemPtr := b.Expr(ir.ExprAccess{Base: valuesPtr, Index: index})
		elem := load(b, elemPtr)
		b.Stmt(ir.StmtStore{Pointer: value, Value: elem})
	}, nil)

	three := u32Lit(b, 3)
	selector := binary(b, ir.BinaryModulo, index, three)
	update := func(op ir.BinaryOperator, by uint32) ir.Block {
		return b.Block(func() {
			v := load(b, value)
			operand := u32Lit(b, by)
			next := binary(b, op, v, operand)
			b.Stmt(ir.StmtStore{Pointer: value, Value: next})
		})
	}
	b.Stmt(ir.StmtSwitch{Selector: selector, Cases: []ir.SwitchCase{
		{Value: ir.SwitchValueU32(0), Body: update(ir.BinaryMultiply, 2)},
		{Value: ir.SwitchValueU32(1), Body: update(ir.BinaryAdd, 1), FallThrough: true},
		{Value: ir.SwitchValueU32(2), Body: update(ir.BinaryExclusiveOr, 1)},
		{Value: ir.SwitchValueDefault{}},
	}})

	tilePtr := b.Expr(ir.ExprGlobalVariable{Variable: gTile})
	slot := b.Expr(ir.ExprAccess{Base: tilePtr, Index: index})
	current := load(b, value)
	b.Stmt(ir.StmtStore{Pointer: slot, Value: current})
	b.Stmt(ir.StmtBarrier{Flags: ir.BarrierWorkGroup})

	zeroIndex := u32Lit(b, 0)
	first := binary(b, ir.BinaryEqual, index, zeroIndex)
	b.If(first, func() {
		b.Loop(func() {
			kv := load(b, k)
			size := u32Lit(b, WorkgroupSize)
			done := binary(b, ir.BinaryGreaterEqual, kv, size)
			b.If(done, func() { b.Stmt(ir.StmtBreak{}) }, nil)
			tv := load(b, total)
			kv2 := load(b, k)
			cell := b.Expr(ir.ExprAccess{Base: tilePtr, Index: kv2})
			cv := load(b, cell)
			sum := binary(b, ir.BinaryAdd, tv, cv)
			b.Stmt(ir.StmtStore{Pointer: total, Value: sum})
		}, func() *ir.ExpressionHandle {
			kv := load(b, k)
			one := u32Lit(b, 1)
			next := binary(b, ir.BinaryAdd, kv, one)
			b.Stmt(ir.StmtStore{Pointer: k, Value: next})
			return nil
		})
		countPtr := member(b, dataPtr, 0)
		tv := load(b, total)
		b.Stmt(ir.StmtStore{Pointer: countPtr, Value: tv})
	}, nil)

	final := load(b, value)
	mask := u32Lit(b, 255)
	low := binary(b, ir.BinaryAnd, final, mask)
	asFloat := b.Expr(ir.ExprAs{Expr: low, Kind: ir.ScalarFloat, Convert: ptr(uint8(4))})
	denom := f32Lit(b, 255)
	ratio := binary(b, ir.BinaryDivide, asFloat, denom)
	lo := f32Lit(b, 0)
	hi := f32Lit(b, 1)
	shade := b.Expr(ir.ExprMath{Fun: ir.MathClamp, Arg: ratio, Arg1: &lo, Arg2: &hi})
	half := f32Lit(b, 0.5)
	bright := binary(b, ir.BinaryGreater, shade, half)
	alpha := b.Expr(ir.ExprSelect{Condition: bright, Accept: hi, Reject: half})
	rgb := b.Expr(ir.ExprSplat{Size: ir.Vec3, Value: shade})
	texel := b.Expr(ir.ExprCompose{Type: t.vec4f, Components: []ir.ExpressionHandle{rgb, alpha}})
	xy := swizzle(b, gid, ir.Vec2, ir.SwizzleX, ir.SwizzleY)
	coord := b.Expr(ir.ExprAs{Expr: xy, Kind: ir.ScalarSint, Convert: ptr(uint8(4))})
	img := b.Expr(ir.ExprGlobalVariable{Variable: gImage})
	b.Stmt(ir.StmtImageStore{Image: img, Coordinate: coord, Value: texel})

	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "cs_main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{WorkgroupSize, 1, 1}})
	return m
}
