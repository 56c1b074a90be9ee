package ir

import "testing"

func TestResolveLiteralType(t *testing.T) {
	tests := []struct {
		name    string
		literal LiteralValue
		want    ScalarType
	}{
		{"f32 literal", LiteralF32(3.14), ScalarF32},
		{"f64 literal", LiteralF64(3.14), ScalarF64},
		{"i32 literal", LiteralI32(42), ScalarI32},
		{"u32 literal", LiteralU32(100), ScalarU32},
		{"i64 literal", LiteralI64(-1), ScalarType{Kind: ScalarSint, Width: 8}},
		{"bool literal", LiteralBool(true), ScalarBoolType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{}
			fn := &Function{Expressions: []Expression{{Kind: Literal{Value: tt.literal}}}}
			got, err := ResolveExpressionType(m, fn, 0)
			if err != nil {
				t.Fatalf("ResolveExpressionType: %v", err)
			}
			if got.Inner(m) != tt.want {
				t.Errorf("type = %v, want %v", got.Inner(m), tt.want)
			}
		})
	}
}

func TestResolveExpressionType(t *testing.T) {
	m := &Module{}
	f32 := m.AddType(Type{Inner: ScalarF32})
	vec2 := m.AddType(Type{Inner: VectorType{Size: Vec2, Scalar: ScalarF32}})
	vec4 := m.AddType(Type{Inner: VectorType{Size: Vec4, Scalar: ScalarF32}})
	mat4 := m.AddType(Type{Inner: MatrixType{Columns: Vec4, Rows: Vec4, Scalar: ScalarF32}})
	lights := m.AddType(Type{Inner: ArrayType{Base: mat4, Stride: 64}})
	depth := m.AddType(Type{Inner: ImageType{Dim: Dim2D, Arrayed: true, Class: ImageClassDepth}})
	cmp := m.AddType(Type{Inner: SamplerType{Comparison: true}})
	m.AddType(Type{Inner: PointerType{Base: mat4, Space: SpaceStorage}})

	gLights := m.AddGlobalVariable(GlobalVariable{Name: "lights", Space: SpaceStorage, Type: lights, Binding: &ResourceBinding{}})
	gTex := m.AddGlobalVariable(GlobalVariable{Name: "t", Space: SpaceHandle, Type: depth, Binding: &ResourceBinding{Binding: 1}})
	gSampler := m.AddGlobalVariable(GlobalVariable{Name: "s", Space: SpaceHandle, Type: cmp, Binding: &ResourceBinding{Binding: 2}})

	b := NewFunctionBuilder("f")
	pos := b.Arg("pos", vec4, nil)
	ptrLights := b.Expr(ExprGlobalVariable{Variable: gLights})
	idx := b.Expr(Literal{Value: LiteralU32(1)})
	ptrLight := b.Expr(ExprAccess{Base: ptrLights, Index: idx})
	light := b.Expr(ExprLoad{Pointer: ptrLight})
	column := b.Expr(ExprAccessIndex{Base: ptrLight, Index: 2})
	component := b.Expr(ExprAccessIndex{Base: column, Index: 1})
	mv := b.Expr(ExprBinary{Op: BinaryMultiply, Left: light, Right: pos})
	vm := b.Expr(ExprBinary{Op: BinaryMultiply, Left: pos, Right: light})
	less := b.Expr(ExprBinary{Op: BinaryLess, Left: pos, Right: pos})
	xy := b.Expr(ExprSwizzle{Size: Vec2, Vector: pos, Pattern: [4]SwizzleComponent{SwizzleX, SwizzleY}})
	w := b.Expr(ExprAccessIndex{Base: pos, Index: 3})
	scaled := b.Expr(ExprBinary{Op: BinaryMultiply, Left: w, Right: xy})
	length := b.Expr(ExprMath{Fun: MathLength, Arg: xy})
	tex := b.Expr(ExprGlobalVariable{Variable: gTex})
	sampler := b.Expr(ExprGlobalVariable{Variable: gSampler})
	layer := b.Expr(Literal{Value: LiteralI32(0)})
	sample := b.Expr(ExprImageSample{Image: tex, Sampler: sampler, Coordinate: xy, ArrayIndex: &layer, Level: SampleLevelZero{}, DepthRef: &w})
	size := b.Expr(ExprImageQuery{Image: tex, Query: ImageQuerySize{}})
	asInt := b.Expr(ExprAs{Expr: pos, Kind: ScalarSint, Convert: uint8Ptr(4)})
	fn := b.Finish()

	types, err := ResolveFunctionTypes(m, &fn)
	if err != nil {
		t.Fatalf("ResolveFunctionTypes: %v", err)
	}

	tests := []struct {
		name string
		expr ExpressionHandle
		want TypeInner
	}{
		{"argument", pos, VectorType{Size: Vec4, Scalar: ScalarF32}},
		{"storage global is a pointer", ptrLights, PointerType{Base: lights, Space: SpaceStorage}},
		{"access through pointer", ptrLight, PointerType{Base: mat4, Space: SpaceStorage}},
		{"load", light, MatrixType{Columns: Vec4, Rows: Vec4, Scalar: ScalarF32}},
		{"matrix column pointer", column, ValuePointerType{Size: Vec4, Scalar: ScalarF32, Space: SpaceStorage}},
		{"component pointer", component, ValuePointerType{Scalar: ScalarF32, Space: SpaceStorage}},
		{"mat * vec", mv, VectorType{Size: Vec4, Scalar: ScalarF32}},
		{"vec * mat", vm, VectorType{Size: Vec4, Scalar: ScalarF32}},
		{"vector comparison", less, VectorType{Size: Vec4, Scalar: ScalarBoolType}},
		{"swizzle", xy, VectorType{Size: Vec2, Scalar: ScalarF32}},
		{"scalar * vector", scaled, VectorType{Size: Vec2, Scalar: ScalarF32}},
		{"length", length, ScalarF32},
		{"handle global is the resource", tex, ImageType{Dim: Dim2D, Arrayed: true, Class: ImageClassDepth}},
		{"depth compare", sample, ScalarF32},
		{"image size", size, VectorType{Size: Vec2, Scalar: ScalarU32}},
		{"conversion", asInt, VectorType{Size: Vec4, Scalar: ScalarI32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types[tt.expr].Inner(m)
			if string(appendInnerKey(nil, got)) != string(appendInnerKey(nil, tt.want)) {
				t.Errorf("type = %s, want %s", describe(m, got), describe(m, tt.want))
			}
		})
	}

	// Results that exist in the arena resolve to their handle.
	if h := types[w].Handle; h == nil || *h != f32 {
		t.Errorf("w resolved to %+v, want handle %d", types[w], f32)
	}
	if h := types[xy].Handle; h == nil || *h != vec2 {
		t.Errorf("xy resolved to %+v, want handle %d", types[xy], vec2)
	}
	if types[asInt].Handle != nil {
		t.Error("vec4<i32> resolved to a handle although it was never interned")
	}
}

func TestResolveExpressionType_ForwardReference(t *testing.T) {
	m := &Module{}
	fn := &Function{Expressions: []Expression{
		{Kind: ExprUnary{Op: UnaryNegate, Expr: 1}},
		{Kind: Literal{Value: LiteralF32(1)}},
	}}
	_, err := ResolveExpressionType(m, fn, 0)
	if !IsKind(err, ErrUnresolvedHandle) {
		t.Fatalf("error = %v, want UnresolvedHandle", err)
	}
}

func TestResolveExpressionType_Mismatch(t *testing.T) {
	m := &Module{}
	fn := &Function{Expressions: []Expression{
		{Kind: Literal{Value: LiteralF32(1)}},
		{Kind: ExprSwizzle{Size: Vec2, Vector: 0}},
	}}
	_, err := ResolveExpressionType(m, fn, 1)
	if !IsKind(err, ErrTypeMismatch) {
		t.Fatalf("error = %v, want TypeMismatch", err)
	}
}

func uint8Ptr(v uint8) *uint8 {
	return &v
}
