package samples

import "github.com/gogpu/shadercross/ir"

// MaxLights caps the number of lights the shadow sample iterates over.
const MaxLights = 10

// Shadow builds a forward-lit scene with up to MaxLights shadow-casting
// lights. Every light is looked up from a storage buffer and its shadow
// is a comparison sample of one layer of a depth texture array.
//
// Bindings: globals uniform (0,0), entity uniform (1,0), lights storage
// (0,1), shadow depth array (0,2), comparison sampler (0,3).
func Shadow() *ir.Module {
	m := &ir.Module{}
	t := commonTypes(m)

	vec4u := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarU32}})
	globals := m.AddType(ir.Type{Name: "Globals", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "view_proj", Type: t.mat4, Offset: 0},
			{Name: "num_lights", Type: vec4u, Offset: 64},
		},
		Span: 80,
	}})
	entity := m.AddType(ir.Type{Name: "Entity", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "world", Type: t.mat4, Offset: 0},
			{Name: "color", Type: t.vec4f, Offset: 64},
		},
		Span: 80,
	}})
	light := m.AddType(ir.Type{Name: "Light", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "proj", Type: t.mat4, Offset: 0},
			{Name: "pos", Type: t.vec4f, Offset: 64},
			{Name: "color", Type: t.vec4f, Offset: 80},
		},
		Span: 96,
	}})
	lights := m.AddType(ir.Type{Inner: ir.ArrayType{Base: light, Stride: 96}})
	shadowMap := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Class: ir.ImageClassDepth}})
	compare := m.AddType(ir.Type{Inner: ir.SamplerType{Comparison: true}})
	vertexOutput := m.AddType(ir.Type{Name: "VertexOutput", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "proj_position", Type: t.vec4f, Offset: 0, Binding: ir.BuiltinBinding{Builtin: ir.BuiltinPosition}},
			{Name: "world_normal", Type: t.vec3f, Offset: 16, Binding: ir.LocationBinding{Location: 0}},
			{Name: "world_position", Type: t.vec4f, Offset: 32, Binding: ir.LocationBinding{Location: 1}},
		},
		Span: 48,
	}})

	ambientPart := f32Const(m, t.f32, "", 0.05)
	ambient := m.AddConstant(ir.Constant{Name: "c_ambient", Type: t.vec3f, Value: ir.CompositeValue{
		Components: []ir.ConstantHandle{ambientPart, ambientPart, ambientPart},
	}})
	maxLights := u32Const(m, t.u32, "c_max_lights", MaxLights)
	zeroU := u32Const(m, t.u32, "", 0)

	uGlobals := m.AddGlobalVariable(ir.GlobalVariable{Name: "u_globals", Space: ir.SpaceUniform, Type: globals, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}})
	uEntity := m.AddGlobalVariable(ir.GlobalVariable{Name: "u_entity", Space: ir.SpaceUniform, Type: entity, Binding: &ir.ResourceBinding{Group: 1, Binding: 0}})
	sLights := m.AddGlobalVariable(ir.GlobalVariable{Name: "s_lights", Space: ir.SpaceStorage, Access: ir.StorageLoad, Type: lights, Binding: &ir.ResourceBinding{Group: 0, Binding: 1}})
	tShadow := m.AddGlobalVariable(ir.GlobalVariable{Name: "t_shadow", Space: ir.SpaceHandle, Type: shadowMap, Binding: &ir.ResourceBinding{Group: 0, Binding: 2}})
	sShadow := m.AddGlobalVariable(ir.GlobalVariable{Name: "sampler_shadow", Space: ir.SpaceHandle, Type: compare, Binding: &ir.ResourceBinding{Group: 0, Binding: 3}})

	// fn fetch_shadow(light_id: u32, homogeneous_coords: vec4<f32>) -> f32
	b := ir.NewFunctionBuilder("fetch_shadow")
	b.Result(t.f32, nil)
	lightID := b.Arg("light_id", t.u32, nil)
	coords := b.Arg("homogeneous_coords", t.vec4f, nil)
	w := member(b, coords, 3)
	zero := f32Lit(b, 0)
	behind := binary(b, ir.BinaryLessEqual, w, zero)
	b.If(behind, func() {
		one := f32Lit(b, 1)
		b.Return(&one)
	}, nil)
	half := f32Lit(b, 0.5)
	negHalf := f32Lit(b, -0.5)
	flip := b.Expr(ir.ExprCompose{Type: t.vec2f, Components: []ir.ExpressionHandle{half, negHalf}})
	one := f32Lit(b, 1)
	projCorrection := binary(b, ir.BinaryDivide, one, w)
	xy := swizzle(b, coords, ir.Vec2, ir.SwizzleX, ir.SwizzleY)
	flipped := binary(b, ir.BinaryMultiply, xy, flip)
	scaled := binary(b, ir.BinaryMultiply, flipped, projCorrection)
	offset := b.Expr(ir.ExprCompose{Type: t.vec2f, Components: []ir.ExpressionHandle{half, half}})
	lightLocal := binary(b, ir.BinaryAdd, scaled, offset)
	tex := b.Expr(ir.ExprGlobalVariable{Variable: tShadow})
	smp := b.Expr(ir.ExprGlobalVariable{Variable: sShadow})
	layer := b.Expr(ir.ExprAs{Expr: lightID, Kind: ir.ScalarSint, Convert: ptr(uint8(4))})
	z := member(b, coords, 2)
	depthRef := binary(b, ir.BinaryMultiply, z, projCorrection)
	shadow := b.Expr(ir.ExprImageSample{
		Image:      tex,
		Sampler:    smp,
		Coordinate: lightLocal,
		ArrayIndex: &layer,
		Level:      ir.SampleLevelZero{},
		DepthRef:   &depthRef,
	})
	b.Return(&shadow)
	fetchShadow := m.AddFunction(b.Finish())

	// @vertex fn vs_main(@location(0) position: vec4<f32>, @location(1) normal: vec4<f32>) -> VertexOutput
	b = ir.NewFunctionBuilder("vs_main")
	b.Result(vertexOutput, nil)
	position := b.Arg("position", t.vec4f, ir.LocationBinding{Location: 0})
	normal := b.Arg("normal", t.vec4f, ir.LocationBinding{Location: 1})
	entityPtr := b.Expr(ir.ExprGlobalVariable{Variable: uEntity})
	worldPtr := member(b, entityPtr, 0)
	world := load(b, worldPtr)
	worldPos := binary(b, ir.BinaryMultiply, world, position)
	xyz := swizzle(b, normal, ir.Vec3, ir.SwizzleX, ir.SwizzleY, ir.SwizzleZ)
	zeroW := f32Lit(b, 0)
	normal4 := b.Expr(ir.ExprCompose{Type: t.vec4f, Components: []ir.ExpressionHandle{xyz, zeroW}})
	worldNormal4 := binary(b, ir.BinaryMultiply, world, normal4)
	worldNormal := swizzle(b, worldNormal4, ir.Vec3, ir.SwizzleX, ir.SwizzleY, ir.SwizzleZ)
	globalsPtr := b.Expr(ir.ExprGlobalVariable{Variable: uGlobals})
	viewProjPtr := member(b, globalsPtr, 0)
	viewProj := load(b, viewProjPtr)
	projPos := binary(b, ir.BinaryMultiply, viewProj, worldPos)
	out := b.Expr(ir.ExprCompose{Type: vertexOutput, Components: []ir.ExpressionHandle{projPos, worldNormal, worldPos}})
	b.Return(&out)
	vsMain := m.AddFunction(b.Finish())

	// @fragment fn fs_main(in: VertexOutput) -> @location(0) vec4<f32>
	b = ir.NewFunctionBuilder("fs_main")
	b.Result(t.vec4f, ir.LocationBinding{Location: 0})
	in := b.Arg("in", vertexOutput, nil)
	color := b.Local("color", t.vec3f, &ambient)
	i := b.Local("i", t.u32, &zeroU)
	inNormal := member(b, in, 1)
	n := math1(b, ir.MathNormalize, inNormal)
	b.Loop(func() {
		iv := load(b, i)
		gPtr := b.Expr(ir.ExprGlobalVariable{Variable: uGlobals})
		numPtr := member(b, gPtr, 1)
		num := load(b, numPtr)
		numX := member(b, num, 0)
		limitConst := b.Expr(ir.ExprConstant{Constant: maxLights})
		limit := math2(b, ir.MathMin, numX, limitConst)
		done := binary(b, ir.BinaryGreaterEqual, iv, limit)
		b.If(done, func() { b.Stmt(ir.StmtBreak{}) }, nil)

		lightsPtr := b.Expr(ir.ExprGlobalVariable{Variable: sLights})
		iv2 := load(b, i)
		lightPtr := b.Expr(ir.ExprAccess{Base: lightsPtr, Index: iv2})
		l := load(b, lightPtr)
		lightProj := member(b, l, 0)
		inWorldPos := member(b, in, 2)
		lightSpace := binary(b, ir.BinaryMultiply, lightProj, inWorldPos)
		s := b.Call(fetchShadow, iv2, lightSpace)
		lightPos := member(b, l, 1)
		lightPosXYZ := swizzle(b, lightPos, ir.Vec3, ir.SwizzleX, ir.SwizzleY, ir.SwizzleZ)
		worldXYZ := swizzle(b, inWorldPos, ir.Vec3, ir.SwizzleX, ir.SwizzleY, ir.SwizzleZ)
		toLight := binary(b, ir.BinarySubtract, lightPosXYZ, worldXYZ)
		lightDir := math1(b, ir.MathNormalize, toLight)
		zeroF := f32Lit(b, 0)
		nDotL := math2(b, ir.MathDot, n, lightDir)
		diffuse := math2(b, ir.MathMax, zeroF, nDotL)
		c := load(b, color)
		sd := binary(b, ir.BinaryMultiply, s, diffuse)
		lightColor := member(b, l, 2)
		lightRGB := swizzle(b, lightColor, ir.Vec3, ir.SwizzleX, ir.SwizzleY, ir.SwizzleZ)
		contribution := binary(b, ir.BinaryMultiply, sd, lightRGB)
		sum := binary(b, ir.BinaryAdd, c, contribution)
		b.Stmt(ir.StmtStore{Pointer: color, Value: sum})
	}, func() *ir.ExpressionHandle {
		iv := load(b, i)
		oneU := u32Lit(b, 1)
		next := binary(b, ir.BinaryAdd, iv, oneU)
		b.Stmt(ir.StmtStore{Pointer: i, Value: next})
		return nil
	})
	final := load(b, color)
	alpha := f32Lit(b, 1)
	rgba := b.Expr(ir.ExprCompose{Type: t.vec4f, Components: []ir.ExpressionHandle{final, alpha}})
	ePtr := b.Expr(ir.ExprGlobalVariable{Variable: uEntity})
	eColorPtr := member(b, ePtr, 1)
	eColor := load(b, eColorPtr)
	result := binary(b, ir.BinaryMultiply, rgba, eColor)
	b.Return(&result)
	fsMain := m.AddFunction(b.Finish())

	m.AddEntryPoint(ir.EntryPoint{Name: "vs_main", Stage: ir.StageVertex, Function: vsMain})
	m.AddEntryPoint(ir.EntryPoint{Name: "fs_main", Stage: ir.StageFragment, Function: fsMain})
	return m
}
