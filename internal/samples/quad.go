package samples

import "github.com/gogpu/shadercross/ir"

// Quad builds a textured quad: a vertex stage that scales positions by a
// named constant and a fragment stage that samples with implicit level of
// detail, discards transparent texels and fades by the uv derivative.
func Quad() *ir.Module {
	m := &ir.Module{}
	t := commonTypes(m)

	vertexOutput := m.AddType(ir.Type{Name: "VertexOutput", Inner: ir.StructType{
		Members: []ir.StructMember{
			{Name: "uv", Type: t.vec2f, Offset: 0, Binding: ir.LocationBinding{Location: 0}},
			{Name: "position", Type: t.vec4f, Offset: 16, Binding: ir.BuiltinBinding{Builtin: ir.BuiltinPosition}},
		},
		Span: 32,
	}})
	texture := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat}})
	sampler := m.AddType(ir.Type{Inner: ir.SamplerType{}})
	scale := f32Const(m, t.f32, "c_scale", 1.2)

	uTexture := m.AddGlobalVariable(ir.GlobalVariable{Name: "u_texture", Space: ir.SpaceHandle, Type: texture, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}})
	uSampler := m.AddGlobalVariable(ir.GlobalVariable{Name: "u_sampler", Space: ir.SpaceHandle, Type: sampler, Binding: &ir.ResourceBinding{Group: 0, Binding: 1}})

	b := ir.NewFunctionBuilder("vert_main")
	b.Result(vertexOutput, nil)
	pos := b.Arg("pos", t.vec2f, ir.LocationBinding{Location: 0})
	uv := b.Arg("uv", t.vec2f, ir.LocationBinding{Location: 1})
	s := b.Expr(ir.ExprConstant{Constant: scale})
	scaled := binary(b, ir.BinaryMultiply, s, pos)
	zero := f32Lit(b, 0)
	one := f32Lit(b, 1)
	clip := b.Expr(ir.ExprCompose{Type: t.vec4f, Components: []ir.ExpressionHandle{scaled, zero, one}})
	out := b.Expr(ir.ExprCompose{Type: vertexOutput, Components: []ir.ExpressionHandle{uv, clip}})
	b.Return(&out)
	vert := m.AddFunction(b.Finish())

	b = ir.NewFunctionBuilder("frag_main")
	b.Result(t.vec4f, ir.LocationBinding{Location: 0})
	fuv := b.Arg("uv", t.vec2f, ir.LocationBinding{Location: 0})
	tex := b.Expr(ir.ExprGlobalVariable{Variable: uTexture})
	smp := b.Expr(ir.ExprGlobalVariable{Variable: uSampler})
	color := b.Expr(ir.ExprImageSample{Image: tex, Sampler: smp, Coordinate: fuv, Level: ir.SampleLevelAuto{}})
	a := member(b, color, 3)
	fzero := f32Lit(b, 0)
	transparent := binary(b, ir.BinaryEqual, a, fzero)
	b.If(transparent, func() { b.Stmt(ir.StmtKill{}) }, nil)
	premultiplied := binary(b, ir.BinaryMultiply, a, color)
	u := member(b, fuv, 0)
	width := b.Expr(ir.ExprDerivative{Axis: ir.DerivativeWidth, Expr: u})
	fone := f32Lit(b, 1)
	fade := binary(b, ir.BinarySubtract, fone, width)
	result := binary(b, ir.BinaryMultiply, premultiplied, fade)
	b.Return(&result)
	frag := m.AddFunction(b.Finish())

	m.AddEntryPoint(ir.EntryPoint{Name: "vert_main", Stage: ir.StageVertex, Function: vert})
	m.AddEntryPoint(ir.EntryPoint{Name: "frag_main", Stage: ir.StageFragment, Function: frag})
	return m
}
