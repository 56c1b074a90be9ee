// Package samples builds IR modules that exercise every backend feature.
// They stand in for front-end output in tests and in the CLI's sample
// command.
package samples

import (
	"math"
	"sort"

	"github.com/gogpu/shadercross/ir"
)

// Sample is a named module constructor.
type Sample struct {
	Name  string
	Build func() *ir.Module
}

var registry = []Sample{
	{Name: "compute", Build: Compute},
	{Name: "loop_counter", Build: LoopCounter},
	{Name: "quad", Build: Quad},
	{Name: "shadow", Build: Shadow},
}

// All returns the samples sorted by name.
func All() []Sample {
	out := append([]Sample(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a sample by name.
func Lookup(name string) (Sample, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

// types caches the handles every sample needs.
type types struct {
	f32, u32, i32, boolean ir.TypeHandle
	vec2f, vec3f, vec4f    ir.TypeHandle
	vec2i, vec3u, mat4     ir.TypeHandle
}

func commonTypes(m *ir.Module) types {
	return types{
		f32:     m.AddType(ir.Type{Inner: ir.ScalarF32}),
		u32:     m.AddType(ir.Type{Inner: ir.ScalarU32}),
		i32:     m.AddType(ir.Type{Inner: ir.ScalarI32}),
		boolean: m.AddType(ir.Type{Inner: ir.ScalarBoolType}),
		vec2f:   m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarF32}}),
		vec3f:   m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarF32}}),
		vec4f:   m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarF32}}),
		vec2i:   m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarI32}}),
		vec3u:   m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarU32}}),
		mat4:    m.AddType(ir.Type{Inner: ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec4, Scalar: ir.ScalarF32}}),
	}
}

func f32Const(m *ir.Module, ty ir.TypeHandle, name string, v float32) ir.ConstantHandle {
	return m.AddConstant(ir.Constant{Name: name, Type: ty, Value: ir.ScalarValue{Bits: uint64(math.Float32bits(v)), Kind: ir.ScalarFloat}})
}

func u32Const(m *ir.Module, ty ir.TypeHandle, name string, v uint32) ir.ConstantHandle {
	return m.AddConstant(ir.Constant{Name: name, Type: ty, Value: ir.ScalarValue{Bits: uint64(v), Kind: ir.ScalarUint}})
}

func f32Lit(b *ir.FunctionBuilder, v float32) ir.ExpressionHandle {
	return b.Expr(ir.Literal{Value: ir.LiteralF32(v)})
}

func u32Lit(b *ir.FunctionBuilder, v uint32) ir.ExpressionHandle {
	return b.Expr(ir.Literal{Value: ir.LiteralU32(v)})
}

func swizzle(b *ir.FunctionBuilder, v ir.ExpressionHandle, size ir.VectorSize, comps ...ir.SwizzleComponent) ir.ExpressionHandle {
	var pattern [4]ir.SwizzleComponent
	copy(pattern[:], comps)
	return b.Expr(ir.ExprSwizzle{Size: size, Vector: v, Pattern: pattern})
}

func load(b *ir.FunctionBuilder, ptr ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Expr(ir.ExprLoad{Pointer: ptr})
}

func binary(b *ir.FunctionBuilder, op ir.BinaryOperator, l, r ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Expr(ir.ExprBinary{Op: op, Left: l, Right: r})
}

func math1(b *ir.FunctionBuilder, fun ir.MathFunction, arg ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Expr(ir.ExprMath{Fun: fun, Arg: arg})
}

func math2(b *ir.FunctionBuilder, fun ir.MathFunction, arg, arg1 ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Expr(ir.ExprMath{Fun: fun, Arg: arg, Arg1: &arg1})
}

func member(b *ir.FunctionBuilder, base ir.ExpressionHandle, index uint32) ir.ExpressionHandle {
	return b.Expr(ir.ExprAccessIndex{Base: base, Index: index})
}

func ptr[T any](v T) *T {
	return &v
}
