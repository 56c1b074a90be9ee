// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"math"
	"strings"
	"testing"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

func TestScalarLiteral(t *testing.T) {
	tests := []struct {
		name   string
		scalar ir.ScalarType
		bits   uint64
		want   string
	}{
		{"f32 one", ir.ScalarF32, uint64(math.Float32bits(1)), "1.0"},
		{"f32 fraction", ir.ScalarF32, uint64(math.Float32bits(0.25)), "0.25"},
		{"f32 inf", ir.ScalarF32, uint64(math.Float32bits(float32(math.Inf(1)))), "uintBitsToFloat(0x7f800000u)"},
		{"f64 half", ir.ScalarF64, math.Float64bits(0.5), "0.5LF"},
		{"i32", ir.ScalarI32, uint64(uint32(0xfffffffe)), "-2"},
		{"i32 min", ir.ScalarI32, uint64(uint32(0x80000000)), "(-2147483647 - 1)"},
		{"u32", ir.ScalarU32, 7, "7u"},
		{"bool", ir.ScalarBoolType, 1, "true"},
		{"bool false", ir.ScalarBoolType, 0, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scalarLiteral(tt.scalar, tt.bits)
			if err != nil {
				t.Fatalf("scalarLiteral: %v", err)
			}
			if got != tt.want {
				t.Errorf("scalarLiteral() = %q, want %q", got, tt.want)
			}
		})
	}

	for _, s := range []ir.ScalarType{
		{Kind: ir.ScalarFloat, Width: 2},
		{Kind: ir.ScalarSint, Width: 8},
		{Kind: ir.ScalarUint, Width: 8},
	} {
		if _, err := scalarLiteral(s, 0); err == nil || err.Kind != ir.ErrUnsupportedFeature {
			t.Errorf("scalarLiteral(%v) error = %v, want UnsupportedFeature", s, err)
		}
	}
}

func TestDoubleLiteralNaN(t *testing.T) {
	got := doubleLiteral(math.NaN())
	if !strings.HasPrefix(got, "packDouble2x32(uvec2(0x") {
		t.Errorf("doubleLiteral(NaN) = %q", got)
	}
}

// uniformModule builds a compute shader that reads the first member of a
// uniform block with the given members and span.
func uniformModule(span uint32, members func(m *ir.Module, f32 ir.TypeHandle) []ir.StructMember) *ir.Module {
	m := &ir.Module{}
	f32 := m.AddType(ir.Type{Inner: ir.ScalarF32})
	block := m.AddType(ir.Type{Name: "Block", Inner: ir.StructType{Members: members(m, f32), Span: span}})
	g := m.AddGlobalVariable(ir.GlobalVariable{Name: "params", Space: ir.SpaceUniform, Type: block, Binding: &ir.ResourceBinding{Group: 0, Binding: 0}})

	b := ir.NewFunctionBuilder("main")
	local := b.Local("scale", f32, nil)
	base := b.Expr(ir.ExprGlobalVariable{Variable: g})
	field := b.Expr(ir.ExprAccessIndex{Base: base, Index: 0})
	value := b.Expr(ir.ExprLoad{Pointer: field})
	b.Stmt(ir.StmtStore{Pointer: local, Value: value})
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})
	return m
}

func TestUniformBlockPadding(t *testing.T) {
	m := uniformModule(16, func(m *ir.Module, f32 ir.TypeHandle) []ir.StructMember {
		return []ir.StructMember{
			{Name: "scale", Type: f32, Offset: 0},
			{Name: "bias", Type: f32, Offset: 12},
		}
	})
	out, err := Compile(m, back.All(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustContain(t, out.Source,
		"struct Block {",
		"float scale;",
		"uint _pad1_0;",
		"uint _pad1_1;",
		"float bias;",
		"layout(std140, binding = 0) uniform params_block { Block params; };",
		"params.scale",
	)
	if strings.Contains(out.Source, "_pad1_2") {
		t.Errorf("too much padding:\n%s", out.Source)
	}
}

func TestUniformBlockNaturalLayout(t *testing.T) {
	m := uniformModule(32, func(m *ir.Module, f32 ir.TypeHandle) []ir.StructMember {
		vec3 := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarF32}})
		return []ir.StructMember{
			{Name: "scale", Type: f32, Offset: 0},
			{Name: "tint", Type: vec3, Offset: 16},
		}
	})
	out, err := Compile(m, back.All(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Contains(out.Source, "_pad") {
		t.Errorf("padded a member std140 already aligns:\n%s", out.Source)
	}
}

func TestUniformBlockMisplacedMember(t *testing.T) {
	m := uniformModule(8, func(m *ir.Module, f32 ir.TypeHandle) []ir.StructMember {
		inner := m.AddType(ir.Type{Name: "Inner", Inner: ir.StructType{
			Members: []ir.StructMember{{Name: "x", Type: f32, Offset: 0}},
			Span:    4,
		}})
		return []ir.StructMember{
			{Name: "a", Type: f32, Offset: 0},
			{Name: "inner", Type: inner, Offset: 4},
		}
	})
	if _, err := ir.Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	_, err := Compile(m, back.All(), DefaultOptions())
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("struct at offset 4 in a std140 block: %v", err)
	}
}

func TestNamedConstants(t *testing.T) {
	out := compileSample(t, "quad", ir.StageVertex, "vert_main", DefaultOptions())
	mustContain(t, out.Source, "const float c_scale = 1.2;")

	out = compileSample(t, "shadow", ir.StageFragment, "fs_main", DefaultOptions())
	mustContain(t, out.Source,
		"const vec3 c_ambient = vec3(0.05, 0.05, 0.05);",
		"const uint c_max_lights = 10u;",
	)
}
