// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

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
		{"f32 inf", ir.ScalarF32, uint64(math.Float32bits(float32(math.Inf(1)))), "asfloat(0x7f800000u)"},
		{"f64 half", ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, math.Float64bits(0.5), "0.5L"},
		{"i32", ir.ScalarI32, uint64(uint32(0xfffffffe)), "-2"},
		{"i32 min", ir.ScalarI32, uint64(uint32(0x80000000)), "(-2147483647 - 1)"},
		{"u32", ir.ScalarU32, 7, "7u"},
		{"u64", ir.ScalarType{Kind: ir.ScalarUint, Width: 8}, 1 << 40, "1099511627776uL"},
		{"i64", ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, 5, "5L"},
		{"bool", ir.ScalarType{Kind: ir.ScalarBool, Width: 1}, 1, "true"},
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

	if _, err := scalarLiteral(ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, 0); err == nil || err.Kind != ir.ErrUnsupportedFeature {
		t.Errorf("half literal error = %v, want UnsupportedFeature", err)
	}
}

func TestDoubleLiteralNaN(t *testing.T) {
	got := doubleLiteral(math.NaN())
	if !strings.HasPrefix(got, "asdouble(0x") {
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

func TestCBufferPadding(t *testing.T) {
	m := uniformModule(32, func(m *ir.Module, f32 ir.TypeHandle) []ir.StructMember {
		vec3 := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarF32}})
		return []ir.StructMember{
			{Name: "scale", Type: f32, Offset: 0},
			{Name: "tint", Type: vec3, Offset: 16},
		}
	})
	out, err := Compile(m, back.All(), withDirectBindings(t, m, DefaultOptions()))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustContain(t, out.Source,
		"uint _pad1_0;",
		"uint _pad1_2;",
		"float3 tint;",
		"cbuffer params_block : register(b0, space0) {",
		"Block params;",
	)
	if strings.Contains(out.Source, "_pad1_3") {
		t.Errorf("too much padding:\n%s", out.Source)
	}
}

func TestCBufferMisplacedMember(t *testing.T) {
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
	_, err := Compile(m, back.All(), withDirectBindings(t, m, DefaultOptions()))
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("struct packed into a register: %v", err)
	}
}

func TestMatrixMembersAreRowMajor(t *testing.T) {
	out := compileSample(t, "shadow", ir.StageVertex, "vs_main", DefaultOptions())
	mustContain(t, out.Source, "row_major float4x4 view_proj;", "row_major float4x4 world;")
}
