// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"testing"

	"github.com/gogpu/shadercross/ir"
)

func TestBindTarget_Zero(t *testing.T) {
	bt := BindTarget{}

	if bt.Space != 0 {
		t.Errorf("Space = %d, want 0", bt.Space)
	}
	if bt.Register != 0 {
		t.Errorf("Register = %d, want 0", bt.Register)
	}
	if bt.BindingArraySize != nil {
		t.Error("BindingArraySize should be nil")
	}
}

func TestBindTarget_WithSpace(t *testing.T) {
	bt := BindTarget{}.WithSpace(5)

	if bt.Space != 5 {
		t.Errorf("Space = %d, want 5", bt.Space)
	}
	if bt.Register != 0 {
		t.Errorf("Register = %d, want 0 (unchanged)", bt.Register)
	}
}

func TestBindTarget_WithRegister(t *testing.T) {
	bt := BindTarget{}.WithRegister(10)

	if bt.Space != 0 {
		t.Errorf("Space = %d, want 0 (unchanged)", bt.Space)
	}
	if bt.Register != 10 {
		t.Errorf("Register = %d, want 10", bt.Register)
	}
}

func TestBindTarget_WithArraySize(t *testing.T) {
	bt := BindTarget{}.WithArraySize(16)

	if bt.BindingArraySize == nil {
		t.Fatal("BindingArraySize should not be nil")
	}
	if *bt.BindingArraySize != 16 {
		t.Errorf("BindingArraySize = %d, want 16", *bt.BindingArraySize)
	}
}

func TestBindTarget_Chaining(t *testing.T) {
	bt := BindTarget{}.
		WithSpace(2).
		WithRegister(5).
		WithArraySize(8)

	if bt.Space != 2 {
		t.Errorf("Space = %d, want 2", bt.Space)
	}
	if bt.Register != 5 {
		t.Errorf("Register = %d, want 5", bt.Register)
	}
	if bt.BindingArraySize == nil || *bt.BindingArraySize != 8 {
		t.Error("BindingArraySize should be 8")
	}
}

func TestRegisterType_String(t *testing.T) {
	tests := []struct {
		rt   RegisterType
		want string
	}{
		{RegisterTypeB, "b"},
		{RegisterTypeT, "t"},
		{RegisterTypeS, "s"},
		{RegisterTypeU, "u"},
		{RegisterType(255), "b"}, // Unknown defaults to b
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.rt.String()
			if got != tt.want {
				t.Errorf("RegisterType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindTarget_Immutability(t *testing.T) {
	// Ensure WithX methods don't modify the original
	original := BindTarget{}
	_ = original.WithSpace(5)

	if original.Space != 0 {
		t.Error("WithSpace should not modify original")
	}

	_ = original.WithRegister(10)
	if original.Register != 0 {
		t.Error("WithRegister should not modify original")
	}

	_ = original.WithArraySize(8)
	if original.BindingArraySize != nil {
		t.Error("WithArraySize should not modify original")
	}
}

func TestRegisterTypeOfGlobal(t *testing.T) {
	m := &ir.Module{}
	u32 := m.AddType(ir.Type{Inner: ir.ScalarU32})
	sampled := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat}})
	storage := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage, Format: ir.FormatR32Float}})
	sampler := m.AddType(ir.Type{Inner: ir.SamplerType{}})
	samplers := m.AddType(ir.Type{Inner: ir.BindingArrayType{Base: sampler}})

	tests := []struct {
		name   string
		global ir.GlobalVariable
		want   RegisterType
	}{
		{"uniform", ir.GlobalVariable{Space: ir.SpaceUniform, Type: u32}, RegisterTypeB},
		{"push constant", ir.GlobalVariable{Space: ir.SpacePushConstant, Type: u32}, RegisterTypeB},
		{"read-only storage", ir.GlobalVariable{Space: ir.SpaceStorage, Access: ir.StorageLoad, Type: u32}, RegisterTypeT},
		{"writable storage", ir.GlobalVariable{Space: ir.SpaceStorage, Access: ir.StorageLoad | ir.StorageStore, Type: u32}, RegisterTypeU},
		{"sampled image", ir.GlobalVariable{Space: ir.SpaceHandle, Type: sampled}, RegisterTypeT},
		{"storage image", ir.GlobalVariable{Space: ir.SpaceHandle, Type: storage}, RegisterTypeU},
		{"sampler", ir.GlobalVariable{Space: ir.SpaceHandle, Type: sampler}, RegisterTypeS},
		{"sampler array", ir.GlobalVariable{Space: ir.SpaceHandle, Type: samplers}, RegisterTypeS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registerType(m, &tt.global); got != tt.want {
				t.Errorf("registerType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatRegister(t *testing.T) {
	target := BindTarget{Space: 2, Register: 7}
	tests := []struct {
		rt    RegisterType
		model ShaderModel
		want  string
	}{
		{RegisterTypeT, ShaderModel5_0, " : register(t7)"},
		{RegisterTypeT, ShaderModel5_1, " : register(t7, space2)"},
		{RegisterTypeU, ShaderModel6_0, " : register(u7, space2)"},
		{RegisterTypeB, ShaderModel6_6, " : register(b7, space2)"},
	}

	for _, tt := range tests {
		t.Run(tt.model.String()+"/"+tt.rt.String(), func(t *testing.T) {
			if got := formatRegister(tt.rt, target, tt.model); got != tt.want {
				t.Errorf("formatRegister() = %q, want %q", got, tt.want)
			}
		})
	}
}
