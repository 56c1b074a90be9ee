// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/gogpu/shadercross/ir"
)

// BindTarget specifies the HLSL register binding for a resource.
// HLSL uses register(x#, space#) syntax for resource binding.
type BindTarget struct {
	// Space is the register space (0-based).
	// Spaces allow multiple resources to use the same register index.
	Space uint8

	// Register is the register index within the space.
	Register uint32

	// BindingArraySize overrides the declared size of a binding array.
	// If nil, the size comes from the IR type.
	BindingArraySize *uint32
}

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for textures and shader resource views.
	RegisterTypeT

	// RegisterTypeS is for samplers.
	RegisterTypeS

	// RegisterTypeU is for unordered access views (UAV).
	RegisterTypeU
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	case RegisterTypeU:
		return "u"
	default:
		return "b"
	}
}

// WithSpace returns a copy of the BindTarget with the specified space.
func (bt BindTarget) WithSpace(space uint8) BindTarget {
	bt.Space = space
	return bt
}

// WithRegister returns a copy of the BindTarget with the specified register.
func (bt BindTarget) WithRegister(register uint32) BindTarget {
	bt.Register = register
	return bt
}

// WithArraySize returns a copy of the BindTarget with the specified array size.
func (bt BindTarget) WithArraySize(size uint32) BindTarget {
	bt.BindingArraySize = &size
	return bt
}

// registerType picks the register class a global binds to. Read-only
// storage buffers are shader resource views; writable ones and storage
// images are unordered access views.
func registerType(module *ir.Module, global *ir.GlobalVariable) RegisterType {
	switch global.Space {
	case ir.SpaceUniform, ir.SpacePushConstant:
		return RegisterTypeB
	case ir.SpaceStorage:
		if global.Access == ir.StorageLoad {
			return RegisterTypeT
		}
		return RegisterTypeU
	}
	inner := module.Types[global.Type].Inner
	if ba, ok := inner.(ir.BindingArrayType); ok {
		inner = module.Types[ba.Base].Inner
	}
	switch t := inner.(type) {
	case ir.SamplerType:
		return RegisterTypeS
	case ir.ImageType:
		if t.Class == ir.ImageClassStorage {
			return RegisterTypeU
		}
	}
	return RegisterTypeT
}

// formatRegister spells the register clause. Shader Model 5.0 has no
// spaces, so the space part is omitted there.
func formatRegister(rt RegisterType, target BindTarget, model ShaderModel) string {
	if !model.SupportsRegisterSpaces() {
		return fmt.Sprintf(" : register(%s%d)", rt, target.Register)
	}
	return fmt.Sprintf(" : register(%s%d, space%d)", rt, target.Register, target.Space)
}

// DirectBindings returns the register of every bound resource of module
// that is missing from existing: its binding number in the space of its
// group.
func DirectBindings(module *ir.Module, existing map[ir.ResourceBinding]BindTarget) (map[ir.ResourceBinding]BindTarget, error) {
	out := make(map[ir.ResourceBinding]BindTarget)
	for i, global := range module.GlobalVariables {
		if global.Binding == nil {
			continue
		}
		if _, ok := existing[*global.Binding]; ok {
			continue
		}
		target, err := directTarget(*global.Binding)
		if err != nil {
			return nil, err.WithGlobal(ir.GlobalVariableHandle(i)) //nolint:gosec // G115: arena index
		}
		out[*global.Binding] = target
	}
	return out, nil
}

func directTarget(rb ir.ResourceBinding) (BindTarget, *ir.Error) {
	space, err := safecast.Conv[uint8](rb.Group)
	if err != nil {
		return BindTarget{}, ir.Errorf(ir.ErrUnsupportedFeature, "group %d does not fit a register space", rb.Group)
	}
	return BindTarget{Space: space, Register: rb.Binding}, nil
}
