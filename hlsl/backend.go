// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Options configures HLSL code generation.
type Options struct {
	// ShaderModel specifies the target shader model. The zero value is
	// ShaderModel5_0; DefaultOptions picks ShaderModel5_1.
	ShaderModel ShaderModel

	// BindingMap maps source resource bindings to HLSL register targets.
	// If a binding is not found in the map and FakeMissingBindings is false,
	// compilation fails with ir.ErrUnsupportedFeature.
	BindingMap map[ir.ResourceBinding]BindTarget

	// FakeMissingBindings binds resources missing from BindingMap to the
	// register of their binding number in the space of their group.
	FakeMissingBindings bool

	// ZeroInitializeWorkgroupMemory emits code to zero-initialize
	// groupshared variables at the start of compute shaders.
	ZeroInitializeWorkgroupMemory bool

	// PushConstantsTarget is the constant buffer register of the push
	// constant block. Entry points using push constants need it.
	PushConstantsTarget *BindTarget
}

// DefaultOptions returns options targeting Shader Model 5.1 that zero
// workgroup memory. Every resource must be listed in BindingMap.
func DefaultOptions() Options {
	return Options{
		ShaderModel:                   ShaderModel5_1,
		BindingMap:                    make(map[ir.ResourceBinding]BindTarget),
		ZeroInitializeWorkgroupMemory: true,
	}
}

// Output is the result of writing one entry point.
type Output struct {
	// Source is the generated HLSL.
	Source string

	// EntryPoint is the HLSL function name to pass to the compiler.
	EntryPoint string

	// Profile is the compiler target, e.g. "ps_5_1".
	Profile string

	// RegisterBindings maps resource names to their register clause,
	// e.g. "u_texture" -> "register(t0, space0)".
	RegisterBindings map[string]string

	// HelperFunctions lists the generated helper functions in the order
	// they appear in Source.
	HelperFunctions []string
}

// Write translates the single entry point chosen by selection.
// info must come from validating module.
func Write(module *ir.Module, info *ir.ModuleInfo, selection back.EntryPointSelection, options Options) (Output, error) {
	entry, err := selection.Single(module)
	if err != nil {
		return Output{}, fmt.Errorf("hlsl: %w", err)
	}
	w := newWriter(module, info, entry, &options)
	if err := w.writeModule(); err != nil {
		return Output{}, fmt.Errorf("hlsl: %w", err)
	}

	helpers := make([]string, len(w.helpers))
	for i, h := range w.helpers {
		helpers[i] = h.name
	}
	return Output{
		Source:           w.String(),
		EntryPoint:       w.entryName,
		Profile:          options.ShaderModel.Profile(module.EntryPoints[entry].Stage),
		RegisterBindings: w.registers,
		HelperFunctions:  helpers,
	}, nil
}

// Compile validates module and writes the entry point chosen by selection.
func Compile(module *ir.Module, selection back.EntryPointSelection, options Options) (Output, error) {
	info, err := ir.Validate(module)
	if err != nil {
		return Output{}, err
	}
	return Write(module, info, selection, options)
}
