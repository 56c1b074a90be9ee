// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shadercross/ir"
)

// ShaderModel represents a DirectX Shader Model version.
// Shader Models define the feature set available for shader compilation.
type ShaderModel uint8

// Supported Shader Model versions.
const (
	// ShaderModel5_0 is the base SM5 version (DirectX 11).
	ShaderModel5_0 ShaderModel = iota

	// ShaderModel5_1 provides register spaces (default).
	ShaderModel5_1

	// ShaderModel6_0 introduces wave intrinsics and DXIL.
	ShaderModel6_0

	// ShaderModel6_1 adds SV_ViewID and barycentrics.
	ShaderModel6_1

	// ShaderModel6_2 adds float16 and denorm control.
	ShaderModel6_2

	// ShaderModel6_3 adds DirectX Raytracing (DXR).
	ShaderModel6_3

	// ShaderModel6_4 adds variable rate shading and library subobjects.
	ShaderModel6_4

	// ShaderModel6_5 adds mesh shaders and sampler feedback.
	ShaderModel6_5

	// ShaderModel6_6 adds 64-bit atomics and dynamic resources.
	ShaderModel6_6

	// ShaderModel6_7 adds advanced mesh shaders and work graphs.
	ShaderModel6_7
)

// String returns a human-readable representation of the shader model.
// Example: "SM 5.1", "SM 6.0"
func (sm ShaderModel) String() string {
	major, minor := sm.version()
	return fmt.Sprintf("SM %d.%d", major, minor)
}

// ProfileSuffix returns the shader profile suffix for this model.
// Example: "5_1", "6_0"
func (sm ShaderModel) ProfileSuffix() string {
	major, minor := sm.version()
	return fmt.Sprintf("%d_%d", major, minor)
}

// Profile returns the target profile for a stage, such as "ps_5_1".
func (sm ShaderModel) Profile(stage ir.ShaderStage) string {
	return ShaderStageToHLSL(stage) + "_" + sm.ProfileSuffix()
}

// ParseShaderModel reads a model written as "5_1", "5.1" or "6_0".
func ParseShaderModel(s string) (ShaderModel, error) {
	for sm := ShaderModel5_0; sm <= ShaderModel6_7; sm++ {
		major, minor := sm.version()
		if s == sm.ProfileSuffix() || s == fmt.Sprintf("%d.%d", major, minor) {
			return sm, nil
		}
	}
	return 0, fmt.Errorf("unknown shader model %q", s)
}

// version returns the major and minor version numbers.
func (sm ShaderModel) version() (major, minor uint8) {
	if sm <= ShaderModel5_1 {
		return 5, uint8(sm)
	}
	if sm > ShaderModel6_7 {
		return 5, 1
	}
	return 6, uint8(sm - ShaderModel6_0)
}

// Major returns the major version number.
func (sm ShaderModel) Major() uint8 {
	major, _ := sm.version()
	return major
}

// Minor returns the minor version number.
func (sm ShaderModel) Minor() uint8 {
	_, minor := sm.version()
	return minor
}

// SupportsDXIL returns true if this shader model uses DXIL output.
// Shader Model 6.0+ uses DXIL (DirectX Intermediate Language).
// Earlier models use DXBC (DirectX Bytecode).
func (sm ShaderModel) SupportsDXIL() bool {
	return sm >= ShaderModel6_0
}

// SupportsRegisterSpaces reports whether register(xN, spaceM) is
// accepted. Shader Model 5.0 binds everything in space 0.
func (sm ShaderModel) SupportsRegisterSpaces() bool {
	return sm >= ShaderModel5_1
}

// SupportsUnboundedArrays reports whether resource arrays may omit their
// size.
func (sm ShaderModel) SupportsUnboundedArrays() bool {
	return sm >= ShaderModel5_1
}

// Supports64BitIntegers reports whether int64_t and uint64_t exist.
func (sm ShaderModel) Supports64BitIntegers() bool {
	return sm >= ShaderModel6_0
}

// SupportsFloat16 returns true if this shader model supports native float16.
// Native 16-bit floats were introduced in Shader Model 6.2.
func (sm ShaderModel) SupportsFloat16() bool {
	return sm >= ShaderModel6_2
}
