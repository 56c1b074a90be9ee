// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shadercross/ir"
)

// HLSL type name constants.
const (
	hlslInt     = "int"
	hlslTexture = "Texture"
)

// ScalarToHLSL returns the HLSL type name for a scalar type.
// Ref: https://docs.microsoft.com/en-us/windows/win32/direct3dhlsl/dx-graphics-hlsl-scalar
func ScalarToHLSL(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarSint:
		if s.Width == 8 {
			return "int64_t"
		}
		return hlslInt
	case ir.ScalarUint:
		if s.Width == 8 {
			return "uint64_t"
		}
		return "uint"
	case ir.ScalarFloat:
		switch s.Width {
		case 2:
			return "half"
		case 8:
			return "double"
		default:
			return "float"
		}
	default:
		return hlslInt
	}
}

// VectorToHLSL returns the HLSL type name for a vector type.
// HLSL uses TypeN syntax (e.g., float4, int3).
func VectorToHLSL(v ir.VectorType) string {
	return fmt.Sprintf("%s%d", ScalarToHLSL(v.Scalar), v.Size)
}

// MatrixToHLSL returns the HLSL type name for a matrix type.
// The HLSL row count is the IR column count, so m[i] is column i of the
// IR matrix and multiplications swap their operands.
func MatrixToHLSL(m ir.MatrixType) string {
	return fmt.Sprintf("%s%dx%d", ScalarToHLSL(m.Scalar), m.Columns, m.Rows)
}

// ScalarCast returns the HLSL cast function for a scalar kind.
// Used for reinterpreting bits (asfloat, asint, asuint).
func ScalarCast(k ir.ScalarKind) string {
	switch k {
	case ir.ScalarFloat:
		return "asfloat"
	case ir.ScalarSint:
		return "asint"
	default:
		return "asuint"
	}
}

// BuiltInToSemantic returns the HLSL semantic for a built-in value.
// Ref: https://docs.microsoft.com/en-us/windows/win32/direct3dhlsl/dx-graphics-hlsl-semantics
func BuiltInToSemantic(b ir.BuiltinValue) (string, error) {
	switch b {
	case ir.BuiltinPosition:
		return "SV_Position", nil
	case ir.BuiltinVertexIndex:
		return "SV_VertexID", nil
	case ir.BuiltinInstanceIndex:
		return "SV_InstanceID", nil
	case ir.BuiltinFrontFacing:
		return "SV_IsFrontFace", nil
	case ir.BuiltinFragDepth:
		return "SV_Depth", nil
	case ir.BuiltinSampleIndex:
		return "SV_SampleIndex", nil
	case ir.BuiltinSampleMask:
		return "SV_Coverage", nil
	case ir.BuiltinGlobalInvocationID:
		return "SV_DispatchThreadID", nil
	case ir.BuiltinLocalInvocationID:
		return "SV_GroupThreadID", nil
	case ir.BuiltinLocalInvocationIndex:
		return "SV_GroupIndex", nil
	case ir.BuiltinWorkGroupID:
		return "SV_GroupID", nil
	}
	return "", ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s has no HLSL semantic", b)
}

// InterpolationToHLSL returns the HLSL interpolation modifier.
// Returns empty string for the default perspective interpolation.
func InterpolationToHLSL(k ir.InterpolationKind) string {
	switch k {
	case ir.InterpolationFlat:
		return "nointerpolation"
	case ir.InterpolationLinear:
		return "noperspective"
	default:
		return ""
	}
}

// SamplingToHLSL returns the HLSL auxiliary sampling qualifier.
// Returns empty string for default center sampling.
func SamplingToHLSL(s ir.InterpolationSampling) string {
	switch s {
	case ir.SamplingCentroid:
		return "centroid"
	case ir.SamplingSample:
		return "sample"
	default:
		return ""
	}
}

// ImageDimToHLSL returns the HLSL texture dimension suffix.
func ImageDimToHLSL(dim ir.ImageDimension) string {
	switch dim {
	case ir.Dim1D:
		return "1D"
	case ir.Dim3D:
		return "3D"
	case ir.DimCube:
		return "Cube"
	default:
		return "2D"
	}
}

// ImageToHLSL returns the full HLSL texture type name, including the
// texel type template argument.
func ImageToHLSL(img ir.ImageType) string {
	prefix := hlslTexture
	if img.Class == ir.ImageClassStorage {
		prefix = "RW" + hlslTexture
	}
	name := prefix + ImageDimToHLSL(img.Dim)
	if img.Multisampled {
		name += "MS"
	}
	if img.Arrayed && img.Dim != ir.Dim3D {
		name += "Array"
	}
	return fmt.Sprintf("%s<%s>", name, texelType(img))
}

// texelType is the template argument of a texture type.
func texelType(img ir.ImageType) string {
	switch img.Class {
	case ir.ImageClassDepth:
		return "float"
	case ir.ImageClassStorage:
		return storageTexelType(img.Format)
	default:
		return VectorToHLSL(ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarType{Kind: img.SampledKind, Width: 4}})
	}
}

// storageTexelType spells a storage format as an RWTexture element.
func storageTexelType(f ir.StorageFormat) string {
	switch f {
	case ir.FormatRgba8Unorm:
		return "unorm float4"
	case ir.FormatRgba8Snorm:
		return "snorm float4"
	case ir.FormatR32Float:
		return "float"
	case ir.FormatR32Uint:
		return "uint"
	case ir.FormatR32Sint:
		return hlslInt
	case ir.FormatRg32Float:
		return "float2"
	case ir.FormatRgba32Uint:
		return "uint4"
	case ir.FormatRgba32Sint:
		return "int4"
	default:
		return "float4"
	}
}

// formatComponents is the number of channels a storage format holds.
func formatComponents(f ir.StorageFormat) int {
	switch f {
	case ir.FormatR32Float, ir.FormatR32Uint, ir.FormatR32Sint:
		return 1
	case ir.FormatRg32Float:
		return 2
	default:
		return 4
	}
}

// SamplerToHLSL returns the HLSL sampler type name.
func SamplerToHLSL(comparison bool) string {
	if comparison {
		return "SamplerComparisonState"
	}
	return "SamplerState"
}

// ShaderStageToHLSL returns the HLSL profile prefix for a shader stage.
func ShaderStageToHLSL(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageFragment:
		return "ps"
	case ir.StageCompute:
		return "cs"
	default:
		return "vs"
	}
}
