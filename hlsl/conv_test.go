// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"testing"

	"github.com/gogpu/shadercross/ir"
)

func TestScalarToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		scalar   ir.ScalarType
		expected string
	}{
		// Bool
		{"bool", ir.ScalarType{Kind: ir.ScalarBool, Width: 1}, "bool"},

		// Signed integers
		{"int_1byte", ir.ScalarType{Kind: ir.ScalarSint, Width: 1}, "int"},
		{"int_2bytes", ir.ScalarType{Kind: ir.ScalarSint, Width: 2}, "int"},
		{"int_4bytes", ir.ScalarType{Kind: ir.ScalarSint, Width: 4}, "int"},
		{"int64_t", ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, "int64_t"},

		// Unsigned integers
		{"uint_1byte", ir.ScalarType{Kind: ir.ScalarUint, Width: 1}, "uint"},
		{"uint_2bytes", ir.ScalarType{Kind: ir.ScalarUint, Width: 2}, "uint"},
		{"uint_4bytes", ir.ScalarType{Kind: ir.ScalarUint, Width: 4}, "uint"},
		{"uint64_t", ir.ScalarType{Kind: ir.ScalarUint, Width: 8}, "uint64_t"},

		// Floats
		{"half", ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, "half"},
		{"float", ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}, "float"},
		{"double", ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, "double"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScalarToHLSL(tt.scalar)
			if got != tt.expected {
				t.Errorf("ScalarToHLSL(%+v) = %q, want %q", tt.scalar, got, tt.expected)
			}
		})
	}
}

func TestVectorToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		vector   ir.VectorType
		expected string
	}{
		{"float2", ir.VectorType{Size: 2, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float2"},
		{"float3", ir.VectorType{Size: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float3"},
		{"float4", ir.VectorType{Size: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float4"},
		{"int2", ir.VectorType{Size: 2, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}}, "int2"},
		{"int3", ir.VectorType{Size: 3, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}}, "int3"},
		{"int4", ir.VectorType{Size: 4, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}}, "int4"},
		{"uint2", ir.VectorType{Size: 2, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}}, "uint2"},
		{"uint3", ir.VectorType{Size: 3, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}}, "uint3"},
		{"uint4", ir.VectorType{Size: 4, Scalar: ir.ScalarType{Kind: ir.ScalarUint, Width: 4}}, "uint4"},
		{"bool2", ir.VectorType{Size: 2, Scalar: ir.ScalarType{Kind: ir.ScalarBool, Width: 1}}, "bool2"},
		{"half4", ir.VectorType{Size: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}}, "half4"},
		{"double3", ir.VectorType{Size: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}}, "double3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VectorToHLSL(tt.vector)
			if got != tt.expected {
				t.Errorf("VectorToHLSL(%+v) = %q, want %q", tt.vector, got, tt.expected)
			}
		})
	}
}

func TestMatrixToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		matrix   ir.MatrixType
		expected string
	}{
		{"float2x2", ir.MatrixType{Columns: 2, Rows: 2, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float2x2"},
		{"float3x3", ir.MatrixType{Columns: 3, Rows: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float3x3"},
		{"float4x4", ir.MatrixType{Columns: 4, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float4x4"},
		{"float3x4", ir.MatrixType{Columns: 3, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float3x4"},
		{"float4x3", ir.MatrixType{Columns: 4, Rows: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}}, "float4x3"},
		{"half4x4", ir.MatrixType{Columns: 4, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}}, "half4x4"},
		{"double4x4", ir.MatrixType{Columns: 4, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}}, "double4x4"},
		{"int4x4", ir.MatrixType{Columns: 4, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarSint, Width: 4}}, "int4x4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatrixToHLSL(tt.matrix)
			if got != tt.expected {
				t.Errorf("MatrixToHLSL(%+v) = %q, want %q", tt.matrix, got, tt.expected)
			}
		})
	}
}

func TestScalarCast(t *testing.T) {
	tests := []struct {
		name     string
		kind     ir.ScalarKind
		expected string
	}{
		{"float", ir.ScalarFloat, "asfloat"},
		{"sint", ir.ScalarSint, "asint"},
		{"uint", ir.ScalarUint, "asuint"},
		{"bool", ir.ScalarBool, "asuint"}, // Booleans are stored as uint
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScalarCast(tt.kind)
			if got != tt.expected {
				t.Errorf("ScalarCast(%v) = %q, want %q", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestBuiltInToSemantic(t *testing.T) {
	tests := []struct {
		name     string
		builtin  ir.BuiltinValue
		expected string
	}{
		// Vertex shader
		{"position", ir.BuiltinPosition, "SV_Position"},
		{"vertex_index", ir.BuiltinVertexIndex, "SV_VertexID"},
		{"instance_index", ir.BuiltinInstanceIndex, "SV_InstanceID"},
		// Fragment shader
		{"front_facing", ir.BuiltinFrontFacing, "SV_IsFrontFace"},
		{"frag_depth", ir.BuiltinFragDepth, "SV_Depth"},
		{"sample_index", ir.BuiltinSampleIndex, "SV_SampleIndex"},
		{"sample_mask", ir.BuiltinSampleMask, "SV_Coverage"},
		// Compute shader
		{"global_invocation_id", ir.BuiltinGlobalInvocationID, "SV_DispatchThreadID"},
		{"local_invocation_id", ir.BuiltinLocalInvocationID, "SV_GroupThreadID"},
		{"local_invocation_index", ir.BuiltinLocalInvocationIndex, "SV_GroupIndex"},
		{"workgroup_id", ir.BuiltinWorkGroupID, "SV_GroupID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuiltInToSemantic(tt.builtin)
			if err != nil {
				t.Fatalf("BuiltInToSemantic(%v): %v", tt.builtin, err)
			}
			if got != tt.expected {
				t.Errorf("BuiltInToSemantic(%v) = %q, want %q", tt.builtin, got, tt.expected)
			}
		})
	}

	// The workgroup count has no system value.
	if _, err := BuiltInToSemantic(ir.BuiltinNumWorkGroups); !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("BuiltInToSemantic(num_workgroups) error = %v, want UnsupportedFeature", err)
	}
}

func TestInterpolationToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		kind     ir.InterpolationKind
		expected string
	}{
		{"flat", ir.InterpolationFlat, "nointerpolation"},
		{"linear", ir.InterpolationLinear, "noperspective"},
		{"perspective", ir.InterpolationPerspective, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolationToHLSL(tt.kind)
			if got != tt.expected {
				t.Errorf("InterpolationToHLSL(%v) = %q, want %q", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestSamplingToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		sampling ir.InterpolationSampling
		expected string
	}{
		{"center", ir.SamplingCenter, ""},
		{"centroid", ir.SamplingCentroid, "centroid"},
		{"sample", ir.SamplingSample, "sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SamplingToHLSL(tt.sampling)
			if got != tt.expected {
				t.Errorf("SamplingToHLSL(%v) = %q, want %q", tt.sampling, got, tt.expected)
			}
		})
	}
}

func TestImageDimToHLSL(t *testing.T) {
	tests := []struct {
		dim      ir.ImageDimension
		expected string
	}{
		{ir.Dim1D, "1D"},
		{ir.Dim2D, "2D"},
		{ir.Dim3D, "3D"},
		{ir.DimCube, "Cube"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := ImageDimToHLSL(tt.dim); got != tt.expected {
				t.Errorf("ImageDimToHLSL(%v) = %q, want %q", tt.dim, got, tt.expected)
			}
		})
	}
}

func TestImageToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		img      ir.ImageType
		expected string
	}{
		{
			"Texture2D",
			ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat},
			"Texture2D<float4>",
		},
		{
			"Texture2DArray",
			ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat},
			"Texture2DArray<float4>",
		},
		{
			"Texture3D ignores Arrayed",
			ir.ImageType{Dim: ir.Dim3D, Arrayed: true, Class: ir.ImageClassSampled, SampledKind: ir.ScalarFloat},
			"Texture3D<float4>",
		},
		{
			"TextureCube of uint",
			ir.ImageType{Dim: ir.DimCube, Class: ir.ImageClassSampled, SampledKind: ir.ScalarUint},
			"TextureCube<uint4>",
		},
		{
			"depth array",
			ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Class: ir.ImageClassDepth},
			"Texture2DArray<float>",
		},
		{
			"Texture2DMS",
			ir.ImageType{Dim: ir.Dim2D, Multisampled: true, Class: ir.ImageClassSampled, SampledKind: ir.ScalarSint},
			"Texture2DMS<int4>",
		},
		{
			"RWTexture2D unorm",
			ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage, Format: ir.FormatRgba8Unorm},
			"RWTexture2D<unorm float4>",
		},
		{
			"RWTexture1D r32uint",
			ir.ImageType{Dim: ir.Dim1D, Class: ir.ImageClassStorage, Format: ir.FormatR32Uint},
			"RWTexture1D<uint>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageToHLSL(tt.img); got != tt.expected {
				t.Errorf("ImageToHLSL(%+v) = %q, want %q", tt.img, got, tt.expected)
			}
		})
	}
}

func TestStorageFormats(t *testing.T) {
	tests := []struct {
		format     ir.StorageFormat
		texel      string
		components int
	}{
		{ir.FormatRgba8Unorm, "unorm float4", 4},
		{ir.FormatRgba8Snorm, "snorm float4", 4},
		{ir.FormatRgba16Float, "float4", 4},
		{ir.FormatRgba32Float, "float4", 4},
		{ir.FormatR32Float, "float", 1},
		{ir.FormatR32Uint, "uint", 1},
		{ir.FormatR32Sint, "int", 1},
		{ir.FormatRg32Float, "float2", 2},
		{ir.FormatRgba32Uint, "uint4", 4},
		{ir.FormatRgba32Sint, "int4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.texel, func(t *testing.T) {
			if got := storageTexelType(tt.format); got != tt.texel {
				t.Errorf("storageTexelType(%v) = %q, want %q", tt.format, got, tt.texel)
			}
			if got := formatComponents(tt.format); got != tt.components {
				t.Errorf("formatComponents(%v) = %d, want %d", tt.format, got, tt.components)
			}
		})
	}
}

func TestSamplerToHLSL(t *testing.T) {
	tests := []struct {
		name       string
		comparison bool
		expected   string
	}{
		{"regular", false, "SamplerState"},
		{"comparison", true, "SamplerComparisonState"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SamplerToHLSL(tt.comparison)
			if got != tt.expected {
				t.Errorf("SamplerToHLSL(%v) = %q, want %q", tt.comparison, got, tt.expected)
			}
		})
	}
}

func TestShaderStageToHLSL(t *testing.T) {
	tests := []struct {
		name     string
		stage    ir.ShaderStage
		expected string
	}{
		{"vertex", ir.StageVertex, "vs"},
		{"fragment", ir.StageFragment, "ps"},
		{"compute", ir.StageCompute, "cs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShaderStageToHLSL(tt.stage)
			if got != tt.expected {
				t.Errorf("ShaderStageToHLSL(%v) = %q, want %q", tt.stage, got, tt.expected)
			}
		})
	}
}

// Benchmarks

func BenchmarkScalarToHLSL(b *testing.B) {
	scalars := []ir.ScalarType{
		{Kind: ir.ScalarFloat, Width: 4},
		{Kind: ir.ScalarSint, Width: 4},
		{Kind: ir.ScalarUint, Width: 4},
		{Kind: ir.ScalarBool, Width: 1},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, s := range scalars {
			_ = ScalarToHLSL(s)
		}
	}
}

func BenchmarkBuiltInToSemantic(b *testing.B) {
	builtins := []ir.BuiltinValue{
		ir.BuiltinPosition,
		ir.BuiltinVertexIndex,
		ir.BuiltinFragDepth,
		ir.BuiltinGlobalInvocationID,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, bi := range builtins {
			_, _ = BuiltInToSemantic(bi)
		}
	}
}

func BenchmarkVectorToHLSL(b *testing.B) {
	vectors := []ir.VectorType{
		{Size: 2, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
		{Size: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
		{Size: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, v := range vectors {
			_ = VectorToHLSL(v)
		}
	}
}

func BenchmarkMatrixToHLSL(b *testing.B) {
	matrices := []ir.MatrixType{
		{Columns: 4, Rows: 4, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
		{Columns: 3, Rows: 3, Scalar: ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, m := range matrices {
			_ = MatrixToHLSL(m)
		}
	}
}
