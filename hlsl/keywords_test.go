// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestIsReserved(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		// FXC keywords
		{"fxc_keyword_bool", "bool", true},
		{"fxc_keyword_float", "float", true},
		{"fxc_keyword_struct", "struct", true},
		{"fxc_keyword_cbuffer", "cbuffer", true},
		{"fxc_keyword_texture2d", "Texture2D", true},
		{"fxc_keyword_buffer", "Buffer", true},

		// FXC reserved words
		{"fxc_reserved_auto", "auto", true},
		{"fxc_reserved_class", "class", true},
		{"fxc_reserved_delete", "delete", true},

		// FXC intrinsics
		{"fxc_intrinsic_abs", "abs", true},
		{"fxc_intrinsic_sin", "sin", true},
		{"fxc_intrinsic_cos", "cos", true},
		{"fxc_intrinsic_dot", "dot", true},
		{"fxc_intrinsic_cross", "cross", true},
		{"fxc_intrinsic_lerp", "lerp", true},
		{"fxc_intrinsic_saturate", "saturate", true},

		// DXC keywords
		{"dxc_keyword_constexpr", "constexpr", true},
		{"dxc_keyword_nullptr", "nullptr", true},
		{"dxc_keyword_alignas", "alignas", true},

		// DXC wave operations
		{"dxc_wave_isFirstLane", "WaveIsFirstLane", true},
		{"dxc_wave_getIndex", "WaveGetLaneIndex", true},
		{"dxc_wave_activeSum", "WaveActiveSum", true},

		// DXC ray tracing
		{"dxc_ray_traceRay", "TraceRay", true},
		{"dxc_ray_reportHit", "ReportHit", true},
		{"dxc_ray_worldRayOrigin", "WorldRayOrigin", true},

		// DXC mesh shaders
		{"dxc_mesh_setOutputCounts", "SetMeshOutputCounts", true},
		{"dxc_mesh_dispatchMesh", "DispatchMesh", true},

		// DXC resource types
		{"dxc_resource_rwTexture2dms", "RWTexture2DMS", true},
		{"dxc_resource_feedbackTex", "FeedbackTexture2D", true},
		{"dxc_resource_rayQuery", "RayQuery", true},

		// Semantic names
		{"semantic_position", "SV_Position", true},
		{"semantic_target", "SV_Target", true},
		{"semantic_dispatchThread", "SV_DispatchThreadID", true},

		// Generated helpers
		{"helper_div", "_div", true},
		{"helper_mod", "_mod", true},
		{"helper_image_dims", "_image_dims", true},
		{"helper_construct", "_construct_Light", true},
		{"helper_array_length", "_array_length_data", true},

		// Type shorthands - scalars
		{"type_bool", "bool", true},
		{"type_int", "int", true},
		{"type_uint", "uint", true},
		{"type_float", "float", true},
		{"type_double", "double", true},
		{"type_half", "half", true},

		// Type shorthands - vectors
		{"type_float2", "float2", true},
		{"type_float3", "float3", true},
		{"type_float4", "float4", true},
		{"type_int4", "int4", true},
		{"type_uint3", "uint3", true},
		{"type_bool2", "bool2", true},

		// Type shorthands - matrices
		{"type_float4x4", "float4x4", true},
		{"type_float3x3", "float3x3", true},
		{"type_float2x2", "float2x2", true},
		{"type_int4x4", "int4x4", true},
		{"type_half3x4", "half3x4", true},

		// Non-reserved names
		{"non_reserved_myVar", "myVar", false},
		{"non_reserved_custom", "customFunction", false},
		{"non_reserved_position", "position", false},
		{"non_reserved_color", "color", false},
		{"non_reserved_normal", "normal", false},
		{"non_reserved_underscore", "_myPrivateVar", false},
		{"non_reserved_camelCase", "myShaderVariable", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsReserved(tt.input)
			if got != tt.expected {
				t.Errorf("IsReserved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsReservedFoldsCase(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"ASM", true},
		{"Technique", true},
		{"TEXTURE2D", true},
		{"Float4", true},
		{"CBUFFER", true},
		{"_DIV", true},
		{"_Construct_Foo", true},
		{"MyVariable", false},
		{"_division", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsReserved(tt.input); got != tt.expected {
				t.Errorf("IsReserved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTypeShorthandsGeneration(t *testing.T) {
	// Test that type shorthands are properly generated

	// Vector types for common bases
	vectorTests := []struct {
		base   string
		suffix int
	}{
		{"float", 1}, {"float", 2}, {"float", 3}, {"float", 4},
		{"int", 1}, {"int", 2}, {"int", 3}, {"int", 4},
		{"uint", 1}, {"uint", 2}, {"uint", 3}, {"uint", 4},
		{"bool", 1}, {"bool", 2}, {"bool", 3}, {"bool", 4},
		{"half", 1}, {"half", 2}, {"half", 3}, {"half", 4},
		{"double", 1}, {"double", 2}, {"double", 3}, {"double", 4},
	}

	for _, tt := range vectorTests {
		name := tt.base + string(rune('0'+tt.suffix))
		t.Run("vector_"+name, func(t *testing.T) {
			if !IsReserved(name) {
				t.Errorf("Expected %q to be reserved", name)
			}
		})
	}

	// Matrix types for common bases
	matrixTests := []struct {
		base string
		rows int
		cols int
	}{
		{"float", 2, 2}, {"float", 3, 3}, {"float", 4, 4},
		{"float", 2, 3}, {"float", 3, 4}, {"float", 4, 3},
		{"int", 2, 2}, {"int", 4, 4},
		{"half", 2, 2}, {"half", 4, 4},
	}

	for _, tt := range matrixTests {
		name := tt.base + string(rune('0'+tt.rows)) + "x" + string(rune('0'+tt.cols))
		t.Run("matrix_"+name, func(t *testing.T) {
			if !IsReserved(name) {
				t.Errorf("Expected %q to be reserved", name)
			}
		})
	}
}

func TestReservedKeywordsCoverage(t *testing.T) {
	// Test that the keyword map contains expected categories

	// FXC Keywords samples
	fxcKeywords := []string{
		"AppendStructuredBuffer", "BlendState", "Buffer", "ByteAddressBuffer",
		"cbuffer", "centroid", "column_major", "compile", "ConsumeStructuredBuffer",
		"DepthStencilState", "discard", "DomainShader", "GeometryShader",
		"groupshared", "Hullshader", "InputPatch", "interface", "lineadj",
		"LineStream", "matrix", "nointerpolation", "noperspective",
		"OutputPatch", "packoffset", "pixelfragment", "PixelShader",
		"PointStream", "precise", "RasterizerState", "RenderTargetView",
		"register", "row_major", "RWBuffer", "RWByteAddressBuffer",
		"RWStructuredBuffer", "SamplerState", "SamplerComparisonState",
		"shared", "snorm", "stateblock", "StructuredBuffer", "tbuffer",
		"technique10", "technique11", "texture", "Texture1D", "Texture1DArray",
		"Texture2D", "Texture2DArray", "Texture2DMS", "Texture2DMSArray",
		"Texture3D", "TextureCube", "TextureCubeArray", "triangle",
		"triangleadj", "TriangleStream", "uniform", "unorm", "vector",
		"vertexfragment", "VertexShader", "volatile",
	}

	for _, kw := range fxcKeywords {
		t.Run("fxc_"+kw, func(t *testing.T) {
			if _, ok := reservedKeywords[kw]; !ok {
				t.Errorf("FXC keyword %q not found in reservedKeywords", kw)
			}
		})
	}

	// DXC Wave operations
	waveOps := []string{
		"WaveIsFirstLane", "WaveGetLaneIndex", "WaveGetLaneCount",
		"WaveActiveAnyTrue", "WaveActiveAllTrue", "WaveActiveAllEqual",
		"WaveActiveBallot", "WaveReadLaneAt", "WaveReadLaneFirst",
		"WaveActiveCountBits", "WaveActiveSum", "WaveActiveProduct",
		"WaveActiveBitAnd", "WaveActiveBitOr", "WaveActiveBitXor",
		"WaveActiveMin", "WaveActiveMax", "WavePrefixCountBits",
		"WavePrefixSum", "WavePrefixProduct", "WaveMatch",
		"WaveMultiPrefixBitAnd", "WaveMultiPrefixBitOr",
		"WaveMultiPrefixBitXor", "WaveMultiPrefixCountBits",
		"WaveMultiPrefixProduct", "WaveMultiPrefixSum",
		"QuadReadLaneAt", "QuadReadAcrossX", "QuadReadAcrossY",
		"QuadReadAcrossDiagonal", "QuadAny", "QuadAll",
	}

	for _, op := range waveOps {
		t.Run("wave_"+op, func(t *testing.T) {
			if _, ok := reservedKeywords[op]; !ok {
				t.Errorf("Wave operation %q not found in reservedKeywords", op)
			}
		})
	}

	// Ray tracing intrinsics
	rayOps := []string{
		"TraceRay", "ReportHit", "CallShader", "IgnoreHit",
		"AcceptHitAndEndSearch", "DispatchRaysIndex", "DispatchRaysDimensions",
		"WorldRayOrigin", "WorldRayDirection", "ObjectRayOrigin",
		"ObjectRayDirection", "RayTMin", "RayTCurrent", "PrimitiveIndex",
		"InstanceID", "InstanceIndex", "GeometryIndex", "HitKind",
		"RayFlags", "ObjectToWorld", "WorldToObject",
	}

	for _, op := range rayOps {
		t.Run("ray_"+op, func(t *testing.T) {
			if _, ok := reservedKeywords[op]; !ok {
				t.Errorf("Ray tracing operation %q not found in reservedKeywords", op)
			}
		})
	}
}

func BenchmarkIsReserved(b *testing.B) {
	testCases := []string{
		"float",         // Reserved keyword
		"float4",        // Type shorthand
		"myVariable",    // Not reserved
		"WaveActiveSum", // DXC intrinsic
		"_div",          // Generated helper
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			_ = IsReserved(tc)
		}
	}
}
