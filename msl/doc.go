// Package msl implements Metal Shading Language (MSL) code generation.
//
// MSL is Apple's shader language for the Metal graphics API. It is based on C++14
// with extensions for GPU programming, including explicit address spaces, attribute-based
// parameter binding, and a metal:: namespace for standard library functions.
//
// # Usage
//
// One call writes one entry point:
//
//	options := msl.DefaultOptions()
//	options.PerEntryPointMap["fs_main"] = msl.EntryPointResources{...}
//
//	out, err := msl.Compile(module, back.Only(ir.StageFragment, "fs_main"), options)
//	if err != nil {
//	    return err
//	}
//
// SequentialResources builds a binding table that numbers the resources
// an entry point uses from zero.
//
// # Type Mapping
//
//	IR             MSL
//	--             ---
//	bool           bool
//	i32            int
//	u32            uint
//	f32            float
//	vec3<f32>      metal::float3 (metal::packed_float3 in tight structs)
//	mat4x4<f32>    metal::float4x4
//	array<T, N>    struct type_K { T inner[N]; }
//	texture_2d     metal::texture2d<float, metal::access::sample>
//	sampler        metal::sampler
//
// 64-bit floats have no MSL spelling and are rejected.
//
// # Address Spaces
//
//	uniform    -> constant
//	storage    -> device
//	private    -> thread
//	workgroup  -> threadgroup
//	function   -> thread (stack)
//
// # Entry Points
//
// Location inputs are gathered in a [[stage_in]] struct; built-ins and
// resources become parameters. The result is returned through an output
// struct whose members carry [[position]], [[user(locN)]], [[color(N)]]
// and similar attributes.
//
// Functions called by the entry point receive the globals they use as
// extra reference parameters, since MSL has no program-scope resources.
//
// # Helper Functions
//
// Integer division and remainder go through _div and _mod, which
// return the dividend when the divisor is zero. Reading the length of
// a runtime-sized array needs the _mslBufferSizes struct, bound at
// EntryPointResources.SizesBuffer.
package msl
