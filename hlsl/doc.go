// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl provides HLSL (High-Level Shading Language) code generation
// from the shadercross intermediate representation.
//
// HLSL is Microsoft's shader language for DirectX and is used extensively
// on Windows platforms. This package generates HLSL source code compatible
// with both legacy FXC (Shader Model 5.x) and modern DXC (Shader Model 6.x)
// compilers.
//
// # Shader Model Support
//
// The package supports Shader Models from 5.0 to 6.7:
//   - SM 5.0-5.1: Legacy FXC compiler, DXBC output
//   - SM 6.0+: Modern DXC compiler, DXIL output
//
// SM 5.0 has no register spaces, so register clauses omit them there.
// 64-bit integers need SM 6.0 and half precision floats need SM 6.2.
//
// # Usage
//
// One call writes one entry point:
//
//	options := hlsl.DefaultOptions()
//	options.ShaderModel = hlsl.ShaderModel6_0
//
//	out, err := hlsl.Compile(module, back.Only(ir.StageFragment, "fs_main"), options)
//	if err != nil {
//	    return err
//	}
//	// compile out.Source with out.Profile and out.EntryPoint
//
// # Register Binding
//
// HLSL uses register-based resource binding with spaces:
//
//	cbuffer : register(b#, space#)  // Constant buffers
//	Texture : register(t#, space#)  // Textures, read-only storage buffers
//	Sampler : register(s#, space#)  // Samplers
//	RWTexture: register(u#, space#) // Storage images, writable buffers
//
// The BindingMap in Options assigns every register. A resource missing
// from the map is an error unless FakeMissingBindings is set, in which
// case it uses its binding number as the register and its group as the
// space. DirectBindings builds those entries for a caller that wants
// them listed explicitly.
//
// # Memory Layout
//
// Uniform blocks are constant buffers. Struct members that the buffer
// packing would place before their offset are preceded by padding
// scalars, and matrices are row_major so each register holds one column.
// Storage buffers are byte address buffers read and written at explicit
// offsets, so their layout matches the IR exactly.
//
// # Helper Functions
//
// Integer division and remainder go through _div and _mod, which divide
// by one instead of zero. Structs and arrays are built by _construct_*
// functions, image queries read _image_dims, and runtime array lengths
// come from _array_length_* functions. Helpers are emitted once, before
// the first function that uses them.
package hlsl
