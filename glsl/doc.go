// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl provides a GLSL (OpenGL Shading Language) backend for
// the shadercross intermediate representation.
//
// It supports multiple GLSL versions for different target platforms:
//
//   - GLSL ES 3.00: WebGL 2.0, Mobile OpenGL ES 3.0
//   - GLSL 3.30 Core: Desktop OpenGL 3.3+
//   - GLSL ES 3.10: Android 5.0+ with compute shaders
//   - GLSL 4.30 Core: Desktop OpenGL 4.3+ with compute shaders
//
// Features a version lacks either pull in the extension that provides
// them, listed as #extension directives and in Output.Extensions, or
// fail with ir.ErrUnsupportedFeature: compute below 4.30 and 3.10 es,
// storage images below 4.20 and 3.10 es, cube array shadow samplers on
// ES.
//
// # Basic Usage
//
// GLSL has one entry point per shader, always called main:
//
//	options := glsl.DefaultOptions()
//	options.LangVersion = glsl.VersionES300
//
//	out, err := glsl.Compile(module, back.Only(ir.StageFragment, "fs_main"), options)
//
// # Texture/Sampler Handling
//
// The IR separates textures and samplers, but OpenGL combines them.
// Every (texture, sampler) pair the entry point samples with becomes one
// combined sampler uniform, shared by all call sites that use the pair.
// Textures that are only fetched or queried get a combined sampler of
// their own. Output.TextureSamplerPairs tells the application which
// texture and sampler state to bind to each texture unit.
//
// With Options.SeparateSamplers the output is Vulkan GLSL instead:
// textures and samplers stay separate and are combined at each use.
//
// # Bindings
//
// Uniform blocks, storage blocks, texture units and image units are
// separate namespaces. Resources in Options.BindingMap take their
// mapped slot; the others take the lowest free slot of their namespace
// in (group, binding) order.
//
// # Stage Interface
//
// Location inputs and outputs become in and out globals named after the
// stages they connect (_p2vs_location0, _vs2fs_location0,
// _fs2p_location0), so the vertex and fragment outputs of one module
// match without separate shader objects.
//
// # Reserved Words
//
// GLSL has over 500 reserved words (including future reserved).
// The backend automatically escapes conflicting identifier names
// by prefixing them with an underscore.
package glsl
