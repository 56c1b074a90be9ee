// Package ir defines the intermediate representation shared by every
// shadercross backend.
//
// The IR is designed to be:
//   - Shader-agnostic: Not tied to any specific shading language
//   - Complete: Can represent all features needed for modern shaders
//   - Read-only after validation: backends never allocate handles
//
// # Structure
//
// The IR is organized around a Module type that contains:
//   - Types: All type definitions, interned by structure
//   - Constants: Module-scope constant values, interned by value
//   - GlobalVariables: Module-scope variables (uniforms, storage, etc.)
//   - Functions: All function definitions
//   - EntryPoints: Shader entry points with stage information
//
// Entities are stored in arenas and referenced by integer handles.
// Each function owns an expression arena in topological order and a
// body of structured statements; loops carry an explicit continuing
// block and optional break-if condition instead of raw branches.
//
// # Validation
//
// A Module must pass Validate before a backend reads it. Validation runs
// five ordered phases:
//
//  1. Type well-formedness (sizes, offsets, handle ranges)
//  2. Expression typing
//  3. Control-flow well-formedness
//  4. Resource binding uniqueness
//  5. Entry-point capability checks
//
// The first failure stops validation and is reported as an *Error whose
// Kind classifies it and whose Site locates it. On success Validate
// returns a ModuleInfo with inferred expression types, reference counts,
// memory layouts and per-function global usage.
//
// # Translation Pipeline
//
//	Front-end → IR → Validate → Target (SPIR-V/MSL/HLSL/GLSL)
//
// # References
//
// This IR design is inspired by:
//   - naga (Rust): https://github.com/gfx-rs/naga
//   - SPIR-V specification: https://www.khronos.org/registry/SPIR-V/
package ir
