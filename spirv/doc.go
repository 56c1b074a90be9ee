// Package spirv generates SPIR-V binaries from validated IR modules.
//
// SPIR-V is the intermediate language Vulkan consumes.
//
// # IR to SPIR-V Backend
//
// Compile validates a module and writes every entry point:
//
//	out, err := spirv.Compile(module, spirv.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.WriteFile("shader.spv", out.Bytes(), 0o644)
//
// Write takes a module that was already validated together with its
// ModuleInfo, and an entry point selection:
//
//	out, err := spirv.Write(module, info, back.Only(ir.StageFragment, "fs_main"), opts)
//
// Every IR function becomes a SPIR-V function. Each selected entry point
// additionally gets a void wrapper that loads stage inputs from Input
// variables, calls the IR function and stores its result to Output
// variables.
//
// Control flow is structured: if and switch open an OpSelectionMerge,
// loops an OpLoopMerge whose continue target holds the continuing block
// and the break-if test.
//
// Uniform, storage and push constant globals whose type is not a struct
// are wrapped in a Block struct with the value as member 0.
//
// Resources keep their IR group and binding unless Options.BindingMap
// moves them. Capabilities are derived from what the module uses.
//
// # Binary Writer
//
// The package also provides a low-level binary writer for constructing
// SPIR-V modules programmatically using ModuleBuilder:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//
//	// Add types
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//
//	// Build binary
//	binary := builder.Build()
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types and constants
//   - Global variables
//   - Functions (code)
//
// ModuleBuilder collects each section separately, so instructions may be
// added in any order.
//
// # Disassembly
//
// Disassemble prints a word stream one instruction per line in the
// syntax of spirv-dis, which is what the golden tests compare.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
