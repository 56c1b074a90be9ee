package spirv_test

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/spirv"
)

// ExampleModuleBuilder_minimal demonstrates creating a minimal SPIR-V module.
func ExampleModuleBuilder_minimal() {
	// Create a module builder targeting SPIR-V 1.3
	builder := spirv.NewModuleBuilder(spirv.Version1_3)

	// Add required capability
	builder.AddCapability(spirv.CapabilityShader)

	// Set memory model (required for all modules)
	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	// Build the binary
	binary := builder.Build()

	fmt.Printf("Generated SPIR-V module: %d bytes\n", len(binary))
	// Output: Generated SPIR-V module: 40 bytes
}

// ExampleModuleBuilder_withTypes demonstrates creating types.
func ExampleModuleBuilder_withTypes() {
	builder := spirv.NewModuleBuilder(spirv.Version1_3)
	builder.AddCapability(spirv.CapabilityShader)
	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	// Create basic types
	voidType := builder.AddTypeVoid()
	floatType := builder.AddTypeFloat(32)
	vec4Type := builder.AddTypeVector(floatType, 4)

	// Add debug names
	builder.AddName(floatType, "float")
	builder.AddName(vec4Type, "vec4")

	binary := builder.Build()

	fmt.Printf("void=%d float=%d vec4=%d size=%d\n", voidType, floatType, vec4Type, len(binary))
	// Output: void=1 float=2 vec4=3 size=108
}

// ExampleCompile lowers a module with two entry points.
func ExampleCompile() {
	out, err := spirv.Compile(samples.Quad(), spirv.DefaultOptions())
	if err != nil {
		fmt.Println(err)
		return
	}
	text, err := spirv.Disassemble(out.Words)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(strings.Count(text, "OpEntryPoint"), strings.Contains(text, `"frag_main"`))
	// Output: 2 true
}

// ExampleWrite writes a single entry point of an already validated module.
func ExampleWrite() {
	module := samples.Shadow()
	info, err := ir.Validate(module)
	if err != nil {
		fmt.Println(err)
		return
	}
	out, err := spirv.Write(module, info, back.Only(ir.StageVertex, "vs_main"), spirv.Options{
		Version: spirv.Version1_4,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	text, _ := spirv.Disassemble(out.Words)
	fmt.Println(strings.Count(text, "OpEntryPoint Vertex"), strings.Contains(text, "Fragment"))
	// Output: 1 false
}
