package spirv

import (
	"encoding/binary"
	"testing"
)

func TestModuleBuilder_MinimalModule(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	// Add basic capability
	builder.AddCapability(CapabilityShader)

	// Set memory model (required)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	// Build the module
	data := builder.Build()

	// Verify header (5 words = 20 bytes)
	if len(data) < 20 {
		t.Fatalf("Module too small: got %d bytes, want at least 20", len(data))
	}

	// Check magic number
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicNumber {
		t.Errorf("Invalid magic number: got 0x%08X, want 0x%08X", magic, MagicNumber)
	}

	// Check version
	version := binary.LittleEndian.Uint32(data[4:8])
	expectedVersion := uint32(1<<16 | 3<<8) // Version 1.3
	if version != expectedVersion {
		t.Errorf("Invalid version: got 0x%08X, want 0x%08X", version, expectedVersion)
	}

	// Check generator
	generator := binary.LittleEndian.Uint32(data[8:12])
	if generator != GeneratorID {
		t.Errorf("Invalid generator: got 0x%08X, want 0x%08X", generator, GeneratorID)
	}

	// Check bound (should be > 0)
	bound := binary.LittleEndian.Uint32(data[12:16])
	if bound == 0 {
		t.Error("Bound should be > 0")
	}

	// Check schema (reserved, must be 0)
	schema := binary.LittleEndian.Uint32(data[16:20])
	if schema != 0 {
		t.Errorf("Schema should be 0, got %d", schema)
	}
}

func TestModuleBuilder_WithTypes(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	builder.AddCapability(CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	voidType := builder.AddTypeVoid()
	floatType := builder.AddTypeFloat(32)
	intType := builder.AddTypeInt(32, true)
	vec4Type := builder.AddTypeVector(floatType, 4)

	ids := []uint32{voidType, floatType, intType, vec4Type}
	seen := make(map[uint32]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("type ID %d allocated twice", id)
		}
		seen[id] = true
	}
	if bound := builder.Bound(); bound != vec4Type+1 {
		t.Errorf("Bound() = %d, want %d", bound, vec4Type+1)
	}
}

func TestModuleBuilder_SectionOrder(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	// Added out of layout order on purpose.
	voidType := builder.AddTypeVoid()
	funcType := builder.AddTypeFunction(voidType)
	funcID := builder.AllocID()
	builder.AddFunction([]Instruction{
		NewInstruction(OpFunction, voidType, funcID, uint32(FunctionControlNone), funcType),
		NewInstruction(OpLabel, builder.AllocID()),
		NewInstruction(OpReturn),
		NewInstruction(OpFunctionEnd),
	})
	builder.AddEntryPoint(ExecutionModelFragment, funcID, "main", nil)
	builder.AddExecutionMode(funcID, ExecutionModeOriginUpperLeft)
	builder.AddName(funcID, "main")
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	builder.AddCapability(CapabilityShader)

	var got []OpCode
	words := builder.Words()
	for offset := 5; offset < len(words); offset += int(words[offset] >> 16) {
		got = append(got, OpCode(words[offset]&0xffff))
	}
	want := []OpCode{
		OpCapability, OpMemoryModel, OpEntryPoint, OpExecutionMode, OpName,
		OpTypeVoid, OpTypeFunction, OpFunction, OpLabel, OpReturn, OpFunctionEnd,
	}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestInstructionBuilder_String(t *testing.T) {
	tests := []struct {
		in    string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"hello", 2},
		{"GLSL.std.450", 4},
	}
	for _, tt := range tests {
		builder := NewInstructionBuilder()
		builder.AddString(tt.in)
		inst := builder.Build(OpName)
		if len(inst.Words) != tt.words {
			t.Errorf("%q encoded to %d words, want %d", tt.in, len(inst.Words), tt.words)
		}
		encoded := inst.Encode()
		if OpCode(encoded[0]&0xffff) != OpName || int(encoded[0]>>16) != tt.words+1 {
			t.Errorf("%q: bad opcode word 0x%08x", tt.in, encoded[0])
		}
	}
}

func TestInstructionBuilder_Float32(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	floatType := builder.AddTypeFloat(32)
	constID := builder.AddConstantFloat32(floatType, 1.0)

	words := builder.Words()
	// header, OpTypeFloat (3 words), OpConstant (4 words)
	constant := words[5+3:]
	if OpCode(constant[0]&0xffff) != OpConstant {
		t.Fatalf("second instruction is opcode %d", constant[0]&0xffff)
	}
	if constant[1] != floatType || constant[2] != constID || constant[3] != 0x3f800000 {
		t.Errorf("OpConstant operands = %v", constant[1:4])
	}
}

func TestModuleBuilder_IDAllocation(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	id1 := builder.AllocID()
	id2 := builder.AllocID()
	id3 := builder.AllocID()

	if id1 >= id2 || id2 >= id3 {
		t.Error("IDs should be strictly increasing")
	}

	if id1 == 0 || id2 == 0 || id3 == 0 {
		t.Error("IDs should never be 0")
	}
}

func TestOutputBytes(t *testing.T) {
	out := Output{Words: []uint32{MagicNumber, 0x00010300}}
	got := out.Bytes()
	want := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x03, 0x01, 0x00}
	if string(got) != string(want) {
		t.Errorf("Bytes() = % x, want % x", got, want)
	}
}
