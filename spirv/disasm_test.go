package spirv

import (
	"errors"
	"strings"
	"testing"
)

func TestDisassembleMinimal(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)
	builder.AddCapability(CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	f32 := builder.AddTypeFloat(32)
	builder.AddName(f32, "float")
	builder.AddConstantFloat32(f32, 1.5)

	text, err := DisassembleBytes(builder.Build())
	if err != nil {
		t.Fatalf("DisassembleBytes: %v", err)
	}
	for _, want := range []string{
		"; Version: 1.3",
		"OpCapability Shader",
		"OpMemoryModel Logical GLSL450",
		`OpName %1 "float"`,
		"%1 = OpTypeFloat 32",
		"%2 = OpConstant %1 1069547520", // 1.5 as raw bits
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestDisassembleInvalid(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
	}{
		{"short", []uint32{MagicNumber}},
		{"bad magic", []uint32{0xdeadbeef, 0x00010300, 0, 1, 0}},
		{"zero word count", []uint32{MagicNumber, 0x00010300, 0, 1, 0, 0}},
		{"truncated", []uint32{MagicNumber, 0x00010300, 0, 1, 0, 3<<16 | uint32(OpMemoryModel), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Disassemble(tt.words)
			if !errors.Is(err, ErrInvalidBinary) {
				t.Errorf("err = %v, want ErrInvalidBinary", err)
			}
		})
	}

	if _, err := DisassembleBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidBinary) {
		t.Errorf("odd length: err = %v", err)
	}
}
