package spirv

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
)

// spirvInstruction is a decoded instruction; words includes the opcode word.
type spirvInstruction struct {
	opcode OpCode
	words  []uint32
}

func decodeInstructions(t *testing.T, words []uint32) []spirvInstruction {
	t.Helper()
	if len(words) < 5 || words[0] != MagicNumber {
		t.Fatalf("not a SPIR-V module: %d words", len(words))
	}
	var out []spirvInstruction
	for offset := 5; offset < len(words); {
		count := int(words[offset] >> 16)
		if count == 0 || offset+count > len(words) {
			t.Fatalf("bad word count %d at word %d", count, offset)
		}
		out = append(out, spirvInstruction{
			opcode: OpCode(words[offset] & 0xffff),
			words:  words[offset : offset+count],
		})
		offset += count
	}
	return out
}

func compileSample(t *testing.T, name string, options Options) []spirvInstruction {
	t.Helper()
	sample, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("no sample %q", name)
	}
	out, err := Compile(sample.Build(), options)
	if err != nil {
		t.Fatalf("Compile(%s): %v", name, err)
	}
	return decodeInstructions(t, out.Words)
}

func countOpcode(instrs []spirvInstruction, opcode OpCode) int {
	count := 0
	for _, inst := range instrs {
		if inst.opcode == opcode {
			count++
		}
	}
	return count
}

func capabilitiesOf(instrs []spirvInstruction) []Capability {
	var caps []Capability
	for _, inst := range instrs {
		if inst.opcode == OpCapability {
			caps = append(caps, Capability(inst.words[1]))
		}
	}
	return caps
}

// computeModule wraps the code fill adds in a compute entry point.
func computeModule(fill func(m *ir.Module, b *ir.FunctionBuilder)) *ir.Module {
	m := &ir.Module{}
	b := ir.NewFunctionBuilder("main")
	fill(m, b)
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})
	return m
}

func TestCompileSamples(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			out, err := Compile(s.Build(), DefaultOptions())
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			instrs := decodeInstructions(t, out.Words)

			bound := out.Words[3]
			for _, inst := range instrs {
				if inst.opcode == OpLabel && inst.words[1] >= bound {
					t.Errorf("label %%%d is not below the bound %d", inst.words[1], bound)
				}
			}

			module := s.Build()
			if got := countOpcode(instrs, OpEntryPoint); got != len(module.EntryPoints) {
				t.Errorf("%d OpEntryPoint, want %d", got, len(module.EntryPoints))
			}
			// One function per IR function plus one wrapper per entry point.
			want := len(module.Functions) + len(module.EntryPoints)
			if got := countOpcode(instrs, OpFunction); got != want {
				t.Errorf("%d OpFunction, want %d", got, want)
			}
			if countOpcode(instrs, OpFunction) != countOpcode(instrs, OpFunctionEnd) {
				t.Error("unbalanced OpFunction/OpFunctionEnd")
			}
			if !slices.Contains(capabilitiesOf(instrs), CapabilityShader) {
				t.Error("Shader capability missing")
			}
			if _, err := Disassemble(out.Words); err != nil {
				t.Errorf("Disassemble: %v", err)
			}
		})
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	for _, s := range samples.All() {
		first, err := Compile(s.Build(), Options{Version: Version1_3, Debug: true})
		if err != nil {
			t.Fatalf("%s: %v", s.Name, err)
		}
		second, err := Compile(s.Build(), Options{Version: Version1_3, Debug: true})
		if err != nil {
			t.Fatalf("%s: %v", s.Name, err)
		}
		if !slices.Equal(first.Words, second.Words) {
			t.Errorf("%s: output differs between runs", s.Name)
		}
	}
}

func TestLoopStructure(t *testing.T) {
	instrs := compileSample(t, "loop_counter", DefaultOptions())

	type loop struct{ header, merge, continuing uint32 }
	var loops []loop
	var current uint32
	for _, inst := range instrs {
		switch inst.opcode {
		case OpLabel:
			current = inst.words[1]
		case OpLoopMerge:
			loops = append(loops, loop{header: current, merge: inst.words[1], continuing: inst.words[2]})
		}
	}
	if len(loops) != 2 {
		t.Fatalf("%d OpLoopMerge, want 2", len(loops))
	}

	for i, l := range loops {
		terminator := blockTerminator(instrs, l.continuing)
		switch terminator.opcode {
		case OpBranch:
			if terminator.words[1] != l.header {
				t.Errorf("loop %d: continue block branches to %%%d, want header %%%d", i, terminator.words[1], l.header)
			}
		case OpBranchConditional:
			if terminator.words[2] != l.merge || terminator.words[3] != l.header {
				t.Errorf("loop %d: break-if targets %v, want merge %%%d then header %%%d", i, terminator.words[2:4], l.merge, l.header)
			}
		default:
			t.Errorf("loop %d: continue block ends in opcode %d", i, terminator.opcode)
		}
	}

	// The second loop has a break-if and no break statement.
	if blockTerminator(instrs, loops[1].continuing).opcode != OpBranchConditional {
		t.Error("break-if loop does not end its continue block with OpBranchConditional")
	}
}

// blockTerminator returns the last instruction of the block opened by label.
func blockTerminator(instrs []spirvInstruction, label uint32) spirvInstruction {
	in := false
	var last spirvInstruction
	for _, inst := range instrs {
		if inst.opcode == OpLabel {
			if in {
				return last
			}
			in = inst.words[1] == label
			continue
		}
		if in {
			last = inst
		}
	}
	return last
}

func TestSwitchFallThrough(t *testing.T) {
	instrs := compileSample(t, "compute", DefaultOptions())

	var sw spirvInstruction
	for _, inst := range instrs {
		if inst.opcode == OpSwitch {
			sw = inst
		}
	}
	if sw.words == nil {
		t.Fatal("no OpSwitch")
	}
	// selector, default, then three (literal, label) pairs
	if len(sw.words) != 3+6 {
		t.Fatalf("OpSwitch has %d words", len(sw.words))
	}
	case1, case2 := sw.words[6], sw.words[8]
	if term := blockTerminator(instrs, case1); term.opcode != OpBranch || term.words[1] != case2 {
		t.Errorf("fall-through case does not branch to the next case label %%%d", case2)
	}
}

func TestCapabilitiesFromUsage(t *testing.T) {
	quad := capabilitiesOf(compileSample(t, "quad", DefaultOptions()))
	if slices.Contains(quad, CapabilityDerivativeControl) {
		t.Error("plain fwidth requested DerivativeControl")
	}

	m := computeModule(func(m *ir.Module, b *ir.FunctionBuilder) {
		f64 := m.AddType(ir.Type{Inner: ir.ScalarF64})
		f16 := m.AddType(ir.Type{Inner: ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}})
		b.Local("wide", f64, nil)
		b.Local("narrow", f16, nil)
	})
	out, err := Compile(m, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	caps := capabilitiesOf(decodeInstructions(t, out.Words))
	if !slices.Contains(caps, CapabilityFloat64) {
		t.Errorf("capabilities %v lack Float64", caps)
	}
	if !slices.Contains(caps, CapabilityFloat16) {
		t.Errorf("capabilities %v lack Float16", caps)
	}
	if !slices.IsSorted(caps) {
		t.Errorf("capabilities %v are not sorted", caps)
	}
}

func TestBindingMap(t *testing.T) {
	options := DefaultOptions()
	options.BindingMap = map[ir.ResourceBinding]BindingTarget{
		{Group: 0, Binding: 1}: {DescriptorSet: 3, Binding: 7},
	}
	instrs := compileSample(t, "compute", options)

	sets := make(map[uint32]uint32)
	bindings := make(map[uint32]uint32)
	for _, inst := range instrs {
		if inst.opcode != OpDecorate {
			continue
		}
		switch Decoration(inst.words[2]) {
		case DecorationDescriptorSet:
			sets[inst.words[1]] = inst.words[3]
		case DecorationBinding:
			bindings[inst.words[1]] = inst.words[3]
		}
	}
	var moved, kept bool
	for id, set := range sets {
		if set == 3 && bindings[id] == 7 {
			moved = true
		}
		if set == 0 && bindings[id] == 0 {
			kept = true
		}
	}
	if !moved {
		t.Error("(0,1) was not moved to set 3 binding 7")
	}
	if !kept {
		t.Error("unmapped (0,0) lost its IR slot")
	}
}

func TestWrapsNonStructBuffers(t *testing.T) {
	m := computeModule(func(m *ir.Module, b *ir.FunctionBuilder) {
		f32 := m.AddType(ir.Type{Inner: ir.ScalarF32})
		scale := m.AddGlobalVariable(ir.GlobalVariable{
			Name:    "scale",
			Space:   ir.SpaceUniform,
			Type:    f32,
			Binding: &ir.ResourceBinding{Group: 0, Binding: 0},
		})
		local := b.Local("s", f32, nil)
		ptr := b.Expr(ir.ExprGlobalVariable{Variable: scale})
		value := b.Expr(ir.ExprLoad{Pointer: ptr})
		b.Stmt(ir.StmtStore{Pointer: local, Value: value})
	})

	out, err := Compile(m, Options{Version: Version1_3, Debug: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	text, err := Disassemble(out.Words)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{`"scale_block"`, "Block", "OpMemberDecorate", "OpTypeStruct"} {
		if !strings.Contains(text, want) {
			t.Errorf("output lacks %s:\n%s", want, text)
		}
	}
}

func TestDebugNames(t *testing.T) {
	plain := compileSample(t, "shadow", DefaultOptions())
	if n := countOpcode(plain, OpName) + countOpcode(plain, OpMemberName); n != 0 {
		t.Errorf("%d debug names without Debug", n)
	}
	debug := compileSample(t, "shadow", Options{Version: Version1_3, Debug: true})
	if countOpcode(debug, OpName) == 0 || countOpcode(debug, OpMemberName) == 0 {
		t.Error("Debug emitted no names")
	}
}

func TestEntryPointSelection(t *testing.T) {
	module := samples.Shadow()
	info, err := ir.Validate(module)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	out, err := Write(module, info, back.Only(ir.StageFragment, "fs_main"), DefaultOptions())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	instrs := decodeInstructions(t, out.Words)
	if got := countOpcode(instrs, OpEntryPoint); got != 1 {
		t.Errorf("%d OpEntryPoint, want 1", got)
	}
	if countOpcode(instrs, OpExecutionMode) == 0 {
		t.Error("fragment entry point has no OriginUpperLeft")
	}

	_, err = Write(module, info, back.Only(ir.StageCompute, "fs_main"), DefaultOptions())
	if err == nil {
		t.Fatal("selecting a missing entry point succeeded")
	}
	var irErr *ir.Error
	if !errors.As(err, &irErr) {
		t.Errorf("error %v is not an *ir.Error", err)
	}
}

func TestInterfaceListsGlobalsFrom14(t *testing.T) {
	count := func(version Version) int {
		instrs := compileSample(t, "loop_counter", Options{Version: version})
		for _, inst := range instrs {
			if inst.opcode == OpEntryPoint {
				// model, function, "count_loop" (3 words), interfaces...
				return len(inst.words) - 1 - 2 - 3
			}
		}
		t.Fatal("no OpEntryPoint")
		return 0
	}
	if n := count(Version1_3); n != 0 {
		t.Errorf("1.3 interface has %d ids, want 0", n)
	}
	if n := count(Version1_4); n != 2 {
		t.Errorf("1.4 interface has %d ids, want the 2 buffers", n)
	}
}
