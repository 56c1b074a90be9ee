package spirv

import (
	"math"

	"fortio.org/safecast"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// NewInstruction builds an instruction from its operand words.
func NewInstruction(opcode OpCode, words ...uint32) Instruction {
	return Instruction{Opcode: opcode, Words: words}
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddWords adds several words to the instruction.
func (b *InstructionBuilder) AddWords(words ...uint32) {
	b.words = append(b.words, words...)
}

// AddString adds a null-terminated UTF-8 string padded to a word boundary.
func (b *InstructionBuilder) AddString(s string) {
	b.words = appendString(b.words, s)
}

func appendString(words []uint32, s string) []uint32 {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	for i := 0; i < len(bytes); i += 4 {
		word := uint32(bytes[i]) |
			uint32(bytes[i+1])<<8 |
			uint32(bytes[i+2])<<16 |
			uint32(bytes[i+3])<<24
		words = append(words, word)
	}
	return words
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

// WordCount is the encoded length of the instruction, opcode word included.
func (i Instruction) WordCount() int {
	return len(i.Words) + 1
}

// Encode encodes the instruction to binary.
func (i Instruction) Encode() []uint32 {
	return i.appendTo(make([]uint32, 0, i.WordCount()))
}

func (i Instruction) appendTo(out []uint32) []uint32 {
	count := safecast.MustConv[uint32](i.WordCount())
	out = append(out, count<<16|uint32(i.Opcode))
	return append(out, i.Words...)
}

// ModuleBuilder builds complete SPIR-V modules.
//
// Instructions are collected per logical-layout section and concatenated
// in section order by Words, so callers may add them in any order.
type ModuleBuilder struct {
	// Header
	version   Version
	generator uint32
	schema    uint32

	// Sections (ordered per SPIR-V spec)
	capabilities   []Instruction
	extensions     []Instruction
	extInstImports []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debugNames     []Instruction // OpName, OpMemberName
	annotations    []Instruction // OpDecorate, OpMemberDecorate
	types          []Instruction // OpType*, OpConstant*
	globalVars     []Instruction // OpVariable (global)
	functions      []Instruction // OpFunction...OpFunctionEnd

	// ID allocation
	nextID uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		nextID:    1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound is one more than the largest ID allocated so far.
func (b *ModuleBuilder) Bound() uint32 {
	return b.nextID
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	b.capabilities = append(b.capabilities, NewInstruction(OpCapability, uint32(capability)))
}

// AddExtension adds an extension.
func (b *ModuleBuilder) AddExtension(name string) {
	builder := NewInstructionBuilder()
	builder.AddString(name)
	b.extensions = append(b.extensions, builder.Build(OpExtension))
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.extInstImports = append(b.extInstImports, builder.Build(OpExtInstImport))
	return id
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	inst := NewInstruction(OpMemoryModel, uint32(addressing), uint32(memory))
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(execModel))
	builder.AddWord(funcID)
	builder.AddString(name)
	builder.AddWords(interfaces...)
	b.entryPoints = append(b.entryPoints, builder.Build(OpEntryPoint))
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ExecutionMode, params ...uint32) {
	words := append([]uint32{entryPoint, uint32(mode)}, params...)
	b.executionModes = append(b.executionModes, NewInstruction(OpExecutionMode, words...))
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpName))
}

// AddMemberName adds a debug member name.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(structID)
	builder.AddWord(member)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpMemberName))
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	words := append([]uint32{id, uint32(decoration)}, params...)
	b.annotations = append(b.annotations, NewInstruction(OpDecorate, words...))
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	words := append([]uint32{structID, member, uint32(decoration)}, params...)
	b.annotations = append(b.annotations, NewInstruction(OpMemberDecorate, words...))
}

// AddType appends a type declaration whose first operand is a freshly
// allocated result ID, and returns that ID.
func (b *ModuleBuilder) AddType(opcode OpCode, operands ...uint32) uint32 {
	id := b.AllocID()
	b.types = append(b.types, NewInstruction(opcode, append([]uint32{id}, operands...)...))
	return id
}

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() uint32 {
	return b.AddType(OpTypeVoid)
}

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() uint32 {
	return b.AddType(OpTypeBool)
}

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) uint32 {
	return b.AddType(OpTypeFloat, width)
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) uint32 {
	var signedness uint32
	if signed {
		signedness = 1
	}
	return b.AddType(OpTypeInt, width, signedness)
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType uint32, count uint32) uint32 {
	return b.AddType(OpTypeVector, componentType, count)
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType uint32, paramTypes ...uint32) uint32 {
	return b.AddType(OpTypeFunction, append([]uint32{returnType}, paramTypes...)...)
}

// AddConstant adds a constant-producing instruction (OpConstant,
// OpConstantComposite, OpConstantTrue, ...) and returns its ID.
func (b *ModuleBuilder) AddConstant(opcode OpCode, typeID uint32, values ...uint32) uint32 {
	id := b.AllocID()
	b.types = append(b.types, NewInstruction(opcode, append([]uint32{typeID, id}, values...)...))
	return id
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID uint32, value float32) uint32 {
	return b.AddConstant(OpConstant, typeID, math.Float32bits(value))
}

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType uint32, storageClass StorageClass, init ...uint32) uint32 {
	id := b.AllocID()
	words := append([]uint32{pointerType, id, uint32(storageClass)}, init...)
	b.globalVars = append(b.globalVars, NewInstruction(OpVariable, words...))
	return id
}

// AddFunction appends the instructions of one complete function, from
// OpFunction to OpFunctionEnd.
func (b *ModuleBuilder) AddFunction(instructions []Instruction) {
	b.functions = append(b.functions, instructions...)
}

// Words generates the final SPIR-V word stream.
func (b *ModuleBuilder) Words() []uint32 {
	sections := [][]Instruction{
		b.capabilities,
		b.extensions,
		b.extInstImports,
		nil,
		b.entryPoints,
		b.executionModes,
		b.debugNames,
		b.annotations,
		b.types,
		b.globalVars,
		b.functions,
	}
	if b.memoryModel != nil {
		sections[3] = []Instruction{*b.memoryModel}
	}

	total := 5
	for _, section := range sections {
		total += countWords(section)
	}

	out := make([]uint32, 0, total)
	out = append(out, MagicNumber, versionToWord(b.version), b.generator, b.Bound(), b.schema)
	for _, section := range sections {
		for _, inst := range section {
			out = inst.appendTo(out)
		}
	}
	return out
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	return wordsToBytes(b.Words())
}

// countWords counts total words in instructions.
func countWords(instructions []Instruction) int {
	count := 0
	for _, inst := range instructions {
		count += inst.WordCount()
	}
	return count
}

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}
