package spirv

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Backend translates IR to SPIR-V.
//
// A Backend writes one module; create a new one per Write call.
type Backend struct {
	options Options
	module  *ir.Module
	info    *ir.ModuleInfo
	builder *ModuleBuilder

	// typeIDs and constantIDs cache arena entries by handle; lookup dedups
	// everything else by opcode and operands.
	typeIDs     []uint32
	constantIDs []uint32
	lookup      map[string]uint32

	globals     []globalVariable
	functionIDs []uint32

	capabilities map[Capability]bool
	extensions   map[string]bool
	blocks       map[uint32]bool

	// GLSL.std.450 import ID (for math functions)
	glslExtID uint32
	voidType  uint32
}

// globalVariable is how an IR global is reached in SPIR-V.
type globalVariable struct {
	id uint32

	// wrapped globals are Block structs holding the IR value as member 0.
	wrapped bool
}

// NewBackend creates a new SPIR-V backend.
func NewBackend(options Options) *Backend {
	return &Backend{
		options:      options,
		lookup:       make(map[string]uint32),
		capabilities: make(map[Capability]bool),
		extensions:   make(map[string]bool),
		blocks:       make(map[uint32]bool),
	}
}

// Write lowers a validated module, writing an OpEntryPoint for every
// selected entry point. info must come from validating module.
func Write(module *ir.Module, info *ir.ModuleInfo, selection back.EntryPointSelection, options Options) (Output, error) {
	return NewBackend(options).Write(module, info, selection)
}

// Compile validates module and writes all of its entry points.
func Compile(module *ir.Module, options Options) (Output, error) {
	info, err := ir.Validate(module)
	if err != nil {
		return Output{}, err
	}
	return Write(module, info, back.All(), options)
}

// Write lowers module. It returns no output on error.
func (b *Backend) Write(module *ir.Module, info *ir.ModuleInfo, selection back.EntryPointSelection) (Output, error) {
	entries, err := selection.Resolve(module)
	if err != nil {
		return Output{}, fmt.Errorf("spirv: %w", err)
	}

	b.module = module
	b.info = info
	b.builder = NewModuleBuilder(b.options.Version)
	b.typeIDs = make([]uint32, len(module.Types))
	b.constantIDs = make([]uint32, len(module.Constants))
	b.functionIDs = make([]uint32, len(module.Functions))

	b.glslExtID = b.builder.AddExtInstImport("GLSL.std.450")
	b.builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	b.voidType = b.builder.AddTypeVoid()

	if err := b.emitTypes(); err != nil {
		return Output{}, fmt.Errorf("spirv: %w", err)
	}
	for h := range module.Constants {
		b.constantID(ir.ConstantHandle(h)) //nolint:gosec // G115: arena index
	}
	b.emitGlobals()

	// Function IDs are allocated up front so calls can refer to callees
	// written later.
	for h := range module.Functions {
		b.functionIDs[h] = b.builder.AllocID()
	}
	for h := range module.Functions {
		if err := b.emitFunction(ir.FunctionHandle(h)); err != nil { //nolint:gosec // G115: arena index
			return Output{}, fmt.Errorf("spirv: %w", err)
		}
	}
	for _, index := range entries {
		if err := b.emitEntryPoint(index); err != nil {
			return Output{}, fmt.Errorf("spirv: %w", err)
		}
	}

	b.emitCapabilities()
	return Output{Words: b.builder.Words()}, nil
}

// emitCapabilities adds the capabilities and extensions collected while
// writing, in numeric and lexical order.
func (b *Backend) emitCapabilities() {
	b.capabilities[CapabilityShader] = true
	for _, c := range b.options.Capabilities {
		b.capabilities[c] = true
	}
	caps := make([]Capability, 0, len(b.capabilities))
	for c := range b.capabilities {
		caps = append(caps, c)
	}
	slices.Sort(caps)
	for _, c := range caps {
		b.builder.AddCapability(c)
	}

	exts := make([]string, 0, len(b.extensions))
	for e := range b.extensions {
		exts = append(exts, e)
	}
	slices.Sort(exts)
	for _, e := range exts {
		b.builder.AddExtension(e)
	}
}

func (b *Backend) require(c Capability) {
	b.capabilities[c] = true
}

// name adds a debug name when debug output is on.
func (b *Backend) name(id uint32, name string) {
	if b.options.Debug && name != "" {
		b.builder.AddName(id, name)
	}
}

func lookupKey(opcode OpCode, operands []uint32) string {
	key := make([]byte, 0, 4*(len(operands)+1))
	key = binary.LittleEndian.AppendUint32(key, uint32(opcode))
	for _, w := range operands {
		key = binary.LittleEndian.AppendUint32(key, w)
	}
	return string(key)
}

// dedupType returns the ID of the type declared by opcode and operands,
// declaring it on first use.
func (b *Backend) dedupType(opcode OpCode, operands ...uint32) uint32 {
	key := lookupKey(opcode, operands)
	if id, ok := b.lookup[key]; ok {
		return id
	}
	id := b.builder.AddType(opcode, operands...)
	b.lookup[key] = id
	return id
}

// dedupConstant is dedupType for constants of type typeID.
func (b *Backend) dedupConstant(opcode OpCode, typeID uint32, values ...uint32) uint32 {
	key := lookupKey(opcode, append([]uint32{typeID}, values...))
	if id, ok := b.lookup[key]; ok {
		return id
	}
	id := b.builder.AddConstant(opcode, typeID, values...)
	b.lookup[key] = id
	return id
}

func addressSpaceToStorageClass(space ir.AddressSpace) StorageClass {
	switch space {
	case ir.SpaceFunction:
		return StorageClassFunction
	case ir.SpacePrivate:
		return StorageClassPrivate
	case ir.SpaceWorkGroup:
		return StorageClassWorkgroup
	case ir.SpaceUniform:
		return StorageClassUniform
	case ir.SpaceStorage:
		return StorageClassStorageBuffer
	case ir.SpacePushConstant:
		return StorageClassPushConstant
	default:
		return StorageClassUniformConstant
	}
}

// emitGlobals declares every global variable in handle order.
func (b *Backend) emitGlobals() {
	b.globals = make([]globalVariable, len(b.module.GlobalVariables))
	for i := range b.module.GlobalVariables {
		global := &b.module.GlobalVariables[i]
		class := addressSpaceToStorageClass(global.Space)
		if class == StorageClassStorageBuffer && !b.options.Version.AtLeast(Version1_3) {
			b.extensions["SPV_KHR_storage_buffer_storage_class"] = true
		}

		typeID := b.typeID(global.Type)
		var wrapped bool
		switch global.Space {
		case ir.SpaceUniform, ir.SpaceStorage, ir.SpacePushConstant:
			if _, isStruct := b.module.Types[global.Type].Inner.(ir.StructType); isStruct {
				b.decorateBlock(typeID)
			} else {
				// Buffers must be Block structs; wrap anything else.
				wrapped = true
				typeID = b.builder.AddType(OpTypeStruct, typeID)
				b.builder.AddMemberDecorate(typeID, 0, DecorationOffset, 0)
				b.decorateMatrixMember(typeID, 0, global.Type)
				b.decorateBlock(typeID)
				b.name(typeID, global.Name+"_block")
			}
		}

		ptr := b.dedupType(OpTypePointer, uint32(class), typeID)
		var id uint32
		if global.Init != nil {
			id = b.builder.AddVariable(ptr, class, b.constantID(*global.Init))
		} else {
			id = b.builder.AddVariable(ptr, class)
		}
		b.globals[i] = globalVariable{id: id, wrapped: wrapped}
		b.name(id, global.Name)

		if global.Binding != nil {
			target := b.options.bindingTarget(*global.Binding)
			b.builder.AddDecorate(id, DecorationDescriptorSet, target.DescriptorSet)
			b.builder.AddDecorate(id, DecorationBinding, target.Binding)
		}
		if global.Space == ir.SpaceStorage && global.Access == ir.StorageLoad {
			b.builder.AddDecorate(id, DecorationNonWritable)
		}
		if img, ok := b.module.Types[global.Type].Inner.(ir.ImageType); ok && img.Class == ir.ImageClassStorage {
			switch img.Access {
			case ir.StorageLoad:
				b.builder.AddDecorate(id, DecorationNonWritable)
			case ir.StorageStore:
				b.builder.AddDecorate(id, DecorationNonReadable)
			}
		}
	}
}

func (b *Backend) decorateBlock(structID uint32) {
	if !b.blocks[structID] {
		b.blocks[structID] = true
		b.builder.AddDecorate(structID, DecorationBlock)
	}
}
