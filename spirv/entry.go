package spirv

import (
	"github.com/gogpu/shadercross/ir"
)

// entryWriter builds the wrapper function of one entry point. The wrapper
// loads stage inputs from Input variables, calls the IR function and
// stores its result to Output variables.
type entryWriter struct {
	b     *Backend
	stage ir.ShaderStage
	code  []Instruction

	interfaces     []uint32
	depthReplacing bool
}

// ioVariable is one Input or Output variable of an entry point.
type ioVariable struct {
	id      uint32
	typeID  uint32
	isArray bool // SampleMask is declared as array<u32, 1>
}

func (b *Backend) emitEntryPoint(index int) error {
	ep := &b.module.EntryPoints[index]
	fn := &b.module.Functions[ep.Function]
	ew := &entryWriter{b: b, stage: ep.Stage}

	args := make([]uint32, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		id, err := ew.input(arg.Type, arg.Binding, arg.Name)
		if err != nil {
			return err.WithEntryPoint(index)
		}
		args[i] = id
	}

	resultType := b.voidType
	if fn.Result != nil {
		resultType = b.typeID(fn.Result.Type)
	}
	call := b.builder.AllocID()
	ew.code = append(ew.code, NewInstruction(OpFunctionCall,
		append([]uint32{resultType, call, b.functionIDs[ep.Function]}, args...)...))
	if fn.Result != nil {
		if err := ew.output(fn.Result.Type, fn.Result.Binding, call); err != nil {
			return err.WithEntryPoint(index)
		}
	}

	wrapper := b.builder.AllocID()
	b.name(wrapper, ep.Name)
	funcType := b.functionTypeID(b.voidType)
	out := []Instruction{
		NewInstruction(OpFunction, b.voidType, wrapper, uint32(FunctionControlNone), funcType),
		NewInstruction(OpLabel, b.builder.AllocID()),
	}
	out = append(out, ew.code...)
	out = append(out, NewInstruction(OpReturn), NewInstruction(OpFunctionEnd))
	b.builder.AddFunction(out)

	interfaces := ew.interfaces
	if b.options.Version.AtLeast(Version1_4) {
		for _, g := range b.info.Functions[ep.Function].Globals {
			interfaces = append(interfaces, b.globals[g].id)
		}
	}

	switch ep.Stage {
	case ir.StageVertex:
		b.builder.AddEntryPoint(ExecutionModelVertex, wrapper, ep.Name, interfaces)
	case ir.StageFragment:
		b.builder.AddEntryPoint(ExecutionModelFragment, wrapper, ep.Name, interfaces)
		b.builder.AddExecutionMode(wrapper, ExecutionModeOriginUpperLeft)
		if ew.depthReplacing {
			b.builder.AddExecutionMode(wrapper, ExecutionModeDepthReplacing)
		}
	case ir.StageCompute:
		b.builder.AddEntryPoint(ExecutionModelGLCompute, wrapper, ep.Name, interfaces)
		size := ep.Workgroup
		for i := range size {
			if size[i] == 0 {
				size[i] = 1
			}
		}
		b.builder.AddExecutionMode(wrapper, ExecutionModeLocalSize, size[0], size[1], size[2])
	}
	return nil
}

// input loads one argument, building structs from their members.
func (ew *entryWriter) input(ty ir.TypeHandle, binding ir.Binding, name string) (uint32, *ir.Error) {
	b := ew.b
	typeID := b.typeID(ty)
	if binding != nil {
		v, err := ew.variable(StorageClassInput, ty, binding, name)
		if err != nil {
			return 0, err
		}
		return ew.load(v), nil
	}

	st, ok := b.module.Types[ty].Inner.(ir.StructType)
	if !ok {
		return 0, ir.Errorf(ir.ErrTypeMismatch, "entry point argument %q has no binding", name)
	}
	members := make([]uint32, len(st.Members))
	for i, m := range st.Members {
		if m.Binding == nil {
			return 0, ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point argument %q has no binding", m.Name, name)
		}
		v, err := ew.variable(StorageClassInput, m.Type, m.Binding, m.Name)
		if err != nil {
			return 0, err
		}
		members[i] = ew.load(v)
	}
	id := b.builder.AllocID()
	ew.code = append(ew.code, NewInstruction(OpCompositeConstruct, append([]uint32{typeID, id}, members...)...))
	return id, nil
}

// output stores the result value, splitting structs into their members.
func (ew *entryWriter) output(ty ir.TypeHandle, binding ir.Binding, value uint32) *ir.Error {
	b := ew.b
	if binding != nil {
		v, err := ew.variable(StorageClassOutput, ty, binding, "")
		if err != nil {
			return err
		}
		ew.store(v, value)
		return nil
	}

	st, ok := b.module.Types[ty].Inner.(ir.StructType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "entry point result has no binding")
	}
	for i, m := range st.Members {
		if m.Binding == nil {
			return ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point result has no binding", m.Name)
		}
		v, err := ew.variable(StorageClassOutput, m.Type, m.Binding, m.Name)
		if err != nil {
			return err
		}
		member := b.builder.AllocID()
		ew.code = append(ew.code, NewInstruction(OpCompositeExtract, b.typeID(m.Type), member, value, u32(i)))
		ew.store(v, member)
	}
	return nil
}

func (ew *entryWriter) load(v ioVariable) uint32 {
	b := ew.b
	ptr := v.id
	if v.isArray {
		ptr = b.builder.AllocID()
		ew.code = append(ew.code, NewInstruction(OpAccessChain,
			b.pointerTypeID(StorageClassInput, v.typeID), ptr, v.id, b.u32Constant(0)))
	}
	id := b.builder.AllocID()
	ew.code = append(ew.code, NewInstruction(OpLoad, v.typeID, id, ptr))
	return id
}

func (ew *entryWriter) store(v ioVariable, value uint32) {
	b := ew.b
	ptr := v.id
	if v.isArray {
		ptr = b.builder.AllocID()
		ew.code = append(ew.code, NewInstruction(OpAccessChain,
			b.pointerTypeID(StorageClassOutput, v.typeID), ptr, v.id, b.u32Constant(0)))
	}
	ew.code = append(ew.code, NewInstruction(OpStore, ptr, value))
}

// variable declares and decorates one stage I/O variable.
func (ew *entryWriter) variable(class StorageClass, ty ir.TypeHandle, binding ir.Binding, name string) (ioVariable, *ir.Error) {
	b := ew.b
	v := ioVariable{typeID: b.typeID(ty)}
	declared := v.typeID

	switch bb := binding.(type) {
	case ir.BuiltinBinding:
		builtin, err := ew.builtin(bb.Builtin, class)
		if err != nil {
			return ioVariable{}, err
		}
		if bb.Builtin == ir.BuiltinSampleMask {
			v.isArray = true
			declared = b.dedupType(OpTypeArray, v.typeID, b.u32Constant(1))
		}
		v.id = b.builder.AddVariable(b.pointerTypeID(class, declared), class)
		b.builder.AddDecorate(v.id, DecorationBuiltIn, uint32(builtin))
		if bb.Builtin == ir.BuiltinFragDepth {
			ew.depthReplacing = true
		}

	case ir.LocationBinding:
		v.id = b.builder.AddVariable(b.pointerTypeID(class, declared), class)
		b.builder.AddDecorate(v.id, DecorationLocation, bb.Location)
		varying := (ew.stage == ir.StageVertex && class == StorageClassOutput) ||
			(ew.stage == ir.StageFragment && class == StorageClassInput)
		if varying {
			ew.interpolate(v.id, ty, bb.Interpolation)
		}

	default:
		return ioVariable{}, ir.Errorf(ir.ErrTypeMismatch, "unknown binding %T", binding)
	}

	b.name(v.id, name)
	ew.interfaces = append(ew.interfaces, v.id)
	return v, nil
}

func (ew *entryWriter) interpolate(id uint32, ty ir.TypeHandle, interp *ir.Interpolation) {
	b := ew.b
	kind := scalarOf(b.module.Types[ty].Inner).Kind
	integer := kind == ir.ScalarSint || kind == ir.ScalarUint
	switch {
	case integer, interp != nil && interp.Kind == ir.InterpolationFlat:
		b.builder.AddDecorate(id, DecorationFlat)
		return
	case interp != nil && interp.Kind == ir.InterpolationLinear:
		b.builder.AddDecorate(id, DecorationNoPerspective)
	}
	if interp == nil {
		return
	}
	switch interp.Sampling {
	case ir.SamplingCentroid:
		b.builder.AddDecorate(id, DecorationCentroid)
	case ir.SamplingSample:
		b.require(CapabilitySampleRateShading)
		b.builder.AddDecorate(id, DecorationSample)
	}
}

func (ew *entryWriter) builtin(value ir.BuiltinValue, class StorageClass) (BuiltIn, *ir.Error) {
	switch value {
	case ir.BuiltinPosition:
		if class == StorageClassInput && ew.stage == ir.StageFragment {
			return BuiltInFragCoord, nil
		}
		return BuiltInPosition, nil
	case ir.BuiltinVertexIndex:
		return BuiltInVertexIndex, nil
	case ir.BuiltinInstanceIndex:
		return BuiltInInstanceIndex, nil
	case ir.BuiltinFrontFacing:
		return BuiltInFrontFacing, nil
	case ir.BuiltinFragDepth:
		return BuiltInFragDepth, nil
	case ir.BuiltinSampleIndex:
		ew.b.require(CapabilitySampleRateShading)
		return BuiltInSampleID, nil
	case ir.BuiltinSampleMask:
		return BuiltInSampleMask, nil
	case ir.BuiltinLocalInvocationID:
		return BuiltInLocalInvocationID, nil
	case ir.BuiltinLocalInvocationIndex:
		return BuiltInLocalInvocationIndex, nil
	case ir.BuiltinGlobalInvocationID:
		return BuiltInGlobalInvocationID, nil
	case ir.BuiltinWorkGroupID:
		return BuiltInWorkgroupID, nil
	case ir.BuiltinNumWorkGroups:
		return BuiltInNumWorkgroups, nil
	default:
		return 0, ir.Errorf(ir.ErrUnsupportedFeature, "builtin %s has no SPIR-V equivalent", value)
	}
}
