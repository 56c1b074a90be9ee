package msl

import (
	"fmt"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// MSL attribute constants
const (
	attrPosition = "[[position]]"
	sizesParam   = "_buffer_sizes"
	localIDParam = "_local_id"
)

// entryState is what statement writing needs to know about the entry
// point being written.
type entryState struct {
	stage ir.ShaderStage

	// output is the name of the output struct, empty for void.
	output string

	// resultStruct is set when the IR result is a struct whose members
	// are copied one by one into the output struct.
	resultStruct *ir.TypeHandle
}

// ioMember is one field of an entry point input or output struct.
type ioMember struct {
	name string
	ty   ir.TypeHandle
	attr string
}

// writeFunction writes a function an entry point calls. The globals it
// uses become trailing parameters.
func (w *Writer) writeFunction(h ir.FunctionHandle) error {
	fn := &w.module.Functions[h]
	w.fc = back.NewFunctionContext(w.module, w.info, w.namer, h, -1)
	defer func() { w.fc = nil }()

	returnType := "void"
	if fn.Result != nil {
		returnType = w.typeName(fn.Result.Type)
	}

	var params []string
	for i, arg := range fn.Arguments {
		params = append(params, w.paramDecl(arg.Type, w.name(back.NameArgument, uint32(h), uint32(i)))) //nolint:gosec // G115: argument index
	}
	for _, g := range w.info.Functions[h].Globals {
		params = append(params, w.globalParamDecl(g))
	}
	if w.usesSizes(h) {
		params = append(params, "constant _mslBufferSizes& "+sizesParam)
	}

	w.writeSignature(returnType+" "+w.name(back.NameFunction, uint32(h), 0), params)
	w.pushIndent()
	if err := w.writeLocals(); err != nil {
		return back.AtFunction(err, h)
	}
	if err := w.writeBlock(fn.Body); err != nil {
		return back.AtFunction(err, h)
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

// writeSignature writes "prefix(" with one parameter per line.
func (w *Writer) writeSignature(prefix string, params []string) {
	if len(params) == 0 {
		w.writeLine("%s() {", prefix)
		return
	}
	w.writeLine("%s(", prefix)
	w.pushIndent()
	for i, p := range params {
		if i+1 < len(params) {
			w.writeLine("%s,", p)
		} else {
			w.writeLine("%s", p)
		}
	}
	w.popIndent()
	w.writeLine(") {")
}

// paramDecl declares a function argument. Pointers become references in
// the pointee's address space.
func (w *Writer) paramDecl(ty ir.TypeHandle, name string) string {
	if pt, ok := w.module.Types[ty].Inner.(ir.PointerType); ok {
		return fmt.Sprintf("%s %s& %s", addressSpaceName(pt.Space), w.typeName(pt.Base), name)
	}
	return fmt.Sprintf("%s %s", w.typeName(ty), name)
}

// globalParamDecl declares a global as a parameter, without attribute.
func (w *Writer) globalParamDecl(g ir.GlobalVariableHandle) string {
	global := &w.module.GlobalVariables[g]
	name := w.globalName(g)
	ty := w.typeName(global.Type)
	switch global.Space {
	case ir.SpaceHandle:
		return fmt.Sprintf("%s %s", ty, name)
	case ir.SpaceStorage:
		space := "device"
		if !isMutableStorage(global) {
			space = "const device"
		}
		if arr, ok := w.module.Types[global.Type].Inner.(ir.ArrayType); ok && arr.IsRuntimeSized() {
			return fmt.Sprintf("%s %s* %s", space, ty, name)
		}
		return fmt.Sprintf("%s %s& %s", space, ty, name)
	default:
		return fmt.Sprintf("%s %s& %s", addressSpaceName(global.Space), ty, name)
	}
}

// resourceAttribute returns the argument table attribute of a resource
// global of the entry point.
func (w *Writer) resourceAttribute(g ir.GlobalVariableHandle) (string, error) {
	global := &w.module.GlobalVariables[g]
	var slot *uint8
	kind := "buffer"
	switch {
	case global.Space == ir.SpacePushConstant:
		slot = w.resources.PushConstantBuffer
	case global.Binding != nil:
		target := w.resources.Resources[*global.Binding]
		switch resourceKind(w.module, global) {
		case resourceBuffer:
			slot = target.Buffer
		case resourceTexture:
			slot, kind = target.Texture, "texture"
		case resourceSampler:
			slot, kind = target.Sampler, "sampler"
		}
	}
	if slot == nil {
		if w.options.FakeMissingBindings {
			return "[[user(fake0)]]", nil
		}
		where := "push constants"
		if global.Binding != nil {
			where = global.Binding.String()
		}
		return "", ir.Errorf(ir.ErrUnsupportedFeature, "global %q at %s has no %s slot in the binding map", global.Name, where, kind).WithGlobal(g)
	}
	return fmt.Sprintf("[[%s(%d)]]", kind, *slot), nil
}

// writeLocals declares the function's local variables, zeroing those
// without an initializer.
func (w *Writer) writeLocals() error {
	fn := w.fc.Function
	for i, local := range fn.LocalVars {
		init := "{}"
		if local.Init != nil {
			value, err := w.constantRef(*local.Init)
			if err != nil {
				return err
			}
			init = value
		}
		name := w.name(back.NameLocal, uint32(w.fc.Handle), uint32(i)) //nolint:gosec // G115: local index
		w.writeLine("%s %s = %s;", w.typeName(local.Type), name, init)
	}
	return nil
}

// writeEntryPoint writes the selected entry point with its stage_in and
// output structs. Location inputs are gathered in the stage_in struct,
// built-ins and resources become parameters.
//
//nolint:gocognit,gocyclo,cyclop,funlen // one branch per binding shape
func (w *Writer) writeEntryPoint() error {
	ep := &w.module.EntryPoints[w.entry]
	h := ep.Function
	fn := &w.module.Functions[h]
	w.fc = back.NewFunctionContext(w.module, w.info, w.namer, h, w.entry)
	w.ep = &entryState{stage: ep.Stage}
	defer func() {
		w.fc = nil
		w.ep = nil
	}()

	varyings := w.fc.Namer.Call("varyings")
	inputNames := back.NewNamer(keywords)
	var inputs []ioMember
	var params []string
	var prologue []string
	hasLocalID := ""

	input := func(name string, ty ir.TypeHandle, binding ir.Binding, param string) (string, error) {
		switch b := binding.(type) {
		case ir.LocationBinding:
			member := inputNames.Call(name)
			inputs = append(inputs, ioMember{name: member, ty: ty, attr: w.locationInputAttribute(b, ty, ep.Stage)})
			return varyings + "." + member, nil
		case ir.BuiltinBinding:
			attr, err := builtinInputAttribute(b.Builtin, ep.Stage)
			if err != nil {
				return "", err
			}
			if b.Builtin == ir.BuiltinLocalInvocationID {
				hasLocalID = param
			}
			params = append(params, fmt.Sprintf("%s %s %s", w.typeName(ty), param, attr))
			return param, nil
		}
		return "", ir.Errorf(ir.ErrTypeMismatch, "entry point input %q has no binding", name)
	}

	for i, arg := range fn.Arguments {
		argName := w.name(back.NameArgument, uint32(h), uint32(i)) //nolint:gosec // G115: argument index
		if arg.Binding != nil {
			if _, ok := arg.Binding.(ir.BuiltinBinding); ok {
				if _, err := input(arg.Name, arg.Type, arg.Binding, argName); err != nil {
					return err
				}
				continue
			}
			value, err := input(arg.Name, arg.Type, arg.Binding, argName)
			if err != nil {
				return err
			}
			prologue = append(prologue, fmt.Sprintf("const %s %s = %s;", w.typeName(arg.Type), argName, value))
			continue
		}

		st, ok := w.module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			return ir.Errorf(ir.ErrTypeMismatch, "entry point argument %q has no binding", arg.Name)
		}
		fields := make([]string, len(st.Members))
		for j, m := range st.Members {
			memberName := w.memberName(arg.Type, j)
			param := ""
			if _, builtin := m.Binding.(ir.BuiltinBinding); builtin {
				param = w.fc.Namer.Call(memberName)
			}
			value, err := input(memberName, m.Type, m.Binding, param)
			if err != nil {
				return err
			}
			fields[j] = value
		}
		prologue = append(prologue, fmt.Sprintf("const %s %s = %s;", w.typeName(arg.Type), argName, w.composite(arg.Type, fields)))
	}

	var outputs []ioMember
	if fn.Result != nil {
		outputNames := back.NewNamer(keywords)
		if fn.Result.Binding != nil {
			attr, err := w.outputAttribute(fn.Result.Binding, fn.Result.Type, ep.Stage)
			if err != nil {
				return err
			}
			outputs = append(outputs, ioMember{name: outputNames.Call(back.ResultName(ep.Stage, fn.Result.Binding)), ty: fn.Result.Type, attr: attr})
		} else {
			st, ok := w.module.Types[fn.Result.Type].Inner.(ir.StructType)
			if !ok {
				return ir.Errorf(ir.ErrTypeMismatch, "entry point result has no binding")
			}
			for j, m := range st.Members {
				if m.Binding == nil {
					return ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point result has no binding", m.Name)
				}
				attr, err := w.outputAttribute(m.Binding, m.Type, ep.Stage)
				if err != nil {
					return err
				}
				outputs = append(outputs, ioMember{name: outputNames.Call(w.memberName(fn.Result.Type, j)), ty: m.Type, attr: attr})
			}
			resultType := fn.Result.Type
			w.ep.resultStruct = &resultType
		}
	}

	if len(inputs) > 0 {
		inputType := w.namer.Call(w.entryName + "Input")
		w.writeIOStruct(inputType, inputs)
		params = append([]string{fmt.Sprintf("%s %s [[stage_in]]", inputType, varyings)}, params...)
	}
	returnType := "void"
	if len(outputs) > 0 {
		w.ep.output = w.namer.Call(w.entryName + "Output")
		w.writeIOStruct(w.ep.output, outputs)
		returnType = w.ep.output
	}

	var workgroup, private []ir.GlobalVariableHandle
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		switch w.module.GlobalVariables[g].Space {
		case ir.SpaceWorkGroup:
			workgroup = append(workgroup, g)
		case ir.SpacePrivate, ir.SpaceFunction:
			private = append(private, g)
		default:
			attr, err := w.resourceAttribute(g)
			if err != nil {
				return err
			}
			params = append(params, w.globalParamDecl(g)+" "+attr)
		}
	}
	if w.usesSizes(h) {
		attr := "[[user(fake0)]]"
		switch {
		case w.resources.SizesBuffer != nil:
			attr = fmt.Sprintf("[[buffer(%d)]]", *w.resources.SizesBuffer)
		case !w.options.FakeMissingBindings:
			return ir.Errorf(ir.ErrUnsupportedFeature, "entry point %q reads a runtime array length but has no sizes buffer slot", ep.Name)
		}
		params = append(params, "constant _mslBufferSizes& "+sizesParam+" "+attr)
	}

	zeroInit := ep.Stage == ir.StageCompute && w.options.ZeroInitializeWorkgroupMemory && len(workgroup) > 0
	if zeroInit && hasLocalID == "" {
		hasLocalID = localIDParam
		params = append(params, "metal::uint3 "+localIDParam+" [[thread_position_in_threadgroup]]")
	}

	stage := map[ir.ShaderStage]string{
		ir.StageVertex:   "vertex",
		ir.StageFragment: "fragment",
		ir.StageCompute:  "kernel",
	}[ep.Stage]
	w.writeSignature(fmt.Sprintf("%s %s %s", stage, returnType, w.entryName), params)
	w.pushIndent()

	for _, g := range workgroup {
		w.writeLine("threadgroup %s %s;", w.typeName(w.module.GlobalVariables[g].Type), w.globalName(g))
	}
	for _, g := range private {
		global := &w.module.GlobalVariables[g]
		init := "{}"
		if global.Init != nil {
			value, err := w.constantRef(*global.Init)
			if err != nil {
				return err
			}
			init = value
		}
		w.writeLine("%s %s = %s;", w.typeName(global.Type), w.globalName(g), init)
	}
	if zeroInit {
		w.writeLine("if (metal::all(%s == metal::uint3(0u))) {", hasLocalID)
		w.pushIndent()
		for _, g := range workgroup {
			w.writeLine("%s = {};", w.globalName(g))
		}
		w.popIndent()
		w.writeLine("}")
		w.writeLine("metal::threadgroup_barrier(metal::mem_flags::mem_threadgroup);")
	}
	for _, line := range prologue {
		w.writeLine("%s", line)
	}
	if err := w.writeLocals(); err != nil {
		return err
	}
	if err := w.writeBlock(fn.Body); err != nil {
		return back.AtFunction(err, h)
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

func (w *Writer) writeIOStruct(name string, members []ioMember) {
	w.writeLine("struct %s {", name)
	w.pushIndent()
	for _, m := range members {
		w.writeLine("%s %s %s;", w.typeName(m.ty), m.name, m.attr)
	}
	w.popIndent()
	w.writeLine("};")
}

// locationInputAttribute returns the MSL attribute for a location input.
// Fragment inputs carry the interpolation qualifier; integers are never
// interpolated.
func (w *Writer) locationInputAttribute(loc ir.LocationBinding, ty ir.TypeHandle, stage ir.ShaderStage) string {
	if stage == ir.StageVertex {
		return fmt.Sprintf("[[attribute(%d)]]", loc.Location)
	}
	s, _ := scalarOf(w.module.Types[ty].Inner)
	if s.Kind == ir.ScalarSint || s.Kind == ir.ScalarUint || loc.Interpolation != nil && loc.Interpolation.Kind == ir.InterpolationFlat {
		return fmt.Sprintf("[[user(loc%d), flat]]", loc.Location)
	}
	if loc.Interpolation == nil {
		return fmt.Sprintf("[[user(loc%d)]]", loc.Location)
	}
	sampling := "center"
	switch loc.Interpolation.Sampling {
	case ir.SamplingCentroid:
		sampling = "centroid"
	case ir.SamplingSample:
		sampling = "sample"
	}
	perspective := "perspective"
	if loc.Interpolation.Kind == ir.InterpolationLinear {
		perspective = "no_perspective"
	}
	return fmt.Sprintf("[[user(loc%d), %s_%s]]", loc.Location, sampling, perspective)
}

// outputAttribute returns the attribute of an output struct member.
func (w *Writer) outputAttribute(binding ir.Binding, _ ir.TypeHandle, stage ir.ShaderStage) (string, error) {
	switch b := binding.(type) {
	case ir.LocationBinding:
		if stage == ir.StageFragment {
			return fmt.Sprintf("[[color(%d)]]", b.Location), nil
		}
		return fmt.Sprintf("[[user(loc%d)]]", b.Location), nil
	case ir.BuiltinBinding:
		return builtinOutputAttribute(b.Builtin)
	}
	return "", ir.Errorf(ir.ErrTypeMismatch, "unknown binding %T", binding)
}

// builtinInputAttribute returns the MSL attribute for a built-in input.
func builtinInputAttribute(builtin ir.BuiltinValue, stage ir.ShaderStage) (string, error) {
	switch builtin {
	case ir.BuiltinPosition:
		if stage == ir.StageFragment {
			return attrPosition, nil
		}
	case ir.BuiltinVertexIndex:
		return "[[vertex_id]]", nil
	case ir.BuiltinInstanceIndex:
		return "[[instance_id]]", nil
	case ir.BuiltinFrontFacing:
		return "[[front_facing]]", nil
	case ir.BuiltinSampleIndex:
		return "[[sample_id]]", nil
	case ir.BuiltinSampleMask:
		return "[[sample_mask]]", nil
	case ir.BuiltinLocalInvocationID:
		return "[[thread_position_in_threadgroup]]", nil
	case ir.BuiltinLocalInvocationIndex:
		return "[[thread_index_in_threadgroup]]", nil
	case ir.BuiltinGlobalInvocationID:
		return "[[thread_position_in_grid]]", nil
	case ir.BuiltinWorkGroupID:
		return "[[threadgroup_position_in_grid]]", nil
	case ir.BuiltinNumWorkGroups:
		return "[[threadgroups_per_grid]]", nil
	}
	return "", ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s is not a %s input in MSL", builtin, stage)
}

// builtinOutputAttribute returns the MSL attribute for a built-in output.
func builtinOutputAttribute(builtin ir.BuiltinValue) (string, error) {
	switch builtin {
	case ir.BuiltinPosition:
		return attrPosition, nil
	case ir.BuiltinFragDepth:
		return "[[depth(any)]]", nil
	case ir.BuiltinSampleMask:
		return "[[sample_mask]]", nil
	}
	return "", ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s is not an output in MSL", builtin)
}
