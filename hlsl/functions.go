// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

const localIDParam = "_local_id"

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
	name      string
	ty        ir.TypeHandle
	semantic  string
	modifiers string
}

// helper is a function written before the shader's own functions.
type helper struct {
	name  string
	write func()
}

// useHelper records a helper under key the first time it is asked for.
func (w *Writer) useHelper(key string, write func()) {
	if w.helperIndex[key] {
		return
	}
	w.helperIndex[key] = true
	w.helpers = append(w.helpers, helper{name: key, write: write})
}

// writeHelpers writes the helpers in the order they were requested.
func (w *Writer) writeHelpers() {
	for _, h := range w.helpers {
		h.write()
		w.writeLine("")
	}
}

// constructHelper returns the function building a struct or array of
// type ty from its members, declaring it on first use. HLSL has no
// constructor expressions for aggregates.
func (w *Writer) constructHelper(ty ir.TypeHandle) string {
	typeName := w.typeName(ty)
	name := "_construct_" + typeName
	w.useHelper(name, func() {
		var params []string
		var assigns []string
		switch t := w.module.Types[ty].Inner.(type) {
		case ir.StructType:
			for i, m := range t.Members {
				params = append(params, fmt.Sprintf("%s arg%d", w.typeName(m.Type), i))
				assigns = append(assigns, fmt.Sprintf("ret.%s = arg%d;", w.memberName(ty, i), i))
			}
		case ir.ArrayType:
			for i := range *t.Size {
				params = append(params, fmt.Sprintf("%s arg%d", w.typeName(t.Base), i))
				assigns = append(assigns, fmt.Sprintf("ret[%d] = arg%d;", i, i))
			}
		}
		w.writeLine("%s %s(%s) {", typeName, name, strings.Join(params, ", "))
		w.pushIndent()
		w.writeLine("%s ret = (%s)0;", typeName, typeName)
		for _, a := range assigns {
			w.writeLine("%s", a)
		}
		w.writeLine("return ret;")
		w.popIndent()
		w.writeLine("}")
	})
	return name
}

// divModHelper returns the zero-safe integer division or remainder for
// operands of type ty. A zero divisor is replaced by one.
func (w *Writer) divModHelper(op ir.BinaryOperator, ty string) string {
	name, symbol := "_div", "/"
	if op == ir.BinaryModulo {
		name, symbol = "_mod", "%"
	}
	w.useHelper(name+"("+ty+")", func() {
		w.writeLine("%s %s(%s lhs, %s rhs) {", ty, name, ty, ty)
		w.pushIndent()
		w.writeLine("return lhs %s (rhs + (%s)(rhs == (%s)0));", symbol, ty, ty)
		w.popIndent()
		w.writeLine("}")
	})
	return name
}

// imageDimsHelper returns the function gathering every GetDimensions
// output of an image type into a uint4: the size, then the layer count,
// then the mip level or sample count.
func (w *Writer) imageDimsHelper(img ir.ImageType) string {
	const name = "_image_dims"
	typeName := ImageToHLSL(img)
	mipped := img.Class != ir.ImageClassStorage && !img.Multisampled
	w.useHelper(name+"("+typeName+")", func() {
		fields := []string{"ret.x", "ret.y", "ret.z", "ret.w"}
		count := imageSizeComponents(img)
		if img.Arrayed {
			count++
		}
		if mipped || img.Multisampled {
			count++
		}
		if mipped {
			w.writeLine("uint4 %s(%s tex, uint level) {", name, typeName)
		} else {
			w.writeLine("uint4 %s(%s tex) {", name, typeName)
		}
		w.pushIndent()
		w.writeLine("uint4 ret = (uint4)0;")
		args := strings.Join(fields[:count], ", ")
		if mipped {
			args = "level, " + args
		}
		w.writeLine("tex.GetDimensions(%s);", args)
		w.writeLine("return ret;")
		w.popIndent()
		w.writeLine("}")
	})
	return name
}

// imageSizeComponents is the number of components of an image's size.
func imageSizeComponents(img ir.ImageType) int {
	if img.Dim == ir.DimCube {
		return 2
	}
	return img.Dim.CoordinateSize()
}

// writeFunction writes a function an entry point calls.
func (w *Writer) writeFunction(h ir.FunctionHandle) error {
	fn := &w.module.Functions[h]
	w.fc = back.NewFunctionContext(w.module, w.info, w.namer, h, -1)
	defer func() { w.fc = nil }()

	returnType := "void"
	if fn.Result != nil {
		returnType = w.typeName(fn.Result.Type)
	}

	params := make([]string, len(fn.Arguments))
	for i, arg := range fn.Arguments {
		params[i] = w.paramDecl(arg.Type, w.name(back.NameArgument, uint32(h), uint32(i))) //nolint:gosec // G115: argument index
	}

	w.writeLine("%s %s(%s) {", returnType, w.name(back.NameFunction, uint32(h), 0), strings.Join(params, ", "))
	w.pushIndent()
	if err := w.writeLocals(); err != nil {
		return err
	}
	if err := w.writeBlock(fn.Body); err != nil {
		return err
	}
	w.popIndent()
	w.writeLine("}")
	w.writeLine("")
	return nil
}

// paramDecl declares a function argument. Pointers become inout
// parameters of the pointee type.
func (w *Writer) paramDecl(ty ir.TypeHandle, name string) string {
	if pt, ok := w.module.Types[ty].Inner.(ir.PointerType); ok {
		return fmt.Sprintf("inout %s %s", w.typeName(pt.Base), name)
	}
	return fmt.Sprintf("%s %s", w.typeName(ty), name)
}

// writeLocals declares the function's local variables, zeroing those
// without an initializer.
func (w *Writer) writeLocals() error {
	fn := w.fc.Function
	for i, local := range fn.LocalVars {
		ty := w.typeName(local.Type)
		init := "(" + ty + ")0"
		if local.Init != nil {
			value, err := w.constantRef(*local.Init)
			if err != nil {
				return err
			}
			init = value
		}
		name := w.name(back.NameLocal, uint32(w.fc.Handle), uint32(i)) //nolint:gosec // G115: local index
		w.writeLine("%s %s = %s;", ty, name, init)
	}
	return nil
}

// writeEntryPoint writes the selected entry point. Location inputs are
// gathered in an input struct, built-ins become parameters with their
// system value semantic, and results go through an output struct.
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

	inputParam := w.fc.Namer.Call("input")
	inputNames := back.NewNamer(keywords)
	var inputs []ioMember
	var params []string
	var prologue []string
	localID := ""

	input := func(name string, ty ir.TypeHandle, binding ir.Binding, param string) (string, error) {
		switch b := binding.(type) {
		case ir.LocationBinding:
			member := inputNames.Call(name)
			modifiers := ""
			if ep.Stage == ir.StageFragment {
				modifiers = w.interpolationModifiers(b, ty)
			}
			inputs = append(inputs, ioMember{name: member, ty: ty, semantic: fmt.Sprintf("LOC%d", b.Location), modifiers: modifiers})
			return inputParam + "." + member, nil
		case ir.BuiltinBinding:
			semantic, err := BuiltInToSemantic(b.Builtin)
			if err != nil {
				return "", err
			}
			if b.Builtin == ir.BuiltinLocalInvocationID {
				localID = param
			}
			params = append(params, fmt.Sprintf("%s %s : %s", w.typeName(ty), param, semantic))
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
		prologue = append(prologue, fmt.Sprintf("const %s %s = %s(%s);", w.typeName(arg.Type), argName, w.constructHelper(arg.Type), strings.Join(fields, ", ")))
	}

	var outputs []ioMember
	if fn.Result != nil {
		outputNames := back.NewNamer(keywords)
		if fn.Result.Binding != nil {
			member, err := w.outputMember(outputNames.Call(back.ResultName(ep.Stage, fn.Result.Binding)), fn.Result.Binding, fn.Result.Type, ep.Stage)
			if err != nil {
				return err
			}
			outputs = append(outputs, member)
		} else {
			st, ok := w.module.Types[fn.Result.Type].Inner.(ir.StructType)
			if !ok {
				return ir.Errorf(ir.ErrTypeMismatch, "entry point result has no binding")
			}
			for j, m := range st.Members {
				if m.Binding == nil {
					return ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point result has no binding", m.Name)
				}
				member, err := w.outputMember(outputNames.Call(w.memberName(fn.Result.Type, j)), m.Binding, m.Type, ep.Stage)
				if err != nil {
					return err
				}
				outputs = append(outputs, member)
			}
			resultType := fn.Result.Type
			w.ep.resultStruct = &resultType
		}
	}

	if len(inputs) > 0 {
		inputType := w.namer.Call(w.entryName + "Input")
		w.writeIOStruct(inputType, inputs)
		params = append([]string{inputType + " " + inputParam}, params...)
	}
	returnType := "void"
	if len(outputs) > 0 {
		w.ep.output = w.namer.Call(w.entryName + "Output")
		w.writeIOStruct(w.ep.output, outputs)
		returnType = w.ep.output
	}

	var workgroup []ir.GlobalVariableHandle
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		if w.module.GlobalVariables[g].Space == ir.SpaceWorkGroup {
			workgroup = append(workgroup, g)
		}
	}
	zeroInit := ep.Stage == ir.StageCompute && w.options.ZeroInitializeWorkgroupMemory && len(workgroup) > 0
	if zeroInit && localID == "" {
		localID = localIDParam
		params = append(params, "uint3 "+localIDParam+" : SV_GroupThreadID")
	}

	if ep.Stage == ir.StageCompute {
		w.writeLine("[numthreads(%d, %d, %d)]", ep.Workgroup[0], ep.Workgroup[1], ep.Workgroup[2])
	}
	w.writeLine("%s %s(%s) {", returnType, w.entryName, strings.Join(params, ", "))
	w.pushIndent()

	if zeroInit {
		w.writeLine("if (all(%s == uint3(0u, 0u, 0u))) {", localID)
		w.pushIndent()
		for _, g := range workgroup {
			w.writeLine("%s = (%s)0;", w.globalName(g), w.typeName(w.module.GlobalVariables[g].Type))
		}
		w.popIndent()
		w.writeLine("}")
		w.writeLine("GroupMemoryBarrierWithGroupSync();")
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
		w.writeLine("%s%s %s : %s;", m.modifiers, w.typeName(m.ty), m.name, m.semantic)
	}
	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
}

// outputMember builds the output struct field for one result binding.
// Fragment locations are render targets; other stages pass varyings on.
func (w *Writer) outputMember(name string, binding ir.Binding, ty ir.TypeHandle, stage ir.ShaderStage) (ioMember, error) {
	switch b := binding.(type) {
	case ir.LocationBinding:
		if stage == ir.StageFragment {
			return ioMember{name: name, ty: ty, semantic: fmt.Sprintf("SV_Target%d", b.Location)}, nil
		}
		return ioMember{name: name, ty: ty, semantic: fmt.Sprintf("LOC%d", b.Location), modifiers: w.interpolationModifiers(b, ty)}, nil
	case ir.BuiltinBinding:
		switch b.Builtin {
		case ir.BuiltinPosition, ir.BuiltinFragDepth, ir.BuiltinSampleMask:
		default:
			return ioMember{}, ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s is not an output in HLSL", b.Builtin)
		}
		semantic, err := BuiltInToSemantic(b.Builtin)
		if err != nil {
			return ioMember{}, err
		}
		return ioMember{name: name, ty: ty, semantic: semantic}, nil
	}
	return ioMember{}, ir.Errorf(ir.ErrTypeMismatch, "unknown binding %T", binding)
}

// interpolationModifiers returns the qualifiers of a varying, each
// followed by a space. Integers are never interpolated.
func (w *Writer) interpolationModifiers(loc ir.LocationBinding, ty ir.TypeHandle) string {
	s, _ := scalarOf(w.module.Types[ty].Inner)
	if s.Kind == ir.ScalarSint || s.Kind == ir.ScalarUint {
		return "nointerpolation "
	}
	if loc.Interpolation == nil {
		return ""
	}
	var mods []string
	if m := InterpolationToHLSL(loc.Interpolation.Kind); m != "" {
		mods = append(mods, m)
	}
	if m := SamplingToHLSL(loc.Interpolation.Sampling); m != "" {
		mods = append(mods, m)
	}
	if len(mods) == 0 {
		return ""
	}
	return strings.Join(mods, " ") + " "
}
