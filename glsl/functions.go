// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// entryState is what statement writing needs to know about the entry
// point being written.
type entryState struct {
	stage ir.ShaderStage

	// outputs receive the result, one per member for struct results.
	outputs []output

	// resultStruct is set when the result is a struct whose members are
	// copied one by one into the outputs.
	resultStruct *ir.TypeHandle

	// position is set when the vertex position is written.
	position bool
}

// output is one destination of an entry point result.
type output struct {
	target string
	// convert opens a constructor converting the value to the type of
	// target, if they differ.
	convert string
}

// writeFunction writes a function the entry point calls.
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
		return "inout " + w.declaration(pt.Base, name)
	}
	return w.declaration(ty, name)
}

// writeLocals declares the function's local variables, zeroing those
// without an initializer.
func (w *Writer) writeLocals() error {
	fn := w.fc.Function
	for i, local := range fn.LocalVars {
		init := w.zeroValue(local.Type)
		if local.Init != nil {
			value, err := w.constantRef(*local.Init)
			if err != nil {
				return err
			}
			init = value
		}
		name := w.name(back.NameLocal, uint32(w.fc.Handle), uint32(i)) //nolint:gosec // G115: local index
		w.writeLine("%s = %s;", w.declaration(local.Type, name), init)
	}
	return nil
}

// varying is a global in or out variable of the entry point.
type varying struct {
	qualifiers  string
	direction   string
	declaration string
}

// writeEntryPoint writes the selected entry point as main. Location
// arguments and results become in and out globals named after the stages
// they connect; built-ins map to the gl_ variables.
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

	var varyings []varying
	var prologue []string

	input := func(ty ir.TypeHandle, binding ir.Binding) (string, error) {
		switch b := binding.(type) {
		case ir.LocationBinding:
			v, err := w.varying(b, ty, false)
			if err != nil {
				return "", err
			}
			varyings = append(varyings, v)
			return varyingName(ep.Stage, false, b.Location), nil
		case ir.BuiltinBinding:
			return w.builtinInput(b.Builtin)
		}
		return "", ir.Errorf(ir.ErrTypeMismatch, "entry point input has no binding")
	}

	for i, arg := range fn.Arguments {
		argName := w.name(back.NameArgument, uint32(h), uint32(i)) //nolint:gosec // G115: argument index
		if arg.Binding != nil {
			value, err := input(arg.Type, arg.Binding)
			if err != nil {
				return err
			}
			prologue = append(prologue, fmt.Sprintf("%s = %s;", w.declaration(arg.Type, argName), value))
			continue
		}

		st, ok := w.module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			return ir.Errorf(ir.ErrTypeMismatch, "entry point argument %q has no binding", arg.Name)
		}
		var fields []string
		pads := w.structPads[arg.Type]
		for j, m := range st.Members {
			if m.Binding == nil {
				return ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point argument %q has no binding", m.Name, arg.Name)
			}
			value, err := input(m.Type, m.Binding)
			if err != nil {
				return err
			}
			for range pads[j] {
				fields = append(fields, "0u")
			}
			fields = append(fields, value)
		}
		prologue = append(prologue, fmt.Sprintf("%s = %s(%s);", w.declaration(arg.Type, argName), w.typeName(arg.Type), strings.Join(fields, ", ")))
	}

	if fn.Result != nil {
		result := func(ty ir.TypeHandle, binding ir.Binding) error {
			switch b := binding.(type) {
			case ir.LocationBinding:
				v, err := w.varying(b, ty, true)
				if err != nil {
					return err
				}
				varyings = append(varyings, v)
				w.ep.outputs = append(w.ep.outputs, output{target: varyingName(ep.Stage, true, b.Location)})
				return nil
			case ir.BuiltinBinding:
				out, err := w.builtinOutput(b.Builtin)
				if err != nil {
					return err
				}
				w.ep.outputs = append(w.ep.outputs, out)
				return nil
			}
			return ir.Errorf(ir.ErrTypeMismatch, "entry point result has no binding")
		}
		if fn.Result.Binding != nil {
			if err := result(fn.Result.Type, fn.Result.Binding); err != nil {
				return err
			}
		} else {
			st, ok := w.module.Types[fn.Result.Type].Inner.(ir.StructType)
			if !ok {
				return ir.Errorf(ir.ErrTypeMismatch, "entry point result has no binding")
			}
			for _, m := range st.Members {
				if m.Binding == nil {
					return ir.Errorf(ir.ErrTypeMismatch, "member %q of entry point result has no binding", m.Name)
				}
				if err := result(m.Type, m.Binding); err != nil {
					return err
				}
			}
			resultType := fn.Result.Type
			w.ep.resultStruct = &resultType
		}
	}

	for _, v := range varyings {
		w.writeLine("%s%s %s;", v.qualifiers, v.direction, v.declaration)
	}
	if len(varyings) > 0 {
		w.writeLine("")
	}

	var workgroup []ir.GlobalVariableHandle
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		if w.module.GlobalVariables[g].Space == ir.SpaceWorkGroup {
			workgroup = append(workgroup, g)
		}
	}

	w.writeLine("void main() {")
	w.pushIndent()
	if ep.Stage == ir.StageCompute && w.options.ZeroInitializeWorkgroupMemory && len(workgroup) > 0 {
		w.writeLine("if (gl_LocalInvocationID == uvec3(0u)) {")
		w.pushIndent()
		for _, g := range workgroup {
			w.writeLine("%s = %s;", w.globalName(g), w.zeroValue(w.module.GlobalVariables[g].Type))
		}
		w.popIndent()
		w.writeLine("}")
		w.writeLine("memoryBarrierShared();")
		w.writeLine("barrier();")
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

// varyingName names the in or out global of a location. The prefix
// says which pipeline stages the variable connects.
func varyingName(stage ir.ShaderStage, out bool, location uint32) string {
	prefix := "_p2vs"
	switch {
	case stage == ir.StageVertex && out, stage == ir.StageFragment && !out:
		prefix = "_vs2fs"
	case stage == ir.StageFragment && out:
		prefix = "_fs2p"
	}
	return fmt.Sprintf("%s_location%d", prefix, location)
}

// varying declares the global of a location binding. Vertex inputs and
// fragment outputs always carry their location; the varyings between
// the stages need separate shader objects for it and are otherwise
// matched by name.
func (w *Writer) varying(b ir.LocationBinding, ty ir.TypeHandle, out bool) (varying, error) {
	stage := w.stage
	if stage == ir.StageCompute {
		return varying{}, ir.Errorf(ir.ErrTypeMismatch, "compute shaders have no location bindings")
	}
	v := varying{
		direction:   "in",
		declaration: w.declaration(ty, varyingName(stage, out, b.Location)),
	}
	if out {
		v.direction = "out"
	}

	interStage := (stage == ir.StageVertex) == out
	var qualifiers []string
	switch {
	case !interStage:
		qualifiers = append(qualifiers, fmt.Sprintf("layout(location = %d)", b.Location))
	case w.version.atLeast(410, 310):
		qualifiers = append(qualifiers, fmt.Sprintf("layout(location = %d)", b.Location))
	case !w.version.ES:
		w.requireExtension("GL_ARB_separate_shader_objects")
		qualifiers = append(qualifiers, fmt.Sprintf("layout(location = %d)", b.Location))
	}
	if interStage {
		interp, err := w.interpolation(b, ty)
		if err != nil {
			return varying{}, err
		}
		qualifiers = append(qualifiers, interp...)
	}
	if len(qualifiers) > 0 {
		v.qualifiers = strings.Join(qualifiers, " ") + " "
	}
	return v, nil
}

// interpolation returns the interpolation qualifiers of an inter-stage
// varying. Integers are never interpolated.
func (w *Writer) interpolation(b ir.LocationBinding, ty ir.TypeHandle) ([]string, error) {
	s, _ := scalarOf(w.module.Types[ty].Inner)
	if s.Kind == ir.ScalarSint || s.Kind == ir.ScalarUint {
		return []string{"flat"}, nil
	}
	if b.Interpolation == nil {
		return nil, nil
	}
	var qualifiers []string
	switch b.Interpolation.Kind {
	case ir.InterpolationFlat:
		qualifiers = append(qualifiers, "flat")
	case ir.InterpolationLinear:
		if w.version.ES {
			return nil, ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES has no noperspective interpolation")
		}
		qualifiers = append(qualifiers, "noperspective")
	}
	switch b.Interpolation.Sampling {
	case ir.SamplingCentroid:
		qualifiers = append(qualifiers, "centroid")
	case ir.SamplingSample:
		switch {
		case w.version.ES && !w.version.atLeast(0, 320):
			w.requireExtension("GL_OES_shader_multisample_interpolation")
		case !w.version.ES && !w.version.atLeast(400, 0):
			w.requireExtension("GL_ARB_gpu_shader5")
		}
		qualifiers = append(qualifiers, "sample")
	}
	return qualifiers, nil
}

// requireSampleShading records the extension that exposes the sample
// built-ins below the versions where they are core.
func (w *Writer) requireSampleShading() {
	switch {
	case w.version.ES && !w.version.atLeast(0, 320):
		w.requireExtension("GL_OES_sample_variables")
	case !w.version.ES && !w.version.atLeast(400, 0):
		w.requireExtension("GL_ARB_sample_shading")
	}
}

// builtinInput returns the expression reading an input built-in. GLSL
// declares several of them as int where the IR has u32.
//
//nolint:gocyclo,cyclop // one case per built-in
func (w *Writer) builtinInput(builtin ir.BuiltinValue) (string, error) {
	stage := w.stage
	switch {
	case builtin == ir.BuiltinPosition && stage == ir.StageFragment:
		return "gl_FragCoord", nil
	case builtin == ir.BuiltinVertexIndex && stage == ir.StageVertex:
		if w.options.SeparateSamplers {
			return "uint(gl_VertexIndex)", nil
		}
		return "uint(gl_VertexID)", nil
	case builtin == ir.BuiltinInstanceIndex && stage == ir.StageVertex:
		if w.options.SeparateSamplers {
			return "uint(gl_InstanceIndex)", nil
		}
		return "uint(gl_InstanceID)", nil
	case builtin == ir.BuiltinFrontFacing && stage == ir.StageFragment:
		return "gl_FrontFacing", nil
	case builtin == ir.BuiltinSampleIndex && stage == ir.StageFragment:
		w.requireSampleShading()
		return "uint(gl_SampleID)", nil
	case builtin == ir.BuiltinSampleMask && stage == ir.StageFragment:
		w.requireSampleShading()
		return "uint(gl_SampleMaskIn[0])", nil
	case stage == ir.StageCompute:
		switch builtin {
		case ir.BuiltinLocalInvocationID:
			return "gl_LocalInvocationID", nil
		case ir.BuiltinLocalInvocationIndex:
			return "gl_LocalInvocationIndex", nil
		case ir.BuiltinGlobalInvocationID:
			return "gl_GlobalInvocationID", nil
		case ir.BuiltinWorkGroupID:
			return "gl_WorkGroupID", nil
		case ir.BuiltinNumWorkGroups:
			return "gl_NumWorkGroups", nil
		}
	}
	return "", ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s is not a %s input in GLSL", builtin, stage)
}

// builtinOutput returns the destination of an output built-in.
func (w *Writer) builtinOutput(builtin ir.BuiltinValue) (output, error) {
	switch {
	case builtin == ir.BuiltinPosition && w.stage == ir.StageVertex:
		w.ep.position = true
		return output{target: "gl_Position"}, nil
	case builtin == ir.BuiltinFragDepth && w.stage == ir.StageFragment:
		return output{target: "gl_FragDepth"}, nil
	case builtin == ir.BuiltinSampleMask && w.stage == ir.StageFragment:
		w.requireSampleShading()
		return output{target: "gl_SampleMask[0]", convert: "int("}, nil
	}
	return output{}, ir.Errorf(ir.ErrUnsupportedFeature, "built-in %s is not a %s output in GLSL", builtin, w.stage)
}
