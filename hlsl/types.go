// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

func scalarOf(inner ir.TypeInner) (ir.ScalarType, bool) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return t, true
	case ir.VectorType:
		return t.Scalar, true
	case ir.MatrixType:
		return t.Scalar, true
	case ir.ValuePointerType:
		return t.Scalar, true
	}
	return ir.ScalarType{}, false
}

// typeName returns the HLSL spelling of an arena type usable in a
// declaration. Runtime-sized arrays spell as their element type.
func (w *Writer) typeName(h ir.TypeHandle) string {
	if name, ok := w.typeNames[h]; ok {
		return name
	}
	inner := w.module.Types[h].Inner
	if arr, ok := inner.(ir.ArrayType); ok {
		return w.typeName(arr.Base)
	}
	return w.innerName(inner)
}

// innerName spells types that have no declaration of their own.
func (w *Writer) innerName(inner ir.TypeInner) string {
	switch t := inner.(type) {
	case ir.ScalarType:
		return ScalarToHLSL(t)
	case ir.VectorType:
		return VectorToHLSL(t)
	case ir.MatrixType:
		return MatrixToHLSL(t)
	case ir.ImageType:
		return ImageToHLSL(t)
	case ir.SamplerType:
		return SamplerToHLSL(t.Comparison)
	case ir.BindingArrayType:
		return w.typeName(t.Base)
	case ir.ValuePointerType:
		if t.Size == 0 {
			return ScalarToHLSL(t.Scalar)
		}
		return VectorToHLSL(ir.VectorType{Size: t.Size, Scalar: t.Scalar})
	case ir.PointerType:
		return w.typeName(t.Base)
	}
	return "void"
}

// resolutionName spells the type of an expression.
func (w *Writer) resolutionName(res ir.TypeResolution) string {
	if res.Handle != nil {
		return w.typeName(*res.Handle)
	}
	return w.innerName(res.Value)
}

// containsRuntimeArray reports whether ty is a runtime-sized array or a
// struct ending in one. Such types only live in byte address buffers
// and get no declaration.
func (w *Writer) containsRuntimeArray(ty ir.TypeHandle) bool {
	switch t := w.module.Types[ty].Inner.(type) {
	case ir.ArrayType:
		return t.IsRuntimeSized()
	case ir.StructType:
		if len(t.Members) == 0 {
			return false
		}
		return w.containsRuntimeArray(t.Members[len(t.Members)-1].Type)
	}
	return false
}

// writeTypes declares structs and array typedefs in handle order, which
// puts every type after the types it contains.
func (w *Writer) writeTypes() error {
	cbufferTypes := w.cbufferTypes()
	wrote := false
	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		switch inner := t.Inner.(type) {
		case ir.StructType:
			if w.containsRuntimeArray(h) {
				continue
			}
			if err := w.writeStruct(h, inner, cbufferTypes[h]); err != nil {
				return err
			}
			wrote = true
		case ir.ArrayType:
			if inner.IsRuntimeSized() {
				continue
			}
			w.writeLine("typedef %s %s[%d];", w.typeName(inner.Base), w.typeNames[h], *inner.Size)
			wrote = true
		}
	}
	if wrote {
		w.writeLine("")
	}
	return nil
}

// cbufferTypes collects the types that appear inside the constant
// buffers of the entry point.
func (w *Writer) cbufferTypes() map[ir.TypeHandle]bool {
	set := make(map[ir.TypeHandle]bool)
	var visit func(ty ir.TypeHandle)
	visit = func(ty ir.TypeHandle) {
		if set[ty] {
			return
		}
		set[ty] = true
		switch t := w.module.Types[ty].Inner.(type) {
		case ir.StructType:
			for _, m := range t.Members {
				visit(m.Type)
			}
		case ir.ArrayType:
			visit(t.Base)
		}
	}
	for g := range w.blockNames {
		visit(w.module.GlobalVariables[g].Type)
	}
	return set
}

// writeStruct declares a struct. Members are laid out by the constant
// buffer packing rules, with padding scalars where the IR offset is past
// the packed one. Matrices are row_major so a row holds one IR column.
func (w *Writer) writeStruct(h ir.TypeHandle, st ir.StructType, inCBuffer bool) error {
	pads := make(map[int]int)
	w.structPads[h] = pads

	w.writeLine("struct %s {", w.typeNames[h])
	w.pushIndent()
	var offset uint32
	for i, m := range st.Members {
		placed := w.cbufferPlace(offset, m.Type)
		if placed < m.Offset {
			count := (m.Offset - placed) / 4
			for k := range count {
				w.writeLine("uint _pad%d_%d;", i, k)
			}
			pads[i] = int(count)
			placed = w.cbufferPlace(placed+count*4, m.Type)
		}
		if placed != m.Offset && inCBuffer {
			return ir.Errorf(ir.ErrUnsupportedFeature, "member %q at offset %d cannot be placed in a constant buffer, which packs it at %d", m.Name, m.Offset, placed).WithType(h)
		}
		w.writeLine("%s;", w.memberDecl(m.Type, w.memberName(h, i)))
		offset = placed + w.cbufferSize(m.Type)
	}
	w.popIndent()
	w.writeLine("};")
	return nil
}

// memberDecl declares a struct or cbuffer member.
func (w *Writer) memberDecl(ty ir.TypeHandle, name string) string {
	prefix := ""
	inner := w.module.Types[ty].Inner
	if arr, ok := inner.(ir.ArrayType); ok {
		inner = w.module.Types[arr.Base].Inner
	}
	if _, ok := inner.(ir.MatrixType); ok {
		prefix = "row_major "
	}
	return prefix + w.typeName(ty) + " " + name
}

// cbufferPlace returns where a constant buffer puts a value of type ty
// when the previous member ends at offset. Aggregates start a new
// register and nothing else may straddle one.
func (w *Writer) cbufferPlace(offset uint32, ty ir.TypeHandle) uint32 {
	switch w.module.Types[ty].Inner.(type) {
	case ir.StructType, ir.ArrayType, ir.MatrixType:
		return alignTo(offset, 16)
	}
	offset = alignTo(offset, 4)
	size := w.cbufferSize(ty)
	if offset/16 != (offset+size-1)/16 {
		return alignTo(offset, 16)
	}
	return offset
}

// cbufferSize is the number of bytes a constant buffer gives a value of
// type ty, without the tail padding of its last register.
func (w *Writer) cbufferSize(ty ir.TypeHandle) uint32 {
	switch t := w.module.Types[ty].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.MatrixType:
		return 16*uint32(t.Columns-1) + uint32(t.Rows)*uint32(t.Scalar.Width)
	case ir.ArrayType:
		if t.Size == nil || *t.Size == 0 {
			return 0
		}
		return 16*(*t.Size-1) + w.cbufferSize(t.Base)
	case ir.StructType:
		var end uint32
		for _, m := range t.Members {
			end = w.cbufferPlace(end, m.Type) + w.cbufferSize(m.Type)
		}
		return end
	}
	return w.info.Layouts.Layout(ty).Size
}

func alignTo(value, align uint32) uint32 {
	return (value + align - 1) / align * align
}

// writeConstants declares the named constants and the composite ones
// expressions refer to.
func (w *Writer) writeConstants() error {
	wrote := false
	for i, c := range w.module.Constants {
		h := ir.ConstantHandle(i) //nolint:gosec // G115: arena index
		name := ""
		switch {
		case c.Name != "":
			name = w.name(back.NameConstant, uint32(h), 0)
		case w.constNames[h] != "":
			name = w.constNames[h]
		default:
			continue
		}
		value, err := w.constantValue(h)
		if err != nil {
			return err
		}
		w.writeLine("static const %s %s = %s;", w.typeName(c.Type), name, value)
		wrote = true
	}
	if wrote {
		w.writeLine("")
	}
	return nil
}

// constantRef returns the name of a declared constant or its value.
func (w *Writer) constantRef(h ir.ConstantHandle) (string, error) {
	if w.module.Constants[h].Name != "" {
		return w.name(back.NameConstant, uint32(h), 0), nil
	}
	if name, ok := w.constNames[h]; ok {
		return name, nil
	}
	return w.constantValue(h)
}

// constantValue spells a constant's value. Structs and arrays spell as
// initializer lists, which are only valid in declarations.
func (w *Writer) constantValue(h ir.ConstantHandle) (string, error) {
	c := &w.module.Constants[h]
	switch v := c.Value.(type) {
	case ir.ScalarValue:
		s, _ := scalarOf(w.module.Types[c.Type].Inner)
		lit, err := scalarLiteral(s, v.Bits)
		if err != nil {
			return "", err.WithConstant(h)
		}
		return lit, nil
	case ir.CompositeValue:
		parts := make([]string, 0, len(v.Components))
		pads := w.structPads[c.Type]
		for i, comp := range v.Components {
			for range pads[i] {
				parts = append(parts, "0u")
			}
			part, err := w.constantRef(comp)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		switch t := w.module.Types[c.Type].Inner.(type) {
		case ir.StructType, ir.ArrayType:
			return "{ " + strings.Join(parts, ", ") + " }", nil
		default:
			return fmt.Sprintf("%s(%s)", w.innerName(t), strings.Join(parts, ", ")), nil
		}
	}
	return "", ir.Errorf(ir.ErrTypeMismatch, "unknown constant value %T", c.Value).WithConstant(h)
}

// scalarLiteral spells a scalar given its bit pattern.
func scalarLiteral(s ir.ScalarType, bits uint64) (string, *ir.Error) {
	switch s.Kind {
	case ir.ScalarFloat:
		switch s.Width {
		case 4:
			return floatLiteral(math.Float32frombits(uint32(bits))), nil //nolint:gosec // G115: 32-bit payload
		case 8:
			return doubleLiteral(math.Float64frombits(bits)), nil
		}
		return "", ir.Errorf(ir.ErrUnsupportedFeature, "no HLSL literal for %d-byte floats", s.Width)
	case ir.ScalarSint:
		if s.Width == 8 {
			return strconv.FormatInt(int64(bits), 10) + "L", nil //nolint:gosec // G115: bit reinterpretation
		}
		return intLiteral(int32(uint32(bits))), nil //nolint:gosec // G115: bit reinterpretation
	case ir.ScalarUint:
		if s.Width == 8 {
			return strconv.FormatUint(bits, 10) + "uL", nil
		}
		return strconv.FormatUint(bits&0xffffffff, 10) + "u", nil
	case ir.ScalarBool:
		if bits != 0 {
			return "true", nil
		}
		return "false", nil
	}
	return "", ir.Errorf(ir.ErrTypeMismatch, "unknown scalar kind %s", s.Kind)
}

// floatLiteral spells an f32. Values without a literal form are written
// as their bit pattern.
func floatLiteral(f float32) string {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return fmt.Sprintf("asfloat(0x%08xu)", math.Float32bits(f))
	}
	return back.FloatLiteral(float64(f), 32)
}

func doubleLiteral(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		bits := math.Float64bits(f)
		return fmt.Sprintf("asdouble(0x%08xu, 0x%08xu)", uint32(bits), uint32(bits>>32)) //nolint:gosec // G115: halves of the payload
	}
	return back.FloatLiteral(f, 64) + "L"
}

// intLiteral spells an i32. The minimum has no positive counterpart, so
// it is written as an expression.
func intLiteral(v int32) string {
	if v == math.MinInt32 {
		return "(-2147483647 - 1)"
	}
	return strconv.FormatInt(int64(v), 10)
}

// writeGlobals declares the globals the entry point uses. Resources get
// their register, uniform blocks become cbuffers and storage buffers
// become byte address buffers.
func (w *Writer) writeGlobals() error {
	globals := back.EntryPointGlobals(w.module, w.info, w.entry)
	for _, g := range globals {
		if err := w.writeGlobal(g); err != nil {
			return err
		}
	}
	if len(globals) > 0 {
		w.writeLine("")
	}
	return nil
}

func (w *Writer) writeGlobal(g ir.GlobalVariableHandle) error {
	global := &w.module.GlobalVariables[g]
	name := w.globalName(g)

	switch global.Space {
	case ir.SpacePrivate, ir.SpaceFunction:
		init := "(" + w.typeName(global.Type) + ")0"
		if global.Init != nil {
			value, err := w.constantRef(*global.Init)
			if err != nil {
				return err
			}
			init = value
		}
		w.writeLine("static %s %s = %s;", w.typeName(global.Type), name, init)
		return nil
	case ir.SpaceWorkGroup:
		w.writeLine("groupshared %s %s;", w.typeName(global.Type), name)
		return nil
	}

	target, err := w.bindTarget(g)
	if err != nil {
		return err
	}
	rt := registerType(w.module, global)
	register := formatRegister(rt, target, w.options.ShaderModel)
	w.registers[name] = strings.TrimPrefix(register, " : ")

	switch global.Space {
	case ir.SpaceUniform, ir.SpacePushConstant:
		w.writeLine("cbuffer %s%s {", w.blockNames[g], register)
		w.pushIndent()
		w.writeLine("%s;", w.memberDecl(global.Type, name))
		w.popIndent()
		w.writeLine("}")
	case ir.SpaceStorage:
		buffer := "RWByteAddressBuffer"
		if rt == RegisterTypeT {
			buffer = "ByteAddressBuffer"
		}
		w.writeLine("%s %s%s;", buffer, name, register)
	default:
		suffix := ""
		if ba, ok := w.module.Types[global.Type].Inner.(ir.BindingArrayType); ok {
			size := ba.Size
			if target.BindingArraySize != nil {
				size = target.BindingArraySize
			}
			if size == nil {
				if !w.options.ShaderModel.SupportsUnboundedArrays() {
					return ir.Errorf(ir.ErrUnsupportedFeature, "unbounded binding arrays need Shader Model 5.1, have %s", w.options.ShaderModel).WithGlobal(g)
				}
				suffix = "[]"
			} else {
				suffix = fmt.Sprintf("[%d]", *size)
			}
		}
		w.writeLine("%s %s%s%s;", w.typeName(global.Type), name, suffix, register)
	}
	return nil
}

// bindTarget finds the register of a resource global.
func (w *Writer) bindTarget(g ir.GlobalVariableHandle) (BindTarget, error) {
	global := &w.module.GlobalVariables[g]
	if global.Space == ir.SpacePushConstant {
		if w.options.PushConstantsTarget == nil {
			return BindTarget{}, ir.Errorf(ir.ErrUnsupportedFeature, "global %q is a push constant block but no push constants target is set", global.Name).WithGlobal(g)
		}
		return *w.options.PushConstantsTarget, nil
	}
	if global.Binding == nil {
		return BindTarget{}, ir.Errorf(ir.ErrUnsupportedFeature, "resource %q has no binding", global.Name).WithGlobal(g)
	}
	if target, ok := w.options.BindingMap[*global.Binding]; ok {
		return target, nil
	}
	if !w.options.FakeMissingBindings {
		return BindTarget{}, ir.Errorf(ir.ErrUnsupportedFeature, "global %q at %s is missing from the binding map", global.Name, global.Binding).WithGlobal(g)
	}
	target, err := directTarget(*global.Binding)
	if err != nil {
		return BindTarget{}, err.WithGlobal(g)
	}
	return target, nil
}
