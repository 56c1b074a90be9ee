// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

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

// scalarToGLSL returns the GLSL name for a scalar type.
func scalarToGLSL(t ir.ScalarType) string {
	switch t.Kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarSint:
		return "int"
	case ir.ScalarUint:
		return "uint"
	}
	if t.Width == 8 {
		return "double"
	}
	return "float"
}

// vectorPrefix returns the letter that starts the vector type names of
// a scalar kind.
func vectorPrefix(t ir.ScalarType) string {
	switch t.Kind {
	case ir.ScalarBool:
		return "b"
	case ir.ScalarSint:
		return "i"
	case ir.ScalarUint:
		return "u"
	}
	if t.Width == 8 {
		return "d"
	}
	return ""
}

// vectorToGLSL returns the GLSL name for a vector type.
func vectorToGLSL(t ir.VectorType) string {
	return fmt.Sprintf("%svec%d", vectorPrefix(t.Scalar), t.Size)
}

// matrixToGLSL returns the GLSL name for a matrix type. GLSL matrices
// are column-major like the IR, so matCxR has C columns of R rows.
func matrixToGLSL(t ir.MatrixType) string {
	prefix := ""
	if t.Scalar.Width == 8 {
		prefix = "d"
	}
	if t.Columns == t.Rows {
		return fmt.Sprintf("%smat%d", prefix, t.Columns)
	}
	return fmt.Sprintf("%smat%dx%d", prefix, t.Columns, t.Rows)
}

// dimSuffix spells the dimension part of an opaque type name.
func dimSuffix(img ir.ImageType) string {
	var dim string
	switch img.Dim {
	case ir.Dim1D:
		dim = "1D"
	case ir.Dim2D:
		dim = "2D"
	case ir.Dim3D:
		dim = "3D"
	case ir.DimCube:
		dim = "Cube"
	}
	if img.Multisampled {
		dim += "MS"
	}
	if img.Arrayed {
		dim += "Array"
	}
	return dim
}

// kindPrefix returns the i or u that marks integer opaque types.
func kindPrefix(kind ir.ScalarKind) string {
	switch kind {
	case ir.ScalarSint:
		return "i"
	case ir.ScalarUint:
		return "u"
	}
	return ""
}

// samplerTypeName returns the combined sampler type of an image. Depth
// images are shadow samplers when compared.
func samplerTypeName(img ir.ImageType, comparison bool) string {
	name := kindPrefix(img.SampledKind) + "sampler" + dimSuffix(img)
	if img.Class == ir.ImageClassDepth {
		name = "sampler" + dimSuffix(img)
		if comparison {
			name += "Shadow"
		}
	}
	return name
}

// textureTypeName returns the separate texture type of an image.
func textureTypeName(img ir.ImageType) string {
	if img.Class == ir.ImageClassDepth {
		return "texture" + dimSuffix(img)
	}
	return kindPrefix(img.SampledKind) + "texture" + dimSuffix(img)
}

// storageImageTypeName returns the image type of a storage image.
func storageImageTypeName(img ir.ImageType) string {
	return kindPrefix(img.Format.ScalarKind()) + "image" + dimSuffix(img)
}

// storageFormat returns the layout qualifier of a storage format.
func storageFormat(f ir.StorageFormat) string {
	switch f {
	case ir.FormatRgba8Unorm:
		return "rgba8"
	case ir.FormatRgba8Snorm:
		return "rgba8_snorm"
	case ir.FormatRgba16Float:
		return "rgba16f"
	case ir.FormatRgba32Float:
		return "rgba32f"
	case ir.FormatR32Float:
		return "r32f"
	case ir.FormatR32Uint:
		return "r32ui"
	case ir.FormatR32Sint:
		return "r32i"
	case ir.FormatRg32Float:
		return "rg32f"
	case ir.FormatRgba32Uint:
		return "rgba32ui"
	case ir.FormatRgba32Sint:
		return "rgba32i"
	}
	return "rgba8"
}

// typeName returns the GLSL spelling of an arena type, with array
// dimensions attached to the element type as in constructors.
func (w *Writer) typeName(h ir.TypeHandle) string {
	base, dims := w.typeParts(h)
	return base + dims
}

// declaration declares name with type h, array dimensions last.
func (w *Writer) declaration(h ir.TypeHandle, name string) string {
	base, dims := w.typeParts(h)
	return base + " " + name + dims
}

// typeParts splits a type into its element type and its array
// dimensions, outermost first.
func (w *Writer) typeParts(h ir.TypeHandle) (string, string) {
	var dims strings.Builder
	for {
		arr, ok := w.module.Types[h].Inner.(ir.ArrayType)
		if !ok {
			break
		}
		if arr.Size == nil {
			dims.WriteString("[]")
		} else {
			fmt.Fprintf(&dims, "[%d]", *arr.Size)
		}
		h = arr.Base
	}
	if name, ok := w.typeNames[h]; ok {
		return name, dims.String()
	}
	return w.innerName(w.module.Types[h].Inner), dims.String()
}

// innerName spells types that have no declaration of their own.
func (w *Writer) innerName(inner ir.TypeInner) string {
	switch t := inner.(type) {
	case ir.ScalarType:
		return scalarToGLSL(t)
	case ir.VectorType:
		return vectorToGLSL(t)
	case ir.MatrixType:
		return matrixToGLSL(t)
	case ir.ValuePointerType:
		if t.Size == 0 {
			return scalarToGLSL(t.Scalar)
		}
		return vectorToGLSL(ir.VectorType{Size: t.Size, Scalar: t.Scalar})
	case ir.PointerType:
		return w.typeName(t.Base)
	case ir.ArrayType:
		return w.typeName(t.Base) + "[]"
	case ir.ImageType:
		if t.Class == ir.ImageClassStorage {
			return storageImageTypeName(t)
		}
		return textureTypeName(t)
	case ir.SamplerType:
		if t.Comparison {
			return "samplerShadow"
		}
		return "sampler"
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

// containsRuntimeArray reports whether ty is a struct ending in a
// runtime-sized array. Such structs only exist as buffer blocks.
func (w *Writer) containsRuntimeArray(ty ir.TypeHandle) bool {
	st, ok := w.module.Types[ty].Inner.(ir.StructType)
	if !ok || len(st.Members) == 0 {
		return false
	}
	arr, ok := w.module.Types[st.Members[len(st.Members)-1].Type].Inner.(ir.ArrayType)
	return ok && arr.IsRuntimeSized()
}

// layoutRule is a buffer block memory layout.
type layoutRule uint8

const (
	std430 layoutRule = iota
	std140
)

func (r layoutRule) String() string {
	if r == std140 {
		return "std140"
	}
	return "std430"
}

func alignTo(value, align uint32) uint32 {
	return (value + align - 1) / align * align
}

// blockLayout returns the alignment and size of ty in a buffer block.
// std140 rounds the alignment of arrays and structs up to 16 bytes.
func (w *Writer) blockLayout(ty ir.TypeHandle, rule layoutRule) (uint32, uint32) {
	return w.innerBlockLayout(w.module.Types[ty].Inner, rule)
}

func (w *Writer) innerBlockLayout(inner ir.TypeInner, rule layoutRule) (uint32, uint32) {
	switch t := inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width), uint32(t.Width)
	case ir.VectorType:
		return vectorAlign(t), uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.MatrixType:
		column := ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
		align := vectorAlign(column)
		if rule == std140 {
			align = alignTo(align, 16)
		}
		stride := alignTo(uint32(t.Rows)*uint32(t.Scalar.Width), align)
		return align, stride * uint32(t.Columns)
	case ir.ArrayType:
		align, stride := w.arrayStride(t, rule)
		if t.Size == nil {
			return align, 0
		}
		return align, stride * *t.Size
	case ir.StructType:
		var align uint32 = 1
		var end uint32
		for _, m := range t.Members {
			a, size := w.blockLayout(m.Type, rule)
			align = max(align, a)
			end = m.Offset + size
		}
		if rule == std140 {
			align = alignTo(align, 16)
		}
		return align, alignTo(end, align)
	}
	return 4, 4
}

func vectorAlign(v ir.VectorType) uint32 {
	if v.Size == ir.Vec2 {
		return 2 * uint32(v.Scalar.Width)
	}
	return 4 * uint32(v.Scalar.Width)
}

// arrayStride returns the alignment and element stride of an array.
func (w *Writer) arrayStride(arr ir.ArrayType, rule layoutRule) (uint32, uint32) {
	align, size := w.blockLayout(arr.Base, rule)
	if rule == std140 {
		align = alignTo(align, 16)
	}
	return align, alignTo(size, align)
}

// blockRules collects, per type, the layout rules of the buffer blocks
// that contain it: std140 for uniform blocks and std430 for storage.
func (w *Writer) blockRules() map[ir.TypeHandle][]layoutRule {
	rules := make(map[ir.TypeHandle][]layoutRule)
	var visit func(ty ir.TypeHandle, rule layoutRule)
	visit = func(ty ir.TypeHandle, rule layoutRule) {
		for _, r := range rules[ty] {
			if r == rule {
				return
			}
		}
		rules[ty] = append(rules[ty], rule)
		switch t := w.module.Types[ty].Inner.(type) {
		case ir.StructType:
			for _, m := range t.Members {
				visit(m.Type, rule)
			}
		case ir.ArrayType:
			visit(t.Base, rule)
		}
	}
	for g := range w.blockNames {
		global := &w.module.GlobalVariables[g]
		rule := std140
		if global.Space == ir.SpaceStorage {
			rule = std430
		}
		visit(global.Type, rule)
	}
	return rules
}

// writeTypes declares structs in handle order, which puts every struct
// after the types it contains. Structs ending in a runtime-sized array
// are written as the body of their buffer block instead.
func (w *Writer) writeTypes() error {
	rules := w.blockRules()
	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		switch inner := t.Inner.(type) {
		case ir.StructType:
			if w.containsRuntimeArray(h) {
				if err := w.checkMembers(h, inner, rules[h]); err != nil {
					return err
				}
				continue
			}
			w.writeLine("struct %s {", w.typeNames[h])
			w.pushIndent()
			if err := w.writeMembers(h, inner, rules[h]); err != nil {
				return err
			}
			w.popIndent()
			w.writeLine("};")
			w.writeLine("")
		case ir.ArrayType:
			for _, rule := range rules[h] {
				if _, stride := w.arrayStride(inner, rule); inner.Stride != 0 && stride != inner.Stride {
					return ir.Errorf(ir.ErrUnsupportedFeature, "array stride %d cannot be expressed in a %s block, which uses %d", inner.Stride, rule, stride).WithType(h)
				}
			}
		}
	}
	return nil
}

// writeMembers writes the members of a struct or buffer block. Members
// that the block layout would place before their offset are preceded by
// padding scalars.
func (w *Writer) writeMembers(h ir.TypeHandle, st ir.StructType, rules []layoutRule) error {
	if err := w.checkMembers(h, st, rules); err != nil {
		return err
	}
	pads := w.structPads[h]
	for i, m := range st.Members {
		for k := range pads[i] {
			w.writeLine("uint _pad%d_%d;", i, k)
		}
		w.writeLine("%s;", w.declaration(m.Type, w.memberName(h, i)))
	}
	return nil
}

// checkMembers computes the padding of a struct under the first of its
// layout rules and verifies that every rule then places each member at
// its offset.
func (w *Writer) checkMembers(h ir.TypeHandle, st ir.StructType, rules []layoutRule) error {
	if _, done := w.structPads[h]; done {
		return nil
	}
	pads := make(map[int]int)
	w.structPads[h] = pads
	for n, rule := range rules {
		var offset uint32
		for i, m := range st.Members {
			align, size := w.blockLayout(m.Type, rule)
			offset += uint32(pads[i]) * 4 //nolint:gosec // G115: padding count
			placed := alignTo(offset, align)
			if n == 0 && placed < m.Offset && (m.Offset-offset)%4 == 0 {
				count := (m.Offset - offset) / 4
				pads[i] = int(count)
				offset += count * 4
				placed = alignTo(offset, align)
			}
			if placed != m.Offset {
				return ir.Errorf(ir.ErrUnsupportedFeature, "member %q at offset %d cannot be placed in a %s block, which puts it at %d", m.Name, m.Offset, rule, placed).WithType(h)
			}
			offset = placed + size
		}
	}
	return nil
}

// writeConstants declares the named constants.
func (w *Writer) writeConstants() error {
	wrote := false
	for i, c := range w.module.Constants {
		if c.Name == "" {
			continue
		}
		h := ir.ConstantHandle(i) //nolint:gosec // G115: arena index
		value, err := w.constantValue(h)
		if err != nil {
			return err
		}
		w.writeLine("const %s = %s;", w.declaration(c.Type, w.name(back.NameConstant, uint32(h), 0)), value)
		wrote = true
	}
	if wrote {
		w.writeLine("")
	}
	return nil
}

// constantRef returns the name of a named constant or its value.
func (w *Writer) constantRef(h ir.ConstantHandle) (string, error) {
	if w.module.Constants[h].Name != "" {
		return w.name(back.NameConstant, uint32(h), 0), nil
	}
	return w.constantValue(h)
}

// constantValue spells a constant's value. Composites are constructor
// calls, padded like their struct.
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
		return fmt.Sprintf("%s(%s)", w.typeName(c.Type), strings.Join(parts, ", ")), nil
	}
	return "", ir.Errorf(ir.ErrTypeMismatch, "unknown constant value %T", c.Value).WithConstant(h)
}

// zeroValue spells the zero value of a type.
func (w *Writer) zeroValue(ty ir.TypeHandle) string {
	switch t := w.module.Types[ty].Inner.(type) {
	case ir.StructType:
		parts := make([]string, 0, len(t.Members))
		pads := w.structPads[ty]
		for i, m := range t.Members {
			for range pads[i] {
				parts = append(parts, "0u")
			}
			parts = append(parts, w.zeroValue(m.Type))
		}
		return fmt.Sprintf("%s(%s)", w.typeName(ty), strings.Join(parts, ", "))
	case ir.ArrayType:
		n := uint32(0)
		if t.Size != nil {
			n = *t.Size
		}
		elem := w.zeroValue(t.Base)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = elem
		}
		return fmt.Sprintf("%s(%s)", w.typeName(ty), strings.Join(parts, ", "))
	default:
		return w.innerZeroValue(t)
	}
}

func (w *Writer) innerZeroValue(inner ir.TypeInner) string {
	s, ok := scalarOf(inner)
	if !ok {
		return "0"
	}
	zero, _ := scalarLiteral(s, 0)
	if _, scalar := inner.(ir.ScalarType); scalar {
		return zero
	}
	return fmt.Sprintf("%s(%s)", w.innerName(inner), zero)
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
		return "", ir.Errorf(ir.ErrUnsupportedFeature, "no GLSL literal for %d-byte floats", s.Width)
	case ir.ScalarSint:
		if s.Width == 8 {
			return "", ir.Errorf(ir.ErrUnsupportedFeature, "GLSL has no 64-bit integers")
		}
		return intLiteral(int32(uint32(bits))), nil //nolint:gosec // G115: bit reinterpretation
	case ir.ScalarUint:
		if s.Width == 8 {
			return "", ir.Errorf(ir.ErrUnsupportedFeature, "GLSL has no 64-bit integers")
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
		return fmt.Sprintf("uintBitsToFloat(0x%08xu)", math.Float32bits(f))
	}
	return back.FloatLiteral(float64(f), 32)
}

func doubleLiteral(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		bits := math.Float64bits(f)
		return fmt.Sprintf("packDouble2x32(uvec2(0x%08xu, 0x%08xu))", uint32(bits), uint32(bits>>32)) //nolint:gosec // G115: halves of the payload
	}
	return back.FloatLiteral(f, 64) + "LF"
}

// intLiteral spells an i32. The minimum has no positive counterpart, so
// it is written as an expression.
func intLiteral(v int32) string {
	if v == math.MinInt32 {
		return "(-2147483647 - 1)"
	}
	return strconv.FormatInt(int64(v), 10)
}
