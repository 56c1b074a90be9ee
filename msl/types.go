package msl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Namespace is the MSL standard library namespace prefix.
const Namespace = "metal::"

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

// scalarTypeName returns the MSL name for a scalar type.
func scalarTypeName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width == 2 {
			return "half"
		}
		return "float"
	case ir.ScalarSint:
		if s.Width == 8 {
			return "long"
		}
		return "int"
	case ir.ScalarUint:
		if s.Width == 8 {
			return "ulong"
		}
		return "uint"
	case ir.ScalarBool:
		return "bool"
	}
	return "int"
}

// vectorTypeName returns e.g. "metal::float4".
func vectorTypeName(v ir.VectorType) string {
	return fmt.Sprintf("%s%s%d", Namespace, scalarTypeName(v.Scalar), v.Size)
}

// matrixTypeName returns e.g. "metal::float4x4"; columns come first.
func matrixTypeName(m ir.MatrixType) string {
	return fmt.Sprintf("%s%s%dx%d", Namespace, scalarTypeName(m.Scalar), m.Columns, m.Rows)
}

func packedVectorTypeName(v ir.VectorType) string {
	return fmt.Sprintf("%spacked_%s%d", Namespace, scalarTypeName(v.Scalar), v.Size)
}

// addressSpaceName returns the MSL address space qualifier.
func addressSpaceName(space ir.AddressSpace) string {
	switch space {
	case ir.SpaceWorkGroup:
		return "threadgroup"
	case ir.SpaceUniform, ir.SpacePushConstant:
		return "constant"
	case ir.SpaceStorage:
		return "device"
	default:
		return "thread"
	}
}

// typeName returns the MSL spelling of an arena type usable in a
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
		return scalarTypeName(t)
	case ir.VectorType:
		return vectorTypeName(t)
	case ir.MatrixType:
		return matrixTypeName(t)
	case ir.ImageType:
		return imageTypeName(t)
	case ir.SamplerType:
		return Namespace + "sampler"
	case ir.BindingArrayType:
		size := uint32(0)
		if t.Size != nil {
			size = *t.Size
		}
		return fmt.Sprintf("%sarray<%s, %d>", Namespace, w.typeName(t.Base), size)
	case ir.ValuePointerType:
		if t.Size == 0 {
			return scalarTypeName(t.Scalar)
		}
		return vectorTypeName(ir.VectorType{Size: t.Size, Scalar: t.Scalar})
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

// imageTypeName returns the MSL texture type name.
func imageTypeName(img ir.ImageType) string {
	var builder strings.Builder
	builder.WriteString(Namespace)

	if img.Class == ir.ImageClassDepth {
		builder.WriteString("depth")
	} else {
		builder.WriteString("texture")
	}
	switch img.Dim {
	case ir.Dim1D:
		builder.WriteString("1d")
	case ir.Dim2D:
		builder.WriteString("2d")
	case ir.Dim3D:
		builder.WriteString("3d")
	case ir.DimCube:
		builder.WriteString("cube")
	}
	if img.Multisampled {
		builder.WriteString("_ms")
	}
	if img.Arrayed && img.Dim != ir.Dim3D {
		builder.WriteString("_array")
	}

	sampleType := "float"
	access := "sample"
	switch img.Class {
	case ir.ImageClassSampled:
		sampleType = scalarTypeName(ir.ScalarType{Kind: img.SampledKind, Width: 4})
		if img.Multisampled {
			access = "read"
		}
	case ir.ImageClassStorage:
		sampleType = scalarTypeName(ir.ScalarType{Kind: img.Format.ScalarKind(), Width: 4})
		switch img.Access {
		case ir.StorageLoad:
			access = "read"
		case ir.StorageStore:
			access = "write"
		default:
			access = "read_write"
		}
	}
	return fmt.Sprintf("%s<%s, %saccess::%s>", builder.String(), sampleType, Namespace, access)
}

// writeTypes declares structs and array wrappers in handle order, which
// puts every type after the types it contains.
func (w *Writer) writeTypes() error {
	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		switch inner := t.Inner.(type) {
		case ir.StructType:
			w.writeStruct(h, inner)
		case ir.ArrayType:
			if inner.IsRuntimeSized() {
				continue
			}
			w.writeLine("struct %s {", w.typeNames[h])
			w.pushIndent()
			w.writeLine("%s inner[%d];", w.typeName(inner.Base), *inner.Size)
			w.popIndent()
			w.writeLine("};")
		}
	}
	return nil
}

// writeStruct declares a struct whose members sit at their IR offsets.
// Gaps become char arrays, and three-component vectors that would not
// fit at their natural 16-byte alignment are packed.
func (w *Writer) writeStruct(h ir.TypeHandle, st ir.StructType) {
	pads := make(map[int]bool)
	packed := make(map[int]bool)
	w.structPads[h] = pads
	w.packed[h] = packed

	w.writeLine("struct %s {", w.typeNames[h])
	w.pushIndent()
	var offset uint32
	runtimeTail := false
	for i, m := range st.Members {
		if m.Offset > offset {
			w.writeLine("char _pad%d[%d];", i, m.Offset-offset)
			pads[i] = true
		}
		offset = m.Offset
		name := w.memberName(h, i)
		inner := w.module.Types[m.Type].Inner

		if arr, ok := inner.(ir.ArrayType); ok && arr.IsRuntimeSized() {
			w.writeLine("%s %s[1];", w.typeName(arr.Base), name)
			runtimeTail = true
			continue
		}
		if v, ok := inner.(ir.VectorType); ok && w.needsPacking(st, i, v) {
			w.writeLine("%s %s;", packedVectorTypeName(v), name)
			packed[i] = true
			offset += uint32(v.Scalar.Width) * 3
			continue
		}
		w.writeLine("%s %s;", w.typeName(m.Type), name)
		offset += w.mslSize(m.Type)
	}
	if !runtimeTail && st.Span > offset {
		w.writeLine("char _pad%d[%d];", len(st.Members), st.Span-offset)
	}
	w.popIndent()
	w.writeLine("};")
}

// needsPacking reports whether a vec3 member is too tightly laid out for
// the 16-byte metal::float3.
func (w *Writer) needsPacking(st ir.StructType, index int, v ir.VectorType) bool {
	if v.Size != ir.Vec3 || v.Scalar.Kind == ir.ScalarBool {
		return false
	}
	full := uint32(v.Scalar.Width) * 4
	m := st.Members[index]
	if m.Offset%full != 0 {
		return true
	}
	end := st.Span
	if index+1 < len(st.Members) {
		end = st.Members[index+1].Offset
	}
	return end < m.Offset+full
}

// mslSize is the size Metal gives a type, which differs from the IR
// layout for three-component vectors and matrices with three rows.
func (w *Writer) mslSize(h ir.TypeHandle) uint32 {
	switch t := w.module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.VectorType:
		if t.Size == ir.Vec2 {
			return uint32(t.Scalar.Width) * 2
		}
		return uint32(t.Scalar.Width) * 4
	case ir.MatrixType:
		rows := uint32(4)
		if t.Rows == ir.Vec2 {
			rows = 2
		}
		return uint32(t.Columns) * rows * uint32(t.Scalar.Width)
	case ir.ArrayType:
		if t.Size == nil {
			return 0
		}
		return *t.Size * w.mslSize(t.Base)
	case ir.StructType:
		return t.Span
	}
	return w.info.Layouts.Layout(h).Size
}

// writeConstants declares the named module constants.
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
		w.writeLine("constant %s %s = %s;", w.typeName(c.Type), w.name(back.NameConstant, uint32(h), 0), value)
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

// constantValue spells a constant's value.
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
		parts := make([]string, len(v.Components))
		for i, comp := range v.Components {
			part, err := w.constantRef(comp)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		return w.composite(c.Type, parts), nil
	}
	return "", ir.Errorf(ir.ErrTypeMismatch, "unknown constant value %T", c.Value).WithConstant(h)
}

// composite spells a constructor of type ty from already spelled parts.
func (w *Writer) composite(ty ir.TypeHandle, parts []string) string {
	switch t := w.module.Types[ty].Inner.(type) {
	case ir.StructType:
		pads := w.structPads[ty]
		var fields []string
		for i, p := range parts {
			if pads[i] {
				fields = append(fields, "{}")
			}
			fields = append(fields, p)
		}
		return fmt.Sprintf("%s {%s}", w.typeName(ty), strings.Join(fields, ", "))
	case ir.ArrayType:
		return fmt.Sprintf("%s {{%s}}", w.typeName(ty), strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s(%s)", w.innerName(t), strings.Join(parts, ", "))
	}
}

// scalarLiteral spells a scalar given its bit pattern.
func scalarLiteral(s ir.ScalarType, bits uint64) (string, *ir.Error) {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width != 4 {
			return "", ir.Errorf(ir.ErrUnsupportedFeature, "MSL has no %d-byte float literal", s.Width)
		}
		return floatLiteral(math.Float32frombits(uint32(bits))), nil //nolint:gosec // G115: 32-bit payload
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

func floatLiteral(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NAN"
	case math.IsInf(float64(f), 1):
		return "INFINITY"
	case math.IsInf(float64(f), -1):
		return "-INFINITY"
	}
	return back.FloatLiteral(float64(f), 32)
}

// intLiteral spells an i32. The minimum has no positive counterpart, so
// it is written as an expression.
func intLiteral(v int32) string {
	if v == math.MinInt32 {
		return "(-2147483647 - 1)"
	}
	return strconv.FormatInt(int64(v), 10)
}
