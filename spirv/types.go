package spirv

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"github.com/gogpu/shadercross/ir"
)

// emitTypes declares every IR type in handle order.
func (b *Backend) emitTypes() error {
	for h := range b.module.Types {
		handle := ir.TypeHandle(h) //nolint:gosec // G115: arena index
		if _, ok := b.module.Types[h].Inner.(ir.ValuePointerType); ok {
			return ir.Errorf(ir.ErrUnsupportedFeature, "value pointer type cannot be declared").WithType(handle)
		}
		b.typeID(handle)
	}
	return nil
}

// typeID returns the ID of an arena type, declaring it on first use.
func (b *Backend) typeID(h ir.TypeHandle) uint32 {
	if id := b.typeIDs[h]; id != 0 {
		return id
	}
	ty := &b.module.Types[h]
	var id uint32
	switch t := ty.Inner.(type) {
	case ir.StructType:
		id = b.structType(h, t)
	case ir.ArrayType:
		id = b.arrayType(t)
	default:
		id = b.innerTypeID(t)
	}
	b.typeIDs[h] = id
	return id
}

// resolutionTypeID returns the ID for an expression's resolved type.
func (b *Backend) resolutionTypeID(res ir.TypeResolution) uint32 {
	if res.Handle != nil {
		return b.typeID(*res.Handle)
	}
	return b.innerTypeID(res.Value)
}

// innerTypeID declares a type that needs no per-handle decorations.
// Structs and arrays always come from the arena and go through typeID.
func (b *Backend) innerTypeID(inner ir.TypeInner) uint32 {
	switch t := inner.(type) {
	case ir.ScalarType:
		return b.scalarTypeID(t)
	case ir.VectorType:
		return b.vectorTypeID(t.Scalar, t.Size)
	case ir.MatrixType:
		column := b.vectorTypeID(t.Scalar, t.Rows)
		return b.dedupType(OpTypeMatrix, column, uint32(t.Columns))
	case ir.PointerType:
		return b.pointerTypeID(addressSpaceToStorageClass(t.Space), b.typeID(t.Base))
	case ir.ValuePointerType:
		var pointee uint32
		if t.Size == 0 {
			pointee = b.scalarTypeID(t.Scalar)
		} else {
			pointee = b.vectorTypeID(t.Scalar, t.Size)
		}
		return b.pointerTypeID(addressSpaceToStorageClass(t.Space), pointee)
	case ir.ImageType:
		return b.imageTypeID(t)
	case ir.SamplerType:
		return b.dedupType(OpTypeSampler)
	case ir.BindingArrayType:
		base := b.typeID(t.Base)
		if t.Size == nil {
			b.require(CapabilityRuntimeDescriptorArray)
			b.extensions["SPV_EXT_descriptor_indexing"] = true
			return b.dedupType(OpTypeRuntimeArray, base)
		}
		return b.dedupType(OpTypeArray, base, b.u32Constant(*t.Size))
	default:
		panic(fmt.Sprintf("spirv: no inline declaration for %T", inner))
	}
}

func (b *Backend) scalarTypeID(s ir.ScalarType) uint32 {
	bits := uint32(s.Width) * 8
	switch s.Kind {
	case ir.ScalarBool:
		return b.dedupType(OpTypeBool)
	case ir.ScalarFloat:
		switch s.Width {
		case 2:
			b.require(CapabilityFloat16)
		case 8:
			b.require(CapabilityFloat64)
		}
		return b.dedupType(OpTypeFloat, bits)
	case ir.ScalarSint:
		if s.Width == 8 {
			b.require(CapabilityInt64)
		}
		return b.dedupType(OpTypeInt, bits, 1)
	default:
		if s.Width == 8 {
			b.require(CapabilityInt64)
		}
		return b.dedupType(OpTypeInt, bits, 0)
	}
}

func (b *Backend) vectorTypeID(s ir.ScalarType, size ir.VectorSize) uint32 {
	return b.dedupType(OpTypeVector, b.scalarTypeID(s), uint32(size))
}

func (b *Backend) pointerTypeID(class StorageClass, pointee uint32) uint32 {
	return b.dedupType(OpTypePointer, uint32(class), pointee)
}

func (b *Backend) functionTypeID(result uint32, params ...uint32) uint32 {
	return b.dedupType(OpTypeFunction, append([]uint32{result}, params...)...)
}

func (b *Backend) arrayType(t ir.ArrayType) uint32 {
	base := b.typeID(t.Base)
	stride := t.Stride
	if stride == 0 {
		stride = b.info.Layouts.Layout(t.Base).Stride()
	}

	var opcode OpCode
	operands := []uint32{base}
	if t.Size == nil {
		opcode = OpTypeRuntimeArray
	} else {
		opcode = OpTypeArray
		operands = append(operands, b.u32Constant(*t.Size))
	}

	// Arrays that differ only in stride need distinct IDs, since the
	// stride is a decoration on the ID.
	key := lookupKey(opcode, append(operands, stride))
	if id, ok := b.lookup[key]; ok {
		return id
	}
	id := b.builder.AddType(opcode, operands...)
	b.lookup[key] = id
	if layoutable(b.module.Types[t.Base].Inner) {
		b.builder.AddDecorate(id, DecorationArrayStride, stride)
	}
	return id
}

// layoutable reports whether a type may carry explicit layout decorations.
func layoutable(inner ir.TypeInner) bool {
	switch t := inner.(type) {
	case ir.ScalarType:
		return t.Kind != ir.ScalarBool
	case ir.VectorType:
		return t.Scalar.Kind != ir.ScalarBool
	case ir.MatrixType, ir.ArrayType, ir.StructType:
		return true
	default:
		return false
	}
}

// structType declares a struct. Structs are never shared between handles:
// member offsets and names are decorations on the ID.
func (b *Backend) structType(h ir.TypeHandle, t ir.StructType) uint32 {
	members := make([]uint32, len(t.Members))
	for i, m := range t.Members {
		members[i] = b.typeID(m.Type)
	}
	id := b.builder.AddType(OpTypeStruct, members...)
	b.name(id, b.module.Types[h].Name)
	for i, m := range t.Members {
		index := safecast.MustConv[uint32](i)
		if b.options.Debug && m.Name != "" {
			b.builder.AddMemberName(id, index, m.Name)
		}
		b.builder.AddMemberDecorate(id, index, DecorationOffset, m.Offset)
		b.decorateMatrixMember(id, index, m.Type)
	}
	return id
}

// decorateMatrixMember adds the column layout of a matrix member, or of
// the matrices inside an array member.
func (b *Backend) decorateMatrixMember(structID, index uint32, member ir.TypeHandle) {
	inner := b.module.Types[member].Inner
	for {
		arr, ok := inner.(ir.ArrayType)
		if !ok {
			break
		}
		inner = b.module.Types[arr.Base].Inner
	}
	m, ok := inner.(ir.MatrixType)
	if !ok {
		return
	}
	column := b.info.Layouts.InnerLayout(ir.VectorType{Size: m.Rows, Scalar: m.Scalar})
	b.builder.AddMemberDecorate(structID, index, DecorationColMajor)
	b.builder.AddMemberDecorate(structID, index, DecorationMatrixStride, column.Stride())
}

func (b *Backend) imageTypeID(img ir.ImageType) uint32 {
	var sampled ir.ScalarType
	var depth, mode uint32
	format := ImageFormatUnknown
	switch img.Class {
	case ir.ImageClassDepth:
		sampled, depth, mode = ir.ScalarF32, 1, 1
	case ir.ImageClassStorage:
		sampled = ir.ScalarType{Kind: img.Format.ScalarKind(), Width: 4}
		mode = 2
		format = storageFormat(img.Format)
		if format == ImageFormatRg32f {
			b.require(CapabilityStorageImageExtendedFormats)
		}
	default:
		sampled = ir.ScalarType{Kind: img.SampledKind, Width: 4}
		mode = 1
	}

	storage := img.Class == ir.ImageClassStorage
	switch {
	case img.Dim == ir.Dim1D && storage:
		b.require(CapabilityImage1D)
	case img.Dim == ir.Dim1D:
		b.require(CapabilitySampled1D)
	case img.Dim == ir.DimCube && img.Arrayed && storage:
		b.require(CapabilityImageCubeArray)
	case img.Dim == ir.DimCube && img.Arrayed:
		b.require(CapabilitySampledCubeArray)
	}
	if img.Multisampled && img.Arrayed {
		b.require(CapabilityImageMSArray)
	}
	if img.Multisampled && storage {
		b.require(CapabilityStorageImageMultisample)
	}

	return b.dedupType(OpTypeImage,
		b.scalarTypeID(sampled),
		uint32(imageDim(img.Dim)),
		depth,
		boolWord(img.Arrayed),
		boolWord(img.Multisampled),
		mode,
		uint32(format),
	)
}

func (b *Backend) sampledImageTypeID(image uint32) uint32 {
	return b.dedupType(OpTypeSampledImage, image)
}

func imageDim(d ir.ImageDimension) Dim {
	switch d {
	case ir.Dim1D:
		return Dim1D
	case ir.Dim3D:
		return Dim3D
	case ir.DimCube:
		return DimCube
	default:
		return Dim2D
	}
}

func storageFormat(f ir.StorageFormat) ImageFormat {
	switch f {
	case ir.FormatRgba8Unorm:
		return ImageFormatRgba8
	case ir.FormatRgba8Snorm:
		return ImageFormatRgba8Snorm
	case ir.FormatRgba16Float:
		return ImageFormatRgba16f
	case ir.FormatRgba32Float:
		return ImageFormatRgba32f
	case ir.FormatR32Float:
		return ImageFormatR32f
	case ir.FormatR32Uint:
		return ImageFormatR32ui
	case ir.FormatR32Sint:
		return ImageFormatR32i
	case ir.FormatRg32Float:
		return ImageFormatRg32f
	case ir.FormatRgba32Uint:
		return ImageFormatRgba32ui
	case ir.FormatRgba32Sint:
		return ImageFormatRgba32i
	default:
		return ImageFormatUnknown
	}
}

func boolWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// constantID returns the ID of an arena constant, declaring it on first use.
func (b *Backend) constantID(h ir.ConstantHandle) uint32 {
	if id := b.constantIDs[h]; id != 0 {
		return id
	}
	c := &b.module.Constants[h]
	typeID := b.typeID(c.Type)
	var id uint32
	switch v := c.Value.(type) {
	case ir.ScalarValue:
		s, _ := b.module.Types[c.Type].Inner.(ir.ScalarType)
		id = b.scalarConstant(s, v.Bits)
	case ir.CompositeValue:
		parts := make([]uint32, len(v.Components))
		for i, part := range v.Components {
			parts[i] = b.constantID(part)
		}
		id = b.dedupConstant(OpConstantComposite, typeID, parts...)
	}
	b.constantIDs[h] = id
	b.name(id, c.Name)
	return id
}

// scalarConstant declares a scalar constant from its raw bits.
func (b *Backend) scalarConstant(s ir.ScalarType, bits uint64) uint32 {
	typeID := b.scalarTypeID(s)
	switch {
	case s.Kind == ir.ScalarBool && bits != 0:
		return b.dedupConstant(OpConstantTrue, typeID)
	case s.Kind == ir.ScalarBool:
		return b.dedupConstant(OpConstantFalse, typeID)
	case s.Width == 8:
		return b.dedupConstant(OpConstant, typeID, uint32(bits), uint32(bits>>32))
	default:
		return b.dedupConstant(OpConstant, typeID, uint32(bits))
	}
}

func (b *Backend) literalID(v ir.LiteralValue) uint32 {
	switch l := v.(type) {
	case ir.LiteralF32:
		return b.scalarConstant(ir.ScalarF32, uint64(math.Float32bits(float32(l))))
	case ir.LiteralF64:
		return b.scalarConstant(ir.ScalarF64, math.Float64bits(float64(l)))
	case ir.LiteralU32:
		return b.scalarConstant(ir.ScalarU32, uint64(l))
	case ir.LiteralI32:
		return b.scalarConstant(ir.ScalarI32, uint64(uint32(l))) //nolint:gosec // G115: two's complement bits
	case ir.LiteralU64:
		return b.scalarConstant(ir.ScalarType{Kind: ir.ScalarUint, Width: 8}, uint64(l))
	case ir.LiteralI64:
		return b.scalarConstant(ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, uint64(l)) //nolint:gosec // G115: two's complement bits
	case ir.LiteralBool:
		return b.scalarConstant(ir.ScalarBoolType, uint64(boolWord(bool(l))))
	default:
		return 0
	}
}

func (b *Backend) u32Constant(v uint32) uint32 {
	return b.scalarConstant(ir.ScalarU32, uint64(v))
}

func (b *Backend) f32Constant(v float32) uint32 {
	return b.scalarConstant(ir.ScalarF32, uint64(math.Float32bits(v)))
}

func (b *Backend) nullConstant(typeID uint32) uint32 {
	return b.dedupConstant(OpConstantNull, typeID)
}

// splatConstant returns a constant of the given type whose every
// component is the scalar constant value.
func (b *Backend) splatConstant(inner ir.TypeInner, value uint32) uint32 {
	v, ok := inner.(ir.VectorType)
	if !ok {
		return value
	}
	parts := make([]uint32, v.Size)
	for i := range parts {
		parts[i] = value
	}
	return b.dedupConstant(OpConstantComposite, b.innerTypeID(v), parts...)
}
