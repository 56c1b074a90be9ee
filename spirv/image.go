package spirv

import (
	"github.com/gogpu/shadercross/ir"
)

// imageCoordinate returns the coordinate operand of an image instruction.
// Arrayed images take the layer as one more coordinate component: a float
// for sampling, otherwise an integer of the coordinate's kind.
func (w *functionWriter) imageCoordinate(coord ir.ExpressionHandle, arrayIndex *ir.ExpressionHandle, sampling bool) uint32 {
	id := w.expr(coord)
	if arrayIndex == nil {
		return id
	}

	coordInner := w.inner(coord)
	scalar := scalarOf(coordInner)
	size := 1
	if v, ok := coordInner.(ir.VectorType); ok {
		size = int(v.Size)
	}

	layer := w.expr(*arrayIndex)
	layerScalar := scalarOf(w.inner(*arrayIndex))
	scalarType := w.b.scalarTypeID(scalar)
	switch {
	case sampling && layerScalar.Kind == ir.ScalarSint:
		layer = w.result(OpConvertSToF, scalarType, layer)
	case sampling && layerScalar.Kind == ir.ScalarUint:
		layer = w.result(OpConvertUToF, scalarType, layer)
	case !sampling && layerScalar.Kind != scalar.Kind:
		layer = w.result(OpBitcast, scalarType, layer)
	}

	parts := []uint32{id}
	if size > 1 {
		parts = parts[:0]
		for i := 0; i < size; i++ {
			parts = append(parts, w.result(OpCompositeExtract, scalarType, id, uint32(i)))
		}
	}
	parts = append(parts, layer)
	vectorType := w.b.vectorTypeID(scalar, ir.VectorSize(size+1)) //nolint:gosec // G115: at most 4
	return w.result(OpCompositeConstruct, vectorType, parts...)
}

func (w *functionWriter) imageType(image ir.ExpressionHandle) ir.ImageType {
	img, _ := w.inner(image).(ir.ImageType)
	return img
}

func (w *functionWriter) imageSample(resultType uint32, e ir.ExprImageSample) uint32 {
	img := w.imageType(e.Image)
	imageTypeID := w.typeOf(e.Image)
	sampled := w.result(OpSampledImage, w.b.sampledImageTypeID(imageTypeID), w.expr(e.Image), w.expr(e.Sampler))
	coord := w.imageCoordinate(e.Coordinate, e.ArrayIndex, true)

	var mask uint32
	var operands []uint32
	explicit := false
	switch l := e.Level.(type) {
	case ir.SampleLevelBias:
		mask |= ImageOperandsBias
		operands = append(operands, w.expr(l.Bias))
	case ir.SampleLevelZero:
		mask |= ImageOperandsLod
		operands = append(operands, w.b.f32Constant(0))
		explicit = true
	case ir.SampleLevelExact:
		mask |= ImageOperandsLod
		operands = append(operands, w.expr(l.Level))
		explicit = true
	case ir.SampleLevelGradient:
		mask |= ImageOperandsGrad
		operands = append(operands, w.expr(l.X), w.expr(l.Y))
		explicit = true
	}
	if e.Offset != nil {
		mask |= ImageOperandsConstOffset
		operands = append(operands, w.b.constantID(*e.Offset))
	}

	words := []uint32{sampled, coord}
	if e.DepthRef != nil {
		words = append(words, w.expr(*e.DepthRef))
	}
	if mask != 0 {
		words = append(words, mask)
		words = append(words, operands...)
	}

	if e.DepthRef != nil {
		op := OpImageSampleDrefImplicitLod
		if explicit {
			op = OpImageSampleDrefExplicitLod
		}
		return w.result(op, resultType, words...)
	}

	op := OpImageSampleImplicitLod
	if explicit {
		op = OpImageSampleExplicitLod
	}
	if img.Class == ir.ImageClassDepth {
		texel := w.result(op, w.b.vectorTypeID(ir.ScalarF32, ir.Vec4), words...)
		return w.result(OpCompositeExtract, resultType, texel, 0)
	}
	return w.result(op, resultType, words...)
}

func (w *functionWriter) imageLoad(resultType uint32, e ir.ExprImageLoad) uint32 {
	img := w.imageType(e.Image)
	image := w.expr(e.Image)
	coord := w.imageCoordinate(e.Coordinate, e.ArrayIndex, false)

	if img.Class == ir.ImageClassStorage {
		return w.result(OpImageRead, resultType, image, coord)
	}

	words := []uint32{image, coord}
	switch {
	case e.Sample != nil:
		words = append(words, ImageOperandsSample, w.expr(*e.Sample))
	case e.Level != nil:
		words = append(words, ImageOperandsLod, w.expr(*e.Level))
	case !img.Multisampled:
		words = append(words, ImageOperandsLod, w.b.u32Constant(0))
	}

	if img.Class == ir.ImageClassDepth {
		texel := w.result(OpImageFetch, w.b.vectorTypeID(ir.ScalarF32, ir.Vec4), words...)
		return w.result(OpCompositeExtract, resultType, texel, 0)
	}
	return w.result(OpImageFetch, resultType, words...)
}

func (w *functionWriter) imageQuery(resultType uint32, e ir.ExprImageQuery) uint32 {
	w.b.require(CapabilityImageQuery)
	img := w.imageType(e.Image)
	image := w.expr(e.Image)

	switch q := e.Query.(type) {
	case ir.ImageQueryNumLevels:
		return w.result(OpImageQueryLevels, resultType, image)
	case ir.ImageQueryNumSamples:
		return w.result(OpImageQuerySamples, resultType, image)
	case ir.ImageQueryNumLayers:
		size, count := w.querySize(img, image, nil)
		return w.result(OpCompositeExtract, resultType, size, uint32(count-1)) //nolint:gosec // G115: at most 4
	case ir.ImageQuerySize:
		size, count := w.querySize(img, image, q.Level)
		wanted := img.Dim.CoordinateSize()
		if img.Dim == ir.DimCube {
			wanted = 2
		}
		if wanted == count {
			return size
		}
		if wanted == 1 {
			return w.result(OpCompositeExtract, resultType, size, 0)
		}
		components := []uint32{size, size}
		for i := 0; i < wanted; i++ {
			components = append(components, uint32(i)) //nolint:gosec // G115: at most 3
		}
		return w.result(OpVectorShuffle, resultType, components...)
	default:
		return 0
	}
}

// querySize emits the size query of an image, which also reports the
// layer count of arrayed images as its last component.
func (w *functionWriter) querySize(img ir.ImageType, image uint32, level *ir.ExpressionHandle) (uint32, int) {
	count := img.Dim.CoordinateSize()
	if img.Dim == ir.DimCube {
		count = 2
	}
	if img.Arrayed {
		count++
	}
	var resultType uint32
	if count == 1 {
		resultType = w.b.scalarTypeID(ir.ScalarU32)
	} else {
		resultType = w.b.vectorTypeID(ir.ScalarU32, ir.VectorSize(count)) //nolint:gosec // G115: at most 4
	}

	if img.Multisampled || img.Class == ir.ImageClassStorage {
		return w.result(OpImageQuerySize, resultType, image), count
	}
	lod := w.b.u32Constant(0)
	if level != nil {
		lod = w.expr(*level)
	}
	return w.result(OpImageQuerySizeLod, resultType, image, lod), count
}
