// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strconv"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// writeExpression writes an expression, reading it from its temporary
// when it was baked.
func (w *Writer) writeExpression(handle ir.ExpressionHandle) error {
	if name, ok := w.fc.Named[handle]; ok {
		w.write("%s", name)
		return nil
	}
	return w.writeExpressionInline(handle)
}

// writeExpressionInline writes the expression itself, even if it has a
// temporary.
//
//nolint:gocyclo,cyclop // one case per expression kind
func (w *Writer) writeExpressionInline(handle ir.ExpressionHandle) error {
	var err error
	switch e := w.fc.Expr(handle).(type) {
	case ir.Literal:
		err = w.writeLiteral(e.Value)
	case ir.ExprConstant:
		var value string
		value, err = w.constantRef(e.Constant)
		w.write("%s", value)
	case ir.ExprZeroValue:
		w.write("%s", w.zeroValue(e.Type))
	case ir.ExprCompose:
		err = w.writeCompose(e)
	case ir.ExprAccess:
		err = w.writeIndexed(e.Base, func() error { return w.writeExpression(e.Index) })
	case ir.ExprAccessIndex:
		err = w.writeAccessIndex(e)
	case ir.ExprSplat:
		err = w.writeBuiltinCall(w.resolutionName(w.fc.ResolutionOf(handle)), e.Value)
	case ir.ExprSwizzle:
		err = w.writeExpression(e.Vector)
		w.write(".")
		for i := range int(e.Size) {
			w.out.WriteByte(e.Pattern[i].Letter())
		}
	case ir.ExprFunctionArgument:
		w.write("%s", w.name(back.NameArgument, uint32(w.fc.Handle), e.Index))
	case ir.ExprGlobalVariable:
		w.write("%s", w.globalName(e.Variable))
	case ir.ExprLocalVariable:
		w.write("%s", w.name(back.NameLocal, uint32(w.fc.Handle), e.Variable))
	case ir.ExprLoad:
		err = w.writeExpression(e.Pointer)
	case ir.ExprUnary:
		err = w.writeUnary(e)
	case ir.ExprBinary:
		err = w.writeBinary(e)
	case ir.ExprSelect:
		err = w.writeSelect(e)
	case ir.ExprMath:
		err = w.writeMath(e)
	case ir.ExprAs:
		err = w.writeAs(handle, e)
	case ir.ExprImageSample:
		err = w.writeImageSample(e)
	case ir.ExprImageLoad:
		err = w.writeImageLoad(e)
	case ir.ExprImageQuery:
		err = w.writeImageQuery(e)
	case ir.ExprDerivative:
		err = w.writeDerivative(e)
	case ir.ExprRelational:
		err = w.writeRelational(e)
	case ir.ExprArrayLength:
		err = w.writeArrayLength(e)
	case ir.ExprCallResult:
		err = ir.Errorf(ir.ErrUnresolvedHandle, "call result used before its call")
	default:
		err = ir.Errorf(ir.ErrUnsupportedFeature, "unsupported expression kind: %T", e)
	}
	if e, ok := err.(*ir.Error); ok {
		return e.WithExpression(handle)
	}
	return err
}

// writeLiteral writes a literal value.
func (w *Writer) writeLiteral(value ir.LiteralValue) error {
	switch v := value.(type) {
	case ir.LiteralF32:
		w.write("%s", floatLiteral(float32(v)))
	case ir.LiteralF64:
		w.write("%s", doubleLiteral(float64(v)))
	case ir.LiteralU32:
		w.write("%du", uint32(v))
	case ir.LiteralI32:
		w.write("%s", intLiteral(int32(v)))
	case ir.LiteralU64, ir.LiteralI64:
		return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL has no 64-bit integers")
	case ir.LiteralBool:
		w.write("%s", strconv.FormatBool(bool(v)))
	default:
		return ir.Errorf(ir.ErrTypeMismatch, "unknown literal %T", value)
	}
	return nil
}

// writeCompose writes a constructor. Struct constructors fill the
// padding members with zeros.
func (w *Writer) writeCompose(compose ir.ExprCompose) error {
	pads := w.structPads[compose.Type]
	w.write("%s(", w.typeName(compose.Type))
	for i, c := range compose.Components {
		if i > 0 {
			w.write(", ")
		}
		for range pads[i] {
			w.write("0u, ")
		}
		if err := w.writeExpression(c); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// pointee returns the type an expression points to, or its own type for
// values, with the arena handle when there is one.
func (w *Writer) pointee(h ir.ExpressionHandle) (ir.TypeInner, *ir.TypeHandle) {
	res := w.fc.ResolutionOf(h)
	inner := res.Inner(w.module)
	switch pt := inner.(type) {
	case ir.PointerType:
		base := pt.Base
		return w.module.Types[base].Inner, &base
	case ir.ValuePointerType:
		if pt.Size == 0 {
			return pt.Scalar, nil
		}
		return ir.VectorType{Size: pt.Size, Scalar: pt.Scalar}, nil
	}
	return inner, res.Handle
}

// writeIndexed writes base[index].
func (w *Writer) writeIndexed(base ir.ExpressionHandle, index func() error) error {
	if err := w.writeExpression(base); err != nil {
		return err
	}
	w.write("[")
	if err := index(); err != nil {
		return err
	}
	w.write("]")
	return nil
}

// writeAccessIndex writes a member, component or element access with a
// constant index.
func (w *Writer) writeAccessIndex(access ir.ExprAccessIndex) error {
	inner, handle := w.pointee(access.Base)
	switch inner.(type) {
	case ir.StructType:
		if err := w.writeExpression(access.Base); err != nil {
			return err
		}
		w.write(".%s", w.memberName(*handle, int(access.Index)))
		return nil
	case ir.VectorType:
		if err := w.writeExpression(access.Base); err != nil {
			return err
		}
		w.write(".")
		w.out.WriteByte(ir.SwizzleComponent(access.Index).Letter())
		return nil
	}
	return w.writeIndexed(access.Base, func() error {
		w.write("%d", access.Index)
		return nil
	})
}

// writeUnary writes a unary operation. Boolean vectors are negated with
// not().
func (w *Writer) writeUnary(unary ir.ExprUnary) error {
	switch unary.Op {
	case ir.UnaryNegate:
		w.write("-(")
	case ir.UnaryLogicalNot:
		if _, vector := w.fc.TypeOf(unary.Expr).(ir.VectorType); vector {
			return w.writeBuiltinCall("not", unary.Expr)
		}
		w.write("!(")
	case ir.UnaryBitwiseNot:
		w.write("~(")
	}
	if err := w.writeExpression(unary.Expr); err != nil {
		return err
	}
	w.write(")")
	return nil
}

var vectorComparisons = map[ir.BinaryOperator]string{
	ir.BinaryEqual:        "equal",
	ir.BinaryNotEqual:     "notEqual",
	ir.BinaryLess:         "lessThan",
	ir.BinaryLessEqual:    "lessThanEqual",
	ir.BinaryGreater:      "greaterThan",
	ir.BinaryGreaterEqual: "greaterThanEqual",
}

// writeBinary writes a binary operation. Vector comparisons are calls,
// boolean logic is rewritten onto the operators GLSL defines for bool,
// and remainders truncate as in the IR.
//
//nolint:gocyclo,cyclop // one case per operator family
func (w *Writer) writeBinary(binary ir.ExprBinary) error {
	left := w.fc.TypeOf(binary.Left)
	s, _ := scalarOf(left)
	vec, vector := left.(ir.VectorType)

	if vector && binary.Op.IsComparison() {
		return w.writeBuiltinCall(vectorComparisons[binary.Op], binary.Left, binary.Right)
	}

	if s.Kind == ir.ScalarBool {
		switch binary.Op {
		case ir.BinaryAnd, ir.BinaryLogicalAnd, ir.BinaryInclusiveOr, ir.BinaryLogicalOr:
			if !vector {
				op := "&&"
				if binary.Op == ir.BinaryInclusiveOr || binary.Op == ir.BinaryLogicalOr {
					op = "||"
				}
				return w.writeInfix(binary.Left, op, binary.Right)
			}
			op := "&"
			if binary.Op == ir.BinaryInclusiveOr || binary.Op == ir.BinaryLogicalOr {
				op = "|"
			}
			uvec := vectorToGLSL(ir.VectorType{Size: vec.Size, Scalar: ir.ScalarU32})
			w.write("%s(", vectorToGLSL(vec))
			if err := w.writeBuiltinCall(uvec, binary.Left); err != nil {
				return err
			}
			w.write(" %s ", op)
			if err := w.writeBuiltinCall(uvec, binary.Right); err != nil {
				return err
			}
			w.write(")")
			return nil
		case ir.BinaryExclusiveOr:
			if vector {
				return w.writeBuiltinCall("notEqual", binary.Left, binary.Right)
			}
			return w.writeInfix(binary.Left, "!=", binary.Right)
		}
	}

	if binary.Op == ir.BinaryModulo && s.Kind != ir.ScalarUint {
		// a - b * trunc(a / b), with integer division truncating already.
		w.write("(")
		if err := w.writeExpression(binary.Left); err != nil {
			return err
		}
		w.write(" - ")
		if err := w.writeExpression(binary.Right); err != nil {
			return err
		}
		w.write(" * ")
		if s.Kind == ir.ScalarFloat {
			w.write("trunc(")
		}
		if err := w.writeInfix(binary.Left, "/", binary.Right); err != nil {
			return err
		}
		if s.Kind == ir.ScalarFloat {
			w.write(")")
		}
		w.write(")")
		return nil
	}

	return w.writeInfix(binary.Left, binary.Op.Symbol(), binary.Right)
}

// writeInfix writes (left op right).
func (w *Writer) writeInfix(left ir.ExpressionHandle, op string, right ir.ExpressionHandle) error {
	w.write("(")
	if err := w.writeExpression(left); err != nil {
		return err
	}
	w.write(" %s ", op)
	if err := w.writeExpression(right); err != nil {
		return err
	}
	w.write(")")
	return nil
}

// writeSelect writes a ternary, or mix for a component-wise choice.
func (w *Writer) writeSelect(sel ir.ExprSelect) error {
	if _, vector := w.fc.TypeOf(sel.Condition).(ir.VectorType); vector {
		return w.writeBuiltinCall("mix", sel.Reject, sel.Accept, sel.Condition)
	}
	w.write("(")
	if err := w.writeExpression(sel.Condition); err != nil {
		return err
	}
	w.write(" ? ")
	if err := w.writeExpression(sel.Accept); err != nil {
		return err
	}
	w.write(" : ")
	if err := w.writeExpression(sel.Reject); err != nil {
		return err
	}
	w.write(")")
	return nil
}

// writeBuiltinCall writes name(args...).
func (w *Writer) writeBuiltinCall(name string, args ...ir.ExpressionHandle) error {
	w.write("%s(", name)
	for i, arg := range args {
		if i > 0 {
			w.write(", ")
		}
		if err := w.writeExpression(arg); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// mathFunctionToGLSL returns the built-in implementing fun.
func mathFunctionToGLSL(fun ir.MathFunction) string {
	switch fun {
	case ir.MathAtan2:
		return "atan"
	case ir.MathInverseSqrt:
		return "inversesqrt"
	case ir.MathRound:
		return "roundEven"
	}
	return fun.Name()
}

// writeMath writes a built-in math function.
//
//nolint:gocyclo,cyclop // one case per rewritten function
func (w *Writer) writeMath(m ir.ExprMath) error {
	args := []ir.ExpressionHandle{m.Arg}
	if m.Arg1 != nil {
		args = append(args, *m.Arg1)
	}
	if m.Arg2 != nil {
		args = append(args, *m.Arg2)
	}
	argType := w.fc.TypeOf(m.Arg)
	s, _ := scalarOf(argType)

	switch m.Fun {
	case ir.MathAbs:
		if s.Kind == ir.ScalarUint {
			return w.writeExpression(m.Arg)
		}
	case ir.MathSign:
		if s.Kind == ir.ScalarUint {
			w.write("min(")
			if err := w.writeExpression(m.Arg); err != nil {
				return err
			}
			w.write(", %s)", w.innerOne(argType))
			return nil
		}
	case ir.MathSaturate:
		zero, _ := scalarLiteral(s, 0)
		w.write("clamp(")
		if err := w.writeExpression(m.Arg); err != nil {
			return err
		}
		if s.Width == 8 {
			w.write(", %s, %s)", zero, doubleLiteral(1))
		} else {
			w.write(", %s, %s)", zero, floatLiteral(1))
		}
		return nil
	case ir.MathFma:
		if !w.version.atLeast(400, 320) {
			w.write("(")
			if err := w.writeInfix(args[0], "*", args[1]); err != nil {
				return err
			}
			w.write(" + ")
			if err := w.writeExpression(args[2]); err != nil {
				return err
			}
			w.write(")")
			return nil
		}
	case ir.MathDot:
		if vec, ok := argType.(ir.VectorType); ok && s.Kind != ir.ScalarFloat {
			return w.writeIntegerDot(vec, args[0], args[1])
		}
	}
	return w.writeBuiltinCall(mathFunctionToGLSL(m.Fun), args...)
}

// innerOne spells one in the given numeric type.
func (w *Writer) innerOne(inner ir.TypeInner) string {
	s, _ := scalarOf(inner)
	one, _ := scalarLiteral(s, 1)
	if _, scalar := inner.(ir.ScalarType); scalar {
		return one
	}
	return w.innerName(inner) + "(" + one + ")"
}

// writeIntegerDot expands dot over integer vectors, which GLSL lacks.
func (w *Writer) writeIntegerDot(vec ir.VectorType, a, b ir.ExpressionHandle) error {
	w.write("(")
	for i := range int(vec.Size) {
		if i > 0 {
			w.write(" + ")
		}
		c := ir.SwizzleComponent(i).Letter() //nolint:gosec // G115: component index
		if err := w.writeExpression(a); err != nil {
			return err
		}
		w.write(".%c * ", c)
		if err := w.writeExpression(b); err != nil {
			return err
		}
		w.write(".%c", c)
	}
	w.write(")")
	return nil
}

// writeAs writes a conversion as a constructor and a bitcast with the
// *BitsTo* built-ins.
func (w *Writer) writeAs(handle ir.ExpressionHandle, as ir.ExprAs) error {
	target := w.resolutionName(w.fc.ResolutionOf(handle))
	if as.Convert != nil {
		return w.writeBuiltinCall(target, as.Expr)
	}
	from, _ := scalarOf(w.fc.TypeOf(as.Expr))
	switch {
	case as.Kind == ir.ScalarBool || from.Kind == ir.ScalarBool:
		return ir.Errorf(ir.ErrTypeMismatch, "cannot bitcast to or from bool")
	case from.Width != 4:
		return ir.Errorf(ir.ErrUnsupportedFeature, "bitcast of %d-byte scalars", from.Width)
	case from.Kind == ir.ScalarFloat && as.Kind == ir.ScalarUint:
		return w.writeBuiltinCall("floatBitsToUint", as.Expr)
	case from.Kind == ir.ScalarFloat && as.Kind == ir.ScalarSint:
		return w.writeBuiltinCall("floatBitsToInt", as.Expr)
	case from.Kind == ir.ScalarUint && as.Kind == ir.ScalarFloat:
		return w.writeBuiltinCall("uintBitsToFloat", as.Expr)
	case from.Kind == ir.ScalarSint && as.Kind == ir.ScalarFloat:
		return w.writeBuiltinCall("intBitsToFloat", as.Expr)
	}
	return w.writeBuiltinCall(target, as.Expr)
}

// writeSampler writes the sampler an image is read through: the
// combined uniform of the use, or a constructor joining the texture and
// sampler objects.
func (w *Writer) writeSampler(img ir.ImageType, image ir.ExpressionHandle, sampler *ir.ExpressionHandle, comparison bool) error {
	if w.options.SeparateSamplers {
		if sampler == nil {
			w.requireExtension("GL_EXT_samplerless_texture_functions")
			return w.writeExpression(image)
		}
		return w.writeBuiltinCall(samplerTypeName(img, comparison), image, *sampler)
	}
	use := back.TextureUse{}
	tex, ok := w.fc.Expr(image).(ir.ExprGlobalVariable)
	if !ok {
		return ir.Errorf(ir.ErrUnsupportedFeature, "image operand is not a global resource")
	}
	use.Texture = tex.Variable
	if sampler != nil {
		smp, ok := w.fc.Expr(*sampler).(ir.ExprGlobalVariable)
		if !ok {
			return ir.Errorf(ir.ErrUnsupportedFeature, "sampler operand is not a global resource")
		}
		use.Sampler, use.HasSampler = smp.Variable, true
	}
	name, ok := w.combined[use]
	if !ok {
		return ir.Errorf(ir.ErrUnresolvedHandle, "texture %q has no combined sampler", w.module.GlobalVariables[use.Texture].Name)
	}
	w.write("%s", name)
	return nil
}

// writeTexelCoordinate writes an integer texel address with the array
// layer as the last component.
func (w *Writer) writeTexelCoordinate(img ir.ImageType, coord ir.ExpressionHandle, layer *ir.ExpressionHandle) error {
	size := img.Dim.CoordinateSize()
	if layer != nil {
		size++
	}
	if size == 1 {
		w.write("int(")
	} else {
		w.write("ivec%d(", size)
	}
	if err := w.writeExpression(coord); err != nil {
		return err
	}
	if layer != nil {
		w.write(", ")
		if err := w.writeExpression(*layer); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// sampleFunction picks the texture* built-in of a sample and reports
// whether the level-zero comparison has to go through zero gradients.
func (w *Writer) sampleFunction(img ir.ImageType, sample ir.ExprImageSample) (string, bool, error) {
	name := "texture"
	zeroGrad := false
	switch sample.Level.(type) {
	case ir.SampleLevelZero:
		name = "textureLod"
		if sample.DepthRef != nil {
			switch {
			case img.Dim == ir.DimCube && img.Arrayed:
				name = "texture"
			case img.Arrayed || img.Dim == ir.DimCube:
				name, zeroGrad = "textureGrad", true
			}
		}
	case ir.SampleLevelExact:
		name = "textureLod"
		if sample.DepthRef != nil && (img.Arrayed || img.Dim == ir.DimCube) {
			return "", false, ir.Errorf(ir.ErrUnsupportedFeature, "depth comparison at an explicit level of an array or cube texture")
		}
	case ir.SampleLevelGradient:
		name = "textureGrad"
	}
	if sample.Offset != nil {
		if img.Dim == ir.DimCube {
			return "", false, ir.Errorf(ir.ErrUnsupportedFeature, "cube textures cannot be sampled with an offset")
		}
		name += "Offset"
	}
	return name, zeroGrad, nil
}

// writeImageSample writes a texture sample. The array layer and the
// depth reference are packed into the coordinate, except for cube array
// shadows, where the reference is a separate argument.
//
//nolint:gocognit,gocyclo,cyclop,funlen // Image sampling has many parameters to handle
func (w *Writer) writeImageSample(sample ir.ExprImageSample) error {
	img, ok := w.fc.TypeOf(sample.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "sampled operand is not an image")
	}
	name, zeroGrad, err := w.sampleFunction(img, sample)
	if err != nil {
		return err
	}

	w.write("%s(", name)
	if err := w.writeSampler(img, sample.Image, &sample.Sampler, sample.DepthRef != nil); err != nil {
		return err
	}
	w.write(", ")

	size := img.Dim.CoordinateSize()
	if sample.ArrayIndex != nil {
		size++
	}
	refSeparate := sample.DepthRef != nil && size == 4
	pad1D := sample.DepthRef != nil && img.Dim == ir.Dim1D && sample.ArrayIndex == nil
	if sample.DepthRef != nil && !refSeparate {
		size++
	}
	if pad1D {
		size++
	}
	if size == 1 {
		if err := w.writeExpression(sample.Coordinate); err != nil {
			return err
		}
	} else {
		w.write("vec%d(", size)
		if err := w.writeExpression(sample.Coordinate); err != nil {
			return err
		}
		if sample.ArrayIndex != nil {
			w.write(", float(")
			if err := w.writeExpression(*sample.ArrayIndex); err != nil {
				return err
			}
			w.write(")")
		}
		if pad1D {
			w.write(", 0.0")
		}
		if sample.DepthRef != nil && !refSeparate {
			w.write(", ")
			if err := w.writeExpression(*sample.DepthRef); err != nil {
				return err
			}
		}
		w.write(")")
	}
	if refSeparate {
		w.write(", ")
		if err := w.writeExpression(*sample.DepthRef); err != nil {
			return err
		}
	}

	switch level := sample.Level.(type) {
	case ir.SampleLevelZero:
		switch {
		case zeroGrad:
			grad := "vec2(0.0)"
			if img.Dim == ir.DimCube {
				grad = "vec3(0.0)"
			}
			w.write(", %s, %s", grad, grad)
		case name == "textureLod" || name == "textureLodOffset":
			w.write(", 0.0")
		}
	case ir.SampleLevelExact:
		w.write(", ")
		if err := w.writeExpression(level.Level); err != nil {
			return err
		}
	case ir.SampleLevelGradient:
		w.write(", ")
		if err := w.writeExpression(level.X); err != nil {
			return err
		}
		w.write(", ")
		if err := w.writeExpression(level.Y); err != nil {
			return err
		}
	}

	if sample.Offset != nil {
		offset, err := w.constantRef(*sample.Offset)
		if err != nil {
			return err
		}
		w.write(", %s", offset)
	}
	if level, ok := sample.Level.(ir.SampleLevelBias); ok {
		w.write(", ")
		if err := w.writeExpression(level.Bias); err != nil {
			return err
		}
	}
	w.write(")")
	if img.Class == ir.ImageClassDepth && sample.DepthRef == nil {
		w.write(".x")
	}
	return nil
}

// writeImageLoad writes a texel read: imageLoad for storage images and
// texelFetch for the rest, which takes the mip level or the sample
// index as its last argument.
func (w *Writer) writeImageLoad(load ir.ExprImageLoad) error {
	img, ok := w.fc.TypeOf(load.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "loaded operand is not an image")
	}

	if img.Class == ir.ImageClassStorage {
		w.write("imageLoad(")
		if err := w.writeExpression(load.Image); err != nil {
			return err
		}
		w.write(", ")
		if err := w.writeTexelCoordinate(img, load.Coordinate, load.ArrayIndex); err != nil {
			return err
		}
		w.write(")")
		return nil
	}

	w.write("texelFetch(")
	if err := w.writeSampler(img, load.Image, nil, false); err != nil {
		return err
	}
	w.write(", ")
	if err := w.writeTexelCoordinate(img, load.Coordinate, load.ArrayIndex); err != nil {
		return err
	}
	last := load.Level
	if img.Multisampled {
		last = load.Sample
	}
	if last == nil {
		w.write(", 0")
	} else {
		w.write(", int(")
		if err := w.writeExpression(*last); err != nil {
			return err
		}
		w.write(")")
	}
	w.write(")")
	if img.Class == ir.ImageClassDepth {
		w.write(".x")
	}
	return nil
}

// writeImageQuery writes an image query. textureSize and imageSize
// return the layer count as the last component of arrayed images.
//
//nolint:gocyclo,cyclop // one case per query and image class
func (w *Writer) writeImageQuery(query ir.ExprImageQuery) error {
	img, ok := w.fc.TypeOf(query.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "queried operand is not an image")
	}
	storage := img.Class == ir.ImageClassStorage
	size := img.Dim.CoordinateSize()
	if img.Dim == ir.DimCube {
		size = 2
	}
	full := size
	if img.Arrayed {
		full++
	}

	writeSize := func(level *ir.ExpressionHandle) error {
		if storage {
			w.write("imageSize(")
			if err := w.writeExpression(query.Image); err != nil {
				return err
			}
			w.write(")")
			return nil
		}
		w.write("textureSize(")
		if err := w.writeSampler(img, query.Image, nil, false); err != nil {
			return err
		}
		if !img.Multisampled {
			if level == nil {
				w.write(", 0")
			} else {
				w.write(", int(")
				if err := w.writeExpression(*level); err != nil {
					return err
				}
				w.write(")")
			}
		}
		w.write(")")
		return nil
	}

	switch q := query.Query.(type) {
	case ir.ImageQuerySize:
		if size == 1 {
			w.write("uint(")
		} else {
			w.write("uvec%d(", size)
		}
		if err := writeSize(q.Level); err != nil {
			return err
		}
		if full != size {
			w.write(".%s", "xyz"[:size])
		}
		w.write(")")
		return nil
	case ir.ImageQueryNumLayers:
		if !img.Arrayed {
			return ir.Errorf(ir.ErrTypeMismatch, "layer count of a non-arrayed image")
		}
		w.write("uint(")
		if err := writeSize(nil); err != nil {
			return err
		}
		w.write(".%c)", "xyzw"[size])
		return nil
	case ir.ImageQueryNumLevels:
		switch {
		case storage || img.Multisampled:
			return ir.Errorf(ir.ErrTypeMismatch, "level count of an image without mipmaps")
		case w.version.ES:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES cannot query the level count")
		case !w.version.atLeast(430, 0):
			w.requireExtension("GL_ARB_texture_query_levels")
		}
		w.write("uint(textureQueryLevels(")
		if err := w.writeSampler(img, query.Image, nil, false); err != nil {
			return err
		}
		w.write("))")
		return nil
	case ir.ImageQueryNumSamples:
		switch {
		case !img.Multisampled:
			return ir.Errorf(ir.ErrTypeMismatch, "sample count of a single-sampled image")
		case w.version.ES:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES cannot query the sample count")
		case !w.version.atLeast(450, 0):
			w.requireExtension("GL_ARB_shader_texture_image_samples")
		}
		fn := "textureSamples"
		if storage {
			fn = "imageSamples"
		}
		w.write("uint(%s(", fn)
		if storage {
			if err := w.writeExpression(query.Image); err != nil {
				return err
			}
		} else if err := w.writeSampler(img, query.Image, nil, false); err != nil {
			return err
		}
		w.write("))")
		return nil
	}
	return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported image query: %T", query.Query)
}

// writeDerivative writes a derivative. The fine and coarse variants are
// core in 4.50 and an extension from 4.00; elsewhere the plain built-in
// stands in for both.
func (w *Writer) writeDerivative(deriv ir.ExprDerivative) error {
	name := "fwidth"
	switch deriv.Axis {
	case ir.DerivativeX:
		name = "dFdx"
	case ir.DerivativeY:
		name = "dFdy"
	}
	if deriv.Control != ir.DerivativeNone && !w.version.ES && w.version.atLeast(400, 0) {
		if !w.version.atLeast(450, 0) {
			w.requireExtension("GL_ARB_derivative_control")
		}
		switch deriv.Control {
		case ir.DerivativeCoarse:
			name += "Coarse"
		case ir.DerivativeFine:
			name += "Fine"
		}
	}
	return w.writeBuiltinCall(name, deriv.Expr)
}

// writeRelational writes a relational function. all and any of a
// scalar are the scalar itself.
func (w *Writer) writeRelational(rel ir.ExprRelational) error {
	switch rel.Fun {
	case ir.RelationalAll, ir.RelationalAny:
		if _, vector := w.fc.TypeOf(rel.Argument).(ir.VectorType); !vector {
			return w.writeExpression(rel.Argument)
		}
		if rel.Fun == ir.RelationalAll {
			return w.writeBuiltinCall("all", rel.Argument)
		}
		return w.writeBuiltinCall("any", rel.Argument)
	case ir.RelationalIsNan:
		return w.writeBuiltinCall("isnan", rel.Argument)
	case ir.RelationalIsInf:
		return w.writeBuiltinCall("isinf", rel.Argument)
	}
	return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported relational function %d", rel.Fun)
}

// writeArrayLength writes the length() of a runtime-sized array. A
// pointer to the enclosing struct reads the last member.
func (w *Writer) writeArrayLength(length ir.ExprArrayLength) error {
	g, ok := w.fc.GlobalOf(length.Array)
	if !ok || w.module.GlobalVariables[g].Space != ir.SpaceStorage {
		return ir.Errorf(ir.ErrUnsupportedFeature, "array length of a runtime array that is not in a storage buffer")
	}
	w.write("uint(")
	if err := w.writeExpression(length.Array); err != nil {
		return err
	}
	if inner, handle := w.pointee(length.Array); handle != nil {
		if st, ok := inner.(ir.StructType); ok {
			w.write(".%s", w.memberName(*handle, len(st.Members)-1))
		}
	}
	w.write(".length())")
	return nil
}
