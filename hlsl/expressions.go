// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

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
		w.write("((%s)0)", w.typeName(e.Type))
	case ir.ExprCompose:
		err = w.writeCompose(e)
	case ir.ExprAccess:
		err = w.writeIndexed(e.Base, func() error { return w.writeExpression(e.Index) })
	case ir.ExprAccessIndex:
		err = w.writeAccessIndex(e)
	case ir.ExprSplat:
		w.write("(")
		err = w.writeExpression(e.Value)
		w.write(").%s", "xxxx"[:e.Size])
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
		err = w.writeLoad(e)
	case ir.ExprUnary:
		err = w.writeUnary(e)
	case ir.ExprBinary:
		err = w.writeBinary(handle, e)
	case ir.ExprSelect:
		err = w.writeSelect(e)
	case ir.ExprMath:
		err = w.writeMath(handle, e)
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
	case ir.LiteralU64:
		w.write("%duL", uint64(v))
	case ir.LiteralI64:
		w.write("%dL", int64(v))
	case ir.LiteralBool:
		w.write("%s", strconv.FormatBool(bool(v)))
	default:
		return ir.Errorf(ir.ErrTypeMismatch, "unknown literal %T", value)
	}
	return nil
}

// writeCompose writes a constructor. Vectors and matrices use the type
// constructor; structs and arrays go through their construct helper.
func (w *Writer) writeCompose(compose ir.ExprCompose) error {
	name := ""
	switch t := w.module.Types[compose.Type].Inner.(type) {
	case ir.StructType, ir.ArrayType:
		name = w.constructHelper(compose.Type)
	default:
		name = w.innerName(t)
	}
	return w.writeBuiltinCall(name, compose.Components...)
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

// writeLoad reads through a pointer. Storage buffer pointers are read
// with byte address loads; other pointers are the variable itself.
func (w *Writer) writeLoad(load ir.ExprLoad) error {
	chain, ok, err := w.storagePointer(load.Pointer)
	if err != nil {
		return err
	}
	if !ok {
		return w.writeExpression(load.Pointer)
	}
	inner, handle := w.pointee(load.Pointer)
	return w.writeStorageLoad(chain, inner, handle, 0)
}

func (w *Writer) writeUnary(unary ir.ExprUnary) error {
	switch unary.Op {
	case ir.UnaryNegate:
		w.write("-(")
	case ir.UnaryLogicalNot:
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

// writeBinary writes a binary operation. Products involving a matrix
// are mul with the operands swapped, since an HLSL matrix row holds an
// IR column. Integer division and remainder go through the zero-safe
// helpers; float remainder is fmod.
func (w *Writer) writeBinary(handle ir.ExpressionHandle, binary ir.ExprBinary) error {
	left, right := w.fc.TypeOf(binary.Left), w.fc.TypeOf(binary.Right)
	if binary.Op == ir.BinaryMultiply {
		_, lm := left.(ir.MatrixType)
		_, rm := right.(ir.MatrixType)
		_, ls := left.(ir.ScalarType)
		_, rs := right.(ir.ScalarType)
		if (lm || rm) && !ls && !rs {
			return w.writeBuiltinCall("mul", binary.Right, binary.Left)
		}
	}

	s, _ := scalarOf(left)
	if binary.Op == ir.BinaryModulo && s.Kind == ir.ScalarFloat {
		return w.writeBuiltinCall("fmod", binary.Left, binary.Right)
	}
	if (binary.Op == ir.BinaryDivide || binary.Op == ir.BinaryModulo) && s.Kind != ir.ScalarFloat {
		ty := w.resolutionName(w.fc.ResolutionOf(handle))
		name := w.divModHelper(binary.Op, ty)
		w.write("%s(", name)
		if err := w.writeWidened(binary.Left, left, ty); err != nil {
			return err
		}
		w.write(", ")
		if err := w.writeWidened(binary.Right, right, ty); err != nil {
			return err
		}
		w.write(")")
		return nil
	}

	w.write("(")
	if err := w.writeExpression(binary.Left); err != nil {
		return err
	}
	w.write(" %s ", binary.Op.Symbol())
	if err := w.writeExpression(binary.Right); err != nil {
		return err
	}
	w.write(")")
	return nil
}

// writeWidened writes a scalar operand of a vector operation cast to the
// vector type, so helper overloads resolve.
func (w *Writer) writeWidened(h ir.ExpressionHandle, inner ir.TypeInner, ty string) error {
	if _, scalar := inner.(ir.ScalarType); !scalar || ty == w.innerName(inner) {
		return w.writeExpression(h)
	}
	w.write("(%s)", ty)
	return w.writeExpression(h)
}

// writeSelect writes a ternary, which HLSL applies per component for
// vector conditions.
func (w *Writer) writeSelect(sel ir.ExprSelect) error {
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

// mathFunctionToHLSL returns the intrinsic implementing fun.
func mathFunctionToHLSL(fun ir.MathFunction) string {
	switch fun {
	case ir.MathFract:
		return "frac"
	case ir.MathMix:
		return "lerp"
	case ir.MathInverseSqrt:
		return "rsqrt"
	case ir.MathFma:
		return "mad"
	}
	return fun.Name()
}

// writeMath writes a built-in math function.
func (w *Writer) writeMath(handle ir.ExpressionHandle, m ir.ExprMath) error {
	args := []ir.ExpressionHandle{m.Arg}
	if m.Arg1 != nil {
		args = append(args, *m.Arg1)
	}
	if m.Arg2 != nil {
		args = append(args, *m.Arg2)
	}
	s, _ := scalarOf(w.fc.TypeOf(m.Arg))
	_, vector := w.fc.TypeOf(m.Arg).(ir.VectorType)

	switch m.Fun {
	case ir.MathSign:
		// sign returns int in HLSL.
		ty := w.resolutionName(w.fc.ResolutionOf(handle))
		if s.Kind == ir.ScalarUint {
			w.write("min(")
			if err := w.writeExpression(m.Arg); err != nil {
				return err
			}
			w.write(", (%s)1u)", ty)
			return nil
		}
		w.write("(%s)", ty)
		return w.writeBuiltinCall("sign", m.Arg)
	case ir.MathLength:
		if !vector {
			return w.writeBuiltinCall("abs", args...)
		}
	case ir.MathDistance:
		if !vector {
			w.write("abs(")
			if err := w.writeExpression(m.Arg); err != nil {
				return err
			}
			w.write(" - ")
			if err := w.writeExpression(*m.Arg1); err != nil {
				return err
			}
			w.write(")")
			return nil
		}
	}
	return w.writeBuiltinCall(mathFunctionToHLSL(m.Fun), args...)
}

// writeAs writes a conversion as a constructor cast and a bitcast with
// the as* intrinsics.
func (w *Writer) writeAs(handle ir.ExpressionHandle, as ir.ExprAs) error {
	target := w.resolutionName(w.fc.ResolutionOf(handle))
	if as.Convert == nil {
		if as.Kind == ir.ScalarBool {
			return ir.Errorf(ir.ErrTypeMismatch, "cannot bitcast to bool")
		}
		return w.writeBuiltinCall(ScalarCast(as.Kind), as.Expr)
	}
	return w.writeBuiltinCall(target, as.Expr)
}

// writeTexelCoordinate writes an integer texel address, with the array
// layer and mip level appended as extra components.
func (w *Writer) writeTexelCoordinate(img ir.ImageType, coord ir.ExpressionHandle, layer, level *ir.ExpressionHandle, scalar string) error {
	size := img.Dim.CoordinateSize()
	extra := []*ir.ExpressionHandle{layer, level}
	for _, e := range extra {
		if e != nil {
			size++
		}
	}
	if size == 1 {
		w.write("%s(", scalar)
	} else {
		w.write("%s%d(", scalar, size)
	}
	if err := w.writeExpression(coord); err != nil {
		return err
	}
	for _, e := range extra {
		if e == nil {
			continue
		}
		w.write(", ")
		if err := w.writeExpression(*e); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// writeImageSample writes a texture sample operation. Array layers are
// packed into the coordinate as a float.
//
//nolint:gocyclo,cyclop // Image sampling has many parameters to handle
func (w *Writer) writeImageSample(sample ir.ExprImageSample) error {
	img, ok := w.fc.TypeOf(sample.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "sampled operand is not an image")
	}

	method := "Sample"
	switch sample.Level.(type) {
	case ir.SampleLevelZero, ir.SampleLevelExact:
		method = "SampleLevel"
	case ir.SampleLevelBias:
		method = "SampleBias"
	case ir.SampleLevelGradient:
		method = "SampleGrad"
	}
	if sample.DepthRef != nil {
		switch sample.Level.(type) {
		case ir.SampleLevelAuto:
			method = "SampleCmp"
		case ir.SampleLevelZero:
			method = "SampleCmpLevelZero"
		case ir.SampleLevelExact:
			if w.options.ShaderModel < ShaderModel6_7 {
				return ir.Errorf(ir.ErrUnsupportedFeature, "depth comparison at an explicit level needs Shader Model 6.7, have %s", w.options.ShaderModel)
			}
			method = "SampleCmpLevel"
		default:
			return ir.Errorf(ir.ErrUnsupportedFeature, "depth comparison with bias or gradients")
		}
	}

	if err := w.writeExpression(sample.Image); err != nil {
		return err
	}
	w.write(".%s(", method)
	if err := w.writeExpression(sample.Sampler); err != nil {
		return err
	}
	w.write(", ")
	if sample.ArrayIndex != nil {
		w.write("float%d(", img.Dim.CoordinateSize()+1)
		if err := w.writeExpression(sample.Coordinate); err != nil {
			return err
		}
		w.write(", float(")
		if err := w.writeExpression(*sample.ArrayIndex); err != nil {
			return err
		}
		w.write("))")
	} else if err := w.writeExpression(sample.Coordinate); err != nil {
		return err
	}
	if sample.DepthRef != nil {
		w.write(", ")
		if err := w.writeExpression(*sample.DepthRef); err != nil {
			return err
		}
	}

	switch level := sample.Level.(type) {
	case ir.SampleLevelZero:
		if sample.DepthRef == nil {
			w.write(", 0.0")
		}
	case ir.SampleLevelExact:
		w.write(", ")
		if err := w.writeExpression(level.Level); err != nil {
			return err
		}
	case ir.SampleLevelBias:
		w.write(", ")
		if err := w.writeExpression(level.Bias); err != nil {
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
	w.write(")")
	return nil
}

// writeImageLoad writes a texel fetch. Sampled images take the mip level
// as the last coordinate component, multisampled ones take the sample
// index as a second argument. Storage loads of narrow formats are
// widened to four components.
func (w *Writer) writeImageLoad(load ir.ExprImageLoad) error {
	img, ok := w.fc.TypeOf(load.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "loaded operand is not an image")
	}

	widen := ""
	if img.Class == ir.ImageClassStorage {
		switch formatComponents(img.Format) {
		case 1:
			widen = "1"
		case 2:
			widen = "2"
		}
	}
	vec := VectorToHLSL(ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarType{Kind: img.Format.ScalarKind(), Width: 4}})
	if widen != "" {
		w.write("%s(", vec)
	}

	if err := w.writeExpression(load.Image); err != nil {
		return err
	}
	w.write(".Load(")
	level := load.Level
	if img.Class != ir.ImageClassStorage && !img.Multisampled && level == nil {
		if err := w.writeTexelCoordinateWith(img, load.Coordinate, load.ArrayIndex, "0"); err != nil {
			return err
		}
	} else {
		if img.Class == ir.ImageClassStorage || img.Multisampled {
			level = nil
		}
		if err := w.writeTexelCoordinate(img, load.Coordinate, load.ArrayIndex, level, "int"); err != nil {
			return err
		}
	}
	if img.Multisampled && load.Sample != nil {
		w.write(", ")
		if err := w.writeExpression(*load.Sample); err != nil {
			return err
		}
	}
	w.write(")")

	zero, one := "0.0", "1.0"
	switch img.Format.ScalarKind() {
	case ir.ScalarUint:
		zero, one = "0u", "1u"
	case ir.ScalarSint:
		zero, one = "0", "1"
	}
	switch widen {
	case "1":
		w.write(", %s, %s, %s)", zero, zero, one)
	case "2":
		w.write(", %s, %s)", zero, one)
	}
	return nil
}

// writeTexelCoordinateWith writes an int coordinate ending in a literal
// mip level.
func (w *Writer) writeTexelCoordinateWith(img ir.ImageType, coord ir.ExpressionHandle, layer *ir.ExpressionHandle, level string) error {
	size := img.Dim.CoordinateSize() + 1
	if layer != nil {
		size++
	}
	w.write("int%d(", size)
	if err := w.writeExpression(coord); err != nil {
		return err
	}
	if layer != nil {
		w.write(", ")
		if err := w.writeExpression(*layer); err != nil {
			return err
		}
	}
	w.write(", %s)", level)
	return nil
}

// writeImageQuery writes an image query through the dimensions helper of
// the image type.
func (w *Writer) writeImageQuery(query ir.ExprImageQuery) error {
	img, ok := w.fc.TypeOf(query.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "queried operand is not an image")
	}
	mipped := img.Class != ir.ImageClassStorage && !img.Multisampled
	call := func(level *ir.ExpressionHandle) error {
		w.write("%s(", w.imageDimsHelper(img))
		if err := w.writeExpression(query.Image); err != nil {
			return err
		}
		if mipped {
			w.write(", ")
			if level == nil {
				w.write("0u")
			} else if err := w.writeExpression(*level); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	}

	size := imageSizeComponents(img)
	components := "xyzw"
	switch q := query.Query.(type) {
	case ir.ImageQuerySize:
		if err := call(q.Level); err != nil {
			return err
		}
		w.write(".%s", components[:size])
		return nil
	case ir.ImageQueryNumLayers:
		if !img.Arrayed {
			return ir.Errorf(ir.ErrTypeMismatch, "layer count of a non-arrayed image")
		}
		if err := call(nil); err != nil {
			return err
		}
		w.write(".%c", components[size])
		return nil
	case ir.ImageQueryNumLevels, ir.ImageQueryNumSamples:
		index := size
		if img.Arrayed {
			index++
		}
		if err := call(nil); err != nil {
			return err
		}
		w.write(".%c", components[index])
		return nil
	}
	return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported image query: %T", query.Query)
}

// writeDerivative writes a derivative. fwidth has no fine or coarse
// variant.
func (w *Writer) writeDerivative(deriv ir.ExprDerivative) error {
	name := "fwidth"
	switch deriv.Axis {
	case ir.DerivativeX:
		name = "ddx"
	case ir.DerivativeY:
		name = "ddy"
	}
	if deriv.Axis != ir.DerivativeWidth {
		switch deriv.Control {
		case ir.DerivativeCoarse:
			name += "_coarse"
		case ir.DerivativeFine:
			name += "_fine"
		}
	}
	return w.writeBuiltinCall(name, deriv.Expr)
}

// writeRelational writes a relational function.
func (w *Writer) writeRelational(rel ir.ExprRelational) error {
	name := map[ir.RelationalFunction]string{
		ir.RelationalAll:   "all",
		ir.RelationalAny:   "any",
		ir.RelationalIsNan: "isnan",
		ir.RelationalIsInf: "isinf",
	}[rel.Fun]
	if name == "" {
		return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported relational function %d", rel.Fun)
	}
	return w.writeBuiltinCall(name, rel.Argument)
}

// writeArrayLength calls the length helper of the buffer holding the
// runtime-sized array.
func (w *Writer) writeArrayLength(length ir.ExprArrayLength) error {
	g, ok := w.fc.GlobalOf(length.Array)
	if !ok || w.module.GlobalVariables[g].Space != ir.SpaceStorage {
		return ir.Errorf(ir.ErrUnsupportedFeature, "array length of a runtime array that is not in a storage buffer")
	}
	name, err := w.arrayLengthHelper(g)
	if err != nil {
		return err
	}
	w.write("%s()", name)
	return nil
}
