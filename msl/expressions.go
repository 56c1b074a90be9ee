package msl

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
		w.write("%s {}", w.typeName(e.Type))
	case ir.ExprCompose:
		err = w.writeCompose(e)
	case ir.ExprAccess:
		err = w.writeIndexed(e.Base, func() error { return w.writeExpression(e.Index) })
	case ir.ExprAccessIndex:
		err = w.writeAccessIndex(e)
	case ir.ExprSplat:
		w.write("%s(", w.resolutionName(w.fc.ResolutionOf(handle)))
		err = w.writeExpression(e.Value)
		w.write(")")
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
		err = w.writeRelational(handle, e)
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

// writeLiteral writes a literal value. Floats always carry a decimal
// point; unsigned integers carry a u suffix.
func (w *Writer) writeLiteral(value ir.LiteralValue) error {
	switch v := value.(type) {
	case ir.LiteralF32:
		w.write("%s", floatLiteral(float32(v)))
	case ir.LiteralF64:
		return ir.Errorf(ir.ErrUnsupportedFeature, "MSL has no 64-bit floating point type")
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

// writeCompose writes a constructor. Structs use aggregate
// initialization, skipping padding fields; arrays fill the wrapper.
func (w *Writer) writeCompose(compose ir.ExprCompose) error {
	components := func(pads map[int]bool) error {
		for i, c := range compose.Components {
			if i > 0 {
				w.write(", ")
			}
			if pads[i] {
				w.write("{}, ")
			}
			if err := w.writeExpression(c); err != nil {
				return err
			}
		}
		return nil
	}

	switch t := w.module.Types[compose.Type].Inner.(type) {
	case ir.StructType:
		w.write("%s {", w.typeName(compose.Type))
		if err := components(w.structPads[compose.Type]); err != nil {
			return err
		}
		w.write("}")
	case ir.ArrayType:
		w.write("%s {{", w.typeName(compose.Type))
		if err := components(nil); err != nil {
			return err
		}
		w.write("}}")
	default:
		w.write("%s(", w.innerName(t))
		if err := components(nil); err != nil {
			return err
		}
		w.write(")")
	}
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

// writeIndexed writes base[index], reaching through array wrappers.
func (w *Writer) writeIndexed(base ir.ExpressionHandle, index func() error) error {
	if err := w.writeExpression(base); err != nil {
		return err
	}
	if arr, ok := w.pointeeOnly(base).(ir.ArrayType); ok && !arr.IsRuntimeSized() {
		w.write(".inner")
	}
	w.write("[")
	if err := index(); err != nil {
		return err
	}
	w.write("]")
	return nil
}

func (w *Writer) pointeeOnly(h ir.ExpressionHandle) ir.TypeInner {
	inner, _ := w.pointee(h)
	return inner
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

// writeBinary writes a binary operation. Integer division and remainder
// go through the zero-safe helpers; float remainder is fmod.
func (w *Writer) writeBinary(binary ir.ExprBinary) error {
	s, _ := scalarOf(w.fc.TypeOf(binary.Left))
	call := ""
	switch {
	case binary.Op == ir.BinaryModulo && s.Kind == ir.ScalarFloat:
		call = Namespace + "fmod"
	case binary.Op == ir.BinaryModulo:
		call = "_mod"
	case binary.Op == ir.BinaryDivide && s.Kind != ir.ScalarFloat:
		call = "_div"
	}
	if call != "" {
		w.write("%s(", call)
		if err := w.writeExpression(binary.Left); err != nil {
			return err
		}
		w.write(", ")
		if err := w.writeExpression(binary.Right); err != nil {
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

// writeSelect writes a ternary for a scalar condition and metal::select
// for a per-component one.
func (w *Writer) writeSelect(sel ir.ExprSelect) error {
	if _, scalar := w.fc.TypeOf(sel.Condition).(ir.ScalarType); scalar {
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
	return w.writeBuiltinCall(Namespace+"select", sel.Reject, sel.Accept, sel.Condition)
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

// mathFunctionName returns the metal:: function implementing fun, or ""
// when it needs an expansion.
func mathFunctionName(fun ir.MathFunction) string {
	switch fun {
	case ir.MathRound:
		return "rint"
	case ir.MathInverseSqrt:
		return "rsqrt"
	case ir.MathDot, ir.MathSign:
		return ""
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
	case ir.MathDot:
		if s.Kind == ir.ScalarFloat {
			return w.writeBuiltinCall(Namespace+"dot", args...)
		}
		return w.writeIntegerDot(m.Arg, *m.Arg1)
	case ir.MathSign:
		if s.Kind == ir.ScalarFloat {
			return w.writeBuiltinCall(Namespace+"sign", args...)
		}
		return w.writeIntegerSign(handle, m.Arg, s.Kind)
	case ir.MathLength:
		if !vector {
			return w.writeBuiltinCall(Namespace+"abs", args...)
		}
	case ir.MathDistance:
		if !vector {
			w.write("%sabs(", Namespace)
			if err := w.writeBinary(ir.ExprBinary{Op: ir.BinarySubtract, Left: m.Arg, Right: *m.Arg1}); err != nil {
				return err
			}
			w.write(")")
			return nil
		}
	}
	return w.writeBuiltinCall(Namespace+mathFunctionName(m.Fun), args...)
}

// writeIntegerDot expands an integer dot product, which Metal lacks.
func (w *Writer) writeIntegerDot(a, b ir.ExpressionHandle) error {
	v, ok := w.fc.TypeOf(a).(ir.VectorType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "dot operand is not a vector")
	}
	w.write("(")
	for i := range int(v.Size) {
		if i > 0 {
			w.write(" + ")
		}
		if err := w.writeExpression(a); err != nil {
			return err
		}
		w.write(".%c * ", ir.SwizzleComponent(i).Letter())
		if err := w.writeExpression(b); err != nil {
			return err
		}
		w.write(".%c", ir.SwizzleComponent(i).Letter())
	}
	w.write(")")
	return nil
}

// writeIntegerSign expands sign for integers.
func (w *Writer) writeIntegerSign(handle, arg ir.ExpressionHandle, kind ir.ScalarKind) error {
	ty := w.resolutionName(w.fc.ResolutionOf(handle))
	if kind == ir.ScalarUint {
		w.write("%smin(", Namespace)
		if err := w.writeExpression(arg); err != nil {
			return err
		}
		w.write(", %s(1))", ty)
		return nil
	}
	w.write("%sselect(%sselect(%s(0), %s(1), (", Namespace, Namespace, ty, ty)
	if err := w.writeExpression(arg); err != nil {
		return err
	}
	w.write(" > %s(0))), %s(-1), (", ty, ty)
	if err := w.writeExpression(arg); err != nil {
		return err
	}
	w.write(" < %s(0)))", ty)
	return nil
}

// writeAs writes a conversion with static_cast and a bitcast with
// as_type.
func (w *Writer) writeAs(handle ir.ExpressionHandle, as ir.ExprAs) error {
	target := w.resolutionName(w.fc.ResolutionOf(handle))
	if as.Convert != nil && as.Kind == ir.ScalarFloat && *as.Convert == 8 {
		return ir.Errorf(ir.ErrUnsupportedFeature, "MSL has no 64-bit floating point type")
	}
	if as.Convert == nil {
		w.write("as_type<%s>(", target)
	} else {
		w.write("static_cast<%s>(", target)
	}
	if err := w.writeExpression(as.Expr); err != nil {
		return err
	}
	w.write(")")
	return nil
}

// writeCoordinate writes an image coordinate converted to unsigned.
func (w *Writer) writeCoordinate(dim ir.ImageDimension, coord ir.ExpressionHandle) error {
	switch dim {
	case ir.Dim1D:
		w.write("%suint(", Namespace)
	case ir.Dim2D:
		w.write("%suint2(", Namespace)
	case ir.Dim3D:
		w.write("%suint3(", Namespace)
	default:
		return ir.Errorf(ir.ErrUnsupportedFeature, "cube images cannot be addressed by texel in MSL")
	}
	if err := w.writeExpression(coord); err != nil {
		return err
	}
	w.write(")")
	return nil
}

// writeImageSample writes a texture sample operation.
//
//nolint:gocyclo,cyclop // Image sampling has many parameters to handle
func (w *Writer) writeImageSample(sample ir.ExprImageSample) error {
	img, ok := w.fc.TypeOf(sample.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "sampled operand is not an image")
	}
	if err := w.writeExpression(sample.Image); err != nil {
		return err
	}
	if sample.DepthRef != nil {
		w.write(".sample_compare(")
	} else {
		w.write(".sample(")
	}
	if err := w.writeExpression(sample.Sampler); err != nil {
		return err
	}
	w.write(", ")
	if err := w.writeExpression(sample.Coordinate); err != nil {
		return err
	}
	if sample.ArrayIndex != nil {
		w.write(", ")
		if err := w.writeExpression(*sample.ArrayIndex); err != nil {
			return err
		}
	}
	if sample.DepthRef != nil {
		w.write(", ")
		if err := w.writeExpression(*sample.DepthRef); err != nil {
			return err
		}
	}

	switch level := sample.Level.(type) {
	case ir.SampleLevelZero:
		if sample.DepthRef != nil {
			w.write(", %slevel(0)", Namespace)
		} else {
			w.write(", %slevel(0.0)", Namespace)
		}
	case ir.SampleLevelExact:
		w.write(", %slevel(", Namespace)
		if err := w.writeExpression(level.Level); err != nil {
			return err
		}
		w.write(")")
	case ir.SampleLevelBias:
		w.write(", %sbias(", Namespace)
		if err := w.writeExpression(level.Bias); err != nil {
			return err
		}
		w.write(")")
	case ir.SampleLevelGradient:
		gradient := "gradient2d"
		switch img.Dim {
		case ir.Dim3D:
			gradient = "gradient3d"
		case ir.DimCube:
			gradient = "gradientcube"
		}
		w.write(", %s%s(", Namespace, gradient)
		if err := w.writeExpression(level.X); err != nil {
			return err
		}
		w.write(", ")
		if err := w.writeExpression(level.Y); err != nil {
			return err
		}
		w.write(")")
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

// writeImageLoad writes a texture read.
func (w *Writer) writeImageLoad(load ir.ExprImageLoad) error {
	img, ok := w.fc.TypeOf(load.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "loaded operand is not an image")
	}
	if err := w.writeExpression(load.Image); err != nil {
		return err
	}
	w.write(".read(")
	if err := w.writeCoordinate(img.Dim, load.Coordinate); err != nil {
		return err
	}
	extra := []*ir.ExpressionHandle{load.ArrayIndex, load.Sample}
	if img.Dim != ir.Dim1D {
		extra = append(extra, load.Level)
	}
	for _, h := range extra {
		if h == nil {
			continue
		}
		w.write(", ")
		if err := w.writeExpression(*h); err != nil {
			return err
		}
	}
	w.write(")")
	return nil
}

// writeImageQuery writes an image query. Sizes are gathered from the
// per-axis getters.
func (w *Writer) writeImageQuery(query ir.ExprImageQuery) error {
	img, ok := w.fc.TypeOf(query.Image).(ir.ImageType)
	if !ok {
		return ir.Errorf(ir.ErrTypeMismatch, "queried operand is not an image")
	}
	getter := func(method string, level *ir.ExpressionHandle) error {
		if err := w.writeExpression(query.Image); err != nil {
			return err
		}
		w.write(".%s(", method)
		if level != nil {
			if err := w.writeExpression(*level); err != nil {
				return err
			}
		}
		w.write(")")
		return nil
	}

	switch q := query.Query.(type) {
	case ir.ImageQuerySize:
		level := q.Level
		if img.Class == ir.ImageClassStorage || img.Multisampled || img.Dim == ir.Dim1D {
			level = nil
		}
		methods := []string{"get_width", "get_height", "get_depth"}
		count := img.Dim.CoordinateSize()
		if img.Dim == ir.DimCube {
			count = 2
		}
		if count > 1 {
			w.write("%suint%d(", Namespace, count)
		}
		for i := range count {
			if i > 0 {
				w.write(", ")
			}
			if err := getter(methods[i], level); err != nil {
				return err
			}
		}
		if count > 1 {
			w.write(")")
		}
		return nil
	case ir.ImageQueryNumLevels:
		return getter("get_num_mip_levels", nil)
	case ir.ImageQueryNumLayers:
		return getter("get_array_size", nil)
	case ir.ImageQueryNumSamples:
		return getter("get_num_samples", nil)
	}
	return ir.Errorf(ir.ErrUnsupportedFeature, "unsupported image query: %T", query.Query)
}

// writeDerivative writes a derivative. Metal has no fine or coarse
// variants, so the control hint is dropped.
func (w *Writer) writeDerivative(deriv ir.ExprDerivative) error {
	name := "fwidth"
	switch deriv.Axis {
	case ir.DerivativeX:
		name = "dfdx"
	case ir.DerivativeY:
		name = "dfdy"
	}
	return w.writeBuiltinCall(Namespace+name, deriv.Expr)
}

// writeRelational writes a relational function. all and any of a
// scalar are the scalar itself.
func (w *Writer) writeRelational(_ ir.ExpressionHandle, rel ir.ExprRelational) error {
	_, vector := w.fc.TypeOf(rel.Argument).(ir.VectorType)
	switch rel.Fun {
	case ir.RelationalAll, ir.RelationalAny:
		if !vector {
			return w.writeExpression(rel.Argument)
		}
		name := "all"
		if rel.Fun == ir.RelationalAny {
			name = "any"
		}
		return w.writeBuiltinCall(Namespace+name, rel.Argument)
	case ir.RelationalIsNan:
		return w.writeBuiltinCall(Namespace+"isnan", rel.Argument)
	default:
		return w.writeBuiltinCall(Namespace+"isinf", rel.Argument)
	}
}

// writeArrayLength computes a runtime array's length from the byte size
// of its buffer.
func (w *Writer) writeArrayLength(length ir.ExprArrayLength) error {
	g, ok := w.fc.GlobalOf(length.Array)
	if !ok {
		return ir.Errorf(ir.ErrUnsupportedFeature, "array length of a runtime array that is not in a global buffer")
	}
	ty := w.module.GlobalVariables[g].Type
	var offset uint32
	if st, isStruct := w.module.Types[ty].Inner.(ir.StructType); isStruct && len(st.Members) > 0 {
		last := st.Members[len(st.Members)-1]
		offset, ty = last.Offset, last.Type
	}
	arr, ok := w.module.Types[ty].Inner.(ir.ArrayType)
	if !ok || !arr.IsRuntimeSized() {
		return ir.Errorf(ir.ErrTypeMismatch, "array length operand is not a runtime-sized array")
	}
	stride := arr.Stride
	if stride == 0 {
		stride = w.info.Layouts.Layout(arr.Base).Stride()
	}
	w.write("(1u + (%s.size%d - %du - %du) / %du)", sizesParam, g, offset, stride, stride)
	return nil
}
