package spirv

import (
	"math"

	"github.com/gogpu/shadercross/ir"
)

// expression lowers an expression that is evaluated by an Emit statement.
//
//nolint:gocyclo,cyclop // one case per expression kind
func (w *functionWriter) expression(h ir.ExpressionHandle) (uint32, *ir.Error) {
	resultType := w.typeOf(h)
	switch e := w.fn.Expressions[h].Kind.(type) {
	case ir.ExprCompose:
		parts := make([]uint32, len(e.Components))
		for i, c := range e.Components {
			parts[i] = w.expr(c)
		}
		return w.result(OpCompositeConstruct, resultType, parts...), nil

	case ir.ExprAccess:
		return w.access(h, e.Base, w.expr(e.Index), nil), nil

	case ir.ExprAccessIndex:
		return w.access(h, e.Base, 0, &e.Index), nil

	case ir.ExprSplat:
		return w.splat(w.expr(e.Value), resultType, e.Size), nil

	case ir.ExprSwizzle:
		v := w.expr(e.Vector)
		operands := []uint32{v, v}
		for i := 0; i < int(e.Size); i++ {
			operands = append(operands, uint32(e.Pattern[i]))
		}
		return w.result(OpVectorShuffle, resultType, operands...), nil

	case ir.ExprLoad:
		return w.result(OpLoad, resultType, w.expr(e.Pointer)), nil

	case ir.ExprImageSample:
		return w.imageSample(resultType, e), nil

	case ir.ExprImageLoad:
		return w.imageLoad(resultType, e), nil

	case ir.ExprImageQuery:
		return w.imageQuery(resultType, e), nil

	case ir.ExprUnary:
		return w.unary(resultType, e), nil

	case ir.ExprBinary:
		return w.binary(resultType, e), nil

	case ir.ExprSelect:
		cond := w.expr(e.Condition)
		if v, ok := w.inner(e.Accept).(ir.VectorType); ok {
			if _, scalar := w.inner(e.Condition).(ir.ScalarType); scalar {
				cond = w.splat(cond, w.b.vectorTypeID(ir.ScalarBoolType, v.Size), v.Size)
			}
		}
		return w.result(OpSelect, resultType, cond, w.expr(e.Accept), w.expr(e.Reject)), nil

	case ir.ExprDerivative:
		op := derivativeOps[e.Axis][e.Control]
		if e.Control != ir.DerivativeNone {
			w.b.require(CapabilityDerivativeControl)
		}
		return w.result(op, resultType, w.expr(e.Expr)), nil

	case ir.ExprRelational:
		arg := w.expr(e.Argument)
		switch e.Fun {
		case ir.RelationalAll, ir.RelationalAny:
			if _, scalar := w.inner(e.Argument).(ir.ScalarType); scalar {
				return arg, nil
			}
			if e.Fun == ir.RelationalAll {
				return w.result(OpAll, resultType, arg), nil
			}
			return w.result(OpAny, resultType, arg), nil
		case ir.RelationalIsNan:
			return w.result(OpIsNan, resultType, arg), nil
		default:
			return w.result(OpIsInf, resultType, arg), nil
		}

	case ir.ExprMath:
		return w.mathFunction(h, resultType, e)

	case ir.ExprAs:
		return w.convert(resultType, e), nil

	case ir.ExprArrayLength:
		return w.arrayLength(resultType, e.Array)

	default:
		return 0, ir.Errorf(ir.ErrUnsupportedFeature, "expression %T cannot be emitted", e)
	}
}

var derivativeOps = [3][3]OpCode{
	ir.DerivativeX:     {OpDPdx, OpDPdxCoarse, OpDPdxFine},
	ir.DerivativeY:     {OpDPdy, OpDPdyCoarse, OpDPdyFine},
	ir.DerivativeWidth: {OpFwidth, OpFwidthCoarse, OpFwidthFine},
}

// access lowers Access (index is an ID) and AccessIndex (constant != nil).
func (w *functionWriter) access(h, base ir.ExpressionHandle, index uint32, constant *uint32) uint32 {
	resultType := w.typeOf(h)
	baseID := w.expr(base)
	if constant != nil {
		index = w.b.u32Constant(*constant)
	}

	switch w.inner(base).(type) {
	case ir.PointerType, ir.ValuePointerType:
		return w.result(OpAccessChain, resultType, baseID, index)
	case ir.BindingArrayType:
		ptr := w.b.pointerTypeID(StorageClassUniformConstant, resultType)
		element := w.result(OpAccessChain, ptr, baseID, index)
		return w.result(OpLoad, resultType, element)
	case ir.VectorType:
		if constant != nil {
			return w.result(OpCompositeExtract, resultType, baseID, *constant)
		}
		return w.result(OpVectorExtractDynamic, resultType, baseID, index)
	default:
		if constant != nil {
			return w.result(OpCompositeExtract, resultType, baseID, *constant)
		}
		// Arrays and matrices can only be indexed dynamically in memory.
		tmp := w.spill(w.typeOf(base))
		w.emit(OpStore, tmp, baseID)
		element := w.result(OpAccessChain, w.b.pointerTypeID(StorageClassFunction, resultType), tmp, index)
		return w.result(OpLoad, resultType, element)
	}
}

func (w *functionWriter) splat(value, vectorType uint32, size ir.VectorSize) uint32 {
	parts := make([]uint32, size)
	for i := range parts {
		parts[i] = value
	}
	return w.result(OpCompositeConstruct, vectorType, parts...)
}

// widen splats a scalar operand to the width of a vector type.
func (w *functionWriter) widen(id uint32, inner, target ir.TypeInner) uint32 {
	s, isScalar := inner.(ir.ScalarType)
	v, isVector := target.(ir.VectorType)
	if !isScalar || !isVector {
		return id
	}
	return w.splat(id, w.b.vectorTypeID(s, v.Size), v.Size)
}

func scalarOf(inner ir.TypeInner) ir.ScalarType {
	switch t := inner.(type) {
	case ir.ScalarType:
		return t
	case ir.VectorType:
		return t.Scalar
	case ir.MatrixType:
		return t.Scalar
	case ir.ValuePointerType:
		return t.Scalar
	default:
		return ir.ScalarType{}
	}
}

func (w *functionWriter) unary(resultType uint32, e ir.ExprUnary) uint32 {
	arg := w.expr(e.Expr)
	switch e.Op {
	case ir.UnaryNegate:
		if scalarOf(w.inner(e.Expr)).Kind == ir.ScalarFloat {
			return w.result(OpFNegate, resultType, arg)
		}
		return w.result(OpSNegate, resultType, arg)
	case ir.UnaryLogicalNot:
		return w.result(OpLogicalNot, resultType, arg)
	default:
		return w.result(OpNot, resultType, arg)
	}
}

type binaryOps struct {
	float, sint, uint, boolean OpCode
}

func (o binaryOps) pick(kind ir.ScalarKind) OpCode {
	switch kind {
	case ir.ScalarFloat:
		return o.float
	case ir.ScalarSint:
		return o.sint
	case ir.ScalarBool:
		return o.boolean
	default:
		return o.uint
	}
}

var binaryTable = map[ir.BinaryOperator]binaryOps{
	ir.BinaryAdd:          {OpFAdd, OpIAdd, OpIAdd, OpNop},
	ir.BinarySubtract:     {OpFSub, OpISub, OpISub, OpNop},
	ir.BinaryMultiply:     {OpFMul, OpIMul, OpIMul, OpNop},
	ir.BinaryDivide:       {OpFDiv, OpSDiv, OpUDiv, OpNop},
	ir.BinaryModulo:       {OpFRem, OpSRem, OpUMod, OpNop},
	ir.BinaryEqual:        {OpFOrdEqual, OpIEqual, OpIEqual, OpLogicalEqual},
	ir.BinaryNotEqual:     {OpFOrdNotEqual, OpINotEqual, OpINotEqual, OpLogicalNotEqual},
	ir.BinaryLess:         {OpFOrdLessThan, OpSLessThan, OpULessThan, OpNop},
	ir.BinaryLessEqual:    {OpFOrdLessThanEqual, OpSLessThanEqual, OpULessThanEqual, OpNop},
	ir.BinaryGreater:      {OpFOrdGreaterThan, OpSGreaterThan, OpUGreaterThan, OpNop},
	ir.BinaryGreaterEqual: {OpFOrdGreaterThanEqual, OpSGreaterThanEqual, OpUGreaterThanEqual, OpNop},
	ir.BinaryAnd:          {OpNop, OpBitwiseAnd, OpBitwiseAnd, OpLogicalAnd},
	ir.BinaryExclusiveOr:  {OpNop, OpBitwiseXor, OpBitwiseXor, OpLogicalNotEqual},
	ir.BinaryInclusiveOr:  {OpNop, OpBitwiseOr, OpBitwiseOr, OpLogicalOr},
	ir.BinaryLogicalAnd:   {OpNop, OpNop, OpNop, OpLogicalAnd},
	ir.BinaryLogicalOr:    {OpNop, OpNop, OpNop, OpLogicalOr},
	ir.BinaryShiftLeft:    {OpNop, OpShiftLeftLogical, OpShiftLeftLogical, OpNop},
	ir.BinaryShiftRight:   {OpNop, OpShiftRightArithmetic, OpShiftRightLogical, OpNop},
}

func (w *functionWriter) binary(resultType uint32, e ir.ExprBinary) uint32 {
	left, right := w.expr(e.Left), w.expr(e.Right)
	lt, rt := w.inner(e.Left), w.inner(e.Right)

	if e.Op == ir.BinaryMultiply {
		if id, ok := w.multiply(resultType, left, right, lt, rt); ok {
			return id
		}
	}

	if lm, ok := lt.(ir.MatrixType); ok && e.Op.IsArithmetic() {
		return w.columnwise(resultType, binaryTable[e.Op].float, left, right, lm)
	}

	left = w.widen(left, lt, rt)
	right = w.widen(right, rt, lt)
	op := binaryTable[e.Op].pick(scalarOf(lt).Kind)
	return w.result(op, resultType, left, right)
}

// multiply handles the products that have dedicated SPIR-V opcodes.
func (w *functionWriter) multiply(resultType, left, right uint32, lt, rt ir.TypeInner) (uint32, bool) {
	switch l := lt.(type) {
	case ir.MatrixType:
		switch rt.(type) {
		case ir.ScalarType:
			return w.result(OpMatrixTimesScalar, resultType, left, right), true
		case ir.VectorType:
			return w.result(OpMatrixTimesVector, resultType, left, right), true
		case ir.MatrixType:
			return w.result(OpMatrixTimesMatrix, resultType, left, right), true
		}
	case ir.VectorType:
		switch rt.(type) {
		case ir.MatrixType:
			return w.result(OpVectorTimesMatrix, resultType, left, right), true
		case ir.ScalarType:
			if l.Scalar.Kind == ir.ScalarFloat {
				return w.result(OpVectorTimesScalar, resultType, left, right), true
			}
		}
	case ir.ScalarType:
		switch r := rt.(type) {
		case ir.MatrixType:
			return w.result(OpMatrixTimesScalar, resultType, right, left), true
		case ir.VectorType:
			if r.Scalar.Kind == ir.ScalarFloat {
				return w.result(OpVectorTimesScalar, resultType, right, left), true
			}
		}
	}
	return 0, false
}

// columnwise applies a float operator to each column of two matrices.
func (w *functionWriter) columnwise(resultType uint32, op OpCode, left, right uint32, m ir.MatrixType) uint32 {
	columnType := w.b.vectorTypeID(m.Scalar, m.Rows)
	columns := make([]uint32, m.Columns)
	for i := range columns {
		l := w.result(OpCompositeExtract, columnType, left, uint32(i))
		r := w.result(OpCompositeExtract, columnType, right, uint32(i))
		columns[i] = w.result(op, columnType, l, r)
	}
	return w.result(OpCompositeConstruct, resultType, columns...)
}

// floatConstant declares a float constant of the given scalar width.
func (w *functionWriter) floatConstant(s ir.ScalarType, v float64) uint32 {
	if s.Width == 8 {
		return w.b.scalarConstant(s, math.Float64bits(v))
	}
	return w.b.scalarConstant(s, uint64(math.Float32bits(float32(v))))
}

type mathOps struct {
	float, sint, uint uint32
}

func (o mathOps) pick(kind ir.ScalarKind) uint32 {
	switch kind {
	case ir.ScalarSint:
		return o.sint
	case ir.ScalarUint:
		return o.uint
	default:
		return o.float
	}
}

// glslMath maps the functions that are a single GLSL.std.450 instruction.
var glslMath = map[ir.MathFunction]mathOps{
	ir.MathMin:         {GLSLstd450FMin, GLSLstd450SMin, GLSLstd450UMin},
	ir.MathMax:         {GLSLstd450FMax, GLSLstd450SMax, GLSLstd450UMax},
	ir.MathClamp:       {GLSLstd450FClamp, GLSLstd450SClamp, GLSLstd450UClamp},
	ir.MathCos:         {float: GLSLstd450Cos},
	ir.MathSin:         {float: GLSLstd450Sin},
	ir.MathTan:         {float: GLSLstd450Tan},
	ir.MathAcos:        {float: GLSLstd450Acos},
	ir.MathAsin:        {float: GLSLstd450Asin},
	ir.MathAtan:        {float: GLSLstd450Atan},
	ir.MathAtan2:       {float: GLSLstd450Atan2},
	ir.MathCeil:        {float: GLSLstd450Ceil},
	ir.MathFloor:       {float: GLSLstd450Floor},
	ir.MathRound:       {float: GLSLstd450RoundEven},
	ir.MathFract:       {float: GLSLstd450Fract},
	ir.MathTrunc:       {float: GLSLstd450Trunc},
	ir.MathExp:         {float: GLSLstd450Exp},
	ir.MathExp2:        {float: GLSLstd450Exp2},
	ir.MathLog:         {float: GLSLstd450Log},
	ir.MathLog2:        {float: GLSLstd450Log2},
	ir.MathPow:         {float: GLSLstd450Pow},
	ir.MathCross:       {float: GLSLstd450Cross},
	ir.MathDistance:    {float: GLSLstd450Distance},
	ir.MathLength:      {float: GLSLstd450Length},
	ir.MathNormalize:   {float: GLSLstd450Normalize},
	ir.MathReflect:     {float: GLSLstd450Reflect},
	ir.MathFma:         {float: GLSLstd450Fma},
	ir.MathMix:         {float: GLSLstd450FMix},
	ir.MathStep:        {float: GLSLstd450Step},
	ir.MathSmoothStep:  {float: GLSLstd450SmoothStep},
	ir.MathSqrt:        {float: GLSLstd450Sqrt},
	ir.MathInverseSqrt: {float: GLSLstd450InverseSqrt},
	ir.MathDeterminant: {float: GLSLstd450Determinant},
}

func (w *functionWriter) mathFunction(h ir.ExpressionHandle, resultType uint32, e ir.ExprMath) (uint32, *ir.Error) {
	argInner := w.inner(e.Arg)
	scalar := scalarOf(argInner)
	resultInner := w.inner(h)
	arg := w.expr(e.Arg)

	args := []uint32{arg}
	for _, extra := range []*ir.ExpressionHandle{e.Arg1, e.Arg2} {
		if extra != nil {
			args = append(args, w.widen(w.expr(*extra), w.inner(*extra), resultInner))
		}
	}
	args[0] = w.widen(arg, argInner, resultInner)

	switch e.Fun {
	case ir.MathAbs:
		switch scalar.Kind {
		case ir.ScalarUint:
			return arg, nil
		case ir.ScalarSint:
			return w.extInst(resultType, GLSLstd450SAbs, arg), nil
		default:
			return w.extInst(resultType, GLSLstd450FAbs, arg), nil
		}
	case ir.MathSign:
		switch scalar.Kind {
		case ir.ScalarUint:
			one := w.b.splatConstant(argInner, w.b.scalarConstant(scalar, 1))
			return w.extInst(resultType, GLSLstd450UMin, arg, one), nil
		case ir.ScalarSint:
			return w.extInst(resultType, GLSLstd450SSign, arg), nil
		default:
			return w.extInst(resultType, GLSLstd450FSign, arg), nil
		}
	case ir.MathSaturate:
		zero := w.b.splatConstant(argInner, w.floatConstant(scalar, 0))
		one := w.b.splatConstant(argInner, w.floatConstant(scalar, 1))
		return w.extInst(resultType, GLSLstd450FClamp, arg, zero, one), nil
	case ir.MathDot:
		if scalar.Kind == ir.ScalarFloat {
			return w.result(OpDot, resultType, args...), nil
		}
		return w.integerDot(resultType, scalar, argInner, args[0], args[1]), nil
	case ir.MathTranspose:
		return w.result(OpTranspose, resultType, arg), nil
	}

	ops, ok := glslMath[e.Fun]
	if !ok {
		return 0, ir.Errorf(ir.ErrUnsupportedFeature, "math function %s has no SPIR-V lowering", e.Fun.Name())
	}
	inst := ops.pick(scalar.Kind)
	if inst == 0 {
		return 0, ir.Errorf(ir.ErrUnsupportedFeature, "math function %s is not defined on %s values", e.Fun.Name(), scalar.Kind)
	}
	return w.extInst(resultType, inst, args...), nil
}

func (w *functionWriter) extInst(resultType, inst uint32, args ...uint32) uint32 {
	return w.result(OpExtInst, resultType, append([]uint32{w.b.glslExtID, inst}, args...)...)
}

// integerDot sums the component products, since OpDot takes floats only.
func (w *functionWriter) integerDot(resultType uint32, scalar ir.ScalarType, inner ir.TypeInner, a, b uint32) uint32 {
	v, _ := inner.(ir.VectorType)
	var sum uint32
	for i := 0; i < int(v.Size); i++ {
		x := w.result(OpCompositeExtract, resultType, a, uint32(i))
		y := w.result(OpCompositeExtract, resultType, b, uint32(i))
		product := w.result(OpIMul, resultType, x, y)
		if i == 0 {
			sum = product
		} else {
			sum = w.result(OpIAdd, resultType, sum, product)
		}
	}
	if sum == 0 {
		return w.b.scalarConstant(scalar, 0)
	}
	return sum
}

//nolint:gocyclo,cyclop // conversion matrix over scalar kinds
func (w *functionWriter) convert(resultType uint32, e ir.ExprAs) uint32 {
	arg := w.expr(e.Expr)
	argInner := w.inner(e.Expr)
	from := scalarOf(argInner)
	sourceType := w.b.innerTypeID(argInner)
	if sourceType == resultType {
		return arg
	}
	if e.Convert == nil {
		return w.result(OpBitcast, resultType, arg)
	}
	to := ir.ScalarType{Kind: e.Kind, Width: *e.Convert}

	switch {
	case to.Kind == ir.ScalarBool:
		zero := w.b.nullConstant(sourceType)
		if from.Kind == ir.ScalarFloat {
			return w.result(OpFOrdNotEqual, resultType, arg, zero)
		}
		return w.result(OpINotEqual, resultType, arg, zero)
	case from.Kind == ir.ScalarBool:
		var one, zero uint32
		if to.Kind == ir.ScalarFloat {
			one, zero = w.floatConstant(to, 1), w.floatConstant(to, 0)
		} else {
			one, zero = w.b.scalarConstant(to, 1), w.b.scalarConstant(to, 0)
		}
		if v, ok := argInner.(ir.VectorType); ok {
			target := ir.VectorType{Size: v.Size, Scalar: to}
			one, zero = w.b.splatConstant(target, one), w.b.splatConstant(target, zero)
		}
		return w.result(OpSelect, resultType, arg, one, zero)
	case from.Kind == ir.ScalarFloat && to.Kind == ir.ScalarFloat:
		return w.result(OpFConvert, resultType, arg)
	case from.Kind == ir.ScalarFloat && to.Kind == ir.ScalarSint:
		return w.result(OpConvertFToS, resultType, arg)
	case from.Kind == ir.ScalarFloat:
		return w.result(OpConvertFToU, resultType, arg)
	case to.Kind == ir.ScalarFloat && from.Kind == ir.ScalarSint:
		return w.result(OpConvertSToF, resultType, arg)
	case to.Kind == ir.ScalarFloat:
		return w.result(OpConvertUToF, resultType, arg)
	case from.Width == to.Width:
		return w.result(OpBitcast, resultType, arg)
	case from.Kind == ir.ScalarSint:
		return w.result(OpSConvert, resultType, arg)
	default:
		return w.result(OpUConvert, resultType, arg)
	}
}

// arrayLength lowers ArrayLength. OpArrayLength takes the struct that
// holds the runtime array and the member index, so the operand must be
// traced back to one.
func (w *functionWriter) arrayLength(resultType uint32, array ir.ExpressionHandle) (uint32, *ir.Error) {
	switch e := w.fn.Expressions[array].Kind.(type) {
	case ir.ExprAccessIndex:
		if p, ok := w.inner(e.Base).(ir.PointerType); ok {
			if _, isStruct := w.b.module.Types[p.Base].Inner.(ir.StructType); isStruct {
				return w.result(OpArrayLength, resultType, w.expr(e.Base), e.Index), nil
			}
		}
	case ir.ExprGlobalVariable:
		gv := w.b.globals[e.Variable]
		if gv.wrapped {
			return w.result(OpArrayLength, resultType, gv.id, 0), nil
		}
	}
	if p, ok := w.inner(array).(ir.PointerType); ok {
		if st, isStruct := w.b.module.Types[p.Base].Inner.(ir.StructType); isStruct && len(st.Members) > 0 {
			return w.result(OpArrayLength, resultType, w.expr(array), u32(len(st.Members)-1)), nil
		}
	}
	return 0, ir.Errorf(ir.ErrUnsupportedFeature, "array length needs a runtime-sized array inside a buffer")
}
