package ir

// validateExpressions infers the type of every expression and checks
// operand compatibility.
func (v *Validator) validateExpressions() *Error {
	for i := range v.module.Functions {
		h := FunctionHandle(i) //nolint:gosec // G115: i is a valid arena index
		if err := v.validateFunctionExpressions(h); err != nil {
			return err.WithFunction(h)
		}
	}
	return nil
}

func (v *Validator) validateFunctionExpressions(h FunctionHandle) *Error {
	fn := &v.module.Functions[h]
	info := &v.info.Functions[h]
	info.RefCounts = make([]uint32, len(fn.Expressions))
	direct := make([]bool, len(v.module.GlobalVariables))

	ctx := NewResolveContext(v.module, fn)
	for i := range fn.Expressions {
		eh := ExpressionHandle(i) //nolint:gosec // G115: i is a valid arena index
		kind := fn.Expressions[i].Kind
		if _, err := ctx.Next(); err != nil {
			return err
		}
		if err := v.checkExpression(ctx, kind); err != nil {
			return err.WithExpression(eh)
		}

		Operands(kind, func(op ExpressionHandle) {
			info.RefCounts[op]++
		})
		switch e := kind.(type) {
		case ExprGlobalVariable:
			direct[e.Variable] = true
		case ExprDerivative:
			info.Derivatives = true
		case ExprImageSample:
			switch e.Level.(type) {
			case SampleLevelAuto, SampleLevelBias, nil:
				info.Derivatives = true
			}
		}
	}

	info.Expressions = ctx.Resolved()
	v.directGlobals[h] = direct
	return nil
}

func isInteger(inner TypeInner) bool {
	s, ok := inner.(ScalarType)
	return ok && (s.Kind == ScalarSint || s.Kind == ScalarUint)
}

// componentsOf returns the scalar and component count of a scalar (count 1)
// or vector.
func componentsOf(inner TypeInner) (ScalarType, int, bool) {
	switch t := inner.(type) {
	case ScalarType:
		return t, 1, true
	case VectorType:
		return t.Scalar, int(t.Size), true
	}
	return ScalarType{}, 0, false
}

// isKindOf reports whether inner is a scalar or vector of one of kinds.
func isKindOf(inner TypeInner, kinds ...ScalarKind) bool {
	s, _, ok := componentsOf(inner)
	if !ok {
		return false
	}
	for _, k := range kinds {
		if s.Kind == k {
			return true
		}
	}
	return false
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (v *Validator) checkExpression(ctx *ResolveContext, kind ExpressionKind) *Error {
	m := v.module
	name := func(h ExpressionHandle) string { return describe(m, ctx.InnerOf(h)) }

	switch e := kind.(type) {
	case ExprZeroValue:
		if !v.isSizedData(e.Type) {
			return Errorf(ErrTypeMismatch, "zero value of %s", describeHandle(m, e.Type))
		}
	case ExprCompose:
		return v.checkCompose(ctx, e)
	case ExprAccess:
		if !isInteger(ctx.InnerOf(e.Index)) {
			return Errorf(ErrTypeMismatch, "index must be an integer scalar, got %s", name(e.Index))
		}
	case ExprSplat:
		if !validVectorSize(e.Size) {
			return Errorf(ErrTypeMismatch, "invalid splat size %d", e.Size)
		}
	case ExprImageSample:
		return v.checkImageSample(ctx, e)
	case ExprImageLoad:
		return v.checkImageLoad(ctx, e)
	case ExprImageQuery:
		img := ctx.InnerOf(e.Image).(ImageType)
		switch q := e.Query.(type) {
		case ImageQuerySize:
			if q.Level != nil && !isInteger(ctx.InnerOf(*q.Level)) {
				return Errorf(ErrTypeMismatch, "size query level must be an integer, got %s", name(*q.Level))
			}
		case ImageQueryNumLayers:
			if !img.Arrayed {
				return Errorf(ErrTypeMismatch, "layer count of a non-arrayed image")
			}
		case ImageQueryNumSamples:
			if !img.Multisampled {
				return Errorf(ErrTypeMismatch, "sample count of a single-sampled image")
			}
		case ImageQueryNumLevels:
			if img.Multisampled || img.Class == ImageClassStorage {
				return Errorf(ErrTypeMismatch, "level count of an image without mipmaps")
			}
		}
	case ExprUnary:
		operand := ctx.InnerOf(e.Expr)
		var ok bool
		switch e.Op {
		case UnaryNegate:
			ok = isKindOf(operand, ScalarSint, ScalarFloat)
			if _, isMat := operand.(MatrixType); isMat {
				ok = true
			}
		case UnaryLogicalNot:
			ok = isKindOf(operand, ScalarBool)
		case UnaryBitwiseNot:
			ok = isKindOf(operand, ScalarSint, ScalarUint)
		}
		if !ok {
			return Errorf(ErrTypeMismatch, "unary operator %d cannot apply to %s", e.Op, name(e.Expr))
		}
	case ExprBinary:
		return v.checkBinary(ctx, e)
	case ExprSelect:
		if !v.sameType(ctx.types[e.Accept], ctx.types[e.Reject]) {
			return Errorf(ErrTypeMismatch, "select branches differ: %s and %s", name(e.Accept), name(e.Reject))
		}
		cond := ctx.InnerOf(e.Condition)
		switch c := cond.(type) {
		case ScalarType:
			if c.Kind != ScalarBool {
				return Errorf(ErrTypeMismatch, "select condition must be bool, got %s", name(e.Condition))
			}
		case VectorType:
			_, n, _ := componentsOf(ctx.InnerOf(e.Accept))
			if c.Scalar.Kind != ScalarBool || int(c.Size) != n {
				return Errorf(ErrTypeMismatch, "select condition %s does not match %s", name(e.Condition), name(e.Accept))
			}
		default:
			return Errorf(ErrTypeMismatch, "select condition must be bool, got %s", name(e.Condition))
		}
	case ExprDerivative:
		if !isKindOf(ctx.InnerOf(e.Expr), ScalarFloat) {
			return Errorf(ErrTypeMismatch, "derivative of %s", name(e.Expr))
		}
	case ExprRelational:
		arg := ctx.InnerOf(e.Argument)
		switch e.Fun {
		case RelationalAll, RelationalAny:
			if vec, ok := arg.(VectorType); !ok || vec.Scalar.Kind != ScalarBool {
				return Errorf(ErrTypeMismatch, "all/any need a bool vector, got %s", name(e.Argument))
			}
		default:
			if !isKindOf(arg, ScalarFloat) {
				return Errorf(ErrTypeMismatch, "isnan/isinf need floats, got %s", name(e.Argument))
			}
		}
	case ExprMath:
		return v.checkMath(ctx, e)
	case ExprAs:
		from, _, _ := componentsOf(ctx.InnerOf(e.Expr))
		if e.Convert == nil {
			if from.Kind == ScalarBool || e.Kind == ScalarBool {
				return Errorf(ErrTypeMismatch, "cannot bitcast booleans")
			}
			return nil
		}
		to := ScalarType{Kind: e.Kind, Width: *e.Convert}
		if e.Kind == ScalarBool {
			to.Width = 1
		}
		if !validScalar(to) {
			return Errorf(ErrTypeMismatch, "invalid conversion target %s width %d", e.Kind, *e.Convert)
		}
	case ExprArrayLength:
		ptr, ok := ctx.InnerOf(e.Array).(PointerType)
		if ok {
			switch t := v.typeInner(ptr.Base).(type) {
			case ArrayType:
				ok = t.IsRuntimeSized()
			case StructType:
				ok = v.endsInRuntimeArray(t)
			default:
				ok = false
			}
		}
		if !ok {
			return Errorf(ErrTypeMismatch, "array length of %s", name(e.Array))
		}
	case ExprLocalVariable, ExprFunctionArgument, ExprGlobalVariable, ExprLoad,
		ExprAccessIndex, ExprSwizzle, ExprConstant, ExprCallResult, Literal:
		// fully checked by type resolution
	}
	return nil
}

func (v *Validator) checkCompose(ctx *ResolveContext, e ExprCompose) *Error {
	m := v.module
	target := v.typeInner(e.Type)

	switch t := target.(type) {
	case VectorType:
		total := 0
		for _, c := range e.Components {
			s, n, ok := componentsOf(ctx.InnerOf(c))
			if !ok || s != t.Scalar {
				return Errorf(ErrTypeMismatch, "cannot compose %s from %s", describe(m, t), describe(m, ctx.InnerOf(c)))
			}
			total += n
		}
		if total != int(t.Size) {
			return Errorf(ErrTypeMismatch, "%s composed from %d components", describe(m, t), total)
		}
	case MatrixType:
		if len(e.Components) != int(t.Columns) {
			return Errorf(ErrTypeMismatch, "%s composed from %d columns", describe(m, t), len(e.Components))
		}
		column := VectorType{Size: t.Rows, Scalar: t.Scalar}
		for _, c := range e.Components {
			if !v.sameType(ctx.types[c], TypeResolution{Value: column}) {
				return Errorf(ErrTypeMismatch, "matrix column of type %s, want %s", describe(m, ctx.InnerOf(c)), describe(m, column))
			}
		}
	case ArrayType:
		if t.Size == nil || int(*t.Size) != len(e.Components) {
			return Errorf(ErrTypeMismatch, "%s composed from %d elements", describe(m, t), len(e.Components))
		}
		for _, c := range e.Components {
			if !v.sameTypeAs(ctx.types[c], t.Base) {
				return Errorf(ErrTypeMismatch, "array element of type %s, want %s", describe(m, ctx.InnerOf(c)), describeHandle(m, t.Base))
			}
		}
	case StructType:
		if len(e.Components) != len(t.Members) {
			return Errorf(ErrTypeMismatch, "struct with %d members composed from %d values", len(t.Members), len(e.Components))
		}
		for i, c := range e.Components {
			if !v.sameTypeAs(ctx.types[c], t.Members[i].Type) {
				return Errorf(ErrTypeMismatch, "member %q of type %s given %s", t.Members[i].Name, describeHandle(m, t.Members[i].Type), describe(m, ctx.InnerOf(c)))
			}
		}
	default:
		return Errorf(ErrTypeMismatch, "cannot compose %s", describe(m, target))
	}
	return nil
}

//nolint:gocyclo,cyclop // sampling has many optional operands
func (v *Validator) checkImageSample(ctx *ResolveContext, e ExprImageSample) *Error {
	m := v.module
	img := ctx.InnerOf(e.Image).(ImageType)

	sampler, ok := ctx.InnerOf(e.Sampler).(SamplerType)
	if !ok {
		return Errorf(ErrTypeMismatch, "sampler operand is %s", describe(m, ctx.InnerOf(e.Sampler)))
	}
	if img.Class == ImageClassStorage || img.Multisampled {
		return Errorf(ErrTypeMismatch, "%s cannot be sampled", describe(m, img))
	}
	if img.Class == ImageClassSampled && img.SampledKind != ScalarFloat {
		return Errorf(ErrTypeMismatch, "only float images can be sampled")
	}

	if e.DepthRef != nil {
		if img.Class != ImageClassDepth {
			return Errorf(ErrTypeMismatch, "comparison sample of non-depth image %s", describe(m, img))
		}
		if !sampler.Comparison {
			return Errorf(ErrTypeMismatch, "comparison sample needs a comparison sampler")
		}
		if ref, ok := ctx.InnerOf(*e.DepthRef).(ScalarType); !ok || ref != ScalarF32 {
			return Errorf(ErrTypeMismatch, "depth reference must be f32, got %s", describe(m, ctx.InnerOf(*e.DepthRef)))
		}
		switch e.Level.(type) {
		case SampleLevelAuto, SampleLevelZero, nil:
		default:
			return Errorf(ErrTypeMismatch, "comparison samples support only automatic or zero level")
		}
	} else if sampler.Comparison {
		return Errorf(ErrTypeMismatch, "comparison sampler used without a depth reference")
	}

	coordSize := img.Dim.CoordinateSize()
	if s, n, ok := componentsOf(ctx.InnerOf(e.Coordinate)); !ok || s.Kind != ScalarFloat || n != coordSize {
		return Errorf(ErrTypeMismatch, "coordinate %s does not address %s", describe(m, ctx.InnerOf(e.Coordinate)), describe(m, img))
	}
	if err := v.checkArrayIndex(ctx, img, e.ArrayIndex); err != nil {
		return err
	}

	if e.Offset != nil {
		if int(*e.Offset) >= len(m.Constants) {
			return unresolved("constant", uint32(*e.Offset), len(m.Constants))
		}
		off := v.typeInner(m.Constants[*e.Offset].Type)
		if s, n, ok := componentsOf(off); !ok || s.Kind != ScalarSint || n != coordSize || img.Dim == DimCube {
			return Errorf(ErrTypeMismatch, "sample offset of type %s", describe(m, off))
		}
	}

	switch l := e.Level.(type) {
	case SampleLevelExact:
		if !isKindOf(ctx.InnerOf(l.Level), ScalarFloat) {
			return Errorf(ErrTypeMismatch, "sample level must be a float, got %s", describe(m, ctx.InnerOf(l.Level)))
		}
	case SampleLevelBias:
		if !isKindOf(ctx.InnerOf(l.Bias), ScalarFloat) {
			return Errorf(ErrTypeMismatch, "sample bias must be a float, got %s", describe(m, ctx.InnerOf(l.Bias)))
		}
	case SampleLevelGradient:
		for _, g := range []ExpressionHandle{l.X, l.Y} {
			if s, n, ok := componentsOf(ctx.InnerOf(g)); !ok || s.Kind != ScalarFloat || n != coordSize {
				return Errorf(ErrTypeMismatch, "gradient %s does not match the coordinate", describe(m, ctx.InnerOf(g)))
			}
		}
	}
	return nil
}

func (v *Validator) checkArrayIndex(ctx *ResolveContext, img ImageType, index *ExpressionHandle) *Error {
	switch {
	case img.Arrayed && index == nil:
		return Errorf(ErrTypeMismatch, "arrayed image accessed without an array index")
	case !img.Arrayed && index != nil:
		return Errorf(ErrTypeMismatch, "array index given for a non-arrayed image")
	case index != nil && !isInteger(ctx.InnerOf(*index)):
		return Errorf(ErrTypeMismatch, "array index must be an integer, got %s", describe(v.module, ctx.InnerOf(*index)))
	}
	return nil
}

func (v *Validator) checkImageLoad(ctx *ResolveContext, e ExprImageLoad) *Error {
	m := v.module
	img := ctx.InnerOf(e.Image).(ImageType)

	if img.Class == ImageClassStorage && img.Access&StorageLoad == 0 {
		return Errorf(ErrTypeMismatch, "load from write-only storage image")
	}
	if s, n, ok := componentsOf(ctx.InnerOf(e.Coordinate)); !ok || s.Kind == ScalarFloat || s.Kind == ScalarBool || n != img.Dim.CoordinateSize() {
		return Errorf(ErrTypeMismatch, "load coordinate %s does not address %s", describe(m, ctx.InnerOf(e.Coordinate)), describe(m, img))
	}
	if err := v.checkArrayIndex(ctx, img, e.ArrayIndex); err != nil {
		return err
	}
	if img.Multisampled != (e.Sample != nil) {
		return Errorf(ErrTypeMismatch, "sample index must be given exactly for multisampled images")
	}
	if e.Sample != nil && !isInteger(ctx.InnerOf(*e.Sample)) {
		return Errorf(ErrTypeMismatch, "sample index must be an integer")
	}
	if e.Level != nil {
		if img.Class == ImageClassStorage || img.Multisampled {
			return Errorf(ErrTypeMismatch, "level given for an image without mipmaps")
		}
		if !isInteger(ctx.InnerOf(*e.Level)) {
			return Errorf(ErrTypeMismatch, "load level must be an integer")
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // operator families have distinct operand rules
func (v *Validator) checkBinary(ctx *ResolveContext, e ExprBinary) *Error {
	m := v.module
	left, right := ctx.InnerOf(e.Left), ctx.InnerOf(e.Right)
	mismatch := func() *Error {
		return Errorf(ErrTypeMismatch, "operator %s cannot combine %s and %s", e.Op.Symbol(), describe(m, left), describe(m, right))
	}
	same := v.sameType(ctx.types[e.Left], ctx.types[e.Right])

	switch {
	case e.Op.IsArithmetic():
		lm, leftMat := left.(MatrixType)
		rm, rightMat := right.(MatrixType)
		if leftMat || rightMat {
			return v.checkMatrixArithmetic(e.Op, left, right, lm, rm, leftMat, rightMat, mismatch)
		}
		ls, _, lok := componentsOf(left)
		rs, _, rok := componentsOf(right)
		if !lok || !rok || ls.Kind == ScalarBool || ls != rs {
			return mismatch()
		}
		_, leftScalar := left.(ScalarType)
		_, rightScalar := right.(ScalarType)
		if !same && !leftScalar && !rightScalar {
			return mismatch()
		}
	case e.Op.IsComparison():
		if !same {
			return mismatch()
		}
		s, _, ok := componentsOf(left)
		if !ok {
			return mismatch()
		}
		if s.Kind == ScalarBool && e.Op != BinaryEqual && e.Op != BinaryNotEqual {
			return mismatch()
		}
	case e.Op == BinaryAnd || e.Op == BinaryInclusiveOr || e.Op == BinaryExclusiveOr:
		if !same || !isKindOf(left, ScalarSint, ScalarUint, ScalarBool) {
			return mismatch()
		}
	case e.Op == BinaryLogicalAnd || e.Op == BinaryLogicalOr:
		if !same || !isKindOf(left, ScalarBool) {
			return mismatch()
		}
	case e.Op == BinaryShiftLeft || e.Op == BinaryShiftRight:
		_, ln, lok := componentsOf(left)
		rs, rn, rok := componentsOf(right)
		if !lok || !rok || !isKindOf(left, ScalarSint, ScalarUint) || rs.Kind != ScalarUint || ln != rn {
			return mismatch()
		}
	default:
		return mismatch()
	}
	return nil
}

func (v *Validator) checkMatrixArithmetic(op BinaryOperator, left, right TypeInner, lm, rm MatrixType, leftMat, rightMat bool, mismatch func() *Error) *Error {
	switch op {
	case BinaryAdd, BinarySubtract:
		if leftMat && rightMat && lm == rm {
			return nil
		}
	case BinaryMultiply:
		switch r := right.(type) {
		case MatrixType:
			switch l := left.(type) {
			case MatrixType:
				if l.Columns == r.Rows && l.Scalar == r.Scalar {
					return nil
				}
			case VectorType:
				if l.Size == r.Rows && l.Scalar == r.Scalar {
					return nil
				}
			case ScalarType:
				if l == r.Scalar {
					return nil
				}
			}
		case VectorType:
			if r.Size == lm.Columns && r.Scalar == lm.Scalar {
				return nil
			}
		case ScalarType:
			if r == lm.Scalar {
				return nil
			}
		}
	}
	return mismatch()
}

var floatOnlyMath = map[MathFunction]bool{
	MathSaturate: true, MathCos: true, MathSin: true, MathTan: true,
	MathAcos: true, MathAsin: true, MathAtan: true, MathAtan2: true,
	MathCeil: true, MathFloor: true, MathRound: true, MathFract: true,
	MathTrunc: true, MathExp: true, MathExp2: true, MathLog: true,
	MathLog2: true, MathPow: true, MathDistance: true, MathLength: true,
	MathNormalize: true, MathReflect: true, MathFma: true, MathMix: true,
	MathStep: true, MathSmoothStep: true, MathSqrt: true, MathInverseSqrt: true,
	MathCross: true,
}

//nolint:gocyclo,cyclop // each function family has its own shape rule
func (v *Validator) checkMath(ctx *ResolveContext, e ExprMath) *Error {
	m := v.module
	if e.Fun >= mathFunctionCount {
		return Errorf(ErrUnsupportedFeature, "unknown math function %d", e.Fun)
	}

	args := []ExpressionHandle{e.Arg}
	if e.Arg1 != nil {
		args = append(args, *e.Arg1)
	}
	if e.Arg2 != nil {
		if e.Arg1 == nil {
			return Errorf(ErrTypeMismatch, "%s has a third argument but no second", e.Fun.Name())
		}
		args = append(args, *e.Arg2)
	}
	if len(args) != e.Fun.ArgumentCount() {
		return Errorf(ErrTypeMismatch, "%s takes %d arguments, got %d", e.Fun.Name(), e.Fun.ArgumentCount(), len(args))
	}

	arg := ctx.InnerOf(e.Arg)
	for i, a := range args[1:] {
		if v.sameType(ctx.types[e.Arg], ctx.types[a]) {
			continue
		}
		// mix accepts a scalar blend factor
		if e.Fun == MathMix && i == 1 {
			s, _, _ := componentsOf(arg)
			if t, ok := ctx.InnerOf(a).(ScalarType); ok && t == s {
				continue
			}
		}
		return Errorf(ErrTypeMismatch, "%s arguments differ: %s and %s", e.Fun.Name(), describe(m, arg), describe(m, ctx.InnerOf(a)))
	}

	switch e.Fun {
	case MathTranspose:
		return nil
	case MathDeterminant:
		if mat := arg.(MatrixType); mat.Columns != mat.Rows {
			return Errorf(ErrTypeMismatch, "determinant of non-square %s", describe(m, arg))
		}
		return nil
	case MathDot:
		if vec, ok := arg.(VectorType); !ok || vec.Scalar.Kind == ScalarBool {
			return Errorf(ErrTypeMismatch, "dot needs numeric vectors, got %s", describe(m, arg))
		}
		return nil
	case MathCross:
		if vec, ok := arg.(VectorType); !ok || vec.Size != Vec3 {
			return Errorf(ErrTypeMismatch, "cross needs vec3 operands, got %s", describe(m, arg))
		}
	case MathNormalize, MathReflect:
		if _, ok := arg.(VectorType); !ok {
			return Errorf(ErrTypeMismatch, "%s needs a vector, got %s", e.Fun.Name(), describe(m, arg))
		}
	}

	if floatOnlyMath[e.Fun] {
		if !isKindOf(arg, ScalarFloat) {
			return Errorf(ErrTypeMismatch, "%s needs floats, got %s", e.Fun.Name(), describe(m, arg))
		}
	} else if !isKindOf(arg, ScalarFloat, ScalarSint, ScalarUint) {
		return Errorf(ErrTypeMismatch, "%s needs numbers, got %s", e.Fun.Name(), describe(m, arg))
	}
	return nil
}
