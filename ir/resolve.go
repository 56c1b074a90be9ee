package ir

// ResolveContext infers expression types for one function.
//
// Expressions are resolved in handle order; each expression may only
// read the types of lower handles. Inline results are replaced by the
// handle of a structurally identical interned type whenever one exists,
// so re-resolving a function always yields the same handles.
type ResolveContext struct {
	module *Module
	fn     *Function
	types  []TypeResolution
}

// NewResolveContext creates a resolver for fn.
func NewResolveContext(module *Module, fn *Function) *ResolveContext {
	return &ResolveContext{
		module: module,
		fn:     fn,
		types:  make([]TypeResolution, 0, len(fn.Expressions)),
	}
}

// ResolveFunctionTypes resolves every expression of fn.
func ResolveFunctionTypes(module *Module, fn *Function) ([]TypeResolution, error) {
	ctx := NewResolveContext(module, fn)
	for i := range fn.Expressions {
		if _, err := ctx.Next(); err != nil {
			return nil, err.WithExpression(ExpressionHandle(i)) //nolint:gosec // G115: i is a valid arena index
		}
	}
	return ctx.types, nil
}

// ResolveExpressionType resolves the type of one expression, resolving
// its predecessors on the way.
func ResolveExpressionType(module *Module, fn *Function, handle ExpressionHandle) (TypeResolution, error) {
	if int(handle) >= len(fn.Expressions) {
		return TypeResolution{}, unresolved("expression", uint32(handle), len(fn.Expressions))
	}
	ctx := NewResolveContext(module, fn)
	for {
		res, err := ctx.Next()
		if err != nil {
			return TypeResolution{}, err
		}
		if len(ctx.types) == int(handle)+1 {
			return res, nil
		}
	}
}

// Resolved returns the resolutions computed so far.
func (r *ResolveContext) Resolved() []TypeResolution {
	return r.types
}

// InnerOf returns the type of an already resolved expression.
func (r *ResolveContext) InnerOf(h ExpressionHandle) TypeInner {
	return r.types[h].Inner(r.module)
}

// Next resolves the next unresolved expression.
func (r *ResolveContext) Next() (TypeResolution, *Error) {
	self := ExpressionHandle(len(r.types)) //nolint:gosec // G115: arena length
	res, err := r.resolve(self, r.fn.Expressions[self].Kind)
	if err != nil {
		return TypeResolution{}, err.WithExpression(self)
	}
	r.types = append(r.types, res)
	return res, nil
}

func (r *ResolveContext) handle(h TypeHandle) (TypeResolution, *Error) {
	if int(h) >= len(r.module.Types) {
		return TypeResolution{}, unresolved("type", uint32(h), len(r.module.Types))
	}
	return TypeResolution{Handle: &h}, nil
}

// value canonicalizes an inline type to an interned handle if possible.
func (r *ResolveContext) value(inner TypeInner) TypeResolution {
	if h, ok := r.module.LookupType(inner); ok {
		return TypeResolution{Handle: &h}
	}
	return TypeResolution{Value: inner}
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (r *ResolveContext) resolve(self ExpressionHandle, kind ExpressionKind) (TypeResolution, *Error) {
	var forward *Error
	Operands(kind, func(op ExpressionHandle) {
		if forward == nil && op >= self {
			forward = Errorf(ErrUnresolvedHandle, "expression %d depends on expression %d which is not defined before it", self, op)
		}
	})
	if forward != nil {
		return TypeResolution{}, forward
	}

	switch e := kind.(type) {
	case Literal:
		return r.value(literalScalar(e.Value)), nil
	case ExprConstant:
		c, err := r.module.Constant(e.Constant)
		if err != nil {
			return TypeResolution{}, err.(*Error)
		}
		return r.handle(c.Type)
	case ExprZeroValue:
		return r.handle(e.Type)
	case ExprCompose:
		return r.handle(e.Type)
	case ExprAccess:
		return r.resolveAccess(e.Base, nil)
	case ExprAccessIndex:
		return r.resolveAccess(e.Base, &e.Index)
	case ExprSplat:
		s, ok := r.InnerOf(e.Value).(ScalarType)
		if !ok {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "splat operand must be a scalar, got %s", describe(r.module, r.InnerOf(e.Value)))
		}
		return r.value(VectorType{Size: e.Size, Scalar: s}), nil
	case ExprSwizzle:
		v, ok := r.InnerOf(e.Vector).(VectorType)
		if !ok {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "swizzle operand must be a vector, got %s", describe(r.module, r.InnerOf(e.Vector)))
		}
		for i := 0; i < int(e.Size); i++ {
			if int(e.Pattern[i]) >= int(v.Size) {
				return TypeResolution{}, Errorf(ErrTypeMismatch, "swizzle component %c out of range for %s", e.Pattern[i].Letter(), describe(r.module, v))
			}
		}
		if e.Size < Vec2 || e.Size > Vec4 {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "swizzle size %d invalid", e.Size)
		}
		return r.value(VectorType{Size: e.Size, Scalar: v.Scalar}), nil
	case ExprFunctionArgument:
		if int(e.Index) >= len(r.fn.Arguments) {
			return TypeResolution{}, unresolved("function argument", e.Index, len(r.fn.Arguments))
		}
		return r.handle(r.fn.Arguments[e.Index].Type)
	case ExprGlobalVariable:
		g, err := r.module.GlobalVariable(e.Variable)
		if err != nil {
			return TypeResolution{}, err.(*Error)
		}
		if g.Space == SpaceHandle {
			return r.handle(g.Type)
		}
		return r.value(PointerType{Base: g.Type, Space: g.Space}), nil
	case ExprLocalVariable:
		if int(e.Variable) >= len(r.fn.LocalVars) {
			return TypeResolution{}, unresolved("local variable", e.Variable, len(r.fn.LocalVars))
		}
		return r.value(PointerType{Base: r.fn.LocalVars[e.Variable].Type, Space: SpaceFunction}), nil
	case ExprLoad:
		switch p := r.InnerOf(e.Pointer).(type) {
		case PointerType:
			return r.handle(p.Base)
		case ValuePointerType:
			if p.Size == 0 {
				return r.value(p.Scalar), nil
			}
			return r.value(VectorType{Size: p.Size, Scalar: p.Scalar}), nil
		default:
			return TypeResolution{}, Errorf(ErrTypeMismatch, "load operand must be a pointer, got %s", describe(r.module, p))
		}
	case ExprImageSample:
		img, ok := r.InnerOf(e.Image).(ImageType)
		if !ok {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "sampled operand must be an image, got %s", describe(r.module, r.InnerOf(e.Image)))
		}
		if img.Class == ImageClassDepth {
			return r.value(ScalarF32), nil
		}
		return r.value(VectorType{Size: Vec4, Scalar: ScalarType{Kind: img.SampledKind, Width: 4}}), nil
	case ExprImageLoad:
		img, ok := r.InnerOf(e.Image).(ImageType)
		if !ok {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "loaded operand must be an image, got %s", describe(r.module, r.InnerOf(e.Image)))
		}
		switch img.Class {
		case ImageClassDepth:
			return r.value(ScalarF32), nil
		case ImageClassStorage:
			return r.value(VectorType{Size: Vec4, Scalar: ScalarType{Kind: img.Format.ScalarKind(), Width: 4}}), nil
		default:
			return r.value(VectorType{Size: Vec4, Scalar: ScalarType{Kind: img.SampledKind, Width: 4}}), nil
		}
	case ExprImageQuery:
		img, ok := r.InnerOf(e.Image).(ImageType)
		if !ok {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "queried operand must be an image, got %s", describe(r.module, r.InnerOf(e.Image)))
		}
		if _, isSize := e.Query.(ImageQuerySize); isSize {
			n := img.Dim.CoordinateSize()
			if img.Dim == DimCube {
				n = 2
			}
			if n == 1 {
				return r.value(ScalarU32), nil
			}
			return r.value(VectorType{Size: VectorSize(n), Scalar: ScalarU32}), nil //nolint:gosec // G115: 2 or 3
		}
		return r.value(ScalarU32), nil
	case ExprUnary:
		return r.types[e.Expr], nil
	case ExprBinary:
		return r.resolveBinary(e)
	case ExprSelect:
		return r.types[e.Accept], nil
	case ExprDerivative:
		return r.types[e.Expr], nil
	case ExprRelational:
		arg := r.InnerOf(e.Argument)
		if v, ok := arg.(VectorType); ok && (e.Fun == RelationalIsNan || e.Fun == RelationalIsInf) {
			return r.value(VectorType{Size: v.Size, Scalar: ScalarBoolType}), nil
		}
		return r.value(ScalarBoolType), nil
	case ExprMath:
		return r.resolveMath(e)
	case ExprAs:
		var width uint8
		var size VectorSize
		switch t := r.InnerOf(e.Expr).(type) {
		case ScalarType:
			width = t.Width
		case VectorType:
			width, size = t.Scalar.Width, t.Size
		default:
			return TypeResolution{}, Errorf(ErrTypeMismatch, "cannot convert %s", describe(r.module, t))
		}
		if e.Convert != nil {
			width = *e.Convert
		}
		if e.Kind == ScalarBool {
			width = 1
		}
		scalar := ScalarType{Kind: e.Kind, Width: width}
		if size != 0 {
			return r.value(VectorType{Size: size, Scalar: scalar}), nil
		}
		return r.value(scalar), nil
	case ExprCallResult:
		callee, err := r.module.Function(e.Function)
		if err != nil {
			return TypeResolution{}, err.(*Error)
		}
		if callee.Result == nil {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "call result of function %q which returns nothing", callee.Name)
		}
		return r.handle(callee.Result.Type)
	case ExprArrayLength:
		return r.value(ScalarU32), nil
	case nil:
		return TypeResolution{}, Errorf(ErrUnresolvedHandle, "expression has no kind")
	default:
		return TypeResolution{}, Errorf(ErrUnsupportedFeature, "unknown expression kind %T", kind)
	}
}

// resolveAccess types Access (index == nil) and AccessIndex expressions.
//
//nolint:gocyclo,cyclop // access covers values and pointers of every composite
func (r *ResolveContext) resolveAccess(base ExpressionHandle, index *uint32) (TypeResolution, *Error) {
	checkIndex := func(limit int, what string) *Error {
		if index != nil && int(*index) >= limit {
			return Errorf(ErrTypeMismatch, "index %d out of bounds for %s of %d elements", *index, what, limit)
		}
		return nil
	}

	baseInner := r.InnerOf(base)
	switch t := baseInner.(type) {
	case PointerType:
		pointee, err := r.module.Type(t.Base)
		if err != nil {
			return TypeResolution{}, err.(*Error)
		}
		switch p := pointee.Inner.(type) {
		case ArrayType:
			if p.Size != nil {
				if err := checkIndex(int(*p.Size), "array"); err != nil {
					return TypeResolution{}, err
				}
			}
			return r.value(PointerType{Base: p.Base, Space: t.Space}), nil
		case VectorType:
			if err := checkIndex(int(p.Size), "vector"); err != nil {
				return TypeResolution{}, err
			}
			return r.value(ValuePointerType{Scalar: p.Scalar, Space: t.Space}), nil
		case MatrixType:
			if err := checkIndex(int(p.Columns), "matrix"); err != nil {
				return TypeResolution{}, err
			}
			return r.value(ValuePointerType{Size: p.Rows, Scalar: p.Scalar, Space: t.Space}), nil
		case StructType:
			if index == nil {
				return TypeResolution{}, Errorf(ErrTypeMismatch, "struct members need a constant index")
			}
			if err := checkIndex(len(p.Members), "struct"); err != nil {
				return TypeResolution{}, err
			}
			return r.value(PointerType{Base: p.Members[*index].Type, Space: t.Space}), nil
		case BindingArrayType:
			return r.handle(p.Base)
		default:
			return TypeResolution{}, Errorf(ErrTypeMismatch, "cannot index through pointer to %s", describe(r.module, p))
		}
	case ValuePointerType:
		if t.Size == 0 {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "cannot index a pointer to a scalar")
		}
		if err := checkIndex(int(t.Size), "vector"); err != nil {
			return TypeResolution{}, err
		}
		return r.value(ValuePointerType{Scalar: t.Scalar, Space: t.Space}), nil
	case ArrayType:
		if t.Size != nil {
			if err := checkIndex(int(*t.Size), "array"); err != nil {
				return TypeResolution{}, err
			}
		}
		return r.handle(t.Base)
	case VectorType:
		if err := checkIndex(int(t.Size), "vector"); err != nil {
			return TypeResolution{}, err
		}
		return r.value(t.Scalar), nil
	case MatrixType:
		if err := checkIndex(int(t.Columns), "matrix"); err != nil {
			return TypeResolution{}, err
		}
		return r.value(VectorType{Size: t.Rows, Scalar: t.Scalar}), nil
	case StructType:
		if index == nil {
			return TypeResolution{}, Errorf(ErrTypeMismatch, "struct members need a constant index")
		}
		if err := checkIndex(len(t.Members), "struct"); err != nil {
			return TypeResolution{}, err
		}
		return r.handle(t.Members[*index].Type)
	case BindingArrayType:
		return r.handle(t.Base)
	default:
		return TypeResolution{}, Errorf(ErrTypeMismatch, "cannot index into %s", describe(r.module, baseInner))
	}
}

func (r *ResolveContext) resolveBinary(e ExprBinary) (TypeResolution, *Error) {
	left, right := r.InnerOf(e.Left), r.InnerOf(e.Right)
	switch {
	case e.Op.IsComparison():
		if v, ok := left.(VectorType); ok {
			return r.value(VectorType{Size: v.Size, Scalar: ScalarBoolType}), nil
		}
		return r.value(ScalarBoolType), nil
	case e.Op == BinaryMultiply:
		lm, leftMat := left.(MatrixType)
		rm, rightMat := right.(MatrixType)
		_, leftVec := left.(VectorType)
		_, rightVec := right.(VectorType)
		switch {
		case leftMat && rightVec:
			return r.value(VectorType{Size: lm.Rows, Scalar: lm.Scalar}), nil
		case leftVec && rightMat:
			return r.value(VectorType{Size: rm.Columns, Scalar: rm.Scalar}), nil
		case leftMat && rightMat:
			return r.value(MatrixType{Columns: rm.Columns, Rows: lm.Rows, Scalar: lm.Scalar}), nil
		}
	}
	if _, leftScalar := left.(ScalarType); leftScalar {
		switch right.(type) {
		case VectorType, MatrixType:
			return r.types[e.Right], nil
		}
	}
	return r.types[e.Left], nil
}

func (r *ResolveContext) resolveMath(e ExprMath) (TypeResolution, *Error) {
	arg := r.InnerOf(e.Arg)
	switch e.Fun {
	case MathDot, MathLength, MathDistance:
		if v, ok := arg.(VectorType); ok {
			return r.value(v.Scalar), nil
		}
		return r.types[e.Arg], nil
	case MathDeterminant:
		if m, ok := arg.(MatrixType); ok {
			return r.value(m.Scalar), nil
		}
		return TypeResolution{}, Errorf(ErrTypeMismatch, "determinant needs a matrix, got %s", describe(r.module, arg))
	case MathTranspose:
		if m, ok := arg.(MatrixType); ok {
			return r.value(MatrixType{Columns: m.Rows, Rows: m.Columns, Scalar: m.Scalar}), nil
		}
		return TypeResolution{}, Errorf(ErrTypeMismatch, "transpose needs a matrix, got %s", describe(r.module, arg))
	default:
		return r.types[e.Arg], nil
	}
}

func literalScalar(v LiteralValue) ScalarType {
	switch v.(type) {
	case LiteralF64:
		return ScalarF64
	case LiteralU32:
		return ScalarU32
	case LiteralI32:
		return ScalarI32
	case LiteralU64:
		return ScalarType{Kind: ScalarUint, Width: 8}
	case LiteralI64:
		return ScalarType{Kind: ScalarSint, Width: 8}
	case LiteralBool:
		return ScalarBoolType
	default:
		return ScalarF32
	}
}
