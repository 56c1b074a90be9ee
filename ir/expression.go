package ir

// Expression represents an expression in the IR.
//
// Expressions live in a per-function arena and may only reference
// expressions with lower handles, so the arena is a DAG in topological
// order. Most expressions become visible to statements through an Emit
// statement; see NeedsEmit for the exceptions.
type Expression struct {
	Kind ExpressionKind
}

// ExpressionKind represents the different kinds of expressions.
type ExpressionKind interface {
	expressionKind()
}

// Literal represents a literal constant value.
type Literal struct {
	Value LiteralValue
}

func (Literal) expressionKind() {}

// LiteralValue represents the value of a literal.
type LiteralValue interface {
	literalValue()
}

// LiteralF64 represents a 64-bit float literal.
type LiteralF64 float64

func (LiteralF64) literalValue() {}

// LiteralF32 represents a 32-bit float literal.
type LiteralF32 float32

func (LiteralF32) literalValue() {}

// LiteralU32 represents a 32-bit unsigned integer literal.
type LiteralU32 uint32

func (LiteralU32) literalValue() {}

// LiteralI32 represents a 32-bit signed integer literal.
type LiteralI32 int32

func (LiteralI32) literalValue() {}

// LiteralU64 represents a 64-bit unsigned integer literal.
type LiteralU64 uint64

func (LiteralU64) literalValue() {}

// LiteralI64 represents a 64-bit signed integer literal.
type LiteralI64 int64

func (LiteralI64) literalValue() {}

// LiteralBool represents a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// ExprConstant references a module-scope constant.
type ExprConstant struct {
	Constant ConstantHandle
}

func (ExprConstant) expressionKind() {}

// ExprZeroValue represents a zero-initialized value of a given type.
type ExprZeroValue struct {
	Type TypeHandle
}

func (ExprZeroValue) expressionKind() {}

// ExprCompose constructs a composite value (vector, matrix, array, or struct).
// Vector components may themselves be vectors, which are flattened.
type ExprCompose struct {
	Type       TypeHandle
	Components []ExpressionHandle
}

func (ExprCompose) expressionKind() {}

// ExprAccess performs array/vector/matrix access with a computed index.
// The index operand must be an integer scalar.
type ExprAccess struct {
	Base  ExpressionHandle
	Index ExpressionHandle
}

func (ExprAccess) expressionKind() {}

// ExprAccessIndex performs access with a compile-time constant index.
// Can access arrays, vectors, matrices, and struct fields.
type ExprAccessIndex struct {
	Base  ExpressionHandle
	Index uint32
}

func (ExprAccessIndex) expressionKind() {}

// ExprSplat broadcasts a scalar value to all components of a vector.
type ExprSplat struct {
	Size  VectorSize
	Value ExpressionHandle
}

func (ExprSplat) expressionKind() {}

// ExprSwizzle reorders or duplicates vector components.
type ExprSwizzle struct {
	Size    VectorSize
	Vector  ExpressionHandle
	Pattern [4]SwizzleComponent
}

func (ExprSwizzle) expressionKind() {}

// SwizzleComponent represents a single component in a vector swizzle.
type SwizzleComponent uint8

const (
	SwizzleX SwizzleComponent = 0
	SwizzleY SwizzleComponent = 1
	SwizzleZ SwizzleComponent = 2
	SwizzleW SwizzleComponent = 3
)

// Letter returns the component letter used by C-like targets.
func (c SwizzleComponent) Letter() byte {
	return "xyzw"[c&3]
}

// ExprFunctionArgument references a function parameter by its index.
type ExprFunctionArgument struct {
	Index uint32
}

func (ExprFunctionArgument) expressionKind() {}

// ExprGlobalVariable references a global variable.
// For the handle address space it produces the resource itself,
// otherwise a pointer to the variable.
type ExprGlobalVariable struct {
	Variable GlobalVariableHandle
}

func (ExprGlobalVariable) expressionKind() {}

// ExprLocalVariable produces a pointer to a function-local variable.
type ExprLocalVariable struct {
	Variable uint32 // Index into Function.LocalVars
}

func (ExprLocalVariable) expressionKind() {}

// ExprLoad loads a value through a pointer.
type ExprLoad struct {
	Pointer ExpressionHandle
}

func (ExprLoad) expressionKind() {}

// ExprImageSample samples a sampled or depth image.
// Setting DepthRef turns it into a comparison sample, which requires a
// depth image and a comparison sampler.
type ExprImageSample struct {
	Image      ExpressionHandle
	Sampler    ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Offset     *ConstantHandle
	Level      SampleLevel
	DepthRef   *ExpressionHandle
}

func (ExprImageSample) expressionKind() {}

// SampleLevel controls the level of detail for texture sampling.
type SampleLevel interface {
	sampleLevel()
}

// SampleLevelAuto uses automatic level of detail.
type SampleLevelAuto struct{}

func (SampleLevelAuto) sampleLevel() {}

// SampleLevelZero uses mipmap level 0.
type SampleLevelZero struct{}

func (SampleLevelZero) sampleLevel() {}

// SampleLevelExact uses an explicit level of detail.
type SampleLevelExact struct {
	Level ExpressionHandle
}

func (SampleLevelExact) sampleLevel() {}

// SampleLevelBias uses automatic level of detail with a bias.
type SampleLevelBias struct {
	Bias ExpressionHandle
}

func (SampleLevelBias) sampleLevel() {}

// SampleLevelGradient uses explicit gradients for level of detail.
type SampleLevelGradient struct {
	X ExpressionHandle
	Y ExpressionHandle
}

func (SampleLevelGradient) sampleLevel() {}

// ExprImageLoad loads a texel from an image without a sampler.
type ExprImageLoad struct {
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	ArrayIndex *ExpressionHandle
	Sample     *ExpressionHandle // For multisampled images
	Level      *ExpressionHandle // For mipmapped images
}

func (ExprImageLoad) expressionKind() {}

// ExprImageQuery queries information from an image.
type ExprImageQuery struct {
	Image ExpressionHandle
	Query ImageQuery
}

func (ExprImageQuery) expressionKind() {}

// ImageQuery represents the type of image query.
type ImageQuery interface {
	imageQuery()
}

// ImageQuerySize gets the image size at a specified level.
type ImageQuerySize struct {
	Level *ExpressionHandle // If nil, uses base level
}

func (ImageQuerySize) imageQuery() {}

// ImageQueryNumLevels gets the number of mipmap levels.
type ImageQueryNumLevels struct{}

func (ImageQueryNumLevels) imageQuery() {}

// ImageQueryNumLayers gets the number of array layers.
type ImageQueryNumLayers struct{}

func (ImageQueryNumLayers) imageQuery() {}

// ImageQueryNumSamples gets the number of samples.
type ImageQueryNumSamples struct{}

func (ImageQueryNumSamples) imageQuery() {}

// ExprUnary applies a unary operator to an expression.
type ExprUnary struct {
	Op   UnaryOperator
	Expr ExpressionHandle
}

func (ExprUnary) expressionKind() {}

// UnaryOperator represents unary operations.
type UnaryOperator uint8

const (
	UnaryNegate     UnaryOperator = iota // Arithmetic negation
	UnaryLogicalNot                      // Logical not (!)
	UnaryBitwiseNot                      // Bitwise not (~)
)

// ExprBinary applies a binary operator to two expressions.
type ExprBinary struct {
	Op    BinaryOperator
	Left  ExpressionHandle
	Right ExpressionHandle
}

func (ExprBinary) expressionKind() {}

// BinaryOperator represents binary operations.
type BinaryOperator uint8

const (
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo

	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual

	BinaryAnd
	BinaryExclusiveOr
	BinaryInclusiveOr

	BinaryLogicalAnd
	BinaryLogicalOr

	BinaryShiftLeft
	BinaryShiftRight // arithmetic for signed, logical for unsigned
)

// IsComparison reports whether the operator yields booleans.
func (op BinaryOperator) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterEqual
}

// IsArithmetic reports whether the operator is +, -, *, / or %.
func (op BinaryOperator) IsArithmetic() bool {
	return op <= BinaryModulo
}

// Symbol returns the C-like infix spelling of the operator.
func (op BinaryOperator) Symbol() string {
	return binarySymbols[op]
}

var binarySymbols = [...]string{
	BinaryAdd:          "+",
	BinarySubtract:     "-",
	BinaryMultiply:     "*",
	BinaryDivide:       "/",
	BinaryModulo:       "%",
	BinaryEqual:        "==",
	BinaryNotEqual:     "!=",
	BinaryLess:         "<",
	BinaryLessEqual:    "<=",
	BinaryGreater:      ">",
	BinaryGreaterEqual: ">=",
	BinaryAnd:          "&",
	BinaryExclusiveOr:  "^",
	BinaryInclusiveOr:  "|",
	BinaryLogicalAnd:   "&&",
	BinaryLogicalOr:    "||",
	BinaryShiftLeft:    "<<",
	BinaryShiftRight:   ">>",
}

// ExprSelect selects between two values based on a boolean condition.
type ExprSelect struct {
	Condition ExpressionHandle
	Accept    ExpressionHandle
	Reject    ExpressionHandle
}

func (ExprSelect) expressionKind() {}

// ExprDerivative computes a screen-space derivative (fragment stage only).
type ExprDerivative struct {
	Axis    DerivativeAxis
	Control DerivativeControl
	Expr    ExpressionHandle
}

func (ExprDerivative) expressionKind() {}

// DerivativeAxis specifies the axis for derivative computation.
type DerivativeAxis uint8

const (
	DerivativeX     DerivativeAxis = iota // Partial derivative with respect to X
	DerivativeY                           // Partial derivative with respect to Y
	DerivativeWidth                       // Sum of absolute derivatives (fwidth)
)

// DerivativeControl specifies the precision hint for derivative computation.
type DerivativeControl uint8

const (
	DerivativeNone DerivativeControl = iota
	DerivativeCoarse
	DerivativeFine
)

// ExprRelational applies a relational function.
type ExprRelational struct {
	Fun      RelationalFunction
	Argument ExpressionHandle
}

func (ExprRelational) expressionKind() {}

// RelationalFunction represents built-in relational test functions.
type RelationalFunction uint8

const (
	RelationalAll RelationalFunction = iota
	RelationalAny
	RelationalIsNan
	RelationalIsInf
)

// ExprMath applies a built-in mathematical function.
type ExprMath struct {
	Fun  MathFunction
	Arg  ExpressionHandle
	Arg1 *ExpressionHandle
	Arg2 *ExpressionHandle
}

func (ExprMath) expressionKind() {}

// MathFunction represents built-in mathematical functions.
type MathFunction uint8

const (
	MathAbs MathFunction = iota
	MathMin
	MathMax
	MathClamp
	MathSaturate

	MathCos
	MathSin
	MathTan
	MathAcos
	MathAsin
	MathAtan
	MathAtan2

	MathCeil
	MathFloor
	MathRound
	MathFract
	MathTrunc

	MathExp
	MathExp2
	MathLog
	MathLog2
	MathPow

	MathDot
	MathCross
	MathDistance
	MathLength
	MathNormalize
	MathReflect

	MathSign
	MathFma
	MathMix
	MathStep
	MathSmoothStep
	MathSqrt
	MathInverseSqrt

	MathTranspose
	MathDeterminant

	mathFunctionCount
)

// ArgumentCount returns how many operands the function takes.
func (f MathFunction) ArgumentCount() int {
	switch f {
	case MathMin, MathMax, MathAtan2, MathPow, MathDot, MathCross, MathDistance, MathReflect, MathStep:
		return 2
	case MathClamp, MathFma, MathMix, MathSmoothStep:
		return 3
	default:
		return 1
	}
}

// Name returns the lower-case function name shared by WGSL and GLSL.
func (f MathFunction) Name() string {
	if f < mathFunctionCount {
		return mathNames[f]
	}
	return "unknown"
}

var mathNames = [...]string{
	MathAbs:         "abs",
	MathMin:         "min",
	MathMax:         "max",
	MathClamp:       "clamp",
	MathSaturate:    "saturate",
	MathCos:         "cos",
	MathSin:         "sin",
	MathTan:         "tan",
	MathAcos:        "acos",
	MathAsin:        "asin",
	MathAtan:        "atan",
	MathAtan2:       "atan2",
	MathCeil:        "ceil",
	MathFloor:       "floor",
	MathRound:       "round",
	MathFract:       "fract",
	MathTrunc:       "trunc",
	MathExp:         "exp",
	MathExp2:        "exp2",
	MathLog:         "log",
	MathLog2:        "log2",
	MathPow:         "pow",
	MathDot:         "dot",
	MathCross:       "cross",
	MathDistance:    "distance",
	MathLength:      "length",
	MathNormalize:   "normalize",
	MathReflect:     "reflect",
	MathSign:        "sign",
	MathFma:         "fma",
	MathMix:         "mix",
	MathStep:        "step",
	MathSmoothStep:  "smoothstep",
	MathSqrt:        "sqrt",
	MathInverseSqrt: "inverseSqrt",
	MathTranspose:   "transpose",
	MathDeterminant: "determinant",
}

// ExprAs performs a numeric conversion or a bitcast.
type ExprAs struct {
	Expr ExpressionHandle
	Kind ScalarKind
	// Convert is the target width in bytes for a value conversion;
	// nil means reinterpret the bits.
	Convert *uint8
}

func (ExprAs) expressionKind() {}

// ExprCallResult is the value produced by a Call statement.
type ExprCallResult struct {
	Function FunctionHandle
}

func (ExprCallResult) expressionKind() {}

// ExprArrayLength gets the length of a runtime-sized array.
// The operand must be a pointer to the array or to a struct whose last
// member is the array.
type ExprArrayLength struct {
	Array ExpressionHandle
}

func (ExprArrayLength) expressionKind() {}

// NeedsEmit reports whether the expression must be covered by an Emit
// statement before use. Literals, constants, arguments, variable
// references and call results are available without one.
func NeedsEmit(kind ExpressionKind) bool {
	switch kind.(type) {
	case Literal, ExprConstant, ExprZeroValue, ExprFunctionArgument,
		ExprGlobalVariable, ExprLocalVariable, ExprCallResult:
		return false
	default:
		return true
	}
}

// Operands calls fn for every expression handle the expression reads,
// in a fixed order.
//
//nolint:gocyclo,cyclop // one case per expression kind
func Operands(kind ExpressionKind, fn func(ExpressionHandle)) {
	opt := func(h *ExpressionHandle) {
		if h != nil {
			fn(*h)
		}
	}
	switch e := kind.(type) {
	case ExprCompose:
		for _, c := range e.Components {
			fn(c)
		}
	case ExprAccess:
		fn(e.Base)
		fn(e.Index)
	case ExprAccessIndex:
		fn(e.Base)
	case ExprSplat:
		fn(e.Value)
	case ExprSwizzle:
		fn(e.Vector)
	case ExprLoad:
		fn(e.Pointer)
	case ExprImageSample:
		fn(e.Image)
		fn(e.Sampler)
		fn(e.Coordinate)
		opt(e.ArrayIndex)
		switch l := e.Level.(type) {
		case SampleLevelExact:
			fn(l.Level)
		case SampleLevelBias:
			fn(l.Bias)
		case SampleLevelGradient:
			fn(l.X)
			fn(l.Y)
		}
		opt(e.DepthRef)
	case ExprImageLoad:
		fn(e.Image)
		fn(e.Coordinate)
		opt(e.ArrayIndex)
		opt(e.Sample)
		opt(e.Level)
	case ExprImageQuery:
		fn(e.Image)
		if q, ok := e.Query.(ImageQuerySize); ok {
			opt(q.Level)
		}
	case ExprUnary:
		fn(e.Expr)
	case ExprBinary:
		fn(e.Left)
		fn(e.Right)
	case ExprSelect:
		fn(e.Condition)
		fn(e.Accept)
		fn(e.Reject)
	case ExprDerivative:
		fn(e.Expr)
	case ExprRelational:
		fn(e.Argument)
	case ExprMath:
		fn(e.Arg)
		opt(e.Arg1)
		opt(e.Arg2)
	case ExprAs:
		fn(e.Expr)
	case ExprArrayLength:
		fn(e.Array)
	}
}
