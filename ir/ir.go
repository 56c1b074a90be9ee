package ir

import "fmt"

// Module represents a shader module in IR form.
//
// Every entity lives in a per-kind arena and is referenced by an integer
// handle. A Module is built once, validated once and then only read.
type Module struct {
	// Types holds all type definitions, interned by structure.
	Types []Type

	// Constants holds module-scope constants, interned by value.
	Constants []Constant

	// GlobalVariables holds module-scope variables (uniforms, storage, etc.)
	GlobalVariables []GlobalVariable

	// Functions holds all function definitions
	Functions []Function

	// EntryPoints holds shader entry points
	EntryPoints []EntryPoint

	typeIndex       map[string]TypeHandle
	typeIndexed     int
	constantIndex   map[string]ConstantHandle
	constantIndexed int
}

// EntryPoint represents a shader entry point.
type EntryPoint struct {
	Name      string
	Stage     ShaderStage
	Function  FunctionHandle
	Workgroup [3]uint32 // For compute shaders
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// ParseShaderStage parses the lower-case stage name produced by String.
func ParseShaderStage(name string) (ShaderStage, error) {
	switch name {
	case "vertex", "vert":
		return StageVertex, nil
	case "fragment", "frag":
		return StageFragment, nil
	case "compute", "comp":
		return StageCompute, nil
	}
	return 0, fmt.Errorf("unknown shader stage %q", name)
}

// Handle types for referencing IR objects
type (
	TypeHandle           uint32
	FunctionHandle       uint32
	GlobalVariableHandle uint32
	ConstantHandle       uint32
	ExpressionHandle     uint32
)

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarSint:
		return "sint"
	case ScalarUint:
		return "uint"
	case ScalarFloat:
		return "float"
	case ScalarBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Frequently used scalars.
var (
	ScalarF32      = ScalarType{Kind: ScalarFloat, Width: 4}
	ScalarF64      = ScalarType{Kind: ScalarFloat, Width: 8}
	ScalarI32      = ScalarType{Kind: ScalarSint, Width: 4}
	ScalarU32      = ScalarType{Kind: ScalarUint, Width: 4}
	ScalarBoolType = ScalarType{Kind: ScalarBool, Width: 1}
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents matrix types. Matrices are column-major.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
	Scalar  ScalarType
}

func (MatrixType) typeInner() {}

// ArrayType represents fixed-size and runtime-sized arrays.
type ArrayType struct {
	Base TypeHandle
	// Size is the element count; nil for runtime-sized arrays.
	Size   *uint32
	Stride uint32
}

func (ArrayType) typeInner() {}

// IsRuntimeSized reports whether the array length is only known at run time.
func (a ArrayType) IsRuntimeSized() bool {
	return a.Size == nil
}

// StructType represents struct types.
type StructType struct {
	Members []StructMember
	Span    uint32 // Size in bytes
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name    string
	Type    TypeHandle
	Binding Binding // stage I/O binding, nil for plain members
	Offset  uint32
}

// PointerType represents pointer types.
type PointerType struct {
	Base  TypeHandle
	Space AddressSpace
}

func (PointerType) typeInner() {}

// ValuePointerType is a pointer to a scalar or vector that has no type of
// its own in the arena, such as a pointer to one vector component.
// It only appears as an inferred expression type.
type ValuePointerType struct {
	Size   VectorSize // zero for a scalar
	Scalar ScalarType
	Space  AddressSpace
}

func (ValuePointerType) typeInner() {}

// AddressSpace represents memory address spaces.
type AddressSpace uint8

const (
	SpaceFunction AddressSpace = iota
	SpacePrivate
	SpaceWorkGroup
	SpaceUniform
	SpaceStorage
	SpacePushConstant
	SpaceHandle
)

func (s AddressSpace) String() string {
	switch s {
	case SpaceFunction:
		return "function"
	case SpacePrivate:
		return "private"
	case SpaceWorkGroup:
		return "workgroup"
	case SpaceUniform:
		return "uniform"
	case SpaceStorage:
		return "storage"
	case SpacePushConstant:
		return "push_constant"
	case SpaceHandle:
		return "handle"
	default:
		return fmt.Sprintf("space(%d)", uint8(s))
	}
}

// StorageAccess is a set of access flags for storage buffers and images.
type StorageAccess uint8

const (
	StorageLoad  StorageAccess = 1 << 0
	StorageStore StorageAccess = 1 << 1

	StorageReadWrite = StorageLoad | StorageStore
)

// SamplerType represents sampler types.
type SamplerType struct {
	Comparison bool
}

func (SamplerType) typeInner() {}

// ImageType represents image/texture types.
type ImageType struct {
	Dim          ImageDimension
	Arrayed      bool
	Multisampled bool
	Class        ImageClass

	// SampledKind is the component kind of a sampled image.
	SampledKind ScalarKind

	// Format and Access describe a storage image.
	Format StorageFormat
	Access StorageAccess
}

func (ImageType) typeInner() {}

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
)

// CoordinateSize returns the number of coordinate components needed to
// address the image, not counting the array layer.
func (d ImageDimension) CoordinateSize() int {
	switch d {
	case Dim1D:
		return 1
	case Dim2D:
		return 2
	default:
		return 3
	}
}

// ImageClass represents image classification.
type ImageClass uint8

const (
	ImageClassSampled ImageClass = iota
	ImageClassDepth
	ImageClassStorage
)

// StorageFormat is the texel format of a storage image.
type StorageFormat uint8

const (
	FormatRgba8Unorm StorageFormat = iota
	FormatRgba8Snorm
	FormatRgba16Float
	FormatRgba32Float
	FormatR32Float
	FormatR32Uint
	FormatR32Sint
	FormatRg32Float
	FormatRgba32Uint
	FormatRgba32Sint
)

// ScalarKind returns the kind of value read from or written to a texel.
func (f StorageFormat) ScalarKind() ScalarKind {
	switch f {
	case FormatR32Uint, FormatRgba32Uint:
		return ScalarUint
	case FormatR32Sint, FormatRgba32Sint:
		return ScalarSint
	default:
		return ScalarFloat
	}
}

// BindingArrayType is an array of resources bound as one binding.
type BindingArrayType struct {
	Base TypeHandle
	Size *uint32 // nil when unbounded
}

func (BindingArrayType) typeInner() {}

// Constant represents a constant value.
type Constant struct {
	Name  string
	Type  TypeHandle
	Value ConstantValue
}

// ConstantValue represents constant values.
type ConstantValue interface {
	constantValue()
}

// ScalarValue represents a scalar constant.
type ScalarValue struct {
	Bits uint64 // Bit representation
	Kind ScalarKind
}

func (ScalarValue) constantValue() {}

// CompositeValue represents a composite constant.
type CompositeValue struct {
	Components []ConstantHandle
}

func (CompositeValue) constantValue() {}

// GlobalVariable represents a global variable.
type GlobalVariable struct {
	Name    string
	Space   AddressSpace
	Binding *ResourceBinding
	Type    TypeHandle
	Init    *ConstantHandle

	// Access applies to SpaceStorage only; zero means read-write.
	Access StorageAccess
}

// ResourceBinding represents a resource binding.
type ResourceBinding struct {
	Group   uint32
	Binding uint32
}

func (r ResourceBinding) String() string {
	return fmt.Sprintf("(group %d, binding %d)", r.Group, r.Binding)
}

// Function represents a function definition.
type Function struct {
	Name        string
	Arguments   []FunctionArgument
	Result      *FunctionResult
	LocalVars   []LocalVariable
	Expressions []Expression
	Body        Block
}

// FunctionArgument represents a function argument.
type FunctionArgument struct {
	Name    string
	Type    TypeHandle
	Binding Binding
}

// FunctionResult represents a function return type.
type FunctionResult struct {
	Type    TypeHandle
	Binding Binding
}

// LocalVariable represents a function-local variable.
type LocalVariable struct {
	Name string
	Type TypeHandle
	Init *ConstantHandle
}

// Binding represents shader stage I/O bindings.
type Binding interface {
	binding()
}

// BuiltinBinding represents a built-in binding.
type BuiltinBinding struct {
	Builtin BuiltinValue
}

func (BuiltinBinding) binding() {}

// BuiltinValue represents built-in values.
type BuiltinValue uint8

const (
	BuiltinPosition BuiltinValue = iota
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinSampleIndex
	BuiltinSampleMask
	BuiltinLocalInvocationID
	BuiltinLocalInvocationIndex
	BuiltinGlobalInvocationID
	BuiltinWorkGroupID
	BuiltinNumWorkGroups
)

func (b BuiltinValue) String() string {
	switch b {
	case BuiltinPosition:
		return "position"
	case BuiltinVertexIndex:
		return "vertex_index"
	case BuiltinInstanceIndex:
		return "instance_index"
	case BuiltinFrontFacing:
		return "front_facing"
	case BuiltinFragDepth:
		return "frag_depth"
	case BuiltinSampleIndex:
		return "sample_index"
	case BuiltinSampleMask:
		return "sample_mask"
	case BuiltinLocalInvocationID:
		return "local_invocation_id"
	case BuiltinLocalInvocationIndex:
		return "local_invocation_index"
	case BuiltinGlobalInvocationID:
		return "global_invocation_id"
	case BuiltinWorkGroupID:
		return "workgroup_id"
	case BuiltinNumWorkGroups:
		return "num_workgroups"
	default:
		return fmt.Sprintf("builtin(%d)", uint8(b))
	}
}

// LocationBinding represents a location binding.
type LocationBinding struct {
	Location      uint32
	Interpolation *Interpolation
}

func (LocationBinding) binding() {}

// Interpolation represents interpolation settings.
type Interpolation struct {
	Kind     InterpolationKind
	Sampling InterpolationSampling
}

// InterpolationKind represents interpolation kinds.
type InterpolationKind uint8

const (
	InterpolationPerspective InterpolationKind = iota
	InterpolationLinear
	InterpolationFlat
)

// InterpolationSampling represents interpolation sampling.
type InterpolationSampling uint8

const (
	SamplingCenter InterpolationSampling = iota
	SamplingCentroid
	SamplingSample
)

// TypeResolution represents the resolved type of an expression.
// It either references a type in the module's type arena (Handle)
// or carries an inline type (Value) that has no arena entry.
type TypeResolution struct {
	Handle *TypeHandle
	Value  TypeInner
}

// Inner returns the resolved type, looking handles up in module.
func (r TypeResolution) Inner(module *Module) TypeInner {
	if r.Handle != nil {
		if int(*r.Handle) < len(module.Types) {
			return module.Types[*r.Handle].Inner
		}
		return nil
	}
	return r.Value
}

// Expression types are defined in expression.go
// Statement types are defined in statement.go
