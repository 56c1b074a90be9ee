package spirv

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes used by the backend.
const (
	OpNop                        OpCode = 0
	OpUndef                      OpCode = 1
	OpSource                     OpCode = 3
	OpName                       OpCode = 5
	OpMemberName                 OpCode = 6
	OpString                     OpCode = 7
	OpExtension                  OpCode = 10
	OpExtInstImport              OpCode = 11
	OpExtInst                    OpCode = 12
	OpMemoryModel                OpCode = 14
	OpEntryPoint                 OpCode = 15
	OpExecutionMode              OpCode = 16
	OpCapability                 OpCode = 17
	OpTypeVoid                   OpCode = 19
	OpTypeBool                   OpCode = 20
	OpTypeInt                    OpCode = 21
	OpTypeFloat                  OpCode = 22
	OpTypeVector                 OpCode = 23
	OpTypeMatrix                 OpCode = 24
	OpTypeImage                  OpCode = 25
	OpTypeSampler                OpCode = 26
	OpTypeSampledImage           OpCode = 27
	OpTypeArray                  OpCode = 28
	OpTypeRuntimeArray           OpCode = 29
	OpTypeStruct                 OpCode = 30
	OpTypePointer                OpCode = 32
	OpTypeFunction               OpCode = 33
	OpConstantTrue               OpCode = 41
	OpConstantFalse              OpCode = 42
	OpConstant                   OpCode = 43
	OpConstantComposite          OpCode = 44
	OpConstantNull               OpCode = 46
	OpFunction                   OpCode = 54
	OpFunctionParameter          OpCode = 55
	OpFunctionEnd                OpCode = 56
	OpFunctionCall               OpCode = 57
	OpVariable                   OpCode = 59
	OpLoad                       OpCode = 61
	OpStore                      OpCode = 62
	OpAccessChain                OpCode = 65
	OpArrayLength                OpCode = 68
	OpDecorate                   OpCode = 71
	OpMemberDecorate             OpCode = 72
	OpVectorExtractDynamic       OpCode = 77
	OpVectorInsertDynamic        OpCode = 78
	OpVectorShuffle              OpCode = 79
	OpCompositeConstruct         OpCode = 80
	OpCompositeExtract           OpCode = 81
	OpCompositeInsert            OpCode = 82
	OpCopyObject                 OpCode = 83
	OpTranspose                  OpCode = 84
	OpSampledImage               OpCode = 86
	OpImageSampleImplicitLod     OpCode = 87
	OpImageSampleExplicitLod     OpCode = 88
	OpImageSampleDrefImplicitLod OpCode = 89
	OpImageSampleDrefExplicitLod OpCode = 90
	OpImageFetch                 OpCode = 95
	OpImageRead                  OpCode = 98
	OpImageWrite                 OpCode = 99
	OpImageQuerySizeLod          OpCode = 103
	OpImageQuerySize             OpCode = 104
	OpImageQueryLevels           OpCode = 106
	OpImageQuerySamples          OpCode = 107
	OpConvertFToU                OpCode = 109
	OpConvertFToS                OpCode = 110
	OpConvertSToF                OpCode = 111
	OpConvertUToF                OpCode = 112
	OpUConvert                   OpCode = 113
	OpSConvert                   OpCode = 114
	OpFConvert                   OpCode = 115
	OpBitcast                    OpCode = 124
	OpSNegate                    OpCode = 126
	OpFNegate                    OpCode = 127
	OpIAdd                       OpCode = 128
	OpFAdd                       OpCode = 129
	OpISub                       OpCode = 130
	OpFSub                       OpCode = 131
	OpIMul                       OpCode = 132
	OpFMul                       OpCode = 133
	OpUDiv                       OpCode = 134
	OpSDiv                       OpCode = 135
	OpFDiv                       OpCode = 136
	OpUMod                       OpCode = 137
	OpSRem                       OpCode = 138
	OpSMod                       OpCode = 139
	OpFRem                       OpCode = 140
	OpFMod                       OpCode = 141
	OpVectorTimesScalar          OpCode = 142
	OpMatrixTimesScalar          OpCode = 143
	OpVectorTimesMatrix          OpCode = 144
	OpMatrixTimesVector          OpCode = 145
	OpMatrixTimesMatrix          OpCode = 146
	OpDot                        OpCode = 148
	OpAny                        OpCode = 154
	OpAll                        OpCode = 155
	OpIsNan                      OpCode = 156
	OpIsInf                      OpCode = 157
	OpLogicalEqual               OpCode = 164
	OpLogicalNotEqual            OpCode = 165
	OpLogicalOr                  OpCode = 166
	OpLogicalAnd                 OpCode = 167
	OpLogicalNot                 OpCode = 168
	OpSelect                     OpCode = 169
	OpIEqual                     OpCode = 170
	OpINotEqual                  OpCode = 171
	OpUGreaterThan               OpCode = 172
	OpSGreaterThan               OpCode = 173
	OpUGreaterThanEqual          OpCode = 174
	OpSGreaterThanEqual          OpCode = 175
	OpULessThan                  OpCode = 176
	OpSLessThan                  OpCode = 177
	OpULessThanEqual             OpCode = 178
	OpSLessThanEqual             OpCode = 179
	OpFOrdEqual                  OpCode = 180
	OpFOrdNotEqual               OpCode = 182
	OpFOrdLessThan               OpCode = 184
	OpFOrdGreaterThan            OpCode = 186
	OpFOrdLessThanEqual          OpCode = 188
	OpFOrdGreaterThanEqual       OpCode = 190
	OpShiftRightLogical          OpCode = 194
	OpShiftRightArithmetic       OpCode = 195
	OpShiftLeftLogical           OpCode = 196
	OpBitwiseOr                  OpCode = 197
	OpBitwiseXor                 OpCode = 198
	OpBitwiseAnd                 OpCode = 199
	OpNot                        OpCode = 200
	OpDPdx                       OpCode = 207
	OpDPdy                       OpCode = 208
	OpFwidth                     OpCode = 209
	OpDPdxFine                   OpCode = 210
	OpDPdyFine                   OpCode = 211
	OpFwidthFine                 OpCode = 212
	OpDPdxCoarse                 OpCode = 213
	OpDPdyCoarse                 OpCode = 214
	OpFwidthCoarse               OpCode = 215
	OpControlBarrier             OpCode = 224
	OpMemoryBarrier              OpCode = 225
	OpPhi                        OpCode = 245
	OpLoopMerge                  OpCode = 246
	OpSelectionMerge             OpCode = 247
	OpLabel                      OpCode = 248
	OpBranch                     OpCode = 249
	OpBranchConditional          OpCode = 250
	OpSwitch                     OpCode = 251
	OpKill                       OpCode = 252
	OpReturn                     OpCode = 253
	OpReturnValue                OpCode = 254
	OpUnreachable                OpCode = 255
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities the backend may declare.
const (
	CapabilityMatrix                      Capability = 0
	CapabilityShader                      Capability = 1
	CapabilityFloat16                     Capability = 9
	CapabilityFloat64                     Capability = 10
	CapabilityInt64                       Capability = 11
	CapabilityStorageImageMultisample     Capability = 27
	CapabilityImageCubeArray              Capability = 34
	CapabilitySampleRateShading           Capability = 35
	CapabilitySampled1D                   Capability = 43
	CapabilityImage1D                     Capability = 44
	CapabilitySampledCubeArray            Capability = 45
	CapabilityImageMSArray                Capability = 48
	CapabilityStorageImageExtendedFormats Capability = 49
	CapabilityImageQuery                  Capability = 50
	CapabilityDerivativeControl           Capability = 51
	CapabilityRuntimeDescriptorArray      Capability = 5302
)

// AddressingModel is the first operand of OpMemoryModel.
type AddressingModel uint32

const AddressingModelLogical AddressingModel = 0

// MemoryModel is the second operand of OpMemoryModel.
type MemoryModel uint32

const MemoryModelGLSL450 MemoryModel = 1

// ExecutionModel is the pipeline stage of an OpEntryPoint.
type ExecutionModel uint32

const (
	ExecutionModelVertex    ExecutionModel = 0
	ExecutionModelFragment  ExecutionModel = 4
	ExecutionModelGLCompute ExecutionModel = 5
)

// ExecutionMode configures an entry point.
type ExecutionMode uint32

const (
	ExecutionModeOriginUpperLeft ExecutionMode = 7
	ExecutionModeDepthReplacing  ExecutionMode = 12
	ExecutionModeLocalSize       ExecutionMode = 17
)

// StorageClass is the memory a pointer points into.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNoPerspective Decoration = 13
	DecorationFlat          Decoration = 14
	DecorationCentroid      Decoration = 16
	DecorationSample        Decoration = 17
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn is the operand of a BuiltIn decoration.
type BuiltIn uint32

const (
	BuiltInPosition             BuiltIn = 0
	BuiltInFragCoord            BuiltIn = 15
	BuiltInFrontFacing          BuiltIn = 17
	BuiltInSampleID             BuiltIn = 18
	BuiltInSampleMask           BuiltIn = 20
	BuiltInFragDepth            BuiltIn = 22
	BuiltInNumWorkgroups        BuiltIn = 24
	BuiltInWorkgroupID          BuiltIn = 26
	BuiltInLocalInvocationID    BuiltIn = 27
	BuiltInGlobalInvocationID   BuiltIn = 28
	BuiltInLocalInvocationIndex BuiltIn = 29
	BuiltInVertexIndex          BuiltIn = 42
	BuiltInInstanceIndex        BuiltIn = 43
)

// FunctionControl is the control mask of OpFunction.
type FunctionControl uint32

const FunctionControlNone FunctionControl = 0

// SelectionControl is the control mask of OpSelectionMerge.
type SelectionControl uint32

const SelectionControlNone SelectionControl = 0

// LoopControl is the control mask of OpLoopMerge.
type LoopControl uint32

const LoopControlNone LoopControl = 0

// Dim is the dimensionality operand of OpTypeImage.
type Dim uint32

const (
	Dim1D   Dim = 0
	Dim2D   Dim = 1
	Dim3D   Dim = 2
	DimCube Dim = 3
)

// ImageFormat is the texel format operand of OpTypeImage.
type ImageFormat uint32

const (
	ImageFormatUnknown    ImageFormat = 0
	ImageFormatRgba32f    ImageFormat = 1
	ImageFormatRgba16f    ImageFormat = 2
	ImageFormatR32f       ImageFormat = 3
	ImageFormatRgba8      ImageFormat = 4
	ImageFormatRgba8Snorm ImageFormat = 5
	ImageFormatRg32f      ImageFormat = 6
	ImageFormatRgba32i    ImageFormat = 21
	ImageFormatR32i       ImageFormat = 24
	ImageFormatRgba32ui   ImageFormat = 30
	ImageFormatR32ui      ImageFormat = 33
)

// Image operand mask bits, in the order their operands follow.
const (
	ImageOperandsBias        uint32 = 0x1
	ImageOperandsLod         uint32 = 0x2
	ImageOperandsGrad        uint32 = 0x4
	ImageOperandsConstOffset uint32 = 0x8
	ImageOperandsSample      uint32 = 0x40
)

// Scope is an execution or memory scope.
type Scope uint32

const (
	ScopeDevice    Scope = 1
	ScopeWorkgroup Scope = 2
)

// Memory semantics bits used by barriers.
const (
	MemorySemanticsAcquireRelease  uint32 = 0x8
	MemorySemanticsUniformMemory   uint32 = 0x40
	MemorySemanticsWorkgroupMemory uint32 = 0x100
)

// GLSL.std.450 extended instructions.
const (
	GLSLstd450RoundEven   uint32 = 2
	GLSLstd450Trunc       uint32 = 3
	GLSLstd450FAbs        uint32 = 4
	GLSLstd450SAbs        uint32 = 5
	GLSLstd450FSign       uint32 = 6
	GLSLstd450SSign       uint32 = 7
	GLSLstd450Floor       uint32 = 8
	GLSLstd450Ceil        uint32 = 9
	GLSLstd450Fract       uint32 = 10
	GLSLstd450Sin         uint32 = 13
	GLSLstd450Cos         uint32 = 14
	GLSLstd450Tan         uint32 = 15
	GLSLstd450Asin        uint32 = 16
	GLSLstd450Acos        uint32 = 17
	GLSLstd450Atan        uint32 = 18
	GLSLstd450Atan2       uint32 = 25
	GLSLstd450Pow         uint32 = 26
	GLSLstd450Exp         uint32 = 27
	GLSLstd450Log         uint32 = 28
	GLSLstd450Exp2        uint32 = 29
	GLSLstd450Log2        uint32 = 30
	GLSLstd450Sqrt        uint32 = 31
	GLSLstd450InverseSqrt uint32 = 32
	GLSLstd450Determinant uint32 = 33
	GLSLstd450FMin        uint32 = 37
	GLSLstd450UMin        uint32 = 38
	GLSLstd450SMin        uint32 = 39
	GLSLstd450FMax        uint32 = 40
	GLSLstd450UMax        uint32 = 41
	GLSLstd450SMax        uint32 = 42
	GLSLstd450FClamp      uint32 = 43
	GLSLstd450UClamp      uint32 = 44
	GLSLstd450SClamp      uint32 = 45
	GLSLstd450FMix        uint32 = 46
	GLSLstd450Step        uint32 = 48
	GLSLstd450SmoothStep  uint32 = 49
	GLSLstd450Fma         uint32 = 50
	GLSLstd450Length      uint32 = 66
	GLSLstd450Distance    uint32 = 67
	GLSLstd450Cross       uint32 = 68
	GLSLstd450Normalize   uint32 = 69
	GLSLstd450Reflect     uint32 = 71
)
