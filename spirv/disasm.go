package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBinary is returned for word streams that are not SPIR-V.
var ErrInvalidBinary = errors.New("spirv: invalid binary")

// opInfo describes how to print an instruction.
//
// Operand kinds, one per character:
//
//	i  id                 n  literal number
//	s  string             k  control mask
//	C  capability         A  addressing model
//	M  memory model       E  execution model
//	X  execution mode     S  storage class
//	D  decoration         d  image dimension
//	F  image format       G  GLSL.std.450 instruction
//	P  (literal, id) pairs to the end
//
// A kind followed by '*' repeats until the operands run out. Printing
// stops early when an instruction has fewer operands than its pattern.
type opInfo struct {
	name     string
	typed    bool // first word is a result type
	result   bool // next word is a result id
	operands string
}

var opInfos = map[OpCode]opInfo{
	OpNop:                        {"OpNop", false, false, ""},
	OpUndef:                      {"OpUndef", true, true, ""},
	OpSource:                     {"OpSource", false, false, "nn"},
	OpName:                       {"OpName", false, false, "is"},
	OpMemberName:                 {"OpMemberName", false, false, "ins"},
	OpString:                     {"OpString", false, true, "s"},
	OpExtension:                  {"OpExtension", false, false, "s"},
	OpExtInstImport:              {"OpExtInstImport", false, true, "s"},
	OpExtInst:                    {"OpExtInst", true, true, "iGi*"},
	OpMemoryModel:                {"OpMemoryModel", false, false, "AM"},
	OpEntryPoint:                 {"OpEntryPoint", false, false, "Eisi*"},
	OpExecutionMode:              {"OpExecutionMode", false, false, "iXn*"},
	OpCapability:                 {"OpCapability", false, false, "C"},
	OpTypeVoid:                   {"OpTypeVoid", false, true, ""},
	OpTypeBool:                   {"OpTypeBool", false, true, ""},
	OpTypeInt:                    {"OpTypeInt", false, true, "nn"},
	OpTypeFloat:                  {"OpTypeFloat", false, true, "n"},
	OpTypeVector:                 {"OpTypeVector", false, true, "in"},
	OpTypeMatrix:                 {"OpTypeMatrix", false, true, "in"},
	OpTypeImage:                  {"OpTypeImage", false, true, "idnnnnFn"},
	OpTypeSampler:                {"OpTypeSampler", false, true, ""},
	OpTypeSampledImage:           {"OpTypeSampledImage", false, true, "i"},
	OpTypeArray:                  {"OpTypeArray", false, true, "ii"},
	OpTypeRuntimeArray:           {"OpTypeRuntimeArray", false, true, "i"},
	OpTypeStruct:                 {"OpTypeStruct", false, true, "i*"},
	OpTypePointer:                {"OpTypePointer", false, true, "Si"},
	OpTypeFunction:               {"OpTypeFunction", false, true, "i*"},
	OpConstantTrue:               {"OpConstantTrue", true, true, ""},
	OpConstantFalse:              {"OpConstantFalse", true, true, ""},
	OpConstant:                   {"OpConstant", true, true, "n*"},
	OpConstantComposite:          {"OpConstantComposite", true, true, "i*"},
	OpConstantNull:               {"OpConstantNull", true, true, ""},
	OpFunction:                   {"OpFunction", true, true, "ki"},
	OpFunctionParameter:          {"OpFunctionParameter", true, true, ""},
	OpFunctionEnd:                {"OpFunctionEnd", false, false, ""},
	OpFunctionCall:               {"OpFunctionCall", true, true, "ii*"},
	OpVariable:                   {"OpVariable", true, true, "Si*"},
	OpLoad:                       {"OpLoad", true, true, "ik*"},
	OpStore:                      {"OpStore", false, false, "iik*"},
	OpAccessChain:                {"OpAccessChain", true, true, "ii*"},
	OpArrayLength:                {"OpArrayLength", true, true, "in"},
	OpDecorate:                   {"OpDecorate", false, false, "iDn*"},
	OpMemberDecorate:             {"OpMemberDecorate", false, false, "inDn*"},
	OpVectorExtractDynamic:       {"OpVectorExtractDynamic", true, true, "ii"},
	OpVectorInsertDynamic:        {"OpVectorInsertDynamic", true, true, "iii"},
	OpVectorShuffle:              {"OpVectorShuffle", true, true, "iin*"},
	OpCompositeConstruct:         {"OpCompositeConstruct", true, true, "i*"},
	OpCompositeExtract:           {"OpCompositeExtract", true, true, "in*"},
	OpCompositeInsert:            {"OpCompositeInsert", true, true, "iin*"},
	OpCopyObject:                 {"OpCopyObject", true, true, "i"},
	OpTranspose:                  {"OpTranspose", true, true, "i"},
	OpSampledImage:               {"OpSampledImage", true, true, "ii"},
	OpImageSampleImplicitLod:     {"OpImageSampleImplicitLod", true, true, "iiki*"},
	OpImageSampleExplicitLod:     {"OpImageSampleExplicitLod", true, true, "iiki*"},
	OpImageSampleDrefImplicitLod: {"OpImageSampleDrefImplicitLod", true, true, "iiiki*"},
	OpImageSampleDrefExplicitLod: {"OpImageSampleDrefExplicitLod", true, true, "iiiki*"},
	OpImageFetch:                 {"OpImageFetch", true, true, "iiki*"},
	OpImageRead:                  {"OpImageRead", true, true, "iiki*"},
	OpImageWrite:                 {"OpImageWrite", false, false, "iiiki*"},
	OpImageQuerySizeLod:          {"OpImageQuerySizeLod", true, true, "ii"},
	OpImageQuerySize:             {"OpImageQuerySize", true, true, "i"},
	OpImageQueryLevels:           {"OpImageQueryLevels", true, true, "i"},
	OpImageQuerySamples:          {"OpImageQuerySamples", true, true, "i"},
	OpLoopMerge:                  {"OpLoopMerge", false, false, "iik"},
	OpSelectionMerge:             {"OpSelectionMerge", false, false, "ik"},
	OpLabel:                      {"OpLabel", false, true, ""},
	OpBranch:                     {"OpBranch", false, false, "i"},
	OpBranchConditional:          {"OpBranchConditional", false, false, "iiin*"},
	OpSwitch:                     {"OpSwitch", false, false, "iiP"},
	OpKill:                       {"OpKill", false, false, ""},
	OpReturn:                     {"OpReturn", false, false, ""},
	OpReturnValue:                {"OpReturnValue", false, false, "i"},
	OpUnreachable:                {"OpUnreachable", false, false, ""},
	OpControlBarrier:             {"OpControlBarrier", false, false, "iii"},
	OpMemoryBarrier:              {"OpMemoryBarrier", false, false, "ii"},
	OpPhi:                        {"OpPhi", true, true, "i*"},
}

// Value instructions whose operands are all ids.
func init() {
	for op, name := range map[OpCode]string{
		OpConvertFToU: "OpConvertFToU", OpConvertFToS: "OpConvertFToS",
		OpConvertSToF: "OpConvertSToF", OpConvertUToF: "OpConvertUToF",
		OpUConvert: "OpUConvert", OpSConvert: "OpSConvert", OpFConvert: "OpFConvert",
		OpBitcast: "OpBitcast", OpSNegate: "OpSNegate", OpFNegate: "OpFNegate",
		OpIAdd: "OpIAdd", OpFAdd: "OpFAdd", OpISub: "OpISub", OpFSub: "OpFSub",
		OpIMul: "OpIMul", OpFMul: "OpFMul", OpUDiv: "OpUDiv", OpSDiv: "OpSDiv",
		OpFDiv: "OpFDiv", OpUMod: "OpUMod", OpSRem: "OpSRem", OpSMod: "OpSMod",
		OpFRem: "OpFRem", OpFMod: "OpFMod",
		OpVectorTimesScalar: "OpVectorTimesScalar", OpMatrixTimesScalar: "OpMatrixTimesScalar",
		OpVectorTimesMatrix: "OpVectorTimesMatrix", OpMatrixTimesVector: "OpMatrixTimesVector",
		OpMatrixTimesMatrix: "OpMatrixTimesMatrix", OpDot: "OpDot",
		OpAny: "OpAny", OpAll: "OpAll", OpIsNan: "OpIsNan", OpIsInf: "OpIsInf",
		OpLogicalEqual: "OpLogicalEqual", OpLogicalNotEqual: "OpLogicalNotEqual",
		OpLogicalOr: "OpLogicalOr", OpLogicalAnd: "OpLogicalAnd", OpLogicalNot: "OpLogicalNot",
		OpSelect: "OpSelect", OpIEqual: "OpIEqual", OpINotEqual: "OpINotEqual",
		OpUGreaterThan: "OpUGreaterThan", OpSGreaterThan: "OpSGreaterThan",
		OpUGreaterThanEqual: "OpUGreaterThanEqual", OpSGreaterThanEqual: "OpSGreaterThanEqual",
		OpULessThan: "OpULessThan", OpSLessThan: "OpSLessThan",
		OpULessThanEqual: "OpULessThanEqual", OpSLessThanEqual: "OpSLessThanEqual",
		OpFOrdEqual: "OpFOrdEqual", OpFOrdNotEqual: "OpFOrdNotEqual",
		OpFOrdLessThan: "OpFOrdLessThan", OpFOrdGreaterThan: "OpFOrdGreaterThan",
		OpFOrdLessThanEqual: "OpFOrdLessThanEqual", OpFOrdGreaterThanEqual: "OpFOrdGreaterThanEqual",
		OpShiftRightLogical: "OpShiftRightLogical", OpShiftRightArithmetic: "OpShiftRightArithmetic",
		OpShiftLeftLogical: "OpShiftLeftLogical", OpBitwiseOr: "OpBitwiseOr",
		OpBitwiseXor: "OpBitwiseXor", OpBitwiseAnd: "OpBitwiseAnd", OpNot: "OpNot",
		OpDPdx: "OpDPdx", OpDPdy: "OpDPdy", OpFwidth: "OpFwidth",
		OpDPdxFine: "OpDPdxFine", OpDPdyFine: "OpDPdyFine", OpFwidthFine: "OpFwidthFine",
		OpDPdxCoarse: "OpDPdxCoarse", OpDPdyCoarse: "OpDPdyCoarse", OpFwidthCoarse: "OpFwidthCoarse",
	} {
		opInfos[op] = opInfo{name, true, true, "i*"}
	}
}

var capabilityNames = map[uint32]string{
	uint32(CapabilityMatrix):                      "Matrix",
	uint32(CapabilityShader):                      "Shader",
	uint32(CapabilityFloat16):                     "Float16",
	uint32(CapabilityFloat64):                     "Float64",
	uint32(CapabilityInt64):                       "Int64",
	uint32(CapabilityStorageImageMultisample):     "StorageImageMultisample",
	uint32(CapabilityImageCubeArray):              "ImageCubeArray",
	uint32(CapabilitySampleRateShading):           "SampleRateShading",
	uint32(CapabilitySampled1D):                   "Sampled1D",
	uint32(CapabilityImage1D):                     "Image1D",
	uint32(CapabilitySampledCubeArray):            "SampledCubeArray",
	uint32(CapabilityImageMSArray):                "ImageMSArray",
	uint32(CapabilityStorageImageExtendedFormats): "StorageImageExtendedFormats",
	uint32(CapabilityImageQuery):                  "ImageQuery",
	uint32(CapabilityDerivativeControl):           "DerivativeControl",
	uint32(CapabilityRuntimeDescriptorArray):      "RuntimeDescriptorArray",
}

var storageClassNames = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var decorationNames = map[uint32]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	11: "BuiltIn", 13: "NoPerspective", 14: "Flat", 15: "Patch",
	16: "Centroid", 17: "Sample", 18: "Invariant", 19: "Restrict",
	20: "Aliased", 21: "Volatile", 23: "Coherent", 24: "NonWritable",
	25: "NonReadable", 30: "Location", 31: "Component", 32: "Index",
	33: "Binding", 34: "DescriptorSet", 35: "Offset",
}

var builtInNames = map[uint32]string{
	0: "Position", 1: "PointSize", 3: "ClipDistance", 4: "CullDistance",
	15: "FragCoord", 16: "PointCoord", 17: "FrontFacing", 18: "SampleId",
	19: "SamplePosition", 20: "SampleMask", 22: "FragDepth",
	23: "HelperInvocation", 24: "NumWorkgroups", 25: "WorkgroupSize",
	26: "WorkgroupId", 27: "LocalInvocationId", 28: "GlobalInvocationId",
	29: "LocalInvocationIndex", 42: "VertexIndex", 43: "InstanceIndex",
}

var executionModelNames = map[uint32]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var executionModeNames = map[uint32]string{
	7: "OriginUpperLeft", 8: "OriginLowerLeft", 9: "EarlyFragmentTests",
	12: "DepthReplacing", 14: "DepthGreater", 15: "DepthLess",
	16: "DepthUnchanged", 17: "LocalSize",
}

var dimNames = map[uint32]string{
	0: "1D", 1: "2D", 2: "3D", 3: "Cube", 4: "Rect", 5: "Buffer", 6: "SubpassData",
}

var imageFormatNames = map[uint32]string{
	0: "Unknown", 1: "Rgba32f", 2: "Rgba16f", 3: "R32f", 4: "Rgba8",
	5: "Rgba8Snorm", 6: "Rg32f", 21: "Rgba32i", 24: "R32i", 30: "Rgba32ui", 33: "R32ui",
}

var addressingModelNames = map[uint32]string{0: "Logical", 1: "Physical32", 2: "Physical64"}

var memoryModelNames = map[uint32]string{0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"}

var glslNames = map[uint32]string{
	GLSLstd450RoundEven: "RoundEven", GLSLstd450Trunc: "Trunc",
	GLSLstd450FAbs: "FAbs", GLSLstd450SAbs: "SAbs",
	GLSLstd450FSign: "FSign", GLSLstd450SSign: "SSign",
	GLSLstd450Floor: "Floor", GLSLstd450Ceil: "Ceil", GLSLstd450Fract: "Fract",
	GLSLstd450Sin: "Sin", GLSLstd450Cos: "Cos", GLSLstd450Tan: "Tan",
	GLSLstd450Asin: "Asin", GLSLstd450Acos: "Acos", GLSLstd450Atan: "Atan",
	GLSLstd450Atan2: "Atan2", GLSLstd450Pow: "Pow", GLSLstd450Exp: "Exp",
	GLSLstd450Log: "Log", GLSLstd450Exp2: "Exp2", GLSLstd450Log2: "Log2",
	GLSLstd450Sqrt: "Sqrt", GLSLstd450InverseSqrt: "InverseSqrt",
	GLSLstd450Determinant: "Determinant",
	GLSLstd450FMin: "FMin", GLSLstd450UMin: "UMin", GLSLstd450SMin: "SMin",
	GLSLstd450FMax: "FMax", GLSLstd450UMax: "UMax", GLSLstd450SMax: "SMax",
	GLSLstd450FClamp: "FClamp", GLSLstd450UClamp: "UClamp", GLSLstd450SClamp: "SClamp",
	GLSLstd450FMix: "FMix", GLSLstd450Step: "Step", GLSLstd450SmoothStep: "SmoothStep",
	GLSLstd450Fma: "Fma", GLSLstd450Length: "Length", GLSLstd450Distance: "Distance",
	GLSLstd450Cross: "Cross", GLSLstd450Normalize: "Normalize", GLSLstd450Reflect: "Reflect",
}

// DisassembleBytes disassembles a little-endian SPIR-V binary.
func DisassembleBytes(data []byte) (string, error) {
	if len(data)%4 != 0 {
		return "", fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidBinary, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return Disassemble(words)
}

// Disassemble renders a SPIR-V word stream in the assembly syntax of
// spirv-dis: one instruction per line, ids as %N.
func Disassemble(words []uint32) (string, error) {
	if len(words) < 5 {
		return "", fmt.Errorf("%w: %d words is shorter than the header", ErrInvalidBinary, len(words))
	}
	if words[0] != MagicNumber {
		return "", fmt.Errorf("%w: magic 0x%08x", ErrInvalidBinary, words[0])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n; Version: %d.%d\n; Generator: %d\n; Bound: %d\n; Schema: %d\n",
		(words[1]>>16)&0xff, (words[1]>>8)&0xff, words[2], words[3], words[4])

	for offset := 5; offset < len(words); {
		count := int(words[offset] >> 16)
		opcode := OpCode(words[offset] & 0xffff)
		if count == 0 || offset+count > len(words) {
			return "", fmt.Errorf("%w: bad word count %d at word %d", ErrInvalidBinary, count, offset)
		}
		writeInstruction(&sb, opcode, words[offset+1:offset+count])
		offset += count
	}
	return sb.String(), nil
}

func writeInstruction(sb *strings.Builder, opcode OpCode, ops []uint32) {
	info, known := opInfos[opcode]
	if !known {
		info = opInfo{name: "Op" + strconv.Itoa(int(opcode)), operands: "n*"}
	}

	var resultType, result string
	if info.typed && len(ops) > 0 {
		resultType, ops = formatID(ops[0]), ops[1:]
	}
	if info.result && len(ops) > 0 {
		result, ops = formatID(ops[0]), ops[1:]
	}

	if result != "" {
		fmt.Fprintf(sb, "%14s = %s", result, info.name)
	} else {
		fmt.Fprintf(sb, "%17s%s", "", info.name)
	}
	if resultType != "" {
		sb.WriteString(" " + resultType)
	}
	for _, operand := range formatOperands(info.operands, ops) {
		sb.WriteString(" " + operand)
	}
	sb.WriteByte('\n')
}

//nolint:gocyclo,cyclop // one case per operand kind
func formatOperands(pattern string, ops []uint32) []string {
	var out []string
	builtIn := false
	for p := 0; p < len(pattern) && len(ops) > 0; p++ {
		kind := pattern[p]
		repeat := p+1 < len(pattern) && pattern[p+1] == '*'
		for len(ops) > 0 {
			var text string
			switch kind {
			case 'i':
				text = formatID(ops[0])
			case 'n':
				if builtIn {
					text = enumName(builtInNames, ops[0])
					builtIn = false
				} else {
					text = strconv.FormatUint(uint64(ops[0]), 10)
				}
			case 's':
				var used int
				text, used = decodeString(ops)
				ops = ops[used-1:]
			case 'k':
				text = "None"
				if ops[0] != 0 {
					text = fmt.Sprintf("0x%x", ops[0])
				}
			case 'C':
				text = enumName(capabilityNames, ops[0])
			case 'A':
				text = enumName(addressingModelNames, ops[0])
			case 'M':
				text = enumName(memoryModelNames, ops[0])
			case 'E':
				text = enumName(executionModelNames, ops[0])
			case 'X':
				text = enumName(executionModeNames, ops[0])
			case 'S':
				text = enumName(storageClassNames, ops[0])
			case 'D':
				text = enumName(decorationNames, ops[0])
				builtIn = ops[0] == uint32(DecorationBuiltIn)
			case 'd':
				text = enumName(dimNames, ops[0])
			case 'F':
				text = enumName(imageFormatNames, ops[0])
			case 'G':
				text = enumName(glslNames, ops[0])
			case 'P':
				if len(ops) < 2 {
					text = strconv.FormatUint(uint64(ops[0]), 10)
					break
				}
				text = strconv.FormatUint(uint64(ops[0]), 10) + " " + formatID(ops[1])
				ops = ops[1:]
				repeat = true
			}
			out = append(out, text)
			ops = ops[1:]
			if !repeat {
				break
			}
		}
		if repeat && kind != 'P' {
			p++
		}
	}
	return out
}

// decodeString reads a nul-terminated string and returns it with the
// number of words it occupies.
func decodeString(ops []uint32) (string, int) {
	var bytes []byte
	for i, w := range ops {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return strconv.Quote(string(bytes)), i + 1
			}
			bytes = append(bytes, c)
		}
	}
	return strconv.Quote(string(bytes)), len(ops)
}

func formatID(n uint32) string {
	return "%" + strconv.FormatUint(uint64(n), 10)
}

func enumName(names map[uint32]string, v uint32) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.FormatUint(uint64(v), 10)
}
