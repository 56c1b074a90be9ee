package irpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/shadercross/ir"
)

// none tags a nil interface.
const none uint8 = 0

func encodeVariant(enc *msgpack.Encoder, tag uint8, fields any) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(tag); err != nil {
		return err
	}
	return enc.Encode(fields)
}

func decodeTag(dec *msgpack.Decoder) (uint8, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return 0, err
	}
	if n != 2 {
		return 0, fmt.Errorf("variant has %d elements, want 2", n)
	}
	return dec.DecodeUint8()
}

// decodeFields decodes the fields of variant T and stores it in dst.
func decodeFields[T any, K any](dec *msgpack.Decoder, dst *K) error {
	var v T
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*dst = any(v).(K)
	return nil
}

func unknownTag(what string, tag uint8) error {
	return fmt.Errorf("unknown %s tag %d", what, tag)
}

// Bindings

const (
	bindingBuiltin uint8 = iota + 1
	bindingLocation
)

type binding struct{ ir.Binding }

func (b binding) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := b.Binding.(type) {
	case nil:
		return encodeVariant(enc, none, nil)
	case ir.BuiltinBinding:
		return encodeVariant(enc, bindingBuiltin, v)
	case ir.LocationBinding:
		return encodeVariant(enc, bindingLocation, v)
	}
	return fmt.Errorf("cannot encode binding %T", b.Binding)
}

func (b *binding) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case none:
		b.Binding = nil
		return dec.Skip()
	case bindingBuiltin:
		return decodeFields[ir.BuiltinBinding](dec, &b.Binding)
	case bindingLocation:
		return decodeFields[ir.LocationBinding](dec, &b.Binding)
	}
	return unknownTag("binding", tag)
}

// Types

const (
	typeScalar uint8 = iota + 1
	typeVector
	typeMatrix
	typeArray
	typeStruct
	typePointer
	typeValuePointer
	typeSampler
	typeImage
	typeBindingArray
)

type typeInner struct{ ir.TypeInner }

type structType struct {
	Members []structMember
	Span    uint32
}

type structMember struct {
	Name    string
	Type    ir.TypeHandle
	Binding binding
	Offset  uint32
}

//nolint:gocyclo,cyclop // one case per type variant
func (t typeInner) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := t.TypeInner.(type) {
	case ir.ScalarType:
		return encodeVariant(enc, typeScalar, v)
	case ir.VectorType:
		return encodeVariant(enc, typeVector, v)
	case ir.MatrixType:
		return encodeVariant(enc, typeMatrix, v)
	case ir.ArrayType:
		return encodeVariant(enc, typeArray, v)
	case ir.StructType:
		st := structType{Members: make([]structMember, len(v.Members)), Span: v.Span}
		for i, m := range v.Members {
			st.Members[i] = structMember{Name: m.Name, Type: m.Type, Binding: binding{m.Binding}, Offset: m.Offset}
		}
		return encodeVariant(enc, typeStruct, st)
	case ir.PointerType:
		return encodeVariant(enc, typePointer, v)
	case ir.ValuePointerType:
		return encodeVariant(enc, typeValuePointer, v)
	case ir.SamplerType:
		return encodeVariant(enc, typeSampler, v)
	case ir.ImageType:
		return encodeVariant(enc, typeImage, v)
	case ir.BindingArrayType:
		return encodeVariant(enc, typeBindingArray, v)
	}
	return fmt.Errorf("cannot encode type %T", t.TypeInner)
}

//nolint:gocyclo,cyclop // one case per type variant
func (t *typeInner) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case typeScalar:
		return decodeFields[ir.ScalarType](dec, &t.TypeInner)
	case typeVector:
		return decodeFields[ir.VectorType](dec, &t.TypeInner)
	case typeMatrix:
		return decodeFields[ir.MatrixType](dec, &t.TypeInner)
	case typeArray:
		return decodeFields[ir.ArrayType](dec, &t.TypeInner)
	case typeStruct:
		var st structType
		if err := dec.Decode(&st); err != nil {
			return err
		}
		members := make([]ir.StructMember, len(st.Members))
		for i, m := range st.Members {
			members[i] = ir.StructMember{Name: m.Name, Type: m.Type, Binding: m.Binding.Binding, Offset: m.Offset}
		}
		t.TypeInner = ir.StructType{Members: members, Span: st.Span}
		return nil
	case typePointer:
		return decodeFields[ir.PointerType](dec, &t.TypeInner)
	case typeValuePointer:
		return decodeFields[ir.ValuePointerType](dec, &t.TypeInner)
	case typeSampler:
		return decodeFields[ir.SamplerType](dec, &t.TypeInner)
	case typeImage:
		return decodeFields[ir.ImageType](dec, &t.TypeInner)
	case typeBindingArray:
		return decodeFields[ir.BindingArrayType](dec, &t.TypeInner)
	}
	return unknownTag("type", tag)
}

// Constants

const (
	constantScalar uint8 = iota + 1
	constantComposite
)

type constantValue struct{ ir.ConstantValue }

func (c constantValue) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := c.ConstantValue.(type) {
	case ir.ScalarValue:
		return encodeVariant(enc, constantScalar, v)
	case ir.CompositeValue:
		return encodeVariant(enc, constantComposite, v)
	}
	return fmt.Errorf("cannot encode constant value %T", c.ConstantValue)
}

func (c *constantValue) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case constantScalar:
		return decodeFields[ir.ScalarValue](dec, &c.ConstantValue)
	case constantComposite:
		return decodeFields[ir.CompositeValue](dec, &c.ConstantValue)
	}
	return unknownTag("constant", tag)
}

// Literals

const (
	literalF64 uint8 = iota + 1
	literalF32
	literalU32
	literalI32
	literalU64
	literalI64
	literalBool
)

type literal struct{ ir.LiteralValue }

func (l literal) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := l.LiteralValue.(type) {
	case ir.LiteralF64:
		return encodeVariant(enc, literalF64, float64(v))
	case ir.LiteralF32:
		return encodeVariant(enc, literalF32, float32(v))
	case ir.LiteralU32:
		return encodeVariant(enc, literalU32, uint32(v))
	case ir.LiteralI32:
		return encodeVariant(enc, literalI32, int32(v))
	case ir.LiteralU64:
		return encodeVariant(enc, literalU64, uint64(v))
	case ir.LiteralI64:
		return encodeVariant(enc, literalI64, int64(v))
	case ir.LiteralBool:
		return encodeVariant(enc, literalBool, bool(v))
	}
	return fmt.Errorf("cannot encode literal %T", l.LiteralValue)
}

func (l *literal) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case literalF64:
		return decodeFields[ir.LiteralF64](dec, &l.LiteralValue)
	case literalF32:
		return decodeFields[ir.LiteralF32](dec, &l.LiteralValue)
	case literalU32:
		return decodeFields[ir.LiteralU32](dec, &l.LiteralValue)
	case literalI32:
		return decodeFields[ir.LiteralI32](dec, &l.LiteralValue)
	case literalU64:
		return decodeFields[ir.LiteralU64](dec, &l.LiteralValue)
	case literalI64:
		return decodeFields[ir.LiteralI64](dec, &l.LiteralValue)
	case literalBool:
		return decodeFields[ir.LiteralBool](dec, &l.LiteralValue)
	}
	return unknownTag("literal", tag)
}

// Sample levels

const (
	levelAuto uint8 = iota + 1
	levelZero
	levelExact
	levelBias
	levelGradient
)

type sampleLevel struct{ ir.SampleLevel }

func (s sampleLevel) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := s.SampleLevel.(type) {
	case ir.SampleLevelAuto:
		return encodeVariant(enc, levelAuto, nil)
	case ir.SampleLevelZero:
		return encodeVariant(enc, levelZero, nil)
	case ir.SampleLevelExact:
		return encodeVariant(enc, levelExact, v)
	case ir.SampleLevelBias:
		return encodeVariant(enc, levelBias, v)
	case ir.SampleLevelGradient:
		return encodeVariant(enc, levelGradient, v)
	}
	return fmt.Errorf("cannot encode sample level %T", s.SampleLevel)
}

func (s *sampleLevel) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case levelAuto:
		s.SampleLevel = ir.SampleLevelAuto{}
		return dec.Skip()
	case levelZero:
		s.SampleLevel = ir.SampleLevelZero{}
		return dec.Skip()
	case levelExact:
		return decodeFields[ir.SampleLevelExact](dec, &s.SampleLevel)
	case levelBias:
		return decodeFields[ir.SampleLevelBias](dec, &s.SampleLevel)
	case levelGradient:
		return decodeFields[ir.SampleLevelGradient](dec, &s.SampleLevel)
	}
	return unknownTag("sample level", tag)
}

// Image queries

const (
	querySize uint8 = iota + 1
	queryNumLevels
	queryNumLayers
	queryNumSamples
)

type imageQuery struct{ ir.ImageQuery }

func (q imageQuery) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := q.ImageQuery.(type) {
	case ir.ImageQuerySize:
		return encodeVariant(enc, querySize, v)
	case ir.ImageQueryNumLevels:
		return encodeVariant(enc, queryNumLevels, nil)
	case ir.ImageQueryNumLayers:
		return encodeVariant(enc, queryNumLayers, nil)
	case ir.ImageQueryNumSamples:
		return encodeVariant(enc, queryNumSamples, nil)
	}
	return fmt.Errorf("cannot encode image query %T", q.ImageQuery)
}

func (q *imageQuery) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case querySize:
		return decodeFields[ir.ImageQuerySize](dec, &q.ImageQuery)
	case queryNumLevels:
		q.ImageQuery = ir.ImageQueryNumLevels{}
	case queryNumLayers:
		q.ImageQuery = ir.ImageQueryNumLayers{}
	case queryNumSamples:
		q.ImageQuery = ir.ImageQueryNumSamples{}
	default:
		return unknownTag("image query", tag)
	}
	return dec.Skip()
}
