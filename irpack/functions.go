package irpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/shadercross/ir"
)

// Expressions

const (
	exprLiteral uint8 = iota + 1
	exprConstant
	exprZeroValue
	exprCompose
	exprAccess
	exprAccessIndex
	exprSplat
	exprSwizzle
	exprFunctionArgument
	exprGlobalVariable
	exprLocalVariable
	exprLoad
	exprImageSample
	exprImageLoad
	exprImageQuery
	exprUnary
	exprBinary
	exprSelect
	exprDerivative
	exprRelational
	exprMath
	exprAs
	exprCallResult
	exprArrayLength
)

type expression struct{ ir.ExpressionKind }

type imageSample struct {
	Image      ir.ExpressionHandle
	Sampler    ir.ExpressionHandle
	Coordinate ir.ExpressionHandle
	ArrayIndex *ir.ExpressionHandle
	Offset     *ir.ConstantHandle
	Level      sampleLevel
	DepthRef   *ir.ExpressionHandle
}

// swizzle spells the pattern as plain bytes: msgpack cannot copy a byte
// array into an array of a named byte type.
type swizzle struct {
	Size    ir.VectorSize
	Vector  ir.ExpressionHandle
	Pattern []uint8
}

func fromSwizzle(v ir.ExprSwizzle) swizzle {
	s := swizzle{Size: v.Size, Vector: v.Vector, Pattern: make([]uint8, len(v.Pattern))}
	for i, c := range v.Pattern {
		s.Pattern[i] = uint8(c)
	}
	return s
}

func (s swizzle) toSwizzle() (ir.ExprSwizzle, error) {
	v := ir.ExprSwizzle{Size: s.Size, Vector: s.Vector}
	if len(s.Pattern) != len(v.Pattern) {
		return v, fmt.Errorf("swizzle pattern has %d components, want %d", len(s.Pattern), len(v.Pattern))
	}
	for i, c := range s.Pattern {
		v.Pattern[i] = ir.SwizzleComponent(c)
	}
	return v, nil
}

type imageQueryExpr struct {
	Image ir.ExpressionHandle
	Query imageQuery
}

//nolint:gocyclo,cyclop,funlen // one case per expression variant
func (e expression) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := e.ExpressionKind.(type) {
	case ir.Literal:
		return encodeVariant(enc, exprLiteral, literal{v.Value})
	case ir.ExprConstant:
		return encodeVariant(enc, exprConstant, v)
	case ir.ExprZeroValue:
		return encodeVariant(enc, exprZeroValue, v)
	case ir.ExprCompose:
		return encodeVariant(enc, exprCompose, v)
	case ir.ExprAccess:
		return encodeVariant(enc, exprAccess, v)
	case ir.ExprAccessIndex:
		return encodeVariant(enc, exprAccessIndex, v)
	case ir.ExprSplat:
		return encodeVariant(enc, exprSplat, v)
	case ir.ExprSwizzle:
		return encodeVariant(enc, exprSwizzle, fromSwizzle(v))
	case ir.ExprFunctionArgument:
		return encodeVariant(enc, exprFunctionArgument, v)
	case ir.ExprGlobalVariable:
		return encodeVariant(enc, exprGlobalVariable, v)
	case ir.ExprLocalVariable:
		return encodeVariant(enc, exprLocalVariable, v)
	case ir.ExprLoad:
		return encodeVariant(enc, exprLoad, v)
	case ir.ExprImageSample:
		return encodeVariant(enc, exprImageSample, imageSample{
			Image:      v.Image,
			Sampler:    v.Sampler,
			Coordinate: v.Coordinate,
			ArrayIndex: v.ArrayIndex,
			Offset:     v.Offset,
			Level:      sampleLevel{v.Level},
			DepthRef:   v.DepthRef,
		})
	case ir.ExprImageLoad:
		return encodeVariant(enc, exprImageLoad, v)
	case ir.ExprImageQuery:
		return encodeVariant(enc, exprImageQuery, imageQueryExpr{Image: v.Image, Query: imageQuery{v.Query}})
	case ir.ExprUnary:
		return encodeVariant(enc, exprUnary, v)
	case ir.ExprBinary:
		return encodeVariant(enc, exprBinary, v)
	case ir.ExprSelect:
		return encodeVariant(enc, exprSelect, v)
	case ir.ExprDerivative:
		return encodeVariant(enc, exprDerivative, v)
	case ir.ExprRelational:
		return encodeVariant(enc, exprRelational, v)
	case ir.ExprMath:
		return encodeVariant(enc, exprMath, v)
	case ir.ExprAs:
		return encodeVariant(enc, exprAs, v)
	case ir.ExprCallResult:
		return encodeVariant(enc, exprCallResult, v)
	case ir.ExprArrayLength:
		return encodeVariant(enc, exprArrayLength, v)
	}
	return fmt.Errorf("cannot encode expression %T", e.ExpressionKind)
}

//nolint:gocyclo,cyclop,funlen // one case per expression variant
func (e *expression) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case exprLiteral:
		var l literal
		if err := dec.Decode(&l); err != nil {
			return err
		}
		e.ExpressionKind = ir.Literal{Value: l.LiteralValue}
		return nil
	case exprConstant:
		return decodeFields[ir.ExprConstant](dec, &e.ExpressionKind)
	case exprZeroValue:
		return decodeFields[ir.ExprZeroValue](dec, &e.ExpressionKind)
	case exprCompose:
		return decodeFields[ir.ExprCompose](dec, &e.ExpressionKind)
	case exprAccess:
		return decodeFields[ir.ExprAccess](dec, &e.ExpressionKind)
	case exprAccessIndex:
		return decodeFields[ir.ExprAccessIndex](dec, &e.ExpressionKind)
	case exprSplat:
		return decodeFields[ir.ExprSplat](dec, &e.ExpressionKind)
	case exprSwizzle:
		var s swizzle
		if err := dec.Decode(&s); err != nil {
			return err
		}
		v, err := s.toSwizzle()
		if err != nil {
			return err
		}
		e.ExpressionKind = v
		return nil
	case exprFunctionArgument:
		return decodeFields[ir.ExprFunctionArgument](dec, &e.ExpressionKind)
	case exprGlobalVariable:
		return decodeFields[ir.ExprGlobalVariable](dec, &e.ExpressionKind)
	case exprLocalVariable:
		return decodeFields[ir.ExprLocalVariable](dec, &e.ExpressionKind)
	case exprLoad:
		return decodeFields[ir.ExprLoad](dec, &e.ExpressionKind)
	case exprImageSample:
		var s imageSample
		if err := dec.Decode(&s); err != nil {
			return err
		}
		e.ExpressionKind = ir.ExprImageSample{
			Image:      s.Image,
			Sampler:    s.Sampler,
			Coordinate: s.Coordinate,
			ArrayIndex: s.ArrayIndex,
			Offset:     s.Offset,
			Level:      s.Level.SampleLevel,
			DepthRef:   s.DepthRef,
		}
		return nil
	case exprImageLoad:
		return decodeFields[ir.ExprImageLoad](dec, &e.ExpressionKind)
	case exprImageQuery:
		var q imageQueryExpr
		if err := dec.Decode(&q); err != nil {
			return err
		}
		e.ExpressionKind = ir.ExprImageQuery{Image: q.Image, Query: q.Query.ImageQuery}
		return nil
	case exprUnary:
		return decodeFields[ir.ExprUnary](dec, &e.ExpressionKind)
	case exprBinary:
		return decodeFields[ir.ExprBinary](dec, &e.ExpressionKind)
	case exprSelect:
		return decodeFields[ir.ExprSelect](dec, &e.ExpressionKind)
	case exprDerivative:
		return decodeFields[ir.ExprDerivative](dec, &e.ExpressionKind)
	case exprRelational:
		return decodeFields[ir.ExprRelational](dec, &e.ExpressionKind)
	case exprMath:
		return decodeFields[ir.ExprMath](dec, &e.ExpressionKind)
	case exprAs:
		return decodeFields[ir.ExprAs](dec, &e.ExpressionKind)
	case exprCallResult:
		return decodeFields[ir.ExprCallResult](dec, &e.ExpressionKind)
	case exprArrayLength:
		return decodeFields[ir.ExprArrayLength](dec, &e.ExpressionKind)
	}
	return unknownTag("expression", tag)
}

// Statements

const (
	stmtEmit uint8 = iota + 1
	stmtBlock
	stmtIf
	stmtSwitch
	stmtLoop
	stmtBreak
	stmtContinue
	stmtReturn
	stmtKill
	stmtBarrier
	stmtStore
	stmtImageStore
	stmtCall
)

type block []statement

type statement struct{ ir.StatementKind }

type ifStatement struct {
	Condition ir.ExpressionHandle
	Accept    block
	Reject    block
}

type switchStatement struct {
	Selector ir.ExpressionHandle
	Cases    []switchCase
}

type switchCase struct {
	Value       switchValue
	Body        block
	FallThrough bool
}

type loopStatement struct {
	Body       block
	Continuing block
	BreakIf    *ir.ExpressionHandle
}

func fromBlock(b ir.Block) block {
	if b == nil {
		return nil
	}
	out := make(block, len(b))
	for i, s := range b {
		out[i] = statement{s.Kind}
	}
	return out
}

func (b block) toBlock() ir.Block {
	if b == nil {
		return nil
	}
	out := make(ir.Block, len(b))
	for i, s := range b {
		out[i] = ir.Statement{Kind: s.StatementKind}
	}
	return out
}

//nolint:gocyclo,cyclop // one case per statement variant
func (s statement) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v := s.StatementKind.(type) {
	case ir.StmtEmit:
		return encodeVariant(enc, stmtEmit, v)
	case ir.StmtBlock:
		return encodeVariant(enc, stmtBlock, fromBlock(v.Block))
	case ir.StmtIf:
		return encodeVariant(enc, stmtIf, ifStatement{Condition: v.Condition, Accept: fromBlock(v.Accept), Reject: fromBlock(v.Reject)})
	case ir.StmtSwitch:
		sw := switchStatement{Selector: v.Selector, Cases: make([]switchCase, len(v.Cases))}
		for i, c := range v.Cases {
			sw.Cases[i] = switchCase{Value: switchValue{c.Value}, Body: fromBlock(c.Body), FallThrough: c.FallThrough}
		}
		return encodeVariant(enc, stmtSwitch, sw)
	case ir.StmtLoop:
		return encodeVariant(enc, stmtLoop, loopStatement{Body: fromBlock(v.Body), Continuing: fromBlock(v.Continuing), BreakIf: v.BreakIf})
	case ir.StmtBreak:
		return encodeVariant(enc, stmtBreak, nil)
	case ir.StmtContinue:
		return encodeVariant(enc, stmtContinue, nil)
	case ir.StmtReturn:
		return encodeVariant(enc, stmtReturn, v)
	case ir.StmtKill:
		return encodeVariant(enc, stmtKill, nil)
	case ir.StmtBarrier:
		return encodeVariant(enc, stmtBarrier, v)
	case ir.StmtStore:
		return encodeVariant(enc, stmtStore, v)
	case ir.StmtImageStore:
		return encodeVariant(enc, stmtImageStore, v)
	case ir.StmtCall:
		return encodeVariant(enc, stmtCall, v)
	}
	return fmt.Errorf("cannot encode statement %T", s.StatementKind)
}

//nolint:gocyclo,cyclop,funlen // one case per statement variant
func (s *statement) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case stmtEmit:
		return decodeFields[ir.StmtEmit](dec, &s.StatementKind)
	case stmtBlock:
		var b block
		if err := dec.Decode(&b); err != nil {
			return err
		}
		s.StatementKind = ir.StmtBlock{Block: b.toBlock()}
		return nil
	case stmtIf:
		var v ifStatement
		if err := dec.Decode(&v); err != nil {
			return err
		}
		s.StatementKind = ir.StmtIf{Condition: v.Condition, Accept: v.Accept.toBlock(), Reject: v.Reject.toBlock()}
		return nil
	case stmtSwitch:
		var v switchStatement
		if err := dec.Decode(&v); err != nil {
			return err
		}
		cases := make([]ir.SwitchCase, len(v.Cases))
		for i, c := range v.Cases {
			cases[i] = ir.SwitchCase{Value: c.Value.SwitchValue, Body: c.Body.toBlock(), FallThrough: c.FallThrough}
		}
		s.StatementKind = ir.StmtSwitch{Selector: v.Selector, Cases: cases}
		return nil
	case stmtLoop:
		var v loopStatement
		if err := dec.Decode(&v); err != nil {
			return err
		}
		s.StatementKind = ir.StmtLoop{Body: v.Body.toBlock(), Continuing: v.Continuing.toBlock(), BreakIf: v.BreakIf}
		return nil
	case stmtBreak:
		s.StatementKind = ir.StmtBreak{}
		return dec.Skip()
	case stmtContinue:
		s.StatementKind = ir.StmtContinue{}
		return dec.Skip()
	case stmtReturn:
		return decodeFields[ir.StmtReturn](dec, &s.StatementKind)
	case stmtKill:
		s.StatementKind = ir.StmtKill{}
		return dec.Skip()
	case stmtBarrier:
		return decodeFields[ir.StmtBarrier](dec, &s.StatementKind)
	case stmtStore:
		return decodeFields[ir.StmtStore](dec, &s.StatementKind)
	case stmtImageStore:
		return decodeFields[ir.StmtImageStore](dec, &s.StatementKind)
	case stmtCall:
		return decodeFields[ir.StmtCall](dec, &s.StatementKind)
	}
	return unknownTag("statement", tag)
}

// Switch values

const (
	switchI32 uint8 = iota + 1
	switchU32
	switchDefault
)

type switchValue struct{ ir.SwitchValue }

func (v switchValue) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch value := v.SwitchValue.(type) {
	case ir.SwitchValueI32:
		return encodeVariant(enc, switchI32, int32(value))
	case ir.SwitchValueU32:
		return encodeVariant(enc, switchU32, uint32(value))
	case ir.SwitchValueDefault:
		return encodeVariant(enc, switchDefault, nil)
	}
	return fmt.Errorf("cannot encode switch value %T", v.SwitchValue)
}

func (v *switchValue) DecodeMsgpack(dec *msgpack.Decoder) error {
	tag, err := decodeTag(dec)
	if err != nil {
		return err
	}
	switch tag {
	case switchI32:
		return decodeFields[ir.SwitchValueI32](dec, &v.SwitchValue)
	case switchU32:
		return decodeFields[ir.SwitchValueU32](dec, &v.SwitchValue)
	case switchDefault:
		v.SwitchValue = ir.SwitchValueDefault{}
		return dec.Skip()
	}
	return unknownTag("switch value", tag)
}
