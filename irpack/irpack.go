// Package irpack serializes IR modules with msgpack.
//
// Arenas are written as they are, in handle order, so a module survives a
// round trip with every handle intact. The sealed variant interfaces of
// the IR are written as a two element array of a tag and the variant's
// fields. The format is private to this package and versioned: a blob
// written by a different format version is rejected rather than
// misread.
package irpack

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/shadercross/ir"
)

// FormatVersion is written into every blob. Increment it when the
// encoding of any IR entity changes.
const FormatVersion uint16 = 1

const magic = "shadercross-ir"

type module struct {
	Magic           string
	Format          uint16
	Types           []typ
	Constants       []constant
	GlobalVariables []ir.GlobalVariable
	Functions       []function
	EntryPoints     []ir.EntryPoint
}

type typ struct {
	Name  string
	Inner typeInner
}

type constant struct {
	Name  string
	Type  ir.TypeHandle
	Value constantValue
}

type function struct {
	Name        string
	Arguments   []argument
	Result      *result
	LocalVars   []ir.LocalVariable
	Expressions []expression
	Body        block
}

type argument struct {
	Name    string
	Type    ir.TypeHandle
	Binding binding
}

type result struct {
	Type    ir.TypeHandle
	Binding binding
}

// Marshal encodes m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a module written by Marshal or Encode.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes m to w.
func Encode(w io.Writer, m *ir.Module) error {
	if err := msgpack.NewEncoder(w).Encode(fromModule(m)); err != nil {
		return fmt.Errorf("irpack: %w", err)
	}
	return nil
}

// Decode reads a module from r. The module is not validated.
func Decode(r io.Reader) (*ir.Module, error) {
	var packed module
	if err := msgpack.NewDecoder(r).Decode(&packed); err != nil {
		return nil, fmt.Errorf("irpack: %w", err)
	}
	if packed.Magic != magic {
		return nil, fmt.Errorf("irpack: not a shadercross IR module")
	}
	if packed.Format != FormatVersion {
		return nil, fmt.Errorf("irpack: format version %d, want %d", packed.Format, FormatVersion)
	}
	return packed.toModule(), nil
}

func fromModule(m *ir.Module) module {
	packed := module{
		Magic:           magic,
		Format:          FormatVersion,
		Types:           make([]typ, len(m.Types)),
		Constants:       make([]constant, len(m.Constants)),
		GlobalVariables: m.GlobalVariables,
		Functions:       make([]function, len(m.Functions)),
		EntryPoints:     m.EntryPoints,
	}
	for i, t := range m.Types {
		packed.Types[i] = typ{Name: t.Name, Inner: typeInner{t.Inner}}
	}
	for i, c := range m.Constants {
		packed.Constants[i] = constant{Name: c.Name, Type: c.Type, Value: constantValue{c.Value}}
	}
	for i := range m.Functions {
		fn := &m.Functions[i]
		f := function{
			Name:        fn.Name,
			Arguments:   make([]argument, len(fn.Arguments)),
			LocalVars:   fn.LocalVars,
			Expressions: make([]expression, len(fn.Expressions)),
			Body:        fromBlock(fn.Body),
		}
		for j, arg := range fn.Arguments {
			f.Arguments[j] = argument{Name: arg.Name, Type: arg.Type, Binding: binding{arg.Binding}}
		}
		if fn.Result != nil {
			f.Result = &result{Type: fn.Result.Type, Binding: binding{fn.Result.Binding}}
		}
		for j, e := range fn.Expressions {
			f.Expressions[j] = expression{e.Kind}
		}
		packed.Functions[i] = f
	}
	return packed
}

func (packed *module) toModule() *ir.Module {
	m := &ir.Module{
		Types:           make([]ir.Type, len(packed.Types)),
		Constants:       make([]ir.Constant, len(packed.Constants)),
		GlobalVariables: packed.GlobalVariables,
		Functions:       make([]ir.Function, len(packed.Functions)),
		EntryPoints:     packed.EntryPoints,
	}
	for i, t := range packed.Types {
		m.Types[i] = ir.Type{Name: t.Name, Inner: t.Inner.TypeInner}
	}
	for i, c := range packed.Constants {
		m.Constants[i] = ir.Constant{Name: c.Name, Type: c.Type, Value: c.Value.ConstantValue}
	}
	for i := range packed.Functions {
		f := &packed.Functions[i]
		fn := ir.Function{
			Name:        f.Name,
			Arguments:   make([]ir.FunctionArgument, len(f.Arguments)),
			LocalVars:   f.LocalVars,
			Expressions: make([]ir.Expression, len(f.Expressions)),
			Body:        f.Body.toBlock(),
		}
		for j, arg := range f.Arguments {
			fn.Arguments[j] = ir.FunctionArgument{Name: arg.Name, Type: arg.Type, Binding: arg.Binding.Binding}
		}
		if f.Result != nil {
			fn.Result = &ir.FunctionResult{Type: f.Result.Type, Binding: f.Result.Binding.Binding}
		}
		for j, e := range f.Expressions {
			fn.Expressions[j] = ir.Expression{Kind: e.ExpressionKind}
		}
		m.Functions[i] = fn
	}
	return m
}
