// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Writer generates HLSL source code for one entry point.
type Writer struct {
	module  *ir.Module
	info    *ir.ModuleInfo
	options *Options
	entry   int

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	namer *back.Namer
	names back.Names

	// typeNames holds the names of structs and of array typedefs.
	typeNames map[ir.TypeHandle]string

	// structPads lists, per struct, the number of padding scalars written
	// before each member.
	structPads map[ir.TypeHandle]map[int]int

	// blockNames holds the cbuffer names of uniform globals.
	blockNames map[ir.GlobalVariableHandle]string

	// constNames names the composite constants that need a declaration.
	constNames map[ir.ConstantHandle]string

	entryName string
	functions []ir.FunctionHandle

	// Function context (set during function writing)
	fc   *back.FunctionContext
	bake back.BakePolicy
	ep   *entryState

	// helpers are written between the declarations and the functions, in
	// the order the functions first asked for them.
	helpers     []helper
	helperIndex map[string]bool

	registers map[string]string
}

func newWriter(module *ir.Module, info *ir.ModuleInfo, entry int, options *Options) *Writer {
	return &Writer{
		module:      module,
		info:        info,
		options:     options,
		entry:       entry,
		typeNames:   make(map[ir.TypeHandle]string),
		structPads:  make(map[ir.TypeHandle]map[int]int),
		blockNames:  make(map[ir.GlobalVariableHandle]string),
		constNames:  make(map[ir.ConstantHandle]string),
		bake:        back.BakePolicy{AllLoads: true},
		helperIndex: make(map[string]bool),
		registers:   make(map[string]string),
	}
}

// String returns the generated HLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates HLSL code for the selected entry point and the
// functions it reaches. Functions are written first into a scratch
// buffer so the helpers they request can precede them.
func (w *Writer) writeModule() error {
	if err := w.checkSupport(); err != nil {
		return err
	}
	if err := w.registerNames(); err != nil {
		return err
	}

	w.writeHeader()
	if err := w.writeTypes(); err != nil {
		return err
	}
	if err := w.writeConstants(); err != nil {
		return err
	}
	if err := w.writeGlobals(); err != nil {
		return err
	}
	declarations := w.out.String()
	w.out.Reset()

	entryFn := w.module.EntryPoints[w.entry].Function
	for _, h := range w.functions {
		if h == entryFn {
			continue
		}
		if err := w.writeFunction(h); err != nil {
			return back.AtFunction(err, h)
		}
	}
	if err := w.writeEntryPoint(); err != nil {
		return back.AtEntryPoint(err, w.entry)
	}
	functions := w.out.String()
	w.out.Reset()

	w.out.WriteString(declarations)
	w.writeHelpers()
	w.out.WriteString(functions)
	return nil
}

// writeHeader writes a comment naming the target profile.
func (w *Writer) writeHeader() {
	stage := w.module.EntryPoints[w.entry].Stage
	w.writeLine("// profile: %s", w.options.ShaderModel.Profile(stage))
	w.writeLine("")
}

// checkSupport rejects types the shader model cannot spell.
func (w *Writer) checkSupport() error {
	sm := w.options.ShaderModel
	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		s, ok := scalarOf(t.Inner)
		if !ok {
			continue
		}
		if s.Width == 8 && s.Kind != ir.ScalarFloat && !sm.Supports64BitIntegers() {
			return ir.Errorf(ir.ErrUnsupportedFeature, "64-bit integers need Shader Model 6.0, have %s", sm).WithType(h)
		}
		if s.Width == 2 && !sm.SupportsFloat16() {
			return ir.Errorf(ir.ErrUnsupportedFeature, "16-bit floats need Shader Model 6.2, have %s", sm).WithType(h)
		}
	}
	return nil
}

// registerNames names every module entity, the array typedefs and the
// cbuffer blocks.
func (w *Writer) registerNames() error {
	w.namer = back.NewNamer(keywords)
	names, err := w.namer.Process(w.module, []int{w.entry})
	if err != nil {
		return err
	}
	w.names = names
	w.entryName = names.Get(back.NameKey{Kind: back.NameEntryPoint, Handle1: uint32(w.entry)}) //nolint:gosec // G115: entry point index

	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		switch inner := t.Inner.(type) {
		case ir.StructType:
			w.typeNames[h] = names.Get(back.NameKey{Kind: back.NameType, Handle1: uint32(h)})
		case ir.ArrayType:
			if !inner.IsRuntimeSized() {
				w.typeNames[h] = w.namer.Call("type_" + strconv.Itoa(i))
			}
		}
	}
	for i, c := range w.module.Constants {
		if c.Name != "" {
			continue
		}
		switch w.module.Types[c.Type].Inner.(type) {
		case ir.StructType, ir.ArrayType:
			w.constNames[ir.ConstantHandle(i)] = w.namer.Call("const_" + strconv.Itoa(i)) //nolint:gosec // G115: arena index
		}
	}
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		if space := w.module.GlobalVariables[g].Space; space == ir.SpaceUniform || space == ir.SpacePushConstant {
			w.blockNames[g] = w.namer.Call(w.globalName(g) + "_block")
		}
	}

	w.functions = back.Reachable(w.module, w.info, w.entry)
	return nil
}

// Output helpers

// write writes text to the output. If args are provided, uses fmt.Fprintf.
//
//nolint:goprintffuncname
func (w *Writer) write(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
}

// writeLine writes a line with optional format args and a newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for range w.indent {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *Writer) name(kind back.NameKeyKind, h1, h2 uint32) string {
	return w.names.Get(back.NameKey{Kind: kind, Handle1: h1, Handle2: h2})
}

func (w *Writer) globalName(g ir.GlobalVariableHandle) string {
	return w.name(back.NameGlobal, uint32(g), 0)
}

func (w *Writer) memberName(ty ir.TypeHandle, index int) string {
	return w.name(back.NameStructMember, uint32(ty), uint32(index)) //nolint:gosec // G115: member index
}
