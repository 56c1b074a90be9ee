package msl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Writer generates MSL source code for one entry point.
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

	// typeNames holds the names of structs and of the wrapper structs
	// that give fixed-size arrays value semantics.
	typeNames map[ir.TypeHandle]string

	// structPads lists, per struct, the members preceded by an explicit
	// padding field, so aggregate initializers can skip it.
	structPads map[ir.TypeHandle]map[int]bool
	packed     map[ir.TypeHandle]map[int]bool

	resources EntryPointResources
	entryName string

	// Function context (set during function writing)
	fc   *back.FunctionContext
	bake back.BakePolicy
	ep   *entryState

	functions        []ir.FunctionHandle
	needsSizesBuffer bool
	sizedGlobals     []ir.GlobalVariableHandle
	needsDivHelper   bool
	needsModHelper   bool
}

func newWriter(module *ir.Module, info *ir.ModuleInfo, entry int, options *Options) *Writer {
	return &Writer{
		module:     module,
		info:       info,
		options:    options,
		entry:      entry,
		typeNames:  make(map[ir.TypeHandle]string),
		structPads: make(map[ir.TypeHandle]map[int]bool),
		packed:     make(map[ir.TypeHandle]map[int]bool),
	}
}

// String returns the generated MSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates MSL code for the selected entry point and the
// functions it reaches.
func (w *Writer) writeModule() error {
	if err := w.checkSupport(); err != nil {
		return err
	}
	if err := w.registerNames(); err != nil {
		return err
	}
	if err := w.collectResources(); err != nil {
		return err
	}
	w.scanHelpers()

	w.writeHeader()
	if err := w.writeTypes(); err != nil {
		return err
	}
	w.writeSizesStruct()
	if err := w.writeConstants(); err != nil {
		return err
	}
	w.writeHelperFunctions()

	entryFn := w.module.EntryPoints[w.entry].Function
	for _, h := range w.functions {
		if h == entryFn {
			continue
		}
		if err := w.writeFunction(h); err != nil {
			return err
		}
	}
	if err := w.writeEntryPoint(); err != nil {
		return back.AtEntryPoint(err, w.entry)
	}
	return nil
}

// writeHeader writes the MSL file header.
func (w *Writer) writeHeader() {
	w.writeLine("// language: metal%s", w.options.LangVersion)
	w.writeLine("#include <metal_stdlib>")
	w.writeLine("#include <simd/simd.h>")
	w.writeLine("")
	w.writeLine("using metal::uint;")
	w.writeLine("")
}

// checkSupport rejects types Metal has no spelling for.
func (w *Writer) checkSupport() error {
	for i, t := range w.module.Types {
		if s, ok := scalarOf(t.Inner); ok && s.Kind == ir.ScalarFloat && s.Width == 8 {
			return ir.Errorf(ir.ErrUnsupportedFeature, "MSL has no 64-bit floating point type").WithType(ir.TypeHandle(i)) //nolint:gosec // G115: arena index
		}
		if ba, ok := t.Inner.(ir.BindingArrayType); ok && ba.Size == nil {
			return ir.Errorf(ir.ErrUnsupportedFeature, "unbounded binding arrays need argument buffers").WithType(ir.TypeHandle(i)) //nolint:gosec // G115: arena index
		}
	}
	return nil
}

// registerNames names every module entity and the array wrappers.
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

	w.functions = back.Reachable(w.module, w.info, w.entry)
	return nil
}

// collectResources picks the binding table of the entry point.
func (w *Writer) collectResources() error {
	ep := &w.module.EntryPoints[w.entry]
	if res, ok := w.options.PerEntryPointMap[ep.Name]; ok {
		w.resources = res
	}

	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		global := &w.module.GlobalVariables[g]
		if global.Binding != nil && (global.Space == ir.SpaceStorage) && hasRuntimeArray(w.module, global.Type) {
			w.sizedGlobals = append(w.sizedGlobals, g)
		}
	}
	return nil
}

// scanHelpers records which polyfills and side buffers the reachable
// functions need.
func (w *Writer) scanHelpers() {
	for _, h := range w.functions {
		fn := &w.module.Functions[h]
		fi := &w.info.Functions[h]
		for i := range fn.Expressions {
			switch e := fn.Expressions[i].Kind.(type) {
			case ir.ExprArrayLength:
				w.needsSizesBuffer = true
			case ir.ExprBinary:
				if e.Op != ir.BinaryDivide && e.Op != ir.BinaryModulo {
					continue
				}
				s, ok := scalarOf(fi.Expressions[e.Left].Inner(w.module))
				if !ok || s.Kind == ir.ScalarFloat {
					continue
				}
				if e.Op == ir.BinaryDivide {
					w.needsDivHelper = true
				} else {
					w.needsModHelper = true
				}
			}
		}
	}
}

// usesSizes reports whether function h reads a runtime array length,
// directly or through a call.
func (w *Writer) usesSizes(h ir.FunctionHandle) bool {
	if !w.needsSizesBuffer {
		return false
	}
	for _, g := range w.info.Functions[h].Globals {
		for _, sized := range w.sizedGlobals {
			if g == sized {
				return true
			}
		}
	}
	return false
}

// writeSizesStruct declares the struct the host fills with the byte size
// of every runtime-sized buffer.
func (w *Writer) writeSizesStruct() {
	if !w.needsSizesBuffer {
		return
	}
	w.writeLine("struct _mslBufferSizes {")
	w.pushIndent()
	for _, g := range w.sizedGlobals {
		w.writeLine("uint size%d;", g)
	}
	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
}

// writeHelperFunctions writes the integer division polyfills. Metal
// leaves division by zero undefined; these return the dividend instead.
func (w *Writer) writeHelperFunctions() {
	if w.needsDivHelper {
		w.writeLine("template <typename T, typename D>")
		w.writeLine("T _div(T lhs, D rhs) {")
		w.pushIndent()
		w.writeLine("D nz = D(rhs != D(0));")
		w.writeLine("return lhs / (nz * rhs + D(!nz));")
		w.popIndent()
		w.writeLine("}")
		w.writeLine("")
	}
	if w.needsModHelper {
		w.writeLine("template <typename T, typename D>")
		w.writeLine("T _mod(T lhs, D rhs) {")
		w.pushIndent()
		w.writeLine("D nz = D(rhs != D(0));")
		w.writeLine("return lhs %s (nz * rhs + D(!nz));", "%")
		w.popIndent()
		w.writeLine("}")
		w.writeLine("")
	}
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
