// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Writer generates GLSL source code for one entry point.
type Writer struct {
	module  *ir.Module
	info    *ir.ModuleInfo
	options *Options
	version Version
	entry   int
	stage   ir.ShaderStage

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	namer *back.Namer
	names back.Names

	// typeNames holds the names of structs.
	typeNames map[ir.TypeHandle]string

	// structPads lists, per struct, the number of padding scalars written
	// before each member.
	structPads map[ir.TypeHandle]map[int]int

	// blockNames holds the interface block names of buffer globals.
	blockNames map[ir.GlobalVariableHandle]string

	// textures are the texture uses of the entry point; combined names
	// the sampler uniform of each use.
	textures []back.TextureUse
	combined map[back.TextureUse]string

	// slots holds the binding of every resource global and combined
	// sampler.
	slots       map[ir.GlobalVariableHandle]uint32
	unitSlots   map[back.TextureUse]uint32
	functions   []ir.FunctionHandle
	precisions  []string
	extensions  []string
	bindings    map[string]uint32
	pairs       []TextureSamplerPair
	precisionOf map[string]bool

	// Function context (set during function writing)
	fc   *back.FunctionContext
	bake back.BakePolicy
	ep   *entryState
}

func newWriter(module *ir.Module, info *ir.ModuleInfo, entry int, options *Options) *Writer {
	return &Writer{
		module:      module,
		info:        info,
		options:     options,
		version:     options.LangVersion,
		entry:       entry,
		stage:       module.EntryPoints[entry].Stage,
		typeNames:   make(map[ir.TypeHandle]string),
		structPads:  make(map[ir.TypeHandle]map[int]int),
		blockNames:  make(map[ir.GlobalVariableHandle]string),
		combined:    make(map[back.TextureUse]string),
		slots:       make(map[ir.GlobalVariableHandle]uint32),
		unitSlots:   make(map[back.TextureUse]uint32),
		bindings:    make(map[string]uint32),
		precisionOf: make(map[string]bool),
	}
}

// String returns the generated GLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates GLSL code for the selected entry point and the
// functions it reaches. The body is written first so the header can
// list the extensions it turned out to need.
func (w *Writer) writeModule() error {
	if err := w.checkSupport(); err != nil {
		return err
	}
	if err := w.registerNames(); err != nil {
		return err
	}
	if err := w.assignSlots(); err != nil {
		return err
	}

	if err := w.writeTypes(); err != nil {
		return err
	}
	if err := w.writeConstants(); err != nil {
		return err
	}
	if err := w.writeGlobals(); err != nil {
		return err
	}
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
	body := w.out.String()
	w.out.Reset()

	w.writeHeader()
	w.out.WriteString(body)
	return nil
}

// writeHeader writes the version directive, the extensions, the default
// precisions of ES and the compute workgroup size.
func (w *Writer) writeHeader() {
	w.writeLine("#version %s", w.version)
	for _, ext := range w.extensions {
		w.writeLine("#extension %s : require", ext)
	}
	if w.version.ES {
		precision := "highp"
		if w.stage == ir.StageFragment && !w.options.ForceHighPrecision {
			precision = "mediump"
		}
		w.writeLine("precision %s float;", precision)
		w.writeLine("precision highp int;")
		for _, ty := range w.precisions {
			w.writeLine("precision highp %s;", ty)
		}
	}
	w.writeLine("")
	if w.stage == ir.StageCompute {
		size := w.module.EntryPoints[w.entry].Workgroup
		w.writeLine("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;", max(size[0], 1), max(size[1], 1), max(size[2], 1))
		w.writeLine("")
	}
}

// requireExtension records an extension the first time it is needed.
func (w *Writer) requireExtension(name string) {
	if !slices.Contains(w.extensions, name) {
		w.extensions = append(w.extensions, name)
	}
}

// requirePrecision records an ES opaque type that has no default
// precision.
func (w *Writer) requirePrecision(ty string) {
	switch ty {
	case "sampler2D", "samplerCube":
		return
	}
	if w.version.ES && !w.precisionOf[ty] {
		w.precisionOf[ty] = true
		w.precisions = append(w.precisions, ty)
	}
}

// checkSupport rejects stages and types the version cannot express.
func (w *Writer) checkSupport() error {
	v := w.version
	if w.stage == ir.StageCompute && !v.SupportsCompute() {
		return ir.Errorf(ir.ErrUnsupportedFeature, "compute shaders need GLSL 430 or 310 es, have %s", v).WithEntryPoint(w.entry)
	}
	for i, t := range w.module.Types {
		h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
		s, ok := scalarOf(t.Inner)
		if !ok {
			continue
		}
		switch {
		case s.Width == 8 && s.Kind != ir.ScalarFloat:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL has no 64-bit integers").WithType(h)
		case s.Width == 2:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL has no 16-bit floats").WithType(h)
		case s.Width == 8 && v.ES:
			return ir.Errorf(ir.ErrUnsupportedFeature, "GLSL ES has no doubles").WithType(h)
		}
	}
	return nil
}

// registerNames names every module entity, the interface blocks and the
// combined samplers.
func (w *Writer) registerNames() error {
	w.namer = back.NewNamer(keywords)
	names, err := w.namer.Process(w.module, []int{w.entry})
	if err != nil {
		return err
	}
	w.names = names

	for i, t := range w.module.Types {
		if _, ok := t.Inner.(ir.StructType); ok {
			h := ir.TypeHandle(i) //nolint:gosec // G115: arena index
			w.typeNames[h] = names.Get(back.NameKey{Kind: back.NameType, Handle1: uint32(h)})
		}
	}
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		switch w.module.GlobalVariables[g].Space {
		case ir.SpaceUniform, ir.SpaceStorage, ir.SpacePushConstant:
			w.blockNames[g] = w.namer.Call(w.globalName(g) + "_block")
		}
	}

	w.functions = back.Reachable(w.module, w.info, w.entry)
	if w.options.SeparateSamplers {
		return nil
	}

	uses, err := back.TextureUses(w.module, w.info, w.entry)
	if err != nil {
		return err
	}
	slices.SortStableFunc(uses, func(a, b back.TextureUse) int {
		return compareBindings(w.bindingOf(a.Texture), w.bindingOf(b.Texture))
	})
	w.textures = uses
	for _, u := range uses {
		switch {
		case u.HasSampler:
			w.combined[u] = w.namer.Call(w.globalName(u.Texture) + "_" + w.globalName(u.Sampler))
		default:
			w.combined[u] = w.globalName(u.Texture)
		}
	}
	return nil
}

func (w *Writer) bindingOf(g ir.GlobalVariableHandle) ir.ResourceBinding {
	if b := w.module.GlobalVariables[g].Binding; b != nil {
		return *b
	}
	return ir.ResourceBinding{}
}

func compareBindings(a, b ir.ResourceBinding) int {
	if c := cmp.Compare(a.Group, b.Group); c != 0 {
		return c
	}
	return cmp.Compare(a.Binding, b.Binding)
}

// slotSpace is one of the binding namespaces of OpenGL.
type slotSpace uint8

const (
	spaceUniformBlock slotSpace = iota
	spaceStorageBlock
	spaceTextureUnit
	spaceImageUnit
)

// slotAllocator hands out the free slots of one namespace.
type slotAllocator struct {
	used map[uint32]bool
	next uint32
}

func (a *slotAllocator) claim(slot uint32) bool {
	if a.used[slot] {
		return false
	}
	a.used[slot] = true
	return true
}

func (a *slotAllocator) free() uint32 {
	for a.used[a.next] {
		a.next++
	}
	a.used[a.next] = true
	return a.next
}

// assignSlots gives every resource its binding slot. Mapped resources
// take their slot; the others take the lowest free slot of their
// namespace in (group, binding) order. With separate samplers the slot
// is the mapped one or the binding number, qualified by the group.
//
//nolint:gocognit // two passes over two kinds of resources
func (w *Writer) assignSlots() error {
	var resources []ir.GlobalVariableHandle
	for _, g := range back.EntryPointGlobals(w.module, w.info, w.entry) {
		global := &w.module.GlobalVariables[g]
		switch global.Space {
		case ir.SpaceUniform, ir.SpaceStorage, ir.SpacePushConstant:
		case ir.SpaceHandle:
			if !w.options.SeparateSamplers && !w.isStorageImage(g) {
				continue
			}
		default:
			continue
		}
		if global.Binding == nil {
			return ir.Errorf(ir.ErrUnsupportedFeature, "resource %q has no binding", global.Name).WithGlobal(g)
		}
		resources = append(resources, g)
	}
	slices.SortStableFunc(resources, func(a, b ir.GlobalVariableHandle) int {
		return compareBindings(w.bindingOf(a), w.bindingOf(b))
	})

	if w.options.SeparateSamplers {
		for _, g := range resources {
			b := w.bindingOf(g)
			slot, ok := w.options.BindingMap[b]
			if !ok {
				slot = b.Binding
			}
			w.slots[g] = slot
			w.bindings[w.globalName(g)] = slot
		}
		return nil
	}

	spaces := make(map[slotSpace]*slotAllocator)
	allocator := func(s slotSpace) *slotAllocator {
		if spaces[s] == nil {
			spaces[s] = &slotAllocator{used: make(map[uint32]bool)}
		}
		return spaces[s]
	}
	duplicate := func(name string, slot uint32) error {
		return ir.Errorf(ir.ErrDuplicateBinding, "%q is mapped to binding %d, which another resource of its kind already uses", name, slot)
	}

	for _, g := range resources {
		if slot, ok := w.options.BindingMap[w.bindingOf(g)]; ok {
			if !allocator(w.slotSpace(g)).claim(slot) {
				return duplicate(w.module.GlobalVariables[g].Name, slot)
			}
			w.slots[g] = slot
		}
	}
	mappedTexture := make(map[ir.GlobalVariableHandle]bool)
	for _, u := range w.textures {
		slot, ok := w.options.BindingMap[w.bindingOf(u.Texture)]
		if !ok || mappedTexture[u.Texture] {
			continue
		}
		mappedTexture[u.Texture] = true
		if !allocator(spaceTextureUnit).claim(slot) {
			return duplicate(w.combined[u], slot)
		}
		w.unitSlots[u] = slot
	}

	for _, g := range resources {
		if _, ok := w.slots[g]; !ok {
			w.slots[g] = allocator(w.slotSpace(g)).free()
		}
		w.bindings[w.globalName(g)] = w.slots[g]
	}
	for _, u := range w.textures {
		if _, ok := w.unitSlots[u]; !ok {
			w.unitSlots[u] = allocator(spaceTextureUnit).free()
		}
		w.bindings[w.combined[u]] = w.unitSlots[u]
		pair := TextureSamplerPair{Name: w.combined[u], Texture: w.globalName(u.Texture), Slot: w.unitSlots[u]}
		if u.HasSampler {
			pair.Sampler = w.globalName(u.Sampler)
		}
		w.pairs = append(w.pairs, pair)
	}
	return nil
}

func (w *Writer) slotSpace(g ir.GlobalVariableHandle) slotSpace {
	switch w.module.GlobalVariables[g].Space {
	case ir.SpaceStorage:
		return spaceStorageBlock
	case ir.SpaceHandle:
		if w.isStorageImage(g) {
			return spaceImageUnit
		}
		return spaceTextureUnit
	}
	return spaceUniformBlock
}

func (w *Writer) isStorageImage(g ir.GlobalVariableHandle) bool {
	img, ok := w.module.Types[w.module.GlobalVariables[g].Type].Inner.(ir.ImageType)
	return ok && img.Class == ir.ImageClassStorage
}

// layoutQualifier returns the layout(...) clause of a declaration with
// the given leading qualifiers and binding slot, followed by a space, or
// "" when nothing remains to qualify. GLSL ES 3.00 has no binding
// qualifier; desktop versions before 4.20 need an extension for it.
func (w *Writer) layoutQualifier(g ir.GlobalVariableHandle, slot uint32, qualifiers ...string) string {
	switch {
	case w.options.SeparateSamplers:
		qualifiers = append(qualifiers, fmt.Sprintf("set = %d", w.bindingOf(g).Group), fmt.Sprintf("binding = %d", slot))
	case w.version.ES && !w.version.atLeast(0, 310):
	default:
		if !w.version.atLeast(420, 310) {
			w.requireExtension("GL_ARB_shading_language_420pack")
		}
		qualifiers = append(qualifiers, fmt.Sprintf("binding = %d", slot))
	}
	if len(qualifiers) == 0 {
		return ""
	}
	return "layout(" + strings.Join(qualifiers, ", ") + ") "
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

// writeLine writes a line with indentation and newline.
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
