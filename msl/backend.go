package msl

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version1_2 = Version{Major: 1, Minor: 2}
	Version2_0 = Version{Major: 2, Minor: 0}
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version3_0 = Version{Major: 3, Minor: 0}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v is other or newer.
func (v Version) AtLeast(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	return v.Minor >= other.Minor
}

// ParseVersion reads a version written as "2.1" or "2_1".
func ParseVersion(s string) (Version, error) {
	major, minor, err := back.ParseMajorMinor(s)
	if err != nil {
		return Version{}, fmt.Errorf("msl: %w", err)
	}
	return Version{Major: major, Minor: minor}, nil
}

// BindTarget is where one resource is bound in the Metal argument table.
// Only the field matching the resource kind is read: Buffer for uniform,
// storage and push constant globals, Texture for images and Sampler for
// samplers.
type BindTarget struct {
	Buffer  *uint8
	Texture *uint8
	Sampler *uint8

	// Mutable marks a storage buffer the shader writes.
	Mutable bool
}

// EntryPointResources is the binding table of one entry point.
type EntryPointResources struct {
	Resources map[ir.ResourceBinding]BindTarget

	// PushConstantBuffer is the buffer slot of the push constant block.
	PushConstantBuffer *uint8

	// SizesBuffer is the buffer slot of the runtime array sizes, needed
	// when the entry point reads the length of a runtime-sized array.
	SizesBuffer *uint8
}

// Options configures MSL generation.
type Options struct {
	// LangVersion is the targeted Metal Shading Language version.
	LangVersion Version

	// PerEntryPointMap holds the binding table of each entry point by name.
	PerEntryPointMap map[string]EntryPointResources

	// ZeroInitializeWorkgroupMemory clears threadgroup variables at the
	// start of compute entry points.
	ZeroInitializeWorkgroupMemory bool

	// FakeMissingBindings writes a placeholder attribute for resources
	// that have no slot instead of failing.
	FakeMissingBindings bool
}

// DefaultOptions returns options targeting MSL 2.1 with an empty binding
// table.
func DefaultOptions() Options {
	return Options{
		LangVersion:                   Version2_1,
		PerEntryPointMap:              make(map[string]EntryPointResources),
		ZeroInitializeWorkgroupMemory: true,
	}
}

// Output is the result of writing one entry point.
type Output struct {
	// Source is the generated MSL.
	Source string

	// EntryPoint is the Metal function name of the entry point, which
	// differs from the IR name when that is reserved in MSL.
	EntryPoint string

	// RequiresSizesBuffer reports that the host must bind the runtime
	// array sizes at EntryPointResources.SizesBuffer.
	RequiresSizesBuffer bool
}

// Write translates the single entry point chosen by selection.
// info must come from validating module.
func Write(module *ir.Module, info *ir.ModuleInfo, selection back.EntryPointSelection, options Options) (Output, error) {
	entry, err := selection.Single(module)
	if err != nil {
		return Output{}, fmt.Errorf("msl: %w", err)
	}
	if options.LangVersion == (Version{}) {
		options.LangVersion = Version2_1
	}

	w := newWriter(module, info, entry, &options)
	if err := w.writeModule(); err != nil {
		return Output{}, fmt.Errorf("msl: %w", err)
	}
	return Output{
		Source:              w.String(),
		EntryPoint:          w.entryName,
		RequiresSizesBuffer: w.needsSizesBuffer,
	}, nil
}

// Compile validates module and writes the entry point chosen by selection.
func Compile(module *ir.Module, selection back.EntryPointSelection, options Options) (Output, error) {
	info, err := ir.Validate(module)
	if err != nil {
		return Output{}, err
	}
	return Write(module, info, selection, options)
}

// SequentialResources assigns Metal slots to the resources an entry point
// uses, in global handle order. Buffers, textures and samplers are
// numbered independently from zero. The push constant block and the sizes
// buffer follow the last resource buffer.
func SequentialResources(module *ir.Module, info *ir.ModuleInfo, entry int) (EntryPointResources, error) {
	res := EntryPointResources{Resources: make(map[ir.ResourceBinding]BindTarget)}
	var buffers, textures, samplers int
	next := func(counter *int) (*uint8, error) {
		slot, err := safecast.Conv[uint8](*counter)
		if err != nil {
			return nil, ir.Errorf(ir.ErrUnsupportedFeature, "entry point %q needs more than 256 slots of one kind", module.EntryPoints[entry].Name).WithEntryPoint(entry)
		}
		*counter++
		return &slot, nil
	}

	needsSizes := false
	readsLength := readsArrayLength(module, info, entry)
	var pushConstant bool
	for _, g := range back.EntryPointGlobals(module, info, entry) {
		global := &module.GlobalVariables[g]
		if global.Space == ir.SpacePushConstant {
			pushConstant = true
			continue
		}
		if global.Binding == nil {
			continue
		}
		var target BindTarget
		var err error
		switch resourceKind(module, global) {
		case resourceBuffer:
			target.Buffer, err = next(&buffers)
			target.Mutable = isMutableStorage(global)
			if readsLength && hasRuntimeArray(module, global.Type) {
				needsSizes = true
			}
		case resourceTexture:
			target.Texture, err = next(&textures)
		case resourceSampler:
			target.Sampler, err = next(&samplers)
		}
		if err != nil {
			return EntryPointResources{}, err
		}
		res.Resources[*global.Binding] = target
	}

	if pushConstant {
		slot, err := next(&buffers)
		if err != nil {
			return EntryPointResources{}, err
		}
		res.PushConstantBuffer = slot
	}
	if needsSizes {
		slot, err := next(&buffers)
		if err != nil {
			return EntryPointResources{}, err
		}
		res.SizesBuffer = slot
	}
	return res, nil
}

// readsArrayLength reports whether a function reachable from entry
// takes the length of a runtime-sized array.
func readsArrayLength(module *ir.Module, info *ir.ModuleInfo, entry int) bool {
	for _, h := range back.Reachable(module, info, entry) {
		for _, e := range module.Functions[h].Expressions {
			if _, ok := e.Kind.(ir.ExprArrayLength); ok {
				return true
			}
		}
	}
	return false
}

type resourceClass uint8

const (
	resourceBuffer resourceClass = iota
	resourceTexture
	resourceSampler
)

func resourceKind(module *ir.Module, global *ir.GlobalVariable) resourceClass {
	if global.Space != ir.SpaceHandle {
		return resourceBuffer
	}
	inner := module.Types[global.Type].Inner
	if ba, ok := inner.(ir.BindingArrayType); ok {
		inner = module.Types[ba.Base].Inner
	}
	if _, ok := inner.(ir.SamplerType); ok {
		return resourceSampler
	}
	return resourceTexture
}

func isMutableStorage(global *ir.GlobalVariable) bool {
	return global.Space == ir.SpaceStorage && (global.Access == 0 || global.Access&ir.StorageStore != 0)
}

// hasRuntimeArray reports whether ty is a runtime-sized array or a struct
// ending in one.
func hasRuntimeArray(module *ir.Module, ty ir.TypeHandle) bool {
	switch t := module.Types[ty].Inner.(type) {
	case ir.ArrayType:
		return t.IsRuntimeSized()
	case ir.StructType:
		if len(t.Members) == 0 {
			return false
		}
		return hasRuntimeArray(module, t.Members[len(t.Members)-1].Type)
	}
	return false
}
