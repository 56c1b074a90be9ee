// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/ir"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	// Desktop OpenGL versions
	Version330 = Version{Major: 3, Minor: 30, ES: false} // OpenGL 3.3 Core
	Version400 = Version{Major: 4, Minor: 0, ES: false}  // OpenGL 4.0
	Version410 = Version{Major: 4, Minor: 10, ES: false} // OpenGL 4.1
	Version420 = Version{Major: 4, Minor: 20, ES: false} // OpenGL 4.2
	Version430 = Version{Major: 4, Minor: 30, ES: false} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50, ES: false} // OpenGL 4.5
	Version460 = Version{Major: 4, Minor: 60, ES: false} // OpenGL 4.6

	// OpenGL ES / WebGL versions
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
	VersionES320 = Version{Major: 3, Minor: 20, ES: true} // ES 3.2
)

var knownVersions = []Version{
	Version330, Version400, Version410, Version420, Version430, Version450, Version460,
	VersionES300, VersionES310, VersionES320,
}

// ParseVersion parses a version number such as "450" or "310". With es
// set, or a trailing " es", the number is a GLSL ES version.
func ParseVersion(number string, es bool) (Version, error) {
	number = strings.TrimSpace(number)
	if rest, ok := strings.CutSuffix(number, "es"); ok {
		number, es = strings.TrimSpace(rest), true
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return Version{}, fmt.Errorf("glsl: invalid version %q", number)
	}
	for _, v := range knownVersions {
		if v.number() == n && v.ES == es {
			return v, nil
		}
	}
	if es {
		return Version{}, fmt.Errorf("glsl: unsupported version %d es", n)
	}
	return Version{}, fmt.Errorf("glsl: unsupported version %d", n)
}

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// VersionNumber returns just the numeric version (e.g., "330", "300").
func (v Version) VersionNumber() string {
	return strconv.Itoa(v.number())
}

func (v Version) number() int {
	return int(v.Major)*100 + int(v.Minor)
}

// atLeast reports whether v is at least desktop version desktop or ES
// version es, whichever profile v belongs to. A zero requirement means
// the profile never has the feature.
func (v Version) atLeast(desktop, es int) bool {
	if v.ES {
		return es != 0 && v.number() >= es
	}
	return desktop != 0 && v.number() >= desktop
}

// SupportsCompute returns true if this version supports compute shaders.
func (v Version) SupportsCompute() bool {
	return v.atLeast(430, 310)
}

// SupportsStorageBuffers returns true if this version supports storage buffers.
func (v Version) SupportsStorageBuffers() bool {
	return v.atLeast(430, 310)
}

// SupportsStorageImages reports whether image load and store are core.
func (v Version) SupportsStorageImages() bool {
	return v.atLeast(420, 310)
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version. The zero value selects
	// Version330.
	LangVersion Version

	// BindingMap maps source resource bindings to GLSL binding slots.
	// Resources missing from the map take the lowest free slot of their
	// kind, in (group, binding) order.
	BindingMap map[ir.ResourceBinding]uint32

	// SeparateSamplers declares textures and samplers separately and
	// combines them at each use, as Vulkan GLSL allows. Bindings then
	// carry the descriptor set. Without it, each (texture, sampler) pair
	// an entry point uses becomes one combined sampler uniform.
	SeparateSamplers bool

	// ForceHighPrecision makes highp the default float precision of ES
	// fragment shaders, which otherwise use mediump.
	ForceHighPrecision bool

	// ZeroInitializeWorkgroupMemory emits code to zero-initialize shared
	// variables at the start of compute shaders.
	ZeroInitializeWorkgroupMemory bool

	// AdjustCoordinateSpace remaps vertex output depth from [0, 1] to the
	// [-1, 1] clip range of OpenGL.
	AdjustCoordinateSpace bool
}

// DefaultOptions returns options targeting desktop GLSL 4.50 that zero
// workgroup memory and adjust the clip space.
func DefaultOptions() Options {
	return Options{
		LangVersion:                   Version450,
		BindingMap:                    make(map[ir.ResourceBinding]uint32),
		ForceHighPrecision:            true,
		ZeroInitializeWorkgroupMemory: true,
		AdjustCoordinateSpace:         true,
	}
}

// TextureSamplerPair is one combined sampler of the output.
type TextureSamplerPair struct {
	// Name is the combined sampler uniform.
	Name string
	// Texture and Sampler name the source globals. Sampler is empty for
	// textures that are only fetched or queried.
	Texture string
	Sampler string
	// Slot is the texture unit.
	Slot uint32
}

// Output is the result of writing one entry point.
type Output struct {
	// Source is the generated GLSL.
	Source string

	// EntryPoint is always "main"; Stage says which shader it is.
	EntryPoint string
	Stage      ir.ShaderStage

	// Extensions lists the #extension directives in Source.
	Extensions []string

	// Bindings maps each declared resource to its binding slot.
	Bindings map[string]uint32

	// TextureSamplerPairs lists the combined samplers in declaration
	// order. It is empty with SeparateSamplers.
	TextureSamplerPairs []TextureSamplerPair
}

// Write translates the single entry point chosen by selection.
// info must come from validating module.
func Write(module *ir.Module, info *ir.ModuleInfo, selection back.EntryPointSelection, options Options) (Output, error) {
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version330
	}
	entry, err := selection.Single(module)
	if err != nil {
		return Output{}, fmt.Errorf("glsl: %w", err)
	}
	w := newWriter(module, info, entry, &options)
	if err := w.writeModule(); err != nil {
		return Output{}, fmt.Errorf("glsl: %w", err)
	}
	return Output{
		Source:              w.String(),
		EntryPoint:          "main",
		Stage:               module.EntryPoints[entry].Stage,
		Extensions:          w.extensions,
		Bindings:            w.bindings,
		TextureSamplerPairs: w.pairs,
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
