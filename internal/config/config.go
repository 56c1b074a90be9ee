// Package config reads shadercross.toml, the project file that selects
// the entry point and configures every backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/hlsl"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
	"github.com/gogpu/shadercross/spirv"
)

// FileName is the name Find looks for.
const FileName = "shadercross.toml"

// File is the decoded project file.
type File struct {
	EntryPoint string `toml:"entry_point"`
	Stage      string `toml:"stage"`

	Log   LogConfig   `toml:"log"`
	Cache CacheConfig `toml:"cache"`
	SPIRV SPIRVConfig `toml:"spirv"`
	MSL   MSLConfig   `toml:"msl"`
	HLSL  HLSLConfig  `toml:"hlsl"`
	GLSL  GLSLConfig  `toml:"glsl"`

	// Path is where the file was read from, empty for Parse.
	Path string `toml:"-" msgpack:"-"`
}

// LogConfig selects the log level and format of the command line tool.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CacheConfig enables the output cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Resource is the IR address of a resource.
type Resource struct {
	Group   uint32 `toml:"group"`
	Binding uint32 `toml:"binding"`
}

func (b Resource) resource() ir.ResourceBinding {
	return ir.ResourceBinding{Group: b.Group, Binding: b.Binding}
}

// SPIRVConfig is the [spirv] table.
type SPIRVConfig struct {
	Version string         `toml:"version"`
	Debug   bool           `toml:"debug"`
	Binding []SPIRVBinding `toml:"binding"`
}

// SPIRVBinding moves a resource to another descriptor slot.
type SPIRVBinding struct {
	Resource
	Set  uint32 `toml:"set"`
	Slot uint32 `toml:"slot"`
}

// MSLConfig is the [msl] table.
type MSLConfig struct {
	Version             string       `toml:"version"`
	FakeMissingBindings bool         `toml:"fake_missing_bindings"`
	Binding             []MSLBinding `toml:"binding"`
}

// MSLBinding places a resource in the argument table of an entry point.
// Without EntryPoint it applies to the file's entry point.
type MSLBinding struct {
	Resource
	EntryPoint string `toml:"entry_point"`
	Buffer     *uint8 `toml:"buffer"`
	Texture    *uint8 `toml:"texture"`
	Sampler    *uint8 `toml:"sampler"`
	Mutable    bool   `toml:"mutable"`
}

// HLSLConfig is the [hlsl] table.
type HLSLConfig struct {
	ShaderModel         string        `toml:"shader_model"`
	FakeMissingBindings bool          `toml:"fake_missing_bindings"`
	Binding             []HLSLBinding `toml:"binding"`
}

// HLSLBinding assigns a register to a resource.
type HLSLBinding struct {
	Resource
	Register uint32 `toml:"register"`
	Space    uint8  `toml:"space"`
}

// GLSLConfig is the [glsl] table.
type GLSLConfig struct {
	Version          string        `toml:"version"`
	ES               bool          `toml:"es"`
	SeparateSamplers bool          `toml:"separate_samplers"`
	Binding          []GLSLBinding `toml:"binding"`
}

// GLSLBinding assigns a slot to a resource.
type GLSLBinding struct {
	Resource
	Slot uint32 `toml:"slot"`
}

// Find looks for FileName in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads and checks the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes a project file. Unknown keys are errors.
func Parse(data string) (*File, error) {
	var f File
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if _, err := f.Selection(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Selection returns the entry points the file selects: all of them when
// it names neither an entry point nor a stage.
func (f *File) Selection() (back.EntryPointSelection, error) {
	sel := back.All()
	sel.Name = f.EntryPoint
	if f.Stage != "" {
		stage, err := ir.ParseShaderStage(f.Stage)
		if err != nil {
			return back.EntryPointSelection{}, err
		}
		sel.Stage, sel.AnyStage = stage, false
	}
	return sel, nil
}

// SPIRVOptions converts the [spirv] table.
func (f *File) SPIRVOptions() (spirv.Options, error) {
	options := spirv.DefaultOptions()
	if f.SPIRV.Version != "" {
		v, err := spirv.ParseVersion(f.SPIRV.Version)
		if err != nil {
			return spirv.Options{}, fmt.Errorf("[spirv].version: %w", err)
		}
		options.Version = v
	}
	options.Debug = f.SPIRV.Debug
	if len(f.SPIRV.Binding) > 0 {
		options.BindingMap = make(map[ir.ResourceBinding]spirv.BindingTarget, len(f.SPIRV.Binding))
		for _, b := range f.SPIRV.Binding {
			if _, dup := options.BindingMap[b.resource()]; dup {
				return spirv.Options{}, duplicate("spirv", b.Resource)
			}
			options.BindingMap[b.resource()] = spirv.BindingTarget{DescriptorSet: b.Set, Binding: b.Slot}
		}
	}
	return options, nil
}

// MSLOptions converts the [msl] table.
func (f *File) MSLOptions() (msl.Options, error) {
	options := msl.DefaultOptions()
	if f.MSL.Version != "" {
		v, err := msl.ParseVersion(f.MSL.Version)
		if err != nil {
			return msl.Options{}, fmt.Errorf("[msl].version: %w", err)
		}
		options.LangVersion = v
	}
	options.FakeMissingBindings = f.MSL.FakeMissingBindings
	for _, b := range f.MSL.Binding {
		entry := b.EntryPoint
		if entry == "" {
			entry = f.EntryPoint
		}
		if entry == "" {
			return msl.Options{}, fmt.Errorf("[[msl.binding]] %s names no entry point and the file selects none", b.resource())
		}
		resources, ok := options.PerEntryPointMap[entry]
		if !ok {
			resources = msl.EntryPointResources{Resources: make(map[ir.ResourceBinding]msl.BindTarget)}
		}
		if _, dup := resources.Resources[b.resource()]; dup {
			return msl.Options{}, duplicate("msl", b.Resource)
		}
		resources.Resources[b.resource()] = msl.BindTarget{Buffer: b.Buffer, Texture: b.Texture, Sampler: b.Sampler, Mutable: b.Mutable}
		options.PerEntryPointMap[entry] = resources
	}
	return options, nil
}

// HLSLOptions converts the [hlsl] table.
func (f *File) HLSLOptions() (hlsl.Options, error) {
	options := hlsl.DefaultOptions()
	if f.HLSL.ShaderModel != "" {
		sm, err := hlsl.ParseShaderModel(f.HLSL.ShaderModel)
		if err != nil {
			return hlsl.Options{}, fmt.Errorf("[hlsl].shader_model: %w", err)
		}
		options.ShaderModel = sm
	}
	options.FakeMissingBindings = f.HLSL.FakeMissingBindings
	for _, b := range f.HLSL.Binding {
		if _, dup := options.BindingMap[b.resource()]; dup {
			return hlsl.Options{}, duplicate("hlsl", b.Resource)
		}
		options.BindingMap[b.resource()] = hlsl.BindTarget{Space: b.Space, Register: b.Register}
	}
	return options, nil
}

// GLSLOptions converts the [glsl] table.
func (f *File) GLSLOptions() (glsl.Options, error) {
	options := glsl.DefaultOptions()
	if f.GLSL.Version != "" || f.GLSL.ES {
		number := f.GLSL.Version
		if number == "" {
			number = glsl.VersionES300.VersionNumber()
		}
		v, err := glsl.ParseVersion(number, f.GLSL.ES)
		if err != nil {
			return glsl.Options{}, fmt.Errorf("[glsl].version: %w", err)
		}
		options.LangVersion = v
	}
	options.SeparateSamplers = f.GLSL.SeparateSamplers
	for _, b := range f.GLSL.Binding {
		if _, dup := options.BindingMap[b.resource()]; dup {
			return glsl.Options{}, duplicate("glsl", b.Resource)
		}
		options.BindingMap[b.resource()] = b.Slot
	}
	return options, nil
}

func duplicate(table string, b Resource) error {
	return fmt.Errorf("[[%s.binding]] lists %s twice", table, b.resource())
}
