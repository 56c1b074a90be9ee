package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/hlsl"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
	"github.com/gogpu/shadercross/spirv"
)

const full = `
entry_point = "fs_main"
stage = "fragment"

[log]
level = "debug"
format = "json"

[spirv]
version = "1.4"
debug = true
[[spirv.binding]]
group = 1
binding = 0
set = 0
slot = 5

[msl]
version = "2.3"
[[msl.binding]]
group = 0
binding = 1
buffer = 0
[[msl.binding]]
entry_point = "vs_main"
group = 0
binding = 2
texture = 3

[hlsl]
shader_model = "6_0"
fake_missing_bindings = true
[[hlsl.binding]]
group = 0
binding = 1
register = 2
space = 1

[glsl]
version = "310"
es = true
[[glsl.binding]]
group = 0
binding = 1
slot = 4
`

func TestParseFull(t *testing.T) {
	f, err := Parse(full)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sel, err := f.Selection()
	if err != nil {
		t.Fatalf("Selection: %v", err)
	}
	if sel.Name != "fs_main" || sel.Stage != ir.StageFragment || sel.AnyStage {
		t.Errorf("Selection() = %+v", sel)
	}
	if f.Log.Level != "debug" || f.Log.Format != "json" {
		t.Errorf("Log = %+v", f.Log)
	}

	spv, err := f.SPIRVOptions()
	if err != nil {
		t.Fatalf("SPIRVOptions: %v", err)
	}
	if spv.Version != spirv.Version1_4 || !spv.Debug {
		t.Errorf("spirv options = %+v", spv)
	}
	if got := spv.BindingMap[ir.ResourceBinding{Group: 1, Binding: 0}]; got != (spirv.BindingTarget{DescriptorSet: 0, Binding: 5}) {
		t.Errorf("spirv binding = %+v", got)
	}

	m, err := f.MSLOptions()
	if err != nil {
		t.Fatalf("MSLOptions: %v", err)
	}
	if m.LangVersion != msl.Version2_3 {
		t.Errorf("msl version = %v", m.LangVersion)
	}
	fs := m.PerEntryPointMap["fs_main"].Resources[ir.ResourceBinding{Group: 0, Binding: 1}]
	if fs.Buffer == nil || *fs.Buffer != 0 || fs.Texture != nil {
		t.Errorf("fs_main binding = %+v", fs)
	}
	vs := m.PerEntryPointMap["vs_main"].Resources[ir.ResourceBinding{Group: 0, Binding: 2}]
	if vs.Texture == nil || *vs.Texture != 3 {
		t.Errorf("vs_main binding = %+v", vs)
	}

	h, err := f.HLSLOptions()
	if err != nil {
		t.Fatalf("HLSLOptions: %v", err)
	}
	if h.ShaderModel != hlsl.ShaderModel6_0 || !h.FakeMissingBindings {
		t.Errorf("hlsl options = %+v", h)
	}
	if got := h.BindingMap[ir.ResourceBinding{Group: 0, Binding: 1}]; got.Register != 2 || got.Space != 1 {
		t.Errorf("hlsl binding = %+v", got)
	}

	g, err := f.GLSLOptions()
	if err != nil {
		t.Fatalf("GLSLOptions: %v", err)
	}
	if g.LangVersion != glsl.VersionES310 {
		t.Errorf("glsl version = %v", g.LangVersion)
	}
	if g.BindingMap[ir.ResourceBinding{Group: 0, Binding: 1}] != 4 {
		t.Errorf("glsl bindings = %v", g.BindingMap)
	}
}

func TestEmptyFileUsesDefaults(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel, _ := f.Selection()
	if !sel.AnyStage || sel.Name != "" {
		t.Errorf("Selection() = %+v", sel)
	}
	spv, _ := f.SPIRVOptions()
	if spv.Version != spirv.DefaultOptions().Version || spv.BindingMap != nil {
		t.Errorf("spirv options = %+v", spv)
	}
	h, _ := f.HLSLOptions()
	if h.ShaderModel != hlsl.DefaultOptions().ShaderModel || h.FakeMissingBindings {
		t.Errorf("hlsl options = %+v", h)
	}
	g, _ := f.GLSLOptions()
	if g.LangVersion != glsl.Version450 {
		t.Errorf("glsl version = %v", g.LangVersion)
	}
}

func TestESWithoutVersion(t *testing.T) {
	f, err := Parse("[glsl]\nes = true\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g, err := f.GLSLOptions()
	if err != nil {
		t.Fatalf("GLSLOptions: %v", err)
	}
	if g.LangVersion != glsl.VersionES300 {
		t.Errorf("glsl version = %v", g.LangVersion)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		convert func(*File) error
		want    string
	}{
		{"syntax", "entry_point = ", nil, "failed to parse TOML"},
		{"unknown key", "colour = true\n", nil, "unknown keys: colour"},
		{"unknown stage", "stage = \"geometry\"\n", nil, "unknown shader stage"},
		{"spirv version", "[spirv]\nversion = \"2.0\"\n", func(f *File) error { _, err := f.SPIRVOptions(); return err }, "[spirv].version"},
		{"msl version", "[msl]\nversion = \"two\"\n", func(f *File) error { _, err := f.MSLOptions(); return err }, "[msl].version"},
		{"msl entry", "[[msl.binding]]\ngroup = 0\nbinding = 0\nbuffer = 1\n", func(f *File) error { _, err := f.MSLOptions(); return err }, "names no entry point"},
		{"shader model", "[hlsl]\nshader_model = \"4_0\"\n", func(f *File) error { _, err := f.HLSLOptions(); return err }, "[hlsl].shader_model"},
		{"glsl version", "[glsl]\nversion = \"450\"\nes = true\n", func(f *File) error { _, err := f.GLSLOptions(); return err }, "[glsl].version"},
		{"duplicate", "[[glsl.binding]]\ngroup = 0\nbinding = 1\nslot = 0\n[[glsl.binding]]\ngroup = 0\nbinding = 1\nslot = 2\n", func(f *File) error { _, err := f.GLSLOptions(); return err }, "lists (group 0, binding 1) twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.input)
			if err == nil && tt.convert != nil {
				err = tt.convert(f)
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "shaders", "lit")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := Find(nested); err != nil || ok {
		t.Fatalf("Find() before writing = %v, %v", ok, err)
	}

	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte("entry_point = \"cs_main\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find() = %q, %v, %v", found, ok, err)
	}
	if found != path {
		t.Errorf("Find() = %q, want %q", found, path)
	}

	f, err := Load(found)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.EntryPoint != "cs_main" || f.Path != path {
		t.Errorf("Load() = %+v", f)
	}

	if err := os.WriteFile(path, []byte("bogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("Load(bad) error = %v, want the path in it", err)
	}
}
