// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
)

func compileSample(t *testing.T, name string, stage ir.ShaderStage, entry string, options Options) Output {
	t.Helper()
	sample, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("no sample %q", name)
	}
	out, err := Compile(sample.Build(), back.Only(stage, entry), options)
	if err != nil {
		t.Fatalf("Compile(%s/%s): %v", name, entry, err)
	}
	return out
}

func mustContain(t *testing.T, source string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(source, want) {
			t.Errorf("output lacks %q:\n%s", want, source)
		}
	}
}

func withVersion(v Version) Options {
	options := DefaultOptions()
	options.LangVersion = v
	return options
}

// =============================================================================
// Version Tests
// =============================================================================

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version330, "330 core"},
		{Version400, "400 core"},
		{Version410, "410 core"},
		{Version420, "420 core"},
		{Version430, "430 core"},
		{Version450, "450 core"},
		{Version460, "460 core"},
		{VersionES300, "300 es"},
		{VersionES310, "310 es"},
		{VersionES320, "320 es"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.version.String()
			if got != tt.want {
				t.Errorf("Version.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersion_VersionNumber(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version330, "330"},
		{Version450, "450"},
		{VersionES300, "300"},
		{VersionES320, "320"},
	}
	for _, tt := range tests {
		if got := tt.version.VersionNumber(); got != tt.want {
			t.Errorf("%v.VersionNumber() = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestVersion_Capabilities(t *testing.T) {
	tests := []struct {
		version              Version
		compute, ssbo, image bool
	}{
		{Version330, false, false, false},
		{Version420, false, false, true},
		{Version430, true, true, true},
		{Version460, true, true, true},
		{VersionES300, false, false, false},
		{VersionES310, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.SupportsCompute(); got != tt.compute {
				t.Errorf("SupportsCompute() = %v", got)
			}
			if got := tt.version.SupportsStorageBuffers(); got != tt.ssbo {
				t.Errorf("SupportsStorageBuffers() = %v", got)
			}
			if got := tt.version.SupportsStorageImages(); got != tt.image {
				t.Errorf("SupportsStorageImages() = %v", got)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		number  string
		es      bool
		want    Version
		wantErr bool
	}{
		{"450", false, Version450, false},
		{" 330 ", false, Version330, false},
		{"300", true, VersionES300, false},
		{"310 es", false, VersionES310, false},
		{"320es", false, VersionES320, false},
		{"300", false, Version{}, true},
		{"450", true, Version{}, true},
		{"four", false, Version{}, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.number, tt.es), func(t *testing.T) {
			got, err := ParseVersion(tt.number, tt.es)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.LangVersion != Version450 {
		t.Errorf("LangVersion = %v, want 450 core", opts.LangVersion)
	}
	if opts.BindingMap == nil {
		t.Error("BindingMap is nil")
	}
	if opts.SeparateSamplers {
		t.Error("SeparateSamplers is on")
	}
	if !opts.ForceHighPrecision || !opts.ZeroInitializeWorkgroupMemory || !opts.AdjustCoordinateSpace {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
}

// =============================================================================
// Sample Tests
// =============================================================================

func TestCompileSamples(t *testing.T) {
	for _, s := range samples.All() {
		module := s.Build()
		for _, ep := range module.EntryPoints {
			t.Run(s.Name+"/"+ep.Name, func(t *testing.T) {
				out := compileSample(t, s.Name, ep.Stage, ep.Name, DefaultOptions())
				if out.EntryPoint != "main" || out.Stage != ep.Stage {
					t.Errorf("EntryPoint, Stage = %q, %v", out.EntryPoint, out.Stage)
				}
				if !strings.HasPrefix(out.Source, "#version 450 core\n") {
					t.Errorf("missing version directive:\n%s", out.Source)
				}
				if strings.Count(out.Source, "void main() {") != 1 {
					t.Error("want exactly one main")
				}
				if strings.Count(out.Source, "{") != strings.Count(out.Source, "}") {
					t.Error("unbalanced braces")
				}
				if strings.Count(out.Source, "(") != strings.Count(out.Source, ")") {
					t.Error("unbalanced parentheses")
				}
			})
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	first := compileSample(t, "shadow", ir.StageFragment, "fs_main", DefaultOptions())
	second := compileSample(t, "shadow", ir.StageFragment, "fs_main", DefaultOptions())
	if first.Source != second.Source {
		t.Error("output differs between runs")
	}
}

func TestZeroVersionDefaultsTo330(t *testing.T) {
	out := compileSample(t, "quad", ir.StageVertex, "vert_main", Options{})
	if !strings.HasPrefix(out.Source, "#version 330 core\n") {
		t.Errorf("want version 330:\n%s", out.Source)
	}
}

func TestEntryPointInterface(t *testing.T) {
	tests := []struct {
		sample string
		stage  ir.ShaderStage
		entry  string
		want   []string
	}{
		{"quad", ir.StageVertex, "vert_main", []string{
			"layout(location = 0) in vec2 _p2vs_location0;",
			"layout(location = 1) in vec2 _p2vs_location1;",
			"layout(location = 0) out vec2 _vs2fs_location0;",
			"vec2 pos = _p2vs_location0;",
			"VertexOutput tmp = VertexOutput(",
			"_vs2fs_location0 = tmp.uv;",
			"gl_Position = tmp.position;",
			"gl_Position.z = gl_Position.z * 2.0 - gl_Position.w;",
		}},
		{"quad", ir.StageFragment, "frag_main", []string{
			"layout(location = 0) in vec2 _vs2fs_location0;",
			"layout(location = 0) out vec4 _fs2p_location0;",
			"layout(binding = 0) uniform sampler2D u_texture_u_sampler;",
			"texture(u_texture_u_sampler, ",
			"discard;",
			"fwidth(",
			"_fs2p_location0 = ",
		}},
		{"shadow", ir.StageFragment, "fs_main", []string{
			"VertexOutput _in = VertexOutput(gl_FragCoord, _vs2fs_location0, _vs2fs_location1);",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			out := compileSample(t, tt.sample, tt.stage, tt.entry, DefaultOptions())
			mustContain(t, out.Source, tt.want...)
		})
	}
}

func TestAdjustCoordinateSpaceOff(t *testing.T) {
	options := DefaultOptions()
	options.AdjustCoordinateSpace = false
	out := compileSample(t, "quad", ir.StageVertex, "vert_main", options)
	if strings.Contains(out.Source, "gl_Position.z =") {
		t.Errorf("adjusted the clip space with the option off:\n%s", out.Source)
	}
}

func TestInterStageLocations(t *testing.T) {
	tests := []struct {
		version   Version
		qualified bool
		extension string
	}{
		{Version330, true, "GL_ARB_separate_shader_objects"},
		{Version410, true, ""},
		{VersionES300, false, ""},
		{VersionES310, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			out := compileSample(t, "quad", ir.StageVertex, "vert_main", withVersion(tt.version))
			qualified := strings.Contains(out.Source, "layout(location = 0) out vec2 _vs2fs_location0;")
			if qualified != tt.qualified {
				t.Errorf("location on varying = %v, want %v:\n%s", qualified, tt.qualified, out.Source)
			}
			mustContain(t, out.Source, "layout(location = 0) in vec2 _p2vs_location0;", "out vec2 _vs2fs_location0;")
			if tt.extension != "" && !slices.Contains(out.Extensions, tt.extension) {
				t.Errorf("Extensions = %v, want %s", out.Extensions, tt.extension)
			}
		})
	}
}

func TestESHeader(t *testing.T) {
	out := compileSample(t, "shadow", ir.StageFragment, "fs_main", withVersion(VersionES310))
	mustContain(t, out.Source,
		"#version 310 es\n",
		"precision highp float;",
		"precision highp int;",
		"precision highp sampler2DArrayShadow;",
	)

	options := withVersion(VersionES300)
	options.ForceHighPrecision = false
	out = compileSample(t, "quad", ir.StageFragment, "frag_main", options)
	mustContain(t, out.Source, "precision mediump float;", "uniform sampler2D u_texture_u_sampler;")
	if strings.Contains(out.Source, "binding") {
		t.Errorf("binding qualifier on GLSL ES 3.00:\n%s", out.Source)
	}
}

func TestShadowFragment(t *testing.T) {
	out := compileSample(t, "shadow", ir.StageFragment, "fs_main", DefaultOptions())
	mustContain(t, out.Source,
		"float fetch_shadow(uint light_id, vec4 homogeneous_coords) {",
		"layout(std140, binding = 0) uniform u_globals_block { Globals u_globals; };",
		"layout(std430, binding = 0) readonly buffer s_lights_block { Light s_lights[]; };",
		"layout(binding = 0) uniform sampler2DArrayShadow t_shadow_sampler_shadow;",
		"textureGrad(t_shadow_sampler_shadow, vec4(",
		"vec2(0.0), vec2(0.0))",
		"struct Light {",
		"bool loop_init = true;",
	)
	if strings.Index(out.Source, "float fetch_shadow(") > strings.Index(out.Source, "void main() {") {
		t.Error("function written after main")
	}
	if len(out.TextureSamplerPairs) != 1 {
		t.Fatalf("TextureSamplerPairs = %+v", out.TextureSamplerPairs)
	}
	pair := out.TextureSamplerPairs[0]
	if pair.Name != "t_shadow_sampler_shadow" || pair.Texture != "t_shadow" || pair.Sampler != "sampler_shadow" || pair.Slot != 0 {
		t.Errorf("pair = %+v", pair)
	}
}

func TestComputeSample(t *testing.T) {
	out := compileSample(t, "compute", ir.StageCompute, "cs_main", DefaultOptions())
	mustContain(t, out.Source,
		fmt.Sprintf("layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;", samples.WorkgroupSize),
		"layout(std430, binding = 0) buffer data_block {",
		"uint values[];",
		"} data;",
		"layout(rgba8, binding = 0) writeonly uniform image2D out_image;",
		"shared uint tile[64];",
		"uint(data.values.length())",
		"imageStore(out_image, ivec2(",
		"memoryBarrierShared();",
		"barrier();",
		"uint index = gl_LocalInvocationIndex;",
		"uvec3 gid = gl_GlobalInvocationID;",
		"case 0u:",
		"default:",
	)

	// case 1 falls through into case 2 without a break.
	caseOne := strings.Index(out.Source, "case 1u:")
	caseTwo := strings.Index(out.Source, "case 2u:")
	if caseOne < 0 || caseTwo < caseOne {
		t.Fatalf("cases out of order:\n%s", out.Source)
	}
	if strings.Contains(out.Source[caseOne:caseTwo], "break;") {
		t.Errorf("fall-through case breaks:\n%s", out.Source[caseOne:caseTwo])
	}
}

func TestComputeVersionGates(t *testing.T) {
	for _, v := range []Version{Version330, Version420, VersionES300} {
		t.Run(v.String(), func(t *testing.T) {
			_, err := Compile(samples.Compute(), back.All(), withVersion(v))
			if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
				t.Errorf("compute on %s: %v", v, err)
			}
		})
	}
	out := compileSample(t, "compute", ir.StageCompute, "cs_main", withVersion(VersionES310))
	mustContain(t, out.Source, "#version 310 es", "writeonly uniform highp image2D out_image;")
}

func TestWorkgroupZeroInit(t *testing.T) {
	out := compileSample(t, "compute", ir.StageCompute, "cs_main", DefaultOptions())
	mustContain(t, out.Source,
		"if (gl_LocalInvocationID == uvec3(0u)) {",
		"tile = uint[64](0u, 0u,",
	)

	options := DefaultOptions()
	options.ZeroInitializeWorkgroupMemory = false
	plain := compileSample(t, "compute", ir.StageCompute, "cs_main", options)
	if strings.Contains(plain.Source, "gl_LocalInvocationID == uvec3(0u)") {
		t.Error("zero-initialized workgroup memory with the option off")
	}
}

func TestLoopRotation(t *testing.T) {
	out := compileSample(t, "loop_counter", ir.StageCompute, "count_loop", DefaultOptions())
	mustContain(t, out.Source,
		"bool loop_init = true;",
		"if (!loop_init) {",
		"loop_init = false;",
		"layout(std140, binding = 0) uniform params_block { Params params; };",
		"layout(std430, binding = 0) buffer counters_block { Counters counters; };",
	)
	if !strings.Contains(out.Source, "loop_init_1") {
		t.Errorf("second loop reused the first loop's flag:\n%s", out.Source)
	}
	if out.Bindings["params"] != 0 || out.Bindings["counters"] != 0 {
		t.Errorf("Bindings = %v", out.Bindings)
	}
}

func TestBindingMap(t *testing.T) {
	options := DefaultOptions()
	options.BindingMap[ir.ResourceBinding{Group: 1, Binding: 0}] = 0
	out := compileSample(t, "shadow", ir.StageVertex, "vs_main", options)
	mustContain(t, out.Source,
		"layout(std140, binding = 0) uniform u_entity_block",
		"layout(std140, binding = 1) uniform u_globals_block",
	)
	if out.Bindings["u_entity"] != 0 || out.Bindings["u_globals"] != 1 {
		t.Errorf("Bindings = %v", out.Bindings)
	}
}

func TestBindingMapCollision(t *testing.T) {
	options := DefaultOptions()
	options.BindingMap[ir.ResourceBinding{Group: 0, Binding: 0}] = 2
	options.BindingMap[ir.ResourceBinding{Group: 1, Binding: 0}] = 2
	_, err := Compile(samples.Shadow(), back.Only(ir.StageVertex, "vs_main"), options)
	if !ir.IsKind(err, ir.ErrDuplicateBinding) {
		t.Errorf("two uniform blocks on one slot: %v", err)
	}
}

func TestSeparateSamplers(t *testing.T) {
	options := DefaultOptions()
	options.SeparateSamplers = true
	out := compileSample(t, "shadow", ir.StageFragment, "fs_main", options)
	mustContain(t, out.Source,
		"layout(set = 0, binding = 2) uniform texture2DArray t_shadow;",
		"layout(set = 0, binding = 3) uniform samplerShadow sampler_shadow;",
		"layout(std140, set = 1, binding = 0) uniform u_entity_block",
		"sampler2DArrayShadow(t_shadow, sampler_shadow)",
	)
	if len(out.TextureSamplerPairs) != 0 {
		t.Errorf("TextureSamplerPairs = %+v", out.TextureSamplerPairs)
	}
}

func TestCubeArrayShadowOnES(t *testing.T) {
	m := &ir.Module{}
	vec3 := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarF32}})
	vec4 := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarF32}})
	cube := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.DimCube, Arrayed: true, Class: ir.ImageClassDepth}})
	cmp := m.AddType(ir.Type{Inner: ir.SamplerType{Comparison: true}})
	tex := m.AddGlobalVariable(ir.GlobalVariable{Name: "t", Space: ir.SpaceHandle, Type: cube, Binding: &ir.ResourceBinding{Binding: 0}})
	smp := m.AddGlobalVariable(ir.GlobalVariable{Name: "s", Space: ir.SpaceHandle, Type: cmp, Binding: &ir.ResourceBinding{Binding: 1}})

	b := ir.NewFunctionBuilder("main")
	b.Result(vec4, ir.LocationBinding{Location: 0})
	dir := b.Arg("dir", vec3, ir.LocationBinding{Location: 0})
	texExpr := b.Expr(ir.ExprGlobalVariable{Variable: tex})
	smpExpr := b.Expr(ir.ExprGlobalVariable{Variable: smp})
	layer := b.Expr(ir.Literal{Value: ir.LiteralI32(0)})
	ref := b.Expr(ir.Literal{Value: ir.LiteralF32(0.5)})
	lit := b.Expr(ir.ExprImageSample{Image: texExpr, Sampler: smpExpr, Coordinate: dir, ArrayIndex: &layer, Level: ir.SampleLevelAuto{}, DepthRef: &ref})
	out := b.Expr(ir.ExprSplat{Size: ir.Vec4, Value: lit})
	b.Return(&out)
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageFragment, Function: fn})

	_, err := Compile(m, back.All(), withVersion(VersionES320))
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("cube array shadow on ES: %v", err)
	}

	desktop, err := Compile(m, back.All(), withVersion(Version400))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustContain(t, desktop.Source, "uniform samplerCubeArrayShadow t_s;", "texture(t_s, vec4(dir, float(0)), 0.5)")
}

func TestStorageImageVersionGate(t *testing.T) {
	m := &ir.Module{}
	vec4 := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec4, Scalar: ir.ScalarF32}})
	img := m.AddType(ir.Type{Inner: ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassStorage, Format: ir.FormatRgba8Unorm, Access: ir.StorageLoad}})
	g := m.AddGlobalVariable(ir.GlobalVariable{Name: "img", Space: ir.SpaceHandle, Type: img, Binding: &ir.ResourceBinding{Binding: 0}})

	b := ir.NewFunctionBuilder("main")
	b.Result(vec4, ir.LocationBinding{Location: 0})
	coord := b.Expr(ir.ExprSplat{Size: ir.Vec2, Value: b.Expr(ir.Literal{Value: ir.LiteralU32(1)})})
	image := b.Expr(ir.ExprGlobalVariable{Variable: g})
	texel := b.Expr(ir.ExprImageLoad{Image: image, Coordinate: coord})
	b.Return(&texel)
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageFragment, Function: fn})

	if _, err := Compile(m, back.All(), withVersion(Version410)); !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("storage image on 410: %v", err)
	}
	out, err := Compile(m, back.All(), withVersion(Version420))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mustContain(t, out.Source, "layout(rgba8, binding = 0) readonly uniform image2D img;", "imageLoad(img, ivec2(")
}

func TestSelection(t *testing.T) {
	module := samples.Shadow()
	_, err := Compile(module, back.All(), DefaultOptions())
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("selecting two entry points: %v", err)
	}
	_, err = Compile(module, back.Only(ir.StageCompute, "fs_main"), DefaultOptions())
	if !ir.IsKind(err, ir.ErrUnresolvedHandle) {
		t.Errorf("selecting a missing entry point: %v", err)
	}
}

func TestUnsupportedScalars(t *testing.T) {
	tests := []struct {
		name    string
		scalar  ir.ScalarType
		version Version
		ok      bool
	}{
		{"i64", ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, Version460, false},
		{"f16", ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, Version460, false},
		{"f64 desktop", ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, Version450, true},
		{"f64 es", ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, VersionES320, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ir.Module{}
			ty := m.AddType(ir.Type{Inner: tt.scalar})
			b := ir.NewFunctionBuilder("main")
			b.Local("wide", ty, nil)
			fn := m.AddFunction(b.Finish())
			m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})

			_, err := Compile(m, back.All(), withVersion(tt.version))
			if tt.ok && err != nil {
				t.Errorf("Compile: %v", err)
			}
			if !tt.ok && !ir.IsKind(err, ir.ErrUnsupportedFeature) {
				t.Errorf("Compile error = %v, want UnsupportedFeature", err)
			}
		})
	}
}

func TestReservedNames(t *testing.T) {
	m := &ir.Module{}
	u32 := m.AddType(ir.Type{Inner: ir.ScalarU32})
	b := ir.NewFunctionBuilder("main")
	b.Local("texture", u32, nil)
	b.Local("gl_Position", u32, nil)
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})

	out, err := Compile(m, back.All(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, bad := range []string{"uint texture ", "uint gl_Position "} {
		if strings.Contains(out.Source, bad) {
			t.Errorf("reserved word declared as %q:\n%s", bad, out.Source)
		}
	}
}
