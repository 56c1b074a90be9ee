// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"testing"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
)

// withDirectBindings lists every resource of module missing from the
// binding map of options at its direct register.
func withDirectBindings(t *testing.T, module *ir.Module, options Options) Options {
	t.Helper()
	direct, err := DirectBindings(module, options.BindingMap)
	if err != nil {
		t.Fatalf("DirectBindings: %v", err)
	}
	bindings := make(map[ir.ResourceBinding]BindTarget, len(options.BindingMap)+len(direct))
	maps.Copy(bindings, options.BindingMap)
	maps.Copy(bindings, direct)
	options.BindingMap = bindings
	return options
}

func compileSample(t *testing.T, name string, stage ir.ShaderStage, entry string, options Options) Output {
	t.Helper()
	sample, ok := samples.Lookup(name)
	if !ok {
		t.Fatalf("no sample %q", name)
	}
	module := sample.Build()
	out, err := Compile(module, back.Only(stage, entry), withDirectBindings(t, module, options))
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

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.ShaderModel != ShaderModel5_1 {
		t.Errorf("ShaderModel = %s, want 5.1", opts.ShaderModel)
	}
	if opts.BindingMap == nil {
		t.Error("BindingMap is nil")
	}
	if opts.FakeMissingBindings {
		t.Error("FakeMissingBindings is on")
	}
	if !opts.ZeroInitializeWorkgroupMemory {
		t.Error("ZeroInitializeWorkgroupMemory is off")
	}
	if opts.PushConstantsTarget != nil {
		t.Error("PushConstantsTarget is set")
	}
}

func TestCompileSamples(t *testing.T) {
	for _, s := range samples.All() {
		module := s.Build()
		for _, ep := range module.EntryPoints {
			t.Run(s.Name+"/"+ep.Name, func(t *testing.T) {
				out := compileSample(t, s.Name, ep.Stage, ep.Name, DefaultOptions())
				if out.EntryPoint != ep.Name {
					t.Errorf("EntryPoint = %q, want %q", out.EntryPoint, ep.Name)
				}
				if want := ShaderModel5_1.Profile(ep.Stage); out.Profile != want {
					t.Errorf("Profile = %q, want %q", out.Profile, want)
				}
				mustContain(t, out.Source, "// profile: "+out.Profile)
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

func TestEntryPointInterface(t *testing.T) {
	tests := []struct {
		sample string
		stage  ir.ShaderStage
		entry  string
		want   []string
	}{
		{"quad", ir.StageVertex, "vert_main", []string{
			"struct vert_mainInput {",
			"float2 pos : LOC0;",
			"float2 uv : LOC1;",
			"struct vert_mainOutput {",
			": SV_Position;",
			"vert_mainOutput vert_main(vert_mainInput input) {",
		}},
		{"quad", ir.StageFragment, "frag_main", []string{
			"float4 color : SV_Target0;",
			"Texture2D<float4> u_texture : register(t0, space0);",
			"SamplerState u_sampler : register(s1, space0);",
			".Sample(",
			"const frag_mainOutput output = { ",
		}},
		{"loop_counter", ir.StageCompute, "count_loop", []string{
			"[numthreads(1, 1, 1)]",
			"void count_loop(",
			"RWByteAddressBuffer counters : register(u0, space0);",
			"cbuffer params_block : register(b1, space0) {",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			out := compileSample(t, tt.sample, tt.stage, tt.entry, DefaultOptions())
			mustContain(t, out.Source, tt.want...)
		})
	}
}

func TestLoopRotation(t *testing.T) {
	out := compileSample(t, "loop_counter", ir.StageCompute, "count_loop", DefaultOptions())
	mustContain(t, out.Source,
		"bool loop_init = true;",
		"[loop]",
		"if (!loop_init) {",
		"loop_init = false;",
		"uint _mod(uint lhs, uint rhs) {",
		"return lhs % (rhs + (uint)(rhs == (uint)0));",
	)
	if !strings.Contains(out.Source, "loop_init_1") {
		t.Errorf("second loop reused the first loop's flag:\n%s", out.Source)
	}
	if strings.Contains(out.Source, "_div(") {
		t.Error("division helper written without an integer division")
	}
	if len(out.HelperFunctions) != 1 || out.HelperFunctions[0] != "_mod(uint)" {
		t.Errorf("HelperFunctions = %v, want [_mod(uint)]", out.HelperFunctions)
	}
}

func TestComputeSample(t *testing.T) {
	out := compileSample(t, "compute", ir.StageCompute, "cs_main", DefaultOptions())
	mustContain(t, out.Source,
		fmt.Sprintf("[numthreads(%d, 1, 1)]", samples.WorkgroupSize),
		"RWByteAddressBuffer data : register(u0, space0);",
		"RWTexture2D<unorm float4> out_image : register(u1, space0);",
		"groupshared type_",
		"uint _array_length_data() {",
		"data.GetDimensions(size);",
		"return (size - 4u) / 4u;",
		"GroupMemoryBarrierWithGroupSync();",
		"case 0u:",
		"default:",
	)

	// case 1 falls through, so it repeats the body of case 2.
	caseOne := strings.Index(out.Source, "case 1u:")
	caseTwo := strings.Index(out.Source, "case 2u:")
	if caseOne < 0 || caseTwo < caseOne {
		t.Fatalf("cases out of order:\n%s", out.Source)
	}
	if !strings.Contains(out.Source[caseOne:caseTwo], " ^ ") {
		t.Errorf("fall-through case lacks the body it falls into:\n%s", out.Source[caseOne:caseTwo])
	}
}

func TestWorkgroupZeroInit(t *testing.T) {
	out := compileSample(t, "compute", ir.StageCompute, "cs_main", DefaultOptions())
	mustContain(t, out.Source,
		"uint3 _local_id : SV_GroupThreadID",
		"if (all(_local_id == uint3(0u, 0u, 0u))) {",
	)

	options := DefaultOptions()
	options.ZeroInitializeWorkgroupMemory = false
	plain := compileSample(t, "compute", ir.StageCompute, "cs_main", options)
	if strings.Contains(plain.Source, "_local_id") {
		t.Error("zero-initialized workgroup memory with the option off")
	}
}

func TestShadowFragment(t *testing.T) {
	out := compileSample(t, "shadow", ir.StageFragment, "fs_main", DefaultOptions())
	mustContain(t, out.Source,
		"float fetch_shadow(",
		"Texture2DArray<float> t_shadow : register(t2, space0);",
		"SamplerComparisonState sampler_shadow : register(s3, space0);",
		".SampleCmpLevelZero(sampler_shadow, float3(",
		"ByteAddressBuffer s_lights : register(t1, space0);",
		"asfloat(s_lights.Load4(",
		"_construct_Light(",
		"cbuffer u_entity_block : register(b0, space1) {",
		"mul(",
	)
	if strings.Index(out.Source, "float fetch_shadow(") > strings.Index(out.Source, "fs_mainOutput fs_main(") {
		t.Error("helper function written after the entry point")
	}
	if got := out.RegisterBindings["t_shadow"]; got != "register(t2, space0)" {
		t.Errorf("RegisterBindings[t_shadow] = %q", got)
	}
}

func TestHelpersPrecedeFunctions(t *testing.T) {
	out := compileSample(t, "shadow", ir.StageVertex, "vs_main", DefaultOptions())
	helper := strings.Index(out.Source, "VertexOutput _construct_VertexOutput(")
	entry := strings.Index(out.Source, "vs_mainOutput vs_main(")
	if helper < 0 || entry < helper {
		t.Errorf("construct helper missing or after its caller:\n%s", out.Source)
	}
	if strings.Index(out.Source, "struct VertexOutput {") > helper {
		t.Error("helper written before the struct it builds")
	}
}

func TestBindingMap(t *testing.T) {
	options := DefaultOptions()
	options.BindingMap[ir.ResourceBinding{Group: 0, Binding: 0}] = BindTarget{Space: 1, Register: 3}
	out := compileSample(t, "quad", ir.StageFragment, "frag_main", options)
	mustContain(t, out.Source,
		"u_texture : register(t3, space1);",
		"u_sampler : register(s1, space0);",
	)
	if got := out.RegisterBindings["u_texture"]; got != "register(t3, space1)" {
		t.Errorf("RegisterBindings[u_texture] = %q", got)
	}
}

func TestShaderModel50HasNoSpaces(t *testing.T) {
	options := DefaultOptions()
	options.ShaderModel = ShaderModel5_0
	out := compileSample(t, "quad", ir.StageFragment, "frag_main", options)
	mustContain(t, out.Source, "u_texture : register(t0);", "// profile: ps_5_0")
	if strings.Contains(out.Source, "space") {
		t.Errorf("register space on Shader Model 5.0:\n%s", out.Source)
	}
}

func TestMissingBinding(t *testing.T) {
	options := DefaultOptions()
	options.BindingMap[ir.ResourceBinding{Group: 0, Binding: 1}] = BindTarget{Register: 4}
	_, err := Compile(samples.Quad(), back.Only(ir.StageFragment, "frag_main"), options)
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) || !strings.Contains(err.Error(), "u_texture") {
		t.Errorf("compiled without a binding: %v", err)
	}

	options.FakeMissingBindings = true
	out, err := Compile(samples.Quad(), back.Only(ir.StageFragment, "frag_main"), options)
	if err != nil {
		t.Fatalf("FakeMissingBindings: %v", err)
	}
	mustContain(t, out.Source, "u_texture : register(t0, space0);", "u_sampler : register(s4, space0);")
}

func TestDirectBindings(t *testing.T) {
	module := samples.Shadow()
	existing := map[ir.ResourceBinding]BindTarget{{Group: 0, Binding: 2}: {Register: 7, Space: 3}}
	direct, err := DirectBindings(module, existing)
	if err != nil {
		t.Fatalf("DirectBindings: %v", err)
	}
	if _, ok := direct[ir.ResourceBinding{Group: 0, Binding: 2}]; ok {
		t.Error("DirectBindings overrode an existing entry")
	}
	if got := direct[ir.ResourceBinding{Group: 0, Binding: 3}]; got.Register != 3 || got.Space != 0 {
		t.Errorf("sampler_shadow = %+v, want register 3 in space 0", got)
	}
	if got := direct[ir.ResourceBinding{Group: 1, Binding: 0}]; got.Register != 0 || got.Space != 1 {
		t.Errorf("u_entity = %+v, want register 0 in space 1", got)
	}

	wide := &ir.Module{}
	f32 := wide.AddType(ir.Type{Inner: ir.ScalarF32})
	wide.AddGlobalVariable(ir.GlobalVariable{Name: "far", Space: ir.SpaceUniform, Type: f32, Binding: &ir.ResourceBinding{Group: 300}})
	if _, err := DirectBindings(wide, nil); !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("group 300: %v", err)
	}
}

func TestSelection(t *testing.T) {
	module := samples.Shadow()
	_, err := Compile(module, back.All(), DefaultOptions())
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("selecting two entry points: %v", err)
	}
	_, err = Compile(module, back.Only(ir.StageCompute, "fs_main"), DefaultOptions())
	var irErr *ir.Error
	if !errors.As(err, &irErr) || irErr.Kind != ir.ErrUnresolvedHandle {
		t.Errorf("selecting a missing entry point: %v", err)
	}
}

func TestUnsupportedBuiltin(t *testing.T) {
	m := &ir.Module{}
	vec3u := m.AddType(ir.Type{Inner: ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarU32}})
	b := ir.NewFunctionBuilder("main")
	b.Arg("groups", vec3u, ir.BuiltinBinding{Builtin: ir.BuiltinNumWorkGroups})
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})

	_, err := Compile(m, back.All(), DefaultOptions())
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("num_workgroups: %v", err)
	}
}

func TestShaderModelGates(t *testing.T) {
	tests := []struct {
		name   string
		scalar ir.ScalarType
		model  ShaderModel
		ok     bool
	}{
		{"i64 on 5.1", ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, ShaderModel5_1, false},
		{"i64 on 6.0", ir.ScalarType{Kind: ir.ScalarSint, Width: 8}, ShaderModel6_0, true},
		{"f16 on 6.0", ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, ShaderModel6_0, false},
		{"f16 on 6.2", ir.ScalarType{Kind: ir.ScalarFloat, Width: 2}, ShaderModel6_2, true},
		{"f64 on 5.0", ir.ScalarType{Kind: ir.ScalarFloat, Width: 8}, ShaderModel5_0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ir.Module{}
			ty := m.AddType(ir.Type{Inner: tt.scalar})
			b := ir.NewFunctionBuilder("main")
			b.Local("wide", ty, nil)
			fn := m.AddFunction(b.Finish())
			m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})

			options := DefaultOptions()
			options.ShaderModel = tt.model
			_, err := Compile(m, back.All(), options)
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
	b.Local("Texture2D", u32, nil)
	b.Local("float4", u32, nil)
	fn := m.AddFunction(b.Finish())
	m.AddEntryPoint(ir.EntryPoint{Name: "main", Stage: ir.StageCompute, Function: fn, Workgroup: [3]uint32{1, 1, 1}})

	out, err := Compile(m, back.All(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, bad := range []string{"uint Texture2D ", "uint float4 "} {
		if strings.Contains(out.Source, bad) {
			t.Errorf("reserved word declared as %q:\n%s", bad, out.Source)
		}
	}
}
