package shadercross

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/hlsl"
	"github.com/gogpu/shadercross/internal/logging"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
	"github.com/gogpu/shadercross/spirv"
)

func shadowTargets() []Target {
	return []Target{
		DefaultTarget(SPIRV),
		DefaultTarget(MSL).Only(ir.StageFragment, "fs_main"),
		DefaultTarget(HLSL).Only(ir.StageVertex, "vs_main"),
		DefaultTarget(GLSL).Only(ir.StageFragment, "fs_main"),
	}
}

func TestRunAllBackends(t *testing.T) {
	results, err := (&Pipeline{}).Run(context.Background(), samples.Shadow(), shadowTargets())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	want := []Language{SPIRV, MSL, HLSL, GLSL}
	for i, r := range results {
		if r.Language != want[i] {
			t.Errorf("results[%d].Language = %s, want %s", i, r.Language, want[i])
		}
		if len(r.Data) == 0 {
			t.Errorf("results[%d] is empty", i)
		}
		if r.Digest != blake3.Sum256(r.Data) {
			t.Errorf("results[%d].Digest does not match Data", i)
		}
	}

	spv := results[0]
	if spv.SPIRV == nil || binary.LittleEndian.Uint32(spv.Data) != spirv.MagicNumber {
		t.Errorf("SPIR-V result lacks the magic number")
	}
	if results[1].MSL == nil || results[1].EntryPoint != "fs_main" {
		t.Errorf("MSL result = %+v", results[1].MSL)
	}
	if results[2].HLSL == nil || results[2].HLSL.Profile != "vs_5_1" {
		t.Errorf("HLSL result = %+v", results[2].HLSL)
	}
	if results[3].GLSL == nil || results[3].EntryPoint != "main" || results[3].GLSL.Stage != ir.StageFragment {
		t.Errorf("GLSL result = %+v", results[3].GLSL)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			targets := []Target{DefaultTarget(SPIRV), DefaultTarget(SPIRV)}
			p := Pipeline{Parallelism: 2}
			first, err := p.Run(context.Background(), s.Build(), targets)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			second, err := p.Run(context.Background(), s.Build(), targets[:1])
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if first[0].Digest != first[1].Digest || first[0].Digest != second[0].Digest {
				t.Error("digests differ between runs")
			}
			if !bytes.Equal(first[0].Data, second[0].Data) {
				t.Error("bytes differ between runs")
			}
		})
	}
}

func TestRunStopsOnInvalidModule(t *testing.T) {
	m := samples.Quad()
	m.EntryPoints[0].Function = 99
	_, err := (&Pipeline{}).Run(context.Background(), m, []Target{DefaultTarget(SPIRV)})
	if err == nil {
		t.Fatal("Run accepted an entry point with a dangling function")
	}
	if _, ok := ir.KindOf(err); !ok {
		t.Errorf("error %v is not classified", err)
	}
}

func TestRunReportsBackendError(t *testing.T) {
	old := DefaultTarget(GLSL).Only(ir.StageCompute, "cs_main")
	old.GLSL.LangVersion = glsl.Version330
	targets := []Target{DefaultTarget(SPIRV), old}

	_, err := (&Pipeline{}).Run(context.Background(), samples.Compute(), targets)
	if !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Fatalf("error = %v, want UnsupportedFeature", err)
	}
	if !strings.HasPrefix(err.Error(), "glsl: ") {
		t.Errorf("error %q lacks the backend prefix", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Pipeline{}).Run(ctx, samples.Quad(), []Target{DefaultTarget(SPIRV)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunLogs(t *testing.T) {
	var buf bytes.Buffer
	p := Pipeline{Logger: logging.New(&buf, logging.LevelDebug, logging.FormatText)}
	if _, err := p.Run(context.Background(), samples.Quad(), []Target{DefaultTarget(SPIRV)}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"backend start", "backend finish", "target=spv", "bytes="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestCompile(t *testing.T) {
	r, err := Compile(samples.Quad(), DefaultTarget(MSL).Only(ir.StageVertex, "vert_main"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(string(r.Data), "vertex ") {
		t.Errorf("MSL output lacks a vertex function:\n%s", r.Data)
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
	}{
		{"spv", SPIRV},
		{"SPIR-V", SPIRV},
		{"metal", MSL},
		{"msl", MSL},
		{"hlsl", HLSL},
		{"glsl", GLSL},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLanguage(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseLanguage("wgsl"); err == nil {
		t.Error("ParseLanguage(wgsl) succeeded")
	}
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path     string
		lang     Language
		stage    ir.ShaderStage
		hasStage bool
		ok       bool
	}{
		{"out/shadow.spv", SPIRV, 0, false, true},
		{"shadow.metal", MSL, 0, false, true},
		{"shadow.HLSL", HLSL, 0, false, true},
		{"shadow.glsl", GLSL, 0, false, true},
		{"shadow.vert", GLSL, ir.StageVertex, true, true},
		{"shadow.frag", GLSL, ir.StageFragment, true, true},
		{"shadow.comp", GLSL, ir.StageCompute, true, true},
		{"shadow.txt", 0, 0, false, false},
	}
	for _, tt := range tests {
		lang, stage, hasStage, ok := LanguageForPath(tt.path)
		if lang != tt.lang || stage != tt.stage || hasStage != tt.hasStage || ok != tt.ok {
			t.Errorf("LanguageForPath(%q) = %v, %v, %v, %v", tt.path, lang, stage, hasStage, ok)
		}
	}
}

func TestMSLSequentialFallback(t *testing.T) {
	target := DefaultTarget(MSL).Only(ir.StageFragment, "fs_main")
	r, err := Compile(samples.Shadow(), target)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, want := range []string{"[[buffer(0)]]", "[[texture(0)]]", "[[sampler(0)]]"} {
		if !strings.Contains(string(r.Data), want) {
			t.Errorf("output lacks %q", want)
		}
	}
	if len(target.MSL.PerEntryPointMap) != 0 {
		t.Error("Compile wrote into the caller's binding table")
	}

	target.MSL.PerEntryPointMap = map[string]msl.EntryPointResources{"fs_main": {}}
	if _, err := Compile(samples.Shadow(), target); !ir.IsKind(err, ir.ErrUnsupportedFeature) {
		t.Errorf("explicit empty table error = %v, want UnsupportedFeature", err)
	}
}

func TestHLSLDirectBindings(t *testing.T) {
	target := DefaultTarget(HLSL).Only(ir.StageFragment, "fs_main")
	target.HLSL.BindingMap[ir.ResourceBinding{Group: 0, Binding: 2}] = hlsl.BindTarget{Register: 5, Space: 2}
	r, err := Compile(samples.Shadow(), target)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, want := range []string{"t_shadow : register(t5, space2);", "sampler_shadow : register(s3, space0);"} {
		if !strings.Contains(string(r.Data), want) {
			t.Errorf("output lacks %q", want)
		}
	}
	if len(target.HLSL.BindingMap) != 1 {
		t.Errorf("Compile wrote %d entries into the caller's binding map", len(target.HLSL.BindingMap)-1)
	}
}
