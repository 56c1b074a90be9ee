// Package snapshot_test holds golden snapshot tests for all backends.
//
// Every sample module is written by all four backends through one
// pipeline run and compared to the files under testdata/golden/
// {spv,glsl,hlsl,msl}/. SPIR-V is compared in its disassembled form.
//
// A missing golden file fails the test. To create or regenerate golden
// files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/shadercross"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/spirv"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// snapshot pairs a pipeline target with the golden file it is checked
// against.
type snapshot struct {
	target shadercross.Target
	golden string
}

// TestSnapshots is the main golden snapshot test.
func TestSnapshots(t *testing.T) {
	for _, s := range samples.All() {
		t.Run(s.Name, func(t *testing.T) {
			module := s.Build()
			snaps := plan(s.Name, module)
			targets := make([]shadercross.Target, len(snaps))
			for i := range snaps {
				targets[i] = snaps[i].target
			}

			results, err := (&shadercross.Pipeline{}).Run(context.Background(), module, targets)
			if err != nil {
				t.Fatalf("pipeline failed: %v", err)
			}
			for i, r := range results {
				t.Run(strings.TrimSuffix(filepath.Base(snaps[i].golden), filepath.Ext(snaps[i].golden))+"/"+r.Language.String(), func(t *testing.T) {
					compareGolden(t, snaps[i].golden, render(t, r))
				})
			}
		})
	}
}

// TestLoweredFeatures checks the constructs every golden file of a
// sample must show, so a regenerated golden set cannot silently lose
// loop rotation or depth comparison.
func TestLoweredFeatures(t *testing.T) {
	loops := map[shadercross.Language][]string{
		shadercross.SPIRV: {"OpLoopMerge"},
		shadercross.MSL:   {"bool loop_init = true;", "if (!loop_init) {", "loop_init = false;"},
		shadercross.HLSL:  {"bool loop_init = true;", "if (!loop_init) {", "loop_init = false;"},
		shadercross.GLSL:  {"bool loop_init = true;", "if (!loop_init) {", "loop_init = false;"},
	}
	compares := map[shadercross.Language][]string{
		shadercross.SPIRV: {"OpImageSampleDrefExplicitLod"},
		shadercross.MSL:   {"sample_compare(", "metal::level(0"},
		shadercross.HLSL:  {".SampleCmpLevelZero("},
		shadercross.GLSL:  {"sampler2DArrayShadow", "textureGrad("},
	}
	tests := []struct {
		sample string
		entry  string
		wants  map[shadercross.Language][]string
	}{
		{"loop_counter", "count_loop", loops},
		{"shadow", "fs_main", loops},
		{"shadow", "fs_main", compares},
	}
	for _, tt := range tests {
		s, ok := samples.Lookup(tt.sample)
		if !ok {
			t.Fatalf("no sample %q", tt.sample)
		}
		module := s.Build()
		for _, snap := range plan(tt.sample, module) {
			want, ok := tt.wants[snap.target.Language]
			if !ok || (snap.target.Language != shadercross.SPIRV && snap.target.Selection.Name != tt.entry) {
				continue
			}
			t.Run(tt.sample+"/"+filepath.Base(snap.golden), func(t *testing.T) {
				r, err := shadercross.Compile(module, snap.target)
				if err != nil {
					t.Fatalf("Compile: %v", err)
				}
				text := render(t, r)
				for _, w := range want {
					if !strings.Contains(text, w) {
						t.Errorf("output lacks %q:\n%s", w, text)
					}
				}
			})
		}
	}
}

// TestGoldenFilesHaveSamples flags golden files left behind by a renamed
// sample or entry point.
func TestGoldenFilesHaveSamples(t *testing.T) {
	want := make(map[string]bool)
	for _, s := range samples.All() {
		for _, snap := range plan(s.Name, s.Build()) {
			want[filepath.ToSlash(snap.golden)] = true
		}
	}
	err := filepath.WalkDir(filepath.Join("testdata", "golden"), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !want[filepath.ToSlash(path)] {
			t.Errorf("stale golden file %s", path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
}

// plan lists one SPIR-V module with every entry point, then one output per
// entry point for each text backend.
func plan(name string, module *ir.Module) []snapshot {
	golden := func(dir, file string) string {
		return filepath.Join("testdata", "golden", dir, file)
	}
	snaps := []snapshot{{
		target: shadercross.DefaultTarget(shadercross.SPIRV),
		golden: golden("spv", name+".spvasm"),
	}}
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		base := name + "." + ep.Name

		snaps = append(snaps,
			snapshot{target: shadercross.DefaultTarget(shadercross.MSL).Only(ep.Stage, ep.Name), golden: golden("msl", base+".metal")},
			snapshot{target: shadercross.DefaultTarget(shadercross.HLSL).Only(ep.Stage, ep.Name), golden: golden("hlsl", base+".hlsl")},
			snapshot{target: shadercross.DefaultTarget(shadercross.GLSL).Only(ep.Stage, ep.Name), golden: golden("glsl", base+glslExtension(ep.Stage))},
		)
	}
	return snaps
}

func glslExtension(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageVertex:
		return ".vert"
	case ir.StageFragment:
		return ".frag"
	}
	return ".comp"
}

// render returns the text a result is compared as.
func render(t *testing.T, r shadercross.Result) string {
	t.Helper()
	if r.Language != shadercross.SPIRV {
		return string(r.Data)
	}
	text, err := spirv.Disassemble(r.SPIRV.Words)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	return text
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output with the golden file at path.
// If UPDATE_GOLDEN is set, it writes actual output as the golden file.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil {
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("wrote golden file: %s", path)
		return
	}
	if os.IsNotExist(err) {
		t.Fatalf("missing golden file %s, run with UPDATE_GOLDEN=1 to create it", path)
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if expectedStr != actualStr {
		diff := diffStrings(expectedStr, actualStr)
		t.Errorf("output differs from golden %s:\n%s", path, diff)
	}
}

// diffStrings shows the first differing line with some context.
func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")
	maxLines := max(len(expectedLines), len(actualLines))

	line := func(lines []string, i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	firstDiff := -1
	for i := 0; i < maxLines; i++ {
		if line(expectedLines, i) != line(actualLines, i) {
			firstDiff = i
			break
		}
	}
	if firstDiff < 0 {
		return "(no difference found)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)
	fmt.Fprintf(&sb, "  expected lines: %d\n", len(expectedLines))
	fmt.Fprintf(&sb, "  actual lines:   %d\n\n", len(actualLines))

	const contextLines = 3
	start := max(firstDiff-contextLines, 0)
	end := min(firstDiff+contextLines+1, maxLines)
	for i := start; i < end; i++ {
		eLine, aLine := line(expectedLines, i), line(actualLines, i)
		prefix := " "
		if eLine != aLine {
			prefix = "!"
		}
		fmt.Fprintf(&sb, "%s %4d expected: %s\n", prefix, i+1, truncate(eLine, 120))
		if eLine != aLine {
			fmt.Fprintf(&sb, "%s %4d actual:   %s\n", prefix, i+1, truncate(aLine, 120))
		}
	}
	return sb.String()
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
