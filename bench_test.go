package shadercross

import (
	"context"
	"runtime"
	"testing"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/hlsl"
	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
	"github.com/gogpu/shadercross/spirv"
)

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// BenchmarkValidate measures the validator on each sample module.
func BenchmarkValidate(b *testing.B) {
	for _, s := range samples.All() {
		b.Run(s.Name, func(b *testing.B) {
			module := s.Build()
			b.ReportAllocs()
			b.ResetTimer()

			var info *ir.ModuleInfo
			for i := 0; i < b.N; i++ {
				var err error
				info, err = ir.Validate(module)
				if err != nil {
					b.Fatalf("validate failed: %v", err)
				}
			}
			runtime.KeepAlive(info)
		})
	}
}

// ---------------------------------------------------------------------------
// Cross-backend comparison: one module written by all four backends
// ---------------------------------------------------------------------------

// BenchmarkWriteAllBackends measures only the emit phase. The shadow
// module is validated once up front.
func BenchmarkWriteAllBackends(b *testing.B) {
	module := samples.Shadow()
	info, err := ir.Validate(module)
	if err != nil {
		b.Fatalf("validate failed: %v", err)
	}
	frag := back.Only(ir.StageFragment, "fs_main")

	b.Run("SPIRV", func(b *testing.B) {
		b.ReportAllocs()
		var out spirv.Output
		for i := 0; i < b.N; i++ {
			out, err = spirv.Write(module, info, back.All(), spirv.DefaultOptions())
			if err != nil {
				b.Fatalf("spirv failed: %v", err)
			}
		}
		b.SetBytes(int64(len(out.Words) * 4))
		runtime.KeepAlive(out)
	})

	b.Run("GLSL", func(b *testing.B) {
		b.ReportAllocs()
		var out glsl.Output
		for i := 0; i < b.N; i++ {
			out, err = glsl.Write(module, info, frag, glsl.DefaultOptions())
			if err != nil {
				b.Fatalf("glsl failed: %v", err)
			}
		}
		b.SetBytes(int64(len(out.Source)))
		runtime.KeepAlive(out)
	})

	b.Run("HLSL", func(b *testing.B) {
		options := hlsl.DefaultOptions()
		options.BindingMap, err = hlsl.DirectBindings(module, nil)
		if err != nil {
			b.Fatalf("hlsl bindings failed: %v", err)
		}
		b.ReportAllocs()
		var out hlsl.Output
		for i := 0; i < b.N; i++ {
			out, err = hlsl.Write(module, info, frag, options)
			if err != nil {
				b.Fatalf("hlsl failed: %v", err)
			}
		}
		b.SetBytes(int64(len(out.Source)))
		runtime.KeepAlive(out)
	})

	b.Run("MSL", func(b *testing.B) {
		entry, err := frag.Single(module)
		if err != nil {
			b.Fatal(err)
		}
		options := msl.DefaultOptions()
		options.PerEntryPointMap["fs_main"], err = msl.SequentialResources(module, info, entry)
		if err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		var out msl.Output
		for i := 0; i < b.N; i++ {
			out, err = msl.Write(module, info, frag, options)
			if err != nil {
				b.Fatalf("msl failed: %v", err)
			}
		}
		b.SetBytes(int64(len(out.Source)))
		runtime.KeepAlive(out)
	})
}

// ---------------------------------------------------------------------------
// Pipeline: validation plus parallel emission
// ---------------------------------------------------------------------------

// BenchmarkPipeline compares running the four backends one at a time
// against running them in parallel.
func BenchmarkPipeline(b *testing.B) {
	targets := shadowTargets()
	for _, bc := range []struct {
		name        string
		parallelism int
	}{
		{"serial", 1},
		{"parallel", 4},
	} {
		b.Run(bc.name, func(b *testing.B) {
			module := samples.Shadow()
			p := Pipeline{Parallelism: bc.parallelism}
			b.ReportAllocs()
			b.ResetTimer()

			var results []Result
			for i := 0; i < b.N; i++ {
				var err error
				results, err = p.Run(context.Background(), module, targets)
				if err != nil {
					b.Fatalf("run failed: %v", err)
				}
			}
			runtime.KeepAlive(results)
		})
	}
}
