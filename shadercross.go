// Package shadercross translates validated shader IR into SPIR-V, Metal
// Shading Language, HLSL and GLSL.
//
// A front end hands over a populated ir.Module. The module is validated
// once, after which any number of backends read it concurrently:
//
//	p := shadercross.Pipeline{Logger: logger}
//	results, err := p.Run(ctx, module, []shadercross.Target{
//	    shadercross.DefaultTarget(shadercross.SPIRV),
//	    shadercross.DefaultTarget(shadercross.MSL).Only(ir.StageFragment, "fs_main"),
//	})
//
// Each backend package can also be used on its own; see spirv.Compile,
// msl.Compile, hlsl.Compile and glsl.Compile.
package shadercross

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/shadercross/back"
	"github.com/gogpu/shadercross/glsl"
	"github.com/gogpu/shadercross/hlsl"
	"github.com/gogpu/shadercross/internal/logging"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/msl"
	"github.com/gogpu/shadercross/spirv"
)

// Language names an output language.
type Language uint8

const (
	SPIRV Language = iota
	MSL
	HLSL
	GLSL
)

// String returns the short name used on the command line.
func (l Language) String() string {
	switch l {
	case SPIRV:
		return "spv"
	case MSL:
		return "msl"
	case HLSL:
		return "hlsl"
	case GLSL:
		return "glsl"
	}
	return fmt.Sprintf("Language(%d)", uint8(l))
}

// Extension returns the conventional file extension for l.
func (l Language) Extension() string {
	switch l {
	case SPIRV:
		return ".spv"
	case MSL:
		return ".metal"
	case HLSL:
		return ".hlsl"
	}
	return ".glsl"
}

// ParseLanguage accepts the names String returns and a few aliases.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "spv", "spirv", "spir-v":
		return SPIRV, nil
	case "msl", "metal":
		return MSL, nil
	case "hlsl":
		return HLSL, nil
	case "glsl":
		return GLSL, nil
	}
	return 0, fmt.Errorf("unknown target %q (want spv, msl, hlsl or glsl)", s)
}

// LanguageForPath picks the language from an output file extension.
// GLSL stage extensions also report the stage.
func LanguageForPath(path string) (lang Language, stage ir.ShaderStage, hasStage, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return SPIRV, 0, false, true
	case ".metal":
		return MSL, 0, false, true
	case ".hlsl":
		return HLSL, 0, false, true
	case ".glsl":
		return GLSL, 0, false, true
	case ".vert":
		return GLSL, ir.StageVertex, true, true
	case ".frag":
		return GLSL, ir.StageFragment, true, true
	case ".comp":
		return GLSL, ir.StageCompute, true, true
	}
	return 0, 0, false, false
}

// Target is one requested output. Only the options of Language are read.
//
// An MSL entry point missing from MSL.PerEntryPointMap gets the slots of
// msl.SequentialResources unless MSL.FakeMissingBindings is set. An HLSL
// resource missing from HLSL.BindingMap gets the register of
// hlsl.DirectBindings unless HLSL.FakeMissingBindings is set.
type Target struct {
	Language  Language
	Selection back.EntryPointSelection

	SPIRV spirv.Options
	MSL   msl.Options
	HLSL  hlsl.Options
	GLSL  glsl.Options
}

// DefaultTarget returns a target for lang with default options that
// selects every entry point.
func DefaultTarget(lang Language) Target {
	return Target{
		Language:  lang,
		Selection: back.All(),
		SPIRV:     spirv.DefaultOptions(),
		MSL:       msl.DefaultOptions(),
		HLSL:      hlsl.DefaultOptions(),
		GLSL:      glsl.DefaultOptions(),
	}
}

// Only narrows the target to one entry point.
func (t Target) Only(stage ir.ShaderStage, name string) Target {
	t.Selection = back.Only(stage, name)
	return t
}

// Result is the output of one target.
type Result struct {
	Language Language

	// EntryPoint is the entry point name in the output. It is empty for
	// SPIR-V, which keeps every selected entry point.
	EntryPoint string

	// Data is the SPIR-V binary or the shader source.
	Data []byte

	// Digest is the BLAKE3 digest of Data.
	Digest [32]byte

	// Exactly one of these is set, matching Language.
	SPIRV *spirv.Output
	MSL   *msl.Output
	HLSL  *hlsl.Output
	GLSL  *glsl.Output
}

// Pipeline validates a module and runs backends over it.
type Pipeline struct {
	// Logger receives debug records for validation and each backend.
	// Nil discards them.
	Logger *slog.Logger

	// Parallelism caps the number of backends running at once.
	// Zero means GOMAXPROCS.
	Parallelism int
}

// Validate checks module with the pipeline's logger.
func (p *Pipeline) Validate(module *ir.Module) (*ir.ModuleInfo, error) {
	return ir.NewValidator(ir.ValidatorOptions{Logger: p.Logger}).Validate(module)
}

// Run validates module once and writes every target. Results follow the
// order of targets. The first backend error cancels the rest.
func (p *Pipeline) Run(ctx context.Context, module *ir.Module, targets []Target) ([]Result, error) {
	info, err := p.Validate(module)
	if err != nil {
		return nil, err
	}
	return p.Write(ctx, module, info, targets)
}

// Write runs the targets over an already validated module.
func (p *Pipeline) Write(ctx context.Context, module *ir.Module, info *ir.ModuleInfo, targets []Target) ([]Result, error) {
	log := logging.OrDiscard(p.Logger)
	limit := p.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, max(len(targets), 1)))

	for i := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			t := &targets[i]
			start := time.Now()
			log.Debug("backend start", "target", t.Language.String(), "index", i)
			res, err := emit(module, info, t)
			if err != nil {
				return err
			}
			log.Debug("backend finish",
				"target", t.Language.String(),
				"index", i,
				"bytes", len(res.Data),
				"duration", time.Since(start))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Compile validates module and writes a single target.
func Compile(module *ir.Module, target Target) (Result, error) {
	var p Pipeline
	results, err := p.Run(context.Background(), module, []Target{target})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

func emit(module *ir.Module, info *ir.ModuleInfo, t *Target) (Result, error) {
	res := Result{Language: t.Language}
	switch t.Language {
	case SPIRV:
		out, err := spirv.Write(module, info, t.Selection, t.SPIRV)
		if err != nil {
			return Result{}, err
		}
		res.SPIRV, res.Data = &out, out.Bytes()
	case MSL:
		options, err := mslOptions(module, info, t)
		if err != nil {
			return Result{}, err
		}
		out, err := msl.Write(module, info, t.Selection, options)
		if err != nil {
			return Result{}, err
		}
		res.MSL, res.Data, res.EntryPoint = &out, []byte(out.Source), out.EntryPoint
	case HLSL:
		options, err := hlslOptions(module, t)
		if err != nil {
			return Result{}, err
		}
		out, err := hlsl.Write(module, info, t.Selection, options)
		if err != nil {
			return Result{}, err
		}
		res.HLSL, res.Data, res.EntryPoint = &out, []byte(out.Source), out.EntryPoint
	case GLSL:
		out, err := glsl.Write(module, info, t.Selection, t.GLSL)
		if err != nil {
			return Result{}, err
		}
		res.GLSL, res.Data, res.EntryPoint = &out, []byte(out.Source), out.EntryPoint
	default:
		return Result{}, fmt.Errorf("unknown target %s", t.Language)
	}
	res.Digest = blake3.Sum256(res.Data)
	return res, nil
}

// mslOptions fills in sequential slots for an entry point the binding
// table does not list. The caller's map is left untouched.
func mslOptions(module *ir.Module, info *ir.ModuleInfo, t *Target) (msl.Options, error) {
	options := t.MSL
	if options.FakeMissingBindings {
		return options, nil
	}
	entry, err := t.Selection.Single(module)
	if err != nil {
		// msl.Write reports it.
		return options, nil //nolint:nilerr
	}
	name := module.EntryPoints[entry].Name
	if _, ok := options.PerEntryPointMap[name]; ok {
		return options, nil
	}
	res, err := msl.SequentialResources(module, info, entry)
	if err != nil {
		return msl.Options{}, fmt.Errorf("msl: %w", err)
	}
	perEntry := make(map[string]msl.EntryPointResources, len(options.PerEntryPointMap)+1)
	maps.Copy(perEntry, options.PerEntryPointMap)
	perEntry[name] = res
	options.PerEntryPointMap = perEntry
	return options, nil
}

// hlslOptions lists the direct register of every resource the binding
// map leaves out. The caller's map is left untouched.
func hlslOptions(module *ir.Module, t *Target) (hlsl.Options, error) {
	options := t.HLSL
	if options.FakeMissingBindings {
		return options, nil
	}
	direct, err := hlsl.DirectBindings(module, options.BindingMap)
	if err != nil {
		return hlsl.Options{}, fmt.Errorf("hlsl: %w", err)
	}
	if len(direct) == 0 {
		return options, nil
	}
	bindings := make(map[ir.ResourceBinding]hlsl.BindTarget, len(options.BindingMap)+len(direct))
	maps.Copy(bindings, options.BindingMap)
	maps.Copy(bindings, direct)
	options.BindingMap = bindings
	return options, nil
}
