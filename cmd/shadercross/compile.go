package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/shadercross"
	"github.com/gogpu/shadercross/internal/cache"
	"github.com/gogpu/shadercross/internal/config"
)

type compileFlags struct {
	outputs []string
	target  string
	entry   string
	stage   string
}

// job is one output of a compile run. An empty path means stdout.
type job struct {
	path   string
	target shadercross.Target
	key    cache.Key
}

func newCompileCmd(g *globalFlags) *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile [flags] <module.irpack>",
		Short: "Translate an IR module",
		Long: `Translate an IR module into one or more outputs.

Each -o names an output file whose extension picks the target:
.spv, .metal, .hlsl, .glsl, or .vert, .frag and .comp for GLSL of that
stage. Without -o the single output goes to stdout and --target is
required. All outputs are written from one validation of the module.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, g, f, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.outputs, "output", "o", nil, "output file, repeatable")
	flags.StringVarP(&f.target, "target", "t", "", "target language (spv|msl|hlsl|glsl)")
	flags.StringVarP(&f.entry, "entry", "e", "", "entry point name")
	flags.StringVarP(&f.stage, "stage", "s", "", "entry point stage (vertex|fragment|compute)")
	return cmd
}

func runCompile(cmd *cobra.Command, g *globalFlags, f *compileFlags, input string) error {
	s, err := openSession(cmd, g)
	if err != nil {
		return err
	}
	module, data, err := readModule(cmd, input)
	if err != nil {
		return err
	}

	cfg := *s.cfg
	if f.entry != "" {
		cfg.EntryPoint = f.entry
	}
	if f.stage != "" {
		cfg.Stage = f.stage
	}
	jobs, err := planJobs(&cfg, f)
	if err != nil {
		return err
	}

	fingerprint, err := msgpack.Marshal(&cfg)
	if err != nil {
		return err
	}
	outputs := make([][]byte, len(jobs))
	var (
		pending []int
		targets []shadercross.Target
	)
	for i := range jobs {
		j := &jobs[i]
		j.key = cache.KeyOf([]byte(Version), data, fingerprint, []byte(j.target.Language.String()), []byte(fmt.Sprintf("%+v", j.target.Selection)))
		entry, ok, err := s.cache.Get(j.key)
		if err != nil {
			s.log.Warn("ignoring unreadable cache entry", "key", j.key.String(), "err", err)
		}
		if ok {
			outputs[i] = entry.Data
			continue
		}
		pending = append(pending, i)
		targets = append(targets, j.target)
	}

	if len(pending) > 0 {
		p := shadercross.Pipeline{Logger: s.log}
		results, err := p.Run(cmd.Context(), module, targets)
		if err != nil {
			return err
		}
		for k, i := range pending {
			r := &results[k]
			outputs[i] = r.Data
			entry := &cache.Entry{Target: r.Language.String(), EntryPoint: r.EntryPoint, Data: r.Data}
			if err := s.cache.Put(jobs[i].key, entry); err != nil {
				s.log.Warn("failed to store cache entry", "key", jobs[i].key.String(), "err", err)
			}
		}
	}

	for i, j := range jobs {
		if j.path == "" {
			if _, err := cmd.OutOrStdout().Write(outputs[i]); err != nil {
				return err
			}
			continue
		}
		if err := os.WriteFile(j.path, outputs[i], 0o644); err != nil {
			return err
		}
		okColor.Fprint(cmd.ErrOrStderr(), "wrote ")
		fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s, %d bytes)\n", j.path, j.target.Language, len(outputs[i]))
	}
	return nil
}

// planJobs resolves the target of every output against cfg.
func planJobs(cfg *config.File, f *compileFlags) ([]job, error) {
	paths := f.outputs
	if len(paths) == 0 {
		if f.target == "" {
			return nil, errors.New("writing to stdout needs --target")
		}
		paths = []string{""}
	}

	var forced *shadercross.Language
	if f.target != "" {
		lang, err := shadercross.ParseLanguage(f.target)
		if err != nil {
			return nil, err
		}
		forced = &lang
	}

	jobs := make([]job, 0, len(paths))
	for _, path := range paths {
		lang, stage, hasStage, ok := shadercross.LanguageForPath(path)
		switch {
		case forced != nil:
			hasStage = hasStage && *forced == shadercross.GLSL
			lang = *forced
		case !ok:
			return nil, fmt.Errorf("cannot tell the target of %q from its extension; pass --target", path)
		}
		t, err := targetFor(cfg, lang)
		if err != nil {
			return nil, err
		}
		if hasStage && cfg.Stage == "" {
			t.Selection.Stage, t.Selection.AnyStage = stage, false
		}
		jobs = append(jobs, job{path: path, target: t})
	}
	return jobs, nil
}

func targetFor(cfg *config.File, lang shadercross.Language) (shadercross.Target, error) {
	t := shadercross.DefaultTarget(lang)
	sel, err := cfg.Selection()
	if err != nil {
		return t, err
	}
	t.Selection = sel
	switch lang {
	case shadercross.SPIRV:
		t.SPIRV, err = cfg.SPIRVOptions()
	case shadercross.MSL:
		t.MSL, err = cfg.MSLOptions()
	case shadercross.HLSL:
		t.HLSL, err = cfg.HLSLOptions()
	case shadercross.GLSL:
		t.GLSL, err = cfg.GLSLOptions()
	}
	return t, err
}
