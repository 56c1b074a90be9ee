package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercross/internal/cache"
	"github.com/gogpu/shadercross/internal/config"
	"github.com/gogpu/shadercross/internal/logging"
	"github.com/gogpu/shadercross/ir"
	"github.com/gogpu/shadercross/irpack"
)

// session is the state a command builds from the global flags and the
// project file.
type session struct {
	cfg   *config.File
	log   *slog.Logger
	cache *cache.Cache
}

func openSession(cmd *cobra.Command, g *globalFlags) (*session, error) {
	cfg, err := loadConfig(g.config)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cmd.ErrOrStderr(), g, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Debug("loaded project file", "path", cfg.Path)
	}

	s := &session{cfg: cfg, log: log}
	if g.noCache || cfg.Cache.Disabled {
		return s, nil
	}
	dir := cfg.Cache.Dir
	switch {
	case dir == "":
		if dir, err = cache.DefaultDir("shadercross"); err != nil {
			return nil, err
		}
	case !filepath.IsAbs(dir) && cfg.Path != "":
		dir = filepath.Join(filepath.Dir(cfg.Path), dir)
	}
	if s.cache, err = cache.Open(dir, log); err != nil {
		return nil, err
	}
	return s, nil
}

func loadConfig(path string) (*config.File, error) {
	if path == "" {
		found, ok, err := config.Find(".")
		if err != nil {
			return nil, err
		}
		if !ok {
			return &config.File{}, nil
		}
		path = found
	}
	return config.Load(path)
}

func newLogger(w io.Writer, g *globalFlags, cfg *config.File) (*slog.Logger, error) {
	levelName := firstNonEmpty(g.logLevel, cfg.Log.Level, "warn")
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(firstNonEmpty(g.logFormat, cfg.Log.Format, "text"))
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readInput reads path, or standard input for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func readModule(cmd *cobra.Command, path string) (*ir.Module, []byte, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	module, err := irpack.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return module, data, nil
}
