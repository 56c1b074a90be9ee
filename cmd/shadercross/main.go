// Command shadercross translates IR modules into SPIR-V, MSL, HLSL and
// GLSL.
//
// Modules are read in the irpack format. The sample command writes the
// built-in modules in that format, which makes for a quick tour:
//
//	shadercross sample shadow -o shadow.irpack
//	shadercross validate shadow.irpack
//	shadercross compile -o shadow.spv -o shadow.frag -e fs_main shadow.irpack
//	shadercross compile --target msl --entry fs_main shadow.irpack
//	shadercross disasm shadow.spv
//
// Options not given on the command line come from shadercross.toml,
// found in the working directory or one of its parents.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	color     string
	noCache   bool
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "shadercross",
		Short:         "Shader IR cross-compiler",
		Long:          "shadercross translates validated shader IR into SPIR-V, Metal, HLSL and GLSL.",
		Version:       coloredVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return applyColor(g.color)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "project file (default: search for shadercross.toml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&g.logFormat, "log-format", "", "log format (text|json)")
	pf.StringVar(&g.color, "color", "auto", "colorize output (auto|on|off)")
	pf.BoolVar(&g.noCache, "no-cache", false, "bypass the output cache")

	root.AddCommand(
		newCompileCmd(g),
		newValidateCmd(g),
		newDisasmCmd(),
		newSampleCmd(),
		newVersionCmd(),
	)
	return root
}

func applyColor(mode string) error {
	switch mode {
	case "auto":
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", mode)
	}
	return nil
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
)

func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}
