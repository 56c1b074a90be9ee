package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/shadercross/irpack"
)

// Build metadata, overridable with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// coloredVersion paints each component of Version.
func coloredVersion() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	v := versionMajorColor.Sprint(parts[0]) + "." +
		versionMinorColor.Sprint(parts[1]) + "." +
		versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		v += "-" + suffix
	}
	return v
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	IRFormat  uint16 `json:"ir_format"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch strings.ToLower(format) {
			case "pretty":
				renderVersionPretty(cmd.OutOrStdout())
				return nil
			case "json":
				return renderVersionJSON(cmd.OutOrStdout())
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

func renderVersionPretty(out io.Writer) {
	fmt.Fprintf(out, "shadercross %s\n", coloredVersion())
	fmt.Fprintf(out, "ir format:  %d\n", irpack.FormatVersion)
	if GitCommit != "" {
		fmt.Fprintf(out, "commit:     %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(out, "built:      %s\n", BuildDate)
	}
}

func renderVersionJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionPayload{
		Tool:      "shadercross",
		Version:   Version,
		IRFormat:  irpack.FormatVersion,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})
}
