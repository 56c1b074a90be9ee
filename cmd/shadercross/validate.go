package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercross"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module.irpack>",
		Short: "Check an IR module without writing any output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, g)
			if err != nil {
				return err
			}
			module, _, err := readModule(cmd, args[0])
			if err != nil {
				return err
			}
			p := shadercross.Pipeline{Logger: s.log}
			if _, err := p.Validate(module); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			okColor.Fprint(out, "valid ")
			fmt.Fprintf(out, "%s: %d types, %d constants, %d globals, %d functions\n",
				args[0], len(module.Types), len(module.Constants), len(module.GlobalVariables), len(module.Functions))
			for _, ep := range module.EntryPoints {
				fmt.Fprintf(out, "  %-8s %s\n", ep.Stage, ep.Name)
			}
			return nil
		},
	}
}
