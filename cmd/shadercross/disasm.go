package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercross/spirv"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [module.spv]",
		Short: "Print a SPIR-V binary as text",
		Long:  "Print a SPIR-V binary in the spirv-dis text form. Reads stdin when no file or \"-\" is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}
			text, err := spirv.DisassembleBytes(data)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		},
	}
}
