package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/shadercross/internal/samples"
	"github.com/gogpu/shadercross/irpack"
)

func newSampleCmd() *cobra.Command {
	var (
		output string
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "sample [flags] <name>",
		Short: "Write a built-in IR module",
		Long:  "Write one of the built-in sample modules in irpack form, as input for the other commands.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, s := range samples.All() {
					fmt.Fprintln(cmd.OutOrStdout(), s.Name)
				}
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("sample needs a name; --list shows them")
			}
			s, ok := samples.Lookup(args[0])
			if !ok {
				return fmt.Errorf("no sample named %q", args[0])
			}
			data, err := irpack.Marshal(s.Build())
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			okColor.Fprint(cmd.ErrOrStderr(), "wrote ")
			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&list, "list", false, "list the sample names")
	return cmd
}
