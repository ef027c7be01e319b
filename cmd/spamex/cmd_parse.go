package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coregx/spamex"
)

func newParseCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "parse PATTERN",
		Short: "Print the parsed pattern and its matcher graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := spamex.DefaultConfig()
			config.Global = global
			p, err := spamex.CompileWithConfig(args[0], config)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pattern:   %s\n", p.Syntax())
			fmt.Fprintf(w, "prefilter: %s\n", p.Prefilter())
			fmt.Fprintf(w, "initial:   %s\n", p.Program().Initial)
			fmt.Fprint(w, p.Program().Graph)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&global, "global", "g", false, "compile for global matching")
	return cmd
}
