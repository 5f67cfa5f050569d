package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "tsov — Transparent subtitle overlay")
			fmt.Fprintln(out, "Hold the modifier and click to play or pause; arrows jump between cues.")
			fmt.Fprintln(out, "https://github.com/oukeidos/tsov")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
