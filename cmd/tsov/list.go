package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tsov/internal/subtitle"
)

func newListCmd() *cobra.Command {
	opts := sessionFlags{}
	cmd := &cobra.Command{
		Use:   "list <subtitle>",
		Short: "Print the cue table after rescaling",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(cmd, args, &opts)
			if err != nil {
				return err
			}
			cues, _, err := loadTimeline(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, c := range cues {
				text := strings.ReplaceAll(c.Text, "\n", " / ")
				fmt.Fprintf(out, "%4d  %s --> %s  %s\n", i+1, subtitle.FormatTimestamp(c.Start), subtitle.FormatTimestamp(c.End), text)
			}
			return nil
		},
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTimingFlags(cmd, &opts)
	return cmd
}
