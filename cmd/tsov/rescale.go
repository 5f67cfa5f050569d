package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tsov/internal/logger"
	"github.com/oukeidos/tsov/internal/prompt"
	"github.com/oukeidos/tsov/internal/subtitle"
)

type rescaleOptions struct {
	session sessionFlags
	yes     bool
}

var confirmer = prompt.DefaultConfirmer

func newRescaleCmd() *cobra.Command {
	opts := rescaleOptions{}
	cmd := &cobra.Command{
		Use:   "rescale <input> [output]",
		Short: "Write a copy of a subtitle file with rescaled timings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("input file is required")
			}
			return runRescale(cmd, args, &opts)
		},
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTimingFlags(cmd, &opts.session)
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	return cmd
}

func runRescale(cmd *cobra.Command, args []string, opts *rescaleOptions) error {
	p, err := loadProfile(cmd, args[:1], &opts.session)
	if err != nil {
		return err
	}
	cues, _, err := loadTimeline(p)
	if err != nil {
		return err
	}

	var outputPath string
	if len(args) > 1 {
		outputPath = args[1]
		if err := subtitle.ValidateExtension("output", outputPath); err != nil {
			return err
		}
		if _, err := os.Lstat(outputPath); err == nil {
			ok, err := confirmer().ConfirmOverwrite(outputPath, opts.yes)
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("Rescale skipped", "output", outputPath)
				return nil
			}
		}
	} else {
		outputPath, err = subtitle.GenerateOutputPath(p.Subtitle, "rescaled")
		if err != nil {
			return fmt.Errorf("failed to choose output path: %w", err)
		}
	}

	if err := subtitle.Save(outputPath, cues); err != nil {
		return err
	}
	logger.Info("Rescaled subtitles written", "output", outputPath, "cues", len(cues))
	fmt.Fprintln(cmd.OutOrStdout(), outputPath)
	return nil
}
