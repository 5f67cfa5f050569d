package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/tsov/internal/apperrors"
	"github.com/oukeidos/tsov/internal/config"
	"github.com/oukeidos/tsov/internal/logger"
	"github.com/oukeidos/tsov/internal/subtitle"
	"github.com/oukeidos/tsov/internal/timeline"
)

// sessionFlags are the command-line values that override a profile.
type sessionFlags struct {
	configPath string
	start      string
	firstTime  string
	lastTime   string
	scale      float64
	tick       time.Duration
	leadIn     time.Duration
	modifier   string
	terminal   bool
}

func addTimingFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a YAML playback profile (env: TSOV_CONFIG)")
	cmd.Flags().StringVar(&f.start, "start", "0", "Media position to start from, in seconds or HH:MM:SS,mmm")
	cmd.Flags().StringVar(&f.firstTime, "first-time", "", "Where the first cue should start in the media")
	cmd.Flags().StringVar(&f.lastTime, "last-time", "", "Where the last cue should end in the media (overrides --scale)")
	cmd.Flags().Float64Var(&f.scale, "scale", 1.0, "Scaling factor applied to cue times")
}

func addPlaybackFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().DurationVar(&f.tick, "tick", 10*time.Millisecond, "Display loop granularity (max 10ms)")
	cmd.Flags().DurationVar(&f.leadIn, "lead-in", 2*time.Millisecond, "Offset added to a cue start when skipping to it")
	cmd.Flags().StringVar(&f.modifier, "modifier", "alt", "Key to hold for commands: alt, ctrl, shift, super or none")
	cmd.Flags().BoolVar(&f.terminal, "terminal", false, "Show subtitles in this terminal instead of an overlay window")
}

// override applies the flags the user actually set.
func (f *sessionFlags) override(cmd *cobra.Command, args []string) func(*config.Profile) {
	return func(p *config.Profile) {
		if len(args) > 0 {
			p.Subtitle = args[0]
		}
		flags := cmd.Flags()
		changed := func(name string) bool {
			fl := flags.Lookup(name)
			return fl != nil && fl.Changed
		}
		if changed("start") {
			p.Start = f.start
		}
		if changed("first-time") {
			p.FirstTime = f.firstTime
		}
		if changed("last-time") {
			p.LastTime = f.lastTime
		}
		if changed("scale") {
			p.ScalingFactor = f.scale
		}
		if changed("tick") {
			p.Playback.Tick = f.tick
		}
		if changed("lead-in") {
			p.Playback.LeadIn = f.leadIn
		}
		if changed("modifier") {
			p.Hotkeys.Modifier = f.modifier
		}
		if changed("terminal") && f.terminal {
			p.Presenter.Type = config.PresenterTerminal
		}
	}
}

func loadProfile(cmd *cobra.Command, args []string, f *sessionFlags) (*config.Profile, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	p, err := config.Load(path, f.override(cmd, args))
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("Loaded profile", "path", path)
	}
	return p, nil
}

// loadTimeline reads the profile's subtitle file and rescales it.
func loadTimeline(p *config.Profile) ([]timeline.Cue, config.Timing, error) {
	timing, err := p.Timing()
	if err != nil {
		return nil, timing, err
	}
	if err := subtitle.ValidateExtension("input", p.Subtitle); err != nil {
		return nil, timing, apperrors.SourceUnreadable("", err)
	}
	cues, err := subtitle.Load(p.Subtitle)
	if err != nil {
		return nil, timing, err
	}
	if err := subtitle.Validate(cues); err != nil {
		return nil, timing, err
	}
	rescaled, err := timeline.Rescale(cues, timeline.RescaleOptions{
		FirstTime:     timing.FirstTime,
		LastTime:      timing.LastTime,
		ScalingFactor: p.ScalingFactor,
	})
	if err != nil {
		return nil, timing, err
	}
	logger.Info("Loaded subtitles", "path", p.Subtitle, "cues", len(rescaled))
	return rescaled, timing, nil
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
