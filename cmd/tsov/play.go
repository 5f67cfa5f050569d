package main

import (
	"context"
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/oukeidos/tsov/internal/config"
	"github.com/oukeidos/tsov/internal/hotkey"
	"github.com/oukeidos/tsov/internal/logger"
	"github.com/oukeidos/tsov/internal/overlay"
	"github.com/oukeidos/tsov/internal/playback"
	"github.com/oukeidos/tsov/internal/termui"
	"github.com/oukeidos/tsov/internal/timeline"
)

func newPlayCmd() *cobra.Command {
	opts := sessionFlags{}
	cmd := &cobra.Command{
		Use:   "play <subtitle>",
		Short: "Show subtitles over the screen in sync with playing media",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args, &opts)
		},
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTimingFlags(cmd, &opts)
	addPlaybackFlags(cmd, &opts)
	return cmd
}

func runPlay(cmd *cobra.Command, args []string, opts *sessionFlags) error {
	p, err := loadProfile(cmd, args, opts)
	if err != nil {
		return err
	}
	cues, timing, err := loadTimeline(p)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if p.Presenter.Type == config.PresenterTerminal {
		return playInTerminal(ctx, cmd, p, cues, timing)
	}
	return playInOverlay(ctx, p, cues, timing)
}

func newController(p *config.Profile, cues []timeline.Cue, presenter playback.Presenter) *playback.Controller {
	return playback.New(cues, presenter,
		playback.WithTick(p.Playback.Tick),
		playback.WithLeadIn(p.Playback.LeadIn),
		playback.WithLogger(logger.L()),
	)
}

func routerOptions(p *config.Profile, quit func()) []hotkey.RouterOption {
	opts := []hotkey.RouterOption{
		hotkey.WithQuit(quit),
		hotkey.WithRouterLogger(logger.L()),
	}
	if !p.RequireModifier() {
		opts = append(opts, hotkey.WithoutModifier())
	}
	return opts
}

func playInOverlay(ctx context.Context, p *config.Profile, cues []timeline.Cue, timing config.Timing) error {
	var settings overlay.Options
	if err := config.DecodeSettings(p.Presenter.Settings, &settings); err != nil {
		return err
	}
	var modifier hotkey.Modifier
	if p.RequireModifier() {
		m, err := hotkey.ParseModifier(p.Hotkeys.Modifier)
		if err != nil {
			return err
		}
		modifier = m
	}

	a := app.NewWithID("io.github.oukeidos.tsov")
	ov, err := overlay.New(a, settings, modifier)
	if err != nil {
		return err
	}

	ctrl := newController(p, cues, ov)
	defer ctrl.Close()

	router := hotkey.NewRouter(ctrl, routerOptions(p, ov.Quit)...)
	ov.SetInputHandler(func(ev hotkey.Event) { router.Dispatch(ev) })

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			ov.Quit()
		case <-finished:
		}
	}()
	go logEvents(ctx, ctrl)

	ov.OnStarted(func() {
		ctrl.Start(timing.Start)
		if p.RequireModifier() {
			logger.Info("Hold the modifier and click the overlay to play or pause; arrows skip cues", "modifier", modifier)
		}
	})
	ov.Run()
	return nil
}

func playInTerminal(ctx context.Context, cmd *cobra.Command, p *config.Profile, cues []timeline.Cue, timing config.Timing) error {
	var settings termui.Options
	if err := config.DecodeSettings(p.Presenter.Settings, &settings); err != nil {
		return err
	}

	keys := termui.NewKeyReader(os.Stdin)
	if err := keys.EnableRawMode(); err != nil {
		return err
	}
	presenter := termui.NewPresenter(os.Stdout, settings)

	ctrl := newController(p, cues, presenter)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A terminal cannot report a held modifier, so keys act directly.
	router := hotkey.NewRouter(ctrl, append(routerOptions(p, cancel), hotkey.WithoutModifier())...)
	go logEvents(ctx, ctrl)

	fmt.Fprint(cmd.OutOrStdout(), "space: play/pause  n/→: next  p/←: previous  q: quit\r\n")
	ctrl.Start(timing.Start)

	errCh := make(chan error, 1)
	go func() {
		errCh <- keys.Run(ctx, func(ev hotkey.Event) { router.Dispatch(ev) })
	}()

	return waitForExit(ctx, ctrl.Done(), errCh)
}

// waitForExit returns when ctx is done, playback finishes or the key reader
// fails. A key reader that ends cleanly, as on EOF, leaves playback running.
func waitForExit(ctx context.Context, done <-chan struct{}, errCh <-chan error) error {
	select {
	case <-ctx.Done():
	case <-done:
	case err := <-errCh:
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
		case <-done:
		}
	}
	return nil
}

func logEvents(ctx context.Context, ctrl *playback.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ctrl.Events():
			switch ev.Type {
			case playback.EventCueShown:
				logger.Debug("Cue shown", "cursor", ev.Cursor, "position", ev.Position, "text", ev.Text)
			case playback.EventCueSkipped:
				logger.Debug("Cue skipped", "cursor", ev.Cursor, "position", ev.Position)
			case playback.EventSeeked:
				logger.Info("Seeked", "cursor", ev.Cursor, "position", ev.Position)
			case playback.EventStateChanged:
				logger.Info("Playback "+ev.State.String(), "cursor", ev.Cursor, "position", ev.Position)
			}
		}
	}
}
