// Package overlay shows subtitles in a borderless fyne window and turns
// key presses and taps on that window into hotkey events.
package overlay

import (
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/oukeidos/tsov/internal/hotkey"
	"github.com/oukeidos/tsov/internal/logger"
)

// Options are the overlay settings from presenter.settings. KeepOnTop is off
// by default: raising the window re-focuses it and takes keyboard focus from
// the media player.
type Options struct {
	FontSize          float32       `mapstructure:"font_size" default:"52" validate:"gt=0"`
	Width             float32       `mapstructure:"width" default:"960" validate:"gt=0"`
	Height            float32       `mapstructure:"height" default:"140" validate:"gt=0"`
	TextColor         string        `mapstructure:"text_color" default:"#ffffff" validate:"hexcolor"`
	ShadowColor       string        `mapstructure:"shadow_color" default:"#000000" validate:"hexcolor"`
	ShadowOffset      float32       `mapstructure:"shadow_offset" default:"2" validate:"gte=0"`
	Background        string        `mapstructure:"background" default:"#000000" validate:"hexcolor"`
	KeepOnTop         bool          `mapstructure:"keep_on_top"`
	KeepOnTopInterval time.Duration `mapstructure:"keep_on_top_interval" default:"1s" validate:"gte=100ms"`
}

// Overlay is a Presenter backed by a fyne window.
type Overlay struct {
	app  fyne.App
	win  fyne.Window
	opts Options

	textColor   color.Color
	shadowColor color.Color
	lines       *fyne.Container

	modifier hotkey.Modifier
	dispatch func(hotkey.Event)

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds the overlay window on a. It must be called on the main
// goroutine before Run. An empty modifier means no key gates commands.
func New(a fyne.App, opts Options, modifier hotkey.Modifier) (*Overlay, error) {
	textColor, err := parseHexColor(opts.TextColor)
	if err != nil {
		return nil, fmt.Errorf("text_color: %w", err)
	}
	shadowColor, err := parseHexColor(opts.ShadowColor)
	if err != nil {
		return nil, fmt.Errorf("shadow_color: %w", err)
	}
	background, err := parseHexColor(opts.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	a.Settings().SetTheme(overlayTheme{Theme: theme.DefaultTheme(), background: background})

	var win fyne.Window
	if drv, ok := a.Driver().(desktop.Driver); ok {
		win = drv.CreateSplashWindow()
	} else {
		win = a.NewWindow("tsov")
	}

	o := &Overlay{
		app:         a,
		win:         win,
		opts:        opts,
		textColor:   textColor,
		shadowColor: shadowColor,
		lines:       container.NewVBox(),
		modifier:    modifier,
		stop:        make(chan struct{}),
	}

	bg := canvas.NewRectangle(background)
	surface := newTapSurface(func() { o.emit(hotkey.Click) })
	win.SetContent(container.NewStack(bg, container.NewCenter(o.lines), surface))
	win.SetPadded(false)
	win.Resize(fyne.NewSize(opts.Width, opts.Height))
	win.SetFixedSize(true)
	win.CenterOnScreen()

	if dc, ok := win.Canvas().(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(ev *fyne.KeyEvent) { o.handleKey(ev.Name, true) })
		dc.SetOnKeyUp(func(ev *fyne.KeyEvent) { o.handleKey(ev.Name, false) })
	} else {
		logger.Warn("Window has no desktop canvas; hotkeys are unavailable")
	}
	return o, nil
}

// SetInputHandler sets the receiver of window input. Call it before Run.
func (o *Overlay) SetInputHandler(fn func(hotkey.Event)) {
	o.dispatch = fn
}

func (o *Overlay) handleKey(name fyne.KeyName, down bool) {
	if kind, ok := translateKey(name, o.modifier, down); ok {
		o.emit(kind)
	}
}

func (o *Overlay) emit(kind hotkey.Kind) {
	if o.dispatch != nil {
		o.dispatch(hotkey.Event{Kind: kind})
	}
}

// ShowText replaces the displayed lines. Safe from any goroutine.
func (o *Overlay) ShowText(text string) {
	safeDo("overlay.show", func() {
		o.lines.Objects = o.lineObjects(text)
		o.lines.Refresh()
	})
}

// Clear removes the displayed lines. Safe from any goroutine.
func (o *Overlay) Clear() {
	safeDo("overlay.clear", func() {
		o.lines.Objects = nil
		o.lines.Refresh()
	})
}

func (o *Overlay) lineObjects(text string) []fyne.CanvasObject {
	var objs []fyne.CanvasObject
	for _, line := range strings.Split(text, "\n") {
		shadow := o.newText(line, o.shadowColor)
		front := o.newText(line, o.textColor)
		objs = append(objs, container.New(&shadowLayout{offset: o.opts.ShadowOffset}, shadow, front))
	}
	return objs
}

func (o *Overlay) newText(s string, c color.Color) *canvas.Text {
	t := canvas.NewText(s, c)
	t.TextSize = o.opts.FontSize
	t.TextStyle = fyne.TextStyle{Bold: true}
	t.Alignment = fyne.TextAlignCenter
	return t
}

// OnStarted registers fn to run on the UI goroutine once the event loop is up.
func (o *Overlay) OnStarted(fn func()) {
	o.app.Lifecycle().SetOnStarted(fn)
}

// Run shows the window and blocks in the fyne event loop until Quit.
func (o *Overlay) Run() {
	if o.opts.KeepOnTop {
		o.startKeepOnTop(o.opts.KeepOnTopInterval)
	}
	o.win.Show()
	o.app.Run()
	o.stopOnce.Do(func() { close(o.stop) })
}

// Quit ends Run. Safe from any goroutine.
func (o *Overlay) Quit() {
	o.stopOnce.Do(func() { close(o.stop) })
	safeDo("overlay.quit", o.app.Quit)
}

// startKeepOnTop periodically raises the window on the UI goroutine.
func (o *Overlay) startKeepOnTop(interval time.Duration) {
	if interval <= 0 {
		return
	}
	safeGo("overlay.keep_on_top", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-o.stop:
				return
			case <-ticker.C:
				safeDo("overlay.raise", o.win.RequestFocus)
			}
		}
	})
}

// translateKey maps a window key event to a hotkey event kind.
func translateKey(name fyne.KeyName, modifier hotkey.Modifier, down bool) (hotkey.Kind, bool) {
	for _, k := range modifierKeys(modifier) {
		if k == name {
			if down {
				return hotkey.ModifierDown, true
			}
			return hotkey.ModifierUp, true
		}
	}
	if !down {
		return 0, false
	}
	switch name {
	case fyne.KeyRight:
		return hotkey.ArrowRight, true
	case fyne.KeyLeft:
		return hotkey.ArrowLeft, true
	case fyne.KeyEscape, fyne.KeyQ:
		return hotkey.Quit, true
	}
	return 0, false
}

func modifierKeys(m hotkey.Modifier) []fyne.KeyName {
	switch m {
	case hotkey.ModifierAlt:
		return []fyne.KeyName{desktop.KeyAltLeft, desktop.KeyAltRight}
	case hotkey.ModifierCtrl:
		return []fyne.KeyName{desktop.KeyControlLeft, desktop.KeyControlRight}
	case hotkey.ModifierShift:
		return []fyne.KeyName{desktop.KeyShiftLeft, desktop.KeyShiftRight}
	case hotkey.ModifierSuper:
		return []fyne.KeyName{desktop.KeySuperLeft, desktop.KeySuperRight}
	default:
		return nil
	}
}
