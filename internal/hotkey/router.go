// Package hotkey turns raw input events into playback commands, gated on a
// held modifier key so ordinary clicks and arrow presses pass through.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Kind is the type of an input event.
type Kind int

const (
	ModifierDown Kind = iota
	ModifierUp
	Click
	ArrowRight
	ArrowLeft
	Quit
)

func (k Kind) String() string {
	switch k {
	case ModifierDown:
		return "modifier_down"
	case ModifierUp:
		return "modifier_up"
	case Click:
		return "click"
	case ArrowRight:
		return "arrow_right"
	case ArrowLeft:
		return "arrow_left"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is a single input event from an InputSource.
type Event struct {
	Kind Kind
}

// Command is what the router did with an event.
type Command int

const (
	CommandNone Command = iota
	CommandToggle
	CommandSkipNext
	CommandSkipPrevious
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandToggle:
		return "toggle"
	case CommandSkipNext:
		return "skip_next"
	case CommandSkipPrevious:
		return "skip_previous"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Player is the part of the playback controller the router drives.
type Player interface {
	Toggle() bool
	SkipNext() bool
	SkipPrevious() bool
}

// Modifier names the key that must be held for commands.
type Modifier string

const (
	ModifierAlt   Modifier = "alt"
	ModifierCtrl  Modifier = "ctrl"
	ModifierShift Modifier = "shift"
	ModifierSuper Modifier = "super"
)

// ParseModifier accepts alt, ctrl, shift and super (case-insensitive, with a
// few common aliases).
func ParseModifier(s string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alt", "option", "opt":
		return ModifierAlt, nil
	case "ctrl", "control":
		return ModifierCtrl, nil
	case "shift":
		return ModifierShift, nil
	case "super", "cmd", "command", "meta", "win":
		return ModifierSuper, nil
	default:
		return "", fmt.Errorf("unsupported modifier %q (supported: alt, ctrl, shift, super)", s)
	}
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithoutModifier routes commands without requiring a held modifier.
func WithoutModifier() RouterOption {
	return func(r *Router) { r.requireModifier = false }
}

// WithQuit sets the function called on a Quit event.
func WithQuit(fn func()) RouterOption {
	return func(r *Router) { r.onQuit = fn }
}

// WithRouterLogger sets the logger for ignored and routed events.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// Router maps input events to Player commands.
type Router struct {
	player          Player
	held            atomic.Bool
	requireModifier bool
	onQuit          func()
	log             *slog.Logger
}

// NewRouter returns a router that requires the modifier by default.
func NewRouter(player Player, opts ...RouterOption) *Router {
	r := &Router{
		player:          player,
		requireModifier: true,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ModifierHeld reports whether the modifier is currently held.
func (r *Router) ModifierHeld() bool {
	return r.held.Load()
}

// Dispatch handles one event and returns the command it issued.
// It is safe to call from several input goroutines.
func (r *Router) Dispatch(ev Event) Command {
	switch ev.Kind {
	case ModifierDown:
		r.held.Store(true)
		return CommandNone
	case ModifierUp:
		r.held.Store(false)
		return CommandNone
	case Quit:
		if r.onQuit != nil {
			r.onQuit()
		}
		return CommandQuit
	}

	if r.requireModifier && !r.held.Load() {
		if ev.Kind == Click {
			r.log.Debug("Click ignored; hold the modifier key to toggle playback")
		}
		return CommandNone
	}

	switch ev.Kind {
	case Click:
		r.player.Toggle()
		return CommandToggle
	case ArrowRight:
		r.player.SkipNext()
		return CommandSkipNext
	case ArrowLeft:
		r.player.SkipPrevious()
		return CommandSkipPrevious
	default:
		r.log.Debug("Ignoring input event", "kind", ev.Kind)
		return CommandNone
	}
}
