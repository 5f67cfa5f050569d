package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oukeidos/tsov/internal/timeline"
)

const (
	// DefaultTick is the display loop polling granularity.
	DefaultTick = 10 * time.Millisecond
	// MaxTick bounds pause and skip latency.
	MaxTick = 10 * time.Millisecond
	// DefaultLeadIn is added to a cue start on skip so the loop does not
	// treat the freshly selected cue as already elapsed.
	DefaultLeadIn = 2 * time.Millisecond

	defaultEventBuffer = 32
)

// Presenter renders the current subtitle line.
// Implementations must be safe to call from any goroutine and must not block
// waiting on the goroutine that issues playback commands.
type Presenter interface {
	ShowText(text string)
	Clear()
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTick sets the polling granularity. Values outside (0, MaxTick] are ignored.
func WithTick(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 && d <= MaxTick {
			c.tick = d
		}
	}
}

// WithLeadIn sets the offset added to a cue start when skipping to it.
func WithLeadIn(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.leadIn = d
		}
	}
}

// WithLogger sets the logger used for playback diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.eventCh = make(chan Event, n)
		}
	}
}

// loopHandle identifies one run of the display loop.
type loopHandle struct {
	stop chan struct{}
	done chan struct{}
}

func (h *loopHandle) stopAndWait() {
	close(h.stop)
	<-h.done
}

// Controller owns the playback state and the display loop.
type Controller struct {
	// cmdMu serializes commands so each transition, including waiting for
	// the previous loop to exit, is atomic to callers.
	cmdMu sync.Mutex

	// mu guards everything below; the display loop only takes mu.
	mu       sync.Mutex
	cues     []timeline.Cue
	cursor   int
	state    State
	anchor   time.Time     // wall-clock instant of virtual time 0 while playing
	position time.Duration // virtual time while paused
	loop     *loopHandle
	closed   bool

	presenter Presenter
	clock     Clock
	log       *slog.Logger
	tick      time.Duration
	leadIn    time.Duration

	eventCh  chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a paused controller positioned at the first cue.
func New(cues []timeline.Cue, presenter Presenter, opts ...Option) *Controller {
	c := &Controller{
		cues:      cues,
		state:     StatePaused,
		presenter: presenter,
		clock:     SystemClock(),
		log:       slog.Default(),
		tick:      DefaultTick,
		leadIn:    DefaultLeadIn,
		eventCh:   make(chan Event, defaultEventBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the event channel. Events are dropped when it is full.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Done is closed once every cue has been played.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Start positions the cursor for playback from offset and leaves the
// controller paused with its virtual clock at offset.
func (c *Controller) Start(offset time.Duration) bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.closed || c.state == StateTerminated {
		c.mu.Unlock()
		return false
	}
	h := c.detachLoopLocked()
	c.cursor = timeline.StartIndex(c.cues, offset)
	c.position = offset
	c.state = StatePaused
	cursor := c.cursor
	c.mu.Unlock()

	if h != nil {
		h.stopAndWait()
		c.presenter.Clear()
	}
	c.log.Info("Playback positioned", "offset", offset, "cursor", cursor, "total", len(c.cues))
	c.emit(Event{Type: EventStateChanged, State: StatePaused, Cursor: cursor, Position: offset})
	return true
}

// Resume starts the virtual clock from where it was frozen.
func (c *Controller) Resume() bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.resume()
}

// Pause freezes the virtual clock and clears the overlay.
func (c *Controller) Pause() bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.pause()
}

// Toggle pauses a playing controller and resumes a paused one.
func (c *Controller) Toggle() bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.State() == StatePlaying {
		return c.pause()
	}
	return c.resume()
}

// SkipNext moves to the next cue and plays from its start.
func (c *Controller) SkipNext() bool {
	return c.skip(1)
}

// SkipPrevious moves to the previous cue and plays from its start.
func (c *Controller) SkipPrevious() bool {
	return c.skip(-1)
}

// Close stops the display loop and clears the overlay. Further commands are ignored.
func (c *Controller) Close() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.state == StatePlaying {
		c.position = c.virtualNowLocked()
		c.state = StatePaused
	}
	h := c.detachLoopLocked()
	c.mu.Unlock()

	c.stopLoop(h)
	c.presenter.Clear()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the index of the current or next cue.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Position returns the current virtual time.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Snapshot returns state, cursor and virtual time read atomically.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:    c.state,
		Cursor:   c.cursor,
		Total:    len(c.cues),
		Position: c.positionLocked(),
	}
}

func (c *Controller) resume() bool {
	c.mu.Lock()
	if c.closed || c.state != StatePaused {
		c.mu.Unlock()
		return false
	}
	c.startLoopLocked()
	ev := Event{Type: EventStateChanged, State: c.state, Cursor: c.cursor, Position: c.position}
	c.mu.Unlock()

	c.log.Info("Playback resumed", "position", ev.Position, "cursor", ev.Cursor)
	c.emit(ev)
	return true
}

func (c *Controller) pause() bool {
	c.mu.Lock()
	if c.closed || c.state != StatePlaying {
		c.mu.Unlock()
		return false
	}
	c.position = c.virtualNowLocked()
	c.state = StatePaused
	h := c.detachLoopLocked()
	ev := Event{Type: EventStateChanged, State: c.state, Cursor: c.cursor, Position: c.position}
	c.mu.Unlock()

	c.stopLoop(h)
	c.presenter.Clear()
	c.log.Info("Playback paused", "position", ev.Position, "cursor", ev.Cursor)
	c.emit(ev)
	return true
}

func (c *Controller) skip(delta int) bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	if c.closed || c.state == StateTerminated {
		c.mu.Unlock()
		return false
	}
	target := c.cursor + delta
	if target < 0 || target >= len(c.cues) {
		cursor := c.cursor
		c.mu.Unlock()
		c.log.Debug("Skip ignored at timeline boundary", "cursor", cursor, "target", target, "total", len(c.cues))
		return false
	}
	// Forced pause: the running loop must be gone before the cursor moves.
	if c.state == StatePlaying {
		c.position = c.virtualNowLocked()
		c.state = StatePaused
	}
	h := c.detachLoopLocked()
	c.mu.Unlock()

	c.stopLoop(h)
	c.presenter.Clear()

	c.mu.Lock()
	c.cursor = target
	c.position = c.cues[target].Start + c.leadIn
	c.startLoopLocked()
	ev := Event{Type: EventSeeked, State: c.state, Cursor: c.cursor, Position: c.position}
	c.mu.Unlock()

	c.log.Info("Skipped to cue", "cursor", target, "position", ev.Position)
	c.emit(ev)
	return true
}

// startLoopLocked anchors the virtual clock at position and launches a loop.
// No other loop may be attached.
func (c *Controller) startLoopLocked() {
	c.anchor = c.clock.Now().Add(-c.position)
	c.state = StatePlaying
	h := &loopHandle{stop: make(chan struct{}), done: make(chan struct{})}
	c.loop = h
	go c.run(h)
}

func (c *Controller) detachLoopLocked() *loopHandle {
	h := c.loop
	c.loop = nil
	return h
}

func (c *Controller) stopLoop(h *loopHandle) {
	if h != nil {
		h.stopAndWait()
	}
}

func (c *Controller) virtualNowLocked() time.Duration {
	return c.clock.Now().Sub(c.anchor)
}

func (c *Controller) positionLocked() time.Duration {
	if c.state == StatePlaying {
		return c.virtualNowLocked()
	}
	return c.position
}

type loopAction int

const (
	actionNone loopAction = iota
	actionShow
	actionClear
	actionSkip
)

// run is the display loop. It exits as soon as it is detached, and never
// touches the presenter after noticing that.
func (c *Controller) run(h *loopHandle) {
	defer close(h.done)

	shown := -1
	for {
		c.mu.Lock()
		if c.loop != h {
			c.mu.Unlock()
			return
		}
		vt := c.virtualNowLocked()
		if c.cursor >= len(c.cues) {
			c.position = vt
			c.state = StateTerminated
			c.loop = nil
			cursor := c.cursor
			c.mu.Unlock()

			c.presenter.Clear()
			c.log.Info("All subtitles displayed", "position", vt)
			c.emit(Event{Type: EventStateChanged, State: StateTerminated, Cursor: cursor, Position: vt})
			c.doneOnce.Do(func() { close(c.done) })
			return
		}

		idx := c.cursor
		cue := c.cues[idx]
		action := actionNone
		var wait time.Duration
		switch {
		case vt < cue.Start:
			wait = cue.Start - vt
		case vt < cue.End:
			if shown != idx {
				action = actionShow
				shown = idx
			}
			wait = cue.End - vt
		default:
			c.cursor++
			if shown == idx {
				action = actionClear
			} else {
				action = actionSkip
			}
			shown = -1
		}
		c.mu.Unlock()

		switch action {
		case actionShow:
			c.presenter.ShowText(cue.Text)
			c.log.Debug("Displaying subtitle", "cursor", idx, "remaining", cue.End-vt, "text", cue.Text)
			c.emit(Event{Type: EventCueShown, State: StatePlaying, Cursor: idx, Position: vt, Text: cue.Text})
		case actionClear:
			c.presenter.Clear()
			c.emit(Event{Type: EventCueCleared, State: StatePlaying, Cursor: idx, Position: vt, Text: cue.Text})
		case actionSkip:
			c.log.Debug("Skipped elapsed subtitle", "cursor", idx, "text", cue.Text)
			c.emit(Event{Type: EventCueSkipped, State: StatePlaying, Cursor: idx, Position: vt, Text: cue.Text})
		}

		if wait <= 0 {
			continue
		}
		if wait > c.tick {
			wait = c.tick
		}
		select {
		case <-h.stop:
			return
		case <-c.clock.After(wait):
		}
	}
}

func (c *Controller) emit(ev Event) {
	select {
	case c.eventCh <- ev:
	default:
	}
}
