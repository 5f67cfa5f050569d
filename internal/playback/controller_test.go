package playback

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/tsov/internal/timeline"
)

// fakeClock only moves when told to. In auto mode every After call advances
// the clock by the requested duration and fires immediately, so a whole
// timeline plays in a few milliseconds of real time.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	auto bool
}

func newFakeClock(auto bool) *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC), auto: auto}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	if !f.auto {
		return time.After(100 * time.Microsecond)
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type presenterCall struct {
	text  string
	clear bool
	at    time.Time
}

type recordingPresenter struct {
	mu    sync.Mutex
	clock Clock
	calls []presenterCall
}

func (p *recordingPresenter) ShowText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, presenterCall{text: text, at: p.clock.Now()})
}

func (p *recordingPresenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, presenterCall{clear: true, at: p.clock.Now()})
}

func (p *recordingPresenter) snapshot() []presenterCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenterCall(nil), p.calls...)
}

func (p *recordingPresenter) shown() []string {
	var out []string
	for _, c := range p.snapshot() {
		if !c.clear {
			out = append(out, c.text)
		}
	}
	return out
}

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, cues []timeline.Cue, clock *fakeClock) (*Controller, *recordingPresenter) {
	t.Helper()
	p := &recordingPresenter{clock: clock}
	c := New(cues, p, WithClock(clock), WithLogger(quietLogger()))
	t.Cleanup(c.Close)
	return c, p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func threeCues() []timeline.Cue {
	return []timeline.Cue{
		{Index: 1, Start: sec(1), End: sec(3), Text: "one"},
		{Index: 2, Start: sec(4), End: sec(6), Text: "two"},
		{Index: 3, Start: sec(8), End: sec(9), Text: "three"},
	}
}

func TestStart_PositionsPaused(t *testing.T) {
	clock := newFakeClock(false)
	c, p := newTestController(t, threeCues(), clock)

	if !c.Start(sec(3.5)) {
		t.Fatalf("Start() = false")
	}
	snap := c.Snapshot()
	if snap.State != StatePaused || snap.Cursor != 1 || snap.Position != sec(3.5) || snap.Total != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(p.snapshot()) != 0 {
		t.Fatalf("presenter should not be touched by Start, got %+v", p.snapshot())
	}
}

func TestStart_ShowsCueInProgressFirst(t *testing.T) {
	clock := newFakeClock(true)
	cues := []timeline.Cue{
		{Start: 0, End: sec(2), Text: "a"},
		{Start: sec(2), End: sec(4), Text: "b"},
	}
	c, p := newTestController(t, cues, clock)

	c.Start(sec(1))
	anchor := clock.Now().Add(-sec(1))
	c.Resume()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
	}

	var sawA bool
	for _, call := range p.snapshot() {
		if call.clear {
			continue
		}
		vt := call.at.Sub(anchor)
		switch call.text {
		case "a":
			sawA = true
		case "b":
			if !sawA {
				t.Fatalf("b shown before a")
			}
			if vt < sec(2) {
				t.Fatalf("b shown at virtual time %s, before 2s", vt)
			}
		}
	}
	if got := p.shown(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("shown = %v, want [a b]", got)
	}
}

func TestStart_SkipsElapsedCueSilently(t *testing.T) {
	clock := newFakeClock(true)
	cues := []timeline.Cue{
		{Start: sec(1), End: sec(3), Text: "gone"},
		{Start: sec(6), End: sec(7), Text: "kept"},
	}
	c, p := newTestController(t, cues, clock)

	c.Start(sec(5))
	if got := c.Cursor(); got != 1 {
		t.Fatalf("Cursor() = %d, want 1", got)
	}
	c.Resume()
	<-c.Done()

	for _, text := range p.shown() {
		if text == "gone" {
			t.Fatalf("elapsed cue was shown")
		}
	}
	if got := p.shown(); len(got) != 1 || got[0] != "kept" {
		t.Fatalf("shown = %v, want [kept]", got)
	}
}

func TestPauseResume_PreservesVirtualTime(t *testing.T) {
	clock := newFakeClock(false)
	c, p := newTestController(t, threeCues(), clock)

	c.Start(0)
	if !c.Resume() {
		t.Fatalf("Resume() = false")
	}
	if c.Resume() {
		t.Fatalf("second Resume() should be a no-op")
	}

	clock.Advance(sec(2))
	waitFor(t, "first cue shown", func() bool { return len(p.shown()) == 1 })

	before := c.Position()
	if !c.Pause() {
		t.Fatalf("Pause() = false")
	}
	if c.Pause() {
		t.Fatalf("second Pause() should be a no-op")
	}
	if got := c.Position(); got != before {
		t.Fatalf("position after pause = %s, want %s", got, before)
	}

	calls := p.snapshot()
	if last := calls[len(calls)-1]; !last.clear {
		t.Fatalf("pause should clear the overlay, last call %+v", last)
	}

	clock.Advance(sec(30))
	if got := c.Position(); got != before {
		t.Fatalf("virtual time moved while paused: %s", got)
	}

	c.Resume()
	if got := c.Position(); got != before {
		t.Fatalf("position after resume = %s, want %s", got, before)
	}
	waitFor(t, "cue shown again after resume", func() bool { return len(p.shown()) == 2 })
	if got := p.shown(); got[1] != "one" {
		t.Fatalf("resumed cue = %q, want %q", got[1], "one")
	}
}

func TestPause_NothingShownWhilePaused(t *testing.T) {
	clock := newFakeClock(false)
	c, p := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Resume()
	clock.Advance(sec(1.5))
	waitFor(t, "cue shown", func() bool { return len(p.shown()) == 1 })
	c.Pause()

	n := len(p.snapshot())
	clock.Advance(sec(5))
	time.Sleep(20 * time.Millisecond)
	if got := len(p.snapshot()); got != n {
		t.Fatalf("presenter called while paused: %+v", p.snapshot()[n:])
	}
}

func TestToggle(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Toggle()
	if got := c.State(); got != StatePlaying {
		t.Fatalf("State() = %s, want playing", got)
	}
	c.Toggle()
	if got := c.State(); got != StatePaused {
		t.Fatalf("State() = %s, want paused", got)
	}
}

func TestSkipNext_MovesAndPlays(t *testing.T) {
	clock := newFakeClock(false)
	c, p := newTestController(t, threeCues(), clock)

	c.Start(0)
	if !c.SkipNext() {
		t.Fatalf("SkipNext() = false")
	}
	snap := c.Snapshot()
	if snap.State != StatePlaying || snap.Cursor != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if want := sec(4) + DefaultLeadIn; snap.Position != want {
		t.Fatalf("Position = %s, want %s", snap.Position, want)
	}
	waitFor(t, "skipped-to cue shown", func() bool {
		s := p.shown()
		return len(s) == 1 && s[0] == "two"
	})
}

func TestSkipNext_AtLastIndexIsNoop(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(sec(8))
	if got := c.Cursor(); got != 2 {
		t.Fatalf("Cursor() = %d, want 2", got)
	}
	if c.SkipNext() {
		t.Fatalf("SkipNext() at last index should be a no-op")
	}
	snap := c.Snapshot()
	if snap.Cursor != 2 || snap.State != StatePaused || snap.Position != sec(8) {
		t.Fatalf("state changed by no-op skip: %+v", snap)
	}
}

func TestSkipPrevious_AtFirstIndexIsNoop(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Resume()
	if c.SkipPrevious() {
		t.Fatalf("SkipPrevious() at index 0 should be a no-op")
	}
	snap := c.Snapshot()
	if snap.Cursor != 0 || snap.State != StatePlaying {
		t.Fatalf("state changed by no-op skip: %+v", snap)
	}
}

func TestSkipPrevious_FromPastTheEnd(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(sec(60))
	if got := c.Cursor(); got != 3 {
		t.Fatalf("Cursor() = %d, want 3", got)
	}
	if !c.SkipPrevious() {
		t.Fatalf("SkipPrevious() = false")
	}
	if got := c.Cursor(); got != 2 {
		t.Fatalf("Cursor() = %d, want 2", got)
	}
}

func TestTerminated_CommandsAreNoops(t *testing.T) {
	clock := newFakeClock(true)
	c, p := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Resume()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("playback did not finish")
	}

	if got := c.State(); got != StateTerminated {
		t.Fatalf("State() = %s, want terminated", got)
	}
	if got := p.shown(); len(got) != 3 {
		t.Fatalf("shown = %v, want all three cues", got)
	}
	calls := p.snapshot()
	if !calls[len(calls)-1].clear {
		t.Fatalf("overlay not cleared at the end")
	}

	for name, cmd := range map[string]func() bool{
		"Resume":       c.Resume,
		"Pause":        c.Pause,
		"Toggle":       c.Toggle,
		"SkipNext":     c.SkipNext,
		"SkipPrevious": c.SkipPrevious,
		"Start":        func() bool { return c.Start(0) },
	} {
		if cmd() {
			t.Errorf("%s after termination should be a no-op", name)
		}
	}
	if got := c.State(); got != StateTerminated {
		t.Fatalf("State() = %s after commands, want terminated", got)
	}
}

func TestEvents_ReportTransitions(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Resume()
	c.Pause()

	var types []EventType
	for len(types) < 3 {
		select {
		case ev := <-c.Events():
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing events, got %v", types)
		}
	}
	for _, typ := range types {
		if typ != EventStateChanged {
			t.Fatalf("unexpected event %s in %v", typ, types)
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	clock := newFakeClock(false)
	c, _ := newTestController(t, threeCues(), clock)

	c.Start(0)
	c.Resume()
	c.Close()
	c.Close()
	if c.Resume() {
		t.Fatalf("Resume() after Close should be a no-op")
	}
	if got := c.State(); got != StatePaused {
		t.Fatalf("State() = %s, want paused", got)
	}
}

func TestOptions_ClampTick(t *testing.T) {
	c := New(nil, &recordingPresenter{clock: SystemClock()}, WithTick(time.Second), WithLeadIn(-time.Second))
	if c.tick != DefaultTick {
		t.Fatalf("tick = %s, want default", c.tick)
	}
	if c.leadIn != DefaultLeadIn {
		t.Fatalf("leadIn = %s, want default", c.leadIn)
	}
	c = New(nil, &recordingPresenter{clock: SystemClock()}, WithTick(5*time.Millisecond), WithLeadIn(0))
	if c.tick != 5*time.Millisecond || c.leadIn != 0 {
		t.Fatalf("options not applied: tick=%s leadIn=%s", c.tick, c.leadIn)
	}
}
