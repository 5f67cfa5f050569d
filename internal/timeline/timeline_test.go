package timeline

import (
	"math"
	"testing"
	"time"

	"github.com/oukeidos/tsov/internal/apperrors"
)

func sec(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func ptr(d time.Duration) *time.Duration { return &d }

func TestRescale(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0, End: sec(2), Text: "first"},
		{Index: 2, Start: sec(5), End: sec(7), Text: "second"},
		{Index: 3, Start: sec(90), End: sec(100), Text: "last"},
	}

	tests := []struct {
		name      string
		opts      RescaleOptions
		wantStart []time.Duration
		wantEnd   []time.Duration
	}{
		{
			name:      "identity",
			opts:      RescaleOptions{},
			wantStart: []time.Duration{0, sec(5), sec(90)},
			wantEnd:   []time.Duration{sec(2), sec(7), sec(100)},
		},
		{
			name:      "first time with factor",
			opts:      RescaleOptions{FirstTime: ptr(sec(10)), ScalingFactor: 2.0},
			wantStart: []time.Duration{sec(10), sec(20), sec(190)},
			wantEnd:   []time.Duration{sec(14), sec(24), sec(210)},
		},
		{
			name:      "last time overrides factor",
			opts:      RescaleOptions{FirstTime: ptr(0), LastTime: ptr(sec(50)), ScalingFactor: 3.0},
			wantStart: []time.Duration{0, sec(2.5), sec(45)},
			wantEnd:   []time.Duration{sec(1), sec(3.5), sec(50)},
		},
		{
			name:      "last time without first time keeps original start",
			opts:      RescaleOptions{LastTime: ptr(sec(200))},
			wantStart: []time.Duration{0, sec(10), sec(180)},
			wantEnd:   []time.Duration{sec(4), sec(14), sec(200)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rescale(cues, tt.opts)
			if err != nil {
				t.Fatalf("Rescale() error = %v", err)
			}
			if len(got) != len(cues) {
				t.Fatalf("Rescale() returned %d cues, want %d", len(got), len(cues))
			}
			for i := range got {
				if got[i].Start != tt.wantStart[i] || got[i].End != tt.wantEnd[i] {
					t.Errorf("cue %d = [%s, %s], want [%s, %s]", i, got[i].Start, got[i].End, tt.wantStart[i], tt.wantEnd[i])
				}
				if got[i].Text != cues[i].Text || got[i].Index != cues[i].Index {
					t.Errorf("cue %d lost text or index: %+v", i, got[i])
				}
			}
		})
	}
}

func TestRescale_DoesNotMutateInput(t *testing.T) {
	cues := []Cue{{Start: sec(1), End: sec(2), Text: "a"}}
	if _, err := Rescale(cues, RescaleOptions{FirstTime: ptr(sec(30))}); err != nil {
		t.Fatalf("Rescale() error = %v", err)
	}
	if cues[0].Start != sec(1) {
		t.Fatalf("input was modified: %+v", cues[0])
	}
}

func TestRescale_NonZeroOriginalStart(t *testing.T) {
	cues := []Cue{
		{Start: sec(4), End: sec(6), Text: "a"},
		{Start: sec(9), End: sec(10), Text: "b"},
	}
	got, err := Rescale(cues, RescaleOptions{FirstTime: ptr(sec(10)), ScalingFactor: 2.0})
	if err != nil {
		t.Fatalf("Rescale() error = %v", err)
	}
	if got[0].Start != sec(10) {
		t.Errorf("first start = %s, want 10s", got[0].Start)
	}
	// 5s after the original start becomes 10s after the new one.
	if got[1].Start != sec(20) {
		t.Errorf("second start = %s, want 20s", got[1].Start)
	}
}

func TestRescale_Degenerate(t *testing.T) {
	cues := []Cue{{Start: sec(3), End: sec(3), Text: "flash"}}

	_, err := Rescale(cues, RescaleOptions{LastTime: ptr(sec(10))})
	if err == nil {
		t.Fatalf("expected error for zero-length timeline")
	}
	if !apperrors.Is(err, apperrors.KindDegenerateRescale) {
		t.Fatalf("expected degenerate rescale kind, got %v", err)
	}

	got, err := Rescale(cues, RescaleOptions{ScalingFactor: 2})
	if err != nil {
		t.Fatalf("zero-length timeline without last time should rescale, got %v", err)
	}
	if got[0].Start != sec(3) || got[0].End != sec(3) {
		t.Fatalf("unexpected cue %+v", got[0])
	}
}

func TestRescale_RejectsNonPositiveFactor(t *testing.T) {
	cues := []Cue{{Start: sec(10), End: sec(20)}}

	tests := []struct {
		name string
		opts RescaleOptions
	}{
		{"negative factor", RescaleOptions{ScalingFactor: -1}},
		{"last time before first time", RescaleOptions{FirstTime: ptr(sec(30)), LastTime: ptr(sec(5))}},
		{"last time equals first time", RescaleOptions{LastTime: ptr(sec(10))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Rescale(cues, tt.opts); !apperrors.Is(err, apperrors.KindDegenerateRescale) {
				t.Fatalf("Rescale() error = %v, want degenerate rescale", err)
			}
		})
	}
}

func TestRescale_RejectsOutOfRangeTimes(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: sec(1)},
		{Start: time.Hour, End: time.Hour + sec(1)},
	}

	tests := []struct {
		name string
		opts RescaleOptions
	}{
		{"huge factor", RescaleOptions{ScalingFactor: 1e10}},
		{"huge last time", RescaleOptions{LastTime: ptr(time.Duration(math.MaxInt64))}},
		{"huge first time", RescaleOptions{FirstTime: ptr(MaxTime)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Rescale(cues, tt.opts); !apperrors.Is(err, apperrors.KindDegenerateRescale) {
				t.Fatalf("Rescale() error = %v, want degenerate rescale", err)
			}
		})
	}
}

func TestRescale_Empty(t *testing.T) {
	got, err := Rescale(nil, RescaleOptions{LastTime: ptr(sec(5))})
	if err != nil || len(got) != 0 {
		t.Fatalf("Rescale(nil) = (%v, %v), want empty", got, err)
	}
}

func TestStartIndex(t *testing.T) {
	cues := []Cue{
		{Start: 0, End: sec(2)},
		{Start: sec(2), End: sec(4)},
		{Start: sec(10), End: sec(12)},
	}

	tests := []struct {
		name   string
		offset time.Duration
		want   int
	}{
		{"zero", 0, 0},
		{"inside first cue", sec(1), 0},
		{"at end of first cue", sec(2), 1},
		{"in gap", sec(5), 2},
		{"past last cue", sec(20), 3},
		{"at end of last cue", sec(12), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartIndex(cues, tt.offset); got != tt.want {
				t.Fatalf("StartIndex(%s) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}
