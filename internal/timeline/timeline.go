// Package timeline holds the subtitle cue model and the affine rescaling
// used to line a subtitle file up with the media it belongs to.
package timeline

import (
	"fmt"
	"math"
	"time"

	"github.com/oukeidos/tsov/internal/apperrors"
)

// Cue is a single subtitle entry. Text joins multi-line entries with "\n".
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns how long the cue stays on screen.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Contains reports whether t falls inside [Start, End).
func (c Cue) Contains(t time.Duration) bool {
	return c.Start <= t && t < c.End
}

// RescaleOptions describes the transform applied by Rescale.
// FirstTime moves the first cue; LastTime stretches the whole timeline so the
// last cue ends there and takes precedence over ScalingFactor.
type RescaleOptions struct {
	FirstTime     *time.Duration
	LastTime      *time.Duration
	ScalingFactor float64 // 0 means 1.0
}

// MaxTime bounds every timestamp Rescale produces.
const MaxTime = 1000 * time.Hour

// Rescale maps every timestamp t to (t - originalStart) * factor + anchor.
// The input is treated as the original timeline; a new slice is returned.
func Rescale(cues []Cue, opts RescaleOptions) ([]Cue, error) {
	if len(cues) == 0 {
		return []Cue{}, nil
	}

	originalStart := cues[0].Start
	originalEnd := cues[len(cues)-1].End

	anchor := originalStart
	if opts.FirstTime != nil {
		anchor = *opts.FirstTime
	}

	factor := opts.ScalingFactor
	if factor == 0 {
		factor = 1.0
	}
	if opts.LastTime != nil {
		span := originalEnd - originalStart
		if span == 0 {
			return nil, apperrors.DegenerateRescale(
				"Cannot stretch a zero-length subtitle timeline to a last time.",
				fmt.Errorf("first cue start and last cue end are both %s", originalStart),
			)
		}
		factor = float64(*opts.LastTime-anchor) / float64(span)
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return nil, apperrors.DegenerateRescale(
			"Rescaling factor must be a positive number.",
			fmt.Errorf("factor = %v", factor),
		)
	}

	scale := func(t time.Duration) (time.Duration, error) {
		scaled := float64(t-originalStart)*factor + float64(anchor)
		if math.Abs(scaled) > float64(MaxTime) {
			return 0, apperrors.DegenerateRescale(
				"Rescaled subtitle times are out of range.",
				fmt.Errorf("%s maps beyond %s (factor = %v)", t, MaxTime, factor),
			)
		}
		return roundToMillisecond(time.Duration(math.Round(scaled-float64(anchor)))) + anchor, nil
	}

	out := make([]Cue, len(cues))
	for i, c := range cues {
		start, err := scale(c.Start)
		if err != nil {
			return nil, err
		}
		end, err := scale(c.End)
		if err != nil {
			return nil, err
		}
		out[i] = Cue{
			Index: c.Index,
			Start: start,
			End:   end,
			Text:  c.Text,
		}
	}
	return out, nil
}

func roundToMillisecond(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

// StartIndex returns the cursor position for playback starting at offset:
// the cue still on screen at offset if there is one, otherwise the first cue
// starting at or after offset, otherwise len(cues).
func StartIndex(cues []Cue, offset time.Duration) int {
	for i, c := range cues {
		if c.Start >= offset || c.End > offset {
			return i
		}
	}
	return len(cues)
}

// Span returns the start of the first cue and the end of the last one.
func Span(cues []Cue) (start, end time.Duration) {
	if len(cues) == 0 {
		return 0, 0
	}
	return cues[0].Start, cues[len(cues)-1].End
}
