package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oukeidos/tsov/internal/timeline"
)

// ParseTimestamp parses an SRT timestamp (HH:MM:SS,mmm) into a duration.
// A dot is accepted as the millisecond separator, and hours may exceed 23.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(strings.Replace(s, ".", ",", 1), ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid timestamp format: %s", s)
	}

	msStr := parts[1]
	if len(msStr) != 3 {
		return 0, fmt.Errorf("invalid millisecond format: %s", s)
	}
	ms, err := strconv.Atoi(msStr)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid milliseconds: %s", s)
	}

	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	hours, err := strconv.Atoi(hms[0])
	if err != nil || hours < 0 || hours > int(timeline.MaxTime/time.Hour) {
		return 0, fmt.Errorf("invalid hours: %s", s)
	}
	minutes, err := strconv.Atoi(hms[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes: %s", s)
	}
	seconds, err := strconv.Atoi(hms[2])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds: %s", s)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatTimestamp formats a duration as an SRT timestamp. Negative values
// are printed with a leading minus sign.
func FormatTimestamp(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond

	return fmt.Sprintf("%s%02d:%02d:%02d,%03d", sign, h, m, s, ms)
}

// ParseOffset reads a time position given either as seconds ("1080", "88.5")
// or as a timestamp ("00:18:00,000").
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time value")
	}
	if strings.Contains(s, ":") {
		return ParseTimestamp(s)
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid time value %q: use seconds or HH:MM:SS,mmm", s)
	}
	if secs < 0 {
		return 0, fmt.Errorf("time value must not be negative: %s", s)
	}
	if secs > timeline.MaxTime.Seconds() {
		return 0, fmt.Errorf("time value %s exceeds %s", s, timeline.MaxTime)
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond, nil
}
