// Package subtitle reads and writes subtitle files as timeline cues.
package subtitle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/asticode/go-astisub"
	"golang.org/x/text/encoding/charmap"

	"github.com/oukeidos/tsov/internal/apperrors"
	"github.com/oukeidos/tsov/internal/files"
	"github.com/oukeidos/tsov/internal/timeline"
)

var supportedExtensions = map[string]struct{}{
	".srt":  {},
	".vtt":  {},
	".ssa":  {},
	".ass":  {},
	".ttml": {},
	".stl":  {},
}

// SupportedExtensionsLabel lists the accepted subtitle file extensions.
const SupportedExtensionsLabel = ".srt, .vtt, .ssa, .ass, .ttml, .stl"

// ValidateExtension rejects paths whose extension is not a known subtitle format.
func ValidateExtension(kind, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; ok {
		return nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("unsupported %s extension %q (supported: %s)", kind, ext, SupportedExtensionsLabel)
}

// Load reads a subtitle file into cues. Text formats that are not valid UTF-8
// are decoded as ISO-8859-1.
func Load(path string) ([]timeline.Cue, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".stl" {
		// EBU STL is binary and carries its own character table.
		subs, err := astisub.OpenFile(path)
		if err != nil {
			return nil, apperrors.SourceUnreadable("", fmt.Errorf("%s: %w", path, err))
		}
		return fromAstisub(subs), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.SourceUnreadable("", err)
	}
	cues, err := Decode(bytes.NewReader(data), ext)
	if err != nil {
		return nil, apperrors.SourceUnreadable("", fmt.Errorf("%s: %w", path, err))
	}
	return cues, nil
}

// Decode parses subtitle text in the format named by ext (SRT when unknown).
func Decode(r io.Reader, ext string) ([]timeline.Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, err
	}

	var subs *astisub.Subtitles
	in := bytes.NewReader(data)
	switch strings.ToLower(ext) {
	case ".vtt":
		subs, err = astisub.ReadFromWebVTT(in)
	case ".ssa", ".ass":
		subs, err = astisub.ReadFromSSA(in)
	case ".ttml":
		subs, err = astisub.ReadFromTTML(in)
	default:
		subs, err = astisub.ReadFromSRT(in)
	}
	if err != nil {
		return nil, err
	}
	cues := fromAstisub(subs)
	if strings.EqualFold(ext, ".vtt") {
		cues = mergeSimultaneous(cues)
	}
	return cues, nil
}

// mergeSimultaneous joins consecutive cues that share start and end times,
// as WebVTT files often split one caption into several cues.
func mergeSimultaneous(cues []timeline.Cue) []timeline.Cue {
	if len(cues) < 2 {
		return cues
	}
	merged := make([]timeline.Cue, 0, len(cues))
	current := cues[0]
	for _, next := range cues[1:] {
		if next.Start == current.Start && next.End == current.End {
			current.Text += "\n" + next.Text
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)
	for i := range merged {
		merged[i].Index = i + 1
	}
	return merged
}

func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode as ISO-8859-1: %w", err)
	}
	return decoded, nil
}

// Validate checks that the cues can drive playback.
func Validate(cues []timeline.Cue) error {
	if len(cues) == 0 {
		return apperrors.SourceUnreadable("No subtitles found in file.", nil)
	}
	hasText := false
	for i, c := range cues {
		if strings.TrimSpace(c.Text) != "" {
			hasText = true
		}
		if c.End < c.Start {
			return apperrors.SourceUnreadable("", fmt.Errorf("end time is before start time at cue %d (%s --> %s)", i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End)))
		}
	}
	if !hasText {
		return apperrors.SourceUnreadable("File contains subtitles but no dialogue text.", nil)
	}
	return nil
}

func fromAstisub(subs *astisub.Subtitles) []timeline.Cue {
	cues := make([]timeline.Cue, 0, len(subs.Items))
	for i, item := range subs.Items {
		lines := make([]string, 0, len(item.Lines))
		for _, l := range item.Lines {
			lines = append(lines, l.String())
		}
		cues = append(cues, timeline.Cue{
			Index: i + 1,
			Start: item.StartAt,
			End:   item.EndAt,
			Text:  strings.Join(lines, "\n"),
		})
	}
	return cues
}

func toAstisub(cues []timeline.Cue) *astisub.Subtitles {
	subs := astisub.NewSubtitles()
	// WriteToSSA dereferences Metadata.
	subs.Metadata = &astisub.Metadata{SSAScriptType: "v4.00+"}
	for _, c := range cues {
		item := &astisub.Item{StartAt: c.Start, EndAt: c.End}
		for _, l := range strings.Split(c.Text, "\n") {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: l}},
			})
		}
		subs.Items = append(subs.Items, item)
	}
	return subs
}

// Encode writes cues in the format named by ext (SRT when unknown).
func Encode(w io.Writer, cues []timeline.Cue, ext string) error {
	subs := toAstisub(cues)
	switch strings.ToLower(ext) {
	case ".vtt":
		return subs.WriteToWebVTT(w)
	case ".ssa", ".ass":
		return subs.WriteToSSA(w)
	case ".ttml":
		return subs.WriteToTTML(w)
	case ".stl":
		return subs.WriteToSTL(w)
	default:
		return subs.WriteToSRT(w)
	}
}

// Save writes cues to path atomically, choosing the format by extension.
func Save(path string, cues []timeline.Cue) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cues, filepath.Ext(path)); err != nil {
		return fmt.Errorf("failed to encode subtitles: %w", err)
	}
	return files.AtomicWrite(path, buf.Bytes(), 0600)
}
