// Package termui draws subtitles in the terminal and reads playback keys
// from stdin.
package termui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"github.com/oukeidos/tsov/internal/logger"
)

const defaultWidth = 80

// Options are the terminal presenter settings from presenter.settings.
type Options struct {
	// Width overrides the detected terminal width when positive.
	Width int  `mapstructure:"width" validate:"gte=0"`
	Bold  bool `mapstructure:"bold"`
}

// Presenter writes the current cue centered on the terminal, replacing the
// block it drew before.
type Presenter struct {
	mu    sync.Mutex
	w     io.Writer
	width func() int
	bold  bool
	drawn int
	// writeFailed limits write error logging to the first failure.
	writeFailed bool
}

// NewPresenter returns a presenter that writes to out. When out is a
// terminal its width is queried on every cue.
func NewPresenter(out *os.File, opts Options) *Presenter {
	width := func() int { return terminalWidth(int(out.Fd())) }
	if opts.Width > 0 {
		w := opts.Width
		width = func() int { return w }
	}
	return newPresenter(out, width, opts.Bold)
}

func newPresenter(w io.Writer, width func() int, bold bool) *Presenter {
	return &Presenter{w: w, width: width, bold: bold}
}

func terminalWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// ShowText replaces the displayed block with text.
func (p *Presenter) ShowText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.eraseLocked()
	width := p.width()
	var b strings.Builder
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = truncate(line, width)
		if pad := (width - uniseg.StringWidth(line)) / 2; pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if p.bold {
			b.WriteString("\033[1m" + line + "\033[0m")
		} else {
			b.WriteString(line)
		}
		// Raw mode does not translate \n.
		b.WriteString("\r\n")
	}
	p.writeLocked(b.String())
	p.drawn = len(lines)
}

// Clear removes the displayed block.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eraseLocked()
}

func (p *Presenter) eraseLocked() {
	if p.drawn == 0 {
		return
	}
	p.writeLocked(fmt.Sprintf("\033[%dA\r\033[J", p.drawn))
	p.drawn = 0
}

func (p *Presenter) writeLocked(s string) {
	if _, err := io.WriteString(p.w, s); err != nil && !p.writeFailed {
		p.writeFailed = true
		logger.Debug("Terminal write failed", "error", err)
	}
}

// truncate cuts s to at most width terminal cells on a grapheme boundary.
func truncate(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > width {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String()
}
