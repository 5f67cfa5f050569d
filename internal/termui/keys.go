package termui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/oukeidos/tsov/internal/cleanup"
	"github.com/oukeidos/tsov/internal/hotkey"
	"github.com/oukeidos/tsov/internal/logger"
)

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1b
)

// KeyReader turns terminal key presses into hotkey events.
type KeyReader struct {
	in io.Reader
	fd int
	// isTerminal is false for pipes and files, which are read as-is.
	isTerminal bool
}

// NewKeyReader reads keys from f, usually os.Stdin.
func NewKeyReader(f *os.File) *KeyReader {
	fd := int(f.Fd())
	return &KeyReader{in: f, fd: fd, isTerminal: term.IsTerminal(fd)}
}

// EnableRawMode switches the terminal to raw mode so single key presses are
// delivered without Enter. The previous mode is restored by cleanup.RunAll.
func (k *KeyReader) EnableRawMode() error {
	if !k.isTerminal {
		return nil
	}
	state, err := term.MakeRaw(k.fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	cleanup.Register("restore terminal", func() error {
		return term.Restore(k.fd, state)
	})
	return nil
}

// Run reads until EOF, a read error, a Quit key or ctx is done, passing each
// event to dispatch. EOF is not an error.
func (k *KeyReader) Run(ctx context.Context, dispatch func(hotkey.Event)) error {
	buf := make([]byte, 64)
	var pending []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := k.in.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var events []hotkey.Event
			events, pending = parseKeys(pending)
			for _, ev := range events {
				dispatch(ev)
				if ev.Kind == hotkey.Quit {
					return nil
				}
			}
		}
		if errors.Is(err, io.EOF) {
			logger.Debug("Key input closed")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read keys: %w", err)
		}
	}
}

// parseKeys decodes complete key presses from buf and returns the bytes of
// an incomplete escape sequence left at its end.
func parseKeys(buf []byte) ([]hotkey.Event, []byte) {
	var events []hotkey.Event
	emit := func(k hotkey.Kind) { events = append(events, hotkey.Event{Kind: k}) }

	i := 0
	for i < len(buf) {
		c := buf[i]
		if c == keyEsc {
			if i+1 >= len(buf) || (buf[i+1] == '[' && i+2 >= len(buf)) {
				return events, append([]byte(nil), buf[i:]...)
			}
			if buf[i+1] != '[' {
				i++
				continue
			}
			switch buf[i+2] {
			case 'C':
				emit(hotkey.ArrowRight)
			case 'D':
				emit(hotkey.ArrowLeft)
			}
			i += 3
			continue
		}
		switch c {
		case ' ', '\n':
			emit(hotkey.Click)
		case '\r':
			emit(hotkey.Click)
			if i+1 < len(buf) && buf[i+1] == '\n' {
				i++
			}
		case 'n', 'l':
			emit(hotkey.ArrowRight)
		case 'p', 'h':
			emit(hotkey.ArrowLeft)
		case 'q', 'Q', keyCtrlC:
			emit(hotkey.Quit)
		}
		i++
	}
	return events, nil
}
