package overlay

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// overlayTheme paints the window background in a fixed color.
type overlayTheme struct {
	fyne.Theme
	background color.Color
}

func (t overlayTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	if n == theme.ColorNameBackground {
		return t.background
	}
	return t.Theme.Color(n, v)
}

// tapSurface covers the window and reports primary taps.
type tapSurface struct {
	widget.BaseWidget
	onTap func()
}

func newTapSurface(onTap func()) *tapSurface {
	s := &tapSurface{onTap: onTap}
	s.ExtendBaseWidget(s)
	return s
}

func (s *tapSurface) Tapped(_ *fyne.PointEvent) {
	if s.onTap != nil {
		s.onTap()
	}
}

func (s *tapSurface) Cursor() desktop.Cursor {
	return desktop.PointerCursor
}

func (s *tapSurface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

// shadowLayout stacks a shadow object under a front object, shifted down and
// right by offset.
type shadowLayout struct {
	offset float32
}

func (l *shadowLayout) Layout(objs []fyne.CanvasObject, size fyne.Size) {
	if len(objs) != 2 {
		return
	}
	inner := fyne.NewSize(size.Width-l.offset, size.Height-l.offset)
	objs[0].Move(fyne.NewPos(l.offset, l.offset))
	objs[0].Resize(inner)
	objs[1].Move(fyne.NewPos(0, 0))
	objs[1].Resize(inner)
}

func (l *shadowLayout) MinSize(objs []fyne.CanvasObject) fyne.Size {
	var size fyne.Size
	for _, o := range objs {
		size = size.Max(o.MinSize())
	}
	return size.AddWidthHeight(l.offset, l.offset)
}

// parseHexColor reads #rgb, #rgba, #rrggbb or #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
