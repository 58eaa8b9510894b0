package receipt

import "strings"

// ESC/POS control sequences for a 42-column thermal printer.
const (
	ctlInit        = "\x1b@"
	ctlAlignLeft   = "\x1ba\x00"
	ctlAlignCenter = "\x1ba\x01"
	ctlBoldOn      = "\x1bE\x01"
	ctlBoldOff     = "\x1bE\x00"
	ctlSizeDouble  = "\x1d!\x11"
	ctlSizeNormal  = "\x1d!\x00"
	ctlCut         = "\x1dVB\x00"
)

// LineWidth is the printable width in characters of the target paper.
const LineWidth = 42

// Segment is one element of a print payload: either raw ESC/POS text or a
// tagged image reference (logo on the cash receipt).
type Segment struct {
	Text  string        `json:"text,omitempty"`
	Image *ImageSegment `json:"image,omitempty"`
}

// ImageSegment carries the format/flavor/source triple the print service
// expects for rendering an image inline.
type ImageSegment struct {
	Format  string       `json:"format"`
	Flavor  string       `json:"flavor"`
	Source  string       `json:"source"`
	Options ImageOptions `json:"options"`
}

type ImageOptions struct {
	Language   string `json:"language"`
	DotDensity string `json:"dotDensity"`
}

// Builder accumulates ESC/POS text and image segments in order. The zero
// value is ready to use.
type Builder struct {
	segments []Segment
	text     strings.Builder
}

func (b *Builder) raw(s string) *Builder {
	b.text.WriteString(s)
	return b
}

func (b *Builder) Init() *Builder        { return b.raw(ctlInit) }
func (b *Builder) AlignLeft() *Builder   { return b.raw(ctlAlignLeft) }
func (b *Builder) AlignCenter() *Builder { return b.raw(ctlAlignCenter) }
func (b *Builder) BoldOn() *Builder      { return b.raw(ctlBoldOn) }
func (b *Builder) BoldOff() *Builder     { return b.raw(ctlBoldOff) }
func (b *Builder) SizeDouble() *Builder  { return b.raw(ctlSizeDouble) }
func (b *Builder) SizeNormal() *Builder  { return b.raw(ctlSizeNormal) }

// Line appends s followed by a line feed.
func (b *Builder) Line(s string) *Builder {
	return b.raw(s + "\n")
}

// Rule appends a full-width dashed separator.
func (b *Builder) Rule() *Builder {
	return b.Line(strings.Repeat("-", LineWidth))
}

// Feed appends n blank lines.
func (b *Builder) Feed(n int) *Builder {
	return b.raw(strings.Repeat("\n", n))
}

func (b *Builder) Cut() *Builder {
	return b.raw(ctlCut)
}

// Image flushes any pending text and appends an image segment referencing src.
func (b *Builder) Image(src string) *Builder {
	b.flush()
	b.segments = append(b.segments, Segment{Image: &ImageSegment{
		Format:  "image",
		Flavor:  "file",
		Source:  src,
		Options: ImageOptions{Language: "ESCPOS", DotDensity: "double"},
	}})
	return b
}

func (b *Builder) flush() {
	if b.text.Len() > 0 {
		b.segments = append(b.segments, Segment{Text: b.text.String()})
		b.text.Reset()
	}
}

// Segments returns the accumulated payload.
func (b *Builder) Segments() []Segment {
	b.flush()
	return b.segments
}

// padRight truncates or right-pads s to exactly width characters. Names are
// never wrapped; overflow is dropped to preserve column alignment.
func padRight(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft truncates or left-pads s to exactly width characters.
func padLeft(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}
