package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Font represents a font used for text measurement
type Font struct {
	Family     string
	Style      string
	Size       float64
	LineHeight float64 // multiple of Size
}

// Leading returns the height of one line set in f
func (f Font) Leading() float64 {
	if f.LineHeight <= 0 {
		return f.Size * 1.2
	}
	return f.Size * f.LineHeight
}

// Measure returns the advance width of s set in f
type Measure func(s string, f Font) float64

// Span is a stretch of inline text set in one font
type Span struct {
	Text string
	Font Font
}

// Line is one line of set text
type Line struct {
	Text   string
	Width  float64
	Height float64
}

// TextShaper breaks inline text into lines
type TextShaper struct {
	measure Measure
}

// NewTextShaper creates a new text shaper that measures with m
func NewTextShaper(m Measure) *TextShaper {
	return &TextShaper{measure: m}
}

// SplitTextToLines greedily fills lines no wider than maxWidth. A word wider
// than maxWidth gets a line of its own. Spans without words produce no lines.
func (s *TextShaper) SplitTextToLines(spans []Span, maxWidth float64) []Line {
	var lines []Line
	var cur Line
	var b strings.Builder
	pendingSpace := false

	flush := func() {
		if b.Len() == 0 {
			return
		}
		cur.Text = b.String()
		lines = append(lines, cur)
		cur = Line{}
		b.Reset()
	}

	for _, span := range spans {
		if r, _ := utf8.DecodeRuneInString(span.Text); unicode.IsSpace(r) {
			pendingSpace = true
		}
		words := splitIntoWords(span.Text)
		for i, word := range words {
			w := s.measure(word, span.Font)
			sep := 0.0
			if b.Len() > 0 && (pendingSpace || i > 0) {
				sep = s.measure(" ", span.Font)
			}
			if b.Len() > 0 && maxWidth > 0 && cur.Width+sep+w > maxWidth {
				flush()
				sep = 0
			}
			if sep > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word)
			cur.Width += sep + w
			cur.Height = max(cur.Height, span.Font.Leading())
			pendingSpace = false
		}
		if r, _ := utf8.DecodeLastRuneInString(span.Text); unicode.IsSpace(r) {
			pendingSpace = true
		}
	}
	flush()
	return lines
}

// PreformattedLines keeps every line break of the source and never wraps
func (s *TextShaper) PreformattedLines(spans []Span) []Line {
	var lines []Line
	var cur Line
	open := false
	for _, span := range spans {
		for i, part := range strings.Split(span.Text, "\n") {
			if i > 0 {
				lines = append(lines, cur)
				cur = Line{}
			}
			open = true
			cur.Text += part
			cur.Width += s.measure(part, span.Font)
			cur.Height = max(cur.Height, span.Font.Leading())
		}
	}
	if open && cur.Text != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitIntoWords splits text into words
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}
