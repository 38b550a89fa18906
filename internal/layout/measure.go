package layout

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gompdf/gompage/internal/style"
	"github.com/gompdf/gompage/internal/text"
)

// Measurer returns the advance width of a string in points
type Measurer interface {
	Width(s string, f text.Font) float64
}

// Measure names accepted by NewMeasurer
const (
	MeasureFont = "font"
	MeasureMono = "mono"
)

// NewMeasurer returns the measurer registered under name
func NewMeasurer(name string) (Measurer, error) {
	switch strings.ToLower(name) {
	case "", MeasureFont:
		return NewFontMeasurer(), nil
	case MeasureMono:
		return MonoMeasurer{}, nil
	}
	return nil, fmt.Errorf("unknown measure %q", name)
}

// FontMeasurer measures with the metrics of the PDF core fonts.
// It is safe for concurrent use.
type FontMeasurer struct {
	once sync.Once
	mu   sync.Mutex
	pdf  *fpdf.Fpdf
}

// NewFontMeasurer creates a measurer backed by fpdf's core font metrics
func NewFontMeasurer() *FontMeasurer {
	return &FontMeasurer{}
}

func (m *FontMeasurer) init() {
	m.pdf = fpdf.New("P", "pt", "A4", "")
	m.pdf.SetFont("Helvetica", "", 12)
}

// Width returns a font-aware width using fpdf metrics
func (m *FontMeasurer) Width(s string, f text.Font) float64 {
	if s == "" || f.Size <= 0 {
		return 0
	}
	m.once.Do(m.init)
	m.mu.Lock()
	defer m.mu.Unlock()
	family := f.Family
	if family == "" {
		family = "Helvetica"
	}
	m.pdf.SetFont(family, f.Style, f.Size)
	return m.pdf.GetStringWidth(s)
}

// MonoMeasurer advances every rune by half the font size
type MonoMeasurer struct{}

// Width implements Measurer
func (MonoMeasurer) Width(s string, f text.Font) float64 {
	return float64(utf8.RuneCountInString(s)) * f.Size * 0.5
}

// resolveFontFromStyle maps CSS-like style to core PDF font family and style
func resolveFontFromStyle(st style.ComputedStyle) (string, string) {
	family := "Helvetica"
	if ff := strings.TrimSpace(st.Get("font-family")); ff != "" {
		first := strings.Split(ff, ",")[0]
		first = strings.TrimSpace(strings.Trim(strings.TrimSpace(first), "'\""))
		switch strings.ToLower(first) {
		case "arial", "helvetica", "sans-serif":
			family = "Helvetica"
		case "times", "times new roman", "serif":
			family = "Times"
		case "courier", "courier new", "monospace":
			family = "Courier"
		}
	}
	styleStr := ""
	switch strings.TrimSpace(st.Get("font-weight")) {
	case "bold", "bolder", "600", "700", "800", "900":
		styleStr += "B"
	}
	switch strings.TrimSpace(st.Get("font-style")) {
	case "italic", "oblique":
		styleStr += "I"
	}
	return family, styleStr
}
