package layout

import (
	"sync"
	"testing"

	"github.com/gompdf/gompage/internal/style"
	"github.com/gompdf/gompage/internal/text"
)

func TestFontMeasurer(t *testing.T) {
	m := NewFontMeasurer()
	regular := m.Width("hello", text.Font{Family: "Helvetica", Size: 12})
	bold := m.Width("hello", text.Font{Family: "Helvetica", Style: "B", Size: 12})
	if regular <= 0 {
		t.Fatalf("Width = %v, want positive", regular)
	}
	if bold <= regular {
		t.Errorf("bold width %v is not wider than regular %v", bold, regular)
	}
	if got := m.Width("hello", text.Font{Family: "Helvetica", Size: 24}); !near(got, 2*regular) {
		t.Errorf("width at double size = %v, want %v", got, 2*regular)
	}
	if got := m.Width("", text.Font{Size: 12}); got != 0 {
		t.Errorf("Width of empty string = %v", got)
	}
}

func TestFontMeasurerConcurrent(t *testing.T) {
	m := NewFontMeasurer()
	want := m.Width("concurrent", text.Font{Family: "Times", Size: 10})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := m.Width("concurrent", text.Font{Family: "Times", Size: 10}); got != want {
				t.Errorf("Width = %v, want %v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestNewMeasurer(t *testing.T) {
	if m, err := NewMeasurer("mono"); err != nil || m.Width("ab", text.Font{Size: 10}) != 10 {
		t.Errorf("NewMeasurer(mono) = %v, %v", m, err)
	}
	if _, err := NewMeasurer("font"); err != nil {
		t.Errorf("NewMeasurer(font) error = %v", err)
	}
	if _, err := NewMeasurer("braille"); err == nil {
		t.Error("NewMeasurer(braille) succeeded")
	}
}

func TestResolveFontFromStyle(t *testing.T) {
	tests := []struct {
		st            style.ComputedStyle
		family, style string
	}{
		{style.ComputedStyle{}, "Helvetica", ""},
		{style.ComputedStyle{"font-family": {Value: "'Times New Roman', serif"}}, "Times", ""},
		{style.ComputedStyle{"font-family": {Value: "monospace"}, "font-weight": {Value: "700"}}, "Courier", "B"},
		{style.ComputedStyle{"font-weight": {Value: "bold"}, "font-style": {Value: "italic"}}, "Helvetica", "BI"},
	}
	for _, tt := range tests {
		family, st := resolveFontFromStyle(tt.st)
		if family != tt.family || st != tt.style {
			t.Errorf("resolveFontFromStyle(%v) = %q %q, want %q %q", tt.st, family, st, tt.family, tt.style)
		}
	}
}
