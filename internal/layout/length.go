package layout

import (
	"math"
	"strconv"
	"strings"
)

// Unit conversions to points
const (
	pxToPt = 72.0 / 96.0
	mmToPt = 72.0 / 25.4
	cmToPt = 72.0 / 2.54
	inToPt = 72.0

	// rootFontSize is the font size rem units refer to, in points
	rootFontSize = 16 * pxToPt
)

// parseLength parses a CSS length value into points. Percentages refer to
// containerSize, em units to fontSize. Unitless numbers are pixels.
func parseLength(value string, containerSize, fontSize, defaultValue float64) float64 {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "auto" || value == "none" {
		return defaultValue
	}

	units := []struct {
		suffix string
		scale  float64
	}{
		{"%", containerSize / 100},
		{"px", pxToPt},
		{"pt", 1},
		{"rem", rootFontSize},
		{"em", fontSize},
		{"mm", mmToPt},
		{"cm", cmToPt},
		{"in", inToPt},
		{"", pxToPt},
	}
	for _, u := range units {
		if !strings.HasSuffix(value, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(value[:len(value)-len(u.suffix)]), 64)
		if err != nil {
			return defaultValue
		}
		return n * u.scale
	}
	return defaultValue
}

// parseBoxShorthand parses CSS shorthand like:
//   - "10px"
//   - "10px 20px"
//   - "10px 15px 8px"
//   - "10px 12px 8px 6px"
//
// and returns (top, right, bottom, left) values.
func parseBoxShorthand(value string, containerSize, fontSize, def float64) (float64, float64, float64, float64) {
	parts := strings.Fields(value)
	to := func(s string) float64 { return parseLength(s, containerSize, fontSize, def) }
	switch len(parts) {
	case 0:
		return def, def, def, def
	case 1:
		a := to(parts[0])
		return a, a, a, a
	case 2:
		vtb := to(parts[0])
		vrl := to(parts[1])
		return vtb, vrl, vtb, vrl
	case 3:
		t := to(parts[0])
		r := to(parts[1])
		b := to(parts[2])
		return t, r, b, r
	default:
		t := to(parts[0])
		r := to(parts[1])
		b := to(parts[2])
		l := to(parts[3])
		return t, r, b, l
	}
}

// borderWidth returns the width of a border shorthand such as "1px solid #000"
func borderWidth(value string, fontSize float64) float64 {
	for _, part := range strings.Fields(value) {
		switch part {
		case "none", "hidden":
			return 0
		case "thin":
			return 1 * pxToPt
		case "medium":
			return 3 * pxToPt
		case "thick":
			return 5 * pxToPt
		}
		if part[0] == '.' || part[0] >= '0' && part[0] <= '9' {
			return parseLength(part, 0, fontSize, 0)
		}
	}
	return 0
}

// ParseMargins parses a margin shorthand such as an @page margin into points.
// em units refer to the root font size and percentages resolve to zero.
func ParseMargins(value string) (top, right, bottom, left float64) {
	return parseBoxShorthand(value, 0, rootFontSize, 0)
}

// ParseLength parses a single CSS length such as "210mm" or "1in" into
// points. Unitless numbers are pixels. It returns false for values that are
// not lengths.
func ParseLength(value string) (float64, bool) {
	v := parseLength(value, 0, rootFontSize, math.NaN())
	return v, !math.IsNaN(v)
}
