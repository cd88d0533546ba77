package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultColorThreshold is the minimum Euclidean RGB distance between two
// clan colors in one guild. The RGB cube diagonal is about 441.
const DefaultColorThreshold = 50.0

var hexColorPattern = regexp.MustCompile(`(?i)^#?[0-9a-f]{6}$`)

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses "#RRGGBB" or "RRGGBB", case-insensitive.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !hexColorPattern.MatchString(s) {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// NormalizeHex returns the canonical "#RRGGBB" upper-case form.
func NormalizeHex(s string) (string, error) {
	c, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// Hex formats the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Int returns the color packed as 0xRRGGBB, the form chat platforms take.
func (c RGB) Int() int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

// Distance is the Euclidean distance between a and b in RGB space.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// TooSimilar reports whether candidate lies closer than threshold to any of
// the existing hex colors. Unparseable existing entries are ignored.
func TooSimilar(candidate RGB, existing []string, threshold float64) (string, bool) {
	for _, hex := range existing {
		other, err := ParseHex(hex)
		if err != nil {
			continue
		}
		if Distance(candidate, other) < threshold {
			return hex, true
		}
	}
	return "", false
}
