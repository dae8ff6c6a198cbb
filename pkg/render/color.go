package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// ColorScheme maps a normalized level to a colour.
type ColorScheme string

const (
	YellowRed ColorScheme = "yellowRed"
	Viridis   ColorScheme = "viridis"
	Magma     ColorScheme = "magma"
	Grayscale ColorScheme = "grayscale"
)

// ParseColorScheme returns the scheme for name, case insensitive. Empty is YellowRed.
func ParseColorScheme(name string) (ColorScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "yellowred":
		return YellowRed, nil
	case "viridis":
		return Viridis, nil
	case "magma":
		return Magma, nil
	case "grayscale", "greyscale":
		return Grayscale, nil
	}
	return "", fmt.Errorf("unknown color scheme %q: %w", name, ErrInvalidOptions)
}

// Anchor colours sampled from the matplotlib maps.
var (
	viridisStops = []color.RGBA{
		{68, 1, 84, 255},
		{59, 82, 139, 255},
		{33, 145, 140, 255},
		{94, 201, 98, 255},
		{253, 231, 37, 255},
	}
	magmaStops = []color.RGBA{
		{0, 0, 4, 255},
		{81, 18, 124, 255},
		{183, 55, 121, 255},
		{252, 137, 97, 255},
		{252, 253, 191, 255},
	}
)

// Color returns the colour for level in [0, 1].
func (s ColorScheme) Color(level float64) color.RGBA {
	level = math.Max(0, math.Min(1, level))

	switch s {
	case Viridis:
		return lerpStops(viridisStops, level)
	case Magma:
		return lerpStops(magmaStops, level)
	case Grayscale:
		v := uint8(math.Round(level * 255))
		return color.RGBA{v, v, v, 255}
	default:
		// black through yellow to red
		return color.RGBA{
			R: uint8(math.Min(255, 20+level*2*255)),
			G: uint8(math.Min(255, 20+level*255)),
			B: uint8(math.Min(100, 10+level*90)),
			A: 255,
		}
	}
}

func lerpStops(stops []color.RGBA, level float64) color.RGBA {
	pos := level * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	frac := pos - float64(i)
	a, b := stops[i], stops[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}
