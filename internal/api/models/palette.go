package models

import "github.com/sunsafe/sunsafe/internal/uv"

// Palette maps risk categories to display colours.
type Palette struct {
	Name   string
	colors map[uv.RiskCategory]string
}

// Color returns the hex colour for r, or the RiskNone colour for unknown values.
func (p Palette) Color(r uv.RiskCategory) string {
	if c, ok := p.colors[r]; ok {
		return c
	}
	return p.colors[uv.RiskNone]
}

// StandardPalette follows the WHO UV Index colour scheme.
var StandardPalette = Palette{
	Name: "standard",
	colors: map[uv.RiskCategory]string{
		uv.RiskNone:     "#9E9E9E",
		uv.RiskLow:      "#289500",
		uv.RiskModerate: "#F7E400",
		uv.RiskHigh:     "#F85900",
		uv.RiskVeryHigh: "#D8001D",
		uv.RiskExtreme:  "#6B49C8",
	},
}

// ColorblindSafePalette uses the Okabe-Ito colours.
var ColorblindSafePalette = Palette{
	Name: "colorblind-safe",
	colors: map[uv.RiskCategory]string{
		uv.RiskNone:     "#999999",
		uv.RiskLow:      "#56B4E9",
		uv.RiskModerate: "#F0E442",
		uv.RiskHigh:     "#E69F00",
		uv.RiskVeryHigh: "#D55E00",
		uv.RiskExtreme:  "#CC79A7",
	},
}

// PaletteFor selects the palette for a display preference.
func PaletteFor(colorblindSafe bool) Palette {
	if colorblindSafe {
		return ColorblindSafePalette
	}
	return StandardPalette
}
