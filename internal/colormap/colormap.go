// Package colormap provides the value to color functions handed to the mesh
// builder: sequential ColorBrewer style scales stretched over a value domain.
package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultScale is used when no scale is configured.
const DefaultScale = "OrRd"

var ErrUnknownScale = errors.New("colormap: unknown scale")

var palettes = map[string][]string{
	"OrRd":    {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
	"Greys":   {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
	"Viridis": {"#440154", "#482777", "#3f4a8a", "#31678e", "#26838f", "#1f9d8a", "#6cce5a", "#b6de2b", "#fee825"},
}

// Names lists the available scales.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Scale maps values of [min, max] onto a palette, interpolating between
// neighbouring stops in CIE Lab. Values outside the domain are clamped.
type Scale struct {
	name     string
	stops    []colorful.Color
	min, max float64
}

// New returns the named scale (case-insensitive) over [minVal, maxVal].
func New(name string, minVal, maxVal float64) (*Scale, error) {
	for n, hexes := range palettes {
		if !strings.EqualFold(n, name) {
			continue
		}
		stops := make([]colorful.Color, len(hexes))
		for i, h := range hexes {
			c, err := colorful.Hex(h)
			if err != nil {
				return nil, fmt.Errorf("colormap: %s stop %d: %w", n, i, err)
			}
			stops[i] = c
		}
		return &Scale{name: n, stops: stops, min: minVal, max: maxVal}, nil
	}
	return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownScale, name, strings.Join(Names(), ", "))
}

// Name returns the canonical scale name.
func (s *Scale) Name() string { return s.name }

// Domain returns the value range stretched over the palette.
func (s *Scale) Domain() (minVal, maxVal float64) { return s.min, s.max }

// position returns where v falls on the palette, in [0, 1]. A degenerate
// domain puts every value in the middle.
func (s *Scale) position(v float64) float64 {
	span := s.max - s.min
	if math.IsNaN(span) || math.IsInf(span, 0) || span <= 0 {
		return 0.5
	}
	return min(max((v-s.min)/span, 0), 1)
}

// blend returns the palette color at position t in [0, 1].
func (s *Scale) blend(t float64) colorful.Color {
	f := t * float64(len(s.stops)-1)
	i := int(f)
	if i >= len(s.stops)-1 {
		return s.stops[len(s.stops)-1]
	}
	if frac := f - float64(i); frac > 0 {
		return s.stops[i].BlendLab(s.stops[i+1], frac).Clamped()
	}
	return s.stops[i]
}

// At returns the opaque color of v. NaN yields the zero (transparent) color.
// Its signature matches mesh.ColorFunc.
func (s *Scale) At(v float64) color.RGBA {
	if math.IsNaN(v) {
		return color.RGBA{}
	}
	return rgba(s.blend(s.position(v)))
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Hex returns the color of v as "#rrggbb", the form terminal styles take.
func (s *Scale) Hex(v float64) string {
	return s.blend(s.position(v)).Hex()
}

// Ramp returns n colors evenly spaced over the domain, e.g. for a legend.
func (s *Scale) Ramp(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	out := make([]color.RGBA, n)
	for i := range out {
		t := 0.5
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = rgba(s.blend(t))
	}
	return out
}
