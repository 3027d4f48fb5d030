package tui

import "image/color"

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// over composites the premultiplied color src over an opaque dst.
func over(src, dst color.RGBA) color.RGBA {
	k := 255 - uint32(src.A)
	blend := func(s, d uint8) uint8 {
		return uint8(min(255, uint32(s)+(uint32(d)*k+127)/255))
	}
	return color.RGBA{R: blend(src.R, dst.R), G: blend(src.G, dst.G), B: blend(src.B, dst.B), A: 255}
}
