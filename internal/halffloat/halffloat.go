// Package halffloat packs float32 values into IEEE-754 binary16 bit patterns
// for compact vertex attributes (Float16x2 positions).
package halffloat

import "math"

// Bit patterns of a few well-known half values.
const (
	PositiveZero     uint16 = 0x0000
	NegativeZero     uint16 = 0x8000
	One              uint16 = 0x3c00
	MaxFinite        uint16 = 0x7bff // 65504
	MinNormal        uint16 = 0x0400 // 2^-14
	MinSubnormal     uint16 = 0x0001 // 2^-24
	PositiveInfinity uint16 = 0x7c00
	NegativeInfinity uint16 = 0xfc00

	signMask     = 0x8000
	exponentMask = 0x7c00
	mantissaMask = 0x03ff
)

// FromFloat32 returns the binary16 encoding of f.
//
// The conversion works on the float32 bits directly: one extra mantissa bit is
// kept and added back after shifting, so values round to nearest with ties
// rounded away from zero. A mantissa carry is allowed to ripple into the
// exponent, which yields the next binade (or infinity) as IEEE rounding would.
//
//   - biased exponent < 103: too small even for a subnormal, flushed to signed zero
//   - biased exponent > 142: overflow saturates to signed infinity; NaN stays NaN
//   - biased exponent in [103, 113): subnormal half
//   - biased exponent in [113, 142]: normal half
func FromFloat32(f float32) uint16 {
	x := math.Float32bits(f)

	bits := uint16(x>>16) & signMask
	m := (x >> 12) & 0x07ff // ten mantissa bits plus one rounding bit
	e := (x >> 23) & 0xff

	if e < 103 {
		return bits
	}

	if e > 142 {
		bits |= exponentMask
		if e == 0xff && x&0x007fffff != 0 {
			// quiet NaN, keep the high payload bits
			bits |= 0x0200 | uint16((x>>13)&0x01ff)
		}
		return bits
	}

	if e < 113 {
		m |= 0x0800
		bits |= uint16((m >> (114 - e)) + ((m >> (113 - e)) & 1))
		return bits
	}

	bits |= uint16(((e - 112) << 10) | (m >> 1))
	bits += uint16(m & 1)
	return bits
}

// ToFloat32 decodes a binary16 bit pattern. Every half value is exactly
// representable as a float32, so the result is exact.
func ToFloat32(h uint16) float32 {
	sign := uint32(h&signMask) << 16
	e := uint32(h&exponentMask) >> 10
	m := uint32(h & mantissaMask)

	switch {
	case e == 0 && m == 0:
		return math.Float32frombits(sign)
	case e == 0:
		// subnormal: renormalise the mantissa
		e = 113
		for m&0x0400 == 0 {
			m <<= 1
			e--
		}
		m &= mantissaMask
		return math.Float32frombits(sign | e<<23 | m<<13)
	case e == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | m<<13)
	default:
		return math.Float32frombits(sign | (e+112)<<23 | m<<13)
	}
}

// IsNaN reports whether h encodes a NaN.
func IsNaN(h uint16) bool {
	return h&exponentMask == exponentMask && h&mantissaMask != 0
}

// IsInf reports whether h encodes an infinity.
func IsInf(h uint16) bool {
	return h&exponentMask == exponentMask && h&mantissaMask == 0
}

// Pair encodes two values, the layout of one Float16x2 attribute.
func Pair(a, b float32) [2]uint16 {
	return [2]uint16{FromFloat32(a), FromFloat32(b)}
}
