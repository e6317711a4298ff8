package imdraw

import (
	"github.com/chewxy/math32"
	"honnef.co/go/color"

	"github.com/gogpu/imdraw/gizmo"
)

// Color is a packed 8-bit RGBA color with red in the low byte, the layout
// of the vertex color attribute. Channels are sRGB encoded, alpha is
// straight.
type Color uint32

// Common colors.
const (
	Transparent Color = 0
	Black       Color = 0xFF000000
	White       Color = 0xFFFFFFFF
	Red         Color = 0xFF0000FF
	Green       Color = 0xFF00FF00
	Blue        Color = 0xFFFF0000
	Yellow      Color = 0xFF00FFFF
	Cyan        Color = 0xFFFFFF00
	Magenta     Color = 0xFFFF00FF
	Gray        Color = 0xFF808080
)

// RGBA packs 8-bit channels.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24)
}

// RGB packs an opaque color.
func RGB(r, g, b uint8) Color { return RGBA(r, g, b, 255) }

// RGBAF packs channels in [0, 1]. Out of range values are clamped.
func RGBAF(r, g, b, a float32) Color {
	return RGBA(unorm8(r), unorm8(g), unorm8(b), unorm8(a))
}

// ColorFromSpace converts a color from any color space to the sRGB encoded
// vertex color. Out of gamut channels are clamped.
func ColorFromSpace(c color.Color) Color {
	cc := c.Convert(color.LinearSRGB)
	return RGBAF(
		encodeSRGB(float32(cc.Values[0])),
		encodeSRGB(float32(cc.Values[1])),
		encodeSRGB(float32(cc.Values[2])),
		float32(cc.Values[3]),
	)
}

// Components returns the four channels.
func (c Color) Components() (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}

// Alpha returns the alpha channel.
func (c Color) Alpha() uint8 { return uint8(c >> 24) }

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a uint8) Color {
	return c&0x00FFFFFF | Color(a)<<24
}

// Dim halves the color channels and keeps alpha.
func (c Color) Dim() Color {
	return Color(gizmo.Color(c).Dim())
}

func unorm8(v float32) uint8 {
	if math32.IsNaN(v) {
		return 0
	}
	return uint8(math32.Round(math32.Max(0, math32.Min(1, v)) * 255))
}

// encodeSRGB applies the sRGB transfer function to a linear channel.
func encodeSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}
