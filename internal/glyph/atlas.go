// Package glyph rasterizes a bitmap debug font into a single-channel
// texture atlas and lays out strings as textured quads.
package glyph

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/imdraw/gpucore"
)

// Atlas settings.
const (
	// AtlasSize is the atlas dimension (256x256 R8 texels).
	AtlasSize = 256

	// glyphPadding is the spacing between glyph cells.
	glyphPadding = 1
)

// ErrAtlasFull is returned when a glyph cannot be placed in the atlas.
var ErrAtlasFull = errors.New("glyph: atlas is full")

// Glyph is a rasterized glyph.
type Glyph struct {
	Region Region

	// Bounds is the glyph bitmap relative to the pen position on the baseline.
	Bounds image.Rectangle

	// Advance is the horizontal pen advance in pixels.
	Advance int
}

// Quad is one glyph placed by Layout. Coordinates are pixels with the
// origin at the top-left of the text block and Y down.
type Quad struct {
	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
}

// Atlas caches glyph bitmaps of one font face.
//
// Atlas is not safe for concurrent use.
type Atlas struct {
	face    font.Face
	metrics font.Metrics
	pixels  *image.Alpha
	packer  *packer
	glyphs  map[rune]Glyph
	dirty   bool

	texture gpucore.TextureID
}

// NewAtlas creates an atlas for the 7x13 fixed font.
func NewAtlas() *Atlas {
	return NewAtlasForFace(basicfont.Face7x13)
}

// NewAtlasForFace creates an atlas for face.
func NewAtlasForFace(face font.Face) *Atlas {
	return &Atlas{
		face:    face,
		metrics: face.Metrics(),
		pixels:  image.NewAlpha(image.Rect(0, 0, AtlasSize, AtlasSize)),
		packer:  newPacker(AtlasSize, AtlasSize, glyphPadding),
		glyphs:  make(map[rune]Glyph, 128),
	}
}

// LineHeight returns the distance between baselines in pixels.
func (a *Atlas) LineHeight() int { return a.metrics.Height.Ceil() }

// Ascent returns the baseline offset from the top of a line in pixels.
func (a *Atlas) Ascent() int { return a.metrics.Ascent.Ceil() }

// Glyph returns the cached glyph for r, rasterizing it on first use.
// Runes the face does not cover map to U+FFFD, then to '?'.
func (a *Atlas) Glyph(r rune) (Glyph, error) {
	if g, ok := a.glyphs[r]; ok {
		return g, nil
	}
	dr, mask, maskp, adv, ok := a.face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		for _, fb := range []rune{'\ufffd', '?'} {
			if dr, mask, maskp, adv, ok = a.face.Glyph(fixed.Point26_6{}, fb); ok {
				break
			}
		}
	}
	if !ok {
		return Glyph{}, fmt.Errorf("glyph: no glyph for %q", r)
	}

	g := Glyph{Bounds: dr, Advance: adv.Ceil()}
	if !dr.Empty() {
		g.Region = a.packer.allocate(dr.Dx(), dr.Dy())
		if !g.Region.IsValid() {
			return Glyph{}, fmt.Errorf("%q (%dx%d): %w", r, dr.Dx(), dr.Dy(), ErrAtlasFull)
		}
		dst := image.Rect(g.Region.X, g.Region.Y, g.Region.X+g.Region.Width, g.Region.Y+g.Region.Height)
		xdraw.Draw(a.pixels, dst, mask, maskp, xdraw.Src)
		a.dirty = true
	}
	a.glyphs[r] = g
	return g, nil
}

// Layout normalizes s to NFC and places one quad per visible glyph.
// '\n' starts a new line. Glyphs that cannot be placed are skipped.
func (a *Atlas) Layout(s string) []Quad {
	s = norm.NFC.String(s)
	quads := make([]Quad, 0, len(s))
	penX, line := 0, 0
	ascent, lineHeight := a.Ascent(), a.LineHeight()
	for _, r := range s {
		if r == '\n' {
			penX = 0
			line++
			continue
		}
		g, err := a.Glyph(r)
		if err != nil {
			continue
		}
		if g.Region.IsValid() {
			baseline := line*lineHeight + ascent
			quads = append(quads, Quad{
				X0: float32(penX + g.Bounds.Min.X),
				Y0: float32(baseline + g.Bounds.Min.Y),
				X1: float32(penX + g.Bounds.Max.X),
				Y1: float32(baseline + g.Bounds.Max.Y),
				U0: float32(g.Region.X) / AtlasSize,
				V0: float32(g.Region.Y) / AtlasSize,
				U1: float32(g.Region.X+g.Region.Width) / AtlasSize,
				V1: float32(g.Region.Y+g.Region.Height) / AtlasSize,
			})
		}
		penX += g.Advance
	}
	return quads
}

// Measure returns the size in pixels of the block Layout would produce.
func (a *Atlas) Measure(s string) (width, height int) {
	s = norm.NFC.String(s)
	penX, lines := 0, 1
	for _, r := range s {
		if r == '\n' {
			width = max(width, penX)
			penX = 0
			lines++
			continue
		}
		adv, ok := a.face.GlyphAdvance(r)
		if !ok {
			adv, _ = a.face.GlyphAdvance('?')
		}
		penX += adv.Ceil()
	}
	return max(width, penX), lines * a.LineHeight()
}

// Pixels returns the coverage bitmap.
func (a *Atlas) Pixels() *image.Alpha { return a.pixels }

// Dirty reports whether glyphs were added since the last Sync.
func (a *Atlas) Dirty() bool { return a.dirty }

// Utilization returns the fraction of the atlas in use.
func (a *Atlas) Utilization() float64 { return a.packer.utilization() }

// Texture returns the GPU texture, or InvalidID before the first Sync.
func (a *Atlas) Texture() gpucore.TextureID { return a.texture }

// Sync creates the atlas texture on first use and uploads the bitmap if
// it changed.
func (a *Atlas) Sync(dev gpucore.Device) error {
	if a.texture == gpucore.InvalidID {
		id, err := dev.CreateTexture(gpucore.TextureDesc{
			Label:  "glyph_atlas",
			Width:  AtlasSize,
			Height: AtlasSize,
			Format: gpucore.TextureFormatR8Unorm,
		})
		if err != nil {
			return fmt.Errorf("create glyph atlas texture: %w", err)
		}
		a.texture = id
		a.dirty = true
	}
	if !a.dirty {
		return nil
	}
	if err := dev.WriteTexture(a.texture, a.pixels.Pix); err != nil {
		return fmt.Errorf("upload glyph atlas: %w", err)
	}
	a.dirty = false
	return nil
}

// Release destroys the atlas texture.
func (a *Atlas) Release(dev gpucore.Device) {
	if a.texture != gpucore.InvalidID {
		dev.DestroyTexture(a.texture)
		a.texture = gpucore.InvalidID
	}
}
