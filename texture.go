package imdraw

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/imdraw/gpucore"
	"github.com/gogpu/imdraw/imageio"
)

// TextureFormat specifies the texel layout of a texture.
type TextureFormat = gpucore.TextureFormat

// Texture formats.
const (
	TextureFormatRGBA8Unorm     = gpucore.TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSRGB = gpucore.TextureFormatRGBA8UnormSRGB
	TextureFormatR8Unorm        = gpucore.TextureFormatR8Unorm
)

// Texture errors.
var (
	// ErrTextureSize reports pixel data that does not match the texture.
	ErrTextureSize = errors.New("imdraw: pixel data does not match texture size")

	// ErrTextureFormat reports an unsupported texture format.
	ErrTextureFormat = errors.New("imdraw: unsupported texture format")

	// ErrTextureDestroyed reports use of a destroyed texture.
	ErrTextureDestroyed = errors.New("imdraw: texture destroyed")
)

// Texture is a sampled GPU texture owned by a Context.
type Texture struct {
	ctx    *Context
	id     gpucore.TextureID
	width  int
	height int
	format TextureFormat
}

// NewTexture creates a width x height texture and uploads pixels, which
// must hold exactly width*height texels of format, rows top to bottom.
func (c *Context) NewTexture(pixels []byte, width, height int, format TextureFormat) (*Texture, error) {
	c.checkOpen()
	if format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTextureFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrTextureSize, width, height)
	}
	id, err := c.dev.CreateTexture(gpucore.TextureDesc{
		Label:  "imdraw_texture",
		Width:  width,
		Height: height,
		Format: format,
	})
	if err != nil {
		return nil, fmt.Errorf("imdraw: create texture %dx%d: %w", width, height, err)
	}
	t := &Texture{ctx: c, id: id, width: width, height: height, format: format}
	if err := t.Upload(pixels); err != nil {
		c.dev.DestroyTexture(id)
		return nil, err
	}
	c.textures[t] = struct{}{}
	return t, nil
}

// NewTextureFromImage converts img to non-premultiplied RGBA and uploads
// it. Use imageio.Load to read img from a file.
func (c *Context) NewTextureFromImage(img image.Image) (*Texture, error) {
	n := imageio.ToNRGBA(img)
	b := n.Bounds()
	return c.NewTexture(n.Pix, b.Dx(), b.Dy(), TextureFormatRGBA8Unorm)
}

// Upload replaces the texture contents.
func (t *Texture) Upload(pixels []byte) error {
	if t.id == gpucore.InvalidID {
		return ErrTextureDestroyed
	}
	if want := t.width * t.height * t.format.BytesPerPixel(); len(pixels) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d %s",
			ErrTextureSize, len(pixels), want, t.width, t.height, t.format)
	}
	if err := t.ctx.dev.WriteTexture(t.id, pixels); err != nil {
		return fmt.Errorf("imdraw: upload texture: %w", err)
	}
	return nil
}

// Destroy releases the texture. Destroy is idempotent. A batch drawn
// with the texture earlier in the frame must be flushed first.
func (t *Texture) Destroy() {
	if t == nil || t == t.ctx.white {
		return
	}
	t.release()
}

func (t *Texture) release() {
	if t.id == gpucore.InvalidID {
		return
	}
	t.ctx.dev.DestroyTexture(t.id)
	t.id = gpucore.InvalidID
	delete(t.ctx.textures, t)
}

// ID returns the device texture, or InvalidID for a nil or destroyed
// texture.
func (t *Texture) ID() gpucore.TextureID {
	if t == nil {
		return gpucore.InvalidID
	}
	return t.id
}

// Width returns the texture width in texels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in texels.
func (t *Texture) Height() int { return t.height }

// Format returns the texel format.
func (t *Texture) Format() TextureFormat { return t.format }
