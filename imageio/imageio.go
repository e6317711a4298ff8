package imageio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	"image/png"
	"io"
	"os"
	"runtime"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/imdraw/internal/parallel"
)

// Sentinel errors.
var (
	// ErrUnknownFormat is returned when no registered decoder recognizes
	// the data.
	ErrUnknownFormat = errors.New("imageio: unknown image format")

	// ErrEmptyImage is returned for images with zero width or height.
	ErrEmptyImage = errors.New("imageio: empty image")
)

// Decode reads one image and reports its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnknownFormat
		}
		return nil, format, fmt.Errorf("imageio: decode %s: %w", format, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

type loadOptions struct {
	workers int
}

// LoadOption configures LoadAll.
type LoadOption func(*loadOptions)

// WithWorkers sets the number of decoding goroutines. Zero or negative
// values mean GOMAXPROCS.
func WithWorkers(n int) LoadOption {
	return func(o *loadOptions) {
		o.workers = n
	}
}

// LoadAll decodes every path concurrently. The result has one entry per
// path, in order, nil where loading failed. The error joins all failures.
func LoadAll(ctx context.Context, paths []string, opts ...LoadOption) ([]image.Image, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	images := make([]image.Image, len(paths))
	if len(paths) == 0 {
		return images, nil
	}

	pool := parallel.NewPool(min(workersOrDefault(o.workers), len(paths)))
	defer pool.Close()

	err := pool.Run(ctx, len(paths), func(_ context.Context, i int) error {
		img, err := Load(paths[i])
		if err != nil {
			return err
		}
		images[i] = img
		return nil
	})
	return images, err
}

func workersOrDefault(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// ToNRGBA returns img as a tightly packed, non-premultiplied RGBA image
// with its origin at (0, 0). img itself is returned when it already has
// that layout.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && n.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("imageio: %w", cerr)
		}
	}()
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	return nil
}
