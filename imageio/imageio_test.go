package imageio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{B: 255, A: 255})
	return img
}

func writeFile(t *testing.T, dir, name string, encode func(io.Writer, image.Image) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf, testImage()); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeRegisteredFormats(t *testing.T) {
	tests := []struct {
		format string
		encode func(io.Writer, image.Image) error
	}{
		{"png", png.Encode},
		{"jpeg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{"gif", func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) }},
		{"bmp", bmp.Encode},
		{"tiff", func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage()); err != nil {
				t.Fatal(err)
			}
			img, format, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if got := img.Bounds().Size(); got != (image.Point{X: 3, Y: 2}) {
				t.Errorf("size = %v, want 3x2", got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image"))); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("garbage err = %v, want ErrUnknownFormat", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()/2]
	_, format, err := Decode(bytes.NewReader(truncated))
	if err == nil || errors.Is(err, ErrUnknownFormat) {
		t.Errorf("truncated png err = %v, want a decode error", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.png", png.Encode)
	bad := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(bad, []byte("text"), 0o600); err != nil {
		t.Fatal(err)
	}
	also := writeFile(t, dir, "c.bmp", bmp.Encode)

	images, err := LoadAll(context.Background(), []string{good, bad, also}, WithWorkers(2))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat for b.txt", err)
	}
	if len(images) != 3 {
		t.Fatalf("len = %d, want 3", len(images))
	}
	if images[0] == nil || images[2] == nil {
		t.Error("valid files should load")
	}
	if images[1] != nil {
		t.Error("invalid file should yield nil")
	}
}

func TestLoadAllEmpty(t *testing.T) {
	images, err := LoadAll(context.Background(), nil)
	if err != nil || len(images) != 0 {
		t.Errorf("LoadAll(nil) = %v, %v", images, err)
	}
}

func TestLoadAllCanceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.png", png.Encode)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	images, err := LoadAll(ctx, []string{path, path})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	for i, img := range images {
		if img != nil {
			t.Errorf("image %d loaded after cancel", i)
		}
	}
}

func TestToNRGBA(t *testing.T) {
	src := testImage()
	if got := ToNRGBA(src); got != src {
		t.Error("packed NRGBA should be returned as is")
	}

	sub := src.SubImage(image.Rect(1, 1, 3, 2))
	got := ToNRGBA(sub)
	if got.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	if c := got.NRGBAAt(1, 0); c != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("pixel = %v, want blue", c)
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(path, testImage()); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); c != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("pixel = %v, want red", c)
	}
}
