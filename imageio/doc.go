// Package imageio loads images for imdraw textures.
//
// Decoders for PNG, JPEG and GIF come from the standard library; BMP, TIFF
// and WebP come from golang.org/x/image. All of them are registered with
// the image package when imageio is imported.
//
//	img, err := imageio.Load("checker.png")
//	if err != nil {
//		return err
//	}
//	tex, err := ctx.NewTextureFromImage(img)
//
// LoadAll decodes many files on a bounded worker pool. Failures are
// returned, never panicked: this is the one place in imdraw where bad
// input is an expected condition.
package imageio
