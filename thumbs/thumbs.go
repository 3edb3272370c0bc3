// Package thumbs renders bounded-size thumbnails for uploaded photos.
package thumbs

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

const jpegQuality = 80

// Generate decodes the image at srcPath, scales it to fit within a
// maxPx square and writes it as JPEG to dstPath. Images already inside
// the box are re-encoded at their original size.
func Generate(srcPath, dstPath string, maxPx int) error {
	if maxPx <= 0 {
		return fmt.Errorf("invalid thumbnail size %d", maxPx)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", srcPath, err)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer out.Close()

	scaled := Scale(src, maxPx)
	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		os.Remove(dstPath)
		return err
	}
	return nil
}

// Scale fits img inside a maxPx square, preserving aspect ratio.
func Scale(img image.Image, maxPx int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPx && h <= maxPx {
		return img
	}
	var tw, th int
	if w >= h {
		tw = maxPx
		th = h * maxPx / w
	} else {
		th = maxPx
		tw = w * maxPx / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
