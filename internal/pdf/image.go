package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png" // statement receipts arrive as jpeg or png
)

// rotationMargin is how much better the rotated fit must be before a slot
// image is turned 90 degrees. Near-square images whose two fits are within
// the margin stay unrotated, so small crops don't flip-flop the layout.
const rotationMargin = 1.08

// jpegQuality for re-encoded previews.
const jpegQuality = 90

// Image is a decoded attachment ready for embedding. The pixel data is held
// as a JPEG stream and passed through to the document untouched.
type Image struct {
	Width  int
	Height int

	jpeg []byte
	name string // XObject name, assigned on first draw
}

// DecodeImage prepares attachment bytes for embedding. JPEG input in the
// common YCbCr layout is embedded as-is; anything else the standard codecs
// understand (png, exotic jpeg color models) is flattened onto a white
// background and re-encoded. Undecodable input returns an error and the
// caller degrades to a placeholder caption.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}

	if format == "jpeg" && cfg.ColorModel == color.YCbCrModel {
		return &Image{Width: cfg.Width, Height: cfg.Height, jpeg: data}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return &Image{Width: bounds.Dx(), Height: bounds.Dy(), jpeg: buf.Bytes()}, nil
}

// fitScales returns the best-fit scale for the image as-is and rotated 90
// degrees inside the given slot area.
func fitScales(imgW, imgH, availW, availH float64) (normal, rotated float64) {
	normal = min(availW/imgW, availH/imgH)
	rotated = min(availW/imgH, availH/imgW)
	return normal, rotated
}

// shouldRotate decides slot orientation: rotate only when the rotated fit
// beats the unrotated fit by the fixed margin; ties go to no rotation.
func shouldRotate(normal, rotated float64) bool {
	return rotated > normal*rotationMargin
}
