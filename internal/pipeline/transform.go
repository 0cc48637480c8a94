package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	redraw "golang.org/x/image/draw"
)

const (
	JpegQuality int = 85

	// maximum pixel envelope for the optimized variant; pictures already
	// inside it are kept byte-identical to the original
	MaxOptimizedWidth  int = 1792
	MaxOptimizedHeight int = 1120
)

// CaptureTime extracts the EXIF capture timestamp from the raw image bytes.
// Extraction is best effort: any decode or parse failure falls back to the
// provided fallback time and never fails the caller.
func CaptureTime(raw []byte, fallback time.Time) time.Time {

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil || x == nil {
		return fallback
	}

	// best effort -> tries DateTimeOriginal, DateTimeDigitized, DateTime
	datetime, err := x.DateTime()
	if err != nil {
		return fallback
	}

	return datetime
}

// OrientationDegrees reads the EXIF orientation tag from the raw image bytes
// and maps it to a clockwise rotation in degrees: 3 -> 180, 6 -> 90,
// 8 -> 270, anything else or untagged -> 0.
func OrientationDegrees(raw []byte) int {

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil || x == nil {
		return 0
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil {
		return 0
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 0
	}

	return convertToDegrees(orientation)
}

// convertToDegrees converts an EXIF orientation value to rotation in degrees.
func convertToDegrees(orientation int) int {
	switch orientation {
	case 3: // rotate 180
		return 180
	case 6: // rotate 90 clockwise
		return 90
	case 8: // rotate 270 clockwise
		return 270
	default:
		return 0
	}
}

// Rotate decodes the jpeg bytes, rotates the pixels clockwise by the given
// degrees, and re-encodes. A zero (or unsupported) rotation returns the
// input bytes unchanged, preserving the original encoding.
func Rotate(raw []byte, degrees int) ([]byte, error) {

	// normalize degrees to [0, 360) -> accounts for negative degrees
	normalized := ((degrees % 360) + 360) % 360
	if normalized == 0 || normalized%90 != 0 {
		return raw, nil
	}

	src, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode jpeg for rotation: %v", err)
	}

	var dst image.Image
	switch normalized {
	case 90:
		dst = rotate90(src)
	case 180:
		dst = rotate180(src)
	case 270:
		dst = rotate270(src)
	}

	return encodeToJpeg(dst, JpegQuality)
}

// Optimize produces the size-capped variant of the jpeg bytes. If both
// dimensions are within the maximum envelope the optimized variant is
// byte-identical to the input; otherwise the image is scaled down preserving
// aspect ratio so the longer dimension hits its cap, using nearest-neighbor
// resampling.
func Optimize(raw []byte) ([]byte, error) {

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode jpeg config for optimization: %v", err)
	}

	if cfg.Width <= MaxOptimizedWidth && cfg.Height <= MaxOptimizedHeight {
		return raw, nil
	}

	src, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode jpeg for optimization: %v", err)
	}

	// scale so that the dimension furthest past its cap lands on the cap
	scaleW := float64(MaxOptimizedWidth) / float64(cfg.Width)
	scaleH := float64(MaxOptimizedHeight) / float64(cfg.Height)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	dstWidth := int(float64(cfg.Width) * scale)
	dstHeight := int(float64(cfg.Height) * scale)
	if dstWidth < 1 {
		dstWidth = 1
	}
	if dstHeight < 1 {
		dstHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	redraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), redraw.Over, nil)

	return encodeToJpeg(dst, JpegQuality)
}

// Dimensions returns the pixel width and height of the jpeg bytes without
// decoding the full image.
func Dimensions(raw []byte) (int, int, error) {

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode jpeg config: %v", err)
	}

	return cfg.Width, cfg.Height, nil
}

// rotate90 is a helper function to rotate an image 90 degrees clockwise.
func rotate90(src image.Image) image.Image {

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(h-1-y, x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}

	return dst
}

// rotate180 is a helper function to rotate an image 180 degrees.
func rotate180(src image.Image) image.Image {

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(w-1-x, h-1-y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}

	return dst
}

// rotate270 is a helper function to rotate an image 270 degrees clockwise.
func rotate270(src image.Image) image.Image {

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(y, w-1-x, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}

	return dst
}

// encodeToJpeg encodes the image to JPEG with the given quality.
func encodeToJpeg(src image.Image, quality int) ([]byte, error) {

	if quality < 1 || quality > 100 {
		quality = JpegQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image to JPEG: %v", err)
	}

	return buf.Bytes(), nil
}
