package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"
)

// newJpeg encodes a w x h gradient image to jpeg bytes.
func newJpeg(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JpegQuality}); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}

	return buf.Bytes()
}

func TestConvertToDegrees(t *testing.T) {

	cases := []struct {
		orientation int
		degrees     int
	}{
		{1, 0},
		{2, 0},
		{3, 180},
		{4, 0},
		{5, 0},
		{6, 90},
		{7, 0},
		{8, 270},
		{0, 0},
		{99, 0},
	}

	for _, c := range cases {
		if got := convertToDegrees(c.orientation); got != c.degrees {
			t.Errorf("orientation %d: expected %d degrees, got %d", c.orientation, c.degrees, got)
		}
	}
}

func TestRotateZeroIsNoOp(t *testing.T) {

	raw := newJpeg(t, 10, 6)

	rotated, err := Rotate(raw, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(raw, rotated) {
		t.Error("expected zero rotation to return the input bytes unchanged")
	}
}

func TestRotateSwapsDimensionsOnOddQuarters(t *testing.T) {

	raw := newJpeg(t, 10, 6)

	for _, degrees := range []int{90, 270} {
		rotated, err := Rotate(raw, degrees)
		if err != nil {
			t.Fatalf("unexpected error rotating %d: %v", degrees, err)
		}

		w, h, err := Dimensions(rotated)
		if err != nil {
			t.Fatalf("unexpected error reading dimensions: %v", err)
		}

		if w != 6 || h != 10 {
			t.Errorf("rotation by %d: expected 6x10, got %dx%d", degrees, w, h)
		}
	}
}

func TestDoubleQuarterRotationEqualsHalfTurn(t *testing.T) {

	raw := newJpeg(t, 10, 6)

	once, err := Rotate(raw, 90)
	if err != nil {
		t.Fatalf("unexpected error on first rotation: %v", err)
	}

	twice, err := Rotate(once, 90)
	if err != nil {
		t.Fatalf("unexpected error on second rotation: %v", err)
	}

	half, err := Rotate(raw, 180)
	if err != nil {
		t.Fatalf("unexpected error on half turn: %v", err)
	}

	w2, h2, err := Dimensions(twice)
	if err != nil {
		t.Fatalf("unexpected error reading dimensions: %v", err)
	}

	wh, hh, err := Dimensions(half)
	if err != nil {
		t.Fatalf("unexpected error reading dimensions: %v", err)
	}

	// two quarter turns preserve the original dimensions, like one half turn
	if w2 != wh || h2 != hh || w2 != 10 || h2 != 6 {
		t.Errorf("expected both paths to yield 10x6, got %dx%d and %dx%d", w2, h2, wh, hh)
	}
}

func TestRotateNegativeDegreesNormalized(t *testing.T) {

	raw := newJpeg(t, 10, 6)

	rotated, err := Rotate(raw, -90) // same as 270
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, h, err := Dimensions(rotated)
	if err != nil {
		t.Fatalf("unexpected error reading dimensions: %v", err)
	}

	if w != 6 || h != 10 {
		t.Errorf("expected 6x10, got %dx%d", w, h)
	}
}

func TestOptimizeWithinEnvelopeIsIdentity(t *testing.T) {

	raw := newJpeg(t, 640, 480)

	optimized, err := Optimize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(raw, optimized) {
		t.Error("expected optimized variant to be byte-identical inside the envelope")
	}
}

func TestOptimizeCapsLongerDimension(t *testing.T) {

	// twice the envelope in both dimensions
	raw := newJpeg(t, 2*MaxOptimizedWidth, 2*MaxOptimizedHeight)

	optimized, err := Optimize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, h, err := Dimensions(optimized)
	if err != nil {
		t.Fatalf("unexpected error reading dimensions: %v", err)
	}

	if w != MaxOptimizedWidth || h != MaxOptimizedHeight {
		t.Errorf("expected %dx%d, got %dx%d", MaxOptimizedWidth, MaxOptimizedHeight, w, h)
	}
}

func TestOptimizePreservesAspectRatio(t *testing.T) {

	// only the width exceeds its cap
	raw := newJpeg(t, 2*MaxOptimizedWidth, 1000)

	optimized, err := Optimize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w, h, err := Dimensions(optimized)
	if err != nil {
		t.Fatalf("unexpected error reading dimensions: %v", err)
	}

	if w != MaxOptimizedWidth {
		t.Errorf("expected width %d, got %d", MaxOptimizedWidth, w)
	}

	if h != 500 {
		t.Errorf("expected height 500, got %d", h)
	}
}

func TestCaptureTimeFallsBackOnGarbage(t *testing.T) {

	fallback := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	if got := CaptureTime([]byte("not a jpeg"), fallback); !got.Equal(fallback) {
		t.Errorf("expected fallback time, got %v", got)
	}
}

func TestOrientationDegreesUntagged(t *testing.T) {

	// plain encoded jpeg carries no exif orientation
	if got := OrientationDegrees(newJpeg(t, 10, 6)); got != 0 {
		t.Errorf("expected 0 degrees for untagged image, got %d", got)
	}

	if got := OrientationDegrees([]byte("not a jpeg")); got != 0 {
		t.Errorf("expected 0 degrees for garbage, got %d", got)
	}
}
