// Package camera captures frames from snapshot cameras, recognizes the faces
// in them and feeds them to the attendance engine.
package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

// Scaled is a downscaled frame with the factors that map it back to the original.
type Scaled struct {
	Data   []byte // JPEG
	ScaleX float64
	ScaleY float64
}

// Downscale shrinks a frame by factor (0 < factor < 1) before face detection.
// Other factors return the frame unchanged.
func Downscale(data []byte, factor float64) (*Scaled, error) {
	if factor <= 0 || factor >= 1 {
		return &Scaled{Data: data, ScaleX: 1, ScaleY: 1}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width := max(1, int(math.Round(float64(bounds.Dx())*factor)))
	height := max(1, int(math.Round(float64(bounds.Dy())*factor)))

	resized := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized frame: %w", err)
	}

	return &Scaled{
		Data:   buf.Bytes(),
		ScaleX: float64(width) / float64(bounds.Dx()),
		ScaleY: float64(height) / float64(bounds.Dy()),
	}, nil
}

// ToFullFrame maps a rectangle detected on the scaled frame back to full-frame pixels.
func (s *Scaled) ToFullFrame(r image.Rectangle) image.Rectangle {
	if s.ScaleX == 1 && s.ScaleY == 1 {
		return r
	}
	return image.Rect(
		int(math.Round(float64(r.Min.X)/s.ScaleX)),
		int(math.Round(float64(r.Min.Y)/s.ScaleY)),
		int(math.Round(float64(r.Max.X)/s.ScaleX)),
		int(math.Round(float64(r.Max.Y)/s.ScaleY)),
	)
}
