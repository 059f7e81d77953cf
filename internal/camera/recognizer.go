package camera

import (
	"context"
	"fmt"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/faceclient"
	"github.com/kozaktomas/classroll/internal/gallery"
)

// FaceDetector finds faces and their embeddings in an image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*faceclient.Response, error)
}

// Recognizer is an attendance.Matcher backed by the face service and the
// current gallery.
type Recognizer struct {
	detector FaceDetector
	gallery  *gallery.Holder
	scale    float64
}

// NewRecognizer creates a recognizer that downscales frames by scale before detection.
func NewRecognizer(detector FaceDetector, holder *gallery.Holder, scale float64) *Recognizer {
	return &Recognizer{detector: detector, gallery: holder, scale: scale}
}

// Match returns one verdict per detected face, in detection order, with
// regions in full-frame pixels.
func (r *Recognizer) Match(ctx context.Context, frame attendance.Frame) ([]attendance.Verdict, error) {
	scaled, err := Downscale(frame.Data, r.scale)
	if err != nil {
		return nil, err
	}

	resp, err := r.detector.DetectFaces(ctx, scaled.Data)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	g := r.gallery.Load()
	verdicts := make([]attendance.Verdict, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		name, _ := g.Identify(face.Embedding)
		if name == gallery.Unknown {
			name = attendance.UnknownIdentity
		}
		verdicts = append(verdicts, attendance.Verdict{
			Name:   name,
			Region: scaled.ToFullFrame(face.Rect()),
		})
	}
	return verdicts, nil
}
