package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/constants"
)

// ErrFrameTooLarge is returned when a snapshot exceeds the source's MaxBytes.
var ErrFrameTooLarge = errors.New("frame too large")

// HTTPSource grabs JPEG snapshots from a camera's HTTP endpoint.
type HTTPSource struct {
	ID       string
	URL      string
	MaxBytes int64
	client   *http.Client
}

// NewHTTPSource creates a source for one camera.
func NewHTTPSource(id, url string) *HTTPSource {
	return &HTTPSource{
		ID:       id,
		URL:      url,
		MaxBytes: constants.MaxFrameSize,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Grab fetches the current frame.
func (s *HTTPSource) Grab(ctx context.Context) (attendance.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return attendance.Frame{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return attendance.Frame{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return attendance.Frame{}, fmt.Errorf("camera %s returned status %d", s.ID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxBytes+1))
	if err != nil {
		return attendance.Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return attendance.Frame{}, fmt.Errorf("camera %s: %w (limit %d bytes)", s.ID, ErrFrameTooLarge, s.MaxBytes)
	}

	return attendance.Frame{CameraID: s.ID, Data: data, CapturedAt: time.Now()}, nil
}
