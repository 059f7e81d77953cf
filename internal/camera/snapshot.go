package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/classroll/internal/attendance"
)

// DiskSnapshotSink writes frames to a directory as <label>_<HHMMSS>_<uuid>.jpg.
type DiskSnapshotSink struct {
	Dir string
}

// Save writes the full frame. The label is lowercased into the file name.
func (s DiskSnapshotSink) Save(ctx context.Context, frame attendance.Frame, label string) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("empty frame from camera %s", frame.CameraID)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	name := fmt.Sprintf("%s_%s_%s.jpg", strings.ToLower(label), at.Format("150405"), uuid.NewString())

	if err := os.WriteFile(filepath.Join(s.Dir, name), frame.Data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
