// Package attendance turns per-frame face recognition verdicts into an
// append-only attendance ledger: at most one record per student, date and
// subject, Present within the grace window and Absent after it.
package attendance

import (
	"context"
	"image"
	"time"

	"github.com/kozaktomas/classroll/internal/timetable"
)

// UnknownIdentity is the verdict name of a face that matched no enrolled student.
const UnknownIdentity = "Unknown"

// Frame is one captured camera image.
type Frame struct {
	CameraID   string
	Data       []byte // JPEG encoded
	CapturedAt time.Time
}

// Verdict is the matcher's answer for one detected face.
type Verdict struct {
	Name   string          // student identity, or UnknownIdentity
	Region image.Rectangle // full-frame pixels, display only
}

// Known reports whether the verdict identifies an enrolled student.
func (v Verdict) Known() bool {
	return v.Name != "" && v.Name != UnknownIdentity
}

// SlotResolver returns the lecture running at now, or nil.
type SlotResolver interface {
	Resolve(ctx context.Context, now time.Time) (*timetable.Slot, error)
}

// Roster lists the enrolled student identities.
type Roster interface {
	Names(ctx context.Context) ([]string, error)
}

// Matcher detects faces in a frame and identifies each one.
type Matcher interface {
	Match(ctx context.Context, frame Frame) ([]Verdict, error)
}

// SnapshotSink stores a frame for later audit. Failures are logged by the
// caller and never stop frame processing.
type SnapshotSink interface {
	Save(ctx context.Context, frame Frame, label string) error
}
