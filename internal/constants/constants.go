// Package constants provides shared defaults used across the codebase.
package constants

import "time"

// Attendance constants
const (
	// DefaultGraceMinutes is how long after a lecture starts arrivals still count as present
	DefaultGraceMinutes = 10
)

// Face matching constants
const (
	// DefaultDistanceThreshold is the default maximum cosine distance for face matching
	// Lower values = stricter matching
	DefaultDistanceThreshold = 0.5
)

// Camera constants
const (
	// DefaultFrameInterval is the time between two frames of one camera
	DefaultFrameInterval = 500 * time.Millisecond

	// DefaultFrameScale is the downscale factor applied before face detection
	DefaultFrameScale = 0.25

	// MaxFrameSize is the largest snapshot accepted from a camera
	MaxFrameSize = 20 << 20
)

// Upload constants
const (
	// MaxTimetableSize is the largest timetable file accepted by the API
	MaxTimetableSize = 1 << 20
)
