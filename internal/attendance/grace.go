package attendance

import (
	"time"

	"github.com/kozaktomas/classroll/internal/constants"
)

// DefaultGracePeriod is how long after a slot starts arrivals still count as present.
const DefaultGracePeriod = constants.DefaultGraceMinutes * time.Minute

// WindowState tells whether a slot still accepts Present records.
type WindowState int

const (
	Accepting WindowState = iota
	Expired
)

func (s WindowState) String() string {
	switch s {
	case Accepting:
		return "ACCEPTING"
	case Expired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// GraceLimit returns the last instant at which a slot starting at slotStart accepts arrivals.
func GraceLimit(slotStart time.Time, grace time.Duration) time.Time {
	return slotStart.Add(grace)
}

// WindowStateAt is Accepting while now <= slotStart+grace and Expired afterwards.
func WindowStateAt(slotStart, now time.Time, grace time.Duration) WindowState {
	if now.After(GraceLimit(slotStart, grace)) {
		return Expired
	}
	return Accepting
}
