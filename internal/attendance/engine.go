package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// Status texts shown to the operator for a frame tick.
const (
	StatusNoActiveSlot         = "No active lecture slot found."
	StatusGraceEnded           = "Grace period ended. No more attendance for this slot."
	StatusTimetableUnavailable = "Timetable unavailable."
)

// SlotStatus is the default tick status while a slot is active.
func SlotStatus(slot timetable.Slot) string {
	return fmt.Sprintf("Subject: %s | Slot: %s", slot.Subject, slot.ID)
}

// Engine is the attendance decision engine. It is safe for concurrent use by
// several camera workers; key uniqueness is enforced by the ledger.
type Engine struct {
	resolver  SlotResolver
	ledger    database.LedgerWriter
	roster    Roster
	matcher   Matcher
	snapshots SnapshotSink
	grace     time.Duration
	loc       *time.Location
	now       func() time.Time
}

// Dependencies are the collaborators of an Engine. Matcher and Snapshots may be
// nil: without a matcher frames yield no verdicts, without a sink unknown faces
// are only reported.
type Dependencies struct {
	Resolver  SlotResolver
	Ledger    database.LedgerWriter
	Roster    Roster
	Matcher   Matcher
	Snapshots SnapshotSink
	Location  *time.Location   // time.Local when nil
	Now       func() time.Time // time.Now when nil
}

// NewEngine creates an engine. A non-positive grace falls back to DefaultGracePeriod.
func NewEngine(deps Dependencies, grace time.Duration) *Engine {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		resolver:  deps.Resolver,
		ledger:    deps.Ledger,
		roster:    deps.Roster,
		matcher:   deps.Matcher,
		snapshots: deps.Snapshots,
		grace:     grace,
		loc:       loc,
		now:       now,
	}
}

// GracePeriod returns the configured grace window.
func (e *Engine) GracePeriod() time.Duration {
	return e.grace
}

// Tick is the result of processing one frame.
type Tick struct {
	At       time.Time       `json:"at"`
	Slot     *timetable.Slot `json:"slot,omitempty"`
	Status   string          `json:"status"`
	Outcomes []Outcome       `json:"outcomes,omitempty"`
	Absent   []string        `json:"absent,omitempty"` // marked Absent by this tick's sweep
}

// CurrentSlot resolves the lecture running now.
func (e *Engine) CurrentSlot(ctx context.Context) (*timetable.Slot, time.Time, error) {
	now := e.now().In(e.loc)
	slot, err := e.resolver.Resolve(ctx, now)
	if err != nil {
		return nil, now, fmt.Errorf("resolving slot: %w", err)
	}
	return slot, now, nil
}

// ProcessFrame runs one frame tick: resolve the slot once, match faces only
// when a lecture is running, route every verdict, then sweep absentees.
func (e *Engine) ProcessFrame(ctx context.Context, frame Frame) Tick {
	slot, now, err := e.CurrentSlot(ctx)
	if err != nil {
		log.Printf("Camera %s: %v", frame.CameraID, err)
		return Tick{At: now, Status: StatusTimetableUnavailable}
	}
	if slot == nil {
		return Tick{At: now, Status: StatusNoActiveSlot}
	}

	var verdicts []Verdict
	if e.matcher != nil {
		verdicts, err = e.matcher.Match(ctx, frame)
		if err != nil {
			log.Printf("Camera %s: face matching failed: %v", frame.CameraID, err)
			verdicts = nil
		}
	}

	tick := e.Route(ctx, *slot, now, frame, verdicts)

	absent, err := e.Sweep(ctx, *slot, now)
	if err != nil {
		log.Printf("Camera %s: absentee sweep for %s incomplete: %v", frame.CameraID, slot.Subject, err)
	}
	tick.Absent = absent
	return tick
}

// SweepCurrent sweeps the slot running now. It returns a nil slot when no
// lecture is running.
func (e *Engine) SweepCurrent(ctx context.Context) (*timetable.Slot, []string, error) {
	slot, now, err := e.CurrentSlot(ctx)
	if err != nil || slot == nil {
		return nil, nil, err
	}
	absent, err := e.Sweep(ctx, *slot, now)
	return slot, absent, err
}

// newRecord builds a ledger record for name in slot at now.
func (e *Engine) newRecord(slot timetable.Slot, now time.Time, name string, status database.AttendanceStatus) database.AttendanceRecord {
	now = now.In(e.loc)
	return database.AttendanceRecord{
		Name:    name,
		Date:    now.Format(database.DateLayout),
		Day:     now.Weekday().String(),
		Time:    now.Format(database.TimeLayout),
		Slot:    slot.ID,
		Subject: slot.Subject,
		Status:  status,
	}
}
