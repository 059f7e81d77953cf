package attendance

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// Action is what the router did with one verdict.
type Action string

const (
	ActionRecorded  Action = "recorded"  // Present record appended
	ActionDuplicate Action = "duplicate" // already marked for this slot today
	ActionLate      Action = "late"      // grace period over, nothing written
	ActionUnknown   Action = "unknown"   // no identity, frame snapshotted
	ActionFailed    Action = "failed"    // ledger error, logged
)

// Outcome is the routing result for one verdict.
type Outcome struct {
	Name   string          `json:"name"`
	Region image.Rectangle `json:"region"`
	Action Action          `json:"action"`
	Error  string          `json:"error,omitempty"`
}

// Route applies the grace policy to each verdict of one frame. Verdicts are
// processed in order and a failure on one never prevents the rest. The tick
// status starts as the slot line and is replaced by the grace-ended notice as
// soon as a known face arrives after the window closed.
func (e *Engine) Route(ctx context.Context, slot timetable.Slot, now time.Time, frame Frame, verdicts []Verdict) Tick {
	now = now.In(e.loc)
	state := WindowStateAt(slot.StartAt(now), now, e.grace)

	tick := Tick{
		At:       now,
		Slot:     &slot,
		Status:   SlotStatus(slot),
		Outcomes: make([]Outcome, 0, len(verdicts)),
	}

	for _, v := range verdicts {
		out := Outcome{Name: v.Name, Region: v.Region}

		switch {
		case !v.Known():
			out.Name = UnknownIdentity
			out.Action = ActionUnknown
			e.saveSnapshot(ctx, frame)
		case state == Expired:
			out.Action = ActionLate
			tick.Status = StatusGraceEnded
		default:
			action, err := e.markPresent(ctx, slot, now, v.Name)
			out.Action = action
			if err != nil {
				out.Error = err.Error()
				log.Printf("Camera %s: failed to mark %s present for %s: %v", frame.CameraID, v.Name, slot.Subject, err)
			}
		}

		tick.Outcomes = append(tick.Outcomes, out)
	}

	return tick
}

func (e *Engine) markPresent(ctx context.Context, slot timetable.Slot, now time.Time, name string) (Action, error) {
	exists, err := e.ledger.Exists(ctx, name, now.Format(database.DateLayout), slot.Subject)
	if err != nil {
		return ActionFailed, fmt.Errorf("checking ledger: %w", err)
	}
	if exists {
		return ActionDuplicate, nil
	}

	written, err := e.ledger.AppendIfAbsent(ctx, e.newRecord(slot, now, name, database.StatusPresent))
	if err != nil {
		return ActionFailed, fmt.Errorf("appending record: %w", err)
	}
	if !written {
		// Another camera won the race for this key.
		return ActionDuplicate, nil
	}
	log.Printf("Marked %s present for %s (%s)", name, slot.Subject, slot.ID)
	return ActionRecorded, nil
}

func (e *Engine) saveSnapshot(ctx context.Context, frame Frame) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Save(ctx, frame, UnknownIdentity); err != nil {
		log.Printf("Camera %s: failed to save unknown face snapshot: %v", frame.CameraID, err)
	}
}
