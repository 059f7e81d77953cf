package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// Sweep marks every roster student without a record for the slot's subject
// today as Absent. It does nothing while the grace window is open. Sweeping
// is idempotent: students already marked, by a camera or an earlier sweep,
// are skipped, and the ledger rejects any duplicate that slips through.
// It returns the names newly marked Absent. Per-student failures are logged
// and joined into the returned error without stopping the sweep.
func (e *Engine) Sweep(ctx context.Context, slot timetable.Slot, now time.Time) ([]string, error) {
	now = now.In(e.loc)
	if WindowStateAt(slot.StartAt(now), now, e.grace) == Accepting {
		return nil, nil
	}

	names, err := e.roster.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	date := now.Format(database.DateLayout)
	marked, err := e.ledger.MarkedNames(ctx, date, slot.Subject)
	if err != nil {
		return nil, fmt.Errorf("reading marked students: %w", err)
	}
	if marked == nil {
		marked = make(map[string]bool)
	}

	var absent []string
	var errs []error
	for _, name := range names {
		if marked[name] {
			continue
		}
		written, err := e.ledger.AppendIfAbsent(ctx, e.newRecord(slot, now, name, database.StatusAbsent))
		if err != nil {
			log.Printf("Failed to mark %s absent for %s: %v", name, slot.Subject, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		marked[name] = true
		if written {
			absent = append(absent, name)
		}
	}

	if len(absent) > 0 {
		log.Printf("Marked %d students absent for %s (%s)", len(absent), slot.Subject, slot.ID)
	}
	return absent, errors.Join(errs...)
}
