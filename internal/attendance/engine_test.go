package attendance

import (
	"context"
	"errors"
	"image"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// 2024-01-01 is a Monday.
func at(hour, minute, second int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, second, 0, time.UTC)
}

type staticRoster []string

func (r staticRoster) Names(ctx context.Context) ([]string, error) {
	return r, nil
}

type failingRoster struct{ err error }

func (r failingRoster) Names(ctx context.Context) ([]string, error) {
	return nil, r.err
}

type stubMatcher struct {
	mu       sync.Mutex
	verdicts []Verdict
	err      error
	calls    int
}

func (m *stubMatcher) Match(ctx context.Context, frame Frame) ([]Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.verdicts, m.err
}

func (m *stubMatcher) set(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = nil
	for i, n := range names {
		m.verdicts = append(m.verdicts, Verdict{Name: n, Region: image.Rect(i*10, 0, i*10+8, 8)})
	}
}

type countingSink struct {
	mu     sync.Mutex
	labels []string
	err    error
}

func (s *countingSink) Save(ctx context.Context, frame Frame, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, label)
	return s.err
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.labels)
}

type fixture struct {
	engine  *Engine
	ledger  *mock.MockLedger
	matcher *stubMatcher
	sink    *countingSink
	now     time.Time
}

func newFixture(t *testing.T, roster Roster, entries ...timetable.Entry) *fixture {
	t.Helper()
	if len(entries) == 0 {
		entries = []timetable.Entry{{Day: "Monday", Start: "09:00", End: "10:00", Subject: "Mathematics"}}
	}
	f := &fixture{
		ledger:  mock.NewMockLedger(),
		matcher: &stubMatcher{},
		sink:    &countingSink{},
	}
	f.engine = NewEngine(Dependencies{
		Resolver:  timetable.NewResolver(timetable.StaticSource(entries), time.UTC),
		Ledger:    f.ledger,
		Roster:    roster,
		Matcher:   f.matcher,
		Snapshots: f.sink,
		Location:  time.UTC,
		Now:       func() time.Time { return f.now },
	}, 10*time.Minute)
	return f
}

func (f *fixture) frame(names ...string) Tick {
	f.matcher.set(names...)
	return f.engine.ProcessFrame(context.Background(), Frame{CameraID: "cam0", Data: []byte{0xff, 0xd8}, CapturedAt: f.now})
}

func statusOf(t *testing.T, ledger *mock.MockLedger, name, subject string) database.AttendanceStatus {
	t.Helper()
	var found []database.AttendanceRecord
	for _, r := range ledger.Records() {
		if r.Name == name && r.Subject == subject {
			found = append(found, r)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly 1 record for %s/%s, got %d", name, subject, len(found))
	}
	return found[0].Status
}

func TestWindowStateAt(t *testing.T) {
	start := at(9, 0, 0)
	grace := 10 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want WindowState
	}{
		{"at start", start, Accepting},
		{"inside", at(9, 5, 0), Accepting},
		{"exactly at limit", at(9, 10, 0), Accepting},
		{"one nanosecond after", at(9, 10, 0).Add(time.Nanosecond), Expired},
		{"well after", at(9, 45, 0), Expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WindowStateAt(start, tt.now, grace); got != tt.want {
				t.Errorf("WindowStateAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEngine_DefaultGrace(t *testing.T) {
	e := NewEngine(Dependencies{}, 0)
	if e.GracePeriod() != DefaultGracePeriod {
		t.Errorf("expected default grace %v, got %v", DefaultGracePeriod, e.GracePeriod())
	}
}

func TestEngine_ClassroomScenario(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice", "Bob"})

	f.now = at(9, 5, 0)
	tick := f.frame("Alice")
	if len(tick.Outcomes) != 1 || tick.Outcomes[0].Action != ActionRecorded {
		t.Fatalf("expected Alice to be recorded, got %+v", tick.Outcomes)
	}
	if tick.Status != "Subject: Mathematics | Slot: 09:00-10:00" {
		t.Errorf("unexpected status %q", tick.Status)
	}
	if len(tick.Absent) != 0 {
		t.Errorf("expected no sweep during grace, got %v", tick.Absent)
	}

	f.now = at(9, 8, 0)
	tick = f.frame("Alice")
	if tick.Outcomes[0].Action != ActionDuplicate {
		t.Errorf("expected duplicate for second sighting, got %s", tick.Outcomes[0].Action)
	}

	f.now = at(9, 12, 0)
	tick = f.frame("Bob")
	if tick.Outcomes[0].Action != ActionLate {
		t.Errorf("expected Bob to be late, got %s", tick.Outcomes[0].Action)
	}
	if tick.Status != StatusGraceEnded {
		t.Errorf("expected grace ended status, got %q", tick.Status)
	}
	if len(tick.Absent) != 1 || tick.Absent[0] != "Bob" {
		t.Errorf("expected sweep to mark Bob absent, got %v", tick.Absent)
	}

	if got := statusOf(t, f.ledger, "Alice", "Mathematics"); got != database.StatusPresent {
		t.Errorf("Alice = %s, want Present", got)
	}
	if got := statusOf(t, f.ledger, "Bob", "Mathematics"); got != database.StatusAbsent {
		t.Errorf("Bob = %s, want Absent", got)
	}

	recs := f.ledger.Records()
	if recs[0].Date != "2024-01-01" || recs[0].Day != "Monday" || recs[0].Time != "09:05:00" || recs[0].Slot != "09:00-10:00" {
		t.Errorf("unexpected Present record fields %+v", recs[0])
	}
}

func TestEngine_NoActiveSlotSkipsMatching(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.now = at(12, 0, 0)

	tick := f.frame("Alice")
	if tick.Status != StatusNoActiveSlot {
		t.Errorf("expected no-slot status, got %q", tick.Status)
	}
	if f.matcher.calls != 0 {
		t.Errorf("expected matcher not to run, ran %d times", f.matcher.calls)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("expected no ledger writes")
	}
}

func TestEngine_UnknownFaceSnapshotsOncePerVerdict(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.now = at(9, 1, 0)

	tick := f.frame(UnknownIdentity)
	if f.sink.count() != 1 {
		t.Errorf("expected 1 snapshot, got %d", f.sink.count())
	}
	if tick.Outcomes[0].Action != ActionUnknown {
		t.Errorf("expected unknown action, got %s", tick.Outcomes[0].Action)
	}
	if len(f.ledger.Records()) != 0 {
		t.Error("unknown faces must never reach the ledger")
	}
	if tick.Status != SlotStatus(*tick.Slot) {
		t.Errorf("unknown face must not change status, got %q", tick.Status)
	}
}

func TestEngine_SnapshotFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.sink.err = errors.New("disk full")
	f.now = at(9, 1, 0)

	tick := f.frame(UnknownIdentity, "Alice")
	if len(tick.Outcomes) != 2 || tick.Outcomes[1].Action != ActionRecorded {
		t.Fatalf("expected Alice recorded after failed snapshot, got %+v", tick.Outcomes)
	}
}

func TestEngine_UnknownAfterGraceKeepsSlotStatus(t *testing.T) {
	f := newFixture(t, staticRoster{})
	f.now = at(9, 30, 0)

	tick := f.frame(UnknownIdentity)
	if tick.Status != "Subject: Mathematics | Slot: 09:00-10:00" {
		t.Errorf("expected slot status, got %q", tick.Status)
	}
}

func TestEngine_StatusIsLastWins(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice", "Bob"})
	f.now = at(9, 20, 0)

	tick := f.frame("Alice", UnknownIdentity)
	if tick.Status != StatusGraceEnded {
		t.Errorf("expected grace ended status to stick, got %q", tick.Status)
	}
}

func TestEngine_LedgerFailureIsIsolated(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice", "Bob"})
	f.ledger.AppendErrorFor = map[string]error{"Alice": errors.New("connection reset")}
	f.now = at(9, 2, 0)

	tick := f.frame("Alice", "Bob")
	if tick.Outcomes[0].Action != ActionFailed || tick.Outcomes[0].Error == "" {
		t.Errorf("expected Alice to fail, got %+v", tick.Outcomes[0])
	}
	if tick.Outcomes[1].Action != ActionRecorded {
		t.Errorf("expected Bob to be recorded, got %+v", tick.Outcomes[1])
	}
}

func TestEngine_MatcherErrorStillSweeps(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.matcher.err = errors.New("face service down")
	f.now = at(9, 40, 0)

	tick := f.engine.ProcessFrame(context.Background(), Frame{CameraID: "cam0"})
	if len(tick.Outcomes) != 0 {
		t.Errorf("expected no outcomes, got %+v", tick.Outcomes)
	}
	if len(tick.Absent) != 1 || tick.Absent[0] != "Alice" {
		t.Errorf("expected Alice swept absent, got %v", tick.Absent)
	}
}

func TestEngine_ResolverErrorReportsUnavailable(t *testing.T) {
	store := mock.NewMockTimetableStore()
	store.EntriesError = errors.New("db down")
	ledger := mock.NewMockLedger()
	m := &stubMatcher{}
	e := NewEngine(Dependencies{
		Resolver: timetable.NewResolver(store, time.UTC),
		Ledger:   ledger,
		Roster:   staticRoster{"Alice"},
		Matcher:  m,
		Location: time.UTC,
		Now:      func() time.Time { return at(9, 5, 0) },
	}, 10*time.Minute)

	tick := e.ProcessFrame(context.Background(), Frame{})
	if tick.Status != StatusTimetableUnavailable {
		t.Errorf("expected unavailable status, got %q", tick.Status)
	}
	if m.calls != 0 {
		t.Error("matcher must not run without a slot")
	}
}

func TestEngine_ConcurrentCamerasWriteOnce(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.now = at(9, 3, 0)
	f.matcher.set("Alice")

	const cameras = 16
	var wg sync.WaitGroup
	ticks := make(chan Tick, cameras)
	for range cameras {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticks <- f.engine.ProcessFrame(context.Background(), Frame{CameraID: "cam"})
		}()
	}
	wg.Wait()
	close(ticks)

	recorded := 0
	for tick := range ticks {
		for _, o := range tick.Outcomes {
			if o.Action == ActionRecorded {
				recorded++
			}
		}
	}
	if recorded != 1 {
		t.Errorf("expected exactly one recorded outcome, got %d", recorded)
	}
	if f.ledger.AppendCount() != 1 {
		t.Errorf("expected 1 append, got %d", f.ledger.AppendCount())
	}
}

func TestEngine_ArrivalAtGraceLimitIsPresent(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice", "Bob"})

	f.now = at(9, 10, 0)
	tick := f.frame("Alice")
	if len(tick.Outcomes) != 1 || tick.Outcomes[0].Action != ActionRecorded {
		t.Fatalf("expected Alice recorded at the grace limit, got %+v", tick.Outcomes)
	}
	if tick.Status != "Subject: Mathematics | Slot: 09:00-10:00" {
		t.Errorf("unexpected status %q", tick.Status)
	}
	if len(tick.Absent) != 0 {
		t.Errorf("expected no sweep at the grace limit, got %v", tick.Absent)
	}
	if got := statusOf(t, f.ledger, "Alice", "Mathematics"); got != database.StatusPresent {
		t.Errorf("Alice = %s, want Present", got)
	}

	f.now = at(9, 10, 0).Add(time.Second)
	tick = f.frame("Bob")
	if tick.Outcomes[0].Action != ActionLate {
		t.Errorf("expected Bob late one second after the limit, got %s", tick.Outcomes[0].Action)
	}
}

func TestEngine_RouterAndSweeperRaceWriteOnce(t *testing.T) {
	slot, err := timetable.NewSlot("Mathematics", "09:00", "10:00")
	if err != nil {
		t.Fatal(err)
	}

	for range 50 {
		f := newFixture(t, staticRoster{"Alice", "Bob"})
		f.now = at(9, 10, 0)
		f.matcher.set("Alice")

		var wg sync.WaitGroup
		var swept []string
		var sweepErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.engine.ProcessFrame(context.Background(), Frame{CameraID: "cam0"})
		}()
		go func() {
			defer wg.Done()
			swept, sweepErr = f.engine.Sweep(context.Background(), slot, at(9, 10, 1))
		}()
		wg.Wait()

		if sweepErr != nil {
			t.Fatalf("Sweep() error = %v", sweepErr)
		}
		// Alice is Present or Absent depending on who won, never both.
		alice := statusOf(t, f.ledger, "Alice", "Mathematics")
		if got := statusOf(t, f.ledger, "Bob", "Mathematics"); got != database.StatusAbsent {
			t.Errorf("Bob = %s, want Absent", got)
		}
		if (alice == database.StatusAbsent) != slices.Contains(swept, "Alice") {
			t.Errorf("sweep reported %v but Alice is %s", swept, alice)
		}
		if f.ledger.AppendCount() != 2 {
			t.Errorf("expected 2 appends, got %d", f.ledger.AppendCount())
		}
	}
}

func TestSweep(t *testing.T) {
	slot, err := timetable.NewSlot("Physics", "10:00", "11:00")
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}

	t.Run("no-op while accepting", func(t *testing.T) {
		f := newFixture(t, staticRoster{"Alice"})
		absent, err := f.engine.Sweep(context.Background(), slot, at(10, 10, 0))
		if err != nil || absent != nil {
			t.Errorf("expected no-op, got %v (err=%v)", absent, err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(t, staticRoster{"Alice", "Bob", "Carol"})
		f.ledger.AddRecord(database.AttendanceRecord{Name: "Alice", Date: "2024-01-01", Subject: "Physics", Status: database.StatusPresent})

		absent, err := f.engine.Sweep(context.Background(), slot, at(10, 15, 0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(absent) != 2 {
			t.Errorf("expected Bob and Carol absent, got %v", absent)
		}

		absent, err = f.engine.Sweep(context.Background(), slot, at(10, 16, 0))
		if err != nil || len(absent) != 0 {
			t.Errorf("expected second sweep to write nothing, got %v (err=%v)", absent, err)
		}
		if len(f.ledger.Records()) != 3 {
			t.Errorf("expected 3 records, got %d", len(f.ledger.Records()))
		}
		if got := statusOf(t, f.ledger, "Alice", "Physics"); got != database.StatusPresent {
			t.Errorf("sweep must not overwrite Present, got %s", got)
		}
	})

	t.Run("empty roster", func(t *testing.T) {
		f := newFixture(t, staticRoster{})
		absent, err := f.engine.Sweep(context.Background(), slot, at(10, 30, 0))
		if err != nil || len(absent) != 0 {
			t.Errorf("expected nothing, got %v (err=%v)", absent, err)
		}
	})

	t.Run("roster error", func(t *testing.T) {
		f := newFixture(t, failingRoster{err: errors.New("faces dir missing")})
		if _, err := f.engine.Sweep(context.Background(), slot, at(10, 30, 0)); err == nil {
			t.Error("expected roster error")
		}
	})

	t.Run("per student failure continues", func(t *testing.T) {
		f := newFixture(t, staticRoster{"Alice", "Bob"})
		f.ledger.AppendErrorFor = map[string]error{"Alice": errors.New("timeout")}
		absent, err := f.engine.Sweep(context.Background(), slot, at(10, 30, 0))
		if err == nil {
			t.Error("expected joined error for Alice")
		}
		if len(absent) != 1 || absent[0] != "Bob" {
			t.Errorf("expected Bob absent, got %v", absent)
		}
	})

	t.Run("other subjects untouched", func(t *testing.T) {
		f := newFixture(t, staticRoster{"Alice"})
		f.ledger.AddRecord(database.AttendanceRecord{Name: "Alice", Date: "2024-01-01", Subject: "Mathematics", Status: database.StatusPresent})
		absent, _ := f.engine.Sweep(context.Background(), slot, at(10, 30, 0))
		if len(absent) != 1 {
			t.Errorf("expected Alice absent for Physics, got %v", absent)
		}
	})
}

func TestSweepCurrent_NoSlot(t *testing.T) {
	f := newFixture(t, staticRoster{"Alice"})
	f.now = at(20, 0, 0)

	slot, absent, err := f.engine.SweepCurrent(context.Background())
	if slot != nil || absent != nil || err != nil {
		t.Errorf("expected nothing outside lectures, got %v %v %v", slot, absent, err)
	}
}
