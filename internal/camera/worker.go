package camera

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/constants"
)

// Source produces frames.
type Source interface {
	Grab(ctx context.Context) (attendance.Frame, error)
}

// FrameProcessor runs one attendance tick for a frame.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, frame attendance.Frame) attendance.Tick
}

// Monitor keeps the latest tick of every camera for the status API.
type Monitor struct {
	mu     sync.RWMutex
	latest map[string]CameraStatus
}

// CameraStatus is the last known state of one camera.
type CameraStatus struct {
	CameraID  string           `json:"camera_id"`
	Tick      *attendance.Tick `json:"tick,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{latest: make(map[string]CameraStatus)}
}

func (m *Monitor) update(id string, tick *attendance.Tick, err error) {
	st := CameraStatus{CameraID: id, Tick: tick, UpdatedAt: time.Now()}
	if err != nil {
		st.LastError = err.Error()
	}
	m.mu.Lock()
	m.latest[id] = st
	m.mu.Unlock()
}

// Statuses returns the state of every camera, sorted by id.
func (m *Monitor) Statuses() []CameraStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CameraStatus, 0, len(m.latest))
	for _, st := range m.latest {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

// Worker polls one camera and processes every frame.
type Worker struct {
	ID        string
	Source    Source
	Processor FrameProcessor
	Interval  time.Duration
	Monitor   *Monitor // optional
}

// Run processes frames until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = constants.DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Camera %s: started (interval %s)", w.ID, interval)
	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			log.Printf("Camera %s: stopped", w.ID)
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	frame, err := w.Source.Grab(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Camera %s: %v", w.ID, err)
		}
		if w.Monitor != nil {
			w.Monitor.update(w.ID, nil, err)
		}
		return
	}
	if frame.CameraID == "" {
		frame.CameraID = w.ID
	}

	tick := w.Processor.ProcessFrame(ctx, frame)
	if w.Monitor != nil {
		w.Monitor.update(w.ID, &tick, nil)
	}
}

// RunAll starts one worker per source and blocks until all stop.
func RunAll(ctx context.Context, workers []*Worker) {
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Wait()
}
