package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/camera"
	"github.com/kozaktomas/classroll/internal/timetable"
)

// EngineHandler exposes the live state of the attendance engine
type EngineHandler struct {
	engine  *attendance.Engine
	monitor *camera.Monitor
	onSweep func()
}

// NewEngineHandler creates a new engine handler. monitor and onSweep may be nil.
func NewEngineHandler(engine *attendance.Engine, monitor *camera.Monitor, onSweep func()) *EngineHandler {
	return &EngineHandler{
		engine:  engine,
		monitor: monitor,
		onSweep: onSweep,
	}
}

// SlotResponse describes the lecture running now and its grace window.
type SlotResponse struct {
	Now        time.Time       `json:"now"`
	Status     string          `json:"status"`
	Slot       *timetable.Slot `json:"slot,omitempty"`
	Window     string          `json:"window,omitempty"`
	GraceUntil *time.Time      `json:"grace_until,omitempty"`
}

func (h *EngineHandler) currentSlot(r *http.Request) SlotResponse {
	slot, now, err := h.engine.CurrentSlot(r.Context())
	resp := SlotResponse{Now: now}
	switch {
	case err != nil:
		log.Printf("Failed to resolve current slot: %v", err)
		resp.Status = attendance.StatusTimetableUnavailable
	case slot == nil:
		resp.Status = attendance.StatusNoActiveSlot
	default:
		start := slot.StartAt(now)
		limit := attendance.GraceLimit(start, h.engine.GracePeriod())
		state := attendance.WindowStateAt(start, now, h.engine.GracePeriod())
		resp.Slot = slot
		resp.Window = state.String()
		resp.GraceUntil = &limit
		resp.Status = attendance.SlotStatus(*slot)
		if state == attendance.Expired {
			resp.Status = attendance.StatusGraceEnded
		}
	}
	return resp
}

// Current returns the lecture slot running now
func (h *EngineHandler) Current(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.currentSlot(r))
}

// EngineStatusResponse combines the current slot with the latest tick per camera.
type EngineStatusResponse struct {
	Current SlotResponse           `json:"current"`
	Cameras []camera.CameraStatus `json:"cameras"`
}

// Status returns the current slot and the last tick of every camera
func (h *EngineHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := EngineStatusResponse{
		Current: h.currentSlot(r),
		Cameras: []camera.CameraStatus{},
	}
	if h.monitor != nil {
		resp.Cameras = append(resp.Cameras, h.monitor.Statuses()...)
	}
	respondJSON(w, http.StatusOK, resp)
}

// SweepResponse reports a manual absentee sweep.
type SweepResponse struct {
	Status string          `json:"status"`
	Slot   *timetable.Slot `json:"slot,omitempty"`
	Absent []string        `json:"absent"`
	Error  string          `json:"error,omitempty"`
}

// Sweep marks unmarked roster students absent for the slot running now. It
// is a no-op while the grace window is still open.
func (h *EngineHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	slot, absent, err := h.engine.SweepCurrent(r.Context())
	if slot == nil && err != nil {
		log.Printf("Manual sweep failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, attendance.StatusTimetableUnavailable)
		return
	}

	resp := SweepResponse{Slot: slot, Absent: absent}
	if resp.Absent == nil {
		resp.Absent = []string{}
	}
	if slot == nil {
		resp.Status = attendance.StatusNoActiveSlot
	} else {
		resp.Status = attendance.SlotStatus(*slot)
	}
	if err != nil {
		log.Printf("Manual sweep for %s incomplete: %v", slot.Subject, err)
		resp.Error = err.Error()
	}

	if len(absent) > 0 && h.onSweep != nil {
		h.onSweep()
	}
	respondJSON(w, http.StatusOK, resp)
}
