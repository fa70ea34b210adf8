package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/monitor"
)

// Session is the camera session the API drives.
type Session interface {
	Start(ctx context.Context) error
	Stop() error
	Scan(ctx context.Context) (monitor.ScanReport, error)
	Status() monitor.Status
	Overlay() monitor.Overlay
	Counters() facematch.SessionCounters
	Subscribe() (<-chan monitor.Overlay, func())
}

// SessionHandler handles camera control, scans and session statistics.
type SessionHandler struct {
	session Session
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session Session, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{session: session, logger: logger}
}

// sessionErrorStatus maps session errors to HTTP status codes.
func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, camera.ErrDeviceUnavailable),
		errors.Is(err, monitor.ErrBackendNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrAlreadyRunning),
		errors.Is(err, monitor.ErrScanInProgress),
		errors.Is(err, monitor.ErrCameraNotRunning),
		errors.Is(err, monitor.ErrFrameNotReady):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Start acquires the camera and arms the polling loop.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(r.Context()); err != nil {
		status := sessionErrorStatus(err)
		h.logger.Warn("camera start refused", "status", status, "error", sanitizeForLog(err.Error()))
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.session.Status())
}

// Stop releases the camera.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.session.Status())
}

// Status returns the session snapshot, including the enabled controls.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Status())
}

// Scan runs one recognition and returns the verdict with the updated counters.
func (h *SessionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	report, err := h.session.Scan(r.Context())
	if err != nil {
		respondError(w, sessionErrorStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Overlay returns the current overlay.
func (h *SessionHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Overlay())
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	facematch.SessionCounters
	MatchRate float64 `json:"match_rate"`
}

// Stats returns the session counters.
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	c := h.session.Counters()
	resp := StatsResponse{SessionCounters: c}
	if c.ScanCount > 0 {
		resp.MatchRate = float64(c.MatchCount) / float64(c.ScanCount)
	}
	respondJSON(w, http.StatusOK, resp)
}
