package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State of a camera session.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Controls says which operator actions are currently allowed.
type Controls struct {
	Start bool `json:"start"`
	Stop  bool `json:"stop"`
	Scan  bool `json:"scan"`
}

// Status is a snapshot of the controller for display.
type Status struct {
	State    State    `json:"state"`
	Controls Controls `json:"controls"`
	Ready    bool     `json:"ready"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Paused   bool     `json:"paused"`
	Error    string   `json:"error,omitempty"`
}

// Controller owns the single camera session.
type Controller struct {
	source      Source
	constraints Constraints
	logger      *slog.Logger

	mu      sync.RWMutex
	state   State
	lastErr error
}

// NewController wraps source. The controller starts idle.
func NewController(source Source, constraints Constraints, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		source:      source,
		constraints: constraints,
		logger:      logger,
		state:       StateIdle,
	}
}

// Start acquires the camera. On PermissionDenied or DeviceUnavailable the
// controller stays idle and keeps the error for display; it does not retry.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return ErrAlreadyRunning
	}

	if err := c.source.Open(ctx, c.constraints); err != nil {
		c.lastErr = err
		switch {
		case errors.Is(err, ErrPermissionDenied):
			c.logger.Error("camera access denied", "error", err)
		case errors.Is(err, ErrDeviceUnavailable):
			c.logger.Error("camera unavailable", "error", err)
		default:
			c.logger.Error("camera start failed", "error", err)
		}
		return fmt.Errorf("starting camera: %w", err)
	}

	c.lastErr = nil
	c.state = StateRunning
	c.logger.Info("camera started", "width", c.constraints.Width, "height", c.constraints.Height)
	return nil
}

// Stop releases the camera. Calling Stop while idle is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return nil
	}
	c.state = StateIdle
	if err := c.source.Close(); err != nil {
		return fmt.Errorf("stopping camera: %w", err)
	}
	c.logger.Info("camera stopped")
	return nil
}

// Running reports whether a session is active.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateRunning
}

// Controls returns the allowed actions: start only when idle, stop and scan only when running.
func (c *Controller) Controls() Controls {
	running := c.Running()
	return Controls{Start: !running, Stop: running, Scan: running}
}

// LastError returns the error of the last failed Start, if any.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Frame returns the latest frame when the session is running, the first frame
// has arrived and capture is not paused.
func (c *Controller) Frame() (Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateRunning || c.source.Paused() {
		return Frame{}, false
	}
	return c.source.Latest()
}

// WaitReady blocks until the first frame arrives or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	c.mu.RLock()
	running := c.state == StateRunning
	ready := c.source.Ready()
	c.mu.RUnlock()

	if !running {
		return errors.New("camera not running")
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for first frame: %w", ctx.Err())
	}
}

// Status returns a snapshot for display.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	running := c.state == StateRunning
	st := Status{
		State:    c.state,
		Controls: Controls{Start: !running, Stop: running, Scan: running},
		Paused:   c.source.Paused(),
	}
	if w, h, ok := c.source.Dimensions(); ok && running {
		st.Ready = true
		st.Width = w
		st.Height = h
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}
