// Package monitor runs the camera session: a polling loop that keeps the
// overlay current and the on-demand scan that updates the session counters.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/demo"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

var (
	ErrScanInProgress   = errors.New("scan already in progress")
	ErrCameraNotRunning = errors.New("camera is not running")
	ErrBackendNotReady  = errors.New("recognition backend is not ready")
	ErrFrameNotReady    = errors.New("no frame captured yet")
)

const statusTimeout = 5 * time.Second

// State of the monitor.
type State string

const (
	StateIdle     State = "idle"
	StateArmed    State = "armed"    // camera running, waiting for the first frame
	StateSampling State = "sampling" // frames flowing, loop active
)

// Notifier receives completed scans, e.g. to publish alerts.
type Notifier interface {
	Notify(ctx context.Context, report ScanReport) error
}

// Options configures a Monitor.
type Options struct {
	Policy    facematch.Policy
	Interval  time.Duration // polling period
	ScanDelay time.Duration // feedback delay before a scan verdict is recorded

	// Fabricator, when set, replaces the backend for scans.
	Fabricator *demo.Fabricator
	Lookup     facematch.PersonLookup
	Notifier   Notifier
	Logger     *slog.Logger
}

// Monitor owns one camera session at a time.
type Monitor struct {
	camera  *camera.Controller
	backend recognition.Backend
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	scanning atomic.Bool

	mu            sync.Mutex
	epoch         uint64
	cancel        context.CancelFunc
	done          chan struct{}
	overlay       Overlay
	counters      facematch.SessionCounters
	lastScan      *ScanReport
	backendStatus recognition.Status
	subs          subscribers
}

// New creates an idle monitor.
func New(cam *camera.Controller, backend recognition.Backend, opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Policy == (facematch.Policy{}) {
		opts.Policy = facematch.DefaultPolicy()
	}
	m := &Monitor{
		camera:  cam,
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
		now:     time.Now,
	}
	m.overlay = clearedOverlay(0, m.now())
	if backend != nil {
		m.backendStatus = recognition.Status{Backend: backend.Name()}
	}
	return m
}

// Fabricated reports whether scans produce fabricated verdicts.
func (m *Monitor) Fabricated() bool {
	return m.opts.Fabricator != nil
}

// RefreshBackend queries the backend status and caches it for readiness gating.
func (m *Monitor) RefreshBackend(ctx context.Context) (recognition.Status, error) {
	if m.backend == nil {
		return recognition.Status{}, ErrBackendNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	st, err := m.backend.Status(ctx)
	if err != nil {
		st.Ready = false
		m.logger.Warn("recognition backend unavailable", "backend", m.backend.Name(), "error", err)
	} else if !st.Ready {
		m.logger.Warn("recognition backend not ready", "backend", st.Backend, "message", st.Message)
	} else {
		m.logger.Info("recognition backend ready", "backend", st.Backend,
			"references", st.ReferencesLoaded, "person", st.Person, "model", st.Model)
	}

	m.mu.Lock()
	m.backendStatus = st
	m.mu.Unlock()
	return st, err
}

func (m *Monitor) backendReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backendStatus.Ready
}

// Start checks the backend, acquires the camera and arms the polling loop.
// Without a ready backend the camera is not started, unless scans are fabricated.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.RefreshBackend(ctx); err != nil || !m.backendReady() {
		if !m.Fabricated() {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBackendNotReady, err)
			}
			return ErrBackendNotReady
		}
	}

	if err := m.camera.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	// A Stop between camera.Start and here has already released the camera.
	if !m.camera.Running() {
		m.mu.Unlock()
		return ErrCameraNotRunning
	}

	prevCancel, prevDone := m.cancel, m.done
	m.epoch++
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	m.setOverlay(clearedOverlay(m.epoch, m.now()))

	go m.run(loopCtx, m.epoch, m.done)
	epoch := m.epoch
	m.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	m.logger.Info("monitoring started", "epoch", epoch, "interval", m.opts.Interval)
	return nil
}

// Stop cancels the loop, discards in-flight results, clears the overlay and
// releases the camera. It is idempotent.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	m.epoch++
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.setOverlay(clearedOverlay(m.epoch, m.now()))
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		m.logger.Info("monitoring stopped")
	}
	return m.camera.Stop()
}

func (m *Monitor) run(ctx context.Context, epoch uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, epoch)
		}
	}
}

// tick samples one frame. A missing or paused frame is a no-op, and so is a
// backend failure. The result is applied only if the session epoch is unchanged.
func (m *Monitor) tick(ctx context.Context, epoch uint64) {
	if !m.backendReady() {
		return
	}
	frame, ok := m.camera.Frame()
	if !ok {
		return
	}

	raw, err := m.backend.Recognize(ctx, frame)
	if err != nil {
		m.logRecognizeError("poll", err)
		return
	}
	result := facematch.Decide(raw, m.opts.Policy, m.opts.Lookup)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("discarding stale result", "epoch", epoch, "current", m.epoch)
		return
	}
	m.setOverlay(buildOverlay(epoch, raw, result, m.now()))
}

func (m *Monitor) logRecognizeError(op string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
	case errors.Is(err, recognition.ErrBackendUnavailable):
		m.logger.Warn("recognition backend unavailable", "op", op, "error", err)
	default:
		m.logger.Debug("detection failed", "op", op, "error", err)
	}
}

// setOverlay must be called with mu held.
func (m *Monitor) setOverlay(ov Overlay) {
	m.overlay = ov
	m.subs.broadcast(ov)
}

// Overlay returns the current overlay.
func (m *Monitor) Overlay() Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlay
}

// Subscribe registers an overlay listener. The current overlay is delivered
// first. The returned function unsubscribes and closes the channel.
func (m *Monitor) Subscribe() (<-chan Overlay, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ch := m.subs.add()
	ch <- m.overlay

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			m.subs.remove(id)
			m.mu.Unlock()
		})
	}
}

// Close stops the session and disconnects all listeners.
func (m *Monitor) Close() error {
	err := m.Stop()
	m.mu.Lock()
	m.subs.closeAll()
	m.mu.Unlock()
	return err
}

// Counters returns the session counters.
func (m *Monitor) Counters() facematch.SessionCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// Status is a snapshot of the whole session for display.
type Status struct {
	State      State                     `json:"state"`
	Epoch      uint64                    `json:"epoch"`
	Camera     camera.Status             `json:"camera"`
	Backend    recognition.Status        `json:"backend"`
	Counters   facematch.SessionCounters `json:"counters"`
	Scanning   bool                      `json:"scanning"`
	Fabricated bool                      `json:"fabricated"`
	LastScan   *ScanReport               `json:"last_scan,omitempty"`
}

// Status returns the session snapshot.
func (m *Monitor) Status() Status {
	cam := m.camera.Status()

	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:      StateIdle,
		Epoch:      m.epoch,
		Camera:     cam,
		Backend:    m.backendStatus,
		Counters:   m.counters,
		Scanning:   m.scanning.Load(),
		Fabricated: m.opts.Fabricator != nil,
		LastScan:   m.lastScan,
	}
	if cam.State == camera.StateRunning {
		st.State = StateArmed
		if cam.Ready {
			st.State = StateSampling
		}
	}
	return st
}
