// Package camera owns frame acquisition: the Source implementations and the
// Controller that enforces a single active camera session.
package camera

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
)

var (
	// ErrPermissionDenied means the platform refused access to the camera.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable means no usable capture device was found.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("camera already running")
)

// Frame is one captured still, JPEG encoded.
type Frame struct {
	Seq        uint64
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// DataURL returns the frame as a base64 JPEG data URL.
func (f Frame) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Constraints are the capture preferences passed to Open.
type Constraints struct {
	Width  int
	Height int
	Facing string
	FPS    float64
}

// DefaultConstraints asks for 1280x720 from the user-facing camera.
func DefaultConstraints() Constraints {
	return Constraints{Width: 1280, Height: 720, Facing: "user", FPS: 10}
}

// maxSize is the longer frame side, capped at constants.MaxFrameSize.
func (c Constraints) maxSize() int {
	return min(max(c.Width, c.Height), constants.MaxFrameSize)
}

func (c Constraints) interval() time.Duration {
	if c.FPS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / c.FPS)
}

// Source produces a continuously updated latest frame between Open and Close.
type Source interface {
	// Open acquires the device. It returns ErrPermissionDenied or
	// ErrDeviceUnavailable (possibly wrapped) when the device cannot be used.
	Open(ctx context.Context, c Constraints) error
	// Close releases the device and clears the latest frame. Safe to call repeatedly.
	Close() error
	// Latest returns the most recent frame, false before the first frame.
	Latest() (Frame, bool)
	// Ready is closed once the first frame of the current session has arrived.
	Ready() <-chan struct{}
	// Dimensions returns the frame size, known only after Ready.
	Dimensions() (width, height int, ok bool)
	// Paused reports whether capture is temporarily suspended.
	Paused() bool
}

// frameBuffer is the latest-frame store shared by the Source implementations.
type frameBuffer struct {
	mu     sync.RWMutex
	latest Frame
	has    bool
	seq    uint64
	ready  chan struct{}
	fired  bool
	paused atomic.Bool
}

func (b *frameBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = Frame{}
	b.has = false
	b.ready = make(chan struct{})
	b.fired = false
}

func (b *frameBuffer) publish(data []byte, width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.latest = Frame{
		Seq:        b.seq,
		Data:       data,
		Width:      width,
		Height:     height,
		CapturedAt: time.Now(),
	}
	b.has = true
	if b.ready == nil {
		b.ready = make(chan struct{})
	}
	if !b.fired {
		b.fired = true
		close(b.ready)
	}
}

// clear drops the latest frame and leaves the ready channel closed for
// waiters of the finished session.
func (b *frameBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = Frame{}
	b.has = false
}

// Latest returns the most recent frame.
func (b *frameBuffer) Latest() (Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest, b.has
}

// Ready is closed when the first frame arrives.
func (b *frameBuffer) Ready() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready == nil {
		b.ready = make(chan struct{})
	}
	return b.ready
}

// Dimensions returns the size of the latest frame.
func (b *frameBuffer) Dimensions() (int, int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.has {
		return 0, 0, false
	}
	return b.latest.Width, b.latest.Height, true
}

// Paused reports whether capture is suspended.
func (b *frameBuffer) Paused() bool {
	return b.paused.Load()
}

// SetPaused suspends or resumes capture. The latest frame is kept.
func (b *frameBuffer) SetPaused(p bool) {
	b.paused.Store(p)
}
