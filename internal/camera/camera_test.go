package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func waitReady(t *testing.T, s Source) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("source never became ready")
	}
}

func TestEncodeFrame_Resizes(t *testing.T) {
	data, w, h, err := EncodeFrame(pngBytes(t, 400, 200), 100, 80)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if w != 100 || h != 50 {
		t.Errorf("dimensions = %dx%d, want 100x50", w, h)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if format != "jpeg" || cfg.Width != 100 {
		t.Errorf("output = %s %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestEncodeFrame_InvalidData(t *testing.T) {
	if _, _, _, err := EncodeFrame([]byte("not an image"), 100, 80); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestFrameDataURL(t *testing.T) {
	f := Frame{Data: []byte{0xFF, 0xD8, 0xFF}}
	if got := f.DataURL(); got != "data:image/jpeg;base64,/9j/" {
		t.Errorf("DataURL() = %q", got)
	}
}

func TestDirSource_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 64, 48), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := NewDirSource(dir, nil)
	if _, _, ok := src.Dimensions(); ok {
		t.Error("dimensions must be unknown before the first frame")
	}

	if err := src.Open(context.Background(), Constraints{Width: 1280, Height: 720, FPS: 50}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitReady(t, src)

	w, h, ok := src.Dimensions()
	if !ok || w != 64 || h != 48 {
		t.Errorf("Dimensions() = %d, %d, %v", w, h, ok)
	}
	frame, ok := src.Latest()
	if !ok || len(frame.Data) == 0 || frame.Seq == 0 {
		t.Errorf("unexpected latest frame %+v", frame)
	}

	if err := src.Open(context.Background(), DefaultConstraints()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Open error = %v, want ErrAlreadyRunning", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := src.Latest(); ok {
		t.Error("Close must clear the latest frame")
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDirSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "missing")},
		{"empty directory", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDirSource(tt.dir, nil).Open(context.Background(), DefaultConstraints())
			if !errors.Is(err, ErrDeviceUnavailable) {
				t.Errorf("Open() error = %v, want ErrDeviceUnavailable", err)
			}
		})
	}
}

func TestSnapshotSource_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrPermissionDenied},
		{"forbidden", http.StatusForbidden, ErrPermissionDenied},
		{"not found", http.StatusNotFound, ErrDeviceUnavailable},
		{"server error", http.StatusInternalServerError, ErrDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := NewSnapshotSource(server.URL, nil).Open(context.Background(), DefaultConstraints())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotSource_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewSnapshotSource(url, nil).Open(context.Background(), DefaultConstraints())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Open() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestSnapshotSource_Frames(t *testing.T) {
	body := jpegBytes(t, 320, 240)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	defer server.Close()

	src := NewSnapshotSource(server.URL, nil)
	if err := src.Open(context.Background(), Constraints{Width: 1280, Height: 720, FPS: 20}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	waitReady(t, src)
	if w, h, ok := src.Dimensions(); !ok || w != 320 || h != 240 {
		t.Errorf("Dimensions() = %d, %d, %v", w, h, ok)
	}
}

func TestSnapshotSource_ProbeIsFirstFrame(t *testing.T) {
	body := jpegBytes(t, 320, 240)
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	defer server.Close()

	src := NewSnapshotSource(server.URL, nil)
	// One frame per minute: only the fetch made by Open can make the source ready.
	if err := src.Open(context.Background(), Constraints{Width: 1280, Height: 720, FPS: 1.0 / 60}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	select {
	case <-src.Ready():
	default:
		t.Fatal("source should be ready as soon as Open returns")
	}
	frame, ok := src.Latest()
	if !ok || frame.Width != 320 || frame.Height != 240 {
		t.Errorf("Latest() = %dx%d, %v", frame.Width, frame.Height, ok)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("snapshot fetched %d times, want 1", got)
	}
}

// stubSource is a Source whose Open result is fixed.
type stubSource struct {
	frameBuffer
	openErr error
	opened  int
	closed  int
}

func (s *stubSource) Open(ctx context.Context, c Constraints) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened++
	s.reset()
	s.publish([]byte{1}, c.Width, c.Height)
	return nil
}

func (s *stubSource) Close() error {
	s.closed++
	s.clear()
	return nil
}

func TestController_Controls(t *testing.T) {
	src := &stubSource{}
	ctrl := NewController(src, DefaultConstraints(), nil)

	if got := ctrl.Controls(); got != (Controls{Start: true}) {
		t.Errorf("idle controls = %+v", got)
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.Controls(); got != (Controls{Stop: true, Scan: true}) {
		t.Errorf("running controls = %+v", got)
	}
	if err := ctrl.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start error = %v", err)
	}
	if err := ctrl.WaitReady(context.Background()); err != nil {
		t.Errorf("WaitReady: %v", err)
	}

	st := ctrl.Status()
	if !st.Ready || st.Width != 1280 || st.Height != 720 {
		t.Errorf("unexpected status %+v", st)
	}

	if err := ctrl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := ctrl.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if src.closed != 1 {
		t.Errorf("source closed %d times, want 1", src.closed)
	}
	if _, ok := ctrl.Frame(); ok {
		t.Error("no frame expected after Stop")
	}
}

func TestController_StartFailureLeavesSafeControls(t *testing.T) {
	for _, openErr := range []error{ErrPermissionDenied, ErrDeviceUnavailable} {
		t.Run(openErr.Error(), func(t *testing.T) {
			ctrl := NewController(&stubSource{openErr: openErr}, DefaultConstraints(), nil)

			err := ctrl.Start(context.Background())
			if !errors.Is(err, openErr) {
				t.Fatalf("Start() error = %v, want %v", err, openErr)
			}
			if ctrl.Running() {
				t.Error("controller must stay idle")
			}
			if got := ctrl.Controls(); got != (Controls{Start: true}) {
				t.Errorf("controls = %+v, want only start", got)
			}
			if !errors.Is(ctrl.LastError(), openErr) {
				t.Errorf("LastError() = %v", ctrl.LastError())
			}
			if ctrl.Status().Error == "" {
				t.Error("status must carry the error message")
			}
		})
	}
}

func TestController_PausedSourceHasNoFrame(t *testing.T) {
	src := &stubSource{}
	ctrl := NewController(src, DefaultConstraints(), nil)
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.SetPaused(true)
	if _, ok := ctrl.Frame(); ok {
		t.Error("paused source must not yield frames")
	}
	src.SetPaused(false)
	if _, ok := ctrl.Frame(); !ok {
		t.Error("expected frame after resume")
	}
}
