package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facewatch/internal/facematch"
)

// ScanReport is the outcome of one on-demand scan.
type ScanReport struct {
	ID       string                      `json:"id"`
	Result   facematch.RecognitionResult `json:"result"`
	Verdict  facematch.Verdict           `json:"verdict"`
	Counters facematch.SessionCounters   `json:"counters"`
	// Error is set when the backend failed and the scan counted as no face.
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Scan performs exactly one recognition on the latest frame and records it in
// the session counters. Only one scan runs at a time. A backend failure counts
// as a scan without a face.
func (m *Monitor) Scan(ctx context.Context) (ScanReport, error) {
	if !m.scanning.CompareAndSwap(false, true) {
		return ScanReport{}, ErrScanInProgress
	}
	defer m.scanning.Store(false)

	if !m.camera.Running() {
		return ScanReport{}, ErrCameraNotRunning
	}

	report := ScanReport{ID: uuid.NewString()}

	if m.opts.Fabricator != nil {
		report.Result = m.opts.Fabricator.Fabricate()
	} else {
		if !m.backendReady() {
			return ScanReport{}, ErrBackendNotReady
		}
		frame, ok := m.camera.Frame()
		if !ok {
			return ScanReport{}, ErrFrameNotReady
		}

		raw, err := m.backend.Recognize(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return ScanReport{}, ctx.Err()
			}
			m.logRecognizeError("scan", err)
			report.Error = err.Error()
			raw = nil
		}
		report.Result = facematch.Decide(raw, m.opts.Policy, m.opts.Lookup)
		if raw == nil {
			report.Result.Backend = m.backend.Name()
			report.Result.CapturedAt = frame.CapturedAt
		}
	}

	if m.opts.ScanDelay > 0 {
		timer := time.NewTimer(m.opts.ScanDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ScanReport{}, ctx.Err()
		case <-timer.C:
		}
	}

	report.Verdict = report.Result.Verdict()
	report.FinishedAt = m.now()

	m.mu.Lock()
	m.counters = m.counters.Record(report.Result)
	report.Counters = m.counters
	last := report
	m.lastScan = &last
	m.mu.Unlock()

	m.logger.Info("scan completed",
		"id", report.ID,
		"verdict", report.Verdict,
		"confidence", report.Result.ConfidenceText(),
		"label", report.Result.MatchedLabel,
		"scans", report.Counters.ScanCount,
	)

	if m.opts.Notifier != nil && report.Result.IsMatch {
		if err := m.opts.Notifier.Notify(ctx, report); err != nil {
			m.logger.Warn("alert failed", "id", report.ID, "error", err)
		}
	}

	return report, nil
}
