package monitor

import (
	"fmt"
	"time"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/facematch"
)

// OverlayState describes what the overlay currently shows.
type OverlayState string

const (
	OverlayCleared OverlayState = "cleared"
	OverlayNoFace  OverlayState = "no_face"
	OverlayFace    OverlayState = "face"
)

// LabeledBox is one rectangle drawn over the live frame.
type LabeledBox struct {
	Box     facematch.BoundingBox `json:"box"`
	Caption string                `json:"caption"`
	Match   bool                  `json:"match"`
}

// Overlay is the latest polling result of the current session.
type Overlay struct {
	Epoch       uint64                       `json:"epoch"`
	State       OverlayState                 `json:"state"`
	Result      *facematch.RecognitionResult `json:"result,omitempty"`
	Boxes       []LabeledBox                 `json:"boxes,omitempty"`
	FrameWidth  int                          `json:"frame_width,omitempty"`
	FrameHeight int                          `json:"frame_height,omitempty"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

func clearedOverlay(epoch uint64, now time.Time) Overlay {
	return Overlay{Epoch: epoch, State: OverlayCleared, UpdatedAt: now}
}

// buildOverlay renders one verdict. Only the first observation carries the
// verdict caption; further faces are drawn as unmatched.
func buildOverlay(epoch uint64, raw *facematch.RawResult, result facematch.RecognitionResult, now time.Time) Overlay {
	ov := Overlay{
		Epoch:     epoch,
		State:     OverlayNoFace,
		UpdatedAt: now,
	}
	if raw != nil {
		ov.FrameWidth = raw.FrameWidth
		ov.FrameHeight = raw.FrameHeight
	}
	if !result.FaceDetected {
		return ov
	}

	ov.State = OverlayFace
	ov.Result = &result
	for i, obs := range raw.Observations {
		box := LabeledBox{Box: obs.Box, Caption: constants.UnknownLabel}
		if i == 0 {
			box.Caption = caption(result)
			box.Match = result.IsMatch
		}
		ov.Boxes = append(ov.Boxes, box)
	}
	return ov
}

func caption(r facematch.RecognitionResult) string {
	if r.IsMatch {
		return fmt.Sprintf("%s (%s)", r.MatchedLabel, r.ConfidenceText())
	}
	return fmt.Sprintf("%s (%s)", constants.UnknownLabel, r.ConfidenceText())
}

// subscribers fans overlay updates out to listeners. Slow listeners miss updates.
type subscribers struct {
	next int
	subs map[int]chan Overlay
}

func (s *subscribers) add() (int, chan Overlay) {
	if s.subs == nil {
		s.subs = make(map[int]chan Overlay)
	}
	s.next++
	ch := make(chan Overlay, constants.EventChannelBuffer)
	s.subs[s.next] = ch
	return s.next, ch
}

func (s *subscribers) remove(id int) {
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *subscribers) broadcast(ov Overlay) {
	for _, ch := range s.subs {
		select {
		case ch <- ov:
		default:
		}
	}
}

func (s *subscribers) closeAll() {
	for id := range s.subs {
		s.remove(id)
	}
}
