// Package remote implements the recognition backend that delegates to the
// HTTP recognition service.
package remote

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facewatch/internal/camera"
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/facematch"
	"github.com/kozaktomas/facewatch/internal/recognition"
)

// BackendName identifies results produced by this backend.
const BackendName = "remote"

// Backend submits frames to the recognition service.
type Backend struct {
	client *Client
}

// NewBackend wraps a client.
func NewBackend(client *Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Name() string { return BackendName }

// Status reports the service health. The backend is ready only when the
// service answers "ok" and has embeddings loaded.
func (b *Backend) Status(ctx context.Context) (recognition.Status, error) {
	st := recognition.Status{Backend: BackendName}

	health, err := b.client.Health(ctx)
	if err != nil {
		st.Message = err.Error()
		return st, fmt.Errorf("checking recognition service: %w", err)
	}

	st.Ready = health.Status == "ok" && health.EmbeddingsLoaded
	st.ReferencesLoaded = health.EmbeddingsLoaded
	st.Person = health.Person
	st.Model = health.Model
	st.Detector = health.Detector
	if !health.EmbeddingsLoaded {
		st.Message = "service has no trained embeddings"
	}
	return st, nil
}

// Recognize sends the frame as a JPEG data URL and maps the answer.
func (b *Backend) Recognize(ctx context.Context, frame camera.Frame) (*facematch.RawResult, error) {
	if len(frame.Data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", recognition.ErrTransientDetection)
	}

	resp, err := b.client.Recognize(ctx, frame.DataURL())
	if err != nil {
		return nil, err
	}

	raw := MapResponse(resp, frame.Width, frame.Height)
	raw.CapturedAt = frame.CapturedAt
	return raw, nil
}

// MapResponse converts a service answer into a RawResult. The service returns
// no coordinates, so a detected face gets a centered placeholder box.
func MapResponse(resp *RecognizeResponse, frameWidth, frameHeight int) *facematch.RawResult {
	raw := &facematch.RawResult{
		Backend:          BackendName,
		ReferencesLoaded: true,
		FrameWidth:       frameWidth,
		FrameHeight:      frameHeight,
	}
	if resp == nil || !resp.FaceDetected {
		return raw
	}

	raw.Observations = []facematch.FaceObservation{{
		Box: facematch.PlaceholderBox(frameWidth, frameHeight),
	}}

	label := constants.UnknownLabel
	if resp.IsMatch && resp.PersonName != "" {
		label = resp.PersonName
	}
	raw.Match = &facematch.BestMatch{
		Label:      label,
		Similarity: resp.Confidence,
		Kind:       facematch.KindSimilarity,
	}
	return raw
}

// Client returns the underlying service client.
func (b *Backend) Client() *Client {
	return b.client
}

func (b *Backend) Close() error { return nil }
