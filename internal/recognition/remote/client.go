package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/facewatch/internal/recognition"
)

const defaultServiceURL = "http://localhost:5000"

// APIError is a non-2xx answer from the recognition service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recognition service error (status %d): %s", e.StatusCode, e.Message)
}

// Client calls the remote recognition service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL uses localhost:5000.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and decodes a 2xx JSON answer into out. Transport
// failures wrap ErrBackendUnavailable; non-2xx answers wrap ErrTransientDetection.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", recognition.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", recognition.ErrTransientDetection, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return fmt.Errorf("%w: %w", recognition.ErrTransientDetection, apiErr)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: failed to parse response: %w", recognition.ErrTransientDetection, err)
		}
	}
	return nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recognize submits one still image (base64 JPEG or data URL).
func (c *Client) Recognize(ctx context.Context, image string) (*RecognizeResponse, error) {
	var resp RecognizeResponse
	if err := c.do(ctx, http.MethodPost, "/recognize", RecognizeRequest{Image: image}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify asks whether two images show the same person.
func (c *Client) Verify(ctx context.Context, image1, image2 string) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify", VerifyRequest{Image1: image1, Image2: image2}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Info calls GET /info.
func (c *Client) Info(ctx context.Context) (*InfoResponse, error) {
	var resp InfoResponse
	if err := c.do(ctx, http.MethodGet, "/info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload asks the service to re-read its reference embeddings.
func (c *Client) Reload(ctx context.Context) (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.do(ctx, http.MethodPost, "/reload", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
