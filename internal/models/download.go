// Package models fetches the face-api.js weight files served to browser clients.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Files are the detector, landmark and recognition weights, in download order.
var Files = []string{
	"ssd_mobilenetv1_model-weights_manifest.json",
	"ssd_mobilenetv1_model-shard1",
	"ssd_mobilenetv1_model-shard2",
	"face_landmark_68_model-weights_manifest.json",
	"face_landmark_68_model-shard1",
	"face_recognition_model-weights_manifest.json",
	"face_recognition_model-shard1",
	"face_recognition_model-shard2",
}

// Progress is advanced once per file, whether it succeeded or not.
type Progress interface {
	Add(n int) error
}

// Result is the outcome for one file.
type Result struct {
	File  string
	Bytes int64
	Err   error
}

// Downloader copies weight files from a base URL into a directory.
type Downloader struct {
	baseURL string
	dir     string
	client  *http.Client
}

// NewDownloader creates a downloader.
func NewDownloader(baseURL, dir string) *Downloader {
	return &Downloader{
		baseURL: strings.TrimRight(baseURL, "/"),
		dir:     dir,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Download fetches every file. A failed file does not stop the others; the
// returned error is set only when the target directory cannot be created.
func (d *Downloader) Download(ctx context.Context, progress Progress) ([]Result, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create models directory: %w", err)
	}

	results := make([]Result, 0, len(Files))
	for _, name := range Files {
		n, err := d.fetch(ctx, name)
		results = append(results, Result{File: name, Bytes: n, Err: err})
		if progress != nil {
			progress.Add(1)
		}
	}
	return results, nil
}

func (d *Downloader) fetch(ctx context.Context, name string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/"+name, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download %s: status %d", name, resp.StatusCode)
	}

	dest := filepath.Join(d.dir, name)
	tmp := dest + ".part"
	f, err := os.Create(tmp) //nolint:gosec // name is from the fixed file list
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// Failed counts the results with an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
