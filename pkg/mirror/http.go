package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPBackend talks to a web endpoint that stores whatever is POSTed to it
// and returns it on GET.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// NewHTTPBackend creates a backend for url with the given request timeout.
func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Describe() string {
	return b.url
}

func (b *HTTPBackend) Push(ctx context.Context, blob []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(blob))
	if err != nil {
		return &SyncError{Op: "push", Err: err}
	}
	// text/plain keeps the request "simple" for endpoints that do not answer preflights.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := b.client.Do(req)
	if err != nil {
		return &SyncError{Op: "push", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SyncError{Op: "push", Status: resp.StatusCode}
	}
	return nil
}

func (b *HTTPBackend) Pull(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, &SyncError{Op: "restore", Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &SyncError{Op: "restore", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SyncError{Op: "restore", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SyncError{Op: "restore", Err: fmt.Errorf("read body: %w", err)}
	}

	// The endpoint answers with an error string instead of a blob when it has
	// nothing stored yet. A JSON object is always treated as a blob.
	text := strings.TrimSpace(string(body))
	if text == "" || (!strings.HasPrefix(text, "{") && strings.Contains(strings.ToLower(text), "error")) {
		return nil, ErrNoBackup
	}
	return []byte(text), nil
}
