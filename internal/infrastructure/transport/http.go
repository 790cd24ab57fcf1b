// Package transport adapts net/http to the two capabilities the query pipeline needs:
// a blocking POST and a streaming POST that yields body chunks as they arrive.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/doeshing/rag-go/internal/ports"
)

const (
	defaultChunkSize = 32 * 1024
	maxErrorBody     = 4 * 1024
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Status, e.Body)
}

// HTTPTransport implements ports.Transport on top of an *http.Client.
// Redirects follow the client's policy; timeouts come from the caller's context.
type HTTPTransport struct {
	httpClient *http.Client
	chunkSize  int
}

// New builds a transport. A nil client uses a fresh http.Client with no overall timeout,
// since a streamed completion may legitimately run for a long time.
func New(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		httpClient: client,
		chunkSize:  defaultChunkSize,
	}
}

// Post sends body as JSON and returns the full response body.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	resp, err := t.do(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var responseBody bytes.Buffer
	if _, err := responseBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return responseBody.Bytes(), nil
}

// PostStream sends body as JSON and returns a stream over the response body.
func (t *HTTPTransport) PostStream(ctx context.Context, url string, body []byte) (ports.ChunkStream, error) {
	resp, err := t.do(ctx, url, body)
	if err != nil {
		return nil, err
	}
	return &bodyStream{body: resp.Body, buf: make([]byte, t.chunkSize)}, nil
}

// Probe checks that something answers HTTP at url. Any status code counts as reachable.
func (t *HTTPTransport) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}

func (t *HTTPTransport) do(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}
	return resp, nil
}

// bodyStream hands out whatever each Read returns as one chunk. Empty reads are skipped.
type bodyStream struct {
	body     io.ReadCloser
	buf      []byte
	pending  error
	once     sync.Once
	closeErr error
}

func (s *bodyStream) Next(ctx context.Context) ([]byte, error) {
	for {
		if s.pending != nil {
			return nil, s.pending
		}
		if err := ctx.Err(); err != nil {
			s.pending = fmt.Errorf("read stream: %w", err)
			continue
		}

		n, err := s.body.Read(s.buf)
		if err != nil {
			if err == io.EOF {
				s.pending = io.EOF
			} else {
				s.pending = fmt.Errorf("read stream: %w", err)
			}
		}
		if n > 0 {
			return append([]byte(nil), s.buf[:n]...), nil
		}
	}
}

func (s *bodyStream) Close() error {
	s.once.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

var _ ports.Transport = (*HTTPTransport)(nil)
