// Package testutil provides an in-process stand-in for the local inference service.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request is one call received by the fake server.
type Request struct {
	Path string
	Body []byte
}

// FakeServer serves /v1/chat/completions and /v1/retrieve with scripted responses.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request

	// Chunks are written and flushed one by one as the completion response body.
	Chunks []string
	// CompletionStatus overrides the 200 status of the completion endpoint.
	CompletionStatus int
	// RetrievalData is returned as the data field of the retrieval response.
	RetrievalData string
	// RetrievalStatus overrides the 200 status of the retrieval endpoint.
	RetrievalStatus int
}

// NewFakeServer starts a server that is closed when the test ends.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	fs := &FakeServer{}
	r := chi.NewRouter()
	r.Post("/v1/chat/completions", fs.handleCompletion)
	r.Post("/v1/retrieve", fs.handleRetrieve)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	fs.Server = httptest.NewServer(r)
	t.Cleanup(fs.Close)
	return fs
}

// CompletionURL is the full URL of the completion endpoint.
func (fs *FakeServer) CompletionURL() string {
	return fs.URL + "/v1/chat/completions"
}

// RetrievalURL is the full URL of the retrieval endpoint.
func (fs *FakeServer) RetrievalURL() string {
	return fs.URL + "/v1/retrieve"
}

// Requests returns a copy of every request received so far, in order.
func (fs *FakeServer) Requests() []Request {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]Request, len(fs.requests))
	copy(out, fs.requests)
	return out
}

// CountPath returns how many requests hit path.
func (fs *FakeServer) CountPath(path string) int {
	n := 0
	for _, req := range fs.Requests() {
		if req.Path == path {
			n++
		}
	}
	return n
}

func (fs *FakeServer) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fs.mu.Lock()
	fs.requests = append(fs.requests, Request{Path: r.URL.Path, Body: body})
	fs.mu.Unlock()
}

func (fs *FakeServer) handleCompletion(w http.ResponseWriter, r *http.Request) {
	fs.record(r)
	if fs.CompletionStatus != 0 && fs.CompletionStatus != http.StatusOK {
		http.Error(w, "completion unavailable", fs.CompletionStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, chunk := range fs.Chunks {
		_, _ = io.WriteString(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (fs *FakeServer) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	fs.record(r)
	if fs.RetrievalStatus != 0 && fs.RetrievalStatus != http.StatusOK {
		http.Error(w, "retrieval unavailable", fs.RetrievalStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"data": fs.RetrievalData})
}

// ContentChunk renders one streamed response object holding the given contents.
func ContentChunk(contents ...string) string {
	choices := make([]map[string]interface{}, 0, len(contents))
	for _, content := range contents {
		choices = append(choices, map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}
	data, _ := json.Marshal(map[string]interface{}{"choices": choices})
	return string(data)
}
