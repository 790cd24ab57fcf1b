package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/pkg/logger"
	"github.com/doeshing/rag-go/internal/ports"
)

type stubTransport struct {
	postBody   []byte
	postErr    error
	streamErr  error
	chunks     [][]byte
	calls      []string
	lastURL    string
	lastBody   []byte
	probeError error
}

func (s *stubTransport) Post(_ context.Context, url string, body []byte) ([]byte, error) {
	s.calls = append(s.calls, "post")
	s.lastURL, s.lastBody = url, body
	return s.postBody, s.postErr
}

func (s *stubTransport) PostStream(_ context.Context, url string, body []byte) (ports.ChunkStream, error) {
	s.calls = append(s.calls, "stream")
	s.lastURL, s.lastBody = url, body
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	return &sliceStream{chunks: s.chunks}, nil
}

func (s *stubTransport) Probe(context.Context, string) error {
	return s.probeError
}

type sliceStream struct {
	chunks [][]byte
}

func (s *sliceStream) Next(context.Context) ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}

func (s *sliceStream) Close() error { return nil }

func testCompletionSettings() domain.CompletionSettings {
	return domain.CompletionSettings{
		URL:             domain.DefaultCompletionURL,
		Model:           domain.DefaultModelID,
		Temperature:     domain.DefaultTemperature,
		SystemPrompt:    domain.DefaultSystemPrompt,
		ContextPreamble: domain.DefaultContextPreamble,
	}
}

func TestCompleterRequestBody(t *testing.T) {
	transport := &stubTransport{}
	completer := NewCompleter(testCompletionSettings(), transport, logger.Nop())

	stream, err := completer.Stream(context.Background(), ports.CompletionInput{Query: "what is rust"})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	if transport.lastURL != domain.DefaultCompletionURL {
		t.Fatalf("url = %q", transport.lastURL)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(transport.lastBody, &got); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	want := map[string]interface{}{
		"model": "openai:gpt-4o",
		"messages": []interface{}{
			map[string]interface{}{"role": "system", "content": "You are a helpful consultant."},
			map[string]interface{}{"role": "user", "content": "what is rust"},
		},
		"temperature": 0.1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleterUsesRetrievedContext(t *testing.T) {
	transport := &stubTransport{}
	completer := NewCompleter(testCompletionSettings(), transport, logger.Nop())

	_, err := completer.Stream(context.Background(), ports.CompletionInput{
		Query:      "q",
		Context:    "retrieved facts",
		HasContext: true,
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var body chatCompletionRequest
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected exactly two messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Content != domain.DefaultContextPreamble+"retrieved facts" {
		t.Fatalf("system content = %q", body.Messages[0].Content)
	}
}

func TestCompleterTransportFailure(t *testing.T) {
	transport := &stubTransport{streamErr: errors.New("connection refused")}
	completer := NewCompleter(testCompletionSettings(), transport, logger.Nop())

	_, err := completer.Stream(context.Background(), ports.CompletionInput{Query: "q"})
	if !errors.Is(err, domain.ErrCompletionRequestFailed) {
		t.Fatalf("error = %v, want completion request failure", err)
	}
}

func TestRetriever(t *testing.T) {
	transport := &stubTransport{postBody: []byte(`{"data":"context text"}`)}
	settings := domain.RetrievalSettings{Enabled: true, URL: domain.DefaultRetrievalURL, Collection: "docs"}
	retriever := NewRetriever(settings, transport, logger.Nop())

	got, err := retriever.Retrieve(context.Background(), "find me")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got != "context text" {
		t.Fatalf("Retrieve() = %q", got)
	}

	var body retrievalRequest
	if err := json.Unmarshal(transport.lastBody, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if diff := cmp.Diff(retrievalRequest{Name: "docs", Input: "find me"}, body); diff != "" {
		t.Fatalf("retrieval body mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieverFailures(t *testing.T) {
	settings := domain.RetrievalSettings{URL: domain.DefaultRetrievalURL, Collection: "docs"}

	failing := NewRetriever(settings, &stubTransport{postErr: errors.New("HTTP 500")}, logger.Nop())
	if _, err := failing.Retrieve(context.Background(), "q"); !errors.Is(err, domain.ErrRetrievalRequestFailed) {
		t.Fatalf("transport error = %v, want retrieval request failure", err)
	}

	malformed := NewRetriever(settings, &stubTransport{postBody: []byte(`{"nope":true}`)}, logger.Nop())
	if _, err := malformed.Retrieve(context.Background(), "q"); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("malformed body error = %v, want decode error", err)
	}
}
