// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the query pipeline and external
// adapters (infrastructure). The application core depends only on these interfaces,
// so the HTTP transport, stream codec, metrics backend and history store can be
// swapped or stubbed independently.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Retriever, Completer, StreamCodec)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/rag-go/internal/domain"
)

// ConfigProvider loads the effective configuration.
// Implementations typically read ~/.rag/config.yaml plus RAG_* environment overrides.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Transport is the only HTTP capability the pipeline consumes: one blocking call and one
// streaming call. Non-2xx responses are returned as errors.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
	PostStream(ctx context.Context, url string, body []byte) (ChunkStream, error)
	Probe(ctx context.Context, url string) error
}

// ChunkStream yields raw transport chunks. Next returns io.EOF at end-of-stream.
// Close must be safe to call more than once.
type ChunkStream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Retriever fetches context text for a query from the retrieval endpoint.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// CompletionInput is the data needed to build one chat-completion request.
type CompletionInput struct {
	Query      string
	Context    string
	HasContext bool
}

// Completer issues the streaming chat-completion call.
type Completer interface {
	Stream(ctx context.Context, in CompletionInput) (ChunkStream, error)
}

// Framer turns transport chunks into frames that each hold one JSON object.
// A Framer carries state for a single stream and must not be reused.
type Framer interface {
	Feed(chunk []byte) ([][]byte, error)
	Flush() ([][]byte, error)
}

// Aggregator accumulates decoded fragments for a single stream.
type Aggregator interface {
	Add(contents []string)
	Result() domain.CommandOutput
}

// StreamCodec builds the per-stream framing and aggregation state and decodes frames.
type StreamCodec interface {
	NewFramer(domain.Framing) Framer
	NewAggregator(domain.OutputMode, domain.StreamWriter) Aggregator
	Decode(frame []byte) ([]string, error)
}

// Metrics records pipeline observations.
type Metrics interface {
	ObserveStage(stage domain.Stage, elapsed time.Duration, err error)
	AddChunks(n int)
	ObserveInvocation(outcome string)
}

// HistoryRepository persists completed invocations when history is enabled.
type HistoryRepository interface {
	Save(domain.HistoryRecord) error
	Records(limit int) ([]domain.HistoryRecord, error)
	Clear() error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
