package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// Service orchestrates the query lifecycle end-to-end. It holds no per-invocation state,
// so one instance serves every call.
type Service struct {
	Config    domain.Config
	Retriever ports.Retriever
	Completer ports.Completer
	Codec     ports.StreamCodec
	Metrics   ports.Metrics
	Logger    ports.Logger
}

// Run processes a single invocation of the rag operation.
func (s *Service) Run(req domain.QueryRequest) (domain.CommandOutput, error) {
	if s.Completer == nil || s.Codec == nil || s.Logger == nil {
		return domain.CommandOutput{}, errors.New("query.Service dependencies not satisfied")
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	invocationID := req.InvocationID
	if invocationID == "" {
		invocationID = uuid.NewString()
	}
	fields := map[string]interface{}{"invocation_id": invocationID}

	if req.Command != domain.CommandName {
		err := &domain.Error{
			Kind:  domain.KindInvalidCommand,
			Stage: domain.StageValidate,
			Err:   fmt.Errorf("expected %q, got %q", domain.CommandName, req.Command),
		}
		s.finish(fields, err)
		return domain.CommandOutput{}, err
	}

	query := strings.Join(req.Args, " ")
	if strings.TrimSpace(query) == "" {
		s.Logger.Info("query not provided", fields)
		s.metrics().ObserveInvocation("empty")
		return domain.CommandOutput{Text: domain.EmptyQueryMessage, Sections: []domain.Section{}}, nil
	}

	mode := s.Config.ModeFor(req.Mode)
	useRetrieval := s.Config.RetrievalFor(req.Retrieve)
	fields["mode"] = string(mode)
	fields["retrieval"] = useRetrieval
	s.Logger.Info("running query", fields)

	input := ports.CompletionInput{Query: query}
	if useRetrieval {
		var retrieved string
		err := s.timed(domain.StageRetrieve, domain.KindRetrievalRequestFailed, func() error {
			if s.Retriever == nil {
				return errors.New("retrieval enabled but no retriever configured")
			}
			var err error
			retrieved, err = s.Retriever.Retrieve(ctx, query)
			return err
		})
		if err != nil {
			s.finish(fields, err)
			return domain.CommandOutput{}, err
		}
		input.Context, input.HasContext = retrieved, true
	}

	var stream ports.ChunkStream
	err := s.timed(domain.StageComplete, domain.KindCompletionRequestFailed, func() error {
		var err error
		stream, err = s.Completer.Stream(ctx, input)
		return err
	})
	if err != nil {
		s.finish(fields, err)
		return domain.CommandOutput{}, err
	}
	defer stream.Close()

	var out domain.CommandOutput
	err = s.timed(domain.StageStream, domain.KindStreamTransport, func() error {
		var err error
		out, err = s.consume(ctx, stream, mode, req.StreamWriter)
		return err
	})
	if err != nil {
		s.finish(fields, err)
		return domain.CommandOutput{}, err
	}

	fields["sections"] = len(out.Sections)
	s.finish(fields, nil)
	return out, nil
}

// consume drains the stream through the framer, decoder and aggregator. Any failure
// discards what was aggregated so far.
func (s *Service) consume(ctx context.Context, stream ports.ChunkStream, mode domain.OutputMode, sink domain.StreamWriter) (domain.CommandOutput, error) {
	framer := s.Codec.NewFramer(s.Config.FramingOrDefault())
	aggregator := s.Codec.NewAggregator(mode, sink)

	chunks := 0
	defer func() { s.metrics().AddChunks(chunks) }()

	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.CommandOutput{}, domain.NewError(domain.KindStreamTransport, err)
		}
		chunks++

		frames, err := framer.Feed(chunk)
		if err != nil {
			return domain.CommandOutput{}, err
		}
		if err := s.decodeInto(aggregator, frames); err != nil {
			return domain.CommandOutput{}, err
		}
	}

	frames, err := framer.Flush()
	if err != nil {
		return domain.CommandOutput{}, err
	}
	if err := s.decodeInto(aggregator, frames); err != nil {
		return domain.CommandOutput{}, err
	}
	return aggregator.Result(), nil
}

func (s *Service) decodeInto(aggregator ports.Aggregator, frames [][]byte) error {
	for _, frame := range frames {
		contents, err := s.Codec.Decode(frame)
		if err != nil {
			return err
		}
		aggregator.Add(contents)
	}
	return nil
}

func (s *Service) timed(stage domain.Stage, fallback domain.ErrorKind, fn func() error) error {
	start := time.Now()
	err := domain.WithStage(fn(), stage, fallback)
	s.metrics().ObserveStage(stage, time.Since(start), err)
	return err
}

func (s *Service) finish(fields map[string]interface{}, err error) {
	if err != nil {
		s.Logger.Error("query failed", err, fields)
		s.metrics().ObserveInvocation(string(domain.KindOf(err)))
		return
	}
	s.Logger.Info("query complete", fields)
	s.metrics().ObserveInvocation("success")
}

func (s *Service) metrics() ports.Metrics {
	if s.Metrics == nil {
		return noopMetrics{}
	}
	return s.Metrics
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(domain.Stage, time.Duration, error) {}
func (noopMetrics) AddChunks(int)                                   {}
func (noopMetrics) ObserveInvocation(string)                        {}

// Compile-time interface compliance check
var _ domain.QueryService = (*Service)(nil)
