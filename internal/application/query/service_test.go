package query

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/infrastructure/ai"
	"github.com/doeshing/rag-go/internal/pkg/logger"
	"github.com/doeshing/rag-go/internal/ports"
)

func chunk(contents ...string) []byte {
	body := `{"choices":[`
	for i, content := range contents {
		if i > 0 {
			body += ","
		}
		body += `{"message":{"content":"` + content + `"}}`
	}
	return []byte(body + `]}`)
}

func newService(completer *stubCompleter, retriever *stubRetriever, cfg domain.Config) (*Service, *stubMetrics) {
	metrics := &stubMetrics{}
	svc := &Service{
		Config:    cfg,
		Completer: completer,
		Codec:     ai.NewCodec(),
		Metrics:   metrics,
		Logger:    logger.Nop(),
	}
	if retriever != nil {
		svc.Retriever = retriever
	}
	return svc, metrics
}

func request(args ...string) domain.QueryRequest {
	return domain.QueryRequest{
		Context: context.Background(),
		Command: domain.CommandName,
		Args:    args,
	}
}

func TestRunConcatenatesFragments(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("Hel", "lo"), chunk(" world")}}
	svc, metrics := newService(completer, nil, domain.Config{})

	out, err := svc.Run(request("hello"))

	require.NoError(t, err)
	assert.Equal(t, "Hello world", out.Text)
	assert.Empty(t, out.Sections)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, "hello", completer.input.Query)
	assert.False(t, completer.input.HasContext)
	assert.Equal(t, []string{"success"}, metrics.outcomes)
	assert.Equal(t, 2, metrics.chunks)
}

func TestRunJoinsArgsWithSpaces(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("ok")}}
	svc, _ := newService(completer, nil, domain.Config{})

	_, err := svc.Run(request("what", "is", "rust"))

	require.NoError(t, err)
	assert.Equal(t, "what is rust", completer.input.Query)
}

func TestRunSectionsMode(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("foo", "bar")}}
	svc, _ := newService(completer, nil, domain.Config{})

	req := request("q")
	req.Mode = domain.ModeSections
	out, err := svc.Run(req)

	require.NoError(t, err)
	assert.Equal(t, domain.SectionsHeading, out.Text)
	assert.Equal(t, []domain.Section{
		{Label: "foo", Range: domain.Range{Start: 0, End: 3}},
		{Label: "bar", Range: domain.Range{Start: 0, End: 3}},
	}, out.Sections)
}

func TestRunEmptyQuery(t *testing.T) {
	for _, args := range [][]string{nil, {}, {""}, {" ", "\t"}} {
		completer := &stubCompleter{}
		retriever := &stubRetriever{data: "ctx"}
		cfg := domain.Config{Retrieval: domain.RetrievalSettings{Enabled: true}}
		svc, metrics := newService(completer, retriever, cfg)

		out, err := svc.Run(request(args...))

		require.NoError(t, err)
		assert.Equal(t, domain.EmptyQueryMessage, out.Text)
		assert.NotNil(t, out.Sections)
		assert.Empty(t, out.Sections)
		assert.Zero(t, completer.calls, "no completion call for %q", args)
		assert.Zero(t, retriever.calls, "no retrieval call for %q", args)
		assert.Equal(t, []string{"empty"}, metrics.outcomes)
	}
}

func TestRunInvalidCommand(t *testing.T) {
	completer := &stubCompleter{}
	svc, _ := newService(completer, nil, domain.Config{})

	req := request("hello")
	req.Command = "search"
	_, err := svc.Run(req)

	require.ErrorIs(t, err, domain.ErrInvalidCommand)
	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StageValidate, perr.Stage)
	assert.Zero(t, completer.calls)
}

func TestRunRetrievesBeforeCompleting(t *testing.T) {
	var order []string
	retriever := &stubRetriever{data: "facts", order: &order}
	completer := &stubCompleter{chunks: [][]byte{chunk("answer")}, order: &order}
	cfg := domain.Config{Retrieval: domain.RetrievalSettings{Enabled: true}}
	svc, _ := newService(completer, retriever, cfg)

	out, err := svc.Run(request("q"))

	require.NoError(t, err)
	assert.Equal(t, "answer", out.Text)
	assert.Equal(t, []string{"retrieve", "complete"}, order)
	assert.Equal(t, "q", retriever.query)
	assert.True(t, completer.input.HasContext)
	assert.Equal(t, "facts", completer.input.Context)
}

func TestRunRetrievalOverride(t *testing.T) {
	retriever := &stubRetriever{data: "facts"}
	completer := &stubCompleter{chunks: [][]byte{chunk("answer")}}
	svc, _ := newService(completer, retriever, domain.Config{Retrieval: domain.RetrievalSettings{Enabled: true}})

	off := false
	req := request("q")
	req.Retrieve = &off
	_, err := svc.Run(req)

	require.NoError(t, err)
	assert.Zero(t, retriever.calls)
	assert.False(t, completer.input.HasContext)
}

func TestRunRetrievalFailureSkipsCompletion(t *testing.T) {
	retriever := &stubRetriever{err: domain.NewError(domain.KindRetrievalRequestFailed, errors.New("HTTP 500"))}
	completer := &stubCompleter{}
	svc, metrics := newService(completer, retriever, domain.Config{Retrieval: domain.RetrievalSettings{Enabled: true}})

	_, err := svc.Run(request("q"))

	require.ErrorIs(t, err, domain.ErrRetrievalRequestFailed)
	assert.Contains(t, err.Error(), "retrieve: ")
	assert.Zero(t, completer.calls)
	assert.Equal(t, []string{string(domain.KindRetrievalRequestFailed)}, metrics.outcomes)
}

func TestRunCompletionFailure(t *testing.T) {
	completer := &stubCompleter{err: errors.New("connection refused")}
	svc, _ := newService(completer, nil, domain.Config{})

	_, err := svc.Run(request("q"))

	require.ErrorIs(t, err, domain.ErrCompletionRequestFailed)
	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StageComplete, perr.Stage)
}

func TestRunEncodingErrorDiscardsOutput(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("good"), []byte("\xff\xfe")}}
	sink := &recordingSink{}
	svc, _ := newService(completer, nil, domain.Config{})

	req := request("q")
	req.StreamWriter = sink
	out, err := svc.Run(req)

	require.ErrorIs(t, err, domain.ErrEncoding)
	assert.Equal(t, domain.CommandOutput{}, out)
	assert.Zero(t, sink.done, "Done is only signalled on success")
	assert.True(t, completer.stream.closed)
}

func TestRunMissingChoicesIsDecodeError(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{[]byte(`{"id":"x"}`)}}
	svc, _ := newService(completer, nil, domain.Config{})

	_, err := svc.Run(request("q"))

	require.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "stream: decode error")
}

func TestRunFramingModes(t *testing.T) {
	split := [][]byte{[]byte(`{"choices":[{"message":{"con`), []byte(`tent":"whole"}}]}`)}

	svc, _ := newService(&stubCompleter{chunks: split}, nil, domain.Config{})
	out, err := svc.Run(request("q"))
	require.NoError(t, err)
	assert.Equal(t, "whole", out.Text)

	chunkCfg := domain.Config{Stream: domain.StreamSettings{Framing: domain.FramingChunk}}
	svc, _ = newService(&stubCompleter{chunks: split}, nil, chunkCfg)
	_, err = svc.Run(request("q"))
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestRunStreamTransportError(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("partial")}, streamErr: errors.New("connection reset")}
	svc, _ := newService(completer, nil, domain.Config{})

	_, err := svc.Run(request("q"))

	require.ErrorIs(t, err, domain.ErrStreamTransport)
}

func TestRunStreamsToWriter(t *testing.T) {
	completer := &stubCompleter{chunks: [][]byte{chunk("a", "b"), chunk("c")}}
	sink := &recordingSink{}
	svc, _ := newService(completer, nil, domain.Config{})

	req := request("q")
	req.StreamWriter = sink
	out, err := svc.Run(req)

	require.NoError(t, err)
	assert.Equal(t, "abc", out.Text)
	assert.Equal(t, []string{"a", "b", "c"}, sink.chunks)
	assert.Equal(t, 1, sink.done)
}

func TestRunRequiresDependencies(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(request("q"))
	assert.Error(t, err)
}

type stubRetriever struct {
	data  string
	err   error
	calls int
	query string
	order *[]string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string) (string, error) {
	s.calls++
	s.query = query
	if s.order != nil {
		*s.order = append(*s.order, "retrieve")
	}
	return s.data, s.err
}

type stubCompleter struct {
	chunks    [][]byte
	err       error
	streamErr error
	calls     int
	input     ports.CompletionInput
	order     *[]string
	stream    *stubStream
}

func (s *stubCompleter) Stream(_ context.Context, in ports.CompletionInput) (ports.ChunkStream, error) {
	s.calls++
	s.input = in
	if s.order != nil {
		*s.order = append(*s.order, "complete")
	}
	if s.err != nil {
		return nil, s.err
	}
	s.stream = &stubStream{chunks: s.chunks, err: s.streamErr}
	return s.stream, nil
}

type stubStream struct {
	chunks [][]byte
	err    error
	closed bool
}

func (s *stubStream) Next(context.Context) ([]byte, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}

func (s *stubStream) Close() error {
	s.closed = true
	return nil
}

type stubMetrics struct {
	outcomes []string
	chunks   int
	stages   []domain.Stage
}

func (m *stubMetrics) ObserveStage(stage domain.Stage, _ time.Duration, _ error) {
	m.stages = append(m.stages, stage)
}

func (m *stubMetrics) AddChunks(n int) { m.chunks += n }

func (m *stubMetrics) ObserveInvocation(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

type recordingSink struct {
	chunks []string
	done   int
}

func (s *recordingSink) WriteChunk(text string) { s.chunks = append(s.chunks, text) }
func (s *recordingSink) Done()                  { s.done++ }
