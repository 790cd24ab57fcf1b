package ai

import (
	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// Codec bundles the chat-completion stream framing, decoding and aggregation.
type Codec struct{}

// NewCodec returns the codec for OpenAI-style choices/message/content responses.
func NewCodec() *Codec {
	return &Codec{}
}

func (Codec) NewFramer(framing domain.Framing) ports.Framer {
	return NewFramer(framing)
}

func (Codec) NewAggregator(mode domain.OutputMode, sink domain.StreamWriter) ports.Aggregator {
	return NewAggregator(mode, sink)
}

func (Codec) Decode(frame []byte) ([]string, error) {
	return DecodeChunk(frame)
}

var _ ports.StreamCodec = (*Codec)(nil)
