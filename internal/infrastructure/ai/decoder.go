package ai

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/doeshing/rag-go/internal/domain"
)

// DecodeChunk parses one frame as a completion response object and returns the content
// of every choice in order. It keeps no state between calls.
func DecodeChunk(frame []byte) ([]string, error) {
	if !utf8.Valid(frame) {
		return nil, domain.Errorf(domain.KindEncoding, "response chunk is not valid UTF-8")
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(frame, &response); err != nil {
		return nil, domain.Errorf(domain.KindDecode, "unmarshal response chunk: %w", err)
	}
	if response.Choices == nil {
		return nil, domain.Errorf(domain.KindDecode, "response chunk has no choices list")
	}

	contents := make([]string, 0, len(*response.Choices))
	for i, choice := range *response.Choices {
		if choice.Message == nil {
			return nil, domain.Errorf(domain.KindDecode, "choice %d has no message", i)
		}
		if choice.Message.Content == nil {
			return nil, domain.Errorf(domain.KindDecode, "choice %d message has no content", i)
		}
		contents = append(contents, *choice.Message.Content)
	}
	return contents, nil
}

// decodeRetrieval extracts the context string from a retrieval response body.
func decodeRetrieval(body []byte) (string, error) {
	if !utf8.Valid(body) {
		return "", domain.Errorf(domain.KindEncoding, "retrieval response is not valid UTF-8")
	}

	var response retrievalResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", domain.Errorf(domain.KindDecode, "unmarshal retrieval response: %w", err)
	}
	if response.Data == nil {
		return "", domain.Errorf(domain.KindDecode, "retrieval response has no data field")
	}
	return *response.Data, nil
}
