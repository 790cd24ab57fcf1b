package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// HTTPRetriever fetches context from the retrieval endpoint with one blocking POST.
type HTTPRetriever struct {
	settings  domain.RetrievalSettings
	transport ports.Transport
	logger    ports.Logger
}

// NewRetriever builds a retriever for the configured endpoint and collection.
func NewRetriever(settings domain.RetrievalSettings, transport ports.Transport, logger ports.Logger) *HTTPRetriever {
	return &HTTPRetriever{
		settings:  settings,
		transport: transport,
		logger:    logger,
	}
}

// Retrieve posts {name, input} and returns the data field of the response.
func (r *HTTPRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(retrievalRequest{
		Name:  r.settings.Collection,
		Input: query,
	})
	if err != nil {
		return "", domain.NewError(domain.KindRetrievalRequestFailed, fmt.Errorf("build request: %w", err))
	}

	r.logger.Debug("retrieval request", map[string]interface{}{
		"url":        r.settings.URL,
		"collection": r.settings.Collection,
	})

	respBody, err := r.transport.Post(ctx, r.settings.URL, body)
	if err != nil {
		return "", domain.NewError(domain.KindRetrievalRequestFailed, err)
	}

	retrieved, err := decodeRetrieval(respBody)
	if err != nil {
		return "", err
	}

	r.logger.Debug("retrieval response", map[string]interface{}{"bytes": len(retrieved)})
	return retrieved, nil
}

var _ ports.Retriever = (*HTTPRetriever)(nil)
