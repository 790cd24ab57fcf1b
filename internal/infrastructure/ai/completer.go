package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// HTTPCompleter issues streaming chat-completion requests against the local inference service.
type HTTPCompleter struct {
	settings  domain.CompletionSettings
	transport ports.Transport
	logger    ports.Logger
}

// NewCompleter builds a completer for the configured endpoint and model.
func NewCompleter(settings domain.CompletionSettings, transport ports.Transport, logger ports.Logger) *HTTPCompleter {
	return &HTTPCompleter{
		settings:  settings,
		transport: transport,
		logger:    logger,
	}
}

// Stream sends the request and returns the open chunk stream. The caller owns Close.
func (c *HTTPCompleter) Stream(ctx context.Context, in ports.CompletionInput) (ports.ChunkStream, error) {
	body, err := c.buildRequestBody(in)
	if err != nil {
		return nil, domain.NewError(domain.KindCompletionRequestFailed, fmt.Errorf("build request: %w", err))
	}

	c.logger.Debug("completion request", map[string]interface{}{
		"url":          c.settings.URL,
		"model":        c.settings.Model,
		"with_context": in.HasContext,
	})

	stream, err := c.transport.PostStream(ctx, c.settings.URL, body)
	if err != nil {
		return nil, domain.NewError(domain.KindCompletionRequestFailed, err)
	}
	return stream, nil
}

// buildRequestBody renders exactly one system message followed by one user message.
func (c *HTTPCompleter) buildRequestBody(in ports.CompletionInput) ([]byte, error) {
	system := c.settings.SystemPrompt
	if in.HasContext {
		system = c.settings.ContextPreamble + in.Context
	}

	return json.Marshal(chatCompletionRequest{
		Model: c.settings.Model,
		Messages: []chatMessage{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: in.Query},
		},
		Temperature: c.settings.Temperature,
	})
}

var _ ports.Completer = (*HTTPCompleter)(nil)
