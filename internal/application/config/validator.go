package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/doeshing/rag-go/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateCompletion(cfg.Completion); err != nil {
		return err
	}
	if err := validateRetrieval(cfg.Retrieval); err != nil {
		return err
	}
	if cfg.Output.Mode != "" && !cfg.Output.Mode.Valid() {
		return fmt.Errorf("output.mode must be concat|sections, got %s", cfg.Output.Mode)
	}
	if cfg.Stream.Framing != "" && !cfg.Stream.Framing.Valid() {
		return fmt.Errorf("stream.framing must be object|chunk, got %s", cfg.Stream.Framing)
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return err
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}

func validateCompletion(c domain.CompletionSettings) error {
	if err := validateEndpoint("completion.url", c.URL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("completion.model must be set")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

func validateRetrieval(r domain.RetrievalSettings) error {
	if !r.Enabled && r.URL == "" {
		return nil
	}
	if err := validateEndpoint("retrieval.url", r.URL); err != nil {
		return err
	}
	if r.Enabled && strings.TrimSpace(r.Collection) == "" {
		return fmt.Errorf("retrieval.collection must be set when retrieval is enabled")
	}
	return nil
}

func validateHistory(h domain.HistorySettings) error {
	if h.Enabled && h.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}

func validateLogging(l domain.LoggingSettings) error {
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %s", l.Level)
	}
}

func validateEndpoint(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s must be set", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s invalid: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
