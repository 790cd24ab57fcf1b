package doctor

import (
	"context"
	"fmt"

	appconfig "github.com/doeshing/rag-go/internal/application/config"
	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Transport      ports.Transport
	// History is optional; nil reports history as disabled.
	History ports.HistoryRepository
}

// Run executes checks and returns a report. Only a config load failure is returned as an
// error; everything else is reported as a check.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, s.probe(ctx, "Completion endpoint", cfg.Completion.URL, fail))
	if cfg.Retrieval.Enabled {
		checks = append(checks, s.probe(ctx, "Retrieval endpoint", cfg.Retrieval.URL, fail))
	} else if cfg.Retrieval.URL != "" {
		checks = append(checks, s.probe(ctx, "Retrieval endpoint", cfg.Retrieval.URL, warn))
	}

	checks = append(checks, s.historyCheck(cfg.History))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) probe(ctx context.Context, name, url string, onError func(string, string) domain.HealthCheck) domain.HealthCheck {
	if s.Transport == nil {
		return warn(name, "transport not initialized")
	}
	probeCtx, cancel := context.WithTimeout(ctx, domain.DefaultProbeTimeout)
	defer cancel()
	if err := s.Transport.Probe(probeCtx, url); err != nil {
		return onError(name, fmt.Sprintf("%s unreachable: %v", url, err))
	}
	return ok(name, fmt.Sprintf("%s reachable", url))
}

func (s *Service) historyCheck(settings domain.HistorySettings) domain.HealthCheck {
	if !settings.Enabled || s.History == nil {
		return ok("History", "disabled")
	}
	if _, err := s.History.Records(1); err != nil {
		return warn("History", fmt.Sprintf("%s: %v", s.History.Path(), err))
	}
	return ok("History", s.History.Path())
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
