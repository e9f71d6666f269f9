package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/comptree/backend/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}

// HealthChecks probes every named check and joins the failures.
type HealthChecks map[string]HealthService

// Probe implements the HealthService interface.
func (c HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for name, check := range c {
		if check == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ProbeFunc adapts a function to HealthService.
type ProbeFunc func(ctx context.Context) error

// Probe implements the HealthService interface.
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}
