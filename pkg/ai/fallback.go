package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"dabble-backend/pkg/logger"
)

// FallbackProvider routes a request to the primary provider and falls back to
// the secondary one when the primary is unreachable, out of quota or failing
// server-side. Bad requests are not retried on the secondary.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	log       *logger.Logger
}

// NewFallbackProvider creates a new fallback provider with both backends
func NewFallbackProvider(primary, secondary Provider, log *logger.Logger) *FallbackProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		log:       log.With("service", "FallbackProvider"),
	}
}

func (f *FallbackProvider) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *FallbackProvider) Generate(ctx context.Context, req Request) (string, error) {
	result, err := f.primary.Generate(ctx, req)
	if err == nil {
		return result, nil
	}
	if !shouldFallBack(err) {
		return "", err
	}
	if ctx.Err() != nil {
		return "", err
	}

	f.log.Warn("Primary provider failed, falling back",
		"primary", f.primary.Name(),
		"secondary", f.secondary.Name(),
		"error", err.Error(),
	)

	// Secondary model names differ from the primary's.
	req.Model = ""
	result, secErr := f.secondary.Generate(ctx, req)
	if secErr != nil {
		return "", fmt.Errorf("%s failed: %v; %s failed: %w", f.primary.Name(), err, f.secondary.Name(), secErr)
	}
	return result, nil
}

func shouldFallBack(err error) bool {
	if isConnectionError(err) || isQuotaError(err) {
		return true
	}
	var sc interface{ HTTPStatusCode() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode() >= 500
	}
	return false
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var sc interface{ HTTPStatusCode() int }
	if errors.As(err, &sc) && sc.HTTPStatusCode() == 429 {
		return true
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"quota",
		"rate limit",
		"too many requests",
		"resource_exhausted",
		"resource exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
