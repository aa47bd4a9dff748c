package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/log"
)

// FallbackProvider tries each provider in order until one answers.
type FallbackProvider struct {
	providers []Provider
	logger    *log.Logger
}

func NewFallbackProvider(logger *log.Logger, providers ...Provider) *FallbackProvider {
	return &FallbackProvider{
		providers: providers,
		logger:    logger.WithPrefix("AI"),
	}
}

func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f *FallbackProvider) Complete(ctx context.Context, req Request) (string, error) {
	if len(f.providers) == 0 {
		return "", ErrNoProvider
	}

	var errs []error
	for _, p := range f.providers {
		out, err := p.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		// A cancelled caller will fail every remaining provider too.
		if ctx.Err() != nil {
			break
		}

		switch {
		case isQuotaError(err):
			f.logger.Warn("provider quota exhausted, trying next", "provider", p.Name(), "err", err)
		case isConnectionError(err):
			f.logger.Warn("provider unreachable, trying next", "provider", p.Name(), "err", err)
		default:
			f.logger.Warn("provider failed, trying next", "provider", p.Name(), "err", err)
		}
	}
	return "", errors.Join(errs...)
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
	for _, indicator := range []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	} {
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

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
