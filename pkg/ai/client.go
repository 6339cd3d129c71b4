package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"dabble-backend/pkg/logger"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

type ClientConfig struct {
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	// RequestsPerSecond throttles calls to the provider. Zero disables it.
	RequestsPerSecond float64
}

// Client wraps a Provider with per-call timeouts, bounded retries with
// exponential backoff, and JSON extraction.
type Client struct {
	provider Provider
	cfg      ClientConfig
	limiter  *rate.Limiter
	log      *logger.Logger
}

func NewClient(provider Provider, cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if provider == nil {
		return nil, newError(KindConfig, "no provider configured", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	c := &Client{
		provider: provider,
		cfg:      cfg,
		log:      log.With("service", "CompletionClient", "provider", provider.Name()),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c, nil
}

func (c *Client) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if c == nil || c.provider == nil {
		return "", newError(KindConfig, "no provider configured", nil)
	}
	return c.generate(ctx, c.request(system, user, opts, false))
}

func (c *Client) CompleteJSON(ctx context.Context, system, user string, opts Options) (map[string]any, error) {
	if c == nil || c.provider == nil {
		return nil, newError(KindConfig, "no provider configured", nil)
	}
	text, err := c.generate(ctx, c.request(system, user, opts, true))
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(text)
}

func (c *Client) request(system, user string, opts Options, jsonMode bool) Request {
	model := opts.Model
	if model == "" {
		model = c.cfg.Model
	}
	return Request{
		System:      system,
		User:        user,
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSON:        jsonMode,
	}
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	var (
		text     string
		attempt  int
		lastKind ErrorKind
	)

	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxAttempts-1), retry.NewExponential(c.cfg.BackoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		out, err := c.provider.Generate(callCtx, req)
		if err == nil {
			if strings.TrimSpace(out) == "" {
				lastKind = KindInvalidResponse
				return newError(KindInvalidResponse, "empty completion", nil)
			}
			text = out
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind, retryable := classify(err)
		lastKind = kind
		if !retryable {
			return err
		}
		if attempt < c.cfg.MaxAttempts {
			c.log.Warn("Completion attempt failed, retrying",
				"attempt", attempt,
				"max_attempts", c.cfg.MaxAttempts,
				"kind", string(kind),
				"error", err.Error(),
			)
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return text, nil
	}

	var aiErr *Error
	if errors.As(err, &aiErr) {
		return "", aiErr
	}
	if ctx.Err() != nil {
		return "", newError(KindTimeout, "request cancelled", err)
	}
	if lastKind == KindTimeout {
		return "", newError(KindTimeout, fmt.Sprintf("timed out after %d attempts", attempt), err)
	}
	return "", newError(KindAPI, fmt.Sprintf("request failed after %d attempts", attempt), err)
}

// classify maps a provider error to a kind and says whether it is worth
// another attempt. Timeouts, rate limits and 5xx responses are retried.
func classify(err error) (ErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, true
	}

	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind, aiErr.Kind == KindTimeout
	}

	var sc interface{ HTTPStatusCode() int }
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		return KindAPI, code == 429 || code >= 500
	}

	if isQuotaError(err) {
		return KindAPI, true
	}
	return KindAPI, false
}
