package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/errors"
	"github.com/A-iswarya/RspecGeneratorPublic/pkg/version"
)

// Client calls the inference endpoint over HTTP.
type Client struct {
	client    *http.Client
	transport *http.Transport
	cfg       Config
	retry     errors.RetryConfig
	breaker   *errors.CircuitBreaker
}

var _ Synthesizer = (*Client)(nil)

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        2,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     10 * time.Second,
	}

	retry := errors.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	retry.InitialDelay = cfg.RetryDelay
	retry.Jitter = true

	return &Client{
		// Timeouts are applied per request through the context.
		client:    &http.Client{Transport: transport},
		transport: transport,
		cfg:       cfg,
		retry:     retry,
		breaker: errors.NewCircuitBreaker("synth",
			errors.WithMaxFailures(cfg.BreakerFailures),
			errors.WithResetTimeout(cfg.BreakerReset)),
	}
}

// Endpoint returns the generate URL.
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint
}

// Breaker exposes the circuit breaker state for diagnostics.
func (c *Client) Breaker() *errors.CircuitBreaker {
	return c.breaker
}

// Synthesize posts methodBody to the endpoint and extracts the spec block
// from the reply.
func (c *Client) Synthesize(ctx context.Context, methodBody string) (string, bool, error) {
	start := time.Now()
	slog.Debug("synthesis_started",
		slog.String("endpoint", c.cfg.Endpoint),
		slog.Int("input_bytes", len(methodBody)))

	reply, err := errors.CircuitCall(c.breaker, func() (string, error) {
		return errors.RetryWithResult(ctx, c.retry, func() (string, error) {
			return c.generate(ctx, methodBody)
		})
	})
	if err != nil {
		slog.Warn("synthesis_failed",
			slog.String("error", err.Error()),
			slog.String("code", errors.GetCode(err)),
			slog.Duration("elapsed", time.Since(start)))
		return "", false, err
	}

	text, ok := ParseReply(reply)
	slog.Debug("synthesis_completed",
		slog.Bool("usable", ok),
		slog.Int("reply_bytes", len(reply)),
		slog.Duration("elapsed", time.Since(start)))
	return text, ok, nil
}

// generate performs one request.
func (c *Client) generate(ctx context.Context, methodBody string) (string, error) {
	payload, err := json.Marshal(generateRequest{Input: methodBody})
	if err != nil {
		return "", errors.InternalError("failed to encode request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.TransportError(errors.ErrCodeTransportUnavailable,
			fmt.Sprintf("invalid endpoint %s", c.cfg.Endpoint), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return "", errors.TransportError(errors.ErrCodeTransportTimeout,
				fmt.Sprintf("inference endpoint did not answer within %s", c.cfg.Timeout), err).
				WithDetail("endpoint", c.cfg.Endpoint).
				WithSuggestion("Raise synth.timeout or check the model server load")
		}
		return "", errors.TransportError(errors.ErrCodeTransportUnavailable,
			"inference endpoint unreachable", err).
			WithDetail("endpoint", c.cfg.Endpoint).
			WithSuggestion("Start the model server or set synth.endpoint / RSPECGEN_ENDPOINT")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.TransportError(errors.ErrCodeBadStatus,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil).
			WithDetail("endpoint", c.cfg.Endpoint).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.TransportError(errors.ErrCodeMalformedReply,
			"failed to decode inference reply", err).WithDetail("endpoint", c.cfg.Endpoint)
	}
	if out.Result == nil {
		return "", errors.TransportError(errors.ErrCodeMalformedReply,
			"inference reply has no result field", nil).WithDetail("endpoint", c.cfg.Endpoint)
	}
	return *out.Result, nil
}

// Available checks the health path on the endpoint's host.
func (c *Client) Available(ctx context.Context) bool {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return false
	}
	u.Path = c.cfg.HealthPath
	u.RawQuery = ""

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
