// Package synth turns a Ruby method body into RSpec text by calling a local
// inference endpoint.
//
// The endpoint accepts {"input": "<method body>"} and answers
// {"result": "<templated reply>"}. The reply follows the instruction template
// used for training, so the spec text sits after a "### Response:" marker,
// usually inside a ```ruby fence.
package synth

import (
	"context"
	"time"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/config"
)

// Default endpoint settings.
const (
	DefaultEndpoint        = "http://127.0.0.1:5000/generate"
	DefaultHealthPath      = "/health"
	DefaultTimeout         = 120 * time.Second
	DefaultBreakerFailures = 5
	DefaultBreakerReset    = 30 * time.Second
	DefaultCacheSize       = 256
)

// Synthesizer produces spec text for a method body.
type Synthesizer interface {
	// Synthesize returns the spec block for methodBody. ok is false when the
	// reply held nothing usable; that is not an error.
	Synthesize(ctx context.Context, methodBody string) (text string, ok bool, err error)

	// Available reports whether the endpoint answers its health check.
	Available(ctx context.Context) bool

	// Endpoint returns the generate URL.
	Endpoint() string
}

// Config configures the HTTP client.
type Config struct {
	Endpoint        string
	HealthPath      string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	BreakerFailures int
	BreakerReset    time.Duration
}

// ConfigFrom maps the synth section of the project config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Endpoint:        cfg.Synth.Endpoint,
		HealthPath:      cfg.Synth.HealthPath,
		Timeout:         cfg.SynthTimeout(),
		MaxRetries:      cfg.Synth.MaxRetries,
		BreakerFailures: cfg.Synth.BreakerFailures,
		BreakerReset:    cfg.BreakerReset(),
	}
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = DefaultBreakerFailures
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = DefaultBreakerReset
	}
	return c
}

type generateRequest struct {
	Input string `json:"input"`
}

type generateResponse struct {
	Result *string `json:"result"`
}
