package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without contacting the upstream while the
	// breaker is open or its half-open probe budget is spent.
	ErrCircuitOpen = errors.New("upstream circuit is open")

	// ErrRetriesExhausted wraps the last failure once every attempt failed.
	ErrRetriesExhausted = errors.New("upstream retries exhausted")
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Name identifies the upstream. Required.
	Name string

	// Timeout bounds a single attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of attempts after the first.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the first backoff delay.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay.
	// Default: 5 seconds
	MaxInterval time.Duration

	// Breaker configures the circuit breaker. Nil means DefaultBreakerConfig(Name).
	Breaker *BreakerConfig

	// Registry, when set, receives the client under Name and its outcomes.
	Registry *Registry

	// Transport overrides the HTTP transport.
	Transport http.RoundTripper

	Logger zerolog.Logger
}

// DefaultClientConfig returns the defaults for an upstream called name.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
		Logger:          zerolog.Nop(),
	}
}

// Client is an HTTP client that retries transient failures and stops
// calling an upstream that keeps failing.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	registry *Registry
	config   ClientConfig
	logger   zerolog.Logger
}

// NewClient creates a Client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}
	if breakerCfg.Name == "" {
		breakerCfg.Name = cfg.Name
	}

	logger := cfg.Logger.With().Str("upstream", cfg.Name).Logger()
	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker:  NewBreaker[*http.Response](breakerCfg, logger), //nolint:bodyclose // type parameter
		registry: cfg.Registry,
		config:   cfg,
		logger:   logger,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req under the request's own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends req, retrying network errors and 5xx responses with
// exponential backoff. A 4xx response is returned as is. When retries run
// out on a 5xx, the last response is returned without error so callers can
// inspect it.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var last *http.Response
	attempt := func() error {
		if last != nil {
			// Drop the previous 5xx before trying again.
			_ = last.Body.Close()
			last = nil
		}
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		last = resp
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Str("url", req.URL.Redacted()).Msg("retrying upstream call")
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	c.record(err)
	if err == nil {
		return last, nil
	}
	var serverErr *ServerError
	if last != nil && errors.As(err, &serverErr) {
		return last, nil
	}
	if last != nil {
		_ = last.Body.Close()
	}
	if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// ServerError marks a 5xx upstream response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
