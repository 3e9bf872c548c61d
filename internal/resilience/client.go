package resilience

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without contacting the endpoint while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrUnexpectedStatus is returned by PostJSON for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Name identifies the endpoint in the breaker and the registry.
	Name string

	// Timeout per attempt. Default: 5 seconds
	Timeout time.Duration

	// MaxRetries after the first attempt. Default: 3
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the exponential backoff.
	// Defaults: 200ms and 5s
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker overrides DefaultBreakerConfig(Name).
	Breaker *BreakerConfig

	// Registry, when set, receives the client and its outcomes.
	Registry *Registry
}

// DefaultClientConfig returns the defaults for a named endpoint.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         5 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
	}
}

// Client sends HTTP requests through a circuit breaker with retries on
// network errors and 5xx responses.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	registry *Registry
	cfg      ClientConfig
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  NewBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type param
		registry: cfg.Registry,
		cfg:      cfg,
	}
	if c.registry != nil {
		c.registry.Register(c.name, c)
	}
	return c
}

// Name returns the endpoint name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req. Requests with a body must be built so that GetBody is set
// (http.NewRequest does this for bytes readers), otherwise retries resend
// an empty body. A 5xx that survives every retry is returned as the response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.http.Do(cloneForAttempt(ctx, req))
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
		if resp != nil {
			if last != nil {
				last.Body.Close()
			}
			last = resp
		}
		return err
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		c.recordFailure(err)
		if errors.Is(err, ErrCircuitOpen) {
			if last != nil {
				last.Body.Close()
			}
			return nil, err
		}
		if last != nil {
			return last, nil
		}
		return nil, err
	}

	c.recordSuccess()
	return last, nil
}

// PostJSON marshals body and POSTs it to url. Any non-2xx final status is
// reported as ErrUnexpectedStatus.
func (c *Client) PostJSON(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func cloneForAttempt(ctx context.Context, req *http.Request) *http.Request {
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}
	return clone
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.RecordSuccess(c.name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.RecordFailure(c.name, err)
	}
}

// ServerError is a 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// BreakerState returns the current breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// BreakerCounts returns the breaker counters.
func (c *Client) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
