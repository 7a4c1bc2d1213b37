package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/pkg/fn"
	"github.com/WessleyAI/wessley-inspect/pkg/resilience"
)

// DefaultBaseURL is the upstream data endpoint.
const DefaultBaseURL = "https://ap-southeast-1.aws.data.mongodb-api.com/app/assetscp-gruyu/endpoint/showData"

// Record set names used in errors and logs.
const (
	SourceVehicles    = "vehicles"
	SourceInspections = "inspections"
)

const maxBody = 64 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Rate      float64 // requests per second, 0 for unlimited
	Burst     int
	UserAgent string
	Retry     fn.RetryOpts
	Breaker   resilience.BreakerOpts
}

// DefaultConfig returns the production client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		Rate:      5,
		Burst:     2,
		UserAgent: "wessley-inspect/1.0",
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Jitter:      true,
		},
		Breaker: resilience.DefaultBreakerOpts,
	}
}

// Client fetches record sets over HTTP with pacing, retries and a circuit
// breaker shared by both record sets.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a Client. Zero fields of cfg take DefaultConfig values.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	cfg.Retry.Retryable = domain.IsRetryable
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = domain.IsRetryable
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		breaker: resilience.NewBreaker(cfg.Breaker),
	}
}

// BreakerState reports the state of the upstream circuit breaker.
func (c *Client) BreakerState() resilience.State { return c.breaker.State() }

// VehiclesURL is the request URL for the vehicle record set of p.
func (c *Client) VehiclesURL(p Params) string {
	q := url.Values{}
	q.Set("collection", p.VehicleCollection())
	q.Set("type", p.VehicleType)
	return c.cfg.BaseURL + "?" + q.Encode()
}

// InspectionsURL is the request URL for the inspection record set of p.
func (c *Client) InspectionsURL(p Params) string {
	q := url.Values{}
	q.Set("collection", p.InspectionCollection())
	q.Set("type", p.VehicleType)
	q.Set("s", strconv.Itoa(p.Days))
	return c.cfg.BaseURL + "?" + q.Encode()
}

// Vehicles fetches the vehicle record set.
func (c *Client) Vehicles(ctx context.Context, p Params) ([]domain.Vehicle, error) {
	return fetch[domain.Vehicle](ctx, c, SourceVehicles, c.VehiclesURL(p))
}

// Inspections fetches the inspection record set.
func (c *Client) Inspections(ctx context.Context, p Params) ([]domain.Inspection, error) {
	return fetch[domain.Inspection](ctx, c, SourceInspections, c.InspectionsURL(p))
}

func fetch[T any](ctx context.Context, c *Client, name, u string) ([]T, error) {
	res := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[[]T] {
		return fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[[]T] {
			if err := c.limiter.Wait(ctx); err != nil {
				return fn.Err[[]T](err)
			}
			return fn.FromPair(getJSON[T](ctx, c, name, u))
		})
	})
	out, err := res.Unwrap()
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, &domain.UpstreamError{Source: name, Retryable: true, Err: err}
	}
	return out, err
}

func getJSON[T any](ctx context.Context, c *Client, name, u string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build %s request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.UpstreamError{Source: name, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.UpstreamError{
			Source:    name,
			Status:    resp.StatusCode,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var out []T
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.UpstreamError{Source: name, Retryable: true, Err: fmt.Errorf("decode: %w", err)}
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
