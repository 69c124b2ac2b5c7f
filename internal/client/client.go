// Package client talks to the story API. All traffic goes to the single
// allow-listed origin the panel's policy permits, with retries, rate
// limiting and a circuit breaker in front of it.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storydock/panelhost/internal/infrastructure/resilience"
	"github.com/storydock/panelhost/internal/logging"
)

// Client wraps resty with retry, rate limiting and circuit breaking.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// New creates a client bound to the API origin.
func New(apiOrigin string, logger *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(apiOrigin).
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", "panelhost/1.0")
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("story-api", resilience.Settings{
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("api breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		breaker: breaker,
	}
}

// SetRateLimit configures the request rate in requests per second.
// Zero or negative removes the limit.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
}

// Request creates a new request after clearing the rate limiter.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}
	return c.resty.R().SetContext(ctx), nil
}

// Execute runs fn under the circuit breaker.
func (c *Client) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return c.breaker.Execute(fn)
}
