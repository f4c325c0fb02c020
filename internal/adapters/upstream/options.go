package upstream

import (
	"net/http"
	"time"

	"github.com/okian/poolboard/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a 5xx or transport failure is retried.
// Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the linear backoff step: attempt n waits n*d.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
