// Package upstream fetches player records from the poolbot players API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/okian/poolboard/internal/domain/model"
	"github.com/okian/poolboard/pkg/logger"
	"github.com/okian/poolboard/pkg/metrics"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultBackoff    = 250 * time.Millisecond
	defaultMaxRetries = 2
	maxBodyBytes      = 4 << 20
	maxErrorBody      = 256
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errTransient marks a failure worth another attempt.
var errTransient = errors.New("transient players api failure")

// Client calls the players API.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// New creates a players API client for url authenticated with token.
func New(url, token string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSpace(url),
		token:      strings.TrimSpace(token),
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// FetchPlayers returns the raw player records.
func (c *Client) FetchPlayers(ctx context.Context) ([]model.PlayerRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordUpstreamLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	raw, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var records []model.PlayerRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		metrics.RecordUpstreamError("decode")
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if records == nil {
		// "null" body
		metrics.RecordUpstreamError("decode")
		return nil, fmt.Errorf("%w: expected a json array", ErrDecode)
	}
	return records, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.do(ctx)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !errors.Is(err, errTransient) || attempt == c.maxRetries {
			break
		}

		wait := time.Duration(attempt+1) * c.backoff
		c.log.Warn(ctx, "players api attempt failed, retrying",
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", wait),
			logger.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrRequest, ctx.Err())
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context) ([]byte, error) {
	metrics.RecordUpstreamAttempt()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequest, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamError("transport")
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequest, err)
		}
		return nil, fmt.Errorf("%w: %w: %v", ErrRequest, errTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordUpstreamError("transport")
		return nil, fmt.Errorf("%w: %w: read body: %v", ErrRequest, errTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamError("status")
		statusErr := fmt.Errorf("%w: status=%d body=%s", ErrStatus, resp.StatusCode, abbreviate(raw))
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %w", errTransient, statusErr)
		}
		return nil, statusErr
	}
	return raw, nil
}

func abbreviate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
