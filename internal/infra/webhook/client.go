package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"jarvis/internal/domain"
	"jarvis/internal/infra"
)

const defaultMaxBodyBytes = 10 * 1024 * 1024

type Client struct {
	url          string
	httpClient   *http.Client
	retry        infra.RetryConfig
	maxBodyBytes int64
	logger       *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithAttempts(n int) Option {
	return func(c *Client) { c.retry.MaxAttempts = n }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retry.InitialDelay = d }
}

func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

func NewClient(url string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		url:          url,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		retry:        infra.DefaultRetryConfig(),
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger,
	}
	c.retry.ShouldRetry = isTransient
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Query string `json:"query"`
}

// Send posts the query and classifies the answer. Transport failures come back
// as *domain.NetworkError, bad statuses as *domain.HTTPError and payloads that
// do not match their content type as *domain.DecodeError.
func (c *Client) Send(ctx context.Context, requestID, query string) (*domain.Reply, error) {
	bodyBytes, err := json.Marshal(request{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var reply *domain.Reply
	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if requestID != "" {
			req.Header.Set("X-Request-ID", requestID)
		}

		c.logger.Debug("posting query to webhook", "request_id", requestID, "url", c.url)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &domain.NetworkError{Err: ctxErr}
			}
			return &domain.NetworkError{Err: err}
		}
		defer resp.Body.Close()

		c.logger.Info("webhook responded",
			"request_id", requestID,
			"status", resp.StatusCode,
			"content_type", resp.Header.Get("Content-Type"),
		)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return &domain.HTTPError{Status: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		if err != nil {
			return &domain.NetworkError{Err: fmt.Errorf("reading body: %w", err)}
		}

		reply, err = Classify(resp.Header, body)
		return err
	})

	if retryErr != nil {
		return nil, retryErr
	}
	return reply, nil
}

func isTransient(err error) bool {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return infra.IsRetryableHTTPStatus(httpErr.Status)
	}
	var netErr *domain.NetworkError
	return errors.As(err, &netErr)
}
