package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jarvis/internal/infra"
)

const defaultService = "notify"

// Notifier sends messages through a Home Assistant notify service, e.g.
// notify.mobile_app_phone.
type Notifier struct {
	baseURL    string
	token      string
	service    string
	retry      infra.RetryConfig
	httpClient *http.Client
}

func NewNotifier(baseURL, token, service string) *Notifier {
	service = strings.TrimPrefix(service, "notify.")
	if service == "" {
		service = defaultService
	}

	retry := infra.DefaultRetryConfig()
	retry.MaxAttempts = 3

	return &Notifier{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		service:    service,
		retry:      retry,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type notifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (n *Notifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(notifyRequest{Title: "Jarvis", Message: message})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := "/api/services/notify/" + n.service
	if err := n.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("calling notify.%s: %w", n.service, err)
	}
	return nil
}

// retryableError marks failures worth another attempt.
type retryableError struct{ error }

func (n *Notifier) doRequest(ctx context.Context, method, path string, body []byte) error {
	cfg := n.retry
	cfg.ShouldRetry = func(err error) bool {
		var r retryableError
		return errors.As(err, &r)
	}

	return infra.WithRetry(ctx, cfg, func() error {
		req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+n.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return retryableError{fmt.Errorf("sending request: %w", err)}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("unauthorized: check your Home Assistant token")
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return retryableError{fmt.Errorf("home assistant API error %d (retryable): %s", resp.StatusCode, string(respBody))}
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody))
		}

		return nil
	})
}
