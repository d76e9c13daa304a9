package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultURL = "https://api.pushover.net/1/messages.json"
	title      = "Jarvis"

	// Pushover rejects messages longer than this.
	maxMessageRunes = 1024
)

// Client forwards webhook failures to a Pushover device.
type Client struct {
	token      string
	userKey    string
	url        string
	httpClient *http.Client
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultURL)
}

func NewClientWithURL(token, userKey, apiURL string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		url:        apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether both credentials are set; Notify is a no-op
// otherwise.
func (c *Client) Enabled() bool {
	return c.token != "" && c.userKey != ""
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.Enabled() {
		return nil
	}

	if utf8.RuneCountInString(message) > maxMessageRunes {
		message = string([]rune(message)[:maxMessageRunes-3]) + "..."
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", title)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushover error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
