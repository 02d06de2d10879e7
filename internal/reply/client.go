package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

// ClientOptions configures HTTPClient.
type ClientOptions struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Attempts uint
}

// HTTPClient calls a JSON generation endpoint:
//
//	POST {endpoint}  {"persona":..., "prompt":..., "maxTokens":...}
//	200              {"text":"..."}
type HTTPClient struct {
	opts ClientOptions
	c    *http.Client
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewHTTPClient returns a client with its own http.Client.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	return NewHTTPClientWithHTTPClient(opts, &http.Client{})
}

// NewHTTPClientWithHTTPClient returns a client with provided http.Client.
func NewHTTPClientWithHTTPClient(opts ClientOptions, c *http.Client) *HTTPClient {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &HTTPClient{opts: opts, c: c}
}

// Generate sends the request, retrying transient failures until the overall timeout.
func (h *HTTPClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	err = retry.Do(
		func() error {
			t, err := h.send(ctx, body)
			if err != nil {
				return err
			}
			text = t
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(h.opts.Attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (h *HTTPClient) send(ctx context.Context, body []byte) (string, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	r.Header.Set("Content-Type", "application/json")
	if h.opts.APIKey != "" {
		r.Header.Set("Authorization", "Bearer "+h.opts.APIKey)
	}

	rr, err := h.c.Do(r)
	if err != nil {
		return "", fmt.Errorf("failed to post generate request: %w", err)
	}
	defer rr.Body.Close()

	var resp generateResponse
	decodeErr := json.NewDecoder(rr.Body).Decode(&resp)

	if rr.StatusCode < 200 || rr.StatusCode >= 300 {
		reqErr := fmt.Errorf("generate failed with status %d", rr.StatusCode)
		if decodeErr == nil && resp.Error != "" {
			reqErr = fmt.Errorf("generate failed: %s", resp.Error)
		}
		// client errors will not improve on retry
		if rr.StatusCode >= 400 && rr.StatusCode < 500 && rr.StatusCode != http.StatusTooManyRequests {
			return "", retry.Unrecoverable(reqErr)
		}
		return "", reqErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if resp.Text == "" {
		return "", ErrEmptyReply
	}
	return resp.Text, nil
}
