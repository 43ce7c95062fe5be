// Package arena implements the HTTP service adapter for the arena
// backend. Adapters are stateless: every call builds a request, attaches
// auth, and normalizes the outcome — transport failure, non-2xx status,
// undecodable body, or success — into the result envelope. Expected
// failures never cross this boundary as Go errors.
package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentarena/arenasync/internal/adapter/otel"
	"github.com/agentarena/arenasync/internal/logger"
	"github.com/agentarena/arenasync/internal/port/arena"
	"github.com/agentarena/arenasync/internal/resilience"
	"github.com/agentarena/arenasync/internal/result"
)

// Client talks to the arena backend HTTP API. It holds no entity state;
// caching and reconciliation belong to the stores.
type Client struct {
	baseURL    string
	tokens     arena.TokenProvider
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates an arena API client rooted at baseURL (the API
// gateway root, e.g. "https://arena.example.com/api"). Calls carry no
// timeout unless SetTimeout is used: a call either resolves or its
// owner is torn down.
func NewClient(baseURL string, tokens arena.TokenProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Transport: otel.Transport(nil),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls. An open
// circuit surfaces as a failure envelope, not an error.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetTimeout bounds each HTTP call. Zero restores the default of no
// timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// BaseURL returns the configured API gateway root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs one HTTP call and returns the response body and
// status. The returned error covers transport failures only; HTTP
// status handling is the decoder's concern.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var respBody []byte
	var status int

	call := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if id := logger.RequestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		status = resp.StatusCode

		// A 5xx counts as a backend failure for the breaker; 4xx is a
		// domain-level rejection and leaves the circuit alone.
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("HTTP %d: %s", status, http.StatusText(status))
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}

	if err != nil && status < http.StatusInternalServerError {
		return nil, 0, err
	}
	return respBody, status, nil
}

// exchange performs a call and decodes the response into the envelope.
func exchange[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) result.Result[T] {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return result.Failf[T]("encode request: %v", err)
		}
	}

	respBody, status, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return result.Fail[T](err.Error())
	}

	return decode[T](respBody, status)
}

// decode maps an HTTP response onto the envelope. A non-2xx status
// yields a failure carrying the backend "detail" message when one can
// be decoded, otherwise a generic status line.
func decode[T any](body []byte, status int) result.Result[T] {
	if !is2xx(status) {
		return result.Fail[T](failureMessage(body, status))
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return result.Fail[T]("failed to parse response")
	}
	return result.Ok(data)
}

func is2xx(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// failureMessage extracts the backend "detail" message from an error
// response, falling back to a generic status line.
func failureMessage(body []byte, status int) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}
