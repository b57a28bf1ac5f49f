// Package apiclient is the outbound HTTP client used for backend-to-service
// calls that carry a bearer token. It retries transient upstream failures
// (502/503/504 and transport errors) a fixed number of times with a fixed
// delay, and translates non-JSON error bodies into typed errors instead of
// leaking raw HTML to callers.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	maxRetries  = 2
	retryDelay  = 1500 * time.Millisecond
	callTimeout = 60 * time.Second
)

// Session holds the bearer token for a client instance. It replaces the
// hidden module-level token state of earlier revisions: set on sign-in,
// attached to every call, cleared on sign-out or on any 401.
type Session struct {
	mu    sync.Mutex
	token string
}

// NewSession returns a session primed with token, which may be empty.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// Set stores a new token.
func (s *Session) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the current token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Clear drops the token.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Attach sets the Authorization header when a token is held.
func (s *Session) Attach(h http.Header) {
	if t := s.Token(); t != "" {
		h.Set("Authorization", "Bearer "+t)
	}
}

// ServerError is a non-2xx upstream response. Message carries the server's
// JSON error field when one was present, otherwise a generic description.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// NetworkError means no response was received after exhausting retries.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Client issues JSON calls against a base URL with bounded retry. Retries
// are sequential and blocking; there is no backoff growth, circuit breaking,
// or request deduplication.
type Client struct {
	base    string
	session *Session
	http    *http.Client
	delay   time.Duration
	log     *slog.Logger
}

// New returns a client for baseURL. session may be nil for unauthenticated
// use.
func New(baseURL string, session *Session, log *slog.Logger) *Client {
	if session == nil {
		session = NewSession("")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: callTimeout},
		delay:   retryDelay,
		log:     log,
	}
}

// Session exposes the client's token state for sign-in/sign-out flows.
func (c *Client) Session() *Session { return c.session }

// retryableStatus reports the statuses worth a retry: gateway-layer blips.
// A plain 500 is the upstream's final answer and is surfaced immediately.
func retryableStatus(status int) bool {
	return status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

// Call issues method endpoint with the JSON-encoded body (nil for none) and
// returns the raw response body on 2xx. A 401 clears the session before the
// error is returned.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.session.Attach(req.Header)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				c.log.Warn("transport failure, retrying", "endpoint", endpoint, "attempt", attempt+1, "error", err)
				time.Sleep(c.delay)
				continue
			}
			return nil, &NetworkError{Err: lastErr}
		}

		if retryableStatus(resp.StatusCode) && attempt < maxRetries {
			resp.Body.Close()
			c.log.Warn("upstream unavailable, retrying", "endpoint", endpoint, "status", resp.StatusCode, "attempt", attempt+1)
			time.Sleep(c.delay)
			continue
		}

		return c.handleResponse(resp)
	}
}

func (c *Client) handleResponse(resp *http.Response) (json.RawMessage, error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return json.RawMessage(data), nil
	}

	if isJSON {
		var envelope struct {
			Error            string `json:"error"`
			Msg              string `json:"msg"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			msg := envelope.Error
			if msg == "" {
				msg = envelope.Msg
			}
			if msg == "" {
				msg = envelope.ErrorDescription
			}
			return nil, &ServerError{Status: resp.StatusCode, Message: msg}
		}
	}

	return nil, &ServerError{Status: resp.StatusCode}
}
