// Package client is the HTTP consumer of the quill server API, used by the
// terminal chat client.
package client

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
)

// ErrUnauthorized signals a 401 from the server: the session token is
// missing, invalid, or expired.
var ErrUnauthorized = errors.New("client: unauthorized")

const defaultTimeout = 45 * time.Second

// Turn is one stored request/response pair as returned by /chat/history.
type Turn struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the server's answer to a live /chat send.
type Reply struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Credentials is the result of a successful login or registration.
type Credentials struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    httpDoer
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) Register(ctx context.Context, email, password string) (*Credentials, error) {
	return c.authenticate(ctx, "/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	return c.authenticate(ctx, "/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("client: marshal credentials: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, buildServerError(status, respBody)
	}

	var creds Credentials
	if err := json.Unmarshal(respBody, &creds); err != nil {
		return nil, fmt.Errorf("client: decode credentials: %w", err)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("client: server returned no token")
	}

	return &creds, nil
}

// History fetches the stored conversation turns in chronological order.
func (c *Client) History(ctx context.Context, token string) ([]Turn, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, "/chat/history", token, nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return nil, buildServerError(status, respBody)
	}

	var turns []Turn
	if err := json.Unmarshal(respBody, &turns); err != nil {
		return nil, fmt.Errorf("client: decode history: %w", err)
	}

	return turns, nil
}

// Send posts a user message and returns the assistant reply.
func (c *Client) Send(ctx context.Context, token, message string) (*Reply, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("client: marshal message: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/chat", token, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		return nil, buildServerError(status, respBody)
	}

	var reply Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("client: decode reply: %w", err)
	}

	return &reply, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("client: create request: %w", err)
	}

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return nil, 0, fmt.Errorf("client: call server: %w", err)
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("client: read response: %w", err)
	}

	return respBody, response.StatusCode, nil
}

type serverErrorEnvelope struct {
	Error string `json:"error"`
}

func buildServerError(status int, body []byte) error {
	var envelope serverErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("client: server error (%d): %s", status, envelope.Error)
	}

	return fmt.Errorf("client: server error (%d): %s", status, http.StatusText(status))
}
