package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/utils"
)

type fakeDoer struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastReq = req
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(d.body))),
		Header:     make(http.Header),
	}, nil
}

func newTestClient(doer *fakeDoer) *Client {
	c := NewClient(utils.LLMConfig{
		BaseURL: "https://example.test/v1",
		APIKey:  "test-key",
		Model:   "test-model",
	}, nil)
	c.client = doer
	return c
}

func TestCompleteSuccess(t *testing.T) {
	doer := &fakeDoer{
		status: http.StatusOK,
		body:   `{"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
	}
	c := newTestClient(doer)

	reply, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete returned error: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("expected reply 'hi there', got %q", reply)
	}

	if got := doer.lastReq.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Fatalf("expected bearer auth header, got %q", got)
	}
	if !strings.HasSuffix(doer.lastReq.URL.String(), "/chat/completions") {
		t.Fatalf("unexpected endpoint %s", doer.lastReq.URL)
	}

	payload, err := io.ReadAll(doer.lastReq.Body)
	if err != nil {
		t.Fatalf("failed to read request body: %v", err)
	}
	var sent map[string]any
	if err := json.Unmarshal(payload, &sent); err != nil {
		t.Fatalf("request body was not json: %v", err)
	}
	if sent["model"] != "test-model" {
		t.Fatalf("expected model in payload, got %v", sent["model"])
	}
}

func TestCompleteWithoutAPIKey(t *testing.T) {
	c := NewClient(utils.LLMConfig{}, nil)

	if _, err := c.Complete(context.Background(), "hello"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteEmptyMessage(t *testing.T) {
	c := newTestClient(&fakeDoer{status: http.StatusOK, body: "{}"})

	if _, err := c.Complete(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	doer := &fakeDoer{
		status: http.StatusTooManyRequests,
		body:   `{"error":{"code":"rate_limited","message":"slow down"}}`,
	}
	c := newTestClient(doer)

	_, err := c.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestCompleteTimeout(t *testing.T) {
	doer := &fakeDoer{
		err: &url.Error{Op: "Post", URL: "https://example.test", Err: timeoutErr{}},
	}
	c := newTestClient(doer)

	_, err := c.Complete(context.Background(), "hello")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(&fakeDoer{status: http.StatusOK, body: `{"choices":[]}`})

	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error when response has no choices")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
