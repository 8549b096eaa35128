// Package transport sends conversation history to the external chat backend
// and returns the assistant's reply. Failures are distinguishable by class:
// the backend being unreachable, answering with an error status, or
// answering with a payload that does not decode.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"OptimaChat/internal/conversation"
)

var (
	ErrUnavailable = errors.New("chat backend unreachable")
	ErrBadStatus   = errors.New("chat backend returned an error status")
	ErrBadPayload  = errors.New("chat backend returned a malformed payload")
	ErrEmptyReply  = errors.New("chat backend returned an empty reply")
)

// Turn is one history entry in the backend's role vocabulary.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sender abstracts the reply source so the orchestrator can swap in the
// offline transport when the backend is down.
type Sender interface {
	Send(ctx context.Context, history []conversation.Message) (string, error)
	Available(ctx context.Context) bool
}

// ChatRequest is the request body for the backend chat endpoint.
type ChatRequest struct {
	Messages []Turn `json:"messages"`
	Stream   bool   `json:"stream"`
	UseCache bool   `json:"use_cache"`
}

// ChatResponse is the backend reply envelope. The nested message form is
// canonical; the flat reply field is a legacy shape still accepted on read.
type ChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Reply string `json:"reply,omitempty"`
}

// Content returns the reply text regardless of envelope shape.
func (r ChatResponse) Content() string {
	if r.Message.Content != "" {
		return r.Message.Content
	}
	return r.Reply
}

const (
	probeTimeout = 2 * time.Second
	probeTTL     = 30 * time.Second
)

// Client talks to the external chat backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter

	probeMu sync.Mutex
	probeOK bool
	probeAt time.Time
}

// NewClient creates a backend client for baseURL.
func NewClient(baseURL string, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
	}
}

// Send posts the full history and returns the assistant reply content.
func (c *Client) Send(ctx context.Context, history []conversation.Message) (string, error) {
	turns := make([]Turn, len(history))
	for i, msg := range history {
		turns[i] = Turn{Role: msg.Role(), Content: msg.Text}
	}
	return c.SendTurns(ctx, turns, false)
}

// SendTurns posts an already role-converted history. The rich proxy route
// forwards client-supplied histories through this path.
func (c *Client) SendTurns(ctx context.Context, turns []Turn, useCache bool) (string, error) {
	ctx, span := c.tracer.Start(ctx, "backend_chat_call")
	defer span.End()

	start := time.Now()

	reqBody := ChatRequest{
		Messages: turns,
		Stream:   false,
		UseCache: useCache,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s - %s", ErrBadStatus, resp.Status, string(body))
	}

	var apiResp ChatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	duration := time.Since(start)
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}

	content := apiResp.Content()
	if content == "" {
		return "", fmt.Errorf("%w: %v", ErrBadPayload, ErrEmptyReply)
	}

	return content, nil
}

// Health proxies the backend health check, returning its body and status.
func (c *Client) Health(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return body, resp.StatusCode, nil
}

// Available probes the backend health endpoint with a short timeout and
// caches the verdict briefly. Advisory only: a stale positive just means a
// real Send will fail and fall back.
func (c *Client) Available(ctx context.Context) bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	if time.Since(c.probeAt) < probeTTL {
		return c.probeOK
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, status, err := c.Health(probeCtx)
	c.probeOK = err == nil && status >= 200 && status <= 299
	c.probeAt = time.Now()

	if !c.probeOK {
		c.logger.Warn("backend availability probe failed", "status", status, "error", err)
	}
	return c.probeOK
}
