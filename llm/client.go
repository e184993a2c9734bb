// Package llm provides a provider-agnostic LLM client. It resolves a
// capability to an endpoint through the model.Registry, performs a single
// completion call and records it in the optional call log.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/execoach/model"
	"github.com/google/uuid"
)

// maxResponseSize limits the LLM response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Completer is the contract the orchestrator depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CallObserver receives timing and outcome for every model call.
type CallObserver interface {
	ObserveModelCall(provider, outcome string, d time.Duration)
}

// Client is a provider-agnostic LLM client.
type Client struct {
	registry   *model.Registry
	httpClient *http.Client
	logger     *slog.Logger
	observer   CallObserver
	genai      *genaiPool

	// callStore optionally persists LLM calls. If nil, call recording is disabled.
	callStore *CallStore
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines an LLM completion request.
type Request struct {
	// Capability selects the endpoint ("planning", "reviewing").
	// Empty defaults to planning.
	Capability string

	// Messages is the chat history to send to the LLM.
	Messages []Message

	// Temperature controls randomness. nil uses endpoint default, 0 is deterministic.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint setting.
	MaxTokens int
}

// TokenUsage represents token consumption details for an LLM call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the LLM completion result.
type Response struct {
	// RequestID uniquely identifies this LLM call in the call log.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the actual model that was used.
	Model string

	// Usage contains detailed token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithCallStore enables the call log.
func WithCallStore(store *CallStore) ClientOption {
	return func(client *Client) {
		client.callStore = store
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o CallObserver) ClientOption {
	return func(client *Client) {
		client.observer = o
	}
}

// NewClient creates a new LLM client with the given model registry.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry: registry,
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for LLM responses
		},
		logger: slog.Default(),
		genai:  newGenAIPool(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete sends one completion request. Failures are returned as-is; there
// is no retry and no fallback endpoint.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	capVal := model.CapabilityPlanning
	if req.Capability != "" {
		capVal = model.ParseCapability(req.Capability)
		if capVal == "" {
			return nil, fmt.Errorf("unknown capability %q", req.Capability)
		}
	}

	ep, err := c.registry.EndpointFor(capVal)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	startedAt := time.Now()
	trace := GetTraceContext(ctx)

	if req.MaxTokens == 0 {
		req.MaxTokens = ep.MaxTokens
	}

	var resp *Response
	if ep.Provider == ProviderGemini {
		resp, err = c.genai.complete(ctx, ep, req)
	} else {
		resp, err = c.doRequest(ctx, ep, req)
	}
	duration := time.Since(startedAt)

	if c.observer != nil {
		c.observer.ObserveModelCall(ep.Provider, Outcome(err), duration)
	}

	record := &CallRecord{
		RequestID:   requestID,
		Operation:   trace.Operation,
		WeekID:      trace.WeekID,
		Capability:  capVal.String(),
		Model:       ep.Model,
		Provider:    ep.Provider,
		Messages:    req.Messages,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		DurationMs:  duration.Milliseconds(),
	}

	if err != nil {
		record.Error = err.Error()
		c.recordCall(ctx, record)
		c.logger.Warn("LLM call failed",
			"request_id", requestID,
			"provider", ep.Provider,
			"model", ep.Model,
			"duration", duration,
			"error", err)
		return nil, err
	}

	resp.RequestID = requestID
	if resp.Model != "" {
		record.Model = resp.Model
	}
	record.Response = resp.Content
	record.PromptTokens = resp.Usage.PromptTokens
	record.CompletionTokens = resp.Usage.CompletionTokens
	record.TotalTokens = resp.Usage.TotalTokens
	record.FinishReason = resp.FinishReason
	c.recordCall(ctx, record)

	c.logger.Debug("LLM call completed",
		"request_id", requestID,
		"provider", ep.Provider,
		"model", record.Model,
		"tokens", resp.Usage.TotalTokens,
		"duration", duration)

	return resp, nil
}

// recordCall stores an LLM call record if the call store is configured.
// Failures are logged but don't affect the LLM call itself.
func (c *Client) recordCall(ctx context.Context, record *CallRecord) {
	if c.callStore == nil {
		return
	}

	// The call may have failed because ctx was cancelled; the record should
	// still land.
	if err := c.callStore.Store(context.WithoutCancel(ctx), record); err != nil {
		c.logger.Warn("Failed to record LLM call",
			"request_id", record.RequestID,
			"capability", record.Capability,
			"error", err)
	}
}

// doRequest executes a single HTTP request to the LLM endpoint.
func (c *Client) doRequest(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown provider: %s", ep.Provider)
	}

	url := provider.BuildURL(ep)

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}

	c.logger.Debug("Sending LLM request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, ep)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	// Read response body with size limit to prevent memory exhaustion
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, newAPIError(httpResp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// Outcome classifies an error for metrics labels.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	}
	return "error"
}
