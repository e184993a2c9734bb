// Package providers implements LLM provider adapters.
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/model"
)

const (
	anthropicVersion    = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicMaxTokens  = 4096
	anthropicTextBlock  = "text"
	anthropicErrorReply = "error"
)

// AnthropicProvider speaks the Anthropic messages API. The coach sends one
// system prompt and one user turn, so only text blocks are handled.
type AnthropicProvider struct{}

func init() {
	llm.RegisterProvider(&AnthropicProvider{})
}

// Name returns the provider identifier.
func (a *AnthropicProvider) Name() string {
	return "anthropic"
}

// BuildURL returns the messages endpoint under ep.URL or the public API.
func (a *AnthropicProvider) BuildURL(ep *model.EndpointConfig) string {
	return baseURL(ep.URL, anthropicBaseURL) + "/v1/messages"
}

// SetHeaders sets the API key and the pinned API version.
func (a *AnthropicProvider) SetHeaders(req *http.Request, ep *model.EndpointConfig) {
	if ep.APIKey != "" {
		req.Header.Set("x-api-key", ep.APIKey)
	}
	req.Header.Set("anthropic-version", anthropicVersion)
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// splitSystem lifts system messages into the top-level system field, which
// the messages API requires. Several system messages are joined in order.
func splitSystem(messages []llm.Message) (string, []anthropicMessage) {
	var system []string
	turns := make([]anthropicMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}
	return strings.Join(system, "\n\n"), turns
}

// BuildRequestBody encodes a messages request. max_tokens is mandatory for
// this API, so a zero value falls back to anthropicMaxTokens.
func (a *AnthropicProvider) BuildRequestBody(modelName string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	system, turns := splitSystem(messages)
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	return json.Marshal(anthropicRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Messages:    turns,
		System:      system,
		Temperature: temperature,
	})
}

type anthropicResponse struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ParseResponse concatenates the text blocks of a messages reply.
func (a *AnthropicProvider) ParseResponse(body []byte, _ string) (*llm.Response, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}
	if resp.Type == anthropicErrorReply && resp.Error != nil {
		return nil, fmt.Errorf("anthropic %s: %s", resp.Error.Type, resp.Error.Message)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropicTextBlock {
			text.WriteString(block.Text)
		}
	}

	return &llm.Response{
		Content:      text.String(),
		Model:        resp.Model,
		Usage:        tokenUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		FinishReason: resp.StopReason,
	}, nil
}
