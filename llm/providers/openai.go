package providers

import (
	"net/http"

	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/model"
)

// OpenAIProvider implements the OpenAI API, including OpenRouter-style gateways.
// It shares the request and response format with OllamaProvider.
type OpenAIProvider struct {
	OllamaProvider
}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL constructs the OpenAI API endpoint.
func (o *OpenAIProvider) BuildURL(ep *model.EndpointConfig) string {
	return chatCompletionsURL(ep.URL, "https://api.openai.com/v1")
}

// SetHeaders adds OpenAI authentication headers.
func (o *OpenAIProvider) SetHeaders(req *http.Request, ep *model.EndpointConfig) {
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}
}
