package llm

import (
	"net/http"
	"slices"
	"sync"

	"github.com/c360studio/execoach/model"
)

// ProviderGemini is served by the genai SDK instead of a registered Provider.
const ProviderGemini = "gemini"

// Provider defines the interface for HTTP LLM provider implementations.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "azure").
	Name() string

	// BuildURL constructs the full API endpoint URL.
	BuildURL(ep *model.EndpointConfig) string

	// SetHeaders adds provider-specific headers, including authentication.
	SetHeaders(req *http.Request, ep *model.EndpointConfig)

	// BuildRequestBody creates the JSON request body for the provider.
	// temperature is nil to use provider default, or a pointer to explicit value.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the response from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names plus gemini, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry)+1)
	for name := range providerRegistry {
		names = append(names, name)
	}
	names = append(names, ProviderGemini)
	slices.Sort(names)
	return names
}
