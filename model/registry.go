package model

import (
	"fmt"
	"slices"
	"sync"
)

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (openai, azure, ollama, anthropic, gemini).
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the model identifier sent to the provider. For Azure it is the
	// deployment name.
	Model string `json:"model" yaml:"model"`

	// APIVersion is required by Azure OpenAI.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`

	// APIKey authenticates against the provider.
	APIKey string `json:"-" yaml:"-"`

	// MaxTokens limits the completion length. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Registry maps capabilities to named endpoints.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]string
	endpoints    map[string]*EndpointConfig
	defaultName  string
}

// NewRegistry creates a registry where every capability without an explicit
// mapping resolves to defaultName.
func NewRegistry(defaultName string, endpoints map[string]*EndpointConfig) *Registry {
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{
		capabilities: make(map[Capability]string),
		endpoints:    endpoints,
		defaultName:  defaultName,
	}
}

// SetCapability routes cap to the named endpoint.
func (r *Registry) SetCapability(c Capability, endpoint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c] = endpoint
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = cfg
}

// Resolve returns the endpoint name for a capability.
func (r *Registry) Resolve(c Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.capabilities[c]; ok {
		return name
	}
	return r.defaultName
}

// GetEndpoint returns the endpoint configuration for a name, or nil.
func (r *Registry) GetEndpoint(name string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[name]
}

// EndpointFor resolves a capability straight to its endpoint configuration.
func (r *Registry) EndpointFor(c Capability) (*EndpointConfig, error) {
	name := r.Resolve(c)
	ep := r.GetEndpoint(name)
	if ep == nil {
		return nil, fmt.Errorf("no endpoint %q configured for capability %s", name, c)
	}
	return ep, nil
}

// ListEndpoints returns all configured endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
