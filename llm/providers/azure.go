package providers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/c360studio/execoach/llm"
	"github.com/c360studio/execoach/model"
)

// defaultAzureAPIVersion is used when the endpoint does not set one.
const defaultAzureAPIVersion = "2024-02-15-preview"

// AzureProvider implements Azure OpenAI deployments. The endpoint's Model is
// the deployment name; the wire format is the OpenAI one.
type AzureProvider struct {
	OllamaProvider
}

func init() {
	llm.RegisterProvider(&AzureProvider{})
}

// Name returns the provider identifier.
func (a *AzureProvider) Name() string {
	return "azure"
}

// BuildURL constructs
// {endpoint}/openai/deployments/{deployment}/chat/completions?api-version=...
func (a *AzureProvider) BuildURL(ep *model.EndpointConfig) string {
	base := strings.TrimSuffix(ep.URL, "/")
	version := ep.APIVersion
	if version == "" {
		version = defaultAzureAPIVersion
	}
	return base + "/openai/deployments/" + url.PathEscape(ep.Model) +
		"/chat/completions?api-version=" + url.QueryEscape(version)
}

// SetHeaders adds the Azure api-key header.
func (a *AzureProvider) SetHeaders(req *http.Request, ep *model.EndpointConfig) {
	if ep.APIKey != "" {
		req.Header.Set("api-key", ep.APIKey)
	}
}
