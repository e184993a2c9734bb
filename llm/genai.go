package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/c360studio/execoach/model"
	"google.golang.org/genai"
)

// genaiPool lazily creates one genai.Client per base URL and API key.
type genaiPool struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
}

func newGenAIPool() *genaiPool {
	return &genaiPool{clients: make(map[string]*genai.Client)}
}

func (p *genaiPool) client(ctx context.Context, ep *model.EndpointConfig) (*genai.Client, error) {
	key := ep.URL + "|" + ep.APIKey

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  ep.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if ep.URL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: ep.URL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.clients[key] = c
	return c, nil
}

// complete maps a chat request onto GenerateContent. System messages become
// the system instruction; assistant messages use the model role.
func (p *genaiPool) complete(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	client, err := p.client(ctx, ep)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	result, err := client.Models.GenerateContent(ctx, ep.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	resp := &Response{
		Content: result.Text(),
		Model:   ep.Model,
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if len(result.Candidates) > 0 {
		resp.FinishReason = string(result.Candidates[0].FinishReason)
	}
	if u := result.UsageMetadata; u != nil {
		resp.Usage = TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return resp, nil
}
