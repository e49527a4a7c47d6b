// Package gemini provides an LLM provider backed by the Google Gemini API
// through the generative-ai-go SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
)

// DefaultModel is used when New receives an empty model name.
const DefaultModel = "gemini-1.5-flash"

// Provider implements llm.Provider using a Gemini client.
type Provider struct {
	client *genai.Client
	model  string
}

var _ llm.Provider = (*Provider)(nil)

type config struct {
	endpoint string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithEndpoint overrides the API endpoint (useful for regional or proxy
// deployments).
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// New constructs a Gemini provider. The returned provider owns a client
// that must be released with [Provider.Close].
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if cfg.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.endpoint))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Complete implements llm.Provider. The conversation is flattened into a
// single prompt; assistant turns are prefixed so the model can tell them
// apart.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := p.client.GenerativeModel(p.model)
	applySampling(model, req)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	}

	prompt := buildPrompt(req.Messages)
	if prompt == "" {
		return nil, fmt.Errorf("gemini: empty prompt")
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := textOf(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}

	out := &llm.CompletionResponse{Content: text, FinishReason: finishReason(resp)}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// CountTokens implements llm.Provider with the shared character heuristic.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	return llm.EstimateMessages(messages), nil
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return modelCapabilities(p.model)
}

func applySampling(model *genai.GenerativeModel, req llm.CompletionRequest) {
	if req.Temperature != 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.TopP != 0 {
		model.SetTopP(float32(req.TopP))
	}
	if req.TopK > 0 {
		model.SetTopK(int32(req.TopK))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
}

// buildPrompt joins messages into one text prompt. System messages are kept
// verbatim, assistant messages are labelled "DM:" and user messages are
// passed as-is.
func buildPrompt(messages []llm.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if m.Role == llm.RoleAssistant {
			b.WriteString("DM: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

// textOf concatenates the text parts of the first candidate.
func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	case genai.FinishReasonSafety:
		return "safety"
	case genai.FinishReasonRecitation:
		return "recitation"
	default:
		return ""
	}
}

func modelCapabilities(model string) llm.ModelCapabilities {
	caps := llm.ModelCapabilities{
		ContextWindow:   1_048_576,
		MaxOutputTokens: 8_192,
	}
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gemini-1.5-pro"):
		caps.ContextWindow = 2_097_152
	case strings.HasPrefix(lower, "gemini-2.5"):
		caps.MaxOutputTokens = 65_536
	case strings.HasPrefix(lower, "gemini-1.0"), lower == "gemini-pro":
		caps.ContextWindow = 32_760
		caps.MaxOutputTokens = 2_048
	}
	return caps
}
