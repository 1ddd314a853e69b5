package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiConfig holds the settings for the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	SearchModel string
	DraftModel  string
	HTTPClient  *http.Client
}

// GeminiClient serves web search through Google Search grounding and JSON
// drafting through the application/json response type.
type GeminiClient struct {
	client      *genai.Client
	searchModel string
	draftModel  string
}

// NewGemini creates a Gemini API backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		searchModel: cfg.SearchModel,
		draftModel:  cfg.DraftModel,
	}, nil
}

// Search sends the prompt with the GoogleSearch tool enabled.
func (c *GeminiClient) Search(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.searchModel, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini search request failed: %w", err)
	}
	return resp.Text(), nil
}

// CompleteJSON sends the conversation with system messages moved into the
// system instruction.
func (c *GeminiClient) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	system, rest := splitSystem(messages)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.draftModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion request failed: %w", err)
	}
	return resp.Text(), nil
}

// Name returns the backend name.
func (c *GeminiClient) Name() string {
	return "gemini"
}
