package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAIConfig holds the settings for the OpenAI backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	SearchModel string
	DraftModel  string
	HTTPClient  *http.Client
}

// OpenAIClient serves both capabilities: web search through the Responses
// API and JSON drafting through Chat Completions.
type OpenAIClient struct {
	client      openai.Client
	searchModel string
	draftModel  string
}

// NewOpenAI creates an OpenAI backend. The SDK's own retries are disabled so
// that every call is a single attempt.
func NewOpenAI(cfg OpenAIConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		searchModel: cfg.SearchModel,
		draftModel:  cfg.DraftModel,
	}
}

// Search sends the prompt with the web_search_preview tool enabled.
func (c *OpenAIClient) Search(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.searchModel),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		Tools: []responses.ToolUnionParam{
			responses.ToolParamOfWebSearchPreview(responses.WebSearchToolTypeWebSearchPreview),
		},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai search request failed: %w", err)
	}
	return responseText(resp), nil
}

// CompleteJSON sends the messages with the json_object response format.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	chat := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			chat = append(chat, openai.SystemMessage(m.Content))
		default:
			chat = append(chat, openai.UserMessage(m.Content))
		}
	}

	format := shared.NewResponseFormatJSONObjectParam()
	params := openai.ChatCompletionNewParams{
		Model:          shared.ChatModel(c.draftModel),
		Messages:       chat,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &format},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Name returns the backend name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// responseText prefers the aggregated output text and otherwise descends into
// the first content fragment of the first output item.
func responseText(resp *responses.Response) string {
	if resp == nil {
		return ""
	}
	if text := resp.OutputText(); text != "" {
		return text
	}
	if len(resp.Output) == 0 || len(resp.Output[0].Content) == 0 {
		return ""
	}
	return resp.Output[0].Content[0].Text
}
