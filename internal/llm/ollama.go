package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// defaultOllamaHost is used when no host is configured.
const defaultOllamaHost = "http://localhost:11434"

// OllamaConfig holds the settings for a local or remote Ollama server.
type OllamaConfig struct {
	Host       string
	Model      string
	HTTPClient *http.Client
}

// OllamaClient drafts through a local model. It has no web search, so it can
// only serve as a Completer.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama backend.
func NewOllama(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}
	host := cfg.Host
	if host == "" {
		host = defaultOllamaHost
	}

	baseURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if baseURL.Scheme == "http" {
		switch baseURL.Hostname() {
		case "localhost", "127.0.0.1", "::1":
		default:
			slog.Warn("ollama connection uses unencrypted HTTP to a remote host", "host", baseURL.Hostname())
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaClient{
		client: api.NewClient(baseURL, httpClient),
		model:  cfg.Model,
	}, nil
}

// CompleteJSON sends a non-streaming chat request in JSON format mode.
func (c *OllamaClient) CompleteJSON(ctx context.Context, messages []Message) (string, error) {
	chat := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		chat = append(chat, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: chat,
		Format:   json.RawMessage(`"json"`),
		Stream:   &stream,
	}

	var out strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat request failed: %w", err)
	}
	return out.String(), nil
}

// Name returns the backend name.
func (c *OllamaClient) Name() string {
	return "ollama"
}
