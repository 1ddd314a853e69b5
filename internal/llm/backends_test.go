package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/responses"
)

func TestOpenAISearch(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"resp_1","object":"response","created_at":0,"model":"gpt-4o","status":"completed",
			"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
			"content":[{"type":"output_text","text":"{\"matches\":[]}","annotations":[]}]}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", SearchModel: "gpt-4o", DraftModel: "gpt-4.1-mini"})
	text, err := c.Search(context.Background(), "find someone")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if text != `{"matches":[]}` {
		t.Errorf("text = %q", text)
	}
	if gotBody["model"] != "gpt-4o" {
		t.Errorf("model = %v", gotBody["model"])
	}
	tools, _ := gotBody["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools = %v", gotBody["tools"])
	}
	if tool, _ := tools[0].(map[string]any); tool["type"] != "web_search_preview" {
		t.Errorf("tool = %v", tools[0])
	}
}

func TestOpenAICompleteJSON(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4.1-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"subject\":\"Hi\"}"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", DraftModel: "gpt-4.1-mini"})
	text, err := c.CompleteJSON(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "write"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON() error: %v", err)
	}
	if text != `{"subject":"Hi"}` {
		t.Errorf("text = %q", text)
	}
	format, _ := gotBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v", gotBody["response_format"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", gotBody["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v", first["role"])
	}
}

func TestOpenAI_ErrorStatusIsSingleAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/", SearchModel: "gpt-4o"})
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestResponseText_FallsBackToFirstFragment(t *testing.T) {
	t.Parallel()

	resp := &responses.Response{
		Output: []responses.ResponseOutputItemUnion{{
			Type: "message",
			Content: []responses.ResponseOutputMessageContentUnion{
				{Type: "text", Text: "fragment"},
			},
		}},
	}
	if got := responseText(resp); got != "fragment" {
		t.Errorf("responseText() = %q, want fragment", got)
	}
	if got := responseText(&responses.Response{}); got != "" {
		t.Errorf("responseText(empty) = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
}

func TestGeminiSearch(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"found it"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, SearchModel: "gemini-test"})
	if err != nil {
		t.Fatalf("NewGemini() error: %v", err)
	}
	text, err := c.Search(context.Background(), "find")
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if text != "found it" {
		t.Errorf("text = %q", text)
	}
	tools, _ := gotBody["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools = %v", gotBody["tools"])
	}
	if tool, _ := tools[0].(map[string]any); tool["googleSearch"] == nil {
		t.Errorf("tool = %v, want googleSearch", tools[0])
	}
}

func TestGeminiCompleteJSON(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"body\":\"x\"}"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewGemini(context.Background(), GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, DraftModel: "gemini-draft"})
	if err != nil {
		t.Fatalf("NewGemini() error: %v", err)
	}
	text, err := c.CompleteJSON(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "write"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON() error: %v", err)
	}
	if text != `{"body":"x"}` {
		t.Errorf("text = %q", text)
	}
	if gotBody["systemInstruction"] == nil {
		t.Error("systemInstruction missing from request")
	}
	genConfig, _ := gotBody["generationConfig"].(map[string]any)
	if genConfig["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v", gotBody["generationConfig"])
	}
}

func TestOllamaCompleteJSON(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"llama3","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"to\":\"a@b.edu\"}"},"done":true}`+"\n")
	}))
	defer srv.Close()

	c, err := NewOllama(OllamaConfig{Host: srv.URL, Model: "llama3"})
	if err != nil {
		t.Fatalf("NewOllama() error: %v", err)
	}
	text, err := c.CompleteJSON(context.Background(), []Message{{Role: RoleUser, Content: "write"}})
	if err != nil {
		t.Fatalf("CompleteJSON() error: %v", err)
	}
	if text != `{"to":"a@b.edu"}` {
		t.Errorf("text = %q", text)
	}
	if gotBody["format"] != "json" {
		t.Errorf("format = %v, want json", gotBody["format"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
}

func TestNewOllama_RequiresModel(t *testing.T) {
	t.Parallel()

	if _, err := NewOllama(OllamaConfig{Host: "http://localhost:11434"}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestAnthropicCompleteJSON(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "ak-test" {
			t.Errorf("X-Api-Key = %q", got)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"{\"subject\":"},{"type":"text","text":"\"Hi\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	c := NewAnthropic(AnthropicConfig{APIKey: "ak-test", BaseURL: srv.URL + "/", Model: "claude-test"})
	text, err := c.CompleteJSON(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "write"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON() error: %v", err)
	}
	if text != `{"subject":"Hi"}` {
		t.Errorf("text = %q", text)
	}
	if gotBody["system"] == nil {
		t.Error("system prompt missing from request")
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("messages = %v, want only the user turn", gotBody["messages"])
	}
}

func TestBackendsImplementInterfaces(t *testing.T) {
	t.Parallel()

	var _ Searcher = (*OpenAIClient)(nil)
	var _ Searcher = (*GeminiClient)(nil)
	var _ Completer = (*OpenAIClient)(nil)
	var _ Completer = (*GeminiClient)(nil)
	var _ Completer = (*OllamaClient)(nil)
	var _ Completer = (*AnthropicClient)(nil)
}
