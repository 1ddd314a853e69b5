// Package llm defines the two model capabilities the agent relies on, a
// search-augmented text call and a strict-JSON chat call, together with the
// backends that provide them.
package llm

import "context"

// Role is the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry of an ordered chat request.
type Message struct {
	Role    Role
	Content string
}

// Searcher runs a free-text prompt with web search enabled and returns the
// model's final text. No structure is guaranteed.
type Searcher interface {
	Search(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Completer runs a chat request in JSON response mode and returns the raw
// content of the reply.
type Completer interface {
	CompleteJSON(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// splitSystem separates system messages from the conversation, joining the
// system texts with blank lines. Backends with a dedicated system field use it.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
