package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

const namingPrompt = `Based on this user request, generate a short, descriptive session name (max 50 characters) that captures the main component or feature being created. Only return the name, nothing else.

User request: %q

Examples:
- "Login Form" (for login components)
- "Navigation Bar" (for navigation components)
- "Product Card" (for product display components)
- "Contact Form" (for contact forms)
- "Dashboard Layout" (for dashboard components)

Session name:`

const maxNameLength = 50

// GenerateSessionName derives a session name from the first user message.
// The model gets the first shot; if it returns nothing usable, key words
// from the request are promoted to a name instead.
func (c *Client) GenerateSessionName(ctx context.Context, history []types.ChatMessage) string {
	first := firstUserMessage(history)
	if first == "" {
		return types.DefaultSessionName
	}

	name, err := c.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(fmt.Sprintf(namingPrompt, first)),
	})
	if err != nil {
		return fallbackName(first)
	}

	name = strings.Trim(strings.TrimSpace(name), `"'`)
	name = strings.TrimSpace(name)
	// Truncate on characters, not bytes, so a multi-byte rune is never split.
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength-3]) + "..."
	}

	if name == "" || name == "Session name:" || len(name) < 2 || strings.HasPrefix(name, "//") {
		return fallbackName(first)
	}
	return name
}

func firstUserMessage(history []types.ChatMessage) string {
	for _, m := range history {
		if m.Role == types.RoleUser {
			return m.Content
		}
	}
	return ""
}

// fallbackName builds a name from the first few substantive words of the
// request.
func fallbackName(request string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '\t', r == '\n':
			return ' '
		}
		return -1
	}, strings.ToLower(request))

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 3 {
			words = append(words, strings.ToUpper(w[:1])+w[1:])
		}
		if len(words) == 3 {
			break
		}
	}

	if len(words) == 0 {
		return types.DefaultSessionName
	}
	return strings.Join(words, " ") + " Component"
}
