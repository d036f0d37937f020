package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/codecraft-ai/backend/internal/infrastructure/monitoring"
	"github.com/codecraft-ai/backend/internal/infrastructure/resilience"
	"github.com/codecraft-ai/backend/internal/shared/types"
)

// Defaults for the OpenRouter-backed setup.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "gpt-4o-mini"
)

// patchSystemPrompt is sent when a component already exists: the model must
// return the full component again, never a diff.
const patchSystemPrompt = `You are an expert React developer.
ALWAYS return a single, valid React function component named Component, and its CSS, and nothing else.
DO NOT return HTML, <html>, <body>, <head>, explanations, comments, or markdown.
Only output the code for the React component and the CSS, separated by a line with ONLY /* CSS */.
The output must start with: function Component() { ... }
If you are patching, always return the full, valid function component and CSS, not just a patch or snippet.

Current JSX:
%s

Current CSS:
%s`

// Config holds provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GenerateRequest is one turn of component generation.
type GenerateRequest struct {
	Prompt       string
	History      []types.ChatMessage
	ImageURL     string
	CurrentBody  string
	CurrentStyle string
}

// Client wraps the chat completion API.
type Client struct {
	api     openai.Client
	model   string
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
}

// New builds a client with retrying transport and a circuit breaker.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(rc.StandardClient()),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		breaker: resilience.New("ai-provider", resilience.Settings{
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures > 5
			},
		}),
	}
}

// GenerateComponent asks the model for a component. Failures come back as a
// commented error body rather than an error, so rejected turns and provider
// outages surface to the user through the same validation path.
func (c *Client) GenerateComponent(ctx context.Context, req GenerateRequest) string {
	content, err := c.complete(ctx, c.buildMessages(req))
	if err != nil {
		return fmt.Sprintf("// Error generating component: %s", err.Error())
	}
	return content
}

// WithMetrics attaches a metrics collector.
func (c *Client) WithMetrics(metrics *monitoring.Metrics) *Client {
	c.metrics = metrics
	return c
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	start := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.model),
			Messages: messages,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.ProviderCalls.WithLabelValues(status).Inc()
		c.metrics.ProviderLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (c *Client) buildMessages(req GenerateRequest) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion

	if req.CurrentBody != "" || req.CurrentStyle != "" {
		msgs = append(msgs, openai.SystemMessage(
			fmt.Sprintf(patchSystemPrompt, req.CurrentBody, req.CurrentStyle)))
	}

	for _, m := range req.History {
		if m.Role == types.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	if req.ImageURL != "" {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: req.ImageURL,
			}),
		}
		msgs = append(msgs, openai.UserMessage(parts))
	} else {
		msgs = append(msgs, openai.UserMessage(req.Prompt))
	}
	return msgs
}
