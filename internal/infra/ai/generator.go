package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Anthropic's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.anthropic.com/v1/"

const DefaultModel = "claude-sonnet-4-5"

var (
	ErrNotConfigured = errors.New("ai api key is not configured")
	ErrEmptyBrief    = errors.New("brief is required")
	ErrEmptyResponse = errors.New("ai returned no content")
)

type Brief struct {
	Title    string `json:"title"`
	Venue    string `json:"venue"`
	Date     string `json:"date"`
	Audience string `json:"audience"`
	Notes    string `json:"notes"`
	Tone     string `json:"tone"`
}

func (b Brief) empty() bool {
	return strings.TrimSpace(b.Title) == "" && strings.TrimSpace(b.Notes) == ""
}

type Generator struct {
	client *openai.Client
	model  string
	policy *bluemonday.Policy
}

// NewGenerator returns nil when apiKey is empty; the nil Generator answers
// every call with ErrNotConfigured.
func NewGenerator(apiKey, baseURL, model string) *Generator {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		policy: bluemonday.UGCPolicy(),
	}
}

const systemPrompt = "You write copy for event organizers in Ghana. " +
	"Answer with the requested text only, in plain paragraphs or simple HTML " +
	"(<p>, <strong>, <em>, <ul>, <li>). No preamble."

func (g *Generator) EventDescription(ctx context.Context, b Brief) (string, error) {
	return g.generate(ctx, b, "Write an engaging event description of at most 180 words.")
}

func (g *Generator) Announcement(ctx context.Context, b Brief) (string, error) {
	return g.generate(ctx, b, "Write a short announcement email body inviting people to this event, at most 120 words.")
}

func (g *Generator) generate(ctx context.Context, b Brief, task string) (string, error) {
	if g == nil || g.client == nil {
		return "", ErrNotConfigured
	}
	if b.empty() {
		return "", ErrEmptyBrief
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: 600,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: task + "\n\n" + b.prompt()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	out := strings.TrimSpace(g.policy.Sanitize(resp.Choices[0].Message.Content))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func (b Brief) prompt() string {
	var sb strings.Builder
	line := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", k, v)
		}
	}
	line("Title", b.Title)
	line("Venue", b.Venue)
	line("Date", b.Date)
	line("Audience", b.Audience)
	line("Tone", b.Tone)
	line("Notes", b.Notes)
	return sb.String()
}
