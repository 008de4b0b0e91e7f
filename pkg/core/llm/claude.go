package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

// ClaudeProvider generates text through the Anthropic Messages API. No grounding.
type ClaudeProvider struct {
	Model     string
	APIKey    string // falls back to ANTHROPIC_API_KEY
	MaxTokens int64
}

var _ Provider = (*ClaudeProvider)(nil)

func (p *ClaudeProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

func (p *ClaudeProvider) Configured() bool {
	return p.apiKey() != ""
}

func (p *ClaudeProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error) {
	apiKey := apiKeyOption(options, p.apiKey())
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model := p.Model
	if model == "" {
		model = defaultClaudeModel
	}
	model = modelOption(options, model)

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0.2),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude generation failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &Response{Text: text.String(), Model: model}, nil
}

func (p *ClaudeProvider) AdaptInstructions(raw string) string {
	return raw
}
