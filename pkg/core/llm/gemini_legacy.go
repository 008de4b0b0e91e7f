package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LegacyGeminiProvider talks to Gemini through the older generative-ai-go client.
// That client cannot request search grounding, so Grounding is always empty.
type LegacyGeminiProvider struct {
	Model  string
	APIKey string
}

var _ Provider = (*LegacyGeminiProvider)(nil)

func (p *LegacyGeminiProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

func (p *LegacyGeminiProvider) Configured() bool {
	return p.apiKey() != ""
}

func (p *LegacyGeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error) {
	apiKey := apiKeyOption(options, p.apiKey())
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}
	defer client.Close()

	modelName := p.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	modelName = modelOption(options, modelName)

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if wantsJSON(options) {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return &Response{Text: sb.String(), Model: modelName}, nil
}

func (p *LegacyGeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
