package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements the Provider interface for Google's Gemini models
// and is the only provider that supports Google Search grounding.
type GeminiProvider struct {
	Model  string // e.g. "gemini-2.0-flash"
	APIKey string // falls back to GEMINI_API_KEY
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

func (p *GeminiProvider) Configured() bool {
	return p.apiKey() != ""
}

// GenerateResponse sends a generateContent request to the Gemini API using the official GenAI SDK.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error) {
	apiKey := apiKeyOption(options, p.apiKey())
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	model := p.Model
	if model == "" {
		model = defaultGeminiModel
	}
	model = modelOption(options, model)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}

	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	// The API rejects a JSON response MIME type combined with search tools,
	// so grounded calls rely on the prompt alone to request JSON.
	if wantsSearch(options) {
		config.Tools = []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	} else if wantsJSON(options) {
		config.ResponseMIMEType = "application/json"
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	return &Response{
		Text:      result.Text(),
		Model:     model,
		Grounding: groundingFromGemini(result),
	}, nil
}

// groundingFromGemini keeps every chunk in order, including ones without a web source,
// so citation indexes line up with the model's grounding list.
func groundingFromGemini(result *genai.GenerateContentResponse) []GroundingChunk {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	meta := result.Candidates[0].GroundingMetadata
	if meta == nil || len(meta.GroundingChunks) == 0 {
		return nil
	}
	chunks := make([]GroundingChunk, 0, len(meta.GroundingChunks))
	for _, chunk := range meta.GroundingChunks {
		var gc GroundingChunk
		if chunk != nil {
			if chunk.Web != nil {
				gc.Title = chunk.Web.Title
				gc.URI = chunk.Web.URI
			}
			if rc := chunk.RetrievedContext; rc != nil {
				if gc.Title == "" {
					gc.Title = rc.Title
				}
				if gc.URI == "" {
					gc.URI = rc.URI
				}
			}
		}
		chunks = append(chunks, gc)
	}
	return chunks
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
