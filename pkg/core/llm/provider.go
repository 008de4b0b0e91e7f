package llm

import (
	"context"
)

// Option keys understood by providers.
const (
	OptionModel          = "model"
	OptionGoogleSearch   = "google_search"
	OptionResponseFormat = "response_format"
	OptionAPIKey         = "api_key"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
	// Configured reports whether the provider's credential is present.
	Configured() bool
}

// Response is the generated text plus any grounding sources the model attached.
type Response struct {
	Text      string
	Model     string
	Grounding []GroundingChunk
}

// GroundingChunk is one web source returned with a grounded answer. Either field may be empty.
type GroundingChunk struct {
	Title string
	URI   string
}

// JSONResponse is the options value requesting a JSON-only reply.
func JSONResponse() map[string]interface{} {
	return map[string]interface{}{"type": "json_object"}
}

func wantsJSON(options map[string]interface{}) bool {
	if val, ok := options[OptionResponseFormat].(map[string]interface{}); ok {
		return val["type"] == "json_object"
	}
	return false
}

func wantsSearch(options map[string]interface{}) bool {
	val, ok := options[OptionGoogleSearch].(bool)
	return ok && val
}

func modelOption(options map[string]interface{}, fallback string) string {
	if val, ok := options[OptionModel].(string); ok && val != "" {
		return val
	}
	return fallback
}

func apiKeyOption(options map[string]interface{}, fallback string) string {
	if val, ok := options[OptionAPIKey].(string); ok && val != "" {
		return val
	}
	return fallback
}
