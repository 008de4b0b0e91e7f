package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

const deepSeekURL = "https://api.deepseek.com/chat/completions"

// DeepSeekProvider calls the OpenAI-compatible DeepSeek chat completions endpoint. No grounding.
type DeepSeekProvider struct {
	Model      string
	APIKey     string // falls back to DEEPSEEK_API_KEY
	BaseURL    string
	HTTPClient *http.Client
}

var _ Provider = (*DeepSeekProvider)(nil)

type DeepSeekRequest struct {
	Messages       []Message      `json:"messages"`
	Model          string         `json:"model"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat ResponseFormat `json:"response_format"`
	Stream         bool           `json:"stream"`
	Temperature    float64        `json:"temperature"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type DeepSeekResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv("DEEPSEEK_API_KEY")
}

func (p *DeepSeekProvider) Configured() bool {
	return p.apiKey() != ""
}

func (p *DeepSeekProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error) {
	apiKey := apiKeyOption(options, p.apiKey())
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY_MISSING: Please set DEEPSEEK_API_KEY env var")
	}

	model := p.Model
	if model == "" {
		model = "deepseek-chat"
	}
	model = modelOption(options, model)

	format := "text"
	if wantsJSON(options) {
		format = "json_object"
	}

	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Content: systemPrompt, Role: "system"})
	}
	messages = append(messages, Message{Content: prompt, Role: "user"})

	jsonBytes, err := json.Marshal(DeepSeekRequest{
		Messages:       messages,
		Model:          model,
		MaxTokens:      4096,
		ResponseFormat: ResponseFormat{Type: format},
		Temperature:    1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("DEEPSEEK_MARSHAL_ERROR: %v", err)
	}

	url := p.BaseURL
	if url == "" {
		url = deepSeekURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("DEEPSEEK_REQ_CREATE_ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DEEPSEEK_API_CALL_ERROR: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("DEEPSEEK_READ_BODY_ERROR: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DEEPSEEK_API_ERROR: status=%d found=%s", res.StatusCode, string(body))
	}

	var response DeepSeekResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("DEEPSEEK_UNMARSHAL_ERROR: %v", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("DEEPSEEK_NO_CHOICES: %s", string(body))
	}

	return &Response{Text: response.Choices[0].Message.Content, Model: model}, nil
}

func (p *DeepSeekProvider) AdaptInstructions(raw string) string {
	return raw
}
