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

const qwenURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// QwenProvider calls the native DashScope text-generation API. No grounding.
type QwenProvider struct {
	Model      string
	APIKey     string // falls back to DASHSCOPE_API_KEY, then QWEN_API_KEY
	BaseURL    string
	HTTPClient *http.Client
}

var _ Provider = (*QwenProvider)(nil)

func (p *QwenProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if key := os.Getenv("DASHSCOPE_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("QWEN_API_KEY")
}

func (p *QwenProvider) Configured() bool {
	return p.apiKey() != ""
}

func (p *QwenProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (*Response, error) {
	apiKey := apiKeyOption(options, p.apiKey())
	if apiKey == "" {
		return nil, fmt.Errorf("QWEN_API_KEY_MISSING: Please set DASHSCOPE_API_KEY or QWEN_API_KEY")
	}

	model := p.Model
	if model == "" {
		model = "qwen-max"
	}
	model = modelOption(options, model)

	messages := []map[string]string{}
	if systemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	jsonBody, err := json.Marshal(map[string]interface{}{
		"model": model,
		"input": map[string]interface{}{
			"messages": messages,
		},
		"parameters": map[string]interface{}{
			"result_format": "message",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal qwen request: %w", err)
	}

	url := p.BaseURL
	if url == "" {
		url = qwenURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qwen api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qwen api returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Output struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			// Some DashScope endpoints return 'text' directly in output
			Text string `json:"text"`
		} `json:"output"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode qwen response: %w", err)
	}
	if result.Code != "" {
		return nil, fmt.Errorf("qwen api error: %s - %s", result.Code, result.Message)
	}

	if len(result.Output.Choices) > 0 {
		return &Response{Text: result.Output.Choices[0].Message.Content, Model: model}, nil
	}
	if result.Output.Text != "" {
		return &Response{Text: result.Output.Text, Model: model}, nil
	}
	return nil, fmt.Errorf("empty response from qwen api")
}

func (p *QwenProvider) AdaptInstructions(raw string) string {
	return raw
}
