package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepSeekProvider_GenerateResponse(t *testing.T) {
	var got DeepSeekRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"multipleMid\":6}"}}]}`))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{APIKey: "test-key", BaseURL: srv.URL}
	resp, err := p.GenerateResponse(context.Background(), "prompt", "system", map[string]interface{}{
		OptionResponseFormat: JSONResponse(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"multipleMid":6}`, resp.Text)
	assert.Empty(t, resp.Grounding)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "prompt", got.Messages[1].Content)
}

func TestDeepSeekProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	p := &DeepSeekProvider{APIKey: "k", BaseURL: srv.URL}
	_, err := p.GenerateResponse(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

func TestQwenProvider_GenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"choices":[{"message":{"content":"- one\n- two"}}]}}`))
	}))
	defer srv.Close()

	p := &QwenProvider{APIKey: "k", BaseURL: srv.URL}
	resp, err := p.GenerateResponse(context.Background(), "p", "s", map[string]interface{}{OptionModel: "qwen-plus"})
	require.NoError(t, err)
	assert.Equal(t, "- one\n- two", resp.Text)
	assert.Equal(t, "qwen-plus", resp.Model)
}

func TestQwenProvider_APIErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"InvalidParameter","message":"nope"}`))
	}))
	defer srv.Close()

	p := &QwenProvider{APIKey: "k", BaseURL: srv.URL}
	_, err := p.GenerateResponse(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidParameter")
}

func TestProviders_Configured(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("DASHSCOPE_API_KEY", "")
	t.Setenv("QWEN_API_KEY", "")

	assert.False(t, (&GeminiProvider{}).Configured())
	assert.False(t, (&LegacyGeminiProvider{}).Configured())
	assert.False(t, (&ClaudeProvider{}).Configured())
	assert.False(t, (&DeepSeekProvider{}).Configured())
	assert.False(t, (&QwenProvider{}).Configured())

	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("QWEN_API_KEY", "q")
	assert.True(t, (&GeminiProvider{}).Configured())
	assert.True(t, (&LegacyGeminiProvider{}).Configured())
	assert.True(t, (&QwenProvider{}).Configured())
	assert.True(t, (&ClaudeProvider{APIKey: "a"}).Configured())
}

func TestGeminiProvider_MissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := (&GeminiProvider{}).GenerateResponse(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
