package market

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/llm"
	"startup_valuation/pkg/core/prompt"
	"startup_valuation/pkg/models"
)

// MockExecutor replays canned responses in order and records every call.
type MockExecutor struct {
	Responses []*llm.Response
	Errors    []error
	Prompts   []string
	Options   []map[string]interface{}
	Agents    []string
}

func (m *MockExecutor) Execute(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (*llm.Response, error) {
	i := len(m.Prompts)
	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, options)
	m.Agents = append(m.Agents, agentType)
	if i < len(m.Errors) && m.Errors[i] != nil {
		return nil, m.Errors[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return &llm.Response{Text: "out of responses"}, nil
}

func fixedClock() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }

func newTestRetriever(exec agent.Executor, opts ...Option) *Retriever {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return NewRetriever(exec, prompt.NewRegistry(), opts...)
}

func TestFetchMultiples_FirstAttempt(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{{
		Text: `{"multipleMid": 6, "multipleLow": 4.5, "multipleHigh": 8, "asOf": "2025-06", "shortRationale": "SaaS comps"}`,
		Grounding: []llm.GroundingChunk{
			{Title: "A", URI: "https://a.example"},
			{Title: "B", URI: "https://b.example"},
		},
	}}}

	res, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 6.0, res.Multiples.Mid)
	assert.Equal(t, models.Float(4.5), res.Multiples.Low)
	assert.Equal(t, models.Float(8), res.Multiples.High)
	assert.Equal(t, "2025-06", res.Multiples.AsOf)
	assert.Equal(t, "SaaS comps", res.Multiples.Rationale)
	assert.Equal(t, []models.Citation{
		{Index: 1, Title: "A", URI: "https://a.example"},
		{Index: 2, Title: "B", URI: "https://b.example"},
	}, res.Citations)

	require.Len(t, exec.Prompts, 1)
	assert.Equal(t, agent.AgentMarketData, exec.Agents[0])
	assert.Equal(t, true, exec.Options[0][llm.OptionGoogleSearch])
	assert.Contains(t, exec.Prompts[0], "SaaS companies in India at Seed stage in 2025")
}

func TestFetchMultiples_RetryResultIsUsed(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{
		{Text: "Here are the multiples: mid 5x", Grounding: []llm.GroundingChunk{{Title: "first", URI: "https://first"}}},
		{Text: `{"multipleMid": 9, "asOf": "2025-05"}`, Grounding: []llm.GroundingChunk{{Title: "second", URI: "https://second"}}},
	}}

	res, err := newTestRetriever(exec).FetchMultiples(context.Background(), "Fintech", "US", "Series A")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 9.0, res.Multiples.Mid)
	assert.Nil(t, res.Multiples.Low)
	assert.Nil(t, res.Multiples.High)
	assert.Equal(t, []models.Citation{{Index: 1, Title: "second", URI: "https://second"}}, res.Citations)

	require.Len(t, exec.Prompts, 2)
	assert.False(t, strings.HasSuffix(exec.Prompts[0], RetrySuffix))
	assert.Equal(t, exec.Prompts[0]+RetrySuffix, exec.Prompts[1])
}

func TestFetchMultiples_BothAttemptsFail(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{
		{Text: "not json"},
		{Text: "```json\n{\"multipleMid\": 5}\n```"},
	}}

	res, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrMarketDataUnavailable))
	assert.Len(t, exec.Prompts, 2, "exactly one retry")
}

func TestFetchMultiples_MissingMidCountsAsParseFailure(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{
		{Text: `{"multipleLow": 3, "multipleHigh": 5}`},
		{Text: `{"multipleMid": -2}`},
	}}

	_, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	assert.True(t, errors.Is(err, apperr.ErrMarketDataUnavailable))
	assert.Len(t, exec.Prompts, 2)
}

func TestFetchMultiples_LenientJSON(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{
		{Text: `{"multipleMid": 7, "asOf": "2025-04",}`},
	}}

	res, err := newTestRetriever(exec, WithLenientJSON(true)).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.Multiples.Mid)
	assert.Equal(t, 1, res.Attempts)
}

func TestFetchMultiples_DefaultsAsOfAndDropsNonPositiveBounds(t *testing.T) {
	exec := &MockExecutor{Responses: []*llm.Response{
		{Text: `{"multipleMid": 4, "multipleLow": 0, "multipleHigh": null}`},
	}}

	res, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	require.NoError(t, err)
	assert.Equal(t, "2025-07", res.Multiples.AsOf)
	assert.Nil(t, res.Multiples.Low)
	assert.Nil(t, res.Multiples.High)
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)
}

func TestFetchMultiples_ServiceUnavailableIsNotRetried(t *testing.T) {
	exec := &MockExecutor{Errors: []error{apperr.ServiceUnavailable(errors.New("no key"))}}

	_, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	assert.True(t, errors.Is(err, apperr.ErrServiceUnavailable))
	assert.Len(t, exec.Prompts, 1)
}

func TestFetchMultiples_CallErrorIsNotMarketUnavailable(t *testing.T) {
	boom := errors.New("connection reset")
	exec := &MockExecutor{Errors: []error{boom}}

	_, err := newTestRetriever(exec).FetchMultiples(context.Background(), "SaaS", "India", "Seed")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, apperr.ErrMarketDataUnavailable))
}

func TestBuildCitations(t *testing.T) {
	got := BuildCitations([]llm.GroundingChunk{
		{Title: "Inc42", URI: "https://inc42.com"},
		{Title: "", URI: ""},
		{Title: "Only title"},
	})
	assert.Equal(t, []models.Citation{
		{Index: 1, Title: "Inc42", URI: "https://inc42.com"},
		{Index: 2, Title: "Source", URI: "#"},
		{Index: 3, Title: "Only title", URI: "#"},
	}, got)

	empty := BuildCitations(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
