// Package market fetches current revenue multiples from a search-grounded model
// behind a strict parse-with-one-retry contract.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/llm"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/metrics"
	"startup_valuation/pkg/core/prompt"
	"startup_valuation/pkg/core/utils"
	"startup_valuation/pkg/models"
)

// RetrySuffix is appended to the prompt for the single retry after a parse failure.
const RetrySuffix = "\n\nIMPORTANT: Return ONLY the JSON object, no other text."

const (
	fallbackTitle = "Source"
	fallbackURI   = "#"
)

// Result is a parsed multiple set plus the citations of the call that produced it.
type Result struct {
	Multiples models.MultipleSet
	Citations []models.Citation
	Attempts  int
}

// Fetcher is the contract the orchestrator depends on.
type Fetcher interface {
	FetchMultiples(ctx context.Context, sector, region, stage string) (*Result, error)
}

type payload struct {
	MultipleMid    *float64 `json:"multipleMid"`
	MultipleLow    *float64 `json:"multipleLow"`
	MultipleHigh   *float64 `json:"multipleHigh"`
	AsOf           string   `json:"asOf"`
	ShortRationale string   `json:"shortRationale"`
}

type Retriever struct {
	exec    agent.Executor
	prompts *prompt.Registry
	schema  *gojsonschema.Schema
	lenient bool
	now     func() time.Time
	log     logger.Logger
}

type Option func(*Retriever)

// WithLenientJSON lets the parser repair near-JSON (fences, trailing commas, Hjson) before giving up.
func WithLenientJSON(enabled bool) Option {
	return func(r *Retriever) { r.lenient = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(r *Retriever) { r.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(r *Retriever) { r.log = l }
}

func NewRetriever(exec agent.Executor, prompts *prompt.Registry, opts ...Option) *Retriever {
	r := &Retriever{
		exec:    exec,
		prompts: prompts,
		now:     time.Now,
		log:     logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if schema, err := prompts.Schema(prompt.MarketMultiplesSchema); err == nil {
		r.schema = schema
	} else {
		r.log.Warn("market multiples schema missing, using field checks only", map[string]interface{}{"error": err.Error()})
	}
	return r
}

// FetchMultiples asks the model for current multiples. A reply that does not parse
// gets exactly one retry with a stricter prompt; a second failure is
// apperr.ErrMarketDataUnavailable and no partial result is returned.
func (r *Retriever) FetchMultiples(ctx context.Context, sector, region, stage string) (*Result, error) {
	userPrompt, systemPrompt, err := r.prompts.Render(prompt.MarketMultiples, map[string]interface{}{
		"Sector": sector,
		"Region": region,
		"Stage":  stage,
		"Year":   r.now().Year(),
	})
	if err != nil {
		return nil, apperr.Internal("market prompt unavailable", err)
	}

	options := map[string]interface{}{llm.OptionGoogleSearch: true}
	log := r.log.With(map[string]interface{}{"sector": sector, "region": region, "stage": stage})

	resp, err := r.call(ctx, userPrompt, systemPrompt, options)
	if err != nil {
		return nil, err
	}
	multiples, parseErr := r.parse(resp.Text)
	if parseErr == nil {
		metrics.MarketDataFetches.WithLabelValues("first_attempt").Inc()
		return &Result{Multiples: multiples, Citations: BuildCitations(resp.Grounding), Attempts: 1}, nil
	}

	log.Warn("market multiples reply did not parse, retrying", map[string]interface{}{"error": parseErr.Error()})
	log.Debug("unparsed market reply", map[string]interface{}{"text": resp.Text})

	resp, err = r.call(ctx, userPrompt+RetrySuffix, systemPrompt, options)
	if err != nil {
		return nil, err
	}
	multiples, parseErr = r.parse(resp.Text)
	if parseErr != nil {
		metrics.MarketDataFetches.WithLabelValues("unavailable").Inc()
		log.Warn("market multiples retry did not parse", map[string]interface{}{"error": parseErr.Error()})
		return nil, apperr.MarketDataUnavailable(parseErr)
	}

	metrics.MarketDataFetches.WithLabelValues("retried").Inc()
	return &Result{Multiples: multiples, Citations: BuildCitations(resp.Grounding), Attempts: 2}, nil
}

func (r *Retriever) call(ctx context.Context, userPrompt, systemPrompt string, options map[string]interface{}) (*llm.Response, error) {
	resp, err := r.exec.Execute(ctx, agent.AgentMarketData, userPrompt, systemPrompt, options)
	if err != nil {
		if errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("market data call failed: %w", err)
	}
	if resp == nil {
		return &llm.Response{}, nil
	}
	return resp, nil
}

// parse accepts only a JSON object carrying a positive multipleMid.
func (r *Retriever) parse(text string) (models.MultipleSet, error) {
	doc := text
	var p payload
	if r.lenient {
		accepted, err := utils.SmartParse(text, &p)
		if err != nil {
			return models.MultipleSet{}, err
		}
		doc = accepted
	} else if err := json.Unmarshal([]byte(text), &p); err != nil {
		return models.MultipleSet{}, fmt.Errorf("reply is not a JSON object: %w", err)
	}

	if r.schema != nil {
		res, err := r.schema.Validate(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return models.MultipleSet{}, fmt.Errorf("schema validation failed: %w", err)
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return models.MultipleSet{}, fmt.Errorf("reply violates schema: %s", strings.Join(msgs, "; "))
		}
	}

	if p.MultipleMid == nil || *p.MultipleMid <= 0 {
		return models.MultipleSet{}, fmt.Errorf("multipleMid missing or not positive")
	}

	set := models.MultipleSet{
		Mid:       *p.MultipleMid,
		Low:       positiveOrNil(p.MultipleLow),
		High:      positiveOrNil(p.MultipleHigh),
		AsOf:      p.AsOf,
		Rationale: p.ShortRationale,
	}
	if set.AsOf == "" {
		set.AsOf = r.now().Format("2006-01")
	}
	return set, nil
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return models.Float(*v)
}

// BuildCitations maps grounding chunks to 1-based citations in input order.
// Missing titles become "Source" and missing URIs "#"; no chunks yields an empty slice.
func BuildCitations(chunks []llm.GroundingChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(chunks))
	for i, chunk := range chunks {
		c := models.Citation{Index: i + 1, Title: chunk.Title, URI: chunk.URI}
		if c.Title == "" {
			c.Title = fallbackTitle
		}
		if c.URI == "" {
			c.URI = fallbackURI
		}
		citations = append(citations, c)
	}
	return citations
}
