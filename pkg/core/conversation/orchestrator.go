// Package conversation sequences one valuation request: intents, market data,
// the range calculation and the narration, with the fallback replies for each
// failure.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"startup_valuation/pkg/core/amount"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/explain"
	"startup_valuation/pkg/core/intent"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/market"
	"startup_valuation/pkg/core/metrics"
	"startup_valuation/pkg/core/store"
	"startup_valuation/pkg/core/utils"
	"startup_valuation/pkg/core/valuation"
	"startup_valuation/pkg/models"
)

// Replies used when a chat turn cannot complete.
const (
	ReplyInvalidAmount     = "Please use a valid ARR format (e.g., 2Cr, 15L, 85k)"
	ReplyMarketUnavailable = "Unable to fetch fresh market data right now. Please try again."
	ReplyApology           = "Sorry, I encountered an error processing your request. Please try again."
)

// Chat turn outcomes, used for metrics and logs.
const (
	OutcomeOK                = "ok"
	OutcomeInvalidAmount     = "invalid_amount"
	OutcomeMarketUnavailable = "market_unavailable"
	OutcomeError             = "error"
)

const failedValuation = "Failed to generate valuation"

// QuickInput is a first valuation request. Revenue is ARR unless IsMRR is set.
type QuickInput struct {
	RequestID string
	Revenue   amount.Input
	IsMRR     bool
	Sector    string
	Region    string
	Currency  string
	Stage     string
}

// QuickResult is the first snapshot with its range, rationale bullets and sources.
type QuickResult struct {
	Snapshot           models.ValuationSnapshot `json:"snapshot"`
	Valuation          models.ValuationRange    `json:"valuation"`
	ExplanationBullets []string                 `json:"explanationBullets"`
	Citations          []models.Citation        `json:"citations"`
}

// ChatInput is one user message against the snapshot the client holds.
type ChatInput struct {
	RequestID string
	Message   string
	Snapshot  models.ValuationSnapshot
}

// ChatResult always carries a reply. Valuation is nil when the turn failed, in
// which case Snapshot is the one the turn started from.
type ChatResult struct {
	Reply     string                   `json:"reply"`
	ReplyHTML string                   `json:"replyHtml,omitempty"`
	Snapshot  models.ValuationSnapshot `json:"snapshot"`
	Valuation *models.ValuationRange   `json:"valuation"`
	Citations []models.Citation        `json:"citations,omitempty"`

	Outcome string   `json:"-"`
	Intents []string `json:"-"`
}

// Service runs quick valuations and chat turns.
type Service struct {
	market   market.Fetcher
	narrator explain.Narrator
	recorder store.Recorder
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder appends every completed valuation to an event log.
func WithRecorder(r store.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the service logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService builds a Service from a market data source and a narrator.
func NewService(fetcher market.Fetcher, narrator explain.Narrator, opts ...Option) *Service {
	s := &Service{
		market:   fetcher,
		narrator: narrator,
		log:      logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quick builds the first snapshot for a revenue figure and sector. Errors are
// apperr values: InvalidAmount, ServiceUnavailable, MarketDataUnavailable or Internal.
func (s *Service) Quick(ctx context.Context, in QuickInput) (*QuickResult, error) {
	log := s.log.With(map[string]interface{}{"request_id": in.RequestID, "sector": in.Sector})

	revenue, err := in.Revenue.Value()
	if err != nil {
		metrics.QuickValuations.WithLabelValues(OutcomeInvalidAmount).Inc()
		return nil, err
	}
	if in.IsMRR {
		revenue *= 12
	}

	fetched, err := s.market.FetchMultiples(ctx, in.Sector, in.Region, in.Stage)
	if err != nil {
		metrics.QuickValuations.WithLabelValues(OutcomeMarketUnavailable).Inc()
		log.WithError(err).Warn("quick valuation market data failed", nil)
		if errors.Is(err, apperr.ErrMarketDataUnavailable) || errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, apperr.Internal(failedValuation, err)
	}

	snapshot := models.ValuationSnapshot{
		Revenue:     revenue,
		Sector:      in.Sector,
		Region:      in.Region,
		Stage:       in.Stage,
		Currency:    in.Currency,
		MultipleSet: fetched.Multiples,
	}
	rng := valuation.ComputeSnapshot(snapshot)

	bullets, err := s.narrator.Bullets(ctx, snapshot, rng)
	if err != nil {
		metrics.QuickValuations.WithLabelValues(OutcomeError).Inc()
		log.WithError(err).Error("quick valuation explanation failed", nil)
		if errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, apperr.Internal(failedValuation, err)
	}

	metrics.QuickValuations.WithLabelValues(OutcomeOK).Inc()
	log.Info("quick valuation complete", map[string]interface{}{
		"revenue":        revenue,
		"multiple_mid":   snapshot.MultipleSet.Mid,
		"market_retried": fetched.Attempts > 1,
		"citations":      len(fetched.Citations),
	})
	s.record(ctx, store.Event{RequestID: in.RequestID, Kind: store.KindQuick, Snapshot: snapshot, Valuation: &rng})

	return &QuickResult{
		Snapshot:           snapshot,
		Valuation:          rng,
		ExplanationBullets: bullets,
		Citations:          fetched.Citations,
	}, nil
}

// Chat runs one conversational turn. It never returns an error: failures become
// a fallback reply carrying the snapshot the turn started from.
func (s *Service) Chat(ctx context.Context, in ChatInput) (result ChatResult) {
	original := in.Snapshot.Clone()
	log := s.log.With(map[string]interface{}{"request_id": in.RequestID})

	defer func() {
		if r := recover(); r != nil {
			log.Error("chat turn panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			result = fallback(ReplyApology, original, OutcomeError)
		}
		metrics.ChatTurns.WithLabelValues(result.Outcome).Inc()
	}()

	text := intent.Sanitize(in.Message)
	outcome, err := intent.Interpret(original, text)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidAmount) {
			log.Info("chat turn rejected amount", map[string]interface{}{"error": err.Error()})
			return fallback(ReplyInvalidAmount, original, OutcomeInvalidAmount)
		}
		log.WithError(err).Error("chat intent failed", nil)
		return fallback(ReplyApology, original, OutcomeError)
	}

	intents := make([]string, 0, len(outcome.Applied))
	for _, k := range outcome.Applied {
		intents = append(intents, k.String())
		metrics.IntentsApplied.WithLabelValues(k.String()).Inc()
	}
	log = log.With(map[string]interface{}{"intents": intents, "fresh_market_data": outcome.NeedsFreshMarketData})

	updated := outcome.Snapshot
	var citations []models.Citation
	if outcome.NeedsFreshMarketData {
		fetched, err := s.market.FetchMultiples(ctx, updated.Sector, updated.Region, updated.Stage)
		if err != nil {
			if errors.Is(err, apperr.ErrMarketDataUnavailable) {
				log.Warn("fresh market data unavailable", map[string]interface{}{"error": err.Error()})
				return withIntents(fallback(ReplyMarketUnavailable, original, OutcomeMarketUnavailable), intents)
			}
			log.WithError(err).Error("fresh market data call failed", nil)
			return withIntents(fallback(ReplyApology, original, OutcomeError), intents)
		}
		updated.MultipleSet = fetched.Multiples
		citations = fetched.Citations
		log = log.With(map[string]interface{}{"market_retried": fetched.Attempts > 1})
	}

	rng := valuation.ComputeSnapshot(updated)

	reply, err := s.narrator.Reply(ctx, text, updated, rng)
	if err != nil {
		log.WithError(err).Error("chat reply generation failed", nil)
		return withIntents(fallback(ReplyApology, original, OutcomeError), intents)
	}

	result = ChatResult{
		Reply:     reply,
		Snapshot:  updated,
		Valuation: &rng,
		Outcome:   OutcomeOK,
		Intents:   intents,
	}
	if len(citations) > 0 {
		result.Citations = citations
	}
	if html, err := utils.RenderMarkdown(reply); err == nil {
		result.ReplyHTML = html
	}

	log.Info("chat turn complete", map[string]interface{}{"valuation_mid": rng.Mid})
	s.record(ctx, store.Event{RequestID: in.RequestID, Kind: store.KindChat, Snapshot: updated, Valuation: &rng, Intents: intents})
	return result
}

func (s *Service) record(ctx context.Context, e store.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.log.WithError(err).Warn("failed to record valuation event", map[string]interface{}{"request_id": e.RequestID})
	}
}

func fallback(reply string, snapshot models.ValuationSnapshot, outcome string) ChatResult {
	return ChatResult{Reply: reply, Snapshot: snapshot, Outcome: outcome}
}

func withIntents(r ChatResult, intents []string) ChatResult {
	r.Intents = intents
	return r
}
