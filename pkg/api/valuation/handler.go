package valuation

import (
	"context"
	"net/http"

	"startup_valuation/pkg/api/middleware"
	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/amount"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/conversation"
	"startup_valuation/pkg/core/logger"
)

const missingFields = "ARR/MRR and sector are required"

// Quicker runs a quick valuation.
type Quicker interface {
	Quick(ctx context.Context, in conversation.QuickInput) (*conversation.QuickResult, error)
}

// Readiness reports whether the model agents a route needs have credentials.
type Readiness interface {
	Configured(agentTypes ...string) bool
}

// QuickRequest accepts the amount as revenueOrMrr or arrOrMrr, string or number.
type QuickRequest struct {
	RevenueOrMRR amount.Input `json:"revenueOrMrr"`
	ArrOrMRR     amount.Input `json:"arrOrMrr"`
	IsMRR        bool         `json:"isMRR"`
	Sector       string       `json:"sector" validate:"required,max=100"`
	Region       string       `json:"region" validate:"max=100"`
	Currency     string       `json:"currency" validate:"max=10"`
	Stage        string       `json:"stage" validate:"max=100"`
}

func (q QuickRequest) amount() amount.Input {
	if !q.RevenueOrMRR.IsZero() {
		return q.RevenueOrMRR
	}
	return q.ArrOrMRR
}

type Handler struct {
	svc   Quicker
	ready Readiness
	log   logger.Logger
}

func NewHandler(svc Quicker, ready Readiness, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{svc: svc, ready: ready, log: log}
}

// HandleQuick serves POST /api/valuation/quick.
func (h *Handler) HandleQuick(w http.ResponseWriter, r *http.Request) {
	if !middleware.RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req QuickRequest
	if err := middleware.DecodeJSON(w, r, &req, missingFields); err != nil {
		middleware.WriteError(w, err)
		return
	}
	amt := req.amount()
	if amt.IsZero() {
		middleware.WriteError(w, apperr.InvalidRequest(missingFields, nil))
		return
	}
	if _, err := amt.Value(); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if !h.ready.Configured(agent.AgentMarketData, agent.AgentExplanation) {
		middleware.WriteError(w, apperr.ServiceUnavailable(nil))
		return
	}

	requestID := middleware.RequestIDFrom(r.Context())
	res, err := h.svc.Quick(r.Context(), conversation.QuickInput{
		RequestID: requestID,
		Revenue:   amt,
		IsMRR:     req.IsMRR,
		Sector:    req.Sector,
		Region:    req.Region,
		Currency:  req.Currency,
		Stage:     req.Stage,
	})
	if err != nil {
		h.log.WithError(err).Warn("quick valuation failed", map[string]interface{}{
			"request_id": requestID,
			"code":       string(apperr.CodeOf(err)),
		})
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
