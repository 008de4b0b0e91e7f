package chat

import (
	"context"
	"net/http"

	"startup_valuation/pkg/api/middleware"
	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/conversation"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/models"
)

const missingFields = "Message and snapshot are required"

// Chatter runs one conversational turn.
type Chatter interface {
	Chat(ctx context.Context, in conversation.ChatInput) conversation.ChatResult
}

type Readiness interface {
	Configured(agentTypes ...string) bool
}

type Request struct {
	Message  string                    `json:"message" validate:"required"`
	Snapshot *models.ValuationSnapshot `json:"snapshot" validate:"required"`
}

type Handler struct {
	svc   Chatter
	ready Readiness
	log   logger.Logger
}

func NewHandler(svc Chatter, ready Readiness, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{svc: svc, ready: ready, log: log}
}

// HandleChat serves POST /api/chat. Failures inside the turn come back as a
// 200 with a fallback reply and a null valuation.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !middleware.RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req Request
	if err := middleware.DecodeJSON(w, r, &req, missingFields); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if !h.ready.Configured(agent.AgentChatReply, agent.AgentMarketData) {
		middleware.WriteError(w, apperr.ServiceUnavailable(nil))
		return
	}

	res := h.svc.Chat(r.Context(), conversation.ChatInput{
		RequestID: middleware.RequestIDFrom(r.Context()),
		Message:   req.Message,
		Snapshot:  *req.Snapshot,
	})
	middleware.WriteJSON(w, http.StatusOK, res)
}
