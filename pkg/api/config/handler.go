package config

import (
	"net/http"

	"startup_valuation/pkg/api/middleware"
	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/apperr"
)

type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider" validate:"required"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

// ProviderRegistry is the part of agent.Manager these endpoints use.
type ProviderRegistry interface {
	GetActiveProvider() string
	Available() []string
	SetGlobalProvider(name string) error
	Configured(agentTypes ...string) bool
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr ProviderRegistry
}

func NewHandler(agentMgr ProviderRegistry) *Handler {
	return &Handler{AgentMgr: agentMgr}
}

// HandleConfig serves GET /api/config.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if !middleware.RequireMethod(w, r, http.MethodGet) {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.Available(),
	})
}

// HandleSwitch serves POST /api/config/switch.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	if !middleware.RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SwitchRequest
	if err := middleware.DecodeJSON(w, r, &req, "provider is required"); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		middleware.WriteError(w, apperr.InvalidRequest(err.Error(), err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.Available(),
	})
}

// HandleHealth serves GET /healthz. It reports whether the routed providers
// have credentials but stays 200 either way.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Provider:   h.AgentMgr.GetActiveProvider(),
		Configured: h.AgentMgr.Configured(agent.AgentMarketData, agent.AgentExplanation, agent.AgentChatReply),
	})
}
