// Package explain narrates a computed valuation: three bullets for a fresh
// valuation or a short reply for a chat turn.
package explain

import (
	"context"
	"fmt"
	"strings"

	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/amount"
	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/llm"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/prompt"
	"startup_valuation/pkg/core/utils"
	"startup_valuation/pkg/models"
)

// MaxBullets is the number of bullets requested and the cap on what is returned.
const MaxBullets = 3

const currencySymbol = "₹"

var bulletMarkers = []string{"•", "-", "*"}

// Narrator is the contract the orchestrator depends on.
type Narrator interface {
	Bullets(ctx context.Context, snapshot models.ValuationSnapshot, valuation models.ValuationRange) ([]string, error)
	Reply(ctx context.Context, message string, snapshot models.ValuationSnapshot, valuation models.ValuationRange) (string, error)
}

type Generator struct {
	exec    agent.Executor
	prompts *prompt.Registry
	log     logger.Logger
}

func NewGenerator(exec agent.Executor, prompts *prompt.Registry, log logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Generator{exec: exec, prompts: prompts, log: log}
}

// Bullets asks the explanation agent for up to three bullets. Fewer are returned
// as-is when the model writes fewer.
func (g *Generator) Bullets(ctx context.Context, snapshot models.ValuationSnapshot, valuation models.ValuationRange) ([]string, error) {
	ms := snapshot.MultipleSet
	userPrompt, systemPrompt, err := g.prompts.Render(prompt.ExplainBullets, map[string]interface{}{
		"Revenue":   amount.FormatINR(snapshot.Revenue),
		"Sector":    snapshot.Sector,
		"Region":    snapshot.Region,
		"Stage":     snapshot.Stage,
		"Multiple":  formatMultiple(ms.Mid),
		"Range":     formatMultiple(ms.LowOrDefault()) + "-" + formatMultiple(ms.HighOrDefault()),
		"Valuation": amount.FormatINR(valuation.Mid),
	})
	if err != nil {
		return nil, apperr.Internal("explanation prompt unavailable", err)
	}

	resp, err := g.exec.Execute(ctx, agent.AgentExplanation, userPrompt, systemPrompt, nil)
	if err != nil {
		return nil, fmt.Errorf("explanation call failed: %w", err)
	}
	text := textOf(resp)
	bullets := ExtractBullets(text)
	if len(bullets) < MaxBullets {
		g.log.Debug("explanation returned fewer bullets than requested", map[string]interface{}{
			"count": len(bullets),
			"text":  text,
		})
	}
	return bullets, nil
}

// Reply asks the chat agent for a short conversational reply about the new valuation.
func (g *Generator) Reply(ctx context.Context, message string, snapshot models.ValuationSnapshot, valuation models.ValuationRange) (string, error) {
	userPrompt, systemPrompt, err := g.prompts.Render(prompt.ChatReply, map[string]interface{}{
		"Message":        message,
		"Revenue":        amount.FormatINR(snapshot.Revenue),
		"Multiple":       formatMultiple(snapshot.MultipleSet.Mid),
		"Valuation":      amount.FormatINR(valuation.Mid),
		"CurrencySymbol": currencySymbol,
	})
	if err != nil {
		return "", apperr.Internal("reply prompt unavailable", err)
	}

	resp, err := g.exec.Execute(ctx, agent.AgentChatReply, userPrompt, systemPrompt, nil)
	if err != nil {
		return "", fmt.Errorf("reply call failed: %w", err)
	}
	return utils.CleanMarkdown(textOf(resp)), nil
}

// ExtractBullets keeps lines starting with •, - or *, strips the marker and
// returns at most MaxBullets of them. It never pads.
func ExtractBullets(text string) []string {
	bullets := make([]string, 0, MaxBullets)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range bulletMarkers {
			if strings.HasPrefix(line, marker) {
				bullets = append(bullets, strings.TrimSpace(strings.TrimPrefix(line, marker)))
				break
			}
		}
		if len(bullets) == MaxBullets {
			break
		}
	}
	return bullets
}

func textOf(resp *llm.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Text
}

func formatMultiple(m float64) string {
	return fmt.Sprintf("%.1f×", m)
}
