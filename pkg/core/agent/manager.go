package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/llm"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/metrics"
)

// Agent types routed by the manager.
const (
	AgentMarketData  = "market_data"
	AgentExplanation = "explanation"
	AgentChatReply   = "chat_reply"
)

const defaultProvider = "gemini"

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`    // Optional model override
	Description string `yaml:"description"`
}

// Executor is what the valuation core needs from the manager.
type Executor interface {
	Execute(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (*llm.Response, error)
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
	limiter   *rate.Limiter
	timeout   time.Duration
	log       logger.Logger
}

type Option func(*Manager)

// WithProvider registers or replaces a provider by name.
func WithProvider(name string, p llm.Provider) Option {
	return func(m *Manager) { m.providers[name] = p }
}

// WithCallRate throttles outbound model calls across all requests. rps <= 0 disables it.
func WithCallRate(rps float64) Option {
	return func(m *Manager) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(config Config, opts ...Option) *Manager {
	m := &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":        &llm.GeminiProvider{},
			"gemini-legacy": &llm.LegacyGeminiProvider{},
			"claude":        &llm.ClaudeProvider{},
			"deepseek":      &llm.DeepSeekProvider{},
			"qwen":          &llm.QwenProvider{},
		},
		log: logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.config.ActiveProvider == "" {
		m.config.ActiveProvider = defaultProvider
	}
	return m
}

func (m *Manager) providerName(agentType string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providerNameLocked(agentType)
}

func (m *Manager) providerNameLocked(agentType string) string {
	// 1. Agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if _, ok := m.providers[agentConfig.Provider]; ok {
			return agentConfig.Provider
		}
	}

	// 2. Global active provider
	if _, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider
	}

	// 3. Fallback
	return defaultProvider
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[m.providerNameLocked(agentType)]
}

// GetProviderByName retrieves a provider instance by its registered name.
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

// Configured reports whether every listed agent type resolves to a provider with a credential.
func (m *Manager) Configured(agentTypes ...string) bool {
	for _, agentType := range agentTypes {
		p := m.GetProvider(agentType)
		if p == nil || !p.Configured() {
			return false
		}
	}
	return true
}

// Execute adapts instructions for the routed provider and performs one model call.
// A provider without a credential yields apperr.ErrServiceUnavailable.
func (m *Manager) Execute(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (*llm.Response, error) {
	name := m.providerName(agentType)
	provider := m.GetProviderByName(name)
	if provider == nil || !provider.Configured() {
		return nil, apperr.ServiceUnavailable(fmt.Errorf("provider %q has no credential", name))
	}

	opts := make(map[string]interface{}, len(options)+1)
	for k, v := range options {
		opts[k] = v
	}
	m.mu.RLock()
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Model != "" {
		if _, set := opts[llm.OptionModel]; !set {
			opts[llm.OptionModel] = agentConfig.Model
		}
	}
	m.mu.RUnlock()

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("model call throttled: %w", err)
		}
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	m.log.Debug("executing prompt", map[string]interface{}{
		"agent":    agentType,
		"provider": name,
	})

	start := time.Now()
	resp, err := provider.GenerateResponse(ctx, prompt, provider.AdaptInstructions(systemPrompt), opts)
	metrics.ModelCallDuration.WithLabelValues(agentType, name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelCalls.WithLabelValues(agentType, name, "error").Inc()
		return nil, err
	}
	metrics.ModelCalls.WithLabelValues(agentType, name, "ok").Inc()
	return resp, nil
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	m.log.Info("global provider switched", map[string]interface{}{"provider": newProvider})
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names in sorted order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
