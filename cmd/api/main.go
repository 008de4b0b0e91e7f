package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"startup_valuation/pkg/api/chat"
	apiconfig "startup_valuation/pkg/api/config"
	"startup_valuation/pkg/api/middleware"
	"startup_valuation/pkg/api/valuation"
	"startup_valuation/pkg/core/agent"
	"startup_valuation/pkg/core/config"
	"startup_valuation/pkg/core/conversation"
	"startup_valuation/pkg/core/explain"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/market"
	"startup_valuation/pkg/core/prompt"
	"startup_valuation/pkg/core/ratelimit"
	"startup_valuation/pkg/core/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zl.Sync() }()
	log := logger.NewZapAdapter(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Prompt library: built-ins, overridden by resources/ when present.
	prompts := prompt.NewRegistry()
	resourcesPath := cfg.LLM.ResourcesDir
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), cfg.LLM.ResourcesDir)
	}
	if n, err := prompts.LoadFromDirectory(resourcesPath); err != nil {
		log.Warn("prompt library not loaded, using built-in prompts", map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("prompt library loaded", map[string]interface{}{"overrides": n, "path": resourcesPath, "total": len(prompts.IDs())})
	}

	agentCfg, err := config.LoadModels(cfg.LLM.ModelsFile)
	if err != nil {
		return err
	}
	agentMgr := agent.NewManager(agentCfg,
		agent.WithCallRate(cfg.LLM.MaxCallsPerSecond),
		agent.WithTimeout(cfg.LLM.RequestTimeout),
		agent.WithLogger(log.With(map[string]interface{}{"component": "agent"})),
	)
	if !agentMgr.Configured(agent.AgentMarketData, agent.AgentExplanation, agent.AgentChatReply) {
		log.Warn("model credentials missing, valuation routes will return 503", map[string]interface{}{"provider": agentMgr.GetActiveProvider()})
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	events, closeEvents := newEventLog(ctx, cfg, log)
	defer closeEvents()

	retriever := market.NewRetriever(agentMgr, prompts,
		market.WithLenientJSON(cfg.LLM.LenientJSON),
		market.WithLogger(log.With(map[string]interface{}{"component": "market"})),
	)
	narrator := explain.NewGenerator(agentMgr, prompts, log.With(map[string]interface{}{"component": "explain"}))
	svc := conversation.NewService(retriever, narrator,
		conversation.WithRecorder(events),
		conversation.WithLogger(log.With(map[string]interface{}{"component": "conversation"})),
	)

	quickHandler := valuation.NewHandler(svc, agentMgr, log)
	chatHandler := chat.NewHandler(svc, agentMgr, log)
	configHandler := apiconfig.NewHandler(agentMgr)

	guarded := func(route string, h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.CORS, middleware.RequestID, middleware.RateLimit(limiter, route, log))
	}
	open := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, middleware.CORS, middleware.RequestID)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/valuation/quick", guarded("quick", quickHandler.HandleQuick))
	mux.Handle("/api/chat", guarded("chat", chatHandler.HandleChat))
	mux.Handle("/api/config", open(configHandler.HandleConfig))
	mux.Handle("/api/config/switch", open(configHandler.HandleSwitch))
	mux.HandleFunc("/healthz", configHandler.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", map[string]interface{}{
			"addr": srv.Addr,
			"routes": []string{
				"POST /api/valuation/quick",
				"POST /api/chat",
				"GET  /api/config",
				"POST /api/config/switch",
				"GET  /healthz",
				"GET  /metrics",
			},
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLimiter(ctx context.Context, cfg *config.Config, log logger.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		go sweep(ctx, mem, cfg.RateLimit.Window)
		return mem, func() {}, nil
	}

	client := ratelimit.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Info("rate limiting via redis", map[string]interface{}{"address": cfg.Redis.Address})
	return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window), func() { _ = client.Close() }, nil
}

func sweep(ctx context.Context, l *ratelimit.MemoryLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// newEventLog prefers Postgres and falls back to the JSONL file log.
func newEventLog(ctx context.Context, cfg *config.Config, log logger.Logger) (*store.EventLog, func()) {
	if cfg.Database.URL != "" {
		pool, err := store.OpenPool(ctx, cfg.Database.URL)
		if err != nil {
			log.WithError(err).Warn("database unavailable, using file log", nil)
		} else {
			events := store.NewEventLog(pool, "")
			err = events.EnsureSchema(ctx)
			if err == nil {
				log.Info("valuation events stored in postgres", nil)
				return events, pool.Close
			}
			log.WithError(err).Warn("event table unavailable, using file log", nil)
			pool.Close()
		}
	}
	log.Info("valuation events stored on disk", map[string]interface{}{"dir": cfg.Store.Dir})
	return store.NewEventLog(nil, cfg.Store.Dir), func() {}
}
