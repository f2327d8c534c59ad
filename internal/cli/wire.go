package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/consensus"
	"github.com/ppiankov/modwatch/internal/factcheck"
	"github.com/ppiankov/modwatch/internal/llm"
	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/screen"
	"github.com/ppiankov/modwatch/internal/worker"
)

// buildChecker assembles the evidence path: cached fact-check source,
// cached embedder, stance strategy and aggregator.
func buildChecker(cfg *model.Config, store cache.Cache, logger *slog.Logger) (*consensus.Checker, error) {
	limiter := newLimiter(cfg.FactCheck)
	source, err := factcheck.NewSource(cfg.FactCheck, limiter)
	if err != nil {
		return nil, fmt.Errorf("evidence source: %w", err)
	}

	llmCfg := llm.ConfigFromModel(cfg.LLM)
	embedder, err := llm.NewEmbedder(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("the %s strategy needs an LLM provider (set llm.provider)", cfg.FactCheck.Strategy)
	}

	var strategy consensus.Strategy
	switch strings.ToLower(cfg.FactCheck.Strategy) {
	case "entailment", "":
		strategy = &consensus.DualEntailment{Oracle: &llm.Entailment{Provider: provider}}
	case "sentiment":
		strategy = &consensus.DirectSentiment{Oracle: &llm.SentimentClassifier{Provider: provider}}
	default:
		return nil, fmt.Errorf("unknown strategy: %s (supported: entailment, sentiment)", cfg.FactCheck.Strategy)
	}

	embedName := llmCfg.EmbeddingProvider + "/" + llmCfg.EmbeddingModel
	aggregator := consensus.NewAggregator(
		llm.NewCachedEmbedder(embedder, store, embedName, 0),
		strategy,
		consensus.Options{MajorityFraction: cfg.FactCheck.MajorityFraction, Logger: logger},
	)

	logger.Debug("checker ready",
		"source", source.Name(),
		"strategy", strategy.Name(),
		"embedder", embedName,
		"threshold", cfg.FactCheck.SimilarityThreshold)

	// Zero TTLs leave expiry to each cache layer: cache.memory_ttl in memory,
	// cache.disk_ttl on disk.
	cached := factcheck.NewCachedSource(source, store, 0)
	return consensus.NewChecker(cached, aggregator, cfg.FactCheck.SimilarityThreshold, logger), nil
}

// newLimiter builds the shared fact-check limiter with per-host overrides
func newLimiter(cfg model.FactCheckConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	for _, hr := range cfg.HostRates {
		if hr.Host == "" {
			continue
		}
		limiter.SetHostRate(hr.Host, hr.RequestsPerSecond, hr.Burst)
	}
	return limiter
}

// buildScreener pairs the LLM detector with the evidence checker
func buildScreener(cfg *model.Config, store cache.Cache, logger *slog.Logger) (*screen.Screener, error) {
	checker, err := buildChecker(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	return screen.NewScreener(llm.NewDetector(provider, logger), checker, logger), nil
}
