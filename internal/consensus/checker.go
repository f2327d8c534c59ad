package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ppiankov/modwatch/internal/model"
)

// Source is an evidence source that finds fact-check records for a claim
type Source interface {
	Name() string
	Search(ctx context.Context, claim string) (*model.SearchResult, error)
}

// Checker runs a claim through an evidence source and the aggregator
type Checker struct {
	source     Source
	aggregator *Aggregator
	threshold  float64
	log        *slog.Logger
}

// NewChecker creates a checker. Any threshold is honoured, including zero
// and negative values; NaN uses the default.
func NewChecker(source Source, aggregator *Aggregator, threshold float64, logger *slog.Logger) *Checker {
	if math.IsNaN(threshold) {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		source:     source,
		aggregator: aggregator,
		threshold:  threshold,
		log:        logger,
	}
}

// Check searches for evidence and classifies claim. Source failures and
// malformed payloads degrade to Unclear with no evidence.
func (c *Checker) Check(ctx context.Context, claim string) Result {
	found, err := c.source.Search(ctx, claim)
	if err != nil {
		c.log.Warn("evidence search failed", "source", c.source.Name(), "error", err)
		return unclear(fmt.Errorf("%s: %w", c.source.Name(), err))
	}

	if found == nil || strings.TrimSpace(found.Claim) == "" {
		return unclear(fmt.Errorf("%s: missing claim field: %w", c.source.Name(), model.ErrMalformedResponse))
	}
	if len(found.Justification) == 0 {
		return unclear(nil)
	}

	return c.aggregator.Classify(ctx, found.Claim, found.Justification, c.threshold)
}
