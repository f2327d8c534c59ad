package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/modwatch/internal/model"
)

// NoEvidenceMessage stands in for the evidence list when nothing survives filtering
const NoEvidenceMessage = "No similar crowd sourced reporting has verified the validity of this statement"

// Default thresholds. Both are tunable per aggregator.
const (
	DefaultSimilarityThreshold = 0.75
	DefaultMajorityFraction    = 0.66
)

// Result is the aggregator's output. Verdict is always one of the three
// known values.
type Result struct {
	Verdict     model.Verdict          `json:"verdict"`
	Evidence    []model.EvidenceRecord `json:"evidence"`              // Sorted by similarity, descending
	Counts      map[model.Verdict]int  `json:"counts"`                // Per-verdict tally over Evidence
	Placeholder string                 `json:"placeholder,omitempty"` // Set when Evidence is empty
	Degraded    error                  `json:"-"`                     // Why the result fell back to Unclear, if it did
}

// Lines renders the evidence list, or the placeholder when there is none
func (r Result) Lines() []string {
	if len(r.Evidence) == 0 {
		if r.Placeholder != "" {
			return []string{r.Placeholder}
		}
		return []string{NoEvidenceMessage}
	}
	lines := make([]string, 0, len(r.Evidence))
	for _, ev := range r.Evidence {
		lines = append(lines, ev.Format())
	}
	return lines
}

// Options tunes an Aggregator
type Options struct {
	MajorityFraction float64 // Leader must hold at least this share of surviving records
	Logger           *slog.Logger
}

// Aggregator reconciles fuzzy fact-check records into one verdict
type Aggregator struct {
	embedder Embedder
	strategy Strategy
	fraction float64
	log      *slog.Logger
}

// NewAggregator creates an aggregator using embedder for similarity and
// strategy for per-record verdicts.
func NewAggregator(embedder Embedder, strategy Strategy, opts Options) *Aggregator {
	fraction := opts.MajorityFraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultMajorityFraction
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		embedder: embedder,
		strategy: strategy,
		fraction: fraction,
		log:      logger,
	}
}

// Classify filters records by similarity to claim, derives a verdict for each
// survivor and returns the weighted-majority verdict. It never fails: any
// upstream problem degrades to Unclear.
func (a *Aggregator) Classify(ctx context.Context, claim string, records []model.RawRecord, threshold float64) Result {
	if strings.TrimSpace(claim) == "" {
		return unclear(fmt.Errorf("empty claim: %w", model.ErrMalformedResponse))
	}

	claimVec, err := a.embedder.Embed(ctx, claim)
	if err != nil {
		a.log.Warn("claim embedding failed", "error", err)
		return unclear(fmt.Errorf("embed claim: %w", err))
	}

	counts := newCounts()
	var evidence []model.EvidenceRecord

	for i, rec := range records {
		if strings.TrimSpace(rec.Claim) == "" {
			a.log.Debug("skipping record without claim text", "index", i)
			continue
		}

		recVec, err := a.embedder.Embed(ctx, rec.Claim)
		if err != nil {
			a.log.Warn("record embedding failed", "index", i, "error", err)
			continue
		}

		sim := Cosine(claimVec, recVec)
		if sim <= threshold {
			continue
		}

		verdict, err := a.strategy.Derive(ctx, claim, rec)
		if err != nil {
			a.log.Warn("record stance failed", "index", i, "strategy", a.strategy.Name(), "error", err)
			continue
		}
		if !verdict.Valid() {
			verdict = model.VerdictUnclear
		}

		counts[verdict]++
		evidence = append(evidence, model.EvidenceRecord{
			ClaimText:   rec.Claim,
			TruthRating: rec.TruthRating,
			SourceName:  rec.Source,
			SourceURL:   rec.URL,
			Similarity:  sim,
			Verdict:     verdict,
		})
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Similarity > evidence[j].Similarity
	})

	if len(evidence) == 0 {
		res := unclear(nil)
		res.Counts = counts
		return res
	}

	return Result{
		Verdict:  Majority(counts, len(evidence), a.fraction),
		Evidence: evidence,
		Counts:   counts,
	}
}

// Majority picks the most frequent verdict, breaking ties by enumeration
// order, and falls back to Unclear when the leader holds less than fraction
// of total.
func Majority(counts map[model.Verdict]int, total int, fraction float64) model.Verdict {
	if total <= 0 {
		return model.VerdictUnclear
	}

	leader, best := model.VerdictUnclear, -1
	for _, v := range model.Verdicts() {
		if counts[v] > best {
			leader, best = v, counts[v]
		}
	}

	if float64(best) < fraction*float64(total) {
		return model.VerdictUnclear
	}
	return leader
}

func newCounts() map[model.Verdict]int {
	counts := make(map[model.Verdict]int, 3)
	for _, v := range model.Verdicts() {
		counts[v] = 0
	}
	return counts
}

func unclear(cause error) Result {
	return Result{
		Verdict:     model.VerdictUnclear,
		Evidence:    []model.EvidenceRecord{},
		Counts:      newCounts(),
		Placeholder: NoEvidenceMessage,
		Degraded:    cause,
	}
}
