package consensus

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ppiankov/modwatch/internal/model"
)

// SentimentCutoff is the minimum classifier confidence for a direct
// sentiment verdict; anything lower is Unclear.
const SentimentCutoff = 0.6

// contradictionPattern marks truth ratings that deny the rated claim
var contradictionPattern = regexp.MustCompile(`(?i)\b(false|inaccurate|incorrect|misleading|misinformation)\b`)

// Strategy derives a per-record verdict for a record that already passed
// similarity filtering.
type Strategy interface {
	Name() string
	Derive(ctx context.Context, claim string, rec model.RawRecord) (model.Verdict, error)
}

// DirectSentiment maps the record's truth rating straight to a verdict
// through a sentiment classifier.
type DirectSentiment struct {
	Oracle SentimentOracle
	Cutoff float64 // zero means SentimentCutoff
}

// Name returns the strategy name
func (s *DirectSentiment) Name() string { return "sentiment" }

// Derive classifies rec.TruthRating
func (s *DirectSentiment) Derive(ctx context.Context, _ string, rec model.RawRecord) (model.Verdict, error) {
	sentiment, err := s.Oracle.Sentiment(ctx, rec.TruthRating)
	if err != nil {
		return model.VerdictUnclear, fmt.Errorf("sentiment: %w", err)
	}

	cutoff := s.Cutoff
	if cutoff == 0 {
		cutoff = SentimentCutoff
	}
	if sentiment.Score < cutoff {
		return model.VerdictUnclear, nil
	}

	switch sentiment.Label {
	case model.SentimentPositive:
		return model.VerdictNotMisinformation, nil
	case model.SentimentNegative:
		return model.VerdictMisinformation, nil
	default:
		return model.VerdictUnclear, nil
	}
}

// DualEntailment combines two independent binary judgments: whether the user
// claim and the checked claim agree, and whether the checked claim and its
// rating agree.
type DualEntailment struct {
	Oracle EntailmentOracle
}

// Name returns the strategy name
func (s *DualEntailment) Name() string { return "entailment" }

// Derive runs both entailment checks and combines them
func (s *DualEntailment) Derive(ctx context.Context, claim string, rec model.RawRecord) (model.Verdict, error) {
	claimEntailment, err := s.Oracle.Entails(ctx, claim, rec.Claim, model.EntailmentClaim)
	if err != nil {
		return model.VerdictUnclear, fmt.Errorf("claim entailment: %w", err)
	}

	resultEntailment := false
	if !IsContradiction(rec.TruthRating) {
		resultEntailment, err = s.Oracle.Entails(ctx, rec.Claim, rec.TruthRating, model.EntailmentResult)
		if err != nil {
			return model.VerdictUnclear, fmt.Errorf("result entailment: %w", err)
		}
	}

	return CombineEntailment(claimEntailment, resultEntailment), nil
}

// CombineEntailment is the four-row truth table:
//
//	claim  result  verdict
//	true   true    Not-misinformation
//	true   false   Misinformation
//	false  true    Misinformation
//	false  false   Not-misinformation
func CombineEntailment(claimEntailment, resultEntailment bool) model.Verdict {
	if claimEntailment {
		if resultEntailment {
			return model.VerdictNotMisinformation
		}
		return model.VerdictMisinformation
	}
	if resultEntailment {
		return model.VerdictMisinformation
	}
	return model.VerdictNotMisinformation
}

// IsContradiction reports whether a truth rating contains a contradiction keyword
func IsContradiction(rating string) bool {
	return contradictionPattern.MatchString(rating)
}
