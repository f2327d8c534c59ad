package consensus

import (
	"context"
	"math"

	"github.com/ppiankov/modwatch/internal/model"
)

// Embedder turns text into a semantic vector. The aggregator embeds the
// claim once and compares it against every candidate record.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EntailmentOracle judges whether premise and hypothesis are consistent
type EntailmentOracle interface {
	Entails(ctx context.Context, premise, hypothesis string, kind model.EntailmentKind) (bool, error)
}

// SentimentOracle classifies the polarity of a short text
type SentimentOracle interface {
	Sentiment(ctx context.Context, text string) (model.Sentiment, error)
}

// Cosine returns the cosine similarity of a and b. Mismatched or zero
// vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
