package model

import "fmt"

// RawRecord is a fact-check record as normalized by an evidence source,
// before any similarity or stance judgment.
type RawRecord struct {
	Claim       string `json:"claim"`        // Fact-checked claim text
	TruthRating string `json:"truth_rating"` // Free-text rating (e.g. "False", "Mostly true")
	Source      string `json:"source"`       // Publisher or site that checked the claim
	URL         string `json:"url"`          // Link to the fact-check
}

// SearchResult is what an evidence source returns for one claim
type SearchResult struct {
	Claim         string      `json:"claim"`
	Justification []RawRecord `json:"justification"`
}

// EvidenceRecord is a record that survived similarity filtering, with the
// verdict derived for it. Treat as immutable once produced.
type EvidenceRecord struct {
	ClaimText   string  `json:"claim"`
	TruthRating string  `json:"truth_rating"`
	SourceName  string  `json:"source"`
	SourceURL   string  `json:"url"`
	Similarity  float64 `json:"similarity"`
	Verdict     Verdict `json:"verdict"`
}

// Format renders the record as a single presentation line
func (r EvidenceRecord) Format() string {
	line := fmt.Sprintf("Sim to current post: %.3f, Conclusion: %s, URL supporting conclusion: %s",
		r.Similarity, r.Verdict, r.SourceURL)
	if r.SourceName != "" {
		line += ", Site that Fact Checked: " + r.SourceName
	}
	return line
}

// SentimentLabel is the polarity reported by a sentiment classifier
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// Sentiment is a classifier judgment with its confidence (0-1)
type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// EntailmentKind tells an entailment oracle which pair it is judging
type EntailmentKind string

const (
	EntailmentClaim  EntailmentKind = "claim"  // user claim vs fact-checked claim
	EntailmentResult EntailmentKind = "result" // fact-checked claim vs its truth rating
)
