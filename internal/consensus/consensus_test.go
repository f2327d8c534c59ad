package consensus

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ppiankov/modwatch/internal/model"
)

// fakeEmbedder returns fixed vectors and counts calls per text
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   map[string]int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float64{}, calls: map[string]int{}}
}

// at registers text so that its similarity to the anchor [1,0] is sim
func (f *fakeEmbedder) at(text string, sim float64) {
	f.vectors[text] = []float64{sim, math.Sqrt(1 - sim*sim)}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls[text]++
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector")
	}
	return v, nil
}

// fakeEntailment answers by (premise, hypothesis) pair
type fakeEntailment struct {
	answers map[[2]string]bool
	calls   []model.EntailmentKind
	err     error
}

func (f *fakeEntailment) Entails(_ context.Context, premise, hypothesis string, kind model.EntailmentKind) (bool, error) {
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return false, f.err
	}
	return f.answers[[2]string{premise, hypothesis}], nil
}

type fakeSentiment map[string]model.Sentiment

func (f fakeSentiment) Sentiment(_ context.Context, text string) (model.Sentiment, error) {
	s, ok := f[text]
	if !ok {
		return model.Sentiment{}, errors.New("no sentiment")
	}
	return s, nil
}

// fixedStrategy returns a verdict per record claim
type fixedStrategy map[string]model.Verdict

func (fixedStrategy) Name() string { return "fixed" }

func (f fixedStrategy) Derive(_ context.Context, _ string, rec model.RawRecord) (model.Verdict, error) {
	v, ok := f[rec.Claim]
	if !ok {
		return model.VerdictUnclear, errors.New("unknown record")
	}
	return v, nil
}

const anchor = "the earth is flat"

func anchored() *fakeEmbedder {
	e := newFakeEmbedder()
	e.vectors[anchor] = []float64{1, 0}
	return e
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 0}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Errorf("expected 0 for zero vector, got %f", got)
	}
}

func TestCombineEntailment_TruthTable(t *testing.T) {
	tests := []struct {
		claim, result bool
		want          model.Verdict
	}{
		{true, true, model.VerdictNotMisinformation},
		{true, false, model.VerdictMisinformation},
		{false, true, model.VerdictMisinformation},
		{false, false, model.VerdictNotMisinformation},
	}
	for _, tt := range tests {
		if got := CombineEntailment(tt.claim, tt.result); got != tt.want {
			t.Errorf("CombineEntailment(%v, %v) = %s, want %s", tt.claim, tt.result, got, tt.want)
		}
	}
}

func TestIsContradiction(t *testing.T) {
	for _, rating := range []string{"False", "Mostly FALSE", "Inaccurate", "incorrect claim", "Misleading", "This is misinformation"} {
		if !IsContradiction(rating) {
			t.Errorf("expected %q to be a contradiction", rating)
		}
	}
	for _, rating := range []string{"True", "Accurate", "Correct", "Falsehood-free"} {
		if IsContradiction(rating) {
			t.Errorf("expected %q not to be a contradiction", rating)
		}
	}
}

func TestDualEntailment_KeywordOverridesOracle(t *testing.T) {
	rec := model.RawRecord{Claim: "Earth is flat", TruthRating: "False"}
	oracle := &fakeEntailment{answers: map[[2]string]bool{
		{anchor, rec.Claim}:          true,
		{rec.Claim, rec.TruthRating}: true, // would flip the verdict if consulted
	}}

	got, err := (&DualEntailment{Oracle: oracle}).Derive(context.Background(), anchor, rec)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if got != model.VerdictMisinformation {
		t.Errorf("expected Misinformation, got %s", got)
	}
	if len(oracle.calls) != 1 || oracle.calls[0] != model.EntailmentClaim {
		t.Errorf("expected only the claim entailment call, got %v", oracle.calls)
	}
}

func TestDualEntailment_AllCombinations(t *testing.T) {
	rec := model.RawRecord{Claim: "Earth is round", TruthRating: "Accurate"}
	for _, claimE := range []bool{true, false} {
		for _, resultE := range []bool{true, false} {
			oracle := &fakeEntailment{answers: map[[2]string]bool{
				{anchor, rec.Claim}:          claimE,
				{rec.Claim, rec.TruthRating}: resultE,
			}}
			got, err := (&DualEntailment{Oracle: oracle}).Derive(context.Background(), anchor, rec)
			if err != nil {
				t.Fatalf("Derive failed: %v", err)
			}
			if want := CombineEntailment(claimE, resultE); got != want {
				t.Errorf("claim=%v result=%v: got %s, want %s", claimE, resultE, got, want)
			}
		}
	}
}

func TestDirectSentiment(t *testing.T) {
	oracle := fakeSentiment{
		"True":     {Label: model.SentimentPositive, Score: 0.95},
		"False":    {Label: model.SentimentNegative, Score: 0.9},
		"Mixed":    {Label: model.SentimentNeutral, Score: 0.99},
		"Unproven": {Label: model.SentimentNegative, Score: 0.59},
	}
	s := &DirectSentiment{Oracle: oracle}

	tests := map[string]model.Verdict{
		"True":     model.VerdictNotMisinformation,
		"False":    model.VerdictMisinformation,
		"Mixed":    model.VerdictUnclear,
		"Unproven": model.VerdictUnclear, // below the 0.6 cutoff
	}
	for rating, want := range tests {
		got, err := s.Derive(context.Background(), anchor, model.RawRecord{TruthRating: rating})
		if err != nil {
			t.Fatalf("Derive(%q) failed: %v", rating, err)
		}
		if got != want {
			t.Errorf("Derive(%q) = %s, want %s", rating, got, want)
		}
	}

	if _, err := s.Derive(context.Background(), anchor, model.RawRecord{TruthRating: "??"}); err == nil {
		t.Error("expected oracle failure to surface as an error")
	}
}

func TestClassify_FiltersAtOrBelowThreshold(t *testing.T) {
	emb := anchored()
	sims := map[string]float64{"a": 0.95, "b": 0.8, "c": 0.75, "d": 0.5, "e": 0.1}
	strategy := fixedStrategy{}
	var records []model.RawRecord
	for text, sim := range sims {
		emb.at(text, sim)
		strategy[text] = model.VerdictMisinformation
		records = append(records, model.RawRecord{Claim: text})
	}
	agg := NewAggregator(emb, strategy, Options{})

	for _, threshold := range []float64{0, 0.1, 0.5, 0.75, 0.8, 0.9, 0.99} {
		res := agg.Classify(context.Background(), anchor, records, threshold)
		for _, ev := range res.Evidence {
			if ev.Similarity <= threshold {
				t.Errorf("threshold %.2f: record %q with similarity %.3f leaked into evidence", threshold, ev.ClaimText, ev.Similarity)
			}
		}
		for i := 1; i < len(res.Evidence); i++ {
			if res.Evidence[i-1].Similarity < res.Evidence[i].Similarity {
				t.Errorf("threshold %.2f: evidence not sorted by similarity", threshold)
			}
		}
		if !res.Verdict.Valid() {
			t.Errorf("threshold %.2f: invalid verdict %q", threshold, res.Verdict)
		}
	}
}

func TestClassify_EmbedsClaimOnce(t *testing.T) {
	emb := anchored()
	emb.at("r1", 0.9)
	emb.at("r2", 0.85)
	emb.at("r3", 0.8)
	agg := NewAggregator(emb, fixedStrategy{"r1": model.VerdictMisinformation, "r2": model.VerdictMisinformation, "r3": model.VerdictMisinformation}, Options{})

	agg.Classify(context.Background(), anchor, []model.RawRecord{{Claim: "r1"}, {Claim: "r2"}, {Claim: "r3"}}, 0.5)

	if emb.calls[anchor] != 1 {
		t.Errorf("expected claim to be embedded once, got %d", emb.calls[anchor])
	}
}

func TestClassify_NoSurvivorsIsUnclear(t *testing.T) {
	emb := anchored()
	emb.at("far", 0.2)
	agg := NewAggregator(emb, fixedStrategy{"far": model.VerdictMisinformation}, Options{})

	res := agg.Classify(context.Background(), anchor, []model.RawRecord{{Claim: "far"}}, 0.75)
	if res.Verdict != model.VerdictUnclear {
		t.Errorf("expected Unclear, got %s", res.Verdict)
	}
	if len(res.Evidence) != 0 {
		t.Errorf("expected no evidence, got %d", len(res.Evidence))
	}
	if res.Placeholder != NoEvidenceMessage {
		t.Errorf("expected placeholder, got %q", res.Placeholder)
	}
	if lines := res.Lines(); len(lines) != 1 || lines[0] != NoEvidenceMessage {
		t.Errorf("expected placeholder line, got %v", lines)
	}
}

func TestClassify_DegradesInsteadOfFailing(t *testing.T) {
	t.Run("claim embedding fails", func(t *testing.T) {
		agg := NewAggregator(newFakeEmbedder(), fixedStrategy{}, Options{})
		res := agg.Classify(context.Background(), "unknown claim", []model.RawRecord{{Claim: "x"}}, 0.5)
		if res.Verdict != model.VerdictUnclear || len(res.Evidence) != 0 {
			t.Errorf("expected (Unclear, []), got (%s, %d)", res.Verdict, len(res.Evidence))
		}
		if res.Degraded == nil {
			t.Error("expected Degraded to explain the fallback")
		}
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		emb := anchored()
		emb.at("good", 0.9)
		agg := NewAggregator(emb, fixedStrategy{"good": model.VerdictMisinformation}, Options{})
		records := []model.RawRecord{
			{Claim: ""},          // missing claim field
			{Claim: "no-vector"}, // embedding fails
			{Claim: "good"},      // survives
		}
		res := agg.Classify(context.Background(), anchor, records, 0.5)
		if res.Verdict != model.VerdictMisinformation || len(res.Evidence) != 1 {
			t.Errorf("expected (Misinformation, 1), got (%s, %d)", res.Verdict, len(res.Evidence))
		}
	})

	t.Run("empty claim", func(t *testing.T) {
		agg := NewAggregator(anchored(), fixedStrategy{}, Options{})
		res := agg.Classify(context.Background(), "  ", nil, 0.5)
		if res.Verdict != model.VerdictUnclear || !errors.Is(res.Degraded, model.ErrMalformedResponse) {
			t.Errorf("expected malformed Unclear, got %s (%v)", res.Verdict, res.Degraded)
		}
	})
}

func TestMajority(t *testing.T) {
	tests := []struct {
		name     string
		counts   map[model.Verdict]int
		fraction float64
		want     model.Verdict
	}{
		{"clear majority", map[model.Verdict]int{model.VerdictMisinformation: 3}, 0.66, model.VerdictMisinformation},
		{"2 of 3 at 0.66", map[model.Verdict]int{model.VerdictMisinformation: 2, model.VerdictNotMisinformation: 1}, 0.66, model.VerdictMisinformation},
		{"2 of 3 at 0.75", map[model.Verdict]int{model.VerdictMisinformation: 2, model.VerdictNotMisinformation: 1}, 0.75, model.VerdictUnclear},
		{"3 of 4 at 0.75", map[model.Verdict]int{model.VerdictNotMisinformation: 3, model.VerdictUnclear: 1}, 0.75, model.VerdictNotMisinformation},
		{"split", map[model.Verdict]int{model.VerdictMisinformation: 1, model.VerdictNotMisinformation: 1, model.VerdictUnclear: 1}, 0.66, model.VerdictUnclear},
		{"tie resolves by enumeration order", map[model.Verdict]int{model.VerdictNotMisinformation: 2, model.VerdictMisinformation: 2}, 0.5, model.VerdictMisinformation},
		{"tie between not and unclear", map[model.Verdict]int{model.VerdictUnclear: 1, model.VerdictNotMisinformation: 1}, 0.5, model.VerdictNotMisinformation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := 0
			for _, c := range tt.counts {
				total += c
			}
			if got := Majority(tt.counts, total, tt.fraction); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMajority_OverrideMatchesCeil(t *testing.T) {
	for total := 1; total <= 12; total++ {
		for top := 0; top <= total; top++ {
			for _, f := range []float64{0.5, 0.66, 0.75} {
				counts := map[model.Verdict]int{model.VerdictMisinformation: top, model.VerdictUnclear: total - top}
				got := Majority(counts, total, f)
				if top < int(math.Ceil(f*float64(total))) && got != model.VerdictUnclear {
					t.Errorf("total=%d top=%d f=%.2f: expected Unclear, got %s", total, top, f, got)
				}
			}
		}
	}
}

func TestClassify_EarthIsFlat(t *testing.T) {
	emb := anchored()
	rec := model.RawRecord{Claim: "The Earth is flat", TruthRating: "False", Source: "fullfact.org", URL: "https://fullfact.org/online/earth-is-spherical-not-flat/"}
	emb.at(rec.Claim, 0.9)

	oracle := &fakeEntailment{answers: map[[2]string]bool{{anchor, rec.Claim}: true}}
	agg := NewAggregator(emb, &DualEntailment{Oracle: oracle}, Options{MajorityFraction: 0.66})

	res := agg.Classify(context.Background(), anchor, []model.RawRecord{rec}, 0.75)
	if res.Verdict != model.VerdictMisinformation {
		t.Fatalf("expected Misinformation, got %s", res.Verdict)
	}
	if len(res.Evidence) != 1 {
		t.Fatalf("expected one evidence entry, got %d", len(res.Evidence))
	}
	ev := res.Evidence[0]
	if math.Abs(ev.Similarity-0.9) > 1e-6 || ev.Verdict != model.VerdictMisinformation || ev.SourceURL != rec.URL {
		t.Errorf("unexpected evidence: %+v", ev)
	}
}

type fakeSource struct {
	result *model.SearchResult
	err    error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(context.Context, string) (*model.SearchResult, error) {
	return f.result, f.err
}

func TestChecker_Degrades(t *testing.T) {
	agg := NewAggregator(anchored(), fixedStrategy{}, Options{})

	tests := []struct {
		name    string
		source  *fakeSource
		wantErr error
	}{
		{"upstream down", &fakeSource{err: model.ErrUpstreamUnavailable}, model.ErrUpstreamUnavailable},
		{"missing claim", &fakeSource{result: &model.SearchResult{Justification: []model.RawRecord{{Claim: "x"}}}}, model.ErrMalformedResponse},
		{"nil result", &fakeSource{}, model.ErrMalformedResponse},
		{"empty justification", &fakeSource{result: &model.SearchResult{Claim: anchor}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewChecker(tt.source, agg, 0.75, nil).Check(context.Background(), anchor)
			if res.Verdict != model.VerdictUnclear || len(res.Evidence) != 0 {
				t.Errorf("expected (Unclear, []), got (%s, %d)", res.Verdict, len(res.Evidence))
			}
			if tt.wantErr != nil && !errors.Is(res.Degraded, tt.wantErr) {
				t.Errorf("expected Degraded to wrap %v, got %v", tt.wantErr, res.Degraded)
			}
		})
	}
}

func TestChecker_ClassifiesSearchResult(t *testing.T) {
	emb := anchored()
	emb.at("Earth is flat", 0.92)
	src := &fakeSource{result: &model.SearchResult{
		Claim:         anchor,
		Justification: []model.RawRecord{{Claim: "Earth is flat", TruthRating: "False"}},
	}}
	agg := NewAggregator(emb, fixedStrategy{"Earth is flat": model.VerdictMisinformation}, Options{})

	res := NewChecker(src, agg, 0, nil).Check(context.Background(), anchor)
	if res.Verdict != model.VerdictMisinformation {
		t.Errorf("expected Misinformation, got %s", res.Verdict)
	}
}

func TestChecker_HonoursThreshold(t *testing.T) {
	emb := anchored()
	emb.at("Earth is flat", 0.1)
	src := &fakeSource{result: &model.SearchResult{
		Claim:         anchor,
		Justification: []model.RawRecord{{Claim: "Earth is flat", TruthRating: "False"}},
	}}
	agg := NewAggregator(emb, fixedStrategy{"Earth is flat": model.VerdictMisinformation}, Options{})

	tests := []struct {
		name      string
		threshold float64
		want      int
	}{
		{"zero keeps weak match", 0, 1},
		{"negative keeps weak match", -0.5, 1},
		{"NaN uses default", math.NaN(), 0},
		{"default drops weak match", DefaultSimilarityThreshold, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewChecker(src, agg, tt.threshold, nil).Check(context.Background(), anchor)
			if len(res.Evidence) != tt.want {
				t.Errorf("expected %d evidence records, got %d", tt.want, len(res.Evidence))
			}
		})
	}
}
