package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestVerdicts_Order(t *testing.T) {
	got := Verdicts()
	want := []Verdict{VerdictMisinformation, VerdictNotMisinformation, VerdictUnclear}
	if len(got) != len(want) {
		t.Fatalf("expected %d verdicts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Verdicts()[%d] = %s, want %s", i, got[i], want[i])
		}
		if !got[i].Valid() {
			t.Errorf("%s should be valid", got[i])
		}
	}
	if Verdict("Maybe").Valid() {
		t.Error("unknown verdict should be invalid")
	}
}

func TestParseMisinfoType(t *testing.T) {
	tests := []struct {
		in   string
		want MisinfoType
		ok   bool
	}{
		{"fake", MisinfoFake, true},
		{"  Manipulated. ", MisinfoManipulated, true},
		{"Out of context", MisinfoOutOfContext, true},
		{"\"imposter\"", MisinfoImposter, true},
		{"satire", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMisinfoType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMisinfoType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEvidenceRecord_Format(t *testing.T) {
	r := EvidenceRecord{
		Similarity: 0.8765,
		Verdict:    VerdictMisinformation,
		SourceURL:  "https://www.politifact.com/x",
		SourceName: "politifact",
	}
	want := "Sim to current post: 0.877, Conclusion: Misinformation, URL supporting conclusion: https://www.politifact.com/x, Site that Fact Checked: politifact"
	if got := r.Format(); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	r.SourceName = ""
	if got := r.Format(); got != "Sim to current post: 0.877, Conclusion: Misinformation, URL supporting conclusion: https://www.politifact.com/x" {
		t.Errorf("unexpected format without source name: %q", got)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	wrapped := fmt.Errorf("google: %w: %w", ErrUpstreamUnavailable, errors.New("status 500"))
	if !errors.Is(wrapped, ErrUpstreamUnavailable) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(wrapped, ErrMalformedResponse) {
		t.Error("wrapped error should not match another sentinel")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FactCheck.SimilarityThreshold != 0.75 || cfg.FactCheck.MajorityFraction != 0.66 {
		t.Errorf("unexpected consensus defaults: %+v", cfg.FactCheck)
	}
	if cfg.Moderation.Ledger != "memory" {
		t.Errorf("unexpected ledger default %q", cfg.Moderation.Ledger)
	}
	if cfg.LLM.Provider != "" {
		t.Error("LLM should be disabled by default")
	}
}
