package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/modwatch/internal/cache"
	"github.com/ppiankov/modwatch/internal/model"
)

func TestEntailment_Entails(t *testing.T) {
	tests := []struct {
		answer  string
		want    bool
		wantErr bool
	}{
		{"Yes", true, false},
		{"yes.", true, false},
		{"No", false, false},
		{" no, they differ", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		oracle := &Entailment{Provider: &scriptedProvider{answer: tt.answer}}
		got, err := oracle.Entails(context.Background(), "a", "b", model.EntailmentClaim)
		if (err != nil) != tt.wantErr {
			t.Errorf("Entails(%q) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, model.ErrMalformedResponse) {
			t.Errorf("expected malformed response error, got %v", err)
		}
		if got != tt.want {
			t.Errorf("Entails(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestEntailment_PromptDependsOnKind(t *testing.T) {
	provider := &scriptedProvider{answer: "yes"}
	oracle := &Entailment{Provider: provider}

	_, _ = oracle.Entails(context.Background(), "The earth is flat", "Earth is flat, says video", model.EntailmentClaim)
	_, _ = oracle.Entails(context.Background(), "Earth is flat, says video", "False", model.EntailmentResult)

	if provider.requests[0].System == provider.requests[1].System {
		t.Error("expected different instructions for claim and result entailment")
	}
	if !strings.Contains(provider.requests[1].Messages[0].Content, "Rating: False") {
		t.Errorf("expected rating in prompt, got %q", provider.requests[1].Messages[0].Content)
	}
}

func TestEntailment_ProviderError(t *testing.T) {
	oracle := &Entailment{Provider: &scriptedProvider{err: model.ErrUpstreamUnavailable}}
	if _, err := oracle.Entails(context.Background(), "a", "b", model.EntailmentResult); !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestSentimentClassifier_Sentiment(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    model.Sentiment
		wantErr bool
	}{
		{"plain json", `{"label":"NEGATIVE","score":0.93}`, model.Sentiment{Label: model.SentimentNegative, Score: 0.93}, false},
		{"wrapped in prose", "Sure: {\"label\":\"positive\",\"score\":0.7} hope that helps", model.Sentiment{Label: model.SentimentPositive, Score: 0.7}, false},
		{"no json", "NEGATIVE", model.Sentiment{}, true},
		{"unknown label", `{"label":"ANGRY","score":0.9}`, model.Sentiment{}, true},
		{"score out of range", `{"label":"NEUTRAL","score":3}`, model.Sentiment{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &SentimentClassifier{Provider: &scriptedProvider{answer: tt.answer}}
			got, err := oracle.Sentiment(context.Background(), "False")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float64{float64(len(text)), 1}, nil
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := NewCachedEmbedder(inner, cache.NewMemoryCache(time.Minute, time.Minute), "openai/text-embedding-3-small", 0)

	for i := 0; i < 3; i++ {
		vec, err := embedder.Embed(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Embed failed: %v", err)
		}
		if len(vec) != 2 || vec[0] != 5 {
			t.Fatalf("unexpected vector: %v", vec)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}

	_, _ = embedder.Embed(context.Background(), "other")
	if inner.calls != 2 {
		t.Errorf("expected distinct texts to miss, got %d calls", inner.calls)
	}
}

func TestCachedEmbedder_FailuresNotCached(t *testing.T) {
	inner := &countingEmbedder{err: model.ErrUpstreamUnavailable}
	embedder := NewCachedEmbedder(inner, cache.NewMemoryCache(time.Minute, time.Minute), "x", 0)

	_, _ = embedder.Embed(context.Background(), "hello")
	_, err := embedder.Embed(context.Background(), "hello")
	if !errors.Is(err, model.ErrUpstreamUnavailable) || inner.calls != 2 {
		t.Errorf("expected failures to reach the embedder each time, calls=%d err=%v", inner.calls, err)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("expected disabled provider, got %v (%v)", p, err)
	}
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("expected unknown provider error")
	}
	p, err = NewProvider(Config{Provider: "Claude", APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("expected anthropic provider, got %v (%v)", p, err)
	}
}

func TestNewEmbedder(t *testing.T) {
	if _, err := NewEmbedder(Config{EmbeddingProvider: "anthropic", APIKey: "k"}); err == nil {
		t.Error("expected anthropic embeddings to be rejected")
	}
	if e, err := NewEmbedder(Config{EmbeddingProvider: "ollama"}); err != nil || e == nil {
		t.Errorf("expected ollama embedder, got %v (%v)", e, err)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "openai", Model: "gpt-4o", EmbeddingModel: "text-embedding-3-large", Timeout: 10})
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o" || cfg.EmbeddingModel != "text-embedding-3-large" || cfg.Timeout != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
