package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/modwatch/internal/model"
)

const claimEntailmentSystem = "You compare two statements. Reply yes if the first statement asserts the same thing as the second, otherwise reply no. Reply with one word."

const resultEntailmentSystem = "You are given a fact-checked statement and the rating a fact checker gave it. " +
	"Reply yes if the rating says the statement is true or accurate, otherwise reply no. Reply with one word."

const sentimentSystem = `You label the polarity of a fact-check rating. Positive means the rated claim holds, negative means it does not, neutral means neither. ` +
	`Reply only with JSON like {"label":"NEGATIVE","score":0.93} where label is POSITIVE, NEGATIVE or NEUTRAL and score is your confidence from 0 to 1.`

// jsonObject finds the first JSON object in a reply that may carry prose
var jsonObject = regexp.MustCompile(`(?s)\{.*?\}`)

// Entailment answers yes/no consistency questions with a generative model
type Entailment struct {
	Provider Provider
}

// Entails reports whether hypothesis agrees with premise. kind selects
// whether two claims or a claim and its rating are compared.
func (e *Entailment) Entails(ctx context.Context, premise, hypothesis string, kind model.EntailmentKind) (bool, error) {
	system, prompt := claimEntailmentSystem, fmt.Sprintf("First: %s\nSecond: %s", premise, hypothesis)
	if kind == model.EntailmentResult {
		system, prompt = resultEntailmentSystem, fmt.Sprintf("Statement: %s\nRating: %s", premise, hypothesis)
	}

	resp, err := e.Provider.Complete(ctx, CompletionRequest{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: 5,
	})
	if err != nil {
		return false, err
	}
	return parseYesNo(resp.Text)
}

func parseYesNo(answer string) (bool, error) {
	word := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.HasPrefix(word, "yes"):
		return true, nil
	case strings.HasPrefix(word, "no"):
		return false, nil
	default:
		return false, fmt.Errorf("expected yes or no, got %q: %w", answer, model.ErrMalformedResponse)
	}
}

// SentimentClassifier labels short texts with a generative model
type SentimentClassifier struct {
	Provider Provider
}

// Sentiment returns the polarity of text and the model's confidence
func (s *SentimentClassifier) Sentiment(ctx context.Context, text string) (model.Sentiment, error) {
	resp, err := s.Provider.Complete(ctx, CompletionRequest{
		System:    sentimentSystem,
		Messages:  []Message{{Role: RoleUser, Content: text}},
		MaxTokens: 30,
	})
	if err != nil {
		return model.Sentiment{}, err
	}
	return parseSentiment(resp.Text)
}

func parseSentiment(answer string) (model.Sentiment, error) {
	raw := jsonObject.FindString(answer)
	if raw == "" {
		return model.Sentiment{}, fmt.Errorf("no JSON in sentiment answer %q: %w", answer, model.ErrMalformedResponse)
	}

	var out model.Sentiment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.Sentiment{}, fmt.Errorf("decode sentiment: %w: %w", model.ErrMalformedResponse, err)
	}

	out.Label = model.SentimentLabel(strings.ToUpper(string(out.Label)))
	switch out.Label {
	case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
	default:
		return model.Sentiment{}, fmt.Errorf("unknown sentiment label %q: %w", out.Label, model.ErrMalformedResponse)
	}
	if out.Score < 0 || out.Score > 1 {
		return model.Sentiment{}, fmt.Errorf("sentiment score %v out of range: %w", out.Score, model.ErrMalformedResponse)
	}
	return out, nil
}
