package factcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/worker"
)

// GoogleClaimSearchEndpoint is the public Fact Check Tools claim search
const GoogleClaimSearchEndpoint = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

// GoogleFactCheck searches the Google Fact Check Tools API
type GoogleFactCheck struct {
	client
	apiKey   string
	endpoint string
}

type googleResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// NewGoogleFactCheck creates a Google Fact Check source
func NewGoogleFactCheck(apiKey string, timeout time.Duration, limiter *worker.Limiter) (*GoogleFactCheck, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google Fact Check API key is required")
	}
	return &GoogleFactCheck{
		client:   newClient(timeout, limiter),
		apiKey:   apiKey,
		endpoint: GoogleClaimSearchEndpoint,
	}, nil
}

// WithEndpoint points the source at another endpoint (used by tests)
func (g *GoogleFactCheck) WithEndpoint(endpoint string) *GoogleFactCheck {
	g.endpoint = endpoint
	return g
}

// Name returns the source name
func (g *GoogleFactCheck) Name() string {
	return "google"
}

// Search returns one record per matched claim, taken from its first review.
// Claims without a review are skipped.
func (g *GoogleFactCheck) Search(ctx context.Context, claim string) (*model.SearchResult, error) {
	q := url.Values{}
	q.Set("key", g.apiKey)
	q.Set("query", claim)

	req, err := http.NewRequest(http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var payload googleResponse
	if err := g.getJSON(ctx, req, &payload); err != nil {
		return nil, err
	}

	result := &model.SearchResult{Claim: claim}
	for _, c := range payload.Claims {
		if len(c.ClaimReview) == 0 || strings.TrimSpace(c.Text) == "" {
			continue
		}
		review := c.ClaimReview[0]
		name := review.Publisher.Site
		if name == "" {
			name = review.Publisher.Name
		}
		result.Justification = append(result.Justification, model.RawRecord{
			Claim:       c.Text,
			TruthRating: review.TextualRating,
			Source:      SourceName(name, review.URL),
			URL:         review.URL,
		})
	}

	return result, nil
}
