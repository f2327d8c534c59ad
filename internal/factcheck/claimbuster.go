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

// ClaimBusterEndpoint is the crowd-sourced fact matcher base URL
const ClaimBusterEndpoint = "https://idir.uta.edu/claimbuster/api/v2/query/fact_matcher/"

// ClaimBuster queries the ClaimBuster fact matcher
type ClaimBuster struct {
	client
	apiKey   string
	endpoint string
}

type claimBusterResponse struct {
	Claim         string `json:"claim"`
	Justification []struct {
		Claim       string `json:"claim"`
		TruthRating string `json:"truth_rating"`
		Search      string `json:"search"`
		URL         string `json:"url"`
	} `json:"justification"`
}

// NewClaimBuster creates a ClaimBuster source
func NewClaimBuster(apiKey string, timeout time.Duration, limiter *worker.Limiter) (*ClaimBuster, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ClaimBuster API key is required")
	}
	return &ClaimBuster{
		client:   newClient(timeout, limiter),
		apiKey:   apiKey,
		endpoint: ClaimBusterEndpoint,
	}, nil
}

// WithEndpoint points the source at another endpoint (used by tests)
func (c *ClaimBuster) WithEndpoint(endpoint string) *ClaimBuster {
	c.endpoint = strings.TrimSuffix(endpoint, "/") + "/"
	return c
}

// Name returns the source name
func (c *ClaimBuster) Name() string {
	return "claimbuster"
}

// Search returns the matcher's justification list. The claim in the result
// is the one echoed by the API, which may be normalized.
func (c *ClaimBuster) Search(ctx context.Context, claim string) (*model.SearchResult, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint+url.PathEscape(claim), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	var payload claimBusterResponse
	if err := c.getJSON(ctx, req, &payload); err != nil {
		return nil, err
	}

	result := &model.SearchResult{Claim: payload.Claim}
	for _, j := range payload.Justification {
		result.Justification = append(result.Justification, model.RawRecord{
			Claim:       j.Claim,
			TruthRating: j.TruthRating,
			Source:      SourceName(j.Search, j.URL),
			URL:         j.URL,
		})
	}

	return result, nil
}
