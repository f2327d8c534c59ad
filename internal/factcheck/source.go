package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/modwatch/internal/model"
	"github.com/ppiankov/modwatch/internal/worker"
	"golang.org/x/net/publicsuffix"
)

// maxBodyBytes caps how much of an API response is read
const maxBodyBytes = 4 << 20

// Source finds fact-check records for a claim
type Source interface {
	Name() string
	Search(ctx context.Context, claim string) (*model.SearchResult, error)
}

// NewSource builds the evidence source selected by cfg.Source
func NewSource(cfg model.FactCheckConfig, limiter *worker.Limiter) (Source, error) {
	switch strings.ToLower(cfg.Source) {
	case "google", "":
		return NewGoogleFactCheck(cfg.GoogleAPIKey, cfg.Timeout, limiter)
	case "claimbuster":
		return NewClaimBuster(cfg.ClaimBusterAPIKey, cfg.Timeout, limiter)
	default:
		return nil, fmt.Errorf("unknown evidence source: %s (supported: google, claimbuster)", cfg.Source)
	}
}

// client holds what both API sources share
type client struct {
	httpClient *http.Client
	limiter    *worker.Limiter
}

func newClient(timeout time.Duration, limiter *worker.Limiter) client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// getJSON performs a rate-limited GET and decodes the body into out.
// Transport and status failures wrap ErrUpstreamUnavailable, decode
// failures wrap ErrMalformedResponse.
func (c client) getJSON(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx, req.URL.String()); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("execute request: %w: %w", model.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w: %w", model.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (%d): %w", resp.StatusCode, model.ErrUpstreamUnavailable)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w: %w", model.ErrMalformedResponse, err)
	}
	return nil
}

// SourceName returns name when set, otherwise the registrable domain of
// rawURL (e.g. "www.politifact.com/..." gives "politifact.com").
func SourceName(name, rawURL string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
	if err != nil {
		return parsed.Hostname()
	}
	return domain
}
