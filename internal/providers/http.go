package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

// HTTPConfig configures a provider HTTP client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

func newRestyClient(cfg HTTPConfig) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	return client
}

// retryCondition retries network errors, 429 and 5xx.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func checkResponse(provider, op string, resp *resty.Response, err error) error {
	if err != nil {
		return apperrors.ProviderUnavailable(provider, op, err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > 200 {
			body = body[:200]
		}
		return apperrors.ProviderUnavailable(provider, op, fmt.Errorf("status %d", resp.StatusCode())).
			WithDetail("status", resp.StatusCode()).
			WithDetail("body", body)
	}
	return nil
}

// TokenSourcer supplies per-client OAuth tokens. A nil source means the
// client has no credentials.
type TokenSourcer interface {
	TokenSource(ctx context.Context, client models.Client) (oauth2.TokenSource, error)
}

// SearchConsoleClient reads search analytics over HTTP.
type SearchConsoleClient struct {
	http   *resty.Client
	tokens TokenSourcer
}

// NewSearchConsoleClient creates a search analytics client.
func NewSearchConsoleClient(cfg HTTPConfig, tokens TokenSourcer) *SearchConsoleClient {
	return &SearchConsoleClient{http: newRestyClient(cfg), tokens: tokens}
}

type searchAnalyticsRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"rowLimit"`
}

type searchAnalyticsResponse struct {
	Rows []struct {
		Keys        []string `json:"keys"`
		Clicks      float64  `json:"clicks"`
		Impressions float64  `json:"impressions"`
	} `json:"rows"`
}

// TopQueries implements SearchPerformance. Clients without a verified site
// have no search data and get an empty result.
func (c *SearchConsoleClient) TopQueries(ctx context.Context, client models.Client, r DateRange) ([]QueryStat, error) {
	if client.SearchConsoleSite == "" {
		return nil, nil
	}
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("site", client.SearchConsoleSite).
		SetBody(searchAnalyticsRequest{
			StartDate:  r.Start.Format(time.DateOnly),
			EndDate:    r.End.Format(time.DateOnly),
			Dimensions: []string{"query"},
			RowLimit:   250,
		}).
		SetResult(&searchAnalyticsResponse{})

	if c.tokens != nil {
		ts, err := c.tokens.TokenSource(ctx, client)
		if err != nil {
			return nil, apperrors.ProviderUnavailable("search_console", "token", err)
		}
		if ts != nil {
			tok, err := ts.Token()
			if err != nil {
				return nil, apperrors.ProviderUnavailable("search_console", "token", err)
			}
			req.SetAuthToken(tok.AccessToken)
		}
	}

	resp, err := req.Post("/sites/{site}/searchAnalytics/query")
	if err := checkResponse("search_console", "top queries", resp, err); err != nil {
		return nil, err
	}
	out, ok := resp.Result().(*searchAnalyticsResponse)
	if !ok {
		return nil, apperrors.ProviderResponse("search_console", "top queries", "unexpected payload")
	}
	stats := make([]QueryStat, 0, len(out.Rows))
	for _, row := range out.Rows {
		if len(row.Keys) == 0 || strings.TrimSpace(row.Keys[0]) == "" {
			continue
		}
		stats = append(stats, QueryStat{
			Query:       row.Keys[0],
			Clicks:      int(row.Clicks),
			Impressions: int(row.Impressions),
		})
	}
	return stats, nil
}

// KeywordResearchClient talks to a keyword research API.
type KeywordResearchClient struct {
	http *resty.Client
}

// NewKeywordResearchClient creates a keyword research client.
func NewKeywordResearchClient(cfg HTTPConfig) *KeywordResearchClient {
	client := newRestyClient(cfg)
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &KeywordResearchClient{http: client}
}

type keywordResults struct {
	Results []KeywordMetric `json:"results"`
}

// BulkKeywordResearch implements KeywordResearch.
func (c *KeywordResearchClient) BulkKeywordResearch(ctx context.Context, seeds []string) ([]KeywordMetric, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"keywords": seeds}).
		SetResult(&keywordResults{}).
		Post("/keywords/bulk")
	if err := checkResponse("keyword_research", "bulk research", resp, err); err != nil {
		return nil, err
	}
	return results("bulk research", resp)
}

// CompetitorKeywords implements KeywordResearch.
func (c *KeywordResearchClient) CompetitorKeywords(ctx context.Context, domain string) ([]KeywordMetric, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("domain", domain).
		SetResult(&keywordResults{}).
		Get("/domains/{domain}/keywords")
	if err := checkResponse("keyword_research", "competitor keywords", resp, err); err != nil {
		return nil, err
	}
	return results("competitor keywords", resp)
}

func results(op string, resp *resty.Response) ([]KeywordMetric, error) {
	out, ok := resp.Result().(*keywordResults)
	if !ok {
		return nil, apperrors.ProviderResponse("keyword_research", op, "unexpected payload")
	}
	metrics := out.Results[:0]
	for _, m := range out.Results {
		if strings.TrimSpace(m.Keyword) == "" || m.Volume < 0 {
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
