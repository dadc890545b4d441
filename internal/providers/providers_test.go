package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/pkg/models"
)

func TestTrailing(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	r := Trailing(now, 7)
	assert.Equal(t, "2026-03-09", r.End.Format(time.DateOnly))
	assert.Equal(t, "2026-03-03", r.Start.Format(time.DateOnly))
}

func TestKeywordResearchClient_Bulk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/keywords/bulk", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"dentist austin"}, body["keywords"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"keyword":"dentist austin","volume":900,"difficulty":41},{"keyword":"","volume":3}]}`))
	}))
	defer srv.Close()

	c := NewKeywordResearchClient(HTTPConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second})
	got, err := c.BulkKeywordResearch(context.Background(), []string{"dentist austin"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 900, got[0].Volume)
	require.NotNil(t, got[0].Difficulty)
	assert.Equal(t, 41, *got[0].Difficulty)
}

func TestKeywordResearchClient_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"keyword":"teeth whitening","volume":300}]}`))
	}))
	defer srv.Close()

	c := NewKeywordResearchClient(HTTPConfig{BaseURL: srv.URL, Timeout: time.Second, RetryCount: 2})
	got, err := c.CompetitorKeywords(context.Background(), "rival.example")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Nil(t, got[0].Difficulty)
	assert.Equal(t, int32(2), hits.Load())
}

func TestKeywordResearchClient_NonSuccessIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewKeywordResearchClient(HTTPConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.CompetitorKeywords(context.Background(), "rival.example")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeProviderUnavailable))
}

func TestSearchConsoleClient_TopQueriesWithToken(t *testing.T) {
	t.Setenv("SC_REFRESH", "refresh-123")

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh-123", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "/sites/sc-domain:smiles.example/searchAnalytics/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"keys":["emergency dentist"],"clicks":12,"impressions":340}]}`))
	}))
	defer apiSrv.Close()

	creds := NewOAuthCredentials("id", "secret", tokenSrv.URL, EnvSecrets{})
	c := NewSearchConsoleClient(HTTPConfig{BaseURL: apiSrv.URL, Timeout: time.Second}, creds)
	client := models.Client{ID: "c1", SearchConsoleSite: "sc-domain:smiles.example", CredentialRef: "env:SC_REFRESH"}

	got, err := c.TopQueries(context.Background(), client, Trailing(time.Now(), 90))
	require.NoError(t, err)
	assert.Equal(t, []QueryStat{{Query: "emergency dentist", Clicks: 12, Impressions: 340}}, got)
}

func TestSearchConsoleClient_NoSite(t *testing.T) {
	c := NewSearchConsoleClient(HTTPConfig{BaseURL: "http://unused.invalid"}, nil)
	got, err := c.TopQueries(context.Background(), models.Client{ID: "c1"}, Trailing(time.Now(), 30))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOAuthCredentials_Refresh(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer tokenSrv.Close()
	t.Setenv("REVOKED", "old-token")

	creds := NewOAuthCredentials("id", "secret", tokenSrv.URL, EnvSecrets{})

	assert.NoError(t, creds.Refresh(context.Background(), models.Client{ID: "no-creds"}))

	err := creds.Refresh(context.Background(), models.Client{ID: "c1", CredentialRef: "env:REVOKED"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCredentials))

	err = creds.Refresh(context.Background(), models.Client{ID: "c2", CredentialRef: "vault:nope"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCredentials))
}
