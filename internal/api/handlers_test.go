package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redflag-advisory-server/internal/domain"
	"github.com/redflag-advisory-server/internal/modelflag"
	"github.com/redflag-advisory-server/internal/rulestore"
	"github.com/redflag-advisory-server/internal/service"
)

type stubProvider struct {
	flags []domain.ModelFlag
	err   error
	calls int
}

func (s *stubProvider) ProposeFlags(ctx context.Context, fields domain.NoteFields) ([]domain.ModelFlag, error) {
	s.calls++
	return s.flags, s.err
}

func newTestServer(t *testing.T, provider *stubProvider) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	catalogue, report := rulestore.NewLoader(logger).Load("", "")
	matcherCfg := &domain.MatcherConfig{
		NegationWindow: 5,
		NegationCues:   []string{"no", "not", "denies", "verneint", "keine", "ohne"},
		Breakers:       []string{"but", "jedoch", "aber"},
	}
	checker, err := service.NewChecker(
		service.NewMatcher(matcherCfg, logger),
		service.NewResolver(logger),
		catalogue, report, nil, 16, logger,
	)
	require.NoError(t, err)

	cfg := &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 0},
		Logging: domain.LoggingConfig{Level: "error"},
	}

	var p modelflag.Provider
	if provider != nil {
		p = provider
	}
	srv := NewServer(cfg, checker, p, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)
	return srv
}

func doCheck(t *testing.T, srv *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleCheck(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doCheck(t, srv, CheckRequest{
		Fields: map[string]string{
			"anamnesis":  "Pat. verneint Suizidgedanken.",
			"assessment": "Hinweise auf akute Suizidalität.",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	var result domain.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Advisories)
	assert.Equal(t, domain.CategorySuicidality, result.Advisories[0].Category)
	assert.True(t, result.Degraded)

	// Audit detail stays server-side unless requested.
	for _, adv := range result.Advisories {
		assert.Empty(t, adv.Matches)
	}
}

func TestHandleCheckIncludeAudit(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doCheck(t, srv, CheckRequest{
		Fields:       map[string]string{"anamnesis": "Akute Suizidgedanken."},
		IncludeAudit: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Advisories)
	assert.NotEmpty(t, result.Advisories[0].Matches)
}

func TestHandleCheckValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("missing fields", func(t *testing.T) {
		rec := doCheck(t, srv, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field name", func(t *testing.T) {
		rec := doCheck(t, srv, CheckRequest{Fields: map[string]string{"diagnosis": "x"}})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var engineErr domain.EngineError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &engineErr))
		assert.Equal(t, domain.ErrCodeValidation, engineErr.Code)
		assert.NotEmpty(t, engineErr.RequestID)
	})
}

func TestHandleCheckClientModelFlags(t *testing.T) {
	provider := &stubProvider{}
	srv := newTestServer(t, provider)

	rec := doCheck(t, srv, CheckRequest{
		Fields:     map[string]string{"anamnesis": "Suizidgedanken."},
		ModelFlags: []domain.ModelFlag{{Category: domain.CategorySuicidality, Rationale: "extern"}},
		UseModel:   true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Degraded)
	require.NotEmpty(t, result.Advisories)
	assert.Equal(t, domain.ProvenanceBoth, result.Advisories[0].Provenance)

	// Client-supplied flags short-circuit the provider.
	assert.Zero(t, provider.calls)
}

func TestHandleCheckProviderFailureDegrades(t *testing.T) {
	provider := &stubProvider{err: errors.New("model down")}
	srv := newTestServer(t, provider)

	rec := doCheck(t, srv, CheckRequest{
		Fields:   map[string]string{"anamnesis": "Suizidgedanken."},
		UseModel: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.CheckResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Degraded)
	assert.Equal(t, 1, provider.calls)
}

func TestHandleListRules(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Rules)
	assert.NotEmpty(t, resp.Fingerprint)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 10, resp.Report.PrimaryCount)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(13), body["rules"])
}
