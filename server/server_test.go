package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/plantreco/config"
	"github.com/ezoic/plantreco/feedback"
	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/recommend"
)

type fakeRecommender struct {
	got recommend.Query
	rec *recommend.Recommendation
	err error
}

func (f *fakeRecommender) Recommend(q recommend.Query) (*recommend.Recommendation, error) {
	f.got = q
	return f.rec, f.err
}

func newTestServer(t *testing.T, rec Recommender) (*Server, *feedback.Store) {
	t.Helper()
	store := feedback.NewStore(
		filepath.Join(t.TempDir(), "feedback", "feedback_utilisateurs.csv"),
		feedback.WithLogger(log.Nop()),
		feedback.WithClock(func() time.Time { return time.Date(2024, 5, 1, 14, 3, 59, 0, time.Local) }),
	)
	return New(rec, store, config.Default().Server), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPredict(t *testing.T) {
	fake := &fakeRecommender{rec: &recommend.Recommendation{
		Plante: "Pothos", Lumiere: "mi-ombre", Humidite: "3", Difficulte: "facile", InCatalog: true,
	}}
	s, _ := newTestServer(t, fake)

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/predict",
		`{"humidite": 3, "lumiere": "mi-ombre", "difficulte": "facile"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	var got recommend.Recommendation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Pothos", got.Plante)
	assert.True(t, got.InCatalog)
	assert.Equal(t, recommend.Query{Humidite: 3, Lumiere: "mi-ombre", Difficulte: "facile"}, fake.got)
}

func TestPredict_CountsOutcomes(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{rec: &recommend.Recommendation{Plante: "Pothos"}})

	okBefore := testutil.ToFloat64(PredictionsTotal.WithLabelValues(outcomeOK))
	invalidBefore := testutil.ToFloat64(PredictionsTotal.WithLabelValues(outcomeInvalid))

	do(t, s.Handler(), http.MethodPost, "/api/v1/predict", `{"humidite": 3, "lumiere": "ombre", "difficulte": "facile"}`)
	do(t, s.Handler(), http.MethodPost, "/api/v1/predict", `{"humidite": 9, "lumiere": "ombre", "difficulte": "facile"}`)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(PredictionsTotal.WithLabelValues(outcomeOK)))
	assert.Equal(t, invalidBefore+1, testutil.ToFloat64(PredictionsTotal.WithLabelValues(outcomeInvalid)))
}

func TestPredict_UnknownCategoryAccepted(t *testing.T) {
	fake := &fakeRecommender{rec: &recommend.Recommendation{Plante: "Cactus"}}
	s, _ := newTestServer(t, fake)

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/predict",
		`{"humidite": 1, "lumiere": "lune", "difficulte": "facile"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lune", fake.got.Lumiere)
}

func TestPredict_Validation(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"humidite": `, CodeBadRequest},
		{"missing humidite", `{"lumiere": "ombre", "difficulte": "facile"}`, CodeValidation},
		{"humidite too low", `{"humidite": 0, "lumiere": "ombre", "difficulte": "facile"}`, CodeValidation},
		{"humidite too high", `{"humidite": 6, "lumiere": "ombre", "difficulte": "facile"}`, CodeValidation},
		{"missing lumiere", `{"humidite": 2, "difficulte": "facile"}`, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s.Handler(), http.MethodPost, "/api/v1/predict", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestPredict_RecommenderFailure(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{err: prErrors.New("boom")})

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/predict",
		`{"humidite": 3, "lumiere": "ombre", "difficulte": "facile"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestFeedback(t *testing.T) {
	s, store := newTestServer(t, &fakeRecommender{})

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/feedback",
		`{"plante": "  Pothos ", "note": 4, "commentaire": "pousse bien"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var rec feedback.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Pothos", rec.Plante)
	assert.Equal(t, 4, rec.Note)

	records, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pousse bien", records[0].Commentaire)

	rr = do(t, s.Handler(), http.MethodGet, "/api/v1/feedback/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats feedback.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Count)
	assert.InDelta(t, 4.0, stats.MeanNote, 1e-12)
}

func TestFeedback_Rejected(t *testing.T) {
	s, store := newTestServer(t, &fakeRecommender{})

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/feedback", `{"plante": "   ", "note": 3}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, CodeEmptyPlant, body.Error.Code)
	assert.Equal(t, "Veuillez spécifier une plante", body.Error.Message)

	rr = do(t, s.Handler(), http.MethodPost, "/api/v1/feedback", `{"plante": "Pothos", "note": 9}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	records, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDiagnostic(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	rr := do(t, s.Handler(), http.MethodPost, "/api/v1/diagnostic",
		`{"feuilles_jaunes": true, "sol_humide": true}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var got recommend.Diagnosis
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, recommend.Diagnose(recommend.Symptoms{FeuillesJaunes: true, SolHumide: true}), got)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	rr := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "plantreco_http_requests_total")
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	store := feedback.NewStore(filepath.Join(t.TempDir(), "feedback.csv"), feedback.WithLogger(log.Nop()))
	cfg := config.Default().Server
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	s := New(&fakeRecommender{}, store, cfg)

	for i := 0; i < 2; i++ {
		rr := do(t, s.Handler(), http.MethodGet, "/api/v1/feedback/stats", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, s.Handler(), http.MethodGet, "/api/v1/feedback/stats", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, CodeRateLimit, body.Error.Code)

	// health checks are not limited
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/healthz", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/predict", nil)
	req.Header.Set("Origin", "https://jardin.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s, _ := newTestServer(t, &fakeRecommender{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
