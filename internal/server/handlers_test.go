package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hyperjump/kotoba/internal/cache"
	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/embedding"
	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/hyperjump/kotoba/internal/metrics"
	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const sample = "It is important to note that the system is fast. Furthermore the design is simple and clean. " +
	"Moreover the team does not need to change the existing tools. In conclusion the approach is sound."

func newTestServer(t *testing.T, mutate func(*config.Config), initialize bool) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.RateLimitPerMinute = 1000
	if mutate != nil {
		mutate(cfg)
	}
	backends := make(map[humanizer.ModelClass]humanizer.Backends)
	for _, class := range humanizer.ModelClasses() {
		backends[class] = humanizer.Backends{Embedder: embedding.NewMockEmbedder(64)}
	}
	m := metrics.New(prometheus.NewRegistry())
	svc := service.New(cfg, zap.NewNop(),
		service.WithBackends(backends),
		service.WithCache(cache.NewMemory(100, time.Hour)),
		service.WithMetrics(m),
		service.WithVersion("1.2.3"),
	)
	if initialize {
		if err := svc.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = svc.Close() })
	}
	return NewServer(svc, &cfg.Server, m, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out["error"]
}

func TestHandleHumanize(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	w := do(t, h, http.MethodPost, "/api/v1/humanize", map[string]any{
		"text": sample, "tier": "balanced", "intensity": 0.5, "seed": 3,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Process-Time") == "" {
		t.Error("missing X-Process-Time header")
	}
	var resp models.HumanizeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.HumanizedText == "" || resp.Tier != "balanced" || resp.ID == "" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHandleHumanize_ModeAlias(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	w := do(t, h, http.MethodPost, "/api/v1/humanize", map[string]any{"text": sample, "mode": "quality"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.HumanizeResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Tier != "quality" {
		t.Errorf("tier = %q", resp.Tier)
	}
}

func TestHandleHumanize_BadRequests(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"text": `},
		{"unknown tier", map[string]any{"text": sample, "tier": "turbo"}},
		{"intensity out of range", map[string]any{"text": sample, "intensity": 1.5}},
		{"unknown technique", map[string]any{"text": sample, "techniques": []string{"glitter"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/humanize", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
			if msg := errorMessage(t, w); msg == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleHumanize_EmptyText(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	for _, text := range []string{"", "   "} {
		w := do(t, h, http.MethodPost, "/api/v1/humanize", map[string]any{"text": text, "tier": "quality"}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status %d body %s", text, w.Code, w.Body.String())
		}
		var resp models.HumanizeResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.HumanizedText != "" || resp.SimilarityScore != nil {
			t.Errorf("%q: resp = %+v", text, resp)
		}
	}
}

func TestHandleHumanize_NotInitialized(t *testing.T) {
	h := newTestServer(t, nil, false).Router()
	w := do(t, h, http.MethodPost, "/api/v1/humanize", map[string]any{"text": sample}, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("humanize status: got %d, want 503", w.Code)
	}
	w = do(t, h, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status: got %d, want 503", w.Code)
	}
}

func TestAPIKey(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Server.APIKey = "secret" }, true).Router()
	body := map[string]any{"text": sample, "tier": "fast"}

	if w := do(t, h, http.MethodPost, "/api/v1/humanize", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing key: got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/humanize", body, map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/humanize", body, map[string]string{"X-API-Key": "secret"}); w.Code != http.StatusOK {
		t.Errorf("valid key: got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/analyze?api_key=secret", map[string]any{"text": sample}, nil); w.Code != http.StatusOK {
		t.Errorf("query key: got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/techniques", nil, nil); w.Code != http.StatusOK {
		t.Errorf("techniques should not need a key: got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Server.RateLimitPerMinute = 2 }, true).Router()
	for i := 0; i < 2; i++ {
		if w := do(t, h, http.MethodGet, "/api/v1/techniques", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}
	w := do(t, h, http.MethodGet, "/api/v1/techniques", nil, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// another client has its own bucket
	if w := do(t, h, http.MethodGet, "/api/v1/techniques", nil, map[string]string{"X-API-Key": "other"}); w.Code != http.StatusOK {
		t.Errorf("other client: got %d", w.Code)
	}
	// unversioned health is not limited
	if w := do(t, h, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
}

func TestHandleHumanizeBatch(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) { cfg.Humanizer.MaxTextLength = 300 }, true).Router()
	w := do(t, h, http.MethodPost, "/api/v1/humanize/batch", map[string]any{
		"texts": []string{sample, strings.Repeat("Too long. ", 40), "One more sentence here.", "  "},
		"tier":  "fast",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	var resp models.BatchHumanizeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalTexts != 4 || resp.Failed != 1 || resp.Results[1].Error == "" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Results[0].Humanized == "" || resp.Results[2].Humanized == "" {
		t.Error("valid texts should be humanized")
	}
	if r := resp.Results[3]; r.Error != "" || r.Humanized != "" {
		t.Errorf("blank text should humanize to empty: %+v", r)
	}

	w = do(t, h, http.MethodPost, "/api/v1/humanize/batch", map[string]any{"texts": []string{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch: got %d", w.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	w := do(t, h, http.MethodPost, "/api/v1/analyze", map[string]any{"text": sample}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.AnalyzeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.AIProbability != "100%" || resp.Recommendation != "High humanization needed" {
		t.Errorf("resp = %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/v1/analyze/detect-and-humanize", map[string]any{"text": sample}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("detect status: got %d", w.Code)
	}
	var detect models.DetectResponse
	if err := json.NewDecoder(w.Body).Decode(&detect); err != nil {
		t.Fatal(err)
	}
	if detect.AutoSettings.Tier != "quality" || detect.Humanization == nil {
		t.Errorf("detect = %+v", detect)
	}
}

func TestHandleTechniquesAndIndex(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	w := do(t, h, http.MethodGet, "/api/v1/techniques", nil, nil)
	var resp models.TechniquesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Techniques) != 5 {
		t.Errorf("techniques = %+v", resp.Techniques)
	}

	w = do(t, h, http.MethodGet, "/api", nil, nil)
	if !strings.Contains(w.Body.String(), "/api/v1/humanize/ws") || !strings.Contains(w.Body.String(), "1.2.3") {
		t.Errorf("api index = %s", w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/v1/health", nil, nil)
	var health models.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || !health.ModelsLoaded || health.Cache != "memory" || health.Version != "1.2.3" {
		t.Errorf("health %d = %+v", w.Code, health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil, true).Router()
	do(t, h, http.MethodPost, "/api/v1/humanize", map[string]any{"text": sample, "tier": "fast"}, nil)
	w := do(t, h, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "kotoba_humanize_requests_total") {
		t.Errorf("metrics %d:\n%s", w.Code, w.Body.String())
	}
}

func TestWebSocket(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, nil, true).Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/humanize/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"text": sample, "intensity": 0.4}); err != nil {
		t.Fatal(err)
	}
	var reply models.StreamResponse
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" || reply.Humanized == "" || reply.ID == "" || reply.Timestamp.IsZero() {
		t.Errorf("reply = %+v", reply)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	reply = models.StreamResponse{}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error != "invalid message" {
		t.Errorf("bad message reply = %+v", reply)
	}

	// the session survives errors
	if err := conn.WriteJSON(map[string]any{"text": sample, "intensity": 1.5}); err != nil {
		t.Fatal(err)
	}
	reply = models.StreamResponse{}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Error == "" {
		t.Error("out-of-range intensity should produce an error reply")
	}
}

func TestProcessTimeWriter(t *testing.T) {
	h := processTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Process-Time") == "" || w.Body.String() != "ok" {
		t.Errorf("header %q body %q", w.Header().Get("X-Process-Time"), w.Body.String())
	}
}
