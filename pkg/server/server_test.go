package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/pario-ai/quill/pkg/action"
	"github.com/pario-ai/quill/pkg/cache"
	"github.com/pario-ai/quill/pkg/kv"
	"github.com/pario-ai/quill/pkg/models"
	"github.com/pario-ai/quill/pkg/provider"
)

func setupServer(t *testing.T, p provider.Provider) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := &action.Services{
		Cache:        cache.New(kv.NewMemoryStore(), cache.Config{Enabled: true, TTL: time.Hour, MaxEntries: 10}),
		Orchestrator: provider.NewOrchestrator([]provider.Provider{p}, provider.WithLogger(logger)),
		Limits:       action.DefaultLimits,
	}
	srv := New(":0", action.NewRouter(svc, action.WithLogger(logger)), WithLogger(logger))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func okProvider() provider.Provider {
	return provider.NewFunc("stub", func(context.Context, string, provider.Params) (string, error) {
		return "Rewritten text.", nil
	})
}

func decode(t *testing.T, resp *http.Response) models.ActionResponse {
	t.Helper()
	defer resp.Body.Close()
	var out models.ActionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestPostAction(t *testing.T) {
	ts := setupServer(t, okProvider())

	body := `{"action":"rewrite","text":"make this sound better","options":{"style":"formal"},"requestId":"abc"}`
	resp, err := http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	out := decode(t, resp)
	if !out.Success || out.RequestID != "abc" {
		t.Fatalf("unexpected response: %+v", out)
	}
	data := out.Data.(map[string]any)
	if data["rewritten"] != "Rewritten text." || data["style"] != "formal" || data["provider"] != "stub" {
		t.Errorf("unexpected data: %v", data)
	}
}

func TestPostActionInPath(t *testing.T) {
	ts := setupServer(t, okProvider())

	resp, err := http.Post(ts.URL+"/v1/actions/explain", "application/json",
		strings.NewReader(`{"text":"why is the sky blue?"}`))
	if err != nil {
		t.Fatal(err)
	}
	out := decode(t, resp)
	if !out.Success || out.Metadata.Action != models.ActionExplain {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestStatusMapping(t *testing.T) {
	down := provider.NewFunc("down", func(context.Context, string, provider.Params) (string, error) {
		return "", errors.New("unavailable")
	})
	ts := setupServer(t, down)

	tests := []struct {
		name   string
		body   string
		status int
		prefix string
	}{
		{"unknown action", `{"action":"bogus"}`, http.StatusBadRequest, "Unknown action: bogus"},
		{"missing text", `{"action":"summarize"}`, http.StatusBadRequest, "Validation error: "},
		{"short text", `{"action":"summarize","text":"hi"}`, http.StatusBadRequest, "INSUFFICIENT_CONTEXT: "},
		{"bad json", `{"action":`, http.StatusBadRequest, "Validation error: invalid request body"},
		{"providers down", `{"action":"summarize","text":"plenty of text here"}`, http.StatusBadGateway, "AI service unavailable: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			out := decode(t, resp)
			if out.Success || !strings.HasPrefix(out.Error, tt.prefix) {
				t.Errorf("unexpected envelope: %+v", out)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupServer(t, okProvider())

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/actions", strings.NewReader(`{"action":"health"}`))
	req.Header.Set("X-Request-Id", "from-header")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if out := decode(t, resp); out.RequestID != "from-header" {
		t.Errorf("expected header request id, got %q", out.RequestID)
	}
}

func TestRejectedRequestGetsRequestID(t *testing.T) {
	ts := setupServer(t, okProvider())

	seen := make(map[string]bool)
	for range 2 {
		resp, err := http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(`{not json`))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		out := decode(t, resp)
		if out.RequestID == "" {
			t.Fatal("rejected request should still carry a request id")
		}
		if !strings.HasPrefix(out.Error, "Validation error: invalid request body") {
			t.Errorf("unexpected error: %q", out.Error)
		}
		seen[out.RequestID] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected distinct request ids, got %v", seen)
	}
}

func TestOversizeBodyGetsRequestID(t *testing.T) {
	svc := &action.Services{Limits: action.DefaultLimits}
	ts := httptest.NewServer(New(":0", action.NewRouter(svc), WithMaxBodyBytes(16)))
	t.Cleanup(ts.Close)

	body := `{"action":"summarize","text":"` + strings.Repeat("x", 64) + `"}`
	resp, err := http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
	if out := decode(t, resp); out.RequestID == "" || out.Success {
		t.Errorf("unexpected envelope: %+v", out)
	}
}

func TestCacheEndpoints(t *testing.T) {
	ts := setupServer(t, okProvider())

	body := `{"action":"rewrite","text":"cache me if you can"}`
	for range 2 {
		resp, err := http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/v1/cache/stats")
	if err != nil {
		t.Fatal(err)
	}
	var stats models.CacheStats
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if stats.TotalEntries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/cache", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var cleared action.ClearResult
	json.NewDecoder(resp.Body).Decode(&cleared)
	resp.Body.Close()
	if !cleared.Cleared {
		t.Error("expected cleared")
	}
}

func TestHealthzAndActions(t *testing.T) {
	ts := setupServer(t, okProvider())

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var h action.HealthResult
	json.NewDecoder(resp.Body).Decode(&h)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || h.Status != "ok" || h.Providers[0] != "stub" {
		t.Errorf("unexpected health: %d %+v", resp.StatusCode, h)
	}

	resp, err = http.Get(ts.URL + "/v1/actions")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Actions []string `json:"actions"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list.Actions) != 9 {
		t.Errorf("expected 9 actions, got %v", list.Actions)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t, okProvider())

	http.Post(ts.URL+"/v1/actions", "application/json", strings.NewReader(`{"action":"health"}`))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "quill_action_requests_total") {
		t.Error("expected quill metrics to be exported")
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	svc := &action.Services{Limits: action.DefaultLimits}
	srv := New("127.0.0.1:0", action.NewRouter(svc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
