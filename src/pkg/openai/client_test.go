package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"receipt-impact/src/pkg/resilience"
)

const completedResponse = `{
	"id": "resp_123",
	"object": "response",
	"model": "gpt-4.1-mini-2025-04-14",
	"status": "completed",
	"temperature": 0.1,
	"output": [
		{"id": "msg_1", "type": "message", "role": "assistant",
		 "content": [{"type": "output_text", "text": "2500012000007 MANZANA ROJA\n"}, {"type": "output_text", "text": "7.61"}]}
	],
	"usage": {"input_tokens": 120, "input_tokens_details": {"cached_tokens": 0},
	          "output_tokens": 20, "output_tokens_details": {"reasoning_tokens": 0}, "total_tokens": 140}
}`

func testClient(serverURL string, executor *resilience.Executor) *Client {
	cfg := DefaultValueConfig()
	cfg.BaseURL = serverURL
	cfg.PollIntervalSeconds = 0.001
	cfg.PollTimeoutSeconds = 5
	return NewClient("sk-test", cfg, executor)
}

func TestCompleteSendsPromptAndTemperature(t *testing.T) {
	var got requestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(completedResponse))
	}))
	defer server.Close()

	answer, e := testClient(server.URL, nil).Complete(context.Background(), "fix this receipt", 0.1)
	if e != nil {
		t.Fatalf("Complete() error = %v", e)
	}
	if answer != "2500012000007 MANZANA ROJA\n7.61" {
		t.Fatalf("answer = %q", answer)
	}
	if got.Temperature == nil || *got.Temperature != 0.1 {
		t.Fatalf("temperature = %v, want 0.1", got.Temperature)
	}
	if got.Reasoning != nil {
		t.Fatalf("reasoning must be omitted for temperature requests")
	}
	if len(got.Input) != 1 || got.Input[0].Role != RoleUser || got.Input[0].Content != "fix this receipt" {
		t.Fatalf("input = %+v", got.Input)
	}
	if got.Model != DefaultValueConfig().Model {
		t.Fatalf("model = %q", got.Model)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(completedResponse))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 3, RetryInitialBackoffMs: 1, RetryMaxBackoffMs: 2, RetryMultiplier: 2, BreakerDisabled: true,
	})
	_, e := testClient(server.URL, executor).Complete(context.Background(), "prompt", 0.1)
	if e != nil {
		t.Fatalf("Complete() error = %v", e)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 3, RetryInitialBackoffMs: 1, RetryMaxBackoffMs: 2, RetryMultiplier: 2, BreakerDisabled: true,
	})
	_, e := testClient(server.URL, executor).Complete(context.Background(), "prompt", 0.1)
	if e == nil {
		t.Fatalf("expected an error for 401")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestSendPromptPollsBackgroundResponse(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"id":"resp_123","status":"queued","model":"gpt-4.1-mini"}`))
		case r.URL.Path == "/responses/resp_123":
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"id":"resp_123","status":"in_progress","model":"gpt-4.1-mini"}`))
				return
			}
			_, _ = w.Write([]byte(completedResponse))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	text, meta, e := testClient(server.URL, nil).SendPromptReturnResponse(context.Background(), InputParameters{
		Model:      "gpt-4.1-mini",
		Input:      []InputItem{{Role: RoleUser, Content: "hi"}},
		Background: true,
	})
	if e != nil {
		t.Fatalf("SendPromptReturnResponse() error = %v", e)
	}
	if !strings.Contains(text, "MANZANA ROJA") {
		t.Fatalf("text = %q", text)
	}
	if meta.ModelSnapshot != "2025-04-14" || meta.Model != "gpt-4.1-mini" || meta.TokensTotal != 140 {
		t.Fatalf("meta = %+v", meta)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected 2 polls, got %d", polls.Load())
	}
}

func TestSendPromptReportsFailedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"resp_9","status":"in_progress"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"resp_9","status":"failed","error":{"code":"server_error"}}`))
	}))
	defer server.Close()

	_, meta, e := testClient(server.URL, nil).SendPromptReturnResponse(context.Background(), InputParameters{Model: "m", Background: true})
	if e == nil {
		t.Fatalf("expected an error for a failed response")
	}
	if meta.ResponseID != "resp_9" {
		t.Fatalf("meta.ResponseID = %q", meta.ResponseID)
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/embeddings" || req.Input != "MANZANA ROJA" || req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected embedding request %s %+v", r.URL.Path, req)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.25,-0.5,1]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	vector, e := testClient(server.URL, nil).Embed(context.Background(), "MANZANA ROJA")
	if e != nil {
		t.Fatalf("Embed() error = %v", e)
	}
	if len(vector) != 3 || vector[1] != -0.5 {
		t.Fatalf("vector = %v", vector)
	}
}

func TestEmbedRejectsEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if _, e := testClient(server.URL, nil).Embed(context.Background(), "x"); e == nil {
		t.Fatalf("expected an error for an empty embedding")
	}
}

func TestSplitModelSnapshot(t *testing.T) {
	tests := []struct {
		model, base, snapshot string
	}{
		{"gpt-5-nano-2025-08-07", "gpt-5-nano", "2025-08-07"},
		{"gpt-4.1-mini", "gpt-4.1-mini", ""},
		{"gpt-5-nano-rc1", "gpt-5-nano-rc1", ""},
		{" gpt-4.1-2025-04-14 ", "gpt-4.1", "2025-04-14"},
	}
	for _, tt := range tests {
		base, snapshot := SplitModelSnapshot(tt.model)
		if base != tt.base || snapshot != tt.snapshot {
			t.Errorf("SplitModelSnapshot(%q) = (%q, %q), want (%q, %q)", tt.model, base, snapshot, tt.base, tt.snapshot)
		}
	}
}

func TestParseEffort(t *testing.T) {
	effort, err := ParseEffort(" Low ")
	if err != nil || effort == nil || *effort != EffortLow {
		t.Fatalf("ParseEffort(Low) = %v, %v", effort, err)
	}
	if effort, err := ParseEffort(""); effort != nil || err != nil {
		t.Fatalf("ParseEffort(\"\") = %v, %v", effort, err)
	}
	if _, err := ParseEffort("extreme"); err == nil {
		t.Fatal("expected unknown effort to fail")
	}
}
