package brightdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string, maxPolls int) *Client {
	t.Helper()
	c, err := New(Config{
		Token:        "test-token",
		BaseURL:      url,
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     maxPolls,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchPollsUntilReady(t *testing.T) {
	var triggerCalls, pollCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/trigger", func(w http.ResponseWriter, r *http.Request) {
		triggerCalls++
		if r.Method != http.MethodPost {
			t.Errorf("trigger method = %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("missing bearer token")
		}
		q := r.URL.Query()
		if q.Get("dataset_id") != defaultDataset || q.Get("type") != "discover_new" ||
			q.Get("discover_by") != "keyword" || q.Get("limit_per_input") != "15" {
			t.Errorf("unexpected trigger query: %v", q)
		}
		var inputs []map[string]string
		if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil || len(inputs) != 1 {
			t.Fatalf("trigger body: %v (%v)", inputs, err)
		}
		if inputs[0]["keyword"] != "espresso machines" || inputs[0]["url"] != "https://www.amazon.de" {
			t.Errorf("trigger input = %v", inputs[0])
		}
		w.Write([]byte(`{"snapshot_id":"snap_123"}`))
	})
	mux.HandleFunc("/datasets/v3/snapshot/snap_123", func(w http.ResponseWriter, r *http.Request) {
		pollCalls++
		if pollCalls < 6 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write([]byte(`[
			{"asin":"B0AAA","title":"Espresso One","brand":"Gaggia","final_price":249.9,"currency":"EUR","rating":4.5,"reviews_count":811,"image":"https://img/1.jpg"},
			{"asin":"B0BBB","name":"Espresso Two","product_overview":"compact","initial_price":99.0}
		]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, 10)
	result, err := c.Search(context.Background(), "espresso machines", "https://www.amazon.de", 15)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if triggerCalls != 1 || pollCalls != 6 {
		t.Errorf("triggerCalls=%d pollCalls=%d, want 1 and 6", triggerCalls, pollCalls)
	}
	if result.Processing {
		t.Error("result should not be processing")
	}
	if len(result.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(result.Products))
	}

	first := result.Products[0]
	if first.ASIN != "B0AAA" || first.Name != "Espresso One" || first.Price != 249.9 {
		t.Errorf("first product = %+v", first)
	}
	second := result.Products[1]
	if second.Name != "Espresso Two" {
		t.Errorf("name fallback failed: %q", second.Name)
	}
	if second.Description != "compact" {
		t.Errorf("description fallback failed: %q", second.Description)
	}
	if second.Price != 99.0 {
		t.Errorf("initial_price fallback failed: %v", second.Price)
	}
	if second.Currency != "EUR" {
		t.Errorf("currency default failed: %q", second.Currency)
	}
}

func TestSearchTimeoutReturnsSnapshotForResume(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"snapshot_id":"snap_slow"}`))
	})
	mux.HandleFunc("/datasets/v3/snapshot/snap_slow", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, 3)
	result, err := c.Search(context.Background(), "slow", "https://www.amazon.com", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !result.Processing {
		t.Fatal("expected still-processing result")
	}
	if result.SnapshotID != "snap_slow" {
		t.Errorf("SnapshotID = %q", result.SnapshotID)
	}
	if len(result.Products) != 0 {
		t.Errorf("products = %d, want none", len(result.Products))
	}
}

func TestPollResumesExistingSnapshot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/snapshot/snap_resume", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"asin":"B0CCC","title":"Resumed"}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, 3)
	result, err := c.Poll(context.Background(), "snap_resume")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].ASIN != "B0CCC" {
		t.Errorf("result = %+v", result)
	}
}

func TestPollTerminalFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/snapshot/snap_bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"snapshot expired"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, 3)
	_, err := c.Poll(context.Background(), "snap_bad")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("expected terminal failure, got %v", err)
	}
}

func TestTriggerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 3)
	_, err := c.Search(context.Background(), "kw", "https://www.amazon.de", 5)
	if err == nil || !strings.Contains(err.Error(), "trigger failed") {
		t.Fatalf("expected trigger failure, got %v", err)
	}
}

func TestPollContextCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/snapshot/snap_ctx", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, 30)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Poll(ctx, "snap_ctx")
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}
