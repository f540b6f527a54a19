package motivation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFallbackWithoutAPIKey(t *testing.T) {
	svc := NewService(Config{})

	day := time.Date(2026, 3, 5, 12, 0, 0, 0, time.Local)
	q := svc.Get(day, "Struggling")
	if q.Text == "" {
		t.Fatal("expected a fallback quote")
	}
	if q.Generated {
		t.Error("fallback quote should not be marked generated")
	}
}

func TestGetStableWithinDay(t *testing.T) {
	svc := NewService(Config{})

	day := time.Date(2026, 3, 5, 8, 0, 0, 0, time.Local)
	first := svc.Get(day, "Neutral")
	second := svc.Get(day, "Neutral")
	if first != second {
		t.Errorf("same day and mood should return the same quote: %v vs %v", first, second)
	}
}

func TestGetVariesByMood(t *testing.T) {
	svc := NewService(Config{})

	day := time.Date(2026, 3, 5, 8, 0, 0, 0, time.Local)
	a := svc.Get(day, "Strong")
	b := svc.Get(day, "Struggling")
	// Different cache keys; entries must not collide.
	if len(svc.cached) != 2 {
		t.Errorf("expected 2 cache entries, got %d", len(svc.cached))
	}
	_ = a
	_ = b
}

func TestFetchFromAPI(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}

		var resp generateResponse
		resp.Candidates = make([]struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}, 1)
		resp.Candidates[0].Content.Parts = append(resp.Candidates[0].Content.Parts, struct {
			Text string `json:"text"`
		}{Text: "One day at a time."})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := NewService(Config{APIKey: "test-key"})
	svc.baseURL = server.URL

	q := svc.Get(time.Date(2026, 3, 5, 8, 0, 0, 0, time.Local), "Struggling")
	if q.Text != "One day at a time." {
		t.Errorf("quote = %q, want API text", q.Text)
	}
	if !q.Generated {
		t.Error("API quote should be marked generated")
	}
	if !strings.Contains(gotPrompt, "Struggling") {
		t.Errorf("prompt = %q, want mood included", gotPrompt)
	}
}

func TestFetchErrorFallsBack(t *testing.T) {
	svc := NewService(Config{APIKey: "test-key"})
	svc.baseURL = "http://127.0.0.1:1"

	q := svc.Get(time.Date(2026, 3, 5, 8, 0, 0, 0, time.Local), "")
	if q.Text == "" {
		t.Fatal("expected fallback quote on API failure")
	}
	if q.Generated {
		t.Error("fallback quote should not be marked generated")
	}
}
