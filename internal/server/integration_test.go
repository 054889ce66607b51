package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kwintel/internal/cache"
	"kwintel/internal/config"
	"kwintel/internal/engine"
	"kwintel/internal/models"
	"kwintel/internal/testutil"
)

func TestBatchAgainstDatabase(t *testing.T) {
	database, cleanup := testutil.TestDB(t)
	defer cleanup()

	version := testutil.PublishSeed(t, database)
	testutil.SetMetrics(t, database, "b", models.KeywordMetrics{Clicks: 40, Cost: 120})

	snapshots := cache.New(nil, database, time.Hour)
	s := New(&config.Config{CORSOrigins: "*", MaxBatchSize: 100})
	s.RegisterRoutes(Deps{
		Engine:      engine.New(snapshots, engine.Config{}),
		Metrics:     database,
		Sink:        database,
		Suggestions: database,
		Health:      database,
	})

	post := func(t *testing.T) engine.BatchResult {
		t.Helper()
		body := `{"keywords":[{"id":"b","text":"free forex signals no deposit"},{"id":"c","text":"forex course"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/batch", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("batch request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("batch status = %d", resp.StatusCode)
		}
		var env struct {
			Data engine.BatchResult `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatal(err)
		}
		return env.Data
	}

	first := post(t)
	if first.VersionID != version {
		t.Errorf("VersionID = %d, want %d", first.VersionID, version)
	}
	if len(first.Suggestions) != 1 {
		t.Fatalf("suggestions = %+v, want one", first.Suggestions)
	}

	// Re-running merges into the same pending suggestion.
	second := post(t)
	if len(second.Suggestions) != 1 || second.Suggestions[0].ID != first.Suggestions[0].ID {
		t.Errorf("re-run created a new suggestion: %+v", second.Suggestions)
	}

	pending, err := database.ListSuggestions(context.Background(), models.SuggestionPending)
	if err != nil {
		t.Fatalf("ListSuggestions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending suggestions = %d, want 1", len(pending))
	}

	decisions, err := database.ListDecisions(context.Background(), "b", 10)
	if err != nil {
		t.Fatalf("ListDecisions() error = %v", err)
	}
	if len(decisions) != 2 || decisions[0].Action != models.ActionAddNegative {
		t.Errorf("decisions for b = %+v, want two add_negative", decisions)
	}

	// Accept, then a second review conflicts.
	path := "/api/v1/suggestions/" + first.Suggestions[0].ID.String() + "/accept"
	for _, want := range []int{http.StatusOK, http.StatusConflict} {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodPost, path, nil))
		if err != nil {
			t.Fatalf("review request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("review status = %d, want %d", resp.StatusCode, want)
		}
	}
}
