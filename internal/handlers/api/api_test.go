package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"kwintel/internal/db"
	"kwintel/internal/dictionary"
	"kwintel/internal/engine"
	"kwintel/internal/models"
)

type seedRepo struct {
	snap *dictionary.Snapshot
	err  error
}

func (r seedRepo) LoadSnapshot(context.Context, *int64) (*dictionary.Snapshot, error) {
	return r.snap, r.err
}

func (r seedRepo) ListVersions(context.Context) ([]int64, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []int64{r.snap.VersionID()}, nil
}

type fakeStore struct {
	metrics     map[string]models.KeywordMetrics
	decisions   []models.ActionDecision
	suggestions []models.LeakageSuggestion
	updateErr   error
}

func (f *fakeStore) GetMetrics(_ context.Context, id string) (*models.KeywordMetrics, error) {
	m, ok := f.metrics[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) SaveDecisions(_ context.Context, d []models.ActionDecision) error {
	f.decisions = append(f.decisions, d...)
	return nil
}

func (f *fakeStore) SaveSuggestions(_ context.Context, s []models.LeakageSuggestion) ([]models.LeakageSuggestion, error) {
	out := make([]models.LeakageSuggestion, len(s))
	for i := range s {
		out[i] = s[i]
		out[i].ID = uuid.New()
	}
	f.suggestions = append(f.suggestions, out...)
	return out, nil
}

func (f *fakeStore) ListSuggestions(_ context.Context, status string) ([]models.LeakageSuggestion, error) {
	var out []models.LeakageSuggestion
	for _, s := range f.suggestions {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSuggestionStatus(_ context.Context, id uuid.UUID, status string) (*models.LeakageSuggestion, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.suggestions {
		if f.suggestions[i].ID == id {
			f.suggestions[i].Status = status
			return &f.suggestions[i], nil
		}
	}
	return nil, db.ErrSuggestionNotFound
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newTestApp(t *testing.T, repo engine.SnapshotRepository, store *fakeStore) *fiber.App {
	t.Helper()
	eng := engine.New(repo, engine.Config{Workers: 2})
	kh := NewKeywordHandler(eng, store, store, 3)
	sh := NewSuggestionHandler(store)

	app := fiber.New()
	app.Post("/normalize", kh.Normalize)
	app.Post("/classify", kh.Classify)
	app.Post("/decide", kh.Decide)
	app.Post("/batch", kh.Batch)
	app.Get("/versions", kh.Versions)
	app.Get("/suggestions", sh.List)
	app.Post("/suggestions/:id/accept", sh.Accept)
	app.Post("/suggestions/:id/dismiss", sh.Dismiss)
	return app
}

func seed(t *testing.T) seedRepo {
	t.Helper()
	snap, err := dictionary.SeedSnapshot(1)
	if err != nil {
		t.Fatalf("SeedSnapshot() error = %v", err)
	}
	return seedRepo{snap: snap}
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func TestNormalize(t *testing.T) {
	app := newTestApp(t, seed(t), &fakeStore{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantNorm   string
	}{
		{name: "english", body: `{"text":"  FREE Forex!! "}`, wantStatus: http.StatusOK, wantNorm: "free forex"},
		{name: "arabic", body: `{"text":"تداول الفوركس","language":"ar"}`, wantStatus: http.StatusOK, wantNorm: "تداول الفوركس"},
		{name: "bad language", body: `{"text":"forex","language":"fr"}`, wantStatus: http.StatusBadRequest},
		{name: "bad body", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, http.MethodPost, "/normalize", tt.body)
			if code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", code, tt.wantStatus, env.Error)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var nt models.NormalizedTerm
			if err := json.Unmarshal(env.Data, &nt); err != nil {
				t.Fatal(err)
			}
			if nt.Normalized != tt.wantNorm {
				t.Errorf("Normalized = %q, want %q", nt.Normalized, tt.wantNorm)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	app := newTestApp(t, seed(t), &fakeStore{})

	code, env := do(t, app, http.MethodPost, "/classify", `{"keyword":{"id":"k1","text":"free forex signals"}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, env.Error)
	}
	var pk models.ProcessedKeyword
	if err := json.Unmarshal(env.Data, &pk); err != nil {
		t.Fatal(err)
	}
	if pk.FinalCategory != models.CategoryNoMoneyIntent {
		t.Errorf("FinalCategory = %s, want no_money_intent", pk.FinalCategory)
	}
	if pk.VersionID != 1 {
		t.Errorf("VersionID = %d, want 1", pk.VersionID)
	}
}

func TestSnapshotUnavailable(t *testing.T) {
	app := newTestApp(t, seedRepo{err: errors.New("db down")}, &fakeStore{})

	for _, path := range []string{"/classify", "/decide", "/batch"} {
		t.Run(path, func(t *testing.T) {
			code, env := do(t, app, http.MethodPost, path, `{"keyword":{"id":"k1","text":"forex"},"keywords":[{"id":"k1","text":"forex"}]}`)
			if code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", code)
			}
			if env.Error != "classification unavailable" {
				t.Errorf("error = %q", env.Error)
			}
		})
	}

	code, _ := do(t, app, http.MethodGet, "/versions", "")
	if code != http.StatusServiceUnavailable {
		t.Errorf("versions status = %d, want 503", code)
	}
}

func TestDecide_UsesStoredMetrics(t *testing.T) {
	store := &fakeStore{metrics: map[string]models.KeywordMetrics{
		"k1": {Clicks: 10, Cost: 500},
	}}
	app := newTestApp(t, seed(t), store)

	code, env := do(t, app, http.MethodPost, "/decide", `{"keyword":{"id":"k1","text":"open account forex broker"}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, env.Error)
	}
	var resp decideResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Decision.Action != models.ActionAdjustAdCopy {
		t.Errorf("Action = %s, want adjust_ad_copy", resp.Decision.Action)
	}

	// Inline metrics take precedence.
	code, env = do(t, app, http.MethodPost, "/decide", `{"keyword":{"id":"k1","text":"open account forex broker"},"metrics":{"cost":5}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, env.Error)
	}
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Decision.Action != models.ActionNoAction {
		t.Errorf("Action = %s, want no_action", resp.Decision.Action)
	}
}

func TestBatch_PersistsAndMerges(t *testing.T) {
	store := &fakeStore{}
	app := newTestApp(t, seed(t), store)

	body := `{
		"keywords": [
			{"id":"b","text":"free forex signals no deposit"},
			{"id":"c","text":"forex trading course university"}
		],
		"metrics": {"b": {"clicks": 40, "cost": 120}}
	}`
	code, env := do(t, app, http.MethodPost, "/batch", body)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, env.Error)
	}
	var res engine.BatchResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if len(store.decisions) != 2 {
		t.Errorf("saved %d decisions, want 2", len(store.decisions))
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].CandidateText != "free" {
		t.Fatalf("suggestions = %+v, want one for \"free\"", res.Suggestions)
	}
	if res.Suggestions[0].ID == uuid.Nil {
		t.Error("response does not carry the merged suggestion id")
	}
}

func TestBatch_Limits(t *testing.T) {
	app := newTestApp(t, seed(t), &fakeStore{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty", body: `{"keywords":[]}`, want: http.StatusBadRequest},
		{name: "too large", body: `{"keywords":[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"}]}`, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, env := do(t, app, http.MethodPost, "/batch", tt.body); code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, env.Error)
			}
		})
	}
}

func TestSuggestionReview(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{suggestions: []models.LeakageSuggestion{
		{ID: id, CandidateText: "free", SuggestedScope: models.SuggestScopeAccount, Status: models.SuggestionPending},
	}}
	app := newTestApp(t, seed(t), store)

	code, env := do(t, app, http.MethodGet, "/suggestions?status=pending", "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d (%s)", code, env.Error)
	}
	var list []models.LeakageSuggestion
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("listed %d pending suggestions, want 1", len(list))
	}

	code, _ = do(t, app, http.MethodPost, "/suggestions/"+id.String()+"/accept", "")
	if code != http.StatusOK {
		t.Fatalf("accept status = %d", code)
	}
	if store.suggestions[0].Status != models.SuggestionAccepted {
		t.Errorf("Status = %s, want accepted", store.suggestions[0].Status)
	}

	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{name: "bad status filter", path: "/suggestions?status=open", want: http.StatusBadRequest},
		{name: "bad id", path: "/suggestions/nope/dismiss", want: http.StatusBadRequest},
		{name: "missing", path: "/suggestions/" + uuid.NewString() + "/dismiss", want: http.StatusNotFound},
		{name: "already reviewed", path: "/suggestions/" + id.String() + "/dismiss", err: db.ErrSuggestionClosed, want: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.updateErr = tt.err
			method := http.MethodPost
			if strings.HasPrefix(tt.path, "/suggestions?") {
				method = http.MethodGet
			}
			if code, env := do(t, app, method, tt.path, ""); code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, env.Error)
			}
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		want   int
	}{
		{name: "no database", pinger: nil, want: http.StatusOK},
		{name: "healthy", pinger: fakePinger{}, want: http.StatusOK},
		{name: "unreachable", pinger: fakePinger{err: errors.New("refused")}, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/healthz", NewHealthHandler(tt.pinger).Healthz)
			if code, _ := do(t, app, http.MethodGet, "/healthz", ""); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}
