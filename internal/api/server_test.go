package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/dictionary"
	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
	"github.com/shaitools891-svg/ME-Dictionary/internal/quiet"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler/schedtest"
	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

type apiFixture struct {
	server  *Server
	handler http.Handler
	store   *dictionary.MemoryStore
	repo    *settings.MemoryRepo
	quiet   *quiet.Service
	clock   *schedtest.FakeClock
	metrics *metrics.Collector
}

// setupAPI builds a server around a memory store and a fake clock at 12:45 UTC
func setupAPI(t *testing.T, mutate func(*Config)) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store:   dictionary.NewMemoryStore(),
		repo:    settings.NewMemoryRepo(),
		clock:   schedtest.NewFakeClock(time.Date(2026, 3, 2, 12, 45, 0, 0, time.UTC)),
		metrics: metrics.NewCollector(),
	}
	f.quiet = quiet.NewService(quiet.ServiceConfig{
		Repo: f.repo,
		WatcherOptions: []scheduler.Option{
			scheduler.WithClock(f.clock),
			scheduler.WithLocation(time.UTC),
		},
		Logger:  &logger.NoOpLogger{},
		Metrics: f.metrics,
	})
	t.Cleanup(f.quiet.Close)

	cfg := Config{
		Store:    f.store,
		Settings: f.repo,
		Quiet:    f.quiet,
		Logger:   &logger.NoOpLogger{},
		Metrics:  f.metrics,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.server = NewServer(cfg)
	f.handler = f.server.Handler()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("Expected status %d, got %d (%s)", status, rec.Code, rec.Body.String())
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["error"] != msg {
		t.Errorf("Expected error %q, got %q", msg, body["error"])
	}
}

func TestSearchDictionary(t *testing.T) {
	f := setupAPI(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
		words  []string
		errMsg string
	}{
		{name: "missing query", path: "/api/dictionary/search", status: http.StatusBadRequest, errMsg: "Query parameter is required"},
		{name: "english default", path: "/api/dictionary/search?query=hel", status: http.StatusOK, words: []string{"hello"}},
		{name: "bangla", path: "/api/dictionary/search?query=%E0%A6%AC%E0%A6%87&language=bn", status: http.StatusOK, words: []string{"বই"}},
		{name: "no results", path: "/api/dictionary/search?query=xyz", status: http.StatusOK, words: []string{}},
		{name: "bad language", path: "/api/dictionary/search?query=a&language=fr", status: http.StatusBadRequest, errMsg: "Unsupported language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil)
			if tt.errMsg != "" {
				expectError(t, rec, tt.status, tt.errMsg)
				return
			}
			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			var entries []dictionary.Entry
			decodeBody(t, rec, &entries)
			if len(entries) != len(tt.words) {
				t.Fatalf("Expected %d entries, got %d", len(tt.words), len(entries))
			}
			for i, e := range entries {
				if e.Word != tt.words[i] {
					t.Errorf("Expected %q, got %q", tt.words[i], e.Word)
				}
			}
		})
	}
}

func TestGetEntry(t *testing.T) {
	f := setupAPI(t, nil)

	results, _ := f.store.Search(context.Background(), "book", dictionary.LangEnglish)
	rec := f.do(t, http.MethodGet, "/api/dictionary/"+results[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var entry dictionary.Entry
	decodeBody(t, rec, &entry)
	if entry.Word != "book" {
		t.Errorf("Expected book, got %q", entry.Word)
	}

	expectError(t, f.do(t, http.MethodGet, "/api/dictionary/nope", nil), http.StatusNotFound, "Dictionary entry not found")
}

func TestCustomWordsLifecycle(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/api/custom-words", map[string]string{
		"userId":            "u1",
		"englishWord":       "river",
		"banglaTranslation": "নদী",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var word dictionary.CustomWord
	decodeBody(t, rec, &word)

	rec = f.do(t, http.MethodGet, "/api/custom-words/u1", nil)
	var words []dictionary.CustomWord
	decodeBody(t, rec, &words)
	if len(words) != 1 || words[0].ID != word.ID {
		t.Fatalf("Expected the created word in the list, got %+v", words)
	}

	rec = f.do(t, http.MethodPut, "/api/custom-words/"+word.ID, map[string]string{"definition": "A large stream"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	decodeBody(t, rec, &word)
	if word.Definition != "A large stream" {
		t.Errorf("Expected updated definition, got %q", word.Definition)
	}

	if rec := f.do(t, http.MethodDelete, "/api/custom-words/"+word.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	expectError(t, f.do(t, http.MethodDelete, "/api/custom-words/"+word.ID, nil), http.StatusNotFound, "Custom word not found")
	expectError(t, f.do(t, http.MethodPut, "/api/custom-words/"+word.ID, map[string]string{}), http.StatusNotFound, "Custom word not found")
}

func TestCreateCustomWord_Invalid(t *testing.T) {
	f := setupAPI(t, nil)

	expectError(t, f.do(t, http.MethodPost, "/api/custom-words", `{"userId":`), http.StatusBadRequest, "Invalid custom word data")
	expectError(t, f.do(t, http.MethodPost, "/api/custom-words", map[string]string{"userId": "u1"}), http.StatusBadRequest, "Invalid custom word data")
}

func TestPrayerSettings_GetCreatesDefaults(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/prayer-settings/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var cfg settings.Settings
	decodeBody(t, rec, &cfg)
	if cfg.UserID != "u1" || cfg.Enabled || len(cfg.Prayers) != 5 {
		t.Errorf("Expected disabled defaults for u1, got %+v", cfg)
	}

	if _, err := f.repo.Get(context.Background(), "u1"); err != nil {
		t.Errorf("Expected defaults to be stored, got %v", err)
	}
}

func TestPrayerSettings_PutDrivesWatcher(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodPut, "/api/prayer-settings/u1", map[string]interface{}{
		"enabled":      true,
		"dhuhrEnabled": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/quiet/u1", nil)
	var view quiet.View
	decodeBody(t, rec, &view)
	if !view.Status.Active || view.Status.Interval != "Dhuhr" {
		t.Errorf("Expected Dhuhr active at 12:45, got %v", view.Status)
	}
	if !view.IndicatorShown {
		t.Error("Expected indicator to be shown")
	}

	// Leaving the window is picked up on the next tick
	f.clock.Advance(16 * time.Minute)
	rec = f.do(t, http.MethodGet, "/api/quiet/u1", nil)
	decodeBody(t, rec, &view)
	if view.Status.Active {
		t.Errorf("Expected inactive at 13:01, got %v", view.Status)
	}
}

func TestPrayerSettings_PutInvalid(t *testing.T) {
	f := setupAPI(t, nil)

	expectError(t, f.do(t, http.MethodPut, "/api/prayer-settings/u1", `not json`), http.StatusBadRequest, "Invalid prayer settings data")
	expectError(t, f.do(t, http.MethodPut, "/api/prayer-settings/u1", map[string]interface{}{
		"prayers": map[string]interface{}{"tahajjud": map[string]bool{"enabled": true}},
	}), http.StatusBadRequest, "Invalid prayer settings data")
}

func TestQuietControls(t *testing.T) {
	f := setupAPI(t, nil)

	expectError(t, f.do(t, http.MethodPost, "/api/quiet/u1/dismiss", nil), http.StatusNotFound, "Quiet watcher not found")
	expectError(t, f.do(t, http.MethodDelete, "/api/quiet/u1", nil), http.StatusNotFound, "Quiet watcher not found")

	if rec := f.do(t, http.MethodPost, "/api/quiet/u1/reload", nil); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from reload, got %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/quiet", nil)
	var list map[string][]string
	decodeBody(t, rec, &list)
	if len(list["users"]) != 1 || list["users"][0] != "u1" {
		t.Errorf("Expected [u1], got %v", list["users"])
	}

	if rec := f.do(t, http.MethodPost, "/api/quiet/u1/dismiss", nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 from dismiss, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/api/quiet/u1", nil); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 from detach, got %d", rec.Code)
	}
	if users := f.quiet.Users(); len(users) != 0 {
		t.Errorf("Expected no watchers after detach, got %v", users)
	}
}

func TestQuietClosed(t *testing.T) {
	f := setupAPI(t, nil)
	f.quiet.Close()

	expectError(t, f.do(t, http.MethodGet, "/api/quiet/u1", nil), http.StatusServiceUnavailable, "Quiet service is shutting down")
}

func TestLatestEvent(t *testing.T) {
	t.Run("publishing disabled", func(t *testing.T) {
		f := setupAPI(t, nil)
		expectError(t, f.do(t, http.MethodGet, "/api/quiet/u1/latest", nil), http.StatusNotFound, "Status publishing is disabled")
	})

	t.Run("published", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		pub := quiet.NewPublisher(client, quiet.PublisherConfig{LockTTL: time.Minute}, &logger.NoOpLogger{}, metrics.NewCollector())
		t.Cleanup(pub.Close)

		f := setupAPI(t, func(c *Config) { c.Publisher = pub })
		expectError(t, f.do(t, http.MethodGet, "/api/quiet/u1/latest", nil), http.StatusNotFound, "No published status")

		if _, err := pub.Publish(context.Background(), "u1", scheduler.Status{Active: true, Interval: "Asr"}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		rec := f.do(t, http.MethodGet, "/api/quiet/u1/latest", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var event map[string]interface{}
		decodeBody(t, rec, &event)
		if event["interval"] != "Asr" || event["active"] != true {
			t.Errorf("Unexpected event: %v", event)
		}
	})
}

func TestOfflinePackages(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/offline-packages", nil)
	var pkgs []dictionary.Package
	decodeBody(t, rec, &pkgs)
	if len(pkgs) != 4 {
		t.Fatalf("Expected 4 packages, got %d", len(pkgs))
	}

	rec = f.do(t, http.MethodPut, "/api/offline-packages/"+pkgs[1].ID, map[string]bool{"isDownloaded": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var pkg dictionary.Package
	decodeBody(t, rec, &pkg)
	if !pkg.IsDownloaded || pkg.DownloadedAt == nil {
		t.Errorf("Expected package downloaded with timestamp, got %+v", pkg)
	}

	expectError(t, f.do(t, http.MethodPut, "/api/offline-packages/nope", map[string]bool{"isDownloaded": true}), http.StatusNotFound, "Offline package not found")
}

func TestUsers(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodPost, "/api/users", map[string]string{"username": "rahim"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var user dictionary.User
	decodeBody(t, rec, &user)
	if user.Theme != dictionary.ThemeLight || user.CurrentLanguage != dictionary.LangEnglish {
		t.Errorf("Expected default preferences, got %+v", user)
	}

	expectError(t, f.do(t, http.MethodPost, "/api/users", map[string]string{"username": "rahim"}), http.StatusConflict, "Username already taken")
	expectError(t, f.do(t, http.MethodPost, "/api/users", map[string]string{"theme": "dark"}), http.StatusBadRequest, "Invalid user data")

	rec = f.do(t, http.MethodPut, "/api/users/"+user.ID, map[string]string{"theme": "dark"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/users/"+user.ID, nil)
	decodeBody(t, rec, &user)
	if user.Theme != dictionary.ThemeDark {
		t.Errorf("Expected dark theme, got %s", user.Theme)
	}

	expectError(t, f.do(t, http.MethodGet, "/api/users/nope", nil), http.StatusNotFound, "User not found")
	expectError(t, f.do(t, http.MethodPut, "/api/users/"+user.ID, map[string]string{"currentLanguage": "fr"}), http.StatusBadRequest, "Invalid user data")
}

func TestHealthz(t *testing.T) {
	f := setupAPI(t, nil)
	if rec := f.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	down := setupAPI(t, func(c *Config) {
		c.Health = func(context.Context) error { return errors.New("redis unreachable") }
	})
	rec := down.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestMiddleware_MetricsAndRequestID(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/dictionary/search?query=hello", nil)
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/offline-packages", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}

	f.do(t, http.MethodGet, "/nowhere", nil)

	m := f.metrics.GetMetrics()
	if m.HTTPRequests != 3 {
		t.Errorf("Expected 3 requests, got %d", m.HTTPRequests)
	}
	if m.RequestsByRoute["GET /api/dictionary/search"] != 1 {
		t.Errorf("Expected search route counted once, got %v", m.RequestsByRoute)
	}
	if m.RequestsByRoute["unmatched"] != 1 {
		t.Errorf("Expected one unmatched request, got %v", m.RequestsByRoute)
	}

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	var snapshot metrics.Metrics
	decodeBody(t, rec, &snapshot)
	if snapshot.HTTPRequests != 3 {
		t.Errorf("Expected snapshot to report 3 requests, got %d", snapshot.HTTPRequests)
	}
}

func TestMiddleware_RecoversPanics(t *testing.T) {
	f := setupAPI(t, nil)
	f.server.mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	expectError(t, f.do(t, http.MethodGet, "/boom", nil), http.StatusInternalServerError, "Internal server error")
	if m := f.metrics.GetMetrics(); m.HTTPErrors != 1 {
		t.Errorf("Expected 1 HTTP error, got %d", m.HTTPErrors)
	}
}

func TestRoutes(t *testing.T) {
	f := setupAPI(t, nil)

	rec := f.do(t, http.MethodGet, "/api/routes", nil)
	var routes []RouteDoc
	decodeBody(t, rec, &routes)
	if len(routes) != len(f.server.Routes()) {
		t.Fatalf("Expected %d routes, got %d", len(f.server.Routes()), len(routes))
	}
	found := false
	for _, r := range routes {
		if r.Method == http.MethodPut && strings.HasPrefix(r.Pattern, "/api/prayer-settings/") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the prayer settings update route to be listed")
	}
}
