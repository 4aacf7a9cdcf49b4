// fedistash/handlers/main_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fedistash/database"
	"fedistash/mastodon"
	"fedistash/models"
	"fedistash/timeline"
	"fedistash/utils"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db            *database.DatabaseService
	syncer        *timeline.Syncer
	rateLimiter   *models.RateLimiter
	logger        *slog.Logger
	adminPassHash string
	storage       utils.StorageService
}

func (a *MockApplication) DB() *database.DatabaseService    { return a.db }
func (a *MockApplication) Syncer() *timeline.Syncer         { return a.syncer }
func (a *MockApplication) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *MockApplication) Logger() *slog.Logger             { return a.logger }
func (a *MockApplication) AdminPasswordHash() string        { return a.adminPassHash }
func (a *MockApplication) Storage() utils.StorageService    { return a.storage }

// scriptedTimeline serves the same page of statuses on every fetch.
type scriptedTimeline struct {
	statuses []mastodon.Status
	err      error
}

func (s *scriptedTimeline) FetchPublicTimeline(ctx context.Context, q mastodon.TimelineQuery) ([]mastodon.Status, error) {
	if s.err != nil {
		return nil, s.err
	}
	page := s.statuses
	s.statuses = nil // one page, then empty
	return page, s.err
}

// setupTestApp creates a full application stack with a test database.
func setupTestApp(t *testing.T) (*MockApplication, *scriptedTimeline) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dbDir, err := os.MkdirTemp("", "fedistash_handler_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db?_journal_mode=WAL&_foreign_keys=on")
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	remote := &scriptedTimeline{}
	factory := func(models.Server) timeline.TimelineClient { return remote }

	app := &MockApplication{
		db:          dbService,
		syncer:      timeline.NewSyncer(dbService, factory, nil, logger),
		rateLimiter: models.NewRateLimiter(time.Millisecond, 1000, time.Hour, 24*time.Hour),
		logger:      logger,
		storage:     &utils.LocalStorage{},
	}

	t.Cleanup(func() {
		app.db.DB.Close()
		os.RemoveAll(dbDir)
	})

	return app, remote
}

func registerTestServer(t *testing.T, app *MockApplication, slug string, enabled bool) models.Server {
	t.Helper()
	if _, err := app.db.CreateServer("https://"+slug+".example", slug, slug, enabled); err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}
	s, ok := app.db.GetServerBySlug(slug)
	if !ok {
		t.Fatalf("Registered server %q not found", slug)
	}
	return s
}

func insertTestPost(t *testing.T, app *MockApplication, id, slug, content string, created time.Time) {
	t.Helper()
	p := &models.Post{
		ID:              id,
		ServerSlug:      slug,
		CreatedAt:       created,
		Content:         content,
		AccountID:       "acct-" + id,
		AccountUsername: "user-" + id,
		AccountAcct:     "user-" + id + "@" + slug + ".example",
	}
	if created, err := app.db.InsertPost(p); err != nil || !created {
		t.Fatalf("InsertPost(%s) failed: created=%v err=%v", id, created, err)
	}
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal request payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(hash)
}
