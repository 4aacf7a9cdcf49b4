// fedistash/handlers/timeline_test.go
package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fedistash/mastodon"
	"fedistash/models"
)

func TestHandleTimelineSync(t *testing.T) {
	app, remote := setupTestApp(t)
	registerTestServer(t, app, "example", true)
	remote.statuses = []mastodon.Status{
		{
			ID:        "10",
			CreatedAt: time.Now().UTC(),
			Content:   "<p>hello</p>",
			Language:  "en",
			Account:   mastodon.Account{ID: "a1", Username: "alice"},
		},
	}

	rec := httptest.NewRecorder()
	HandleTimelineSync(rec, httptest.NewRequest("POST", "/api/timeline-sync?server=example", nil), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	decodeResponse(t, rec, &resp)
	if resp["newPosts"] != 1 {
		t.Errorf("Expected 1 new post, got %d", resp["newPosts"])
	}
}

func TestHandleTimelineSyncValidation(t *testing.T) {
	app, _ := setupTestApp(t)
	registerTestServer(t, app, "paused", false)

	cases := []struct {
		name string
		url  string
		code int
	}{
		{"missing server", "/api/timeline-sync", http.StatusBadRequest},
		{"unknown server", "/api/timeline-sync?server=nowhere", http.StatusNotFound},
		{"disabled server", "/api/timeline-sync?server=paused", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleTimelineSync(rec, httptest.NewRequest("POST", tc.url, nil), app)
			if rec.Code != tc.code {
				t.Errorf("Expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

// A remote failure reports 502 with the partial count instead of hiding
// what was already persisted.
func TestHandleTimelineSyncRemoteFailure(t *testing.T) {
	app, remote := setupTestApp(t)
	registerTestServer(t, app, "example", true)
	remote.err = &mastodon.StatusError{StatusCode: 500, URL: "https://example.example"}

	rec := httptest.NewRecorder()
	HandleTimelineSync(rec, httptest.NewRequest("POST", "/api/timeline-sync?server=example", nil), app)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	var resp struct {
		Error    string `json:"error"`
		NewPosts int    `json:"newPosts"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Error == "" {
		t.Error("Expected an error message in the body")
	}
	if resp.NewPosts != 0 {
		t.Errorf("Expected 0 partial posts, got %d", resp.NewPosts)
	}
}

func TestHandleTimeline(t *testing.T) {
	app, _ := setupTestApp(t)
	now := time.Now().UTC()
	insertTestPost(t, app, "p1", "example", "<p>first</p>", now.Add(-time.Minute))
	insertTestPost(t, app, "p2", "example", "<p>second</p>", now)

	rec := httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline?server=example&category=regular", nil), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Buckets map[string][]*models.Post `json:"buckets"`
	}
	decodeResponse(t, rec, &resp)
	posts := resp.Buckets["regular"]
	if len(posts) != 2 || posts[0].ID != "p2" {
		t.Errorf("Expected newest-first regular posts, got %+v", posts)
	}
}

func TestHandleTimelineFlagsMutedPosts(t *testing.T) {
	app, _ := setupTestApp(t)
	now := time.Now().UTC()
	insertTestPost(t, app, "p1", "example", "<p>a post about spoilers</p>", now.Add(-time.Minute))
	insertTestPost(t, app, "p2", "example", "<p>nothing to hide</p>", now)
	if err := app.db.CreateMutedWord("spoilers"); err != nil {
		t.Fatalf("CreateMutedWord failed: %v", err)
	}

	rec := httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline?server=example&category=regular", nil), app)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Buckets map[string][]*models.Post `json:"buckets"`
	}
	decodeResponse(t, rec, &resp)
	posts := resp.Buckets["regular"]
	if len(posts) != 2 {
		t.Fatalf("Expected both posts in the page, got %d", len(posts))
	}
	for _, p := range posts {
		switch p.ID {
		case "p1":
			if !p.Muted {
				t.Errorf("Expected p1 to be flagged muted")
			}
		case "p2":
			if p.Muted {
				t.Errorf("Expected p2 to stay unmuted")
			}
		}
	}
}

// limit=0 falls back to the default page size instead of an empty page.
func TestHandleTimelineZeroLimit(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>hello</p>", time.Now().UTC())

	rec := httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline?server=example&limit=0", nil), app)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Buckets map[string][]*models.Post `json:"buckets"`
	}
	decodeResponse(t, rec, &resp)
	if len(resp.Buckets["regular"]) != 1 {
		t.Errorf("Expected the default page size to apply, got %d posts", len(resp.Buckets["regular"]))
	}
}

func TestHandleTimelineValidation(t *testing.T) {
	app, _ := setupTestApp(t)

	rec := httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline", nil), app)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing server, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline?server=example&category=bogus", nil), app)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown category, got %d", rec.Code)
	}
}

// An unknown server yields an empty page, not an error.
func TestHandleTimelineUnknownServerEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	rec := httptest.NewRecorder()
	HandleTimeline(rec, httptest.NewRequest("GET", "/api/timeline?server=ghost", nil), app)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Buckets map[string][]*models.Post `json:"buckets"`
	}
	decodeResponse(t, rec, &resp)
	if len(resp.Buckets["regular"]) != 0 {
		t.Errorf("Expected empty page, got %+v", resp.Buckets["regular"])
	}
}

func TestHandleCategoryCounts(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>why?</p>", time.Now().UTC())

	rec := httptest.NewRecorder()
	HandleCategoryCounts(rec, httptest.NewRequest("GET", "/api/counts?server=example", nil), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Counts map[string]int `json:"counts"`
	}
	decodeResponse(t, rec, &resp)
	if resp.Counts["questions"] != 1 {
		t.Errorf("Expected 1 question, got %d", resp.Counts["questions"])
	}
	if _, ok := resp.Counts["regular"]; !ok {
		t.Error("Expected every bucket enumerated in counts")
	}

	rec = httptest.NewRecorder()
	HandleCategoryCounts(rec, httptest.NewRequest("GET", "/api/counts", nil), app)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing server, got %d", rec.Code)
	}
}

func TestHandleServerStats(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>hi</p>", time.Now().UTC())

	rec := httptest.NewRecorder()
	HandleServerStats(rec, httptest.NewRequest("GET", "/api/server-stats?server=example", nil), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var stats models.ServerStats
	decodeResponse(t, rec, &stats)
	if stats.TotalPosts != 1 {
		t.Errorf("Expected 1 post, got %d", stats.TotalPosts)
	}
	if stats.OldestPostDate == nil {
		t.Error("Expected oldest date to be set")
	}
}

func TestHandleAccountPosts(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>mine</p>", time.Now().UTC())

	rec := httptest.NewRecorder()
	HandleAccountPosts(rec, httptest.NewRequest("GET", "/api/account-posts?accountId=acct-p1", nil), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Posts []*models.Post `json:"posts"`
	}
	decodeResponse(t, rec, &resp)
	if len(resp.Posts) != 1 || resp.Posts[0].ID != "p1" {
		t.Errorf("Expected p1, got %+v", resp.Posts)
	}

	rec = httptest.NewRecorder()
	HandleAccountPosts(rec, httptest.NewRequest("GET", "/api/account-posts", nil), app)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing accountId, got %d", rec.Code)
	}
}

func TestHandleMarkSeen(t *testing.T) {
	app, _ := setupTestApp(t)
	now := time.Now().UTC()
	insertTestPost(t, app, "p1", "example", "<p>read me</p>", now)

	body := map[string]string{
		"server":   "example",
		"bucket":   "regular",
		"seenFrom": now.Add(-time.Hour).Format(time.RFC3339),
		"seenTo":   now.Add(time.Hour).Format(time.RFC3339),
	}
	rec := httptest.NewRecorder()
	HandleMarkSeen(rec, jsonRequest(t, "POST", "/api/mark-seen", body), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int64
	decodeResponse(t, rec, &resp)
	if resp["updated"] != 1 {
		t.Errorf("Expected 1 updated, got %d", resp["updated"])
	}
}

func TestHandleMarkSeenValidation(t *testing.T) {
	app, _ := setupTestApp(t)
	now := time.Now().UTC().Format(time.RFC3339)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"server": "example"}},
		{"unknown bucket", map[string]string{"server": "example", "bucket": "nope", "seenFrom": now, "seenTo": now}},
		{"bad timestamp", map[string]string{"server": "example", "bucket": "regular", "seenFrom": "yesterday", "seenTo": now}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleMarkSeen(rec, jsonRequest(t, "POST", "/api/mark-seen", tc.body), app)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleMarkAccountSeen(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>noise</p>", time.Now().UTC())

	body := map[string]string{"server": "example", "acct": "user-p1@example.example"}
	rec := httptest.NewRecorder()
	HandleMarkAccountSeen(rec, jsonRequest(t, "POST", "/api/mark-account-seen", body), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp map[string]int64
	decodeResponse(t, rec, &resp)
	if resp["updated"] != 1 {
		t.Errorf("Expected 1 updated, got %d", resp["updated"])
	}

	rec = httptest.NewRecorder()
	HandleMarkAccountSeen(rec, jsonRequest(t, "POST", "/api/mark-account-seen", map[string]string{"server": "example", "acct": "  "}), app)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank acct, got %d", rec.Code)
	}
}

func TestHandleMarkSaved(t *testing.T) {
	app, _ := setupTestApp(t)
	insertTestPost(t, app, "p1", "example", "<p>keep</p>", time.Now().UTC())

	rec := httptest.NewRecorder()
	HandleMarkSaved(rec, jsonRequest(t, "POST", "/api/mark-saved",
		map[string]any{"server": "example", "postId": "p1", "saved": true}), app)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp map[string]bool
	decodeResponse(t, rec, &resp)
	if !resp["updated"] {
		t.Error("Expected updated=true")
	}

	// Unknown post is a clean no-match, not an error.
	rec = httptest.NewRecorder()
	HandleMarkSaved(rec, jsonRequest(t, "POST", "/api/mark-saved",
		map[string]any{"server": "example", "postId": "ghost", "saved": true}), app)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	decodeResponse(t, rec, &resp)
	if resp["updated"] {
		t.Error("Expected updated=false for unknown post")
	}
}

func TestHandleHealthz(t *testing.T) {
	app, _ := setupTestApp(t)

	rec := httptest.NewRecorder()
	HandleHealthz(rec, httptest.NewRequest("GET", "/healthz", nil), app)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	decodeResponse(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected ok status, got %q", resp["status"])
	}
}
