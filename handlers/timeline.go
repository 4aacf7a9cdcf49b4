// fedistash/handlers/timeline.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"fedistash/bucket"
	"fedistash/config"
	"fedistash/models"
	"fedistash/utils"
)

// annotateMuted flags posts whose combined text matches a muted word.
// Flagged posts stay in the page so clients can collapse them instead
// of rendering them normally. A wrapper inherits the flag when its
// resolved original matches.
func annotateMuted(posts []*models.Post, words []string) {
	if len(words) == 0 {
		return
	}
	for _, p := range posts {
		p.Muted = utils.ContainsMutedWord(p, words)
		if p.Reblog != nil && utils.ContainsMutedWord(p.Reblog, words) {
			p.Reblog.Muted = true
			p.Muted = true
		}
	}
}

// HandleTimelineSync triggers a batched fetch-persist cycle for one
// server. Query parameters: server (slug, required), older (bool),
// batch (int, capped).
func HandleTimelineSync(w http.ResponseWriter, r *http.Request, app App) {
	slug := r.URL.Query().Get("server")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "Server is required", app)
		return
	}

	server, ok := app.DB().GetServerBySlug(slug)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown server", app)
		return
	}
	if !server.Enabled {
		respondError(w, http.StatusBadRequest, "Server is disabled", app)
		return
	}

	older := queryBool(r, "older")
	batch := queryInt(r, "batch", 1, config.MaxSyncBatch)

	newPosts, err := app.Syncer().Sync(r.Context(), server, older, batch)
	if err != nil {
		app.Logger().Error("Timeline sync failed", "server", slug, "error", err)
		// Pages persisted before the failure are kept; report the partial count.
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":    "Failed to sync posts",
			"newPosts": newPosts,
		}, app)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"newPosts": newPosts}, app)
}

// HandleTimeline returns one page of unseen posts for a category.
func HandleTimeline(w http.ResponseWriter, r *http.Request, app App) {
	slug := r.URL.Query().Get("server")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "Server is required", app)
		return
	}
	categorySlug := r.URL.Query().Get("category")
	if categorySlug == "" {
		categorySlug = "regular"
	}

	category, err := bucket.BySlug(categorySlug)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unknown category", app)
		return
	}

	limit, offset := pagination(r)
	chronological := queryBool(r, "chronological")

	posts := app.DB().GetBucketedPostsByCategory(slug, category.Bucket, limit, offset, chronological)
	annotateMuted(posts, app.DB().GetMutedWords())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"buckets": map[string][]*models.Post{categorySlug: posts},
	}, app)
}

// HandleCategoryCounts returns per-bucket unseen counts plus the saved count.
func HandleCategoryCounts(w http.ResponseWriter, r *http.Request, app App) {
	slug := r.URL.Query().Get("server")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "Server is required", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"counts": app.DB().GetCategoryCounts(slug)}, app)
}

// HandleServerStats returns aggregate totals for one server, or all
// servers when no slug is given.
func HandleServerStats(w http.ResponseWriter, r *http.Request, app App) {
	slug := r.URL.Query().Get("server")
	respondJSON(w, http.StatusOK, app.DB().GetServerStats(slug), app)
}

// HandleAccountPosts lists stored posts for one account.
func HandleAccountPosts(w http.ResponseWriter, r *http.Request, app App) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		respondError(w, http.StatusBadRequest, "Account ID is required", app)
		return
	}
	limit := queryInt(r, "limit", config.MaxPostsPerPage, config.MaxPostsPerPage)
	offset := queryInt(r, "offset", 0, 0)

	posts := app.DB().GetPostsByAccount(accountID, limit, offset)
	annotateMuted(posts, app.DB().GetMutedWords())
	respondJSON(w, http.StatusOK, map[string][]*models.Post{"posts": posts}, app)
}

type markSeenRequest struct {
	Server   string `json:"server"`
	Bucket   string `json:"bucket"`
	SeenFrom string `json:"seenFrom"`
	SeenTo   string `json:"seenTo"`
}

// HandleMarkSeen marks a category seen within a creation-time window.
func HandleMarkSeen(w http.ResponseWriter, r *http.Request, app App) {
	var req markSeenRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Server == "" || req.Bucket == "" || req.SeenFrom == "" || req.SeenTo == "" {
		respondError(w, http.StatusBadRequest, "Server, bucket, seenFrom and seenTo are required", app)
		return
	}
	if !bucket.Valid(req.Bucket) {
		respondError(w, http.StatusBadRequest, "Unknown bucket", app)
		return
	}

	seenFrom, err1 := time.Parse(time.RFC3339, req.SeenFrom)
	seenTo, err2 := time.Parse(time.RFC3339, req.SeenTo)
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "Timestamps must be RFC 3339", app)
		return
	}

	updated, err := app.DB().MarkPostsAsSeen(req.Server, req.Bucket, seenFrom, seenTo)
	if err != nil {
		app.Logger().Error("Failed to mark posts as seen", "server", req.Server, "bucket", req.Bucket, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to mark posts as seen", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated}, app)
}

type markAccountSeenRequest struct {
	Server string `json:"server"`
	Acct   string `json:"acct"`
}

// HandleMarkAccountSeen marks every unseen post by one account handle as seen.
func HandleMarkAccountSeen(w http.ResponseWriter, r *http.Request, app App) {
	var req markAccountSeenRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Server == "" || strings.TrimSpace(req.Acct) == "" {
		respondError(w, http.StatusBadRequest, "Server and acct are required", app)
		return
	}

	updated, err := app.DB().MarkAccountsAsSeen(req.Server, req.Acct)
	if err != nil {
		app.Logger().Error("Failed to mark account as seen", "server", req.Server, "acct", req.Acct, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to mark account as seen", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"updated": updated}, app)
}

type markSavedRequest struct {
	Server string `json:"server"`
	PostID string `json:"postId"`
	Saved  bool   `json:"saved"`
}

// HandleMarkSaved toggles the bookmark flag on one post.
func HandleMarkSaved(w http.ResponseWriter, r *http.Request, app App) {
	var req markSavedRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", app)
		return
	}
	if req.Server == "" || req.PostID == "" {
		respondError(w, http.StatusBadRequest, "Server and postId are required", app)
		return
	}

	updated, err := app.DB().MarkPostSaved(req.Server, req.PostID, req.Saved)
	if err != nil {
		app.Logger().Error("Failed to mark post saved", "server", req.Server, "post", req.PostID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update saved state", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": updated}, app)
}
