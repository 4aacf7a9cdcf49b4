// fedistash/timeline/sync.go

// Package timeline drives paginated fetch-from-remote cycles and persists
// the results. Concurrent syncs for the same server are not coordinated:
// two overlapping runs may fetch overlapping pages and redundantly attempt
// inserts. That is safe because InsertPost is idempotent, but each caller's
// new-post count may then include pages the other run also fetched.
package timeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fedistash/config"
	"fedistash/database"
	"fedistash/mastodon"
	"fedistash/metrics"
	"fedistash/models"
)

// TimelineClient is the remote fetch surface the syncer consumes.
type TimelineClient interface {
	FetchPublicTimeline(ctx context.Context, q mastodon.TimelineQuery) ([]mastodon.Status, error)
}

// ClientFactory builds a client for one registered server, typically
// attaching whatever credential is stored for its base URL.
type ClientFactory func(server models.Server) TimelineClient

// Syncer runs batched, bidirectional timeline syncs.
type Syncer struct {
	db        *database.DatabaseService
	newClient ClientFactory
	pageSize  int
	logger    *slog.Logger
	limiter   *models.RateLimiter // spaces page fetches per server slug
}

func NewSyncer(db *database.DatabaseService, newClient ClientFactory, limiter *models.RateLimiter, logger *slog.Logger) *Syncer {
	return &Syncer{
		db:        db,
		newClient: newClient,
		pageSize:  config.RemotePageSize,
		logger:    logger,
		limiter:   limiter,
	}
}

// Sync fetches up to batch pages from the server's public timeline and
// persists every status, returning the number of newly created posts.
//
// The first page's cursor comes from the stored extremes: strictly older
// than the oldest stored id when older is set, strictly newer than the
// latest otherwise, and unqualified on the first sync for a server. Each
// following page's cursor is derived from the page just fetched rather
// than re-queried from storage, so a short page never causes the same
// page to be requested twice; a short page also ends the batch early.
//
// On a fetch failure the remaining iterations are abandoned and the count
// accumulated so far is returned alongside the error. Nothing is rolled
// back: persisted pages stay, and a retry is safe because inserts are
// idempotent.
func (s *Syncer) Sync(ctx context.Context, server models.Server, older bool, batch int) (int, error) {
	if batch < 1 {
		batch = 1
	}
	if batch > config.MaxSyncBatch {
		batch = config.MaxSyncBatch
	}

	runID := uuid.New().String()
	logger := s.logger.With("run", runID, "server", server.Slug, "older", older)

	var minID, maxID string
	if older {
		if id, ok := s.db.GetOldestPostID(server.Slug); ok {
			maxID = id
		}
	} else {
		if id, ok := s.db.GetLatestPostID(server.Slug); ok {
			minID = id
		}
	}

	client := s.newClient(server)
	newPosts := 0

	for page := 0; page < batch; page++ {
		if s.limiter != nil {
			if err := s.limiter.GetLimiter(server.Slug).Wait(ctx); err != nil {
				metrics.SyncRuns.WithLabelValues("canceled").Inc()
				return newPosts, err
			}
		}

		statuses, err := client.FetchPublicTimeline(ctx, mastodon.TimelineQuery{
			Limit: s.pageSize,
			MinID: minID,
			MaxID: maxID,
		})
		if err != nil {
			logger.Error("Timeline page fetch failed, aborting batch", "page", page+1, "error", err)
			metrics.SyncRuns.WithLabelValues("error").Inc()
			return newPosts, fmt.Errorf("fetch timeline page %d: %w", page+1, err)
		}
		if len(statuses) == 0 {
			break
		}

		created := 0
		for i := range statuses {
			for _, post := range mastodon.Normalize(&statuses[i], server.Slug) {
				ok, err := s.db.InsertPost(post)
				if err != nil {
					logger.Error("Failed to persist post", "id", post.ID, "error", err)
					continue
				}
				if ok {
					created++
				}
			}
		}
		newPosts += created
		metrics.PostsIngested.Add(float64(created))
		logger.Info("Synced timeline page", "page", page+1, "statuses", len(statuses), "new", created)

		// Pages arrive newest first; advance the cursor from this page's
		// extremal id in the direction we are walking.
		if older {
			maxID = statuses[len(statuses)-1].ID
			minID = ""
		} else {
			minID = statuses[0].ID
			maxID = ""
		}

		if len(statuses) < s.pageSize {
			break
		}
	}

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	return newPosts, nil
}
