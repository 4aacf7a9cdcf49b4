// fedistash/database/database.go
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fedistash/bucket"
	"fedistash/models"
	"fedistash/utils"

	_ "github.com/mattn/go-sqlite3"
)

// DatabaseService is the central struct for all database operations.
type DatabaseService struct {
	DB     *sql.DB
	logger *slog.Logger
	dsn    string
}

// InitDB connects to the database, runs the base schema and migrations.
func InitDB(dataSourceName string, logger *slog.Logger) (*DatabaseService, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run the base schema to ensure all tables exist.
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to execute base schema: %w", err)
	}

	// Run versioned migrations
	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Info("Database initialized.")

	return &DatabaseService{
		DB:     db,
		logger: logger,
		dsn:    dataSourceName,
	}, nil
}

// runMigrations applies all un-applied migrations.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	var latestVersion uint
	err := db.QueryRow("SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&latestVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("could not get db version: %w", err)
	}

	for _, m := range allMigrations {
		if m.Version <= latestVersion {
			continue
		}
		logger.Info("Applying database migration", "version", m.Version)
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("could not begin migration transaction: %w", err)
		}
		if _, err := tx.Exec(m.Query); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("could not record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("could not commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// ResetDatabase deletes all posts for one server, or, when serverSlug is
// empty, drops and recreates the whole schema.
func (ds *DatabaseService) ResetDatabase(serverSlug string) error {
	if serverSlug != "" {
		_, err := ds.DB.Exec("DELETE FROM posts WHERE server_slug = ?", serverSlug)
		return err
	}

	tables := []string{"servers", "posts", "reasons", "account_tags", "muted_words", "credentials", "schema_migrations"}
	for _, table := range tables {
		if _, err := ds.DB.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	if _, err := ds.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}
	return runMigrations(ds.DB, ds.logger)
}

// BackupDatabase performs an online backup of the live SQLite database using VACUUM INTO.
func (ds *DatabaseService) BackupDatabase() (string, error) {
	if utils.BackupDir == "" {
		return "", fmt.Errorf("backup directory is not configured")
	}
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", utils.BackupDir, err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02_15-04-05")
	backupFilename := fmt.Sprintf("fedistash_backup_%s.db", timestamp)
	backupPath := filepath.Join(utils.BackupDir, backupFilename)

	ds.logger.Info("Starting database backup", "source", ds.dsn, "destination", backupPath)

	_, err := ds.DB.Exec("VACUUM INTO ?", backupPath)
	if err != nil {
		// If backup fails, attempt to remove the potentially incomplete file
		if removeErr := os.Remove(backupPath); removeErr != nil && !os.IsNotExist(removeErr) {
			ds.logger.Error("Failed to remove incomplete backup file", "path", backupPath, "error", removeErr)
		}
		return "", fmt.Errorf("VACUUM INTO command failed: %w", err)
	}

	return backupPath, nil
}

// --- Post Columns & Serialization ---

var postColumns = []string{
	"id", "server_slug", "bucket", "uri", "url", "parent_id", "was_reblogged",
	"seen", "created_at", "content", "language", "in_reply_to_id",
	"in_reply_to_account_id", "account_id", "account_username", "account_acct",
	"account_display_name", "account_url", "account_avatar", "account_bot",
	"media_attachments", "visibility", "favourites_count", "reblogs_count",
	"replies_count", "card", "poll", "saved",
}

// postCols renders the explicit column list for one table alias. Explicit
// lists keep scan order stable across migrations that append columns.
func postCols(alias string) string {
	cols := make([]string, len(postColumns))
	for i, c := range postColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func mediaToJSON(attachments []models.MediaAttachment) string {
	if len(attachments) == 0 {
		return "[]"
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// parseMedia decodes the stored attachment list. Malformed input degrades
// to an empty list rather than failing the read.
func parseMedia(raw string) []models.MediaAttachment {
	if raw == "" {
		return []models.MediaAttachment{}
	}
	var attachments []models.MediaAttachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return []models.MediaAttachment{}
	}
	return attachments
}

func cardToJSON(card *models.Card) sql.NullString {
	if card == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(card)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func parseCard(raw sql.NullString) *models.Card {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var card models.Card
	if err := json.Unmarshal([]byte(raw.String), &card); err != nil {
		return nil
	}
	return &card
}

func pollToJSON(poll *models.Poll) sql.NullString {
	if poll == nil {
		return sql.NullString{}
	}
	data, err := json.Marshal(poll)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func parsePoll(raw sql.NullString) *models.Poll {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var poll models.Poll
	if err := json.Unmarshal([]byte(raw.String), &poll); err != nil {
		return nil
	}
	return &poll
}

// postRow mirrors one aliased column block of a posts SELECT. All fields
// are nullable so the same scan works for the LEFT JOINed reblog side.
type postRow struct {
	ID                 sql.NullString
	ServerSlug         sql.NullString
	Bucket             sql.NullString
	URI                sql.NullString
	URL                sql.NullString
	ParentID           sql.NullString
	WasReblogged       sql.NullInt64
	Seen               sql.NullInt64
	CreatedAt          sql.NullString
	Content            sql.NullString
	Language           sql.NullString
	InReplyToID        sql.NullString
	InReplyToAccountID sql.NullString
	AccountID          sql.NullString
	AccountUsername    sql.NullString
	AccountAcct        sql.NullString
	AccountDisplayName sql.NullString
	AccountURL         sql.NullString
	AccountAvatar      sql.NullString
	AccountBot         sql.NullInt64
	MediaAttachments   sql.NullString
	Visibility         sql.NullString
	FavouritesCount    sql.NullInt64
	ReblogsCount       sql.NullInt64
	RepliesCount       sql.NullInt64
	Card               sql.NullString
	Poll               sql.NullString
	Saved              sql.NullInt64
}

func (r *postRow) scanTargets() []any {
	return []any{
		&r.ID, &r.ServerSlug, &r.Bucket, &r.URI, &r.URL, &r.ParentID,
		&r.WasReblogged, &r.Seen, &r.CreatedAt, &r.Content, &r.Language,
		&r.InReplyToID, &r.InReplyToAccountID, &r.AccountID,
		&r.AccountUsername, &r.AccountAcct, &r.AccountDisplayName,
		&r.AccountURL, &r.AccountAvatar, &r.AccountBot,
		&r.MediaAttachments, &r.Visibility, &r.FavouritesCount,
		&r.ReblogsCount, &r.RepliesCount, &r.Card, &r.Poll, &r.Saved,
	}
}

// toModel converts a scanned row block to a Post, attaching account tags
// with a follow-up lookup. Returns nil for an all-NULL (unmatched join) block.
func (ds *DatabaseService) toModel(r *postRow) *models.Post {
	if !r.ID.Valid {
		return nil
	}
	return &models.Post{
		ID:                 r.ID.String,
		ServerSlug:         r.ServerSlug.String,
		Bucket:             r.Bucket.String,
		URI:                r.URI.String,
		URL:                r.URL.String,
		ParentID:           r.ParentID.String,
		WasReblogged:       r.WasReblogged.Int64 != 0,
		Seen:               r.Seen.Int64 != 0,
		Saved:              r.Saved.Int64 != 0,
		CreatedAt:          utils.ParseSQLTime(r.CreatedAt.String),
		Content:            r.Content.String,
		Language:           r.Language.String,
		InReplyToID:        r.InReplyToID.String,
		InReplyToAccountID: r.InReplyToAccountID.String,
		AccountID:          r.AccountID.String,
		AccountUsername:    r.AccountUsername.String,
		AccountAcct:        r.AccountAcct.String,
		AccountDisplayName: r.AccountDisplayName.String,
		AccountURL:         r.AccountURL.String,
		AccountAvatar:      r.AccountAvatar.String,
		AccountBot:         r.AccountBot.Int64 != 0,
		MediaAttachments:   parseMedia(r.MediaAttachments.String),
		Visibility:         r.Visibility.String,
		FavouritesCount:    int(r.FavouritesCount.Int64),
		ReblogsCount:       int(r.ReblogsCount.Int64),
		RepliesCount:       int(r.RepliesCount.Int64),
		Card:               parseCard(r.Card),
		Poll:               parsePoll(r.Poll),
		AccountTags:        ds.GetAccountTags(r.AccountID.String),
	}
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// --- Post Writes ---

// InsertPost classifies the post, serializes its nested structures and
// inserts it keyed on (id, server_slug). Inserting an already stored post
// is a no-op, not an error; the return value reports whether a row was
// actually created. The bucket is computed exactly once here and never
// recomputed, even if a later version of the classifier would disagree.
func (ds *DatabaseService) InsertPost(p *models.Post) (bool, error) {
	p.Bucket = string(bucket.Classify(p))

	res, err := ds.DB.Exec(`
		INSERT INTO posts (
			id, server_slug, bucket, uri, url, parent_id, was_reblogged, seen,
			created_at, content, language, in_reply_to_id, in_reply_to_account_id,
			account_id, account_username, account_acct, account_display_name,
			account_url, account_avatar, account_bot, media_attachments,
			visibility, favourites_count, reblogs_count, replies_count,
			card, poll, saved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, server_slug) DO NOTHING`,
		p.ID, p.ServerSlug, p.Bucket, p.URI, p.URL, nullIfEmpty(p.ParentID),
		utils.BtoI(p.WasReblogged), utils.BtoI(p.Seen),
		utils.FormatSQLTime(p.CreatedAt), p.Content, nullIfEmpty(p.Language),
		nullIfEmpty(p.InReplyToID), nullIfEmpty(p.InReplyToAccountID),
		p.AccountID, p.AccountUsername, p.AccountAcct, p.AccountDisplayName,
		p.AccountURL, p.AccountAvatar, utils.BtoI(p.AccountBot),
		mediaToJSON(p.MediaAttachments), p.Visibility,
		p.FavouritesCount, p.ReblogsCount, p.RepliesCount,
		cardToJSON(p.Card), pollToJSON(p.Poll), utils.BtoI(p.Saved),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert post %s@%s: %w", p.ID, p.ServerSlug, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		ds.logger.Debug("Post already exists", "id", p.ID, "server", p.ServerSlug)
		return false, nil
	}
	return true, nil
}

// MarkPostSaved toggles the saved flag for exactly one post.
func (ds *DatabaseService) MarkPostSaved(serverSlug, postID string, saved bool) (bool, error) {
	res, err := ds.DB.Exec(`
		UPDATE posts
		SET saved = ?
		WHERE server_slug = ? AND id = ?`,
		utils.BtoI(saved), serverSlug, postID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// MarkPostsAsSeen marks seen every post in the creation-time window whose
// bucket matches, plus any reblog wrapper in the window whose target's
// bucket matches. The original post of a reblog may be outside the window
// entirely; only the wrapper is marked.
func (ds *DatabaseService) MarkPostsAsSeen(serverSlug, bucketName string, seenFrom, seenTo time.Time) (int64, error) {
	res, err := ds.DB.Exec(`
		UPDATE posts
		SET seen = 1
		WHERE server_slug = ?
		  AND created_at BETWEEN ? AND ?
		  AND (
		    bucket = ? OR id IN (SELECT p.id FROM posts p JOIN posts rp ON p.parent_id = rp.id WHERE rp.bucket = ?)
		  )`,
		serverSlug, utils.FormatSQLTime(seenFrom), utils.FormatSQLTime(seenTo), bucketName, bucketName)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	ds.logger.Info("Marked posts as seen", "server", serverSlug, "bucket", bucketName, "rows", rows)
	return rows, err
}

// MarkAccountsAsSeen marks all not-yet-seen posts by an account handle as seen.
func (ds *DatabaseService) MarkAccountsAsSeen(serverSlug, acct string) (int64, error) {
	res, err := ds.DB.Exec(`
		UPDATE posts
		SET seen = 1
		WHERE server_slug = ?
		  AND account_acct = ?
		  AND seen = 0`,
		serverSlug, acct)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	ds.logger.Info("Marked account as seen", "server", serverSlug, "acct", acct, "rows", rows)
	return rows, err
}

// --- Post Reads ---
//
// Read paths degrade to empty or zeroed defaults on query failure: the
// error is logged here and callers always get a usable value. Reads stay
// available through transient storage faults at the cost of silently
// serving nothing.

// GetLatestPostID returns the id of the newest stored post that is not a
// reblog target, used as the min_id cursor for fetching newer pages. The
// second return is false when no posts exist for the server.
func (ds *DatabaseService) GetLatestPostID(serverSlug string) (string, bool) {
	var id string
	err := ds.DB.QueryRow(`
		SELECT id
		FROM posts
		WHERE server_slug = ? AND was_reblogged = 0
		ORDER BY created_at DESC
		LIMIT 1`, serverSlug).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		ds.logger.Error("Failed to query latest post id", "server", serverSlug, "error", err)
		return "", false
	}
	return id, true
}

// GetOldestPostID is the max_id counterpart of GetLatestPostID.
func (ds *DatabaseService) GetOldestPostID(serverSlug string) (string, bool) {
	var id string
	err := ds.DB.QueryRow(`
		SELECT id
		FROM posts
		WHERE server_slug = ? AND was_reblogged = 0
		ORDER BY created_at ASC
		LIMIT 1`, serverSlug).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		ds.logger.Error("Failed to query oldest post id", "server", serverSlug, "error", err)
		return "", false
	}
	return id, true
}

// GetBucketedPostsByCategory returns unseen posts for one bucket with
// reblog linkage reconstructed: a reblog wrapper whose target's bucket
// matches is included with the resolved original nested under Reblog.
// The reblogs and saved buckets have dedicated query shapes.
func (ds *DatabaseService) GetBucketedPostsByCategory(serverSlug string, b bucket.Bucket, limit, offset int, chronological bool) []*models.Post {
	if b == bucket.Reblogs {
		return ds.getReblogs(serverSlug, limit, offset, chronological)
	}
	if b == bucket.Saved {
		return ds.GetSavedPosts(serverSlug, limit, offset)
	}

	order := "DESC"
	if chronological {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM posts p
		LEFT JOIN posts rp ON p.parent_id = rp.id
		WHERE
		  p.was_reblogged = 0 AND
		  p.server_slug = ? AND p.seen = 0 AND (rp.seen IS NULL OR rp.seen = 0)
		  AND (
		    (p.parent_id IS NOT NULL AND rp.bucket = ?)
		    OR (p.parent_id IS NULL AND p.bucket = ?)
		  )
		ORDER BY p.created_at %s
		LIMIT ? OFFSET ?`, postCols("p"), postCols("rp"), order)

	rows, err := ds.DB.Query(query, serverSlug, string(b), string(b), limit, offset)
	if err != nil {
		ds.logger.Error("Failed to query bucketed posts", "server", serverSlug, "bucket", b, "error", err)
		return []*models.Post{}
	}
	defer rows.Close()

	return ds.collectJoinedPosts(rows)
}

// getReblogs returns unseen reblog wrappers joined to their resolved
// originals. A wrapper whose original was never stored locally still
// appears, with a nil Reblog.
func (ds *DatabaseService) getReblogs(serverSlug string, limit, offset int, chronological bool) []*models.Post {
	order := "DESC"
	if chronological {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM posts p
		LEFT JOIN posts rp ON p.parent_id = rp.id
		WHERE
		  p.server_slug = ? AND p.seen = 0 AND (rp.seen IS NULL OR rp.seen = 0)
		  AND p.parent_id IS NOT NULL
		ORDER BY p.created_at %s
		LIMIT ? OFFSET ?`, postCols("p"), postCols("rp"), order)

	rows, err := ds.DB.Query(query, serverSlug, limit, offset)
	if err != nil {
		ds.logger.Error("Failed to query reblogs", "server", serverSlug, "error", err)
		return []*models.Post{}
	}
	defer rows.Close()

	return ds.collectJoinedPosts(rows)
}

func (ds *DatabaseService) collectJoinedPosts(rows *sql.Rows) []*models.Post {
	posts := []*models.Post{}
	for rows.Next() {
		var main, reblog postRow
		targets := append(main.scanTargets(), reblog.scanTargets()...)
		if err := rows.Scan(targets...); err != nil {
			ds.logger.Error("Failed to scan joined post row", "error", err)
			return []*models.Post{}
		}
		post := ds.toModel(&main)
		if post.ParentID != "" && reblog.ID.Valid {
			post.Reblog = ds.toModel(&reblog)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating posts", "error", err)
		return []*models.Post{}
	}
	return posts
}

// GetSavedPosts lists bookmarked posts regardless of seen state.
func (ds *DatabaseService) GetSavedPosts(serverSlug string, limit, offset int) []*models.Post {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		WHERE p.server_slug = ? AND p.saved = 1
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`, postCols("p"))

	rows, err := ds.DB.Query(query, serverSlug, limit, offset)
	if err != nil {
		ds.logger.Error("Failed to query saved posts", "server", serverSlug, "error", err)
		return []*models.Post{}
	}
	defer rows.Close()

	return ds.collectPosts(rows)
}

// GetPostsByAccount lists an account's stored posts, newest first,
// excluding its reblog wrappers.
func (ds *DatabaseService) GetPostsByAccount(accountID string, limit, offset int) []*models.Post {
	query := fmt.Sprintf(`
		SELECT %s
		FROM posts p
		WHERE p.account_id = ?
		  AND p.bucket != 'reblogs'
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`, postCols("p"))

	rows, err := ds.DB.Query(query, accountID, limit, offset)
	if err != nil {
		ds.logger.Error("Failed to query account posts", "account", accountID, "error", err)
		return []*models.Post{}
	}
	defer rows.Close()

	return ds.collectPosts(rows)
}

func (ds *DatabaseService) collectPosts(rows *sql.Rows) []*models.Post {
	posts := []*models.Post{}
	for rows.Next() {
		var r postRow
		if err := rows.Scan(r.scanTargets()...); err != nil {
			ds.logger.Error("Failed to scan post row", "error", err)
			return []*models.Post{}
		}
		posts = append(posts, ds.toModel(&r))
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating posts", "error", err)
		return []*models.Post{}
	}
	return posts
}

// GetCategoryCounts returns per-bucket counts of unseen posts that are not
// reblog targets, plus the saved count which is computed independently and
// can overlap any bucket.
func (ds *DatabaseService) GetCategoryCounts(serverSlug string) map[string]int {
	counts := make(map[string]int, len(bucket.All()))
	for _, b := range bucket.All() {
		counts[string(b)] = 0
	}

	rows, err := ds.DB.Query(`
		SELECT bucket, COUNT(*) as count
		FROM posts
		WHERE
		was_reblogged = 0 AND
		server_slug = ? AND seen = 0
		GROUP BY bucket`, serverSlug)
	if err != nil {
		ds.logger.Error("Failed to query category counts", "server", serverSlug, "error", err)
		return counts
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			ds.logger.Error("Failed to scan category count", "error", err)
			return counts
		}
		if _, ok := counts[name]; ok {
			counts[name] = count
		}
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating category counts", "error", err)
		return counts
	}

	var saved int
	if err := ds.DB.QueryRow(`
		SELECT COUNT(*) FROM posts
		WHERE server_slug = ? AND saved = 1`, serverSlug).Scan(&saved); err != nil {
		ds.logger.Error("Failed to query saved count", "server", serverSlug, "error", err)
		return counts
	}
	counts[string(bucket.Saved)] = saved

	return counts
}

// GetServerStats aggregates totals for one server, or all servers when
// serverSlug is empty.
func (ds *DatabaseService) GetServerStats(serverSlug string) models.ServerStats {
	stats := models.ServerStats{CategoryCounts: make(map[string]models.BucketTally, len(bucket.All()))}
	for _, b := range bucket.All() {
		stats.CategoryCounts[string(b)] = models.BucketTally{}
	}

	whereClause := ""
	args := []any{}
	if serverSlug != "" {
		whereClause = "WHERE server_slug = ?"
		args = append(args, serverSlug)
	}

	var oldest, latest sql.NullString
	err := ds.DB.QueryRow(fmt.Sprintf(`
		SELECT
		  COUNT(*),
		  COALESCE(SUM(CASE WHEN seen = 1 THEN 1 ELSE 0 END), 0),
		  MIN(created_at),
		  MAX(created_at),
		  COUNT(DISTINCT account_id)
		FROM posts
		%s`, whereClause), args...).
		Scan(&stats.TotalPosts, &stats.SeenPosts, &oldest, &latest, &stats.UniqueAccounts)
	if err != nil {
		ds.logger.Error("Failed to query server stats", "server", serverSlug, "error", err)
		return stats
	}
	if oldest.Valid {
		stats.OldestPostDate = &oldest.String
	}
	if latest.Valid {
		stats.LatestPostDate = &latest.String
	}

	rows, err := ds.DB.Query(fmt.Sprintf(`
		SELECT
		  bucket,
		  SUM(CASE WHEN seen = 1 THEN 1 ELSE 0 END),
		  SUM(CASE WHEN seen = 0 THEN 1 ELSE 0 END)
		FROM posts
		%s
		GROUP BY bucket`, whereClause), args...)
	if err != nil {
		ds.logger.Error("Failed to query per-bucket stats", "server", serverSlug, "error", err)
		return stats
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var tally models.BucketTally
		if err := rows.Scan(&name, &tally.Seen, &tally.Unseen); err != nil {
			ds.logger.Error("Failed to scan bucket tally", "error", err)
			return stats
		}
		if _, ok := stats.CategoryCounts[name]; ok {
			stats.CategoryCounts[name] = tally
		}
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating bucket tallies", "error", err)
	}

	return stats
}

// --- Account Tags ---

// TagAccount applies a tag to an account, incrementing the counter when
// the tag was already applied.
func (ds *DatabaseService) TagAccount(userID, username, tag, serverSlug string) error {
	_, err := ds.DB.Exec(`
		INSERT INTO account_tags (user_id, username, tag, server_slug)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, tag) DO UPDATE SET
		count = count + 1`,
		userID, username, tag, serverSlug)
	return err
}

// ClearAccountTag removes a tag from an account entirely. The counter is
// deleted, not decremented.
func (ds *DatabaseService) ClearAccountTag(userID, tag, serverSlug string) error {
	_, err := ds.DB.Exec(`
		DELETE FROM account_tags
		WHERE user_id = ? AND tag = ? AND
		  (server_slug = ? OR server_slug = '')`,
		userID, tag, serverSlug)
	return err
}

// GetAccountTags lists an account's tags, most-applied first.
func (ds *DatabaseService) GetAccountTags(userID string) []models.AccountTag {
	rows, err := ds.DB.Query(`
		SELECT tag, count, server_slug
		FROM account_tags
		WHERE user_id = ?
		ORDER BY count DESC`, userID)
	if err != nil {
		ds.logger.Error("Failed to query account tags", "user", userID, "error", err)
		return []models.AccountTag{}
	}
	defer rows.Close()

	tags := []models.AccountTag{}
	for rows.Next() {
		var t models.AccountTag
		if err := rows.Scan(&t.Tag, &t.Count, &t.ServerSlug); err != nil {
			ds.logger.Error("Failed to scan account tag", "error", err)
			return []models.AccountTag{}
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating account tags", "error", err)
		return []models.AccountTag{}
	}
	return tags
}

// --- Reasons ---

func (ds *DatabaseService) GetAllReasons() []models.Reason {
	rows, err := ds.DB.Query("SELECT id, reason, active, filter, created_at FROM reasons ORDER BY created_at ASC")
	if err != nil {
		ds.logger.Error("Failed to query reasons", "error", err)
		return []models.Reason{}
	}
	defer rows.Close()

	reasons := []models.Reason{}
	for rows.Next() {
		var r models.Reason
		var active, filter int
		if err := rows.Scan(&r.ID, &r.Reason, &active, &filter, &r.CreatedAt); err != nil {
			ds.logger.Error("Failed to scan reason", "error", err)
			return []models.Reason{}
		}
		r.Active = active != 0
		r.Filter = filter != 0
		reasons = append(reasons, r)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating reasons", "error", err)
		return []models.Reason{}
	}
	return reasons
}

func (ds *DatabaseService) CreateReason(reason string, active, filter bool) (bool, error) {
	res, err := ds.DB.Exec(
		"INSERT OR IGNORE INTO reasons (reason, active, filter) VALUES (?, ?, ?)",
		reason, utils.BtoI(active), utils.BtoI(filter))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (ds *DatabaseService) UpdateReason(id int64, reason string, active, filter bool) (bool, error) {
	res, err := ds.DB.Exec(`
		UPDATE reasons
		SET reason = ?, active = ?, filter = ?
		WHERE id = ?`,
		reason, utils.BtoI(active), utils.BtoI(filter), id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (ds *DatabaseService) DeleteReason(id int64) (bool, error) {
	res, err := ds.DB.Exec("DELETE FROM reasons WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// --- Muted Words ---

func (ds *DatabaseService) GetMutedWords() []string {
	rows, err := ds.DB.Query("SELECT word FROM muted_words")
	if err != nil {
		ds.logger.Error("Failed to query muted words", "error", err)
		return []string{}
	}
	defer rows.Close()

	words := []string{}
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			ds.logger.Error("Failed to scan muted word", "error", err)
			return []string{}
		}
		words = append(words, word)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating muted words", "error", err)
		return []string{}
	}
	return words
}

func (ds *DatabaseService) CreateMutedWord(word string) error {
	_, err := ds.DB.Exec("INSERT OR IGNORE INTO muted_words (word) VALUES (?)", word)
	return err
}

func (ds *DatabaseService) DeleteMutedWord(word string) error {
	_, err := ds.DB.Exec("DELETE FROM muted_words WHERE word = ?", word)
	return err
}

// --- Servers ---

func (ds *DatabaseService) GetAllServers() []models.Server {
	rows, err := ds.DB.Query("SELECT id, uri, slug, name, enabled, created_at FROM servers ORDER BY created_at DESC")
	if err != nil {
		ds.logger.Error("Failed to query servers", "error", err)
		return []models.Server{}
	}
	defer rows.Close()

	servers := []models.Server{}
	for rows.Next() {
		var s models.Server
		var enabled int
		if err := rows.Scan(&s.ID, &s.URI, &s.Slug, &s.Name, &enabled, &s.CreatedAt); err != nil {
			ds.logger.Error("Failed to scan server", "error", err)
			return []models.Server{}
		}
		s.Enabled = enabled != 0
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating servers", "error", err)
		return []models.Server{}
	}
	return servers
}

func (ds *DatabaseService) GetServerBySlug(slug string) (models.Server, bool) {
	var s models.Server
	var enabled int
	err := ds.DB.QueryRow(
		"SELECT id, uri, slug, name, enabled, created_at FROM servers WHERE slug = ? LIMIT 1", slug).
		Scan(&s.ID, &s.URI, &s.Slug, &s.Name, &enabled, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Server{}, false
	}
	if err != nil {
		ds.logger.Error("Failed to query server by slug", "slug", slug, "error", err)
		return models.Server{}, false
	}
	s.Enabled = enabled != 0
	return s, true
}

func (ds *DatabaseService) CreateServer(uri, slug, name string, enabled bool) (bool, error) {
	res, err := ds.DB.Exec(`
		INSERT INTO servers (uri, slug, name, enabled)
		VALUES (?, ?, ?, ?)`,
		uri, slug, name, utils.BtoI(enabled))
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (ds *DatabaseService) UpdateServer(id int64, uri, slug, name string, enabled bool) (bool, error) {
	res, err := ds.DB.Exec(`
		UPDATE servers
		SET uri = ?, slug = ?, name = ?, enabled = ?
		WHERE id = ?`,
		uri, slug, name, utils.BtoI(enabled), id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (ds *DatabaseService) DeleteServer(id int64) (bool, error) {
	res, err := ds.DB.Exec("DELETE FROM servers WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

// --- Credentials ---

func (ds *DatabaseService) FetchAllCredentials() []models.Credential {
	rows, err := ds.DB.Query("SELECT id, server_url, access_token, created_at FROM credentials")
	if err != nil {
		ds.logger.Error("Failed to query credentials", "error", err)
		return []models.Credential{}
	}
	defer rows.Close()

	creds := []models.Credential{}
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.ServerURL, &c.AccessToken, &c.CreatedAt); err != nil {
			ds.logger.Error("Failed to scan credential", "error", err)
			return []models.Credential{}
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		ds.logger.Error("Row error iterating credentials", "error", err)
		return []models.Credential{}
	}
	return creds
}

// GetTokenByServer returns the most recently stored access token for a
// server base URL, or "" when none is stored.
func (ds *DatabaseService) GetTokenByServer(serverURL string) string {
	var token string
	err := ds.DB.QueryRow(`
		SELECT access_token
		FROM credentials
		WHERE server_url = ?
		ORDER BY created_at DESC
		LIMIT 1`, serverURL).Scan(&token)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		ds.logger.Error("Failed to query credential token", "server_url", serverURL, "error", err)
		return ""
	}
	return token
}

func (ds *DatabaseService) InsertCredential(serverURL, accessToken string) (bool, error) {
	res, err := ds.DB.Exec(`
		INSERT INTO credentials (server_url, access_token)
		VALUES (?, ?)`, serverURL, accessToken)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (ds *DatabaseService) CredentialExists(serverURL string) bool {
	var id int64
	err := ds.DB.QueryRow("SELECT id FROM credentials WHERE server_url = ?", serverURL).Scan(&id)
	return err == nil
}

func (ds *DatabaseService) RemoveCredential(serverURL string, id int64) (bool, error) {
	res, err := ds.DB.Exec(`
		DELETE FROM credentials
		WHERE server_url = ? AND id = ?`, serverURL, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}
