// fedistash/models/models.go
package models

import (
	"time"
)

// --- Core Data Models ---

// Post is a locally stored copy of a remote status. Account fields are a
// snapshot taken at ingestion time and are never refreshed afterward, so
// moderation state keyed on AccountID stays stable even if the remote
// display name changes.
type Post struct {
	ID                 string            `json:"id"`
	ServerSlug         string            `json:"server_slug"`
	Bucket             string            `json:"bucket"`
	URI                string            `json:"uri"`
	URL                string            `json:"url"`
	ParentID           string            `json:"parent_id,omitempty"` // ID of the original post when this row is a reblog wrapper
	WasReblogged       bool              `json:"was_reblogged"`       // set on the original when a reblog wrapper points at it
	Seen               bool              `json:"seen"`
	Saved              bool              `json:"saved"`
	CreatedAt          time.Time         `json:"created_at"`
	Content            string            `json:"content"`
	Language           string            `json:"language,omitempty"` // empty means unspecified, treated as English
	InReplyToID        string            `json:"in_reply_to_id,omitempty"`
	InReplyToAccountID string            `json:"in_reply_to_account_id,omitempty"`
	AccountID          string            `json:"account_id"`
	AccountUsername    string            `json:"account_username"`
	AccountAcct        string            `json:"account_acct"`
	AccountDisplayName string            `json:"account_display_name"`
	AccountURL         string            `json:"account_url"`
	AccountAvatar      string            `json:"account_avatar"`
	AccountBot         bool              `json:"account_bot"`
	MediaAttachments   []MediaAttachment `json:"media_attachments"`
	Visibility         string            `json:"visibility"`
	FavouritesCount    int               `json:"favourites_count"`
	ReblogsCount       int               `json:"reblogs_count"`
	RepliesCount       int               `json:"replies_count"`
	Card               *Card             `json:"card"`
	Poll               *Poll             `json:"poll"`

	// Populated on read paths only.
	AccountTags []AccountTag `json:"account_tags"`
	Muted       bool         `json:"muted"`  // text matched a muted word; suppressed from normal rendering, never deleted
	Reblog      *Post        `json:"reblog"` // resolved original; depth is always 0 or 1
}

type MediaAttachment struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

type Card struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
}

type PollOption struct {
	Title      string `json:"title"`
	VotesCount int    `json:"votes_count"`
}

type Poll struct {
	ID          string       `json:"id"`
	Options     []PollOption `json:"options"`
	VotesCount  int          `json:"votes_count"`
	ExpiresAt   string       `json:"expires_at,omitempty"`
	Expired     bool         `json:"expired"`
	Multiple    bool         `json:"multiple"`
	VotersCount int          `json:"voters_count"`
}

// --- Moderation & Curation Models ---

// AccountTag is a per-(account, tag) counter. It is created on first
// application, incremented on repeats, and deleted outright on clear.
type AccountTag struct {
	UserID     string `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Tag        string `json:"tag"`
	ServerSlug string `json:"server_slug"`
	Count      int    `json:"count"`
}

// Reason is a named moderation rule. Filter means posts from accounts
// carrying this tag are suppressed regardless of bucket.
type Reason struct {
	ID        int64     `json:"id"`
	Reason    string    `json:"reason"`
	Active    bool      `json:"active"`
	Filter    bool      `json:"filter"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Server & Credential Models ---

type Server struct {
	ID        int64     `json:"id"`
	URI       string    `json:"uri"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type Credential struct {
	ID          int64     `json:"id"`
	ServerURL   string    `json:"server_url"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Aggregates ---

type BucketTally struct {
	Seen   int `json:"seen"`
	Unseen int `json:"unseen"`
}

type ServerStats struct {
	TotalPosts     int                    `json:"totalPosts"`
	SeenPosts      int                    `json:"seenPosts"`
	OldestPostDate *string                `json:"oldestPostDate"`
	LatestPostDate *string                `json:"latestPostDate"`
	UniqueAccounts int                    `json:"uniqueAccounts"`
	CategoryCounts map[string]BucketTally `json:"categoryCounts"`
}
