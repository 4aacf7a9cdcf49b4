// fedistash/mastodon/status.go
package mastodon

import (
	"time"

	"fedistash/models"
)

// Account is the posting account as the remote server represents it.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Avatar      string `json:"avatar"`
	Bot         bool   `json:"bot"`
}

// Status is the raw wire representation of one timeline entry. Fields the
// application does not use are dropped by the decoder; absent numeric
// counters decode to zero.
type Status struct {
	ID                 string                   `json:"id"`
	CreatedAt          time.Time                `json:"created_at"`
	Content            string                   `json:"content"`
	Language           string                   `json:"language"`
	URI                string                   `json:"uri"`
	URL                string                   `json:"url"`
	InReplyToID        string                   `json:"in_reply_to_id"`
	InReplyToAccountID string                   `json:"in_reply_to_account_id"`
	Visibility         string                   `json:"visibility"`
	Account            Account                  `json:"account"`
	MediaAttachments   []models.MediaAttachment `json:"media_attachments"`
	Card               *models.Card             `json:"card"`
	Poll               *models.Poll             `json:"poll"`
	FavouritesCount    int                      `json:"favourites_count"`
	ReblogsCount       int                      `json:"reblogs_count"`
	RepliesCount       int                      `json:"replies_count"`
	Reblog             *Status                  `json:"reblog"`
}

// Normalize maps a raw status to the internal post records it produces.
// A plain status yields one post. A boost yields two, original first so
// the wrapper's parent reference resolves when both are persisted in
// order: the inner original (flagged WasReblogged) and the wrapper
// pointing at it via ParentID. The inner status's own reblog field is
// ignored, which caps reblog depth at exactly one.
func Normalize(st *Status, serverSlug string) []*models.Post {
	post := toPost(st, serverSlug)
	if st.Reblog == nil {
		return []*models.Post{post}
	}

	original := toPost(st.Reblog, serverSlug)
	original.WasReblogged = true
	post.ParentID = original.ID
	post.Reblog = original
	return []*models.Post{original, post}
}

func toPost(st *Status, serverSlug string) *models.Post {
	return &models.Post{
		ID:                 st.ID,
		ServerSlug:         serverSlug,
		URI:                st.URI,
		URL:                st.URL,
		CreatedAt:          st.CreatedAt,
		Content:            st.Content,
		Language:           st.Language,
		InReplyToID:        st.InReplyToID,
		InReplyToAccountID: st.InReplyToAccountID,
		AccountID:          st.Account.ID,
		AccountUsername:    st.Account.Username,
		AccountAcct:        st.Account.Acct,
		AccountDisplayName: st.Account.DisplayName,
		AccountURL:         st.Account.URL,
		AccountAvatar:      st.Account.Avatar,
		AccountBot:         st.Account.Bot,
		MediaAttachments:   st.MediaAttachments,
		Visibility:         st.Visibility,
		FavouritesCount:    st.FavouritesCount,
		ReblogsCount:       st.ReblogsCount,
		RepliesCount:       st.RepliesCount,
		Card:               st.Card,
		Poll:               st.Poll,
	}
}
