// fedistash/bucket/bucket.go
package bucket

import (
	"regexp"
	"strings"

	"fedistash/models"
)

// Bucket is the mutually exclusive content category assigned to a post at
// ingestion. The string values double as database column values and JSON
// keys, so they must not change.
type Bucket string

const (
	NonEnglish     Bucket = "nonEnglish"
	WithImages     Bucket = "withImages"
	AsReplies      Bucket = "asReplies"
	DirectMentions Bucket = "directMentions"
	Hashtags       Bucket = "hashtags"
	WithLinks      Bucket = "withLinks"
	FromBots       Bucket = "fromBots"
	Regular        Bucket = "regular"
	Subscribed     Bucket = "subscribed"
	Saved          Bucket = "saved"
	Reblogs        Bucket = "reblogs"
	Questions      Bucket = "questions"
	Videos         Bucket = "videos"
)

// All lists every bucket, including ones the classifier no longer assigns
// (asReplies, subscribed). Count maps are keyed over the full set.
func All() []Bucket {
	return []Bucket{
		NonEnglish, WithImages, AsReplies, DirectMentions, Hashtags,
		WithLinks, FromBots, Regular, Subscribed, Saved, Reblogs,
		Questions, Videos,
	}
}

// Valid reports whether s names a known bucket.
func Valid(s string) bool {
	for _, b := range All() {
		if string(b) == s {
			return true
		}
	}
	return false
}

var (
	anchorRe     = regexp.MustCompile(`<a[^>]*>.*?</a>`)
	anchorHrefRe = regexp.MustCompile(`<a[^>]*href="([^"]*)"[^>]*>.*?</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
)

var videoMimeTypes = []string{"video/mp4", "video/webm", "video/ogg", "video/quicktime"}

var videoHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
	"twitch.tv",
	"video.google.com",
}

// Classify assigns exactly one bucket to a post. Rules are evaluated in
// order and the first match wins; the order is a compatibility contract
// (a non-English poll is nonEnglish, not questions) and must be kept even
// where a different precedence would look more principled.
//
// The function is pure over the post's structural fields. Seen, Saved and
// other mutable state never influence the result, and the bucket is
// persisted once at insert time rather than recomputed on read.
func Classify(p *models.Post) Bucket {
	if p.ParentID != "" {
		return Reblogs
	}
	if p.AccountBot {
		return FromBots
	}
	// An unspecified language is assumed to be English.
	if p.Language != "" && p.Language != "en" {
		return NonEnglish
	}
	if p.Poll != nil {
		return Questions
	}
	if isVideoPost(p.MediaAttachments, p.Card, p.Content) {
		return Videos
	}
	if p.Card != nil && p.Card.Type == "link" {
		return WithLinks
	}
	if len(p.MediaAttachments) > 0 || (p.Card != nil && p.Card.Type == "photo") {
		return WithImages
	}
	if isDirectMentionPost(p.Content) {
		return DirectMentions
	}
	if isHashtagPost(p.Content) {
		return Hashtags
	}
	if strings.Contains(p.Content, `<a href="`) {
		return WithLinks
	}
	if containsQuestion(p.Content) {
		return Questions
	}
	return Regular
}

// isHashtagPost reports whether the content carries an anchor marked as a
// hashtag link. Mastodon tags these with class="mention hashtag".
func isHashtagPost(content string) bool {
	for _, link := range anchorRe.FindAllString(content, -1) {
		if strings.Contains(link, `class="mention hashtag"`) || strings.Contains(link, `class="hashtag"`) {
			return true
		}
	}
	return false
}

// isDirectMentionPost applies only when the mention opens the post.
func isDirectMentionPost(content string) bool {
	return strings.HasPrefix(stripTags(content), "@")
}

func containsQuestion(content string) bool {
	return strings.Contains(stripTags(content), "?")
}

func isVideoPost(attachments []models.MediaAttachment, card *models.Card, content string) bool {
	for _, a := range attachments {
		if a.Type == "video" {
			return true
		}
		for _, mime := range videoMimeTypes {
			if a.Type == mime {
				return true
			}
		}
	}

	if card != nil && card.Type == "video" {
		return true
	}

	for _, link := range anchorHrefRe.FindAllString(content, -1) {
		for _, host := range videoHosts {
			if strings.Contains(link, host) {
				return true
			}
		}
	}
	return false
}

// stripTags removes markup with a plain tag-removal pass. Entities are not
// decoded, so "&quest;" never reads as a question mark; that quirk is part
// of the classification contract.
func stripTags(content string) string {
	return htmlTagRe.ReplaceAllString(content, "")
}
