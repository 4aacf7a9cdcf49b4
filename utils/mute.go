// fedistash/utils/mute.go
package utils

import (
	"strings"

	"fedistash/models"
)

// PostText concatenates every user-visible text surface of a post:
// content, media descriptions, card title and description, and poll
// option titles.
func PostText(p *models.Post) string {
	var sb strings.Builder
	sb.WriteString(p.Content)
	for _, a := range p.MediaAttachments {
		sb.WriteString(" ")
		sb.WriteString(a.Description)
	}
	if p.Card != nil {
		sb.WriteString(" ")
		sb.WriteString(p.Card.Title)
		sb.WriteString(" ")
		sb.WriteString(p.Card.Description)
	}
	if p.Poll != nil {
		for _, opt := range p.Poll.Options {
			sb.WriteString(" ")
			sb.WriteString(opt.Title)
		}
	}
	return sb.String()
}

// ContainsMutedWord reports whether any muted word appears in the post's
// combined text, matching case-insensitively as a plain substring or as a
// hashtag. Matching posts are suppressed from normal rendering but never
// deleted.
func ContainsMutedWord(p *models.Post, words []string) bool {
	if len(words) == 0 {
		return false
	}
	text := strings.ToLower(PostText(p))
	for _, word := range words {
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" {
			continue
		}
		// A word entered as "#tag" also matches the bare tag text.
		if strings.Contains(text, w) || strings.Contains(text, strings.TrimPrefix(w, "#")) {
			return true
		}
	}
	return false
}
