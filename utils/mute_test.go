// fedistash/utils/mute_test.go
package utils

import (
	"testing"

	"fedistash/models"
)

func TestContainsMutedWordContent(t *testing.T) {
	p := &models.Post{Content: "<p>Big Crypto Giveaway</p>"}
	if !ContainsMutedWord(p, []string{"crypto"}) {
		t.Error("Expected case-insensitive content match")
	}
	if ContainsMutedWord(p, []string{"spam"}) {
		t.Error("Expected no match for absent word")
	}
	if ContainsMutedWord(p, nil) {
		t.Error("Expected no match with empty word list")
	}
}

func TestContainsMutedWordMediaDescription(t *testing.T) {
	p := &models.Post{
		Content:          "<p>look</p>",
		MediaAttachments: []models.MediaAttachment{{Type: "image", Description: "a spoiler screenshot"}},
	}
	if !ContainsMutedWord(p, []string{"SPOILER"}) {
		t.Error("Expected match against media description")
	}
}

func TestContainsMutedWordCard(t *testing.T) {
	p := &models.Post{
		Content: "<p>read this</p>",
		Card:    &models.Card{Type: "link", URL: "https://example.com", Title: "Election results", Description: "live blog"},
	}
	if !ContainsMutedWord(p, []string{"election"}) {
		t.Error("Expected match against card title")
	}
}

func TestContainsMutedWordPollOption(t *testing.T) {
	p := &models.Post{
		Content: "<p>vote</p>",
		Poll:    &models.Poll{ID: "p1", Options: []models.PollOption{{Title: "pineapple on pizza"}}},
	}
	if !ContainsMutedWord(p, []string{"pineapple"}) {
		t.Error("Expected match against poll option")
	}
}

// A word saved as "#tag" also suppresses posts that mention the bare tag.
func TestContainsMutedWordHashtagForm(t *testing.T) {
	p := &models.Post{Content: "<p>all about nfts today</p>"}
	if !ContainsMutedWord(p, []string{"#nfts"}) {
		t.Error("Expected #word to match bare occurrence")
	}
}

func TestContainsMutedWordSkipsBlankEntries(t *testing.T) {
	p := &models.Post{Content: "<p>anything</p>"}
	if ContainsMutedWord(p, []string{"", "  "}) {
		t.Error("Expected blank muted words to be ignored")
	}
}
