// fedistash/bucket/categories.go
package bucket

import "fmt"

// Category maps a URL slug to a bucket and its display label.
type Category struct {
	Slug   string `json:"slug"`
	Bucket Bucket `json:"bucket"`
	Label  string `json:"label"`
}

// Categories is the navigable category list, in display order.
var Categories = []Category{
	{Slug: "regular", Bucket: Regular, Label: "Regular"},
	{Slug: "questions", Bucket: Questions, Label: "Questions"},
	{Slug: "with-images", Bucket: WithImages, Label: "Images"},
	{Slug: "hashtags", Bucket: Hashtags, Label: "Hashtags"},
	{Slug: "with-links", Bucket: WithLinks, Label: "Links"},
	{Slug: "videos", Bucket: Videos, Label: "Videos"},
	{Slug: "direct-mentions", Bucket: DirectMentions, Label: "Mentions"},
	{Slug: "from-bots", Bucket: FromBots, Label: "Bots"},
	{Slug: "non-english", Bucket: NonEnglish, Label: "Non-English"},
	{Slug: "reblogs", Bucket: Reblogs, Label: "Reblogs"},
	{Slug: "saved", Bucket: Saved, Label: "Saved"},
}

// BySlug resolves a category slug used by the HTTP surface.
func BySlug(slug string) (Category, error) {
	for _, c := range Categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("invalid category slug: %s", slug)
}
