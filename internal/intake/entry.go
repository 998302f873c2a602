package intake

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Entry is a feed item reduced to what an article draft needs.
type Entry struct {
	URL      string
	Title    string
	Content  string
	ImageURL string
}

func parseItem(item *gofeed.Item) *Entry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if !strings.HasPrefix(itemURL, "http://") && !strings.HasPrefix(itemURL, "https://") {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &Entry{
		URL:      itemURL,
		Title:    title,
		Content:  content,
		ImageURL: itemImage(item),
	}
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
