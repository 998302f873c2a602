// Package compose builds the markdown and plain text the platform sends out:
// newsletter bodies and approval notices.
package compose

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

const emptyNewsletter = "No approved articles in this newsletter yet."

// DefaultExcerptLength is used when a caller passes a non-positive length.
const DefaultExcerptLength = 200

var (
	markupRe = regexp.MustCompile("(?m)^#{1,6}\\s+|[*_`>]|!?\\[([^\\]]*)\\]\\([^)]*\\)")
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Excerpt flattens a markdown body to one line of at most n runes, cut at a
// word boundary.
func Excerpt(body string, n int) string {
	if n <= 0 {
		n = DefaultExcerptLength
	}
	text := markupRe.ReplaceAllString(body, "$1")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// LinkFunc returns the public URL of an article.
type LinkFunc func(articleID int64) string

// Newsletter renders n as markdown. Only the given articles are included, in
// the order the newsletter lists them; callers pass approved articles only.
func Newsletter(n domain.Newsletter, articles []domain.Article, link LinkFunc, excerptLen int) string {
	byID := make(map[int64]domain.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", n.Title)
	if desc := strings.TrimSpace(n.Description); desc != "" {
		fmt.Fprintf(&b, "\n%s\n", desc)
	}

	var sections []string
	for _, id := range n.ArticleIDs {
		a, ok := byID[id]
		if !ok {
			continue
		}
		section := fmt.Sprintf("## %s\n\n%s", a.Title, Excerpt(a.Body, excerptLen))
		if link != nil {
			section += fmt.Sprintf("\n\n[Read the full article](%s)", link(a.ID))
		}
		sections = append(sections, section)
	}

	if len(sections) == 0 {
		b.WriteString("\n" + emptyNewsletter + "\n")
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

// Notice is the content of an approval announcement.
type Notice struct {
	Title     string
	Author    string
	Publisher string
	Excerpt   string
	URL       string
}

// Subject is the one-line headline of the notice.
func (n Notice) Subject() string {
	if n.Publisher != "" {
		return fmt.Sprintf("New from %s: %s", n.Publisher, n.Title)
	}
	return fmt.Sprintf("New from %s: %s", n.Author, n.Title)
}

// Text is the plain-text body of the notice.
func (n Notice) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", n.Title)
	if n.Publisher != "" {
		fmt.Fprintf(&b, "by %s for %s\n", n.Author, n.Publisher)
	} else {
		fmt.Fprintf(&b, "by %s\n", n.Author)
	}
	if n.Excerpt != "" {
		fmt.Fprintf(&b, "\n%s\n", n.Excerpt)
	}
	if n.URL != "" {
		fmt.Fprintf(&b, "\nRead more: %s\n", n.URL)
	}
	return b.String()
}
