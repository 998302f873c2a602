package compose

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

func TestExcerptStripsMarkup(t *testing.T) {
	body := "# Heading\n\nSome **bold** and _italic_ text with a [link](https://x.com) and `code`."
	got := Excerpt(body, 500)
	want := "Heading Some bold and italic text with a link and code."
	if got != want {
		t.Errorf("Excerpt = %q, want %q", got, want)
	}
}

func TestExcerptTruncatesAtWord(t *testing.T) {
	body := strings.Repeat("word ", 100)
	got := Excerpt(body, 42)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if n := utf8.RuneCountInString(got); n > 43 {
		t.Errorf("excerpt has %d runes, want at most 43", n)
	}
	if strings.Contains(got, "wor…") {
		t.Errorf("cut mid-word: %q", got)
	}
}

func TestExcerptDefaultLength(t *testing.T) {
	got := Excerpt(strings.Repeat("a ", 500), 0)
	if n := utf8.RuneCountInString(got); n > DefaultExcerptLength+1 {
		t.Errorf("excerpt has %d runes", n)
	}
}

func link(id int64) string { return fmt.Sprintf("https://news.example.com/article/%d", id) }

func TestNewsletter(t *testing.T) {
	n := domain.Newsletter{
		Title:       "Weekly Harbour",
		Description: "What moved on the water.",
		ArticleIDs:  []int64{2, 1, 3},
	}
	articles := []domain.Article{
		{ID: 1, Title: "Ferries resume", Body: "The ferries are back."},
		{ID: 2, Title: "New crane", Body: "A crane arrived."},
	}

	md := Newsletter(n, articles, link, 100)

	if !strings.HasPrefix(md, "# Weekly Harbour\n") {
		t.Errorf("missing title: %q", md)
	}
	if !strings.Contains(md, "What moved on the water.") {
		t.Error("missing description")
	}
	if i, j := strings.Index(md, "New crane"), strings.Index(md, "Ferries resume"); i < 0 || j < 0 || i > j {
		t.Errorf("sections out of newsletter order:\n%s", md)
	}
	if !strings.Contains(md, "(https://news.example.com/article/1)") {
		t.Error("missing article link")
	}
	if strings.Count(md, "---") != 1 {
		t.Errorf("expected one separator:\n%s", md)
	}
}

func TestNewsletterWithoutArticles(t *testing.T) {
	md := Newsletter(domain.Newsletter{Title: "Empty", ArticleIDs: []int64{9}}, nil, nil, 0)
	if !strings.Contains(md, emptyNewsletter) {
		t.Errorf("expected placeholder, got %q", md)
	}
}

func TestNotice(t *testing.T) {
	n := Notice{Title: "Ferries resume", Author: "jon", Publisher: "Harbour Daily", Excerpt: "Back.", URL: "https://x/1"}
	if got := n.Subject(); got != "New from Harbour Daily: Ferries resume" {
		t.Errorf("Subject = %q", got)
	}
	text := n.Text()
	for _, want := range []string{"Ferries resume\n", "by jon for Harbour Daily", "Back.", "Read more: https://x/1"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text missing %q:\n%s", want, text)
		}
	}

	independent := Notice{Title: "Solo", Author: "jane"}
	if got := independent.Subject(); got != "New from jane: Solo" {
		t.Errorf("Subject = %q", got)
	}
	if strings.Contains(independent.Text(), "Read more") {
		t.Error("no URL should mean no link line")
	}
}
