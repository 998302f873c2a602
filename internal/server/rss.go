package server

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/TobiSchelling/newsdesk/internal/compose"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
)

// rssLimit is the number of items in /feed.xml.
const rssLimit = 50

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	PubDate     string  `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// handleRSS serves the global feed. It never varies by principal.
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request, _ *domain.Principal, _ httprouter.Params) error {
	articles, err := s.desk.ListArticles(r.Context(), nil, feed.All, rssLimit)
	if err != nil {
		return err
	}
	dir, err := s.directory(r.Context())
	if err != nil {
		return err
	}

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       s.opts.SiteTitle,
			Link:        strings.TrimSuffix(s.opts.BaseURL, "/") + "/",
			Description: "Approved articles from " + s.opts.SiteTitle,
		},
	}
	for _, a := range articles {
		link := s.desk.ArticleURL(a.ID)
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       a.Title,
			Link:        link,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			Description: compose.Excerpt(a.Body, compose.DefaultExcerptLength),
			Category:    dir.view(a).Publisher,
			PubDate:     a.CreatedAt.UTC().Format(time.RFC1123Z),
		})
	}
	if len(articles) > 0 {
		doc.Channel.LastBuildDate = articles[0].UpdatedAt.UTC().Format(time.RFC1123Z)
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		s.logger.Error("encoding rss", "error", err)
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
