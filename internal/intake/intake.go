// Package intake imports syndicated RSS and Atom items as article drafts.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/newsdesk/internal/authz"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/workflow"
)

// DefaultMaxItems bounds how many feed items one import looks at.
const DefaultMaxItems = 20

// Desk is the part of the command surface intake drives.
type Desk interface {
	CreateArticle(ctx context.Context, p *domain.Principal, f domain.ArticleFields) (*domain.Article, error)
	HasSource(ctx context.Context, url string) (bool, error)
}

// Options configures an Importer.
type Options struct {
	FetchFullText bool
	MaxItems      int
	Timeout       time.Duration
}

// Result holds the counters of one import run.
type Result struct {
	Found      int
	Created    int
	Duplicates int
	Failed     int
}

// Importer turns feed items into drafts.
type Importer struct {
	desk    Desk
	parser  *gofeed.Parser
	fetcher *Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewImporter creates an importer that submits drafts through desk.
func NewImporter(desk Desk, opts Options, logger *slog.Logger) *Importer {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: opts.Timeout}

	imp := &Importer{
		desk:   desk,
		parser: parser,
		opts:   opts,
		logger: logger.With("component", "intake"),
	}
	if opts.FetchFullText {
		imp.fetcher = NewFetcher(opts.Timeout)
	}
	return imp
}

// Import reads feedURL and submits each new item as a Draft authored by p,
// optionally attached to a publisher.
func (imp *Importer) Import(ctx context.Context, p *domain.Principal, feedURL string, publisherID *int64) (*Result, error) {
	if err := authz.Authorize(p, authz.CreateArticle, nil); err != nil {
		return nil, err
	}

	feed, err := imp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	result := &Result{}
	failedHosts := make(map[string]struct{})

	for _, item := range feed.Items {
		if result.Found >= imp.opts.MaxItems {
			break
		}
		result.Found++

		entry := parseItem(item)
		if entry == nil {
			result.Failed++
			continue
		}

		seen, err := imp.desk.HasSource(ctx, entry.URL)
		if err != nil {
			return result, err
		}
		if seen {
			result.Duplicates++
			continue
		}

		body, image := imp.fullText(ctx, entry, failedHosts)
		if body == "" {
			imp.logger.Warn("no content for feed item", "url", entry.URL)
			result.Failed++
			continue
		}

		source := entry.URL
		_, err = imp.desk.CreateArticle(ctx, p, domain.ArticleFields{
			Title:       truncateTitle(entry.Title),
			Body:        body,
			ImageURL:    image,
			PublisherID: publisherID,
			SourceURL:   &source,
		})
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrDenied):
			return result, err
		case errors.Is(err, domain.ErrValidation):
			imp.logger.Warn("feed item rejected", "url", entry.URL, "error", err)
			result.Failed++
		default:
			return result, err
		}
	}

	imp.logger.Info("feed imported",
		"feed", feedURL,
		"found", result.Found,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"failed", result.Failed,
	)
	return result, nil
}

// fullText prefers the extracted page text and falls back to the feed's own
// content. Hosts that answered with an HTTP error are not asked again.
func (imp *Importer) fullText(ctx context.Context, e *Entry, failedHosts map[string]struct{}) (string, string) {
	body, image := e.Content, e.ImageURL
	if imp.fetcher == nil {
		return body, image
	}

	host := ""
	if u, err := url.Parse(e.URL); err == nil {
		host = strings.ToLower(u.Host)
	}
	if _, failed := failedHosts[host]; failed {
		return body, image
	}

	text, err := imp.fetcher.Fetch(ctx, e.URL)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) && host != "" {
			failedHosts[host] = struct{}{}
		}
		imp.logger.Debug("full text fetch failed", "url", e.URL, "error", err)
		return body, image
	}
	if text != "" {
		body = text
	}
	return body, image
}

func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= workflow.MaxTitleRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:workflow.MaxTitleRunes-1])) + "…"
}
