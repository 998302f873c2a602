// Package feed computes article listings: the public feed, a reader's
// subscribed feed and the role-scoped working lists.
package feed

import (
	"context"
	"fmt"
	"sort"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
	"github.com/TobiSchelling/newsdesk/internal/workflow"
)

// Filter selects a listing.
type Filter string

const (
	All           Filter = "all"
	Independent   Filter = "independent"
	PublisherOnly Filter = "publisher"
	Subscribed    Filter = "subscribed"
	OwnDrafts     Filter = "own"
	Workspace     Filter = "workspace"
	Pending       Filter = "pending"
)

// Filters lists every filter in display order.
var Filters = []Filter{All, Independent, PublisherOnly, Subscribed, OwnDrafts, Workspace, Pending}

// ParseFilter maps a query value to a Filter. The empty string is All.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return All, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", domain.Invalid("filter", "unknown filter %q", s)
}

// Source is the storage the resolver reads from. ListArticles must return
// rows ordered newest first.
type Source interface {
	ListArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, error)
	SubscriptionsOf(ctx context.Context, readerID int64) (domain.Subscriptions, error)
}

// Resolver builds listings for a principal.
type Resolver struct {
	src Source
}

// NewResolver returns a Resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the listing selected by f for p. A limit of zero or less
// means unlimited.
func (r *Resolver) Resolve(ctx context.Context, p *domain.Principal, f Filter, limit int) ([]domain.Article, error) {
	switch f {
	case All, Independent, PublisherOnly:
		return r.Global(ctx, f, limit)
	case Subscribed:
		return r.Subscribed(ctx, p, limit)
	case OwnDrafts:
		return r.OwnDrafts(ctx, p, limit)
	case Workspace:
		return r.Workspace(ctx, p, limit)
	case Pending:
		return r.Pending(ctx, p, limit)
	}
	return nil, domain.Invalid("filter", "unknown filter %q", f)
}

// Global returns approved articles, optionally narrowed to independent or
// publisher-backed ones.
func (r *Resolver) Global(ctx context.Context, scope Filter, limit int) ([]domain.Article, error) {
	q := domain.ArticleQuery{States: []domain.State{domain.Approved}, Limit: limit}
	switch scope {
	case Independent:
		q.HasPublisher = boolPtr(false)
	case PublisherOnly:
		q.HasPublisher = boolPtr(true)
	}
	articles, err := r.src.ListArticles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing global feed: %w", err)
	}
	return visibleOnly(articles), nil
}

// Subscribed returns approved articles whose publisher or author p follows.
// A principal following nothing gets an empty feed.
func (r *Resolver) Subscribed(ctx context.Context, p *domain.Principal, limit int) ([]domain.Article, error) {
	if !p.IsReader() {
		return []domain.Article{}, nil
	}
	subs, err := r.src.SubscriptionsOf(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}
	return r.forSubscriptions(ctx, subs, limit)
}

func (r *Resolver) forSubscriptions(ctx context.Context, subs domain.Subscriptions, limit int) ([]domain.Article, error) {
	if subs.Empty() {
		return []domain.Article{}, nil
	}
	approved := []domain.State{domain.Approved}

	var byPublisher, byAuthor []domain.Article
	if len(subs.PublisherIDs) > 0 {
		var err error
		byPublisher, err = r.src.ListArticles(ctx, domain.ArticleQuery{
			States: approved, PublisherIDs: subs.PublisherIDs, Limit: limit,
		})
		if err != nil {
			return nil, fmt.Errorf("listing subscribed publishers: %w", err)
		}
	}
	if len(subs.JournalistIDs) > 0 {
		var err error
		byAuthor, err = r.src.ListArticles(ctx, domain.ArticleQuery{
			States: approved, AuthorIDs: subs.JournalistIDs, Limit: limit,
		})
		if err != nil {
			return nil, fmt.Errorf("listing subscribed journalists: %w", err)
		}
	}

	merged := Union(byPublisher, byAuthor)
	return truncate(visibleOnly(merged), limit), nil
}

// OwnDrafts returns p's own articles in every state.
func (r *Resolver) OwnDrafts(ctx context.Context, p *domain.Principal, limit int) ([]domain.Article, error) {
	if p == nil || !role.Capabilities(p.Role).Has(role.ViewOwnDrafts) {
		return []domain.Article{}, nil
	}
	articles, err := r.src.ListArticles(ctx, domain.ArticleQuery{AuthorIDs: []int64{p.ID}, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing own articles: %w", err)
	}
	return articles, nil
}

// Workspace is the everyday list: editors see everything, journalists their
// own articles plus approved ones, everyone else approved only.
func (r *Resolver) Workspace(ctx context.Context, p *domain.Principal, limit int) ([]domain.Article, error) {
	var q domain.ArticleQuery
	caps := role.Anonymous()
	if p != nil {
		caps = role.Capabilities(p.Role)
	}
	switch {
	case caps.Has(role.ViewAllArticles):
		q = domain.ArticleQuery{Limit: limit}
	case caps.Has(role.ViewOwnDrafts):
		q = domain.ArticleQuery{States: []domain.State{domain.Approved}, OwnedBy: p.ID, Limit: limit}
	default:
		return r.Global(ctx, All, limit)
	}
	articles, err := r.src.ListArticles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing workspace: %w", err)
	}
	return articles, nil
}

// Pending is the review queue: every article that is not approved. Only
// principals who can see all articles get a non-empty queue.
func (r *Resolver) Pending(ctx context.Context, p *domain.Principal, limit int) ([]domain.Article, error) {
	if p == nil || !role.Capabilities(p.Role).Has(role.ViewAllArticles) {
		return []domain.Article{}, nil
	}
	articles, err := r.src.ListArticles(ctx, domain.ArticleQuery{
		States: []domain.State{domain.Draft, domain.Declined},
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing pending articles: %w", err)
	}
	return articles, nil
}

// Union merges article lists, dropping duplicate ids, newest first.
func Union(lists ...[]domain.Article) []domain.Article {
	seen := make(map[int64]bool)
	var out []domain.Article
	for _, l := range lists {
		for _, a := range l {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, a)
		}
	}
	SortNewestFirst(out)
	if out == nil {
		out = []domain.Article{}
	}
	return out
}

// SortNewestFirst orders by creation time descending, then id descending.
func SortNewestFirst(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func visibleOnly(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	for i := range articles {
		if workflow.Visible(&articles[i]) {
			out = append(out, articles[i])
		}
	}
	return out
}

func truncate(articles []domain.Article, limit int) []domain.Article {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}

func boolPtr(b bool) *bool { return &b }
