package newsdesk

import (
	"context"
	"strings"

	"github.com/TobiSchelling/newsdesk/internal/authz"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/workflow"
)

// NewsletterView is a newsletter with its publicly visible articles, in the
// newsletter's order.
type NewsletterView struct {
	Newsletter domain.Newsletter
	Articles   []domain.Article
}

// CreateNewsletter creates a newsletter authored by p.
func (d *Desk) CreateNewsletter(ctx context.Context, p *domain.Principal, f domain.NewsletterFields) (*domain.Newsletter, error) {
	if err := authz.AuthorizeNewsletter(p, authz.CreateNewsletter, nil); err != nil {
		return nil, err
	}
	f, err := d.checkNewsletterFields(ctx, p, f)
	if err != nil {
		return nil, err
	}

	n := domain.Newsletter{
		Title:       f.Title,
		Description: f.Description,
		AuthorID:    p.ID,
		ArticleIDs:  f.ArticleIDs,
		CreatedAt:   d.now(),
	}
	id, err := d.store.InsertNewsletter(ctx, n)
	if err != nil {
		return nil, err
	}
	n.ID = id
	return &n, nil
}

// EditNewsletter replaces a newsletter's content.
func (d *Desk) EditNewsletter(ctx context.Context, p *domain.Principal, id int64, f domain.NewsletterFields) (*domain.Newsletter, error) {
	n, err := d.loadNewsletterFor(ctx, p, authz.EditNewsletter, id)
	if err != nil {
		return nil, err
	}
	f, err = d.checkNewsletterFields(ctx, p, f)
	if err != nil {
		return nil, err
	}

	n.Title = f.Title
	n.Description = f.Description
	n.ArticleIDs = f.ArticleIDs
	if err := d.store.UpdateNewsletter(ctx, *n); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNewsletter removes a newsletter.
func (d *Desk) DeleteNewsletter(ctx context.Context, p *domain.Principal, id int64) error {
	if _, err := d.loadNewsletterFor(ctx, p, authz.DeleteNewsletter, id); err != nil {
		return err
	}
	return d.store.DeleteNewsletter(ctx, id)
}

// GetNewsletter returns a newsletter with only its approved articles.
func (d *Desk) GetNewsletter(ctx context.Context, p *domain.Principal, id int64) (*NewsletterView, error) {
	n, err := d.loadNewsletterFor(ctx, p, authz.ViewNewsletter, id)
	if err != nil {
		return nil, err
	}
	articles, err := d.store.ArticlesByIDs(ctx, n.ArticleIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	view := &NewsletterView{Newsletter: *n, Articles: []domain.Article{}}
	for _, aid := range n.ArticleIDs {
		if a, ok := byID[aid]; ok && workflow.Visible(&a) {
			view.Articles = append(view.Articles, a)
		}
	}
	return view, nil
}

// ListNewsletters returns every newsletter.
func (d *Desk) ListNewsletters(ctx context.Context) ([]domain.Newsletter, error) {
	return d.store.ListNewsletters(ctx)
}

func (d *Desk) loadNewsletterFor(ctx context.Context, p *domain.Principal, op authz.Operation, id int64) (*domain.Newsletter, error) {
	if err := authz.AuthorizeNewsletter(p, op, nil); err != nil {
		return nil, err
	}
	n, err := d.store.NewsletterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeNewsletter(p, op, n); err != nil {
		return nil, err
	}
	return n, nil
}

// checkNewsletterFields trims the text fields, drops duplicate article IDs
// and rejects articles p cannot see.
func (d *Desk) checkNewsletterFields(ctx context.Context, p *domain.Principal, f domain.NewsletterFields) (domain.NewsletterFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if f.Title == "" {
		return f, domain.Invalid("title", "must not be empty")
	}

	seen := make(map[int64]bool, len(f.ArticleIDs))
	unique := make([]int64, 0, len(f.ArticleIDs))
	for _, id := range f.ArticleIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	f.ArticleIDs = unique

	articles, err := d.store.ArticlesByIDs(ctx, unique)
	if err != nil {
		return f, err
	}
	visible := make(map[int64]bool, len(articles))
	for i := range articles {
		if authz.CanView(p, &articles[i]) {
			visible[articles[i].ID] = true
		}
	}
	for _, id := range unique {
		if !visible[id] {
			return f, domain.Invalid("articles", "article %d does not exist", id)
		}
	}
	return f, nil
}
