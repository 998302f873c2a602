package newsdesk

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/authz"
	"github.com/TobiSchelling/newsdesk/internal/compose"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
	"github.com/TobiSchelling/newsdesk/internal/notify"
	"github.com/TobiSchelling/newsdesk/internal/workflow"
)

// Approval is the outcome of ApproveArticle. Warning is set when the
// approval committed but its notification could not be delivered.
type Approval struct {
	Article domain.Article
	Warning error
}

// CreateArticle submits a new Draft authored by p.
func (d *Desk) CreateArticle(ctx context.Context, p *domain.Principal, f domain.ArticleFields) (*domain.Article, error) {
	if err := authz.Authorize(p, authz.CreateArticle, nil); err != nil {
		return nil, err
	}
	if err := d.checkPublisher(ctx, f.PublisherID); err != nil {
		return nil, err
	}

	a, err := workflow.Submit(p.ID, f, d.now())
	if err != nil {
		return nil, err
	}
	id, err := d.store.InsertArticle(ctx, a)
	if err != nil {
		return nil, err
	}
	a.ID = id

	d.logger.Info("article submitted", "article_id", id, "author", p.Username)
	return &a, nil
}

// EditArticle applies a content patch.
func (d *Desk) EditArticle(ctx context.Context, p *domain.Principal, id int64, patch domain.ArticlePatch) (*domain.Article, error) {
	a, err := d.loadFor(ctx, p, authz.EditArticle, id)
	if err != nil {
		return nil, err
	}
	if err := d.checkPublisher(ctx, patch.PublisherID); err != nil {
		return nil, err
	}

	updated, err := workflow.Edit(*a, patch, d.now(), d.opts.RereviewOnEdit)
	if err != nil {
		return nil, err
	}
	if updated.State == a.State {
		err = d.store.UpdateArticleContent(ctx, updated)
	} else {
		err = d.store.UpdateArticle(ctx, updated, d.expected(a.State))
	}
	if err != nil {
		return nil, err
	}

	// Re-read so a review that committed in between is reflected.
	return d.store.ArticleByID(ctx, id)
}

// DeleteArticle removes an article permanently.
func (d *Desk) DeleteArticle(ctx context.Context, p *domain.Principal, id int64) error {
	if _, err := d.loadFor(ctx, p, authz.DeleteArticle, id); err != nil {
		return err
	}
	if err := d.store.DeleteArticle(ctx, id); err != nil {
		return err
	}
	d.logger.Info("article deleted", "article_id", id, "by", p.Username)
	return nil
}

// ApproveArticle publishes an article and announces it to subscribers.
// Notification problems never undo the approval; they come back as
// Approval.Warning.
func (d *Desk) ApproveArticle(ctx context.Context, p *domain.Principal, id int64) (*Approval, error) {
	a, err := d.loadFor(ctx, p, authz.ApproveArticle, id)
	if err != nil {
		return nil, err
	}

	updated, ev, err := workflow.Approve(*a, p.ID, d.now())
	if err != nil {
		return nil, err
	}
	// A concurrent approval is not a conflict; both editors succeed.
	if err := d.store.UpdateArticleLifecycle(ctx, updated, d.expected(a.State, domain.Approved)); err != nil {
		return nil, err
	}
	d.logger.Info("article approved", "article_id", id, "editor", p.Username)

	return &Approval{Article: updated, Warning: d.announce(ctx, updated, ev)}, nil
}

// DeclineArticle rejects an article with an optional reason.
func (d *Desk) DeclineArticle(ctx context.Context, p *domain.Principal, id int64, reason string) (*domain.Article, error) {
	a, err := d.loadFor(ctx, p, authz.DeclineArticle, id)
	if err != nil {
		return nil, err
	}

	updated, err := workflow.Decline(*a, p.ID, reason, d.now())
	if err != nil {
		return nil, err
	}
	if err := d.store.UpdateArticleLifecycle(ctx, updated, d.expected(a.State)); err != nil {
		return nil, err
	}
	d.logger.Info("article declined", "article_id", id, "editor", p.Username)
	return &updated, nil
}

// GetArticle returns an article p may see.
func (d *Desk) GetArticle(ctx context.Context, p *domain.Principal, id int64) (*domain.Article, error) {
	return d.loadFor(ctx, p, authz.ViewArticle, id)
}

// ListArticles returns the listing selected by f. A non-positive limit
// means unlimited.
func (d *Desk) ListArticles(ctx context.Context, p *domain.Principal, f feed.Filter, limit int) ([]domain.Article, error) {
	return d.feed.Resolve(ctx, p, f, limit)
}

// HasSource reports whether an article was already imported from url.
func (d *Desk) HasSource(ctx context.Context, url string) (bool, error) {
	_, err := d.store.ArticleBySourceURL(ctx, url)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// loadFor runs the role-only check, loads the article and runs the full
// check against it.
func (d *Desk) loadFor(ctx context.Context, p *domain.Principal, op authz.Operation, id int64) (*domain.Article, error) {
	if err := authz.Authorize(p, op, nil); err != nil {
		return nil, err
	}
	a, err := d.store.ArticleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(p, op, a); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return a, nil
}

func (d *Desk) expected(states ...domain.State) []domain.State {
	if !d.opts.CompareAndSet {
		return nil
	}
	return states
}

func (d *Desk) checkPublisher(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := d.store.PublisherByID(ctx, *id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("publisher", "publisher %d does not exist", *id)
		}
		return err
	}
	return nil
}

// announce builds and dispatches the approval notification. Every failure
// is returned as a warning.
func (d *Desk) announce(ctx context.Context, a domain.Article, ev workflow.ApprovalEvent) error {
	if d.dispatcher == nil {
		return nil
	}

	event := notify.ApprovalEvent{
		Key:        notify.EventKey(a.ID, ev.ApprovedAt),
		ArticleID:  a.ID,
		Title:      a.Title,
		Excerpt:    compose.Excerpt(a.Body, d.opts.ExcerptLength),
		URL:        d.ArticleURL(a.ID),
		ApprovedBy: ev.ApprovedBy,
		ApprovedAt: ev.ApprovedAt,
	}
	if author, err := d.store.UserByID(ctx, a.AuthorID); err == nil {
		event.Author = author.Username
	}
	if a.PublisherID != nil {
		if pub, err := d.store.PublisherByID(ctx, *a.PublisherID); err == nil {
			event.Publisher = pub.Title
		}
	}

	recipients, err := d.store.SubscriberEmails(ctx, a.PublisherID, a.AuthorID)
	if err != nil {
		d.logger.Warn("loading notification recipients failed", "article_id", a.ID, "error", err)
		return fmt.Errorf("loading recipients: %w", err)
	}
	event.Recipients = recipients

	return d.dispatcher.Dispatch(ctx, event)
}
