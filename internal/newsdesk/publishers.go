package newsdesk

import (
	"context"
	"strings"

	"github.com/TobiSchelling/newsdesk/internal/authz"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

// CreatePublisher registers a publisher with p as its first editor.
func (d *Desk) CreatePublisher(ctx context.Context, p *domain.Principal, title, description string) (*domain.Publisher, error) {
	if err := authz.Authorize(p, authz.ManagePublisher, nil); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.Invalid("title", "must not be empty")
	}

	pub := domain.Publisher{
		Title:         title,
		Description:   strings.TrimSpace(description),
		EditorIDs:     []int64{p.ID},
		JournalistIDs: []int64{},
		CreatedAt:     d.now(),
	}
	id, err := d.store.InsertPublisher(ctx, pub)
	if err != nil {
		return nil, err
	}
	pub.ID = id

	d.logger.Info("publisher created", "publisher_id", id, "title", title)
	return &pub, nil
}

// DeletePublisher removes a publisher; its articles become independent.
func (d *Desk) DeletePublisher(ctx context.Context, p *domain.Principal, id int64) error {
	if err := authz.Authorize(p, authz.ManagePublisher, nil); err != nil {
		return err
	}
	if err := d.store.DeletePublisher(ctx, id); err != nil {
		return err
	}
	d.logger.Info("publisher deleted", "publisher_id", id)
	return nil
}

// AddPublisherJournalist adds a journalist to a publisher's staff.
func (d *Desk) AddPublisherJournalist(ctx context.Context, p *domain.Principal, publisherID, userID int64) (*domain.Publisher, error) {
	if err := authz.Authorize(p, authz.ManagePublisher, nil); err != nil {
		return nil, err
	}
	if _, err := d.store.PublisherByID(ctx, publisherID); err != nil {
		return nil, err
	}
	u, err := d.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != role.Journalist {
		return nil, domain.Invalid("user", "%s is not a journalist", u.Username)
	}
	if err := d.store.AddPublisherJournalist(ctx, publisherID, userID); err != nil {
		return nil, err
	}
	return d.store.PublisherByID(ctx, publisherID)
}

// ListPublishers returns every publisher.
func (d *Desk) ListPublishers(ctx context.Context) ([]domain.Publisher, error) {
	return d.store.ListPublishers(ctx)
}

// GetPublisher returns a single publisher.
func (d *Desk) GetPublisher(ctx context.Context, id int64) (*domain.Publisher, error) {
	return d.store.PublisherByID(ctx, id)
}
