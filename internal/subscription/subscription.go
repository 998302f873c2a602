// Package subscription maintains the two reader relations: followed
// publishers and followed journalists.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

// Store is the persistence the index needs. ToggleSubscription must flip one
// (reader, kind, target) pair atomically and report the resulting state.
type Store interface {
	UserByID(ctx context.Context, id int64) (*domain.Principal, error)
	PublisherByID(ctx context.Context, id int64) (*domain.Publisher, error)
	ToggleSubscription(ctx context.Context, readerID int64, kind domain.SubscriptionKind, targetID int64) (bool, error)
	SubscriptionsOf(ctx context.Context, readerID int64) (domain.Subscriptions, error)
}

// Index toggles and reads subscriptions.
type Index struct {
	store Store
}

// New returns an Index over store.
func New(store Store) *Index {
	return &Index{store: store}
}

// Toggle flips p's subscription to target and returns true when p is now
// subscribed. Only readers may subscribe; journalist targets must currently
// hold the journalist role.
func (x *Index) Toggle(ctx context.Context, p *domain.Principal, kind domain.SubscriptionKind, targetID int64) (bool, error) {
	if !p.IsReader() {
		return false, domain.Deny("only readers can subscribe")
	}

	switch kind {
	case domain.SubscribePublisher:
		if _, err := x.store.PublisherByID(ctx, targetID); err != nil {
			return false, notFound(err, "publisher", targetID)
		}
	case domain.SubscribeJournalist:
		u, err := x.store.UserByID(ctx, targetID)
		if err != nil {
			return false, notFound(err, "journalist", targetID)
		}
		if u.Role != role.Journalist {
			return false, fmt.Errorf("user %d is not a journalist: %w", targetID, domain.ErrNotFound)
		}
	default:
		return false, domain.Invalid("kind", "unknown subscription kind %q", kind)
	}

	on, err := x.store.ToggleSubscription(ctx, p.ID, kind, targetID)
	if err != nil {
		return false, fmt.Errorf("toggling %s subscription: %w", kind, err)
	}
	return on, nil
}

// Of returns both subscription sets of p. Non-readers have none.
func (x *Index) Of(ctx context.Context, p *domain.Principal) (domain.Subscriptions, error) {
	if !p.IsReader() {
		return domain.Subscriptions{}, nil
	}
	subs, err := x.store.SubscriptionsOf(ctx, p.ID)
	if err != nil {
		return domain.Subscriptions{}, fmt.Errorf("loading subscriptions: %w", err)
	}
	return subs, nil
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("loading %s %d: %w", what, id, err)
}
