// Package newsdesk is the command and query surface of the platform. Every
// caller (HTTP, CLI, syndication intake) goes through a Desk, which runs the
// authorization gate before touching storage.
package newsdesk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TobiSchelling/newsdesk/internal/compose"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/feed"
	"github.com/TobiSchelling/newsdesk/internal/notify"
	"github.com/TobiSchelling/newsdesk/internal/role"
	"github.com/TobiSchelling/newsdesk/internal/subscription"
)

// Store is the persistence a Desk needs. It is implemented by
// internal/database.
type Store interface {
	subscription.Store
	feed.Source

	InsertUser(ctx context.Context, u domain.Principal) (int64, error)
	UserByUsername(ctx context.Context, username string) (*domain.Principal, error)
	ListUsers(ctx context.Context) ([]domain.Principal, error)
	ChangeRole(ctx context.Context, userID int64, newRole role.Role) error

	InsertArticle(ctx context.Context, a domain.Article) (int64, error)
	ArticleByID(ctx context.Context, id int64) (*domain.Article, error)
	ArticleBySourceURL(ctx context.Context, url string) (*domain.Article, error)
	ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error)
	UpdateArticleContent(ctx context.Context, a domain.Article) error
	UpdateArticleLifecycle(ctx context.Context, a domain.Article, expected []domain.State) error
	UpdateArticle(ctx context.Context, a domain.Article, expected []domain.State) error
	DeleteArticle(ctx context.Context, id int64) error

	InsertPublisher(ctx context.Context, p domain.Publisher) (int64, error)
	ListPublishers(ctx context.Context) ([]domain.Publisher, error)
	DeletePublisher(ctx context.Context, id int64) error
	AddPublisherJournalist(ctx context.Context, publisherID, userID int64) error

	InsertNewsletter(ctx context.Context, n domain.Newsletter) (int64, error)
	UpdateNewsletter(ctx context.Context, n domain.Newsletter) error
	NewsletterByID(ctx context.Context, id int64) (*domain.Newsletter, error)
	ListNewsletters(ctx context.Context) ([]domain.Newsletter, error)
	DeleteNewsletter(ctx context.Context, id int64) error

	SubscriberEmails(ctx context.Context, publisherID *int64, authorID int64) ([]string, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Options tunes workflow behaviour.
type Options struct {
	// RereviewOnEdit sends an edited approved or declined article back to Draft.
	RereviewOnEdit bool
	// CompareAndSet makes state changes fail with ErrConflict when the
	// article's state changed since it was loaded. An approval still
	// succeeds over a competing approval.
	CompareAndSet bool
	// ExcerptLength bounds notification excerpts.
	ExcerptLength int
	// BaseURL prefixes article links in notifications.
	BaseURL string
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Desk executes commands and queries on behalf of a principal.
type Desk struct {
	store      Store
	subs       *subscription.Index
	feed       *feed.Resolver
	dispatcher *notify.Dispatcher
	opts       Options
	logger     *slog.Logger
}

// New wires a Desk. A nil dispatcher disables notifications.
func New(store Store, dispatcher *notify.Dispatcher, opts Options, logger *slog.Logger) *Desk {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = compose.DefaultExcerptLength
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Desk{
		store:      store,
		subs:       subscription.New(store),
		feed:       feed.NewResolver(store),
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.With("component", "newsdesk"),
	}
}

func (d *Desk) now() time.Time {
	return d.opts.Now().UTC()
}

// ArticleURL is the public link of an article.
func (d *Desk) ArticleURL(id int64) string {
	return fmt.Sprintf("%s/article/%d", d.opts.BaseURL, id)
}

// Stats returns aggregate counts.
func (d *Desk) Stats(ctx context.Context) (domain.Stats, error) {
	return d.store.Stats(ctx)
}
