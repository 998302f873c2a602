package domain

import (
	"time"

	"github.com/TobiSchelling/newsdesk/internal/role"
)

// Principal is a registered user. A nil *Principal is the anonymous caller.
type Principal struct {
	ID        int64
	Username  string
	Email     string
	Bio       string
	Role      role.Role
	CreatedAt time.Time
}

// IsReader reports whether p is an authenticated reader.
func (p *Principal) IsReader() bool { return p != nil && p.Role == role.Reader }

// IsJournalist reports whether p is an authenticated journalist.
func (p *Principal) IsJournalist() bool { return p != nil && p.Role == role.Journalist }

// IsEditor reports whether p is an authenticated editor.
func (p *Principal) IsEditor() bool { return p != nil && p.Role == role.Editor }

// State is an article lifecycle state.
type State string

const (
	Draft    State = "draft"
	Approved State = "approved"
	Declined State = "declined"
)

func (s State) Valid() bool {
	switch s {
	case Draft, Approved, Declined:
		return true
	}
	return false
}

// Article is a journalist-authored piece moving through editorial review.
type Article struct {
	ID             int64
	Title          string
	Body           string
	ImageURL       string
	PublisherID    *int64
	AuthorID       int64
	SourceURL      *string
	State          State
	ApprovedBy     *int64
	DeclinedBy     *int64
	DeclinedReason string
	DeclinedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ArticleFields is the client-editable content of an article. Authorship and
// lifecycle fields are never taken from a payload.
type ArticleFields struct {
	Title       string
	Body        string
	ImageURL    string
	PublisherID *int64
	SourceURL   *string
}

// ArticlePatch is a partial edit; nil fields are left unchanged.
type ArticlePatch struct {
	Title          *string
	Body           *string
	ImageURL       *string
	PublisherID    *int64
	ClearPublisher bool
}

// Publisher is a media organization with its own editors and journalists.
type Publisher struct {
	ID            int64
	Title         string
	Description   string
	EditorIDs     []int64
	JournalistIDs []int64
	CreatedAt     time.Time
}

// Newsletter groups articles under a journalist's curation.
type Newsletter struct {
	ID          int64
	Title       string
	Description string
	AuthorID    int64
	ArticleIDs  []int64
	CreatedAt   time.Time
}

// NewsletterFields is the editable content of a newsletter.
type NewsletterFields struct {
	Title       string
	Description string
	ArticleIDs  []int64
}

// SubscriptionKind selects one of the two reader relations.
type SubscriptionKind string

const (
	SubscribePublisher  SubscriptionKind = "publisher"
	SubscribeJournalist SubscriptionKind = "journalist"
)

// Subscriptions holds both relations of a reader.
type Subscriptions struct {
	PublisherIDs  []int64
	JournalistIDs []int64
}

// Empty reports whether the reader follows nothing.
func (s Subscriptions) Empty() bool {
	return len(s.PublisherIDs) == 0 && len(s.JournalistIDs) == 0
}

// ArticleQuery is the storage-level selection used by feeds and listings.
// Zero values mean "no constraint"; set constraints are AND-ed.
type ArticleQuery struct {
	States       []State
	PublisherIDs []int64
	AuthorIDs    []int64
	HasPublisher *bool
	// OwnedBy adds "OR author_id = OwnedBy" to the state constraint, used by
	// the journalist workspace (own articles in any state plus approved).
	OwnedBy int64
	Limit   int
}

// Stats contains aggregate counts for the status command.
type Stats struct {
	Users         int
	Readers       int
	Journalists   int
	Editors       int
	Articles      int
	Drafts        int
	Approved      int
	Declined      int
	Publishers    int
	Newsletters   int
	Subscriptions int
}
