// Package workflow is the article lifecycle: Draft, Approved and Declined.
//
// Every function here is pure. Callers load an article, apply a transition
// and persist the returned value; the transition never reaches into storage.
package workflow

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

// MaxTitleRunes matches the width of the title column.
const MaxTitleRunes = 200

// Event names a lifecycle transition.
type Event string

const (
	EventApprove Event = "approve"
	EventDecline Event = "decline"
)

// transitions lists the states each event may start from. Approving an
// approved article and declining a declined one are idempotent re-applications.
var transitions = map[Event][]domain.State{
	EventApprove: {domain.Draft, domain.Declined, domain.Approved},
	EventDecline: {domain.Draft, domain.Approved, domain.Declined},
}

// CanTransition reports whether ev is legal from state from.
func CanTransition(from domain.State, ev Event) bool {
	for _, s := range transitions[ev] {
		if s == from {
			return true
		}
	}
	return false
}

// Visible is the approved predicate: only approved articles are public.
func Visible(a *domain.Article) bool {
	return a != nil && a.State == domain.Approved
}

// ApprovalEvent is emitted by a successful approval.
type ApprovalEvent struct {
	ArticleID  int64
	ApprovedBy int64
	ApprovedAt time.Time
}

// Submit builds the initial Draft for a submission. The author is always
// the submitting principal.
func Submit(authorID int64, f domain.ArticleFields, now time.Time) (domain.Article, error) {
	f = normalize(f)
	if err := ValidateFields(f); err != nil {
		return domain.Article{}, err
	}
	return domain.Article{
		Title:       f.Title,
		Body:        f.Body,
		ImageURL:    f.ImageURL,
		PublisherID: f.PublisherID,
		AuthorID:    authorID,
		SourceURL:   f.SourceURL,
		State:       domain.Draft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Approve moves a to Approved on behalf of editorID.
func Approve(a domain.Article, editorID int64, now time.Time) (domain.Article, ApprovalEvent, error) {
	if !CanTransition(a.State, EventApprove) {
		return a, ApprovalEvent{}, fmt.Errorf("cannot approve article in state %q: %w", a.State, domain.ErrConflict)
	}
	a.State = domain.Approved
	a.ApprovedBy = &editorID
	a.DeclinedBy = nil
	a.DeclinedReason = ""
	a.DeclinedAt = nil
	a.UpdatedAt = now
	return a, ApprovalEvent{ArticleID: a.ID, ApprovedBy: editorID, ApprovedAt: now}, nil
}

// Decline moves a to Declined on behalf of editorID. The reason is
// free text and may be empty.
func Decline(a domain.Article, editorID int64, reason string, now time.Time) (domain.Article, error) {
	if !CanTransition(a.State, EventDecline) {
		return a, fmt.Errorf("cannot decline article in state %q: %w", a.State, domain.ErrConflict)
	}
	declinedAt := now
	a.State = domain.Declined
	a.ApprovedBy = nil
	a.DeclinedBy = &editorID
	a.DeclinedReason = strings.TrimSpace(reason)
	a.DeclinedAt = &declinedAt
	a.UpdatedAt = now
	return a, nil
}

// Edit changes content fields. The lifecycle state is left alone unless
// rereview is set, in which case an approved or declined article returns to
// Draft and loses its review annotations.
func Edit(a domain.Article, p domain.ArticlePatch, now time.Time, rereview bool) (domain.Article, error) {
	f := domain.ArticleFields{
		Title:       a.Title,
		Body:        a.Body,
		ImageURL:    a.ImageURL,
		PublisherID: a.PublisherID,
		SourceURL:   a.SourceURL,
	}
	if p.Title != nil {
		f.Title = *p.Title
	}
	if p.Body != nil {
		f.Body = *p.Body
	}
	if p.ImageURL != nil {
		f.ImageURL = *p.ImageURL
	}
	if p.PublisherID != nil {
		f.PublisherID = p.PublisherID
	}
	if p.ClearPublisher {
		f.PublisherID = nil
	}

	f = normalize(f)
	if err := ValidateFields(f); err != nil {
		return a, err
	}

	a.Title = f.Title
	a.Body = f.Body
	a.ImageURL = f.ImageURL
	a.PublisherID = f.PublisherID
	a.UpdatedAt = now

	if rereview && a.State != domain.Draft {
		a.State = domain.Draft
		a.ApprovedBy = nil
		a.DeclinedBy = nil
		a.DeclinedReason = ""
		a.DeclinedAt = nil
	}
	return a, nil
}

// ValidateFields rejects malformed content before any mutation happens.
func ValidateFields(f domain.ArticleFields) error {
	if f.Title == "" {
		return domain.Invalid("title", "must not be empty")
	}
	if utf8.RuneCountInString(f.Title) > MaxTitleRunes {
		return domain.Invalid("title", "longer than %d characters", MaxTitleRunes)
	}
	if f.Body == "" {
		return domain.Invalid("body", "must not be empty")
	}
	if f.ImageURL != "" && !isHTTPURL(f.ImageURL) {
		return domain.Invalid("image_url", "must be an absolute http(s) URL")
	}
	if f.SourceURL != nil && !isHTTPURL(*f.SourceURL) {
		return domain.Invalid("source_url", "must be an absolute http(s) URL")
	}
	if f.PublisherID != nil && *f.PublisherID <= 0 {
		return domain.Invalid("publisher", "must be a positive id")
	}
	return nil
}

// CheckExclusive verifies that approved_by and declined_by are never both set.
func CheckExclusive(a *domain.Article) error {
	if a.ApprovedBy != nil && a.DeclinedBy != nil {
		return fmt.Errorf("article %d is both approved and declined", a.ID)
	}
	return nil
}

func normalize(f domain.ArticleFields) domain.ArticleFields {
	f.Title = strings.TrimSpace(f.Title)
	f.Body = strings.TrimSpace(f.Body)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	if f.SourceURL != nil {
		s := strings.TrimSpace(*f.SourceURL)
		if s == "" {
			f.SourceURL = nil
		} else {
			f.SourceURL = &s
		}
	}
	return f
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
