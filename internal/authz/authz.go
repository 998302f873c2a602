// Package authz decides whether a principal may perform an operation.
//
// It is the single place where role capabilities are interpreted. Callers
// invoke Authorize twice for targeted operations: once with a nil target
// before touching storage, and again with the loaded article.
package authz

import (
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
	"github.com/TobiSchelling/newsdesk/internal/workflow"
)

// Operation is a gated request.
type Operation int

const (
	ViewArticle Operation = iota + 1
	CreateArticle
	EditArticle
	DeleteArticle
	ApproveArticle
	DeclineArticle
	ManagePublisher
	ViewNewsletter
	CreateNewsletter
	EditNewsletter
	DeleteNewsletter
)

var operationNames = map[Operation]string{
	ViewArticle:      "view article",
	CreateArticle:    "create article",
	EditArticle:      "edit article",
	DeleteArticle:    "delete article",
	ApproveArticle:   "approve article",
	DeclineArticle:   "decline article",
	ManagePublisher:  "manage publishers",
	ViewNewsletter:   "view newsletter",
	CreateNewsletter: "create newsletter",
	EditNewsletter:   "edit newsletter",
	DeleteNewsletter: "delete newsletter",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "unknown operation"
}

// Mutating reports whether o changes state.
func (o Operation) Mutating() bool {
	return o != ViewArticle && o != ViewNewsletter
}

// capabilities returns the action set of p; anonymous callers get ViewApproved only.
func capabilities(p *domain.Principal) role.Set {
	if p == nil {
		return role.Anonymous()
	}
	return role.Capabilities(p.Role)
}

// CanView reports whether p may see a. Approved articles are public; anything
// else is visible to its author (with ViewOwnDrafts) and to ViewAllArticles.
func CanView(p *domain.Principal, a *domain.Article) bool {
	if a == nil {
		return false
	}
	if workflow.Visible(a) {
		return true
	}
	caps := capabilities(p)
	if caps.Has(role.ViewAllArticles) {
		return true
	}
	return p != nil && caps.Has(role.ViewOwnDrafts) && a.AuthorID == p.ID
}

// Authorize returns nil when p may perform op on a. A nil a checks only the
// target-independent rules. Errors match domain.ErrDenied, or
// domain.ErrNotFound when a exists but p may not see it.
func Authorize(p *domain.Principal, op Operation, a *domain.Article) error {
	if p == nil && op.Mutating() {
		return domain.Deny("sign in to %s", op)
	}
	caps := capabilities(p)

	if err := precheck(p, caps, op); err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	if !CanView(p, a) {
		return domain.ErrNotFound
	}

	switch op {
	case EditArticle:
		return ownership(p, caps, a.AuthorID, role.EditAnyArticle, role.EditOwnArticle, op)
	case DeleteArticle:
		return ownership(p, caps, a.AuthorID, role.DeleteAnyArticle, role.DeleteOwnArticle, op)
	}
	return nil
}

// AuthorizeNewsletter applies the article ownership rules to newsletters.
// Newsletters have no lifecycle and are visible to everyone.
func AuthorizeNewsletter(p *domain.Principal, op Operation, n *domain.Newsletter) error {
	if p == nil && op.Mutating() {
		return domain.Deny("sign in to %s", op)
	}
	caps := capabilities(p)

	if err := precheck(p, caps, op); err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	switch op {
	case EditNewsletter:
		return ownership(p, caps, n.AuthorID, role.EditAnyNewsletter, role.EditOwnNewsletter, op)
	case DeleteNewsletter:
		return ownership(p, caps, n.AuthorID, role.DeleteAnyNewsletter, role.DeleteOwnNewsletter, op)
	}
	return nil
}

// precheck covers everything that can be decided from the role alone.
func precheck(p *domain.Principal, caps role.Set, op Operation) error {
	switch op {
	case ViewArticle, ViewNewsletter:
		if !caps.Has(role.ViewApproved) && !caps.Has(role.ViewAllArticles) {
			return domain.Deny("%s role cannot %s", roleName(p), op)
		}
	case CreateArticle:
		return require(p, caps, role.CreateArticle, op)
	case ApproveArticle:
		return require(p, caps, role.ApproveArticle, op)
	case DeclineArticle:
		return require(p, caps, role.DeclineArticle, op)
	case ManagePublisher:
		return require(p, caps, role.ManagePublisher, op)
	case CreateNewsletter:
		return require(p, caps, role.CreateNewsletter, op)
	case EditArticle:
		return requireAny(p, caps, op, role.EditAnyArticle, role.EditOwnArticle)
	case DeleteArticle:
		return requireAny(p, caps, op, role.DeleteAnyArticle, role.DeleteOwnArticle)
	case EditNewsletter:
		return requireAny(p, caps, op, role.EditAnyNewsletter, role.EditOwnNewsletter)
	case DeleteNewsletter:
		return requireAny(p, caps, op, role.DeleteAnyNewsletter, role.DeleteOwnNewsletter)
	default:
		return domain.Deny("%s", op)
	}
	return nil
}

func ownership(p *domain.Principal, caps role.Set, authorID int64, anyAction, ownAction role.Action, op Operation) error {
	if caps.Has(anyAction) {
		return nil
	}
	if caps.Has(ownAction) && authorID == p.ID {
		return nil
	}
	return domain.Deny("only the author or an editor may %s", op)
}

func require(p *domain.Principal, caps role.Set, a role.Action, op Operation) error {
	if caps.Has(a) {
		return nil
	}
	return domain.Deny("%s role cannot %s", roleName(p), op)
}

func requireAny(p *domain.Principal, caps role.Set, op Operation, actions ...role.Action) error {
	for _, a := range actions {
		if caps.Has(a) {
			return nil
		}
	}
	return domain.Deny("%s role cannot %s", roleName(p), op)
}

func roleName(p *domain.Principal) string {
	if p == nil {
		return "anonymous"
	}
	return p.Role.String()
}
