package role

import "sort"

// Action is a named permission.
type Action int

const (
	CreateArticle Action = iota + 1
	EditOwnArticle
	EditAnyArticle
	DeleteOwnArticle
	DeleteAnyArticle
	ApproveArticle
	DeclineArticle
	ManagePublisher
	ViewApproved
	ViewOwnDrafts
	ViewAllArticles

	CreateNewsletter
	EditOwnNewsletter
	EditAnyNewsletter
	DeleteOwnNewsletter
	DeleteAnyNewsletter
)

var actionNames = map[Action]string{
	CreateArticle:       "create_article",
	EditOwnArticle:      "edit_own_article",
	EditAnyArticle:      "edit_any_article",
	DeleteOwnArticle:    "delete_own_article",
	DeleteAnyArticle:    "delete_any_article",
	ApproveArticle:      "approve_article",
	DeclineArticle:      "decline_article",
	ManagePublisher:     "manage_publisher",
	ViewApproved:        "view_approved",
	ViewOwnDrafts:       "view_own_drafts",
	ViewAllArticles:     "view_all_articles",
	CreateNewsletter:    "create_newsletter",
	EditOwnNewsletter:   "edit_own_newsletter",
	EditAnyNewsletter:   "edit_any_newsletter",
	DeleteOwnNewsletter: "delete_own_newsletter",
	DeleteAnyNewsletter: "delete_any_newsletter",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the action by name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Set is an immutable set of actions.
type Set map[Action]struct{}

func newSet(actions ...Action) Set {
	s := make(Set, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether a is in the set.
func (s Set) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the actions in declaration order.
func (s Set) Sorted() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// The capability table. Editors lack CreateArticle; ViewAllArticles implies
// ViewApproved.
var table = map[Role]Set{
	Reader: newSet(ViewApproved),
	Journalist: newSet(
		CreateArticle, EditOwnArticle, DeleteOwnArticle, ViewOwnDrafts, ViewApproved,
		CreateNewsletter, EditOwnNewsletter, DeleteOwnNewsletter,
	),
	Editor: newSet(
		EditAnyArticle, DeleteAnyArticle, ApproveArticle, DeclineArticle,
		ManagePublisher, ViewAllArticles,
		EditAnyNewsletter, DeleteAnyNewsletter,
	),
}

// Capabilities returns the actions allowed for r. Unknown roles get an
// empty set.
func Capabilities(r Role) Set {
	if s, ok := table[r]; ok {
		return s
	}
	return Set{}
}

// Anonymous is the capability set of an unauthenticated principal.
func Anonymous() Set {
	return newSet(ViewApproved)
}
