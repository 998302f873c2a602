package newsdesk

import (
	"context"
	"regexp"
	"strings"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,31}$`)

// RegisterUser creates a principal with the given role.
func (d *Desk) RegisterUser(ctx context.Context, username, email, bio string, r role.Role) (*domain.Principal, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRe.MatchString(username) {
		return nil, domain.Invalid("username", "must be 2-32 characters of a-z, 0-9, '.', '_' or '-'")
	}
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, domain.Invalid("email", "%q is not an e-mail address", email)
	}
	if !r.Valid() {
		return nil, domain.Invalid("role", "unknown role %q", r)
	}

	u := domain.Principal{
		Username:  username,
		Email:     email,
		Bio:       strings.TrimSpace(bio),
		Role:      r,
		CreatedAt: d.now(),
	}
	id, err := d.store.InsertUser(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id

	d.logger.Info("user registered", "username", username, "role", r.String())
	return &u, nil
}

// PrincipalByUsername resolves a login name.
func (d *Desk) PrincipalByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	return d.store.UserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
}

// Users lists every principal.
func (d *Desk) Users(ctx context.Context) ([]domain.Principal, error) {
	return d.store.ListUsers(ctx)
}

// ChangeRole switches p to newRole. Subscriptions and memberships the new
// role cannot hold are removed in the same transaction.
func (d *Desk) ChangeRole(ctx context.Context, p *domain.Principal, newRole role.Role) (*domain.Principal, error) {
	if p == nil {
		return nil, domain.Deny("sign in to change your role")
	}
	if !newRole.Valid() {
		return nil, domain.Invalid("role", "unknown role %q", newRole)
	}
	if err := d.store.ChangeRole(ctx, p.ID, newRole); err != nil {
		return nil, err
	}
	d.logger.Info("role changed", "username", p.Username, "from", p.Role.String(), "to", newRole.String())
	return d.store.UserByID(ctx, p.ID)
}

// ToggleSubscription follows or unfollows a publisher or journalist.
func (d *Desk) ToggleSubscription(ctx context.Context, p *domain.Principal, kind domain.SubscriptionKind, targetID int64) (bool, error) {
	return d.subs.Toggle(ctx, p, kind, targetID)
}

// Subscriptions returns what p follows.
func (d *Desk) Subscriptions(ctx context.Context, p *domain.Principal) (domain.Subscriptions, error) {
	return d.subs.Of(ctx, p)
}
