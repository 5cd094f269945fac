package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/web/session"
)

// Resolver maps session tokens to identities.
type Resolver struct {
	store *session.Store
	admin config.Admin
}

// NewResolver returns a resolver over store. admin supplies the display identity
// of the admin.
func NewResolver(store *session.Store, admin config.Admin) *Resolver {
	return &Resolver{store: store, admin: admin}
}

// Resolve returns the identity for the given cookie values. Admin takes
// precedence over user. A store failure is returned as an error together with
// the Anonymous identity.
func (r *Resolver) Resolve(ctx context.Context, adminToken, userToken string) (Identity, error) {
	if adminToken != "" {
		sess, err := r.lookup(ctx, models.RoleAdmin, adminToken)
		if err != nil {
			return Identity{}, err
		}

		if sess != nil {
			return Identity{Kind: Admin, Name: r.admin.DisplayName, Avatar: r.admin.Avatar}, nil
		}
	}

	if userToken != "" {
		sess, err := r.lookup(ctx, models.RoleUser, userToken)
		if err != nil {
			return Identity{}, err
		}

		if sess != nil {
			return Identity{Kind: User, Name: sess.Name, Avatar: sess.Avatar}, nil
		}
	}

	return Identity{Kind: Anonymous}, nil
}

// User resolves only the visitor token, ignoring any admin session.
func (r *Resolver) User(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{Kind: Anonymous}, nil
	}

	sess, err := r.lookup(ctx, models.RoleUser, token)
	if err != nil || sess == nil {
		return Identity{Kind: Anonymous}, err
	}

	return Identity{Kind: User, Name: sess.Name, Avatar: sess.Avatar}, nil
}

// lookup returns the valid session for token, nil when there is none.
func (r *Resolver) lookup(ctx context.Context, role models.Role, token string) (*models.Session, error) {
	sess, err := r.store.Find(ctx, role, token)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, nil //nolint:nilnil // absent session
	}

	if err != nil {
		return nil, err
	}

	if sess.Valid(r.store.Now()) {
		return sess, nil
	}

	r.Forget(ctx, role, token)

	return nil, nil //nolint:nilnil // expired session
}

// Forget deletes a session and only logs a failure. Logout and expiry cleanup
// must look successful to the caller.
func (r *Resolver) Forget(ctx context.Context, role models.Role, token string) {
	if token == "" {
		return
	}

	if err := r.store.Delete(ctx, role, token); err != nil {
		log.Warn().Err(err).Str("role", string(role)).Msg("failed to delete session")
	}
}
