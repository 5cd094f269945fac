package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/dbtest"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/web/session"
)

type fixture struct {
	db       *gorm.DB
	store    *session.Store
	resolver *Resolver
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:  dbtest.Open(t),
		now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	f.store = session.NewStore(f.db, 24*time.Hour).WithClock(func() time.Time { return f.now })
	f.resolver = NewResolver(f.store, config.Admin{DisplayName: "owner", Avatar: "https://i.imgur.com/o.png"})

	return f
}

func (f *fixture) create(t *testing.T, role models.Role, p session.Profile) string {
	t.Helper()

	sess, err := f.store.Create(context.Background(), role, p)
	require.NoError(t, err)

	return sess.Token
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminTok := f.create(t, models.RoleAdmin, session.Profile{})
	userTok := f.create(t, models.RoleUser, session.Profile{Name: "Ann", Avatar: "https://i.imgur.com/a.jpg"})

	tests := []struct {
		name       string
		adminTok   string
		userTok    string
		wantKind   Kind
		wantName   string
		wantAvatar string
	}{
		{name: "no cookies", wantKind: Anonymous},
		{name: "admin", adminTok: adminTok, wantKind: Admin, wantName: "owner", wantAvatar: "https://i.imgur.com/o.png"},
		{name: "user", userTok: userTok, wantKind: User, wantName: "Ann", wantAvatar: "https://i.imgur.com/a.jpg"},
		{name: "admin wins over user", adminTok: adminTok, userTok: userTok, wantKind: Admin, wantName: "owner", wantAvatar: "https://i.imgur.com/o.png"},
		{name: "unknown admin falls through to user", adminTok: "nope", userTok: userTok, wantKind: User, wantName: "Ann", wantAvatar: "https://i.imgur.com/a.jpg"},
		{name: "user token in admin cookie", adminTok: userTok, wantKind: Anonymous},
		{name: "garbage", adminTok: "x", userTok: "y", wantKind: Anonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.resolver.Resolve(ctx, tt.adminTok, tt.userTok)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, id.Kind)
			assert.Equal(t, tt.wantName, id.Name)
			assert.Equal(t, tt.wantAvatar, id.Avatar)
		})
	}
}

func TestResolveExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tok := f.create(t, models.RoleUser, session.Profile{Name: "Ann"})
	expiresAt := f.now.Add(24 * time.Hour)

	f.now = expiresAt.Add(-time.Millisecond)
	id, err := f.resolver.Resolve(ctx, "", tok)
	require.NoError(t, err)
	assert.Equal(t, User, id.Kind)

	f.now = expiresAt
	id, err = f.resolver.Resolve(ctx, "", tok)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, id.Kind)

	// the expired row was removed on the way
	_, err = f.store.Find(ctx, models.RoleUser, tok)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestExpiredAdminFallsThroughToUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminTok := f.create(t, models.RoleAdmin, session.Profile{})

	f.now = f.now.Add(23 * time.Hour)
	userTok := f.create(t, models.RoleUser, session.Profile{Name: "Ann"})

	f.now = f.now.Add(2 * time.Hour)

	id, err := f.resolver.Resolve(ctx, adminTok, userTok)
	require.NoError(t, err)
	assert.Equal(t, User, id.Kind)

	_, err = f.store.Find(ctx, models.RoleAdmin, adminTok)
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestUserIgnoresAdminSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	adminTok := f.create(t, models.RoleAdmin, session.Profile{})
	userTok := f.create(t, models.RoleUser, session.Profile{Name: "Ann", Avatar: "https://i.imgur.com/a.jpg"})

	id, err := f.resolver.User(ctx, userTok)
	require.NoError(t, err)
	assert.Equal(t, User, id.Kind)
	assert.Equal(t, "Ann", id.Name)

	// an admin token is not a visitor token
	id, err = f.resolver.User(ctx, adminTok)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, id.Kind)

	id, err = f.resolver.User(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Anonymous, id.Kind)
}

func TestResolveStoreFailure(t *testing.T) {
	f := newFixture(t)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	id, err := f.resolver.Resolve(context.Background(), "abc", "")
	require.Error(t, err)
	assert.Equal(t, Anonymous, id.Kind)
}

func TestForgetIsBestEffort(t *testing.T) {
	f := newFixture(t)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.NotPanics(t, func() { f.resolver.Forget(context.Background(), models.RoleAdmin, "abc") })
}

func TestIdentityHelpers(t *testing.T) {
	assert.Nil(t, Identity{}.AvatarOrNil())
	assert.Equal(t, "x", *Identity{Avatar: "x"}.AvatarOrNil())
	assert.True(t, Identity{Kind: Admin}.Authenticated())
	assert.False(t, Identity{Kind: User}.IsAdmin())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "admin", Admin.String())
	assert.Equal(t, "user", User.String())
}
