// Package session persists admin and visitor sessions in the sessions table.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/metrics"
	"github.com/spacehome/spacehome/internal/uniuri"
)

const (
	// AdminCookie carries the admin session token.
	AdminCookie = "admin_token"
	// UserCookie carries the visitor session token.
	UserCookie = "user_token"

	// DefaultTTL is used when the store is created with a non positive ttl.
	DefaultTTL = 24 * time.Hour
)

var (
	// ErrSessionNotFound is returned when no session of the requested role has the token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Profile is the display identity stored with a visitor session.
type Profile struct {
	Name   string
	Avatar string
}

// Store creates, finds and deletes sessions. Expiry is absolute: ExpiresAt is
// fixed at creation and never extended.
type Store struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewStore returns a store on db issuing sessions valid for ttl.
func NewStore(db *gorm.DB, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{db: db, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now

	return s
}

// Now returns the store's current time in UTC.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session and returns it with a fresh token.
func (s *Store) Create(ctx context.Context, role models.Role, p Profile) (*models.Session, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	token, err := uniuri.Token()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.Now()
	sess := &models.Session{
		Token:     token,
		Role:      role,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if role == models.RoleUser {
		sess.Name = p.Name
		sess.Avatar = p.Avatar
	}

	if err = s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	metrics.SessionsCreated.WithLabelValues(string(role)).Inc()

	return sess, nil
}

// Find returns the session of role with token, expired or not. Callers check
// Valid against Now.
func (s *Store) Find(ctx context.Context, role models.Role, token string) (*models.Session, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	if token == "" {
		return nil, ErrSessionNotFound
	}

	var sess models.Session

	err := s.db.WithContext(ctx).Where("token = ? AND role = ?", token, role).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}

		return nil, fmt.Errorf("find session: %w", err)
	}

	return &sess, nil
}

// Delete removes the session of role with token. A missing session is not an error.
func (s *Store) Delete(ctx context.Context, role models.Role, token string) error {
	if s.db == nil {
		return ErrDBNil
	}

	if token == "" {
		return nil
	}

	err := s.db.WithContext(ctx).Where("token = ? AND role = ?", token, role).Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// PurgeExpired removes every session whose ExpiresAt is not after Now and
// returns the number of rows removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
