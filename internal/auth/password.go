package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/metrics"
)

// PasswordChecker verifies the admin password.
type PasswordChecker struct {
	hash  string
	delay time.Duration
}

// HashPassword returns an argon2id hash of password with the default parameters.
func HashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

// NewPasswordChecker prefers a configured hash and otherwise hashes the plain
// password once at startup.
func NewPasswordChecker(cfg config.Admin) (*PasswordChecker, error) {
	hash := cfg.PasswordHash

	if hash == "" {
		if cfg.Password == "" {
			return nil, ErrNoPasswordConfigured
		}

		var err error
		if hash, err = HashPassword(cfg.Password); err != nil {
			return nil, err
		}
	}

	if _, _, _, err := argon2id.DecodeHash(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}

	return &PasswordChecker{hash: hash, delay: cfg.FailureDelay}, nil
}

// Check returns nil when password matches. On mismatch it waits the failure delay,
// or until ctx is done, and returns ErrInvalidPassword.
func (p *PasswordChecker) Check(ctx context.Context, password string) error {
	match, err := argon2id.ComparePasswordAndHash(password, p.hash)
	if err == nil && match {
		return nil
	}

	metrics.AdminLoginFailures.Inc()

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	return ErrInvalidPassword
}
