package auth

import "errors"

var (
	// ErrInvalidPassword is returned when the admin password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrNoPasswordConfigured is returned when neither a password nor a hash is configured.
	ErrNoPasswordConfigured = errors.New("no admin password configured")

	// ErrIdentityMissing is returned when a handler runs without the identity middleware.
	ErrIdentityMissing = errors.New("identity not resolved")
)
