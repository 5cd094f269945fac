package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/web/session"
)

const (
	localsIdentity = "identity"
	localsError    = "identityError"
)

// Middleware resolves the caller from the session cookies and stores the result
// in fiber.Locals. Store failures are kept for the guards; unguarded routes see
// an anonymous caller.
func Middleware(r *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := r.Resolve(c.UserContext(), c.Cookies(session.AdminCookie), c.Cookies(session.UserCookie))
		if err != nil {
			log.Error().Err(err).Msg("failed to resolve session")
			c.Locals(localsError, err)
		}

		c.Locals(localsIdentity, id)

		return c.Next()
	}
}

// FromContext returns the identity stored by Middleware.
func FromContext(c *fiber.Ctx) Identity {
	if id, ok := c.Locals(localsIdentity).(Identity); ok {
		return id
	}

	return Identity{Kind: Anonymous}
}

// ResolveError returns the store failure met by Middleware, if any.
func ResolveError(c *fiber.Ctx) error {
	if _, ok := c.Locals(localsIdentity).(Identity); !ok {
		return ErrIdentityMissing
	}

	err, _ := c.Locals(localsError).(error)

	return err
}

// RequireAdmin answers 401 with body unless the caller is the admin.
func RequireAdmin(body fiber.Map) fiber.Handler {
	return requireIdentity(body, Identity.IsAdmin)
}

// RequireAuthenticated answers 401 with body unless the caller is the admin or a visitor.
func RequireAuthenticated(body fiber.Map) fiber.Handler {
	return requireIdentity(body, Identity.Authenticated)
}

func requireIdentity(body fiber.Map, allowed func(Identity) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := ResolveError(c); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Server error"})
		}

		if !allowed(FromContext(c)) {
			return c.Status(fiber.StatusUnauthorized).JSON(body)
		}

		return c.Next()
	}
}
