// Package adminauth handles the admin login, status probe and logout.
package adminauth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/web/handler"
	"github.com/spacehome/spacehome/internal/web/session"
)

// Path is the path of the admin auth endpoint.
const Path = "/auth"

// Service is the admin auth handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

type loginRequest struct {
	Password string `json:"password"`
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Cfg == nil || deps.Sessions == nil || deps.Password == nil || deps.Resolver == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	router.Route(Path, func(r fiber.Router) {
		r.Post(handler.RootPath, s.Post)
		r.Get(handler.RootPath, s.Get)
		r.Delete(handler.RootPath, s.Delete)
	})

	return nil
}

// Post checks the password and starts an admin session.
func (s *Service) Post(c *fiber.Ctx) error {
	var req loginRequest

	// an unreadable body is treated like an empty password
	_ = c.BodyParser(&req)

	if req.Password == "" {
		// keep the failure timing uniform
		_ = s.deps.Password.Check(c.UserContext(), "")

		return handler.Fail(c, fiber.StatusUnauthorized, "Invalid password")
	}

	err := s.deps.Password.Check(c.UserContext(), req.Password)
	if errors.Is(err, auth.ErrInvalidPassword) {
		log.Info().Str("ip", c.IP()).Msg("admin login failed")

		return handler.Fail(c, fiber.StatusUnauthorized, "Invalid password")
	}

	if err != nil {
		log.Error().Err(err).Msg("admin password check failed")

		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgServerError)
	}

	sess, err := s.deps.Sessions.Create(c.UserContext(), models.RoleAdmin, session.Profile{})
	if err != nil {
		log.Error().Err(err).Msg("failed to create admin session")

		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgServerError)
	}

	handler.SetSessionCookie(c, session.AdminCookie, sess.Token, sess.ExpiresAt, !s.deps.Cfg.DevMode)

	log.Info().Str("ip", c.IP()).Msg("admin logged in")

	return c.JSON(fiber.Map{"success": true})
}

// Get reports whether the request carries a valid admin session.
// Lookup failures answer false.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"authenticated": auth.FromContext(c).IsAdmin()})
}

// Delete ends the admin session. It always succeeds for the caller.
func (s *Service) Delete(c *fiber.Ctx) error {
	s.deps.Resolver.Forget(c.UserContext(), models.RoleAdmin, c.Cookies(session.AdminCookie))
	handler.ClearSessionCookie(c, session.AdminCookie, !s.deps.Cfg.DevMode)

	return c.JSON(fiber.Map{"success": true})
}
