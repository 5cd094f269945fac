// Package userauth lets visitors pick a display name and avatar for commenting
// and chatting. There is no password: the session is the identity.
package userauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/sanitize"
	"github.com/spacehome/spacehome/internal/urlsafety"
	"github.com/spacehome/spacehome/internal/web/handler"
	"github.com/spacehome/spacehome/internal/web/session"
)

const (
	// Path is the path of the visitor auth endpoint.
	Path = "/user-auth"

	maxNameLen   = 50
	maxAvatarLen = 500

	msgRequired   = "Name and avatar are required"
	msgBadAvatar  = "Avatar must be a valid HTTPS image URL (gif, jpg, png, webp)"
	msgServerFail = handler.MsgServerError
)

// Service is the visitor auth handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

type loginRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type user struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Cfg == nil || deps.Sessions == nil || deps.Resolver == nil {
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

// Post validates the profile and starts a visitor session.
func (s *Service) Post(c *fiber.Ctx) error {
	var req loginRequest

	if err := c.BodyParser(&req); err != nil || req.Name == "" || req.Avatar == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgRequired)
	}

	name := sanitize.FreeText(req.Name, maxNameLen, sanitize.Strip)
	avatar := sanitize.FreeText(req.Avatar, maxAvatarLen, sanitize.Strip)

	if name == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgRequired)
	}

	if !urlsafety.IsAllowed(avatar, urlsafety.Avatar) {
		return handler.Fail(c, fiber.StatusBadRequest, msgBadAvatar)
	}

	sess, err := s.deps.Sessions.Create(c.UserContext(), models.RoleUser, session.Profile{Name: name, Avatar: avatar})
	if err != nil {
		log.Error().Err(err).Msg("failed to create visitor session")

		return handler.Fail(c, fiber.StatusInternalServerError, msgServerFail)
	}

	handler.SetSessionCookie(c, session.UserCookie, sess.Token, sess.ExpiresAt, !s.deps.Cfg.DevMode)

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user{Name: sess.Name, Avatar: sess.Avatar},
	})
}

// Get returns the visitor profile of the request, or null. Lookup failures
// answer unauthenticated.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := s.deps.Resolver.User(c.UserContext(), c.Cookies(session.UserCookie))
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve visitor session")
	}

	if err != nil || id.Kind != auth.User {
		return c.JSON(fiber.Map{"authenticated": false, "user": nil})
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          user{Name: id.Name, Avatar: id.Avatar},
	})
}

// Delete ends the visitor session. It always succeeds for the caller.
func (s *Service) Delete(c *fiber.Ctx) error {
	s.deps.Resolver.Forget(c.UserContext(), models.RoleUser, c.Cookies(session.UserCookie))
	handler.ClearSessionCookie(c, session.UserCookie, !s.deps.Cfg.DevMode)

	return c.JSON(fiber.Map{"success": true})
}
