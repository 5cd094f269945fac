// Package sitesettings serves the site settings singleton. Reads are public
// with the API key masked; updates are admin only.
package sitesettings

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/db/controller/sitesettings"
	"github.com/spacehome/spacehome/internal/web/handler"
)

const (
	// Path is the path of the settings endpoint.
	Path = "/settings"

	msgAdminRequired = "Admin access required"
	msgBadBody       = "Invalid request body"
	msgLoadFailed    = "Failed to load settings"
	msgUpdateFailed  = "Failed to update settings"
)

// Service is the settings handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Settings == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, s.Get)
		r.Put(handler.RootPath, auth.RequireAdmin(fiber.Map{"error": msgAdminRequired}), s.Put)
	})

	return nil
}

// Get returns the public settings.
func (s *Service) Get(c *fiber.Ctx) error {
	settings, err := s.deps.Settings.Load(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings")

		return handler.Error(c, fiber.StatusInternalServerError, msgLoadFailed)
	}

	return c.JSON(fiber.Map{"settings": settings.Public()})
}

// Put merges a partial settings document.
func (s *Service) Put(c *fiber.Ctx) error {
	update := new(sitesettings.Update)

	if err := c.BodyParser(update); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, msgBadBody)
	}

	settings, err := s.deps.Settings.Apply(c.UserContext(), update)

	switch {
	case errors.Is(err, sitesettings.ErrValidation):
		return handler.Error(c, fiber.StatusBadRequest, sitesettings.Message(err))
	case err != nil:
		log.Error().Err(err).Msg("failed to update settings")

		return handler.Error(c, fiber.StatusInternalServerError, msgUpdateFailed)
	}

	log.Info().Msg("site settings updated")

	return c.JSON(fiber.Map{"success": true, "settings": settings.Public()})
}
