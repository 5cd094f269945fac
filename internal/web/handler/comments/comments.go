// Package comments serves the comment board: public listing, posting by admins
// and visitors, and admin moderation (pin and delete).
package comments

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/db/controller/comment"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/sanitize"
	"github.com/spacehome/spacehome/internal/web/handler"
)

const (
	// Path is the path of the comment board endpoint.
	Path = "/comments"

	maxContentLen = 2000

	msgNotAuthenticated = "Not authenticated"
	msgAdminOnly        = "Admin only"
	msgContentRequired  = "Comment content required"
	msgContentEmpty     = "Comment cannot be empty"
	msgMissingID        = "Missing comment ID"
	msgNotFound         = "Comment not found"
)

// Service is the comment board handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

type postRequest struct {
	Content any `json:"content"`
}

type patchRequest struct {
	ID     string `json:"id"`
	Pinned *bool  `json:"pinned"`
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.DB == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	authenticated := auth.RequireAuthenticated(fiber.Map{"success": false, "error": msgNotAuthenticated})
	admin := auth.RequireAdmin(fiber.Map{"success": false, "error": msgAdminOnly})

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, s.List)
		r.Post(handler.RootPath, authenticated, s.Post)
		r.Patch(handler.RootPath, admin, s.Patch)
		r.Delete(handler.RootPath, admin, s.Delete)
	})

	return nil
}

// List returns the board, pinned first. Failures answer an empty board.
func (s *Service) List(c *fiber.Ctx) error {
	list, err := comment.List(c.UserContext(), s.deps.DB)
	if err != nil {
		log.Error().Err(err).Msg("failed to list comments")

		list = []models.Comment{}
	}

	return c.JSON(fiber.Map{"comments": list})
}

// Post stores an escaped comment of the current identity.
func (s *Service) Post(c *fiber.Ctx) error {
	var req postRequest

	if err := c.BodyParser(&req); err != nil {
		return handler.Fail(c, fiber.StatusBadRequest, msgContentRequired)
	}

	raw, ok := req.Content.(string)
	if !ok || raw == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgContentRequired)
	}

	content := sanitize.FreeText(raw, maxContentLen, sanitize.Escape)
	if content == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgContentEmpty)
	}

	id := auth.FromContext(c)

	entry := &models.Comment{
		Author:  id.Name,
		Content: content,
		Avatar:  id.AvatarOrNil(),
		IsAdmin: id.IsAdmin(),
	}

	if err := comment.Create(c.UserContext(), s.deps.DB, entry); err != nil {
		log.Error().Err(err).Msg("failed to create comment")

		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgServerError)
	}

	return c.JSON(fiber.Map{"success": true, "comment": entry})
}

// Patch pins or unpins a comment. pinned defaults to true.
func (s *Service) Patch(c *fiber.Ctx) error {
	var req patchRequest

	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgMissingID)
	}

	pinned := true
	if req.Pinned != nil {
		pinned = *req.Pinned
	}

	entry, err := comment.SetPinned(c.UserContext(), s.deps.DB, req.ID, pinned)

	switch {
	case errors.Is(err, comment.ErrCommentNotFound):
		return handler.Fail(c, fiber.StatusNotFound, msgNotFound)
	case err != nil:
		log.Error().Err(err).Str("id", req.ID).Msg("failed to pin comment")

		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgServerError)
	}

	return c.JSON(fiber.Map{"success": true, "comment": entry})
}

// Delete removes the comment named by the id query parameter.
func (s *Service) Delete(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return handler.Fail(c, fiber.StatusBadRequest, msgMissingID)
	}

	err := comment.Delete(c.UserContext(), s.deps.DB, id)

	switch {
	case errors.Is(err, comment.ErrCommentNotFound):
		return handler.Fail(c, fiber.StatusNotFound, msgNotFound)
	case err != nil:
		log.Error().Err(err).Str("id", id).Msg("failed to delete comment")

		return handler.Fail(c, fiber.StatusInternalServerError, handler.MsgServerError)
	}

	return c.JSON(fiber.Map{"success": true})
}
