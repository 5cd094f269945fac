// Package chat relays a visitor's message to the configured model and returns
// the reply together with the caller's display identity.
package chat

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	chatrelay "github.com/spacehome/spacehome/internal/chat"
	"github.com/spacehome/spacehome/internal/web/handler"
)

const (
	// Path is the path of the chat endpoint.
	Path = "/chat"

	msgLogin           = "Please login to chat"
	msgMessageRequired = "Message is required"
	msgMessageEmpty    = "Message cannot be empty"
	msgNotConfigured   = "AI chat is not configured. Admin needs to add an OpenRouter API key in settings."
)

// Service is the chat handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

type chatRequest struct {
	Message any             `json:"message"`
	History json.RawMessage `json:"history"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type user struct {
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Relay == nil || deps.Settings == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	router.Post(Path, auth.RequireAuthenticated(fiber.Map{"error": msgLogin}), s.Post)

	return nil
}

// Post relays one message.
func (s *Service) Post(c *fiber.Ctx) error {
	var req chatRequest

	if err := c.BodyParser(&req); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, msgMessageRequired)
	}

	raw, ok := req.Message.(string)
	if !ok || raw == "" {
		return handler.Error(c, fiber.StatusBadRequest, msgMessageRequired)
	}

	if s.deps.Relay.Clean(raw) == "" {
		return handler.Error(c, fiber.StatusBadRequest, msgMessageEmpty)
	}

	settings, err := s.deps.Settings.Load(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings for chat")

		return handler.Error(c, fiber.StatusInternalServerError, chatrelay.MsgTransport)
	}

	if !settings.HasAPIKey() {
		return handler.Error(c, fiber.StatusServiceUnavailable, msgNotConfigured)
	}

	reply, err := s.deps.Relay.Send(c.UserContext(), chatrelay.Request{
		APIKey:  settings.OpenrouterAPIKey,
		Model:   settings.OpenrouterModel,
		Persona: settings.AIPersona,
		Message: raw,
		History: history(req.History),
	})

	var pe *chatrelay.ProviderError

	switch {
	case errors.As(err, &pe):
		return handler.Error(c, pe.Status, pe.Message)
	case errors.Is(err, chatrelay.ErrNotConfigured):
		return handler.Error(c, fiber.StatusServiceUnavailable, msgNotConfigured)
	case err != nil:
		log.Error().Err(err).Msg("chat relay failed")

		return handler.Error(c, fiber.StatusInternalServerError, chatrelay.MsgTransport)
	}

	id := auth.FromContext(c)

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
		"user":     user{Name: id.Name, Avatar: id.AvatarOrNil()},
	})
}

// history decodes the client's history. Anything that is not a list of
// {role, content} objects is ignored.
func history(raw json.RawMessage) []chatrelay.Message {
	if len(raw) == 0 {
		return nil
	}

	var entries []historyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	out := make([]chatrelay.Message, 0, len(entries))

	for _, e := range entries {
		content, _ := e.Content.(string)
		out = append(out, chatrelay.Message{Role: e.Role, Content: content})
	}

	return out
}
