package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/chat"
	"github.com/spacehome/spacehome/internal/colorsample"
	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/controller/sitesettings"
	"github.com/spacehome/spacehome/internal/web/session"
)

// Deps are the collaborators shared by the api handlers. They are built once by
// the web service and injected into every handler.
type Deps struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Sessions *session.Store
	Resolver *auth.Resolver
	Password *auth.PasswordChecker
	Settings *sitesettings.Repository
	Sampler  *colorsample.Sampler
	Relay    *chat.Relay

	// AllowImage decides whether a color-extract url may be fetched.
	AllowImage func(raw string) bool
}

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, deps *Deps) error
}
