package web

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/chat"
	"github.com/spacehome/spacehome/internal/colorsample"
	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/controller/sitesettings"
	"github.com/spacehome/spacehome/internal/urlsafety"
	"github.com/spacehome/spacehome/internal/web/handler"
	"github.com/spacehome/spacehome/internal/web/session"
)

// NewDeps builds the handler collaborators on db. cache may be nil.
func NewDeps(cfg *config.Config, db *gorm.DB, cache fiber.Storage) (*handler.Deps, error) {
	if cfg == nil || db == nil {
		return nil, handler.ErrNilDeps
	}

	password, err := auth.NewPasswordChecker(cfg.Admin)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(db, cfg.Webserver.Session.ExpiryTime)

	return &handler.Deps{
		Cfg:      cfg,
		DB:       db,
		Sessions: sessions,
		Resolver: auth.NewResolver(sessions, cfg.Admin),
		Password: password,
		Settings: sitesettings.NewRepository(db),
		Sampler: colorsample.New(
			cfg.ColorSample,
			urlsafety.NewClient(cfg.ColorSample.Timeout),
			cache,
			cfg.Cache.Expiration,
		),
		Relay: chat.New(cfg.Chat, nil, cfg.Webserver.URL, cfg.Title),
	}, nil
}
