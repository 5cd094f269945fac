package daemon

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/controller/sitesettings"
	"github.com/spacehome/spacehome/internal/web/session"
)

// seed creates the settings singleton when missing and drops sessions that
// expired while the service was down.
func seed(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if err := sitesettings.NewRepository(db).Seed(ctx); err != nil {
		return err
	}

	n, err := session.NewStore(db, cfg.Webserver.Session.ExpiryTime).PurgeExpired(ctx)
	if err != nil {
		// stale rows are harmless, lookups check expiry
		log.Warn().Err(err).Msg("failed to purge expired sessions")

		return nil
	}

	if n > 0 {
		log.Info().Int64("sessions", n).Msg("purged expired sessions")
	}

	return nil
}
