// Package cache opens the shared key value store used for sampled colors and
// rate limiter counters. All backends implement fiber.Storage.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/config"
)

const (
	// DriverNone disables the cache.
	DriverNone = "none"
	// DriverRedis selects redis through go-redis.
	DriverRedis = "redis"

	gcInterval = 10 * time.Second
)

var (
	// ErrUnknownDriver is returned for an unsupported Cache.Driver.
	ErrUnknownDriver = errors.New("cache: unknown driver")
	// ErrURLEmpty is returned when a driver needs Cache.URL.
	ErrURLEmpty = errors.New("cache: url is empty")
)

// New opens the configured backend. It returns nil, nil when caching is disabled.
func New(cfg config.Cache) (fiber.Storage, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil //nolint:nilnil // caching disabled
	case DriverRedis:
		s, err := NewRedis(cfg.URL, cfg.Table)
		if err != nil {
			return nil, err
		}

		return s, nil
	case config.EnginePostgres, config.EngineMySQL:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w for driver %s", ErrURLEmpty, cfg.Driver)
		}

		return openSQL(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// openSQL opens a gofiber storage table. Those constructors panic when the
// database is unreachable, so the panic is turned into an error.
func openSQL(cfg config.Cache) (store fiber.Storage, err error) {
	defer func() {
		if r := recover(); r != nil {
			store = nil
			err = fmt.Errorf("cache: open %s: %v", cfg.Driver, r)
		}
	}()

	log.Info().Str("driver", cfg.Driver).Str("table", cfg.Table).Msg("opening cache storage")

	switch cfg.Driver {
	case config.EnginePostgres:
		return postgres.New(postgres.Config{
			ConnectionURI: cfg.URL,
			Table:         cfg.Table,
			GCInterval:    gcInterval,
		}), nil
	default:
		return mysql.New(mysql.Config{
			ConnectionURI: cfg.URL,
			Table:         cfg.Table,
			GCInterval:    gcInterval,
		}), nil
	}
}
