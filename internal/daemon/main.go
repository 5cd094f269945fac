// Package daemon wires the record store, the cache and the web service
// together and runs them until shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spacehome/spacehome/internal/cache"
	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/dsn"
	"github.com/spacehome/spacehome/internal/db/models"
	"github.com/spacehome/spacehome/internal/web"
)

const startupTimeout = 30 * time.Second

// ErrConfigNil is returned by New without a configuration.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	cache      fiber.Storage
	webService *web.Service
}

// Start serves HTTP until SIGINT or SIGTERM, then shuts down and closes the
// record store and the cache.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
	}()

	d.webService.WaitShutdown()

	if err := <-errCh; err != nil {
		log.Error().Err(err).Msg("web service stopped with error")
	}

	return d.Close()
}

// Close releases the record store and the cache.
func (d *Daemon) Close() error {
	var errs []error

	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}

	if d.db != nil {
		if sqlDB, err := d.db.DB(); err == nil {
			if err = sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

// Web returns the web service.
func (d *Daemon) Web() *web.Service {
	return d.webService
}

// New opens and migrates the record store, seeds it, opens the cache and builds
// the web service.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, db: db}

	if err = db.AutoMigrate(models.All()...); err != nil {
		_ = d.Close()

		return nil, fmt.Errorf("migrate database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err = seed(ctx, cfg, db); err != nil {
		_ = d.Close()

		return nil, err
	}

	if d.cache, err = cache.New(cfg.Cache); err != nil {
		_ = d.Close()

		return nil, err
	}

	deps, err := web.NewDeps(cfg, db, d.cache)
	if err != nil {
		_ = d.Close()

		return nil, err
	}

	if d.webService, err = web.New(cfg, deps, d.cache); err != nil {
		_ = d.Close()

		return nil, err
	}

	return d, nil
}

// OpenDB opens the configured gorm engine.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	source, err := dsn.Create(cfg.DB)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		dialector = postgres.Open(source)
	case config.EngineMySQL:
		dialector = gormmysql.Open(source)
	default:
		dialector = sqlite.Open(source)
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.DB.GormEngine, err)
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Msg("database connected")

	return db, nil
}
