package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/auth"
	"github.com/spacehome/spacehome/internal/config"
	accesslog "github.com/spacehome/spacehome/internal/logger/adapter/fiber"
	"github.com/spacehome/spacehome/internal/web/handler"
	"github.com/spacehome/spacehome/internal/web/handler/adminauth"
	"github.com/spacehome/spacehome/internal/web/handler/chat"
	"github.com/spacehome/spacehome/internal/web/handler/colorextract"
	"github.com/spacehome/spacehome/internal/web/handler/comments"
	"github.com/spacehome/spacehome/internal/web/handler/sitesettings"
	"github.com/spacehome/spacehome/internal/web/handler/userauth"
)

const (
	// CheckAlivePath answers load balancer probes.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes the prometheus collectors.
	MetricsPath = "/metrics"

	msgTooManyRequests = "Too many requests. Please slow down."
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown blocks until SIGINT or SIGTERM and stops the http server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service. cache backs the rate limiter when set.
func New(cfg *config.Config, deps *handler.Deps, cache fiber.Storage) (*Service, error) {
	if cfg == nil || deps == nil || deps.Resolver == nil {
		return nil, handler.ErrNilDeps
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	service := &Service{
		App:          app,
		cfg:          cfg,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(cfg.Webserver.BasePath, auth.Middleware(deps.Resolver))

	if cfg.Webserver.RateLimit.Enabled {
		rl := cfg.Webserver.RateLimit
		api.Post(adminauth.Path, newLimiter(rl.AuthMax, rl.Expiration, cache))
		api.Post(chat.Path, newLimiter(rl.ChatMax, rl.Expiration, cache))
	}

	handlers := []handler.Service{
		&adminauth.Service{},
		&userauth.Service{},
		&comments.Service{},
		&sitesettings.Service{},
		&colorextract.Service{},
		&chat.Service{},
	}

	for _, h := range handlers {
		if err := h.Init(api, deps); err != nil {
			return nil, err
		}
	}

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// newLimiter counts requests per client ip. storage may be nil for the
// in-memory default.
func newLimiter(maxRequests int, expiration time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Method() + ":" + c.Path() + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return handler.Error(c, fiber.StatusTooManyRequests, msgTooManyRequests)
		},
		Storage: storage,
	})
}

// errorHandler renders errors that escaped a handler as {error}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := handler.MsgServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	return handler.Error(c, code, msg)
}
