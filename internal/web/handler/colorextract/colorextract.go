// Package colorextract samples the dominant color of a remote image for the
// page's border theme. It always answers 200 once a url is given.
package colorextract

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spacehome/spacehome/internal/colorsample"
	"github.com/spacehome/spacehome/internal/metrics"
	"github.com/spacehome/spacehome/internal/urlsafety"
	"github.com/spacehome/spacehome/internal/web/handler"
)

const (
	// Path is the path of the color extraction endpoint.
	Path = "/color-extract"

	cacheControl = "public, max-age=3600"
)

// Service is the color extraction handler service.
type Service struct {
	handler.Service
	deps  *handler.Deps
	allow func(string) bool
}

type result struct {
	colorsample.Color
	Fallback bool `json:"fallback,omitempty"`
}

// Init registers the routes below router.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Sampler == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps

	s.allow = deps.AllowImage
	if s.allow == nil {
		s.allow = func(raw string) bool { return urlsafety.IsAllowed(raw, urlsafety.ImageFetch) }
	}

	router.Get(Path, s.Get)

	return nil
}

// Get answers {hex, rgb} or the fallback color with fallback:true.
func (s *Service) Get(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return handler.Error(c, fiber.StatusBadRequest, "Image URL required")
	}

	if !s.allow(url) {
		metrics.ColorExtractions.WithLabelValues("rejected").Inc()

		return c.JSON(result{Color: colorsample.Fallback, Fallback: true})
	}

	color, ok := s.deps.Sampler.Extract(c.UserContext(), url)
	if !ok {
		return c.JSON(result{Color: colorsample.Fallback, Fallback: true})
	}

	c.Set(fiber.HeaderCacheControl, cacheControl)

	return c.JSON(result{Color: color})
}
