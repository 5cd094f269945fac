// Package colorsample estimates a border color for a remote image by sampling its
// raw bytes. It does not decode image formats: bytes after a header offset are
// read as RGB triples at a fixed stride.
package colorsample

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/metrics"
)

const (
	// UserAgent is sent with every image request.
	UserAgent = "Mozilla/5.0 (compatible; ColorExtractor/1.0)"

	// DefaultMaxBytes caps the downloaded body.
	DefaultMaxBytes = 5 * 1024 * 1024
	// DefaultTimeout bounds a whole fetch.
	DefaultTimeout = 5 * time.Second

	targetSamples = 10000
	headerOffset  = 1000
	headerTail    = 100
	minBrightness = 30
	maxBrightness = 225
	darken        = 0.7

	cachePrefix = "color:"
)

var (
	// ErrTooLarge is returned when the body exceeds the byte cap.
	ErrTooLarge = errors.New("colorsample: image too large")
	// ErrStatus is returned for non 2xx responses.
	ErrStatus = errors.New("colorsample: unexpected status")
	// ErrNoSamples is returned when every sample was too dark or too bright.
	ErrNoSamples = errors.New("colorsample: no usable samples")
)

// RGB is a color triple.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Color is a sampled color.
type Color struct {
	Hex string `json:"hex"`
	RGB RGB    `json:"rgb"`
}

// Fallback is used whenever no color can be sampled.
var Fallback = Color{Hex: "#1a0a2e", RGB: RGB{R: 26, G: 10, B: 46}} //nolint:gochecknoglobals

// Sampler downloads images and samples them. Results are cached when a cache is set.
type Sampler struct {
	client   *http.Client
	cache    fiber.Storage
	cacheTTL time.Duration
	timeout  time.Duration
	maxBytes int64
}

// New returns a sampler. client must already enforce the outbound address policy.
// cache may be nil.
func New(cfg config.ColorSample, client *http.Client, cache fiber.Storage, cacheTTL time.Duration) *Sampler {
	s := &Sampler{
		client:   client,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  cfg.Timeout,
		maxBytes: cfg.MaxBytes,
	}

	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxBytes
	}

	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}

	return s
}

// Extract returns the sampled color of the image at url. ok is false when the
// image could not be fetched or sampled; the caller then uses Fallback.
func (s *Sampler) Extract(ctx context.Context, url string) (Color, bool) {
	key := cacheKey(url)

	if c, hit := s.cached(key); hit {
		metrics.ColorExtractions.WithLabelValues("hit").Inc()

		return c, true
	}

	buf, err := s.fetch(ctx, url)
	if err != nil {
		log.Debug().Err(err).Msg("color sample fetch failed")
		metrics.ColorExtractions.WithLabelValues("fallback").Inc()

		return Color{}, false
	}

	c, ok := Dominant(buf)
	if !ok {
		metrics.ColorExtractions.WithLabelValues("fallback").Inc()

		return Color{}, false
	}

	s.store(key, c)
	metrics.ColorExtractions.WithLabelValues("computed").Inc()

	return c, true
}

func (s *Sampler) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	if resp.ContentLength > s.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrTooLarge, resp.ContentLength)
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if int64(len(buf)) > s.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, s.maxBytes)
	}

	return buf, nil
}

func (s *Sampler) cached(key string) (Color, bool) {
	if s.cache == nil {
		return Color{}, false
	}

	raw, err := s.cache.Get(key)
	if err != nil {
		log.Warn().Err(err).Msg("color cache read failed")

		return Color{}, false
	}

	if len(raw) == 0 {
		return Color{}, false
	}

	var c Color
	if err = json.Unmarshal(raw, &c); err != nil {
		return Color{}, false
	}

	return c, true
}

func (s *Sampler) store(key string, c Color) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return
	}

	if err = s.cache.Set(key, raw, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("color cache write failed")
	}
}

func cacheKey(url string) string {
	return cachePrefix + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Dominant samples buf as RGB triples: it starts at min(1000, n-100), steps
// max(1, n/10000) bytes, keeps triples whose mean is strictly between 30 and 225,
// averages them and darkens the result by 0.7.
func Dominant(buf []byte) (Color, bool) {
	n := len(buf)
	stride := max(1, n/targetSamples)
	start := min(headerOffset, n-headerTail)

	var r, g, b, count int

	for i := start; i < n-3; i += stride {
		if i < 0 {
			continue
		}

		pr, pg, pb := int(buf[i]), int(buf[i+1]), int(buf[i+2])
		brightness := float64(pr+pg+pb) / 3

		if brightness > minBrightness && brightness < maxBrightness {
			r += pr
			g += pg
			b += pb
			count++
		}
	}

	if count == 0 {
		return Color{}, false
	}

	rgb := RGB{
		R: darkened(r, count),
		G: darkened(g, count),
		B: darkened(b, count),
	}

	return Color{
		Hex: fmt.Sprintf("#%02x%02x%02x", rgb.R, rgb.G, rgb.B),
		RGB: rgb,
	}, true
}

func darkened(sum, count int) int {
	avg := roundHalfUp(float64(sum) / float64(count))

	return int(roundHalfUp(avg * darken))
}

// roundHalfUp rounds to the nearest integer with ties toward positive infinity.
func roundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 { //nolint:mnd
		return f + 1
	}

	return f
}
