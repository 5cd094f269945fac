package config

import (
	"time"

	"github.com/spacehome/spacehome/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration // absolute lifetime of admin and user sessions
}

// RateLimit holds the per-IP request budgets for the expensive endpoints.
type RateLimit struct {
	Enabled    bool
	AuthMax    int           // admin login attempts per window
	ChatMax    int           // chat messages per window
	Expiration time.Duration // window length
}

// Config overall data structure.
type Config struct {
	DevMode     bool // enable dev mode for development
	DB          DB
	Log         logger.Log
	Title       string
	Webserver   Webserver
	Admin       Admin
	Cache       Cache
	Chat        Chat
	ColorSample ColorSample
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool      // disable recover middleware
	Port           int       // listening port for the webserver
	ShutDownTime   int       // wait time for shutdown
	URL            string    // base url for the webserver
	BasePath       string    // prefix of all api routes
	Session        Session   // session settings
	RateLimit      RateLimit // per-ip limits
}

// Admin holds the site owner's credential and display identity.
type Admin struct {
	Password     string        // plain password, hashed once at startup
	PasswordHash string        // argon2id hash, wins over Password
	DisplayName  string        // author name of admin comments and chat replies
	Avatar       string        // avatar url of admin comments
	FailureDelay time.Duration // artificial delay after a wrong password
}

// Cache selects the storage backing the color cache and the rate limiter.
type Cache struct {
	Driver     string // "", "none", "postgres", "mysql" or "redis"
	URL        string // connection uri of the backend
	Table      string // table name for sql backends
	Expiration time.Duration
}

// Chat configures the model API relay.
type Chat struct {
	Endpoint         string
	DefaultModel     string
	Timeout          time.Duration
	HistoryLimit     int
	MaxMessageLength int
}

// ColorSample bounds the outbound image fetch.
type ColorSample struct {
	Timeout  time.Duration
	MaxBytes int64
}
