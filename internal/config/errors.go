package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrAdminPasswordEmpty error if neither admin.password nor admin.passwordhash is set.
	ErrAdminPasswordEmpty = errors.New("config admin.password or admin.passwordhash must be set")

	// ErrUnknownGormEngine error if db.gormengine is not supported.
	ErrUnknownGormEngine = errors.New("config db.gormengine is not supported")

	// ErrUnknownCacheDriver error if cache.driver is not supported.
	ErrUnknownCacheDriver = errors.New("config cache.driver is not supported")
)
