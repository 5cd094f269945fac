package handler

import "errors"

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// MsgServerError is the body of unexpected failures on the success/error envelope.
	MsgServerError = "Server error"
)

// ErrNilDeps is returned by Init when a required dependency is missing.
var ErrNilDeps = errors.New("router or handler dependency is nil")
