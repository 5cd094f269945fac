// Package main is the entry point of spacehome, the API backend of a retro
// profile homepage. It serves admin and visitor sessions, a comment wall,
// admin editable site settings, an AI chat relay and an image color sampler
// over a fiber web server, with gorm for persistence.
package main
