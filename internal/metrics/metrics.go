// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spacehome"

//nolint:gochecknoglobals
var (
	// LogStatements counts log statements, differentiated by log level.
	LogStatements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_statements_total",
			Help:      "Number of log statements, differentiated by log level.",
		},
		[]string{"level"},
	)

	// ColorExtractions counts color extraction requests by result
	// (hit, computed, rejected, fallback).
	ColorExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "color_extractions_total",
			Help:      "Color extraction requests by result.",
		},
		[]string{"result"},
	)

	// ChatRelays counts relayed chat messages by outcome.
	ChatRelays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_relays_total",
			Help:      "Chat messages relayed to the model API by outcome.",
		},
		[]string{"outcome"},
	)

	// SessionsCreated counts newly issued sessions by role.
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions issued, by role.",
		},
		[]string{"role"},
	)

	// AdminLoginFailures counts rejected admin passwords.
	AdminLoginFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_login_failures_total",
			Help:      "Rejected admin login attempts.",
		},
	)
)
