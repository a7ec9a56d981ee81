// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/cadencehq/cadence/pkg/registry"
)

// NewRegistry builds the sender registry with the built-in channel
// senders registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	return registry.NewDefaultRegistry(logger)
}
