// Package api provides the site's HTTP backend: the chat endpoint, the
// quotation form endpoint and the admin routes for working the leads.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// AdminKey is the bearer token required on /admin routes. Empty
	// disables the admin routes.
	AdminKey string

	// ChatHandler serves the chat endpoint, typically proxy.Relay.Handler().
	// Nil leaves the endpoint unmounted.
	ChatHandler fiber.Handler

	// Publisher receives an event for every stored quotation. Nil disables
	// publishing.
	Publisher eventstream.Publisher
}
