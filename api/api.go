package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/jlsoftware/jlsite/pkg/eventstream"
	"github.com/jlsoftware/jlsite/pkg/llm"
	"github.com/jlsoftware/jlsite/pkg/quotation"
	"github.com/jlsoftware/jlsite/pkg/storage"
)

// Route paths served to the site.
const (
	ChatPath      = "/functions/v1/ai-chat"
	QuotationPath = "/functions/v1/send-quotation-notification"
)

// corsAllowHeaders are the request headers browsers may send cross-origin.
const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// Server is the API server for the site backend.
type Server struct {
	config Config
	storer storage.Driver
	quotes *quotation.Service
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The storer is injected to allow sharing with other components
// (e.g., the chat relay's worker pool).
func NewServer(config Config, storer storage.Driver, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		quotes: quotation.NewService(storer, logger),
		logger: logger,
		app:    app,
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: corsAllowHeaders,
	}))

	app.Get("/ping", s.handlePing)
	app.Post(QuotationPath, s.handleSubmitQuotation)
	if config.ChatHandler != nil {
		app.Post(ChatPath, config.ChatHandler)
	}

	if config.AdminKey == "" {
		logger.Warn("admin key not configured, admin routes disabled")
		return s
	}

	// Compression is limited to admin responses so the chat stream is
	// flushed chunk by chunk.
	admin := app.Group("/admin", compress.New(), keyauth.New(keyauth.Config{
		AuthScheme:   "Bearer",
		Validator:    s.validateAdminKey,
		ErrorHandler: handleUnauthorized,
	}))
	admin.Get("/quotations", s.handleListQuotations)
	admin.Get("/quotations/summary", s.handleQuotationSummary)
	admin.Get("/quotations/:id", s.handleGetQuotation)
	admin.Patch("/quotations/:id", s.handleUpdateQuotationStatus)
	admin.Delete("/quotations/:id", s.handleDeleteQuotation)
	admin.Get("/chat-turns", s.handleListChatTurns)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Handler exposes the server as a net/http handler for embedding and tests.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithContext shuts down the server, giving up when ctx is done.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) validateAdminKey(_ *fiber.Ctx, key string) (bool, error) {
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.config.AdminKey)) == 1 {
		return true, nil
	}
	return false, keyauth.ErrMissingOrMalformedAPIKey
}

func handleUnauthorized(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "unauthorized"})
}

// publishQuotation announces a stored quotation. Failures are logged; the
// visitor's submission already succeeded.
func (s *Server) publishQuotation(ctx context.Context, r *quotation.Record) {
	if s.config.Publisher == nil {
		return
	}

	if err := s.config.Publisher.PublishQuotation(ctx, eventstream.NewQuotationSubmittedEvent(r)); err != nil {
		s.logger.Warn("quotation event not published",
			"id", r.ID,
			"error", err,
		)
	}
}
