// Package server exposes the knowledge base and the assistant flows over HTTP.
package server

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"ledgerchat/internal/assistant"
	"ledgerchat/internal/config"
	"ledgerchat/internal/knowledge"
	"ledgerchat/internal/logging"
	"ledgerchat/internal/session"
	"ledgerchat/internal/usage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// multipart framing on top of the largest accepted file
const bodyOverhead = 1 << 20

// Server owns the fiber app and the state it serves.
type Server struct {
	addr      string
	app       *fiber.App
	store     *knowledge.Store
	assistant *assistant.Service
	session   *session.Session
	usage     *usage.Tracker
	validate  *validator.Validate
}

// New builds the app and subscribes sess to the assistant's events. tracker must be the
// one wrapping the assistant's provider client.
func New(cfg *config.Config, store *knowledge.Store, svc *assistant.Service, sess *session.Session, tracker *usage.Tracker) *Server {
	svc.Subscribe(sess)

	s := &Server{
		addr:      cfg.Server.Addr,
		store:     store,
		assistant: svc,
		session:   sess,
		usage:     tracker,
		validate:  newValidator(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.Name,
		ErrorHandler:          ErrorHandler,
		BodyLimit:             int(store.Options().MaxFileBytes) + bodyOverhead,
		ReadTimeout:           cfg.GetReadTimeout(),
		WriteTimeout:          cfg.GetWriteTimeout(),
		DisableStartupMessage: true,
		Immutable:             true, // params and form values are kept in the store
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	var (
		check = s.app.Group("/check")
		apiv1 = s.app.Group("/api/v1")
		kb    = apiv1.Group("/knowledge")
	)

	check.Get("/healthy", s.handleHealthy)

	kb.Get("/", s.handleKnowledge)
	kb.Post("/groups", s.handleCreateGroup)
	kb.Put("/groups/:id", s.handleRenameGroup)
	kb.Post("/groups/:id/activate", s.handleActivateGroup)
	kb.Delete("/groups/:id", s.handleDeleteGroup)
	kb.Post("/urls", s.handleAddURL)
	kb.Delete("/urls", s.handleRemoveURL)
	kb.Post("/documents", s.handleUploadDocument)
	kb.Delete("/documents/:id", s.handleRemoveDocument)

	apiv1.Post("/companies", s.handleCreateCompany)
	apiv1.Post("/companies/deactivate", s.handleDeactivateCompany)
	apiv1.Put("/companies/:id", s.handleUpdateCompany)
	apiv1.Delete("/companies/:id", s.handleDeleteCompany)
	apiv1.Post("/companies/:id/activate", s.handleActivateCompany)

	apiv1.Get("/chat/messages", s.handleMessages)
	apiv1.Delete("/chat/messages", s.handleClearMessages)
	apiv1.Post("/chat", s.handleChat)
	apiv1.Get("/suggestions", s.handleSuggestions)
	apiv1.Post("/mindmap", s.handleMindMap)
	apiv1.Get("/usage", s.handleUsage)
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Server("listening on %s", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Server("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	logging.APIDebug("%s %s (%s)", c.Method(), c.Path(), time.Since(start).Round(time.Millisecond))
	return err
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parses a JSON body into dst and validates it.
func (s *Server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return ErrBadRequest()
	}
	return s.validate.Struct(dst)
}
