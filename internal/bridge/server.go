// Package bridge exposes the store's subscription contract over HTTP so
// out-of-process view adapters can render the discussion and invoke its
// operations. The bridge holds no state of its own; every response is
// derived from a fresh store snapshot.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/threadkit/internal/store"
)

// Server bridges view adapters to one discussion store.
type Server struct {
	echo  *echo.Echo
	store *store.Store
	port  int
	token string
	log   zerolog.Logger
}

// NewServer creates a bridge for the given store. When token is non-empty,
// every request must carry it as a bearer credential.
func NewServer(st *store.Store, port int, token string) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:  e,
		store: st,
		port:  port,
		token: token,
		log:   log.With().Str("component", "bridge").Logger(),
	}

	if token != "" {
		e.Use(server.requireToken)
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all bridge endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")

	v1.GET("/discussion", s.getSnapshot)
	v1.GET("/discussion/stream", s.streamSnapshots)
	v1.POST("/comments", s.addComment)
	v1.DELETE("/comments/:id", s.deleteComment)
	v1.POST("/comments/:id/replies", s.addReply)
	v1.PATCH("/comments/:id/replies/:rid", s.editReply)
	v1.DELETE("/comments/:id/replies/:rid", s.deleteReply)
	v1.PUT("/targets/:id/reaction", s.toggleReaction)
	v1.POST("/expanded/:id", s.toggleExpanded)
	v1.PUT("/sort", s.setSort)
	v1.POST("/errors/dismiss", s.dismissError)
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/health" {
			return next(c)
		}
		auth := c.Request().Header.Get("Authorization")
		if auth != "Bearer "+s.token {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing or invalid bridge token",
			})
		}
		return next(c)
	}
}

// Start begins the bridge server and blocks until interrupted.
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.store.Close()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
