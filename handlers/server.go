// ABOUTME: HTTP server wiring for the webhook endpoints
// ABOUTME: Routes Sheets/Trello webhooks into the reconciliation engine
package handlers

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/harperreed/leadsync/sync"
)

// Server exposes the webhook surface over an echo instance.
type Server struct {
	engine *sync.Engine
	db     *sql.DB
}

// NewServer builds the HTTP server around an engine and its database.
func NewServer(engine *sync.Engine, database *sql.DB) *Server {
	return &Server{engine: engine, db: database}
}

// Echo constructs the configured echo instance with all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Trello issues a HEAD request to verify a webhook endpoint before
	// registering it.
	e.HEAD("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.GET("/health", s.Health)
	e.POST("/webhook/sheets", s.SheetsWebhook)
	e.POST("/webhook/trello", s.TrelloWebhook)
	return e
}

// Health reports liveness plus a database ping.
func (s *Server) Health(c echo.Context) error {
	status := map[string]string{
		"status":   "healthy",
		"database": "ok",
	}

	code := http.StatusOK
	if err := s.db.PingContext(c.Request().Context()); err != nil {
		status["status"] = "unhealthy"
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, status)
}
