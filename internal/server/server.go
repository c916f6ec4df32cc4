package server

import (
	"context"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/command"
	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/danmuck/sumoctl/internal/builder"
	"github.com/danmuck/sumoctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Sender delivers catalogue commands to a device.
type Sender interface {
	SendFeature(ctx context.Context, t frame.Type, role builder.SendBuffer, f command.Feature) (frame.Frame, error)
}

// Server is the HTTP control surface over the builder, codec and link.
type Server struct {
	Addr     string
	Appeared time.Time

	registry *command.Registry
	sender   Sender
	router   *gin.Engine
	logger   zerolog.Logger
}

// New builds a server. sender may be nil, in which case command routes
// report the link as unavailable.
func New(addr string, corsOrigins []string, registry *command.Registry, sender Sender, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Addr:     addr,
		Appeared: time.Now(),
		registry: registry,
		sender:   sender,
		router:   r,
		logger:   logger,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Serve() error {
	s.logger.Info().Str("addr", s.Addr).Msg("http control surface listening")
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
