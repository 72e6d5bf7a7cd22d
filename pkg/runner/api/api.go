// Package api serves a profile over a small JSON HTTP API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	moodmcp "tableflip.dev/moodlog/pkg/runner/mcp"
)

// Server wires the routes to a service.
type Server struct {
	Service *moodmcp.Service
	Logger  *slog.Logger
	// OnListening is called with the bound address before serving.
	OnListening func(net.Addr)
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), Logger(log))

	h := &handlers{svc: s.Service}

	v1 := r.Group("/api/v1")
	{
		events := v1.Group("/events")
		events.GET("", h.listEvents)
		events.POST("", h.addEvent)
		events.GET("/:id", h.getEvent)
		events.PUT("/:id", h.editEvent)
		events.DELETE("/:id", h.deleteEvent)

		v1.GET("/stats/:year/:month", h.monthlyStats)
		v1.GET("/nearby", h.nearby)

		v1.GET("/pending", h.pending)
		v1.POST("/sync", h.sync)

		v1.GET("/following", h.following)
		v1.POST("/following/:user", h.follow)
		v1.DELETE("/following/:user", h.unfollow)
		v1.GET("/followers", h.followers)

		requests := v1.Group("/follow-requests")
		requests.GET("", h.followRequests)
		requests.POST("/:id/accept", h.answer(true))
		requests.POST("/:id/decline", h.answer(false))
	}

	// Health check
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if s.Service == nil {
		return errors.New("api: service required")
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	httpSrv := &http.Server{Handler: s.Router()}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.OnListening != nil {
		s.OnListening(ln.Addr())
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	err = httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
