// Package status serves health, status and metrics over HTTP.
package status

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stats is a snapshot of the gate, taken on the event loop.
type Stats struct {
	Peers              int  `json:"peers"`
	AuthenticatedPeers int  `json:"authenticated_peers"`
	Bans               int  `json:"bans"`
	MasterConnected    bool `json:"master_connected"`
}

type Server struct {
	addr    string
	upSince time.Time
	router  *gin.Engine

	µ     sync.RWMutex
	stats Stats
}

func New(addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Logger))

	s := &Server{
		addr:    addr,
		upSince: time.Now(),
		router:  r,
	}
	s.registerRoutes()
	return s
}

// Update replaces the snapshot served on /status.
func (s *Server) Update(stats Stats) {
	s.µ.Lock()
	defer s.µ.Unlock()
	s.stats = stats
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.upSince).Round(time.Second).String(),
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		s.µ.RLock()
		stats := s.stats
		s.µ.RUnlock()

		c.JSON(http.StatusOK, gin.H{
			"up_since": s.upSince.UTC().Format(time.RFC3339),
			"stats":    stats,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve listens until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("status server listening on %s", s.addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "status server")
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	}
}
