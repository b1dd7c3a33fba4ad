package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
)

// maxRequestBytes bounds request bodies, full messages included
const maxRequestBytes = 30 << 20

// Server is the HTTP API of the daemon
type Server struct {
	service    ports.Analyzer
	urls       core.URLScorer
	contexts   core.URLContextAnalyzer
	logger     *zap.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer creates the API server. urls, contexts and metrics may be nil.
func NewServer(service ports.Analyzer, urls core.URLScorer, contexts core.URLContextAnalyzer, metrics http.Handler, logger *zap.Logger, listenAddr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		service:  service,
		urls:     urls,
		contexts: contexts,
		logger:   logger,
		engine:   gin.New(),
	}

	s.engine.Use(Recovery(logger))
	s.engine.Use(RequestContext(logger))

	s.engine.GET("/healthz", s.health)
	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := s.engine.Group("/api/v1")
	v1.POST("/analyze/email", s.analyzeEmail)
	v1.POST("/analyze/headers", s.analyzeHeaders)
	v1.POST("/url/predict", s.predictURL)
	v1.POST("/url/context", s.urlContext)
	v1.GET("/analyses/:email_id", s.lookup)

	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves the API in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("API server starting", zap.String("address", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
