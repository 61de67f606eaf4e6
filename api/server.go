package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	captions "shorts-doc-pipeline/03_captions"
	validate "shorts-doc-pipeline/04_validate"
	build "shorts-doc-pipeline/05_build"
	"shorts-doc-pipeline/types"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

// Server exposes the build pipeline over HTTP
type Server struct {
	svc    build.Service
	engine *gin.Engine
}

type ErrorResponse struct {
	Error     string   `json:"error"`
	ErrorKind string   `json:"error_kind"`
	Details   []string `json:"details,omitempty"`
}

type previewRequest struct {
	Document             *types.Document             `json:"document" binding:"required"`
	CaptionConfiguration *types.CaptionConfiguration `json:"caption_configuration"`
}

// NewServer wires the routes
func NewServer(svc build.Service) *Server {
	s := &Server{svc: svc, engine: gin.New()}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger())
	s.engine.Use(corsMiddleware())

	s.engine.GET("/health", s.health)
	v1 := s.engine.Group("/v1")
	v1.POST("/builds", s.createBuild)
	v1.POST("/captions/preview", s.previewCaptions)
	v1.POST("/validate", s.validateDocument)
	v1.GET("/caption-presets", s.listPresets)
	return s
}

// Handler returns the http.Handler for tests and custom servers
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then drains in-flight requests for
// up to shutdownTimeout
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("🚀 HTTP server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("🛑 HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) createBuild(c *gin.Context) {
	var req types.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), ErrorKind: "bad_request"})
		return
	}

	res, err := s.svc.Build(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) previewCaptions(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), ErrorKind: "bad_request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document": captions.Apply(req.Document, req.CaptionConfiguration),
		"captions": captions.Resolve(req.CaptionConfiguration),
	})
}

func (s *Server) validateDocument(c *gin.Context) {
	var doc types.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), ErrorKind: "bad_request"})
		return
	}
	res := validate.Validate(&doc)
	c.JSON(http.StatusOK, gin.H{
		"ok":         res.OK(),
		"violations": res.Strings(),
	})
}

func (s *Server) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default": captions.DefaultPresetID,
		"presets": captions.Presets(),
	})
}

func statusFor(err error) int {
	if types.BadInput(err) {
		return http.StatusBadRequest
	}
	switch types.ErrorKind(err) {
	case types.KindSchemaLoad:
		return http.StatusServiceUnavailable
	case types.KindPlanning, types.KindAssembly:
		return http.StatusBadGateway
	case types.KindValidation:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), ErrorKind: types.ErrorKind(err)}
	var failure *types.ValidationFailure
	if errors.As(err, &failure) {
		resp.Details = failure.Violations
	}
	return resp
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
