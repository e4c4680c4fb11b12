// Package server exposes the dashboard over HTTP: workbook upload, per-sheet
// views, chart and deck downloads, and the trip profitability endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/KaramelBytes/excelinsight/internal/chart"
	"github.com/KaramelBytes/excelinsight/internal/errs"
	"github.com/KaramelBytes/excelinsight/internal/export"
	"github.com/KaramelBytes/excelinsight/internal/logger"
	"github.com/KaramelBytes/excelinsight/internal/parser"
	"github.com/KaramelBytes/excelinsight/internal/trips"
	"github.com/gin-gonic/gin"
)

// Config wires the server's collaborators.
type Config struct {
	MaxUploadBytes int64
	PreviewRows    int
	ChartSize      chart.Size
	WorkbookTTL    time.Duration
	DownloadTTL    time.Duration
	// Trips backs the /api/trips endpoints.
	Trips []trips.Record
	// Sink, when set, also receives every deck built.
	Sink export.Sink
	// Clipboard, when set, receives clipboard text; failures become warnings.
	Clipboard export.Clipboard
	Log       *logger.Logger
	DevMode   bool
}

// Server is the HTTP API.
type Server struct {
	cfg       Config
	router    *gin.Engine
	workbooks *workbookStore
	downloads *downloadStore
	log       *logger.Logger
	started   time.Time
}

// New builds a server with its routes registered.
func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = parser.DefaultMaxBytes
	}
	if cfg.ChartSize.Width <= 0 || cfg.ChartSize.Height <= 0 {
		cfg.ChartSize = chart.DefaultSize
	}
	if cfg.WorkbookTTL <= 0 {
		cfg.WorkbookTTL = 30 * time.Minute
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = 10 * time.Minute
	}
	if cfg.Log == nil {
		cfg.Log = logger.L()
	}
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		router:    gin.New(),
		workbooks: newWorkbookStore(cfg.WorkbookTTL),
		downloads: newDownloadStore(cfg.DownloadTTL),
		log:       cfg.Log,
		started:   time.Now(),
	}
	s.router.MaxMultipartMemory = cfg.MaxUploadBytes
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/status", s.getStatus)

	api.POST("/workbooks", s.uploadWorkbook)
	api.GET("/workbooks/:id", s.getWorkbook)
	api.DELETE("/workbooks/:id", s.deleteWorkbook)
	api.GET("/workbooks/:id/sheets/:sheet", s.getView)
	api.GET("/workbooks/:id/sheets/:sheet/chart.png", s.getChart)
	api.POST("/workbooks/:id/sheets/:sheet/clipboard", s.postClipboard)
	api.POST("/workbooks/:id/sheets/:sheet/deck", s.postDeck)
	api.GET("/downloads/:token", s.getDownload)

	api.GET("/trips", s.getTrips)
	api.GET("/trips/compare", s.getTripsCompare)
}

// Handler returns the router for use with httptest or a custom http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr.
func (s *Server) Run(addr string) error {
	s.log.Infof("listening on http://%s", addr)
	return s.router.Run(addr)
}

// requestLogger logs one line per request through the zerolog wrapper and
// stores a request-scoped logger in the request context.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := s.log.WithContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		ev := s.log.HTTPEvent().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInputRejected, errs.ErrKindShapeMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "kind": errs.KindOf(err).String()})
}
